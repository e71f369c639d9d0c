package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// Metrics is a set of named monotonic counters.
type Metrics struct {
	counters sync.Map // name → *atomic.Int64
	cache    *Cache
}

// NewMetrics returns an empty counter set. cache may be nil.
func NewMetrics(cache *Cache) *Metrics {
	return &Metrics{cache: cache}
}

// Incr adds one to the named counter.
func (m *Metrics) Incr(name string) {
	v, _ := m.counters.LoadOrStore(name, new(atomic.Int64))
	v.(*atomic.Int64).Add(1)
}

// Snapshot returns all counters including cache stats.
func (m *Metrics) Snapshot() map[string]int64 {
	out := make(map[string]int64)
	m.counters.Range(func(k, v any) bool {
		out[k.(string)] = v.(*atomic.Int64).Load()
		return true
	})
	if m.cache != nil {
		out["cache_hits"], out["cache_misses"] = m.cache.Stats()
	}
	return out
}

// Format returns metrics as "name value" lines sorted by name, for the HTTP endpoint.
func (m *Metrics) Format() string {
	snap := m.Snapshot()
	keys := make([]string, 0, len(snap))
	for k := range snap {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	for _, k := range keys {
		fmt.Fprintf(&sb, "%s %d\n", k, snap[k])
	}
	return sb.String()
}

// TrackOperation logs a warning if an operation takes longer than threshold.
func TrackOperation(ctx context.Context, name string, threshold time.Duration, fn func(context.Context) error) error {
	start := time.Now()
	err := fn(ctx)
	if elapsed := time.Since(start); elapsed > threshold {
		slog.Warn("slow operation", slog.String("op", name), slog.Duration("elapsed", elapsed))
	}
	return err
}
