package transcript

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingFetch struct {
	mu       sync.Mutex
	calls    []string
	inFlight atomic.Int32
	peak     atomic.Int32
	fail     map[string]bool
	delay    time.Duration
}

func (r *recordingFetch) fetch(_ context.Context, id string) (Transcript, error) {
	n := r.inFlight.Add(1)
	defer r.inFlight.Add(-1)
	for {
		p := r.peak.Load()
		if n <= p || r.peak.CompareAndSwap(p, n) {
			break
		}
	}

	r.mu.Lock()
	r.calls = append(r.calls, id)
	r.mu.Unlock()

	if r.delay > 0 {
		time.Sleep(r.delay)
	}
	if r.fail[id] {
		return Transcript{}, errors.New("no captions for " + id)
	}
	return NewTranscript(id, "", "en", []Segment{seg(id, 0, 1)}), nil
}

func (r *recordingFetch) callOrder() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.calls...)
}

func videoIDs(ts []Transcript) []string {
	out := make([]string, len(ts))
	for i, t := range ts {
		out[i] = t.VideoID
	}
	return out
}

func TestFetchBatchChunksAndIsolation(t *testing.T) {
	rf := &recordingFetch{fail: map[string]bool{"b": true}, delay: 5 * time.Millisecond}
	res, err := FetchBatch(context.Background(), []string{"a", "b", "c", "d", "e"}, BatchOptions{Concurrency: 2}, rf.fetch)
	require.NoError(t, err)

	assert.Equal(t, []string{"a", "c", "d", "e"}, videoIDs(res.Transcripts))
	require.Len(t, res.Failures, 1)
	assert.Equal(t, "b", res.Failures[0].ID)
	assert.Equal(t, "no captions for b", res.Failures[0].Error)

	order := rf.callOrder()
	require.Len(t, order, 5)
	assert.ElementsMatch(t, []string{"a", "b"}, order[0:2])
	assert.ElementsMatch(t, []string{"c", "d"}, order[2:4])
	assert.Equal(t, "e", order[4])
	assert.LessOrEqual(t, rf.peak.Load(), int32(2))
}

func TestFetchBatchRecoversPanickingItem(t *testing.T) {
	fetch := func(_ context.Context, id string) (Transcript, error) {
		if id == "b" {
			var m map[string]int
			m[id] = 1
		}
		return NewTranscript(id, "", "en", []Segment{seg(id, 0, 1)}), nil
	}
	res, err := FetchBatch(context.Background(), []string{"a", "b", "c"}, BatchOptions{Concurrency: 2}, fetch)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "c"}, videoIDs(res.Transcripts))
	require.Len(t, res.Failures, 1)
	assert.Equal(t, "b", res.Failures[0].ID)
	assert.Contains(t, res.Failures[0].Error, "panic: ")
}

func TestFetchBatchSequential(t *testing.T) {
	rf := &recordingFetch{}
	ids := []string{"a", "b", "c", "d"}
	res, err := FetchBatch(context.Background(), ids, BatchOptions{Concurrency: 1}, rf.fetch)
	require.NoError(t, err)
	assert.Equal(t, ids, rf.callOrder())
	assert.Equal(t, ids, videoIDs(res.Transcripts))
	assert.Equal(t, int32(1), rf.peak.Load())
}

func TestFetchBatchPauseBetweenChunksOnly(t *testing.T) {
	rf := &recordingFetch{}
	pause := 40 * time.Millisecond

	start := time.Now()
	_, err := FetchBatch(context.Background(), []string{"a", "b", "c"}, BatchOptions{Concurrency: 2, Pause: pause}, rf.fetch)
	require.NoError(t, err)
	elapsed := time.Since(start)

	// two chunks: exactly one pause
	assert.GreaterOrEqual(t, elapsed, pause)
	assert.Less(t, elapsed, 2*pause)

	start = time.Now()
	_, err = FetchBatch(context.Background(), []string{"a", "b"}, BatchOptions{Concurrency: 2, Pause: time.Second}, rf.fetch)
	require.NoError(t, err)
	assert.Less(t, time.Since(start), 500*time.Millisecond, "no pause after the final chunk")
}

func TestFetchBatchAllFailStillNoError(t *testing.T) {
	rf := &recordingFetch{fail: map[string]bool{"a": true, "b": true}}
	res, err := FetchBatch(context.Background(), []string{"a", "b"}, BatchOptions{Concurrency: 3}, rf.fetch)
	require.NoError(t, err)
	assert.Empty(t, res.Transcripts)
	assert.Len(t, res.Failures, 2)
}

func TestFetchBatchMisconfigured(t *testing.T) {
	_, err := FetchBatch(context.Background(), []string{"a"}, BatchOptions{Concurrency: 0}, (&recordingFetch{}).fetch)
	require.Error(t, err)
	assert.True(t, IsValidation(err))

	_, err = FetchBatch(context.Background(), []string{"a"}, BatchOptions{Concurrency: 1}, nil)
	assert.True(t, IsValidation(err))
}

func TestFetchBatchEmpty(t *testing.T) {
	res, err := FetchBatch(context.Background(), nil, BatchOptions{Concurrency: 2}, (&recordingFetch{}).fetch)
	require.NoError(t, err)
	assert.Empty(t, res.Transcripts)
	assert.Empty(t, res.Failures)
}

func TestFetchBatchCancelDuringPause(t *testing.T) {
	rf := &recordingFetch{}
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	res, err := FetchBatch(ctx, []string{"a", "b", "c"}, BatchOptions{Concurrency: 1, Pause: time.Second}, rf.fetch)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, []string{"a"}, videoIDs(res.Transcripts))
}
