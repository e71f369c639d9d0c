package transcript

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// Metric names reported through Counter.
const (
	MetricTranscriptRequests = "transcript_requests"
	MetricTranscriptErrors   = "transcript_errors"
	MetricCacheHits          = "transcript_cache_hits"
	MetricSearchRequests     = "search_requests"
	MetricBatchRequests      = "batch_requests"
	MetricBatchFailures      = "batch_item_failures"
	MetricResolveRequests    = "resolve_requests"
)

// Batch limits applied to caller-supplied concurrency and collection sizes.
const (
	DefaultBatchConcurrency = 3
	MaxBatchConcurrency     = 10
	DefaultMaxVideos        = 50
	MaxVideos               = 200
)

// Fetcher retrieves raw timed caption units for one video.
type Fetcher interface {
	FetchRawTranscript(ctx context.Context, videoID, language string) (RawTranscript, error)
}

// Resolver expands a playlist, channel or video URL into video IDs.
type Resolver interface {
	ResolveVideoIDs(ctx context.Context, collectionURL string, maxVideos int) ([]string, error)
}

// Cache stores encoded transcripts by key.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, data []byte)
}

// Counter receives operational counters.
type Counter interface {
	Incr(name string)
}

// Config wires a Service. Fetcher is required; everything else is optional.
type Config struct {
	Fetcher  Fetcher
	Resolver Resolver
	Cache    Cache
	Metrics  Counter

	BatchConcurrency int           // default chunk size; 0 means DefaultBatchConcurrency
	BatchPause       time.Duration // pause between chunks
	FetchTimeout     time.Duration // per-video upstream timeout; 0 disables
}

// Service is the single entry point for transcript retrieval, search,
// formatting and batch acquisition.
type Service struct {
	cfg Config
}

// NewService validates cfg and returns a Service.
func NewService(cfg Config) (*Service, error) {
	if cfg.Fetcher == nil {
		return nil, errors.New("transcript: fetcher is required")
	}
	if cfg.BatchConcurrency <= 0 {
		cfg.BatchConcurrency = DefaultBatchConcurrency
	}
	cfg.BatchConcurrency = min(cfg.BatchConcurrency, MaxBatchConcurrency)
	return &Service{cfg: cfg}, nil
}

func (s *Service) incr(name string) {
	if s.cfg.Metrics != nil {
		s.cfg.Metrics.Incr(name)
	}
}

func cacheKey(videoID, language string) string {
	return "transcript|" + videoID + "|" + language
}

// GetTranscript fetches the transcript for a watch or short-link URL.
// The language is attached as a label; the served track is not verified
// to be in that language.
func (s *Service) GetTranscript(ctx context.Context, rawURL, language string) (Transcript, error) {
	videoID, err := ExtractVideoID(rawURL)
	if err != nil {
		return Transcript{}, err
	}
	if language == "" {
		language = DefaultLanguage
	}
	s.incr(MetricTranscriptRequests)

	key := cacheKey(videoID, language)
	if t, ok := s.loadCached(ctx, key); ok {
		s.incr(MetricCacheHits)
		return t, nil
	}

	fetchCtx := ctx
	if s.cfg.FetchTimeout > 0 {
		var cancel context.CancelFunc
		fetchCtx, cancel = context.WithTimeout(ctx, s.cfg.FetchTimeout)
		defer cancel()
	}

	raw, err := s.cfg.Fetcher.FetchRawTranscript(fetchCtx, videoID, language)
	if err != nil {
		s.incr(MetricTranscriptErrors)
		return Transcript{}, &FetchError{VideoID: videoID, Err: err}
	}

	segs := SegmentsFromRaw(raw.Segments)
	if skipped := len(raw.Segments) - len(segs); skipped > 0 {
		slog.Warn("transcript: dropped malformed segments",
			slog.String("id", videoID), slog.Int("skipped", skipped), slog.Int("kept", len(segs)))
	}

	t := NewTranscript(videoID, raw.Title, language, segs)
	s.storeCached(ctx, key, t)
	return t, nil
}

func (s *Service) loadCached(ctx context.Context, key string) (Transcript, bool) {
	if s.cfg.Cache == nil {
		return Transcript{}, false
	}
	data, ok := s.cfg.Cache.Get(ctx, key)
	if !ok {
		return Transcript{}, false
	}
	var t Transcript
	if err := json.Unmarshal(data, &t); err != nil {
		slog.Debug("transcript: corrupt cache entry", slog.String("key", key), slog.Any("error", err))
		return Transcript{}, false
	}
	return t, true
}

func (s *Service) storeCached(ctx context.Context, key string, t Transcript) {
	if s.cfg.Cache == nil {
		return
	}
	data, err := json.Marshal(t)
	if err != nil {
		return
	}
	s.cfg.Cache.Set(ctx, key, data)
}

// Search runs a substring search over t.
func (s *Service) Search(t Transcript, opts SearchOptions) []SearchResult {
	s.incr(MetricSearchRequests)
	return Search(t, opts)
}

// Format renders t as json, text, srt or vtt.
func (s *Service) Format(t Transcript, format string) (string, error) { return Format(t, format) }

// FormatText renders t as plain text.
func (s *Service) FormatText(t Transcript) string { return FormatText(t) }

// FormatSRT renders t as SubRip.
func (s *Service) FormatSRT(t Transcript) string { return FormatSRT(t) }

// FormatVTT renders t as WebVTT.
func (s *Service) FormatVTT(t Transcript) string { return FormatVTT(t) }

// FormatJSON renders t as indented JSON.
func (s *Service) FormatJSON(t Transcript) (string, error) { return FormatJSON(t) }

// Summarize builds a heuristic summary of t.
func (s *Service) Summarize(t Transcript, kind string) (Summary, error) { return Summarize(t, kind) }

// ClampConcurrency maps a caller-supplied concurrency onto 1..MaxBatchConcurrency,
// using def for zero or negative values.
func ClampConcurrency(n, def int) int {
	if n <= 0 {
		n = def
	}
	return max(1, min(n, MaxBatchConcurrency))
}

// FetchBatch fetches transcripts for many video URLs. Per-item failures are
// reported in the result; the error is ErrBatchFailed only when every item failed.
func (s *Service) FetchBatch(ctx context.Context, urls []string, language string, maxConcurrent int) (BatchResult, error) {
	s.incr(MetricBatchRequests)
	opts := BatchOptions{
		Concurrency: ClampConcurrency(maxConcurrent, s.cfg.BatchConcurrency),
		Pause:       s.cfg.BatchPause,
	}

	res, err := FetchBatch(ctx, urls, opts, func(ctx context.Context, u string) (Transcript, error) {
		return s.GetTranscript(ctx, u, language)
	})
	for range res.Failures {
		s.incr(MetricBatchFailures)
	}
	if err != nil {
		return res, err
	}
	if len(urls) > 0 && len(res.Transcripts) == 0 {
		return res, fmt.Errorf("%w (%d of %d): %s", ErrBatchFailed, len(res.Failures), len(urls), res.Failures[0].Error)
	}
	return res, nil
}

// ClampMaxVideos maps a caller-supplied collection size onto 1..MaxVideos.
func ClampMaxVideos(n int) int {
	if n <= 0 {
		return DefaultMaxVideos
	}
	return min(n, MaxVideos)
}

// ResolveVideoURLs expands a playlist or channel URL into watch URLs.
func (s *Service) ResolveVideoURLs(ctx context.Context, collectionURL string, maxVideos int) ([]string, error) {
	if s.cfg.Resolver == nil {
		return nil, &ValidationError{Field: "url", Msg: "collection resolution is not configured"}
	}
	s.incr(MetricResolveRequests)

	ids, err := s.cfg.Resolver.ResolveVideoIDs(ctx, collectionURL, ClampMaxVideos(maxVideos))
	if err != nil {
		if IsValidation(err) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to resolve videos: %w", err)
	}

	urls := make([]string, len(ids))
	for i, id := range ids {
		urls[i] = WatchURL(id)
	}
	return urls, nil
}

// CollectionTranscripts resolves a playlist or channel and batch-fetches its videos.
func (s *Service) CollectionTranscripts(ctx context.Context, collectionURL, language string, maxVideos, maxConcurrent int) (BatchResult, int, error) {
	urls, err := s.ResolveVideoURLs(ctx, collectionURL, maxVideos)
	if err != nil {
		return BatchResult{}, 0, err
	}
	res, err := s.FetchBatch(ctx, urls, language, maxConcurrent)
	return res, len(urls), err
}
