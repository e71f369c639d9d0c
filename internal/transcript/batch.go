package transcript

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// FetchFunc fetches one transcript by identifier.
type FetchFunc func(ctx context.Context, id string) (Transcript, error)

// BatchOptions configures FetchBatch.
type BatchOptions struct {
	// Concurrency is the chunk size: items fetched concurrently per chunk.
	Concurrency int
	// Pause is waited between chunks, never after the last one.
	Pause time.Duration
}

// BatchFailure records one identifier that could not be fetched.
type BatchFailure struct {
	ID    string `json:"id"`
	Error string `json:"error"`
}

// BatchResult holds the successes in input order plus the failure log.
type BatchResult struct {
	Transcripts []Transcript
	Failures    []BatchFailure
}

type batchOutcome struct {
	transcript Transcript
	err        error
}

// FetchBatch fetches ids in consecutive chunks of opts.Concurrency. Members of
// a chunk run concurrently and the next chunk starts only after all of them
// return. A failing item is recorded in Failures and never aborts its siblings
// or later chunks.
//
// The returned error is non-nil only for bad options or when ctx is cancelled
// during a pause; in the latter case the results gathered so far are returned.
func FetchBatch(ctx context.Context, ids []string, opts BatchOptions, fetch FetchFunc) (BatchResult, error) {
	if opts.Concurrency < 1 {
		return BatchResult{}, &ValidationError{Field: "concurrency", Msg: fmt.Sprintf("batch concurrency must be >= 1, got %d", opts.Concurrency)}
	}
	if fetch == nil {
		return BatchResult{}, &ValidationError{Field: "fetch", Msg: "batch fetch function is nil"}
	}

	res := BatchResult{Transcripts: make([]Transcript, 0, len(ids))}
	for lo := 0; lo < len(ids); lo += opts.Concurrency {
		hi := min(lo+opts.Concurrency, len(ids))
		chunk := ids[lo:hi]
		outcomes := make([]batchOutcome, len(chunk))

		var wg sync.WaitGroup
		for i, id := range chunk {
			wg.Add(1)
			go func(i int, id string) {
				defer wg.Done()
				defer func() {
					if r := recover(); r != nil {
						slog.Error("batch: fetch panicked", slog.String("id", id), slog.Any("panic", r))
						outcomes[i] = batchOutcome{err: fmt.Errorf("panic: %v", r)}
					}
				}()
				t, err := fetch(ctx, id)
				outcomes[i] = batchOutcome{transcript: t, err: err}
			}(i, id)
		}
		wg.Wait()

		for i, o := range outcomes {
			if o.err != nil {
				res.Failures = append(res.Failures, BatchFailure{ID: chunk[i], Error: o.err.Error()})
				continue
			}
			res.Transcripts = append(res.Transcripts, o.transcript)
		}

		if hi < len(ids) && opts.Pause > 0 {
			timer := time.NewTimer(opts.Pause)
			select {
			case <-timer.C:
			case <-ctx.Done():
				timer.Stop()
				logFailures(res.Failures, len(ids))
				return res, ctx.Err()
			}
		}
	}

	logFailures(res.Failures, len(ids))
	return res, nil
}

func logFailures(failures []BatchFailure, total int) {
	if len(failures) == 0 {
		return
	}
	slog.Warn("batch: some transcripts failed",
		slog.Int("failed", len(failures)),
		slog.Int("total", total),
		slog.Any("failures", failures),
	)
}
