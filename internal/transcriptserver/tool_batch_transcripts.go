package transcriptserver

import (
	"context"
	"errors"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/anatolykoptev/go_transcript/internal/engine"
	"github.com/anatolykoptev/go_transcript/internal/toolutil"
	"github.com/anatolykoptev/go_transcript/internal/transcript"
)

// BatchTranscriptsInput is the input for batch_transcripts.
type BatchTranscriptsInput struct {
	URLs          []string `json:"urls" jsonschema:"YouTube video URLs"`
	Language      string   `json:"language,omitempty" jsonschema:"Preferred caption language code (default: en)"`
	MaxConcurrent int      `json:"maxConcurrent,omitempty" jsonschema:"Videos fetched concurrently, minimum 1, maximum 10 (default: 3); values outside the range are clamped"`
}

type batchEntry struct {
	VideoID      string  `json:"videoId"`
	Language     string  `json:"language"`
	SegmentCount int     `json:"segmentCount"`
	Duration     float64 `json:"duration"`
}

type failedEntry struct {
	URL   string `json:"url"`
	Error string `json:"error"`
}

type batchOutput struct {
	Processed   int           `json:"processed"`
	Total       int           `json:"total"`
	Transcripts []batchEntry  `json:"transcripts"`
	Failed      []failedEntry `json:"failed"`
}

func registerBatchTranscripts(server *mcp.Server, svc *transcript.Service) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "batch_transcripts",
		Description: "Fetch transcripts for several YouTube videos in rate-limited chunks. Returns per-video segment counts and durations plus the list of videos that failed.",
		Annotations: readOnly,
	}, toolutil.Wrap("batch_transcripts", func(ctx context.Context, input BatchTranscriptsInput) (*mcp.CallToolResult, error) {
		if len(input.URLs) == 0 {
			return nil, errors.New("urls is required")
		}

		var res transcript.BatchResult
		err := engine.TrackOperation(ctx, "batch_transcripts", slowToolThreshold, func(ctx context.Context) error {
			var err error
			res, err = svc.FetchBatch(ctx, input.URLs, input.Language, input.MaxConcurrent)
			return err
		})
		if err != nil {
			return nil, err
		}

		out := batchOutput{
			Processed:   len(res.Transcripts),
			Total:       len(input.URLs),
			Transcripts: make([]batchEntry, len(res.Transcripts)),
			Failed:      failedEntries(res.Failures),
		}
		for i, t := range res.Transcripts {
			out.Transcripts[i] = batchEntry{
				VideoID:      t.VideoID,
				Language:     t.Language,
				SegmentCount: len(t.Segments),
				Duration:     t.TotalDuration,
			}
		}
		return toolutil.JSONResult(out)
	}))
}

func failedEntries(failures []transcript.BatchFailure) []failedEntry {
	out := make([]failedEntry, len(failures))
	for i, f := range failures {
		out[i] = failedEntry{URL: f.ID, Error: f.Error}
	}
	return out
}
