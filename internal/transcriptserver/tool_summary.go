package transcriptserver

import (
	"context"
	"errors"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/anatolykoptev/go_transcript/internal/toolutil"
	"github.com/anatolykoptev/go_transcript/internal/transcript"
)

// TranscriptSummaryInput is the input for transcript_summary.
type TranscriptSummaryInput struct {
	URL         string `json:"url" jsonschema:"YouTube video URL"`
	SummaryType string `json:"summaryType,omitempty" jsonschema:"Summary kind: brief, detailed, topics or timestamps (default: brief)"`
	Language    string `json:"language,omitempty" jsonschema:"Preferred caption language code (default: en)"`
}

func registerTranscriptSummary(server *mcp.Server, svc *transcript.Service) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "transcript_summary",
		Description: "Summarize a YouTube video's transcript without an LLM: brief preview, full text, key sentences (topics) or a timestamped outline.",
		Annotations: readOnly,
	}, toolutil.Wrap("transcript_summary", func(ctx context.Context, input TranscriptSummaryInput) (*mcp.CallToolResult, error) {
		if input.URL == "" {
			return nil, errors.New("url is required")
		}
		t, err := svc.GetTranscript(ctx, input.URL, input.Language)
		if err != nil {
			return nil, err
		}
		summary, err := svc.Summarize(t, input.SummaryType)
		if err != nil {
			return nil, err
		}
		return toolutil.JSONResult(summary)
	}))
}
