package transcriptserver

import (
	"context"
	"errors"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/anatolykoptev/go_transcript/internal/engine"
	"github.com/anatolykoptev/go_transcript/internal/toolutil"
	"github.com/anatolykoptev/go_transcript/internal/transcript"
)

// GetTranscriptInput is the input for get_transcript.
type GetTranscriptInput struct {
	URL      string `json:"url" jsonschema:"YouTube video URL (youtube.com/watch?v=... or youtu.be/...)"`
	Language string `json:"language,omitempty" jsonschema:"Preferred caption language code (default: en)"`
	Format   string `json:"format,omitempty" jsonschema:"Output format: json, text, srt or vtt (default: json)"`
}

func registerGetTranscript(server *mcp.Server, svc *transcript.Service) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_transcript",
		Description: "Fetch the transcript of a YouTube video. Returns timed segments as JSON, or plain text, SubRip (srt) or WebVTT (vtt) when format is set.",
		Annotations: readOnly,
	}, toolutil.Wrap("get_transcript", func(ctx context.Context, input GetTranscriptInput) (*mcp.CallToolResult, error) {
		if input.URL == "" {
			return nil, errors.New("url is required")
		}
		if err := transcript.ValidFormat(input.Format); err != nil {
			return nil, err
		}

		var out string
		err := engine.TrackOperation(ctx, "get_transcript", slowToolThreshold, func(ctx context.Context) error {
			t, err := svc.GetTranscript(ctx, input.URL, input.Language)
			if err != nil {
				return err
			}
			out, err = svc.Format(t, input.Format)
			return err
		})
		if err != nil {
			return nil, err
		}
		return toolutil.TextResult(out), nil
	}))
}
