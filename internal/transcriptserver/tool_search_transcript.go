package transcriptserver

import (
	"context"
	"errors"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/anatolykoptev/go_transcript/internal/toolutil"
	"github.com/anatolykoptev/go_transcript/internal/transcript"
)

// SearchTranscriptInput is the input for search_transcript.
type SearchTranscriptInput struct {
	URL           string `json:"url" jsonschema:"YouTube video URL"`
	Query         string `json:"query" jsonschema:"Text to search for"`
	ContextWindow int    `json:"contextWindow,omitempty" jsonschema:"Context window in seconds (default: 30; currently informational)"`
	CaseSensitive bool   `json:"caseSensitive,omitempty" jsonschema:"Match case exactly (default: false)"`
	Language      string `json:"language,omitempty" jsonschema:"Preferred caption language code (default: en)"`
}

type searchContextText struct {
	Before string `json:"before"`
	After  string `json:"after"`
}

type searchMatch struct {
	MatchIndex int               `json:"matchIndex"`
	Timestamp  float64           `json:"timestamp"`
	Text       string            `json:"text"`
	Context    searchContextText `json:"context"`
}

type searchOutput struct {
	VideoID    string        `json:"videoId"`
	Query      string        `json:"query"`
	MatchCount int           `json:"matchCount"`
	Results    []searchMatch `json:"results"`
}

func registerSearchTranscript(server *mcp.Server, svc *transcript.Service) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "search_transcript",
		Description: "Search a YouTube video's transcript for a phrase. Returns every matching segment with its timestamp and the surrounding caption text.",
		Annotations: readOnly,
	}, toolutil.Wrap("search_transcript", func(ctx context.Context, input SearchTranscriptInput) (*mcp.CallToolResult, error) {
		if input.URL == "" {
			return nil, errors.New("url is required")
		}
		if input.Query == "" {
			return nil, errors.New("query is required")
		}
		if input.ContextWindow <= 0 {
			input.ContextWindow = transcript.DefaultContextWindow
		}

		t, err := svc.GetTranscript(ctx, input.URL, input.Language)
		if err != nil {
			return nil, err
		}
		results := svc.Search(t, transcript.SearchOptions{
			Query:         input.Query,
			CaseSensitive: input.CaseSensitive,
			ContextWindow: input.ContextWindow,
		})

		out := searchOutput{
			VideoID:    t.VideoID,
			Query:      input.Query,
			MatchCount: len(results),
			Results:    make([]searchMatch, len(results)),
		}
		for i, r := range results {
			out.Results[i] = searchMatch{
				MatchIndex: r.MatchIndex,
				Timestamp:  r.Segment.Start,
				Text:       r.Segment.Text,
				Context: searchContextText{
					Before: joinTexts(r.Context.Before),
					After:  joinTexts(r.Context.After),
				},
			}
		}
		return toolutil.JSONResult(out)
	}))
}

func joinTexts(segs []transcript.Segment) string {
	texts := make([]string, len(segs))
	for i, s := range segs {
		texts[i] = s.Text
	}
	return strings.Join(texts, " ")
}
