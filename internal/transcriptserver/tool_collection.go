package transcriptserver

import (
	"context"
	"errors"

	"github.com/anatolykoptev/go-kit/strutil"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/anatolykoptev/go_transcript/internal/engine"
	"github.com/anatolykoptev/go_transcript/internal/toolutil"
	"github.com/anatolykoptev/go_transcript/internal/transcript"
	"github.com/anatolykoptev/go_transcript/internal/youtube"
)

const (
	previewSegments = 2
	previewMaxChars = 200
)

// CollectionVideoURLsInput is the input for collection_video_urls.
type CollectionVideoURLsInput struct {
	URL       string `json:"url" jsonschema:"YouTube playlist or channel URL"`
	MaxVideos int    `json:"maxVideos,omitempty" jsonschema:"Maximum number of videos (default: 50, max: 200)"`
}

// CollectionTranscriptsInput is the input for collection_transcripts.
type CollectionTranscriptsInput struct {
	URL           string `json:"url" jsonschema:"YouTube playlist or channel URL"`
	Language      string `json:"language,omitempty" jsonschema:"Preferred caption language code (default: en)"`
	MaxVideos     int    `json:"maxVideos,omitempty" jsonschema:"Maximum number of videos (default: 50, max: 200)"`
	MaxConcurrent int    `json:"maxConcurrent,omitempty" jsonschema:"Videos fetched concurrently, minimum 1, maximum 10 (default: 3); values outside the range are clamped"`
}

type collectionURLsOutput struct {
	URL       string   `json:"url"`
	Kind      string   `json:"kind"`
	TotalURLs int      `json:"totalUrls"`
	VideoURLs []string `json:"videoUrls"`
}

type collectionEntry struct {
	VideoID      string  `json:"videoId"`
	Title        string  `json:"title,omitempty"`
	Language     string  `json:"language"`
	SegmentCount int     `json:"segmentCount"`
	Duration     float64 `json:"duration"`
	Preview      string  `json:"preview"`
}

type collectionTranscriptsOutput struct {
	URL             string            `json:"url"`
	Kind            string            `json:"kind"`
	ProcessedVideos int               `json:"processedVideos"`
	Total           int               `json:"total"`
	Transcripts     []collectionEntry `json:"transcripts"`
	Failed          []failedEntry     `json:"failed"`
}

func registerCollectionVideoURLs(server *mcp.Server, svc *transcript.Service) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "collection_video_urls",
		Description: "List the video URLs of a YouTube playlist or channel, in page order.",
		Annotations: readOnly,
	}, toolutil.Wrap("collection_video_urls", func(ctx context.Context, input CollectionVideoURLsInput) (*mcp.CallToolResult, error) {
		ref, err := parseCollection(input.URL)
		if err != nil {
			return nil, err
		}
		urls, err := svc.ResolveVideoURLs(ctx, input.URL, input.MaxVideos)
		if err != nil {
			return nil, err
		}
		return toolutil.JSONResult(collectionURLsOutput{
			URL:       input.URL,
			Kind:      string(ref.Kind),
			TotalURLs: len(urls),
			VideoURLs: urls,
		})
	}))
}

func registerCollectionTranscripts(server *mcp.Server, svc *transcript.Service) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "collection_transcripts",
		Description: "Fetch transcripts for the videos of a YouTube playlist or channel. Returns per-video metadata with a short preview plus the list of videos that failed.",
		Annotations: readOnly,
	}, toolutil.Wrap("collection_transcripts", func(ctx context.Context, input CollectionTranscriptsInput) (*mcp.CallToolResult, error) {
		ref, err := parseCollection(input.URL)
		if err != nil {
			return nil, err
		}

		var (
			res   transcript.BatchResult
			total int
		)
		err = engine.TrackOperation(ctx, "collection_transcripts", slowToolThreshold, func(ctx context.Context) error {
			var err error
			res, total, err = svc.CollectionTranscripts(ctx, input.URL, input.Language, input.MaxVideos, input.MaxConcurrent)
			return err
		})
		if err != nil {
			return nil, err
		}

		out := collectionTranscriptsOutput{
			URL:             input.URL,
			Kind:            string(ref.Kind),
			ProcessedVideos: len(res.Transcripts),
			Total:           total,
			Transcripts:     make([]collectionEntry, len(res.Transcripts)),
			Failed:          failedEntries(res.Failures),
		}
		for i, t := range res.Transcripts {
			n := min(previewSegments, len(t.Segments))
			out.Transcripts[i] = collectionEntry{
				VideoID:      t.VideoID,
				Title:        t.Title,
				Language:     t.Language,
				SegmentCount: len(t.Segments),
				Duration:     t.TotalDuration,
				Preview:      strutil.TruncateWith(joinTexts(t.Segments[:n]), previewMaxChars, "..."),
			}
		}
		return toolutil.JSONResult(out)
	}))
}

func parseCollection(rawURL string) (youtube.CollectionRef, error) {
	if rawURL == "" {
		return youtube.CollectionRef{}, errors.New("url is required")
	}
	return youtube.ParseCollectionRef(rawURL)
}
