package transcriptserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anatolykoptev/go_transcript/internal/transcript"
)

type fakeFetcher struct {
	videos map[string]transcript.RawTranscript
	calls  atomic.Int64
}

func (f *fakeFetcher) FetchRawTranscript(_ context.Context, videoID, _ string) (transcript.RawTranscript, error) {
	f.calls.Add(1)
	raw, ok := f.videos[videoID]
	if !ok {
		return transcript.RawTranscript{}, errors.New("no captions available")
	}
	return raw, nil
}

type fakeResolver struct {
	ids []string
}

func (r *fakeResolver) ResolveVideoIDs(_ context.Context, _ string, maxVideos int) ([]string, error) {
	return r.ids[:min(maxVideos, len(r.ids))], nil
}

func rawVideo(title string, texts ...string) transcript.RawTranscript {
	raw := transcript.RawTranscript{Title: title}
	for i, text := range texts {
		raw.Segments = append(raw.Segments, transcript.RawSegment{
			Text:  text,
			Start: fmt.Sprint(i * 2),
			Dur:   "2",
		})
	}
	return raw
}

func newFetcher() *fakeFetcher {
	return &fakeFetcher{videos: map[string]transcript.RawTranscript{
		"vid1": rawVideo("First", "hello world", "this is a test", "of the search tool", "goodbye world"),
		"vid2": rawVideo("Second", "another video", "with captions"),
	}}
}

func newSession(t *testing.T) *mcp.ClientSession {
	t.Helper()
	return newSessionWith(t, newFetcher())
}

func newSessionWith(t *testing.T, fetcher *fakeFetcher) *mcp.ClientSession {
	t.Helper()
	svc, err := transcript.NewService(transcript.Config{
		Fetcher:  fetcher,
		Resolver: &fakeResolver{ids: []string{"vid1", "missing", "vid2"}},
	})
	require.NoError(t, err)

	server := mcp.NewServer(&mcp.Implementation{Name: "go_transcript", Version: "test"}, nil)
	RegisterTools(server, svc)

	ctx := context.Background()
	st, ct := mcp.NewInMemoryTransports()
	ss, err := server.Connect(ctx, st, nil)
	require.NoError(t, err)
	t.Cleanup(func() { ss.Close() })

	client := mcp.NewClient(&mcp.Implementation{Name: "test-client", Version: "test"}, nil)
	cs, err := client.Connect(ctx, ct, nil)
	require.NoError(t, err)
	t.Cleanup(func() { cs.Close() })
	return cs
}

func callTool(t *testing.T, cs *mcp.ClientSession, name string, args map[string]any) (string, bool) {
	t.Helper()
	res, err := cs.CallTool(context.Background(), &mcp.CallToolParams{Name: name, Arguments: args})
	require.NoError(t, err)
	require.Len(t, res.Content, 1)
	tc, ok := res.Content[0].(*mcp.TextContent)
	require.True(t, ok, "content is %T", res.Content[0])
	return tc.Text, res.IsError
}

func TestListTools(t *testing.T) {
	cs := newSession(t)
	res, err := cs.ListTools(context.Background(), nil)
	require.NoError(t, err)

	var names []string
	for _, tool := range res.Tools {
		names = append(names, tool.Name)
	}
	assert.Len(t, names, ToolCount)
	assert.ElementsMatch(t, []string{
		"get_transcript", "search_transcript", "batch_transcripts",
		"transcript_summary", "collection_video_urls", "collection_transcripts",
	}, names)
}

func TestGetTranscriptFormats(t *testing.T) {
	cs := newSession(t)

	text, isErr := callTool(t, cs, "get_transcript", map[string]any{
		"url": "https://youtu.be/vid2", "format": "text",
	})
	assert.False(t, isErr)
	assert.Equal(t, "another video with captions", text)

	text, isErr = callTool(t, cs, "get_transcript", map[string]any{
		"url": "https://www.youtube.com/watch?v=vid2", "format": "srt",
	})
	assert.False(t, isErr)
	assert.True(t, strings.HasPrefix(text, "1\n00:00:00,000 --> 00:00:02,000\nanother video\n"), text)

	text, isErr = callTool(t, cs, "get_transcript", map[string]any{"url": "https://youtu.be/vid2"})
	assert.False(t, isErr)
	var got transcript.Transcript
	require.NoError(t, json.Unmarshal([]byte(text), &got))
	assert.Equal(t, "vid2", got.VideoID)
	assert.Equal(t, "en", got.Language)
	assert.Len(t, got.Segments, 2)
	assert.InDelta(t, 4.0, got.TotalDuration, 1e-9)
}

func TestGetTranscriptErrors(t *testing.T) {
	cs := newSession(t)

	tests := []struct {
		name string
		args map[string]any
		want string
	}{
		{"invalid url", map[string]any{"url": "https://vimeo.com/1"}, "Error: "},
		{"unknown format", map[string]any{"url": "https://youtu.be/vid1", "format": "docx"}, "Error: "},
		{"upstream failure", map[string]any{"url": "https://youtu.be/missing"}, "Error: failed to fetch transcript: no captions available"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			text, isErr := callTool(t, cs, "get_transcript", tt.args)
			assert.True(t, isErr)
			assert.True(t, strings.HasPrefix(text, tt.want), text)
		})
	}
}

func TestGetTranscriptRejectsFormatBeforeFetching(t *testing.T) {
	fetcher := newFetcher()
	cs := newSessionWith(t, fetcher)

	text, isErr := callTool(t, cs, "get_transcript", map[string]any{
		"url": "https://youtu.be/vid1", "format": "docx",
	})
	assert.True(t, isErr)
	assert.Contains(t, text, `unsupported format "docx"`)
	assert.Zero(t, fetcher.calls.Load())

	_, isErr = callTool(t, cs, "get_transcript", map[string]any{
		"url": "https://youtu.be/vid1", "format": "VTT",
	})
	assert.False(t, isErr)
	assert.EqualValues(t, 1, fetcher.calls.Load())
}

func TestBatchToolsAdvertiseConcurrencyBounds(t *testing.T) {
	cs := newSession(t)
	res, err := cs.ListTools(context.Background(), nil)
	require.NoError(t, err)

	checked := 0
	for _, tool := range res.Tools {
		if tool.Name != "batch_transcripts" && tool.Name != "collection_transcripts" {
			continue
		}
		data, err := json.Marshal(tool.InputSchema)
		require.NoError(t, err)
		var schema struct {
			Properties map[string]struct {
				Description string `json:"description"`
			} `json:"properties"`
		}
		require.NoError(t, json.Unmarshal(data, &schema))
		desc := schema.Properties["maxConcurrent"].Description
		assert.Contains(t, desc, "minimum 1", tool.Name)
		assert.Contains(t, desc, "maximum 10", tool.Name)
		checked++
	}
	assert.Equal(t, 2, checked)
}

func TestSearchTranscript(t *testing.T) {
	cs := newSession(t)
	text, isErr := callTool(t, cs, "search_transcript", map[string]any{
		"url": "https://youtu.be/vid1", "query": "WORLD",
	})
	require.False(t, isErr, text)

	var out searchOutput
	require.NoError(t, json.Unmarshal([]byte(text), &out))
	assert.Equal(t, "vid1", out.VideoID)
	assert.Equal(t, 2, out.MatchCount)
	require.Len(t, out.Results, 2)

	assert.Equal(t, 0, out.Results[0].MatchIndex)
	assert.Equal(t, "", out.Results[0].Context.Before)
	assert.Equal(t, "this is a test of the search tool", out.Results[0].Context.After)

	assert.Equal(t, 3, out.Results[1].MatchIndex)
	assert.InDelta(t, 6.0, out.Results[1].Timestamp, 1e-9)
	assert.Equal(t, "this is a test of the search tool", out.Results[1].Context.Before)
	assert.Equal(t, "", out.Results[1].Context.After)

	text, isErr = callTool(t, cs, "search_transcript", map[string]any{
		"url": "https://youtu.be/vid1", "query": "WORLD", "caseSensitive": true,
	})
	require.False(t, isErr)
	var none searchOutput
	require.NoError(t, json.Unmarshal([]byte(text), &none))
	assert.Equal(t, 0, none.MatchCount)
	assert.NotNil(t, none.Results)
}

func TestBatchTranscripts(t *testing.T) {
	cs := newSession(t)
	text, isErr := callTool(t, cs, "batch_transcripts", map[string]any{
		"urls": []string{"https://youtu.be/vid1", "https://youtu.be/missing", "not a url", "https://youtu.be/vid2"},
		"maxConcurrent": 2,
	})
	require.False(t, isErr, text)

	var out batchOutput
	require.NoError(t, json.Unmarshal([]byte(text), &out))
	assert.Equal(t, 2, out.Processed)
	assert.Equal(t, 4, out.Total)
	require.Len(t, out.Transcripts, 2)
	assert.Equal(t, "vid1", out.Transcripts[0].VideoID)
	assert.Equal(t, 4, out.Transcripts[0].SegmentCount)
	assert.Equal(t, "vid2", out.Transcripts[1].VideoID)

	require.Len(t, out.Failed, 2)
	urls := []string{out.Failed[0].URL, out.Failed[1].URL}
	assert.ElementsMatch(t, []string{"https://youtu.be/missing", "not a url"}, urls)
}

func TestBatchTranscriptsAllFailed(t *testing.T) {
	cs := newSession(t)
	text, isErr := callTool(t, cs, "batch_transcripts", map[string]any{
		"urls": []string{"https://youtu.be/missing"},
	})
	assert.True(t, isErr)
	assert.True(t, strings.HasPrefix(text, "Error: "), text)
}

func TestTranscriptSummary(t *testing.T) {
	cs := newSession(t)

	text, isErr := callTool(t, cs, "transcript_summary", map[string]any{"url": "https://youtu.be/vid1"})
	require.False(t, isErr, text)
	var brief map[string]any
	require.NoError(t, json.Unmarshal([]byte(text), &brief))
	assert.Equal(t, "hello world this is a test of the search tool...", brief["preview"])
	assert.EqualValues(t, 4, brief["segmentCount"])

	text, isErr = callTool(t, cs, "transcript_summary", map[string]any{
		"url": "https://youtu.be/vid1", "summaryType": "timestamps",
	})
	require.False(t, isErr, text)
	var ts transcript.Summary
	require.NoError(t, json.Unmarshal([]byte(text), &ts))
	require.Len(t, ts.TimestampedContent, 4)
	assert.Equal(t, transcript.TimestampedEntry{Time: 6, Text: "goodbye world"}, ts.TimestampedContent[3])

	text, isErr = callTool(t, cs, "transcript_summary", map[string]any{
		"url": "https://youtu.be/vid1", "summaryType": "poem",
	})
	assert.True(t, isErr)
	assert.True(t, strings.HasPrefix(text, "Error: "), text)
}

func TestCollectionVideoURLs(t *testing.T) {
	cs := newSession(t)
	text, isErr := callTool(t, cs, "collection_video_urls", map[string]any{
		"url": "https://www.youtube.com/playlist?list=PL1", "maxVideos": 2,
	})
	require.False(t, isErr, text)

	var out collectionURLsOutput
	require.NoError(t, json.Unmarshal([]byte(text), &out))
	assert.Equal(t, "playlist", out.Kind)
	assert.Equal(t, 2, out.TotalURLs)
	assert.Equal(t, []string{
		"https://www.youtube.com/watch?v=vid1",
		"https://www.youtube.com/watch?v=missing",
	}, out.VideoURLs)

	text, isErr = callTool(t, cs, "collection_video_urls", map[string]any{"url": "https://example.com/list"})
	assert.True(t, isErr)
	assert.True(t, strings.HasPrefix(text, "Error: "), text)
}

func TestCollectionTranscripts(t *testing.T) {
	cs := newSession(t)
	text, isErr := callTool(t, cs, "collection_transcripts", map[string]any{
		"url": "https://www.youtube.com/@someone",
	})
	require.False(t, isErr, text)

	var out collectionTranscriptsOutput
	require.NoError(t, json.Unmarshal([]byte(text), &out))
	assert.Equal(t, "channel", out.Kind)
	assert.Equal(t, 3, out.Total)
	assert.Equal(t, 2, out.ProcessedVideos)
	require.Len(t, out.Transcripts, 2)
	assert.Equal(t, "First", out.Transcripts[0].Title)
	assert.Equal(t, "hello world this is a test", out.Transcripts[0].Preview)
	assert.Equal(t, "another video with captions", out.Transcripts[1].Preview)
	require.Len(t, out.Failed, 1)
	assert.Equal(t, "https://www.youtube.com/watch?v=missing", out.Failed[0].URL)
}
