package youtube

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"regexp"
	"strings"

	"github.com/anatolykoptev/go_transcript/internal/transcript"
)

// CollectionKind tells what a collection URL points at.
type CollectionKind string

const (
	KindVideo    CollectionKind = "video"
	KindPlaylist CollectionKind = "playlist"
	KindChannel  CollectionKind = "channel"
)

// CollectionRef is a parsed collection URL. ID holds the video ID, the
// playlist ID, or the channel path ("@handle", "channel/UC...", "c/name", "user/name").
type CollectionRef struct {
	Kind CollectionKind
	ID   string
	URL  string
}

var (
	playlistRE = regexp.MustCompile(`[?&]list=([\w-]+)`)
	channelRE  = regexp.MustCompile(`youtube\.com/((?:channel|c|user)/[^/?#]+|@[^/?#]+)`)
)

var initialDataMarkers = [][]byte{
	[]byte("var ytInitialData = "),
	[]byte(`window["ytInitialData"] = `),
}

// rendererKeys hold {"videoId": ...} objects on playlist and channel pages.
var rendererKeys = map[string]bool{
	"playlistVideoRenderer": true,
	"videoRenderer":         true,
	"gridVideoRenderer":     true,
}

// ParseCollectionRef classifies a playlist, channel or video URL.
// A watch URL carrying list= is treated as a playlist.
func ParseCollectionRef(rawURL string) (CollectionRef, error) {
	rawURL = strings.TrimSpace(rawURL)
	if m := playlistRE.FindStringSubmatch(rawURL); m != nil {
		return CollectionRef{Kind: KindPlaylist, ID: m[1], URL: rawURL}, nil
	}
	if m := channelRE.FindStringSubmatch(rawURL); m != nil {
		return CollectionRef{Kind: KindChannel, ID: m[1], URL: rawURL}, nil
	}
	if id, err := transcript.ExtractVideoID(rawURL); err == nil {
		return CollectionRef{Kind: KindVideo, ID: id, URL: rawURL}, nil
	}
	return CollectionRef{}, &transcript.ValidationError{
		Field: "url",
		Msg:   fmt.Sprintf("unsupported YouTube URL %q (want a playlist, channel or video URL)", rawURL),
	}
}

// ResolveVideoIDs expands a collection URL into at most maxVideos unique video IDs,
// in page order.
func (c *Client) ResolveVideoIDs(ctx context.Context, collectionURL string, maxVideos int) ([]string, error) {
	ref, err := ParseCollectionRef(collectionURL)
	if err != nil {
		return nil, err
	}
	if maxVideos <= 0 {
		maxVideos = transcript.DefaultMaxVideos
	}

	var pageURL string
	switch ref.Kind {
	case KindVideo:
		return []string{ref.ID}, nil
	case KindPlaylist:
		pageURL = c.baseURL + "/playlist?list=" + url.QueryEscape(ref.ID)
	case KindChannel:
		pageURL = c.baseURL + "/" + ref.ID + "/videos"
	}

	body, err := c.getPage(ctx, pageURL, 8*1024*1024)
	if err != nil {
		return nil, fmt.Errorf("%s page: %w", ref.Kind, err)
	}
	data := findInitialData(body)
	if data == nil {
		return nil, errors.New("ytInitialData not found in " + string(ref.Kind) + " page")
	}

	ids := extractVideoIDs(data, maxVideos)
	if len(ids) == 0 {
		return nil, fmt.Errorf("no videos found in %s %s", ref.Kind, ref.ID)
	}
	return ids, nil
}

func findInitialData(body []byte) []byte {
	for _, marker := range initialDataMarkers {
		if idx := bytes.Index(body, marker); idx >= 0 {
			if data := extractJSON(body[idx+len(marker):]); data != nil {
				return data
			}
		}
	}
	return nil
}

// extractVideoIDs streams the document and collects renderer video IDs in
// document order, skipping duplicates. Only object keys select a renderer;
// string values that happen to equal a renderer name are ignored.
func extractVideoIDs(data []byte, limit int) []string {
	type frame struct{ object, wantKey bool }
	var stack []frame
	valueDone := func() {
		if n := len(stack); n > 0 && stack[n-1].object {
			stack[n-1].wantKey = true
		}
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	seen := make(map[string]bool)
	var ids []string
	for len(ids) < limit {
		tok, err := dec.Token()
		if err != nil {
			if !errors.Is(err, io.EOF) {
				slog.Debug("youtube: renderer walk truncated", slog.Int("ids", len(ids)), slog.Any("error", err))
			}
			break
		}
		if d, ok := tok.(json.Delim); ok {
			if d == '{' || d == '[' {
				valueDone()
				stack = append(stack, frame{object: d == '{', wantKey: true})
			} else {
				stack = stack[:len(stack)-1]
			}
			continue
		}
		top := len(stack) - 1
		if top < 0 || !stack[top].object || !stack[top].wantKey {
			valueDone()
			continue
		}
		stack[top].wantKey = false
		key := tok.(string)
		if !rendererKeys[key] {
			continue
		}

		var r struct {
			VideoID string `json:"videoId"`
		}
		err = dec.Decode(&r)
		valueDone()
		if err != nil {
			var typeErr *json.UnmarshalTypeError
			if errors.As(err, &typeErr) {
				continue
			}
			slog.Debug("youtube: renderer walk truncated", slog.String("key", key), slog.Int("ids", len(ids)), slog.Any("error", err))
			break
		}
		if r.VideoID == "" || seen[r.VideoID] {
			continue
		}
		seen[r.VideoID] = true
		ids = append(ids, r.VideoID)
	}
	return ids
}

// extractJSON returns the balanced JSON object at the start of b, or nil.
func extractJSON(b []byte) []byte {
	if len(b) == 0 || b[0] != '{' {
		return nil
	}
	depth := 0
	inStr, escaped := false, false
	for i, c := range b {
		if inStr {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inStr = false
			}
			continue
		}
		switch c {
		case '"':
			inStr = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return b[:i+1]
			}
		}
	}
	return nil
}
