package youtube

import (
	"bytes"
	"context"
	"encoding/json"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/net/html"

	"github.com/anatolykoptev/go_transcript/internal/transcript"
)

// Caption fetching, in order:
//  1. watch page ytInitialPlayerResponse → caption track → timedtext XML
//  2. ANDROID Innertube /player → caption track → timedtext XML
//  3. WEB /next → engagement panel token → /get_transcript segments

const ytInitialPlayerResponseMarker = "ytInitialPlayerResponse = "

var getTranscriptRE = regexp.MustCompile(`"getTranscriptEndpoint":\{"params":"([^"]+)"`)

// ErrNoCaptions is returned when a video exposes no usable caption track.
var ErrNoCaptions = errors.New("no captions available")

// FetchRawTranscript returns the raw timed caption units for videoID,
// preferring a track in language.
func (c *Client) FetchRawTranscript(ctx context.Context, videoID, language string) (transcript.RawTranscript, error) {
	langs := []string{language}
	if language == "" {
		langs = []string{transcript.DefaultLanguage}
	}

	strategies := []struct {
		name string
		fn   func(context.Context, string, []string) (transcript.RawTranscript, error)
	}{
		{"watch page", c.fetchViaWatchPage},
		{"android player", c.fetchViaPlayer},
		{"engagement panel", c.fetchViaEngagementPanel},
	}

	var errs []error
	for _, s := range strategies {
		raw, err := s.fn(ctx, videoID, langs)
		if err == nil {
			raw.VideoID = videoID
			return raw, nil
		}
		if ctx.Err() != nil {
			return transcript.RawTranscript{}, ctx.Err()
		}
		slog.Warn("youtube: caption strategy failed",
			slog.String("id", videoID), slog.String("strategy", s.name), slog.Any("err", err))
		errs = append(errs, fmt.Errorf("%s: %w", s.name, err))
	}
	return transcript.RawTranscript{}, errors.Join(errs...)
}

func (c *Client) fetchViaWatchPage(ctx context.Context, videoID string, langs []string) (transcript.RawTranscript, error) {
	body, err := c.getPage(ctx, c.baseURL+"/watch?v="+url.QueryEscape(videoID), 6*1024*1024)
	if err != nil {
		return transcript.RawTranscript{}, err
	}

	idx := bytes.Index(body, []byte(ytInitialPlayerResponseMarker))
	if idx < 0 {
		return transcript.RawTranscript{}, errors.New("ytInitialPlayerResponse not found in watch page")
	}
	jsonData := extractJSON(body[idx+len(ytInitialPlayerResponseMarker):])
	if jsonData == nil {
		return transcript.RawTranscript{}, errors.New("failed to extract ytInitialPlayerResponse JSON")
	}

	var player playerResponse
	if err := json.Unmarshal(jsonData, &player); err != nil {
		return transcript.RawTranscript{}, fmt.Errorf("decode ytInitialPlayerResponse: %w", err)
	}
	return c.fetchFromPlayer(ctx, player, langs)
}

func (c *Client) fetchViaPlayer(ctx context.Context, videoID string, langs []string) (transcript.RawTranscript, error) {
	reqBody, err := json.Marshal(innertubeReq{
		VideoID: videoID,
		Context: innertubeCtx{
			Client: innertubeClient{
				ClientName:        "ANDROID",
				ClientVersion:     ytAndroidVersion,
				AndroidSdkVersion: 30,
				Hl:                langs[0],
				Gl:                "US",
			},
		},
		RacyCheckOk:    true,
		ContentCheckOk: true,
	})
	if err != nil {
		return transcript.RawTranscript{}, err
	}

	resp, err := c.do(ctx, func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+ytPlayerPath+"?prettyPrint=false", bytes.NewReader(reqBody))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("User-Agent", ytAndroidUA)
		req.Header.Set("X-Youtube-Client-Name", "3")
		req.Header.Set("X-Youtube-Client-Version", ytAndroidVersion)
		return req, nil
	})
	if err != nil {
		return transcript.RawTranscript{}, err
	}
	defer resp.Body.Close()

	var player playerResponse
	if err := json.NewDecoder(resp.Body).Decode(&player); err != nil {
		return transcript.RawTranscript{}, fmt.Errorf("decode player: %w", err)
	}
	return c.fetchFromPlayer(ctx, player, langs)
}

func (c *Client) fetchFromPlayer(ctx context.Context, player playerResponse, langs []string) (transcript.RawTranscript, error) {
	tracks := player.tracks()
	if len(tracks) == 0 {
		return transcript.RawTranscript{}, fmt.Errorf("%w: %s", ErrNoCaptions, player.unavailableReason())
	}
	track, ok := pickBestTrack(tracks, langs)
	if !ok {
		return transcript.RawTranscript{}, fmt.Errorf("%w: all caption tracks require PoToken", ErrNoCaptions)
	}
	segs, err := c.fetchTimedText(ctx, track.BaseURL)
	if err != nil {
		return transcript.RawTranscript{}, err
	}
	return transcript.RawTranscript{Title: player.title(), Language: track.LanguageCode, Segments: segs}, nil
}

func (c *Client) fetchViaEngagementPanel(ctx context.Context, videoID string, langs []string) (transcript.RawTranscript, error) {
	visitorData := generateVisitorData()

	nextData, err := c.postWEB(ctx, ytNextPath, map[string]any{
		"videoId": videoID,
		"context": webContext(visitorData, langs[0]),
	}, visitorData)
	if err != nil {
		return transcript.RawTranscript{}, fmt.Errorf("/next: %w", err)
	}

	token, err := extractTranscriptToken(nextData)
	if err != nil {
		return transcript.RawTranscript{}, err
	}

	data, err := c.postWEB(ctx, ytGetTranscriptPath, map[string]any{
		"params":  token,
		"context": webContext(visitorData, langs[0]),
	}, visitorData)
	if err != nil {
		return transcript.RawTranscript{}, fmt.Errorf("/get_transcript: %w", err)
	}

	var resp getTranscriptResp
	if err := json.Unmarshal(data, &resp); err != nil {
		return transcript.RawTranscript{}, fmt.Errorf("decode transcript: %w", err)
	}
	segs := panelSegments(resp)
	if len(segs) == 0 {
		return transcript.RawTranscript{}, fmt.Errorf("%w: empty transcript segments", ErrNoCaptions)
	}
	return transcript.RawTranscript{Segments: segs}, nil
}

func extractTranscriptToken(data []byte) (string, error) {
	m := getTranscriptRE.FindSubmatch(data)
	if len(m) < 2 {
		return "", errors.New("getTranscriptEndpoint not found in engagement panels")
	}
	// /next returns the params URL-encoded; /get_transcript wants raw base64.
	decoded, err := url.QueryUnescape(string(m[1]))
	if err != nil {
		return string(m[1]), nil
	}
	return decoded, nil
}

// panelSegments converts engagement panel segments (millisecond bounds) into
// raw units in seconds. Unparsable bounds are passed through empty so the
// unit is dropped downstream.
func panelSegments(resp getTranscriptResp) []transcript.RawSegment {
	var out []transcript.RawSegment
	for _, action := range resp.Actions {
		if action.UpdateEngagementPanelAction == nil {
			continue
		}
		segs := action.UpdateEngagementPanelAction.Content.
			TranscriptRenderer.Content.
			TranscriptSearchPanelRenderer.Body.
			TranscriptSegmentListRenderer.InitialSegments
		for _, seg := range segs {
			r := seg.TranscriptSegmentRenderer
			if r == nil {
				continue
			}
			texts := make([]string, 0, len(r.Snippet.Runs))
			for _, run := range r.Snippet.Runs {
				if run.Text != "" {
					texts = append(texts, run.Text)
				}
			}
			raw := transcript.RawSegment{Text: cleanCaptionText(strings.Join(texts, ""))}
			startMs, err1 := strconv.ParseInt(r.StartMs, 10, 64)
			endMs, err2 := strconv.ParseInt(r.EndMs, 10, 64)
			if err1 == nil && err2 == nil {
				raw.Start = strconv.FormatFloat(float64(startMs)/1000, 'f', -1, 64)
				raw.Dur = strconv.FormatFloat(float64(endMs-startMs)/1000, 'f', -1, 64)
			}
			out = append(out, raw)
		}
	}
	return out
}

// needsPoToken reports whether a caption track URL requires a PoToken (browser-only).
func needsPoToken(baseURL string) bool {
	return strings.Contains(baseURL, "&exp=xpe")
}

// pickBestTrack selects the best usable caption track for the language preferences:
// manual track, then auto-generated, then any English, then the first usable.
func pickBestTrack(tracks []captionTrack, langs []string) (captionTrack, bool) {
	usable := make([]captionTrack, 0, len(tracks))
	for _, t := range tracks {
		if !needsPoToken(t.BaseURL) {
			usable = append(usable, t)
		}
	}
	if len(usable) == 0 {
		return captionTrack{}, false
	}
	for _, lang := range langs {
		for _, t := range usable {
			if t.LanguageCode == lang && t.Kind != "asr" {
				return t, true
			}
		}
	}
	for _, lang := range langs {
		for _, t := range usable {
			if t.LanguageCode == lang {
				return t, true
			}
		}
	}
	for _, t := range usable {
		if strings.HasPrefix(t.LanguageCode, "en") {
			return t, true
		}
	}
	return usable[0], true
}

// timedText covers both the legacy <transcript><text start dur> format and
// srv3 <timedtext><body><p t d> (milliseconds).
type timedText struct {
	Lines []struct {
		Start string `xml:"start,attr"`
		Dur   string `xml:"dur,attr"`
		Text  string `xml:",chardata"`
	} `xml:"text"`
	Body struct {
		Paras []struct {
			T     string `xml:"t,attr"`
			D     string `xml:"d,attr"`
			Inner string `xml:",innerxml"`
		} `xml:"p"`
	} `xml:"body"`
}

func (c *Client) fetchTimedText(ctx context.Context, baseURL string) ([]transcript.RawSegment, error) {
	resp, err := c.do(ctx, func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("User-Agent", ytChromeUA)
		return req, nil
	})
	if err != nil {
		return nil, fmt.Errorf("fetch timedtext: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4*1024*1024))
	if err != nil {
		return nil, err
	}
	segs, err := parseTimedText(body)
	if err != nil {
		return nil, err
	}
	if len(segs) == 0 {
		return nil, fmt.Errorf("%w: empty timedtext document", ErrNoCaptions)
	}
	return segs, nil
}

func parseTimedText(body []byte) ([]transcript.RawSegment, error) {
	var tt timedText
	if err := xml.Unmarshal(body, &tt); err != nil {
		return nil, fmt.Errorf("parse timedtext XML: %w", err)
	}

	segs := make([]transcript.RawSegment, 0, len(tt.Lines)+len(tt.Body.Paras))
	for _, line := range tt.Lines {
		text := cleanCaptionText(line.Text)
		if text == "" {
			continue
		}
		segs = append(segs, transcript.RawSegment{Text: text, Start: line.Start, Dur: line.Dur})
	}
	for _, p := range tt.Body.Paras {
		text := cleanCaptionText(p.Inner)
		if text == "" {
			continue
		}
		segs = append(segs, transcript.RawSegment{Text: text, Start: msToSeconds(p.T), Dur: msToSeconds(p.D)})
	}
	return segs, nil
}

func msToSeconds(ms string) string {
	n, err := strconv.ParseInt(strings.TrimSpace(ms), 10, 64)
	if err != nil {
		return ms
	}
	return strconv.FormatFloat(float64(n)/1000, 'f', -1, 64)
}

// cleanCaptionText strips markup (e.g. <font>, <s>) and resolves entities,
// including the double-escaped ones timedtext commonly carries.
func cleanCaptionText(s string) string {
	if s == "" {
		return ""
	}
	var sb strings.Builder
	z := html.NewTokenizer(strings.NewReader(s))
	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			break
		}
		if tt == html.TextToken {
			sb.Write(z.Text())
		}
	}
	text := sb.String()
	if strings.Contains(text, "&") {
		text = html.UnescapeString(text)
	}
	return strings.Join(strings.Fields(text), " ")
}
