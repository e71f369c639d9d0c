package transcript

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Output formats accepted by Format.
const (
	FormatNameJSON = "json"
	FormatNameText = "text"
	FormatNameSRT  = "srt"
	FormatNameVTT  = "vtt"
)

// FormatTimestamp renders seconds as HH:MM:SS<sep>mmm. Hours are not capped at 24.
func FormatTimestamp(seconds float64, sep byte) string {
	if seconds < 0 || math.IsNaN(seconds) {
		seconds = 0
	}
	ms := int64(math.Round(seconds * 1000))
	h := ms / 3_600_000
	m := (ms / 60_000) % 60
	s := (ms / 1000) % 60
	return fmt.Sprintf("%02d:%02d:%02d%c%03d", h, m, s, sep, ms%1000)
}

// FormatText joins segment texts with single spaces.
func FormatText(t Transcript) string {
	texts := make([]string, len(t.Segments))
	for i, s := range t.Segments {
		texts[i] = s.Text
	}
	return strings.Join(texts, " ")
}

// FormatSRT renders SubRip cues: index, time range, text, blank line between cues.
func FormatSRT(t Transcript) string {
	return renderCues(t, ',')
}

// FormatVTT renders WebVTT: a WEBVTT header followed by the same cue layout
// with '.' as the millisecond separator. Cue text is left untouched.
func FormatVTT(t Transcript) string {
	if len(t.Segments) == 0 {
		return "WEBVTT\n"
	}
	return "WEBVTT\n\n" + renderCues(t, '.')
}

func renderCues(t Transcript, sep byte) string {
	cues := make([]string, len(t.Segments))
	for i, s := range t.Segments {
		var b strings.Builder
		b.WriteString(strconv.Itoa(i + 1))
		b.WriteByte('\n')
		b.WriteString(FormatTimestamp(s.Start, sep))
		b.WriteString(" --> ")
		b.WriteString(FormatTimestamp(s.End(), sep))
		b.WriteByte('\n')
		b.WriteString(s.Text)
		b.WriteByte('\n')
		cues[i] = b.String()
	}
	return strings.Join(cues, "\n")
}

// FormatJSON returns the pretty-printed transcript.
func FormatJSON(t Transcript) (string, error) {
	if t.Segments == nil {
		t.Segments = []Segment{}
	}
	data, err := json.MarshalIndent(t, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal transcript: %w", err)
	}
	return string(data), nil
}

func normalizeFormat(format string) string {
	return strings.ToLower(strings.TrimSpace(format))
}

// ValidFormat reports a *ValidationError unless format is empty, json, text, srt or vtt.
func ValidFormat(format string) error {
	switch normalizeFormat(format) {
	case "", FormatNameJSON, FormatNameText, FormatNameSRT, FormatNameVTT:
		return nil
	}
	return &ValidationError{Field: "format", Msg: fmt.Sprintf("unsupported format %q (want json, text, srt or vtt)", format)}
}

// Format dispatches on the format name; empty means json.
func Format(t Transcript, format string) (string, error) {
	switch normalizeFormat(format) {
	case "", FormatNameJSON:
		return FormatJSON(t)
	case FormatNameText:
		return FormatText(t), nil
	case FormatNameSRT:
		return FormatSRT(t), nil
	case FormatNameVTT:
		return FormatVTT(t), nil
	default:
		return "", ValidFormat(format)
	}
}
