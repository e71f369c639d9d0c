// Package transcript holds the transcript model and the pipeline built on it:
// formatting, in-memory search, batch acquisition and the Service facade that
// ties them to an upstream caption source.
package transcript

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strconv"
	"strings"
)

// DefaultLanguage is attached to transcripts fetched without an explicit language.
const DefaultLanguage = "en"

// Segment is one timed span of transcript text. End is always Start+Duration.
type Segment struct {
	Text     string
	Start    float64
	Duration float64
}

// NewSegment validates start and duration and returns the segment.
func NewSegment(text string, start, duration float64) (Segment, error) {
	if math.IsNaN(start) || math.IsInf(start, 0) || start < 0 {
		return Segment{}, &ValidationError{Field: "start", Msg: fmt.Sprintf("invalid segment start %v", start)}
	}
	if math.IsNaN(duration) || math.IsInf(duration, 0) || duration < 0 {
		return Segment{}, &ValidationError{Field: "duration", Msg: fmt.Sprintf("invalid segment duration %v", duration)}
	}
	return Segment{Text: text, Start: start, Duration: duration}, nil
}

// End returns the segment end time in seconds.
func (s Segment) End() float64 {
	return s.Start + s.Duration
}

type segmentJSON struct {
	Text     string  `json:"text"`
	Start    float64 `json:"start"`
	Duration float64 `json:"duration"`
	End      float64 `json:"end"`
}

// MarshalJSON encodes the derived end alongside the stored fields.
func (s Segment) MarshalJSON() ([]byte, error) {
	return json.Marshal(segmentJSON{Text: s.Text, Start: s.Start, Duration: s.Duration, End: s.End()})
}

// UnmarshalJSON ignores any encoded end and re-validates start and duration.
func (s *Segment) UnmarshalJSON(data []byte) error {
	var raw segmentJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	seg, err := NewSegment(raw.Text, raw.Start, raw.Duration)
	if err != nil {
		return err
	}
	*s = seg
	return nil
}

// RawSegment is a timed text unit as received from the caption source,
// before any numeric parsing.
type RawSegment struct {
	Text  string `json:"text"`
	Start string `json:"start"`
	Dur   string `json:"dur"`
}

// RawTranscript is what a Fetcher returns for one video.
type RawTranscript struct {
	VideoID  string
	Title    string
	Language string // language of the track actually served, if known
	Segments []RawSegment
}

// ParseRawSegment converts a raw unit into a validated Segment.
func ParseRawSegment(raw RawSegment) (Segment, error) {
	start, err := strconv.ParseFloat(strings.TrimSpace(raw.Start), 64)
	if err != nil {
		return Segment{}, &ValidationError{Field: "start", Msg: fmt.Sprintf("unparsable start %q", raw.Start)}
	}
	dur, err := strconv.ParseFloat(strings.TrimSpace(raw.Dur), 64)
	if err != nil {
		return Segment{}, &ValidationError{Field: "dur", Msg: fmt.Sprintf("unparsable duration %q", raw.Dur)}
	}
	return NewSegment(raw.Text, start, dur)
}

// SegmentsFromRaw parses every raw unit, skipping the malformed ones.
func SegmentsFromRaw(raws []RawSegment) []Segment {
	segs := make([]Segment, 0, len(raws))
	for i, raw := range raws {
		seg, err := ParseRawSegment(raw)
		if err != nil {
			slog.Debug("transcript: skipping malformed segment", slog.Int("index", i), slog.Any("error", err))
			continue
		}
		segs = append(segs, seg)
	}
	return segs
}

// Transcript is the full timed text of one video.
type Transcript struct {
	VideoID       string    `json:"videoId"`
	Title         string    `json:"title,omitempty"`
	Language      string    `json:"language"`
	Segments      []Segment `json:"segments"`
	TotalDuration float64   `json:"totalDuration"`
}

// NewTranscript orders segments by start and computes TotalDuration.
// An empty language falls back to DefaultLanguage.
func NewTranscript(videoID, title, language string, segments []Segment) Transcript {
	if language == "" {
		language = DefaultLanguage
	}
	segs := make([]Segment, len(segments))
	copy(segs, segments)
	sort.SliceStable(segs, func(i, j int) bool { return segs[i].Start < segs[j].Start })

	return Transcript{
		VideoID:       videoID,
		Title:         title,
		Language:      language,
		Segments:      segs,
		TotalDuration: totalDuration(segs),
	}
}

func totalDuration(segs []Segment) float64 {
	var maxEnd float64
	for _, s := range segs {
		if e := s.End(); e > maxEnd {
			maxEnd = e
		}
	}
	return maxEnd
}
