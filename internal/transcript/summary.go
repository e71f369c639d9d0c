package transcript

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

// Summary kinds accepted by Summarize.
const (
	SummaryBrief      = "brief"
	SummaryDetailed   = "detailed"
	SummaryTopics     = "topics"
	SummaryTimestamps = "timestamps"
)

const (
	briefPreviewSegments = 3
	maxTopics            = 10
	minTopicLen          = 20
)

var sentenceSplitRE = regexp.MustCompile(`[.!?]+`)

// Summary is a heuristic, LLM-free digest of a transcript. Fields not relevant
// to the requested kind are left empty.
type Summary struct {
	VideoID            string             `json:"videoId"`
	Duration           *float64           `json:"duration,omitempty"`
	SegmentCount       *int               `json:"segmentCount,omitempty"`
	Language           string             `json:"language,omitempty"`
	Preview            string             `json:"preview,omitempty"`
	FullText           string             `json:"fullText,omitempty"`
	KeyTopics          []string           `json:"keyTopics,omitempty"`
	TimestampedContent []TimestampedEntry `json:"timestampedContent,omitempty"`
}

// TimestampedEntry is one segment start time with its text.
type TimestampedEntry struct {
	Time float64 `json:"time"`
	Text string  `json:"text"`
}

// Summarize builds a Summary of the given kind; empty means brief.
func Summarize(t Transcript, kind string) (Summary, error) {
	duration := t.TotalDuration
	count := len(t.Segments)

	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "", SummaryBrief:
		n := min(briefPreviewSegments, count)
		return Summary{
			VideoID:      t.VideoID,
			Duration:     &duration,
			SegmentCount: &count,
			Language:     t.Language,
			Preview:      FormatText(Transcript{Segments: t.Segments[:n]}) + "...",
		}, nil

	case SummaryDetailed:
		return Summary{
			VideoID:      t.VideoID,
			Duration:     &duration,
			SegmentCount: &count,
			Language:     t.Language,
			FullText:     FormatText(t),
		}, nil

	case SummaryTopics:
		return Summary{VideoID: t.VideoID, KeyTopics: keyTopics(t)}, nil

	case SummaryTimestamps:
		entries := make([]TimestampedEntry, len(t.Segments))
		for i, s := range t.Segments {
			entries[i] = TimestampedEntry{Time: s.Start, Text: s.Text}
		}
		return Summary{VideoID: t.VideoID, TimestampedContent: entries}, nil

	default:
		return Summary{}, &ValidationError{Field: "summaryType", Msg: fmt.Sprintf("unsupported summary type %q (want brief, detailed, topics or timestamps)", kind)}
	}
}

// keyTopics returns the first sentences of the transcript long enough to carry content.
func keyTopics(t Transcript) []string {
	topics := make([]string, 0, maxTopics)
	for _, sentence := range sentenceSplitRE.Split(FormatText(t), -1) {
		sentence = strings.TrimSpace(sentence)
		if utf8.RuneCountInString(sentence) <= minTopicLen {
			continue
		}
		topics = append(topics, sentence)
		if len(topics) == maxTopics {
			break
		}
	}
	return topics
}
