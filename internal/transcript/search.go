package transcript

import "strings"

// Context bounds around match i: segments [i-contextBefore, i) and (i, i+contextAfter).
const (
	contextBefore = 2
	contextAfter  = 3

	// DefaultContextWindow is the advertised context window in seconds.
	DefaultContextWindow = 30
)

// SearchOptions controls Search.
type SearchOptions struct {
	Query         string
	CaseSensitive bool
	// ContextWindow is carried for API compatibility. Matching uses a fixed
	// window of segments, not seconds.
	ContextWindow int
}

// SearchContext holds the segments around a match.
type SearchContext struct {
	Before []Segment `json:"before"`
	After  []Segment `json:"after"`
}

// SearchResult is one matching segment with its neighbours.
type SearchResult struct {
	Segment    Segment       `json:"segment"`
	Context    SearchContext `json:"context"`
	MatchIndex int           `json:"matchIndex"`
}

// Search returns every segment whose text contains the query as a substring,
// in transcript order. Each result carries up to two preceding and two
// following segments.
func Search(t Transcript, opts SearchOptions) []SearchResult {
	query := opts.Query
	if !opts.CaseSensitive {
		query = strings.ToLower(query)
	}

	segs := t.Segments
	results := make([]SearchResult, 0)
	for i, seg := range segs {
		text := seg.Text
		if !opts.CaseSensitive {
			text = strings.ToLower(text)
		}
		if !strings.Contains(text, query) {
			continue
		}
		lo := max(0, i-contextBefore)
		hi := min(len(segs), i+contextAfter)
		results = append(results, SearchResult{
			Segment: seg,
			Context: SearchContext{
				Before: segs[lo:i:i],
				After:  segs[i+1 : hi : hi],
			},
			MatchIndex: i,
		})
	}
	return results
}
