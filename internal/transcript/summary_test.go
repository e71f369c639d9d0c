package transcript

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func summaryFixture() Transcript {
	return NewTranscript("vid", "", "en", []Segment{
		seg("Welcome to the channel everyone.", 0, 2),
		seg("Today we talk about goroutines and channels.", 2, 3),
		seg("Short one!", 5, 1),
		seg("Channels let goroutines communicate safely?", 6, 2),
	})
}

func TestSummarizeBrief(t *testing.T) {
	s, err := Summarize(summaryFixture(), "")
	require.NoError(t, err)
	assert.Equal(t, "vid", s.VideoID)
	require.NotNil(t, s.SegmentCount)
	assert.Equal(t, 4, *s.SegmentCount)
	require.NotNil(t, s.Duration)
	assert.InDelta(t, 8.0, *s.Duration, 1e-9)
	assert.Equal(t, "Welcome to the channel everyone. Today we talk about goroutines and channels. Short one!...", s.Preview)
}

func TestSummarizeDetailed(t *testing.T) {
	tr := summaryFixture()
	s, err := Summarize(tr, SummaryDetailed)
	require.NoError(t, err)
	assert.Equal(t, FormatText(tr), s.FullText)
}

func TestSummarizeTopics(t *testing.T) {
	s, err := Summarize(summaryFixture(), SummaryTopics)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"Welcome to the channel everyone",
		"Today we talk about goroutines and channels",
		"Channels let goroutines communicate safely",
	}, s.KeyTopics)
	assert.Nil(t, s.SegmentCount)
}

func TestSummarizeTopicsCountsCharacters(t *testing.T) {
	tr := NewTranscript("vid", "", "ru", []Segment{
		seg("Привет мир снова.", 0, 2),
		seg("Сегодня говорим о горутинах.", 2, 3),
	})
	s, err := Summarize(tr, SummaryTopics)
	require.NoError(t, err)
	assert.Equal(t, []string{"Сегодня говорим о горутинах"}, s.KeyTopics)
}

func TestSummarizeTimestamps(t *testing.T) {
	s, err := Summarize(summaryFixture(), SummaryTimestamps)
	require.NoError(t, err)
	require.Len(t, s.TimestampedContent, 4)
	assert.Equal(t, TimestampedEntry{Time: 5, Text: "Short one!"}, s.TimestampedContent[2])
}

func TestSummarizeUnknown(t *testing.T) {
	_, err := Summarize(summaryFixture(), "haiku")
	assert.True(t, IsValidation(err))
}

func TestSummarizeBriefEmpty(t *testing.T) {
	s, err := Summarize(NewTranscript("v", "", "en", nil), SummaryBrief)
	require.NoError(t, err)
	assert.Equal(t, "...", s.Preview)
}
