package domain

import (
	"strings"
)

// TranscriptSegment is one timed line of a transcript.
type TranscriptSegment struct {
	Text     string  `json:"text"`
	Start    float64 `json:"start"`
	Duration float64 `json:"duration"`
}

// Transcript is the ordered sequence of segments for a video.
type Transcript []TranscriptSegment

// Text joins all segment texts with single spaces.
func (t Transcript) Text() string {
	var b strings.Builder
	for i, seg := range t {
		text := strings.TrimSpace(seg.Text)
		if text == "" {
			continue
		}
		if i > 0 && b.Len() > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(text)
	}
	return b.String()
}

// IsEmpty reports whether the transcript carries no text.
func (t Transcript) IsEmpty() bool {
	for _, seg := range t {
		if strings.TrimSpace(seg.Text) != "" {
			return false
		}
	}
	return true
}

// Duration returns the end time of the last segment in seconds.
func (t Transcript) Duration() float64 {
	if len(t) == 0 {
		return 0
	}
	last := t[len(t)-1]
	return last.Start + last.Duration
}
