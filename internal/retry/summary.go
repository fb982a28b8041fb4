package retry

import (
	"fmt"
	"sync"

	"github.com/phrazzld/scry-materials/internal/processor"
	"github.com/phrazzld/scry-materials/internal/redact"
)

// Summary reports one coordinator pass.
type Summary struct {
	VideosFound       int       `json:"videosFound"`
	SuccessfulRetries int       `json:"successfulRetries"`
	PermanentFailures int       `json:"permanentFailures"`
	StillPending      int       `json:"stillPending"`
	Errors            []string  `json:"errors"`
	Breakdown         Breakdown `json:"breakdown"`
}

// Breakdown splits successful retries by strategy and counts the scanned
// videos by their stored error type.
type Breakdown struct {
	ChunkedGeneration int            `json:"chunkedGeneration"`
	StandardRetry     int            `json:"standardRetry"`
	ByErrorType       map[string]int `json:"byErrorType"`
}

// Handled returns how many videos reached a counted outcome. After a
// complete pass it equals VideosFound.
func (s *Summary) Handled() int {
	return s.SuccessfulRetries + s.PermanentFailures + s.StillPending
}

// tally accumulates a Summary from concurrent workers.
type tally struct {
	mu      sync.Mutex
	summary Summary
}

func newTally(found int) *tally {
	return &tally{summary: Summary{
		VideosFound: found,
		Errors:      []string{},
		Breakdown:   Breakdown{ByErrorType: map[string]int{}},
	}}
}

func (t *tally) errorType(kind string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.summary.Breakdown.ByErrorType[kind]++
}

func (t *tally) outcome(o processor.Outcome) {
	t.mu.Lock()
	defer t.mu.Unlock()

	switch o {
	case processor.OutcomeChunkedSuccess:
		t.summary.SuccessfulRetries++
		t.summary.Breakdown.ChunkedGeneration++
	case processor.OutcomeStandardSuccess:
		t.summary.SuccessfulRetries++
		t.summary.Breakdown.StandardRetry++
	case processor.OutcomePermanentFailure:
		t.summary.PermanentFailures++
	default:
		t.summary.StillPending++
	}
}

// pending counts a video that was not processed this pass.
func (t *tally) pending() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.summary.StillPending++
}

// failure records one error entry for the video. The video was left as it
// was, so it is still pending.
func (t *tally) failure(videoID string, err error) {
	entry := fmt.Sprintf("%s: %s", videoID, redact.Message(err))

	t.mu.Lock()
	defer t.mu.Unlock()
	t.summary.Errors = append(t.summary.Errors, entry)
	t.summary.StillPending++
}

func (t *tally) result() *Summary {
	t.mu.Lock()
	defer t.mu.Unlock()

	s := t.summary
	s.Errors = append([]string{}, t.summary.Errors...)
	s.Breakdown.ByErrorType = make(map[string]int, len(t.summary.Breakdown.ByErrorType))
	for k, v := range t.summary.Breakdown.ByErrorType {
		s.Breakdown.ByErrorType[k] = v
	}
	return &s
}
