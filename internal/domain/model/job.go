package model

import "time"

type JobState string

const (
	JobStateIdle       JobState = "idle"
	JobStateSubmitting JobState = "submitting"
	JobStateProcessing JobState = "processing"
	JobStateSuccess    JobState = "success"
	JobStateFailure    JobState = "failure"
)

// Terminal reports whether no further polling may occur for this state.
func (s JobState) Terminal() bool {
	return s == JobStateSuccess || s == JobStateFailure
}

// Active reports whether a new submission must be rejected.
func (s JobState) Active() bool {
	return s == JobStateSubmitting || s == JobStateProcessing
}

// ExtractionResult is the payload the backend returns for a finished
// extraction run: presigned frame URLs plus the detection count.
type ExtractionResult struct {
	Count     int      `json:"count"`
	FrameURLs []string `json:"result"`
}

// Job is the single extraction/detection task the tracker observes.
// TaskID is assigned by the backend and empty before submission.
type Job struct {
	TaskID       string
	State        JobState
	Progress     int
	StatusText   string
	Result       *ExtractionResult
	ErrorMessage string
	SubmittedAt  time.Time
}
