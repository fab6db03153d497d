package model

// RunRequest is the normalized input of one grading run. All paths are
// absolute.
type RunRequest struct {
	RunID           string
	Submission      string
	AdditionalFiles []string
	References      []string
	Timeout         Timeout
}
