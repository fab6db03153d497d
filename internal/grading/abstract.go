package grading

import (
	"context"

	"github.com/t3m8ch/checkrunner/internal/model"
)

// Result is the outcome of a check. It is opaque to everything but the
// engine that produced it.
type Result any

type Capabilities struct {
	// Timeout reports whether NewSubmission accepts WithTimeout.
	Timeout bool
}

type Engine interface {
	Load(path string) (model.Loaded, error)
	PrependSearchPath(dir string)
	Capabilities() Capabilities
	NewSubmission(path string, additionalFiles []string, opts ...SubmissionOption) (Submission, error)
	GenerateReport(result Result) (string, error)
}

type Submission interface {
	Check(ctx context.Context, refs []model.Reference) (Result, error)
	Dump(path string) error
}

type SubmissionOptions struct {
	Timeout    model.Timeout
	HasTimeout bool
}

type SubmissionOption func(*SubmissionOptions)

func WithTimeout(timeout model.Timeout) SubmissionOption {
	return func(o *SubmissionOptions) {
		o.Timeout = timeout
		o.HasTimeout = true
	}
}

func ApplyOptions(opts ...SubmissionOption) SubmissionOptions {
	var o SubmissionOptions
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
