package handler

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/t3m8ch/checkrunner/internal/grading"
	"github.com/t3m8ch/checkrunner/internal/model"
)

// GradingFault wraps any failure raised by the engine while building or
// checking a submission.
type GradingFault struct {
	Err error
}

func (e *GradingFault) Error() string {
	return fmt.Sprintf("grading failed: %v", e.Err)
}

func (e *GradingFault) Unwrap() error {
	return e.Err
}

func Grade(
	ctx context.Context,
	engine grading.Engine,
	req model.RunRequest,
	refs []model.Reference,
) (grading.Submission, grading.Result, error) {
	var opts []grading.SubmissionOption
	if engine.Capabilities().Timeout {
		opts = append(opts, grading.WithTimeout(req.Timeout))
	} else {
		log.Debug().Msg("Engine does not accept a timeout, grading without one")
	}

	submission, err := engine.NewSubmission(req.Submission, req.AdditionalFiles, opts...)
	if err != nil {
		return nil, nil, &GradingFault{Err: err}
	}

	log.Info().Str("submission", req.Submission).Stringer("timeout", req.Timeout).Msg("Grading")
	result, err := submission.Check(ctx, refs)
	if err != nil {
		return nil, nil, &GradingFault{Err: err}
	}

	return submission, result, nil
}
