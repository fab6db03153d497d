package handler

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/t3m8ch/checkrunner/internal/grading"
	"github.com/t3m8ch/checkrunner/internal/model"
	"github.com/t3m8ch/checkrunner/internal/resolver"
)

type Runner struct {
	Engine    grading.Engine
	Resolver  *resolver.Resolver
	Publisher *Publisher
	// Out receives the report text. Logs never go here.
	Out io.Writer
}

// HandleRun resolves the references, grades the submission and publishes
// the results. Any error aborts the run before outputs are emitted.
func (r *Runner) HandleRun(ctx context.Context, req model.RunRequest) ([]model.Artifact, error) {
	r.Resolver.InitSearchPath()

	refs, err := r.Resolver.Resolve(ctx, req.References)
	if err != nil {
		return nil, err
	}
	log.Info().Msgf("Found refs: %s", strings.Join(model.ReferenceNames(refs), ", "))

	submission, result, err := Grade(ctx, r.Engine, req, refs)
	if err != nil {
		return nil, err
	}

	report, err := r.Engine.GenerateReport(result)
	if err != nil {
		return nil, fmt.Errorf("failed to generate report: %w", err)
	}
	if _, err := fmt.Fprintln(r.Out, report); err != nil {
		return nil, err
	}

	return r.Publisher.Publish(ctx, req, refs, submission, result, report)
}
