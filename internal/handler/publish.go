package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"
	"github.com/t3m8ch/checkrunner/internal/eventsctl"
	"github.com/t3m8ch/checkrunner/internal/filesctl"
	"github.com/t3m8ch/checkrunner/internal/grading"
	"github.com/t3m8ch/checkrunner/internal/model"
	"github.com/vmihailenco/msgpack/v5"
)

// Publisher writes the artifacts of a finished check and announces their
// paths as CI outputs.
type Publisher struct {
	out     io.Writer
	tempDir string

	files  filesctl.Manager
	bucket string
	events eventsctl.Publisher
}

type PublisherOption func(*Publisher)

func WithTempDir(dir string) PublisherOption {
	return func(p *Publisher) {
		p.tempDir = dir
	}
}

// WithArtifactMirror uploads every artifact to bucket after it is written.
func WithArtifactMirror(files filesctl.Manager, bucket string) PublisherOption {
	return func(p *Publisher) {
		p.files = files
		p.bucket = bucket
	}
}

func WithEvents(events eventsctl.Publisher) PublisherOption {
	return func(p *Publisher) {
		p.events = events
	}
}

func NewPublisher(out io.Writer, opts ...PublisherOption) *Publisher {
	p := &Publisher{out: out}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Publisher) Publish(
	ctx context.Context,
	req model.RunRequest,
	refs []model.Reference,
	submission grading.Submission,
	result grading.Result,
	report string,
) ([]model.Artifact, error) {
	reportPath, err := p.writeTemp(reportPattern, func(f *os.File) error {
		_, err := io.WriteString(f, report)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to write report: %w", err)
	}

	resultPath, err := p.writeTemp(resultPattern, func(f *os.File) error {
		return msgpack.NewEncoder(f).Encode(result)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to serialize result: %w", err)
	}

	submissionPath, err := p.writeTemp(submissionPattern, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create submission state file: %w", err)
	}
	if err := submission.Dump(submissionPath); err != nil {
		return nil, fmt.Errorf("failed to dump submission: %w", err)
	}

	artifacts := []model.Artifact{
		{Kind: model.ReportArtifact, Path: reportPath},
		{Kind: model.ResultsArtifact, Path: resultPath},
		{Kind: model.StudentImplementationArtifact, Path: submissionPath},
	}

	for _, artifact := range artifacts {
		if _, err := fmt.Fprintf(p.out, "%s%s::%s\n", outputMarker, artifact.Kind, artifact.Path); err != nil {
			return nil, fmt.Errorf("failed to emit output %s: %w", artifact.Kind, err)
		}
	}

	p.mirror(ctx, req, artifacts)
	p.announce(ctx, req, refs, artifacts)

	return artifacts, nil
}

// writeTemp creates a uniquely named file in the temp dir and fills it with
// write, which may be nil to leave it empty.
func (p *Publisher) writeTemp(pattern string, write func(f *os.File) error) (string, error) {
	f, err := os.CreateTemp(p.tempDir, pattern)
	if err != nil {
		return "", err
	}
	if write != nil {
		if err := write(f); err != nil {
			f.Close()
			return "", err
		}
	}
	if err := f.Close(); err != nil {
		return "", err
	}
	return f.Name(), nil
}

func (p *Publisher) mirror(ctx context.Context, req model.RunRequest, artifacts []model.Artifact) {
	if p.files == nil || p.bucket == "" {
		return
	}
	for _, artifact := range artifacts {
		name := fmt.Sprintf("%s/%s%s", req.RunID, artifact.Kind, filepath.Ext(artifact.Path))
		if err := p.upload(ctx, name, artifact.Path); err != nil {
			log.Warn().Err(err).Str("artifact", artifact.Kind).Msg("Error mirroring artifact")
			continue
		}
		log.Debug().Str("bucket", p.bucket).Str("object", name).Msg("Artifact mirrored")
	}
}

func (p *Publisher) upload(ctx context.Context, name, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	stat, err := f.Stat()
	if err != nil {
		return err
	}
	return p.files.PutFile(ctx, p.bucket, name, f, stat.Size())
}

func (p *Publisher) announce(ctx context.Context, req model.RunRequest, refs []model.Reference, artifacts []model.Artifact) {
	if p.events == nil {
		return
	}
	payload, err := json.Marshal(model.CompletedCheckEvent{
		RunID:      req.RunID,
		Submission: req.Submission,
		References: model.ReferenceNames(refs),
		Artifacts:  artifacts,
	})
	if err != nil {
		log.Warn().Err(err).Msg("Error marshaling completion event")
		return
	}
	if err := p.events.Publish(ctx, eventsctl.CompletedChecksChannel, payload); err != nil {
		log.Warn().Err(err).Msg("Error publishing completion event")
	}
}
