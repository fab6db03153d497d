package grading

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/t3m8ch/checkrunner/internal/model"
	"github.com/t3m8ch/checkrunner/internal/sandbox"
	"github.com/vmihailenco/msgpack/v5"
)

const (
	submissionDir  = "/app/submission"
	referencesDir  = "/app/references"
	resultPath     = "/app/result.json"
	searchPathRoot = "/search"
)

type SandboxConfig struct {
	Image   string
	Command []string
}

// SandboxEngine grades submissions by running a grader image in a sandbox.
type SandboxEngine struct {
	manager    sandbox.Manager
	cfg        SandboxConfig
	searchPath []string
}

func NewSandboxEngine(manager sandbox.Manager, cfg SandboxConfig) *SandboxEngine {
	return &SandboxEngine{manager: manager, cfg: cfg}
}

func (e *SandboxEngine) Load(path string) (model.Loaded, error) {
	f, err := os.Open(path)
	if err != nil {
		return model.Loaded{}, err
	}
	defer f.Close()

	loaded, err := DecodeReferences(f)
	if err != nil {
		return model.Loaded{}, fmt.Errorf("%s: %w", path, err)
	}
	return loaded, nil
}

func (e *SandboxEngine) PrependSearchPath(dir string) {
	e.searchPath = append([]string{dir}, e.searchPath...)
}

func (e *SandboxEngine) SearchPath() []string {
	return append([]string(nil), e.searchPath...)
}

func (e *SandboxEngine) Capabilities() Capabilities {
	return Capabilities{Timeout: true}
}

func (e *SandboxEngine) NewSubmission(subPath string, additionalFiles []string, opts ...SubmissionOption) (Submission, error) {
	source, err := os.ReadFile(subPath)
	if err != nil {
		return nil, fmt.Errorf("read submission: %w", err)
	}

	// Inputs are flattened into submissionDir, so basenames must be unique.
	targets := map[string]string{sandboxTarget(subPath): subPath}
	files := make([]FileState, 0, len(additionalFiles))
	for _, p := range additionalFiles {
		target := sandboxTarget(p)
		if prev, ok := targets[target]; ok {
			return nil, fmt.Errorf("additional file %s collides with %s at %s", p, prev, target)
		}
		targets[target] = p

		data, err := os.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("read additional file: %w", err)
		}
		files = append(files, FileState{Path: p, Content: data})
	}

	return &sandboxSubmission{
		engine: e,
		opts:   ApplyOptions(opts...),
		state: SubmissionState{
			Path:            subPath,
			Source:          source,
			AdditionalFiles: files,
		},
	}, nil
}

func sandboxTarget(hostPath string) string {
	return path.Join(submissionDir, filepath.Base(hostPath))
}

func (e *SandboxEngine) GenerateReport(result Result) (string, error) {
	res, ok := result.(*CheckResult)
	if !ok {
		return "", fmt.Errorf("unsupported result type %T", result)
	}
	return renderReport(res), nil
}

type FileState struct {
	Path    string `msgpack:"path"`
	Content []byte `msgpack:"content"`
}

// SubmissionState is what Dump persists: the files that were graded and the
// outcome of the last check.
type SubmissionState struct {
	Path            string       `msgpack:"path"`
	Source          []byte       `msgpack:"source"`
	AdditionalFiles []FileState  `msgpack:"additional_files"`
	TimeoutSeconds  int          `msgpack:"timeout_seconds"`
	TimeoutLimited  bool         `msgpack:"timeout_limited"`
	LastResult      *CheckResult `msgpack:"last_result"`
}

type sandboxSubmission struct {
	engine *SandboxEngine
	opts   SubmissionOptions
	state  SubmissionState
}

func (s *sandboxSubmission) spec() sandbox.Spec {
	e := s.engine
	mounts := make([]sandbox.Mount, 0, len(e.searchPath))
	searchDirs := make([]string, 0, len(e.searchPath))
	for i, dir := range e.searchPath {
		target := path.Join(searchPathRoot, strconv.Itoa(i))
		mounts = append(mounts, sandbox.Mount{Source: dir, Target: target})
		searchDirs = append(searchDirs, target)
	}

	timeout := "none"
	if s.opts.HasTimeout && s.opts.Timeout.Limited {
		timeout = strconv.Itoa(s.opts.Timeout.Seconds)
	}

	return sandbox.Spec{
		Image:   e.cfg.Image,
		Cmd:     e.cfg.Command,
		WorkDir: submissionDir,
		Mounts:  mounts,
		Env: []string{
			"SUBMISSION_PATH=" + sandboxTarget(s.state.Path),
			"REFERENCES_DIR=" + referencesDir,
			"RESULT_PATH=" + resultPath,
			"GRADER_SEARCH_PATH=" + strings.Join(searchDirs, ":"),
			"GRADER_TIMEOUT=" + timeout,
		},
	}
}

func (s *sandboxSubmission) Check(ctx context.Context, refs []model.Reference) (Result, error) {
	if s.opts.HasTimeout {
		if d, ok := s.opts.Timeout.Duration(); ok {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, d)
			defer cancel()
		}
	}

	manager := s.engine.manager
	id, err := manager.CreateSandbox(ctx, s.spec())
	if err != nil {
		return nil, fmt.Errorf("create sandbox: %w", err)
	}
	log.Debug().Str("sandbox", id).Msg("Sandbox created")

	defer func() {
		if err := manager.RemoveSandbox(context.WithoutCancel(ctx), id); err != nil {
			log.Warn().Err(err).Str("sandbox", id).Msg("Error removing sandbox")
		}
	}()

	if err := s.copyInputs(ctx, id, refs); err != nil {
		return nil, err
	}

	if err := manager.StartSandbox(ctx, id); err != nil {
		return nil, fmt.Errorf("start sandbox: %w", err)
	}

	status, err := manager.WaitSandbox(ctx, id)
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return nil, fmt.Errorf("submission exceeded timeout of %s", s.opts.Timeout)
	}
	if err != nil {
		return nil, fmt.Errorf("wait sandbox: %w", err)
	}

	if status != 0 {
		logs, logErr := manager.ReadLogsFromSandbox(ctx, id)
		if logErr != nil {
			log.Warn().Err(logErr).Str("sandbox", id).Msg("Error reading sandbox logs")
		}
		return nil, fmt.Errorf("grader exited with code %d: %s", status, strings.TrimSpace(logs))
	}

	data, err := manager.LoadFileFromSandbox(ctx, id, resultPath)
	if err != nil {
		return nil, fmt.Errorf("load result: %w", err)
	}

	var result CheckResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("parse result: %w", err)
	}
	if result.Submission == "" {
		result.Submission = s.state.Path
	}

	s.state.LastResult = &result
	return &result, nil
}

func (s *sandboxSubmission) copyInputs(ctx context.Context, id sandbox.SandboxID, refs []model.Reference) error {
	manager := s.engine.manager

	if err := manager.CopyFileToSandbox(ctx, id, sandboxTarget(s.state.Path), 0644, s.state.Source); err != nil {
		return fmt.Errorf("copy submission: %w", err)
	}

	for _, f := range s.state.AdditionalFiles {
		if err := manager.CopyFileToSandbox(ctx, id, sandboxTarget(f.Path), 0644, f.Content); err != nil {
			return fmt.Errorf("copy additional file %s: %w", f.Path, err)
		}
	}

	for i, ref := range refs {
		sref, ok := ref.(*SandboxReference)
		if !ok {
			return fmt.Errorf("reference %q was not loaded by the sandbox engine", ref.Name())
		}
		var buf bytes.Buffer
		if err := EncodeReference(&buf, sref); err != nil {
			return fmt.Errorf("encode reference %q: %w", sref.Name(), err)
		}
		dst := path.Join(referencesDir, fmt.Sprintf("%03d.ref", i))
		if err := manager.CopyFileToSandbox(ctx, id, dst, 0644, buf.Bytes()); err != nil {
			return fmt.Errorf("copy reference %q: %w", sref.Name(), err)
		}
	}

	return nil
}

func (s *sandboxSubmission) Dump(dst string) error {
	state := s.state
	if s.opts.HasTimeout {
		state.TimeoutSeconds = s.opts.Timeout.Seconds
		state.TimeoutLimited = s.opts.Timeout.Limited
	}

	f, err := os.Create(dst)
	if err != nil {
		return err
	}
	if err := msgpack.NewEncoder(f).Encode(&state); err != nil {
		f.Close()
		return fmt.Errorf("encode submission state: %w", err)
	}
	return f.Close()
}
