package cli

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/t3m8ch/checkrunner/internal/args"
	"github.com/t3m8ch/checkrunner/internal/config"
	"github.com/t3m8ch/checkrunner/internal/grading"
	"github.com/t3m8ch/checkrunner/internal/logging"
	"github.com/t3m8ch/checkrunner/internal/model"
)

// Deps are the process-level collaborators of the root command.
type Deps struct {
	Stdout    io.Writer
	Stderr    io.Writer
	Getenv    func(string) string
	Getwd     func() (string, error)
	NewEngine func(cfg *config.Config) (grading.Engine, error)
	// TempDir overrides the directory for downloads and artifacts.
	TempDir string
}

func DefaultDeps() Deps {
	return Deps{
		Stdout:    os.Stdout,
		Stderr:    os.Stderr,
		Getenv:    os.Getenv,
		Getwd:     os.Getwd,
		NewEngine: NewSandboxEngine,
	}
}

func NewRootCommand(deps Deps) *cobra.Command {
	var (
		raw     args.Raw
		verbose bool
	)

	cmd := &cobra.Command{
		Use:           "checkrunner",
		Short:         "Grade a submission against reference implementations in CI",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			logging.ConfigureGlobalLogger(verbose, deps.Stderr)
			return run(cmd, deps, raw)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&raw.References, "references", "", "Newline-delimited list of reference paths or URLs")
	flags.StringVar(&raw.Submission, "subm", "", "Path to the submission, relative to GITHUB_WORKSPACE")
	flags.StringVar(&raw.AdditionalFiles, "additional-files", "", "Newline-delimited list of files the submission depends on")
	flags.StringVar(&raw.Timeout, "timeout", "", "Grading timeout in seconds, or 'none' (default 1200)")
	flags.BoolVarP(&verbose, "verbose", "v", false, "Enable debug logs to stderr")
	_ = cmd.MarkFlagRequired("references")
	_ = cmd.MarkFlagRequired("subm")

	cmd.SetOut(deps.Stdout)
	cmd.SetErr(deps.Stderr)
	return cmd
}

func run(cmd *cobra.Command, deps Deps, raw args.Raw) error {
	cwd, err := deps.Getwd()
	if err != nil {
		return fmt.Errorf("failed to get working directory: %w", err)
	}

	normalized, err := args.Normalize(raw, cwd)
	if err != nil {
		return err
	}

	cfg, err := config.Load(deps.Getenv)
	if err != nil {
		return err
	}

	engine, err := deps.NewEngine(cfg)
	if err != nil {
		return fmt.Errorf("failed to create grading engine: %w", err)
	}

	runner, cleanup, err := newRunner(cfg, engine, cwd, deps)
	if err != nil {
		return err
	}
	defer cleanup()

	req := model.RunRequest{
		RunID:           uuid.NewString(),
		Submission:      args.WorkspacePath(cfg.Workspace, normalized.Submission),
		AdditionalFiles: normalized.AdditionalFiles,
		References:      normalized.References,
		Timeout:         normalized.Timeout,
	}
	log.Debug().Str("run", req.RunID).Str("submission", req.Submission).Msg("Run started")

	_, err = runner.HandleRun(cmd.Context(), req)
	return err
}

// ExitCode maps a run error to the process exit status.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var invalid *args.InvalidArgumentError
	if errors.As(err, &invalid) {
		return 2
	}
	return 1
}

func Execute() {
	if err := config.LoadDotEnv(".env"); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	os.Exit(execute(DefaultDeps(), os.Args[1:]))
}

// execute runs the root command and returns the process exit status. The
// console logger is in place before flag parsing so that usage errors are
// reported in the same format as run failures.
func execute(deps Deps, argv []string) int {
	logging.ConfigureGlobalLogger(false, deps.Stderr)

	cmd := NewRootCommand(deps)
	cmd.SetArgs(argv)
	if err := cmd.Execute(); err != nil {
		log.Error().Err(err).Msg("Run failed")
		return ExitCode(err)
	}
	return 0
}
