package sandbox

import (
	"context"
)

type SandboxID = string
type StatusCode = int64

type Mount struct {
	Source string
	Target string
}

type Spec struct {
	Image   string
	Cmd     []string
	Env     []string
	WorkDir string
	// Mounts are bound read-only.
	Mounts []Mount
}

type Manager interface {
	CreateSandbox(ctx context.Context, spec Spec) (SandboxID, error)
	StartSandbox(ctx context.Context, id SandboxID) error
	RemoveSandbox(ctx context.Context, id SandboxID) error
	CopyFileToSandbox(ctx context.Context, id SandboxID, path string, mode int64, data []byte) error
	LoadFileFromSandbox(ctx context.Context, id SandboxID, path string) ([]byte, error)
	WaitSandbox(ctx context.Context, id SandboxID) (StatusCode, error)
	ReadLogsFromSandbox(ctx context.Context, id SandboxID) (string, error)
}
