// Package sandboxtest provides an in-memory sandbox.Manager for tests.
package sandboxtest

import (
	"context"
	"fmt"
	"sync"

	"github.com/t3m8ch/checkrunner/internal/sandbox"
)

type Fake struct {
	mu sync.Mutex

	specs   map[sandbox.SandboxID]sandbox.Spec
	files   map[sandbox.SandboxID]map[string][]byte
	removed []sandbox.SandboxID
	calls   map[string]int
	errs    map[string][]error
	nextID  int

	// Run simulates the sandboxed process. It may write files and returns
	// the exit code.
	Run func(files map[string][]byte) sandbox.StatusCode
	// Hang makes WaitSandbox block until the context is done.
	Hang bool
	Logs string
}

func New() *Fake {
	return &Fake{
		specs: make(map[sandbox.SandboxID]sandbox.Spec),
		files: make(map[sandbox.SandboxID]map[string][]byte),
		calls: make(map[string]int),
		errs:  make(map[string][]error),
	}
}

// FailNext queues errors returned by the next calls of op.
func (f *Fake) FailNext(op string, errs ...error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errs[op] = append(f.errs[op], errs...)
}

func (f *Fake) Calls(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

func (f *Fake) Spec(id sandbox.SandboxID) sandbox.Spec {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.specs[id]
}

func (f *Fake) File(id sandbox.SandboxID, path string) ([]byte, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.files[id][path]
	return data, ok
}

func (f *Fake) Removed() []sandbox.SandboxID {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]sandbox.SandboxID(nil), f.removed...)
}

func (f *Fake) enter(op string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[op]++
	if queued := f.errs[op]; len(queued) > 0 {
		f.errs[op] = queued[1:]
		return queued[0]
	}
	return nil
}

func (f *Fake) CreateSandbox(ctx context.Context, spec sandbox.Spec) (sandbox.SandboxID, error) {
	if err := f.enter("create"); err != nil {
		return "", err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	id := fmt.Sprintf("sandbox-%d", f.nextID)
	f.specs[id] = spec
	f.files[id] = make(map[string][]byte)
	return id, nil
}

func (f *Fake) StartSandbox(ctx context.Context, id sandbox.SandboxID) error {
	return f.enter("start")
}

func (f *Fake) RemoveSandbox(ctx context.Context, id sandbox.SandboxID) error {
	if err := f.enter("remove"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.removed = append(f.removed, id)
	return nil
}

func (f *Fake) CopyFileToSandbox(ctx context.Context, id sandbox.SandboxID, path string, mode int64, data []byte) error {
	if err := f.enter("copy"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	files, ok := f.files[id]
	if !ok {
		return fmt.Errorf("no sandbox %s", id)
	}
	files[path] = append([]byte(nil), data...)
	return nil
}

func (f *Fake) LoadFileFromSandbox(ctx context.Context, id sandbox.SandboxID, path string) ([]byte, error) {
	if err := f.enter("load"); err != nil {
		return nil, err
	}
	data, ok := f.File(id, path)
	if !ok {
		return nil, fmt.Errorf("no file %s in sandbox %s", path, id)
	}
	return data, nil
}

func (f *Fake) WaitSandbox(ctx context.Context, id sandbox.SandboxID) (sandbox.StatusCode, error) {
	if err := f.enter("wait"); err != nil {
		return -1, err
	}
	if f.Hang {
		<-ctx.Done()
		return -1, ctx.Err()
	}
	if f.Run == nil {
		return 0, nil
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Run(f.files[id]), nil
}

func (f *Fake) ReadLogsFromSandbox(ctx context.Context, id sandbox.SandboxID) (string, error) {
	if err := f.enter("logs"); err != nil {
		return "", err
	}
	return f.Logs, nil
}
