package sandbox

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
)

type RetryDecorator struct {
	manager Manager
	retries int
	delay   time.Duration
}

func NewRetryDecorator(manager Manager, retries int, delay time.Duration) Manager {
	if retries < 1 {
		retries = 1
	}
	return &RetryDecorator{
		manager: manager,
		retries: retries,
		delay:   delay,
	}
}

func (d *RetryDecorator) retry(ctx context.Context, op string, fn func() error) error {
	var err error
	for i := 0; i < d.retries; i++ {
		err = fn()
		if err == nil {
			return nil
		}
		if !isRetryable(err) {
			return err
		}
		log.Debug().Err(err).Str("op", op).Int("attempt", i+1).Msg("Sandbox operation failed")
		if i == d.retries-1 {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(d.delay):
		}
	}
	return fmt.Errorf("%s after %d attempts: %w", op, d.retries, err)
}

func isRetryable(err error) bool {
	return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
}

func (d *RetryDecorator) CreateSandbox(ctx context.Context, spec Spec) (SandboxID, error) {
	var id SandboxID
	fn := func() error {
		var err error
		id, err = d.manager.CreateSandbox(ctx, spec)
		return err
	}
	if err := d.retry(ctx, "create sandbox", fn); err != nil {
		return "", err
	}
	return id, nil
}

func (d *RetryDecorator) StartSandbox(ctx context.Context, id SandboxID) error {
	return d.retry(ctx, "start sandbox", func() error {
		return d.manager.StartSandbox(ctx, id)
	})
}

func (d *RetryDecorator) RemoveSandbox(ctx context.Context, id SandboxID) error {
	return d.retry(ctx, "remove sandbox", func() error {
		return d.manager.RemoveSandbox(ctx, id)
	})
}

func (d *RetryDecorator) CopyFileToSandbox(ctx context.Context, id SandboxID, path string, mode int64, data []byte) error {
	return d.retry(ctx, "copy file to sandbox", func() error {
		return d.manager.CopyFileToSandbox(ctx, id, path, mode, data)
	})
}

func (d *RetryDecorator) LoadFileFromSandbox(ctx context.Context, id SandboxID, path string) ([]byte, error) {
	var data []byte
	fn := func() error {
		var err error
		data, err = d.manager.LoadFileFromSandbox(ctx, id, path)
		return err
	}
	if err := d.retry(ctx, "load file from sandbox", fn); err != nil {
		return nil, err
	}
	return data, nil
}

// WaitSandbox is not retried: a second wait on a finished sandbox would mask
// the original failure.
func (d *RetryDecorator) WaitSandbox(ctx context.Context, id SandboxID) (StatusCode, error) {
	return d.manager.WaitSandbox(ctx, id)
}

func (d *RetryDecorator) ReadLogsFromSandbox(ctx context.Context, id SandboxID) (string, error) {
	var logs string
	fn := func() error {
		var err error
		logs, err = d.manager.ReadLogsFromSandbox(ctx, id)
		return err
	}
	if err := d.retry(ctx, "read sandbox logs", fn); err != nil {
		return "", err
	}
	return logs, nil
}
