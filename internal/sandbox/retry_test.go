package sandbox_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/t3m8ch/checkrunner/internal/sandbox"
	"github.com/t3m8ch/checkrunner/internal/sandbox/sandboxtest"
)

func TestRetryDecorator_RecoversFromTransientErrors(t *testing.T) {
	t.Parallel()

	fake := sandboxtest.New()
	fake.FailNext("create", errors.New("daemon busy"), errors.New("daemon busy"))
	manager := sandbox.NewRetryDecorator(fake, 3, time.Millisecond)

	id, err := manager.CreateSandbox(context.Background(), sandbox.Spec{Image: "python:3.12-slim"})
	require.NoError(t, err)
	require.NotEmpty(t, id)
	require.Equal(t, 3, fake.Calls("create"))
}

func TestRetryDecorator_GivesUpAfterRetries(t *testing.T) {
	t.Parallel()

	fake := sandboxtest.New()
	boom := errors.New("boom")
	fake.FailNext("start", boom, boom, boom)
	manager := sandbox.NewRetryDecorator(fake, 2, time.Millisecond)

	err := manager.StartSandbox(context.Background(), "x")
	require.ErrorIs(t, err, boom)
	require.Contains(t, err.Error(), "after 2 attempts")
	require.Equal(t, 2, fake.Calls("start"))
}

func TestRetryDecorator_DoesNotRetryCancellation(t *testing.T) {
	t.Parallel()

	fake := sandboxtest.New()
	fake.FailNext("copy", context.Canceled)
	manager := sandbox.NewRetryDecorator(fake, 5, time.Millisecond)

	err := manager.CopyFileToSandbox(context.Background(), "x", "/app/a", 0644, nil)
	require.ErrorIs(t, err, context.Canceled)
	require.Equal(t, 1, fake.Calls("copy"))
}

func TestRetryDecorator_StopsWhenContextDone(t *testing.T) {
	t.Parallel()

	fake := sandboxtest.New()
	fake.FailNext("remove", errors.New("busy"), errors.New("busy"))
	manager := sandbox.NewRetryDecorator(fake, 3, time.Hour)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	err := manager.RemoveSandbox(ctx, "x")
	require.ErrorIs(t, err, context.DeadlineExceeded)
	require.Equal(t, 1, fake.Calls("remove"))
}
