package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExecuteSucceedsAfterTransientFailures(t *testing.T) {
	executor := NewExecutor(NewPolicy(
		WithInitialInterval(time.Millisecond),
		WithMaxAttempts(5),
	))

	calls := 0
	err := executor.Execute(context.Background(), func() error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestExecuteExhaustsAttempts(t *testing.T) {
	executor := NewExecutor(NewPolicy(
		WithInitialInterval(time.Millisecond),
		WithMaxAttempts(3),
	))

	calls := 0
	err := executor.Execute(context.Background(), func() error {
		calls++
		return errors.New("persistent")
	})

	require.Error(t, err)
	assert.Equal(t, 3, calls)
}

func TestExecuteStopsOnCancel(t *testing.T) {
	executor := NewExecutor(NewPolicy(
		WithInitialInterval(50 * time.Millisecond),
		WithMaxAttempts(10),
	))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := executor.Execute(ctx, func() error {
		return errors.New("never succeeds")
	})

	require.Error(t, err)
}
