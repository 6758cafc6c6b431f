package common

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastPolicy() *RetryPolicy {
	return &RetryPolicy{Backoffs: []time.Duration{time.Millisecond, time.Millisecond, time.Millisecond}}
}

func TestRetryExecuteSucceedsAfterTransientFailures(t *testing.T) {
	attempts := 0
	err := fastPolicy().Execute(context.Background(), nil, "test_op", func() error {
		attempts++
		if attempts < 3 {
			return errors.New("database is locked")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
}

func TestRetryExecuteExhaustsTransientFailures(t *testing.T) {
	attempts := 0
	err := fastPolicy().Execute(context.Background(), nil, "test_op", func() error {
		attempts++
		return errors.New("sqlite_busy")
	})
	require.Error(t, err)
	assert.Equal(t, 4, attempts) // 1 initial + 3 retries
	assert.Contains(t, err.Error(), "retries exhausted")
}

func TestRetryExecuteFailsFastOnPermanentError(t *testing.T) {
	attempts := 0
	permanent := errors.New("UNIQUE constraint failed")
	err := fastPolicy().Execute(context.Background(), nil, "test_op", func() error {
		attempts++
		return permanent
	})
	assert.ErrorIs(t, err, permanent)
	assert.Equal(t, 1, attempts)
}

func TestRetryExecuteHonorsCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := fastPolicy().Execute(ctx, nil, "test_op", func() error {
		t.Fatal("operation must not run after cancellation")
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"sqlite lock", errors.New("database is locked (5) (SQLITE_BUSY)"), true},
		{"wrapped lock", fmt.Errorf("claim: %w", errors.New("database table is locked")), true},
		{"connection reset", errors.New("read tcp: connection reset by peer"), true},
		{"timeout text", errors.New("i/o timeout"), true},
		{"constraint violation", errors.New("UNIQUE constraint failed: works.frbr_uri"), false},
		{"plain failure", errors.New("no pdf link found"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsTransient(tt.err))
		})
	}
}
