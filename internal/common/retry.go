package common

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/ternarybob/arbor"
)

// RetryPolicy defines retry behavior for transient store and network
// failures. Backoffs holds the wait before each re-attempt, so the total
// number of attempts is len(Backoffs)+1.
type RetryPolicy struct {
	Backoffs []time.Duration
}

// NewStoreRetryPolicy returns the policy used for database writes:
// three attempts with 1s and 3s waits, then a final 7s wait.
func NewStoreRetryPolicy() *RetryPolicy {
	return &RetryPolicy{
		Backoffs: []time.Duration{1 * time.Second, 3 * time.Second, 7 * time.Second},
	}
}

// Execute runs operation, retrying on transient errors per the policy.
// Non-transient errors fail immediately.
func (p *RetryPolicy) Execute(ctx context.Context, logger arbor.ILogger, name string, operation func() error) error {
	var lastErr error

	for attempt := 0; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		lastErr = operation()
		if lastErr == nil {
			return nil
		}
		if !IsTransient(lastErr) {
			return lastErr
		}
		if attempt >= len(p.Backoffs) {
			break
		}

		wait := p.Backoffs[attempt]
		if logger != nil {
			logger.Warn().
				Str("operation", name).
				Int("attempt", attempt+1).
				Str("backoff", wait.String()).
				Err(lastErr).
				Msg("Transient failure, retrying")
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}

	return fmt.Errorf("%s: retries exhausted: %w", name, lastErr)
}

// IsTransient reports whether an error is worth retrying: lock
// contention in SQLite, timeouts, or network-level failures.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, marker := range []string{
		"database is locked",
		"database table is locked",
		"sqlite_busy",
		"connection reset",
		"connection refused",
		"timeout",
		"temporary failure",
	} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
