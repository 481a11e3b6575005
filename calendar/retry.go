package calendar

import (
	"context"
	"time"
)

// =============================================================================
// BOUNDED RETRY - Transient failures only, at the boundary only
// =============================================================================

// retryAttempts bounds how often a transient failure is retried. Retries
// live here at the external boundary, never inside the usage calculator.
const retryAttempts = 3

// retryBackoff is the base delay between attempts; attempt n waits n times
// this long.
var retryBackoff = 200 * time.Millisecond

// withRetry runs call, retrying transient failures a bounded number of
// times. Non-transient failures and context cancellation return at once.
func withRetry(ctx context.Context, call func() error) error {
	var err error
	for attempt := 1; attempt <= retryAttempts; attempt++ {
		err = call()
		if err == nil || !ClassOf(err).Transient() {
			return err
		}
		if attempt == retryAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(attempt) * retryBackoff):
		}
	}
	return err
}
