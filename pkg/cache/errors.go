package cache

import (
	"context"
	"errors"
	"time"
)

// ErrUnavailable marks backend failures such as refused connections or
// timeouts. Such errors are retried by remote backends.
var ErrUnavailable = errors.New("cache backend unavailable")

// RetryableError wraps an error to indicate it should trigger a retry.
type RetryableError struct{ Err error }

// Retryable wraps err as a RetryableError. Retryable(nil) is nil.
func Retryable(err error) error {
	if err == nil {
		return nil
	}
	return &RetryableError{Err: err}
}

func (e *RetryableError) Error() string { return e.Err.Error() }

func (e *RetryableError) Unwrap() error { return e.Err }

// IsRetryable reports whether err was wrapped with [Retryable].
func IsRetryable(err error) bool {
	var re *RetryableError
	return errors.As(err, &re)
}

const retryAttempts = 3

var retryBaseDelay = 100 * time.Millisecond

// RetryWithBackoff calls fn up to three times, doubling the delay between
// attempts. Only errors wrapped with [Retryable] are retried.
func RetryWithBackoff(ctx context.Context, fn func() error) error {
	delay := retryBaseDelay
	var lastErr error

	for i := 0; i < retryAttempts; i++ {
		if err := fn(); err == nil {
			return nil
		} else if lastErr = err; !IsRetryable(err) {
			return err
		}

		if i < retryAttempts-1 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
				delay *= 2
			}
		}
	}
	return lastErr
}
