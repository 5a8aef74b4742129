// Package s3 implements object storage backed by Amazon S3 or any
// S3-compatible service (MinIO, Localstack).
//
// This file contains the shared retry loop wrapping every S3 call.
package s3

import (
	"context"
	"fmt"
	"time"

	"github.com/rosterhq/roster/internal/logger"
)

// withRetry runs fn up to maxRetries+1 times with exponential backoff
// between attempts.
//
// Only errors that isRetryableError classifies as transient go around the
// loop again; everything else breaks out immediately. The returned error
// wraps the last attempt's error, so callers can still classify it with
// isNotFoundError or isInvalidRangeError after the loop. op names the
// operation for log lines and the final error message.
func (s *S3Store) withRetry(ctx context.Context, op, objKey string, fn func() error) error {
	var lastErr error

	for attempt := 0; attempt <= int(s.retry.maxRetries); attempt++ {
		if attempt > 0 {
			backoff := s.calculateBackoff(attempt - 1)
			logger.Debug("retrying S3 operation",
				"op", op, "key", objKey,
				"attempt", attempt, "max_retries", s.retry.maxRetries,
				"backoff", backoff)

			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
		}

		lastErr = fn()
		if lastErr == nil {
			return nil
		}

		if !isRetryableError(lastErr) {
			break
		}

		logger.Debug("transient S3 error",
			"op", op, "key", objKey,
			"attempt", attempt+1, "error", lastErr)
	}

	return fmt.Errorf("failed to %s after %d attempts: %w", op, s.retry.maxRetries+1, lastErr)
}
