// Package s3 implements object storage backed by Amazon S3 or any
// S3-compatible service (MinIO, Localstack).
//
// This file contains error classification and backoff helpers used by all
// S3 operations.
package s3

import (
	"context"
	"errors"
	"net"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
)

// API error codes worth retrying: throttling and server-side 5xx.
var retryableCodes = map[string]bool{
	"Throttling":                             true,
	"ThrottlingException":                    true,
	"RequestThrottled":                       true,
	"SlowDown":                               true,
	"ProvisionedThroughputExceededException": true,
	"InternalError":                          true,
	"ServiceUnavailable":                     true,
	"ServiceException":                       true,
	"InternalServiceException":               true,
}

// Codes that describe the request itself; retrying cannot help.
var terminalCodes = map[string]bool{
	"NoSuchKey":      true,
	"NotFound":       true,
	"AccessDenied":   true,
	"Forbidden":      true,
	"InvalidRange":   true,
	"InvalidRequest": true,
}

// transientMessages catches transport failures that surface as plain
// strings rather than typed errors.
var transientMessages = []string{
	"connection reset",
	"connection refused",
	"i/o timeout",
	"temporary failure",
	"503",
	"500",
}

// isRetryableError decides whether an operation should go around the
// retry loop again.
func isRetryableError(err error) bool {
	if err == nil {
		return false
	}

	// A cancelled or expired context means the caller gave up.
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return netErr.Timeout()
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		code := apiErr.ErrorCode()
		if retryableCodes[code] {
			return true
		}
		if terminalCodes[code] {
			return false
		}
	}

	msg := err.Error()
	for _, pattern := range transientMessages {
		if strings.Contains(msg, pattern) {
			return true
		}
	}
	return false
}

// isNotFoundError reports whether the object does not exist.
func isNotFoundError(err error) bool {
	if err == nil {
		return false
	}

	var noSuchKey *types.NoSuchKey
	var notFound *types.NotFound
	if errors.As(err, &noSuchKey) || errors.As(err, &notFound) {
		return true
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NotFound", "404":
			return true
		}
	}

	// Some S3-compatible servers only put the status in the message.
	msg := err.Error()
	return strings.Contains(msg, "StatusCode: 404") ||
		strings.Contains(msg, "NotFound") ||
		strings.Contains(msg, "NoSuchKey")
}

// isInvalidRangeError reports a byte-range request past the end of the
// object, which Append treats as "nothing more to read".
func isInvalidRangeError(err error) bool {
	if err == nil {
		return false
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return apiErr.ErrorCode() == "InvalidRange"
	}
	return strings.Contains(err.Error(), "InvalidRange")
}

// calculateBackoff grows the delay geometrically per attempt, capped at
// the configured maximum.
func (s *S3Store) calculateBackoff(attempt int) time.Duration {
	backoff := float64(s.retry.initialBackoff)
	for i := 0; i < attempt; i++ {
		backoff *= s.retry.backoffMultiplier
	}
	return time.Duration(min(backoff, float64(s.retry.maxBackoff)))
}
