package s3

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
)

func apiError(code string) error {
	return &smithy.GenericAPIError{Code: code, Message: code}
}

func TestIsRetryableError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"context canceled", context.Canceled, false},
		{"context deadline", context.DeadlineExceeded, false},
		{"wrapped context canceled", fmt.Errorf("op: %w", context.Canceled), false},
		{"throttling", apiError("Throttling"), true},
		{"slow down", apiError("SlowDown"), true},
		{"request throttled", apiError("RequestThrottled"), true},
		{"internal error", apiError("InternalError"), true},
		{"service unavailable", apiError("ServiceUnavailable"), true},
		{"no such key", apiError("NoSuchKey"), false},
		{"access denied", apiError("AccessDenied"), false},
		{"invalid range", apiError("InvalidRange"), false},
		{"connection reset message", errors.New("read tcp: connection reset by peer"), true},
		{"connection refused message", errors.New("dial tcp: connection refused"), true},
		{"io timeout message", errors.New("read tcp: i/o timeout"), true},
		{"status 503 message", errors.New("http status 503"), true},
		{"plain error", errors.New("something else"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isRetryableError(tt.err); got != tt.want {
				t.Errorf("isRetryableError(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestIsNotFoundError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"typed NoSuchKey", &types.NoSuchKey{}, true},
		{"typed NotFound", &types.NotFound{}, true},
		{"wrapped typed NoSuchKey", fmt.Errorf("get: %w", &types.NoSuchKey{}), true},
		{"code NoSuchKey", apiError("NoSuchKey"), true},
		{"code NotFound", apiError("NotFound"), true},
		{"code 404", apiError("404"), true},
		{"status code message", errors.New("operation error S3: HeadObject, https response error StatusCode: 404"), true},
		{"access denied", apiError("AccessDenied"), false},
		{"plain error", errors.New("boom"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isNotFoundError(tt.err); got != tt.want {
				t.Errorf("isNotFoundError(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestIsInvalidRangeError(t *testing.T) {
	if !isInvalidRangeError(apiError("InvalidRange")) {
		t.Error("InvalidRange API error not detected")
	}
	if !isInvalidRangeError(errors.New("api error InvalidRange: requested range not satisfiable")) {
		t.Error("InvalidRange message not detected")
	}
	if isInvalidRangeError(apiError("NoSuchKey")) {
		t.Error("NoSuchKey misclassified as invalid range")
	}
	if isInvalidRangeError(nil) {
		t.Error("nil misclassified as invalid range")
	}
}

func TestCalculateBackoff(t *testing.T) {
	s := &S3Store{
		retry: retryConfig{
			maxRetries:        3,
			initialBackoff:    100 * time.Millisecond,
			maxBackoff:        2 * time.Second,
			backoffMultiplier: 2.0,
		},
	}

	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{0, 100 * time.Millisecond},
		{1, 200 * time.Millisecond},
		{2, 400 * time.Millisecond},
		{3, 800 * time.Millisecond},
		{4, 1600 * time.Millisecond},
		{5, 2 * time.Second}, // capped
		{10, 2 * time.Second},
	}

	for _, tt := range tests {
		if got := s.calculateBackoff(tt.attempt); got != tt.want {
			t.Errorf("calculateBackoff(%d) = %v, want %v", tt.attempt, got, tt.want)
		}
	}
}
