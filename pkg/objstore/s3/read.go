// Package s3 implements object storage backed by Amazon S3 or any
// S3-compatible service (MinIO, Localstack).
//
// This file contains read operations: range reads and existence checks.
package s3

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/rosterhq/roster/pkg/objstore"
)

// GetRange returns a reader over the byte range [start, end] of an object,
// end inclusive.
//
// A negative end reads from start to the end of the object, which is how the
// header sniffer requests "the first 64KiB or the whole file, whichever is
// smaller" without knowing the object size. A start at or beyond the end of
// the object yields an empty reader, not an error.
//
// Transient errors are retried with backoff; not found maps to
// objstore.ErrNotFound. The caller must close the returned ReadCloser.
func (s *S3Store) GetRange(ctx context.Context, key string, start, end int64) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if start < 0 {
		return nil, fmt.Errorf("invalid range start %d for object %s", start, key)
	}

	// Degenerate range: nothing to read
	if end >= 0 && end < start {
		return io.NopCloser(bytes.NewReader(nil)), nil
	}

	// S3 ranges are inclusive on both ends, matching ours directly.
	// An open-ended read is "bytes=start-".
	rangeStr := fmt.Sprintf("bytes=%d-", start)
	if end >= 0 {
		rangeStr = fmt.Sprintf("bytes=%d-%d", start, end)
	}

	var result *s3.GetObjectOutput
	err := s.withRetry(ctx, "get object range", s.objectKey(key), func() error {
		var err error
		result, err = s.client.GetObject(ctx, &s3.GetObjectInput{
			Bucket: aws.String(s.bucket),
			Key:    aws.String(s.objectKey(key)),
			Range:  aws.String(rangeStr),
		})
		return err
	})
	if err != nil {
		if isNotFoundError(err) {
			return nil, fmt.Errorf("object %s: %w", key, objstore.ErrNotFound)
		}
		// S3 rejects ranges starting at or past the object end; callers
		// treat that as a clean EOF.
		if isInvalidRangeError(err) {
			return io.NopCloser(bytes.NewReader(nil)), nil
		}
		return nil, err
	}

	return result.Body, nil
}

// Exists checks whether an object is present without downloading it.
// Not found returns (false, nil), not an error.
func (s *S3Store) Exists(ctx context.Context, key string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	err := s.withRetry(ctx, "check object existence", s.objectKey(key), func() error {
		_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
			Bucket: aws.String(s.bucket),
			Key:    aws.String(s.objectKey(key)),
		})
		return err
	})
	if err != nil {
		if isNotFoundError(err) {
			return false, nil
		}
		return false, err
	}

	return true, nil
}
