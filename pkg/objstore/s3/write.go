// Package s3 implements object storage backed by Amazon S3 or any
// S3-compatible service (MinIO, Localstack).
//
// This file contains write operations: full-object puts and emulated appends.
package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/rosterhq/roster/pkg/objstore"
)

// Put stores an object, replacing any existing object under the key.
//
// The reader is fully buffered before upload so transient failures can
// re-send the body. Uploads here are bounded by the chunk size of the
// upload API, so buffering is cheap.
//
// Retry Behavior:
// Transient errors (network issues, throttling, 5xx errors) are retried
// with exponential backoff.
func (s *S3Store) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("failed to read object body: %w", err)
	}

	if size >= 0 && int64(len(data)) != size {
		return fmt.Errorf("object %s: body is %d bytes, expected %d", key, len(data), size)
	}

	return s.putBytes(ctx, s.objectKey(key), data, contentType)
}

// Append adds a chunk to the end of an object, creating it when missing,
// and returns the new total size.
//
// S3 has no native append, so this reads the existing object, concatenates
// the chunk and re-uploads. A per-key lock serializes the read-concat-put
// cycle: without it, concurrent appends to the same key would each read the
// same initial state and the last upload would win, losing chunks. The
// chunked upload API sends chunks for one key sequentially, so the lock is
// uncontended in practice.
func (s *S3Store) Append(ctx context.Context, key string, chunk []byte) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	lock := s.keyLock(key)
	lock.Lock()
	defer lock.Unlock()

	objKey := s.objectKey(key)

	existing, err := s.readAll(ctx, key)
	if err != nil {
		if !errors.Is(err, objstore.ErrNotFound) {
			return 0, fmt.Errorf("failed to read existing object for append: %w", err)
		}
		existing = nil
	}

	data := make([]byte, 0, len(existing)+len(chunk))
	data = append(data, existing...)
	data = append(data, chunk...)

	if err := s.putBytes(ctx, objKey, data, ""); err != nil {
		return 0, err
	}

	return int64(len(data)), nil
}

// readAll downloads the complete object. Missing objects map to
// objstore.ErrNotFound.
func (s *S3Store) readAll(ctx context.Context, key string) ([]byte, error) {
	rc, err := s.GetRange(ctx, key, 0, -1)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rc.Close() }()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("failed to read object %s: %w", key, err)
	}
	return data, nil
}

// putBytes uploads an object to S3 through the shared retry loop.
func (s *S3Store) putBytes(ctx context.Context, objKey string, data []byte, contentType string) error {
	return s.withRetry(ctx, "put object to S3", objKey, func() error {
		input := &s3.PutObjectInput{
			Bucket: aws.String(s.bucket),
			Key:    aws.String(objKey),
			Body:   bytes.NewReader(data),
		}
		if contentType != "" {
			input.ContentType = aws.String(contentType)
		}
		_, err := s.client.PutObject(ctx, input)
		return err
	})
}
