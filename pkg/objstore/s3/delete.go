// Package s3 implements object storage backed by Amazon S3 or any
// S3-compatible service (MinIO, Localstack).
//
// This file contains delete operations.
package s3

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// Delete removes an object. Deleting a missing object is not an error,
// so Delete is safe to call twice.
func (s *S3Store) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	err := s.withRetry(ctx, "delete object", s.objectKey(key), func() error {
		_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
			Bucket: aws.String(s.bucket),
			Key:    aws.String(s.objectKey(key)),
		})
		return err
	})
	if err != nil && !isNotFoundError(err) {
		return err
	}
	return nil
}
