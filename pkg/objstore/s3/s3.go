// Package s3 implements object storage backed by Amazon S3 or any
// S3-compatible service (MinIO, Localstack).
//
// This file contains the main types, configuration and constructor for the
// S3 object store.
package s3

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/rosterhq/roster/pkg/objstore"
)

// S3Store implements objstore.Store using Amazon S3 or S3-compatible storage.
//
// Key Design:
//   - Object keys are used verbatim (with an optional prefix), so the bucket
//     mirrors the upload layout: "uploads/{userId}/{stamp}_{filename}".
//   - Keys are human-readable and can be inspected with any S3 browser.
//
// S3 Characteristics:
//   - Range reads map directly onto HTTP Range requests.
//   - S3 has no native append; Append is emulated with a read-concat-put
//     cycle guarded by a per-key lock (see write.go).
//
// Thread Safety:
// Safe for concurrent use. Concurrent Append calls on the same key are
// serialized; concurrent Put calls on the same key are last-write-wins.
type S3Store struct {
	client    *s3.Client
	bucket    string
	keyPrefix string

	// Retry configuration for transient errors
	retry retryConfig

	// Per-key locks serializing Append's read-concat-put cycle
	appendLocks sync.Map // string -> *sync.Mutex
}

// retryConfig holds the effective retry settings for S3 operations.
type retryConfig struct {
	maxRetries        uint
	initialBackoff    time.Duration
	maxBackoff        time.Duration
	backoffMultiplier float64
}

// Config contains configuration for the S3 object store.
type Config struct {
	// Client is the configured S3 client
	Client *s3.Client

	// Bucket is the S3 bucket name. The bucket must already exist.
	Bucket string

	// KeyPrefix is an optional prefix for all object keys.
	// Example: "roster/" results in keys like "roster/uploads/u1/file.csv"
	KeyPrefix string

	// MaxRetries caps retry attempts for transient errors; 3 when unset
	MaxRetries uint

	// InitialBackoff is the wait before the first retry; 100ms when
	// unset. Each further retry multiplies it.
	InitialBackoff time.Duration

	// MaxBackoff caps the wait between retries; 2s when unset
	MaxBackoff time.Duration

	// BackoffMultiplier grows the backoff each retry; 2.0 when unset
	BackoffMultiplier float64
}

// retrySettings fills in the documented defaults.
func (c Config) retrySettings() retryConfig {
	rc := retryConfig{
		maxRetries:        c.MaxRetries,
		initialBackoff:    c.InitialBackoff,
		maxBackoff:        c.MaxBackoff,
		backoffMultiplier: c.BackoffMultiplier,
	}
	if rc.maxRetries == 0 {
		rc.maxRetries = 3
	}
	if rc.initialBackoff == 0 {
		rc.initialBackoff = 100 * time.Millisecond
	}
	if rc.maxBackoff == 0 {
		rc.maxBackoff = 2 * time.Second
	}
	if rc.backoffMultiplier == 0 {
		rc.backoffMultiplier = 2.0
	}
	return rc
}

// NewS3ClientFromConfig creates an S3 client from configuration parameters.
// This is a helper function for creating S3 clients from YAML configuration.
func NewS3ClientFromConfig(
	ctx context.Context,
	endpoint,
	region,
	accessKeyID,
	secretAccessKey string,
	forcePathStyle bool,
) (*s3.Client, error) {
	var opts []func(*awsconfig.LoadOptions) error
	opts = append(opts, awsconfig.WithRegion(region))

	// Static credentials when provided; otherwise fall back to the
	// default AWS credential chain (env vars, shared config, IAM role).
	if accessKeyID != "" || secretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(accessKeyID, secretAccessKey, ""),
		))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if endpoint != "" {
			o.BaseEndpoint = &endpoint
		}
		o.UsePathStyle = forcePathStyle
	})

	return client, nil
}

// New creates a new S3-backed object store.
//
// This verifies bucket access with a HeadBucket call. The bucket must
// already exist - this function does not create it.
func New(ctx context.Context, cfg Config) (*S3Store, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if cfg.Client == nil {
		return nil, fmt.Errorf("S3 client is required")
	}
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("bucket name is required")
	}

	_, err := cfg.Client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(cfg.Bucket),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to access bucket %q: %w", cfg.Bucket, err)
	}

	return &S3Store{
		client:    cfg.Client,
		bucket:    cfg.Bucket,
		keyPrefix: cfg.KeyPrefix,
		retry:     cfg.retrySettings(),
	}, nil
}

// objectKey returns the full S3 object key for a storage key.
func (s *S3Store) objectKey(key string) string {
	if s.keyPrefix != "" {
		return s.keyPrefix + key
	}
	return key
}

// keyLock returns the mutex serializing Append operations for a key.
func (s *S3Store) keyLock(key string) *sync.Mutex {
	lock, _ := s.appendLocks.LoadOrStore(key, &sync.Mutex{})
	return lock.(*sync.Mutex)
}

// Compile-time interface check
var _ objstore.Store = (*S3Store)(nil)
