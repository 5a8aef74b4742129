package config

import (
	"context"
	"fmt"

	"github.com/rosterhq/roster/pkg/objstore"
	objfs "github.com/rosterhq/roster/pkg/objstore/fs"
	objmemory "github.com/rosterhq/roster/pkg/objstore/memory"
	objs3 "github.com/rosterhq/roster/pkg/objstore/s3"
	"github.com/rosterhq/roster/pkg/queue"
	queuebadger "github.com/rosterhq/roster/pkg/queue/badger"
	"github.com/rosterhq/roster/pkg/upload"
	uploadbadger "github.com/rosterhq/roster/pkg/upload/badger"
)

// CreateObjectStore creates an object store instance from configuration.
//
// The backend decides which sub-section of the configuration is used:
//   - "s3": an S3/MinIO bucket (cfg.S3; bucket must exist)
//   - "fs": a local directory (cfg.FS; created if missing)
//   - "memory": non-persistent, for tests and throwaway environments
func CreateObjectStore(ctx context.Context, cfg objstore.Config) (objstore.Store, error) {
	switch cfg.Backend {
	case objstore.BackendS3:
		client, err := objs3.NewS3ClientFromConfig(
			ctx,
			cfg.S3.Endpoint,
			cfg.S3.Region,
			cfg.S3.AccessKeyID,
			cfg.S3.SecretAccessKey,
			cfg.S3.ForcePathStyle,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to create S3 client: %w", err)
		}
		return objs3.New(ctx, objs3.Config{
			Client:         client,
			Bucket:         cfg.S3.Bucket,
			KeyPrefix:      cfg.S3.Prefix,
			MaxRetries:     cfg.S3.MaxRetries,
			InitialBackoff: cfg.S3.InitialBackoff,
			MaxBackoff:     cfg.S3.MaxBackoff,
		})

	case objstore.BackendFS:
		return objfs.New(objfs.DefaultConfig(cfg.FS.Path))

	case objstore.BackendMemory:
		return objmemory.New(), nil

	default:
		return nil, fmt.Errorf("unknown storage backend: %q", cfg.Backend)
	}
}

// CreateQueue creates the durable job queue from configuration.
func CreateQueue(ctx context.Context, cfg queue.Config) (queue.Queue, error) {
	q, err := queuebadger.New(ctx, queuebadger.Config{Path: cfg.Path})
	if err != nil {
		return nil, fmt.Errorf("failed to open job queue: %w", err)
	}
	return q, nil
}

// CreateManifestStore creates the persistent upload manifest store from
// configuration. Manifests track per-upload chunk progress so interrupted
// uploads can resume after a restart.
func CreateManifestStore(ctx context.Context, cfg UploadConfig) (upload.ManifestStore, error) {
	manifests, err := uploadbadger.New(ctx, uploadbadger.Config{Path: cfg.ManifestPath})
	if err != nil {
		return nil, fmt.Errorf("failed to open upload manifest store: %w", err)
	}
	return manifests, nil
}
