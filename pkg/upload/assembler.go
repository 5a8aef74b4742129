package upload

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/rosterhq/roster/internal/logger"
	"github.com/rosterhq/roster/internal/telemetry"
	"github.com/rosterhq/roster/pkg/objstore"
	"github.com/rosterhq/roster/pkg/tabular"
)

// Config tunes the assembler.
type Config struct {
	// MaxChunkSize rejects chunks larger than this many bytes.
	// Zero means no limit.
	MaxChunkSize int64

	// ManifestTTL is how long an upload may sit idle before the sweeper
	// deletes its manifest and partial object. Default: 24h.
	ManifestTTL time.Duration

	// SweepInterval is how often the sweeper runs. Default: 1h.
	SweepInterval time.Duration
}

func (c *Config) applyDefaults() {
	if c.ManifestTTL <= 0 {
		c.ManifestTTL = 24 * time.Hour
	}
	if c.SweepInterval <= 0 {
		c.SweepInterval = time.Hour
	}
}

// Assembler receives upload chunks and grows one object per logical
// upload. Safe for concurrent use across distinct uploads; chunks of a
// single upload are sequential by protocol.
type Assembler struct {
	store     objstore.Store
	manifests ManifestStore
	cfg       Config
	metrics   Metrics

	// mu serializes key minting so stamps stay strictly monotonic even
	// when two uploads start within the same millisecond.
	mu        sync.Mutex
	lastStamp int64
}

// NewAssembler creates an assembler writing to store and tracking uploads
// in manifests. metrics may be nil.
func NewAssembler(store objstore.Store, manifests ManifestStore, cfg Config, metrics Metrics) *Assembler {
	cfg.applyDefaults()
	return &Assembler{
		store:     store,
		manifests: manifests,
		cfg:       cfg,
		metrics:   metrics,
	}
}

// ReceiveChunk appends one chunk to its upload's object.
//
// The first chunk of a logical upload mints the storage key
// "uploads/{userID}/{stamp}_{sanitizedName}" and creates the manifest;
// later chunks must arrive strictly in order with a matching total count.
// On the final chunk the assembled object's layout is detected and the
// result carries the headers, the storage key and StatusComplete.
//
// A chunk whose append failed may be re-submitted with the same index:
// append is read-modify-write, so the retry lands exactly once. Chunk 0
// for a file name that already has a manifest abandons the old upload and
// starts over.
func (a *Assembler) ReceiveChunk(ctx context.Context, userID string, req ChunkRequest) (res *ChunkResult, err error) {
	ctx, span := telemetry.StartSpan(ctx, telemetry.SpanUploadChunk,
		telemetry.UserID(userID), telemetry.Filename(req.FileName), telemetry.ChunkIndex(req.ChunkIndex))
	defer func() { telemetry.End(span, err) }()

	if userID == "" {
		return nil, fmt.Errorf("%w: user id is required", ErrInvalidChunk)
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if a.cfg.MaxChunkSize > 0 && int64(len(req.Data)) > a.cfg.MaxChunkSize {
		return nil, fmt.Errorf("%w: %d bytes exceeds the %d byte limit",
			ErrChunkTooLarge, len(req.Data), a.cfg.MaxChunkSize)
	}

	m, err := a.manifests.Get(ctx, userID, req.FileName)
	switch {
	case errors.Is(err, ErrManifestNotFound):
		if req.ChunkIndex != 0 {
			return nil, fmt.Errorf("%w: no upload in progress for %q, got chunk %d",
				ErrChunkOutOfOrder, req.FileName, req.ChunkIndex)
		}
		if m, err = a.startUpload(ctx, userID, req); err != nil {
			return nil, err
		}

	case err != nil:
		return nil, fmt.Errorf("failed to load upload manifest: %w", err)

	case req.ChunkIndex == 0 && len(m.Received) > 0:
		// The client started the same file over. Drop the stale partial
		// object and begin a fresh upload under a new key.
		logger.Info("Restarting upload",
			logger.KeyUserID, userID,
			logger.KeyFilename, req.FileName,
			"previous_key", m.StorageKey,
		)
		if err := a.abandon(ctx, m); err != nil {
			return nil, err
		}
		if m, err = a.startUpload(ctx, userID, req); err != nil {
			return nil, err
		}

	default:
		if req.TotalChunks != m.TotalChunks {
			return nil, fmt.Errorf("%w: total_chunks %d does not match the declared %d",
				ErrChunkMismatch, req.TotalChunks, m.TotalChunks)
		}
		if req.ChunkIndex != m.NextChunk() {
			return nil, fmt.Errorf("%w: expected chunk %d, got %d",
				ErrChunkOutOfOrder, m.NextChunk(), req.ChunkIndex)
		}
	}

	if _, err := a.store.Append(ctx, m.StorageKey, req.Data); err != nil {
		return nil, fmt.Errorf("failed to append chunk %d to %s: %w", req.ChunkIndex, m.StorageKey, err)
	}
	if a.metrics != nil {
		a.metrics.ChunkReceived(len(req.Data))
	}

	m.Received = append(m.Received, req.ChunkIndex)
	m.BytesTotal += int64(len(req.Data))
	m.UpdatedAt = time.Now().UTC()

	if req.ChunkIndex < req.TotalChunks-1 {
		if err := a.manifests.Put(ctx, m); err != nil {
			return nil, fmt.Errorf("failed to persist upload manifest: %w", err)
		}
		logger.Debug("Chunk received",
			logger.KeyUserID, userID,
			logger.KeyFilename, req.FileName,
			logger.KeyChunkIndex, req.ChunkIndex,
			logger.KeyTotalChunks, req.TotalChunks,
		)
		return &ChunkResult{
			Status:      StatusInProgress,
			ProgressPct: progressPct(req.ChunkIndex, req.TotalChunks),
		}, nil
	}

	return a.finalize(ctx, userID, req, m)
}

// startUpload mints the storage key and persists a fresh manifest, fixing
// the key before any byte is written so a failed first append retries onto
// the same object.
func (a *Assembler) startUpload(ctx context.Context, userID string, req ChunkRequest) (*Manifest, error) {
	now := time.Now().UTC()
	m := &Manifest{
		UserID:      userID,
		FileName:    req.FileName,
		StorageKey:  a.mintKey(userID, req.FileName),
		TotalChunks: req.TotalChunks,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := a.manifests.Put(ctx, m); err != nil {
		return nil, fmt.Errorf("failed to persist upload manifest: %w", err)
	}
	logger.Info("Upload started",
		logger.KeyUserID, userID,
		logger.KeyFilename, req.FileName,
		"key", m.StorageKey,
		logger.KeyTotalChunks, req.TotalChunks,
	)
	return m, nil
}

// finalize runs layout detection on the assembled object and retires the
// manifest.
func (a *Assembler) finalize(ctx context.Context, userID string, req ChunkRequest, m *Manifest) (*ChunkResult, error) {
	layout, err := tabular.Sniff(ctx, a.store, m.StorageKey, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to detect layout of %s: %w", m.StorageKey, err)
	}

	if err := a.manifests.Delete(ctx, userID, req.FileName); err != nil {
		// The object is complete and usable; a leftover manifest only
		// costs the sweeper one pass.
		logger.Warn("Failed to delete completed upload manifest",
			logger.KeyUserID, userID,
			logger.KeyFilename, req.FileName,
			"error", err,
		)
	}

	if a.metrics != nil {
		a.metrics.UploadAssembled(m.BytesTotal, req.TotalChunks)
	}
	logger.Info("Upload assembled",
		logger.KeyUserID, userID,
		logger.KeyFilename, req.FileName,
		"key", m.StorageKey,
		"bytes", m.BytesTotal,
		logger.KeyTotalChunks, req.TotalChunks,
		logger.KeyDelimiter, string(layout.Delimiter),
		logger.KeyHeaderRow, layout.HeaderRow,
	)

	return &ChunkResult{
		Status:      StatusComplete,
		ProgressPct: 100,
		Headers:     layout.Headers,
		StorageKey:  m.StorageKey,
	}, nil
}

// Headers re-detects the column names of an already assembled object.
func (a *Assembler) Headers(ctx context.Context, key string) ([]string, error) {
	layout, err := tabular.Sniff(ctx, a.store, key, nil)
	if err != nil {
		return nil, err
	}
	return layout.Headers, nil
}

// mintKey builds "uploads/{userID}/{stamp}_{sanitizedName}" with a
// strictly monotonic millisecond stamp.
func (a *Assembler) mintKey(userID, fileName string) string {
	a.mu.Lock()
	stamp := time.Now().UnixMilli()
	if stamp <= a.lastStamp {
		stamp = a.lastStamp + 1
	}
	a.lastStamp = stamp
	a.mu.Unlock()

	return fmt.Sprintf("uploads/%s/%d_%s", userID, stamp, SanitizeFileName(fileName))
}

// abandon removes an upload's partial object and manifest.
func (a *Assembler) abandon(ctx context.Context, m *Manifest) error {
	if err := a.store.Delete(ctx, m.StorageKey); err != nil && !errors.Is(err, objstore.ErrNotFound) {
		return fmt.Errorf("failed to delete partial object %s: %w", m.StorageKey, err)
	}
	if err := a.manifests.Delete(ctx, m.UserID, m.FileName); err != nil {
		return fmt.Errorf("failed to delete upload manifest: %w", err)
	}
	return nil
}

// RunSweeper deletes abandoned uploads every SweepInterval until the
// context is cancelled. Run it in its own goroutine.
func (a *Assembler) RunSweeper(ctx context.Context) {
	ticker := time.NewTicker(a.cfg.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if swept, err := a.SweepStale(ctx); err != nil {
				logger.Error("Upload sweep failed", "error", err)
			} else if swept > 0 {
				logger.Info("Swept abandoned uploads", "count", swept)
			}
		}
	}
}

// SweepStale removes manifests (and their partial objects) that have not
// seen a chunk within ManifestTTL. Returns how many uploads were removed.
func (a *Assembler) SweepStale(ctx context.Context) (int, error) {
	manifests, err := a.manifests.List(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list upload manifests: %w", err)
	}

	cutoff := time.Now().UTC().Add(-a.cfg.ManifestTTL)
	swept := 0
	for _, m := range manifests {
		if !m.UpdatedAt.Before(cutoff) {
			continue
		}
		if err := a.abandon(ctx, m); err != nil {
			logger.Warn("Failed to sweep abandoned upload",
				logger.KeyUserID, m.UserID,
				logger.KeyFilename, m.FileName,
				"error", err,
			)
			continue
		}
		swept++
	}
	if a.metrics != nil && swept > 0 {
		a.metrics.ManifestsSwept(swept)
	}
	return swept, nil
}

// progressPct is round(100 * (chunkIndex+1) / totalChunks).
func progressPct(chunkIndex, totalChunks int) int {
	return int(math.Round(100 * float64(chunkIndex+1) / float64(totalChunks)))
}
