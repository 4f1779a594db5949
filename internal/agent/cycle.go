// Package agent wires the sync loop together: per-cycle orchestration,
// the fixed-interval scheduler, farm identity resolution, and the
// optional database activity watcher.
package agent

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/pecuschain/farmsync/internal/cloud"
	"github.com/pecuschain/farmsync/internal/config"
	"github.com/pecuschain/farmsync/internal/delpro"
)

// CloudAPI is the slice of the cloud client a sync cycle needs.
type CloudAPI interface {
	SyncStatus(ctx context.Context, farmID string) (*cloud.Watermarks, error)
	Ingest(ctx context.Context, payload *cloud.Payload) (*cloud.IngestResult, error)
}

// Extractor produces one cycle's batch from the local store.
type Extractor interface {
	ExtractAll(ctx context.Context, wm *cloud.Watermarks) *delpro.Batch
}

// ExtractorFactory opens the local store for one cycle and returns an
// Extractor plus a close function. Opening per cycle means a database
// file swapped or repaired between cycles is picked up without a
// restart.
type ExtractorFactory func(cfg *config.Config, logger *slog.Logger) (Extractor, func() error, error)

// OpenExtractor is the production ExtractorFactory, reading the DelPro
// database named in the config.
func OpenExtractor(cfg *config.Config, logger *slog.Logger) (Extractor, func() error, error) {
	store, err := delpro.Open(cfg.DatabaseName, logger)
	if err != nil {
		return nil, nil, err
	}

	return delpro.NewExtractor(store, cfg.BatchSize, cfg.Lookback(), cfg.FallbackStart(), logger), store.Close, nil
}

// Syncer runs individual sync cycles: fetch watermarks, extract,
// upload. It holds no per-cycle state; every cycle starts from the
// cloud's watermarks.
type Syncer struct {
	api           CloudAPI
	openExtractor ExtractorFactory
	logger        *slog.Logger
}

// NewSyncer creates a Syncer.
func NewSyncer(api CloudAPI, openExtractor ExtractorFactory, logger *slog.Logger) *Syncer {
	if logger == nil {
		logger = slog.Default()
	}

	return &Syncer{
		api:           api,
		openExtractor: openExtractor,
		logger:        logger,
	}
}

// RunCycle performs one watermark-fetch -> extract -> upload pass.
// Only the upload can fail the cycle: an unreachable watermark
// endpoint falls back to zero watermarks (re-sending is harmless, the
// cloud upserts by OID), and an unreadable local store yields an empty
// batch and a clean skip.
func (s *Syncer) RunCycle(ctx context.Context, cfg *config.Config) error {
	logger := s.logger.With(slog.String("cycle", uuid.NewString()))

	logger.Debug("cycle starting", slog.String("farm_id", cfg.FarmID))

	wm, err := s.api.SyncStatus(ctx, cfg.FarmID)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		logger.Warn("watermark fetch failed, proceeding with zero watermarks",
			slog.String("error", err.Error()),
		)

		wm = &cloud.Watermarks{}
	} else {
		logger.Debug("watermarks fetched",
			slog.Int64("sessions", wm.LastSessionOID),
			slog.Int64("animals", wm.LastAnimalOID),
			slog.Int64("lactations", wm.LastLactationOID),
			slog.Int64("diversions", wm.LastDiversionOID),
		)
	}

	batch := s.extract(ctx, cfg, wm, logger)

	if batch.Empty() {
		logger.Info("no new data")
		return nil
	}

	result, err := s.api.Ingest(ctx, batch.Payload(cfg.FarmID))
	if err != nil {
		return fmt.Errorf("uploading batch: %w", err)
	}

	attrs := []any{slog.String("status", result.Status)}
	for stream, n := range batch.Counts() {
		if n > 0 {
			attrs = append(attrs, slog.Int(stream, n))
		}
	}

	logger.Info("batch uploaded", attrs...)

	return nil
}

// extract opens the local store and pulls the cycle's batch. Any
// failure to open degrades to an empty batch: the milking system may
// hold the file, or the drive may be briefly unavailable, and the next
// cycle will retry.
func (s *Syncer) extract(ctx context.Context, cfg *config.Config, wm *cloud.Watermarks, logger *slog.Logger) *delpro.Batch {
	extractor, closeStore, err := s.openExtractor(cfg, logger)
	if err != nil {
		logger.Warn("local database unavailable, skipping extraction",
			slog.String("database", cfg.DatabaseName),
			slog.String("error", err.Error()),
		)

		return &delpro.Batch{}
	}

	defer func() {
		if err := closeStore(); err != nil {
			logger.Warn("closing local database", slog.String("error", err.Error()))
		}
	}()

	return extractor.ExtractAll(ctx, wm)
}
