package classifying

import (
	"context"
	"errors"
	"log/slog"
	"os"

	"github.com/contre95/song-classifier/src/music"
)

// Status is the terminal state an asset reached in the pipeline.
type Status string

const (
	StatusSkippedKnown     Status = "skipped_known"
	StatusSkippedProcessed Status = "skipped_processed"
	StatusWouldProcess     Status = "would_process"
	StatusProcessed        Status = "processed"
	StatusFailed           Status = "failed"
)

// Options toggle the idempotency checks and dry-run mode of a run.
type Options struct {
	SkipIfInStore   bool
	SkipIfProcessed bool
	DryRun          bool
}

// DefaultOptions enables both skip checks.
func DefaultOptions() Options {
	return Options{SkipIfInStore: true, SkipIfProcessed: true}
}

// Outcome reports what happened to one asset.
type Outcome struct {
	Key    string
	Status Status
	// Track is the proposed record on a dry run and the confirmed one otherwise.
	Track *music.Track
	// Persisted is true once the record store holds the confirmed record,
	// even when tagging or publishing failed afterwards.
	Persisted bool
	Err       error
}

// Service is the domain service for the classifying feature.
type Service struct {
	library   music.Library
	transport Transport
	reader    TagReader
	writer    TagWriter
	inferrer  Inferrer
	confirmer Confirmer
	syncer    Syncer
}

// NewService creates a new classifying service. syncer may be nil when synchronization is disabled.
func NewService(lib music.Library, transport Transport, reader TagReader, writer TagWriter, inferrer Inferrer, confirmer Confirmer, syncer Syncer) *Service {
	return &Service{
		library:   lib,
		transport: transport,
		reader:    reader,
		writer:    writer,
		inferrer:  inferrer,
		confirmer: confirmer,
		syncer:    syncer,
	}
}

// ClassifyAsset runs one asset through the pipeline.
// Per-asset failures are reported in the Outcome with a nil error. The error is
// only set for record store failures and operator cancellation, which must stop the batch.
func (s *Service) ClassifyAsset(ctx context.Context, root, key string, opts Options) (Outcome, error) {
	outcome := Outcome{Key: key}
	logger := loggerFrom(ctx).With("key", key)

	if opts.SkipIfInStore {
		known, err := s.library.GetTrack(ctx, key)
		if err != nil {
			return s.fail(logger, outcome, err)
		}
		if known != nil {
			logger.Info("Service.ClassifyAsset: skipping asset", "reason", "already in metadata")
			outcome.Status = StatusSkippedKnown
			outcome.Track = known
			return outcome, nil
		}
	}

	localPath, err := s.transport.Fetch(ctx, root, key)
	if err != nil {
		return s.fail(logger, outcome, err)
	}
	if s.transport.OwnsLocalCopy() {
		defer func() {
			if err := os.Remove(localPath); err != nil && !errors.Is(err, os.ErrNotExist) {
				logger.Warn("Service.ClassifyAsset: failed to remove scratch copy", "path", localPath, "error", err)
			}
		}()
	}

	existing, err := s.reader.ReadFileTags(ctx, localPath)
	if err != nil {
		logger.Debug("Service.ClassifyAsset: could not read existing tags", "error", err)
		existing = nil
	}

	if opts.SkipIfProcessed {
		processed, err := s.reader.HasMarker(ctx, localPath)
		if err != nil {
			return s.fail(logger, outcome, err)
		}
		if processed {
			logger.Info("Service.ClassifyAsset: skipping asset", "reason", "already processed")
			outcome.Status = StatusSkippedProcessed
			return outcome, nil
		}
	}

	proposed, err := s.inferrer.InferTrack(ctx, key, existing)
	if err != nil {
		return s.fail(logger, outcome, err)
	}
	proposed.Key = key

	if opts.DryRun {
		logger.Info("Service.ClassifyAsset: dry run, would process",
			"track", proposed.Title, "artist", proposed.Artist, "album", proposed.Album.Name, "album_artist", proposed.Album.Artist,
			"genre", proposed.Genre, "date", proposed.DateString())
		outcome.Status = StatusWouldProcess
		outcome.Track = proposed
		return outcome, nil
	}

	confirmed, err := s.confirmer.Confirm(ctx, proposed)
	if err != nil {
		return s.fail(logger, outcome, err)
	}
	confirmed.Key = key
	if err := confirmed.Validate(); err != nil {
		return s.fail(logger, outcome, music.Wrap(music.ErrAsset, "Service.ClassifyAsset", "confirmed record is invalid", err))
	}
	outcome.Track = confirmed

	if confirmed.Album.Name != "" {
		album := confirmed.Album
		if err := s.library.UpsertAlbum(ctx, &album); err != nil {
			return s.fail(logger, outcome, err)
		}
	}
	if err := s.library.UpsertTrack(ctx, confirmed); err != nil {
		return s.fail(logger, outcome, err)
	}
	outcome.Persisted = true

	if err := s.writer.WriteFileTags(ctx, localPath, confirmed); err != nil {
		return s.fail(logger, outcome, err)
	}
	if err := s.transport.Publish(ctx, localPath, root, key); err != nil {
		return s.fail(logger, outcome, err)
	}

	logger.Info("Service.ClassifyAsset: asset processed", "track", confirmed.Title, "album", confirmed.Album.Name)
	outcome.Status = StatusProcessed
	return outcome, nil
}

// fail records err on the outcome and decides whether it must stop the batch.
func (s *Service) fail(logger *slog.Logger, outcome Outcome, err error) (Outcome, error) {
	outcome.Status = StatusFailed
	outcome.Err = err
	if errors.Is(err, music.ErrCancelled) || errors.Is(err, context.Canceled) || music.IsFatal(err) {
		return outcome, err
	}
	logger.Error("Service.ClassifyAsset: asset failed", "error", err, "persisted", outcome.Persisted)
	return outcome, nil
}

type loggerKey struct{}

// withLogger attaches a run scoped logger to ctx.
func withLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, logger)
}

func loggerFrom(ctx context.Context) *slog.Logger {
	if logger, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok {
		return logger
	}
	return slog.Default()
}
