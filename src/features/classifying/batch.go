package classifying

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/contre95/song-classifier/src/features/syncing"
	"github.com/contre95/song-classifier/src/music"
	"github.com/google/uuid"
)

// BatchRequest describes one run over a root.
type BatchRequest struct {
	Root    string
	Options Options
	// Sync brackets the run with a pull and a push when a syncer is configured.
	Sync bool
}

// Summary contains statistics about a run.
type Summary struct {
	RunID        string
	Total        int
	Processed    int
	Skipped      int
	WouldProcess int
	Failed       int
	// Persisted counts assets whose record reached the store, failed ones included.
	Persisted   int
	Interrupted bool
	Pushed      syncing.Result
	Outcomes    []Outcome
}

func (s Summary) String() string {
	return fmt.Sprintf("%d assets: %d processed, %d skipped, %d would process, %d failed",
		s.Total, s.Processed, s.Skipped, s.WouldProcess, s.Failed)
}

// invalidator is implemented by record stores that cache table files.
type invalidator interface {
	Invalidate()
}

// Run lists root and classifies every asset one at a time.
// Cancelling ctx stops the batch at the next asset boundary; the asset in flight
// always reaches a terminal state first.
func (s *Service) Run(ctx context.Context, req BatchRequest) (Summary, error) {
	summary := Summary{RunID: uuid.NewString()}
	logger := slog.With("run", summary.RunID)
	ctx = withLogger(ctx, logger)

	if req.Sync && s.syncer != nil {
		result, err := s.syncer.Pull(ctx)
		if err != nil {
			logger.Warn("Service.Run: pull failed, continuing with local metadata", "error", err)
		} else {
			logger.Debug("Service.Run: pull finished", "result", result)
		}
		if inv, ok := s.library.(invalidator); ok {
			inv.Invalidate()
		}
	}

	keys, err := s.transport.List(ctx, req.Root)
	if err != nil {
		return summary, err
	}
	summary.Total = len(keys)
	logger.Info("Service.Run: assets found", "root", req.Root, "count", len(keys), "dry_run", req.Options.DryRun)

	var runErr error
	for i, key := range keys {
		if ctx.Err() != nil {
			summary.Interrupted = true
			break
		}
		logger.Info(fmt.Sprintf("[%d/%d] %s", i+1, len(keys), key))

		outcome, err := s.ClassifyAsset(context.WithoutCancel(ctx), req.Root, key, req.Options)
		summary.record(outcome)
		if err != nil {
			if errors.Is(err, music.ErrCancelled) || errors.Is(err, context.Canceled) {
				summary.Interrupted = true
				break
			}
			runErr = err
			break
		}
	}
	if ctx.Err() != nil {
		summary.Interrupted = true
	}

	summary.Pushed = s.finish(context.WithoutCancel(ctx), logger, req, summary, runErr)
	logger.Info("Service.Run: finished", "summary", summary.String(), "interrupted", summary.Interrupted, "sync", summary.Pushed)
	return summary, runErr
}

// finish pushes after a clean run, or after an interrupted one that persisted work.
func (s *Service) finish(ctx context.Context, logger *slog.Logger, req BatchRequest, summary Summary, runErr error) syncing.Result {
	if !req.Sync || s.syncer == nil || req.Options.DryRun {
		return ""
	}
	switch {
	case summary.Interrupted && summary.Persisted == 0:
		logger.Info("Service.Run: interrupted before anything was persisted, skipping push")
		return ""
	case runErr != nil && summary.Persisted == 0:
		return ""
	}

	result, err := s.syncer.Push(ctx)
	if err != nil {
		logger.Warn("Service.Run: push failed, run again later to publish local metadata", "error", err)
		return syncing.ResultFailed
	}
	if result == syncing.ResultFailed {
		logger.Warn("Service.Run: metadata not pushed, run again later to publish local metadata")
	}
	return result
}

func (s *Summary) record(outcome Outcome) {
	s.Outcomes = append(s.Outcomes, outcome)
	if outcome.Persisted {
		s.Persisted++
	}
	switch outcome.Status {
	case StatusProcessed:
		s.Processed++
	case StatusSkippedKnown, StatusSkippedProcessed:
		s.Skipped++
	case StatusWouldProcess:
		s.WouldProcess++
	case StatusFailed:
		s.Failed++
	}
}
