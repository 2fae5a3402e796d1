package syncing

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/contre95/song-classifier/src/features/config"
	"github.com/contre95/song-classifier/src/music"
	"github.com/gofrs/flock"
)

// Result is the outcome of a pull or push.
type Result string

const (
	ResultNotConfigured Result = "not_configured"
	ResultSynced        Result = "synced"
	ResultUpToDate      Result = "up_to_date"
	ResultFailed        Result = "failed"
)

const (
	CommitMessage      = "Update metadata from song-classifier"
	DefaultLockTimeout = 30 * time.Second
	lockRetryDelay     = 250 * time.Millisecond
)

// Service keeps the record store files in step with a shared git repository.
type Service struct {
	configManager *config.Manager
	git           Git
	lockTimeout   time.Duration
}

// NewService creates a new sync service.
func NewService(cfgManager *config.Manager, git Git) *Service {
	return &Service{configManager: cfgManager, git: git, lockTimeout: DefaultLockTimeout}
}

// WithLockTimeout overrides how long Pull and Push wait for the repository lock.
func (s *Service) WithLockTimeout(timeout time.Duration) *Service {
	s.lockTimeout = timeout
	return s
}

// Configured reports whether a shared repository URL is set.
func (s *Service) Configured() bool {
	return s.configManager.Get().SyncRepo != ""
}

// Pull brings the shared tables into the configuration directory.
// A failed pull keeps the last known clone as the baseline.
func (s *Service) Pull(ctx context.Context) (Result, error) {
	url := s.configManager.Get().SyncRepo
	if url == "" {
		slog.Debug("Service.Pull: sync repository not configured")
		return ResultNotConfigured, nil
	}

	unlock, err := s.lock(ctx)
	if err != nil {
		return ResultFailed, err
	}
	defer unlock()

	repoDir := s.configManager.RepoDir()
	if err := s.ensureClone(ctx, url, repoDir); err != nil {
		return ResultFailed, err
	}
	if err := s.git.Pull(ctx, repoDir); err != nil {
		slog.Warn("Service.Pull: pull failed, using last known state of the clone", "repo", url, "error", err)
	}

	copied, err := copyTables(repoDir, s.configManager.Dir())
	if err != nil {
		return ResultFailed, music.Wrap(music.ErrSync, "Service.Pull", "copy tables from clone", err)
	}
	slog.Info("Metadata pulled from shared repository", "repo", url, "files", copied)
	return ResultSynced, nil
}

// Push publishes local table changes to the shared repository. Commit and push
// failures are reported as ResultFailed without an error so a later run can retry.
func (s *Service) Push(ctx context.Context) (Result, error) {
	url := s.configManager.Get().SyncRepo
	if url == "" {
		slog.Debug("Service.Push: sync repository not configured")
		return ResultNotConfigured, nil
	}

	unlock, err := s.lock(ctx)
	if err != nil {
		return ResultFailed, err
	}
	defer unlock()

	repoDir := s.configManager.RepoDir()
	if err := s.ensureClone(ctx, url, repoDir); err != nil {
		return ResultFailed, err
	}
	copied, err := copyTables(s.configManager.Dir(), repoDir)
	if err != nil {
		return ResultFailed, music.Wrap(music.ErrSync, "Service.Push", "copy tables into clone", err)
	}

	clean, err := s.git.Clean(ctx, repoDir)
	if err != nil {
		slog.Warn("Service.Push: failed to read working tree status", "error", err)
		return ResultFailed, nil
	}
	if !clean {
		if err := s.git.Add(ctx, repoDir, copied...); err != nil {
			slog.Warn("Service.Push: failed to stage tables", "files", copied, "error", err)
			return ResultFailed, nil
		}
		if _, err := s.git.Commit(ctx, repoDir, CommitMessage); err != nil {
			slog.Warn("Service.Push: commit failed", "error", err)
			return ResultFailed, nil
		}
	}

	// Commits left behind by an earlier failed push are sent as well.
	ahead, err := s.git.Ahead(ctx, repoDir)
	if err != nil {
		slog.Warn("Service.Push: failed to compare with upstream", "error", err)
		return ResultFailed, nil
	}
	if !ahead {
		slog.Info("Metadata already up to date in shared repository")
		return ResultUpToDate, nil
	}
	if err := s.git.Push(ctx, repoDir); err != nil {
		slog.Warn("Service.Push: push failed, commit kept locally; it will be retried on the next run", "error", err)
		return ResultFailed, nil
	}
	slog.Info("Metadata pushed to shared repository", "repo", url, "files", copied)
	return ResultSynced, nil
}

// lock takes the advisory lock guarding the clone, waiting at most lockTimeout.
func (s *Service) lock(ctx context.Context) (func(), error) {
	fileLock := flock.New(s.configManager.LockFile())
	lockCtx, cancel := context.WithTimeout(ctx, s.lockTimeout)
	defer cancel()

	locked, err := fileLock.TryLockContext(lockCtx, lockRetryDelay)
	if err != nil && !errors.Is(err, context.DeadlineExceeded) {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, music.Wrap(music.ErrSync, "Service.lock", "acquire "+fileLock.Path(), err)
	}
	if !locked {
		return nil, music.Wrap(music.ErrLockTimeout, "Service.lock",
			fmt.Sprintf("repository lock %s still held after %s", fileLock.Path(), s.lockTimeout), nil)
	}
	return func() {
		if err := fileLock.Unlock(); err != nil {
			slog.Warn("Service.lock: failed to release repository lock", "path", fileLock.Path(), "error", err)
		}
	}, nil
}

// ensureClone clones url into dir unless dir already holds a repository.
// A directory that exists but is not a repository is discarded first.
func (s *Service) ensureClone(ctx context.Context, url, dir string) error {
	if _, err := os.Stat(dir); err == nil {
		if s.git.IsRepository(ctx, dir) {
			return nil
		}
		slog.Warn("Service.ensureClone: discarding invalid clone", "path", dir)
		if err := os.RemoveAll(dir); err != nil {
			return music.Wrap(music.ErrSync, "Service.ensureClone", "remove invalid clone", err)
		}
	}
	slog.Info("Cloning shared metadata repository", "repo", url, "path", dir)
	if err := s.git.Clone(ctx, url, dir); err != nil {
		return music.Wrap(music.ErrSync, "Service.ensureClone", "clone "+url, err)
	}
	return nil
}

// copyTables copies the table files that exist in src into dst and returns their names.
func copyTables(src, dst string) ([]string, error) {
	var copied []string
	for _, name := range config.TableFiles() {
		err := copyFile(filepath.Join(src, name), filepath.Join(dst, name))
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return copied, fmt.Errorf("copy %s: %w", name, err)
		}
		copied = append(copied, name)
	}
	return copied, nil
}

func copyFile(src, dst string) error {
	sourceFile, err := os.Open(src)
	if err != nil {
		return err
	}
	defer sourceFile.Close()

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	destFile, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(destFile, sourceFile); err != nil {
		destFile.Close()
		return err
	}
	return destFile.Close()
}
