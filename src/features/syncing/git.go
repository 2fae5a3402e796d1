package syncing

import "context"

// Git is the version control capability the sync service drives.
type Git interface {
	// IsRepository reports whether dir is itself the top of a working tree.
	IsRepository(ctx context.Context, dir string) bool
	Clone(ctx context.Context, url, dir string) error
	// Pull fetches and rebases the current branch onto its upstream.
	Pull(ctx context.Context, dir string) error
	// Clean reports whether the working tree has no changes.
	Clean(ctx context.Context, dir string) (bool, error)
	Add(ctx context.Context, dir string, paths ...string) error
	// Commit records the staged changes. It returns false, without error,
	// when nothing was staged.
	Commit(ctx context.Context, dir, message string) (bool, error)
	// Ahead reports whether local commits are waiting to be pushed.
	Ahead(ctx context.Context, dir string) (bool, error)
	Push(ctx context.Context, dir string) error
}
