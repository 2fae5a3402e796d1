package classifying

import "context"

// Transport gives the pipeline uniform access to assets on a local or remote root.
// Keys are always slash separated and relative to root.
type Transport interface {
	// List returns the keys of every recognised audio asset under root.
	List(ctx context.Context, root string) ([]string, error)
	// Fetch makes a local working copy of key available and returns its path.
	Fetch(ctx context.Context, root, key string) (string, error)
	// Publish writes localPath back to the canonical location of key.
	Publish(ctx context.Context, localPath, root, key string) error
	// OwnsLocalCopy reports whether fetched copies are scratch files the caller must remove.
	OwnsLocalCopy() bool
}
