package classifying

import (
	"context"

	"github.com/contre95/song-classifier/src/features/syncing"
	"github.com/contre95/song-classifier/src/music"
)

// TagReader is the interface for reading metadata from a music file.
type TagReader interface {
	// ReadFileTags returns nil when the file carries no recognisable tags.
	ReadFileTags(ctx context.Context, filePath string) (*music.Track, error)
	// HasMarker reports whether the processed marker is present in a comment tag.
	HasMarker(ctx context.Context, filePath string) (bool, error)
}

// TagWriter is the interface for writing metadata to a music file.
type TagWriter interface {
	// WriteFileTags writes the track fields and merges the processed marker into the comments.
	WriteFileTags(ctx context.Context, filePath string, track *music.Track) error
}

// Inferrer proposes a record for an asset from its key and any tags it already carries.
type Inferrer interface {
	InferTrack(ctx context.Context, key string, existing *music.Track) (*music.Track, error)
}

// Confirmer lets an operator approve or edit a proposed record.
// It returns music.ErrCancelled when the operator aborts.
type Confirmer interface {
	Confirm(ctx context.Context, proposed *music.Track) (*music.Track, error)
}

// Syncer reconciles the record store with the shared repository around a batch.
type Syncer interface {
	Pull(ctx context.Context) (syncing.Result, error)
	Push(ctx context.Context) (syncing.Result, error)
}
