package music

import (
	"context"
)

// Library is the record store holding what has been classified so far.
// Lookups return (nil, nil) when nothing matches and always hand out copies.
type Library interface {
	// Track methods
	GetTrack(ctx context.Context, key string) (*Track, error)
	GetTracks(ctx context.Context) ([]*Track, error)
	UpsertTrack(ctx context.Context, track *Track) error

	// Album methods
	GetAlbum(ctx context.Context, name string) (*Album, error)
	GetAlbums(ctx context.Context) ([]*Album, error)
	UpsertAlbum(ctx context.Context, album *Album) error
}
