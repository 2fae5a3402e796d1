package files

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/contre95/song-classifier/src/music"
)

// LocalTransport reads and writes assets in place on the local filesystem.
type LocalTransport struct{}

// NewLocalTransport creates a new local transport.
func NewLocalTransport() *LocalTransport {
	return &LocalTransport{}
}

// List walks root recursively and returns slash separated keys of audio files.
func (l *LocalTransport) List(ctx context.Context, root string) ([]string, error) {
	var keys []string
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if d.IsDir() || !IsAudioFile(d.Name()) {
			return nil
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		keys = append(keys, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, music.Wrap(music.ErrTransport, "LocalTransport.List", root, err)
	}
	return keys, nil
}

// Fetch returns the absolute path of the asset. No copy is made.
func (l *LocalTransport) Fetch(ctx context.Context, root, key string) (string, error) {
	p, err := filepath.Abs(filepath.Join(root, filepath.FromSlash(key)))
	if err != nil {
		return "", music.Wrap(music.ErrTransport, "LocalTransport.Fetch", key, err)
	}
	info, err := os.Stat(p)
	if err != nil {
		return "", music.Wrap(music.ErrTransport, "LocalTransport.Fetch", key, err)
	}
	if info.IsDir() {
		return "", music.Wrap(music.ErrTransport, "LocalTransport.Fetch", fmt.Sprintf("%s is a directory", key), nil)
	}
	return p, nil
}

// Publish does nothing, the file was edited in place.
func (l *LocalTransport) Publish(ctx context.Context, localPath, root, key string) error {
	return nil
}

// OwnsLocalCopy is false, fetched paths are the originals.
func (l *LocalTransport) OwnsLocalCopy() bool {
	return false
}
