package files

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/contre95/song-classifier/src/music"
	"github.com/studio-b12/gowebdav"
)

// WebDAVTransport downloads assets into a scratch directory and uploads them back.
type WebDAVTransport struct {
	client  *gowebdav.Client
	tempDir string
}

// NewWebDAVTransport creates a new WebDAV transport. No request is made until first use,
// so bad credentials surface as a transport error on the first List or Fetch.
func NewWebDAVTransport(host, username, password, tempDir string) *WebDAVTransport {
	return &WebDAVTransport{
		client:  gowebdav.NewClient(host, username, password),
		tempDir: tempDir,
	}
}

// List recurses through the remote directories below root.
func (w *WebDAVTransport) List(ctx context.Context, root string) ([]string, error) {
	root = remoteRoot(root)
	var keys []string
	if err := w.walk(ctx, root, "", &keys); err != nil {
		return nil, music.Wrap(music.ErrTransport, "WebDAVTransport.List", root, err)
	}
	slog.Debug("Remote listing finished", "root", root, "assets", len(keys))
	return keys, nil
}

func (w *WebDAVTransport) walk(ctx context.Context, root, rel string, keys *[]string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	entries, err := w.client.ReadDir(path.Join(root, rel))
	if err != nil {
		return err
	}
	for _, entry := range entries {
		child := path.Join(rel, entry.Name())
		if entry.IsDir() {
			if err := w.walk(ctx, root, child, keys); err != nil {
				return err
			}
			continue
		}
		if IsAudioFile(entry.Name()) {
			*keys = append(*keys, child)
		}
	}
	return nil
}

// Fetch downloads key into the scratch directory and returns the local path.
func (w *WebDAVTransport) Fetch(ctx context.Context, root, key string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	remote := path.Join(remoteRoot(root), key)
	local := filepath.Join(w.tempDir, filepath.FromSlash(path.Clean("/"+key)))
	if err := os.MkdirAll(filepath.Dir(local), 0o755); err != nil {
		return "", music.Wrap(music.ErrTransport, "WebDAVTransport.Fetch", "create scratch directory", err)
	}

	stream, err := w.client.ReadStream(remote)
	if err != nil {
		return "", music.Wrap(music.ErrTransport, "WebDAVTransport.Fetch", remote, err)
	}
	defer stream.Close()

	f, err := os.Create(local)
	if err != nil {
		return "", music.Wrap(music.ErrTransport, "WebDAVTransport.Fetch", "create "+local, err)
	}
	if _, err := io.Copy(f, stream); err != nil {
		f.Close()
		os.Remove(local)
		return "", music.Wrap(music.ErrTransport, "WebDAVTransport.Fetch", remote, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(local)
		return "", music.Wrap(music.ErrTransport, "WebDAVTransport.Fetch", "close "+local, err)
	}
	slog.Debug("Asset downloaded", "remote", remote, "local", local)
	return local, nil
}

// Publish uploads localPath to key below root.
func (w *WebDAVTransport) Publish(ctx context.Context, localPath, root, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	remote := path.Join(remoteRoot(root), key)
	if dir := path.Dir(remote); dir != "/" {
		if err := w.client.MkdirAll(dir, 0o755); err != nil {
			return music.Wrap(music.ErrTransport, "WebDAVTransport.Publish", "create "+dir, err)
		}
	}
	f, err := os.Open(localPath)
	if err != nil {
		return music.Wrap(music.ErrTransport, "WebDAVTransport.Publish", localPath, err)
	}
	defer f.Close()

	if err := w.client.WriteStream(remote, f, 0o644); err != nil {
		return music.Wrap(music.ErrTransport, "WebDAVTransport.Publish", remote, err)
	}
	slog.Debug("Asset uploaded", "local", localPath, "remote", remote)
	return nil
}

// OwnsLocalCopy is true, fetched files are scratch copies.
func (w *WebDAVTransport) OwnsLocalCopy() bool {
	return true
}

// remoteRoot turns an operator supplied root into an absolute slash path.
func remoteRoot(root string) string {
	root = strings.ReplaceAll(strings.TrimSpace(root), "\\", "/")
	if root == "" {
		return "/"
	}
	return path.Clean("/" + root)
}
