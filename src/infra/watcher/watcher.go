// Package watcher reports audio files that appear under a local root.
package watcher

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/contre95/song-classifier/src/infra/files"
	"github.com/contre95/song-classifier/src/music"
)

// DefaultDebounce is how long the tree must stay quiet before changes are reported.
const DefaultDebounce = 5 * time.Second

// Watcher monitors a directory tree and emits batches of new audio keys.
// Keys are relative to the root and slash separated, like the local transport's.
type Watcher struct {
	fs       *fsnotify.Watcher
	root     string
	debounce time.Duration
	changes  chan []string
	fire     chan struct{}

	mu      sync.Mutex
	pending map[string]struct{}
	timer   *time.Timer
}

// New watches root and every directory below it.
func New(root string, debounce time.Duration) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, music.Wrap(music.ErrTransport, "watcher.New", root, err)
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	w := &Watcher{
		fs:       fsw,
		root:     root,
		debounce: debounce,
		changes:  make(chan []string, 1),
		fire:     make(chan struct{}, 1),
		pending:  make(map[string]struct{}),
	}
	if err := w.addTree(root, false); err != nil {
		fsw.Close()
		return nil, err
	}
	return w, nil
}

// Changes delivers the keys that appeared since the previous batch.
func (w *Watcher) Changes() <-chan []string {
	return w.changes
}

// Run processes file system events until ctx is done.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.stop()
	slog.Info("Watcher.Run: watching for new audio files", "root", w.root, "debounce", w.debounce)
	for {
		select {
		case event, ok := <-w.fs.Events:
			if !ok {
				return nil
			}
			w.handleEvent(event)
		case err, ok := <-w.fs.Errors:
			if !ok {
				return nil
			}
			slog.Error("Watcher.Run: file watcher error", "error", err)
		case <-w.fire:
			w.flush()
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (w *Watcher) stop() {
	w.mu.Lock()
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
	w.mu.Unlock()
	w.fs.Close()
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
		return
	}
	info, err := os.Stat(event.Name)
	if err != nil {
		return
	}
	if info.IsDir() {
		if event.Has(fsnotify.Create) {
			if err := w.addTree(event.Name, true); err != nil {
				slog.Warn("Watcher.handleEvent: failed to watch new directory", "path", event.Name, "error", err)
			}
		}
		return
	}
	if files.IsAudioFile(event.Name) {
		w.markPending(event.Name)
	}
}

// addTree watches dir and its subdirectories. collect marks audio files already
// present, since they may have landed before the watch was added.
func (w *Watcher) addTree(dir string, collect bool) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return music.Wrap(music.ErrTransport, "watcher.addTree", path, err)
		}
		if d.IsDir() {
			if err := w.fs.Add(path); err != nil {
				return music.Wrap(music.ErrTransport, "watcher.addTree", path, err)
			}
			return nil
		}
		if collect && files.IsAudioFile(path) {
			w.markPending(path)
		}
		return nil
	})
}

func (w *Watcher) markPending(path string) {
	rel, err := filepath.Rel(w.root, path)
	if err != nil {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.pending[filepath.ToSlash(rel)] = struct{}{}
	w.armLocked()
}

func (w *Watcher) armLocked() {
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, func() {
		select {
		case w.fire <- struct{}{}:
		default:
		}
	})
}

// flush hands pending keys to the consumer. A busy consumer keeps them pending
// for the next quiet period.
func (w *Watcher) flush() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if len(w.pending) == 0 {
		return
	}
	keys := make([]string, 0, len(w.pending))
	for k := range w.pending {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	select {
	case w.changes <- keys:
		w.pending = make(map[string]struct{})
	default:
		w.armLocked()
	}
}
