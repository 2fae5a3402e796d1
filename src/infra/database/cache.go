package database

import (
	"os"
	"sync"
	"time"
)

// TableCache maps a table file path to its parsed rows.
// An entry is only served while the file on disk still has the size and
// modification time it had when it was parsed.
type TableCache struct {
	mu      sync.Mutex
	entries map[string]cacheEntry
}

type cacheEntry struct {
	modTime time.Time
	size    int64
	header  []string
	rows    [][]string
}

// NewTableCache returns an empty cache.
func NewTableCache() *TableCache {
	return &TableCache{entries: make(map[string]cacheEntry)}
}

func (c *TableCache) get(path string, info os.FileInfo) (cacheEntry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.entries[path]
	if !ok {
		return cacheEntry{}, false
	}
	if info == nil || !entry.modTime.Equal(info.ModTime()) || entry.size != info.Size() {
		delete(c.entries, path)
		return cacheEntry{}, false
	}
	return entry, true
}

func (c *TableCache) put(path string, info os.FileInfo, header []string, rows [][]string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[path] = cacheEntry{modTime: info.ModTime(), size: info.Size(), header: header, rows: rows}
}

// Invalidate drops the entry of a single file.
func (c *TableCache) Invalidate(path string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, path)
}

// Reset drops every entry.
func (c *TableCache) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	clear(c.entries)
}

// Len returns the number of cached files.
func (c *TableCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
