package database

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/contre95/song-classifier/src/music"
)

// CSVLibrary is a flat file implementation of the Library interface.
// Tracks and albums live in two CSV files that are rewritten whole on every upsert.
type CSVLibrary struct {
	tracksPath string
	albumsPath string
	cache      *TableCache
}

// NewCSVLibrary creates a new CSVLibrary. A nil cache gets a private one.
func NewCSVLibrary(tracksPath, albumsPath string, cache *TableCache) *CSVLibrary {
	if cache == nil {
		cache = NewTableCache()
	}
	return &CSVLibrary{tracksPath: tracksPath, albumsPath: albumsPath, cache: cache}
}

// Invalidate drops the cached tables, used after the files were replaced behind our back.
func (d *CSVLibrary) Invalidate() {
	d.cache.Invalidate(d.tracksPath)
	d.cache.Invalidate(d.albumsPath)
}

// GetTrack retrieves a track by key.
func (d *CSVLibrary) GetTrack(ctx context.Context, key string) (*music.Track, error) {
	tracks, err := d.GetTracks(ctx)
	if err != nil {
		return nil, err
	}
	for _, t := range tracks {
		if t.Key == key {
			return t, nil
		}
	}
	return nil, nil
}

// GetTracks retrieves all tracks, upgrading legacy rows on the fly.
func (d *CSVLibrary) GetTracks(ctx context.Context) ([]*music.Track, error) {
	header, rows, err := d.readTable(ctx, d.tracksPath)
	if err != nil || header == nil {
		return nil, err
	}
	decode, err := trackDecoder(header)
	if err != nil {
		return nil, music.Wrap(music.ErrStore, "CSVLibrary.GetTracks", d.tracksPath, err)
	}
	tracks := make([]*music.Track, 0, len(rows))
	for _, row := range rows {
		tracks = append(tracks, decode(row))
	}
	return tracks, nil
}

// UpsertTrack replaces the track with the same key or appends it.
func (d *CSVLibrary) UpsertTrack(ctx context.Context, track *music.Track) error {
	if err := track.Validate(); err != nil {
		return music.Wrap(music.ErrStore, "CSVLibrary.UpsertTrack", "invalid track", err)
	}
	tracks, err := d.GetTracks(ctx)
	if err != nil {
		return err
	}
	replaced := false
	rows := make([][]string, 0, len(tracks)+1)
	for _, t := range tracks {
		if t.Key == track.Key {
			t = track
			replaced = true
		}
		rows = append(rows, trackRow(t))
	}
	if !replaced {
		rows = append(rows, trackRow(track))
	}
	if err := d.writeTable(d.tracksPath, trackColumns, rows); err != nil {
		return music.Wrap(music.ErrStore, "CSVLibrary.UpsertTrack", d.tracksPath, err)
	}
	slog.Debug("Track upserted", "key", track.Key, "replaced", replaced, "rows", len(rows))
	return nil
}

// GetAlbum retrieves an album by name.
func (d *CSVLibrary) GetAlbum(ctx context.Context, name string) (*music.Album, error) {
	albums, err := d.GetAlbums(ctx)
	if err != nil {
		return nil, err
	}
	for _, a := range albums {
		if a.Name == name {
			return a, nil
		}
	}
	return nil, nil
}

// GetAlbums retrieves all albums.
func (d *CSVLibrary) GetAlbums(ctx context.Context) ([]*music.Album, error) {
	header, rows, err := d.readTable(ctx, d.albumsPath)
	if err != nil || header == nil {
		return nil, err
	}
	decode, err := albumDecoder(header)
	if err != nil {
		return nil, music.Wrap(music.ErrStore, "CSVLibrary.GetAlbums", d.albumsPath, err)
	}
	albums := make([]*music.Album, 0, len(rows))
	for _, row := range rows {
		albums = append(albums, decode(row))
	}
	return albums, nil
}

// UpsertAlbum replaces the album with the same name or appends it.
func (d *CSVLibrary) UpsertAlbum(ctx context.Context, album *music.Album) error {
	if strings.TrimSpace(album.Name) == "" {
		return music.Wrap(music.ErrStore, "CSVLibrary.UpsertAlbum", "album name cannot be empty", nil)
	}
	if err := album.Validate(); err != nil {
		return music.Wrap(music.ErrStore, "CSVLibrary.UpsertAlbum", "invalid album", err)
	}
	albums, err := d.GetAlbums(ctx)
	if err != nil {
		return err
	}
	replaced := false
	rows := make([][]string, 0, len(albums)+1)
	for _, a := range albums {
		if a.Name == album.Name {
			a = album
			replaced = true
		}
		rows = append(rows, albumRow(a))
	}
	if !replaced {
		rows = append(rows, albumRow(album))
	}
	if err := d.writeTable(d.albumsPath, albumColumns, rows); err != nil {
		return music.Wrap(music.ErrStore, "CSVLibrary.UpsertAlbum", d.albumsPath, err)
	}
	slog.Debug("Album upserted", "name", album.Name, "replaced", replaced)
	return nil
}

// readTable returns the header and data rows of path. A missing or empty file
// yields a nil header and no error. Cached rows are shared, callers must not mutate them.
func (d *CSVLibrary) readTable(ctx context.Context, path string) ([]string, [][]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		d.cache.Invalidate(path)
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, music.Wrap(music.ErrStore, "CSVLibrary.readTable", path, err)
	}
	if entry, ok := d.cache.get(path, info); ok {
		return entry.header, entry.rows, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, nil, music.Wrap(music.ErrStore, "CSVLibrary.readTable", path, err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	// FieldsPerRecord 0 makes every row match the header width.
	reader.FieldsPerRecord = 0
	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, music.Wrap(music.ErrStore, "CSVLibrary.readTable", path, err)
	}
	header[0] = strings.TrimPrefix(header[0], "\ufeff")
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}

	var rows [][]string
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, nil, music.Wrap(music.ErrStore, "CSVLibrary.readTable", path, err)
		}
		rows = append(rows, row)
	}
	d.cache.put(path, info, header, rows)
	slog.Debug("Table loaded", "path", path, "rows", len(rows))
	return header, rows, nil
}

// writeTable rewrites path with header and rows through a temp file and rename.
func (d *CSVLibrary) writeTable(path string, header []string, rows [][]string) error {
	defer d.cache.Invalidate(path)

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create table directory: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("failed to create temp table: %w", err)
	}
	defer os.Remove(tmp.Name())

	w := csv.NewWriter(tmp)
	if err := w.Write(header); err != nil {
		tmp.Close()
		return err
	}
	if err := w.WriteAll(rows); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to replace table: %w", err)
	}
	return nil
}
