package database

import (
	"fmt"
	"slices"

	"github.com/contre95/song-classifier/src/music"
)

var (
	trackColumns       = []string{"key", "track", "artist", "album_name", "album_artist", "genre", "date"}
	legacyTrackColumns = []string{"key", "track", "artist", "album", "genre", "date"}
	albumColumns       = []string{"name", "artist"}
)

// columnIndex maps each required column to its position in header.
func columnIndex(header, required []string) (map[string]int, error) {
	index := make(map[string]int, len(required))
	for _, col := range required {
		pos := slices.Index(header, col)
		if pos < 0 {
			return nil, fmt.Errorf("missing column %q in header %v", col, header)
		}
		index[col] = pos
	}
	return index, nil
}

// trackDecoder picks the row decoder from the header. The header decides the
// schema for the whole file: album_name means current, album alone means legacy.
func trackDecoder(header []string) (func([]string) *music.Track, error) {
	if slices.Contains(header, "album_name") || !slices.Contains(header, "album") {
		idx, err := columnIndex(header, trackColumns)
		if err != nil {
			return nil, err
		}
		return func(row []string) *music.Track {
			return &music.Track{
				Key:    row[idx["key"]],
				Title:  row[idx["track"]],
				Artist: row[idx["artist"]],
				Album:  music.Album{Name: row[idx["album_name"]], Artist: row[idx["album_artist"]]},
				Genre:  row[idx["genre"]],
				Date:   music.NewDate(row[idx["date"]]),
			}
		}, nil
	}
	idx, err := columnIndex(header, legacyTrackColumns)
	if err != nil {
		return nil, err
	}
	return func(row []string) *music.Track {
		artist := row[idx["artist"]]
		return &music.Track{
			Key:    row[idx["key"]],
			Title:  row[idx["track"]],
			Artist: artist,
			Album:  music.Album{Name: row[idx["album"]], Artist: artist},
			Genre:  row[idx["genre"]],
			Date:   music.NewDate(row[idx["date"]]),
		}
	}, nil
}

func trackRow(t *music.Track) []string {
	return []string{t.Key, t.Title, t.Artist, t.Album.Name, t.Album.Artist, t.Genre, t.DateString()}
}

func albumDecoder(header []string) (func([]string) *music.Album, error) {
	idx, err := columnIndex(header, albumColumns)
	if err != nil {
		return nil, err
	}
	return func(row []string) *music.Album {
		return &music.Album{Name: row[idx["name"]], Artist: row[idx["artist"]]}
	}, nil
}

func albumRow(a *music.Album) []string {
	return []string{a.Name, a.Artist}
}
