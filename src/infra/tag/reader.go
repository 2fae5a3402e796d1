package tag

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/bogem/id3v2/v2"
	"github.com/contre95/song-classifier/src/features/classifying"
	"github.com/contre95/song-classifier/src/music"
	"github.com/dhowden/tag"
	"github.com/go-flac/flacvorbis"
	goflac "github.com/go-flac/go-flac"
	"go.senan.xyz/taglib"
)

// TagReader reads existing tags with dhowden/tag and falls back to TagLib for
// containers it does not understand.
type TagReader struct{}

// NewTagReader creates a new TagReader
func NewTagReader() classifying.TagReader {
	return &TagReader{}
}

// ReadFileTags returns the descriptive tags of filePath, or nil when it has none.
func (r *TagReader) ReadFileTags(ctx context.Context, filePath string) (*music.Track, error) {
	if _, err := detectFormat(filePath); err != nil {
		return nil, err
	}
	if taglibOnly(filePath) {
		track, err := r.readWithTaglib(filePath)
		if err != nil {
			return nil, music.Wrap(music.ErrAsset, "TagReader.ReadFileTags", filePath, err)
		}
		return track, nil
	}
	track, err := r.readWithTag(filePath)
	if err == nil {
		return track, nil
	}
	if errors.Is(err, tag.ErrNoTagsFound) {
		return nil, nil
	}
	slog.Debug("TagReader.ReadFileTags: falling back to taglib", "path", filePath, "error", err)
	track, fallbackErr := r.readWithTaglib(filePath)
	if fallbackErr != nil {
		return nil, music.Wrap(music.ErrAsset, "TagReader.ReadFileTags", filePath, errors.Join(err, fallbackErr))
	}
	return track, nil
}

func (r *TagReader) readWithTag(filePath string) (*music.Track, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	tags, err := tag.ReadFrom(file)
	if err != nil {
		return nil, err
	}
	var date string
	if tags.Year() > 0 {
		date = fmt.Sprintf("%04d", tags.Year())
	}
	return buildTrack(tags.Title(), tags.Artist(), tags.Album(), tags.AlbumArtist(), tags.Genre(), date), nil
}

func (r *TagReader) readWithTaglib(filePath string) (*music.Track, error) {
	tags, err := taglib.ReadTags(filePath)
	if err != nil {
		return nil, err
	}
	first := func(key string) string {
		if values := tags[key]; len(values) > 0 {
			return values[0]
		}
		return ""
	}
	return buildTrack(first(taglib.Title), first(taglib.Artist), first(taglib.Album),
		first(taglib.AlbumArtist), first(taglib.Genre), first(taglib.Date)), nil
}

// buildTrack returns nil when every field is blank. The album artist falls back to the artist.
func buildTrack(title, artist, album, albumArtist, genre, date string) *music.Track {
	title, artist, album = strings.TrimSpace(title), strings.TrimSpace(artist), strings.TrimSpace(album)
	albumArtist, genre, date = strings.TrimSpace(albumArtist), strings.TrimSpace(genre), strings.TrimSpace(date)
	if title == "" && artist == "" && album == "" && albumArtist == "" && genre == "" && date == "" {
		return nil
	}
	if albumArtist == "" {
		albumArtist = artist
	}
	return &music.Track{
		Title:  title,
		Artist: artist,
		Album:  music.Album{Name: album, Artist: albumArtist},
		Genre:  genre,
		Date:   music.NewDate(date),
	}
}

// HasMarker reports whether a comment tag of filePath carries the processed marker.
func (r *TagReader) HasMarker(ctx context.Context, filePath string) (bool, error) {
	f, err := detectFormat(filePath)
	if err != nil {
		return false, err
	}
	var comments []string
	switch f {
	case formatMP3:
		comments, err = mp3Comments(filePath)
	case formatFLAC:
		comments, err = flacComments(filePath)
	default:
		comments, err = taglibComments(filePath)
	}
	if err != nil {
		return false, music.Wrap(music.ErrAsset, "TagReader.HasMarker", filePath, err)
	}
	return containsMarker(comments), nil
}

func mp3Comments(filePath string) ([]string, error) {
	t, err := id3v2.Open(filePath, id3v2.Options{Parse: true, ParseFrames: []string{"Comments"}})
	if err != nil {
		return nil, err
	}
	defer t.Close()

	var comments []string
	for _, frame := range t.GetFrames(t.CommonID("Comments")) {
		if cf, ok := frame.(id3v2.CommentFrame); ok {
			comments = append(comments, cf.Text)
		}
	}
	return comments, nil
}

func flacComments(filePath string) ([]string, error) {
	f, err := goflac.ParseFile(filePath)
	if err != nil {
		return nil, err
	}
	for _, meta := range f.Meta {
		if meta.Type != goflac.VorbisComment {
			continue
		}
		cmts, err := flacvorbis.ParseFromMetaDataBlock(*meta)
		if err != nil {
			return nil, err
		}
		return cmts.Get("COMMENT")
	}
	return nil, nil
}

func taglibComments(filePath string) ([]string, error) {
	tags, err := taglib.ReadTags(filePath)
	if err != nil {
		return nil, err
	}
	return tags[taglib.Comment], nil
}
