package tag

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/bogem/id3v2/v2"
	"github.com/contre95/song-classifier/src/features/classifying"
	"github.com/contre95/song-classifier/src/music"
	"github.com/go-flac/flacvorbis"
	goflac "github.com/go-flac/go-flac"
	"go.senan.xyz/taglib"
)

// TagWriter writes the confirmed record into MP3, FLAC and every TagLib supported container.
type TagWriter struct{}

// NewTagWriter creates a new TagWriter.
func NewTagWriter() classifying.TagWriter {
	return &TagWriter{}
}

// WriteFileTags writes metadata to the file and stamps the processed marker.
func (t *TagWriter) WriteFileTags(ctx context.Context, filePath string, track *music.Track) error {
	f, err := detectFormat(filePath)
	if err != nil {
		return err
	}
	switch f {
	case formatMP3:
		err = t.tagMP3(filePath, track)
	case formatFLAC:
		err = t.tagFLAC(filePath, track)
	case formatOgg:
		var codec string
		if codec, err = oggCodec(filePath); err == nil {
			slog.Debug("Detected Ogg stream", "path", filePath, "codec", codec)
			err = t.tagWithTaglib(filePath, track)
		}
	default:
		err = t.tagWithTaglib(filePath, track)
	}
	if err != nil {
		return music.Wrap(music.ErrAsset, "TagWriter.WriteFileTags", filePath, err)
	}
	slog.Debug("Tagged file", "path", filePath, "title", track.Title)
	return nil
}

// tagMP3 handles MP3 tagging using id3v2.
func (t *TagWriter) tagMP3(filePath string, track *music.Track) error {
	tag, err := id3v2.Open(filePath, id3v2.Options{Parse: true})
	if err != nil {
		return fmt.Errorf("failed to open MP3 file for tagging: %w", err)
	}
	defer tag.Close()

	tag.SetDefaultEncoding(id3v2.EncodingUTF8)
	tag.SetTitle(track.Title)
	tag.SetArtist(track.Artist)
	tag.SetAlbum(track.Album.Name)
	tag.AddTextFrame("TPE2", id3v2.EncodingUTF8, track.Album.Artist)
	tag.SetGenre(track.Genre)
	if track.Date != nil {
		tag.SetYear(*track.Date)
	} else {
		tag.DeleteFrames(tag.CommonID("Year"))
	}

	var existing []string
	for _, frame := range tag.GetFrames(tag.CommonID("Comments")) {
		if cf, ok := frame.(id3v2.CommentFrame); ok {
			existing = append(existing, cf.Text)
		}
	}
	if !containsMarker(existing) {
		tag.AddCommentFrame(id3v2.CommentFrame{
			Encoding:    id3v2.EncodingUTF8,
			Language:    "eng",
			Description: commentDescription,
			Text:        music.ProcessedMarker,
		})
	}

	if err := tag.Save(); err != nil {
		return fmt.Errorf("failed to save MP3 tags: %w", err)
	}
	return nil
}

// replacedVorbisFields are rewritten on every tag pass. Other fields are kept as they are.
var replacedVorbisFields = []string{
	flacvorbis.FIELD_TITLE,
	flacvorbis.FIELD_ARTIST,
	flacvorbis.FIELD_ALBUM,
	"ALBUMARTIST",
	flacvorbis.FIELD_GENRE,
	flacvorbis.FIELD_DATE,
	"COMMENT",
}

// tagFLAC handles FLAC tagging using Vorbis comments.
func (t *TagWriter) tagFLAC(filePath string, track *music.Track) error {
	f, err := goflac.ParseFile(filePath)
	if err != nil {
		return fmt.Errorf("failed to parse FLAC file: %w", err)
	}

	var vorbisComment *flacvorbis.MetaDataBlockVorbisComment
	commentIndex := -1
	for idx, meta := range f.Meta {
		if meta.Type == goflac.VorbisComment {
			vorbisComment, err = flacvorbis.ParseFromMetaDataBlock(*meta)
			if err != nil {
				return fmt.Errorf("failed to parse Vorbis comment: %w", err)
			}
			commentIndex = idx
			break
		}
	}
	if vorbisComment == nil {
		vorbisComment = flacvorbis.New()
	}

	existingComments, _ := vorbisComment.Get("COMMENT")
	kept := vorbisComment.Comments[:0]
	for _, c := range vorbisComment.Comments {
		if !isReplacedField(c) {
			kept = append(kept, c)
		}
	}
	vorbisComment.Comments = kept

	add := func(field, value string) error {
		if value == "" {
			return nil
		}
		return vorbisComment.Add(field, value)
	}
	for _, kv := range [][2]string{
		{flacvorbis.FIELD_TITLE, track.Title},
		{flacvorbis.FIELD_ARTIST, track.Artist},
		{flacvorbis.FIELD_ALBUM, track.Album.Name},
		{"ALBUMARTIST", track.Album.Artist},
		{flacvorbis.FIELD_GENRE, track.Genre},
		{flacvorbis.FIELD_DATE, track.DateString()},
	} {
		if err := add(kv[0], kv[1]); err != nil {
			return fmt.Errorf("failed to set %s: %w", kv[0], err)
		}
	}
	for _, c := range mergeComments(existingComments) {
		if err := vorbisComment.Add("COMMENT", c); err != nil {
			return fmt.Errorf("failed to set COMMENT: %w", err)
		}
	}

	commentMeta := vorbisComment.Marshal()
	if commentIndex >= 0 {
		f.Meta[commentIndex] = &commentMeta
	} else {
		f.Meta = append(f.Meta, &commentMeta)
	}

	if err := f.Save(filePath); err != nil {
		return fmt.Errorf("failed to save FLAC file: %w", err)
	}
	return nil
}

func isReplacedField(comment string) bool {
	key, _, ok := strings.Cut(comment, "=")
	if !ok {
		return false
	}
	for _, field := range replacedVorbisFields {
		if strings.EqualFold(key, field) {
			return true
		}
	}
	return false
}

// tagWithTaglib covers MP4, Ogg Opus, Ogg Vorbis, WAV and AIFF. Only the given keys are touched.
func (t *TagWriter) tagWithTaglib(filePath string, track *music.Track) error {
	current, err := taglib.ReadTags(filePath)
	if err != nil {
		return fmt.Errorf("failed to read tags: %w", err)
	}
	tags := map[string][]string{
		taglib.Title:       values(track.Title),
		taglib.Artist:      values(track.Artist),
		taglib.Album:       values(track.Album.Name),
		taglib.AlbumArtist: values(track.Album.Artist),
		taglib.Genre:       values(track.Genre),
		taglib.Date:        values(track.DateString()),
		taglib.Comment:     mergeComments(current[taglib.Comment]),
	}
	if err := taglib.WriteTags(filePath, tags, 0); err != nil {
		return fmt.Errorf("failed to write tags: %w", err)
	}
	return nil
}

// values maps an empty field to nil so TagLib removes it.
func values(v string) []string {
	if v == "" {
		return nil
	}
	return []string{v}
}
