package tag

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/contre95/song-classifier/src/music"
)

// commentDescription names the ID3 comment frame that carries the processed marker.
const commentDescription = "song-classifier"

type format int

const (
	formatMP3 format = iota
	formatFLAC
	formatOgg
	formatOther
)

func detectFormat(filePath string) (format, error) {
	switch strings.ToLower(filepath.Ext(filePath)) {
	case ".mp3":
		return formatMP3, nil
	case ".flac":
		return formatFLAC, nil
	case ".ogg", ".opus":
		return formatOgg, nil
	case ".m4a", ".mp4", ".wav", ".aiff", ".aif":
		return formatOther, nil
	default:
		return 0, music.Wrap(music.ErrUnsupportedFormat, "tag.detectFormat", filepath.Ext(filePath), nil)
	}
}

// taglibOnly reports containers dhowden/tag cannot identify.
func taglibOnly(filePath string) bool {
	switch strings.ToLower(filepath.Ext(filePath)) {
	case ".wav", ".aiff", ".aif":
		return true
	}
	return false
}

// oggCodec reads the first Ogg page and reports "opus" when it carries an
// OpusHead packet, otherwise "vorbis" when it carries a Vorbis identification header.
func oggCodec(filePath string) (string, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return "", err
	}
	defer f.Close()

	head := make([]byte, 128)
	n, err := io.ReadFull(f, head)
	if err != nil && err != io.ErrUnexpectedEOF {
		return "", err
	}
	head = head[:n]
	if !bytes.HasPrefix(head, []byte("OggS")) {
		return "", fmt.Errorf("%s is not an Ogg container", filePath)
	}
	if bytes.Contains(head, []byte("OpusHead")) {
		return "opus", nil
	}
	if bytes.Contains(head, []byte("\x01vorbis")) {
		return "vorbis", nil
	}
	return "", fmt.Errorf("%s has neither an Opus nor a Vorbis stream", filePath)
}

// mergeComments keeps every existing comment and appends the processed marker once.
func mergeComments(existing []string) []string {
	merged := make([]string, 0, len(existing)+1)
	for _, c := range existing {
		if strings.TrimSpace(c) != "" {
			merged = append(merged, c)
		}
	}
	if !containsMarker(merged) {
		merged = append(merged, music.ProcessedMarker)
	}
	return merged
}

func containsMarker(comments []string) bool {
	return slices.ContainsFunc(comments, func(c string) bool {
		return strings.Contains(c, music.ProcessedMarker)
	})
}
