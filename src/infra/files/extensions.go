package files

import (
	"path"
	"strings"
)

var supportedExtensions = map[string]bool{
	".mp3":  true,
	".flac": true,
	".m4a":  true,
	".mp4":  true,
	".opus": true,
	".ogg":  true,
	".wav":  true,
	".aiff": true,
	".aif":  true,
}

// IsAudioFile reports whether name has a recognised audio extension, ignoring case.
func IsAudioFile(name string) bool {
	return supportedExtensions[strings.ToLower(path.Ext(name))]
}
