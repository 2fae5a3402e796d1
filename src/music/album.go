package music

import (
	"fmt"
	"strings"
)

// VariousArtistsName is the album artist used for compilation albums.
const VariousArtistsName = "Various Artists"

// Album is a named collection of tracks. Tracks embed a copy of it, so later
// album edits do not reach tracks that were already recorded.
type Album struct {
	Name   string
	Artist string
}

// IsCompilation reports whether the album is credited to various artists.
func (a Album) IsCompilation() bool {
	return strings.EqualFold(strings.TrimSpace(a.Artist), VariousArtistsName)
}

// Validate validates the album fields.
func (a Album) Validate() error {
	if len(a.Name) > 500 {
		return fmt.Errorf("album name cannot exceed 500 characters")
	}
	if len(a.Artist) > 500 {
		return fmt.Errorf("album artist cannot exceed 500 characters")
	}
	return nil
}
