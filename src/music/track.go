package music

import (
	"fmt"
	"regexp"
	"strings"
)

// ProcessedMarker is stamped into an asset's comment tag once it has been classified.
// Older and newer runs recognise each other's work through this exact string.
const ProcessedMarker = "Processed by song-classifier"

var isoDate = regexp.MustCompile(`^\d{4}(-\d{2}(-\d{2})?)?$`)

// Track is the ledger entry for one audio asset.
// Key is the asset path relative to the scanned root, always slash separated.
type Track struct {
	Key    string
	Title  string
	Artist string
	Album  Album
	Genre  string
	// Date is nil when unknown, never an empty string.
	Date *string
}

// NewDate returns a Date value for a track, mapping blank input to nil.
func NewDate(value string) *string {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	return &value
}

// DateString returns the date or an empty string when it is unknown.
func (t *Track) DateString() string {
	if t.Date == nil {
		return ""
	}
	return *t.Date
}

// Clone returns a deep copy of the track.
func (t *Track) Clone() *Track {
	if t == nil {
		return nil
	}
	cp := *t
	if t.Date != nil {
		cp.Date = NewDate(*t.Date)
	}
	return &cp
}

// Equal reports whether both tracks carry the same values.
func (t *Track) Equal(other *Track) bool {
	if t == nil || other == nil {
		return t == other
	}
	if (t.Date == nil) != (other.Date == nil) {
		return false
	}
	if t.Date != nil && *t.Date != *other.Date {
		return false
	}
	return t.Key == other.Key &&
		t.Title == other.Title &&
		t.Artist == other.Artist &&
		t.Album == other.Album &&
		t.Genre == other.Genre
}

// Validate validates the track fields.
func (t *Track) Validate() error {
	if strings.TrimSpace(t.Key) == "" {
		return fmt.Errorf("track key cannot be empty")
	}
	if len(t.Key) > 1000 {
		return fmt.Errorf("track key cannot exceed 1000 characters, got %d: key -> %s", len(t.Key), t.Key)
	}
	if t.Date != nil && !isoDate.MatchString(*t.Date) {
		return fmt.Errorf("date must be ISO-8601 (yyyy, yyyy-mm or yyyy-mm-dd): date -> %q", *t.Date)
	}
	if err := t.Album.Validate(); err != nil {
		return fmt.Errorf("invalid album in track: %w", err)
	}
	return nil
}

// IsISODate reports whether value is a year, year-month or full ISO-8601 date.
func IsISODate(value string) bool {
	return isoDate.MatchString(value)
}
