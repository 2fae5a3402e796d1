package inference

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/contre95/song-classifier/src/music"
)

// decodeTrack turns the model output into a record keyed by key. Missing fields
// become empty strings, the album artist falls back to the artist and a date that
// is not ISO-8601 is dropped.
func decodeTrack(key, content string) (*music.Track, error) {
	payload := extractJSON(content)
	if payload == "" {
		return nil, errors.New("empty payload")
	}
	var parsed struct {
		Track  string `json:"track"`
		Artist string `json:"artist"`
		Album  *struct {
			Name   string `json:"name"`
			Artist string `json:"artist"`
		} `json:"album"`
		Genre string  `json:"genre"`
		Date  *string `json:"date"`
	}
	if err := json.Unmarshal([]byte(payload), &parsed); err != nil {
		return nil, fmt.Errorf("%w (payload snippet: %s)", err, snippet(content))
	}

	track := &music.Track{
		Key:    key,
		Title:  strings.TrimSpace(parsed.Track),
		Artist: strings.TrimSpace(parsed.Artist),
		Genre:  strings.TrimSpace(parsed.Genre),
	}
	if parsed.Album != nil {
		track.Album = music.Album{Name: strings.TrimSpace(parsed.Album.Name), Artist: strings.TrimSpace(parsed.Album.Artist)}
	}
	if track.Album.Artist == "" {
		track.Album.Artist = track.Artist
	}
	if track.Artist == "" {
		track.Artist = track.Album.Artist
	}
	if parsed.Date != nil {
		if date := music.NewDate(*parsed.Date); date != nil && music.IsISODate(*date) {
			track.Date = date
		} else if date != nil {
			slog.Debug("Dropping non ISO-8601 date from model", "key", key, "date", *date)
		}
	}
	return track, nil
}

// extractJSON strips markdown fences and falls back to the outermost object.
func extractJSON(content string) string {
	trimmed := strings.TrimSpace(content)
	if strings.HasPrefix(trimmed, "```") {
		body := strings.TrimPrefix(trimmed, "```")
		if nl := strings.IndexByte(body, '\n'); nl >= 0 {
			body = body[nl+1:]
		}
		body = strings.TrimSuffix(strings.TrimSpace(body), "```")
		trimmed = strings.TrimSpace(body)
	}
	if strings.HasPrefix(trimmed, "{") && strings.HasSuffix(trimmed, "}") {
		return trimmed
	}
	start := strings.Index(trimmed, "{")
	end := strings.LastIndex(trimmed, "}")
	if start >= 0 && end > start {
		return trimmed[start : end+1]
	}
	return trimmed
}

func snippet(content string) string {
	clean := strings.Join(strings.Fields(content), " ")
	if clean == "" {
		return "<empty>"
	}
	const limit = 160
	if runes := []rune(clean); len(runes) > limit {
		return string(runes[:limit]) + "..."
	}
	return clean
}
