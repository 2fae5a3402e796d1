package inference

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/contre95/song-classifier/src/music"
)

type albumPayload struct {
	Name   string `json:"name"`
	Artist string `json:"artist"`
}

type trackPayload struct {
	Track  string       `json:"track"`
	Artist string       `json:"artist"`
	Album  albumPayload `json:"album"`
	Genre  string       `json:"genre"`
	Date   *string      `json:"date"`
}

const promptRules = `You are a music metadata expert. Given an audio filename, infer the most likely track metadata.
Return STRICT JSON only with this exact schema and no extra keys:
{
  "track": string,
  "artist": string,
  "album": { "name": string, "artist": string },
  "genre": string,
  "date": string | null  // ISO-8601 yyyy or yyyy-mm-dd if known, else null
}

Album selection rules (do NOT guess from filename beyond these rules):
- If the content is a festival/event, the album should be the festival name with the year (e.g., 'Coachella 2022'). The album artist is 'Various Artists'.
- If the content is part of an ongoing series (e.g., 'Radio 1 Essential Mix', 'Radio 1 Dance Presents'), the album should be that series name (no year), album artist 'Various Artists'.
- Otherwise, for a single-artist set/event, use '{Artist} Sets' as the album name and set album artist to that artist.
- If your chosen album name exactly matches one of the known albums provided, use that name and its album artist as-is.

Track title rules:
- If the content is a festival/event, set the track title to exactly the artist name (no venue/city/year in the title).
- If the content is part of a series (e.g., 'Essential Mix'), set the track title to '{Artist} {Year}' if a year is known, otherwise just '{Artist}'.
- Otherwise, choose a concise, human-friendly title; avoid repeating the album name in the track title.
`

const promptHeuristics = `Heuristics:
- Normalize separators like underscores and dashes to spaces.
- If city/country/year present, consider it for date or parentheses in track.
- If artist is unclear, infer the most probable from the string tokens.
- Prefer widely used genre bucket (e.g., 'House', 'Techno', 'Pop').
- If truly unknown, use null or a plausible guess rather than placeholders.
`

func buildPrompt(filename string, existing *music.Track, known []*music.Album) (string, error) {
	albums := make([]albumPayload, 0, len(known))
	for _, a := range known {
		albums = append(albums, albumPayload{Name: a.Name, Artist: a.Artist})
	}
	knownJSON, err := json.Marshal(albums)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	b.WriteString(promptRules)
	fmt.Fprintf(&b, "\nKnown albums: %s\n\n", knownJSON)
	b.WriteString(promptHeuristics)
	fmt.Fprintf(&b, "\nFilename: %s\n", filename)
	if existing != nil {
		existingJSON, err := json.Marshal(toPayload(existing))
		if err != nil {
			return "", err
		}
		fmt.Fprintf(&b, "Existing tags (may be empty):\n%s\n\n", existingJSON)
	}
	b.WriteString("Output: JSON only.")
	return b.String(), nil
}

func toPayload(t *music.Track) trackPayload {
	return trackPayload{
		Track:  t.Title,
		Artist: t.Artist,
		Album:  albumPayload{Name: t.Album.Name, Artist: t.Album.Artist},
		Genre:  t.Genre,
		Date:   t.Date,
	}
}
