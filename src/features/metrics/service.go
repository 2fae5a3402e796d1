package metrics

import (
	"context"
	"log/slog"
	"path"
	"sort"
	"strings"

	"github.com/contre95/song-classifier/src/music"
)

// Metric represents a single metric data point.
type Metric struct {
	Type  string `json:"type"`
	Key   string `json:"key"`
	Value int    `json:"value"`
}

// MetricsData holds the statistics of the record store.
type MetricsData struct {
	GenreCounts          []Metric `json:"genre_counts"`
	MetadataCompleteness []Metric `json:"metadata_completeness"`
	FormatDistribution   []Metric `json:"format_distribution"`
	YearDistribution     []Metric `json:"year_distribution"`
	TotalTracks          int      `json:"total_tracks"`
	TotalArtists         int      `json:"total_artists"`
	TotalAlbums          int      `json:"total_albums"`
	Compilations         int      `json:"compilations"`
}

// Service computes statistics over the record store.
type Service struct {
	library music.Library
}

// NewService creates a new metrics service.
func NewService(library music.Library) *Service {
	return &Service{library: library}
}

// GetAllMetrics reads both tables and aggregates them.
func (s *Service) GetAllMetrics(ctx context.Context) (*MetricsData, error) {
	tracks, err := s.library.GetTracks(ctx)
	if err != nil {
		return nil, err
	}
	albums, err := s.library.GetAlbums(ctx)
	if err != nil {
		return nil, err
	}

	genres := map[string]int{}
	formats := map[string]int{}
	years := map[string]int{}
	artists := map[string]struct{}{}
	completeness := map[string]int{"complete": 0, "missing_genre": 0, "missing_year": 0, "missing_album": 0}

	for _, t := range tracks {
		genre := strings.TrimSpace(t.Genre)
		if genre == "" {
			genre = "Unknown"
		}
		genres[genre]++

		format := strings.TrimPrefix(strings.ToLower(path.Ext(t.Key)), ".")
		if format == "" {
			format = "unknown"
		}
		formats[format]++

		if date := t.DateString(); len(date) >= 4 {
			years[date[:4]]++
		}
		if a := strings.TrimSpace(t.Artist); a != "" {
			artists[strings.ToLower(a)] = struct{}{}
		}

		missing := false
		if strings.TrimSpace(t.Genre) == "" {
			completeness["missing_genre"]++
			missing = true
		}
		if t.Date == nil {
			completeness["missing_year"]++
			missing = true
		}
		if strings.TrimSpace(t.Album.Name) == "" {
			completeness["missing_album"]++
			missing = true
		}
		if !missing {
			completeness["complete"]++
		}
	}

	data := &MetricsData{
		GenreCounts:          convertMapToMetrics(genres, "genre_counts"),
		MetadataCompleteness: convertMapToMetrics(completeness, "metadata_completeness"),
		FormatDistribution:   convertMapToMetrics(formats, "format_distribution"),
		YearDistribution:     convertMapToMetrics(years, "year_distribution"),
		TotalTracks:          len(tracks),
		TotalArtists:         len(artists),
		TotalAlbums:          len(albums),
	}
	for _, a := range albums {
		if a.IsCompilation() {
			data.Compilations++
		}
	}
	slog.Debug("Service.GetAllMetrics: computed", "tracks", data.TotalTracks, "albums", data.TotalAlbums)
	return data, nil
}

// convertMapToMetrics converts a map[string]int to []Metric, largest first.
func convertMapToMetrics(data map[string]int, metricType string) []Metric {
	metrics := make([]Metric, 0, len(data))
	for key, value := range data {
		metrics = append(metrics, Metric{
			Type:  metricType,
			Key:   key,
			Value: value,
		})
	}
	sort.Slice(metrics, func(i, j int) bool {
		if metrics[i].Value != metrics[j].Value {
			return metrics[i].Value > metrics[j].Value
		}
		return metrics[i].Key < metrics[j].Key
	})
	return metrics
}
