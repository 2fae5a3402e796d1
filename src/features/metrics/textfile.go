package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "song_classifier"

// WriteTextfile writes data in the Prometheus text format, ready for the
// node_exporter textfile collector. The file is replaced atomically.
func WriteTextfile(filename string, data *MetricsData) error {
	reg := prometheus.NewRegistry()

	totals := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "records",
		Help:      "Number of records in the metadata tables.",
	}, []string{"kind"})
	totals.WithLabelValues("tracks").Set(float64(data.TotalTracks))
	totals.WithLabelValues("albums").Set(float64(data.TotalAlbums))
	totals.WithLabelValues("artists").Set(float64(data.TotalArtists))
	totals.WithLabelValues("compilations").Set(float64(data.Compilations))

	breakdowns := []struct {
		name, help, label string
		values            []Metric
	}{
		{"tracks_by_genre", "Tracks per genre.", "genre", data.GenreCounts},
		{"tracks_by_format", "Tracks per container format.", "format", data.FormatDistribution},
		{"tracks_by_year", "Tracks per release year.", "year", data.YearDistribution},
		{"tracks_by_completeness", "Tracks per metadata completeness state.", "state", data.MetadataCompleteness},
	}

	reg.MustRegister(totals)
	for _, b := range breakdowns {
		vec := prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      b.name,
			Help:      b.help,
		}, []string{b.label})
		for _, m := range b.values {
			vec.WithLabelValues(m.Key).Set(float64(m.Value))
		}
		reg.MustRegister(vec)
	}

	return prometheus.WriteToTextfile(filename, reg)
}
