package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/contre95/song-classifier/src/features/metrics"
)

func newStatsCommand(ctx *commandContext) *cobra.Command {
	var textfile string

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Summarize the metadata tables",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			library, err := ctx.library()
			if err != nil {
				return err
			}
			data, err := metrics.NewService(library).GetAllMetrics(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, renderTable([]string{"Records", "Count"}, [][]string{
				{"Tracks", strconv.Itoa(data.TotalTracks)},
				{"Albums", strconv.Itoa(data.TotalAlbums)},
				{"Artists", strconv.Itoa(data.TotalArtists)},
				{"Compilations", strconv.Itoa(data.Compilations)},
			}, []columnAlignment{alignLeft, alignRight}))
			for _, section := range []struct {
				title  string
				values []metrics.Metric
			}{
				{"Genre", data.GenreCounts},
				{"Format", data.FormatDistribution},
				{"Year", data.YearDistribution},
				{"Completeness", data.MetadataCompleteness},
			} {
				if len(section.values) == 0 {
					continue
				}
				fmt.Fprintln(out, renderTable([]string{section.title, "Tracks"}, metricRows(section.values), []columnAlignment{alignLeft, alignRight}))
			}

			if textfile != "" {
				if err := metrics.WriteTextfile(textfile, data); err != nil {
					return fmt.Errorf("write metrics textfile: %w", err)
				}
				fmt.Fprintf(out, "Wrote metrics to %s\n", textfile)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&textfile, "textfile", "", "Also write the statistics in Prometheus text format to this file")
	return cmd
}

func metricRows(values []metrics.Metric) [][]string {
	rows := make([][]string, 0, len(values))
	for _, m := range values {
		rows = append(rows, []string{m.Key, strconv.Itoa(m.Value)})
	}
	return rows
}
