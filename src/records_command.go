package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"
)

func newRecordsCommand(ctx *commandContext) *cobra.Command {
	var albums bool

	cmd := &cobra.Command{
		Use:   "records",
		Short: "List the tracks (or albums) in the metadata tables",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			library, err := ctx.library()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			if albums {
				list, err := library.GetAlbums(cmd.Context())
				if err != nil {
					return err
				}
				if len(list) == 0 {
					fmt.Fprintln(out, "No albums recorded")
					return nil
				}
				sort.Slice(list, func(i, j int) bool { return list[i].Name < list[j].Name })
				rows := make([][]string, 0, len(list))
				for _, a := range list {
					rows = append(rows, []string{a.Name, a.Artist})
				}
				fmt.Fprintln(out, renderTable([]string{"Album", "Artist"}, rows, nil))
				return nil
			}

			tracks, err := library.GetTracks(cmd.Context())
			if err != nil {
				return err
			}
			if len(tracks) == 0 {
				fmt.Fprintln(out, "No tracks recorded")
				return nil
			}
			sort.Slice(tracks, func(i, j int) bool { return tracks[i].Key < tracks[j].Key })
			rows := make([][]string, 0, len(tracks))
			for _, t := range tracks {
				rows = append(rows, []string{t.Key, t.Title, t.Artist, t.Album.Name, t.Album.Artist, t.Genre, t.DateString()})
			}
			fmt.Fprintln(out, renderTable([]string{"Key", "Track", "Artist", "Album", "Album artist", "Genre", "Date"}, rows, nil))
			fmt.Fprintf(out, "%d tracks\n", len(tracks))
			return nil
		},
	}

	cmd.Flags().BoolVar(&albums, "albums", false, "List albums instead of tracks")
	return cmd
}
