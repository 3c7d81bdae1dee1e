package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/eringen/spacetraveling"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Shows the latest build and the pages it produced",
	RunE: func(cmd *cobra.Command, args []string) error {
		m, err := spacetraveling.OpenManifest(siteConfig.ManifestPath)
		if err != nil {
			return err
		}
		defer m.Close()

		out := cmd.OutOrStdout()
		b, err := m.LatestBuild(cmd.Context())
		if errors.Is(err, spacetraveling.ErrNoBuild) {
			fmt.Fprintln(out, "No build recorded yet.")
			return nil
		}
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Build %s: %s, started %s\n", b.ID, b.Status, b.StartedAt.Format("2006-01-02 15:04:05"))
		if b.Error != "" {
			fmt.Fprintf(out, "  error: %s\n", b.Error)
		}

		pages, err := m.Pages(cmd.Context())
		if err != nil {
			return err
		}
		bySource := map[string]int{}
		for _, p := range pages {
			bySource[p.Source]++
		}
		fmt.Fprintf(out, "Pages: %d built, %d generated on demand\n",
			bySource[spacetraveling.SourceBuild], bySource[spacetraveling.SourceFallback])
		return nil
	},
}
