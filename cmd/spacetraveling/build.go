package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Generates the static site",
	Long: `The build command fetches every post from the content API and renders the
home page, each post page, the sitemap, the feed and a 404 page into the
output directory. The previous output is replaced.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		app := newApp()
		defer app.Close()

		res, err := app.Build(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Built %d pages (%d posts) into %s in %s [%s]\n",
			res.Pages, res.Posts, siteConfig.OutputDir, res.Duration.Round(time.Millisecond), res.ID)
		return nil
	},
}
