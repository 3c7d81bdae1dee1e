package main

import (
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/eringen/spacetraveling/posts"
	"github.com/eringen/spacetraveling/prismic"
)

var postsLimit int

var postsCmd = &cobra.Command{
	Use:   "posts",
	Short: "Lists published posts page by page",
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := newPostService()
		if err != nil {
			return err
		}

		page := svc.NewPage()
		if _, err := page.LoadInitialPage(cmd.Context()); err != nil {
			return err
		}
		for page.HasMore() && (postsLimit <= 0 || len(page.Posts()) < postsLimit) {
			if _, err := page.LoadNextPage(cmd.Context()); err != nil {
				return err
			}
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "DATE\tSLUG\tTITLE\tAUTHOR")
		for i, s := range page.Posts() {
			if postsLimit > 0 && i >= postsLimit {
				break
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", s.Date, s.Slug, s.Title, s.Author)
		}
		return w.Flush()
	},
}

var postCmd = &cobra.Command{
	Use:   "post <slug>",
	Short: "Shows one post with its reading time",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := newPostService()
		if err != nil {
			return err
		}

		d, err := svc.LoadPostBySlug(cmd.Context(), args[0])
		if errors.Is(err, posts.ErrNotFound) {
			return fmt.Errorf("no post with slug %q", args[0])
		}
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintln(out, d.Title)
		if d.Subtitle != "" {
			fmt.Fprintln(out, d.Subtitle)
		}
		fmt.Fprintf(out, "%s · %s · %d min\n", svc.Dates().Format(d.FirstPublicationDate), d.Author, posts.ReadingTime(d))
		for _, block := range d.Content {
			fmt.Fprintf(out, "\n## %s\n", block.Header)
			for _, seg := range block.Body {
				fmt.Fprintf(out, "%s\n", seg.Text)
			}
		}
		return nil
	},
}

func init() {
	postsCmd.Flags().IntVar(&postsLimit, "limit", 0, "stop after this many posts (0 lists all)")
}

func newPostService() (*posts.Service, error) {
	if siteConfig.ContentAPI == "" {
		return nil, errors.New("content.api is required")
	}
	dates, err := posts.ParseDateFormatter(siteConfig.Locale, siteConfig.TimeZone)
	if err != nil {
		return nil, err
	}
	client := prismic.New(siteConfig.ContentAPI,
		prismic.WithAccessToken(siteConfig.AccessToken),
		prismic.WithTimeout(siteConfig.APITimeout),
	)
	return posts.NewService(client, dates, siteConfig.PageSize), nil
}
