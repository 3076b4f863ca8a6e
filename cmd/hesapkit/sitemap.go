package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"hesapkit.com/internal/i18n"
	"hesapkit.com/internal/sitemap"
)

func newSitemapCmd(opts *rootOptions) *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "sitemap",
		Short: "Write sitemaps, feeds and robots.txt to a directory",
		Long: "Writes the same sitemap.xml, sitemap-index.xml, image-sitemap.xml, " +
			"per-locale feeds and robots.txt the server generates, for static hosting.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			g := a.Sitemaps
			files := map[string]func() ([]byte, error){
				sitemap.SitemapPath:      g.Sitemap,
				sitemap.IndexPath:        g.Index,
				sitemap.ImageSitemapPath: g.Images,
				sitemap.RobotsPath:       func() ([]byte, error) { return g.Robots(), nil },
			}
			for _, l := range i18n.Locales {
				files[sitemap.FeedURL(l)] = func() ([]byte, error) { return g.Feed(l) }
			}

			for name, build := range files {
				data, err := build()
				if err != nil {
					return fmt.Errorf("building %s: %w", name, err)
				}
				path := filepath.Join(out, filepath.FromSlash(name))
				if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
					return err
				}
				if err := os.WriteFile(path, data, 0o644); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), path)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "public", "Output directory")
	return cmd
}
