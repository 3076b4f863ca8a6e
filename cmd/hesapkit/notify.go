package main

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"hesapkit.com/internal/indexing"
)

const (
	targetIndexNow = "indexnow"
	targetGoogle   = "google"
	targetAll      = "all"
)

var errNothingAccepted = errors.New("no search engine accepted the submission")

func newNotifyCmd(opts *rootOptions) *cobra.Command {
	var (
		target  string
		deleted bool
	)
	cmd := &cobra.Command{
		Use:   "notify [url...]",
		Short: "Submit URLs to IndexNow and the Google Indexing API",
		Long:  "Submits the given URLs, or every sitemap URL when none are given, and prints the report as JSON.",
		RunE: func(cmd *cobra.Command, args []string) error {
			switch target {
			case targetIndexNow, targetGoogle, targetAll:
			default:
				return fmt.Errorf("unknown target %q", target)
			}
			a, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			urls := args
			if len(urls) == 0 {
				urls = a.Sitemaps.URLs()
			}
			if urls, err = indexing.CheckURLs(a.Config.BaseURL, urls); err != nil {
				return err
			}

			var jobs []indexing.Job
			if target == targetIndexNow || target == targetAll {
				if a.IndexNow == nil {
					if target == targetIndexNow {
						return errors.New("indexnow is not configured: set indexing.indexnow_key")
					}
				} else if !deleted {
					jobs = append(jobs, a.IndexNow.Jobs(urls)...)
				}
			}
			if target == targetGoogle || target == targetAll {
				if a.Google == nil {
					if target == targetGoogle {
						return errors.New("google indexing is not configured: set indexing.google_credentials")
					}
				} else {
					jobs = append(jobs, a.Google.Jobs(urls, deleted)...)
				}
			}
			if len(jobs) == 0 {
				return errors.New("nothing to notify")
			}

			report := a.Notifier.Notify(cmd.Context(), jobs)
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if err := enc.Encode(report); err != nil {
				return err
			}
			if !report.AnySucceeded() {
				return errNothingAccepted
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&target, "target", "t", targetAll, fmt.Sprintf("Where to submit (%s|%s|%s)", targetIndexNow, targetGoogle, targetAll))
	cmd.Flags().BoolVar(&deleted, "deleted", false, "Report the URLs as removed (Google only)")
	return cmd
}
