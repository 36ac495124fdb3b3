package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newRobotsCmd() *cobra.Command {
	var cid int
	cmd := &cobra.Command{
		Use:   "robots",
		Short: "Fetches robots.txt and reports whether detail pages may be scraped",
		RunE: func(cmd *cobra.Command, _ []string) error {
			appInstance, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}
			pageURL := appInstance.PageURL(cid)
			report, err := appInstance.Robots().Fetch(cmd.Context(), pageURL)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s (status %d)\n", report.URL, report.StatusCode)
			fmt.Fprintf(out, "agent %q allowed %s: %t\n", report.UserAgent, pageURL, report.Allowed(pageURL))
			if d := report.CrawlDelay(); d > 0 {
				fmt.Fprintf(out, "crawl-delay: %s\n", d)
			}
			if report.Body != "" {
				fmt.Fprintf(out, "\n%s", report.Body)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&cid, "cid", 1, "CID whose detail page path is tested")
	return cmd
}
