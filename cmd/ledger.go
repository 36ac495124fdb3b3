package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newLedgerCmd() *cobra.Command {
	var pending bool
	cmd := &cobra.Command{
		Use:   "ledger",
		Short: "Summarizes the ledger",
		RunE: func(cmd *cobra.Command, _ []string) error {
			appInstance, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}
			idx := appInstance.Ledger()
			s := idx.Stats()
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "processed:         %d\n", s.Processed)
			if s.Processed > 0 {
				fmt.Fprintf(out, "cid range:         [%d, %d]\n", s.MinCID, s.MaxCID)
			}
			fmt.Fprintf(out, "with image:        %d\n", s.WithImage)
			fmt.Fprintf(out, "images downloaded: %d\n", s.Downloaded)
			fmt.Fprintf(out, "pending downloads: %d\n", s.PendingDownloads)
			fmt.Fprintf(out, "without image:     %d\n", s.WithoutImage)
			if pending {
				for _, e := range idx.Entries() {
					if e.HasImage && !e.ImageDownloaded {
						fmt.Fprintln(out, e.CID)
					}
				}
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&pending, "pending", false, "list CIDs whose image is not downloaded")
	return cmd
}
