package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/JakeFAU/rsr-sign-scraper/internal/planner"
)

func newPlanCmd() *cobra.Command {
	var (
		flags rangeFlags
		list  bool
	)
	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Shows which CIDs a scrape would fetch",
		RunE: func(cmd *cobra.Command, _ []string) error {
			appInstance, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}
			r, mode, err := flags.resolve(appInstance.Config().Run.Mode)
			if err != nil {
				return err
			}
			plan, err := planner.Plan(r, mode, appInstance.Ledger())
			if err != nil {
				return err
			}
			s := planner.Summarize(r, mode, plan)
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "range %s mode %s: %d planned, %d skipped\n", s.Range, s.Mode, s.Planned, s.Skipped)
			if list && len(plan) > 0 {
				ids := make([]string, len(plan))
				for i, cid := range plan {
					ids[i] = strconv.Itoa(cid)
				}
				fmt.Fprintln(out, strings.Join(ids, "\n"))
			}
			return nil
		},
	}
	flags.register(cmd)
	cmd.Flags().BoolVar(&list, "list", false, "print every planned CID")
	return cmd
}
