package cmd

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/haierkeys/fast-backup-service/internal/domain"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

func init() {
	flags := new(cliFlags)

	planCmd := &cobra.Command{
		Use:   "plan",
		Short: "Manage disaster recovery plans from the command line",
	}
	addCLIFlags(planCmd, flags)

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List recovery plans",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withContainer(flags, func(ctx context.Context, c *container) error {
				plans, err := c.app.RecoveryService.ListRecoveryPlans(ctx)
				if err != nil {
					return err
				}
				w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
				fmt.Fprintln(w, "ID\tNAME\tBACKUP\tMODE\tSTATUS\tLAST TESTED")
				for _, p := range plans {
					tested := "never"
					if p.LastTested != nil {
						tested = humanize.Time(*p.LastTested)
					}
					fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n", p.ID, p.Name, p.BackupID, p.RestoreMode, p.Status, tested)
				}
				return w.Flush()
			})
		},
	}

	executeCmd := &cobra.Command{
		Use:   "execute <planId>",
		Short: "Execute a recovery plan against the live store",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withContainer(flags, func(ctx context.Context, c *container) error {
				result, err := c.app.RecoveryService.ExecuteRecovery(ctx, args[0])
				if err != nil {
					return err
				}
				return printJSON(flags, result)
			})
		},
	}

	var (
		validateOnly bool
		noNotify     bool
	)
	testCmd := &cobra.Command{
		Use:   "test <planId> [--validate-only]",
		Short: "Run a recovery drill for a plan",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := domain.TestOptions{TestMode: true, ValidateOnly: validateOnly, NotifyResults: !noNotify}
			return withContainer(flags, func(ctx context.Context, c *container) error {
				record, err := c.app.RecoveryService.TestRecoveryPlan(ctx, args[0], opts)
				if err != nil {
					return err
				}
				return printJSON(flags, record)
			})
		},
	}
	testCmd.Flags().BoolVar(&validateOnly, "validate-only", false, "only check that the backup is readable")
	testCmd.Flags().BoolVar(&noNotify, "no-notify", false, "do not send result notifications")

	planCmd.AddCommand(listCmd, executeCmd, testCmd)
	rootCmd.AddCommand(planCmd)
}
