package cmd

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/haierkeys/fast-backup-service/internal/dto"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

func init() {
	flags := new(cliFlags)

	backupCmd := &cobra.Command{
		Use:   "backup",
		Short: "Manage backups from the command line",
	}
	addCLIFlags(backupCmd, flags)

	var (
		collections   []string
		noCompression bool
		noIndexes     bool
		retentionDays int
		maxBackups    int
	)

	createCmd := &cobra.Command{
		Use:   "create [--collections a,b]",
		Short: "Create a backup",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			req := &dto.BackupConfigRequest{Collections: collections}
			if cmd.Flags().Changed("no-compression") {
				v := !noCompression
				req.Compression = &v
			}
			if cmd.Flags().Changed("no-indexes") {
				v := !noIndexes
				req.IncludeIndexes = &v
			}
			return withContainer(flags, func(ctx context.Context, c *container) error {
				result, err := c.app.BackupService.CreateBackup(ctx, req)
				if err != nil {
					return err
				}
				return printJSON(flags, result)
			})
		},
	}
	createCmd.Flags().StringSliceVar(&collections, "collections", nil, "collections to back up, empty for all")
	createCmd.Flags().BoolVar(&noCompression, "no-compression", false, "write an uncompressed artifact")
	createCmd.Flags().BoolVar(&noIndexes, "no-indexes", false, "skip index definitions")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List backups, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withContainer(flags, func(ctx context.Context, c *container) error {
				backups, err := c.app.BackupService.ListBackups(ctx)
				if err != nil {
					return err
				}
				w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
				fmt.Fprintln(w, "ID\tCREATED\tSIZE\tCOLLECTIONS\tSTATUS")
				for _, b := range backups {
					fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\n",
						b.ID, humanize.Time(b.Timestamp), humanize.IBytes(uint64(b.Size)), len(b.Collections), b.Status)
				}
				return w.Flush()
			})
		},
	}

	statsCmd := &cobra.Command{
		Use:   "stats",
		Short: "Show backup statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withContainer(flags, func(ctx context.Context, c *container) error {
				stats, err := c.app.BackupService.GetBackupStats(ctx)
				if err != nil {
					return err
				}
				return printJSON(flags, stats)
			})
		},
	}

	inspectCmd := &cobra.Command{
		Use:   "inspect <backupId>",
		Short: "Summarize the collections inside a backup artifact",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withContainer(flags, func(ctx context.Context, c *container) error {
				info, err := c.app.BackupService.InspectBackup(ctx, args[0])
				if err != nil {
					return err
				}
				return printJSON(flags, info)
			})
		},
	}

	deleteCmd := &cobra.Command{
		Use:   "delete <backupId>",
		Short: "Delete a backup",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withContainer(flags, func(ctx context.Context, c *container) error {
				if err := c.app.BackupService.DeleteBackup(ctx, args[0]); err != nil {
					return err
				}
				fmt.Println("deleted", args[0])
				return nil
			})
		},
	}

	cleanupCmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Apply retention to the backup catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			req := &dto.BackupConfigRequest{}
			if cmd.Flags().Changed("retention-days") {
				req.RetentionDays = &retentionDays
			}
			if cmd.Flags().Changed("max-backups") {
				req.MaxBackups = &maxBackups
			}
			return withContainer(flags, func(ctx context.Context, c *container) error {
				result, err := c.app.BackupService.CleanupOldBackups(ctx, req)
				if err != nil {
					return err
				}
				return printJSON(flags, result)
			})
		},
	}
	cleanupCmd.Flags().IntVar(&retentionDays, "retention-days", 30, "delete backups older than this many days")
	cleanupCmd.Flags().IntVar(&maxBackups, "max-backups", 10, "keep at most this many backups")

	var (
		restoreCollections []string
		restoreMode        string
		skipValidation     bool
	)
	restoreCmd := &cobra.Command{
		Use:   "restore <backupId> [--mode replace|merge|skip]",
		Short: "Restore collections from a backup",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			validate := !skipValidation
			req := &dto.RestoreRequest{
				BackupID:     args[0],
				Collections:  restoreCollections,
				Mode:         restoreMode,
				ValidateData: &validate,
			}
			return withContainer(flags, func(ctx context.Context, c *container) error {
				result, err := c.app.BackupService.RestoreBackup(ctx, req)
				if err != nil {
					return err
				}
				return printJSON(flags, result)
			})
		},
	}
	restoreCmd.Flags().StringSliceVar(&restoreCollections, "collections", nil, "collections to restore, empty for all in the artifact")
	restoreCmd.Flags().StringVarP(&restoreMode, "mode", "m", "replace", "restore mode: replace, merge or skip")
	restoreCmd.Flags().BoolVar(&skipValidation, "skip-validation", false, "skip document validation")

	backupCmd.AddCommand(createCmd, listCmd, statsCmd, inspectCmd, deleteCmd, cleanupCmd, restoreCmd)
	rootCmd.AddCommand(backupCmd)
}
