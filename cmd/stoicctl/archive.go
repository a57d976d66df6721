package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jsamuelsen/stoic-reflections/internal/app"
)

func archiveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "archive",
		Short: "Inspect and maintain the reflection archive",
	}

	cmd.AddCommand(archiveStatsCmd())
	cmd.AddCommand(archivePruneCmd())

	return cmd
}

func archiveStatsCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Summarize the reflection archive",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			env, err := newCLIEnv(ctx)
			if err != nil {
				return err
			}

			archive := app.NewArchiveService(app.ArchiveServiceConfig{
				Store:      env.store,
				ArchiveKey: env.cfg.Storage.ArchiveKey,
				Logger:     env.logger,
			})

			stats, err := archive.Stats(ctx)
			if err != nil {
				return err
			}

			if asJSON {
				return printJSON(stats)
			}

			fmt.Printf("Entries: %d\n", stats.Count)

			if stats.Count > 0 {
				fmt.Printf("Oldest:  %s\n", stats.Oldest)
				fmt.Printf("Newest:  %s\n", stats.Newest)
			}

			if stats.Skipped > 0 {
				fmt.Printf("Entries with unparsable dates: %d\n", stats.Skipped)
			}

			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")

	return cmd
}

func archivePruneCmd() *cobra.Command {
	var keepDays int

	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Drop archive entries older than the retention window",
		Long: `Drop archive entries older than the retention window and rewrite the
archive document. Entries whose dates cannot be parsed are dropped as
well. The daily delivery prunes on every run, so this is only needed
after shrinking the window or to repair a hand-edited archive.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			env, err := newCLIEnv(ctx)
			if err != nil {
				return err
			}

			days := keepDays
			if days <= 0 {
				days = env.cfg.Archive.KeepDays
			}

			archive := app.NewArchiveService(app.ArchiveServiceConfig{
				Store:      env.store,
				ArchiveKey: env.cfg.Storage.ArchiveKey,
				Logger:     env.logger,
			})

			outcome, err := archive.Prune(ctx, days)
			if err != nil {
				return err
			}

			fmt.Printf("Removed:   %d\n", outcome.Removed)

			if outcome.Unparsable > 0 {
				fmt.Printf("Unparsable: %d\n", outcome.Unparsable)
			}

			fmt.Printf("Remaining: %d\n", outcome.Remaining)

			return nil
		},
	}

	cmd.Flags().IntVar(&keepDays, "keep-days", 0, "Retention window in days (defaults to the configured value)")

	return cmd
}
