package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jsamuelsen/stoic-reflections/internal/adapters/storage"
	"github.com/jsamuelsen/stoic-reflections/internal/app"
)

func datasetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dataset",
		Short: "Inspect the quote dataset",
	}

	cmd.AddCommand(datasetValidateCmd())

	return cmd
}

func datasetValidateCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "validate [file]",
		Short: "Check the dataset covers every calendar day exactly once",
		Long: `Check that the quote dataset fills all 365 calendar slots exactly once
(February 29 reuses February 28).

Without arguments the configured store's dataset is checked. With a file
argument the local file is checked instead, which is the way to vet a
working copy before uploading it.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			env, err := newCLIEnv(ctx)
			if err != nil {
				return err
			}

			store := env.store
			if len(args) == 1 {
				data, readErr := os.ReadFile(args[0])
				if readErr != nil {
					return fmt.Errorf("reading dataset file: %w", readErr)
				}

				local := storage.NewMemoryStore()
				local.Seed(env.cfg.Storage.DatasetKey, data)
				store = local
			}

			resolver := app.NewResolverService(app.ResolverServiceConfig{
				Store:      store,
				DatasetKey: env.cfg.Storage.DatasetKey,
				Logger:     env.logger,
			})

			report, err := resolver.Integrity(ctx)
			if err != nil {
				return err
			}

			if asJSON {
				return printJSON(report)
			}

			fmt.Printf("Entries: %d\n", report.Total)

			if len(report.Duplicates) > 0 {
				fmt.Printf("Duplicate days (%d):\n", len(report.Duplicates))
				for _, day := range report.Duplicates {
					fmt.Printf("  - %s %d\n", day.Month, day.Day)
				}
			}

			if len(report.Missing) > 0 {
				fmt.Printf("Missing days (%d):\n", len(report.Missing))
				for _, day := range report.Missing {
					fmt.Printf("  - %s %d\n", day.Month, day.Day)
				}
			}

			if !report.Complete {
				return fmt.Errorf("dataset incomplete: %d missing, %d duplicated",
					len(report.Missing), len(report.Duplicates))
			}

			fmt.Println("Dataset complete: every day of the year has a quote.")

			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")

	return cmd
}
