package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/jsamuelsen/stoic-reflections/internal/adapters/clients"
	"github.com/jsamuelsen/stoic-reflections/internal/adapters/clients/anthropic"
	"github.com/jsamuelsen/stoic-reflections/internal/adapters/mail"
	"github.com/jsamuelsen/stoic-reflections/internal/app"
	"github.com/jsamuelsen/stoic-reflections/internal/domain"
	"github.com/jsamuelsen/stoic-reflections/internal/ports"
)

func sendCmd() *cobra.Command {
	var date string

	cmd := &cobra.Command{
		Use:   "send",
		Short: "Run one reflection delivery",
		Long: `Resolve the day's quote, generate the reflection, archive it, and email
the send list. Defaults to today (UTC); --date back-fills a specific day.
Re-running a day appends a second archive entry for it; prune clears the
older one once it ages out.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			env, err := newCLIEnv(ctx)
			if err != nil {
				return err
			}

			if env.cfg.Generation.APIKey == "" {
				return fmt.Errorf("no generation API key is set (ANTHROPIC_API_KEY)")
			}

			delivery, err := newDeliveryService(ctx, env)
			if err != nil {
				return err
			}

			var report app.DeliveryReport

			if date == "" {
				report, err = delivery.Run(ctx)
			} else {
				day, parseErr := time.Parse(domain.DateFormat, date)
				if parseErr != nil {
					return fmt.Errorf("invalid --date %q: expected YYYY-MM-DD", date)
				}

				report, err = delivery.RunForDate(ctx, day)
			}

			if err != nil {
				if step, ok := app.GetExecutionStep(err); ok && step == app.StepRespond {
					fmt.Fprintln(cmd.ErrOrStderr(),
						"the reflection was generated and archived; only sending failed, and rerunning will add a duplicate archive entry")
				}

				return err
			}

			fmt.Printf("Delivered %s (%s)\n", report.Date, report.Attribution)
			fmt.Printf("  theme:   %s\n", report.Theme)
			fmt.Printf("  sent:    %d\n", report.Sent)
			fmt.Printf("  failed:  %d\n", report.Failed)
			fmt.Printf("  archive: %d entries\n", report.ArchiveSize)

			if report.SkippedEntries > 0 {
				fmt.Printf("  entries with unparsable dates: %d\n", report.SkippedEntries)
			}

			return nil
		},
	}

	cmd.Flags().StringVar(&date, "date", "", "Delivery date (YYYY-MM-DD), defaults to today")

	return cmd
}

// newDeliveryService wires the full delivery pipeline for one run.
func newDeliveryService(ctx context.Context, env *cliEnv) (*app.DeliveryService, error) {
	cfg := env.cfg

	httpClient, err := clients.New(&clients.Config{
		BaseURL:     cfg.Generation.BaseURL,
		ServiceName: "anthropic",
		Timeout:     cfg.Generation.Timeout,
		Retry:       cfg.Client.Retry,
		Circuit:     cfg.Client.CircuitBreaker,
		Transport:   cfg.Client.Transport,
		AuthFunc:    anthropic.AuthHeaders(cfg.Generation.APIKey, cfg.Generation.APIVersion),
		Logger:      env.logger,
	})
	if err != nil {
		return nil, fmt.Errorf("creating generation HTTP client: %w", err)
	}

	generator := anthropic.NewClient(anthropic.Config{
		Client:      httpClient,
		Model:       cfg.Generation.Model,
		MaxTokens:   cfg.Generation.MaxTokens,
		Temperature: cfg.Generation.Temperature,
		Logger:      env.logger,
	})

	mailer, err := newMailer(ctx, env)
	if err != nil {
		return nil, err
	}

	resolver := app.NewResolverService(app.ResolverServiceConfig{
		Store:      env.store,
		DatasetKey: cfg.Storage.DatasetKey,
		Logger:     env.logger,
	})

	archive := app.NewArchiveService(app.ArchiveServiceConfig{
		Store:      env.store,
		ArchiveKey: cfg.Storage.ArchiveKey,
		Logger:     env.logger,
	})

	return app.NewDeliveryService(app.DeliveryServiceConfig{
		Resolver:              resolver,
		Archive:               archive,
		Generator:             generator,
		Renderer:              mail.NewRenderer(cfg.Mail.WebsiteURL, cfg.Subscription.Secret),
		Mailer:                mailer,
		Store:                 env.store,
		RecipientsKey:         cfg.Storage.RecipientsKey,
		Sender:                cfg.Mail.Sender,
		KeepDays:              cfg.Archive.KeepDays,
		AttributionWindowDays: cfg.Archive.AttributionWindowDays,
		MaxParallel:           cfg.Mail.MaxParallel,
		Logger:                env.logger,
	}), nil
}

// newMailer builds the configured mail transport.
func newMailer(ctx context.Context, env *cliEnv) (ports.Mailer, error) {
	switch env.cfg.Mail.Driver {
	case "ses":
		return mail.NewSESMailer(ctx, mail.SESConfig{Region: env.cfg.Mail.Region}, env.logger)

	case "noop":
		return mail.NewNoopMailer(env.logger), nil

	default:
		return nil, fmt.Errorf("unknown mail driver %q", env.cfg.Mail.Driver)
	}
}
