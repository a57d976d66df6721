package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jsamuelsen/stoic-reflections/internal/adapters/mail"
	"github.com/jsamuelsen/stoic-reflections/internal/app"
	"github.com/jsamuelsen/stoic-reflections/internal/domain"
)

func subscribersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "subscribers",
		Short: "Manage the subscriber roster",
	}

	cmd.AddCommand(subscribersImportCmd())
	cmd.AddCommand(subscribersReconcileCmd())

	return cmd
}

func subscribersImportCmd() *cobra.Command {
	var status string

	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Import addresses into the roster",
		Long: `Import addresses from a file, one per line, into the subscriber
roster. Blank lines and lines starting with # are skipped, as are
addresses already on the roster. Imported records never pass through
pending: they arrive directly in the given status, and active imports
are added to the send list.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			subscriberStatus := domain.SubscriberStatus(status)
			switch subscriberStatus {
			case domain.SubscriberActive, domain.SubscriberUnsubscribed:
			default:
				return fmt.Errorf("invalid --status %q: expected active or unsubscribed", status)
			}

			emails, err := readEmailLines(args[0])
			if err != nil {
				return err
			}

			if len(emails) == 0 {
				return fmt.Errorf("no addresses found in %s", args[0])
			}

			env, err := newCLIEnv(ctx)
			if err != nil {
				return err
			}

			result, err := newSubscriptionService(env).Import(ctx, emails, subscriberStatus)
			if err != nil {
				return err
			}

			fmt.Printf("Created: %d\n", result.Created)
			fmt.Printf("Skipped: %d\n", result.Skipped)

			return nil
		},
	}

	cmd.Flags().StringVar(&status, "status", string(domain.SubscriberActive), "Status for imported records (active or unsubscribed)")

	return cmd
}

func subscribersReconcileCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reconcile",
		Short: "Repair the send list against the roster",
		Long: `Add active subscribers to the send list and remove unsubscribed ones.
Addresses the roster does not know are left alone, so a hand-managed
send list survives reconciliation.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			env, err := newCLIEnv(ctx)
			if err != nil {
				return err
			}

			result, err := newSubscriptionService(env).Reconcile(ctx)
			if err != nil {
				return err
			}

			fmt.Printf("Added:   %d\n", result.Added)
			fmt.Printf("Removed: %d\n", result.Removed)

			return nil
		},
	}
}

// newSubscriptionService wires a subscription service for roster
// maintenance. The noop mailer stands in for transport; neither import
// nor reconcile sends mail.
func newSubscriptionService(env *cliEnv) *app.SubscriptionService {
	cfg := env.cfg

	return app.NewSubscriptionService(app.SubscriptionServiceConfig{
		Store:          env.store,
		Renderer:       mail.NewRenderer(cfg.Mail.WebsiteURL, cfg.Subscription.Secret),
		Mailer:         mail.NewNoopMailer(env.logger),
		SubscribersKey: cfg.Storage.SubscribersKey,
		RecipientsKey:  cfg.Storage.RecipientsKey,
		Sender:         cfg.Mail.Sender,
		Secret:         cfg.Subscription.Secret,
		Source:         cfg.Subscription.Source,
		Logger:         env.logger,
	})
}

// readEmailLines loads addresses from a file, one per line. Blank lines
// and # comments are skipped.
func readEmailLines(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("reading address file: %w", err)
	}
	defer func() { _ = f.Close() }()

	var emails []string

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		emails = append(emails, line)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading address file: %w", err)
	}

	return emails, nil
}
