package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jsamuelsen/stoic-reflections/internal/domain"
	"github.com/jsamuelsen/stoic-reflections/internal/ports"
)

// SubscriptionService manages the subscriber roster and keeps the send list
// in step with it. The roster is authoritative; the send list is the
// projection the daily delivery reads.
type SubscriptionService struct {
	store          ports.BlobStore
	renderer       ports.EmailRenderer
	mailer         ports.Mailer
	subscribersKey string
	recipientsKey  string
	sender         string
	secret         string
	source         string
	logger         *slog.Logger
	now            func() time.Time
}

// SubscriptionServiceConfig contains dependencies for the subscription service.
type SubscriptionServiceConfig struct {
	Store          ports.BlobStore
	Renderer       ports.EmailRenderer
	Mailer         ports.Mailer
	SubscribersKey string
	RecipientsKey  string

	// Sender is the from address for confirmation mail.
	Sender string

	// Secret signs unsubscribe tokens. Rotating it invalidates every
	// issued link.
	Secret string

	// Source is recorded on subscribers created through this service.
	Source string

	Logger *slog.Logger

	// Now overrides the clock, for tests. Defaults to time.Now.
	Now func() time.Time
}

// NewSubscriptionService creates a subscription service with the provided
// dependencies.
func NewSubscriptionService(cfg SubscriptionServiceConfig) *SubscriptionService {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	return &SubscriptionService{
		store:          cfg.Store,
		renderer:       cfg.Renderer,
		mailer:         cfg.Mailer,
		subscribersKey: cfg.SubscribersKey,
		recipientsKey:  cfg.RecipientsKey,
		sender:         cfg.Sender,
		secret:         cfg.Secret,
		source:         cfg.Source,
		logger:         logger.With(slog.String("component", "app.SubscriptionService")),
		now:            now,
	}
}

// Subscribe creates or refreshes a pending subscription for an address and
// emails its confirmation link. An already active address is a conflict; a
// pending one gets a fresh token and a re-sent mail.
func (s *SubscriptionService) Subscribe(ctx context.Context, email string) (domain.Subscriber, error) {
	var record domain.Subscriber

	err := s.updateSubscribers(ctx, func(set *domain.SubscriberSet) error {
		sub, err := set.Subscribe(email, s.source, s.secret, s.now())
		if err != nil {
			return err
		}

		record = sub

		return nil
	})
	if err != nil {
		return domain.Subscriber{}, err
	}

	message, err := s.renderer.ConfirmationEmail(s.sender, record.Email, record.ConfirmationToken)
	if err != nil {
		return domain.Subscriber{}, fmt.Errorf("rendering confirmation email: %w", err)
	}

	if err := s.mailer.Send(ctx, message); err != nil {
		return domain.Subscriber{}, err
	}

	s.logger.InfoContext(ctx, "confirmation email sent",
		slog.String("email", record.Email),
	)

	return record, nil
}

// Confirm activates the subscription holding the given token and adds the
// address to the send list. Re-confirming an active subscription repairs the
// send list entry instead of failing.
func (s *SubscriptionService) Confirm(ctx context.Context, token string) (domain.Subscriber, error) {
	var record domain.Subscriber

	err := s.updateSubscribers(ctx, func(set *domain.SubscriberSet) error {
		sub, err := set.Confirm(token, s.now())
		if err != nil {
			return err
		}

		record = sub

		return nil
	})
	if err != nil {
		return domain.Subscriber{}, err
	}

	err = s.updateRecipients(ctx, func(list *domain.RecipientList) bool {
		return list.Add(record.Email)
	})
	if err != nil {
		// The roster says active but the send list missed the address.
		// Reconcile repairs this.
		s.logger.ErrorContext(ctx, "subscriber confirmed but send list update failed",
			slog.String("email", record.Email),
			slog.Any("error", err),
		)

		return domain.Subscriber{}, err
	}

	s.logger.InfoContext(ctx, "subscription confirmed",
		slog.String("email", record.Email),
	)

	return record, nil
}

// Unsubscribe marks an address unsubscribed after checking its token and
// removes it from the send list.
func (s *SubscriptionService) Unsubscribe(ctx context.Context, email, token string) (domain.Subscriber, error) {
	var record domain.Subscriber

	err := s.updateSubscribers(ctx, func(set *domain.SubscriberSet) error {
		sub, err := set.Unsubscribe(email, token, s.now())
		if err != nil {
			return err
		}

		record = sub

		return nil
	})
	if err != nil {
		return domain.Subscriber{}, err
	}

	err = s.updateRecipients(ctx, func(list *domain.RecipientList) bool {
		return list.Remove(record.Email)
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "subscriber unsubscribed but send list update failed",
			slog.String("email", record.Email),
			slog.Any("error", err),
		)

		return domain.Subscriber{}, err
	}

	s.logger.InfoContext(ctx, "unsubscribed",
		slog.String("email", record.Email),
	)

	return record, nil
}

// Counts tallies the roster by lifecycle state.
func (s *SubscriptionService) Counts(ctx context.Context) (domain.SubscriberCounts, error) {
	set, err := loadSubscribers(ctx, s.store, s.subscribersKey)
	if err != nil {
		return domain.SubscriberCounts{}, err
	}

	return set.Counts(), nil
}

// Import adds addresses in bulk, typically migrating an existing mailing
// list. Active imports are added to the send list as well.
func (s *SubscriptionService) Import(ctx context.Context, emails []string, status domain.SubscriberStatus) (domain.ImportResult, error) {
	var result domain.ImportResult

	err := s.updateSubscribers(ctx, func(set *domain.SubscriberSet) error {
		result = set.Import(emails, status, "import", s.secret, s.now())

		return nil
	})
	if err != nil {
		return domain.ImportResult{}, err
	}

	if status == domain.SubscriberActive {
		err = s.updateRecipients(ctx, func(list *domain.RecipientList) bool {
			changed := false

			for _, email := range emails {
				if list.Add(email) {
					changed = true
				}
			}

			return changed
		})
		if err != nil {
			return domain.ImportResult{}, err
		}
	}

	s.logger.InfoContext(ctx, "subscribers imported",
		slog.String("status", string(status)),
		slog.Int("created", result.Created),
		slog.Int("skipped", result.Skipped),
	)

	return result, nil
}

// ReconcileResult reports what a send list reconciliation changed.
type ReconcileResult struct {
	Added   int `json:"added"`
	Removed int `json:"removed"`
}

// Reconcile repairs the send list against the roster: active subscribers are
// added, unsubscribed ones removed. Addresses the roster does not know are
// left alone; the send list predates subscriptions and may be hand-managed.
func (s *SubscriptionService) Reconcile(ctx context.Context) (ReconcileResult, error) {
	set, err := loadSubscribers(ctx, s.store, s.subscribersKey)
	if err != nil {
		return ReconcileResult{}, err
	}

	var result ReconcileResult

	err = s.updateRecipients(ctx, func(list *domain.RecipientList) bool {
		result = ReconcileResult{}

		for _, email := range set.ActiveEmails() {
			if list.Add(email) {
				result.Added++
			}
		}

		for _, email := range list.Emails() {
			sub, ok := set.Get(email)
			if ok && sub.Status == domain.SubscriberUnsubscribed && list.Remove(email) {
				result.Removed++
			}
		}

		return result.Added > 0 || result.Removed > 0
	})
	if err != nil {
		return ReconcileResult{}, err
	}

	s.logger.InfoContext(ctx, "send list reconciled",
		slog.Int("added", result.Added),
		slog.Int("removed", result.Removed),
	)

	return result, nil
}

// updateSubscribers runs a read-modify-write on the roster, retrying once
// when a concurrent writer wins the race. Errors from apply abort without
// writing.
func (s *SubscriptionService) updateSubscribers(ctx context.Context, apply func(*domain.SubscriberSet) error) error {
	var lastErr error

	for attempt := 0; attempt < saveAttempts; attempt++ {
		set, err := loadSubscribers(ctx, s.store, s.subscribersKey)
		if err != nil {
			return err
		}

		if err := apply(set); err != nil {
			return err
		}

		data, err := set.MarshalDocument()
		if err != nil {
			return fmt.Errorf("encode subscriber document: %w", err)
		}

		_, err = s.store.Put(ctx, s.subscribersKey, data, set.Revision())
		if err == nil {
			return nil
		}

		if !domain.IsStaleWrite(err) {
			return domain.NewUnavailableError("subscriber document", err.Error())
		}

		lastErr = err
	}

	return lastErr
}

// updateRecipients runs a read-modify-write on the send list, retrying once
// when a concurrent writer wins the race. The write is skipped when apply
// reports no change.
func (s *SubscriptionService) updateRecipients(ctx context.Context, apply func(*domain.RecipientList) bool) error {
	var lastErr error

	for attempt := 0; attempt < saveAttempts; attempt++ {
		list, err := loadRecipients(ctx, s.store, s.recipientsKey)
		if err != nil {
			return err
		}

		if !apply(list) {
			return nil
		}

		data, err := list.MarshalDocument()
		if err != nil {
			return fmt.Errorf("encode recipients document: %w", err)
		}

		_, err = s.store.Put(ctx, s.recipientsKey, data, list.Revision())
		if err == nil {
			return nil
		}

		if !domain.IsStaleWrite(err) {
			return domain.NewUnavailableError("recipients document", err.Error())
		}

		lastErr = err
	}

	return lastErr
}
