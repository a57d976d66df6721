// Package app holds the application services: reading reflections and the
// archive, resolving the day's quote, managing subscriptions, and the daily
// delivery run that generates, archives, and sends. Services speak to
// storage, mail, and the model provider only through the interfaces in
// ports, so the HTTP layer above and the adapters below can change without
// touching a use case.
package app

import (
	"context"

	"github.com/jsamuelsen/stoic-reflections/internal/domain"
	"github.com/jsamuelsen/stoic-reflections/internal/ports"
)

// saveAttempts bounds optimistic document writes: the first try plus one
// retry after a lost race.
const saveAttempts = 2

// loadRecipients fetches and parses the send list. A missing document is an
// empty list, not an error; first runs start with nobody subscribed.
func loadRecipients(ctx context.Context, store ports.BlobStore, key string) (*domain.RecipientList, error) {
	data, revision, err := store.Get(ctx, key)
	if err != nil {
		if domain.IsNotFound(err) {
			return domain.NewRecipientList(), nil
		}

		return nil, domain.NewUnavailableError("recipients document", err.Error())
	}

	list, err := domain.ParseRecipientList(data, revision)
	if err != nil {
		return nil, domain.NewUnavailableError("recipients document", err.Error())
	}

	return list, nil
}

// loadSubscribers fetches and parses the subscriber roster. A missing
// document is an empty roster.
func loadSubscribers(ctx context.Context, store ports.BlobStore, key string) (*domain.SubscriberSet, error) {
	data, revision, err := store.Get(ctx, key)
	if err != nil {
		if domain.IsNotFound(err) {
			return domain.NewSubscriberSet(), nil
		}

		return nil, domain.NewUnavailableError("subscriber document", err.Error())
	}

	set, err := domain.ParseSubscriberSet(data, revision)
	if err != nil {
		return nil, domain.NewUnavailableError("subscriber document", err.Error())
	}

	return set, nil
}
