// Package ports declares the seams between the application services and the
// outside world: document storage, reflection generation, mail rendering and
// delivery, and health probing. Adapters implement these interfaces; the app
// layer sees domain types and domain errors, never provider SDKs.
package ports

import (
	"context"

	"github.com/jsamuelsen/stoic-reflections/internal/domain"
)

// BlobStore is whole-document storage with optimistic concurrency. Every
// document this service owns (quote dataset, reflection archive, recipients,
// subscriber roster) is one JSON blob behind this port.
type BlobStore interface {
	// Get fetches a document and the revision identifying its current
	// content. Returns domain.ErrNotFound when the key does not exist.
	Get(ctx context.Context, key string) ([]byte, domain.Revision, error)

	// Put stores a document. A non-zero revision makes the write
	// conditional on the stored document still carrying that revision;
	// a lost race returns domain.ErrStaleWrite. The zero revision writes
	// unconditionally. The returned revision identifies the new content.
	Put(ctx context.Context, key string, data []byte, revision domain.Revision) (domain.Revision, error)
}

// GenerationRequest carries everything the generator needs for one day's
// reflection.
type GenerationRequest struct {
	// Quote and Attribution are the day's dataset entry.
	Quote       string
	Attribution string

	// Theme is the month's theme, steering the reflection's angle.
	Theme domain.MonthlyTheme

	// RecentAttributions lists sources used in the recent sending window,
	// so the generator can be steered away from repeating them.
	RecentAttributions []string

	// PriorReflections holds this month's earlier reflections so the essay
	// takes a fresh angle rather than retreading them.
	PriorReflections []string
}

// ReflectionGenerator produces the reflection essay for a day's quote.
type ReflectionGenerator interface {
	// Generate returns the generated content, or domain.ErrGenerationFailed
	// when the provider errors or returns an unusable response.
	Generate(ctx context.Context, req GenerationRequest) (domain.GeneratedReflection, error)
}

// OutboundEmail is one fully rendered message for one recipient.
type OutboundEmail struct {
	From     string
	To       string
	Subject  string
	HTMLBody string
	TextBody string
}

// Mailer delivers rendered email. Implementations send one recipient per
// call; fan-out across recipients belongs to the caller.
type Mailer interface {
	// Send delivers a message. Returns domain.ErrDeliveryFailed when the
	// provider rejects or cannot accept it.
	Send(ctx context.Context, email OutboundEmail) error
}

// EmailRenderer composes the messages the service sends. Rendering is per
// recipient because the unsubscribe footer differs by address.
type EmailRenderer interface {
	// ReflectionEmail renders the daily reflection for one recipient.
	ReflectionEmail(from, to string, content domain.GeneratedReflection, theme domain.MonthlyTheme) (OutboundEmail, error)

	// ConfirmationEmail renders the subscription confirmation message
	// carrying the given token.
	ConfirmationEmail(from, to, token string) (OutboundEmail, error)
}
