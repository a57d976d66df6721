package domain

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// ConfirmationWindow is how long a confirmation link stays valid after it is
// issued.
const ConfirmationWindow = 24 * time.Hour

// SubscriberStatus enumerates the subscription lifecycle states.
type SubscriberStatus string

// Lifecycle states. A subscriber moves pending -> active on confirmation and
// any state -> unsubscribed on request.
const (
	SubscriberPending      SubscriberStatus = "pending"
	SubscriberActive       SubscriberStatus = "active"
	SubscriberUnsubscribed SubscriberStatus = "unsubscribed"
)

// Subscriber is one subscription record. Timestamps are RFC 3339 strings so
// a record with a damaged timestamp degrades (its confirmation link reads as
// expired) instead of poisoning the whole document.
type Subscriber struct {
	Email             string           `json:"email"`
	Status            SubscriberStatus `json:"status"`
	ConfirmationToken string           `json:"confirmation_token,omitempty"`
	UnsubscribeToken  string           `json:"unsubscribe_token"`
	CreatedAt         string           `json:"created_at"`
	ConfirmedAt       string           `json:"confirmed_at,omitempty"`
	UnsubscribedAt    string           `json:"unsubscribed_at,omitempty"`
	Source            string           `json:"source"`
}

// ConfirmationExpired reports whether the confirmation link has aged out.
// Records whose creation time cannot be parsed count as expired.
func (s Subscriber) ConfirmationExpired(now time.Time) bool {
	created, err := time.Parse(time.RFC3339, s.CreatedAt)
	if err != nil {
		return true
	}

	return now.After(created.Add(ConfirmationWindow))
}

// NormalizeEmail lowercases and trims an address. All lookups and stored
// records use the normalized form.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// NewConfirmationToken returns a URL-safe random token for confirmation links.
func NewConfirmationToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate confirmation token: %w", err)
	}

	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// UnsubscribeTokenFor derives the unsubscribe token for an address. The token
// is deterministic over email and secret, so links stay valid without storing
// anything and can be rebuilt for every outgoing mail.
func UnsubscribeTokenFor(email, secret string) string {
	sum := sha256.Sum256([]byte(NormalizeEmail(email) + ":" + secret))

	return hex.EncodeToString(sum[:])[:32]
}

// tokenEqual compares tokens in constant time.
func tokenEqual(a, b string) bool {
	return hmac.Equal([]byte(a), []byte(b))
}

// subscriberDocument is the stored form of the subscriber set. The
// subscribers key is tolerated missing on read and always present on write.
type subscriberDocument struct {
	Subscribers []Subscriber `json:"subscribers"`
}

// SubscriberSet is the full subscriber roster as loaded from its document.
// It keeps the revision of that document so saves can detect concurrent
// writers.
type SubscriberSet struct {
	subscribers []Subscriber
	revision    Revision
}

// NewSubscriberSet returns an empty roster with no revision, as on first run.
func NewSubscriberSet() *SubscriberSet {
	return &SubscriberSet{}
}

// ParseSubscriberSet decodes a stored subscriber document.
func ParseSubscriberSet(data []byte, revision Revision) (*SubscriberSet, error) {
	var doc subscriberDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode subscriber document: %w", err)
	}

	return &SubscriberSet{subscribers: doc.Subscribers, revision: revision}, nil
}

// Revision returns the token of the document this set was loaded from.
func (s *SubscriberSet) Revision() Revision {
	return s.revision
}

// Get returns the record for an address.
func (s *SubscriberSet) Get(email string) (Subscriber, bool) {
	i := s.indexOf(email)
	if i < 0 {
		return Subscriber{}, false
	}

	return s.subscribers[i], true
}

// Subscribe creates or refreshes a pending subscription for an address.
// A pending record gets a fresh confirmation token, an unsubscribed record is
// reactivated as pending, and an active record is rejected as a conflict.
func (s *SubscriberSet) Subscribe(email, source, secret string, now time.Time) (Subscriber, error) {
	email = NormalizeEmail(email)
	if email == "" {
		return Subscriber{}, NewValidationError("email", "email is required")
	}

	token, err := NewConfirmationToken()
	if err != nil {
		return Subscriber{}, err
	}

	timestamp := now.UTC().Format(time.RFC3339)

	if i := s.indexOf(email); i >= 0 {
		existing := &s.subscribers[i]

		switch existing.Status {
		case SubscriberActive:
			return Subscriber{}, NewConflictError("subscriber", "email is already subscribed")

		case SubscriberPending:
			existing.ConfirmationToken = token
			existing.CreatedAt = timestamp

		case SubscriberUnsubscribed:
			existing.Status = SubscriberPending
			existing.ConfirmationToken = token
			existing.CreatedAt = timestamp
			existing.ConfirmedAt = ""
			existing.UnsubscribedAt = ""
		}

		return *existing, nil
	}

	record := Subscriber{
		Email:             email,
		Status:            SubscriberPending,
		ConfirmationToken: token,
		UnsubscribeToken:  UnsubscribeTokenFor(email, secret),
		CreatedAt:         timestamp,
		Source:            source,
	}
	s.subscribers = append(s.subscribers, record)

	return record, nil
}

// Confirm activates the subscription holding the given confirmation token.
// Confirming an already active record is a no-op success; tokens are cleared
// on activation, so each link works once.
func (s *SubscriberSet) Confirm(token string, now time.Time) (Subscriber, error) {
	if strings.TrimSpace(token) == "" {
		return Subscriber{}, NewValidationError("token", "confirmation token is required")
	}

	for i := range s.subscribers {
		sub := &s.subscribers[i]
		if sub.ConfirmationToken == "" || !tokenEqual(sub.ConfirmationToken, token) {
			continue
		}

		if sub.Status == SubscriberActive {
			return *sub, nil
		}

		if sub.ConfirmationExpired(now) {
			return Subscriber{}, NewValidationError("token", "confirmation link has expired")
		}

		sub.Status = SubscriberActive
		sub.ConfirmedAt = now.UTC().Format(time.RFC3339)
		sub.ConfirmationToken = ""

		return *sub, nil
	}

	return Subscriber{}, NewNotFoundError("subscriber", "")
}

// Unsubscribe marks an address unsubscribed after checking its token. An
// unknown address and a bad token produce the same error, so the endpoint
// cannot be used to probe the roster.
func (s *SubscriberSet) Unsubscribe(email, token string, now time.Time) (Subscriber, error) {
	i := s.indexOf(email)
	if i < 0 {
		return Subscriber{}, NewValidationError("token", "invalid email or token")
	}

	sub := &s.subscribers[i]
	if token == "" || !tokenEqual(sub.UnsubscribeToken, token) {
		return Subscriber{}, NewValidationError("token", "invalid email or token")
	}

	sub.Status = SubscriberUnsubscribed
	sub.UnsubscribedAt = now.UTC().Format(time.RFC3339)

	return *sub, nil
}

// ActiveEmails returns the addresses with active subscriptions, in roster
// order.
func (s *SubscriberSet) ActiveEmails() []string {
	var out []string

	for _, sub := range s.subscribers {
		if sub.Status == SubscriberActive {
			out = append(out, sub.Email)
		}
	}

	return out
}

// SubscriberCounts tallies the roster by lifecycle state.
type SubscriberCounts struct {
	Pending      int `json:"pending"`
	Active       int `json:"active"`
	Unsubscribed int `json:"unsubscribed"`
}

// Counts tallies the roster by status.
func (s *SubscriberSet) Counts() SubscriberCounts {
	var counts SubscriberCounts

	for _, sub := range s.subscribers {
		switch sub.Status {
		case SubscriberPending:
			counts.Pending++
		case SubscriberActive:
			counts.Active++
		case SubscriberUnsubscribed:
			counts.Unsubscribed++
		}
	}

	return counts
}

// ImportResult reports what a bulk import did.
type ImportResult struct {
	Created int
	Skipped int
}

// Import adds addresses in bulk, typically as already-active migrations.
// Existing and blank addresses are skipped. Imported records carry no
// confirmation token; they never pass through pending.
func (s *SubscriberSet) Import(emails []string, status SubscriberStatus, source, secret string, now time.Time) ImportResult {
	var result ImportResult

	timestamp := now.UTC().Format(time.RFC3339)

	for _, raw := range emails {
		email := NormalizeEmail(raw)
		if email == "" {
			continue
		}

		if s.indexOf(email) >= 0 {
			result.Skipped++
			continue
		}

		record := Subscriber{
			Email:            email,
			Status:           status,
			UnsubscribeToken: UnsubscribeTokenFor(email, secret),
			CreatedAt:        timestamp,
			Source:           source,
		}
		if status == SubscriberActive {
			record.ConfirmedAt = timestamp
		}

		s.subscribers = append(s.subscribers, record)
		result.Created++
	}

	return result
}

// MarshalDocument encodes the roster in its stored form. The subscribers key
// is always present, even when empty.
func (s *SubscriberSet) MarshalDocument() ([]byte, error) {
	doc := subscriberDocument{Subscribers: s.subscribers}
	if doc.Subscribers == nil {
		doc.Subscribers = []Subscriber{}
	}

	return json.Marshal(doc)
}

func (s *SubscriberSet) indexOf(email string) int {
	email = NormalizeEmail(email)

	for i, sub := range s.subscribers {
		if sub.Email == email {
			return i
		}
	}

	return -1
}
