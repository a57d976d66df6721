package domain

import (
	"encoding/json"
	"fmt"
)

// recipientsDocument is the stored form of the send list.
type recipientsDocument struct {
	Recipients []string `json:"recipients"`
}

// RecipientList is the flat list of addresses the daily send goes to. The
// subscription flow keeps it in step with the roster: confirmation adds an
// address, unsubscribing removes it.
type RecipientList struct {
	recipients []string
	revision   Revision
}

// NewRecipientList returns an empty send list with no revision.
func NewRecipientList() *RecipientList {
	return &RecipientList{}
}

// ParseRecipientList decodes a stored recipients document. Blank entries are
// dropped; remaining addresses are normalized.
func ParseRecipientList(data []byte, revision Revision) (*RecipientList, error) {
	var doc recipientsDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode recipients document: %w", err)
	}

	list := &RecipientList{revision: revision}
	for _, raw := range doc.Recipients {
		if email := NormalizeEmail(raw); email != "" {
			list.recipients = append(list.recipients, email)
		}
	}

	return list, nil
}

// Revision returns the token of the document this list was loaded from.
func (r *RecipientList) Revision() Revision {
	return r.revision
}

// Count returns the number of recipients.
func (r *RecipientList) Count() int {
	return len(r.recipients)
}

// Emails returns a copy of the send list in stored order.
func (r *RecipientList) Emails() []string {
	out := make([]string, len(r.recipients))
	copy(out, r.recipients)

	return out
}

// Add appends an address unless it is already present. It reports whether
// the list changed.
func (r *RecipientList) Add(email string) bool {
	email = NormalizeEmail(email)
	if email == "" {
		return false
	}

	for _, existing := range r.recipients {
		if existing == email {
			return false
		}
	}

	r.recipients = append(r.recipients, email)

	return true
}

// Remove drops an address. It reports whether the list changed.
func (r *RecipientList) Remove(email string) bool {
	email = NormalizeEmail(email)

	for i, existing := range r.recipients {
		if existing == email {
			r.recipients = append(r.recipients[:i], r.recipients[i+1:]...)

			return true
		}
	}

	return false
}

// MarshalDocument encodes the send list in its stored form. The recipients
// key is always present, even when empty.
func (r *RecipientList) MarshalDocument() ([]byte, error) {
	doc := recipientsDocument{Recipients: r.recipients}
	if doc.Recipients == nil {
		doc.Recipients = []string{}
	}

	return json.Marshal(doc)
}
