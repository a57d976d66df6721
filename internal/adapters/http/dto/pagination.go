package dto

import (
	"encoding/base64"
	"encoding/json"
	"errors"
)

// The archive listing pages by date: entries sort oldest-first with one entry
// per day, so a page position is just the last date the previous page
// returned, carried as an opaque cursor.

const (
	// DefaultLimit is the page size when the request names none.
	DefaultLimit = 20

	// MaxLimit caps the page size a caller can ask for.
	MaxLimit = 100
)

var (
	// ErrInvalidCursor is returned for cursors that do not decode.
	ErrInvalidCursor = errors.New("invalid cursor")

	// ErrNoCursor signals a first-page request, not a failure.
	ErrNoCursor = errors.New("no cursor provided")
)

// PaginationRequest carries the cursor and limit query parameters.
type PaginationRequest struct {
	// Cursor is the opaque NextCursor from a previous response.
	Cursor string `form:"cursor"`

	// Limit is the page size (1-100, default 20).
	Limit int `form:"limit" validate:"omitempty,gte=1,lte=100"`
}

// GetLimit returns the effective page size with defaults and the cap applied.
func (p *PaginationRequest) GetLimit() int {
	if p.Limit <= 0 {
		return DefaultLimit
	}

	if p.Limit > MaxLimit {
		return MaxLimit
	}

	return p.Limit
}

// DecodeCursor unpacks the request cursor, or ErrNoCursor when the request
// carries none.
func (p *PaginationRequest) DecodeCursor() (*Cursor, error) {
	if p.Cursor == "" {
		return nil, ErrNoCursor
	}

	return DecodeCursor(p.Cursor)
}

// Cursor pins a position in the date-sorted archive listing.
type Cursor struct {
	// Date is the last date the previous page returned; the next page
	// resumes strictly after it.
	Date string `json:"d"`
}

// NewCursor returns a cursor resuming after date.
func NewCursor(date string) *Cursor {
	return &Cursor{Date: date}
}

// EncodeCursor renders a cursor as an opaque URL-safe string.
func EncodeCursor(c *Cursor) string {
	if c == nil {
		return ""
	}

	raw, err := json.Marshal(c)
	if err != nil {
		return ""
	}

	return base64.URLEncoding.EncodeToString(raw)
}

// DecodeCursor unpacks an encoded cursor. Anything that does not decode to a
// dated position is ErrInvalidCursor; clients must treat cursors as opaque.
func DecodeCursor(encoded string) (*Cursor, error) {
	if encoded == "" {
		return nil, ErrNoCursor
	}

	raw, err := base64.URLEncoding.DecodeString(encoded)
	if err != nil {
		return nil, ErrInvalidCursor
	}

	var c Cursor
	if err := json.Unmarshal(raw, &c); err != nil {
		return nil, ErrInvalidCursor
	}

	if c.Date == "" {
		return nil, ErrInvalidCursor
	}

	return &c, nil
}

// PaginatedResponse is one page of a listing.
type PaginatedResponse[T any] struct {
	// Items holds this page, never null: an empty page is an empty array.
	Items []T `json:"items"`

	// NextCursor fetches the following page. Absent on the final page.
	NextCursor string `json:"nextCursor,omitempty"`

	// HasMore reports whether another page exists.
	HasMore bool `json:"hasMore"`
}

// NewPaginatedResponse builds a page from an overfetched window. Callers pass
// up to limit+1 items; the extra item proves another page exists and is
// trimmed off, and cursorFor points the cursor at the last item kept.
func NewPaginatedResponse[T any](items []T, limit int, cursorFor func(T) *Cursor) *PaginatedResponse[T] {
	hasMore := len(items) > limit
	if hasMore {
		items = items[:limit]
	}

	var nextCursor string

	if hasMore && len(items) > 0 && cursorFor != nil {
		nextCursor = EncodeCursor(cursorFor(items[len(items)-1]))
	}

	return &PaginatedResponse[T]{
		Items:      items,
		NextCursor: nextCursor,
		HasMore:    hasMore,
	}
}

// EmptyPaginatedResponse is the zero page.
func EmptyPaginatedResponse[T any]() *PaginatedResponse[T] {
	return &PaginatedResponse[T]{
		Items:   []T{},
		HasMore: false,
	}
}
