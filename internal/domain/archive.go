package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// DefaultKeepDays is the archive retention window used when pruning. It
// keeps a buffer beyond the attribution repeat window.
const DefaultKeepDays = 400

// DefaultAttributionWindowDays is how far back attribution repeat avoidance
// looks, matching the length of the quote cycle.
const DefaultAttributionWindowDays = 365

// Revision is an opaque version token for a stored document. Stores return
// one on reads and enforce it on conditional writes. The zero value writes
// unconditionally.
type Revision string

// ReflectionEntry is one archived daily reflection.
type ReflectionEntry struct {
	Date        string `json:"date"`
	Quote       string `json:"quote"`
	Attribution string `json:"attribution"`
	Theme       string `json:"theme"`
	Reflection  string `json:"reflection"`
}

// archiveDocument is the stored form of the archive. The quotes key is
// tolerated missing on read and always present on write.
type archiveDocument struct {
	Quotes []ReflectionEntry `json:"quotes"`
}

// Archive is the append-only reflection history, bounded by pruning. It keeps
// the revision of the document it was loaded from so saves can detect
// concurrent writers.
type Archive struct {
	entries  []ReflectionEntry
	revision Revision
}

// NewArchive returns an empty archive with no revision, as on first run.
func NewArchive() *Archive {
	return &Archive{}
}

// ParseArchive decodes a stored archive document. A document without the
// quotes key yields an empty archive; the key is restored on the next save.
func ParseArchive(data []byte, revision Revision) (*Archive, error) {
	var doc archiveDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode reflection archive: %w", err)
	}

	return &Archive{entries: doc.Quotes, revision: revision}, nil
}

// Revision returns the token of the document this archive was loaded from.
func (a *Archive) Revision() Revision {
	return a.revision
}

// Count returns the number of archived entries.
func (a *Archive) Count() int {
	return len(a.entries)
}

// Entries returns a copy of all archived entries in stored order.
func (a *Archive) Entries() []ReflectionEntry {
	out := make([]ReflectionEntry, len(a.entries))
	copy(out, a.entries)

	return out
}

// Append records an entry in memory. Nothing is deduplicated; re-running a
// day appends a second entry for that date.
func (a *Archive) Append(entry ReflectionEntry) {
	a.entries = append(a.entries, entry)
}

// EntriesForMonth returns entries from the same month and year as ref, dated
// strictly before ref's day. The second return is the number of entries
// skipped because their date would not parse.
func (a *Archive) EntriesForMonth(ref time.Time) ([]ReflectionEntry, int) {
	var out []ReflectionEntry

	skipped := 0
	for _, e := range a.entries {
		d, err := time.Parse(DateFormat, e.Date)
		if err != nil {
			skipped++
			continue
		}

		if d.Year() == ref.Year() && d.Month() == ref.Month() && d.Day() < ref.Day() {
			out = append(out, e)
		}
	}

	return out, skipped
}

// AttributionsUsedWithin returns the distinct attributions of entries dated
// on or after now minus the given number of days, in first-seen order. The
// second return is the number of entries skipped because their date would
// not parse.
func (a *Archive) AttributionsUsedWithin(days int, now time.Time) ([]string, int) {
	cutoff := dateOnly(now.AddDate(0, 0, -days))

	var out []string

	seen := make(map[string]bool)
	skipped := 0

	for _, e := range a.entries {
		d, err := time.Parse(DateFormat, e.Date)
		if err != nil {
			skipped++
			continue
		}

		if d.Before(cutoff) || seen[e.Attribution] {
			continue
		}

		seen[e.Attribution] = true
		out = append(out, e.Attribution)
	}

	return out, skipped
}

// ArchiveStats summarizes the archive for operators.
type ArchiveStats struct {
	// Count is the number of archived entries.
	Count int `json:"count"`

	// Oldest and Newest are the extreme entry dates, empty when no entry
	// has a parsable date.
	Oldest string `json:"oldest,omitempty"`
	Newest string `json:"newest,omitempty"`

	// Skipped is the number of entries whose date would not parse.
	Skipped int `json:"skipped"`
}

// Stats scans the archive and reports its size and date range.
func (a *Archive) Stats() ArchiveStats {
	stats := ArchiveStats{Count: len(a.entries)}

	var oldest, newest time.Time

	for _, e := range a.entries {
		d, err := time.Parse(DateFormat, e.Date)
		if err != nil {
			stats.Skipped++
			continue
		}

		if oldest.IsZero() || d.Before(oldest) {
			oldest = d
			stats.Oldest = e.Date
		}

		if newest.IsZero() || d.After(newest) {
			newest = d
			stats.Newest = e.Date
		}
	}

	return stats
}

// PruneResult reports what a prune dropped.
type PruneResult struct {
	// Removed is the number of entries dropped for being older than the
	// retention cutoff.
	Removed int

	// Unparsable is the number of entries dropped because their date would
	// not parse. Entries that cannot be dated cannot be retained correctly.
	Unparsable int
}

// Prune drops entries dated strictly before now minus keepDays, along with
// any entry whose date does not parse. Entries dated exactly on the cutoff
// are kept.
func (a *Archive) Prune(keepDays int, now time.Time) PruneResult {
	cutoff := dateOnly(now.AddDate(0, 0, -keepDays))

	var result PruneResult

	kept := a.entries[:0]
	for _, e := range a.entries {
		d, err := time.Parse(DateFormat, e.Date)
		if err != nil {
			result.Unparsable++
			continue
		}

		if d.Before(cutoff) {
			result.Removed++
			continue
		}

		kept = append(kept, e)
	}

	a.entries = kept

	return result
}

// MarshalDocument encodes the archive in its stored form. The quotes key is
// always present, even when empty.
func (a *Archive) MarshalDocument() ([]byte, error) {
	doc := archiveDocument{Quotes: a.entries}
	if doc.Quotes == nil {
		doc.Quotes = []ReflectionEntry{}
	}

	return json.Marshal(doc)
}

// dateOnly truncates a time to its UTC calendar date, matching the precision
// of archived entry dates.
func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
