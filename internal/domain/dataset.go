package domain

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// DateFormat is the wire format for calendar dates in documents and URLs.
const DateFormat = "2006-01-02"

// DatasetSize is the number of entries a complete dataset carries: one per
// calendar day with Feb 29 folded onto Feb 28.
const DatasetSize = 365

// monthNames lists lowercase English month names in calendar order. Dataset
// documents are keyed by these names.
var monthNames = []string{
	"january", "february", "march", "april", "may", "june",
	"july", "august", "september", "october", "november", "december",
}

// monthLengths holds the canonical day count per month, index-aligned with
// monthNames. February is 28; leap days resolve to Feb 28.
var monthLengths = []int{31, 28, 31, 30, 31, 30, 31, 31, 30, 31, 30, 31}

// QuoteEntry is one authored row of the dataset: a quote assigned to a day
// of its month.
type QuoteEntry struct {
	Day         int    `json:"day"`
	Theme       string `json:"theme"`
	Quote       string `json:"quote"`
	Attribution string `json:"attribution"`
}

// DailyQuote is the quote resolved for a calendar date.
type DailyQuote struct {
	Quote       string
	Attribution string
	Theme       string
}

// QuoteDataset is the full calendar of authored quotes, keyed by lowercase
// month name. It is immutable once parsed.
type QuoteDataset struct {
	months map[string][]QuoteEntry
}

// NewQuoteDataset builds a dataset from month entry lists.
func NewQuoteDataset(months map[string][]QuoteEntry) *QuoteDataset {
	return &QuoteDataset{months: months}
}

// ParseQuoteDataset decodes the canonical dataset document: a JSON object
// keyed by lowercase month name, each value an ordered array of day entries.
func ParseQuoteDataset(data []byte) (*QuoteDataset, error) {
	var months map[string][]QuoteEntry
	if err := json.Unmarshal(data, &months); err != nil {
		return nil, fmt.Errorf("decode quote dataset: %w", err)
	}

	return &QuoteDataset{months: months}, nil
}

// MonthKey returns the dataset key for a month.
func MonthKey(m time.Month) string {
	return strings.ToLower(m.String())
}

// ParseDate parses a YYYY-MM-DD date string.
func ParseDate(value string) (time.Time, error) {
	t, err := time.Parse(DateFormat, value)
	if err != nil {
		return time.Time{}, NewInvalidDateError(value)
	}

	return t, nil
}

// Resolve returns the quote for a calendar date. Feb 29 resolves to the
// Feb 28 entry, so leap days never need their own dataset row. When a month's
// list holds the same day twice, the first occurrence wins.
func (d *QuoteDataset) Resolve(date time.Time) (DailyQuote, error) {
	month := MonthKey(date.Month())

	day := date.Day()
	if date.Month() == time.February && day == 29 {
		day = 28
	}

	entries, ok := d.months[month]
	if !ok {
		return DailyQuote{}, NewMonthNotFoundError(month)
	}

	for _, e := range entries {
		if e.Day == day {
			return DailyQuote{Quote: e.Quote, Attribution: e.Attribution, Theme: e.Theme}, nil
		}
	}

	return DailyQuote{}, NewDayNotFoundError(month, day)
}

// MonthDay identifies one calendar slot of the dataset.
type MonthDay struct {
	Month string `json:"month"`
	Day   int    `json:"day"`
}

// IntegrityReport summarizes dataset completeness.
type IntegrityReport struct {
	// Complete is true when every calendar slot is filled exactly once and
	// the dataset holds exactly DatasetSize entries.
	Complete bool `json:"complete"`

	// Total is the raw entry count across all months, including entries on
	// duplicate or out-of-range days.
	Total int `json:"total"`

	// Missing lists unfilled calendar slots in calendar order.
	Missing []MonthDay `json:"missing,omitempty"`

	// Duplicates lists one element per extra occurrence of an already-seen
	// day, in dataset order.
	Duplicates []MonthDay `json:"duplicates,omitempty"`
}

// Integrity checks every month against its canonical length and reports
// missing and duplicated days. Months absent from the document contribute all
// their days to Missing.
func (d *QuoteDataset) Integrity() IntegrityReport {
	report := IntegrityReport{}

	for i, month := range monthNames {
		entries := d.months[month]
		report.Total += len(entries)

		seen := make(map[int]int, len(entries))
		for _, e := range entries {
			seen[e.Day]++
			if seen[e.Day] > 1 {
				report.Duplicates = append(report.Duplicates, MonthDay{Month: month, Day: e.Day})
			}
		}

		for day := 1; day <= monthLengths[i]; day++ {
			if seen[day] == 0 {
				report.Missing = append(report.Missing, MonthDay{Month: month, Day: day})
			}
		}
	}

	report.Complete = len(report.Missing) == 0 &&
		len(report.Duplicates) == 0 &&
		report.Total == DatasetSize

	return report
}
