package domain

import "strings"

// Reflection length bounds in words. The minimum gates sending; the maximum
// is advisory and only worth a warning.
const (
	ReflectionMinWords = 200
	ReflectionMaxWords = 500
)

// KnownAuthors are the classical sources the quote dataset draws from.
var KnownAuthors = []string{
	"Marcus Aurelius",
	"Epictetus",
	"Seneca",
	"Musonius Rufus",
}

// GeneratedReflection is the model output for one day: the day's quote
// restated alongside the reflection essay.
type GeneratedReflection struct {
	Quote       string
	Attribution string
	Reflection  string
}

// ContentReport is the outcome of validating generated content before it is
// archived and sent.
type ContentReport struct {
	HasQuote       bool
	HasAttribution bool
	HasReflection  bool
	WordCount      int
	MeetsMinWords  bool
	WithinMaxWords bool

	// AttributionRecognized is advisory: false when the attribution does
	// not follow the "Author - Work" shape with a known classical author.
	AttributionRecognized bool

	// Valid is true when the quote, attribution, and reflection are all
	// present and the reflection meets the minimum length. Exceeding the
	// maximum or an unrecognized attribution does not invalidate the
	// content.
	Valid bool
}

// Validate checks the generated content against the sending gates.
func (g GeneratedReflection) Validate() ContentReport {
	report := ContentReport{
		HasQuote:              strings.TrimSpace(g.Quote) != "",
		HasAttribution:        strings.TrimSpace(g.Attribution) != "",
		HasReflection:         strings.TrimSpace(g.Reflection) != "",
		WordCount:             WordCount(g.Reflection),
		AttributionRecognized: AttributionLooksKnown(g.Attribution),
	}

	report.MeetsMinWords = report.WordCount >= ReflectionMinWords
	report.WithinMaxWords = report.WordCount <= ReflectionMaxWords
	report.Valid = report.HasQuote && report.HasAttribution &&
		report.HasReflection && report.MeetsMinWords

	return report
}

// AttributionLooksKnown reports whether an attribution follows the
// "Author - Work" shape and names a recognized classical author.
func AttributionLooksKnown(attribution string) bool {
	author, _, found := strings.Cut(attribution, " - ")
	if !found {
		return false
	}

	for _, known := range KnownAuthors {
		if strings.Contains(author, known) {
			return true
		}
	}

	return false
}

// WordCount counts whitespace-separated words.
func WordCount(s string) int {
	return len(strings.Fields(s))
}
