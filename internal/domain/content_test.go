package domain

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func words(n int) string {
	return strings.TrimSpace(strings.Repeat("word ", n))
}

func TestGeneratedReflection_Validate(t *testing.T) {
	tests := []struct {
		name       string
		reflection GeneratedReflection
		valid      bool
		withinMax  bool
	}{
		{
			name: "well formed",
			reflection: GeneratedReflection{
				Quote:       "Be tolerant with others and strict with yourself.",
				Attribution: "Marcus Aurelius - Meditations 5.33",
				Reflection:  words(ReflectionMinWords),
			},
			valid:     true,
			withinMax: true,
		},
		{
			name: "reflection one word short",
			reflection: GeneratedReflection{
				Quote:       "q",
				Attribution: "a",
				Reflection:  words(ReflectionMinWords - 1),
			},
			valid:     false,
			withinMax: true,
		},
		{
			name: "over the advisory maximum still valid",
			reflection: GeneratedReflection{
				Quote:       "q",
				Attribution: "a",
				Reflection:  words(ReflectionMaxWords + 1),
			},
			valid:     true,
			withinMax: false,
		},
		{
			name: "missing quote",
			reflection: GeneratedReflection{
				Quote:       "   ",
				Attribution: "a",
				Reflection:  words(ReflectionMinWords),
			},
			valid:     false,
			withinMax: true,
		},
		{
			name: "missing attribution",
			reflection: GeneratedReflection{
				Quote:       "q",
				Attribution: "",
				Reflection:  words(ReflectionMinWords),
			},
			valid:     false,
			withinMax: true,
		},
		{
			name:       "everything empty",
			reflection: GeneratedReflection{},
			valid:      false,
			withinMax:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			report := tt.reflection.Validate()

			assert.Equal(t, tt.valid, report.Valid)
			assert.Equal(t, tt.withinMax, report.WithinMaxWords)
			assert.Equal(t, WordCount(tt.reflection.Reflection), report.WordCount)
		})
	}
}

func TestAttributionLooksKnown(t *testing.T) {
	tests := []struct {
		name        string
		attribution string
		known       bool
	}{
		{"meditations with section", "Marcus Aurelius - Meditations 4.3", true},
		{"seneca letters", "Seneca - Letters to Lucilius 13", true},
		{"epictetus without section", "Epictetus - Enchiridion", true},
		{"musonius rufus", "Musonius Rufus - Lectures 6", true},
		{"no separator", "Marcus Aurelius, Meditations 4.3", false},
		{"unknown author", "Aristotle - Nicomachean Ethics", false},
		{"empty", "", false},
		{"dash without spaces", "Seneca-Letters", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.known, AttributionLooksKnown(tt.attribution))
		})
	}
}

func TestGeneratedReflection_Validate_AttributionAdvisory(t *testing.T) {
	reflection := GeneratedReflection{
		Quote:       "q",
		Attribution: "Anonymous proverb",
		Reflection:  words(ReflectionMinWords),
	}

	report := reflection.Validate()

	assert.False(t, report.AttributionRecognized)
	assert.True(t, report.Valid, "unrecognized attribution must stay advisory")
}

func TestWordCount(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected int
	}{
		{"empty", "", 0},
		{"whitespace only", "  \n\t ", 0},
		{"single word", "stoicism", 1},
		{"newlines and double spaces", "mind  over\nmatter", 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, WordCount(tt.input))
		})
	}
}
