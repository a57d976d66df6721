package domain

import "time"

// MonthlyTheme guides quote selection and reflection tone for one month of
// the year.
type MonthlyTheme struct {
	Name        string
	Description string
}

// monthlyThemes assigns each calendar month its theme.
var monthlyThemes = map[time.Month]MonthlyTheme{
	time.January: {
		Name:        "Discipline and Self-Improvement",
		Description: "Focus on building habits, self-control, and starting fresh",
	},
	time.February: {
		Name:        "Relationships and Community",
		Description: "Our connections to others, love, friendship, and social virtue",
	},
	time.March: {
		Name:        "Resilience and Adversity",
		Description: "Facing challenges, growing through difficulty, and mental toughness",
	},
	time.April: {
		Name:        "Nature and Acceptance",
		Description: "Living in accordance with nature, accepting what is",
	},
	time.May: {
		Name:        "Virtue and Character",
		Description: "The four cardinal virtues (wisdom, justice, courage, temperance)",
	},
	time.June: {
		Name:        "Wisdom and Philosophy",
		Description: "The love of wisdom, continuous learning, and philosophical practice",
	},
	time.July: {
		Name:        "Freedom and Autonomy",
		Description: "Inner freedom, independence of mind, and self-sufficiency",
	},
	time.August: {
		Name:        "Patience and Endurance",
		Description: "Long-term thinking, persistence, and bearing hardship",
	},
	time.September: {
		Name:        "Purpose and Calling",
		Description: "Finding meaning, living deliberately, and fulfilling your role",
	},
	time.October: {
		Name:        "Mortality and Impermanence",
		Description: "Memento mori, making the most of time, and perspective on death",
	},
	time.November: {
		Name:        "Gratitude and Contentment",
		Description: "Appreciating what we have, finding sufficiency, and thanksgiving",
	},
	time.December: {
		Name:        "Reflection and Legacy",
		Description: "Year-end contemplation, examining life, and what we leave behind",
	},
}

// ThemeForMonth returns the theme assigned to a month. Values outside
// January through December return the zero theme.
func ThemeForMonth(m time.Month) MonthlyTheme {
	return monthlyThemes[m]
}
