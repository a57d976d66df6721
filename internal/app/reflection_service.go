package app

import (
	"context"
	"log/slog"
	"time"

	"github.com/jsamuelsen/stoic-reflections/internal/domain"
)

// DailyReflection is one archived reflection enriched with its month's theme,
// as served by the read API.
type DailyReflection struct {
	Date         string
	Quote        string
	Attribution  string
	Theme        string
	Reflection   string
	MonthlyTheme domain.MonthlyTheme
}

// ReflectionService serves archived reflections to readers.
type ReflectionService struct {
	archive *ArchiveService
	logger  *slog.Logger
	now     func() time.Time
}

// ReflectionServiceConfig contains dependencies for the reflection service.
type ReflectionServiceConfig struct {
	Archive *ArchiveService
	Logger  *slog.Logger

	// Now overrides the clock, for tests. Defaults to time.Now.
	Now func() time.Time
}

// NewReflectionService creates a reflection read service.
func NewReflectionService(cfg ReflectionServiceConfig) *ReflectionService {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	return &ReflectionService{
		archive: cfg.Archive,
		logger:  logger.With(slog.String("component", "app.ReflectionService")),
		now:     now,
	}
}

// Today returns the reflection archived for the current UTC date.
func (s *ReflectionService) Today(ctx context.Context) (DailyReflection, error) {
	return s.ForDate(ctx, s.now().UTC().Format(domain.DateFormat))
}

// ForDate returns the reflection archived for a YYYY-MM-DD date. The first
// archived entry for the date wins when a rerun doubled it up.
func (s *ReflectionService) ForDate(ctx context.Context, date string) (DailyReflection, error) {
	parsed, err := domain.ParseDate(date)
	if err != nil {
		return DailyReflection{}, err
	}

	archive, err := s.archive.Load(ctx)
	if err != nil {
		return DailyReflection{}, err
	}

	for _, entry := range archive.Entries() {
		if entry.Date != date {
			continue
		}

		return DailyReflection{
			Date:         entry.Date,
			Quote:        entry.Quote,
			Attribution:  entry.Attribution,
			Theme:        entry.Theme,
			Reflection:   entry.Reflection,
			MonthlyTheme: domain.ThemeForMonth(parsed.Month()),
		}, nil
	}

	s.logger.DebugContext(ctx, "no reflection archived for date", slog.String("date", date))

	return DailyReflection{}, domain.NewNotFoundError("reflection", date)
}
