package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jsamuelsen/stoic-reflections/internal/domain"
	"github.com/jsamuelsen/stoic-reflections/internal/ports"
)

// DeliveryReport summarizes one completed daily run.
type DeliveryReport struct {
	Date        string `json:"date"`
	Theme       string `json:"theme"`
	Attribution string `json:"attribution"`

	// Sent and Failed count per-recipient outcomes. A run succeeds as long
	// as at least one recipient got the mail.
	Sent   int `json:"sent"`
	Failed int `json:"failed"`

	// ArchiveSize is the archive entry count after the run's append and
	// prune.
	ArchiveSize int `json:"archiveSize"`

	// SkippedEntries counts archive entries with unparsable dates that the
	// run's scans had to step over. Non-zero means the archive document
	// needs attention.
	SkippedEntries int `json:"skippedEntries"`
}

// DeliveryService runs the daily job end to end: resolve the day's quote,
// generate the reflection, archive it, and fan the email out to the send
// list. The steps run through the executor so nothing is persisted before
// the content passes verification, and nothing is sent before it is
// persisted.
type DeliveryService struct {
	executor      *Executor
	resolver      *ResolverService
	archive       *ArchiveService
	generator     ports.ReflectionGenerator
	renderer      ports.EmailRenderer
	mailer        ports.Mailer
	store         ports.BlobStore
	recipientsKey string
	sender        string
	keepDays      int
	windowDays    int
	maxParallel   int
	metrics       *DeliveryMetrics
	logger        *slog.Logger
	now           func() time.Time
}

// DeliveryServiceConfig contains dependencies for the delivery service.
type DeliveryServiceConfig struct {
	Resolver      *ResolverService
	Archive       *ArchiveService
	Generator     ports.ReflectionGenerator
	Renderer      ports.EmailRenderer
	Mailer        ports.Mailer
	Store         ports.BlobStore
	RecipientsKey string

	// Sender is the from address on outgoing reflection mail.
	Sender string

	// KeepDays bounds archive retention. Defaults to
	// domain.DefaultKeepDays.
	KeepDays int

	// AttributionWindowDays is the repeat-avoidance lookback. Defaults to
	// domain.DefaultAttributionWindowDays.
	AttributionWindowDays int

	// MaxParallel caps concurrent sends. Defaults to 1.
	MaxParallel int

	// Metrics may be nil, in which case nothing is recorded.
	Metrics *DeliveryMetrics

	Logger *slog.Logger

	// Now overrides the clock, for tests. Defaults to time.Now.
	Now func() time.Time
}

// NewDeliveryService creates a delivery service with the provided
// dependencies.
func NewDeliveryService(cfg DeliveryServiceConfig) *DeliveryService {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	logger = logger.With(slog.String("component", "app.DeliveryService"))

	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	keepDays := cfg.KeepDays
	if keepDays <= 0 {
		keepDays = domain.DefaultKeepDays
	}

	windowDays := cfg.AttributionWindowDays
	if windowDays <= 0 {
		windowDays = domain.DefaultAttributionWindowDays
	}

	maxParallel := cfg.MaxParallel
	if maxParallel <= 0 {
		maxParallel = 1
	}

	return &DeliveryService{
		executor:      NewExecutor(logger),
		resolver:      cfg.Resolver,
		archive:       cfg.Archive,
		generator:     cfg.Generator,
		renderer:      cfg.Renderer,
		mailer:        cfg.Mailer,
		store:         cfg.Store,
		recipientsKey: cfg.RecipientsKey,
		sender:        cfg.Sender,
		keepDays:      keepDays,
		windowDays:    windowDays,
		maxParallel:   maxParallel,
		metrics:       cfg.Metrics,
		logger:        logger,
		now:           now,
	}
}

// Run executes the daily delivery for today's date in UTC.
func (s *DeliveryService) Run(ctx context.Context) (DeliveryReport, error) {
	return s.RunForDate(ctx, s.now().UTC())
}

// RunForDate executes the daily delivery for a specific date. Rerunning a
// date appends a second archive entry and sends again; the scheduler fires
// once per day, and manual triggers are on the operator.
func (s *DeliveryService) RunForDate(ctx context.Context, date time.Time) (DeliveryReport, error) {
	started := time.Now()

	report, err := s.runForDate(ctx, date)

	s.metrics.ObserveRun(ctx, time.Since(started), err)

	return report, err
}

func (s *DeliveryService) runForDate(ctx context.Context, date time.Time) (DeliveryReport, error) {
	// The quote and the send list live in separate documents; load both
	// before deciding whether the run can proceed at all.
	quote, recipients, err := Parallel2(ctx,
		func(ctx context.Context) (domain.DailyQuote, error) {
			return s.resolver.Resolve(ctx, date)
		},
		func(ctx context.Context) (*domain.RecipientList, error) {
			return loadRecipients(ctx, s.store, s.recipientsKey)
		},
	)
	if err != nil {
		return DeliveryReport{}, err
	}

	input := deliveryInput{
		date:       date,
		quote:      quote,
		theme:      domain.ThemeForMonth(date.Month()),
		recipients: recipients.Emails(),
	}

	op := Operation[deliveryInput, generationResult, verifiedContent, DeliveryReport]{
		Name:     "deliver_daily_reflection",
		Validate: s.validateDelivery,
		Perform:  s.generateReflection,
		Verify:   s.verifyContent,
		Archive:  s.archiveReflection,
		Respond:  s.sendReflection,
	}

	return Execute(ctx, s.executor, op, input)
}

// deliveryInput carries the day's resolved facts into the pipeline.
type deliveryInput struct {
	date       time.Time
	quote      domain.DailyQuote
	theme      domain.MonthlyTheme
	recipients []string
}

// generationResult is what Perform hands to Verify. The loaded archive rides
// along so the later steps reuse the same revision.
type generationResult struct {
	content        domain.GeneratedReflection
	archive        *domain.Archive
	skippedEntries int
}

// verifiedContent is the checked content plus everything the archive and
// respond steps need.
type verifiedContent struct {
	content        domain.GeneratedReflection
	report         domain.ContentReport
	archive        *domain.Archive
	skippedEntries int
}

func (s *DeliveryService) validateDelivery(_ context.Context, in deliveryInput) error {
	if len(in.recipients) == 0 {
		return domain.NewValidationError("recipients", "no recipients configured")
	}

	if in.quote.Quote == "" {
		return domain.NewValidationError("quote", "resolved quote is empty")
	}

	return nil
}

func (s *DeliveryService) generateReflection(ctx context.Context, in deliveryInput) (generationResult, error) {
	archive, err := s.archive.Load(ctx)
	if err != nil {
		return generationResult{}, err
	}

	entries, skipped := archive.EntriesForMonth(in.date)

	prior := make([]string, 0, len(entries))
	for _, entry := range entries {
		prior = append(prior, entry.Reflection)
	}

	// Both scans step over the same unparsable entries; count them once.
	exclusions, _ := archive.AttributionsUsedWithin(s.windowDays, in.date)

	content, err := s.generator.Generate(ctx, ports.GenerationRequest{
		Quote:              in.quote.Quote,
		Attribution:        in.quote.Attribution,
		Theme:              in.theme,
		RecentAttributions: exclusions,
		PriorReflections:   prior,
	})
	if err != nil {
		return generationResult{}, err
	}

	return generationResult{
		content:        content,
		archive:        archive,
		skippedEntries: skipped,
	}, nil
}

func (s *DeliveryService) verifyContent(ctx context.Context, _ deliveryInput, performed generationResult) (verifiedContent, error) {
	report := performed.content.Validate()
	if !report.Valid {
		return verifiedContent{}, domain.NewGenerationError("verification", contentProblems(report))
	}

	if !report.WithinMaxWords {
		s.logger.WarnContext(ctx, "reflection exceeds target length",
			slog.Int("words", report.WordCount),
		)
	}

	if !report.AttributionRecognized {
		s.logger.WarnContext(ctx, "attribution not in recognized form",
			slog.String("attribution", performed.content.Attribution),
		)
	}

	return verifiedContent{
		content:        performed.content,
		report:         report,
		archive:        performed.archive,
		skippedEntries: performed.skippedEntries,
	}, nil
}

// contentProblems names the hard failures in a report for the error message.
func contentProblems(report domain.ContentReport) string {
	var problems []string

	if !report.HasQuote {
		problems = append(problems, "missing quote")
	}

	if !report.HasAttribution {
		problems = append(problems, "missing attribution")
	}

	if !report.HasReflection {
		problems = append(problems, "missing reflection")
	}

	if report.HasReflection && !report.MeetsMinWords {
		problems = append(problems, fmt.Sprintf("reflection below minimum length (%d words)", report.WordCount))
	}

	return strings.Join(problems, "; ")
}

func (s *DeliveryService) archiveReflection(ctx context.Context, in deliveryInput, v verifiedContent) error {
	v.archive.Append(domain.ReflectionEntry{
		Date:        in.date.Format(domain.DateFormat),
		Quote:       v.content.Quote,
		Attribution: v.content.Attribution,
		Theme:       in.quote.Theme,
		Reflection:  v.content.Reflection,
	})

	pruned := v.archive.Prune(s.keepDays, in.date)
	if pruned.Removed > 0 || pruned.Unparsable > 0 {
		s.logger.InfoContext(ctx, "archive pruned",
			slog.Int("removed", pruned.Removed),
			slog.Int("unparsable", pruned.Unparsable),
		)
	}

	if _, err := s.archive.Save(ctx, v.archive); err != nil {
		return err
	}

	return nil
}

func (s *DeliveryService) sendReflection(ctx context.Context, in deliveryInput, v verifiedContent) (DeliveryReport, error) {
	sends := make([]func(context.Context) (string, error), 0, len(in.recipients))

	for _, recipient := range in.recipients {
		sends = append(sends, func(ctx context.Context) (string, error) {
			email, err := s.renderer.ReflectionEmail(s.sender, recipient, v.content, in.theme)
			if err != nil {
				return recipient, fmt.Errorf("rendering reflection email: %w", err)
			}

			if err := s.mailer.Send(ctx, email); err != nil {
				return recipient, err
			}

			return recipient, nil
		})
	}

	results := ParallelPartialLimit(ctx, s.maxParallel, sends...)

	sent := 0

	var firstErr error

	for _, result := range results {
		if result.Err == nil {
			sent++

			continue
		}

		if firstErr == nil {
			firstErr = result.Err
		}

		s.logger.ErrorContext(ctx, "reflection delivery failed",
			slog.String("recipient", result.Value),
			slog.Any("error", result.Err),
		)
	}

	failed := len(results) - sent
	s.metrics.ObserveEmails(ctx, sent, failed)

	if sent == 0 {
		return DeliveryReport{}, fmt.Errorf("all %d deliveries failed: %w", failed, firstErr)
	}

	report := DeliveryReport{
		Date:           in.date.Format(domain.DateFormat),
		Theme:          in.theme.Name,
		Attribution:    v.content.Attribution,
		Sent:           sent,
		Failed:         failed,
		ArchiveSize:    v.archive.Count(),
		SkippedEntries: v.skippedEntries,
	}

	s.logger.InfoContext(ctx, "daily reflection delivered",
		slog.String("date", report.Date),
		slog.String("theme", report.Theme),
		slog.Int("sent", report.Sent),
		slog.Int("failed", report.Failed),
		slog.Int("archive_size", report.ArchiveSize),
	)

	return report, nil
}
