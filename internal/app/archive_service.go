package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jsamuelsen/stoic-reflections/internal/domain"
	"github.com/jsamuelsen/stoic-reflections/internal/ports"
)

// ArchiveService owns persistence and maintenance of the reflection history
// document.
type ArchiveService struct {
	store  ports.BlobStore
	key    string
	logger *slog.Logger
	now    func() time.Time
}

// ArchiveServiceConfig contains dependencies for the archive service.
type ArchiveServiceConfig struct {
	Store      ports.BlobStore
	ArchiveKey string
	Logger     *slog.Logger

	// Now overrides the clock, for tests. Defaults to time.Now.
	Now func() time.Time
}

// NewArchiveService creates an archive service with the provided dependencies.
func NewArchiveService(cfg ArchiveServiceConfig) *ArchiveService {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	return &ArchiveService{
		store:  cfg.Store,
		key:    cfg.ArchiveKey,
		logger: logger.With(slog.String("component", "app.ArchiveService")),
		now:    now,
	}
}

// Load fetches the archive and the revision its save must be conditional on.
// A missing document is the first-run state and yields an empty archive.
func (s *ArchiveService) Load(ctx context.Context) (*domain.Archive, error) {
	data, revision, err := s.store.Get(ctx, s.key)
	if err != nil {
		if domain.IsNotFound(err) {
			s.logger.InfoContext(ctx, "no archive document yet, starting empty",
				slog.String("key", s.key),
			)

			return domain.NewArchive(), nil
		}

		return nil, domain.NewArchiveUnavailableError(s.key, err.Error())
	}

	archive, err := domain.ParseArchive(data, revision)
	if err != nil {
		return nil, domain.NewArchiveUnavailableError(s.key, err.Error())
	}

	return archive, nil
}

// Save overwrites the history document, conditional on the revision the
// archive was loaded with. A lost race surfaces as domain.ErrStaleWrite; any
// other store failure as domain.ErrArchiveWriteFailed.
func (s *ArchiveService) Save(ctx context.Context, archive *domain.Archive) (domain.Revision, error) {
	data, err := archive.MarshalDocument()
	if err != nil {
		return "", domain.NewArchiveWriteError(s.key, err.Error())
	}

	revision, err := s.store.Put(ctx, s.key, data, archive.Revision())
	if err != nil {
		if domain.IsStaleWrite(err) {
			return "", err
		}

		return "", domain.NewArchiveWriteError(s.key, err.Error())
	}

	return revision, nil
}

// Stats loads the archive and summarizes it for operators.
func (s *ArchiveService) Stats(ctx context.Context) (domain.ArchiveStats, error) {
	archive, err := s.Load(ctx)
	if err != nil {
		return domain.ArchiveStats{}, err
	}

	return archive.Stats(), nil
}

// Entries loads the archive and returns all entries in stored order.
func (s *ArchiveService) Entries(ctx context.Context) ([]domain.ReflectionEntry, error) {
	archive, err := s.Load(ctx)
	if err != nil {
		return nil, err
	}

	return archive.Entries(), nil
}

// PruneOutcome reports an on-demand prune and the resulting archive size.
type PruneOutcome struct {
	Removed    int `json:"removed"`
	Unparsable int `json:"unparsable"`
	Remaining  int `json:"remaining"`
}

// Prune drops entries older than the retention window and persists the
// result. keepDays must be positive.
func (s *ArchiveService) Prune(ctx context.Context, keepDays int) (PruneOutcome, error) {
	if keepDays <= 0 {
		return PruneOutcome{}, fmt.Errorf("validating retention: %w",
			domain.NewValidationError("keepDays", "must be positive"))
	}

	archive, err := s.Load(ctx)
	if err != nil {
		return PruneOutcome{}, err
	}

	result := archive.Prune(keepDays, s.now())

	if _, err := s.Save(ctx, archive); err != nil {
		return PruneOutcome{}, err
	}

	outcome := PruneOutcome{
		Removed:    result.Removed,
		Unparsable: result.Unparsable,
		Remaining:  archive.Count(),
	}

	s.logger.InfoContext(ctx, "archive pruned",
		slog.Int("keep_days", keepDays),
		slog.Int("removed", outcome.Removed),
		slog.Int("unparsable", outcome.Unparsable),
		slog.Int("remaining", outcome.Remaining),
	)

	return outcome, nil
}
