package app

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/jsamuelsen/stoic-reflections/internal/domain"
	"github.com/jsamuelsen/stoic-reflections/internal/ports"
)

// ResolverService resolves calendar dates to their authored quotes. The
// dataset is loaded from the blob store on first use and cached for the
// lifetime of the process; it only changes with a deploy.
type ResolverService struct {
	store  ports.BlobStore
	key    string
	logger *slog.Logger

	mu      sync.Mutex
	dataset *domain.QuoteDataset
}

// ResolverServiceConfig contains dependencies for the resolver service.
type ResolverServiceConfig struct {
	Store      ports.BlobStore
	DatasetKey string
	Logger     *slog.Logger
}

// NewResolverService creates a resolver service with the provided dependencies.
func NewResolverService(cfg ResolverServiceConfig) *ResolverService {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &ResolverService{
		store:  cfg.Store,
		key:    cfg.DatasetKey,
		logger: logger.With(slog.String("component", "app.ResolverService")),
	}
}

// Resolve returns the quote assigned to a calendar date.
func (s *ResolverService) Resolve(ctx context.Context, date time.Time) (domain.DailyQuote, error) {
	dataset, err := s.loadDataset(ctx)
	if err != nil {
		return domain.DailyQuote{}, err
	}

	return dataset.Resolve(date)
}

// Integrity reports dataset completeness against the full calendar.
func (s *ResolverService) Integrity(ctx context.Context) (domain.IntegrityReport, error) {
	dataset, err := s.loadDataset(ctx)
	if err != nil {
		return domain.IntegrityReport{}, err
	}

	return dataset.Integrity(), nil
}

// loadDataset returns the cached dataset, fetching it on first use. Failed
// loads are not cached, so a store outage at startup heals on the next call.
func (s *ResolverService) loadDataset(ctx context.Context) (*domain.QuoteDataset, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.dataset != nil {
		return s.dataset, nil
	}

	data, _, err := s.store.Get(ctx, s.key)
	if err != nil {
		return nil, domain.NewDatasetUnavailableError(s.key, err.Error())
	}

	dataset, err := domain.ParseQuoteDataset(data)
	if err != nil {
		return nil, domain.NewDatasetUnavailableError(s.key, err.Error())
	}

	s.dataset = dataset

	report := dataset.Integrity()
	s.logger.InfoContext(ctx, "quote dataset loaded",
		slog.String("key", s.key),
		slog.Int("entries", report.Total),
		slog.Bool("complete", report.Complete),
	)

	return dataset, nil
}
