package ports

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrDuplicateChecker is returned when a second checker registers under a
// name that is already taken.
var ErrDuplicateChecker = errors.New("duplicate health checker")

// HealthStatus is the coarse health state reported for a component or for
// the service as a whole.
type HealthStatus string

const (
	// HealthStatusHealthy means every check passed.
	HealthStatusHealthy HealthStatus = "healthy"

	// HealthStatusUnhealthy means at least one check failed.
	HealthStatusUnhealthy HealthStatus = "unhealthy"
)

// HealthChecker is implemented by adapters that can probe their own backing
// dependency: the blob store lists its bucket, the mailer inspects its
// sending account, the generation client pings the provider. Each adapter
// registers itself with the HealthRegistry during startup wiring.
//
//	func (s *Store) Name() string { return "blob-store" }
//
//	func (s *Store) Check(ctx context.Context) error {
//	    return s.probeBucket(ctx)
//	}
type HealthChecker interface {
	// Name identifies the component in readiness responses. Names must be
	// unique within a registry.
	Name() string

	// Check probes the dependency. A nil return means healthy. Probes
	// must honor ctx so a slow dependency cannot stall the readiness
	// endpoint past its deadline.
	Check(ctx context.Context) error
}

// HealthRegistry collects checkers at startup and fans probes out to all of
// them when the readiness endpoint asks.
type HealthRegistry interface {
	// Register adds a checker. It fails with ErrDuplicateChecker when the
	// name is already registered.
	Register(checker HealthChecker) error

	// CheckAll probes every registered checker concurrently and folds the
	// outcomes into a single result.
	CheckAll(ctx context.Context) *HealthResult
}

// HealthResult is the aggregate outcome of one CheckAll pass.
type HealthResult struct {
	// Status is unhealthy when any individual check failed.
	Status HealthStatus `json:"status"`

	// Checks holds per-component outcomes keyed by checker name.
	Checks map[string]*CheckResult `json:"checks"`

	// Timestamp records when the pass started.
	Timestamp time.Time `json:"timestamp"`
}

// CheckResult is the outcome of probing a single component.
type CheckResult struct {
	Status HealthStatus `json:"status"`

	// Message carries the probe error text on failure.
	Message string `json:"message,omitempty"`

	// Duration is how long the probe took.
	Duration time.Duration `json:"duration"`
}

// DefaultHealthRegistry is the standard HealthRegistry implementation. It is
// safe for concurrent use; registration normally finishes during startup but
// nothing requires it to.
type DefaultHealthRegistry struct {
	mu       sync.RWMutex
	checkers []HealthChecker
}

// NewHealthRegistry returns an empty registry.
func NewHealthRegistry() *DefaultHealthRegistry {
	return &DefaultHealthRegistry{}
}

// Register adds checker to the registry, rejecting duplicate names so two
// adapters cannot silently shadow each other in readiness output.
func (r *DefaultHealthRegistry) Register(checker HealthChecker) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := checker.Name()
	for _, existing := range r.checkers {
		if existing.Name() == name {
			return fmt.Errorf("%w: %s", ErrDuplicateChecker, name)
		}
	}

	r.checkers = append(r.checkers, checker)

	return nil
}

// CheckAll probes every registered checker concurrently. Probes share ctx,
// so the caller's deadline bounds the whole pass.
func (r *DefaultHealthRegistry) CheckAll(ctx context.Context) *HealthResult {
	r.mu.RLock()
	checkers := make([]HealthChecker, len(r.checkers))
	copy(checkers, r.checkers)
	r.mu.RUnlock()

	result := &HealthResult{
		Status:    HealthStatusHealthy,
		Checks:    make(map[string]*CheckResult, len(checkers)),
		Timestamp: time.Now(),
	}

	if len(checkers) == 0 {
		return result
	}

	// Each probe writes into its own slot; the fold below needs no lock.
	outcomes := make([]*CheckResult, len(checkers))

	var wg sync.WaitGroup
	for i, checker := range checkers {
		wg.Go(func() {
			outcomes[i] = runCheck(ctx, checker)
		})
	}

	wg.Wait()

	for i, checker := range checkers {
		result.Checks[checker.Name()] = outcomes[i]

		if outcomes[i].Status == HealthStatusUnhealthy {
			result.Status = HealthStatusUnhealthy
		}
	}

	return result
}

func runCheck(ctx context.Context, checker HealthChecker) *CheckResult {
	start := time.Now()
	err := checker.Check(ctx)

	outcome := &CheckResult{
		Status:   HealthStatusHealthy,
		Duration: time.Since(start),
	}
	if err != nil {
		outcome.Status = HealthStatusUnhealthy
		outcome.Message = err.Error()
	}

	return outcome
}
