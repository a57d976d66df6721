package ports

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// checkerFunc adapts a plain function to the HealthChecker interface.
type checkerFunc struct {
	name string
	fn   func(ctx context.Context) error
}

func (c checkerFunc) Name() string                    { return c.name }
func (c checkerFunc) Check(ctx context.Context) error { return c.fn(ctx) }

func healthyChecker(name string) checkerFunc {
	return checkerFunc{name: name, fn: func(context.Context) error { return nil }}
}

func failingChecker(name, message string) checkerFunc {
	return checkerFunc{name: name, fn: func(context.Context) error { return errors.New(message) }}
}

func TestRegister(t *testing.T) {
	t.Run("accepts distinct names", func(t *testing.T) {
		registry := NewHealthRegistry()

		require.NoError(t, registry.Register(healthyChecker("blob-store")))
		require.NoError(t, registry.Register(healthyChecker("mailer")))

		assert.Len(t, registry.checkers, 2)
	})

	t.Run("rejects a duplicate name", func(t *testing.T) {
		registry := NewHealthRegistry()
		require.NoError(t, registry.Register(healthyChecker("blob-store")))

		err := registry.Register(failingChecker("blob-store", "unused"))

		require.ErrorIs(t, err, ErrDuplicateChecker)
		assert.Contains(t, err.Error(), "blob-store")
		assert.Len(t, registry.checkers, 1)
	})
}

func TestCheckAll(t *testing.T) {
	t.Run("empty registry reports healthy", func(t *testing.T) {
		result := NewHealthRegistry().CheckAll(context.Background())

		require.NotNil(t, result)
		assert.Equal(t, HealthStatusHealthy, result.Status)
		assert.Empty(t, result.Checks)
		assert.False(t, result.Timestamp.IsZero())
	})

	t.Run("aggregates one outcome per checker", func(t *testing.T) {
		registry := NewHealthRegistry()
		require.NoError(t, registry.Register(healthyChecker("blob-store")))
		require.NoError(t, registry.Register(healthyChecker("anthropic")))
		require.NoError(t, registry.Register(healthyChecker("ses-mailer")))

		result := registry.CheckAll(context.Background())

		assert.Equal(t, HealthStatusHealthy, result.Status)
		require.Len(t, result.Checks, 3)

		for _, name := range []string{"blob-store", "anthropic", "ses-mailer"} {
			outcome := result.Checks[name]
			require.NotNil(t, outcome, "missing outcome for %s", name)
			assert.Equal(t, HealthStatusHealthy, outcome.Status)
			assert.Empty(t, outcome.Message)
		}
	})

	t.Run("one failing probe flips the aggregate", func(t *testing.T) {
		registry := NewHealthRegistry()
		require.NoError(t, registry.Register(healthyChecker("blob-store")))
		require.NoError(t, registry.Register(failingChecker("anthropic", "connection timeout")))

		result := registry.CheckAll(context.Background())

		assert.Equal(t, HealthStatusUnhealthy, result.Status)
		assert.Equal(t, HealthStatusHealthy, result.Checks["blob-store"].Status)
		assert.Equal(t, HealthStatusUnhealthy, result.Checks["anthropic"].Status)
		assert.Equal(t, "connection timeout", result.Checks["anthropic"].Message)
	})

	t.Run("records probe duration", func(t *testing.T) {
		registry := NewHealthRegistry()
		require.NoError(t, registry.Register(checkerFunc{
			name: "mailer",
			fn: func(context.Context) error {
				time.Sleep(10 * time.Millisecond)
				return nil
			},
		}))

		result := registry.CheckAll(context.Background())

		assert.GreaterOrEqual(t, result.Checks["mailer"].Duration, 10*time.Millisecond)
	})
}

// TestCheckAll_RunsProbesConcurrently registers two probes that each wait for
// the other to start. Sequential execution would strand the first probe until
// its internal timeout fails the test.
func TestCheckAll_RunsProbesConcurrently(t *testing.T) {
	first := make(chan struct{})
	second := make(chan struct{})

	rendezvous := func(started, peer chan struct{}) func(context.Context) error {
		return func(context.Context) error {
			close(started)
			select {
			case <-peer:
				return nil
			case <-time.After(2 * time.Second):
				return errors.New("peer probe never started")
			}
		}
	}

	registry := NewHealthRegistry()
	require.NoError(t, registry.Register(checkerFunc{name: "blob-store", fn: rendezvous(first, second)}))
	require.NoError(t, registry.Register(checkerFunc{name: "mailer", fn: rendezvous(second, first)}))

	result := registry.CheckAll(context.Background())

	assert.Equal(t, HealthStatusHealthy, result.Status)
}

func TestCheckAll_CanceledContextReachesProbes(t *testing.T) {
	registry := NewHealthRegistry()
	require.NoError(t, registry.Register(checkerFunc{
		name: "blob-store",
		fn: func(ctx context.Context) error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(100 * time.Millisecond):
				return nil
			}
		},
	}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result := registry.CheckAll(ctx)

	assert.Equal(t, HealthStatusUnhealthy, result.Status)
	assert.Contains(t, result.Checks["blob-store"].Message, "context canceled")
}
