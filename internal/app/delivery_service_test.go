package app

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/jsamuelsen/stoic-reflections/internal/adapters/storage"
	"github.com/jsamuelsen/stoic-reflections/internal/domain"
	"github.com/jsamuelsen/stoic-reflections/internal/mocks"
	"github.com/jsamuelsen/stoic-reflections/internal/ports"
)

// longReflection returns an essay that clears the minimum word gate.
func longReflection() string {
	return strings.TrimSpace(strings.Repeat("the obstacle turns into the way ", 35))
}

type deliveryDeps struct {
	store     *storage.MemoryStore
	generator *mocks.MockReflectionGenerator
	renderer  *mocks.MockEmailRenderer
	mailer    *mocks.MockMailer
	svc       *DeliveryService
}

func newDeliveryDeps(t *testing.T, now time.Time) deliveryDeps {
	t.Helper()

	store := storage.NewMemoryStore()
	generator := mocks.NewMockReflectionGenerator(t)
	renderer := mocks.NewMockEmailRenderer(t)
	mailer := mocks.NewMockMailer(t)

	svc := NewDeliveryService(DeliveryServiceConfig{
		Resolver: NewResolverService(ResolverServiceConfig{
			Store:      store,
			DatasetKey: testDatasetKey,
			Logger:     discardLogger(),
		}),
		Archive:       newArchiveService(store, now),
		Generator:     generator,
		Renderer:      renderer,
		Mailer:        mailer,
		Store:         store,
		RecipientsKey: testRecipientsKey,
		Sender:        testSender,
		MaxParallel:   2,
		Logger:        discardLogger(),
		Now:           func() time.Time { return now },
	})

	return deliveryDeps{
		store:     store,
		generator: generator,
		renderer:  renderer,
		mailer:    mailer,
		svc:       svc,
	}
}

func loadArchiveDoc(t *testing.T, store *storage.MemoryStore) *domain.Archive {
	t.Helper()

	data, revision, err := store.Get(context.Background(), testArchiveKey)
	require.NoError(t, err)

	archive, err := domain.ParseArchive(data, revision)
	require.NoError(t, err)

	return archive
}

func TestDeliveryService_RunForDate(t *testing.T) {
	date := time.Date(2026, time.August, 25, 7, 0, 0, 0, time.UTC)

	content := domain.GeneratedReflection{
		Quote:       "The impediment to action advances action.",
		Attribution: "Marcus Aurelius - Meditations 5.20",
		Reflection:  longReflection(),
	}

	t.Run("generates, archives, and delivers", func(t *testing.T) {
		deps := newDeliveryDeps(t, date)
		seedDataset(deps.store)
		deps.store.Seed(testRecipientsKey, []byte(`{"recipients": ["one@example.com", "two@example.com"]}`))

		deps.generator.EXPECT().
			Generate(mock.Anything, mock.MatchedBy(func(req ports.GenerationRequest) bool {
				return req.Quote == "The impediment to action advances action." &&
					req.Attribution == "Marcus Aurelius - Meditations 5.20" &&
					req.Theme.Name == "Patience and Endurance"
			})).
			Return(content, nil)

		rendered := ports.OutboundEmail{From: testSender, Subject: "Daily Stoic Reflection"}
		deps.renderer.EXPECT().
			ReflectionEmail(testSender, "one@example.com", content, mock.Anything).
			Return(rendered, nil)
		deps.renderer.EXPECT().
			ReflectionEmail(testSender, "two@example.com", content, mock.Anything).
			Return(rendered, nil)
		deps.mailer.EXPECT().Send(mock.Anything, rendered).Return(nil).Twice()

		report, err := deps.svc.RunForDate(context.Background(), date)

		require.NoError(t, err)
		assert.Equal(t, "2026-08-25", report.Date)
		assert.Equal(t, "Patience and Endurance", report.Theme)
		assert.Equal(t, "Marcus Aurelius - Meditations 5.20", report.Attribution)
		assert.Equal(t, 2, report.Sent)
		assert.Equal(t, 0, report.Failed)
		assert.Equal(t, 1, report.ArchiveSize)
		assert.Equal(t, 0, report.SkippedEntries)

		archive := loadArchiveDoc(t, deps.store)
		require.Equal(t, 1, archive.Count())

		entry := archive.Entries()[0]
		assert.Equal(t, "2026-08-25", entry.Date)
		assert.Equal(t, content.Quote, entry.Quote)
		assert.Equal(t, content.Attribution, entry.Attribution)
		assert.Equal(t, "Patience", entry.Theme)
		assert.Equal(t, content.Reflection, entry.Reflection)
	})

	t.Run("steers the generator with archive context", func(t *testing.T) {
		deps := newDeliveryDeps(t, date)
		seedDataset(deps.store)
		deps.store.Seed(testRecipientsKey, []byte(`{"recipients": ["one@example.com"]}`))
		seedArchive(deps.store, `{"quotes": [
			{"date": "2026-08-10", "quote": "q1", "attribution": "Seneca - Letters 2.1", "theme": "Patience", "reflection": "Earlier this month."},
			{"date": "2026-07-01", "quote": "q2", "attribution": "Epictetus - Discourses 1.1", "theme": "Freedom", "reflection": "Last month."}
		]}`)

		var captured ports.GenerationRequest

		deps.generator.EXPECT().Generate(mock.Anything, mock.Anything).
			Run(func(_ context.Context, req ports.GenerationRequest) { captured = req }).
			Return(content, nil)
		deps.renderer.EXPECT().
			ReflectionEmail(testSender, "one@example.com", content, mock.Anything).
			Return(ports.OutboundEmail{}, nil)
		deps.mailer.EXPECT().Send(mock.Anything, mock.Anything).Return(nil)

		report, err := deps.svc.RunForDate(context.Background(), date)

		require.NoError(t, err)
		assert.Equal(t, []string{"Earlier this month."}, captured.PriorReflections)
		assert.ElementsMatch(t,
			[]string{"Seneca - Letters 2.1", "Epictetus - Discourses 1.1"},
			captured.RecentAttributions)
		assert.Equal(t, 3, report.ArchiveSize)
	})

	t.Run("no recipients aborts before generating", func(t *testing.T) {
		deps := newDeliveryDeps(t, date)
		seedDataset(deps.store)

		_, err := deps.svc.RunForDate(context.Background(), date)

		require.Error(t, err)
		assert.True(t, domain.IsValidation(err))

		step, ok := GetExecutionStep(err)
		require.True(t, ok)
		assert.Equal(t, StepValidate, step)
	})

	t.Run("missing dataset day fails the run", func(t *testing.T) {
		missing := time.Date(2026, time.August, 26, 7, 0, 0, 0, time.UTC)
		deps := newDeliveryDeps(t, missing)
		seedDataset(deps.store)
		deps.store.Seed(testRecipientsKey, []byte(`{"recipients": ["one@example.com"]}`))

		_, err := deps.svc.RunForDate(context.Background(), missing)

		require.Error(t, err)
		assert.True(t, domain.IsDayNotFound(err))
	})

	t.Run("thin content is rejected before archiving", func(t *testing.T) {
		deps := newDeliveryDeps(t, date)
		seedDataset(deps.store)
		deps.store.Seed(testRecipientsKey, []byte(`{"recipients": ["one@example.com"]}`))

		thin := domain.GeneratedReflection{Quote: "q", Attribution: "a", Reflection: "too short"}
		deps.generator.EXPECT().Generate(mock.Anything, mock.Anything).Return(thin, nil)

		_, err := deps.svc.RunForDate(context.Background(), date)

		require.Error(t, err)
		assert.True(t, domain.IsGenerationFailed(err))
		assert.True(t, IsExecutionError(err))

		step, ok := GetExecutionStep(err)
		require.True(t, ok)
		assert.Equal(t, StepVerify, step)

		// Nothing was persisted and nothing was sent.
		_, _, getErr := deps.store.Get(context.Background(), testArchiveKey)
		assert.True(t, domain.IsNotFound(getErr))
	})

	t.Run("generator failure surfaces", func(t *testing.T) {
		deps := newDeliveryDeps(t, date)
		seedDataset(deps.store)
		deps.store.Seed(testRecipientsKey, []byte(`{"recipients": ["one@example.com"]}`))

		deps.generator.EXPECT().Generate(mock.Anything, mock.Anything).
			Return(domain.GeneratedReflection{}, domain.NewGenerationError("anthropic", "rate limited"))

		_, err := deps.svc.RunForDate(context.Background(), date)

		require.Error(t, err)
		assert.True(t, domain.IsGenerationFailed(err))
	})

	t.Run("continues past individual send failures", func(t *testing.T) {
		deps := newDeliveryDeps(t, date)
		seedDataset(deps.store)
		deps.store.Seed(testRecipientsKey, []byte(`{"recipients": ["one@example.com", "two@example.com"]}`))

		deps.generator.EXPECT().Generate(mock.Anything, mock.Anything).Return(content, nil)

		okMail := ports.OutboundEmail{From: testSender, To: "one@example.com"}
		badMail := ports.OutboundEmail{From: testSender, To: "two@example.com"}
		deps.renderer.EXPECT().
			ReflectionEmail(testSender, "one@example.com", content, mock.Anything).
			Return(okMail, nil)
		deps.renderer.EXPECT().
			ReflectionEmail(testSender, "two@example.com", content, mock.Anything).
			Return(badMail, nil)
		deps.mailer.EXPECT().Send(mock.Anything, okMail).Return(nil)
		deps.mailer.EXPECT().Send(mock.Anything, badMail).
			Return(domain.NewDeliveryError("two@example.com", "address rejected"))

		report, err := deps.svc.RunForDate(context.Background(), date)

		require.NoError(t, err)
		assert.Equal(t, 1, report.Sent)
		assert.Equal(t, 1, report.Failed)
	})

	t.Run("fails when every delivery fails but keeps the archive", func(t *testing.T) {
		deps := newDeliveryDeps(t, date)
		seedDataset(deps.store)
		deps.store.Seed(testRecipientsKey, []byte(`{"recipients": ["one@example.com"]}`))

		deps.generator.EXPECT().Generate(mock.Anything, mock.Anything).Return(content, nil)
		deps.renderer.EXPECT().
			ReflectionEmail(testSender, "one@example.com", content, mock.Anything).
			Return(ports.OutboundEmail{}, nil)
		deps.mailer.EXPECT().Send(mock.Anything, mock.Anything).
			Return(domain.NewDeliveryError("one@example.com", "address rejected"))

		_, err := deps.svc.RunForDate(context.Background(), date)

		require.Error(t, err)
		assert.True(t, domain.IsDeliveryFailed(err))

		step, ok := GetExecutionStep(err)
		require.True(t, ok)
		assert.Equal(t, StepRespond, step)

		// The archive records what was generated, not what was delivered.
		assert.Equal(t, 1, loadArchiveDoc(t, deps.store).Count())
	})
}

func TestDeliveryService_Run(t *testing.T) {
	date := time.Date(2026, time.August, 25, 7, 0, 0, 0, time.UTC)

	deps := newDeliveryDeps(t, date)
	seedDataset(deps.store)
	deps.store.Seed(testRecipientsKey, []byte(`{"recipients": ["one@example.com"]}`))

	content := domain.GeneratedReflection{
		Quote:       "The impediment to action advances action.",
		Attribution: "Marcus Aurelius - Meditations 5.20",
		Reflection:  longReflection(),
	}

	deps.generator.EXPECT().Generate(mock.Anything, mock.Anything).Return(content, nil)
	deps.renderer.EXPECT().
		ReflectionEmail(testSender, "one@example.com", content, mock.Anything).
		Return(ports.OutboundEmail{}, nil)
	deps.mailer.EXPECT().Send(mock.Anything, mock.Anything).Return(nil)

	report, err := deps.svc.Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, "2026-08-25", report.Date)
}
