package domain

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSentinelErrors_AreDistinct(t *testing.T) {
	sentinels := []error{
		ErrNotFound,
		ErrConflict,
		ErrValidation,
		ErrForbidden,
		ErrUnavailable,
		ErrDatasetUnavailable,
		ErrMonthNotFound,
		ErrDayNotFound,
		ErrArchiveUnavailable,
		ErrArchiveWriteFailed,
		ErrStaleWrite,
		ErrInvalidDate,
		ErrGenerationFailed,
		ErrDeliveryFailed,
	}

	for i, a := range sentinels {
		for j, b := range sentinels {
			if i != j {
				assert.NotErrorIs(t, a, b,
					"sentinels should be distinct: %v vs %v", a, b)
			}
		}
	}
}

func TestDomainErrors_MessagesAndSentinels(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		sentinel    error
		expectedMsg string
	}{
		{
			name:        "not found with id",
			err:         NewNotFoundError("subscriber", "a@b.c"),
			sentinel:    ErrNotFound,
			expectedMsg: `subscriber with id "a@b.c" not found`,
		},
		{
			name:        "not found without id",
			err:         NewNotFoundError("subscriber", ""),
			sentinel:    ErrNotFound,
			expectedMsg: "subscriber not found",
		},
		{
			name:        "conflict",
			err:         NewConflictError("subscriber", "email is already subscribed"),
			sentinel:    ErrConflict,
			expectedMsg: "subscriber conflict: email is already subscribed",
		},
		{
			name:        "validation with field",
			err:         NewValidationError("email", "email is required"),
			sentinel:    ErrValidation,
			expectedMsg: "validation failed for email: email is required",
		},
		{
			name:        "validation without field",
			err:         NewValidationError("", "reflection too short"),
			sentinel:    ErrValidation,
			expectedMsg: "validation failed: reflection too short",
		},
		{
			name:        "forbidden",
			err:         NewForbiddenError("trigger-send", "admin role required"),
			sentinel:    ErrForbidden,
			expectedMsg: `operation "trigger-send" forbidden: admin role required`,
		},
		{
			name:        "unavailable",
			err:         NewUnavailableError("blob-store", "connection timeout"),
			sentinel:    ErrUnavailable,
			expectedMsg: `service "blob-store" unavailable: connection timeout`,
		},
		{
			name:        "dataset unavailable",
			err:         NewDatasetUnavailableError("config/stoic_quotes_365_days.json", "no such key"),
			sentinel:    ErrDatasetUnavailable,
			expectedMsg: `quote dataset "config/stoic_quotes_365_days.json" unavailable: no such key`,
		},
		{
			name:        "month not found",
			err:         NewMonthNotFoundError("march"),
			sentinel:    ErrMonthNotFound,
			expectedMsg: `month "march" not found in quote dataset`,
		},
		{
			name:        "day not found",
			err:         NewDayNotFoundError("march", 15),
			sentinel:    ErrDayNotFound,
			expectedMsg: "no quote for march 15 in dataset",
		},
		{
			name:        "archive unavailable",
			err:         NewArchiveUnavailableError("quote_history.json", "malformed JSON"),
			sentinel:    ErrArchiveUnavailable,
			expectedMsg: `reflection archive "quote_history.json" unavailable: malformed JSON`,
		},
		{
			name:        "archive write failed",
			err:         NewArchiveWriteError("quote_history.json", "access denied"),
			sentinel:    ErrArchiveWriteFailed,
			expectedMsg: `reflection archive "quote_history.json" write failed: access denied`,
		},
		{
			name:        "stale write",
			err:         NewStaleWriteError("quote_history.json", Revision("etag-1")),
			sentinel:    ErrStaleWrite,
			expectedMsg: `stale write to "quote_history.json": document changed since revision "etag-1"`,
		},
		{
			name:        "invalid date",
			err:         NewInvalidDateError("2026-13-40"),
			sentinel:    ErrInvalidDate,
			expectedMsg: `invalid date "2026-13-40": expected YYYY-MM-DD`,
		},
		{
			name:        "generation failed",
			err:         NewGenerationError("anthropic", "response missing reflection field"),
			sentinel:    ErrGenerationFailed,
			expectedMsg: "reflection generation via anthropic failed: response missing reflection field",
		},
		{
			name:        "delivery failed",
			err:         NewDeliveryError("a@b.c", "mailbox does not exist"),
			sentinel:    ErrDeliveryFailed,
			expectedMsg: "delivery to a@b.c failed: mailbox does not exist",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expectedMsg, tt.err.Error())
			require.ErrorIs(t, tt.err, tt.sentinel)
		})
	}
}

func TestIsHelpers(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		isFunc   func(error) bool
		expected bool
	}{
		{"IsNotFound with typed error", NewNotFoundError("subscriber", "x"), IsNotFound, true},
		{"IsNotFound with other error", ErrConflict, IsNotFound, false},
		{"IsNotFound with nil", nil, IsNotFound, false},

		{"IsConflict with typed error", NewConflictError("subscriber", "exists"), IsConflict, true},
		{"IsConflict with other error", ErrNotFound, IsConflict, false},

		{"IsValidation with typed error", NewValidationError("email", "bad"), IsValidation, true},
		{"IsValidation with other error", ErrNotFound, IsValidation, false},

		{"IsForbidden with typed error", NewForbiddenError("op", "nope"), IsForbidden, true},
		{"IsForbidden with other error", ErrNotFound, IsForbidden, false},

		{"IsUnavailable with typed error", NewUnavailableError("svc", "down"), IsUnavailable, true},
		{"IsUnavailable with other error", ErrNotFound, IsUnavailable, false},

		{"IsDatasetUnavailable with typed error", NewDatasetUnavailableError("k", "gone"), IsDatasetUnavailable, true},
		{"IsDatasetUnavailable with wrapped", fmt.Errorf("load: %w", ErrDatasetUnavailable), IsDatasetUnavailable, true},
		{"IsDatasetUnavailable with other error", ErrDayNotFound, IsDatasetUnavailable, false},

		{"IsMonthNotFound with typed error", NewMonthNotFoundError("july"), IsMonthNotFound, true},
		{"IsMonthNotFound is not day not found", NewMonthNotFoundError("july"), IsDayNotFound, false},

		{"IsDayNotFound with typed error", NewDayNotFoundError("july", 4), IsDayNotFound, true},
		{"IsDayNotFound with wrapped", fmt.Errorf("resolve: %w", NewDayNotFoundError("july", 4)), IsDayNotFound, true},
		{"IsDayNotFound is not generic not found", NewDayNotFoundError("july", 4), IsNotFound, false},

		{"IsArchiveUnavailable with typed error", NewArchiveUnavailableError("k", "bad"), IsArchiveUnavailable, true},
		{"IsArchiveUnavailable with other error", NewArchiveWriteError("k", "bad"), IsArchiveUnavailable, false},

		{"IsArchiveWriteFailed with typed error", NewArchiveWriteError("k", "denied"), IsArchiveWriteFailed, true},
		{"IsArchiveWriteFailed with nil", nil, IsArchiveWriteFailed, false},

		{"IsStaleWrite with typed error", NewStaleWriteError("k", "rev"), IsStaleWrite, true},
		{"IsStaleWrite with wrapped", fmt.Errorf("save: %w", NewStaleWriteError("k", "rev")), IsStaleWrite, true},
		{"IsStaleWrite with other error", ErrConflict, IsStaleWrite, false},

		{"IsInvalidDate with typed error", NewInvalidDateError("nope"), IsInvalidDate, true},
		{"IsInvalidDate with other error", ErrValidation, IsInvalidDate, false},

		{"IsGenerationFailed with typed error", NewGenerationError("anthropic", "timeout"), IsGenerationFailed, true},
		{"IsGenerationFailed with nil", nil, IsGenerationFailed, false},

		{"IsDeliveryFailed with typed error", NewDeliveryError("a@b.c", "bounced"), IsDeliveryFailed, true},
		{"IsDeliveryFailed with other error", ErrGenerationFailed, IsDeliveryFailed, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.isFunc(tt.err))
		})
	}
}

func TestErrorWrappingChain(t *testing.T) {
	t.Run("deeply wrapped DayNotFoundError", func(t *testing.T) {
		original := NewDayNotFoundError("february", 28)
		wrapped := fmt.Errorf("api: %w", fmt.Errorf("resolve: %w", original))

		assert.True(t, IsDayNotFound(wrapped))

		var dayNotFound *DayNotFoundError
		require.ErrorAs(t, wrapped, &dayNotFound)
		assert.Equal(t, "february", dayNotFound.Month)
		assert.Equal(t, 28, dayNotFound.Day)
	})

	t.Run("deeply wrapped StaleWriteError", func(t *testing.T) {
		original := NewStaleWriteError("quote_history.json", Revision("etag-7"))
		wrapped := fmt.Errorf("daily job: %w", original)

		assert.True(t, IsStaleWrite(wrapped))

		var stale *StaleWriteError
		require.ErrorAs(t, wrapped, &stale)
		assert.Equal(t, Revision("etag-7"), stale.Revision)
	})

	t.Run("deeply wrapped GenerationError", func(t *testing.T) {
		original := NewGenerationError("anthropic", "rate limited")
		wrapped := fmt.Errorf("outer: %w", fmt.Errorf("inner: %w", original))

		assert.True(t, IsGenerationFailed(wrapped))

		var generation *GenerationError
		require.ErrorAs(t, wrapped, &generation)
		assert.Equal(t, "anthropic", generation.Provider)
	})
}
