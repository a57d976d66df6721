// Package domain holds the service's core types: the quote dataset and its
// monthly themes, the reflection archive, subscribers and recipients, and
// the errors the rest of the system dispatches on. Nothing here knows about
// HTTP, S3, SES, or the model provider.
package domain

import (
	"errors"
	"fmt"
)

// Generic sentinels. Adapters translate upstream failures into these, and
// the HTTP layer maps them back onto status codes.
var (
	ErrNotFound    = errors.New("not found")
	ErrConflict    = errors.New("conflict")
	ErrValidation  = errors.New("validation failed")
	ErrForbidden   = errors.New("forbidden")
	ErrUnavailable = errors.New("unavailable")
)

// Sentinels for the reflection pipeline itself.
var (
	// ErrDatasetUnavailable reports the quote dataset could not be fetched
	// or parsed.
	ErrDatasetUnavailable = errors.New("quote dataset unavailable")

	// ErrMonthNotFound reports the dataset carries no entry list for a
	// month. A well-formed dataset has all twelve months, so this signals
	// corruption, not an authoring gap.
	ErrMonthNotFound = errors.New("month not found in quote dataset")

	// ErrDayNotFound reports the month exists but has no entry for the
	// day. This one is an authoring gap.
	ErrDayNotFound = errors.New("day not found in quote dataset")

	// ErrArchiveUnavailable reports the reflection archive could not be
	// fetched or parsed. A missing archive document is not this error;
	// first runs start from an empty archive.
	ErrArchiveUnavailable = errors.New("reflection archive unavailable")

	// ErrArchiveWriteFailed reports the archive could not be persisted.
	ErrArchiveWriteFailed = errors.New("reflection archive write failed")

	// ErrStaleWrite reports a save rejected because the document changed
	// since it was loaded.
	ErrStaleWrite = errors.New("stale write")

	// ErrInvalidDate reports a date string that is not YYYY-MM-DD or does
	// not name a real calendar day.
	ErrInvalidDate = errors.New("invalid date")

	// ErrGenerationFailed reports the reflection text could not be
	// generated.
	ErrGenerationFailed = errors.New("reflection generation failed")

	// ErrDeliveryFailed reports an email could not be delivered.
	ErrDeliveryFailed = errors.New("delivery failed")
)

// NotFoundError names the entity and ID a lookup missed.
type NotFoundError struct {
	Entity string
	ID     string
}

func (e *NotFoundError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("%s with id %q not found", e.Entity, e.ID)
	}

	return e.Entity + " not found"
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// NewNotFoundError builds a NotFoundError. id may be empty for singleton
// documents like the archive.
func NewNotFoundError(entity, id string) error {
	return &NotFoundError{Entity: entity, ID: id}
}

// ConflictError carries the entity and reason for a state conflict, like a
// duplicate subscription.
type ConflictError struct {
	Entity  string
	Reason  string
	Details string
}

func (e *ConflictError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s conflict: %s (%s)", e.Entity, e.Reason, e.Details)
	}

	return fmt.Sprintf("%s conflict: %s", e.Entity, e.Reason)
}

func (e *ConflictError) Unwrap() error { return ErrConflict }

// NewConflictError builds a ConflictError.
func NewConflictError(entity, reason string) error {
	return &ConflictError{Entity: entity, Reason: reason}
}

// ValidationError names the field a business rule rejected.
type ValidationError struct {
	Field   string
	Message string
	Value   any
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation failed for %s: %s", e.Field, e.Message)
	}

	return "validation failed: " + e.Message
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// NewValidationError builds a ValidationError for a field.
func NewValidationError(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// NewValidationErrorWithValue also records the rejected value. Never use it
// for subscriber addresses; those stay out of error text.
func NewValidationErrorWithValue(field, message string, value any) error {
	return &ValidationError{Field: field, Message: message, Value: value}
}

// ForbiddenError reports an operation the caller may not perform.
type ForbiddenError struct {
	Operation string
	Reason    string
}

func (e *ForbiddenError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("operation %q forbidden: %s", e.Operation, e.Reason)
	}

	return fmt.Sprintf("operation %q forbidden", e.Operation)
}

func (e *ForbiddenError) Unwrap() error { return ErrForbidden }

// NewForbiddenError builds a ForbiddenError.
func NewForbiddenError(operation, reason string) error {
	return &ForbiddenError{Operation: operation, Reason: reason}
}

// UnavailableError names the dependency that could not serve a request.
type UnavailableError struct {
	Service string
	Reason  string
}

func (e *UnavailableError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("service %q unavailable: %s", e.Service, e.Reason)
	}

	return fmt.Sprintf("service %q unavailable", e.Service)
}

func (e *UnavailableError) Unwrap() error { return ErrUnavailable }

// NewUnavailableError builds an UnavailableError.
func NewUnavailableError(service, reason string) error {
	return &UnavailableError{Service: service, Reason: reason}
}

// DatasetUnavailableError names the dataset document that failed to load.
type DatasetUnavailableError struct {
	Key    string
	Reason string
}

func (e *DatasetUnavailableError) Error() string {
	return fmt.Sprintf("quote dataset %q unavailable: %s", e.Key, e.Reason)
}

func (e *DatasetUnavailableError) Unwrap() error { return ErrDatasetUnavailable }

// NewDatasetUnavailableError builds a DatasetUnavailableError.
func NewDatasetUnavailableError(key, reason string) error {
	return &DatasetUnavailableError{Key: key, Reason: reason}
}

// MonthNotFoundError names the month missing from the dataset.
type MonthNotFoundError struct {
	Month string
}

func (e *MonthNotFoundError) Error() string {
	return fmt.Sprintf("month %q not found in quote dataset", e.Month)
}

func (e *MonthNotFoundError) Unwrap() error { return ErrMonthNotFound }

// NewMonthNotFoundError builds a MonthNotFoundError.
func NewMonthNotFoundError(month string) error {
	return &MonthNotFoundError{Month: month}
}

// DayNotFoundError names the day missing from an otherwise present month.
type DayNotFoundError struct {
	Month string
	Day   int
}

func (e *DayNotFoundError) Error() string {
	return fmt.Sprintf("no quote for %s %d in dataset", e.Month, e.Day)
}

func (e *DayNotFoundError) Unwrap() error { return ErrDayNotFound }

// NewDayNotFoundError builds a DayNotFoundError.
func NewDayNotFoundError(month string, day int) error {
	return &DayNotFoundError{Month: month, Day: day}
}

// ArchiveUnavailableError names the archive document that failed to load.
type ArchiveUnavailableError struct {
	Key    string
	Reason string
}

func (e *ArchiveUnavailableError) Error() string {
	return fmt.Sprintf("reflection archive %q unavailable: %s", e.Key, e.Reason)
}

func (e *ArchiveUnavailableError) Unwrap() error { return ErrArchiveUnavailable }

// NewArchiveUnavailableError builds an ArchiveUnavailableError.
func NewArchiveUnavailableError(key, reason string) error {
	return &ArchiveUnavailableError{Key: key, Reason: reason}
}

// ArchiveWriteError names the archive document that failed to persist.
type ArchiveWriteError struct {
	Key    string
	Reason string
}

func (e *ArchiveWriteError) Error() string {
	return fmt.Sprintf("reflection archive %q write failed: %s", e.Key, e.Reason)
}

func (e *ArchiveWriteError) Unwrap() error { return ErrArchiveWriteFailed }

// NewArchiveWriteError builds an ArchiveWriteError.
func NewArchiveWriteError(key, reason string) error {
	return &ArchiveWriteError{Key: key, Reason: reason}
}

// StaleWriteError reports a conditional save rejected by a revision
// mismatch. The caller reloads and retries.
type StaleWriteError struct {
	Key      string
	Revision Revision
}

func (e *StaleWriteError) Error() string {
	return fmt.Sprintf("stale write to %q: document changed since revision %q", e.Key, e.Revision)
}

func (e *StaleWriteError) Unwrap() error { return ErrStaleWrite }

// NewStaleWriteError builds a StaleWriteError.
func NewStaleWriteError(key string, revision Revision) error {
	return &StaleWriteError{Key: key, Revision: revision}
}

// InvalidDateError carries the string that failed to parse as a date.
type InvalidDateError struct {
	Value string
}

func (e *InvalidDateError) Error() string {
	return fmt.Sprintf("invalid date %q: expected YYYY-MM-DD", e.Value)
}

func (e *InvalidDateError) Unwrap() error { return ErrInvalidDate }

// NewInvalidDateError builds an InvalidDateError.
func NewInvalidDateError(value string) error {
	return &InvalidDateError{Value: value}
}

// GenerationError names the provider that failed to produce a reflection.
type GenerationError struct {
	Provider string
	Reason   string
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("reflection generation via %s failed: %s", e.Provider, e.Reason)
}

func (e *GenerationError) Unwrap() error { return ErrGenerationFailed }

// NewGenerationError builds a GenerationError.
func NewGenerationError(provider, reason string) error {
	return &GenerationError{Provider: provider, Reason: reason}
}

// DeliveryError names the recipient an email could not reach. Recipient is
// the masked form when the error is destined for logs.
type DeliveryError struct {
	Recipient string
	Reason    string
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("delivery to %s failed: %s", e.Recipient, e.Reason)
}

func (e *DeliveryError) Unwrap() error { return ErrDeliveryFailed }

// NewDeliveryError builds a DeliveryError.
func NewDeliveryError(recipient, reason string) error {
	return &DeliveryError{Recipient: recipient, Reason: reason}
}

// IsNotFound reports whether err is a not-found failure.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsConflict reports whether err is a state conflict.
func IsConflict(err error) bool {
	return errors.Is(err, ErrConflict)
}

// IsValidation reports whether err is a validation failure.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation)
}

// IsForbidden reports whether err is a forbidden operation.
func IsForbidden(err error) bool {
	return errors.Is(err, ErrForbidden)
}

// IsUnavailable reports whether err is a dependency failure.
func IsUnavailable(err error) bool {
	return errors.Is(err, ErrUnavailable)
}

// IsDatasetUnavailable reports whether err is a dataset load failure.
func IsDatasetUnavailable(err error) bool {
	return errors.Is(err, ErrDatasetUnavailable)
}

// IsMonthNotFound reports whether err is a missing dataset month.
func IsMonthNotFound(err error) bool {
	return errors.Is(err, ErrMonthNotFound)
}

// IsDayNotFound reports whether err is a missing dataset day.
func IsDayNotFound(err error) bool {
	return errors.Is(err, ErrDayNotFound)
}

// IsArchiveUnavailable reports whether err is an archive load failure.
func IsArchiveUnavailable(err error) bool {
	return errors.Is(err, ErrArchiveUnavailable)
}

// IsArchiveWriteFailed reports whether err is an archive write failure.
func IsArchiveWriteFailed(err error) bool {
	return errors.Is(err, ErrArchiveWriteFailed)
}

// IsStaleWrite reports whether err is a lost revision race.
func IsStaleWrite(err error) bool {
	return errors.Is(err, ErrStaleWrite)
}

// IsInvalidDate reports whether err is a malformed date.
func IsInvalidDate(err error) bool {
	return errors.Is(err, ErrInvalidDate)
}

// IsGenerationFailed reports whether err is a generation failure.
func IsGenerationFailed(err error) bool {
	return errors.Is(err, ErrGenerationFailed)
}

// IsDeliveryFailed reports whether err is a delivery failure.
func IsDeliveryFailed(err error) bool {
	return errors.Is(err, ErrDeliveryFailed)
}
