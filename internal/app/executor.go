package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jsamuelsen/stoic-reflections/internal/platform/logging"
)

// The daily delivery writes state (the archive) and then moves value out of
// the system (the emails). A failure in the wrong place could archive content
// that was never checked, or send content that was never persisted. To keep
// those orderings honest, operations run as five fixed steps:
//
//	validate - check inputs and preconditions before anything happens
//	perform  - do the expensive external work (the generation call)
//	verify   - judge the result independently of what perform claims
//	archive  - persist verified state, and only verified state
//	respond  - release the result to the outside world, last
//
// Each failure records the step it happened in, so a caller can tell a bad
// generation from a lost archive write from a send that failed after the
// archive already recorded the day.

// ExecutionStep names one step of an operation.
type ExecutionStep string

const (
	StepValidate ExecutionStep = "validate"
	StepPerform  ExecutionStep = "perform"
	StepVerify   ExecutionStep = "verify"
	StepArchive  ExecutionStep = "archive"
	StepRespond  ExecutionStep = "respond"
)

// ExecutionError wraps a step failure with the step it happened in.
type ExecutionError struct {
	Step    ExecutionStep
	Message string
	Cause   error
}

func (e *ExecutionError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s failed: %s: %v", e.Step, e.Message, e.Cause)
	}

	return fmt.Sprintf("%s failed: %s", e.Step, e.Message)
}

func (e *ExecutionError) Unwrap() error { return e.Cause }

// NewExecutionValidationError tags message and cause with the validate step.
func NewExecutionValidationError(message string, cause error) error {
	return &ExecutionError{Step: StepValidate, Message: message, Cause: cause}
}

// NewPerformError tags a perform-step failure.
func NewPerformError(message string, cause error) error {
	return &ExecutionError{Step: StepPerform, Message: message, Cause: cause}
}

// NewVerifyError tags a verify-step failure.
func NewVerifyError(message string, cause error) error {
	return &ExecutionError{Step: StepVerify, Message: message, Cause: cause}
}

// NewArchiveError tags an archive-step failure.
func NewArchiveError(message string, cause error) error {
	return &ExecutionError{Step: StepArchive, Message: message, Cause: cause}
}

// NewRespondError creates an error for the respond step. Callers seeing one
// know the operation's state was already persisted.
func NewRespondError(message string, cause error) error {
	return &ExecutionError{Step: StepRespond, Message: message, Cause: cause}
}

// Executor runs operations through the five-step sequence. Its logger serves
// runs that arrive without a request-scoped one, like scheduled jobs.
type Executor struct {
	logger *slog.Logger
}

// NewExecutor creates an executor with the given fallback logger.
func NewExecutor(logger *slog.Logger) *Executor {
	if logger == nil {
		logger = slog.Default()
	}

	return &Executor{logger: logger}
}

// Operation declares the step functions for one unit of work. Nil steps are
// skipped.
type Operation[I, P, V, O any] struct {
	// Name identifies this operation in logs.
	Name string

	// Validate checks inputs and preconditions. An error here aborts before
	// any external call or state change.
	Validate func(ctx context.Context, input I) error

	// Perform does the external work and returns its raw result.
	Perform func(ctx context.Context, input I) (P, error)

	// Verify judges the performed result on its own merits. Perform's
	// claims are not trusted; verification failures abort before any
	// persistence.
	Verify func(ctx context.Context, input I, performed P) (V, error)

	// Archive persists the verified state. Runs only after Verify accepts.
	Archive func(ctx context.Context, input I, verified V) error

	// Respond releases the outcome: the fan-out, the reply, the report.
	// Runs only once the state is safely archived.
	Respond func(ctx context.Context, input I, verified V) (O, error)
}

// Execute runs an operation through the full step sequence. The error from a
// failed step carries the step name; see GetExecutionStep.
func Execute[I, P, V, O any](ctx context.Context, exec *Executor, op Operation[I, P, V, O], input I) (O, error) {
	var zero O

	logger := logging.FromContextOr(ctx, exec.logger).With(
		slog.String("operation", op.Name),
	)
	start := time.Now()

	if op.Validate != nil {
		logger.DebugContext(ctx, "validating inputs")

		if err := op.Validate(ctx, input); err != nil {
			logger.WarnContext(ctx, "validation failed", slog.Any("error", err))

			return zero, NewExecutionValidationError("input validation failed", err)
		}
	}

	var performed P

	if op.Perform != nil {
		logger.DebugContext(ctx, "performing operation")

		var err error

		performed, err = op.Perform(ctx, input)
		if err != nil {
			logger.ErrorContext(ctx, "perform failed", slog.Any("error", err))

			return zero, NewPerformError("operation failed", err)
		}
	}

	var verified V

	if op.Verify != nil {
		logger.DebugContext(ctx, "verifying result")

		var err error

		verified, err = op.Verify(ctx, input, performed)
		if err != nil {
			logger.ErrorContext(ctx, "verification failed", slog.Any("error", err))

			return zero, NewVerifyError("verification failed", err)
		}
	}

	if op.Archive != nil {
		logger.DebugContext(ctx, "archiving state")

		if err := op.Archive(ctx, input, verified); err != nil {
			logger.ErrorContext(ctx, "archive failed", slog.Any("error", err))

			return zero, NewArchiveError("state persistence failed", err)
		}
	}

	var result O

	if op.Respond != nil {
		var err error

		result, err = op.Respond(ctx, input, verified)
		if err != nil {
			logger.ErrorContext(ctx, "respond failed after state was archived",
				slog.Any("error", err),
			)

			return zero, NewRespondError("releasing the result failed", err)
		}
	}

	logger.InfoContext(ctx, "operation completed",
		slog.Duration("duration", time.Since(start)),
	)

	return result, nil
}

// IsExecutionError reports whether err carries a step failure.
func IsExecutionError(err error) bool {
	var execErr *ExecutionError

	return errors.As(err, &execErr)
}

// GetExecutionStep extracts the failing step from an execution error.
func GetExecutionStep(err error) (ExecutionStep, bool) {
	var execErr *ExecutionError
	if errors.As(err, &execErr) {
		return execErr.Step, true
	}

	return "", false
}
