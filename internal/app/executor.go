package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jsamuelsen/quotebook/internal/platform/logging"
)

// A reconciliation cycle runs as Validate → Perform → Verify → Archive →
// Respond. Nothing is merged into or persisted to the local store until the
// remote side has been fetched, pushed to and refetched without error.

// ExecutionStep names one stage of an Operation.
type ExecutionStep string

const (
	StepValidate ExecutionStep = "validate"
	StepPerform  ExecutionStep = "perform"
	StepVerify   ExecutionStep = "verify"
	StepArchive  ExecutionStep = "archive"
	StepRespond  ExecutionStep = "respond"
)

// ExecutionError reports the step an Operation failed at.
type ExecutionError struct {
	Step    ExecutionStep
	Message string
	Cause   error
}

func (e *ExecutionError) Error() string {
	if e.Cause == nil {
		return fmt.Sprintf("%s failed: %s", e.Step, e.Message)
	}

	return fmt.Sprintf("%s failed: %s: %v", e.Step, e.Message, e.Cause)
}

func (e *ExecutionError) Unwrap() error {
	return e.Cause
}

// NewExecutionValidationError creates an error for the validate step.
func NewExecutionValidationError(message string, cause error) error {
	return &ExecutionError{Step: StepValidate, Message: message, Cause: cause}
}

// NewPerformError creates an error for the perform step.
func NewPerformError(message string, cause error) error {
	return &ExecutionError{Step: StepPerform, Message: message, Cause: cause}
}

// NewVerifyError creates an error for the verify step.
func NewVerifyError(message string, cause error) error {
	return &ExecutionError{Step: StepVerify, Message: message, Cause: cause}
}

// NewArchiveError creates an error for the archive step.
func NewArchiveError(message string, cause error) error {
	return &ExecutionError{Step: StepArchive, Message: message, Cause: cause}
}

// Executor runs Operations and logs each step.
type Executor struct {
	logger *slog.Logger
}

// NewExecutor creates an executor. A nil logger means slog.Default().
func NewExecutor(logger *slog.Logger) *Executor {
	if logger == nil {
		logger = slog.Default()
	}

	return &Executor{logger: logger}
}

// Operation is the set of step functions Execute runs in order. A nil step
// is skipped and passes the zero value on.
type Operation[I, P, V, O any] struct {
	Name string

	// Validate checks preconditions before anything is touched.
	Validate func(ctx context.Context, input I) error

	// Perform does the remote work.
	Perform func(ctx context.Context, input I) (P, error)

	// Verify checks what Perform produced and derives the state to keep.
	Verify func(ctx context.Context, input I, performed P) (V, error)

	// Archive persists the verified state.
	Archive func(ctx context.Context, input I, verified V) error

	// Respond shapes the caller's result. Its errors are returned unwrapped.
	Respond func(ctx context.Context, input I, verified V) (O, error)
}

// Execute runs op against input, stopping at the first failing step.
func Execute[I, P, V, O any](ctx context.Context, exec *Executor, op Operation[I, P, V, O], input I) (O, error) {
	var out O

	logger := logging.FromContextOr(ctx, exec.logger).With(slog.String("operation", op.Name))
	start := time.Now()

	if op.Validate != nil {
		if _, err := step(ctx, logger, StepValidate, func() (struct{}, error) {
			return struct{}{}, op.Validate(ctx, input)
		}); err != nil {
			return out, NewExecutionValidationError("input validation failed", err)
		}
	}

	var performed P
	if op.Perform != nil {
		var err error
		if performed, err = step(ctx, logger, StepPerform, func() (P, error) {
			return op.Perform(ctx, input)
		}); err != nil {
			return out, NewPerformError("operation failed", err)
		}
	}

	var verified V
	if op.Verify != nil {
		var err error
		if verified, err = step(ctx, logger, StepVerify, func() (V, error) {
			return op.Verify(ctx, input, performed)
		}); err != nil {
			return out, NewVerifyError("verification failed", err)
		}
	}

	if op.Archive != nil {
		if _, err := step(ctx, logger, StepArchive, func() (struct{}, error) {
			return struct{}{}, op.Archive(ctx, input, verified)
		}); err != nil {
			return out, NewArchiveError("state persistence failed", err)
		}
	}

	if op.Respond != nil {
		var err error
		if out, err = step(ctx, logger, StepRespond, func() (O, error) {
			return op.Respond(ctx, input, verified)
		}); err != nil {
			return out, err
		}
	}

	logger.InfoContext(ctx, "operation completed", slog.Duration("duration", time.Since(start)))

	return out, nil
}

// step runs fn and logs its outcome. Validate and Respond failures are the
// caller's concern and log at WARN; the rest log at ERROR.
func step[T any](ctx context.Context, logger *slog.Logger, name ExecutionStep, fn func() (T, error)) (T, error) {
	logger = logger.With(slog.String("step", string(name)))
	logger.DebugContext(ctx, "step started")

	v, err := fn()
	if err != nil {
		level := slog.LevelError
		if name == StepValidate || name == StepRespond {
			level = slog.LevelWarn
		}
		logger.Log(ctx, level, "step failed", slog.Any("error", err))

		return v, err
	}

	logger.DebugContext(ctx, "step finished")

	return v, nil
}

// IsExecutionError reports whether err came from a failed step.
func IsExecutionError(err error) bool {
	var execErr *ExecutionError

	return errors.As(err, &execErr)
}

// GetExecutionStep returns the step err failed at.
func GetExecutionStep(err error) (ExecutionStep, bool) {
	var execErr *ExecutionError
	if errors.As(err, &execErr) {
		return execErr.Step, true
	}

	return "", false
}
