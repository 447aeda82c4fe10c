package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Error taxonomy. Every value is recovered at the boundary that detects it and
// surfaced as a user facing message.
var (
	ErrRoutingUnresolved   = errors.New("could not understand request")
	ErrFallbackExhausted   = errors.New("every enabled model failed")
	ErrNoModelsConfigured  = errors.New("no enabled models configured")
	ErrParameterValidation = errors.New("cannot build command")
	ErrSafetyDenied        = errors.New("command refused by safety policy")
	ErrExecutionFailed     = errors.New("command failed")
	ErrConfigPersist       = errors.New("could not save configuration")
	ErrInvalidTransition   = errors.New("invalid execution transition")
	ErrUnknownPlugin       = errors.New("unknown plugin")
	ErrSpawn               = errors.New("could not start process")
	ErrHistoryNotFound     = errors.New("history entry not found")
)

// FailureKind classifies why a model call failed.
type FailureKind string

const (
	FailureNone      FailureKind = ""
	FailureTransport FailureKind = "transport"
	FailureAuth      FailureKind = "auth"
	FailureRateLimit FailureKind = "rate_limit"
	FailureInvalid   FailureKind = "invalid_payload"
	FailureTimeout   FailureKind = "timeout"
	FailureCancelled FailureKind = "cancelled"
	FailureOther     FailureKind = "other"
)

// ModelCallError is returned by model clients with a classified failure.
type ModelCallError struct {
	Kind       FailureKind
	StatusCode int
	Message    string
	Err        error
}

func (e *ModelCallError) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s (status %d): %s", e.Kind, e.StatusCode, msg)
	}
	return fmt.Sprintf("%s: %s", e.Kind, msg)
}

func (e *ModelCallError) Unwrap() error { return e.Err }

// FallbackExhaustedError lists every attempt of a failed walk.
type FallbackExhaustedError struct {
	Attempts []ModelAttempt
}

func (e *FallbackExhaustedError) Error() string {
	if len(e.Attempts) == 0 {
		return ErrFallbackExhausted.Error() + ": " + ErrNoModelsConfigured.Error()
	}
	parts := make([]string, 0, len(e.Attempts))
	for _, attempt := range e.Attempts {
		parts = append(parts, fmt.Sprintf("%s: %v", attempt.Model, attempt.Err))
	}
	return fmt.Sprintf("%s after %d attempts (%s)", ErrFallbackExhausted, len(e.Attempts), strings.Join(parts, "; "))
}

func (e *FallbackExhaustedError) Is(target error) bool {
	return target == ErrFallbackExhausted
}

// ValidationError is a plugin's refusal to build a command from parameters.
type ValidationError struct {
	Plugin string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", ErrParameterValidation, e.Reason)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrParameterValidation
}

// Invalidf is shorthand for a ValidationError.
func Invalidf(plugin, format string, args ...any) error {
	return &ValidationError{Plugin: plugin, Reason: fmt.Sprintf(format, args...)}
}

// SafetyDeniedError carries a Deny verdict to the user.
type SafetyDeniedError struct {
	Verdict SafetyVerdict
}

func (e *SafetyDeniedError) Error() string {
	return fmt.Sprintf("%s: %s (%s)", ErrSafetyDenied, e.Verdict.Reason(), e.Verdict.Category().Description())
}

func (e *SafetyDeniedError) Is(target error) bool {
	return target == ErrSafetyDenied
}

// ExecutionFailedError reports a non-zero exit.
type ExecutionFailedError struct {
	ExitCode int
}

func (e *ExecutionFailedError) Error() string {
	return fmt.Sprintf("%s with exit code %d", ErrExecutionFailed, e.ExitCode)
}

func (e *ExecutionFailedError) Is(target error) bool {
	return target == ErrExecutionFailed
}

// TransitionError names the illegal edge that was requested.
type TransitionError struct {
	From ExecutionState
	To   ExecutionState
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("%s: %s -> %s", ErrInvalidTransition, e.From, e.To)
}

func (e *TransitionError) Is(target error) bool {
	return target == ErrInvalidTransition
}
