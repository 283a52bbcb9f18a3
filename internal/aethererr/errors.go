// Package aethererr defines the structured error taxonomy shared across the
// orchestrator. Every error surfaced by the core carries an explicit Kind so
// callers can branch on failure class without string matching.
package aethererr

import (
	"errors"
	"fmt"
)

// Kind classifies an Error into one of the taxonomy's fixed categories.
type Kind string

const (
	KindHardValidation  Kind = "hard_validation"
	KindStateTransition Kind = "state_transition"
	KindRegistryLookup  Kind = "registry_lookup"
	KindSharedMemory    Kind = "shared_memory"
	KindSnapshot        Kind = "snapshot"
	KindDataPlane       Kind = "data_plane"
	KindSystem          Kind = "system"
)

// Error is the orchestrator's single structured error type. Op names the
// operation that failed, FunctionID is populated when the failure is
// attributable to one function, and Inner wraps the underlying cause.
type Error struct {
	Op         string
	Kind       Kind
	FunctionID string
	Msg        string
	Inner      error
}

func (e *Error) Error() string {
	if e.FunctionID != "" {
		if e.Inner != nil {
			return fmt.Sprintf("%s: %s (function=%s): %v", e.Op, e.Msg, e.FunctionID, e.Inner)
		}
		return fmt.Sprintf("%s: %s (function=%s)", e.Op, e.Msg, e.FunctionID)
	}
	if e.Inner != nil {
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Msg, e.Inner)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Msg)
}

func (e *Error) Unwrap() error {
	return e.Inner
}

// Is reports whether target is an *Error with the same Kind, so callers can
// write errors.Is(err, aethererr.New("", aethererr.KindSnapshot, "", "")) style checks;
// in practice IsKind below is the preferred entry point.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return e.Kind == t.Kind
}

// New constructs a bare structured error.
func New(op string, kind Kind, functionID, msg string) *Error {
	return &Error{Op: op, Kind: kind, FunctionID: functionID, Msg: msg}
}

// Wrap constructs a structured error around an existing cause.
func Wrap(op string, kind Kind, functionID, msg string, inner error) *Error {
	return &Error{Op: op, Kind: kind, FunctionID: functionID, Msg: msg, Inner: inner}
}

func NewHardValidation(op, field, value, reason string) *Error {
	return New(op, KindHardValidation, "", fmt.Sprintf("invalid field value: %s = %q - %s", field, value, reason))
}

func NewStateTransition(op, functionID, from, to string) *Error {
	return New(op, KindStateTransition, functionID,
		fmt.Sprintf("cannot transition from %s to %s", from, to))
}

func NewRegistryLookup(op, functionID, reason string) *Error {
	return New(op, KindRegistryLookup, functionID, reason)
}

func NewSharedMemory(op, reason string) *Error {
	return New(op, KindSharedMemory, "", reason)
}

func WrapSharedMemory(op, reason string, inner error) *Error {
	return Wrap(op, KindSharedMemory, "", reason, inner)
}

func NewSnapshot(op, functionID, reason string) *Error {
	return New(op, KindSnapshot, functionID, reason)
}

func WrapSnapshot(op, functionID, reason string, inner error) *Error {
	return Wrap(op, KindSnapshot, functionID, reason, inner)
}

func NewSystem(op, context string, inner error) *Error {
	return Wrap(op, KindSystem, "", context, inner)
}

// LatencyViolation carries the actual and permitted restore latency. It
// satisfies KindSnapshot and is checked with IsLatencyViolation.
type LatencyViolation struct {
	FunctionID string
	ActualMs   uint64
	LimitMs    uint64
}

func (e *LatencyViolation) Error() string {
	return fmt.Sprintf("restore: latency violation for %s: restore took %dms, limit is %dms",
		e.FunctionID, e.ActualMs, e.LimitMs)
}

// IsKind reports whether err (or any error it wraps) is a structured Error
// of the given Kind.
func IsKind(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	if kind == KindSnapshot {
		var lv *LatencyViolation
		return errors.As(err, &lv)
	}
	return false
}

// IsLatencyViolation reports whether err is (or wraps) a LatencyViolation.
func IsLatencyViolation(err error) bool {
	var lv *LatencyViolation
	return errors.As(err, &lv)
}
