// Package errors provides a lightweight structured error type (JauntError)
// for category-based classification in the CLI, plus the dependency-cycle
// error raised by the graph and scheduling layers.
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Category represents the category of a jaunt error for classification.
type Category string

const (
	// User-facing configuration and input errors.
	CategoryConfig    Category = "config"
	CategoryDiscovery Category = "discovery"

	// Build and generation errors.
	CategoryCycle      Category = "cycle"
	CategoryGeneration Category = "generation"
	CategoryValidation Category = "validation"

	// Runtime and infrastructure errors.
	CategoryProvider   Category = "provider"
	CategoryFilesystem Category = "filesystem"
	CategoryInternal   Category = "internal"
)

// JauntError is a structured error with category and wrapped cause.
type JauntError struct {
	Category Category
	Message  string
	Cause    error
}

// Error implements the error interface.
func (e *JauntError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Category, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Category, e.Message)
}

// Unwrap supports errors.Is/As chains.
func (e *JauntError) Unwrap() error {
	return e.Cause
}

// New creates a new JauntError.
func New(category Category, message string) *JauntError {
	return &JauntError{Category: category, Message: message}
}

// Newf creates a new JauntError with a formatted message.
func Newf(category Category, format string, args ...any) *JauntError {
	return &JauntError{Category: category, Message: fmt.Sprintf(format, args...)}
}

// Wrap creates a new JauntError that wraps an existing error.
func Wrap(err error, category Category, message string) *JauntError {
	return &JauntError{Category: category, Message: message, Cause: err}
}

// CategoryOf returns the category of err, or CategoryInternal for plain errors.
func CategoryOf(err error) Category {
	var je *JauntError
	if errors.As(err, &je) {
		return je.Category
	}
	return CategoryInternal
}

// CycleError reports a dependency cycle. Participants holds every node on the
// cycle path in traversal order.
type CycleError struct {
	Participants []string
}

// NewCycleError builds a CycleError from the cycle path.
func NewCycleError(participants []string) *CycleError {
	return &CycleError{Participants: participants}
}

// Error implements the error interface.
func (e *CycleError) Error() string {
	if len(e.Participants) == 0 {
		return "dependency cycle detected"
	}
	return "dependency cycle detected: " + strings.Join(e.Participants, " -> ")
}

// IsCycle reports whether err is (or wraps) a CycleError.
func IsCycle(err error) bool {
	var ce *CycleError
	return errors.As(err, &ce)
}
