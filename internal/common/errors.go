// Package common provides shared utilities and types used across the application.
package common

import (
	"errors"
	"fmt"
)

// Common application errors.
var (
	// Input errors.
	ErrMalformedInput = errors.New("malformed input")

	// Detection errors.
	ErrNotLoaded        = errors.New("data not loaded")
	ErrInvalidThreshold = errors.New("invalid threshold")

	// Configuration errors.
	ErrInvalidConfig = errors.New("invalid configuration")
)

// MalformedInputError describes the row and column that failed to parse.
type MalformedInputError struct {
	Err    error
	Column string
	Value  string
	Line   int
}

func (e *MalformedInputError) Error() string {
	var msg string
	switch {
	case e.Line > 0 && e.Value != "":
		msg = fmt.Sprintf("line %d: column %q: cannot parse %q", e.Line, e.Column, e.Value)
	case e.Line > 0:
		msg = fmt.Sprintf("line %d: column %q", e.Line, e.Column)
	default:
		msg = fmt.Sprintf("column %q", e.Column)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return fmt.Sprintf("%s: %s", ErrMalformedInput, msg)
}

// Is reports ErrMalformedInput so callers can match on the sentinel.
func (e *MalformedInputError) Is(target error) bool {
	return target == ErrMalformedInput
}

func (e *MalformedInputError) Unwrap() error {
	return e.Err
}

// NewMissingColumnError reports a required column absent from the header.
func NewMissingColumnError(column string) error {
	return &MalformedInputError{
		Column: column,
		Err:    errors.New("required column missing"),
	}
}

// UserError represents an error that should be shown to the user.
type UserError struct {
	Err         error
	UserMessage string
}

func (e *UserError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.UserMessage, e.Err)
	}
	return e.UserMessage
}

func (e *UserError) Unwrap() error {
	return e.Err
}

// NewUserError creates a new user-friendly error.
func NewUserError(userMessage string, err error) error {
	return &UserError{
		UserMessage: userMessage,
		Err:         err,
	}
}
