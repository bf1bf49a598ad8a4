// Package api
// Author: momentics <momentics@gmail.com>
//
// Common error types and error handling utilities for hioload-green.

package api

import (
	"errors"
	"fmt"
)

// Common errors used across the runtime.
var (
	ErrInvalidArgument   = errors.New("invalid argument")
	ErrAlreadyExists     = errors.New("resource already exists")
	ErrNotFound          = errors.New("resource not found")
	ErrResourceExhausted = errors.New("resource exhausted")
	ErrResourceBusy      = errors.New("resource busy")
	ErrNotSupported      = errors.New("operation not supported")

	// ErrMisuseFatal is the exit value of a thread terminated for touching
	// protected thread-local memory outside the storage API.
	ErrMisuseFatal = errors.New("protected thread-local storage accessed directly")

	// ErrDeadlock is reported when no thread can make progress.
	ErrDeadlock = errors.New("all threads are blocked - deadlock")
)

// ErrorCode represents specific error conditions in the library.
type ErrorCode int

const (
	ErrCodeOK ErrorCode = iota
	ErrCodeInvalidArgument
	ErrCodeResourceExhausted
	ErrCodeNotSupported
	ErrCodeAlreadyExists
	ErrCodeNotFound
	ErrCodeResourceBusy
	ErrCodeMisuseFatal
	ErrCodeInternal
)

// sentinel maps a code onto the matching package-level error.
func (c ErrorCode) sentinel() error {
	switch c {
	case ErrCodeInvalidArgument:
		return ErrInvalidArgument
	case ErrCodeResourceExhausted:
		return ErrResourceExhausted
	case ErrCodeNotSupported:
		return ErrNotSupported
	case ErrCodeAlreadyExists:
		return ErrAlreadyExists
	case ErrCodeNotFound:
		return ErrNotFound
	case ErrCodeResourceBusy:
		return ErrResourceBusy
	case ErrCodeMisuseFatal:
		return ErrMisuseFatal
	default:
		return nil
	}
}

// Error represents a structured error with code and context.
type Error struct {
	Code    ErrorCode
	Message string
	Context map[string]any
}

// Error implements the error interface.
func (e *Error) Error() string {
	if len(e.Context) == 0 {
		return e.Message
	}
	return fmt.Sprintf("%s (context: %+v)", e.Message, e.Context)
}

// Unwrap exposes the sentinel for the error code, so callers can use
// errors.Is(err, api.ErrNotFound) regardless of the attached context.
func (e *Error) Unwrap() error {
	return e.Code.sentinel()
}

// NewError creates a new structured error.
func NewError(code ErrorCode, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Context: make(map[string]any),
	}
}

// WithContext adds context information to the error.
func (e *Error) WithContext(key string, value any) *Error {
	if e.Context == nil {
		e.Context = make(map[string]any)
	}
	e.Context[key] = value
	return e
}
