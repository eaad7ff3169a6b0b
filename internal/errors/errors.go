// Package errors provides standardized domain errors with codes for the Libris API.
//
// Usage:
//
//	// In services - return typed errors
//	if titleTaken {
//	    return errors.UserInput("book title must be unique")
//	}
//
//	// In callers - check with errors.Is
//	if errors.Is(err, errors.ErrNotAuthenticated) {
//	    ...
//	}
//
// Errors carry GraphQL-style extensions (a "code" plus optional "invalidArgs")
// so the transport layer can surface them the way Apollo clients expect.
package errors

import (
	"errors"
	"fmt"
)

// Re-export standard library functions for convenience.
var (
	Is     = errors.Is
	As     = errors.As
	Unwrap = errors.Unwrap
	Join   = errors.Join
)

// Code represents a machine-readable error code.
type Code string

// Error codes used throughout the application.
const (
	CodeNotAuthenticated   Code = "NOT_AUTHENTICATED"
	CodeBadUserInput       Code = "BAD_USER_INPUT"
	CodeInvalidCredentials Code = "INVALID_CREDENTIALS"
	CodeNotFound           Code = "NOT_FOUND"
	CodeAlreadyExists      Code = "ALREADY_EXISTS"
	CodeInternal           Code = "INTERNAL"
)

// Error is a domain error with a code, message, and the offending argument.
type Error struct {
	Code        Code   `json:"code"`
	Message     string `json:"message"`
	InvalidArgs any    `json:"invalidArgs,omitempty"`
	cause       error  // unexported, for wrapping
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.cause)
	}
	return e.Message
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.cause
}

// Is reports whether target matches this error.
// Matches if target is an *Error with the same Code.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return e.Code == t.Code
	}
	return false
}

// Extensions returns the GraphQL error extensions for this error.
// The graphql library copies these onto the error entry in the response.
func (e *Error) Extensions() map[string]any {
	ext := map[string]any{"code": string(e.Code)}
	if e.InvalidArgs != nil {
		ext["invalidArgs"] = e.InvalidArgs
	}
	if e.cause != nil {
		ext["error"] = e.cause.Error()
	}
	return ext
}

// WithArgs returns a copy of the error annotated with the offending argument value.
func (e *Error) WithArgs(args any) *Error {
	return &Error{
		Code:        e.Code,
		Message:     e.Message,
		InvalidArgs: args,
		cause:       e.cause,
	}
}

// WithCause wraps an underlying error.
func (e *Error) WithCause(err error) *Error {
	return &Error{
		Code:        e.Code,
		Message:     e.Message,
		InvalidArgs: e.InvalidArgs,
		cause:       err,
	}
}

// Sentinel errors for use with errors.Is().
var (
	ErrNotAuthenticated   = &Error{Code: CodeNotAuthenticated, Message: "not authenticated"}
	ErrBadUserInput       = &Error{Code: CodeBadUserInput, Message: "bad user input"}
	ErrInvalidCredentials = &Error{Code: CodeInvalidCredentials, Message: "wrong credentials"}
	ErrNotFound           = &Error{Code: CodeNotFound, Message: "not found"}
	ErrAlreadyExists      = &Error{Code: CodeAlreadyExists, Message: "already exists"}
	ErrInternal           = &Error{Code: CodeInternal, Message: "internal error"}
)

// Constructor functions for creating errors with custom messages.

// NotAuthenticated creates an authentication-required error.
func NotAuthenticated(msg string) *Error {
	return &Error{Code: CodeNotAuthenticated, Message: msg}
}

// UserInput creates a bad user input error.
func UserInput(msg string) *Error {
	return &Error{Code: CodeBadUserInput, Message: msg}
}

// UserInputf creates a bad user input error with formatted message.
func UserInputf(format string, args ...any) *Error {
	return &Error{Code: CodeBadUserInput, Message: fmt.Sprintf(format, args...)}
}

// InvalidCredentials creates a credentials error.
func InvalidCredentials(msg string) *Error {
	return &Error{Code: CodeInvalidCredentials, Message: msg}
}

// NotFound creates a not found error.
func NotFound(msg string) *Error {
	return &Error{Code: CodeNotFound, Message: msg}
}

// NotFoundf creates a not found error with formatted message.
func NotFoundf(format string, args ...any) *Error {
	return &Error{Code: CodeNotFound, Message: fmt.Sprintf(format, args...)}
}

// AlreadyExists creates an already exists error.
func AlreadyExists(msg string) *Error {
	return &Error{Code: CodeAlreadyExists, Message: msg}
}

// Internal creates an internal error.
func Internal(msg string) *Error {
	return &Error{Code: CodeInternal, Message: msg}
}

// Internalf creates an internal error with formatted message.
func Internalf(format string, args ...any) *Error {
	return &Error{Code: CodeInternal, Message: fmt.Sprintf(format, args...)}
}

// Wrap wraps an error with a code and message.
func Wrap(err error, code Code, msg string) *Error {
	return &Error{Code: code, Message: msg, cause: err}
}

// Wrapf wraps an error with a code and formatted message.
func Wrapf(err error, code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), cause: err}
}
