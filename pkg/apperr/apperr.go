package apperr

import (
	"errors"
	"fmt"
)

// An Error carries a machine-readable code alongside the message. The
// api package maps codes to HTTP statuses.
type Error struct {
	Code    Code   `json:"code"`
	Message string `json:"message"`
	Cause   error  `json:"-"`
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Cause }

func New(code Code, message string) error {
	return &Error{Code: code, Message: message}
}

func Wrap(code Code, message string, cause error) error {
	return &Error{Code: code, Message: message, Cause: cause}
}

func NotFound(format string, args ...any) error {
	return New(CodeNotFound, fmt.Sprintf(format, args...))
}

func Conflict(format string, args ...any) error {
	return New(CodeConflict, fmt.Sprintf(format, args...))
}

func InvalidArg(format string, args ...any) error {
	return New(CodeInvalidArgument, fmt.Sprintf(format, args...))
}

func Internal(msg string) error {
	return New(CodeInternal, msg)
}

// CodeOf returns the code attached to err, or CodeUnknown when err is
// not an *Error.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeUnknown
}

func IsNotFound(err error) bool { return CodeOf(err) == CodeNotFound }
