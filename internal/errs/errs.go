// Package errs defines the error taxonomy shared by the pipeline and the
// review surface.
package errs

import (
	"errors"
	"fmt"
)

type Code string

const (
	// CodeFetch marks failures reaching the offer source or a non-success
	// status from it.
	CodeFetch Code = "fetch"
	// CodeValidation marks shape mismatches: source offers, generation
	// results and send preconditions.
	CodeValidation Code = "validation"
	// CodeNotFound marks updates or actions against an unknown offer id.
	CodeNotFound Code = "not_found"
	// CodeProvider marks sends rejected by the email provider.
	CodeProvider Code = "provider"
)

type Error struct {
	Code    Code
	Message string
	Err     error
}

func New(code Code, message string, err error) *Error {
	return &Error{Code: code, Message: message, Err: err}
}

func Newf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// HasCode reports whether err or anything it wraps carries the given code.
func HasCode(err error, code Code) bool {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}
