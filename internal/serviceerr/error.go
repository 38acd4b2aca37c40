// Package serviceerr carries the coded errors returned by service layers.
package serviceerr

import (
	"errors"
	"fmt"
)

// Error tags a failure with a stable `operation.reason` code.
type Error struct {
	code string
	err  error
}

// New builds an Error whose code joins operation and reason with a dot.
func New(operation, reason string, cause error) error {
	code := fmt.Sprintf("%s.%s", operation, reason)
	return &Error{code: code, err: cause}
}

func (e *Error) Error() string {
	if e.err == nil {
		return e.code
	}
	return fmt.Sprintf("%s: %v", e.code, e.err)
}

func (e *Error) Unwrap() error {
	return e.err
}

func (e *Error) Code() string {
	return e.code
}

// Message returns the underlying cause text without the code prefix.
func (e *Error) Message() string {
	if e.err == nil {
		return e.code
	}
	return e.err.Error()
}

// Code extracts the code of the first Error in err's chain.
func Code(err error) string {
	var serviceErr *Error
	if errors.As(err, &serviceErr) {
		return serviceErr.Code()
	}
	return ""
}

// Message extracts the cause text of the first Error in err's chain, or
// err's own text when there is none.
func Message(err error) string {
	if err == nil {
		return ""
	}
	var serviceErr *Error
	if errors.As(err, &serviceErr) {
		return serviceErr.Message()
	}
	return err.Error()
}
