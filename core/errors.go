package core

import "github.com/pkg/errors"

// ErrPermissionDenied is returned when the acting user may not perform an operation.
var ErrPermissionDenied = errors.New("permission denied")

// FieldError is used to indicate an error with a specific struct field.
type FieldError struct {
	Field string
	Error string
}

type ValidationError struct {
	Err    error
	Fields []FieldError
}

func NewValidationError(err error, flds ...FieldError) error {
	return &ValidationError{err, flds}
}

func (err ValidationError) Error() string {
	if err.Err == nil {
		if len(err.Fields) > 0 {
			return err.Fields[0].Field + ": " + err.Fields[0].Error
		}
		return ""
	}
	return err.Err.Error()
}

// DomainError is a business rule violation. Details lists every rule that failed.
type DomainError struct {
	Msg     string
	Details []string
}

func NewDomainError(msg string, details ...string) error {
	return &DomainError{Msg: msg, Details: details}
}

func (err DomainError) Error() string {
	return err.Msg
}

func IsDomainError(err error) bool {
	_, ok := errors.Cause(err).(*DomainError)
	return ok
}

type NotFoundError struct {
	Msg string
}

func NewNotFoundError(msg string) error {
	return &NotFoundError{Msg: msg}
}

func (err NotFoundError) Error() string {
	return err.Msg
}

func IsNotFound(err error) bool {
	_, ok := errors.Cause(err).(*NotFoundError)
	return ok
}

type shutdown struct {
	message string
}

func NewShutdownError(msg string) error {
	return &shutdown{message: msg}
}

func (s shutdown) Error() string {
	return s.message
}

func IsShutdown(err error) bool {
	_, ok := errors.Cause(err).(*shutdown)
	return ok
}
