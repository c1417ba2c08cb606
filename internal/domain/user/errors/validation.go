package errors

import (
	"fmt"
	"sort"
	"strings"
)

const (
	CodeRequired          = "required"
	CodeInvalid           = "invalid"
	CodeMaxLength         = "max_length"
	CodeNull              = "null"
	CodePasswordMismatch  = "password_mismatch"
	CodeWeakPassword      = "weak_password"
	CodeDuplicateEmail    = "duplicate_email"
	CodeDuplicateUsername = "duplicate_username"
	CodeInvalidDate       = "invalid_date"
)

type FieldError struct {
	Code    string
	Message string
}

// ValidationError maps a field name to everything wrong with it.
// It unwraps to ErrInvalidArgument.
type ValidationError struct {
	Fields map[string][]FieldError
}

func NewValidationError() *ValidationError {
	return &ValidationError{Fields: make(map[string][]FieldError)}
}

// NewFieldError is a shortcut for a single-field failure.
func NewFieldError(field, code, msg string) *ValidationError {
	ve := NewValidationError()
	ve.Add(field, code, msg)
	return ve
}

func (e *ValidationError) Add(field, code, msg string) {
	e.Fields[field] = append(e.Fields[field], FieldError{Code: code, Message: msg})
}

func (e *ValidationError) Has(field string) bool {
	return len(e.Fields[field]) > 0
}

func (e *ValidationError) HasCode(code string) bool {
	for _, errs := range e.Fields {
		for _, fe := range errs {
			if fe.Code == code {
				return true
			}
		}
	}
	return false
}

func (e *ValidationError) Empty() bool {
	return len(e.Fields) == 0
}

// OrNil lets callers collect errors and return them in one go.
func (e *ValidationError) OrNil() error {
	if e.Empty() {
		return nil
	}
	return e
}

// Messages is the wire shape: field -> list of messages.
func (e *ValidationError) Messages() map[string][]string {
	out := make(map[string][]string, len(e.Fields))
	for field, errs := range e.Fields {
		msgs := make([]string, 0, len(errs))
		for _, fe := range errs {
			msgs = append(msgs, fe.Message)
		}
		out[field] = msgs
	}
	return out
}

func (e *ValidationError) Error() string {
	fields := make([]string, 0, len(e.Fields))
	for f := range e.Fields {
		fields = append(fields, f)
	}
	sort.Strings(fields)

	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		codes := make([]string, 0, len(e.Fields[f]))
		for _, fe := range e.Fields[f] {
			codes = append(codes, fe.Code)
		}
		parts = append(parts, fmt.Sprintf("%s: %s", f, strings.Join(codes, ",")))
	}
	return fmt.Sprintf("%v: %s", ErrInvalidArgument, strings.Join(parts, "; "))
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalidArgument
}
