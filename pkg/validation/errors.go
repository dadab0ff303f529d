package validation

import (
	"errors"
	"fmt"
)

// ErrInvalidValue matches every *ValidationError through errors.Is.
var ErrInvalidValue = errors.New("validation: invalid value")

// Code classifies a field-level validation failure.
type Code string

const (
	CodeNotNumeric Code = "not_numeric"
	CodeNotInteger Code = "not_integer"
	CodeOutOfRange Code = "out_of_range"
	CodeNotMember  Code = "not_member"
	CodeNotBoolean Code = "not_boolean"
	CodeMissing    Code = "missing"
)

// ValidationError is a recoverable, per-field error meant to be shown next to
// the offending input.
type ValidationError struct {
	Key     string
	Code    Code
	Raw     any
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation: %s: %s", e.Key, e.Message)
}

// Is lets callers test any validation error against ErrInvalidValue.
func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidValue
}

// Errors flattens err (possibly produced by errors.Join) into the validation
// errors it carries.
func Errors(err error) []*ValidationError {
	if err == nil {
		return nil
	}
	var out []*ValidationError
	collect(err, &out)
	return out
}

// ByKey indexes the validation errors carried by err by message key.
func ByKey(err error) map[string]*ValidationError {
	list := Errors(err)
	if len(list) == 0 {
		return nil
	}
	out := make(map[string]*ValidationError, len(list))
	for _, ve := range list {
		out[ve.Key] = ve
	}
	return out
}

func collect(err error, out *[]*ValidationError) {
	if ve, ok := err.(*ValidationError); ok {
		*out = append(*out, ve)
		return
	}
	switch wrapped := err.(type) {
	case interface{ Unwrap() []error }:
		for _, inner := range wrapped.Unwrap() {
			collect(inner, out)
		}
	case interface{ Unwrap() error }:
		if inner := wrapped.Unwrap(); inner != nil {
			collect(inner, out)
		}
	}
}

func newError(key string, code Code, raw any, format string, args ...any) *ValidationError {
	return &ValidationError{
		Key:     key,
		Code:    code,
		Raw:     raw,
		Message: fmt.Sprintf(format, args...),
	}
}
