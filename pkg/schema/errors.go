package schema

import (
	"errors"
	"fmt"
)

// ErrInvalidSchema matches every *SchemaError through errors.Is.
var ErrInvalidSchema = errors.New("schema: invalid schema")

// ErrorCode classifies authoring mistakes.
type ErrorCode string

const (
	CodeUnknownType       ErrorCode = "unknown_type"
	CodeMissingKey        ErrorCode = "missing_key"
	CodeDuplicateKey      ErrorCode = "duplicate_key"
	CodeInvalidBounds     ErrorCode = "invalid_bounds"
	CodeInvalidStep       ErrorCode = "invalid_step"
	CodeInvalidDefault    ErrorCode = "invalid_default"
	CodeDefaultOutOfRange ErrorCode = "default_out_of_range"
	CodeEmptyOptions      ErrorCode = "empty_options"
	CodeInvalidOption     ErrorCode = "invalid_option"
	CodeDuplicateOption   ErrorCode = "duplicate_option"
	CodeMalformed         ErrorCode = "malformed"
)

// SchemaError reports a configuration error found while building a schema.
// Path locates the offending node using the descriptor layout, for example
// "[1].items[2]".
type SchemaError struct {
	Code    ErrorCode
	Path    string
	Key     string
	Message string
}

func (e *SchemaError) Error() string {
	if e.Path == "" {
		return "schema: " + e.Message
	}
	return fmt.Sprintf("schema: %s: %s", e.Path, e.Message)
}

// Is lets callers test any schema error against ErrInvalidSchema.
func (e *SchemaError) Is(target error) bool {
	return target == ErrInvalidSchema
}

// Issues flattens err (possibly produced by errors.Join) into the schema
// errors it carries, preserving order.
func Issues(err error) []*SchemaError {
	if err == nil {
		return nil
	}
	var out []*SchemaError
	collectIssues(err, &out)
	return out
}

func collectIssues(err error, out *[]*SchemaError) {
	if se, ok := err.(*SchemaError); ok {
		*out = append(*out, se)
		return
	}
	switch wrapped := err.(type) {
	case interface{ Unwrap() []error }:
		for _, inner := range wrapped.Unwrap() {
			collectIssues(inner, out)
		}
	case interface{ Unwrap() error }:
		if inner := wrapped.Unwrap(); inner != nil {
			collectIssues(inner, out)
		}
	}
}

func newError(code ErrorCode, path, key, format string, args ...any) *SchemaError {
	return &SchemaError{
		Code:    code,
		Path:    path,
		Key:     key,
		Message: fmt.Sprintf(format, args...),
	}
}
