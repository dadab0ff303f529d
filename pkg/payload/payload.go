// Package payload builds the flat key/value mapping delivered to the device.
// Keys are message keys taken verbatim from the schema and values stay
// numeric (int64 or float64); nothing is renamed, nested or stringified.
package payload

import (
	"errors"
	"fmt"
	"maps"
	"slices"

	json "github.com/goccy/go-json"

	"github.com/goliatone/go-devicecfg/pkg/validation"
)

// ErrEncoding matches every *EncodingError through errors.Is.
var ErrEncoding = errors.New("payload: encoding failed")

// Code classifies encoding failures.
type Code string

// CodeDuplicateKey signals two validated values sharing a message key. A
// schema built by schema.New cannot produce it.
const CodeDuplicateKey Code = "duplicate_key"

// EncodingError reports a broken invariant while building a payload.
type EncodingError struct {
	Code Code
	Key  string
}

func (e *EncodingError) Error() string {
	return fmt.Sprintf("payload: %s: duplicate message key", e.Key)
}

// Is lets callers test any encoding error against ErrEncoding.
func (e *EncodingError) Is(target error) bool {
	return target == ErrEncoding
}

// Payload maps message keys to numeric values.
type Payload map[string]any

// Encode inserts every validated value into a new payload. It never
// overwrites: a repeated key fails the whole encoding.
func Encode(values []validation.ValidatedValue) (Payload, error) {
	out := make(Payload, len(values))
	for _, vv := range values {
		if _, exists := out[vv.Key]; exists {
			return nil, &EncodingError{Code: CodeDuplicateKey, Key: vv.Key}
		}
		out[vv.Key] = vv.Value
	}
	return out, nil
}

// Keys returns the message keys in sorted order.
func (p Payload) Keys() []string {
	return slices.Sorted(maps.Keys(p))
}

// Clone returns a shallow copy; values are scalars so the copy is independent.
func (p Payload) Clone() Payload {
	if p == nil {
		return nil
	}
	return maps.Clone(p)
}

// Map returns the payload as a plain map, useful for generic encoders.
func (p Payload) Map() map[string]any {
	return map[string]any(p.Clone())
}

// MarshalJSON encodes the payload as a flat JSON object with sorted keys.
func (p Payload) MarshalJSON() ([]byte, error) {
	if p == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(map[string]any(p))
}
