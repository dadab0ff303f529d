// Package validation turns raw user input into canonical field values. Rules
// depend on the field variant: sliders coerce to their numeric kind and clamp
// or reject out-of-range input, toggles accept boolean spellings and encode as
// 0/1, selects require membership. Validation is pure and never touches I/O.
package validation

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/goliatone/go-devicecfg/pkg/schema"
)

// Mode selects how out-of-range numeric input is handled.
type Mode int

const (
	// ModeClamp silently clamps numeric input into [min, max]. It is the
	// zero value and therefore the default.
	ModeClamp Mode = iota
	// ModeStrict rejects numeric input outside [min, max].
	ModeStrict
)

func (m Mode) String() string {
	if m == ModeStrict {
		return "strict"
	}
	return "clamp"
}

// ParseMode maps "clamp" or "strict" (case-insensitive) to a Mode. The empty
// string yields ModeClamp.
func ParseMode(raw string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "clamp":
		return ModeClamp, nil
	case "strict":
		return ModeStrict, nil
	default:
		return ModeClamp, fmt.Errorf("validation: unknown mode %q", raw)
	}
}

// ValidatedValue pairs a message key with a value that passed validation.
// Value is int64 or float64.
type ValidatedValue struct {
	Key   string
	Value any
}

// Validate checks raw against the field's rules.
func Validate(field schema.Field, raw any, mode Mode) (ValidatedValue, error) {
	switch f := field.(type) {
	case schema.Slider:
		return validateSlider(f, raw, mode)
	case schema.Toggle:
		return validateToggle(f, raw)
	case schema.Select:
		return validateSelect(f, raw)
	default:
		return ValidatedValue{}, fmt.Errorf("validation: unsupported field %T", field)
	}
}

// ValidateAll validates raw values for every field of s in traversal order.
// Fields absent from raw fail with CodeMissing; keys unknown to the schema are
// ignored. The returned error joins one *ValidationError per failing field
// and the slice holds the fields that passed.
func ValidateAll(s *schema.Schema, raw map[string]any, mode Mode) ([]ValidatedValue, error) {
	out := make([]ValidatedValue, 0, s.Len())
	var errs []error
	for f := range s.AllFields() {
		value, ok := raw[f.Key()]
		if !ok {
			errs = append(errs, newError(f.Key(), CodeMissing, nil, "value is required"))
			continue
		}
		vv, err := Validate(f, value, mode)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		out = append(out, vv)
	}
	return out, errors.Join(errs...)
}

func validateSlider(f schema.Slider, raw any, mode Mode) (ValidatedValue, error) {
	v, ok := toNumber(raw)
	if !ok {
		return ValidatedValue{}, newError(f.MessageKey, CodeNotNumeric, raw, "expected a number, got %v", describe(raw))
	}
	if f.Kind() == schema.NumberInteger && v != math.Trunc(v) {
		return ValidatedValue{}, newError(f.MessageKey, CodeNotInteger, raw, "%v is not a whole number", v)
	}
	if v < f.Min || v > f.Max {
		if mode == ModeStrict {
			return ValidatedValue{}, newError(f.MessageKey, CodeOutOfRange, raw, "%v is outside [%v, %v]", v, f.Min, f.Max)
		}
		v = math.Min(math.Max(v, f.Min), f.Max)
	}
	return ValidatedValue{Key: f.MessageKey, Value: f.Canonical(v)}, nil
}

func validateToggle(f schema.Toggle, raw any) (ValidatedValue, error) {
	on, ok := toBool(raw)
	if !ok {
		return ValidatedValue{}, newError(f.MessageKey, CodeNotBoolean, raw, "expected on or off, got %v", describe(raw))
	}
	return ValidatedValue{Key: f.MessageKey, Value: schema.BoolValue(on)}, nil
}

func validateSelect(f schema.Select, raw any) (ValidatedValue, error) {
	v, ok := toNumber(raw)
	if !ok {
		return ValidatedValue{}, newError(f.MessageKey, CodeNotNumeric, raw, "expected a number, got %v", describe(raw))
	}
	if !f.Has(v) {
		return ValidatedValue{}, newError(f.MessageKey, CodeNotMember, raw, "%v is not one of the options", v)
	}
	return ValidatedValue{Key: f.MessageKey, Value: f.Canonical(v)}, nil
}

func describe(raw any) string {
	if s, ok := raw.(string); ok {
		return fmt.Sprintf("%q", s)
	}
	return fmt.Sprintf("%v (%T)", raw, raw)
}
