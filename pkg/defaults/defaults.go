// Package defaults merges previously saved values with the declared defaults
// of a schema. A saved value survives only when it still passes strict
// validation against the current schema; anything else falls back to the
// field default, and keys the schema no longer declares are dropped.
package defaults

import (
	"sort"

	"github.com/goliatone/go-devicecfg/pkg/schema"
	"github.com/goliatone/go-devicecfg/pkg/validation"
)

// Report describes how a resolution treated the previous values.
type Report struct {
	// Values holds exactly one canonical value per schema message key.
	Values map[string]any
	// Reset lists keys whose previous value failed validation, in traversal
	// order.
	Reset []string
	// Dropped lists previous keys unknown to the schema, sorted.
	Dropped []string
}

// Resolve returns a fully valid value per schema field, preferring previous
// values and falling back to declared defaults.
func Resolve(s *schema.Schema, previous map[string]any) map[string]any {
	return ResolveReport(s, previous).Values
}

// ResolveReport is Resolve plus bookkeeping about rejected and dropped keys.
func ResolveReport(s *schema.Schema, previous map[string]any) Report {
	report := Report{Values: make(map[string]any, s.Len())}

	for f := range s.AllFields() {
		key := f.Key()
		raw, ok := previous[key]
		if !ok {
			report.Values[key] = f.Default()
			continue
		}
		vv, err := validation.Validate(f, raw, validation.ModeStrict)
		if err != nil {
			report.Reset = append(report.Reset, key)
			report.Values[key] = f.Default()
			continue
		}
		report.Values[key] = vv.Value
	}

	for key := range previous {
		if _, known := s.Field(key); !known {
			report.Dropped = append(report.Dropped, key)
		}
	}
	sort.Strings(report.Dropped)
	return report
}
