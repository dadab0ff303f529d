package render

import (
	"strings"

	"github.com/goliatone/go-devicecfg/pkg/schema"
	"github.com/goliatone/go-devicecfg/pkg/validation"
)

// ErrorMapping splits submission feedback into field-level messages keyed by
// message key and form-level messages.
type ErrorMapping struct {
	Fields map[string][]string
	Form   []string
}

// MapErrors converts a submission error into an ErrorMapping. Validation
// errors land on their field; any other error becomes a form-level message
// so it is never mistaken for a field problem.
func MapErrors(s *schema.Schema, err error) ErrorMapping {
	var mapping ErrorMapping
	if err == nil {
		return mapping
	}

	issues := validation.Errors(err)
	if len(issues) == 0 {
		mapping.Form = normalizeMessages([]string{err.Error()})
		return mapping
	}

	mapping.Fields = make(map[string][]string, len(issues))
	for _, issue := range issues {
		message := issue.Message
		if message == "" {
			message = issue.Error()
		}
		if _, known := s.Field(issue.Key); !known {
			mapping.Form = append(mapping.Form, issue.Error())
			continue
		}
		mapping.Fields[issue.Key] = normalizeMessages(append(mapping.Fields[issue.Key], message))
	}
	if len(mapping.Fields) == 0 {
		mapping.Fields = nil
	}
	mapping.Form = normalizeMessages(mapping.Form)
	return mapping
}

// MergeFormErrors concatenates and normalises multiple form-level error
// slices, trimming whitespace and removing duplicates while preserving order.
func MergeFormErrors(existing []string, extras ...string) []string {
	combined := make([]string, 0, len(existing)+len(extras))
	combined = append(combined, existing...)
	combined = append(combined, extras...)
	return normalizeMessages(combined)
}

// MapErrorPayload normalises error payloads produced by a host or gateway
// (JSON pointers, dotted or wrapped paths) onto message keys. Unknown paths
// are treated as form-level errors so messages are not lost.
func MapErrorPayload(s *schema.Schema, payload map[string][]string) ErrorMapping {
	mapping := ErrorMapping{
		Fields: make(map[string][]string),
	}

	for rawPath, messages := range payload {
		normalized := normalizeMessages(messages)
		if len(normalized) == 0 {
			continue
		}

		key, formLevel := mapErrorPath(s, rawPath)
		if formLevel {
			mapping.Form = append(mapping.Form, normalized...)
			continue
		}
		mapping.Fields[key] = normalizeMessages(append(mapping.Fields[key], normalized...))
	}

	if len(mapping.Fields) == 0 {
		mapping.Fields = nil
	}
	mapping.Form = normalizeMessages(mapping.Form)
	return mapping
}

func normalizeMessages(messages []string) []string {
	if len(messages) == 0 {
		return nil
	}

	out := make([]string, 0, len(messages))
	seen := make(map[string]struct{}, len(messages))

	for _, message := range messages {
		trimmed := strings.TrimSpace(message)
		if trimmed == "" {
			continue
		}
		if _, exists := seen[trimmed]; exists {
			continue
		}
		seen[trimmed] = struct{}{}
		out = append(out, trimmed)
	}

	if len(out) == 0 {
		return nil
	}
	return out
}

// mapErrorPath picks the first path segment that names a message key once
// wrapper segments are dropped. Message keys are flat, so nesting in the
// incoming path only ever reflects the transport envelope.
func mapErrorPath(s *schema.Schema, raw string) (string, bool) {
	trimmed := strings.TrimSpace(raw)
	if isFormLevelKey(trimmed) {
		return "", true
	}

	for _, segment := range dropWrapperSegments(parsePathSegments(trimmed)) {
		if _, ok := s.Field(segment); ok {
			return segment, false
		}
	}
	return "", true
}

func parsePathSegments(path string) []string {
	clean := strings.TrimSpace(path)
	for _, prefix := range []string{"#/", "$/", "$."} {
		clean = strings.TrimPrefix(clean, prefix)
	}
	clean = strings.TrimLeft(clean, "#/.$")

	replacer := strings.NewReplacer("[", ".", "]", "")
	clean = strings.Trim(replacer.Replace(clean), "./")
	if clean == "" {
		return nil
	}

	parts := strings.FieldsFunc(clean, func(r rune) bool {
		return r == '.' || r == '/'
	})

	out := make([]string, 0, len(parts))
	for _, part := range parts {
		segment := strings.TrimSpace(part)
		if segment == "" {
			continue
		}
		segment = strings.ReplaceAll(segment, "~1", "/")
		segment = strings.ReplaceAll(segment, "~0", "~")
		out = append(out, segment)
	}
	return out
}

var wrapperSegments = map[string]struct{}{
	"body":     {},
	"request":  {},
	"payload":  {},
	"data":     {},
	"settings": {},
	"values":   {},
}

func dropWrapperSegments(segments []string) []string {
	out := segments
	for len(out) > 0 {
		if _, ok := wrapperSegments[strings.ToLower(out[0])]; !ok {
			break
		}
		out = out[1:]
	}
	return out
}

func isFormLevelKey(key string) bool {
	switch strings.ToLower(strings.TrimSpace(key)) {
	case "", ".", "/", "#", "$", "form", "__all__", "non_field_errors", "transport":
		return true
	default:
		return false
	}
}
