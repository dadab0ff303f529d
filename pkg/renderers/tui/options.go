package tui

import "github.com/goliatone/go-devicecfg/pkg/validation"

// OutputFormat controls how collected values are serialized.
type OutputFormat string

const (
	// OutputFormatJSON emits a flat JSON object.
	OutputFormatJSON OutputFormat = "json"
	// OutputFormatFormURLEncoded emits application/x-www-form-urlencoded pairs.
	OutputFormatFormURLEncoded OutputFormat = "form"
	// OutputFormatPrettyText emits one KEY = value line per field.
	OutputFormatPrettyText OutputFormat = "pretty"
)

// Theme captures optional message prefixes the renderer applies when
// printing headings, notes and errors.
type Theme struct {
	HeadingPrefix string
	InfoPrefix    string
	ErrorPrefix   string
}

// Option configures the TUI renderer.
type Option func(*Renderer)

// WithPromptDriver overrides the prompt driver used by the renderer.
func WithPromptDriver(driver PromptDriver) Option {
	return func(r *Renderer) {
		if driver != nil {
			r.driver = driver
		}
	}
}

// WithOutputFormat selects the output serialization format.
func WithOutputFormat(format OutputFormat) Option {
	return func(r *Renderer) {
		if format != "" {
			r.outputFormat = format
		}
	}
}

// WithMode selects how answers are checked before being accepted. Prompts
// default to ModeStrict so out-of-range answers are asked again rather than
// silently clamped.
func WithMode(mode validation.Mode) Option {
	return func(r *Renderer) {
		r.mode = mode
	}
}

// WithMaxAttempts bounds re-prompting of a single field. Zero means no limit.
func WithMaxAttempts(n int) Option {
	return func(r *Renderer) {
		if n >= 0 {
			r.maxAttempts = n
		}
	}
}

// WithTheme applies optional message prefixes.
func WithTheme(theme Theme) Option {
	return func(r *Renderer) {
		r.theme = theme
	}
}

// SubmitTransformer can reshape the collected values before serialization.
type SubmitTransformer func(values map[string]any) (map[string]any, error)

// WithSubmitTransformer registers a transformer applied after prompting.
func WithSubmitTransformer(fn SubmitTransformer) Option {
	return func(r *Renderer) {
		r.submitTransformer = fn
	}
}
