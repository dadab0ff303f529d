package render

// RenderOptions describe per-request data that renderers use to fill the
// form without touching the schema.
type RenderOptions struct {
	// Values pre-populates inputs keyed by message key. Missing keys fall back
	// to the declared default.
	Values map[string]any
	// Errors surfaces validation feedback keyed by message key.
	Errors map[string][]string
	// FormErrors are messages not tied to a field, such as a transport
	// failure.
	FormErrors []string
	// Notice is an informational banner, for example after a successful send.
	Notice string
	// Action is the submit target. Empty means the current URL.
	Action string
	// Hidden carries extra inputs echoed back on submit.
	Hidden map[string]string
	// Title overrides the document title.
	Title string
}
