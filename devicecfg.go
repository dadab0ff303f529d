// Package devicecfg is the top-level entry point for loading a settings
// schema, turning user input into a device payload and rendering the
// settings page. The subpackages under pkg/ expose each stage on its own.
package devicecfg

import (
	"context"
	"fmt"
	"io/fs"
	"maps"

	"github.com/goliatone/go-devicecfg/pkg/defaults"
	"github.com/goliatone/go-devicecfg/pkg/payload"
	"github.com/goliatone/go-devicecfg/pkg/render"
	"github.com/goliatone/go-devicecfg/pkg/renderers/html"
	"github.com/goliatone/go-devicecfg/pkg/schema"
	"github.com/goliatone/go-devicecfg/pkg/session"
	"github.com/goliatone/go-devicecfg/pkg/validation"
)

// Schema aliases schema.Schema.
type Schema = schema.Schema

// Payload aliases payload.Payload.
type Payload = payload.Payload

// Mode aliases validation.Mode.
type Mode = validation.Mode

// RenderOptions describes per-request overrides that renderers can use to
// prefill values or surface validation errors.
type RenderOptions = render.RenderOptions

const (
	ModeClamp  = validation.ModeClamp
	ModeStrict = validation.ModeStrict
)

// LoadSchema reads a schema descriptor (.js, .json or .yaml) from disk.
func LoadSchema(path string) (*Schema, error) {
	return schema.LoadFile(path)
}

// Process runs the pure pipeline without I/O: previous values are resolved
// against the schema, raw input is laid over them, and the result is
// validated and encoded. Validation failures are returned joined.
func Process(s *Schema, previous, raw map[string]any, mode Mode) (Payload, error) {
	if s == nil {
		return nil, fmt.Errorf("devicecfg: schema is required")
	}
	values := defaults.Resolve(s, previous)
	maps.Copy(values, raw)

	validated, err := validation.ValidateAll(s, values, mode)
	if err != nil {
		return nil, err
	}
	return payload.Encode(validated)
}

// NewSession exposes the session constructor from the top-level module.
func NewSession(s *Schema, options ...session.Option) (*session.Session, error) {
	return session.New(s, options...)
}

// GenerateHTML renders the settings page for s with the built-in HTML
// renderer. It is the simplest entry point for callers that just want HTML
// output.
func GenerateHTML(ctx context.Context, s *Schema, opts RenderOptions, options ...html.Option) ([]byte, error) {
	renderer, err := html.New(options...)
	if err != nil {
		return nil, err
	}
	return renderer.Render(ctx, s, opts)
}

// EmbeddedTemplates exposes the built-in HTML templates so callers can reuse
// or extend them without importing the renderer package directly.
func EmbeddedTemplates() fs.FS {
	return html.TemplatesFS()
}

// AssetsFS exposes the default stylesheet so Go applications can serve it.
//
// Typical mount:
//
//	mux.Handle("/assets/",
//	  http.StripPrefix("/assets/",
//	    http.FileServerFS(devicecfg.AssetsFS()),
//	  ),
//	)
func AssetsFS() fs.FS {
	return html.AssetsFS()
}
