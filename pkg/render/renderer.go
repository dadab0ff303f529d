package render

import (
	"context"

	"github.com/goliatone/go-devicecfg/pkg/schema"
)

// Renderer turns a settings schema plus the current values into a byte
// representation (HTML page, terminal transcript, JSON answers).
type Renderer interface {
	Name() string
	ContentType() string
	Render(ctx context.Context, s *schema.Schema, options RenderOptions) ([]byte, error)
}
