// Package html renders a settings schema as a self-contained HTML page with a
// plain form post, suitable for a companion app's configuration web view.
package html

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"strconv"

	"github.com/goliatone/go-devicecfg/pkg/render"
	rendertemplate "github.com/goliatone/go-devicecfg/pkg/render/template"
	"github.com/goliatone/go-devicecfg/pkg/render/template/pongo"
	"github.com/goliatone/go-devicecfg/pkg/schema"
)

// Name is the registry name of the renderer.
const Name = "html"

const pageTemplate = "page.tmpl"

type Option func(*config)

type config struct {
	templateFS       fs.FS
	templateRenderer rendertemplate.TemplateRenderer
	stylesheet       *string
	title            string
}

// WithTemplatesFS supplies an alternate template bundle via fs.FS. It must
// provide page.tmpl.
func WithTemplatesFS(files fs.FS) Option {
	return func(cfg *config) {
		cfg.templateFS = files
	}
}

// WithTemplatesDir loads templates from a directory on disk.
func WithTemplatesDir(path string) Option {
	return func(cfg *config) {
		if path == "" {
			return
		}
		cfg.templateFS = os.DirFS(path)
	}
}

// WithTemplateRenderer injects a custom template renderer implementation.
func WithTemplateRenderer(renderer rendertemplate.TemplateRenderer) Option {
	return func(cfg *config) {
		if renderer != nil {
			cfg.templateRenderer = renderer
		}
	}
}

// WithStylesheet replaces the inline stylesheet. An empty string disables it.
func WithStylesheet(css string) Option {
	return func(cfg *config) {
		cfg.stylesheet = &css
	}
}

// WithTitle sets the default document title.
func WithTitle(title string) Option {
	return func(cfg *config) {
		cfg.title = title
	}
}

type Renderer struct {
	templates  rendertemplate.TemplateRenderer
	stylesheet string
	title      string
}

// New constructs the HTML renderer applying any provided options.
func New(options ...Option) (*Renderer, error) {
	cfg := config{templateFS: TemplatesFS(), title: "Settings"}
	for _, opt := range options {
		if opt != nil {
			opt(&cfg)
		}
	}

	renderer := cfg.templateRenderer
	if renderer == nil {
		engine, err := pongo.New(
			pongo.WithFS(cfg.templateFS),
			pongo.WithExtension(".tmpl"),
		)
		if err != nil {
			return nil, fmt.Errorf("html renderer: configure template renderer: %w", err)
		}
		renderer = engine
	}

	stylesheet := defaultStylesheet()
	if cfg.stylesheet != nil {
		stylesheet = *cfg.stylesheet
	}

	return &Renderer{templates: renderer, stylesheet: stylesheet, title: cfg.title}, nil
}

func (r *Renderer) Name() string {
	return Name
}

func (r *Renderer) ContentType() string {
	return "text/html; charset=utf-8"
}

// blockView adds HTML specifics to a render.Block.
type blockView struct {
	render.Block
	Tag string `json:"tag,omitempty"`
}

type hiddenView struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

func (r *Renderer) Render(ctx context.Context, s *schema.Schema, opts render.RenderOptions) ([]byte, error) {
	if r.templates == nil {
		return nil, fmt.Errorf("html renderer: template renderer is nil")
	}
	if s == nil {
		return nil, fmt.Errorf("html renderer: schema is required")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	blocks := render.Blocks(s, opts)
	views := make([]blockView, 0, len(blocks))
	for _, b := range blocks {
		b.Label = sanitizeMarkup(b.Label)
		b.Description = sanitizeMarkup(b.Description)
		b.Text = sanitizeMarkup(b.Text)
		view := blockView{Block: b}
		if b.Kind == render.BlockHeading {
			view.Tag = "h" + strconv.Itoa(b.Size)
		}
		views = append(views, view)
	}

	var hidden []hiddenView
	for _, field := range render.SortedHiddenFields(opts.Hidden) {
		hidden = append(hidden, hiddenView{Name: field.Name, Value: field.Value})
	}

	title := opts.Title
	if title == "" {
		title = r.title
	}

	result, err := r.templates.RenderTemplate(pageTemplate, map[string]any{
		"title":       title,
		"stylesheet":  r.stylesheet,
		"action":      opts.Action,
		"notice":      opts.Notice,
		"form_errors": render.MergeFormErrors(opts.FormErrors),
		"hidden":      hidden,
		"blocks":      views,
	})
	if err != nil {
		return nil, fmt.Errorf("html renderer: render template: %w", err)
	}
	return []byte(result), nil
}

var _ render.Renderer = (*Renderer)(nil)
