package render_test

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-devicecfg/pkg/render"
	"github.com/goliatone/go-devicecfg/pkg/schema"
)

type namedRenderer string

func (r namedRenderer) Name() string        { return string(r) }
func (r namedRenderer) ContentType() string { return "text/plain" }
func (r namedRenderer) Render(context.Context, *schema.Schema, render.RenderOptions) ([]byte, error) {
	return []byte(r), nil
}

func TestRegistry_DefaultAndLookup(t *testing.T) {
	registry := render.NewRegistry()
	if _, err := registry.Resolve(""); err == nil {
		t.Fatalf("expected error from empty registry")
	}

	registry.MustRegister(namedRenderer("html"))
	registry.MustRegister(namedRenderer("tui"))

	if err := registry.Register(namedRenderer("html")); err == nil {
		t.Fatalf("expected duplicate registration error")
	}
	if err := registry.Register(namedRenderer("")); err == nil {
		t.Fatalf("expected error for unnamed renderer")
	}

	got, err := registry.Resolve("")
	if err != nil || got.Name() != "html" {
		t.Fatalf("first registered renderer should be the default, got %v %v", got, err)
	}

	if err := registry.SetDefault("tui"); err != nil {
		t.Fatalf("set default: %v", err)
	}
	if got, err := registry.Resolve(""); err != nil || got.Name() != "tui" {
		t.Fatalf("expected tui as default, got %v %v", got, err)
	}
	if err := registry.SetDefault("preview"); err == nil {
		t.Fatalf("expected error for unknown default")
	}
	if got, _ := registry.Resolve(""); got.Name() != "tui" {
		t.Fatalf("failed SetDefault changed the default to %s", got.Name())
	}

	if diff := cmp.Diff([]string{"html", "tui"}, registry.List()); diff != "" {
		t.Fatalf("names mismatch (-want +got):\n%s", diff)
	}
	if !registry.Has("tui") || registry.Has("preview") {
		t.Fatalf("unexpected Has results")
	}
	if _, err := registry.Get("preview"); err == nil {
		t.Fatalf("expected error for unknown renderer")
	}
}
