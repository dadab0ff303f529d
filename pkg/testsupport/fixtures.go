package testsupport

import (
	"bytes"
	"context"
	"embed"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/goliatone/go-devicecfg/pkg/schema"
)

//go:embed testdata/*
var fixtures embed.FS

const (
	// BallsFixture is the two-slider settings page shipped with the ball demo.
	BallsFixture = "config.js"
	// PhysicsFixture exercises nested sections, float sliders, toggles and
	// selects.
	PhysicsFixture = "physics.yaml"
	// InvalidFixture holds several authoring mistakes at once.
	InvalidFixture = "invalid.json"
)

// FixturesFS exposes the embedded schema fixtures rooted at testdata/.
func FixturesFS() fs.FS {
	sub, err := fs.Sub(fixtures, "testdata")
	if err != nil {
		return fixtures
	}
	return sub
}

// ReadFixture returns the raw bytes of an embedded fixture.
func ReadFixture(t *testing.T, name string) []byte {
	t.Helper()

	data, err := fs.ReadFile(FixturesFS(), name)
	if err != nil {
		t.Fatalf("read fixture %s: %v", name, err)
	}
	return data
}

// LoadSchema parses an embedded fixture and fails the test on error.
func LoadSchema(t *testing.T, name string) *schema.Schema {
	t.Helper()

	s, err := schema.LoadFS(FixturesFS(), name)
	if err != nil {
		t.Fatalf("load schema %s: %v", name, err)
	}
	return s
}

// BallsSchema returns the BALL_COUNT/FPS schema.
func BallsSchema(t *testing.T) *schema.Schema {
	t.Helper()
	return LoadSchema(t, BallsFixture)
}

// PhysicsSchema returns the nested physics schema.
func PhysicsSchema(t *testing.T) *schema.Schema {
	t.Helper()
	return LoadSchema(t, PhysicsFixture)
}

// WriteFixture copies an embedded fixture into dir and returns its path, for
// code paths that only accept files on disk.
func WriteFixture(t *testing.T, dir, name string) string {
	t.Helper()

	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, ReadFixture(t, name), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	return path
}

// Context returns a background context for tests.
func Context() context.Context {
	return context.Background()
}

// CaptureTemplateOutput executes a render function that writes to an
// io.Writer, returning both the string result and the writer contents.
func CaptureTemplateOutput(t *testing.T, render func(io.Writer) (string, error)) (string, string) {
	t.Helper()

	var buf bytes.Buffer
	out, err := render(&buf)
	if err != nil {
		t.Fatalf("render template: %v", err)
	}
	return out, buf.String()
}
