package devicecfg_test

import (
	"errors"
	"io/fs"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	devicecfg "github.com/goliatone/go-devicecfg"
	"github.com/goliatone/go-devicecfg/pkg/renderers/html"
	"github.com/goliatone/go-devicecfg/pkg/testsupport"
	"github.com/goliatone/go-devicecfg/pkg/validation"
)

func TestProcess_BallsScenario(t *testing.T) {
	path := testsupport.WriteFixture(t, t.TempDir(), testsupport.BallsFixture)
	s, err := devicecfg.LoadSchema(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	p, err := devicecfg.Process(s, nil, map[string]any{"BALL_COUNT": 400}, devicecfg.ModeClamp)
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	data, err := p.MarshalJSON()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if diff := cmp.Diff(`{"BALL_COUNT":255,"FPS":30}`, string(data)); diff != "" {
		t.Fatalf("payload mismatch (-want +got):\n%s", diff)
	}

	again, err := devicecfg.Process(s, nil, map[string]any{"BALL_COUNT": 400}, devicecfg.ModeClamp)
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if diff := cmp.Diff(p, again); diff != "" {
		t.Fatalf("process is not deterministic (-want +got):\n%s", diff)
	}
}

func TestProcess_StrictRejects(t *testing.T) {
	_, err := devicecfg.Process(testsupport.BallsSchema(t), map[string]any{"FPS": 25}, map[string]any{"BALL_COUNT": 400}, devicecfg.ModeStrict)
	if !errors.Is(err, validation.ErrInvalidValue) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if _, err := devicecfg.Process(nil, nil, nil, devicecfg.ModeClamp); err == nil {
		t.Fatalf("expected error for nil schema")
	}
}

func TestGenerateHTML(t *testing.T) {
	out, err := devicecfg.GenerateHTML(testsupport.Context(), testsupport.BallsSchema(t), devicecfg.RenderOptions{}, html.WithTitle("Balls"))
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if !strings.Contains(string(out), "<title>Balls</title>") {
		t.Fatalf("unexpected page:\n%s", out)
	}
}

func TestEmbeddedFilesystems(t *testing.T) {
	if _, err := fs.Stat(devicecfg.EmbeddedTemplates(), "page.tmpl"); err != nil {
		t.Fatalf("page template missing: %v", err)
	}
	if _, err := fs.Stat(devicecfg.AssetsFS(), html.StylesheetName); err != nil {
		t.Fatalf("stylesheet missing: %v", err)
	}
}
