package tui

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-devicecfg/pkg/render"
	"github.com/goliatone/go-devicecfg/pkg/testsupport"
	"github.com/goliatone/go-devicecfg/pkg/validation"
)

type stubDriver struct {
	inputs       []string
	selectIdx    []int
	confirm      []bool
	infoMessages []string
	inputDefault []string
	selectDef    []int
	inputPos     int
	selectPos    int
	confirmPos   int
}

func (s *stubDriver) Input(_ context.Context, cfg InputConfig) (string, error) {
	s.inputDefault = append(s.inputDefault, cfg.Default)
	if s.inputPos >= len(s.inputs) {
		return "", errors.New("no input scripted")
	}
	val := s.inputs[s.inputPos]
	s.inputPos++
	return val, nil
}

func (s *stubDriver) Confirm(_ context.Context, _ ConfirmConfig) (bool, error) {
	if s.confirmPos >= len(s.confirm) {
		return false, errors.New("no confirm scripted")
	}
	val := s.confirm[s.confirmPos]
	s.confirmPos++
	return val, nil
}

func (s *stubDriver) Select(_ context.Context, cfg SelectConfig) (int, error) {
	s.selectDef = append(s.selectDef, cfg.DefaultIndex)
	if s.selectPos >= len(s.selectIdx) {
		return -1, errors.New("no select scripted")
	}
	val := s.selectIdx[s.selectPos]
	s.selectPos++
	return val, nil
}

func (s *stubDriver) Info(_ context.Context, msg string) error {
	s.infoMessages = append(s.infoMessages, msg)
	return nil
}

func TestRender_BallsPromptsWithDefaults(t *testing.T) {
	driver := &stubDriver{inputs: []string{"40", "25"}}
	r, err := New(WithPromptDriver(driver))
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	out, err := r.Render(testsupport.Context(), testsupport.BallsSchema(t), render.RenderOptions{
		Values: map[string]any{"FPS": int64(25)},
	})
	if err != nil {
		t.Fatalf("render: %v", err)
	}

	if diff := cmp.Diff(`{"BALL_COUNT":40,"FPS":25}`, string(out)); diff != "" {
		t.Fatalf("output mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"20", "25"}, driver.inputDefault); diff != "" {
		t.Fatalf("defaults mismatch (-want +got):\n%s", diff)
	}
}

func TestRender_PhysicsCollectsCanonicalValues(t *testing.T) {
	driver := &stubDriver{
		inputs:    []string{"0.75", "100"},
		confirm:   []bool{false},
		selectIdx: []int{2},
	}
	r, err := New(WithPromptDriver(driver))
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	out, err := r.Render(testsupport.Context(), testsupport.PhysicsSchema(t), render.RenderOptions{})
	if err != nil {
		t.Fatalf("render: %v", err)
	}

	want := `{"ACCEL_ENABLED":0,"FRICTION":0.75,"PALETTE":2,"RESTITUTION":100}`
	if diff := cmp.Diff(want, string(out)); diff != "" {
		t.Fatalf("output mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"0.9", "80"}, driver.inputDefault); diff != "" {
		t.Fatalf("defaults mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]int{1}, driver.selectDef); diff != "" {
		t.Fatalf("select default mismatch (-want +got):\n%s", diff)
	}
	wantInfo := []string{"## Physics", "## Motion", "Changes apply on the next frame."}
	if diff := cmp.Diff(wantInfo, driver.infoMessages); diff != "" {
		t.Fatalf("info mismatch (-want +got):\n%s", diff)
	}
}

func TestRender_RepromptsInvalidAnswers(t *testing.T) {
	driver := &stubDriver{inputs: []string{"400", "many", "42", "60"}}
	r, err := New(WithPromptDriver(driver), WithOutputFormat(OutputFormatPrettyText))
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	out, err := r.Render(testsupport.Context(), testsupport.BallsSchema(t), render.RenderOptions{
		Errors: map[string][]string{"FPS": {"was too high"}},
	})
	if err != nil {
		t.Fatalf("render: %v", err)
	}

	if diff := cmp.Diff("BALL_COUNT = 42\nFPS = 60\n", string(out)); diff != "" {
		t.Fatalf("output mismatch (-want +got):\n%s", diff)
	}

	var errs []string
	for _, msg := range driver.infoMessages {
		if strings.HasPrefix(msg, "! ") {
			errs = append(errs, msg)
		}
	}
	if len(errs) != 3 {
		t.Fatalf("expected two retries and one prior error, got %q", errs)
	}
	if errs[2] != "! Target FPS: was too high" {
		t.Fatalf("prior error not shown before FPS prompt: %q", errs)
	}
}

func TestRender_ClampModeAndMaxAttempts(t *testing.T) {
	driver := &stubDriver{inputs: []string{"400", "0"}}
	r, err := New(
		WithPromptDriver(driver),
		WithMode(validation.ModeClamp),
		WithOutputFormat(OutputFormatFormURLEncoded),
	)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	out, err := r.Render(testsupport.Context(), testsupport.BallsSchema(t), render.RenderOptions{})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if diff := cmp.Diff("BALL_COUNT=255&FPS=1", string(out)); diff != "" {
		t.Fatalf("output mismatch (-want +got):\n%s", diff)
	}

	strict, err := New(WithPromptDriver(&stubDriver{inputs: []string{"x", "y"}}), WithMaxAttempts(2))
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	_, err = strict.Render(testsupport.Context(), testsupport.BallsSchema(t), render.RenderOptions{})
	if !errors.Is(err, ErrTooManyAttempts) {
		t.Fatalf("expected ErrTooManyAttempts, got %v", err)
	}
}

func TestRender_SubmitTransformer(t *testing.T) {
	driver := &stubDriver{inputs: []string{"10", "20"}}
	r, err := New(WithPromptDriver(driver), WithSubmitTransformer(func(values map[string]any) (map[string]any, error) {
		return map[string]any{"count": values["BALL_COUNT"]}, nil
	}))
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	out, err := r.Render(testsupport.Context(), testsupport.BallsSchema(t), render.RenderOptions{})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if string(out) != `{"count":10}` {
		t.Fatalf("unexpected output %s", out)
	}
}

func TestNew_RejectsUnknownFormat(t *testing.T) {
	if _, err := New(WithPromptDriver(&stubDriver{}), WithOutputFormat("xml")); err == nil {
		t.Fatalf("expected error for unknown format")
	}
}

func TestRenderer_Metadata(t *testing.T) {
	r, err := New(WithPromptDriver(&stubDriver{}), WithOutputFormat(OutputFormatPrettyText))
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if r.Name() != "tui" || r.ContentType() != "text/plain; charset=utf-8" {
		t.Fatalf("unexpected metadata %s %s", r.Name(), r.ContentType())
	}
}
