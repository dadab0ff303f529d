// Package tui walks a settings schema in a terminal. Headings and text are
// printed, every field is prompted with its current value as the default and
// asked again until the answer validates, and the collected canonical values
// are returned in the configured output format.
package tui

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"slices"
	"strings"

	json "github.com/goccy/go-json"

	"github.com/goliatone/go-devicecfg/pkg/render"
	"github.com/goliatone/go-devicecfg/pkg/schema"
	"github.com/goliatone/go-devicecfg/pkg/validation"
)

// Name is the registry name of the renderer.
const Name = "tui"

// Renderer implements render.Renderer for terminal sessions.
type Renderer struct {
	driver            PromptDriver
	outputFormat      OutputFormat
	mode              validation.Mode
	maxAttempts       int
	submitTransformer SubmitTransformer
	theme             Theme
}

// New constructs a TUI renderer with defaults (survey driver, JSON output,
// strict answers).
func New(options ...Option) (*Renderer, error) {
	r := &Renderer{
		outputFormat: OutputFormatJSON,
		mode:         validation.ModeStrict,
		theme:        Theme{HeadingPrefix: "## ", ErrorPrefix: "! "},
	}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(r)
	}
	if r.driver == nil {
		r.driver = NewSurveyDriver(nil)
	}
	switch r.outputFormat {
	case OutputFormatJSON, OutputFormatFormURLEncoded, OutputFormatPrettyText:
	default:
		return nil, fmt.Errorf("tui: unknown output format %q", r.outputFormat)
	}
	return r, nil
}

// Name reports the renderer identifier.
func (r *Renderer) Name() string {
	return Name
}

// ContentType reports the serialization format used by Render.
func (r *Renderer) ContentType() string {
	switch r.outputFormat {
	case OutputFormatFormURLEncoded:
		return "application/x-www-form-urlencoded"
	case OutputFormatPrettyText:
		return "text/plain; charset=utf-8"
	default:
		return "application/json"
	}
}

// Render prompts for every field of s and serializes the answers. Values in
// opts seed the prompt defaults and opts.Errors are shown before the matching
// prompt.
func (r *Renderer) Render(ctx context.Context, s *schema.Schema, opts render.RenderOptions) ([]byte, error) {
	if ctx == nil {
		return nil, errors.New("tui: context is required")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil {
		return nil, errors.New("tui: schema is required")
	}
	if r.driver == nil {
		return nil, errors.New("tui: prompt driver is nil")
	}

	state := NewState(opts.Values, opts.Errors)
	if title := strings.TrimSpace(opts.Title); title != "" {
		if err := r.info(ctx, r.theme.HeadingPrefix, title); err != nil {
			return nil, err
		}
	}
	for _, msg := range render.MergeFormErrors(opts.FormErrors) {
		if err := r.info(ctx, r.theme.ErrorPrefix, msg); err != nil {
			return nil, err
		}
	}

	for _, block := range render.Blocks(s, render.RenderOptions{Values: state.Values()}) {
		var err error
		switch block.Kind {
		case render.BlockHeading:
			err = r.info(ctx, r.theme.HeadingPrefix, block.Text)
		case render.BlockText:
			err = r.info(ctx, r.theme.InfoPrefix, block.Text)
		case render.BlockSlider, render.BlockToggle, render.BlockSelect:
			field, ok := s.Field(block.Key)
			if !ok {
				return nil, fmt.Errorf("tui: unknown field %q", block.Key)
			}
			err = r.promptField(ctx, field, block, state)
		}
		if err != nil {
			return nil, err
		}
	}

	values := state.Values()
	if r.submitTransformer != nil {
		var err error
		values, err = r.submitTransformer(values)
		if err != nil {
			return nil, fmt.Errorf("tui: submit transformer: %w", err)
		}
	}
	return r.serialize(values)
}

func (r *Renderer) promptField(ctx context.Context, field schema.Field, block render.Block, state *State) error {
	for _, msg := range state.TakeErrors(block.Key) {
		if err := r.info(ctx, r.theme.ErrorPrefix, block.Label+": "+msg); err != nil {
			return err
		}
	}

	for attempt := 1; ; attempt++ {
		raw, err := r.ask(ctx, field, block)
		if err != nil {
			return err
		}
		vv, err := validation.Validate(field, raw, r.mode)
		if err == nil {
			state.Set(vv.Key, vv.Value)
			return nil
		}
		if r.maxAttempts > 0 && attempt >= r.maxAttempts {
			return fmt.Errorf("%w: %w", ErrTooManyAttempts, err)
		}
		msg := err.Error()
		if ve := validation.Errors(err); len(ve) > 0 {
			msg = ve[0].Message
		}
		if err := r.info(ctx, r.theme.ErrorPrefix, block.Label+": "+msg); err != nil {
			return err
		}
	}
}

// ask returns the raw answer for one field, before validation.
func (r *Renderer) ask(ctx context.Context, field schema.Field, block render.Block) (any, error) {
	switch f := field.(type) {
	case schema.Toggle:
		return r.driver.Confirm(ctx, ConfirmConfig{
			Message: block.Label,
			Default: block.Checked,
			Help:    f.Description,
		})
	case schema.Select:
		labels := make([]string, len(f.Options))
		def := -1
		for i, opt := range block.Options {
			labels[i] = opt.Label
			if opt.Selected {
				def = i
			}
		}
		idx, err := r.driver.Select(ctx, SelectConfig{
			Message:      block.Label,
			Options:      labels,
			DefaultIndex: def,
			Help:         f.Description,
		})
		if err != nil {
			return nil, err
		}
		if idx < 0 || idx >= len(f.Options) {
			return nil, fmt.Errorf("tui: %s: selection %d out of range", f.MessageKey, idx)
		}
		return f.Options[idx].Value, nil
	case schema.Slider:
		return r.driver.Input(ctx, InputConfig{
			Message: fmt.Sprintf("%s [%s..%s]", block.Label, block.Min, block.Max),
			Default: block.Value,
			Help:    sliderHelp(f, block),
		})
	default:
		return nil, fmt.Errorf("tui: unsupported field %T", field)
	}
}

func sliderHelp(f schema.Slider, block render.Block) string {
	help := fmt.Sprintf("between %s and %s", block.Min, block.Max)
	if f.Step > 0 {
		help += ", step " + block.Step
	}
	if f.Description != "" {
		help = f.Description + " (" + help + ")"
	}
	return help
}

func (r *Renderer) info(ctx context.Context, prefix, msg string) error {
	msg = strings.TrimSpace(msg)
	if msg == "" {
		return nil
	}
	return r.driver.Info(ctx, prefix+msg)
}

func (r *Renderer) serialize(values map[string]any) ([]byte, error) {
	switch r.outputFormat {
	case OutputFormatFormURLEncoded:
		return []byte(flattenForm(values)), nil
	case OutputFormatPrettyText:
		return []byte(prettyPrint(values)), nil
	default:
		return json.Marshal(values)
	}
}

func flattenForm(values map[string]any) string {
	form := url.Values{}
	for key, value := range values {
		form.Set(key, render.FormatValue(value))
	}
	return form.Encode()
}

func prettyPrint(values map[string]any) string {
	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	slices.Sort(keys)

	var b strings.Builder
	for _, key := range keys {
		fmt.Fprintf(&b, "%s = %s\n", key, render.FormatValue(values[key]))
	}
	return b.String()
}

var _ render.Renderer = (*Renderer)(nil)
