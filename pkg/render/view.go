package render

import (
	"fmt"
	"strconv"

	"github.com/goliatone/go-devicecfg/pkg/schema"
)

// BlockKind identifies one line of a flattened form.
type BlockKind string

const (
	BlockHeading      BlockKind = "heading"
	BlockText         BlockKind = "text"
	BlockSectionOpen  BlockKind = "section_open"
	BlockSectionClose BlockKind = "section_close"
	BlockSlider       BlockKind = "slider"
	BlockToggle       BlockKind = "toggle"
	BlockSelect       BlockKind = "select"
	BlockSubmit       BlockKind = "submit"
)

// OptionView is one choice of a select block.
type OptionView struct {
	Label    string `json:"label"`
	Value    string `json:"value"`
	Selected bool   `json:"selected"`
}

// Block is a renderer-neutral view of a schema node with its current value.
// Templates iterate blocks instead of recursing into sections; sections
// appear as an open block, their children, then a close block.
type Block struct {
	Kind        BlockKind `json:"kind"`
	Depth       int       `json:"depth"`
	ID          string    `json:"id,omitempty"`
	Key         string    `json:"key,omitempty"`
	Label       string    `json:"label,omitempty"`
	Description string    `json:"description,omitempty"`
	Text        string    `json:"text,omitempty"`
	Size        int       `json:"size,omitempty"`

	// Numeric attributes are preformatted so templates never print floats.
	Value   string       `json:"value,omitempty"`
	Min     string       `json:"min,omitempty"`
	Max     string       `json:"max,omitempty"`
	Step    string       `json:"step,omitempty"`
	Checked bool         `json:"checked,omitempty"`
	Options []OptionView `json:"options,omitempty"`
	Errors  []string     `json:"errors,omitempty"`
}

// Input reports whether the block carries a user value.
func (b Block) Input() bool {
	switch b.Kind {
	case BlockSlider, BlockToggle, BlockSelect:
		return true
	}
	return false
}

// Blocks flattens s in render order, filling each input with the value from
// opts.Values (falling back to the field default) and its errors.
func Blocks(s *schema.Schema, opts RenderOptions) []Block {
	var out []Block
	var walk func(nodes []schema.Node, depth int)
	walk = func(nodes []schema.Node, depth int) {
		for _, n := range nodes {
			switch node := n.(type) {
			case schema.Heading:
				size := node.Size
				if size < 1 || size > 6 {
					size = 2
				}
				out = append(out, Block{Kind: BlockHeading, Depth: depth, Text: node.DefaultValue, Size: size})
			case schema.Text:
				out = append(out, Block{Kind: BlockText, Depth: depth, Text: node.DefaultValue})
			case schema.Section:
				out = append(out, Block{Kind: BlockSectionOpen, Depth: depth})
				walk(node.Items, depth+1)
				out = append(out, Block{Kind: BlockSectionClose, Depth: depth})
			case schema.Submit:
				out = append(out, Block{Kind: BlockSubmit, Depth: depth, Label: submitLabel(node.DefaultValue)})
			case schema.Field:
				out = append(out, fieldBlock(node, depth, opts))
			}
		}
	}
	walk(s.Nodes(), 0)
	return out
}

func fieldBlock(f schema.Field, depth int, opts RenderOptions) Block {
	value, ok := opts.Values[f.Key()]
	if !ok {
		value = f.Default()
	}
	b := Block{
		Depth:  depth,
		ID:     "field-" + f.Key(),
		Key:    f.Key(),
		Label:  f.DisplayLabel(),
		Value:  FormatValue(value),
		Errors: opts.Errors[f.Key()],
	}
	if b.Label == "" {
		b.Label = f.Key()
	}

	switch field := f.(type) {
	case schema.Slider:
		b.Kind = BlockSlider
		b.Description = field.Description
		b.Min = FormatValue(field.Min)
		b.Max = FormatValue(field.Max)
		if field.Step > 0 {
			b.Step = FormatValue(field.Step)
		} else if field.Kind() == schema.NumberInteger {
			b.Step = "1"
		} else {
			b.Step = "any"
		}
	case schema.Toggle:
		b.Kind = BlockToggle
		b.Description = field.Description
		b.Checked = truthy(value)
		b.Value = "1"
	case schema.Select:
		b.Kind = BlockSelect
		b.Description = field.Description
		for _, opt := range field.Options {
			v := FormatValue(field.Canonical(opt.Value))
			b.Options = append(b.Options, OptionView{Label: opt.Label, Value: v, Selected: v == b.Value})
		}
	}
	return b
}

func submitLabel(label string) string {
	if label == "" {
		return "Save"
	}
	return label
}

func truthy(v any) bool {
	switch t := v.(type) {
	case bool:
		return t
	case int64:
		return t != 0
	case int:
		return t != 0
	case float64:
		return t != 0
	case string:
		switch t {
		case "1", "true", "on", "yes":
			return true
		}
	}
	return false
}

// FormatValue renders a canonical or raw value for display: integers
// without a fraction, floats in their shortest form.
func FormatValue(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case int64:
		return strconv.FormatInt(t, 10)
	case int:
		return strconv.Itoa(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		if t {
			return "1"
		}
		return "0"
	default:
		return fmt.Sprint(v)
	}
}
