package schema

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"path/filepath"
	"strconv"
	"strings"

	json "github.com/goccy/go-json"
	"gopkg.in/yaml.v3"
)

// Format identifies a descriptor encoding.
type Format string

const (
	FormatAuto Format = ""
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	// FormatJS accepts a CommonJS/ES module whose export is the descriptor
	// array, e.g. `module.exports = [ ... ];`.
	FormatJS Format = "js"
)

// DetectFormat picks a format from the file extension, falling back to the
// content when the extension is unknown.
func DetectFormat(name string, data []byte) Format {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".json":
		return FormatJSON
	case ".yaml", ".yml":
		return FormatYAML
	case ".js", ".mjs", ".cjs":
		return FormatJS
	}
	trimmed := bytes.TrimSpace(stripComments(data))
	switch {
	case bytes.HasPrefix(trimmed, []byte("module.exports")), bytes.HasPrefix(trimmed, []byte("export default")):
		return FormatJS
	case bytes.HasPrefix(trimmed, []byte("[")):
		return FormatJSON
	default:
		return FormatYAML
	}
}

// descriptor mirrors one entry of the declarative file format.
type descriptor struct {
	Type         string             `json:"type" yaml:"type"`
	MessageKey   string             `json:"messageKey,omitempty" yaml:"messageKey,omitempty"`
	Label        string             `json:"label,omitempty" yaml:"label,omitempty"`
	Description  string             `json:"description,omitempty" yaml:"description,omitempty"`
	DefaultValue any                `json:"defaultValue,omitempty" yaml:"defaultValue,omitempty"`
	Size         int                `json:"size,omitempty" yaml:"size,omitempty"`
	Min          *float64           `json:"min,omitempty" yaml:"min,omitempty"`
	Max          *float64           `json:"max,omitempty" yaml:"max,omitempty"`
	Step         *float64           `json:"step,omitempty" yaml:"step,omitempty"`
	Options      []optionDescriptor `json:"options,omitempty" yaml:"options,omitempty"`
	Items        []descriptor       `json:"items,omitempty" yaml:"items,omitempty"`
}

type optionDescriptor struct {
	Label string `json:"label" yaml:"label"`
	Value any    `json:"value" yaml:"value"`
}

// Parse decodes a descriptor document and builds a Schema from it. Decoding
// problems and authoring errors are both reported as *SchemaError values.
func Parse(data []byte, format Format) (*Schema, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, newError(CodeMalformed, "", "", "document is empty")
	}
	if format == FormatAuto {
		format = DetectFormat("", data)
	}

	var descs []descriptor
	switch format {
	case FormatJSON:
		if err := decodeJSON(data, &descs); err != nil {
			return nil, newError(CodeMalformed, "", "", "decode json: %v", err)
		}
	case FormatYAML:
		if err := yaml.Unmarshal(data, &descs); err != nil {
			return nil, newError(CodeMalformed, "", "", "decode yaml: %v", err)
		}
	case FormatJS:
		body, err := moduleBody(data)
		if err != nil {
			return nil, err
		}
		// Module bodies are usually strict JSON; YAML flow syntax covers the
		// unquoted keys and single-quoted strings JavaScript also allows.
		if err := decodeJSON(body, &descs); err != nil {
			descs = nil
			if yerr := yaml.Unmarshal(body, &descs); yerr != nil {
				return nil, newError(CodeMalformed, "", "", "decode module: json: %v; yaml: %v", err, yerr)
			}
		}
	default:
		return nil, newError(CodeMalformed, "", "", "unsupported format %q", format)
	}

	d := &decoder{}
	nodes := d.nodes(descs, "")
	s, err := New(nodes...)
	if len(d.errs) > 0 {
		return nil, errors.Join(append(d.errs, err)...)
	}
	return s, err
}

// decodeJSON keeps numbers as json.Number so defaults and option values are
// parsed once, by number.
func decodeJSON(data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	return dec.Decode(v)
}

func moduleBody(data []byte) ([]byte, error) {
	trimmed := bytes.TrimSpace(stripComments(data))
	start := bytes.IndexByte(trimmed, '[')
	end := bytes.LastIndexByte(trimmed, ']')
	if start < 0 || end < start {
		return nil, newError(CodeMalformed, "", "", "module does not export a descriptor array")
	}
	return trimmed[start : end+1], nil
}

// stripComments blanks out // and /* */ comments outside string literals.
// Newlines are kept so decoder line numbers still match the source.
func stripComments(data []byte) []byte {
	out := make([]byte, 0, len(data))
	var quote byte
	for i := 0; i < len(data); i++ {
		c := data[i]
		switch {
		case quote != 0:
			out = append(out, c)
			if c == '\\' && i+1 < len(data) {
				i++
				out = append(out, data[i])
			} else if c == quote {
				quote = 0
			}
		case c == '"' || c == '\'' || c == '`':
			quote = c
			out = append(out, c)
		case c == '/' && i+1 < len(data) && data[i+1] == '/':
			for i < len(data) && data[i] != '\n' {
				i++
			}
			if i < len(data) {
				out = append(out, '\n')
			}
		case c == '/' && i+1 < len(data) && data[i+1] == '*':
			i += 2
			for i < len(data) && !(data[i] == '*' && i+1 < len(data) && data[i+1] == '/') {
				if data[i] == '\n' {
					out = append(out, '\n')
				}
				i++
			}
			i++
		default:
			out = append(out, c)
		}
	}
	return out
}

type decoder struct {
	errs []error
}

func (d *decoder) fail(err *SchemaError) {
	d.errs = append(d.errs, err)
}

func (d *decoder) nodes(descs []descriptor, prefix string) []Node {
	out := make([]Node, 0, len(descs))
	for idx, desc := range descs {
		path := fmt.Sprintf("%s[%d]", prefix, idx)
		if n, ok := d.node(desc, path); ok {
			out = append(out, n)
		}
	}
	return out
}

func (d *decoder) node(desc descriptor, path string) (Node, bool) {
	switch NodeType(strings.ToLower(strings.TrimSpace(desc.Type))) {
	case TypeHeading:
		return Heading{DefaultValue: d.text(desc, path), Size: desc.Size}, true
	case TypeText:
		return Text{DefaultValue: d.text(desc, path)}, true
	case TypeSubmit:
		return Submit{DefaultValue: d.text(desc, path)}, true
	case TypeSection:
		return Section{Items: d.nodes(desc.Items, path+".items")}, true
	case TypeSlider:
		s := Slider{
			MessageKey:  desc.MessageKey,
			Label:       desc.Label,
			Description: desc.Description,
		}
		if desc.Min == nil || desc.Max == nil {
			d.fail(newError(CodeInvalidBounds, path, desc.MessageKey, "slider requires min and max"))
			return nil, false
		}
		s.Min, s.Max = *desc.Min, *desc.Max
		if desc.Step != nil {
			s.Step = *desc.Step
		}
		v, ok := number(desc.DefaultValue)
		if !ok {
			d.fail(newError(CodeInvalidDefault, path, desc.MessageKey, "slider defaultValue must be a number, got %v", desc.DefaultValue))
			return nil, false
		}
		s.DefaultValue = v
		return s, true
	case TypeToggle:
		t := Toggle{
			MessageKey:  desc.MessageKey,
			Label:       desc.Label,
			Description: desc.Description,
		}
		switch v := desc.DefaultValue.(type) {
		case nil:
		case bool:
			t.DefaultValue = v
		default:
			d.fail(newError(CodeInvalidDefault, path, desc.MessageKey, "toggle defaultValue must be a boolean, got %v", v))
			return nil, false
		}
		return t, true
	case TypeSelect:
		s := Select{
			MessageKey:  desc.MessageKey,
			Label:       desc.Label,
			Description: desc.Description,
		}
		for idx, opt := range desc.Options {
			v, ok := number(opt.Value)
			if !ok {
				d.fail(newError(CodeInvalidOption, fmt.Sprintf("%s.options[%d]", path, idx), desc.MessageKey, "option value must be numeric, got %v", opt.Value))
				continue
			}
			s.Options = append(s.Options, Option{Label: opt.Label, Value: v})
		}
		switch {
		case desc.DefaultValue != nil:
			v, ok := number(desc.DefaultValue)
			if !ok {
				d.fail(newError(CodeInvalidDefault, path, desc.MessageKey, "select defaultValue must be numeric, got %v", desc.DefaultValue))
				return nil, false
			}
			s.DefaultValue = v
		case len(s.Options) > 0:
			s.DefaultValue = s.Options[0].Value
		}
		return s, true
	default:
		d.fail(newError(CodeUnknownType, path, desc.MessageKey, "unknown node type %q", desc.Type))
		return nil, false
	}
}

func (d *decoder) text(desc descriptor, path string) string {
	switch v := desc.DefaultValue.(type) {
	case nil:
		return ""
	case string:
		return v
	default:
		d.fail(newError(CodeInvalidDefault, path, "", "%s defaultValue must be text, got %v", desc.Type, v))
		return ""
	}
}

func number(raw any) (float64, bool) {
	var v float64
	switch n := raw.(type) {
	case float64:
		v = n
	case float32:
		v = float64(n)
	case int:
		v = float64(n)
	case int64:
		v = float64(n)
	case uint64:
		v = float64(n)
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0, false
		}
		v = parsed
	case interface{ Float64() (float64, error) }:
		parsed, err := n.Float64()
		if err != nil {
			return 0, false
		}
		v = parsed
	default:
		return 0, false
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// Marshal encodes a Schema back into the JSON descriptor format.
func Marshal(s *Schema) ([]byte, error) {
	if s == nil {
		return nil, errors.New("schema: marshal nil schema")
	}
	return json.MarshalIndent(encodeNodes(s.nodes), "", "  ")
}

func encodeNodes(nodes []Node) []descriptor {
	out := make([]descriptor, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, encodeNode(n))
	}
	return out
}

func encodeNode(n Node) descriptor {
	desc := descriptor{Type: string(n.Type())}
	switch v := n.(type) {
	case Heading:
		desc.DefaultValue = v.DefaultValue
		desc.Size = v.Size
	case Text:
		desc.DefaultValue = v.DefaultValue
	case Submit:
		desc.DefaultValue = v.DefaultValue
	case Section:
		desc.Items = encodeNodes(v.Items)
	case Slider:
		desc.MessageKey, desc.Label, desc.Description = v.MessageKey, v.Label, v.Description
		desc.DefaultValue = v.Default()
		desc.Min, desc.Max = ptr(v.Min), ptr(v.Max)
		if v.Step > 0 {
			desc.Step = ptr(v.Step)
		}
	case Toggle:
		desc.MessageKey, desc.Label, desc.Description = v.MessageKey, v.Label, v.Description
		desc.DefaultValue = v.DefaultValue
	case Select:
		desc.MessageKey, desc.Label, desc.Description = v.MessageKey, v.Label, v.Description
		desc.DefaultValue = v.Default()
		for _, opt := range v.Options {
			desc.Options = append(desc.Options, optionDescriptor{Label: opt.Label, Value: v.Canonical(opt.Value)})
		}
	}
	return desc
}

func ptr(v float64) *float64 { return &v }
