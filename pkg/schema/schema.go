package schema

import (
	"errors"
	"fmt"
	"iter"
	"math"
)

// Schema is the immutable, validated node tree of a settings page.
type Schema struct {
	nodes  []Node
	fields map[string]Field
	paths  map[string]string
	keys   []string
}

// New validates the supplied nodes and returns a Schema. Every authoring
// problem is reported; the returned error joins one *SchemaError per issue.
// Pointer variants (*Slider, *Section, ...) are accepted and copied.
func New(nodes ...Node) (*Schema, error) {
	b := &builder{
		fields: make(map[string]Field),
		paths:  make(map[string]string),
	}
	copied := b.nodes(nodes, "")
	if len(b.errs) > 0 {
		return nil, errors.Join(b.errs...)
	}
	return &Schema{
		nodes:  copied,
		fields: b.fields,
		paths:  b.paths,
		keys:   b.keys,
	}, nil
}

// MustNew panics when New fails. Intended for package-level schema literals.
func MustNew(nodes ...Node) *Schema {
	s, err := New(nodes...)
	if err != nil {
		panic(err)
	}
	return s
}

// Nodes returns the top-level nodes in declaration order. The slice is a copy;
// section children are shared and must be treated as read-only.
func (s *Schema) Nodes() []Node {
	if s == nil {
		return nil
	}
	return append([]Node(nil), s.nodes...)
}

// AllFields walks the tree in preorder, yielding input-bearing nodes only.
// Each call starts a fresh traversal.
func (s *Schema) AllFields() iter.Seq[Field] {
	return func(yield func(Field) bool) {
		if s == nil {
			return
		}
		walkFields(s.nodes, yield)
	}
}

func walkFields(nodes []Node, yield func(Field) bool) bool {
	for _, n := range nodes {
		switch v := n.(type) {
		case Section:
			if !walkFields(v.Items, yield) {
				return false
			}
		case Field:
			if !yield(v) {
				return false
			}
		}
	}
	return true
}

// Walk visits every node in preorder with its nesting depth. Returning false
// from fn stops the walk.
func (s *Schema) Walk(fn func(n Node, depth int) bool) {
	if s == nil || fn == nil {
		return
	}
	walkNodes(s.nodes, 0, fn)
}

func walkNodes(nodes []Node, depth int, fn func(Node, int) bool) bool {
	for _, n := range nodes {
		if !fn(n, depth) {
			return false
		}
		if sec, ok := n.(Section); ok {
			if !walkNodes(sec.Items, depth+1, fn) {
				return false
			}
		}
	}
	return true
}

// Field looks up an input by message key.
func (s *Schema) Field(key string) (Field, bool) {
	if s == nil {
		return nil, false
	}
	f, ok := s.fields[key]
	return f, ok
}

// Path returns the descriptor location of the field with the given key.
func (s *Schema) Path(key string) string {
	if s == nil {
		return ""
	}
	return s.paths[key]
}

// Keys lists message keys in traversal order.
func (s *Schema) Keys() []string {
	if s == nil {
		return nil
	}
	return append([]string(nil), s.keys...)
}

// Len reports the number of fields.
func (s *Schema) Len() int {
	if s == nil {
		return 0
	}
	return len(s.keys)
}

// Defaults maps every message key to its canonical declared default.
func (s *Schema) Defaults() map[string]any {
	out := make(map[string]any, s.Len())
	for f := range s.AllFields() {
		out[f.Key()] = f.Default()
	}
	return out
}

// SubmitLabel returns the label of the first submit node, if any.
func (s *Schema) SubmitLabel() (string, bool) {
	label, found := "", false
	s.Walk(func(n Node, _ int) bool {
		if sub, ok := n.(Submit); ok {
			label, found = sub.DefaultValue, true
			return false
		}
		return true
	})
	return label, found
}

type builder struct {
	fields map[string]Field
	paths  map[string]string
	keys   []string
	errs   []error
}

func (b *builder) fail(err *SchemaError) {
	b.errs = append(b.errs, err)
}

func (b *builder) nodes(nodes []Node, prefix string) []Node {
	out := make([]Node, 0, len(nodes))
	for idx, raw := range nodes {
		path := fmt.Sprintf("%s[%d]", prefix, idx)
		n, ok := deref(raw)
		if !ok {
			b.fail(newError(CodeUnknownType, path, "", "unsupported node %T", raw))
			continue
		}
		switch v := n.(type) {
		case Section:
			v.Items = b.nodes(v.Items, path+".items")
			n = v
		case Slider:
			b.slider(v, path)
		case Toggle:
			b.key(v, path)
		case Select:
			v.Options = append([]Option(nil), v.Options...)
			b.selectField(v, path)
			n = v
		}
		out = append(out, n)
	}
	return out
}

func deref(n Node) (Node, bool) {
	switch v := n.(type) {
	case Heading, Text, Section, Slider, Toggle, Select, Submit:
		return v, true
	case *Heading:
		return derefPtr(v)
	case *Text:
		return derefPtr(v)
	case *Section:
		return derefPtr(v)
	case *Slider:
		return derefPtr(v)
	case *Toggle:
		return derefPtr(v)
	case *Select:
		return derefPtr(v)
	case *Submit:
		return derefPtr(v)
	default:
		return nil, false
	}
}

func derefPtr[T Node](v *T) (Node, bool) {
	if v == nil {
		return nil, false
	}
	return *v, true
}

func (b *builder) key(f Field, path string) bool {
	key := f.Key()
	if key == "" {
		b.fail(newError(CodeMissingKey, path, "", "%s requires a messageKey", f.Type()))
		return false
	}
	if prev, exists := b.paths[key]; exists {
		b.fail(newError(CodeDuplicateKey, path, key, "messageKey %q already declared at %s", key, prev))
		return false
	}
	b.paths[key] = path
	b.fields[key] = f
	b.keys = append(b.keys, key)
	return true
}

func (b *builder) slider(s Slider, path string) {
	b.key(s, path)
	key := s.MessageKey
	attrs := []struct {
		name  string
		value float64
	}{{"min", s.Min}, {"max", s.Max}, {"defaultValue", s.DefaultValue}, {"step", s.Step}}
	for _, attr := range attrs {
		if math.IsNaN(attr.value) || math.IsInf(attr.value, 0) {
			b.fail(newError(CodeInvalidDefault, path, key, "%s must be a finite number", attr.name))
			return
		}
	}
	if s.Min > s.Max {
		b.fail(newError(CodeInvalidBounds, path, key, "min %v is greater than max %v", s.Min, s.Max))
		return
	}
	if s.Step < 0 {
		b.fail(newError(CodeInvalidStep, path, key, "step %v must be positive", s.Step))
	}
	if s.DefaultValue < s.Min || s.DefaultValue > s.Max {
		b.fail(newError(CodeDefaultOutOfRange, path, key, "defaultValue %v outside [%v, %v]", s.DefaultValue, s.Min, s.Max))
	}
}

func (b *builder) selectField(s Select, path string) {
	b.key(s, path)
	key := s.MessageKey
	if len(s.Options) == 0 {
		b.fail(newError(CodeEmptyOptions, path, key, "select requires at least one option"))
		return
	}
	seen := make(map[float64]struct{}, len(s.Options))
	for idx, opt := range s.Options {
		if math.IsNaN(opt.Value) || math.IsInf(opt.Value, 0) {
			b.fail(newError(CodeInvalidOption, fmt.Sprintf("%s.options[%d]", path, idx), key, "option value must be a finite number"))
			continue
		}
		if _, dup := seen[opt.Value]; dup {
			b.fail(newError(CodeDuplicateOption, fmt.Sprintf("%s.options[%d]", path, idx), key, "option value %v declared twice", opt.Value))
			continue
		}
		seen[opt.Value] = struct{}{}
	}
	if !s.Has(s.DefaultValue) {
		b.fail(newError(CodeInvalidDefault, path, key, "defaultValue %v is not one of the options", s.DefaultValue))
	}
}
