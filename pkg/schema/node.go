package schema

import "math"

// NodeType is the discriminator used by the descriptor format.
type NodeType string

const (
	TypeHeading NodeType = "heading"
	TypeText    NodeType = "text"
	TypeSection NodeType = "section"
	TypeSlider  NodeType = "slider"
	TypeToggle  NodeType = "toggle"
	TypeSelect  NodeType = "select"
	TypeSubmit  NodeType = "submit"
)

// NumberKind describes how a numeric field is represented on the wire.
type NumberKind int

const (
	NumberInteger NumberKind = iota
	NumberFloat
)

func (k NumberKind) String() string {
	if k == NumberFloat {
		return "float"
	}
	return "integer"
}

// Node is implemented by every schema variant. The set is closed: callers can
// switch exhaustively over Heading, Text, Section, Slider, Toggle, Select and
// Submit.
type Node interface {
	Type() NodeType
	node()
}

// Field is implemented by the input-bearing variants. Their values are keyed
// by MessageKey in the payload sent to the device.
type Field interface {
	Node
	Key() string
	DisplayLabel() string
	// Default returns the declared default in canonical form: int64 for
	// integer fields, float64 otherwise.
	Default() any
}

// Heading is a static title rendered above the following nodes.
type Heading struct {
	DefaultValue string
	Size         int
}

// Text is a static paragraph.
type Text struct {
	DefaultValue string
}

// Section groups child nodes. Render order is declaration order.
type Section struct {
	Items []Node
}

// Slider is a bounded numeric input. Step is optional; zero means unset.
type Slider struct {
	MessageKey   string
	Label        string
	Description  string
	DefaultValue float64
	Min          float64
	Max          float64
	Step         float64
}

// Toggle is an on/off input encoded as 1 or 0.
type Toggle struct {
	MessageKey   string
	Label        string
	Description  string
	DefaultValue bool
}

// Option is a single choice of a Select.
type Option struct {
	Label string
	Value float64
}

// Select restricts its value to one of Options.
type Select struct {
	MessageKey   string
	Label        string
	Description  string
	DefaultValue float64
	Options      []Option
}

// Submit is the action button; DefaultValue is its label.
type Submit struct {
	DefaultValue string
}

func (Heading) Type() NodeType { return TypeHeading }
func (Text) Type() NodeType    { return TypeText }
func (Section) Type() NodeType { return TypeSection }
func (Slider) Type() NodeType  { return TypeSlider }
func (Toggle) Type() NodeType  { return TypeToggle }
func (Select) Type() NodeType  { return TypeSelect }
func (Submit) Type() NodeType  { return TypeSubmit }

func (Heading) node() {}
func (Text) node()    {}
func (Section) node() {}
func (Slider) node()  {}
func (Toggle) node()  {}
func (Select) node()  {}
func (Submit) node()  {}

func (s Slider) Key() string          { return s.MessageKey }
func (s Slider) DisplayLabel() string { return s.Label }

// Kind reports NumberInteger when the bounds, default and step are all whole
// numbers.
func (s Slider) Kind() NumberKind {
	for _, v := range []float64{s.Min, s.Max, s.DefaultValue, s.Step} {
		if !isIntegral(v) {
			return NumberFloat
		}
	}
	return NumberInteger
}

func (s Slider) Default() any {
	return s.Canonical(s.DefaultValue)
}

// Canonical converts v into the slider's wire representation.
func (s Slider) Canonical(v float64) any {
	if s.Kind() == NumberInteger {
		return int64(v)
	}
	return v
}

func (t Toggle) Key() string          { return t.MessageKey }
func (t Toggle) DisplayLabel() string { return t.Label }

func (t Toggle) Default() any {
	return BoolValue(t.DefaultValue)
}

func (s Select) Key() string          { return s.MessageKey }
func (s Select) DisplayLabel() string { return s.Label }

// Kind reports NumberInteger when every option value is a whole number.
func (s Select) Kind() NumberKind {
	for _, opt := range s.Options {
		if !isIntegral(opt.Value) {
			return NumberFloat
		}
	}
	return NumberInteger
}

func (s Select) Default() any {
	return s.Canonical(s.DefaultValue)
}

// Canonical converts v into the select's wire representation.
func (s Select) Canonical(v float64) any {
	if s.Kind() == NumberInteger {
		return int64(v)
	}
	return v
}

// Has reports whether v is one of the option values.
func (s Select) Has(v float64) bool {
	for _, opt := range s.Options {
		if opt.Value == v {
			return true
		}
	}
	return false
}

// BoolValue is the wire form of a toggle state.
func BoolValue(on bool) int64 {
	if on {
		return 1
	}
	return 0
}

func isIntegral(v float64) bool {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return false
	}
	return v == math.Trunc(v)
}
