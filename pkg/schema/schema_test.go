package schema_test

import (
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-devicecfg/pkg/schema"
	"github.com/goliatone/go-devicecfg/pkg/testsupport"
)

func TestParse_ModuleFixture(t *testing.T) {
	s := testsupport.BallsSchema(t)

	if diff := cmp.Diff([]string{"BALL_COUNT", "FPS"}, s.Keys()); diff != "" {
		t.Fatalf("keys mismatch (-want +got):\n%s", diff)
	}

	nodes := s.Nodes()
	if len(nodes) != 3 {
		t.Fatalf("expected 3 top-level nodes, got %d", len(nodes))
	}
	if h, ok := nodes[0].(schema.Heading); !ok || h.DefaultValue != "App Configuration" {
		t.Fatalf("unexpected first node: %#v", nodes[0])
	}
	if label, ok := s.SubmitLabel(); !ok || label != "Save Settings" {
		t.Fatalf("submit label = %q, %v", label, ok)
	}

	f, ok := s.Field("BALL_COUNT")
	if !ok {
		t.Fatalf("BALL_COUNT not found")
	}
	slider, ok := f.(schema.Slider)
	if !ok {
		t.Fatalf("BALL_COUNT is %T, want Slider", f)
	}
	want := schema.Slider{MessageKey: "BALL_COUNT", Label: "Number of balls", DefaultValue: 20, Min: 1, Max: 255}
	if diff := cmp.Diff(want, slider); diff != "" {
		t.Fatalf("slider mismatch (-want +got):\n%s", diff)
	}
	if slider.Kind() != schema.NumberInteger {
		t.Fatalf("expected integer slider")
	}
	if got := s.Path("FPS"); got != "[1].items[2]" {
		t.Fatalf("FPS path = %q", got)
	}
}

func TestAllFields_PreorderAcrossNestedSections(t *testing.T) {
	s := testsupport.PhysicsSchema(t)

	var got []string
	for f := range s.AllFields() {
		got = append(got, f.Key())
	}
	want := []string{"FRICTION", "RESTITUTION", "ACCEL_ENABLED", "PALETTE"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("traversal mismatch (-want +got):\n%s", diff)
	}

	// Restartable: a second walk yields the same sequence.
	var again []string
	for f := range s.AllFields() {
		again = append(again, f.Key())
	}
	if diff := cmp.Diff(want, again); diff != "" {
		t.Fatalf("second traversal mismatch (-want +got):\n%s", diff)
	}
}

func TestAllFields_StopsEarly(t *testing.T) {
	s := testsupport.PhysicsSchema(t)

	count := 0
	for range s.AllFields() {
		count++
		if count == 2 {
			break
		}
	}
	if count != 2 {
		t.Fatalf("expected early stop after 2 fields, got %d", count)
	}
}

func TestDefaults_CanonicalKinds(t *testing.T) {
	s := testsupport.PhysicsSchema(t)

	want := map[string]any{
		"FRICTION":      0.9,
		"RESTITUTION":   int64(80),
		"ACCEL_ENABLED": int64(1),
		"PALETTE":       int64(1),
	}
	if diff := cmp.Diff(want, s.Defaults()); diff != "" {
		t.Fatalf("defaults mismatch (-want +got):\n%s", diff)
	}
}

func TestShippedFixtures_DefaultsWithinBounds(t *testing.T) {
	for _, name := range []string{testsupport.BallsFixture, testsupport.PhysicsFixture} {
		s := testsupport.LoadSchema(t, name)
		for f := range s.AllFields() {
			switch v := f.(type) {
			case schema.Slider:
				if v.Min > v.DefaultValue || v.DefaultValue > v.Max {
					t.Errorf("%s: %s default %v outside [%v, %v]", name, v.MessageKey, v.DefaultValue, v.Min, v.Max)
				}
			case schema.Select:
				if !v.Has(v.DefaultValue) {
					t.Errorf("%s: %s default %v is not an option", name, v.MessageKey, v.DefaultValue)
				}
			}
		}
	}
}

func TestNew_DuplicateKeyRejectedAtConstruction(t *testing.T) {
	_, err := schema.New(
		schema.Slider{MessageKey: "FPS", DefaultValue: 30, Min: 1, Max: 60},
		schema.Section{Items: []schema.Node{
			schema.Toggle{MessageKey: "FPS"},
		}},
	)
	if !errors.Is(err, schema.ErrInvalidSchema) {
		t.Fatalf("expected ErrInvalidSchema, got %v", err)
	}
	issues := schema.Issues(err)
	if len(issues) != 1 {
		t.Fatalf("expected one issue, got %v", issues)
	}
	if issues[0].Code != schema.CodeDuplicateKey || issues[0].Path != "[1].items[0]" {
		t.Fatalf("unexpected issue: %+v", issues[0])
	}
}

func TestNew_ReportsEveryAuthoringError(t *testing.T) {
	_, err := schema.New(
		schema.Slider{MessageKey: "A", DefaultValue: 0, Min: 1, Max: 10},
		schema.Slider{MessageKey: "B", DefaultValue: 5, Min: 10, Max: 1},
		schema.Slider{MessageKey: "C", DefaultValue: 5, Min: 1, Max: 10, Step: -1},
		schema.Slider{MessageKey: "D", DefaultValue: math.NaN(), Min: 1, Max: 10},
		schema.Slider{DefaultValue: 1, Min: 1, Max: 10},
		schema.Select{MessageKey: "E"},
		schema.Select{MessageKey: "F", DefaultValue: 3, Options: []schema.Option{{Value: 1}, {Value: 1}}},
	)

	var got []schema.ErrorCode
	for _, issue := range schema.Issues(err) {
		got = append(got, issue.Code)
	}
	want := []schema.ErrorCode{
		schema.CodeDefaultOutOfRange,
		schema.CodeInvalidBounds,
		schema.CodeInvalidStep,
		schema.CodeInvalidDefault,
		schema.CodeMissingKey,
		schema.CodeEmptyOptions,
		schema.CodeDuplicateOption,
		schema.CodeInvalidDefault,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("issue codes mismatch (-want +got):\n%s", diff)
	}
}

func TestNew_AcceptsPointerVariants(t *testing.T) {
	s, err := schema.New(
		&schema.Heading{DefaultValue: "Title"},
		&schema.Section{Items: []schema.Node{&schema.Slider{MessageKey: "X", DefaultValue: 1, Min: 0, Max: 2}}},
	)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if _, ok := s.Field("X"); !ok {
		t.Fatalf("expected X field")
	}
	if _, ok := s.Nodes()[1].(schema.Section); !ok {
		t.Fatalf("expected section stored by value")
	}
}

func TestParse_InvalidFixtureCollectsIssues(t *testing.T) {
	_, err := schema.Parse(testsupport.ReadFixture(t, testsupport.InvalidFixture), schema.FormatJSON)
	if err == nil {
		t.Fatalf("expected error")
	}

	type issue struct {
		Code schema.ErrorCode
		Path string
	}
	var got []issue
	for _, i := range schema.Issues(err) {
		got = append(got, issue{Code: i.Code, Path: i.Path})
	}
	want := []issue{
		{Code: schema.CodeUnknownType, Path: "[2]"},
		{Code: schema.CodeDefaultOutOfRange, Path: "[0]"},
		{Code: schema.CodeDuplicateKey, Path: "[1].items[0]"},
		{Code: schema.CodeInvalidBounds, Path: "[1].items[0]"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("issues mismatch (-want +got):\n%s", diff)
	}
}

func TestParse_Formats(t *testing.T) {
	cases := map[string]struct {
		data   string
		format schema.Format
	}{
		"json": {
			data:   `[{"type":"slider","messageKey":"K","label":"L","defaultValue":2,"min":1,"max":3}]`,
			format: schema.FormatJSON,
		},
		"yaml": {
			data:   "- type: slider\n  messageKey: K\n  label: L\n  defaultValue: 2\n  min: 1\n  max: 3\n",
			format: schema.FormatYAML,
		},
		"es module with js syntax": {
			data:   "export default [\n  {type: 'slider', messageKey: 'K', label: 'L', defaultValue: 2, min: 1, max: 3}\n];\n",
			format: schema.FormatAuto,
		},
		"module with comments": {
			data: "// page title, don't reorder\nmodule.exports = [\n  /* main\n     slider */\n" +
				"  {\"type\": \"slider\", \"messageKey\": \"K\", \"label\": \"http://L\", \"defaultValue\": 2, \"min\": 1, \"max\": 3} // count\n];\n",
			format: schema.FormatAuto,
		},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			s, err := schema.Parse([]byte(tc.data), tc.format)
			if err != nil {
				t.Fatalf("parse: %v", err)
			}
			if diff := cmp.Diff(map[string]any{"K": int64(2)}, s.Defaults()); diff != "" {
				t.Fatalf("defaults mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestParse_JSONNumbers(t *testing.T) {
	data := `[
		{"type":"slider","messageKey":"FRICTION","defaultValue":0.9,"min":0.5,"max":1,"step":0.05},
		{"type":"select","messageKey":"PALETTE","defaultValue":2,"options":[{"label":"Greys","value":0},{"label":"Pastel","value":2}]}
	]`
	s, err := schema.Parse([]byte(data), schema.FormatJSON)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	want := map[string]any{"FRICTION": 0.9, "PALETTE": int64(2)}
	if diff := cmp.Diff(want, s.Defaults()); diff != "" {
		t.Fatalf("defaults mismatch (-want +got):\n%s", diff)
	}

	_, err = schema.Parse([]byte(`[{"type":"heading","defaultValue":3}]`), schema.FormatJSON)
	if err == nil || !strings.Contains(err.Error(), "must be text, got 3") {
		t.Fatalf("expected numeric heading to be rejected, got %v", err)
	}
}

func TestParse_ModuleErrorReportsBothDecoders(t *testing.T) {
	_, err := schema.Parse([]byte("module.exports = [ {type: 'slider', min: [ } ];"), schema.FormatJS)
	if !errors.Is(err, schema.ErrInvalidSchema) {
		t.Fatalf("expected schema error, got %v", err)
	}
	for _, fragment := range []string{"json:", "yaml:"} {
		if !strings.Contains(err.Error(), fragment) {
			t.Fatalf("error %q missing %q", err, fragment)
		}
	}
}

func TestParse_Malformed(t *testing.T) {
	for _, data := range []string{"", "   ", "[{", "module.exports = {};"} {
		_, err := schema.Parse([]byte(data), schema.FormatAuto)
		if !errors.Is(err, schema.ErrInvalidSchema) {
			t.Fatalf("%q: expected schema error, got %v", data, err)
		}
	}
}

func TestMarshal_RoundTrip(t *testing.T) {
	original := testsupport.PhysicsSchema(t)

	data, err := schema.Marshal(original)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !strings.Contains(string(data), `"messageKey": "FRICTION"`) {
		t.Fatalf("expected messageKey in output:\n%s", data)
	}

	decoded, err := schema.Parse(data, schema.FormatJSON)
	if err != nil {
		t.Fatalf("parse marshalled: %v", err)
	}
	if diff := cmp.Diff(original.Nodes(), decoded.Nodes()); diff != "" {
		t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestWalk_Depth(t *testing.T) {
	s := testsupport.PhysicsSchema(t)

	depths := map[schema.NodeType][]int{}
	s.Walk(func(n schema.Node, depth int) bool {
		depths[n.Type()] = append(depths[n.Type()], depth)
		return true
	})
	if diff := cmp.Diff([]int{0, 1}, depths[schema.TypeSection]); diff != "" {
		t.Fatalf("section depths mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]int{2, 2}, append(depths[schema.TypeToggle], depths[schema.TypeSelect]...)); diff != "" {
		t.Fatalf("nested field depths mismatch (-want +got):\n%s", diff)
	}
}
