package contract_test

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-devicecfg/pkg/contract"
	"github.com/goliatone/go-devicecfg/pkg/defaults"
	"github.com/goliatone/go-devicecfg/pkg/payload"
	"github.com/goliatone/go-devicecfg/pkg/testsupport"
)

func TestBuild_Properties(t *testing.T) {
	c := contract.Build(testsupport.PhysicsSchema(t))
	s := c.Schema()

	if diff := cmp.Diff([]string{"FRICTION", "RESTITUTION", "ACCEL_ENABLED", "PALETTE"}, s.Required); diff != "" {
		t.Fatalf("required mismatch (-want +got):\n%s", diff)
	}

	restitution := s.Properties["RESTITUTION"].Value
	if !restitution.Type.Is("integer") {
		t.Fatalf("expected integer RESTITUTION, got %v", restitution.Type)
	}
	if restitution.Min == nil || *restitution.Min != 0 || restitution.Max == nil || *restitution.Max != 100 {
		t.Fatalf("unexpected bounds %v..%v", restitution.Min, restitution.Max)
	}
	if friction := s.Properties["FRICTION"].Value; !friction.Type.Is("number") {
		t.Fatalf("expected number FRICTION, got %v", friction.Type)
	}
	if diff := cmp.Diff([]any{0.0, 1.0, 2.0}, s.Properties["PALETTE"].Value.Enum); diff != "" {
		t.Fatalf("enum mismatch (-want +got):\n%s", diff)
	}
}

func TestCheck_AcceptsResolvedPayload(t *testing.T) {
	s := testsupport.PhysicsSchema(t)
	c := contract.Build(s)

	p := payload.Payload(defaults.Resolve(s, nil))
	if err := c.Check(p); err != nil {
		t.Fatalf("check: %v", err)
	}
}

func TestCheck_RejectsViolations(t *testing.T) {
	c := contract.Build(testsupport.BallsSchema(t))

	cases := map[string]payload.Payload{
		"out of range": {"BALL_COUNT": int64(400), "FPS": int64(30)},
		"missing key":  {"BALL_COUNT": int64(20)},
		"extra key":    {"BALL_COUNT": int64(20), "FPS": int64(30), "SPEED": int64(1)},
		"fraction":     {"BALL_COUNT": 2.5, "FPS": int64(30)},
	}
	for name, p := range cases {
		t.Run(name, func(t *testing.T) {
			err := c.Check(p)
			if !errors.Is(err, contract.ErrViolation) {
				t.Fatalf("expected ErrViolation, got %v", err)
			}
		})
	}
}

func TestDocument_ValidAndPublished(t *testing.T) {
	c := contract.Build(testsupport.BallsSchema(t), contract.WithInfo("Balls", "2.1.0"))

	if err := c.Validate(testsupport.Context()); err != nil {
		t.Fatalf("validate: %v", err)
	}

	data, err := json.Marshal(c)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var doc struct {
		Info struct {
			Title   string `json:"title"`
			Version string `json:"version"`
		} `json:"info"`
		Components struct {
			Schemas map[string]struct {
				Required []string `json:"required"`
			} `json:"schemas"`
		} `json:"components"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if doc.Info.Title != "Balls" || doc.Info.Version != "2.1.0" {
		t.Fatalf("unexpected info %+v", doc.Info)
	}
	got := doc.Components.Schemas[contract.SchemaName].Required
	if diff := cmp.Diff([]string{"BALL_COUNT", "FPS"}, got); diff != "" {
		t.Fatalf("required mismatch (-want +got):\n%s", diff)
	}
}
