package payload_test

import (
	"bytes"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-devicecfg/pkg/defaults"
	"github.com/goliatone/go-devicecfg/pkg/payload"
	"github.com/goliatone/go-devicecfg/pkg/testsupport"
	"github.com/goliatone/go-devicecfg/pkg/validation"
)

func TestEncode_BallsScenario(t *testing.T) {
	s := testsupport.BallsSchema(t)

	raw := defaults.Resolve(s, nil)
	if diff := cmp.Diff(map[string]any{"BALL_COUNT": int64(20), "FPS": int64(30)}, raw); diff != "" {
		t.Fatalf("resolved mismatch (-want +got):\n%s", diff)
	}

	raw["BALL_COUNT"] = 400
	values, err := validation.ValidateAll(s, raw, validation.ModeClamp)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	p, err := payload.Encode(values)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	want := payload.Payload{"BALL_COUNT": int64(255), "FPS": int64(30)}
	if diff := cmp.Diff(want, p); diff != "" {
		t.Fatalf("payload mismatch (-want +got):\n%s", diff)
	}

	data, err := p.MarshalJSON()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if got := string(data); got != `{"BALL_COUNT":255,"FPS":30}` {
		t.Fatalf("unexpected wire form %s", got)
	}
}

func TestEncode_RejectsDuplicateKeys(t *testing.T) {
	_, err := payload.Encode([]validation.ValidatedValue{
		{Key: "FPS", Value: int64(30)},
		{Key: "BALL_COUNT", Value: int64(2)},
		{Key: "FPS", Value: int64(60)},
	})

	var ee *payload.EncodingError
	if !errors.As(err, &ee) {
		t.Fatalf("expected EncodingError, got %v", err)
	}
	if ee.Code != payload.CodeDuplicateKey || ee.Key != "FPS" {
		t.Fatalf("unexpected error %+v", ee)
	}
	if !errors.Is(err, payload.ErrEncoding) {
		t.Fatalf("expected errors.Is ErrEncoding")
	}
}

func TestEncode_DistinctKeysMapToDistinctEntries(t *testing.T) {
	values := []validation.ValidatedValue{
		{Key: "A", Value: int64(1)},
		{Key: "B", Value: 0.5},
		{Key: "C", Value: int64(0)},
	}
	p, err := payload.Encode(values)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if len(p) != len(values) {
		t.Fatalf("expected %d entries, got %d", len(values), len(p))
	}
	if diff := cmp.Diff([]string{"A", "B", "C"}, p.Keys()); diff != "" {
		t.Fatalf("keys mismatch (-want +got):\n%s", diff)
	}
}

func TestPipeline_Deterministic(t *testing.T) {
	s := testsupport.PhysicsSchema(t)
	previous := map[string]any{"FRICTION": "0.7", "PALETTE": 2, "STALE": true}

	run := func() []byte {
		values, err := validation.ValidateAll(s, defaults.Resolve(s, previous), validation.ModeClamp)
		if err != nil {
			t.Fatalf("validate: %v", err)
		}
		p, err := payload.Encode(values)
		if err != nil {
			t.Fatalf("encode: %v", err)
		}
		data, err := p.MarshalJSON()
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		return data
	}

	first, second := run(), run()
	if !bytes.Equal(first, second) {
		t.Fatalf("payloads differ:\n%s\n%s", first, second)
	}
	want := `{"ACCEL_ENABLED":1,"FRICTION":0.7,"PALETTE":2,"RESTITUTION":80}`
	if string(first) != want {
		t.Fatalf("unexpected payload %s", first)
	}
}

func TestPayload_CloneIsIndependent(t *testing.T) {
	p := payload.Payload{"FPS": int64(30)}
	c := p.Clone()
	c["FPS"] = int64(60)
	if p["FPS"] != int64(30) {
		t.Fatalf("clone mutated original")
	}
}
