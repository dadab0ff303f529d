package redis

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/redis/go-redis/v9"
)

func TestStore(t *testing.T) {
	// Skip test if Redis is not available
	client := redis.NewClient(&redis.Options{
		Addr: "127.0.0.1:6379",
		DB:   3,
	})

	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("Redis not available: %v", err)
	}
	defer client.FlushDB(ctx)

	s, err := New(Config{Client: client, AppID: "balls"})
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	got, err := s.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected empty hash, got %v", got)
	}

	if err := s.Save(ctx, map[string]any{"BALL_COUNT": int64(20), "STALE": int64(1)}); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := s.Save(ctx, map[string]any{"BALL_COUNT": int64(255), "FPS": int64(30)}); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err = s.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	want := map[string]any{"BALL_COUNT": float64(255), "FPS": float64(30)}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("values mismatch (-want +got):\n%s", diff)
	}
}

func TestNew_Defaults(t *testing.T) {
	s, err := New(Config{AppID: "balls"})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	defer s.Close()

	if s.Key() != "devicecfg:settings:balls" {
		t.Fatalf("unexpected key %q", s.Key())
	}
	if _, err := New(Config{}); err == nil {
		t.Fatalf("expected error without app id")
	}
}

func TestNewFromEnv(t *testing.T) {
	t.Setenv("DEVICECFG_APP_ID", "physics")
	t.Setenv("DEVICECFG_REDIS_PREFIX", "test:")

	s, err := NewFromEnv()
	if err != nil {
		t.Fatalf("new from env: %v", err)
	}
	defer s.Close()

	if s.Key() != "test:physics" {
		t.Fatalf("unexpected key %q", s.Key())
	}
}
