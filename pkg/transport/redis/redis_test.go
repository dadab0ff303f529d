package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/goliatone/go-devicecfg/pkg/payload"
	"github.com/goliatone/go-devicecfg/pkg/transport"
)

func TestPublisher(t *testing.T) {
	// Skip test if Redis is not available
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:6379"})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("Redis not available: %v", err)
	}
	defer client.Close()

	pub := New(Config{Client: client, Channel: "devicecfg:test:" + t.Name()})

	sub := client.Subscribe(ctx, pub.Channel())
	defer sub.Close()
	if _, err := sub.Receive(ctx); err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	if err := pub.Send(ctx, payload.Payload{"BALL_COUNT": int64(255), "FPS": int64(30)}); err != nil {
		t.Fatalf("send: %v", err)
	}

	msg, err := sub.ReceiveMessage(ctx)
	if err != nil {
		t.Fatalf("receive: %v", err)
	}
	if msg.Payload != `{"BALL_COUNT":255,"FPS":30}` {
		t.Fatalf("unexpected message %s", msg.Payload)
	}

	lonely := New(Config{Client: client, Channel: "devicecfg:test:nobody", RequireSubscriber: true})
	if err := lonely.Send(ctx, payload.Payload{"FPS": int64(1)}); !errors.Is(err, transport.ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable without subscribers, got %v", err)
	}
}

func TestNew_Defaults(t *testing.T) {
	pub := New(Config{})
	defer pub.Close()
	if pub.Channel() != "devicecfg:payloads" {
		t.Fatalf("unexpected channel %q", pub.Channel())
	}
}
