// Package redis publishes payloads on a Redis pub/sub channel, for devices
// bridged through a gateway that subscribes to it.
package redis

import (
	"context"
	"fmt"

	"github.com/joeshaw/envdecode"
	"github.com/redis/go-redis/v9"

	"github.com/goliatone/go-devicecfg/pkg/payload"
	"github.com/goliatone/go-devicecfg/pkg/transport"
)

const defaultChannel = "devicecfg:payloads"

// Config for the publisher. Defaults can be loaded via envdecode.
type Config struct {
	// Client is used as is when set; Addr is ignored.
	Client *redis.Client
	// Addr like "localhost:6379". ENV: DEVICECFG_REDIS_ADDR
	Addr string `env:"DEVICECFG_REDIS_ADDR,default=localhost:6379"`
	// Channel receiving payload JSON. ENV: DEVICECFG_REDIS_CHANNEL
	Channel string `env:"DEVICECFG_REDIS_CHANNEL,default=devicecfg:payloads"`
	// RequireSubscriber fails a send nobody received.
	RequireSubscriber bool `env:"DEVICECFG_REDIS_REQUIRE_SUBSCRIBER,default=false"`
}

// Publisher implements transport.Transport with PUBLISH.
type Publisher struct {
	client            *redis.Client
	channel           string
	requireSubscriber bool
	owned             bool
}

// New builds a publisher from cfg.
func New(cfg Config) *Publisher {
	channel := cfg.Channel
	if channel == "" {
		channel = defaultChannel
	}
	client, owned := cfg.Client, false
	if client == nil {
		addr := cfg.Addr
		if addr == "" {
			addr = "localhost:6379"
		}
		client, owned = redis.NewClient(&redis.Options{Addr: addr}), true
	}
	return &Publisher{client: client, channel: channel, requireSubscriber: cfg.RequireSubscriber, owned: owned}
}

// NewFromEnv builds a publisher using envdecode to populate Config.
func NewFromEnv() (*Publisher, error) {
	var cfg Config
	if err := envdecode.Decode(&cfg); err != nil && err != envdecode.ErrNoTargetFieldsAreSet {
		return nil, fmt.Errorf("redis: decoding env: %w", err)
	}
	return New(cfg), nil
}

// Channel reports the pub/sub channel.
func (p *Publisher) Channel() string {
	return p.channel
}

func (p *Publisher) Send(ctx context.Context, pl payload.Payload) error {
	data, err := pl.MarshalJSON()
	if err != nil {
		return fmt.Errorf("redis: encode: %w", err)
	}
	receivers, err := p.client.Publish(ctx, p.channel, data).Result()
	if err != nil {
		return fmt.Errorf("%w: publish %s: %w", transport.ErrUnavailable, p.channel, err)
	}
	if p.requireSubscriber && receivers == 0 {
		return fmt.Errorf("%w: no subscriber on %s", transport.ErrUnavailable, p.channel)
	}
	return nil
}

// Close closes the client when the publisher created it.
func (p *Publisher) Close() error {
	if !p.owned {
		return nil
	}
	return p.client.Close()
}

var _ transport.Transport = (*Publisher)(nil)
