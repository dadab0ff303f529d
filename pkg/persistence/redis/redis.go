// Package redis persists settings in a Redis hash per application.
package redis

import (
	"context"
	"fmt"

	json "github.com/goccy/go-json"
	"github.com/joeshaw/envdecode"
	"github.com/redis/go-redis/v9"

	"github.com/goliatone/go-devicecfg/pkg/persistence"
)

const (
	defaultAddr   = "localhost:6379"
	defaultPrefix = "devicecfg:settings:"
)

// Config for the Redis store. Defaults can be loaded via envdecode.
type Config struct {
	// Client is used as is when set; Addr is ignored.
	Client *redis.Client
	// Addr like "localhost:6379". ENV: DEVICECFG_REDIS_ADDR
	Addr string `env:"DEVICECFG_REDIS_ADDR,default=localhost:6379"`
	// KeyPrefix for the settings hash. ENV: DEVICECFG_REDIS_PREFIX
	KeyPrefix string `env:"DEVICECFG_REDIS_PREFIX,default=devicecfg:settings:"`
	// AppID scopes the hash. ENV: DEVICECFG_APP_ID
	AppID string `env:"DEVICECFG_APP_ID,default=default"`
}

// Store implements persistence.Store with HGETALL / HSET.
type Store struct {
	client *redis.Client
	key    string
	owned  bool
}

// New builds a store from cfg.
func New(cfg Config) (*Store, error) {
	if cfg.AppID == "" {
		return nil, fmt.Errorf("redis: app id is required")
	}
	prefix := cfg.KeyPrefix
	if prefix == "" {
		prefix = defaultPrefix
	}

	client, owned := cfg.Client, false
	if client == nil {
		addr := cfg.Addr
		if addr == "" {
			addr = defaultAddr
		}
		client, owned = redis.NewClient(&redis.Options{Addr: addr}), true
	}
	return &Store{client: client, key: prefix + cfg.AppID, owned: owned}, nil
}

// NewFromEnv builds a store using envdecode to populate Config.
func NewFromEnv() (*Store, error) {
	var cfg Config
	if err := envdecode.Decode(&cfg); err != nil && err != envdecode.ErrNoTargetFieldsAreSet {
		return nil, fmt.Errorf("redis: decoding env: %w", err)
	}
	return New(cfg)
}

// Key reports the hash holding the settings.
func (s *Store) Key() string {
	return s.key
}

func (s *Store) Load(ctx context.Context) (map[string]any, error) {
	fields, err := s.client.HGetAll(ctx, s.key).Result()
	if err != nil {
		return nil, fmt.Errorf("redis: load %s: %w", s.key, err)
	}
	values := make(map[string]any, len(fields))
	for key, raw := range fields {
		var v any
		if err := json.Unmarshal([]byte(raw), &v); err != nil {
			continue
		}
		values[key] = v
	}
	return values, nil
}

// Save replaces the hash atomically.
func (s *Store) Save(ctx context.Context, values map[string]any) error {
	fields := make(map[string]any, len(values))
	for key, v := range values {
		raw, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("redis: encoding %s: %w", key, err)
		}
		fields[key] = string(raw)
	}

	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, s.key)
		if len(fields) > 0 {
			pipe.HSet(ctx, s.key, fields)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis: save %s: %w", s.key, err)
	}
	return nil
}

// Close closes the client when the store created it.
func (s *Store) Close() error {
	if !s.owned {
		return nil
	}
	return s.client.Close()
}

var _ persistence.Store = (*Store)(nil)
