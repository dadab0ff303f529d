// Package config decodes the command line tool's environment and builds the
// store, transport and logger it describes.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/joeshaw/envdecode"

	"github.com/goliatone/go-devicecfg/pkg/persistence"
	redisstore "github.com/goliatone/go-devicecfg/pkg/persistence/redis"
	"github.com/goliatone/go-devicecfg/pkg/persistence/sqlite"
	"github.com/goliatone/go-devicecfg/pkg/transport"
	redistransport "github.com/goliatone/go-devicecfg/pkg/transport/redis"
	"github.com/goliatone/go-devicecfg/pkg/validation"
)

// Store kinds.
const (
	StoreMemory = "memory"
	StoreFile   = "file"
	StoreSQLite = "sqlite"
	StoreRedis  = "redis"
)

// Transport kinds.
const (
	TransportStdout = "stdout"
	TransportHTTP   = "http"
	TransportRedis  = "redis"
)

// ErrInvalid wraps every configuration problem reported by Validate.
var ErrInvalid = errors.New("config: invalid configuration")

// Config is decoded from DEVICECFG_* variables. Command line flags override
// individual fields after Load.
type Config struct {
	Store        string `env:"DEVICECFG_STORE,default=memory"`
	StorePath    string `env:"DEVICECFG_STORE_PATH"`
	AppID        string `env:"DEVICECFG_APP_ID,default=default"`
	RedisAddr    string `env:"DEVICECFG_REDIS_ADDR,default=localhost:6379"`
	RedisPrefix  string `env:"DEVICECFG_REDIS_PREFIX,default=devicecfg:settings:"`
	RedisChannel string `env:"DEVICECFG_REDIS_CHANNEL,default=devicecfg:payloads"`
	Transport    string `env:"DEVICECFG_TRANSPORT,default=stdout"`
	TransportURL string `env:"DEVICECFG_TRANSPORT_URL"`
	Mode         string `env:"DEVICECFG_MODE,default=clamp"`
	LogLevel     string `env:"DEVICECFG_LOG_LEVEL,default=info"`
	LogFormat    string `env:"DEVICECFG_LOG_FORMAT,default=text"`
}

// Default returns the configuration used when no variable is set.
func Default() Config {
	return Config{
		Store:        StoreMemory,
		AppID:        "default",
		RedisAddr:    "localhost:6379",
		RedisPrefix:  "devicecfg:settings:",
		RedisChannel: "devicecfg:payloads",
		Transport:    TransportStdout,
		Mode:         "clamp",
		LogLevel:     "info",
		LogFormat:    "text",
	}
}

// Load decodes the environment on top of Default.
func Load() (Config, error) {
	cfg := Default()
	if err := envdecode.Decode(&cfg); err != nil && !errors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
		return Config{}, fmt.Errorf("config: decoding env: %w", err)
	}
	return cfg, nil
}

// Validate reports every inconsistent setting at once.
func (c Config) Validate() error {
	var errs []error
	switch c.Store {
	case StoreMemory, StoreRedis:
	case StoreFile, StoreSQLite:
		if strings.TrimSpace(c.StorePath) == "" {
			errs = append(errs, fmt.Errorf("%w: store %q needs DEVICECFG_STORE_PATH", ErrInvalid, c.Store))
		}
	default:
		errs = append(errs, fmt.Errorf("%w: unknown store %q", ErrInvalid, c.Store))
	}
	switch c.Transport {
	case TransportStdout, TransportRedis:
	case TransportHTTP:
		if strings.TrimSpace(c.TransportURL) == "" {
			errs = append(errs, fmt.Errorf("%w: transport http needs DEVICECFG_TRANSPORT_URL", ErrInvalid))
		}
	default:
		errs = append(errs, fmt.Errorf("%w: unknown transport %q", ErrInvalid, c.Transport))
	}
	if _, err := validation.ParseMode(c.Mode); err != nil {
		errs = append(errs, fmt.Errorf("%w: %w", ErrInvalid, err))
	}
	if _, err := parseLevel(c.LogLevel); err != nil {
		errs = append(errs, fmt.Errorf("%w: %w", ErrInvalid, err))
	}
	switch strings.ToLower(c.LogFormat) {
	case "", "text", "json":
	default:
		errs = append(errs, fmt.Errorf("%w: unknown log format %q", ErrInvalid, c.LogFormat))
	}
	return errors.Join(errs...)
}

// ValidationMode parses Mode.
func (c Config) ValidationMode() (validation.Mode, error) {
	return validation.ParseMode(c.Mode)
}

// CloseFunc releases a resource built from the configuration.
type CloseFunc func() error

func noopClose() error { return nil }

// OpenStore builds the configured persistence store.
func (c Config) OpenStore() (persistence.Store, CloseFunc, error) {
	switch c.Store {
	case "", StoreMemory:
		return persistence.NewMemory(nil), noopClose, nil
	case StoreFile:
		return persistence.NewFile(c.StorePath), noopClose, nil
	case StoreSQLite:
		store, err := sqlite.Open(c.StorePath, c.AppID)
		if err != nil {
			return nil, nil, err
		}
		return store, store.Close, nil
	case StoreRedis:
		store, err := redisstore.New(redisstore.Config{
			Addr:      c.RedisAddr,
			KeyPrefix: c.RedisPrefix,
			AppID:     c.AppID,
		})
		if err != nil {
			return nil, nil, err
		}
		return store, store.Close, nil
	default:
		return nil, nil, fmt.Errorf("%w: unknown store %q", ErrInvalid, c.Store)
	}
}

// OpenTransport builds the configured transport. The stdout transport writes
// JSON lines to out.
func (c Config) OpenTransport(out io.Writer) (transport.Transport, CloseFunc, error) {
	switch c.Transport {
	case "", TransportStdout:
		if out == nil {
			out = os.Stdout
		}
		return transport.NewWriter(out), noopClose, nil
	case TransportHTTP:
		if strings.TrimSpace(c.TransportURL) == "" {
			return nil, nil, fmt.Errorf("%w: transport http needs DEVICECFG_TRANSPORT_URL", ErrInvalid)
		}
		return transport.NewHTTP(c.TransportURL), noopClose, nil
	case TransportRedis:
		pub := redistransport.New(redistransport.Config{
			Addr:    c.RedisAddr,
			Channel: c.RedisChannel,
		})
		return pub, pub.Close, nil
	default:
		return nil, nil, fmt.Errorf("%w: unknown transport %q", ErrInvalid, c.Transport)
	}
}

// Logger builds a slog logger writing to w at the configured level.
func (c Config) Logger(w io.Writer) (*slog.Logger, error) {
	level, err := parseLevel(c.LogLevel)
	if err != nil {
		return nil, err
	}
	if w == nil {
		w = os.Stderr
	}
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(c.LogFormat, "json") {
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	}
	return slog.New(slog.NewTextHandler(w, opts)), nil
}

func parseLevel(raw string) (slog.Level, error) {
	var level slog.Level
	if strings.TrimSpace(raw) == "" {
		return slog.LevelInfo, nil
	}
	if err := level.UnmarshalText([]byte(raw)); err != nil {
		return slog.LevelInfo, fmt.Errorf("config: log level %q: %w", raw, err)
	}
	return level, nil
}
