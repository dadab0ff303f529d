// Package persistence defines the bridge between a settings session and the
// host's key/value storage. Stores hold the last accepted values per message
// key; callers must treat loaded maps as untrusted and run them through the
// default resolver, which drops unknown keys and resets invalid values.
package persistence

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"sync"

	json "github.com/goccy/go-json"
)

// ErrClosed is returned by stores used after Close.
var ErrClosed = errors.New("persistence: store closed")

// Store loads and saves the last accepted values. Load may return a partial
// or empty map; a missing backing record is not an error.
type Store interface {
	Load(ctx context.Context) (map[string]any, error)
	Save(ctx context.Context, values map[string]any) error
}

// Memory keeps values in process. The zero value is ready to use.
type Memory struct {
	mu     sync.RWMutex
	values map[string]any
}

// NewMemory returns a store seeded with a copy of initial.
func NewMemory(initial map[string]any) *Memory {
	return &Memory{values: maps.Clone(initial)}
}

func (m *Memory) Load(context.Context) (map[string]any, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]any, len(m.values))
	maps.Copy(out, m.values)
	return out, nil
}

func (m *Memory) Save(_ context.Context, values map[string]any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values = maps.Clone(values)
	return nil
}

// File stores values as a JSON object on disk. Saves write a temporary file
// next to the target and rename it into place.
type File struct {
	path string
	mu   sync.Mutex
}

// NewFile returns a store backed by path. The directory must exist.
func NewFile(path string) *File {
	return &File{path: path}
}

// Path reports the backing file.
func (f *File) Path() string {
	return f.path
}

func (f *File) Load(ctx context.Context) (map[string]any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return map[string]any{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("persistence: read %s: %w", f.path, err)
	}
	values := map[string]any{}
	if len(data) == 0 {
		return values, nil
	}
	if err := json.Unmarshal(data, &values); err != nil {
		return nil, fmt.Errorf("persistence: decode %s: %w", f.path, err)
	}
	return values, nil
}

func (f *File) Save(ctx context.Context, values map[string]any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.MarshalIndent(values, "", "  ")
	if err != nil {
		return fmt.Errorf("persistence: encode: %w", err)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	tmp, err := os.CreateTemp(filepath.Dir(f.path), "."+filepath.Base(f.path)+".*")
	if err != nil {
		return fmt.Errorf("persistence: create temp: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(append(data, '\n')); err != nil {
		tmp.Close()
		return fmt.Errorf("persistence: write %s: %w", tmp.Name(), err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("persistence: close %s: %w", tmp.Name(), err)
	}
	if err := os.Rename(tmp.Name(), f.path); err != nil {
		return fmt.Errorf("persistence: replace %s: %w", f.path, err)
	}
	return nil
}

var (
	_ Store = (*Memory)(nil)
	_ Store = (*File)(nil)
)
