package schema

import (
	"fmt"
	"io/fs"
	"os"
)

// LoadFile reads and parses a descriptor file from disk. The format is taken
// from the extension (.json, .yaml/.yml, .js) or sniffed from the content.
func LoadFile(path string) (*Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("schema: read %s: %w", path, err)
	}
	s, err := Parse(data, DetectFormat(path, data))
	if err != nil {
		return nil, fmt.Errorf("schema: load %s: %w", path, err)
	}
	return s, nil
}

// LoadFS reads and parses a descriptor file from fsys.
func LoadFS(fsys fs.FS, name string) (*Schema, error) {
	if fsys == nil {
		return nil, fmt.Errorf("schema: load %s: filesystem is nil", name)
	}
	data, err := fs.ReadFile(fsys, name)
	if err != nil {
		return nil, fmt.Errorf("schema: read %s: %w", name, err)
	}
	s, err := Parse(data, DetectFormat(name, data))
	if err != nil {
		return nil, fmt.Errorf("schema: load %s: %w", name, err)
	}
	return s, nil
}
