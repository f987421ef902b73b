package store

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/brianly1003/lobo/internal/domain/ports"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

// File keeps values in memory and writes them as a flat YAML map on Flush.
type File struct {
	path string

	mu     sync.Mutex
	values map[string]string
	dirty  bool

	// loadErr is the parse error of the file found at open time. Keys
	// missing from values report it until they are written.
	loadErr error
}

// OpenFile loads the YAML map at path. A missing file is an empty store. A
// file that does not parse also opens as an empty store; its content is
// replaced on the next Flush.
func OpenFile(path string) (*File, error) {
	f := &File{
		path:   path,
		values: make(map[string]string),
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return f, nil
		}
		return nil, fmt.Errorf("failed to read store file: %w", err)
	}

	if err := yaml.Unmarshal(data, &f.values); err != nil {
		log.Warn().Err(err).Str("path", path).Msg("store file is malformed, starting empty")
		f.values = make(map[string]string)
		f.loadErr = fmt.Errorf("failed to parse store file %s: %w", path, err)
		return f, nil
	}
	if f.values == nil {
		f.values = make(map[string]string)
	}

	return f, nil
}

// Read returns the value for key.
func (f *File) Read(key string) (string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.values[key]
	if !ok && f.loadErr != nil {
		return "", false, f.loadErr
	}
	return v, ok, nil
}

// Write sets the value for key. It is not durable until Flush.
func (f *File) Write(key, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.values[key] = value
	f.dirty = true
	return nil
}

// Flush writes the map to disk through a temp file and rename.
func (f *File) Flush() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if !f.dirty {
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(f.path), 0755); err != nil {
		return fmt.Errorf("failed to create store directory: %w", err)
	}

	data, err := yaml.Marshal(f.values)
	if err != nil {
		return fmt.Errorf("failed to marshal store: %w", err)
	}

	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write store file: %w", err)
	}
	if err := os.Rename(tmp, f.path); err != nil {
		return fmt.Errorf("failed to replace store file: %w", err)
	}

	f.dirty = false
	return nil
}

// Close flushes pending writes.
func (f *File) Close() error {
	return f.Flush()
}

var _ ports.Store = (*File)(nil)
