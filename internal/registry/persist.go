package registry

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/brianly1003/lobo/internal/domain"
	"github.com/brianly1003/lobo/internal/domain/ports"
)

var errAbsent = errors.New("no persisted value")

// readPaths decodes the JSON array of paths stored under key.
func readPaths(store ports.Store, key string) ([]string, error) {
	raw, ok, err := store.Read(key)
	if err != nil {
		return nil, domain.NewPersistenceReadError(key, err)
	}
	if !ok {
		return nil, domain.NewPersistenceReadError(key, errAbsent)
	}

	var paths []string
	if err := json.Unmarshal([]byte(raw), &paths); err != nil {
		return nil, domain.NewPersistenceReadError(key, err)
	}
	return paths, nil
}

// writePaths stores paths as a JSON array under key and flushes.
func writePaths(store ports.Store, key string, paths []string) error {
	if paths == nil {
		paths = []string{}
	}
	data, err := json.Marshal(paths)
	if err != nil {
		return fmt.Errorf("encode watch list: %w", err)
	}
	if err := store.Write(key, string(data)); err != nil {
		return fmt.Errorf("write watch list: %w", err)
	}
	if err := store.Flush(); err != nil {
		return fmt.Errorf("flush watch list: %w", err)
	}
	return nil
}

// IsAbsent reports whether err means nothing was persisted yet, as opposed
// to unreadable or corrupt data.
func IsAbsent(err error) bool {
	return errors.Is(err, errAbsent)
}

// ReadPaths returns the persisted list without building a registry. Read
// failures yield an empty list together with the error.
func ReadPaths(store ports.Store, key string) ([]string, error) {
	paths, err := readPaths(store, key)
	if err != nil {
		return []string{}, err
	}
	return paths, nil
}
