// Package store provides the key-value stores that persist lobo's watch list.
package store

import (
	"fmt"

	"github.com/brianly1003/lobo/internal/config"
	"github.com/brianly1003/lobo/internal/domain/ports"
)

// Open returns the store selected by cfg.Driver.
func Open(cfg config.StoreConfig) (ports.Store, error) {
	switch cfg.Driver {
	case "sqlite":
		return OpenSQLite(cfg.Path)
	case "file":
		return OpenFile(cfg.Path)
	case "memory":
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
}
