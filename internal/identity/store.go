// Package identity persists the remembered identity: the one durable entry the
// client keeps between runs. An empty value means "signed out".
//
// The stored identity is a cache of server truth. It is never proof of
// authorization on its own; the session package decides when it may be written
// or cleared.
package identity

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
)

// Store holds at most one identity, plus the cookies that authenticate it.
type Store interface {
	// Load returns the remembered identity, or "" when none is stored.
	Load(ctx context.Context) (string, error)
	Save(ctx context.Context, identity string) error
	Clear(ctx context.Context) error
	Close() error
	Credentials
}

const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
	BackendMemory = "memory"
)

// Open returns the store for backend at path.
func Open(backend, path string, logger zerolog.Logger) (Store, error) {
	switch strings.ToLower(strings.TrimSpace(backend)) {
	case "", BackendFile:
		return NewFileStore(path), nil
	case BackendSQLite:
		return OpenSQLite(context.Background(), path, logger)
	case BackendMemory:
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown identity backend %q", backend)
	}
}
