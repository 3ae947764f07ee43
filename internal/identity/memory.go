package identity

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
)

// MemoryStore is a process-local store, used by tests and ephemeral sessions.
type MemoryStore struct {
	mu       sync.Mutex
	identity string
	cookies  []storedCookie
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Load(context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.identity, nil
}

func (s *MemoryStore) Save(_ context.Context, identity string) error {
	identity = strings.TrimSpace(identity)
	if identity == "" {
		return errors.New("identity is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.identity = identity
	return nil
}

func (s *MemoryStore) Clear(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.identity = ""
	return nil
}

func (s *MemoryStore) Close() error { return nil }

func (s *MemoryStore) LoadCookies(context.Context) ([]*http.Cookie, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fromStored(s.cookies), nil
}

func (s *MemoryStore) SaveCookies(_ context.Context, cookies []*http.Cookie) error {
	stored := toStored(cookies)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cookies = stored
	return nil
}
