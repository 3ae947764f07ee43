package identity

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

type fileState struct {
	Identity string         `yaml:"telegram_id,omitempty"`
	Cookies  []storedCookie `yaml:"cookies,omitempty"`
	SavedAt  time.Time      `yaml:"saved_at"`
}

// FileStore keeps the identity and session cookies in a small YAML file.
type FileStore struct {
	path string
	mu   sync.Mutex
	now  func() time.Time
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path, now: time.Now}
}

func (s *FileStore) Load(_ context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, err := s.read()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(state.Identity), nil
}

func (s *FileStore) Save(_ context.Context, identity string) error {
	identity = strings.TrimSpace(identity)
	if identity == "" {
		return errors.New("identity is required")
	}
	return s.update(func(state *fileState) { state.Identity = identity })
}

func (s *FileStore) Clear(_ context.Context) error {
	return s.update(func(state *fileState) { state.Identity = "" })
}

func (s *FileStore) LoadCookies(_ context.Context) ([]*http.Cookie, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, err := s.read()
	if err != nil {
		return nil, err
	}
	return fromStored(state.Cookies), nil
}

func (s *FileStore) SaveCookies(_ context.Context, cookies []*http.Cookie) error {
	stored := toStored(cookies)
	return s.update(func(state *fileState) { state.Cookies = stored })
}

func (s *FileStore) read() (fileState, error) {
	var state fileState
	raw, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return state, nil
	}
	if err != nil {
		return state, errors.Wrapf(err, "read identity file %s", s.path)
	}
	if err := yaml.Unmarshal(raw, &state); err != nil {
		return state, errors.Wrapf(err, "parse identity file %s", s.path)
	}
	return state, nil
}

// update rewrites the file with fn applied; an empty state removes the file.
func (s *FileStore) update(fn func(*fileState)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, err := s.read()
	if err != nil {
		return err
	}
	fn(&state)
	if state.Identity == "" && len(state.Cookies) == 0 {
		if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return errors.Wrapf(err, "remove identity file %s", s.path)
		}
		return nil
	}
	state.SavedAt = s.now().UTC()
	raw, err := yaml.Marshal(state)
	if err != nil {
		return errors.Wrap(err, "encode identity")
	}
	return s.writeAtomic(raw)
}

func (s *FileStore) Close() error { return nil }

// writeAtomic replaces the file via rename so a crash never leaves a torn entry.
func (s *FileStore) writeAtomic(raw []byte) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return errors.Wrapf(err, "create state dir %s", dir)
	}
	tmp, err := os.CreateTemp(dir, ".identity-*")
	if err != nil {
		return errors.Wrap(err, "create temp identity file")
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		return errors.Wrap(err, "write temp identity file")
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return errors.Wrap(err, "chmod temp identity file")
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrap(err, "close temp identity file")
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return errors.Wrapf(err, "replace identity file %s", s.path)
	}
	return nil
}
