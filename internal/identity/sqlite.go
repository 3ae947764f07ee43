package identity

import (
	"context"
	"database/sql"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
	_ "modernc.org/sqlite" // SQLite driver

	"github.com/stanstork/hackmatch/internal/migration"
)

const (
	identityKey = "identity"
	cookiesKey  = "cookies"
)

// SQLiteStore keeps the identity and cookies in the client_state table of a local database.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (and migrates) the database at path.
func OpenSQLite(ctx context.Context, path string, logger zerolog.Logger) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, errors.Wrapf(err, "create state dir %s", dir)
		}
	}
	dsn := "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, errors.Wrap(err, "open sqlite")
	}
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "ping sqlite")
	}
	if err := migration.RunMigrations(db, logger); err != nil {
		db.Close()
		return nil, err
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Load(ctx context.Context) (string, error) {
	value, err := s.get(ctx, identityKey)
	if err != nil {
		return "", errors.Wrap(err, "load identity")
	}
	return strings.TrimSpace(value), nil
}

func (s *SQLiteStore) Save(ctx context.Context, identity string) error {
	identity = strings.TrimSpace(identity)
	if identity == "" {
		return errors.New("identity is required")
	}
	return errors.Wrap(s.put(ctx, identityKey, identity), "save identity")
}

func (s *SQLiteStore) Clear(ctx context.Context) error {
	return errors.Wrap(s.del(ctx, identityKey), "clear identity")
}

// LoadCookies reads the cookie row, stored as a YAML list.
func (s *SQLiteStore) LoadCookies(ctx context.Context) ([]*http.Cookie, error) {
	value, err := s.get(ctx, cookiesKey)
	if err != nil {
		return nil, errors.Wrap(err, "load cookies")
	}
	if value == "" {
		return nil, nil
	}
	var stored []storedCookie
	if err := yaml.Unmarshal([]byte(value), &stored); err != nil {
		return nil, errors.Wrap(err, "parse cookies")
	}
	return fromStored(stored), nil
}

func (s *SQLiteStore) SaveCookies(ctx context.Context, cookies []*http.Cookie) error {
	stored := toStored(cookies)
	if len(stored) == 0 {
		return errors.Wrap(s.del(ctx, cookiesKey), "clear cookies")
	}
	raw, err := yaml.Marshal(stored)
	if err != nil {
		return errors.Wrap(err, "encode cookies")
	}
	return errors.Wrap(s.put(ctx, cookiesKey, string(raw)), "save cookies")
}

func (s *SQLiteStore) get(ctx context.Context, key string) (string, error) {
	const query = `SELECT value FROM client_state WHERE key = ?;`

	var value string
	err := s.db.QueryRowContext(ctx, query, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	return value, err
}

func (s *SQLiteStore) put(ctx context.Context, key, value string) error {
	const query = `
		INSERT INTO client_state (key, value, updated_at)
		VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT (key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at;
	`
	_, err := s.db.ExecContext(ctx, query, key, value)
	return err
}

func (s *SQLiteStore) del(ctx context.Context, key string) error {
	const query = `DELETE FROM client_state WHERE key = ?;`

	_, err := s.db.ExecContext(ctx, query, key)
	return err
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
