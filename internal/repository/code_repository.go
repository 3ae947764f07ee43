package repository

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// CodeRepository stores one-time login codes.
type CodeRepository interface {
	IssueCode(identity string) (string, error)
	// RedeemCode consumes code and returns the identity it was issued for.
	RedeemCode(code string, ttl time.Duration) (string, error)
}

type codeRepository struct {
	db *MemoryDB
}

func NewCodeRepository(db *MemoryDB) CodeRepository {
	return &codeRepository{db: db}
}

func (r *codeRepository) IssueCode(identity string) (string, error) {
	identity = strings.TrimSpace(identity)
	if identity == "" {
		return "", errors.Wrap(ErrValidation, "telegram_id is required")
	}
	code := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])

	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	r.db.codes[code] = codeRecord{identity: identity, issuedAt: r.db.now()}
	return code, nil
}

func (r *codeRepository) RedeemCode(code string, ttl time.Duration) (string, error) {
	code = strings.ToUpper(strings.TrimSpace(code))

	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	rec, ok := r.db.codes[code]
	if !ok {
		return "", errors.Wrap(ErrNotFound, "code")
	}
	delete(r.db.codes, code)
	if ttl > 0 && r.db.now().Sub(rec.issuedAt) > ttl {
		return "", errors.Wrap(ErrNotFound, "code expired")
	}
	return rec.identity, nil
}
