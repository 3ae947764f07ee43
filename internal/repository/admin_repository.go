package repository

import (
	"github.com/pkg/errors"
	"golang.org/x/crypto/bcrypt"

	"github.com/stanstork/hackmatch/internal/models"
)

// AdminRepository stores operator accounts with bcrypt password hashes.
type AdminRepository interface {
	CreateAdmin(email, password string) (models.Admin, error)
	AuthenticateAdmin(email, password string) (models.Admin, error)
}

type adminRepository struct {
	db *MemoryDB
}

func NewAdminRepository(db *MemoryDB) AdminRepository {
	return &adminRepository{db: db}
}

func (r *adminRepository) CreateAdmin(email, password string) (models.Admin, error) {
	email = models.NormalizeEmail(email)
	if email == "" || password == "" {
		return models.Admin{}, errors.Wrap(ErrValidation, "email and password are required")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return models.Admin{}, err
	}

	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if _, exists := r.db.admins[email]; exists {
		return models.Admin{}, errors.Wrapf(ErrConflict, "admin %s exists", email)
	}
	r.db.nextAdminID++
	admin := models.Admin{ID: r.db.nextAdminID, Email: email}
	r.db.admins[email] = &adminRecord{admin: admin, passwordHash: string(hash)}
	return admin, nil
}

func (r *adminRepository) AuthenticateAdmin(email, password string) (models.Admin, error) {
	email = models.NormalizeEmail(email)

	r.db.mu.RLock()
	rec, ok := r.db.admins[email]
	r.db.mu.RUnlock()
	if !ok {
		return models.Admin{}, errors.New("invalid credentials")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(rec.passwordHash), []byte(password)); err != nil {
		return models.Admin{}, errors.New("invalid credentials")
	}
	return rec.admin, nil
}
