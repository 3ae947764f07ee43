package repository

import (
	"sort"
	"strings"

	"github.com/pkg/errors"

	"github.com/stanstork/hackmatch/internal/models"
)

type ProfileRepository interface {
	GetProfile(identity string) (models.Profile, error)
	ListProfiles() ([]models.Profile, error)
	UpsertProfile(profile models.Profile) (models.Profile, error)
	// PatchProfile applies non-nil fields, creating the profile when missing.
	PatchProfile(identity string, patch models.ProfilePatch) (models.Profile, error)
}

type profileRepository struct {
	db *MemoryDB
}

func NewProfileRepository(db *MemoryDB) ProfileRepository {
	return &profileRepository{db: db}
}

func (r *profileRepository) GetProfile(identity string) (models.Profile, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	p, ok := r.db.profile(identity)
	if !ok {
		return models.Profile{}, errors.Wrapf(ErrNotFound, "profile %s", identity)
	}
	return p, nil
}

func (r *profileRepository) ListProfiles() ([]models.Profile, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	ids := make([]string, 0, len(r.db.profiles))
	for id := range r.db.profiles {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	out := make([]models.Profile, 0, len(ids))
	for _, id := range ids {
		p, _ := r.db.profile(id)
		out = append(out, p)
	}
	return out, nil
}

func (r *profileRepository) UpsertProfile(profile models.Profile) (models.Profile, error) {
	profile.TelegramID = strings.TrimSpace(profile.TelegramID)
	if profile.TelegramID == "" {
		return models.Profile{}, errors.Wrap(ErrValidation, "telegram_id is required")
	}
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	profile.Team = nil
	r.db.profiles[profile.TelegramID] = profile
	p, _ := r.db.profile(profile.TelegramID)
	return p, nil
}

func (r *profileRepository) PatchProfile(identity string, patch models.ProfilePatch) (models.Profile, error) {
	patch = patch.Normalize()

	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	p, ok := r.db.profiles[identity]
	if !ok {
		p = models.Profile{TelegramID: identity}
	}
	if patch.Username != nil {
		p.Username = *patch.Username
	}
	if patch.Role != nil {
		p.Role = *patch.Role
	}
	if patch.Description != nil {
		p.Description = *patch.Description
	}
	if patch.Tags != nil {
		p.Tags = patch.Tags
	}
	r.db.profiles[identity] = p

	out, _ := r.db.profile(identity)
	return out, nil
}
