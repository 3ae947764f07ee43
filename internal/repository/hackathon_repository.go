package repository

import (
	"sort"

	"github.com/pkg/errors"

	"github.com/stanstork/hackmatch/internal/models"
)

type HackathonRepository interface {
	CreateHackathon(h models.Hackathon, teamCapacity int) (models.Hackathon, error)
	GetHackathon(id int64) (models.Hackathon, error)
	ListHackathons() ([]models.Hackathon, error)
	UpdateHackathon(id int64, in models.HackathonInput) (models.Hackathon, error)
	// DeleteHackathon removes the hackathon with its teams and their invitations.
	DeleteHackathon(id int64) error
}

type hackathonRepository struct {
	db *MemoryDB
}

func NewHackathonRepository(db *MemoryDB) HackathonRepository {
	return &hackathonRepository{db: db}
}

func (r *hackathonRepository) CreateHackathon(h models.Hackathon, teamCapacity int) (models.Hackathon, error) {
	if h.Title == "" {
		return models.Hackathon{}, errors.Wrap(ErrValidation, "hackathon title is required")
	}
	if teamCapacity <= 0 {
		teamCapacity = DefaultTeamCapacity
	}

	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if h.ID == 0 {
		r.db.nextHackathonID++
		h.ID = r.db.nextHackathonID
	} else if h.ID > r.db.nextHackathonID {
		r.db.nextHackathonID = h.ID
	}
	if _, exists := r.db.hackathons[h.ID]; exists {
		return models.Hackathon{}, errors.Wrapf(ErrConflict, "hackathon %d exists", h.ID)
	}
	r.db.hackathons[h.ID] = &hackathonRecord{hackathon: h, teamCapacity: teamCapacity}
	return r.db.hackathonView(h.ID), nil
}

func (r *hackathonRepository) GetHackathon(id int64) (models.Hackathon, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	if _, ok := r.db.hackathons[id]; !ok {
		return models.Hackathon{}, errors.Wrapf(ErrNotFound, "hackathon %d", id)
	}
	return r.db.hackathonView(id), nil
}

func (r *hackathonRepository) ListHackathons() ([]models.Hackathon, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	out := make([]models.Hackathon, 0, len(r.db.hackathons))
	for id := range r.db.hackathons {
		out = append(out, r.db.hackathonView(id))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *hackathonRepository) UpdateHackathon(id int64, in models.HackathonInput) (models.Hackathon, error) {
	in = in.Normalize()
	if err := in.Validate(); err != nil {
		return models.Hackathon{}, errors.Wrap(ErrValidation, err.Error())
	}

	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	rec, ok := r.db.hackathons[id]
	if !ok {
		return models.Hackathon{}, errors.Wrapf(ErrNotFound, "hackathon %d", id)
	}
	rec.hackathon = in.Apply(rec.hackathon)
	return r.db.hackathonView(id), nil
}

func (r *hackathonRepository) DeleteHackathon(id int64) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if _, ok := r.db.hackathons[id]; !ok {
		return errors.Wrapf(ErrNotFound, "hackathon %d", id)
	}
	for invID, inv := range r.db.invitations {
		if inv.HackathonID == id {
			delete(r.db.invitations, invID)
		}
	}
	for teamID, t := range r.db.teams {
		if t.hackathonID == id {
			delete(r.db.teams, teamID)
		}
	}
	delete(r.db.hackathons, id)
	return nil
}

// hackathonView fills ParticipantsCount from current rosters. Caller holds the lock.
func (db *MemoryDB) hackathonView(id int64) models.Hackathon {
	rec := db.hackathons[id]
	h := rec.hackathon
	count := 0
	for _, t := range db.teams {
		if t.hackathonID == id {
			count += len(t.participants) + 1
		}
	}
	h.ParticipantsCount = count
	return h
}
