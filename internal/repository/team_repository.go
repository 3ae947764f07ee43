package repository

import (
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/stanstork/hackmatch/internal/models"
)

type TeamRepository interface {
	ListTeams(hackathonID int64) ([]models.TeamSummary, error)
	GetTeam(teamID int64, viewer string) (models.Team, error)
	CreateTeam(captain string, req models.CreateTeamRequest) (models.Team, error)
	UpdateTeam(teamID int64, actor string, req models.UpdateTeamRequest) (models.Team, error)
	DeleteTeam(teamID int64, actor string) error
	EnterTeam(teamID int64, actor, password string) (models.Team, error)
	LeaveTeam(teamID int64, actor string) (models.Team, error)
	RemoveParticipant(teamID int64, actor, participantID string) (models.Team, error)
	// SetCapacity overrides a team's capacity; 0 removes the limit.
	SetCapacity(teamID int64, capacity int) error
}

type teamRepository struct {
	db *MemoryDB
}

func NewTeamRepository(db *MemoryDB) TeamRepository {
	return &teamRepository{db: db}
}

func (r *teamRepository) ListTeams(hackathonID int64) ([]models.TeamSummary, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	out := make([]models.TeamSummary, 0, len(r.db.teams))
	for _, t := range r.db.sortedTeams() {
		if hackathonID != 0 && t.hackathonID != hackathonID {
			continue
		}
		out = append(out, models.TeamSummary{ID: t.id, Title: t.title, Description: t.description})
	}
	return out, nil
}

func (r *teamRepository) GetTeam(teamID int64, viewer string) (models.Team, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	t, ok := r.db.teams[teamID]
	if !ok {
		return models.Team{}, errors.Wrapf(ErrNotFound, "team %d", teamID)
	}
	return r.db.toTeam(t, viewer), nil
}

func (r *teamRepository) CreateTeam(captain string, req models.CreateTeamRequest) (models.Team, error) {
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return models.Team{}, errors.Wrap(ErrValidation, "title is required")
	}

	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	hack, ok := r.db.hackathons[req.HackathonID]
	if !ok {
		return models.Team{}, errors.Wrapf(ErrNotFound, "hackathon %d", req.HackathonID)
	}
	if _, ok := r.db.profiles[captain]; !ok {
		return models.Team{}, errors.Wrap(ErrForbidden, "complete your profile before creating a team")
	}
	if existing := r.db.teamOf(captain, req.HackathonID); existing != nil {
		return models.Team{}, errors.Wrapf(ErrConflict, "already a member of team %d in this hackathon", existing.id)
	}

	r.db.nextTeamID++
	t := &teamRecord{
		id:          r.db.nextTeamID,
		hackathonID: req.HackathonID,
		title:       title,
		captain:     captain,
		capacity:    hack.teamCapacity,
		password:    strings.ReplaceAll(uuid.NewString(), "-", "")[:10],
	}
	if req.Description != nil {
		t.description = strings.TrimSpace(*req.Description)
	}
	r.db.teams[t.id] = t
	r.db.declinePendingRequests(captain, req.HackathonID, 0)
	return r.db.toTeam(t, captain), nil
}

func (r *teamRepository) UpdateTeam(teamID int64, actor string, req models.UpdateTeamRequest) (models.Team, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	t, err := r.db.captainTeam(teamID, actor)
	if err != nil {
		return models.Team{}, err
	}
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return models.Team{}, errors.Wrap(ErrValidation, "title is required")
	}
	t.title = title
	t.description = strings.TrimSpace(req.Description)
	return r.db.toTeam(t, actor), nil
}

func (r *teamRepository) DeleteTeam(teamID int64, actor string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	t, err := r.db.captainTeam(teamID, actor)
	if err != nil {
		return err
	}
	delete(r.db.teams, t.id)
	for _, inv := range r.db.invitations {
		if inv.TeamID == t.id && inv.IsPending() {
			inv.Status = models.InvitationDeclined
			inv.UpdatedAt = r.db.now()
		}
	}
	return nil
}

func (r *teamRepository) EnterTeam(teamID int64, actor, password string) (models.Team, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	t, ok := r.db.teams[teamID]
	if !ok {
		return models.Team{}, errors.Wrapf(ErrNotFound, "team %d", teamID)
	}
	if err := r.db.checkCanJoin(t, actor); err != nil {
		return models.Team{}, err
	}
	if t.password == "" || password != t.password {
		return models.Team{}, errors.Wrap(ErrForbidden, "wrong team password")
	}
	r.db.join(t, actor)
	return r.db.toTeam(t, actor), nil
}

func (r *teamRepository) LeaveTeam(teamID int64, actor string) (models.Team, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	t, ok := r.db.teams[teamID]
	if !ok {
		return models.Team{}, errors.Wrapf(ErrNotFound, "team %d", teamID)
	}
	if t.captain == actor {
		return models.Team{}, errors.Wrap(ErrConflict, "the captain cannot leave the team; delete it instead")
	}
	if !contains(t.participants, actor) {
		return models.Team{}, errors.Wrapf(ErrNotFound, "not a member of team %d", teamID)
	}
	t.participants = without(t.participants, actor)
	return r.db.toTeam(t, actor), nil
}

func (r *teamRepository) RemoveParticipant(teamID int64, actor, participantID string) (models.Team, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	t, err := r.db.captainTeam(teamID, actor)
	if err != nil {
		return models.Team{}, err
	}
	if !contains(t.participants, participantID) {
		return models.Team{}, errors.Wrapf(ErrNotFound, "participant %s is not a member of team %d", participantID, teamID)
	}
	t.participants = without(t.participants, participantID)
	return r.db.toTeam(t, actor), nil
}

func (r *teamRepository) SetCapacity(teamID int64, capacity int) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	t, ok := r.db.teams[teamID]
	if !ok {
		return errors.Wrapf(ErrNotFound, "team %d", teamID)
	}
	t.capacity = capacity
	return nil
}

// captainTeam loads a team and checks actor captains it. Caller holds the lock.
func (db *MemoryDB) captainTeam(teamID int64, actor string) (*teamRecord, error) {
	t, ok := db.teams[teamID]
	if !ok {
		return nil, errors.Wrapf(ErrNotFound, "team %d", teamID)
	}
	if t.captain != actor {
		return nil, errors.Wrap(ErrForbidden, "only the captain can do this")
	}
	return t, nil
}

// checkCanJoin enforces one team per hackathon and capacity. Caller holds the lock.
func (db *MemoryDB) checkCanJoin(t *teamRecord, identity string) error {
	if t.captain == identity || contains(t.participants, identity) {
		return errors.Wrap(ErrConflict, "already a member of this team")
	}
	if other := db.teamOf(identity, t.hackathonID); other != nil {
		return errors.Wrapf(ErrConflict, "already a member of team %d in this hackathon", other.id)
	}
	if t.capacity > 0 && len(t.participants)+1 >= t.capacity {
		return errors.Wrap(ErrConflict, "team is full")
	}
	return nil
}

// join adds identity and declines its other open requests in the hackathon. Caller holds the lock.
func (db *MemoryDB) join(t *teamRecord, identity string) {
	t.participants = append(t.participants, identity)
	db.declinePendingRequests(identity, t.hackathonID, 0)
}

// declinePendingRequests declines identity's pending invitations in a hackathon,
// except keep. Caller holds the lock.
func (db *MemoryDB) declinePendingRequests(identity string, hackathonID, keep int64) {
	for _, inv := range db.invitations {
		if inv.ID == keep || inv.HackathonID != hackathonID || inv.ParticipantID != identity || !inv.IsPending() {
			continue
		}
		inv.Status = models.InvitationDeclined
		inv.UpdatedAt = db.now()
	}
}
