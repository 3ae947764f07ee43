package repository

import (
	"sort"

	"github.com/pkg/errors"

	"github.com/stanstork/hackmatch/internal/models"
)

type InvitationRepository interface {
	RequestJoin(teamID int64, participant string) (models.Invitation, error)
	ListTeamInvitations(teamID int64, actor string) ([]models.Invitation, error)
	// ListMyInvitations returns invitations where identity is either side; hackathonID 0 means all.
	ListMyInvitations(identity string, hackathonID int64) ([]models.Invitation, error)
	Resolve(invitationID int64, actor string, next models.InvitationStatus) (models.Invitation, error)
}

type invitationRepository struct {
	db *MemoryDB
}

func NewInvitationRepository(db *MemoryDB) InvitationRepository {
	return &invitationRepository{db: db}
}

func (r *invitationRepository) RequestJoin(teamID int64, participant string) (models.Invitation, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	t, ok := r.db.teams[teamID]
	if !ok {
		return models.Invitation{}, errors.Wrapf(ErrNotFound, "team %d", teamID)
	}
	if err := r.db.checkCanJoin(t, participant); err != nil {
		return models.Invitation{}, err
	}
	for _, inv := range r.db.invitations {
		if inv.TeamID == teamID && inv.ParticipantID == participant && inv.IsPending() {
			return models.Invitation{}, errors.Wrap(ErrConflict, "a request to this team is already pending")
		}
	}

	now := r.db.now()
	r.db.nextInvitationID++
	inv := &models.Invitation{
		ID:            r.db.nextInvitationID,
		TeamID:        t.id,
		HackathonID:   t.hackathonID,
		CaptainID:     t.captain,
		ParticipantID: participant,
		Status:        models.InvitationPending,
		RequestedBy:   models.RequestedByParticipant,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	r.db.invitations[inv.ID] = inv
	return *inv, nil
}

func (r *invitationRepository) ListTeamInvitations(teamID int64, actor string) ([]models.Invitation, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	if _, err := r.db.captainTeam(teamID, actor); err != nil {
		return nil, err
	}
	return r.db.collectInvitations(func(inv *models.Invitation) bool { return inv.TeamID == teamID }), nil
}

func (r *invitationRepository) ListMyInvitations(identity string, hackathonID int64) ([]models.Invitation, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	return r.db.collectInvitations(func(inv *models.Invitation) bool {
		if hackathonID != 0 && inv.HackathonID != hackathonID {
			return false
		}
		return inv.CaptainID == identity || inv.ParticipantID == identity
	}), nil
}

func (r *invitationRepository) Resolve(invitationID int64, actor string, next models.InvitationStatus) (models.Invitation, error) {
	if !next.IsTerminal() {
		return models.Invitation{}, errors.Wrapf(ErrValidation, "cannot move invitation to %q", next)
	}

	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	inv, ok := r.db.invitations[invitationID]
	if !ok {
		return models.Invitation{}, errors.Wrapf(ErrNotFound, "invitation %d", invitationID)
	}
	if inv.ResolverID() != actor {
		return models.Invitation{}, errors.Wrap(ErrForbidden, "only the counterpart can resolve this invitation")
	}
	if !inv.Status.CanTransition(next) {
		return models.Invitation{}, errors.Wrapf(ErrConflict, "invitation already %s", inv.Status)
	}

	if next == models.InvitationAccepted {
		t, ok := r.db.teams[inv.TeamID]
		if !ok {
			return models.Invitation{}, errors.Wrap(ErrConflict, "team no longer exists")
		}
		if err := r.db.checkCanJoin(t, inv.ParticipantID); err != nil {
			return models.Invitation{}, err
		}
		r.db.join(t, inv.ParticipantID)
	}
	inv.Status = next
	inv.UpdatedAt = r.db.now()
	return *inv, nil
}

// collectInvitations returns matching invitations ordered by id. Caller holds the lock.
func (db *MemoryDB) collectInvitations(keep func(*models.Invitation) bool) []models.Invitation {
	out := make([]models.Invitation, 0)
	for _, inv := range db.invitations {
		if keep(inv) {
			out = append(out, *inv)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
