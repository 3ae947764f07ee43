package handlers

import (
	"net/http"

	"github.com/rs/zerolog"

	"github.com/stanstork/hackmatch/internal/models"
	"github.com/stanstork/hackmatch/internal/repository"
)

type InvitationHandler struct {
	invitations repository.InvitationRepository
	logger      zerolog.Logger
}

func NewInvitationHandler(invitations repository.InvitationRepository, logger zerolog.Logger) *InvitationHandler {
	return &InvitationHandler{
		invitations: invitations,
		logger:      logger.With().Str("component", "invitation_handler").Logger(),
	}
}

func (h *InvitationHandler) RequestJoin(w http.ResponseWriter, r *http.Request) {
	teamID, ok := int64Var(r, "id")
	if !ok {
		writeDetail(w, http.StatusUnprocessableEntity, "Invalid team id")
		return
	}
	inv, err := h.invitations.RequestJoin(teamID, identityFromRequest(r))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	h.logger.Info().Int64("invitation_id", inv.ID).Int64("team_id", teamID).Str("participant", inv.ParticipantID).Msg("Join requested")
	writeJSON(w, http.StatusOK, inv)
}

func (h *InvitationHandler) ListTeamInvitations(w http.ResponseWriter, r *http.Request) {
	teamID, ok := int64Var(r, "id")
	if !ok {
		writeDetail(w, http.StatusUnprocessableEntity, "Invalid team id")
		return
	}
	list, err := h.invitations.ListTeamInvitations(teamID, identityFromRequest(r))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *InvitationHandler) MyInvitations(w http.ResponseWriter, r *http.Request) {
	hackathonID, ok := int64Query(r, "hackathon_id")
	if !ok {
		writeDetail(w, http.StatusUnprocessableEntity, "Invalid hackathon_id")
		return
	}
	list, err := h.invitations.ListMyInvitations(identityFromRequest(r), hackathonID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *InvitationHandler) Approve(w http.ResponseWriter, r *http.Request) {
	h.resolve(w, r, models.InvitationAccepted)
}

func (h *InvitationHandler) Decline(w http.ResponseWriter, r *http.Request) {
	h.resolve(w, r, models.InvitationDeclined)
}

func (h *InvitationHandler) resolve(w http.ResponseWriter, r *http.Request, next models.InvitationStatus) {
	invitationID, ok := int64Var(r, "id")
	if !ok {
		writeDetail(w, http.StatusUnprocessableEntity, "Invalid invitation id")
		return
	}
	inv, err := h.invitations.Resolve(invitationID, identityFromRequest(r), next)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	h.logger.Info().Int64("invitation_id", inv.ID).Str("status", string(inv.Status)).Msg("Invitation resolved")
	writeEmpty(w)
}
