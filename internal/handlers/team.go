package handlers

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/stanstork/hackmatch/internal/models"
	"github.com/stanstork/hackmatch/internal/repository"
)

type TeamHandler struct {
	teams  repository.TeamRepository
	logger zerolog.Logger
}

type enterTeamRequest struct {
	Password string `json:"password"`
}

func NewTeamHandler(teams repository.TeamRepository, logger zerolog.Logger) *TeamHandler {
	return &TeamHandler{
		teams:  teams,
		logger: logger.With().Str("component", "team_handler").Logger(),
	}
}

func (h *TeamHandler) ListTeams(w http.ResponseWriter, r *http.Request) {
	hackathonID, ok := int64Query(r, "hackathon_id")
	if !ok {
		writeDetail(w, http.StatusUnprocessableEntity, "Invalid hackathon_id")
		return
	}
	teams, err := h.teams.ListTeams(hackathonID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, teams)
}

func (h *TeamHandler) GetTeam(w http.ResponseWriter, r *http.Request) {
	teamID, ok := int64Var(r, "id")
	if !ok {
		writeDetail(w, http.StatusUnprocessableEntity, "Invalid team id")
		return
	}
	team, err := h.teams.GetTeam(teamID, identityFromRequest(r))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, team)
}

func (h *TeamHandler) CreateTeam(w http.ResponseWriter, r *http.Request) {
	var req models.CreateTeamRequest
	if err := decodeJSON(r, &req); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "Invalid request body")
		return
	}
	team, err := h.teams.CreateTeam(identityFromRequest(r), req)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	h.logger.Info().Int64("team_id", team.ID).Str("captain", team.Captain.TelegramID).Msg("Team created")
	writeJSON(w, http.StatusOK, team)
}

func (h *TeamHandler) UpdateTeam(w http.ResponseWriter, r *http.Request) {
	teamID, ok := int64Var(r, "id")
	if !ok {
		writeDetail(w, http.StatusUnprocessableEntity, "Invalid team id")
		return
	}
	var req models.UpdateTeamRequest
	if err := decodeJSON(r, &req); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "Invalid request body")
		return
	}
	team, err := h.teams.UpdateTeam(teamID, identityFromRequest(r), req)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, team)
}

func (h *TeamHandler) DeleteTeam(w http.ResponseWriter, r *http.Request) {
	teamID, ok := int64Var(r, "id")
	if !ok {
		writeDetail(w, http.StatusUnprocessableEntity, "Invalid team id")
		return
	}
	if err := h.teams.DeleteTeam(teamID, identityFromRequest(r)); err != nil {
		writeError(w, h.logger, err)
		return
	}
	h.logger.Info().Int64("team_id", teamID).Msg("Team deleted")
	writeEmpty(w)
}

func (h *TeamHandler) EnterTeam(w http.ResponseWriter, r *http.Request) {
	teamID, ok := int64Var(r, "id")
	if !ok {
		writeDetail(w, http.StatusUnprocessableEntity, "Invalid team id")
		return
	}
	var req enterTeamRequest
	if err := decodeJSON(r, &req); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "Invalid request body")
		return
	}
	team, err := h.teams.EnterTeam(teamID, identityFromRequest(r), req.Password)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, team)
}

func (h *TeamHandler) LeaveTeam(w http.ResponseWriter, r *http.Request) {
	teamID, ok := int64Var(r, "id")
	if !ok {
		writeDetail(w, http.StatusUnprocessableEntity, "Invalid team id")
		return
	}
	team, err := h.teams.LeaveTeam(teamID, identityFromRequest(r))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, team)
}

func (h *TeamHandler) RemoveParticipant(w http.ResponseWriter, r *http.Request) {
	teamID, ok := int64Var(r, "id")
	if !ok {
		writeDetail(w, http.StatusUnprocessableEntity, "Invalid team id")
		return
	}
	team, err := h.teams.RemoveParticipant(teamID, identityFromRequest(r), mux.Vars(r)["participantID"])
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, team)
}
