package handlers

import (
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/stanstork/hackmatch/internal/models"
	"github.com/stanstork/hackmatch/internal/repository"
)

type HackathonHandler struct {
	hackathons repository.HackathonRepository
	logger     zerolog.Logger
}

func NewHackathonHandler(hackathons repository.HackathonRepository, logger zerolog.Logger) *HackathonHandler {
	return &HackathonHandler{
		hackathons: hackathons,
		logger:     logger.With().Str("component", "hackathon_handler").Logger(),
	}
}

func (h *HackathonHandler) ListHackathons(w http.ResponseWriter, r *http.Request) {
	list, err := h.hackathons.ListHackathons()
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *HackathonHandler) GetHackathon(w http.ResponseWriter, r *http.Request) {
	id, ok := int64Var(r, "id")
	if !ok {
		writeDetail(w, http.StatusUnprocessableEntity, "Invalid hackathon id")
		return
	}
	hack, err := h.hackathons.GetHackathon(id)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, hack)
}

func (h *HackathonHandler) CreateHackathon(w http.ResponseWriter, r *http.Request) {
	var in models.HackathonInput
	if err := decodeJSON(r, &in); err != nil {
		writeDetail(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	in = in.Normalize()
	if err := in.Validate(); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	hack, err := h.hackathons.CreateHackathon(in.Apply(models.Hackathon{}), 0)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	h.logger.Info().Int64("hack_id", hack.ID).Msg("Hackathon created")
	writeJSON(w, http.StatusOK, hack)
}

func (h *HackathonHandler) UpdateHackathon(w http.ResponseWriter, r *http.Request) {
	id, ok := int64Var(r, "id")
	if !ok {
		writeDetail(w, http.StatusUnprocessableEntity, "Invalid hackathon id")
		return
	}
	var in models.HackathonInput
	if err := decodeJSON(r, &in); err != nil {
		writeDetail(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	hack, err := h.hackathons.UpdateHackathon(id, in)
	if errors.Is(err, repository.ErrNotFound) {
		writeDetail(w, http.StatusNotFound, "Hack not found")
		return
	}
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, hack)
}

// DeleteHackathon also drops the hackathon's teams and invitations.
func (h *HackathonHandler) DeleteHackathon(w http.ResponseWriter, r *http.Request) {
	id, ok := int64Var(r, "id")
	if !ok {
		writeDetail(w, http.StatusUnprocessableEntity, "Invalid hackathon id")
		return
	}
	err := h.hackathons.DeleteHackathon(id)
	if errors.Is(err, repository.ErrNotFound) {
		writeDetail(w, http.StatusNotFound, "Hack not found")
		return
	}
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	h.logger.Info().Int64("hack_id", id).Msg("Hackathon deleted")
	writeJSON(w, http.StatusOK, map[string]string{"message": "Deleted"})
}
