package handlers

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/stanstork/hackmatch/internal/models"
	"github.com/stanstork/hackmatch/internal/repository"
)

type ProfileHandler struct {
	profiles repository.ProfileRepository
	logger   zerolog.Logger
}

func NewProfileHandler(profiles repository.ProfileRepository, logger zerolog.Logger) *ProfileHandler {
	return &ProfileHandler{
		profiles: profiles,
		logger:   logger.With().Str("component", "profile_handler").Logger(),
	}
}

func (h *ProfileHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	profile, err := h.profiles.GetProfile(mux.Vars(r)["identity"])
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

// UpdateProfile applies a partial update to the caller's own profile,
// provisioning it on first use.
func (h *ProfileHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	var patch models.ProfilePatch
	if err := decodeJSON(r, &patch); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "Invalid request body")
		return
	}
	profile, err := h.profiles.PatchProfile(mux.Vars(r)["identity"], patch)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

func (h *ProfileHandler) ListParticipants(w http.ResponseWriter, r *http.Request) {
	profiles, err := h.profiles.ListProfiles()
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, profiles)
}
