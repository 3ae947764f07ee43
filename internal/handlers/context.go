package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/stanstork/hackmatch/internal/authz"
	"github.com/stanstork/hackmatch/internal/repository"
)

func identityFromRequest(r *http.Request) string {
	id, _ := authz.IdentityFromRequest(r)
	return id
}

func int64Var(r *http.Request, name string) (int64, bool) {
	v, err := strconv.ParseInt(mux.Vars(r)[name], 10, 64)
	if err != nil || v <= 0 {
		return 0, false
	}
	return v, true
}

// int64Query parses an optional positive query parameter; absent yields 0.
func int64Query(r *http.Request, name string) (int64, bool) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return 0, true
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || v <= 0 {
		return 0, false
	}
	return v, true
}

func decodeJSON(r *http.Request, dst any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(dst)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeDetail writes the {"detail": ...} error body clients parse.
func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}

func writeEmpty(w http.ResponseWriter) {
	writeJSON(w, http.StatusOK, struct{}{})
}

// writeError maps repository failures onto HTTP statuses.
func writeError(w http.ResponseWriter, logger zerolog.Logger, err error) {
	status := http.StatusInternalServerError
	var sentinel error
	switch {
	case errors.Is(err, repository.ErrNotFound):
		status, sentinel = http.StatusNotFound, repository.ErrNotFound
	case errors.Is(err, repository.ErrConflict):
		status, sentinel = http.StatusConflict, repository.ErrConflict
	case errors.Is(err, repository.ErrForbidden):
		status, sentinel = http.StatusForbidden, repository.ErrForbidden
	case errors.Is(err, repository.ErrValidation):
		status, sentinel = http.StatusUnprocessableEntity, repository.ErrValidation
	}
	if status == http.StatusInternalServerError {
		logger.Error().Err(err).Msg("Unhandled repository error")
		writeDetail(w, status, "Internal server error")
		return
	}
	writeDetail(w, status, detailOf(err, sentinel))
}

// detailOf strips the trailing sentinel text added by wrapping.
func detailOf(err, sentinel error) string {
	msg := err.Error()
	if trimmed := strings.TrimSuffix(msg, ": "+sentinel.Error()); trimmed != msg {
		return trimmed
	}
	return msg
}
