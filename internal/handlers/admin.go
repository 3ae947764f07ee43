package handlers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/stanstork/hackmatch/internal/config"
	"github.com/stanstork/hackmatch/internal/models"
	"github.com/stanstork/hackmatch/internal/repository"
)

// AdminTokenCookie carries the operator credential; it is independent of the
// participant session.
const AdminTokenCookie = "admin_access_token"

const adminAudience = "admin"

type AdminHandler struct {
	admins       repository.AdminRepository
	jwtSecret    string
	tokenTTL     time.Duration
	secureCookie bool
	logger       zerolog.Logger
}

func NewAdminHandler(admins repository.AdminRepository, cfg config.StubConfig, logger zerolog.Logger) *AdminHandler {
	return &AdminHandler{
		admins:       admins,
		jwtSecret:    cfg.JWTSecret,
		tokenTTL:     24 * time.Hour,
		secureCookie: cfg.SecureCookie,
		logger:       logger.With().Str("component", "admin_handler").Logger(),
	}
}

func (h *AdminHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req models.AdminLoginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeDetail(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	admin, err := h.admins.AuthenticateAdmin(req.Email, req.Password)
	if err != nil {
		h.logger.Warn().Str("email", models.NormalizeEmail(req.Email)).Msg("Admin login rejected")
		writeDetail(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	now := time.Now()
	expires := now.Add(h.tokenTTL)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   strconv.FormatInt(admin.ID, 10),
		Audience:  jwt.ClaimStrings{adminAudience},
		ID:        uuid.NewString(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expires),
	})
	tokenString, err := token.SignedString([]byte(h.jwtSecret))
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to sign admin token")
		writeDetail(w, http.StatusInternalServerError, "Failed to generate token")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     AdminTokenCookie,
		Value:    tokenString,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
	h.logger.Info().Int64("admin_id", admin.ID).Msg("Admin login")
	writeJSON(w, http.StatusOK, map[string]string{"message": "Logged in"})
}

func (h *AdminHandler) Logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     AdminTokenCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
	writeJSON(w, http.StatusOK, map[string]string{"message": "Logged out"})
}

// RequireAdmin rejects requests without a valid admin token cookie.
func (h *AdminHandler) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(AdminTokenCookie)
		if err != nil || strings.TrimSpace(cookie.Value) == "" {
			writeDetail(w, http.StatusUnauthorized, "Not authenticated")
			return
		}
		claims := &jwt.RegisteredClaims{}
		token, err := jwt.ParseWithClaims(cookie.Value, claims, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrSignatureInvalid
			}
			return []byte(h.jwtSecret), nil
		})
		if err != nil || !token.Valid || !claims.VerifyAudience(adminAudience, true) {
			writeDetail(w, http.StatusUnauthorized, "Invalid token")
			return
		}
		next.ServeHTTP(w, r)
	})
}
