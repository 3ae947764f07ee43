package handlers

import (
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/stanstork/hackmatch/internal/authz"
	"github.com/stanstork/hackmatch/internal/config"
	"github.com/stanstork/hackmatch/internal/models"
	"github.com/stanstork/hackmatch/internal/repository"
)

// AccessTokenCookie carries the session credential.
const AccessTokenCookie = "access_token"

type AuthHandler struct {
	codes        repository.CodeRepository
	profiles     repository.ProfileRepository
	jwtSecret    string
	tokenTTL     time.Duration
	codeTTL      time.Duration
	secureCookie bool
	logger       zerolog.Logger

	mu      sync.Mutex
	revoked map[string]time.Time
}

type loginByCodeRequest struct {
	Code string `json:"code"`
}

type issueCodeRequest struct {
	TelegramID string `json:"telegram_id"`
	FullName   string `json:"fullname"`
	Provision  bool   `json:"provision"`
}

func NewAuthHandler(codes repository.CodeRepository, profiles repository.ProfileRepository, cfg config.StubConfig, logger zerolog.Logger) *AuthHandler {
	ttl := cfg.TokenTTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &AuthHandler{
		codes:        codes,
		profiles:     profiles,
		jwtSecret:    cfg.JWTSecret,
		tokenTTL:     ttl,
		codeTTL:      cfg.CodeTTL,
		secureCookie: cfg.SecureCookie,
		logger:       logger.With().Str("component", "auth_handler").Logger(),
		revoked:      make(map[string]time.Time),
	}
}

func (h *AuthHandler) LoginByCode(w http.ResponseWriter, r *http.Request) {
	var req loginByCodeRequest
	if err := decodeJSON(r, &req); err != nil || strings.TrimSpace(req.Code) == "" {
		writeDetail(w, http.StatusBadRequest, "Code is required")
		return
	}

	identity, err := h.codes.RedeemCode(req.Code, h.codeTTL)
	if err != nil {
		writeDetail(w, http.StatusBadRequest, "Invalid or expired code")
		return
	}

	now := time.Now()
	expires := now.Add(h.tokenTTL)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   identity,
		ID:        uuid.NewString(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expires),
	})
	tokenString, err := token.SignedString([]byte(h.jwtSecret))
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to sign access token")
		writeDetail(w, http.StatusInternalServerError, "Failed to generate token")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     AccessTokenCookie,
		Value:    tokenString,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
	h.logger.Info().Str("identity", identity).Msg("Login by code")
	writeJSON(w, http.StatusOK, map[string]string{"detail": "Login successful", "telegram_id": identity})
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if claims, err := h.claimsFromRequest(r); err == nil {
		h.mu.Lock()
		h.revoked[claims.ID] = claims.ExpiresAt.Time
		h.mu.Unlock()
	}
	http.SetCookie(w, &http.Cookie{
		Name:     AccessTokenCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
	writeEmpty(w)
}

// IssueCode plays the bot's part: it hands out a one-time login code and,
// when asked, provisions the profile.
func (h *AuthHandler) IssueCode(w http.ResponseWriter, r *http.Request) {
	var req issueCodeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeDetail(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Provision {
		if _, err := h.profiles.GetProfile(req.TelegramID); err != nil {
			profile := models.Profile{TelegramID: req.TelegramID, FullName: strings.TrimSpace(req.FullName)}
			if _, err := h.profiles.UpsertProfile(profile); err != nil {
				writeError(w, h.logger, err)
				return
			}
		}
	}
	code, err := h.codes.IssueCode(req.TelegramID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"code": code, "telegram_id": strings.TrimSpace(req.TelegramID)})
}

// RequireAuth rejects requests without a valid access token cookie.
func (h *AuthHandler) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, err := h.claimsFromRequest(r)
		if err != nil {
			writeDetail(w, http.StatusUnauthorized, "Not authenticated")
			return
		}
		next.ServeHTTP(w, r.WithContext(authz.WithIdentity(r.Context(), claims.Subject)))
	})
}

// OptionalAuth attaches the identity when a valid token is present.
func (h *AuthHandler) OptionalAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if claims, err := h.claimsFromRequest(r); err == nil {
			r = r.WithContext(authz.WithIdentity(r.Context(), claims.Subject))
		}
		next.ServeHTTP(w, r)
	})
}

func (h *AuthHandler) claimsFromRequest(r *http.Request) (*jwt.RegisteredClaims, error) {
	cookie, err := r.Cookie(AccessTokenCookie)
	if err != nil || cookie.Value == "" {
		return nil, http.ErrNoCookie
	}
	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(cookie.Value, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return []byte(h.jwtSecret), nil
	})
	if err != nil || !token.Valid {
		return nil, jwt.ErrTokenInvalidClaims
	}
	// Admin tokens never stand in for a participant session.
	if claims.Subject == "" || claims.ExpiresAt == nil || len(claims.Audience) > 0 {
		return nil, jwt.ErrTokenInvalidClaims
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	now := time.Now()
	for id, exp := range h.revoked {
		if now.After(exp) {
			delete(h.revoked, id)
		}
	}
	if _, revoked := h.revoked[claims.ID]; revoked {
		return nil, jwt.ErrTokenInvalidId
	}
	return claims, nil
}
