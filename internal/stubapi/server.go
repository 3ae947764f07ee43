// Package stubapi serves the hackathon REST contract from memory. It backs the
// integration tests and cmd/stubserver for local development.
package stubapi

import (
	"net/http"

	h "github.com/gorilla/handlers"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/stanstork/hackmatch/internal/config"
	"github.com/stanstork/hackmatch/internal/handlers"
	"github.com/stanstork/hackmatch/internal/middleware"
	"github.com/stanstork/hackmatch/internal/models"
	"github.com/stanstork/hackmatch/internal/repository"
	"github.com/stanstork/hackmatch/internal/routes"
)

type Server struct {
	DB          *repository.MemoryDB
	Profiles    repository.ProfileRepository
	Teams       repository.TeamRepository
	Invitations repository.InvitationRepository
	Hackathons  repository.HackathonRepository
	Codes       repository.CodeRepository
	Admins      repository.AdminRepository

	handler http.Handler
	logger  zerolog.Logger
}

// New assembles the stub API. A nil registry gets a private one.
func New(cfg config.StubConfig, logger zerolog.Logger, reg *prometheus.Registry) (*Server, error) {
	if cfg.JWTSecret == "" {
		return nil, errors.New("stub jwt secret is required")
	}
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	db := repository.NewMemoryDB()
	s := &Server{
		DB:          db,
		Profiles:    repository.NewProfileRepository(db),
		Teams:       repository.NewTeamRepository(db),
		Invitations: repository.NewInvitationRepository(db),
		Hackathons:  repository.NewHackathonRepository(db),
		Codes:       repository.NewCodeRepository(db),
		Admins:      repository.NewAdminRepository(db),
		logger:      logger.With().Str("component", "stubapi").Logger(),
	}

	metrics, err := middleware.NewMetrics(reg)
	if err != nil {
		return nil, errors.Wrap(err, "register stub metrics")
	}

	router := routes.NewRouter(routes.Handlers{
		Auth:        handlers.NewAuthHandler(s.Codes, s.Profiles, cfg, logger),
		Admin:       handlers.NewAdminHandler(s.Admins, cfg, logger),
		Profiles:    handlers.NewProfileHandler(s.Profiles, logger),
		Teams:       handlers.NewTeamHandler(s.Teams, logger),
		Invitations: handlers.NewInvitationHandler(s.Invitations, logger),
		Hackathons:  handlers.NewHackathonHandler(s.Hackathons, logger),
		Metrics:     promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
	}, metrics.Middleware)

	origins := cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:3000"}
	}
	corsHandler := h.CORS(
		h.AllowedOrigins(origins),
		h.AllowedMethods([]string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}),
		h.AllowedHeaders([]string{"Content-Type", "X-Request-Id"}),
		h.AllowCredentials(),
	)(middleware.LoggingMiddleware(logger)(router))

	s.handler = h.RecoveryHandler(h.PrintRecoveryStack(false))(corsHandler)
	return s, nil
}

func (s *Server) Handler() http.Handler {
	return s.handler
}

// IssueCode hands out a one-time login code, provisioning a profile when fullName is set.
func (s *Server) IssueCode(identity, fullName string) (string, error) {
	if fullName != "" {
		if _, err := s.Profiles.GetProfile(identity); err != nil {
			if _, err := s.Profiles.UpsertProfile(models.Profile{TelegramID: identity, FullName: fullName}); err != nil {
				return "", err
			}
		}
	}
	return s.Codes.IssueCode(identity)
}

// CreateAdmin registers an operator account.
func (s *Server) CreateAdmin(email, password string) (models.Admin, error) {
	return s.Admins.CreateAdmin(email, password)
}

// SeedHackathon registers a hackathon whose teams hold at most teamCapacity members.
func (s *Server) SeedHackathon(title string, teamCapacity int) (models.Hackathon, error) {
	return s.Hackathons.CreateHackathon(models.Hackathon{Title: title}, teamCapacity)
}
