package routes

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/stanstork/hackmatch/internal/authz"
	"github.com/stanstork/hackmatch/internal/handlers"
)

type Handlers struct {
	Auth        *handlers.AuthHandler
	Admin       *handlers.AdminHandler
	Profiles    *handlers.ProfileHandler
	Teams       *handlers.TeamHandler
	Invitations *handlers.InvitationHandler
	Hackathons  *handlers.HackathonHandler
	// Metrics serves /metrics when set.
	Metrics http.Handler
}

// NewRouter sets up the API routes
func NewRouter(h Handlers, middlewares ...mux.MiddlewareFunc) *mux.Router {
	router := mux.NewRouter()
	router.Use(middlewares...)

	protected := func(fn http.HandlerFunc) http.Handler { return h.Auth.RequireAuth(fn) }
	optional := func(fn http.HandlerFunc) http.Handler { return h.Auth.OptionalAuth(fn) }
	admin := func(fn http.HandlerFunc) http.Handler { return h.Admin.RequireAdmin(fn) }

	router.HandleFunc("/health", handlers.HealthCheck).Methods(http.MethodGet)
	if h.Metrics != nil {
		router.Handle("/metrics", h.Metrics).Methods(http.MethodGet)
	}

	// Auth
	router.HandleFunc("/login-by-code", h.Auth.LoginByCode).Methods(http.MethodPost)
	router.HandleFunc("/logout", h.Auth.Logout).Methods(http.MethodPost)
	router.HandleFunc("/bot/codes", h.Auth.IssueCode).Methods(http.MethodPost)
	router.HandleFunc("/admin/login", h.Admin.Login).Methods(http.MethodPost)
	router.HandleFunc("/admin/logout", h.Admin.Logout).Methods(http.MethodPost)

	// Profiles
	router.Handle("/profile/{identity}", protected(h.Profiles.GetProfile)).Methods(http.MethodGet)
	router.Handle("/profile/{identity}", h.Auth.RequireAuth(
		authz.RequireSelfHandler("identity", http.HandlerFunc(h.Profiles.UpdateProfile)),
	)).Methods(http.MethodPost)
	router.HandleFunc("/participants", h.Profiles.ListParticipants).Methods(http.MethodGet)

	// Hackathons
	router.HandleFunc("/hackathons", h.Hackathons.ListHackathons).Methods(http.MethodGet)
	router.HandleFunc("/hackathons/{id:[0-9]+}", h.Hackathons.GetHackathon).Methods(http.MethodGet)
	router.Handle("/hackathons/create_hack", admin(h.Hackathons.CreateHackathon)).Methods(http.MethodPost)
	router.Handle("/hackathons/{id:[0-9]+}/update_hack", admin(h.Hackathons.UpdateHackathon)).Methods(http.MethodPost)
	router.Handle("/hackathons/{id:[0-9]+}/delete_hack", admin(h.Hackathons.DeleteHackathon)).Methods(http.MethodPost)

	// Teams
	router.HandleFunc("/teams", h.Teams.ListTeams).Methods(http.MethodGet)
	router.Handle("/teams/create", protected(h.Teams.CreateTeam)).Methods(http.MethodPost)
	router.Handle("/teams/invitations/my", protected(h.Invitations.MyInvitations)).Methods(http.MethodGet)
	router.Handle("/teams/{id:[0-9]+}", optional(h.Teams.GetTeam)).Methods(http.MethodGet)
	router.Handle("/teams/{id:[0-9]+}", protected(h.Teams.UpdateTeam)).Methods(http.MethodPut)
	router.Handle("/teams/{id:[0-9]+}", protected(h.Teams.DeleteTeam)).Methods(http.MethodDelete)
	router.Handle("/teams/{id:[0-9]+}/enter", protected(h.Teams.EnterTeam)).Methods(http.MethodPost)
	router.Handle("/teams/{id:[0-9]+}/leave", protected(h.Teams.LeaveTeam)).Methods(http.MethodPost)
	router.Handle("/teams/{id:[0-9]+}/remove-participant/{participantID}", protected(h.Teams.RemoveParticipant)).Methods(http.MethodPost)

	// Invitations
	router.Handle("/teams/{id:[0-9]+}/request-join", protected(h.Invitations.RequestJoin)).Methods(http.MethodPost)
	router.Handle("/teams/{id:[0-9]+}/invitations", protected(h.Invitations.ListTeamInvitations)).Methods(http.MethodGet)
	router.Handle("/invitations/{id:[0-9]+}/approve", protected(h.Invitations.Approve)).Methods(http.MethodPost)
	router.Handle("/invitations/{id:[0-9]+}/decline", protected(h.Invitations.Decline)).Methods(http.MethodPost)

	return router
}
