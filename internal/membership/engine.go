// Package membership drives team and invitation mutations.
//
// Mutations return only an acknowledgement (or the created entity). Team and
// invitation state is always read back from the server afterwards; nothing is
// patched locally, so out-of-order responses cannot produce a merged roster
// the server never had.
package membership

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/stanstork/hackmatch/internal/apierr"
	"github.com/stanstork/hackmatch/internal/models"
	"github.com/stanstork/hackmatch/internal/session"
)

// Gateway is the subset of the API client the engine calls.
type Gateway interface {
	ListTeams(ctx context.Context, hackathonID int64) ([]models.TeamSummary, error)
	GetTeam(ctx context.Context, teamID int64) (models.Team, error)
	CreateTeam(ctx context.Context, in models.CreateTeamRequest) (models.Team, error)
	UpdateTeam(ctx context.Context, teamID int64, in models.UpdateTeamRequest) (models.Team, error)
	DeleteTeam(ctx context.Context, teamID int64) error
	EnterTeam(ctx context.Context, teamID int64, password string) (models.Team, error)
	LeaveTeam(ctx context.Context, teamID int64) (models.Team, error)
	RemoveParticipant(ctx context.Context, teamID int64, participantID string) (models.Team, error)
	RequestJoin(ctx context.Context, teamID int64) (models.Invitation, error)
	ListTeamInvitations(ctx context.Context, teamID int64) ([]models.Invitation, error)
	ApproveInvitation(ctx context.Context, invitationID int64) error
	DeclineInvitation(ctx context.Context, invitationID int64) error
}

// SessionGate gates every mutation on a server-confirmed session.
type SessionGate interface {
	Current() session.Session
	RequireAuthenticated() (session.Session, error)
}

type Engine struct {
	gw     Gateway
	sess   SessionGate
	events *bus
	logger zerolog.Logger
	now    func() time.Time
}

func New(gw Gateway, sess SessionGate, logger zerolog.Logger) *Engine {
	return &Engine{
		gw:     gw,
		sess:   sess,
		events: newBus(),
		logger: logger.With().Str("component", "membership").Logger(),
		now:    time.Now,
	}
}

// Subscribe registers fn for acknowledged mutations.
func (e *Engine) Subscribe(fn func(Event)) (cancel func()) {
	return e.events.subscribe(fn)
}

func (e *Engine) publish(evt Event) {
	evt.At = e.now()
	e.events.publish(evt)
}

func (e *Engine) ListTeams(ctx context.Context, hackathonID int64) ([]models.TeamSummary, error) {
	return e.gw.ListTeams(ctx, hackathonID)
}

func (e *Engine) GetTeam(ctx context.Context, teamID int64) (models.Team, error) {
	return e.gw.GetTeam(ctx, teamID)
}

// CreateTeam makes the caller captain of a new team.
func (e *Engine) CreateTeam(ctx context.Context, title string, description *string, hackathonID int64) (models.Team, error) {
	viewer, err := e.sess.RequireAuthenticated()
	if err != nil {
		return models.Team{}, err
	}
	title = strings.TrimSpace(title)
	if title == "" {
		return models.Team{}, apierr.New(apierr.KindValidation, "Team title is required")
	}
	if description != nil {
		trimmed := strings.TrimSpace(*description)
		description = &trimmed
	}

	team, err := e.gw.CreateTeam(ctx, models.CreateTeamRequest{
		Title:       title,
		Description: description,
		HackathonID: hackathonID,
	})
	if err != nil {
		return models.Team{}, err
	}
	e.logger.Info().Int64("team_id", team.ID).Str("captain", viewer.Identity).Msg("Team created")
	e.publish(Event{Type: EventTeamCreated, Actor: viewer.Identity, TeamID: team.ID, HackathonID: hackathonID})
	return team, nil
}

func (e *Engine) UpdateTeam(ctx context.Context, teamID int64, title, description string) error {
	viewer, err := e.sess.RequireAuthenticated()
	if err != nil {
		return err
	}
	title = strings.TrimSpace(title)
	if title == "" {
		return apierr.New(apierr.KindValidation, "Team title is required")
	}
	team, err := e.gw.UpdateTeam(ctx, teamID, models.UpdateTeamRequest{Title: title, Description: strings.TrimSpace(description)})
	if err != nil {
		return err
	}
	e.publish(Event{Type: EventTeamUpdated, Actor: viewer.Identity, TeamID: teamID, HackathonID: team.HackathonID})
	return nil
}

// DeleteTeam dissolves a team; every participant loses membership.
func (e *Engine) DeleteTeam(ctx context.Context, teamID int64) error {
	viewer, err := e.sess.RequireAuthenticated()
	if err != nil {
		return err
	}
	if err := e.gw.DeleteTeam(ctx, teamID); err != nil {
		return err
	}
	e.logger.Info().Int64("team_id", teamID).Str("captain", viewer.Identity).Msg("Team deleted")
	e.publish(Event{Type: EventTeamDeleted, Actor: viewer.Identity, TeamID: teamID})
	return nil
}

// RequestJoin creates a pending participant-requested invitation. Capacity
// and one-team-per-hackathon are enforced by the server (409).
func (e *Engine) RequestJoin(ctx context.Context, teamID int64) (models.Invitation, error) {
	viewer, err := e.sess.RequireAuthenticated()
	if err != nil {
		return models.Invitation{}, err
	}
	inv, err := e.gw.RequestJoin(ctx, teamID)
	if err != nil {
		e.logger.Debug().Err(err).Int64("team_id", teamID).Msg("Join request rejected")
		return models.Invitation{}, err
	}
	e.publish(Event{
		Type:          EventInvitationRequested,
		Actor:         viewer.Identity,
		TeamID:        inv.TeamID,
		HackathonID:   inv.HackathonID,
		InvitationID:  inv.ID,
		ParticipantID: inv.ParticipantID,
	})
	return inv, nil
}

// EnterTeam joins a team directly with its password.
func (e *Engine) EnterTeam(ctx context.Context, teamID int64, password string) error {
	viewer, err := e.sess.RequireAuthenticated()
	if err != nil {
		return err
	}
	if password == "" {
		return apierr.New(apierr.KindValidation, "Team password is required")
	}
	team, err := e.gw.EnterTeam(ctx, teamID, password)
	if err != nil {
		return err
	}
	e.publish(Event{Type: EventTeamJoined, Actor: viewer.Identity, TeamID: teamID, HackathonID: team.HackathonID, ParticipantID: viewer.Identity})
	return nil
}

// ListInvitations returns every invitation of a team. Captain only.
func (e *Engine) ListInvitations(ctx context.Context, teamID int64) ([]models.Invitation, error) {
	if _, err := e.sess.RequireAuthenticated(); err != nil {
		return nil, err
	}
	return e.gw.ListTeamInvitations(ctx, teamID)
}

// Actionable filters invitations down to the ones a captain can resolve.
func Actionable(invitations []models.Invitation) []models.Invitation {
	return models.FilterInvitations(invitations, models.Invitation.IsActionableByCaptain)
}

// Approve accepts a pending invitation. A second resolution of the same
// invitation fails with apierr.KindConflict.
func (e *Engine) Approve(ctx context.Context, invitationID int64) error {
	return e.resolve(ctx, invitationID, models.InvitationAccepted)
}

func (e *Engine) Decline(ctx context.Context, invitationID int64) error {
	return e.resolve(ctx, invitationID, models.InvitationDeclined)
}

func (e *Engine) resolve(ctx context.Context, invitationID int64, next models.InvitationStatus) error {
	viewer, err := e.sess.RequireAuthenticated()
	if err != nil {
		return err
	}

	call, typ := e.gw.ApproveInvitation, EventInvitationAccepted
	if next == models.InvitationDeclined {
		call, typ = e.gw.DeclineInvitation, EventInvitationDeclined
	}
	if err := call(ctx, invitationID); err != nil {
		if apierr.KindOf(err) == apierr.KindConflict {
			e.logger.Info().Int64("invitation_id", invitationID).Msg("Invitation was already handled")
		}
		return err
	}
	e.logger.Info().Int64("invitation_id", invitationID).Str("status", string(next)).Msg("Invitation resolved")
	e.publish(Event{Type: typ, Actor: viewer.Identity, InvitationID: invitationID})
	return nil
}

// RemoveParticipant removes a member. The roster is fetched first so a
// non-captain gets Forbidden and a non-member NotFound without a mutation.
func (e *Engine) RemoveParticipant(ctx context.Context, teamID int64, participantID string) error {
	viewer, err := e.sess.RequireAuthenticated()
	if err != nil {
		return err
	}
	team, err := e.gw.GetTeam(ctx, teamID)
	if err != nil {
		return err
	}
	if !team.IsCaptain(viewer.Identity) {
		return apierr.New(apierr.KindForbidden, ReasonNotCaptain)
	}
	if !team.HasParticipant(participantID) {
		return apierr.Newf(apierr.KindNotFound, "%s is not a member of this team", participantID)
	}
	if _, err := e.gw.RemoveParticipant(ctx, teamID, participantID); err != nil {
		return err
	}
	e.publish(Event{Type: EventMemberRemoved, Actor: viewer.Identity, TeamID: teamID, HackathonID: team.HackathonID, ParticipantID: participantID})
	return nil
}

// LeaveTeam removes the caller from a team. A captain is rejected with
// apierr.KindPolicy before any request is sent.
func (e *Engine) LeaveTeam(ctx context.Context, teamID int64) error {
	viewer, err := e.sess.RequireAuthenticated()
	if err != nil {
		return err
	}
	team, err := e.gw.GetTeam(ctx, teamID)
	if err != nil {
		return err
	}
	if team.IsCaptain(viewer.Identity) {
		return apierr.New(apierr.KindPolicy, ReasonCaptainLeave)
	}
	if !team.HasParticipant(viewer.Identity) {
		return apierr.New(apierr.KindNotFound, ReasonNotMember)
	}
	if _, err := e.gw.LeaveTeam(ctx, teamID); err != nil {
		return err
	}
	e.publish(Event{Type: EventTeamLeft, Actor: viewer.Identity, TeamID: teamID, HackathonID: team.HackathonID, ParticipantID: viewer.Identity})
	return nil
}
