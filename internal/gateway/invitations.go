package gateway

import (
	"context"
	"net/http"
	"strconv"

	"github.com/stanstork/hackmatch/internal/models"
)

func invitationPath(invitationID int64, action string) string {
	return "/invitations/" + strconv.FormatInt(invitationID, 10) + "/" + action
}

// RequestJoin creates a pending participant-requested invitation.
func (c *Client) RequestJoin(ctx context.Context, teamID int64) (models.Invitation, error) {
	var inv models.Invitation
	err := c.do(ctx, request{method: http.MethodPost, route: "/teams/{id}/request-join", path: teamPath(teamID, "/request-join")}, &inv)
	return inv, err
}

// ListTeamInvitations returns every invitation of a team. Captain only.
func (c *Client) ListTeamInvitations(ctx context.Context, teamID int64) ([]models.Invitation, error) {
	var invitations []models.Invitation
	err := c.do(ctx, request{method: http.MethodGet, route: "/teams/{id}/invitations", path: teamPath(teamID, "/invitations")}, &invitations)
	return invitations, err
}

// MyInvitations returns invitations addressed to the caller.
func (c *Client) MyInvitations(ctx context.Context, hackathonID int64) ([]models.Invitation, error) {
	var invitations []models.Invitation
	err := c.do(ctx, request{
		method: http.MethodGet,
		route:  "/teams/invitations/my",
		path:   "/teams/invitations/my",
		query:  hackathonQuery(hackathonID),
	}, &invitations)
	return invitations, err
}

func (c *Client) ApproveInvitation(ctx context.Context, invitationID int64) error {
	return c.do(ctx, request{method: http.MethodPost, route: "/invitations/{id}/approve", path: invitationPath(invitationID, "approve")}, nil)
}

func (c *Client) DeclineInvitation(ctx context.Context, invitationID int64) error {
	return c.do(ctx, request{method: http.MethodPost, route: "/invitations/{id}/decline", path: invitationPath(invitationID, "decline")}, nil)
}
