package gateway

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/stanstork/hackmatch/internal/models"
)

func teamPath(teamID int64, suffix string) string {
	return "/teams/" + strconv.FormatInt(teamID, 10) + suffix
}

func hackathonQuery(hackathonID int64) url.Values {
	if hackathonID <= 0 {
		return nil
	}
	return url.Values{"hackathon_id": []string{strconv.FormatInt(hackathonID, 10)}}
}

// ListTeams lists team summaries, optionally restricted to one hackathon.
func (c *Client) ListTeams(ctx context.Context, hackathonID int64) ([]models.TeamSummary, error) {
	var teams []models.TeamSummary
	err := c.do(ctx, request{
		method: http.MethodGet,
		route:  "/teams",
		path:   "/teams",
		query:  hackathonQuery(hackathonID),
	}, &teams)
	return teams, err
}

func (c *Client) GetTeam(ctx context.Context, teamID int64) (models.Team, error) {
	var team models.Team
	err := c.do(ctx, request{method: http.MethodGet, route: "/teams/{id}", path: teamPath(teamID, "")}, &team)
	return team, err
}

func (c *Client) CreateTeam(ctx context.Context, in models.CreateTeamRequest) (models.Team, error) {
	var team models.Team
	err := c.do(ctx, request{method: http.MethodPost, route: "/teams/create", path: "/teams/create", body: in}, &team)
	return team, err
}

func (c *Client) UpdateTeam(ctx context.Context, teamID int64, in models.UpdateTeamRequest) (models.Team, error) {
	var team models.Team
	err := c.do(ctx, request{method: http.MethodPut, route: "/teams/{id}", path: teamPath(teamID, ""), body: in}, &team)
	return team, err
}

func (c *Client) DeleteTeam(ctx context.Context, teamID int64) error {
	return c.do(ctx, request{method: http.MethodDelete, route: "/teams/{id}", path: teamPath(teamID, "")}, nil)
}

// EnterTeam joins a team directly with its password.
func (c *Client) EnterTeam(ctx context.Context, teamID int64, password string) (models.Team, error) {
	var team models.Team
	err := c.do(ctx, request{
		method: http.MethodPost,
		route:  "/teams/{id}/enter",
		path:   teamPath(teamID, "/enter"),
		body:   map[string]string{"password": password},
	}, &team)
	return team, err
}

func (c *Client) LeaveTeam(ctx context.Context, teamID int64) (models.Team, error) {
	var team models.Team
	err := c.do(ctx, request{method: http.MethodPost, route: "/teams/{id}/leave", path: teamPath(teamID, "/leave")}, &team)
	return team, err
}

func (c *Client) RemoveParticipant(ctx context.Context, teamID int64, participantID string) (models.Team, error) {
	var team models.Team
	err := c.do(ctx, request{
		method: http.MethodPost,
		route:  "/teams/{id}/remove-participant/{participantId}",
		path:   teamPath(teamID, "/remove-participant/"+url.PathEscape(participantID)),
	}, &team)
	return team, err
}
