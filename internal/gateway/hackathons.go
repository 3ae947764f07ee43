package gateway

import (
	"context"
	"net/http"
	"strconv"

	"github.com/stanstork/hackmatch/internal/models"
)

func (c *Client) ListHackathons(ctx context.Context) ([]models.Hackathon, error) {
	var hackathons []models.Hackathon
	err := c.do(ctx, request{method: http.MethodGet, route: "/hackathons", path: "/hackathons"}, &hackathons)
	return hackathons, err
}

func (c *Client) GetHackathon(ctx context.Context, hackathonID int64) (models.Hackathon, error) {
	var hackathon models.Hackathon
	err := c.do(ctx, request{
		method: http.MethodGet,
		route:  "/hackathons/{id}",
		path:   "/hackathons/" + strconv.FormatInt(hackathonID, 10),
	}, &hackathon)
	return hackathon, err
}
