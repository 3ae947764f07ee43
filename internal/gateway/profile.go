package gateway

import (
	"context"
	"net/http"
	"net/url"

	"github.com/stanstork/hackmatch/internal/models"
)

// GetProfile fetches the profile of identity.
func (c *Client) GetProfile(ctx context.Context, identity string) (models.Profile, error) {
	var profile models.Profile
	err := c.do(ctx, request{
		method: http.MethodGet,
		route:  "/profile/{identity}",
		path:   "/profile/" + url.PathEscape(identity),
	}, &profile)
	return profile, err
}

// UpdateProfile applies a partial update; omitted fields are unchanged server-side.
func (c *Client) UpdateProfile(ctx context.Context, identity string, patch models.ProfilePatch) (models.Profile, error) {
	var profile models.Profile
	err := c.do(ctx, request{
		method: http.MethodPost,
		route:  "/profile/{identity}",
		path:   "/profile/" + url.PathEscape(identity),
		body:   patch.Normalize(),
	}, &profile)
	return profile, err
}

// ListParticipants returns every registered profile.
func (c *Client) ListParticipants(ctx context.Context) ([]models.Profile, error) {
	var profiles []models.Profile
	err := c.do(ctx, request{method: http.MethodGet, route: "/participants", path: "/participants"}, &profiles)
	return profiles, err
}
