package gateway

import (
	"context"
	"net/http"
	"strconv"

	"github.com/stanstork/hackmatch/internal/models"
)

// AdminCookie is the operator credential set by AdminLogin.
const AdminCookie = "admin_access_token"

type messageResponse struct {
	Message string `json:"message"`
}

// AdminLogin signs in an operator. The email is trimmed and lower-cased
// before it is sent.
func (c *Client) AdminLogin(ctx context.Context, email, password string) error {
	return c.do(ctx, request{
		method: http.MethodPost,
		route:  "/admin/login",
		path:   "/admin/login",
		body:   models.AdminLoginRequest{Email: models.NormalizeEmail(email), Password: password},
	}, &messageResponse{})
}

// AdminLogout drops the operator credential; the participant session is kept.
func (c *Client) AdminLogout(ctx context.Context) error {
	defer c.dropCookie(AdminCookie)
	return c.do(ctx, request{method: http.MethodPost, route: "/admin/logout", path: "/admin/logout"}, nil)
}

func (c *Client) CreateHackathon(ctx context.Context, in models.HackathonInput) (models.Hackathon, error) {
	var hackathon models.Hackathon
	err := c.do(ctx, request{
		method: http.MethodPost,
		route:  "/hackathons/create_hack",
		path:   "/hackathons/create_hack",
		body:   in,
	}, &hackathon)
	return hackathon, err
}

func (c *Client) UpdateHackathon(ctx context.Context, hackathonID int64, in models.HackathonInput) (models.Hackathon, error) {
	var hackathon models.Hackathon
	err := c.do(ctx, request{
		method: http.MethodPost,
		route:  "/hackathons/{id}/update_hack",
		path:   "/hackathons/" + strconv.FormatInt(hackathonID, 10) + "/update_hack",
		body:   in,
	}, &hackathon)
	return hackathon, err
}

func (c *Client) DeleteHackathon(ctx context.Context, hackathonID int64) error {
	return c.do(ctx, request{
		method: http.MethodPost,
		route:  "/hackathons/{id}/delete_hack",
		path:   "/hackathons/" + strconv.FormatInt(hackathonID, 10) + "/delete_hack",
	}, &messageResponse{})
}

// HasCookie reports whether the jar holds a cookie called name for the API host.
func (c *Client) HasCookie(name string) bool {
	if c.jar == nil {
		return false
	}
	for _, cookie := range c.jar.Cookies(c.baseURL) {
		if cookie.Name == name {
			return true
		}
	}
	return false
}

func (c *Client) dropCookie(name string) {
	if c.jar == nil {
		return
	}
	c.jar.SetCookies(c.baseURL, []*http.Cookie{{Name: name, Path: "/", MaxAge: -1}})
}
