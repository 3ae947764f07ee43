package gateway

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/stanstork/hackmatch/internal/apierr"
)

type loginByCodeRequest struct {
	Code string `json:"code"`
}

type loginByCodeResponse struct {
	Detail     string `json:"detail"`
	TelegramID string `json:"telegram_id"`
}

// LoginByCode exchanges a one-time code for a confirmed identity. The server
// delivers the session credential as a cookie which the client's jar retains.
// Any rejection of the code is reported as apierr.KindInvalidCode.
func (c *Client) LoginByCode(ctx context.Context, code string) (string, error) {
	req := request{
		method: http.MethodPost,
		route:  "/login-by-code",
		path:   "/login-by-code",
		body:   loginByCodeRequest{Code: strings.TrimSpace(code)},
	}
	var resp loginByCodeResponse
	if err := c.do(ctx, req, &resp); err != nil {
		var e *apierr.Error
		if errors.As(err, &e) {
			switch e.Kind {
			case apierr.KindValidation, apierr.KindUnauthorized, apierr.KindForbidden, apierr.KindNotFound:
				return "", &apierr.Error{Kind: apierr.KindInvalidCode, Status: e.Status, Op: e.Op, Message: e.Message}
			}
		}
		return "", err
	}
	identity := strings.TrimSpace(resp.TelegramID)
	if identity == "" {
		return "", &apierr.Error{Kind: apierr.KindServer, Op: req.op(), Message: "login response carried no identity"}
	}
	return identity, nil
}

// Logout asks the server to invalidate the session credential. Local cookies
// are dropped regardless of the outcome.
func (c *Client) Logout(ctx context.Context) error {
	defer c.ClearCredentials()
	return c.do(ctx, request{method: http.MethodPost, route: "/logout", path: "/logout"}, nil)
}
