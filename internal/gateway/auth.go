package gateway

import (
	"context"
	"errors"
	"net/http"

	"hospital-desk/internal/model"
)

type AuthResponse struct {
	User        model.User `json:"user"`
	AccessToken string     `json:"access_token"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (c *Client) Login(ctx context.Context, email, password string) (*AuthResponse, error) {
	out := &AuthResponse{}
	err := c.do(ctx, call{
		method: http.MethodPost,
		path:   "/auth/login",
		body:   loginRequest{Email: email, Password: password},
		out:    out,
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Register(ctx context.Context, p model.RegisterProfile) (*AuthResponse, error) {
	out := &AuthResponse{}
	err := c.do(ctx, call{
		method: http.MethodPost,
		path:   "/auth/register",
		body:   p,
		out:    out,
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// the backend wraps the user in "data"; older builds send it bare
type meResponse struct {
	Data *model.User `json:"data"`
	model.User
}

func (c *Client) Me(ctx context.Context) (*model.User, error) {
	out := &meResponse{}
	if err := c.do(ctx, call{method: http.MethodGet, path: "/auth/me", out: out}); err != nil {
		return nil, err
	}
	if out.Data != nil {
		return out.Data, nil
	}
	if out.User.ID == 0 && out.User.Email == "" {
		return nil, errors.New("gateway: /auth/me returned no user")
	}
	u := out.User
	return &u, nil
}

func (c *Client) Logout(ctx context.Context) error {
	return c.do(ctx, call{method: http.MethodPost, path: "/auth/logout"})
}
