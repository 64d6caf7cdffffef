package api

import (
	"context"

	"github.com/signnatural/academy-cli/internal/model"
)

// LoginRequest is the credentials payload for POST /api/auth/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse carries the issued bearer token and the user profile.
type LoginResponse struct {
	Token string     `json:"token"`
	User  model.User `json:"user"`
}

// Login exchanges credentials for a bearer token. The caller (the app
// layer) stores the result in the session service.
func (c *Client) Login(ctx context.Context, email, password string) (*LoginResponse, error) {
	var resp LoginResponse
	err := c.Post(ctx, "/api/auth/login", LoginRequest{
		Email:    email,
		Password: password,
	}, &resp)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// Logout invalidates the current token server-side. A failure is not
// fatal; the local session is torn down regardless.
func (c *Client) Logout(ctx context.Context) error {
	return c.Post(ctx, "/api/auth/logout", nil, nil)
}

// Me fetches the profile of the authenticated user.
func (c *Client) Me(ctx context.Context) (*model.User, error) {
	var user model.User
	if err := c.Get(ctx, "/api/auth/me", &user); err != nil {
		return nil, err
	}
	return &user, nil
}
