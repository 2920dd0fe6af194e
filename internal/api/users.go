package api

import (
	"context"
	"net/http"

	"fintrack/pkg/models"
)

// Register creates an account. The caller validates the registration first.
func (c *Client) Register(ctx context.Context, r models.Registration) (*models.User, error) {
	req, err := jsonRequest("Register", http.MethodPost, "/users/register", r)
	if err != nil {
		return nil, err
	}
	var out models.User
	if err := c.do(ctx, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Login exchanges credentials for a login response. A 401 matches ErrUnauthorized.
func (c *Client) Login(ctx context.Context, creds models.Credentials) (*models.LoginResponse, error) {
	req, err := jsonRequest("Login", http.MethodPost, "/users/login", creds)
	if err != nil {
		return nil, err
	}
	var out models.LoginResponse
	if err := c.do(ctx, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetUser fetches one user. It is also used to check that a stored session is still accepted.
func (c *Client) GetUser(ctx context.Context, id string) (*models.User, error) {
	var out models.User
	if err := c.do(ctx, request{op: "GetUser", method: http.MethodGet, path: "/users" + pathID(id)}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListUsers fetches every user.
func (c *Client) ListUsers(ctx context.Context) ([]models.User, error) {
	out := []models.User{}
	if err := c.do(ctx, request{op: "ListUsers", method: http.MethodGet, path: "/users"}, &out); err != nil {
		return nil, err
	}
	return out, nil
}
