package client

import (
	"context"

	"github.com/techblogs/skillfeed/model"
)

// Login exchanges email/password credentials for the identity payload.
func (c *Client) Login(ctx context.Context, email, password string) (model.User, error) {
	payload := map[string]string{
		"email":    email,
		"password": password,
	}
	body, err := c.sendJson(ctx, "POST", "/api/auth/login", payload)
	if err != nil {
		return model.User{}, err
	}
	return model.DecodeUser(body)
}

func (c *Client) Register(ctx context.Context, name, email, password string) (model.User, error) {
	payload := map[string]string{
		"name":     name,
		"email":    email,
		"password": password,
	}
	body, err := c.sendJson(ctx, "POST", "/api/auth/register", payload)
	if err != nil {
		return model.User{}, err
	}
	return model.DecodeUser(body)
}

// GoogleLogin registers or looks up a user from Google profile claims. The
// API matches on email and returns the existing record when there is one.
func (c *Client) GoogleLogin(ctx context.Context, name, email, profilePic string) (model.User, error) {
	payload := map[string]string{
		"name":       name,
		"email":      email,
		"profilePic": profilePic,
	}
	body, err := c.sendJson(ctx, "POST", "/api/auth/google", payload)
	if err != nil {
		return model.User{}, err
	}
	return model.DecodeUser(body)
}
