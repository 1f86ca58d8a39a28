package client

import (
	"context"
	"net/url"

	"github.com/techblogs/skillfeed/model"
)

func (c *Client) GetUser(ctx context.Context, userId string) (model.User, error) {
	body, err := c.getBody(ctx, "/api/users/"+url.PathEscape(userId), nil)
	if err != nil {
		return model.User{}, err
	}
	return model.DecodeUser(body)
}

func (c *Client) ListUsers(ctx context.Context) ([]model.User, error) {
	body, err := c.getBody(ctx, "/api/users", nil)
	if err != nil {
		return nil, err
	}
	return model.DecodeUsers(body)
}

// UpdateUser replaces the mutable profile fields of a user record.
func (c *Client) UpdateUser(ctx context.Context, userId, name, email, profilePic string) (model.User, error) {
	payload := map[string]string{
		"name":       name,
		"email":      email,
		"profilePic": profilePic,
	}
	body, err := c.sendJson(ctx, "PUT", "/api/users/"+url.PathEscape(userId), payload)
	if err != nil {
		return model.User{}, err
	}
	return model.DecodeUser(body)
}

func (c *Client) FollowUser(ctx context.Context, userId, targetId string) error {
	_, err := c.sendJson(ctx, "PUT", "/api/users/"+url.PathEscape(userId)+"/follow/"+url.PathEscape(targetId), nil)
	return err
}

func (c *Client) UnfollowUser(ctx context.Context, userId, targetId string) error {
	_, err := c.sendJson(ctx, "PUT", "/api/users/"+url.PathEscape(userId)+"/unfollow/"+url.PathEscape(targetId), nil)
	return err
}

// ChangePassword sends the new password as a raw text body. The endpoint
// binds the body verbatim, a JSON-quoted string would be stored quotes
// included and break the next login.
func (c *Client) ChangePassword(ctx context.Context, userId, newPassword string) error {
	_, err := c.sendText(ctx, "PUT", "/api/users/"+url.PathEscape(userId)+"/password", newPassword)
	return err
}
