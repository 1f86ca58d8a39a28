package client

import (
	"context"
	"net/url"

	"github.com/techblogs/skillfeed/model"
)

// ListComments fetches the whole comment collection. The API has no
// per-post comment endpoint, callers filter by post id client-side.
func (c *Client) ListComments(ctx context.Context) ([]model.Comment, error) {
	body, err := c.getBody(ctx, "/api/comments", nil)
	if err != nil {
		return nil, err
	}
	return model.DecodeComments(body)
}

func (c *Client) CreateComment(ctx context.Context, postId, userId, userName, content string) (model.Comment, error) {
	payload := map[string]string{
		"postId":   postId,
		"userId":   userId,
		"userName": userName,
		"content":  content,
	}
	body, err := c.sendJson(ctx, "POST", "/api/comments", payload)
	if err != nil {
		return model.Comment{}, err
	}
	return model.DecodeComment(body)
}

func (c *Client) UpdateComment(ctx context.Context, commentId, content string) error {
	payload := map[string]string{"content": content}
	_, err := c.sendJson(ctx, "PUT", "/api/comments/"+url.PathEscape(commentId), payload)
	return err
}

// DeleteComment carries the acting user id in the path, the API enforces
// strict author equality for comments.
func (c *Client) DeleteComment(ctx context.Context, commentId, userId string) error {
	return c.delete(ctx, "/api/comments/"+url.PathEscape(commentId)+"/"+url.PathEscape(userId), nil)
}
