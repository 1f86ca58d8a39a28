package client

import (
	"context"
	"encoding/json"
	"net/url"
	"strconv"

	"github.com/techblogs/skillfeed/model"
	Logger "github.com/techblogs/skillfeed/utils/log"
)

// ListPosts fetches the global feed. Malformed entries are dropped and
// logged, never surfaced as errors.
func (c *Client) ListPosts(ctx context.Context) ([]model.Post, error) {
	body, err := c.getBody(ctx, "/api/posts", nil)
	if err != nil {
		return nil, err
	}
	posts, dropped, err := model.DecodePosts(body)
	if err != nil {
		return nil, err
	}
	if dropped > 0 {
		Logger.Log.Warnf("dropped %d malformed posts from feed", dropped)
	}
	return posts, nil
}

// ListUserPosts fetches the posts addressed to a single author id.
func (c *Client) ListUserPosts(ctx context.Context, userId string) ([]model.Post, error) {
	body, err := c.getBody(ctx, "/api/users/"+url.PathEscape(userId)+"/posts", nil)
	if err != nil {
		return nil, err
	}
	posts, dropped, err := model.DecodePosts(body)
	if err != nil {
		return nil, err
	}
	if dropped > 0 {
		Logger.Log.Warnf("dropped %d malformed posts for user %s", dropped, userId)
	}
	return posts, nil
}

func (c *Client) GetPost(ctx context.Context, postId string) (model.Post, error) {
	body, err := c.getBody(ctx, "/api/posts/"+url.PathEscape(postId), nil)
	if err != nil {
		return model.Post{}, err
	}
	return model.DecodePost(body)
}

// CreatePost submits a new post as multipart form data. userId is optional,
// the oldest records were written before the API started storing it.
func (c *Client) CreatePost(ctx context.Context, description, userName, userId string, files []MediaUpload) (model.Post, error) {
	fields := map[string]string{
		"description": description,
		"userName":    userName,
	}
	if userId != "" {
		fields["userId"] = userId
	}
	body, err := c.postMultipart(ctx, "/api/posts", fields, files)
	if err != nil {
		return model.Post{}, err
	}
	return model.DecodePost(body)
}

// UpdatePostDescription is the lightweight description-only update.
func (c *Client) UpdatePostDescription(ctx context.Context, postId, description, userId string) (model.Post, error) {
	payload := map[string]string{
		"description": description,
		"userId":      userId,
	}
	body, err := c.sendJson(ctx, "PUT", "/api/posts/"+url.PathEscape(postId), payload)
	if err != nil {
		return model.Post{}, err
	}
	return model.DecodePost(body)
}

// UpdatePostMedia updates a post's description together with its media set.
// keepExisting preserves the media already on the post, new files are
// appended to or replace it depending on the flag.
func (c *Client) UpdatePostMedia(ctx context.Context, postId, description, userId string, keepExisting bool, files []MediaUpload) (model.Post, error) {
	fields := map[string]string{
		"description":       description,
		"userId":            userId,
		"keepExistingMedia": strconv.FormatBool(keepExisting),
	}
	body, err := c.postMultipart(ctx, "/api/posts/"+url.PathEscape(postId)+"/update-with-media", fields, files)
	if err != nil {
		return model.Post{}, err
	}
	return model.DecodePost(body)
}

// ClaimPost re-links an orphaned post's authorship to userId. The API
// applies it last-write-wins, there is no conflict detection.
func (c *Client) ClaimPost(ctx context.Context, postId, userId string) (model.Post, error) {
	payload := map[string]string{"userId": userId}
	body, err := c.sendJson(ctx, "PUT", "/api/posts/"+url.PathEscape(postId)+"/claim", payload)
	if err != nil {
		return model.Post{}, err
	}
	return model.DecodePost(body)
}

// DeletePost removes a post, carrying the resolved author id as a query
// parameter for the API-side ownership check.
func (c *Client) DeletePost(ctx context.Context, postId, userId string) error {
	query := url.Values{}
	query.Set("userId", userId)
	return c.delete(ctx, "/api/posts/"+url.PathEscape(postId), query)
}

// TestConnection hits the connectivity probe endpoint.
func (c *Client) TestConnection(ctx context.Context) (map[string]string, error) {
	body, err := c.getBody(ctx, "/api/test", nil)
	if err != nil {
		return nil, err
	}
	var status map[string]string
	if err := json.Unmarshal(body, &status); err != nil {
		return nil, &NetworkError{Err: err}
	}
	return status, nil
}
