package workflow

import (
	"context"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/techblogs/skillfeed/client"
	"github.com/techblogs/skillfeed/model"
	"github.com/techblogs/skillfeed/utils"
	Logger "github.com/techblogs/skillfeed/utils/log"
)

// ErrNotCommentOwner rejects edits/deletes on another author's comment.
// Unlike posts there is no name fallback: comment author ids never drifted,
// ownership is a strict identifier match.
var ErrNotCommentOwner = errors.New("comments can only be changed by their author")

const guestUserId = "guest"

// LoadComments fetches the comments of one post plus the profile of every
// unique non-guest commenter. The API has no per-post endpoint so the full
// collection is filtered client-side. Profile lookups run concurrently and
// degrade to a placeholder on failure.
func (m *Manager) LoadComments(ctx context.Context, postId string) ([]model.Comment, map[string]model.User, error) {
	all, err := m.api.ListComments(ctx)
	if err != nil {
		return nil, nil, err
	}

	comments := make([]model.Comment, 0)
	for _, c := range all {
		if c.PostId == postId {
			comments = append(comments, c)
		}
	}

	userIds := make([]string, 0, len(comments))
	for _, c := range comments {
		if c.UserId != guestUserId {
			userIds = append(userIds, c.UserId)
		}
	}
	userIds = utils.UniqueNonEmpty(userIds)

	users := make(map[string]model.User, len(userIds))
	var mu sync.Mutex
	group, ctx := errgroup.WithContext(ctx)
	for _, userId := range userIds {
		userId := userId
		group.Go(func() error {
			user, err := m.api.GetUser(ctx, userId)
			if err != nil {
				Logger.Log.Warnf("failed to resolve commenter %s: %v", userId, err)
				user = model.User{Id: userId, Name: "Unknown User"}
			}
			mu.Lock()
			users[userId] = user
			mu.Unlock()
			return nil
		})
	}
	group.Wait()

	return comments, users, nil
}

// SubmitComment posts a new comment on behalf of the acting identity, or as
// a guest when there is none.
func (m *Manager) SubmitComment(ctx context.Context, postId, content string) (model.Comment, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return model.Comment{}, &client.ValidationError{Reason: "comment content is required"}
	}

	userId := guestUserId
	userName := "Guest"
	if identity := m.session.Identity(); identity != nil && identity.Id != "" {
		userId = identity.Id
		userName = identity.Name
	}

	return m.api.CreateComment(ctx, postId, userId, userName, content)
}

// EditComment updates a comment's content after a strict ownership check.
func (m *Manager) EditComment(ctx context.Context, comment model.Comment, content string) (model.Comment, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return model.Comment{}, &client.ValidationError{Reason: "comment content is required"}
	}
	identity, err := m.requireIdentity()
	if err != nil {
		return model.Comment{}, err
	}
	if comment.UserId != identity.Id {
		return model.Comment{}, ErrNotCommentOwner
	}

	if err := m.api.UpdateComment(ctx, comment.Id, content); err != nil {
		return model.Comment{}, err
	}
	comment.Content = content
	return comment, nil
}

// DeleteComment removes an owned comment.
func (m *Manager) DeleteComment(ctx context.Context, comment model.Comment) error {
	identity, err := m.requireIdentity()
	if err != nil {
		return err
	}
	if comment.UserId != identity.Id {
		return ErrNotCommentOwner
	}
	return m.api.DeleteComment(ctx, comment.Id, identity.Id)
}
