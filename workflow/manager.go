package workflow

import (
	"context"
	"strings"

	"github.com/jinzhu/copier"
	"github.com/pkg/errors"

	"github.com/techblogs/skillfeed/client"
	"github.com/techblogs/skillfeed/media"
	"github.com/techblogs/skillfeed/model"
	"github.com/techblogs/skillfeed/session"
	Logger "github.com/techblogs/skillfeed/utils/log"
)

// Scope selects which posts a Manager owns.
type Scope int

const (
	// ScopeAll is the global feed.
	ScopeAll Scope = iota
	// ScopeAuthor is the acting identity's own posts.
	ScopeAuthor
)

// Manager owns the in-memory ordered post list for one scope and mediates
// every create/update/delete against the API, keeping the local list
// consistent without a full reload. It is single-goroutine by design, the
// same way the screen it backs is: operations are user-triggered and never
// race each other from the same client, the API arbitrates conflicting
// concurrent edits from elsewhere.
type Manager struct {
	api     *client.Client
	session *session.Session
	scope   Scope

	posts    []model.Post
	playback map[string]bool
	dialog   *dialog
}

func NewManager(api *client.Client, sess *session.Session, scope Scope) *Manager {
	return &Manager{
		api:      api,
		session:  sess,
		scope:    scope,
		playback: map[string]bool{},
	}
}

// Posts returns the current local post list.
func (m *Manager) Posts() []model.Post {
	out := make([]model.Post, len(m.posts))
	copy(out, m.posts)
	return out
}

func (m *Manager) findPost(postId string) (int, bool) {
	for i := range m.posts {
		if m.posts[i].Id == postId {
			return i, true
		}
	}
	return 0, false
}

func (m *Manager) requireIdentity() (*session.Identity, error) {
	identity := m.session.Identity()
	if identity == nil || identity.Id == "" {
		return nil, &client.AuthorizationError{Message: "please log in first"}
	}
	return identity, nil
}

// effectiveOwnerId resolves the author id an authorization-carrying request
// must send. Historical records were written with ids that no longer match
// the author's account, so when the acting identity's display name matches
// the post's author name case-insensitively the post's own stored id wins,
// preserving edit capability across the drift. Otherwise the acting id is
// used.
func effectiveOwnerId(identity *session.Identity, post model.Post) string {
	if identity.Name != "" && post.UserName != "" &&
		strings.EqualFold(identity.Name, post.UserName) && post.UserId != "" {
		return post.UserId
	}
	return identity.Id
}

// LoadFeed fetches the posts for the manager's scope. For the author scope
// it first queries by id, and when that comes back empty with a known
// display name it falls back to the full feed filtered by case-insensitive
// name match, compensating for posts whose stored author id drifted.
// Failure yields an empty list plus the error, never a panic.
func (m *Manager) LoadFeed(ctx context.Context) ([]model.Post, error) {
	switch m.scope {
	case ScopeAuthor:
		return m.loadAuthorFeed(ctx)
	default:
		posts, err := m.api.ListPosts(ctx)
		if err != nil {
			m.posts = nil
			return nil, err
		}
		m.posts = posts
		return m.Posts(), nil
	}
}

func (m *Manager) loadAuthorFeed(ctx context.Context) ([]model.Post, error) {
	identity, err := m.requireIdentity()
	if err != nil {
		m.posts = nil
		return nil, err
	}

	posts, err := m.api.ListUserPosts(ctx, identity.Id)
	if err != nil {
		m.posts = nil
		return nil, err
	}

	if len(posts) == 0 && identity.Name != "" {
		all, err := m.api.ListPosts(ctx)
		if err != nil {
			m.posts = nil
			return nil, err
		}
		for _, p := range all {
			if strings.EqualFold(p.UserName, identity.Name) {
				posts = append(posts, p)
			}
		}
		if len(posts) > 0 {
			Logger.Log.Infof("found %d posts for %q by name fallback", len(posts), identity.Name)
		}
	}

	m.posts = posts
	return m.Posts(), nil
}

// CreatePost validates locally, submits the multipart payload and prepends
// the server-confirmed post to the local list. Precondition violations
// reject with a descriptive reason before any network call. On success the
// draft set is discarded and its previews released.
func (m *Manager) CreatePost(ctx context.Context, description string, drafts *media.DraftSet) (model.Post, error) {
	if strings.TrimSpace(description) == "" {
		return model.Post{}, &client.ValidationError{Reason: "description is required"}
	}
	if drafts == nil || drafts.Count() == 0 {
		return model.Post{}, &client.ValidationError{Reason: "at least one image or video is required"}
	}

	uploads, err := drafts.Uploads()
	if err != nil {
		return model.Post{}, err
	}

	userName := "Guest User"
	userId := ""
	if identity := m.session.Identity(); identity != nil {
		if identity.Name != "" {
			userName = identity.Name
		}
		userId = identity.Id
	}

	post, err := m.api.CreatePost(ctx, description, userName, userId, uploads)
	if err != nil {
		return model.Post{}, err
	}

	drafts.Close()
	m.posts = append([]model.Post{post}, m.posts...)
	return post, nil
}

// MediaChange describes what an edit does to a post's media sequence:
// keep it untouched, append new files to it, or replace it.
type MediaChange struct {
	keepExisting bool
	drafts       *media.DraftSet
}

// KeepExistingMedia leaves the media sequence untouched, only the
// description changes.
func KeepExistingMedia() MediaChange {
	return MediaChange{keepExisting: true}
}

// AppendMedia keeps the post's media and adds the given drafts after it.
// The combined count is still capped at the per-post limit.
func AppendMedia(drafts *media.DraftSet) MediaChange {
	return MediaChange{keepExisting: true, drafts: drafts}
}

// ReplaceMedia swaps the post's media for the given drafts.
func ReplaceMedia(drafts *media.DraftSet) MediaChange {
	return MediaChange{drafts: drafts}
}

// UpdatePost saves the active edit dialog. Description-only changes issue
// the lightweight update, media changes the multipart one. Local state is
// patched in place only after server confirmation; on failure the dialog
// stays open carrying the error.
func (m *Manager) UpdatePost(ctx context.Context, postId, description string, change MediaChange) (model.Post, error) {
	if err := m.requireDialog(dialogEdit, postId); err != nil {
		return model.Post{}, err
	}
	idx, ok := m.findPost(postId)
	if !ok {
		return model.Post{}, errors.Errorf("no post with id %s", postId)
	}
	if strings.TrimSpace(description) == "" {
		return model.Post{}, m.failDialog(&client.ValidationError{Reason: "description is required"})
	}
	identity, err := m.requireIdentity()
	if err != nil {
		return model.Post{}, m.failDialog(err)
	}
	ownerId := effectiveOwnerId(identity, m.posts[idx])

	switch {
	case change.keepExisting && change.drafts == nil:
		if _, err := m.api.UpdatePostDescription(ctx, postId, description, ownerId); err != nil {
			return model.Post{}, m.failDialog(err)
		}
		m.posts[idx].Description = description

	case change.keepExisting:
		if change.drafts.Count() == 0 {
			return model.Post{}, m.failDialog(&client.ValidationError{Reason: "media to append is required"})
		}
		if len(m.posts[idx].Media)+change.drafts.Count() > media.MaxFilesPerPost {
			return model.Post{}, m.failDialog(&client.ValidationError{Reason: "maximum 3 files allowed"})
		}
		if err := m.submitMediaUpdate(ctx, idx, description, ownerId, true, change.drafts); err != nil {
			return model.Post{}, err
		}

	default:
		if change.drafts == nil || change.drafts.Count() == 0 {
			return model.Post{}, m.failDialog(&client.ValidationError{Reason: "replacement media is required"})
		}
		if err := m.submitMediaUpdate(ctx, idx, description, ownerId, false, change.drafts); err != nil {
			return model.Post{}, err
		}
	}

	m.closeDialog()
	return m.posts[idx], nil
}

func (m *Manager) submitMediaUpdate(ctx context.Context, idx int, description, ownerId string, keepExisting bool, drafts *media.DraftSet) error {
	uploads, err := drafts.Uploads()
	if err != nil {
		return m.failDialog(err)
	}
	updated, err := m.api.UpdatePostMedia(ctx, m.posts[idx].Id, description, ownerId, keepExisting, uploads)
	if err != nil {
		return m.failDialog(err)
	}
	drafts.Close()
	// Responses from the older service omit immutable fields like
	// createdAt, keep the local values for anything empty.
	if err := copier.CopyWithOption(&m.posts[idx], &updated, copier.Option{IgnoreEmpty: true}); err != nil {
		return errors.Wrap(err, "patch post")
	}
	return nil
}

// DeletePost confirms the active delete dialog. The post leaves local
// state only after a successful server response; on error it remains and
// the dialog stays open carrying the error.
func (m *Manager) DeletePost(ctx context.Context, postId string) error {
	if err := m.requireDialog(dialogDelete, postId); err != nil {
		return err
	}
	idx, ok := m.findPost(postId)
	if !ok {
		return errors.Errorf("no post with id %s", postId)
	}
	identity, err := m.requireIdentity()
	if err != nil {
		return m.failDialog(err)
	}
	ownerId := effectiveOwnerId(identity, m.posts[idx])

	if err := m.api.DeletePost(ctx, postId, ownerId); err != nil {
		return m.failDialog(err)
	}

	m.posts = append(m.posts[:idx], m.posts[idx+1:]...)
	m.closeDialog()
	return nil
}

// ClaimReport tallies a reconciliation run.
type ClaimReport struct {
	Matched int
	Claimed int
	Failed  int
}

// ClaimOrphanedPosts finds posts in the full feed whose author name matches
// the acting identity's name but whose stored id does not, and issues one
// claim per match re-linking authorship. Each claim attempt is independent:
// failures are tallied, never abort the batch. The API applies claims
// last-write-wins.
func (m *Manager) ClaimOrphanedPosts(ctx context.Context) (ClaimReport, error) {
	identity, err := m.requireIdentity()
	if err != nil {
		return ClaimReport{}, err
	}
	if identity.Name == "" {
		return ClaimReport{}, &client.ValidationError{Reason: "a display name is required to claim posts"}
	}

	all, err := m.api.ListPosts(ctx)
	if err != nil {
		return ClaimReport{}, err
	}

	var report ClaimReport
	for _, p := range all {
		if !strings.EqualFold(p.UserName, identity.Name) || p.UserId == identity.Id {
			continue
		}
		report.Matched++
		if _, err := m.api.ClaimPost(ctx, p.Id, identity.Id); err != nil {
			Logger.Log.Warnf("failed to claim post %s: %v", p.Id, err)
			report.Failed++
			continue
		}
		report.Claimed++
	}
	Logger.Log.Infof("claimed %d/%d orphaned posts", report.Claimed, report.Matched)
	return report, nil
}

// CountOwnedInFeed reports how many full-feed posts are already linked to
// the acting identity's id, a diagnostic for the "my posts are missing"
// support case.
func (m *Manager) CountOwnedInFeed(ctx context.Context) (int, error) {
	identity, err := m.requireIdentity()
	if err != nil {
		return 0, err
	}
	all, err := m.api.ListPosts(ctx)
	if err != nil {
		return 0, err
	}
	owned := 0
	for _, p := range all {
		if p.UserId == identity.Id {
			owned++
		}
	}
	return owned, nil
}
