package profiles

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/techblogs/skillfeed/client"
	"github.com/techblogs/skillfeed/model"
	"github.com/techblogs/skillfeed/session"
	Logger "github.com/techblogs/skillfeed/utils/log"
)

// Service covers the user-profile screens: viewing profiles, following and
// unfollowing, and editing the acting user's own record. Follow state lives
// server-side, after every toggle the acting user record is re-fetched and
// the session identity refreshed from it.
type Service struct {
	api     *client.Client
	session *session.Session
}

func NewService(api *client.Client, sess *session.Session) *Service {
	return &Service{api: api, session: sess}
}

func (s *Service) requireIdentity() (*session.Identity, error) {
	identity := s.session.Identity()
	if identity == nil || identity.Id == "" {
		return nil, &client.AuthorizationError{Message: "please log in first"}
	}
	return identity, nil
}

func (s *Service) Profile(ctx context.Context, userId string) (model.User, error) {
	return s.api.GetUser(ctx, userId)
}

func (s *Service) AllProfiles(ctx context.Context) ([]model.User, error) {
	return s.api.ListUsers(ctx)
}

// Follow follows target and refreshes the session identity from the
// re-fetched user record.
func (s *Service) Follow(ctx context.Context, targetId string) error {
	return s.toggleFollow(ctx, targetId, true)
}

func (s *Service) Unfollow(ctx context.Context, targetId string) error {
	return s.toggleFollow(ctx, targetId, false)
}

func (s *Service) toggleFollow(ctx context.Context, targetId string, follow bool) error {
	identity, err := s.requireIdentity()
	if err != nil {
		return err
	}

	if follow {
		err = s.api.FollowUser(ctx, identity.Id, targetId)
	} else {
		err = s.api.UnfollowUser(ctx, identity.Id, targetId)
	}
	if err != nil {
		return err
	}

	user, err := s.api.GetUser(ctx, identity.Id)
	if err != nil {
		return err
	}
	return s.session.RefreshFrom(user)
}

// UpdateProfile saves the acting user's mutable fields and refreshes the
// session identity from the server's response.
func (s *Service) UpdateProfile(ctx context.Context, name, email, profilePic string) error {
	identity, err := s.requireIdentity()
	if err != nil {
		return err
	}
	if name == "" {
		name = identity.Name
	}
	if email == "" {
		email = identity.Email
	}
	if profilePic == "" {
		profilePic = identity.ProfilePic
	}
	user, err := s.api.UpdateUser(ctx, identity.Id, name, email, profilePic)
	if err != nil {
		return err
	}
	return s.session.RefreshFrom(user)
}

func (s *Service) ChangePassword(ctx context.Context, newPassword string) error {
	identity, err := s.requireIdentity()
	if err != nil {
		return err
	}
	return s.api.ChangePassword(ctx, identity.Id, newPassword)
}

// ResolveUsers batch-fetches user records concurrently, degrading each
// failure to a placeholder entry so one missing account never hides a whole
// follower list.
func (s *Service) ResolveUsers(ctx context.Context, userIds []string) []model.User {
	users := make([]model.User, len(userIds))
	var mu sync.Mutex
	group, ctx := errgroup.WithContext(ctx)
	for i, userId := range userIds {
		i, userId := i, userId
		group.Go(func() error {
			user, err := s.api.GetUser(ctx, userId)
			if err != nil {
				Logger.Log.Warnf("failed to resolve user %s: %v", userId, err)
				user = model.User{Id: userId, Name: "Unknown User"}
			}
			mu.Lock()
			users[i] = user
			mu.Unlock()
			return nil
		})
	}
	group.Wait()
	return users
}
