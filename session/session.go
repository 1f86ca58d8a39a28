package session

import (
	"strings"

	"github.com/jinzhu/copier"
	"github.com/pkg/errors"

	"github.com/techblogs/skillfeed/model"
	"github.com/techblogs/skillfeed/utils"
	Logger "github.com/techblogs/skillfeed/utils/log"
)

/*

Identity is the client-held record of the logged-in user. It is not
server-authoritative: exactly one instance lives for the lifetime of an
authenticated session, created at login, mutated on profile update or
follow/unfollow, destroyed at logout. It survives restarts through the
Store and is invalidated only by explicit logout.

*/

type Identity struct {
	Id         string   `json:"id"`
	Name       string   `json:"name"`
	Email      string   `json:"email"`
	ProfilePic string   `json:"profilePic"`
	Following  []string `json:"following"`
}

func (id *Identity) IsFollowing(target string) bool {
	return utils.ContainsString(id.Following, target)
}

// Session owns the identity lifecycle. Business logic receives a *Session
// explicitly instead of reading ambient storage.
type Session struct {
	store    Store
	identity *Identity
}

// Open restores any persisted identity from the store.
func Open(store Store) (*Session, error) {
	identity, err := store.Load()
	if err != nil {
		return nil, err
	}
	if identity != nil {
		Logger.Log.Infof("restored session for user %s", identity.Id)
	}
	return &Session{store: store, identity: identity}, nil
}

// normalize fills the derivable gaps in a server identity payload: records
// written before the id cleanup may miss a display name, which is then
// derived from the email local part.
func normalize(user model.User) Identity {
	identity := Identity{
		Id:         user.Id,
		Name:       user.Name,
		Email:      user.Email,
		ProfilePic: user.ProfilePic,
		Following:  user.Following,
	}
	if identity.Name == "" && identity.Email != "" {
		identity.Name = strings.SplitN(identity.Email, "@", 2)[0]
	}
	if identity.Following == nil {
		identity.Following = []string{}
	}
	return identity
}

// Begin starts an authenticated session from a login/register response and
// persists it.
func (s *Session) Begin(user model.User) error {
	if user.Id == "" {
		return errors.New("cannot begin session without a user id")
	}
	identity := normalize(user)
	if err := s.store.Save(&identity); err != nil {
		return err
	}
	s.identity = &identity
	return nil
}

// Identity returns a snapshot of the current identity, nil when
// unauthenticated. Mutations on the snapshot never leak into the session.
func (s *Session) Identity() *Identity {
	if s.identity == nil {
		return nil
	}
	var snapshot Identity
	if err := copier.CopyWithOption(&snapshot, s.identity, copier.Option{DeepCopy: true}); err != nil {
		Logger.Log.Errorf("failed to snapshot identity: %v", err)
		return nil
	}
	return &snapshot
}

func (s *Session) Authenticated() bool {
	return s.identity != nil
}

// RefreshFrom replaces the session identity from a freshly fetched user
// record, used after follow/unfollow and profile updates.
func (s *Session) RefreshFrom(user model.User) error {
	if s.identity == nil {
		return errors.New("no active session")
	}
	identity := normalize(user)
	if identity.Id == "" {
		identity.Id = s.identity.Id
	}
	if err := s.store.Save(&identity); err != nil {
		return err
	}
	s.identity = &identity
	return nil
}

// UpdateProfile mutates the profile fields in place and persists.
func (s *Session) UpdateProfile(name, email, profilePic string) error {
	if s.identity == nil {
		return errors.New("no active session")
	}
	updated := *s.identity
	if name != "" {
		updated.Name = name
	}
	if email != "" {
		updated.Email = email
	}
	if profilePic != "" {
		updated.ProfilePic = profilePic
	}
	if err := s.store.Save(&updated); err != nil {
		return err
	}
	s.identity = &updated
	return nil
}

// End destroys the session and its persisted record.
func (s *Session) End() error {
	if err := s.store.Clear(); err != nil {
		return err
	}
	s.identity = nil
	return nil
}
