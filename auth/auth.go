package auth

import (
	"context"

	"github.com/techblogs/skillfeed/client"
	"github.com/techblogs/skillfeed/session"
	Logger "github.com/techblogs/skillfeed/utils/log"
)

// Service turns API auth responses into session lifecycles.
type Service struct {
	api     *client.Client
	session *session.Session
}

func NewService(api *client.Client, sess *session.Session) *Service {
	return &Service{api: api, session: sess}
}

// LoginWithPassword authenticates with email/password and begins a session
// from the identity payload.
func (s *Service) LoginWithPassword(ctx context.Context, email, password string) error {
	user, err := s.api.Login(ctx, email, password)
	if err != nil {
		return err
	}
	Logger.Log.Infof("logged in as %s", user.Id)
	return s.session.Begin(user)
}

// Register creates an account and begins a session with it.
func (s *Service) Register(ctx context.Context, name, email, password string) error {
	user, err := s.api.Register(ctx, name, email, password)
	if err != nil {
		return err
	}
	return s.session.Begin(user)
}

// Logout destroys the session and its persisted identity.
func (s *Service) Logout() error {
	return s.session.End()
}
