package session

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/techblogs/skillfeed/model"
)

func newTestStore(t *testing.T) *FileStore {
	return NewFileStore(filepath.Join(t.TempDir(), "storage.json"))
}

func TestBeginPersistsAndSurvivesReopen(t *testing.T) {
	store := newTestStore(t)
	s, err := Open(store)
	require.NoError(t, err)
	require.False(t, s.Authenticated())

	require.NoError(t, s.Begin(model.User{
		Id: "u1", Name: "Bob", Email: "bob@example.com", Following: []string{"u2"},
	}))
	require.True(t, s.Authenticated())

	reopened, err := Open(store)
	require.NoError(t, err)
	identity := reopened.Identity()
	require.NotNil(t, identity)
	require.Equal(t, "u1", identity.Id)
	require.Equal(t, "Bob", identity.Name)
	require.True(t, identity.IsFollowing("u2"))
}

func TestBeginDerivesNameFromEmail(t *testing.T) {
	s, err := Open(newTestStore(t))
	require.NoError(t, err)

	require.NoError(t, s.Begin(model.User{Id: "u1", Email: "ann.lee@example.com"}))
	require.Equal(t, "ann.lee", s.Identity().Name)
}

func TestBeginRejectsMissingId(t *testing.T) {
	s, err := Open(newTestStore(t))
	require.NoError(t, err)
	require.Error(t, s.Begin(model.User{Name: "nobody"}))
	require.False(t, s.Authenticated())
}

func TestIdentitySnapshotDoesNotAlias(t *testing.T) {
	s, err := Open(newTestStore(t))
	require.NoError(t, err)
	require.NoError(t, s.Begin(model.User{Id: "u1", Name: "Bob", Following: []string{"u2"}}))

	snapshot := s.Identity()
	snapshot.Name = "Mallory"
	snapshot.Following[0] = "u999"

	fresh := s.Identity()
	require.Equal(t, "Bob", fresh.Name)
	require.Equal(t, []string{"u2"}, fresh.Following)
}

func TestRefreshFromUpdatesFollowing(t *testing.T) {
	s, err := Open(newTestStore(t))
	require.NoError(t, err)
	require.NoError(t, s.Begin(model.User{Id: "u1", Name: "Bob"}))

	require.NoError(t, s.RefreshFrom(model.User{Id: "u1", Name: "Bob", Following: []string{"u7"}}))
	require.True(t, s.Identity().IsFollowing("u7"))
}

func TestEndDestroysPersistedIdentity(t *testing.T) {
	store := newTestStore(t)
	s, err := Open(store)
	require.NoError(t, err)
	require.NoError(t, s.Begin(model.User{Id: "u1", Name: "Bob"}))

	require.NoError(t, s.End())
	require.False(t, s.Authenticated())
	require.Nil(t, s.Identity())

	reopened, err := Open(store)
	require.NoError(t, err)
	require.False(t, reopened.Authenticated())
}
