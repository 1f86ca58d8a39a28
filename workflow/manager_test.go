package workflow

import (
	"context"
	"encoding/json"
	"fmt"
	"image/color"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/require"

	"github.com/techblogs/skillfeed/client"
	"github.com/techblogs/skillfeed/media"
	"github.com/techblogs/skillfeed/model"
	"github.com/techblogs/skillfeed/session"
)

func newTestSession(t *testing.T, user model.User) *session.Session {
	t.Helper()
	store := session.NewFileStore(filepath.Join(t.TempDir(), "storage.json"))
	s, err := session.Open(store)
	require.NoError(t, err)
	if user.Id != "" {
		require.NoError(t, s.Begin(user))
	}
	return s
}

func writeJson(w http.ResponseWriter, v interface{}) {
	json.NewEncoder(w).Encode(v)
}

func newImageDraftSet(t *testing.T) *media.DraftSet {
	t.Helper()
	set, err := media.NewDraftSet()
	require.NoError(t, err)
	t.Cleanup(set.Close)
	path := filepath.Join(t.TempDir(), "skill.png")
	require.NoError(t, imaging.Save(imaging.New(8, 8, color.NRGBA{A: 255}), path))
	require.NoError(t, set.Add(context.Background(), path))
	return set
}

func TestLoadFeedAuthorFallsBackToNameMatch(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/users/A/posts", func(w http.ResponseWriter, r *http.Request) {
		writeJson(w, []model.Post{})
	})
	mux.HandleFunc("/api/posts", func(w http.ResponseWriter, r *http.Request) {
		writeJson(w, []map[string]string{
			{"id": "p1", "userId": "B", "userName": "bob", "description": "mine, drifted id"},
			{"id": "p2", "userId": "C", "userName": "Carol", "description": "not mine"},
			{"id": "p3", "userId": "B2", "userName": "BOB", "description": "also mine"},
		})
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	m := NewManager(client.NewClient(server.URL), newTestSession(t, model.User{Id: "A", Name: "Bob"}), ScopeAuthor)
	posts, err := m.LoadFeed(context.Background())
	require.NoError(t, err)
	require.Len(t, posts, 2)
	require.Equal(t, "p1", posts[0].Id)
	require.Equal(t, "p3", posts[1].Id)
}

func TestLoadFeedErrorYieldsEmptyListAndError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	m := NewManager(client.NewClient(server.URL), newTestSession(t, model.User{}), ScopeAll)
	posts, err := m.LoadFeed(context.Background())
	require.Error(t, err)
	require.Empty(t, posts)
	require.Empty(t, m.Posts())
}

func TestCreatePostWithoutFilesFailsWithoutNetworkCall(t *testing.T) {
	var calls int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&calls, 1)
	}))
	defer server.Close()

	m := NewManager(client.NewClient(server.URL), newTestSession(t, model.User{Id: "A", Name: "Bob"}), ScopeAuthor)

	set, err := media.NewDraftSet()
	require.NoError(t, err)
	defer set.Close()

	_, err = m.CreatePost(context.Background(), "a description", set)
	require.True(t, client.IsValidation(err))

	_, err = m.CreatePost(context.Background(), "   ", newImageDraftSet(t))
	require.True(t, client.IsValidation(err))

	require.Zero(t, atomic.LoadInt64(&calls))
}

func TestCreatePostPrependsConfirmedPost(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/users/A/posts", func(w http.ResponseWriter, r *http.Request) {
		writeJson(w, []map[string]string{{"id": "old", "userId": "A", "userName": "Bob", "description": "old post"}})
	})
	mux.HandleFunc("/api/posts", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1<<20))
		require.Equal(t, "Bob", r.FormValue("userName"))
		require.Equal(t, "A", r.FormValue("userId"))
		writeJson(w, map[string]interface{}{
			"id": "new", "userId": "A", "userName": "Bob", "description": r.FormValue("description"),
			"media": []map[string]string{{"url": "http://cdn/skill.png", "type": "image"}},
		})
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	m := NewManager(client.NewClient(server.URL), newTestSession(t, model.User{Id: "A", Name: "Bob"}), ScopeAuthor)
	_, err := m.LoadFeed(context.Background())
	require.NoError(t, err)

	set := newImageDraftSet(t)
	preview := set.Drafts()[0].PreviewPath()

	post, err := m.CreatePost(context.Background(), "sharing a skill", set)
	require.NoError(t, err)
	require.Equal(t, "new", post.Id)

	posts := m.Posts()
	require.Len(t, posts, 2)
	require.Equal(t, "new", posts[0].Id)
	// submit releases the draft previews
	require.NoFileExists(t, preview)
	require.Zero(t, set.Count())
}

func TestOwnershipResolutionSendsPostsStoredId(t *testing.T) {
	var updateUserId, deleteUserId string
	mux := http.NewServeMux()
	mux.HandleFunc("/api/posts", func(w http.ResponseWriter, r *http.Request) {
		writeJson(w, []map[string]string{
			{"id": "p1", "userId": "B", "userName": "bob", "description": "drifted"},
			{"id": "p2", "userId": "B", "userName": "bob", "description": "drifted too"},
		})
	})
	mux.HandleFunc("/api/posts/p1", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case "PUT":
			var payload map[string]string
			json.NewDecoder(r.Body).Decode(&payload)
			updateUserId = payload["userId"]
			writeJson(w, map[string]string{"id": "p1", "userId": "B", "userName": "bob", "description": payload["description"]})
		case "DELETE":
			deleteUserId = r.URL.Query().Get("userId")
		}
	})
	mux.HandleFunc("/api/posts/p2", func(w http.ResponseWriter, r *http.Request) {
		deleteUserId = r.URL.Query().Get("userId")
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	// acting identity A named "Bob", posts stored under B named "bob"
	m := NewManager(client.NewClient(server.URL), newTestSession(t, model.User{Id: "A", Name: "Bob"}), ScopeAll)
	_, err := m.LoadFeed(context.Background())
	require.NoError(t, err)

	require.NoError(t, m.BeginEdit("p1"))
	_, err = m.UpdatePost(context.Background(), "p1", "new text", KeepExistingMedia())
	require.NoError(t, err)
	require.Equal(t, "B", updateUserId)

	require.NoError(t, m.BeginDelete("p2"))
	require.NoError(t, m.DeletePost(context.Background(), "p2"))
	require.Equal(t, "B", deleteUserId)
}

func TestOwnershipResolutionFallsBackToActingId(t *testing.T) {
	var deleteUserId string
	mux := http.NewServeMux()
	mux.HandleFunc("/api/posts", func(w http.ResponseWriter, r *http.Request) {
		writeJson(w, []map[string]string{
			{"id": "p1", "userId": "B", "userName": "Carol", "description": "someone else's name"},
		})
	})
	mux.HandleFunc("/api/posts/p1", func(w http.ResponseWriter, r *http.Request) {
		deleteUserId = r.URL.Query().Get("userId")
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	m := NewManager(client.NewClient(server.URL), newTestSession(t, model.User{Id: "A", Name: "Bob"}), ScopeAll)
	_, err := m.LoadFeed(context.Background())
	require.NoError(t, err)

	require.NoError(t, m.BeginDelete("p1"))
	require.NoError(t, m.DeletePost(context.Background(), "p1"))
	require.Equal(t, "A", deleteUserId)
}

func TestUpdatePostKeepExistingPreservesMedia(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/posts", func(w http.ResponseWriter, r *http.Request) {
		writeJson(w, []map[string]interface{}{{
			"id": "p1", "userId": "A", "userName": "Bob", "description": "before",
			"media": []map[string]string{{"url": "http://cdn/keep.jpg", "type": "image"}},
		}})
	})
	mux.HandleFunc("/api/posts/p1", func(w http.ResponseWriter, r *http.Request) {
		writeJson(w, map[string]string{"id": "p1", "description": "after"})
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	m := NewManager(client.NewClient(server.URL), newTestSession(t, model.User{Id: "A", Name: "Bob"}), ScopeAll)
	_, err := m.LoadFeed(context.Background())
	require.NoError(t, err)

	require.NoError(t, m.BeginEdit("p1"))
	updated, err := m.UpdatePost(context.Background(), "p1", "after", KeepExistingMedia())
	require.NoError(t, err)
	require.Equal(t, "after", updated.Description)
	require.Equal(t, []model.MediaItem{{Url: "http://cdn/keep.jpg", Type: model.MediaTypeImage}}, updated.Media)
	_, open := m.EditingPost()
	require.False(t, open)
}

func TestUpdatePostReplaceMediaReflectsNewFilesOnly(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/posts", func(w http.ResponseWriter, r *http.Request) {
		writeJson(w, []map[string]interface{}{{
			"id": "p1", "userId": "A", "userName": "Bob", "description": "before",
			"media": []map[string]string{{"url": "http://cdn/old.jpg", "type": "image"}},
		}})
	})
	mux.HandleFunc("/api/posts/p1/update-with-media", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1<<20))
		require.Equal(t, "false", r.FormValue("keepExistingMedia"))
		require.Len(t, r.MultipartForm.File["files"], 1)
		writeJson(w, map[string]interface{}{
			"id": "p1", "userId": "A", "userName": "Bob", "description": "after",
			"media": []map[string]string{{"url": "http://cdn/new.png", "type": "image"}},
		})
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	m := NewManager(client.NewClient(server.URL), newTestSession(t, model.User{Id: "A", Name: "Bob"}), ScopeAll)
	_, err := m.LoadFeed(context.Background())
	require.NoError(t, err)

	require.NoError(t, m.BeginEdit("p1"))
	updated, err := m.UpdatePost(context.Background(), "p1", "after", ReplaceMedia(newImageDraftSet(t)))
	require.NoError(t, err)
	require.Equal(t, []model.MediaItem{{Url: "http://cdn/new.png", Type: model.MediaTypeImage}}, updated.Media)
	require.Equal(t, updated, m.Posts()[0])
}

func TestUpdatePostAppendMediaKeepsExistingSequence(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/posts", func(w http.ResponseWriter, r *http.Request) {
		writeJson(w, []map[string]interface{}{{
			"id": "p1", "userId": "A", "userName": "Bob", "description": "before",
			"media": []map[string]string{{"url": "http://cdn/old.jpg", "type": "image"}},
		}})
	})
	mux.HandleFunc("/api/posts/p1/update-with-media", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1<<20))
		require.Equal(t, "true", r.FormValue("keepExistingMedia"))
		require.Len(t, r.MultipartForm.File["files"], 1)
		writeJson(w, map[string]interface{}{
			"id": "p1", "userId": "A", "userName": "Bob", "description": "after",
			"media": []map[string]string{
				{"url": "http://cdn/old.jpg", "type": "image"},
				{"url": "http://cdn/new.png", "type": "image"},
			},
		})
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	m := NewManager(client.NewClient(server.URL), newTestSession(t, model.User{Id: "A", Name: "Bob"}), ScopeAll)
	_, err := m.LoadFeed(context.Background())
	require.NoError(t, err)

	require.NoError(t, m.BeginEdit("p1"))
	updated, err := m.UpdatePost(context.Background(), "p1", "after", AppendMedia(newImageDraftSet(t)))
	require.NoError(t, err)
	require.Equal(t, []model.MediaItem{
		{Url: "http://cdn/old.jpg", Type: model.MediaTypeImage},
		{Url: "http://cdn/new.png", Type: model.MediaTypeImage},
	}, updated.Media)
	_, open := m.EditingPost()
	require.False(t, open)
}

func TestUpdatePostAppendMediaRejectsOverCapWithoutNetworkCall(t *testing.T) {
	var updateCalls int32
	mux := http.NewServeMux()
	mux.HandleFunc("/api/posts", func(w http.ResponseWriter, r *http.Request) {
		writeJson(w, []map[string]interface{}{{
			"id": "p1", "userId": "A", "userName": "Bob", "description": "full",
			"media": []map[string]string{
				{"url": "http://cdn/1.jpg", "type": "image"},
				{"url": "http://cdn/2.jpg", "type": "image"},
				{"url": "http://cdn/3.jpg", "type": "image"},
			},
		}})
	})
	mux.HandleFunc("/api/posts/p1/update-with-media", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&updateCalls, 1)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	m := NewManager(client.NewClient(server.URL), newTestSession(t, model.User{Id: "A", Name: "Bob"}), ScopeAll)
	_, err := m.LoadFeed(context.Background())
	require.NoError(t, err)

	require.NoError(t, m.BeginEdit("p1"))
	_, err = m.UpdatePost(context.Background(), "p1", "still full", AppendMedia(newImageDraftSet(t)))
	require.True(t, client.IsValidation(err))
	require.Equal(t, int32(0), atomic.LoadInt32(&updateCalls))

	// the dialog stays open carrying the failure
	postId, open := m.EditingPost()
	require.True(t, open)
	require.Equal(t, "p1", postId)
	require.Error(t, m.DialogError())
	require.Len(t, m.Posts()[0].Media, 3)
}

func TestDeletePostKeepsStateOnServerError(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/posts", func(w http.ResponseWriter, r *http.Request) {
		writeJson(w, []map[string]string{{"id": "p1", "userId": "A", "userName": "Bob", "description": "d"}})
	})
	mux.HandleFunc("/api/posts/p1", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		writeJson(w, map[string]string{"message": "nope"})
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	m := NewManager(client.NewClient(server.URL), newTestSession(t, model.User{Id: "A", Name: "Bob"}), ScopeAll)
	_, err := m.LoadFeed(context.Background())
	require.NoError(t, err)

	require.NoError(t, m.BeginDelete("p1"))
	require.Error(t, m.DeletePost(context.Background(), "p1"))
	require.Len(t, m.Posts(), 1)
	// dialog stays open carrying the error
	require.Error(t, m.DialogError())
	_, open := m.EditingPost()
	require.True(t, open)
}

func TestSingleActiveDialog(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJson(w, []map[string]string{
			{"id": "p1", "userId": "A", "userName": "Bob", "description": "d"},
			{"id": "p2", "userId": "A", "userName": "Bob", "description": "d"},
		})
	}))
	defer server.Close()

	m := NewManager(client.NewClient(server.URL), newTestSession(t, model.User{Id: "A", Name: "Bob"}), ScopeAll)
	_, err := m.LoadFeed(context.Background())
	require.NoError(t, err)

	require.NoError(t, m.BeginEdit("p1"))
	require.Error(t, m.BeginEdit("p2"))
	require.Error(t, m.BeginDelete("p2"))

	m.CancelDialog()
	require.NoError(t, m.BeginDelete("p2"))
}

func TestClaimOrphanedPostsTalliesIndependently(t *testing.T) {
	var claims int64
	mux := http.NewServeMux()
	mux.HandleFunc("/api/posts", func(w http.ResponseWriter, r *http.Request) {
		writeJson(w, []map[string]string{
			{"id": "p1", "userId": "X", "userName": "Bob", "description": "orphan"},
			{"id": "p2", "userId": "Y", "userName": "bob", "description": "orphan"},
			{"id": "p3", "userId": "Z", "userName": "BOB", "description": "orphan"},
			{"id": "p4", "userId": "A", "userName": "Bob", "description": "already mine"},
			{"id": "p5", "userId": "Q", "userName": "Carol", "description": "not mine"},
		})
	})
	claimHandler := func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&claims, 1)
		var payload map[string]string
		json.NewDecoder(r.Body).Decode(&payload)
		require.Equal(t, "A", payload["userId"])
		writeJson(w, map[string]string{"id": "p", "userId": "A", "description": "claimed"})
	}
	for _, p := range []string{"p1", "p2", "p3"} {
		mux.HandleFunc(fmt.Sprintf("/api/posts/%s/claim", p), claimHandler)
	}
	server := httptest.NewServer(mux)
	defer server.Close()

	m := NewManager(client.NewClient(server.URL), newTestSession(t, model.User{Id: "A", Name: "Bob"}), ScopeAuthor)
	report, err := m.ClaimOrphanedPosts(context.Background())
	require.NoError(t, err)
	require.Equal(t, ClaimReport{Matched: 3, Claimed: 3, Failed: 0}, report)
	require.Equal(t, int64(3), atomic.LoadInt64(&claims))
}

func TestClaimOrphanedPostsNeverAbortsOnFailure(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/posts", func(w http.ResponseWriter, r *http.Request) {
		writeJson(w, []map[string]string{
			{"id": "p1", "userId": "X", "userName": "Bob", "description": "orphan"},
			{"id": "p2", "userId": "Y", "userName": "Bob", "description": "orphan"},
		})
	})
	mux.HandleFunc("/api/posts/p1/claim", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	mux.HandleFunc("/api/posts/p2/claim", func(w http.ResponseWriter, r *http.Request) {
		writeJson(w, map[string]string{"id": "p2", "userId": "A", "description": "claimed"})
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	m := NewManager(client.NewClient(server.URL), newTestSession(t, model.User{Id: "A", Name: "Bob"}), ScopeAuthor)
	report, err := m.ClaimOrphanedPosts(context.Background())
	require.NoError(t, err)
	require.Equal(t, ClaimReport{Matched: 2, Claimed: 1, Failed: 1}, report)
}

func TestCountOwnedInFeedCountsByStoredId(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/posts", func(w http.ResponseWriter, r *http.Request) {
		writeJson(w, []map[string]string{
			{"id": "p1", "userId": "A", "userName": "Bob", "description": "mine"},
			{"id": "p2", "userId": "B", "userName": "Bob", "description": "same name, not mine"},
			{"id": "p3", "userId": "A", "userName": "Bob", "description": "also mine"},
		})
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	m := NewManager(client.NewClient(server.URL), newTestSession(t, model.User{Id: "A", Name: "Bob"}), ScopeAll)
	owned, err := m.CountOwnedInFeed(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, owned)
}

func TestTogglePlaybackPausesOtherVideos(t *testing.T) {
	m := NewManager(nil, newTestSession(t, model.User{}), ScopeAll)

	require.True(t, m.TogglePlayback("p1", 0))
	require.True(t, m.IsPlaying("p1", 0))

	require.True(t, m.TogglePlayback("p2", 1))
	require.False(t, m.IsPlaying("p1", 0))
	require.True(t, m.IsPlaying("p2", 1))

	require.False(t, m.TogglePlayback("p2", 1))
	require.False(t, m.IsPlaying("p2", 1))

	m.TogglePlayback("p1", 0)
	m.PlaybackEnded("p1", 0)
	require.False(t, m.IsPlaying("p1", 0))
}
