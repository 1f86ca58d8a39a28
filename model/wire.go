package model

import (
	"encoding/json"
	"strconv"
	"time"

	"github.com/pkg/errors"
)

// Wire-level shapes for API payloads. Different backend services wrote the
// same records with different identifier spellings ("id" vs "_id", "userId"
// vs "user_id" vs "authorId"). Everything is normalized into the canonical
// structs here, exactly once, so the rest of the client never checks dual
// fields.

type wireTime struct {
	time.Time
}

func (t *wireTime) UnmarshalJSON(data []byte) error {
	if string(data) == "null" || string(data) == `""` {
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		parsed, err := time.Parse(time.RFC3339, s)
		if err != nil {
			// Tolerate unknown formats, the timestamp is display-only.
			return nil
		}
		t.Time = parsed
		return nil
	}
	// Epoch milliseconds from the older service.
	ms, err := strconv.ParseInt(string(data), 10, 64)
	if err != nil {
		return nil
	}
	t.Time = time.UnixMilli(ms)
	return nil
}

type wireMedia struct {
	Url  string `json:"url"`
	Type string `json:"type"`
}

type wirePost struct {
	Id             string      `json:"id"`
	MongoId        string      `json:"_id"`
	UserId         string      `json:"userId"`
	UserIdSnake    string      `json:"user_id"`
	AuthorId       string      `json:"authorId"`
	UserName       string      `json:"userName"`
	UserProfilePic string      `json:"userProfilePic"`
	Description    string      `json:"description"`
	Media          []wireMedia `json:"media"`
	CreatedAt      wireTime    `json:"createdAt"`
	Comments       []string    `json:"comments"`
}

type wireComment struct {
	Id        string   `json:"id"`
	MongoId   string   `json:"_id"`
	PostId    string   `json:"postId"`
	UserId    string   `json:"userId"`
	UserName  string   `json:"userName"`
	Content   string   `json:"content"`
	CreatedAt wireTime `json:"createdAt"`
}

type wireUser struct {
	Id         string   `json:"id"`
	MongoId    string   `json:"_id"`
	Name       string   `json:"name"`
	Email      string   `json:"email"`
	ProfilePic string   `json:"profilePic"`
	Followers  []string `json:"followers"`
	Following  []string `json:"following"`
}

func firstNonEmpty(candidates ...string) string {
	for _, c := range candidates {
		if c != "" {
			return c
		}
	}
	return ""
}

func (w *wirePost) normalize() Post {
	media := make([]MediaItem, 0, len(w.Media))
	for _, m := range w.Media {
		media = append(media, MediaItem{Url: m.Url, Type: MediaType(m.Type)})
	}
	return Post{
		Id:             firstNonEmpty(w.Id, w.MongoId),
		UserId:         firstNonEmpty(w.UserId, w.UserIdSnake, w.AuthorId),
		UserName:       w.UserName,
		UserProfilePic: w.UserProfilePic,
		Description:    w.Description,
		Media:          media,
		CreatedAt:      w.CreatedAt.Time,
		Comments:       w.Comments,
	}
}

func (w *wireComment) normalize() Comment {
	return Comment{
		Id:        firstNonEmpty(w.Id, w.MongoId),
		PostId:    w.PostId,
		UserId:    w.UserId,
		UserName:  w.UserName,
		Content:   w.Content,
		CreatedAt: w.CreatedAt.Time,
	}
}

func (w *wireUser) normalize() User {
	return User{
		Id:         firstNonEmpty(w.Id, w.MongoId),
		Name:       w.Name,
		Email:      w.Email,
		ProfilePic: w.ProfilePic,
		Followers:  w.Followers,
		Following:  w.Following,
	}
}

// DecodePost decodes a single post payload.
func DecodePost(data []byte) (Post, error) {
	var w wirePost
	if err := json.Unmarshal(data, &w); err != nil {
		return Post{}, errors.Wrap(err, "decode post")
	}
	return w.normalize(), nil
}

// DecodePosts decodes an array of posts, dropping entries that fail the
// minimal validity check. It returns the number of dropped entries so the
// caller can log them.
func DecodePosts(data []byte) (posts []Post, dropped int, err error) {
	var ws []wirePost
	if err := json.Unmarshal(data, &ws); err != nil {
		return nil, 0, errors.Wrap(err, "decode posts")
	}
	posts = make([]Post, 0, len(ws))
	for _, w := range ws {
		p := w.normalize()
		if !p.IsValid() {
			dropped++
			continue
		}
		posts = append(posts, p)
	}
	return posts, dropped, nil
}

func DecodeComment(data []byte) (Comment, error) {
	var w wireComment
	if err := json.Unmarshal(data, &w); err != nil {
		return Comment{}, errors.Wrap(err, "decode comment")
	}
	return w.normalize(), nil
}

func DecodeComments(data []byte) ([]Comment, error) {
	var ws []wireComment
	if err := json.Unmarshal(data, &ws); err != nil {
		return nil, errors.Wrap(err, "decode comments")
	}
	comments := make([]Comment, 0, len(ws))
	for _, w := range ws {
		comments = append(comments, w.normalize())
	}
	return comments, nil
}

func DecodeUser(data []byte) (User, error) {
	var w wireUser
	if err := json.Unmarshal(data, &w); err != nil {
		return User{}, errors.Wrap(err, "decode user")
	}
	return w.normalize(), nil
}

func DecodeUsers(data []byte) ([]User, error) {
	var ws []wireUser
	if err := json.Unmarshal(data, &ws); err != nil {
		return nil, errors.Wrap(err, "decode users")
	}
	users := make([]User, 0, len(ws))
	for _, w := range ws {
		users = append(users, w.normalize())
	}
	return users, nil
}
