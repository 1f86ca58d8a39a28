package model

import (
	"time"
)

type MediaType string

const (
	MediaTypeImage MediaType = "image"
	MediaTypeVideo MediaType = "video"
)

// MediaItem is one entry of a post's media sequence. The sequence order is
// the display order, there is no reordering operation.
type MediaItem struct {
	Url  string    `json:"url"`
	Type MediaType `json:"type"`
}

func (m MediaItem) IsValid() bool {
	if m.Url == "" {
		return false
	}
	return m.Type == MediaTypeImage || m.Type == MediaTypeVideo
}

/*

Post is a single feed entry as the API reports it, after identifier
normalization.

Id: server-assigned primary identifier. The API historically reported it as
	either "id" or "_id" depending on which service wrote the record, the
	wire decoder collapses both into this field.
UserId: author's user id captured at creation time. May disagree with the
	author's current account id for old records, see the claim flow.
UserName: author display name captured at creation time
UserProfilePic: author avatar url captured at creation time
Description: non-empty text body
Media: 1..3 media items, order is display order
CreatedAt: immutable creation timestamp
Comments: server-owned comment id collection, may be empty

*/

type Post struct {
	Id             string      `json:"id"`
	UserId         string      `json:"userId"`
	UserName       string      `json:"userName"`
	UserProfilePic string      `json:"userProfilePic"`
	Description    string      `json:"description"`
	Media          []MediaItem `json:"media"`
	CreatedAt      time.Time   `json:"createdAt"`
	Comments       []string    `json:"comments"`
}

// IsValid reports whether a decoded post carries the minimal fields the
// client requires to render it. Posts failing this check are dropped during
// load rather than surfaced as errors.
func (p *Post) IsValid() bool {
	if p.Id == "" || p.Description == "" {
		return false
	}
	for _, m := range p.Media {
		if !m.IsValid() {
			return false
		}
	}
	return true
}
