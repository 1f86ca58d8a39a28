package model

import "time"

/*

Comment belongs to exactly one post.

Id: server-assigned primary identifier, "_id" on the wire for old records
PostId: owning post
UserId: comment author. Unlike posts, comment author ids never drifted, so
	ownership checks on comments are a strict id match with no name fallback.
UserName: author display name captured at creation time
Content: non-empty text
CreatedAt: creation timestamp, implicit ordering

*/

type Comment struct {
	Id        string    `json:"id"`
	PostId    string    `json:"postId"`
	UserId    string    `json:"userId"`
	UserName  string    `json:"userName"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}

func (c *Comment) IsValid() bool {
	return c.Id != "" && c.PostId != "" && c.Content != ""
}
