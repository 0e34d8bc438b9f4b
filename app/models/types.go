package models

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// DefaultCommentName is used when a comment is posted without a name.
const DefaultCommentName = "Anonymous"

// PostID identifies a post. Older files may carry numeric ids; they are
// coerced to their decimal string form when decoded.
type PostID string

// UnmarshalJSON accepts either a JSON string or a JSON number.
func (id *PostID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = PostID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("post id must be a string or a number: %w", err)
	}
	*id = PostID(n.String())
	return nil
}

func (id PostID) String() string {
	return string(id)
}

// Post represents a blog post with comments.
type Post struct {
	ID       PostID     `json:"id" validate:"required"`
	Title    string     `json:"title" validate:"required"`
	Body     string     `json:"body" validate:"required"`
	Created  int64      `json:"created" validate:"gte=0"`
	Comments []*Comment `json:"comments" validate:"dive"`
}

// Comment represents a comment on a blog post.
type Comment struct {
	Name string `json:"name" validate:"required"`
	Text string `json:"text" validate:"required"`
	When int64  `json:"when" validate:"gte=0"`
}
