package repositories

import (
	"bytes"
	"encoding/json"
	"fmt"

	"postboard/app/models"
)

const (
	// Key prefix for posts in key-value backends
	PostKeyPrefix = "post:"
)

// postKey keeps keys in collection order under byte-wise iteration
func postKey(position int) []byte {
	return []byte(fmt.Sprintf("%s%010d", PostKeyPrefix, position))
}

// EncodePosts encodes the collection the way it is stored on disk: a JSON
// array, two-space indented, with HTML and non-ASCII characters left as is.
func EncodePosts(posts []*models.Post) ([]byte, error) {
	out := make([]*models.Post, 0, len(posts))
	for _, p := range posts {
		if p == nil {
			continue
		}
		p.Normalize()
		out = append(out, p)
	}
	return marshalEntity(out, "  ")
}

// marshalEntity marshals an entity to JSON without HTML escaping
func marshalEntity(entity interface{}, indent string) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", indent)
	if err := enc.Encode(entity); err != nil {
		return nil, fmt.Errorf("failed to marshal entity: %w", err)
	}
	return buf.Bytes(), nil
}

// DecodePosts decodes a stored collection. Null entries are dropped and
// every post gets a non-nil comment list.
func DecodePosts(data []byte) ([]*models.Post, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return []*models.Post{}, nil
	}
	var raw []*models.Post
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to unmarshal posts: %w", err)
	}
	posts := make([]*models.Post, 0, len(raw))
	for _, p := range raw {
		if p == nil {
			continue
		}
		p.Normalize()
		posts = append(posts, p)
	}
	return posts, nil
}

// unmarshalPost decodes a single stored post
func unmarshalPost(data []byte) (*models.Post, error) {
	var post models.Post
	if err := json.Unmarshal(data, &post); err != nil {
		return nil, fmt.Errorf("failed to unmarshal post: %w", err)
	}
	post.Normalize()
	return &post, nil
}
