package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostValidation(t *testing.T) {
	tests := []struct {
		name    string
		post    *Post
		wantErr bool
	}{
		{
			name:    "valid post",
			post:    &Post{ID: "1700000000000", Title: "Hi", Body: "World", Created: 1700000000000},
			wantErr: false,
		},
		{
			name:    "missing id",
			post:    &Post{Title: "Hi", Body: "World"},
			wantErr: true,
		},
		{
			name:    "empty title",
			post:    &Post{ID: "1", Title: "", Body: "World"},
			wantErr: true,
		},
		{
			name:    "empty body",
			post:    &Post{ID: "1", Title: "Hi", Body: ""},
			wantErr: true,
		},
		{
			name: "invalid nested comment",
			post: &Post{ID: "1", Title: "Hi", Body: "World", Comments: []*Comment{
				{Name: "Anonymous", Text: ""},
			}},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.post.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestPostAddComment(t *testing.T) {
	post := &Post{ID: "1", Title: "Hi", Body: "World"}

	t.Run("add comment", func(t *testing.T) {
		err := post.AddComment(&Comment{Name: "Ann", Text: "first", When: 1})
		assert.NoError(t, err)
		require.Len(t, post.Comments, 1)
		assert.Equal(t, "first", post.Comments[0].Text)
	})

	t.Run("comments keep append order", func(t *testing.T) {
		require.NoError(t, post.AddComment(&Comment{Name: "Bob", Text: "second", When: 2}))
		require.Len(t, post.Comments, 2)
		assert.Equal(t, "second", post.Comments[1].Text)
	})

	t.Run("add nil comment", func(t *testing.T) {
		err := post.AddComment(nil)
		assert.Error(t, err)
		assert.Len(t, post.Comments, 2)
	})
}

func TestPostJSON(t *testing.T) {
	t.Run("numeric id is coerced to string", func(t *testing.T) {
		var post Post
		err := json.Unmarshal([]byte(`{"id": 1700000000123, "title": "Hi", "body": "World", "created": 1700000000123}`), &post)
		require.NoError(t, err)
		assert.Equal(t, PostID("1700000000123"), post.ID)
	})

	t.Run("string id is kept", func(t *testing.T) {
		var post Post
		require.NoError(t, json.Unmarshal([]byte(`{"id": "abc"}`), &post))
		assert.Equal(t, PostID("abc"), post.ID)
	})

	t.Run("non scalar id is rejected", func(t *testing.T) {
		var post Post
		assert.Error(t, json.Unmarshal([]byte(`{"id": {"x": 1}}`), &post))
	})

	t.Run("normalized post encodes empty comments", func(t *testing.T) {
		post := &Post{ID: "1", Title: "Hi", Body: "World", Created: 5}
		post.Normalize()
		data, err := json.Marshal(post)
		require.NoError(t, err)
		assert.JSONEq(t, `{"id":"1","title":"Hi","body":"World","created":5,"comments":[]}`, string(data))
	})
}
