package mock

import (
	"encoding/json"
	"sync"

	"postboard/app/models"
	"postboard/app/repositories"
)

// PostStore is an in-memory repositories.PostStore. It stores deep copies so
// callers cannot mutate the stored collection behind its back.
type PostStore struct {
	posts []*models.Post
	mutex sync.RWMutex

	// ReadErr, when set, is returned by ReadAll and Update.
	ReadErr error
	// WriteErr, when set, is returned by every write.
	WriteErr error
	// Writes counts successful and failed write attempts.
	Writes int
}

var _ repositories.PostStore = (*PostStore)(nil)

func NewPostStore(posts ...*models.Post) *PostStore {
	return &PostStore{posts: clonePosts(posts)}
}

func (m *PostStore) Init() error {
	return nil
}

func (m *PostStore) ReadAll() ([]*models.Post, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	if m.ReadErr != nil {
		return nil, m.ReadErr
	}
	return clonePosts(m.posts), nil
}

func (m *PostStore) WriteAll(posts []*models.Post) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	return m.writeLocked(posts)
}

func (m *PostStore) Update(fn repositories.UpdateFunc) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if m.ReadErr != nil {
		return m.ReadErr
	}
	next, err := fn(clonePosts(m.posts))
	if err != nil {
		return err
	}
	return m.writeLocked(next)
}

func (m *PostStore) Health() repositories.StoreHealth {
	return repositories.StoreHealth{Backend: "memory"}
}

func (m *PostStore) Close() error {
	return nil
}

// Clear drops every stored post
func (m *PostStore) Clear() {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.posts = nil
	m.Writes = 0
}

func (m *PostStore) writeLocked(posts []*models.Post) error {
	m.Writes++
	if m.WriteErr != nil {
		return m.WriteErr
	}
	m.posts = clonePosts(posts)
	return nil
}

func clonePosts(posts []*models.Post) []*models.Post {
	out := make([]*models.Post, 0, len(posts))
	for _, p := range posts {
		if p == nil {
			continue
		}
		data, err := json.Marshal(p)
		if err != nil {
			panic(err)
		}
		var c models.Post
		if err := json.Unmarshal(data, &c); err != nil {
			panic(err)
		}
		c.Normalize()
		out = append(out, &c)
	}
	return out
}
