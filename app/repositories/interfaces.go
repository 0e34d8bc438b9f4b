package repositories

import "postboard/app/models"

// UpdateFunc receives the current collection and returns the collection to
// persist. Returning an error aborts the update without writing anything.
type UpdateFunc func(posts []*models.Post) ([]*models.Post, error)

// StoreHealth reports which backend is in use and whether the last read had
// to fall back to an empty collection because the stored data was unreadable.
type StoreHealth struct {
	Backend  string `json:"backend"`
	Degraded bool   `json:"degraded"`
}

// PostStore persists the whole post collection as a unit
type PostStore interface {
	// Init makes sure the backing storage exists. It never alters existing content.
	Init() error
	// ReadAll returns every post in creation order. Unreadable data yields an
	// empty collection rather than an error.
	ReadAll() ([]*models.Post, error)
	// WriteAll atomically replaces the whole collection.
	WriteAll(posts []*models.Post) error
	// Update runs a serialised read-modify-write of the collection.
	Update(fn UpdateFunc) error
	Health() StoreHealth
	Close() error
}
