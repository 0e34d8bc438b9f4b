package services

import (
	"time"

	"github.com/go-playground/validator/v10"

	"postboard/app/models"
)

var (
	validate = validator.New()

	// now is replaced in tests
	now = time.Now
)

// Publisher is notified after a change has been persisted
type Publisher interface {
	PostCreated(post *models.Post)
	CommentCreated(post *models.Post)
}

type nopPublisher struct{}

func (nopPublisher) PostCreated(*models.Post)    {}
func (nopPublisher) CommentCreated(*models.Post) {}

func publisherOrNop(p Publisher) Publisher {
	if p == nil {
		return nopPublisher{}
	}
	return p
}
