package services

import (
	"fmt"
	"strings"

	"postboard/app/metrics"
	"postboard/app/models"
	"postboard/app/repositories"
	"postboard/logger"
)

// CreatePostInput is the payload accepted when creating a post
type CreatePostInput struct {
	Title string `json:"title" validate:"required"`
	Body  string `json:"body" validate:"required"`
}

// PostService handles business logic for blog posts
type PostService struct {
	store     repositories.PostStore
	publisher Publisher
	ids       *IDGenerator
	logger    *logger.Logger
	metrics   *metrics.Metrics
}

// NewPostService creates a new PostService. publisher, log and m may be nil.
func NewPostService(store repositories.PostStore, publisher Publisher, log *logger.Logger, m *metrics.Metrics) *PostService {
	if log == nil {
		log = logger.Nop()
	}
	return &PostService{
		store:     store,
		publisher: publisherOrNop(publisher),
		ids:       &IDGenerator{},
		logger:    log.WithComponent("post_service"),
		metrics:   m,
	}
}

// ListPosts returns every post in stored order
func (s *PostService) ListPosts() ([]*models.Post, error) {
	posts, err := s.store.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to load posts: %w", err)
	}
	return posts, nil
}

// CreatePost trims and validates the input, then appends a new post
func (s *PostService) CreatePost(input CreatePostInput) (*models.Post, error) {
	input.Title = strings.TrimSpace(input.Title)
	input.Body = strings.TrimSpace(input.Body)
	if err := validate.Struct(input); err != nil {
		return nil, &ValidationError{Message: MsgPostFieldsRequired}
	}

	var created *models.Post
	err := s.store.Update(func(posts []*models.Post) ([]*models.Post, error) {
		t := now()
		created = &models.Post{
			ID:       s.ids.Next(t, posts),
			Title:    input.Title,
			Body:     input.Body,
			Created:  t.UnixMilli(),
			Comments: []*models.Comment{},
		}
		return append(posts, created), nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to save post: %w", err)
	}

	s.metrics.PostCreated()
	s.publisher.PostCreated(created)
	s.logger.Infow("Post created", "post_id", created.ID)
	return created, nil
}

// StoreHealth reports the state of the underlying store
func (s *PostService) StoreHealth() repositories.StoreHealth {
	return s.store.Health()
}
