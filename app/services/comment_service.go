package services

import (
	"errors"
	"fmt"
	"strings"

	"postboard/app/metrics"
	"postboard/app/models"
	"postboard/app/repositories"
	"postboard/logger"
)

// CreateCommentInput is the payload accepted when commenting on a post
type CreateCommentInput struct {
	Name string `json:"name"`
	Text string `json:"text" validate:"required"`
}

// CommentService handles business logic for comments
type CommentService struct {
	store     repositories.PostStore
	publisher Publisher
	logger    *logger.Logger
	metrics   *metrics.Metrics
}

// NewCommentService creates a new CommentService. publisher, log and m may be nil.
func NewCommentService(store repositories.PostStore, publisher Publisher, log *logger.Logger, m *metrics.Metrics) *CommentService {
	if log == nil {
		log = logger.Nop()
	}
	return &CommentService{
		store:     store,
		publisher: publisherOrNop(publisher),
		logger:    log.WithComponent("comment_service"),
		metrics:   m,
	}
}

// CreateComment appends a comment to the first post whose id matches postID
// and returns the updated post.
func (s *CommentService) CreateComment(postID string, input CreateCommentInput) (*models.Post, error) {
	input.Text = strings.TrimSpace(input.Text)
	if err := validate.Struct(input); err != nil {
		return nil, &ValidationError{Message: MsgCommentTextRequired}
	}

	var updated *models.Post
	err := s.store.Update(func(posts []*models.Post) ([]*models.Post, error) {
		for _, p := range posts {
			if p.ID.String() != postID {
				continue
			}
			if err := p.AddComment(models.NewComment(input.Name, input.Text, now().UnixMilli())); err != nil {
				return nil, err
			}
			updated = p
			return posts, nil
		}
		return nil, &NotFoundError{PostID: postID}
	})

	var notFound *NotFoundError
	if errors.As(err, &notFound) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to save comment: %w", err)
	}

	s.metrics.CommentCreated()
	s.publisher.CommentCreated(updated)
	s.logger.Infow("Comment added", "post_id", updated.ID, "comments", len(updated.Comments))
	return updated, nil
}
