package services

import "fmt"

// Messages returned to API clients
const (
	MsgPostFieldsRequired  = "title and body required"
	MsgCommentTextRequired = "comment text required"
	MsgPostNotFound        = "post not found"
)

// ValidationError reports a missing or empty required field
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// NotFoundError reports a reference to a post that does not exist
type NotFoundError struct {
	PostID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s: %s", MsgPostNotFound, e.PostID)
}
