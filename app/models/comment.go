package models

import "strings"

// NewComment builds a comment from raw user input. The name falls back to
// DefaultCommentName when blank.
func NewComment(name, text string, when int64) *Comment {
	name = strings.TrimSpace(name)
	if name == "" {
		name = DefaultCommentName
	}
	return &Comment{
		Name: name,
		Text: strings.TrimSpace(text),
		When: when,
	}
}

// Validate checks if the comment meets all validation requirements
func (c *Comment) Validate() error {
	return validate.Struct(c)
}
