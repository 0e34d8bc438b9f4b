package models

import (
	"errors"
)

// Validate checks if the post meets all validation requirements
func (p *Post) Validate() error {
	return validate.Struct(p)
}

// Normalize replaces a missing comment list with an empty one so the post
// always encodes "comments": [] rather than null.
func (p *Post) Normalize() {
	if p.Comments == nil {
		p.Comments = []*Comment{}
	}
}

// AddComment appends a comment to the post
func (p *Post) AddComment(comment *Comment) error {
	if comment == nil {
		return errors.New("comment cannot be nil")
	}

	p.Normalize()
	p.Comments = append(p.Comments, comment)
	return nil
}
