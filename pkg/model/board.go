package model

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	MaxPostSubjectLength = 128
	MaxPostBodyLength    = 4096
)

var ErrPostSubjectEmpty = errors.New("post subject must not be empty")
var ErrPostSubjectTooLong = fmt.Errorf("post subject must not exceed %d characters", MaxPostSubjectLength)
var ErrPostBodyEmpty = errors.New("post body must not be empty")
var ErrPostBodyTooLong = fmt.Errorf("post body must not exceed %d characters", MaxPostBodyLength)

// Post represents a public board message. A Post with ParentID 0 is a
// top-level thread; otherwise it is a reply to the post with that id.
type Post struct {
	ID        int64     `json:"id"`
	AuthorID  int64     `json:"author_id"`
	Subject   string    `json:"subject"`
	Body      string    `json:"body"`
	ParentID  int64     `json:"parent_id"` // 0 = top-level post
	CreatedAt time.Time `json:"created_at"`

	// AuthorName is joined in by list/read queries; not a column of its own.
	AuthorName string `json:"author_name,omitempty"`
}

// Validate checks subject and body limits before insertion.
func (p *Post) Validate() error {
	if strings.TrimSpace(p.Subject) == "" {
		return ErrPostSubjectEmpty
	}
	if utf8.RuneCountInString(p.Subject) > MaxPostSubjectLength {
		return ErrPostSubjectTooLong
	}
	if strings.TrimSpace(p.Body) == "" {
		return ErrPostBodyEmpty
	}
	if utf8.RuneCountInString(p.Body) > MaxPostBodyLength {
		return ErrPostBodyTooLong
	}
	return nil
}
