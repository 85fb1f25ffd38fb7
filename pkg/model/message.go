package model

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

const MessageMaxBodyLength = 2000

var ErrMessageBodyTooLong = fmt.Errorf("message body exceeds %d characters", MessageMaxBodyLength)
var ErrMessageBodyEmpty = errors.New("message body cannot be empty")

// PrivateMessage is a stored user-to-user message.
type PrivateMessage struct {
	ID        int64     `json:"id"`
	FromID    int64     `json:"from_id"`
	ToID      int64     `json:"to_id"`
	Body      string    `json:"body"`
	Read      bool      `json:"read"`
	CreatedAt time.Time `json:"created_at"`

	// SenderName is joined in by list/read queries.
	SenderName string `json:"sender_name,omitempty"`
}

// Validate checks the body limits before insertion.
func (m *PrivateMessage) Validate() error {
	if strings.TrimSpace(m.Body) == "" {
		return ErrMessageBodyEmpty
	}
	if utf8.RuneCountInString(m.Body) > MessageMaxBodyLength {
		return ErrMessageBodyTooLong
	}
	return nil
}

// ChatMessage is one line of the live public chat. Chat history is held in
// memory only and lost on restart, like the pinboard chat it replaces.
type ChatMessage struct {
	Sender string
	Body   string
	SentAt time.Time
}

// String renders a chat line the way clients display it.
func (m ChatMessage) String() string {
	return "[" + m.Sender + "] " + m.Body + " (" + m.SentAt.Format("15:04:05") + ")"
}
