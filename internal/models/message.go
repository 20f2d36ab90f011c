package models

import (
	"errors"
	"strings"
	"time"
)

// Validation errors for chat messages.
var (
	ErrMessageBodyRequired = errors.New("message body is required")
	ErrMessageBodyTooLong  = errors.New("message body must be 4000 characters or less")
)

// Message is a chat message exchanged between a client and their assigned
// agent. Seq is a monotonically increasing cursor used by the polling
// endpoint: a poll with after=N returns messages with Seq > N in order.
type Message struct {
	Seq        int64     `json:"seq"`
	ID         string    `json:"id"`
	ClientID   string    `json:"client_id"`
	SenderID   string    `json:"sender_id"`
	SenderRole Role      `json:"sender_role"`
	Body       string    `json:"body"`
	CreatedAt  time.Time `json:"created_at"`
}

// Validate checks the message fields.
func (m *Message) Validate() error {
	body := strings.TrimSpace(m.Body)
	if body == "" {
		return ErrMessageBodyRequired
	}
	if len(body) > 4000 {
		return ErrMessageBodyTooLong
	}
	return nil
}
