package types

import (
	"time"
)

type User struct {
	Id           int       `json:"id"`
	Username     string    `json:"username"`
	EmailAddress string    `json:"email"`
	FirstName    string    `json:"first_name"`
	LastName     string    `json:"last_name"`
	PhoneNumber  string    `json:"phone_number"`
	IsOnline     bool      `json:"is_online"`
	CreatedAt    time.Time `json:"created_at,omitempty"`
	UpdatedAt    time.Time `json:"updated_at,omitempty"`
}

type Conversation struct {
	Id           int       `json:"id"`
	Name         string    `json:"name"`
	Participants []User    `json:"participants"`
	LastMessage  *Message  `json:"last_message"`
	MessageCount int       `json:"message_count"`
	CreatedAt    time.Time `json:"created_at,omitempty"`
	UpdatedAt    time.Time `json:"updated_at,omitempty"`
}

// ConversationDetail is a conversation together with its recent messages.
type ConversationDetail struct {
	Conversation
	Messages []Message `json:"messages"`
}

type Message struct {
	Id             int       `json:"id"`
	Sender         User      `json:"sender"`
	ConversationId int       `json:"conversation_id"`
	Content        string    `json:"content"`
	Timestamp      time.Time `json:"timestamp"`
	IsRead         bool      `json:"is_read"`
}

// StatusResponse is returned by actions that do not produce a resource.
type StatusResponse struct {
	Message string `json:"message"`
	Updated *int64 `json:"updated,omitempty"`
}
