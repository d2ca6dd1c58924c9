package database

import "time"

type User struct {
	Id           int
	Username     string
	EmailAddress string
	FirstName    string
	LastName     string
	PhoneNumber  string
	IsOnline     bool
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type Conversation struct {
	Id           int
	Name         string
	Participants []User
	MessageCount int
	LastMessage  *Message
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// HasParticipant reports whether userId is in the loaded participant set.
func (c Conversation) HasParticipant(userId int) bool {
	for _, p := range c.Participants {
		if p.Id == userId {
			return true
		}
	}
	return false
}

type Message struct {
	Id             int
	ConversationId int
	Sender         User
	Content        string
	IsRead         bool
	Timestamp      time.Time
}

type CreateAccountParams struct {
	Username     string
	EmailAddress string
	FirstName    string
	LastName     string
	PhoneNumber  string
	PasswordHash string
}

type UpdateAccountParams struct {
	UserId       int
	Username     string
	EmailAddress string
	FirstName    string
	LastName     string
	PhoneNumber  string
	// IsOnline leaves the stored flag unchanged when nil.
	IsOnline *bool
}

type ListAccountsParams struct {
	// ExcludeId omits one account from the result, normally the requester.
	ExcludeId int
	Search    string
}

type CreateConversationParams struct {
	Name           string
	ParticipantIds []int
}

type CreateMessageParams struct {
	ConversationId int
	SenderId       int
	Content        string
}

type ListMessagesParams struct {
	// UserId restricts results to conversations the user participates in.
	UserId int
	// ConversationId narrows results to one conversation when non-zero.
	ConversationId int
	Limit          int
}

type UpdateMessageParams struct {
	MessageId int
	Content   string
	MarkRead  bool
}
