package database

import "context"

type ChatRepository interface {
	Ping(ctx context.Context) error

	CreateAccount(ctx context.Context, params CreateAccountParams) (User, error)
	UpdateAccount(ctx context.Context, params UpdateAccountParams) (User, error)
	GetAccountById(ctx context.Context, accountId int) (User, error)
	GetAccountByEmail(ctx context.Context, email string) (User, error)
	ListAccounts(ctx context.Context, params ListAccountsParams) ([]User, error)
	SetOnlineStatus(ctx context.Context, accountId int, online bool) error
	DeleteAccount(ctx context.Context, accountId int) error

	CreateConversation(ctx context.Context, params CreateConversationParams) (Conversation, error)
	GetConversation(ctx context.Context, conversationId int) (Conversation, error)
	ListConversations(ctx context.Context, accountId int) ([]Conversation, error)
	UpdateConversation(ctx context.Context, conversationId int, name string) (Conversation, error)
	DeleteConversation(ctx context.Context, conversationId int) error
	IsParticipant(ctx context.Context, conversationId, accountId int) (bool, error)
	AddParticipant(ctx context.Context, conversationId, accountId int) (bool, error)
	RemoveParticipant(ctx context.Context, conversationId, accountId int) (bool, error)

	CreateMessage(ctx context.Context, params CreateMessageParams) (Message, error)
	GetMessage(ctx context.Context, messageId int) (Message, error)
	ListMessages(ctx context.Context, params ListMessagesParams) ([]Message, error)
	UpdateMessage(ctx context.Context, params UpdateMessageParams) (Message, error)
	DeleteMessage(ctx context.Context, messageId int) error
	MarkMessageRead(ctx context.Context, messageId int) error
	MarkConversationRead(ctx context.Context, conversationId, readerId int) (int64, error)
}
