package database

import (
	"context"

	"github.com/stretchr/testify/mock"
)

type MockChatRepository struct {
	mock.Mock
}

func (m *MockChatRepository) Ping(ctx context.Context) error {
	args := m.Called()
	return args.Error(0)
}
func (m *MockChatRepository) CreateAccount(ctx context.Context, params CreateAccountParams) (User, error) {
	args := m.Called(params)
	return args.Get(0).(User), args.Error(1)
}
func (m *MockChatRepository) UpdateAccount(ctx context.Context, params UpdateAccountParams) (User, error) {
	args := m.Called(params)
	return args.Get(0).(User), args.Error(1)
}
func (m *MockChatRepository) GetAccountById(ctx context.Context, accountId int) (User, error) {
	args := m.Called(accountId)
	return args.Get(0).(User), args.Error(1)
}
func (m *MockChatRepository) GetAccountByEmail(ctx context.Context, email string) (User, error) {
	args := m.Called(email)
	return args.Get(0).(User), args.Error(1)
}
func (m *MockChatRepository) ListAccounts(ctx context.Context, params ListAccountsParams) ([]User, error) {
	args := m.Called(params)
	return args.Get(0).([]User), args.Error(1)
}
func (m *MockChatRepository) SetOnlineStatus(ctx context.Context, accountId int, online bool) error {
	args := m.Called(accountId, online)
	return args.Error(0)
}
func (m *MockChatRepository) DeleteAccount(ctx context.Context, accountId int) error {
	args := m.Called(accountId)
	return args.Error(0)
}
func (m *MockChatRepository) CreateConversation(ctx context.Context, params CreateConversationParams) (Conversation, error) {
	args := m.Called(params)
	return args.Get(0).(Conversation), args.Error(1)
}
func (m *MockChatRepository) GetConversation(ctx context.Context, conversationId int) (Conversation, error) {
	args := m.Called(conversationId)
	return args.Get(0).(Conversation), args.Error(1)
}
func (m *MockChatRepository) ListConversations(ctx context.Context, accountId int) ([]Conversation, error) {
	args := m.Called(accountId)
	return args.Get(0).([]Conversation), args.Error(1)
}
func (m *MockChatRepository) UpdateConversation(ctx context.Context, conversationId int, name string) (Conversation, error) {
	args := m.Called(conversationId, name)
	return args.Get(0).(Conversation), args.Error(1)
}
func (m *MockChatRepository) DeleteConversation(ctx context.Context, conversationId int) error {
	args := m.Called(conversationId)
	return args.Error(0)
}
func (m *MockChatRepository) IsParticipant(ctx context.Context, conversationId, accountId int) (bool, error) {
	args := m.Called(conversationId, accountId)
	return args.Bool(0), args.Error(1)
}
func (m *MockChatRepository) AddParticipant(ctx context.Context, conversationId, accountId int) (bool, error) {
	args := m.Called(conversationId, accountId)
	return args.Bool(0), args.Error(1)
}
func (m *MockChatRepository) RemoveParticipant(ctx context.Context, conversationId, accountId int) (bool, error) {
	args := m.Called(conversationId, accountId)
	return args.Bool(0), args.Error(1)
}
func (m *MockChatRepository) CreateMessage(ctx context.Context, params CreateMessageParams) (Message, error) {
	args := m.Called(params)
	return args.Get(0).(Message), args.Error(1)
}
func (m *MockChatRepository) GetMessage(ctx context.Context, messageId int) (Message, error) {
	args := m.Called(messageId)
	return args.Get(0).(Message), args.Error(1)
}
func (m *MockChatRepository) ListMessages(ctx context.Context, params ListMessagesParams) ([]Message, error) {
	args := m.Called(params)
	return args.Get(0).([]Message), args.Error(1)
}
func (m *MockChatRepository) UpdateMessage(ctx context.Context, params UpdateMessageParams) (Message, error) {
	args := m.Called(params)
	return args.Get(0).(Message), args.Error(1)
}
func (m *MockChatRepository) DeleteMessage(ctx context.Context, messageId int) error {
	args := m.Called(messageId)
	return args.Error(0)
}
func (m *MockChatRepository) MarkMessageRead(ctx context.Context, messageId int) error {
	args := m.Called(messageId)
	return args.Error(0)
}
func (m *MockChatRepository) MarkConversationRead(ctx context.Context, conversationId, readerId int) (int64, error) {
	args := m.Called(conversationId, readerId)
	return args.Get(0).(int64), args.Error(1)
}
