package api

import (
	"database/sql"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/npezzotti/go-chats/internal/database"
	"github.com/npezzotti/go-chats/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func TestUsers_List(t *testing.T) {
	mockRepo := &database.MockChatRepository{}
	defer mockRepo.AssertExpectations(t)
	mockRepo.On("ListAccounts", database.ListAccountsParams{ExcludeId: 1, Search: "ali"}).
		Return([]database.User{{Id: 2, Username: "alice"}, {Id: 3, Username: "malik"}}, nil).Once()

	app := newTestApp(t, mockRepo)
	rr := httptest.NewRecorder()
	app.users(rr, newRequest(t, http.MethodGet, "/api/users/?search=ali", nil, 1))

	assert.Equal(t, http.StatusOK, rr.Code)
	users := decodeBody[[]types.User](t, rr)
	assert.Len(t, users, 2)
	for _, u := range users {
		assert.NotEqual(t, 1, u.Id, "expected requester to be excluded")
	}
	assert.NotContains(t, rr.Body.String(), "password", "expected password hash to stay private")
}

func TestUsers_ListEmpty(t *testing.T) {
	mockRepo := &database.MockChatRepository{}
	defer mockRepo.AssertExpectations(t)
	mockRepo.On("ListAccounts", database.ListAccountsParams{ExcludeId: 1}).Return([]database.User{}, nil).Once()

	app := newTestApp(t, mockRepo)
	rr := httptest.NewRecorder()
	app.users(rr, newRequest(t, http.MethodGet, "/api/users/", nil, 1))

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "[]", strings.TrimSpace(rr.Body.String()))
}

func TestUsers_Create(t *testing.T) {
	created := database.User{
		Id:           5,
		Username:     "bob",
		EmailAddress: "bob@example.com",
		PhoneNumber:  "5551234",
	}

	tcases := []struct {
		name        string
		body        any
		mockErr     error
		callsDb     bool
		expectedErr *ApiError
	}{
		{
			name:    "creates a user without password",
			body:    CreateUserRequest{Username: "bob", Email: "bob@example.com", PhoneNumber: "5551234"},
			callsDb: true,
		},
		{
			name:        "malformed body",
			body:        "[",
			expectedErr: NewBadRequestError(),
		},
		{
			name: "missing required fields",
			body: CreateUserRequest{},
			expectedErr: NewValidationError(ValidationErrors{
				"username": "username is required",
				"email":    "email is required",
			}),
		},
		{
			name: "phone number too long",
			body: CreateUserRequest{Username: "bob", Email: "bob@example.com", PhoneNumber: "1234567890123456"},
			expectedErr: NewValidationError(ValidationErrors{
				"phone_number": "phone number is too long",
			}),
		},
		{
			name: "display name email rejected",
			body: CreateUserRequest{Username: "bob", Email: "Bob <bob@example.com>"},
			expectedErr: NewValidationError(ValidationErrors{
				"email": "invalid email address",
			}),
		},
		{
			name:    "duplicate username",
			body:    CreateUserRequest{Username: "bob", Email: "bob@example.com"},
			mockErr: &database.ConstraintError{Err: database.ErrDuplicate, Constraint: "accounts_username_key"},
			callsDb: true,
			expectedErr: NewValidationError(ValidationErrors{
				"username": "a user with this username already exists",
			}),
		},
	}

	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			mockRepo := &database.MockChatRepository{}
			defer mockRepo.AssertExpectations(t)

			if tc.callsDb {
				req := tc.body.(CreateUserRequest)
				mockRepo.On("CreateAccount", database.CreateAccountParams{
					Username:     req.Username,
					EmailAddress: req.Email,
					PhoneNumber:  req.PhoneNumber,
				}).Return(created, tc.mockErr).Once()
			}

			app := newTestApp(t, mockRepo)
			rr := httptest.NewRecorder()
			app.users(rr, newRequest(t, http.MethodPost, "/api/users/", tc.body, 1))

			if tc.expectedErr != nil {
				assertApiError(t, rr, tc.expectedErr)
				return
			}

			assert.Equal(t, http.StatusCreated, rr.Code)
			user := decodeBody[types.User](t, rr)
			assert.Equal(t, created.Id, user.Id)
			assert.Equal(t, created.PhoneNumber, user.PhoneNumber)
		})
	}
}

func TestUsers_MethodNotAllowed(t *testing.T) {
	app := newTestApp(t, &database.MockChatRepository{})
	rr := httptest.NewRecorder()
	app.users(rr, newRequest(t, http.MethodDelete, "/api/users/", nil, 1))

	assertApiError(t, rr, NewMethodNotAllowedError())
}

func TestUser_Get(t *testing.T) {
	tcases := []struct {
		name        string
		pathId      string
		mockErr     error
		callsDb     bool
		expectedErr *ApiError
	}{
		{
			name:    "retrieves another user",
			pathId:  "2",
			callsDb: true,
		},
		{
			name:        "unknown user",
			pathId:      "2",
			mockErr:     sql.ErrNoRows,
			callsDb:     true,
			expectedErr: NewNotFoundError(),
		},
		{
			name:        "malformed id",
			pathId:      "abc",
			expectedErr: NewNotFoundError(),
		},
		{
			name:        "db error",
			pathId:      "2",
			mockErr:     errors.New("db error"),
			callsDb:     true,
			expectedErr: NewInternalServerError(nil),
		},
	}

	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			mockRepo := &database.MockChatRepository{}
			defer mockRepo.AssertExpectations(t)

			if tc.callsDb {
				mockRepo.On("GetAccountById", 2).Return(database.User{Id: 2, Username: "alice"}, tc.mockErr).Once()
			}

			app := newTestApp(t, mockRepo)
			req := newRequest(t, http.MethodGet, "/api/users/"+tc.pathId+"/", nil, 1)
			req.SetPathValue("id", tc.pathId)
			rr := httptest.NewRecorder()
			app.user(rr, req)

			if tc.expectedErr != nil {
				assertApiError(t, rr, tc.expectedErr)
				return
			}

			assert.Equal(t, http.StatusOK, rr.Code)
			assert.Equal(t, "alice", decodeBody[types.User](t, rr).Username)
		})
	}
}

func TestUser_Update(t *testing.T) {
	online := true
	body := UpdateUserRequest{
		Username:  "alice",
		Email:     "alice@example.com",
		FirstName: "Alice",
		IsOnline:  &online,
	}
	params := database.UpdateAccountParams{
		UserId:       1,
		Username:     "alice",
		EmailAddress: "alice@example.com",
		FirstName:    "Alice",
		IsOnline:     &online,
	}

	tcases := []struct {
		name        string
		pathId      string
		body        any
		mockErr     error
		callsDb     bool
		expectedErr *ApiError
	}{
		{
			name:    "updates own profile",
			pathId:  "1",
			body:    body,
			callsDb: true,
		},
		{
			name:        "cannot update another user",
			pathId:      "2",
			body:        body,
			expectedErr: NewForbiddenError(),
		},
		{
			name:   "invalid email",
			pathId: "1",
			body:   UpdateUserRequest{Username: "alice", Email: "alice"},
			expectedErr: NewValidationError(ValidationErrors{
				"email": "invalid email address",
			}),
		},
		{
			name:    "email taken",
			pathId:  "1",
			body:    body,
			mockErr: &database.ConstraintError{Err: database.ErrDuplicate, Constraint: "accounts_email_key"},
			callsDb: true,
			expectedErr: NewValidationError(ValidationErrors{
				"email": "a user with this email already exists",
			}),
		},
		{
			name:        "account vanished",
			pathId:      "1",
			body:        body,
			mockErr:     sql.ErrNoRows,
			callsDb:     true,
			expectedErr: NewNotFoundError(),
		},
	}

	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			mockRepo := &database.MockChatRepository{}
			defer mockRepo.AssertExpectations(t)

			if tc.callsDb {
				mockRepo.On("UpdateAccount", params).Return(database.User{
					Id:           1,
					Username:     "alice",
					EmailAddress: "alice@example.com",
					FirstName:    "Alice",
					IsOnline:     true,
				}, tc.mockErr).Once()
			}

			app := newTestApp(t, mockRepo)
			req := newRequest(t, http.MethodPut, "/api/users/"+tc.pathId+"/", tc.body, 1)
			req.SetPathValue("id", tc.pathId)
			rr := httptest.NewRecorder()
			app.user(rr, req)

			if tc.expectedErr != nil {
				assertApiError(t, rr, tc.expectedErr)
				return
			}

			assert.Equal(t, http.StatusOK, rr.Code)
			user := decodeBody[types.User](t, rr)
			assert.Equal(t, "Alice", user.FirstName)
			assert.True(t, user.IsOnline)
		})
	}
}

func TestUser_UpdateKeepsOnlineStatus(t *testing.T) {
	mockRepo := &database.MockChatRepository{}
	defer mockRepo.AssertExpectations(t)
	mockRepo.On("UpdateAccount", database.UpdateAccountParams{
		UserId:       1,
		Username:     "alice",
		EmailAddress: "alice@example.com",
	}).Return(database.User{Id: 1, Username: "alice", IsOnline: true}, nil).Once()

	app := newTestApp(t, mockRepo)
	req := newRequest(t, http.MethodPut, "/api/users/1/", `{"username": "alice", "email": "alice@example.com"}`, 1)
	req.SetPathValue("id", "1")
	rr := httptest.NewRecorder()
	app.user(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.True(t, decodeBody[types.User](t, rr).IsOnline, "expected omitted is_online to keep the stored value")
}

func TestUser_Delete(t *testing.T) {
	t.Run("deletes own account", func(t *testing.T) {
		mockRepo := &database.MockChatRepository{}
		defer mockRepo.AssertExpectations(t)
		mockRepo.On("DeleteAccount", 1).Return(nil).Once()

		app := newTestApp(t, mockRepo)
		req := newRequest(t, http.MethodDelete, "/api/users/1/", nil, 1)
		req.SetPathValue("id", "1")
		rr := httptest.NewRecorder()
		app.user(rr, req)

		assert.Equal(t, http.StatusNoContent, rr.Code)
		assert.Empty(t, rr.Body.String())
		cookie := findCookie(rr, tokenCookieKey)
		if assert.NotNil(t, cookie, "expected session cookie to be cleared") {
			assert.Equal(t, -1, cookie.MaxAge)
		}
	})

	t.Run("cannot delete another user", func(t *testing.T) {
		mockRepo := &database.MockChatRepository{}
		defer mockRepo.AssertExpectations(t)

		app := newTestApp(t, mockRepo)
		req := newRequest(t, http.MethodDelete, "/api/users/2/", nil, 1)
		req.SetPathValue("id", "2")
		rr := httptest.NewRecorder()
		app.user(rr, req)

		assertApiError(t, rr, NewForbiddenError())
		mockRepo.AssertNotCalled(t, "DeleteAccount", mock.Anything)
	})
}
