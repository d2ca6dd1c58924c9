package api

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/npezzotti/go-chats/internal/database"
	"github.com/npezzotti/go-chats/internal/stats"
	"github.com/npezzotti/go-chats/internal/types"
)

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type RegisterRequest struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password"`
}

func (s *ChatApp) writeJson(w http.ResponseWriter, statusCode int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if v == nil {
		return
	}

	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Printf("json encode: %v", err)
	}
}

// writeError sends errResp, logging the cause of server side failures.
func (s *ChatApp) writeError(w http.ResponseWriter, r *http.Request, errResp *ApiError) {
	if errResp.StatusCode >= http.StatusInternalServerError {
		s.log.Printf("%s %s [%s]: %v", r.Method, r.URL.Path, RequestId(r.Context()), errResp)
	}
	s.writeJson(w, errResp.StatusCode, errResp)
}

// lookupError maps a repository read error to a response.
func lookupError(err error) *ApiError {
	if errors.Is(err, sql.ErrNoRows) {
		return NewNotFoundError()
	}
	return NewInternalServerError(err)
}

func decodeJson(r *http.Request, v any) error {
	if r.Body == nil {
		return errors.New("empty body")
	}
	return json.NewDecoder(r.Body).Decode(v)
}

// pathId parses the {id} wildcard. Malformed ids cannot name a resource, so
// callers answer them with 404.
func pathId(r *http.Request) (int, bool) {
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil || id < 1 {
		return 0, false
	}
	return id, true
}

// queryInt parses an optional positive integer query parameter. It returns 0
// when the parameter is absent.
func queryInt(r *http.Request, name string) (int, error) {
	v := strings.TrimSpace(r.URL.Query().Get(name))
	if v == "" {
		return 0, nil
	}

	n, err := strconv.Atoi(v)
	if err != nil || n < 1 {
		return 0, errors.New(name + " must be a positive integer")
	}
	return n, nil
}

func toUser(u database.User) types.User {
	return types.User{
		Id:           u.Id,
		Username:     u.Username,
		EmailAddress: u.EmailAddress,
		FirstName:    u.FirstName,
		LastName:     u.LastName,
		PhoneNumber:  u.PhoneNumber,
		IsOnline:     u.IsOnline,
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}
}

func toUsers(dbUsers []database.User) []types.User {
	users := make([]types.User, 0, len(dbUsers))
	for _, u := range dbUsers {
		users = append(users, toUser(u))
	}
	return users
}

func toMessage(m database.Message) types.Message {
	return types.Message{
		Id:             m.Id,
		Sender:         toUser(m.Sender),
		ConversationId: m.ConversationId,
		Content:        m.Content,
		Timestamp:      m.Timestamp,
		IsRead:         m.IsRead,
	}
}

func toMessages(dbMessages []database.Message) []types.Message {
	messages := make([]types.Message, 0, len(dbMessages))
	for _, m := range dbMessages {
		messages = append(messages, toMessage(m))
	}
	return messages
}

func toConversation(c database.Conversation) types.Conversation {
	conv := types.Conversation{
		Id:           c.Id,
		Name:         c.Name,
		Participants: toUsers(c.Participants),
		MessageCount: c.MessageCount,
		CreatedAt:    c.CreatedAt,
		UpdatedAt:    c.UpdatedAt,
	}

	if c.LastMessage != nil {
		last := toMessage(*c.LastMessage)
		conv.LastMessage = &last
	}

	return conv
}

func (s *ChatApp) healthCheck(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, r, NewMethodNotAllowedError())
		return
	}

	if err := s.db.Ping(r.Context()); err != nil {
		s.log.Printf("health check: %v", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

func (s *ChatApp) notFound(w http.ResponseWriter, r *http.Request) {
	errResp := NewNotFoundError()
	s.writeJson(w, errResp.StatusCode, errResp)
}

func (s *ChatApp) register(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, r, NewMethodNotAllowedError())
		return
	}

	var req RegisterRequest
	if err := decodeJson(r, &req); err != nil {
		s.writeError(w, r, NewBadRequestError())
		return
	}

	errs := validateProfile(profileFields{Username: req.Username, Email: req.Email})
	validatePassword(req.Password, errs)
	if errs.HasErrors() {
		s.writeError(w, r, NewValidationError(errs))
		return
	}

	pwdHash, err := hashPassword(req.Password)
	if err != nil {
		s.writeError(w, r, NewInternalServerError(err))
		return
	}

	newUser, err := s.db.CreateAccount(r.Context(), database.CreateAccountParams{
		Username:     req.Username,
		EmailAddress: req.Email,
		PasswordHash: pwdHash,
	})
	if err != nil {
		s.writeError(w, r, writeConflictError(err))
		return
	}

	s.incr(stats.UsersCreated, 1)
	s.writeJson(w, http.StatusCreated, toUser(newUser))
}

func (s *ChatApp) session(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, r, NewMethodNotAllowedError())
		return
	}

	userId, ok := UserId(r.Context())
	if !ok {
		s.writeError(w, r, NewUnauthorizedError())
		return
	}

	user, err := s.db.GetAccountById(r.Context(), userId)
	if err != nil {
		s.writeError(w, r, lookupError(err))
		return
	}

	s.writeJson(w, http.StatusOK, toUser(user))
}

func (s *ChatApp) login(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, r, NewMethodNotAllowedError())
		return
	}

	var lr LoginRequest
	if err := decodeJson(r, &lr); err != nil {
		s.writeError(w, r, NewBadRequestError())
		return
	}

	if lr.Email == "" || lr.Password == "" {
		s.writeError(w, r, NewBadRequestError())
		return
	}

	dbUser, err := s.db.GetAccountByEmail(r.Context(), lr.Email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			s.writeError(w, r, NewUnauthorizedError())
		} else {
			s.writeError(w, r, NewInternalServerError(err))
		}
		return
	}

	if !verifyPassword(dbUser.PasswordHash, lr.Password) {
		s.writeError(w, r, NewUnauthorizedError())
		return
	}

	u := toUser(dbUser)
	token, err := s.createJwtForSession(u, defaultJwtExpiration)
	if err != nil {
		s.writeError(w, r, NewInternalServerError(err))
		return
	}

	if err := s.db.SetOnlineStatus(r.Context(), u.Id, true); err != nil {
		s.log.Printf("set online status for user %d: %v", u.Id, err)
	} else {
		u.IsOnline = true
	}

	http.SetCookie(w, createJwtCookie(token, defaultJwtExpiration))

	s.writeJson(w, http.StatusOK, u)
}

func (s *ChatApp) logout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, r, NewMethodNotAllowedError())
		return
	}

	if userId, ok := UserId(r.Context()); ok {
		if err := s.db.SetOnlineStatus(r.Context(), userId, false); err != nil && !errors.Is(err, sql.ErrNoRows) {
			s.log.Printf("set offline status for user %d: %v", userId, err)
		}
	}

	http.SetCookie(w, expiredJwtCookie())
	w.WriteHeader(http.StatusNoContent)
}
