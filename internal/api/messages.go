package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/npezzotti/go-chats/internal/database"
	"github.com/npezzotti/go-chats/internal/stats"
	"github.com/npezzotti/go-chats/internal/types"
)

// CreateMessageRequest has no sender field. The sender is always the
// session user and any sender in the body is discarded by the decoder.
type CreateMessageRequest struct {
	ConversationId int    `json:"conversation_id"`
	Content        string `json:"content"`
}

type UpdateMessageRequest struct {
	Content *string `json:"content"`
	IsRead  *bool   `json:"is_read"`
}

type MarkConversationReadRequest struct {
	ConversationId int `json:"conversation_id"`
}

// authorizeMessage loads a message from a conversation the requester
// participates in.
func (s *ChatApp) authorizeMessage(ctx context.Context, messageId, userId int) (database.Message, *ApiError) {
	msg, err := s.db.GetMessage(ctx, messageId)
	if err != nil {
		return database.Message{}, lookupError(err)
	}

	ok, err := s.db.IsParticipant(ctx, msg.ConversationId, userId)
	if err != nil {
		return database.Message{}, NewInternalServerError(err)
	}
	if !ok {
		return database.Message{}, NewForbiddenError()
	}

	return msg, nil
}

func (s *ChatApp) messages(w http.ResponseWriter, r *http.Request) {
	userId, ok := UserId(r.Context())
	if !ok {
		s.writeError(w, r, NewUnauthorizedError())
		return
	}

	switch r.Method {
	case http.MethodGet:
		errs := make(ValidationErrors)
		conversationId, err := queryInt(r, "conversation_id")
		if err != nil {
			errs.Add("conversation_id", err.Error())
		}
		limit, err := queryInt(r, "limit")
		if err != nil {
			errs.Add("limit", err.Error())
		}
		if errs.HasErrors() {
			s.writeError(w, r, NewValidationError(errs))
			return
		}

		if conversationId != 0 {
			if _, errResp := s.authorizeConversation(r.Context(), conversationId, userId); errResp != nil {
				s.writeError(w, r, errResp)
				return
			}
		}

		msgs, err := s.db.ListMessages(r.Context(), database.ListMessagesParams{
			UserId:         userId,
			ConversationId: conversationId,
			Limit:          limit,
		})
		if err != nil {
			s.writeError(w, r, NewInternalServerError(err))
			return
		}

		s.writeJson(w, http.StatusOK, toMessages(msgs))
	case http.MethodPost:
		var req CreateMessageRequest
		if err := decodeJson(r, &req); err != nil {
			s.writeError(w, r, NewBadRequestError())
			return
		}

		errs := make(ValidationErrors)
		if req.ConversationId < 1 {
			errs.Add("conversation_id", "conversation_id is required")
		}
		if strings.TrimSpace(req.Content) == "" {
			errs.Add("content", "content is required")
		}
		if errs.HasErrors() {
			s.writeError(w, r, NewValidationError(errs))
			return
		}

		if _, errResp := s.authorizeConversation(r.Context(), req.ConversationId, userId); errResp != nil {
			s.writeError(w, r, errResp)
			return
		}

		msg, err := s.db.CreateMessage(r.Context(), database.CreateMessageParams{
			ConversationId: req.ConversationId,
			SenderId:       userId,
			Content:        req.Content,
		})
		if err != nil {
			// the conversation was deleted after the membership check
			if errors.Is(err, database.ErrReferenceNotFound) {
				s.writeError(w, r, NewNotFoundError())
			} else {
				s.writeError(w, r, NewInternalServerError(err))
			}
			return
		}

		s.incr(stats.MessagesCreated, 1)
		s.writeJson(w, http.StatusCreated, toMessage(msg))
	default:
		s.writeError(w, r, NewMethodNotAllowedError())
	}
}

func (s *ChatApp) message(w http.ResponseWriter, r *http.Request) {
	userId, ok := UserId(r.Context())
	if !ok {
		s.writeError(w, r, NewUnauthorizedError())
		return
	}

	id, ok := pathId(r)
	if !ok {
		s.writeError(w, r, NewNotFoundError())
		return
	}

	switch r.Method {
	case http.MethodGet, http.MethodPut, http.MethodDelete:
	default:
		s.writeError(w, r, NewMethodNotAllowedError())
		return
	}

	msg, errResp := s.authorizeMessage(r.Context(), id, userId)
	if errResp != nil {
		s.writeError(w, r, errResp)
		return
	}

	switch r.Method {
	case http.MethodGet:
		s.writeJson(w, http.StatusOK, toMessage(msg))
	case http.MethodPut:
		var req UpdateMessageRequest
		if err := decodeJson(r, &req); err != nil {
			s.writeError(w, r, NewBadRequestError())
			return
		}

		// content belongs to the sender, read receipts to the recipients
		isSender := msg.Sender.Id == userId
		if req.Content != nil && !isSender {
			s.writeError(w, r, NewForbiddenError())
			return
		}
		if req.IsRead != nil && *req.IsRead && !msg.IsRead && isSender {
			s.writeError(w, r, NewForbiddenError())
			return
		}

		params := database.UpdateMessageParams{
			MessageId: msg.Id,
			Content:   msg.Content,
		}

		errs := make(ValidationErrors)
		if req.Content != nil {
			if strings.TrimSpace(*req.Content) == "" {
				errs.Add("content", "content may not be blank")
			}
			params.Content = *req.Content
		}
		if req.IsRead != nil {
			if !*req.IsRead && msg.IsRead {
				errs.Add("is_read", "a read message cannot be marked unread")
			}
			params.MarkRead = *req.IsRead
		}
		if errs.HasErrors() {
			s.writeError(w, r, NewValidationError(errs))
			return
		}

		updated, err := s.db.UpdateMessage(r.Context(), params)
		if err != nil {
			s.writeError(w, r, lookupError(err))
			return
		}

		if params.MarkRead && !msg.IsRead {
			s.incr(stats.MessagesMarkedRead, 1)
		}

		s.writeJson(w, http.StatusOK, toMessage(updated))
	case http.MethodDelete:
		if msg.Sender.Id != userId {
			s.writeError(w, r, NewForbiddenError())
			return
		}

		if err := s.db.DeleteMessage(r.Context(), msg.Id); err != nil {
			s.writeError(w, r, lookupError(err))
			return
		}

		s.writeJson(w, http.StatusNoContent, nil)
	}
}

func (s *ChatApp) markAsRead(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPatch {
		s.writeError(w, r, NewMethodNotAllowedError())
		return
	}

	userId, ok := UserId(r.Context())
	if !ok {
		s.writeError(w, r, NewUnauthorizedError())
		return
	}

	id, ok := pathId(r)
	if !ok {
		s.writeError(w, r, NewNotFoundError())
		return
	}

	msg, errResp := s.authorizeMessage(r.Context(), id, userId)
	if errResp != nil {
		s.writeError(w, r, errResp)
		return
	}

	if msg.Sender.Id == userId {
		s.writeError(w, r, NewForbiddenError())
		return
	}

	if !msg.IsRead {
		if err := s.db.MarkMessageRead(r.Context(), msg.Id); err != nil {
			s.writeError(w, r, lookupError(err))
			return
		}
		msg.IsRead = true
		s.incr(stats.MessagesMarkedRead, 1)
	}

	s.writeJson(w, http.StatusOK, toMessage(msg))
}

func (s *ChatApp) markConversationAsRead(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, r, NewMethodNotAllowedError())
		return
	}

	userId, ok := UserId(r.Context())
	if !ok {
		s.writeError(w, r, NewUnauthorizedError())
		return
	}

	var req MarkConversationReadRequest
	if err := decodeJson(r, &req); err != nil {
		s.writeError(w, r, NewBadRequestError())
		return
	}

	if req.ConversationId < 1 {
		s.writeError(w, r, NewValidationError(ValidationErrors{
			"conversation_id": "conversation_id is required",
		}))
		return
	}

	conv, errResp := s.authorizeConversation(r.Context(), req.ConversationId, userId)
	if errResp != nil {
		s.writeError(w, r, errResp)
		return
	}

	n, err := s.db.MarkConversationRead(r.Context(), conv.Id, userId)
	if err != nil {
		s.writeError(w, r, NewInternalServerError(err))
		return
	}

	s.incr(stats.MessagesMarkedRead, int(n))
	s.writeJson(w, http.StatusOK, types.StatusResponse{
		Message: fmt.Sprintf("%d messages marked as read", n),
		Updated: &n,
	})
}
