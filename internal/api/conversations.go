package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/npezzotti/go-chats/internal/database"
	"github.com/npezzotti/go-chats/internal/stats"
	"github.com/npezzotti/go-chats/internal/types"
)

// conversationMessageLimit caps the messages embedded in a conversation.
const conversationMessageLimit = 50

type CreateConversationRequest struct {
	Name           string `json:"name"`
	ParticipantIds []int  `json:"participant_ids"`
}

type UpdateConversationRequest struct {
	Name string `json:"name"`
}

type ParticipantRequest struct {
	UserId int `json:"user_id"`
}

func validateConversationName(name string) ValidationErrors {
	errs := make(ValidationErrors)
	if utf8.RuneCountInString(name) > maxConversationNameLength {
		errs.Add("name", "name is too long")
	}
	return errs
}

// authorizeConversation loads a conversation the requester participates in.
func (s *ChatApp) authorizeConversation(ctx context.Context, conversationId, userId int) (database.Conversation, *ApiError) {
	conv, err := s.db.GetConversation(ctx, conversationId)
	if err != nil {
		return database.Conversation{}, lookupError(err)
	}

	if !conv.HasParticipant(userId) {
		return database.Conversation{}, NewForbiddenError()
	}

	return conv, nil
}

func (s *ChatApp) conversationDetail(ctx context.Context, conv database.Conversation, userId int) (types.ConversationDetail, error) {
	msgs, err := s.db.ListMessages(ctx, database.ListMessagesParams{
		UserId:         userId,
		ConversationId: conv.Id,
		Limit:          conversationMessageLimit,
	})
	if err != nil {
		return types.ConversationDetail{}, err
	}

	return types.ConversationDetail{
		Conversation: toConversation(conv),
		Messages:     toMessages(msgs),
	}, nil
}

func (s *ChatApp) conversations(w http.ResponseWriter, r *http.Request) {
	userId, ok := UserId(r.Context())
	if !ok {
		s.writeError(w, r, NewUnauthorizedError())
		return
	}

	switch r.Method {
	case http.MethodGet:
		dbConvs, err := s.db.ListConversations(r.Context(), userId)
		if err != nil {
			s.writeError(w, r, NewInternalServerError(err))
			return
		}

		convs := make([]types.Conversation, 0, len(dbConvs))
		for _, c := range dbConvs {
			convs = append(convs, toConversation(c))
		}

		s.writeJson(w, http.StatusOK, convs)
	case http.MethodPost:
		var req CreateConversationRequest
		if err := decodeJson(r, &req); err != nil {
			s.writeError(w, r, NewBadRequestError())
			return
		}

		req.Name = strings.TrimSpace(req.Name)
		if errs := validateConversationName(req.Name); errs.HasErrors() {
			s.writeError(w, r, NewValidationError(errs))
			return
		}

		// the creator is always a participant
		ids := append([]int{userId}, req.ParticipantIds...)

		conv, err := s.db.CreateConversation(r.Context(), database.CreateConversationParams{
			Name:           req.Name,
			ParticipantIds: ids,
		})
		if err != nil {
			if errors.Is(err, database.ErrUnknownUsers) || errors.Is(err, database.ErrReferenceNotFound) {
				s.writeError(w, r, NewValidationError(ValidationErrors{
					"participant_ids": "one or more participant ids do not match a user",
				}))
			} else {
				s.writeError(w, r, NewInternalServerError(err))
			}
			return
		}

		s.incr(stats.ConversationsCreated, 1)
		s.writeJson(w, http.StatusCreated, types.ConversationDetail{
			Conversation: toConversation(conv),
			Messages:     []types.Message{},
		})
	default:
		s.writeError(w, r, NewMethodNotAllowedError())
	}
}

func (s *ChatApp) conversation(w http.ResponseWriter, r *http.Request) {
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

	conv, errResp := s.authorizeConversation(r.Context(), id, userId)
	if errResp != nil {
		s.writeError(w, r, errResp)
		return
	}

	switch r.Method {
	case http.MethodGet:
		detail, err := s.conversationDetail(r.Context(), conv, userId)
		if err != nil {
			s.writeError(w, r, NewInternalServerError(err))
			return
		}

		s.writeJson(w, http.StatusOK, detail)
	case http.MethodPut:
		var req UpdateConversationRequest
		if err := decodeJson(r, &req); err != nil {
			s.writeError(w, r, NewBadRequestError())
			return
		}

		req.Name = strings.TrimSpace(req.Name)
		if errs := validateConversationName(req.Name); errs.HasErrors() {
			s.writeError(w, r, NewValidationError(errs))
			return
		}

		updated, err := s.db.UpdateConversation(r.Context(), conv.Id, req.Name)
		if err != nil {
			s.writeError(w, r, lookupError(err))
			return
		}

		s.writeJson(w, http.StatusOK, toConversation(updated))
	case http.MethodDelete:
		if err := s.db.DeleteConversation(r.Context(), conv.Id); err != nil {
			s.writeError(w, r, lookupError(err))
			return
		}

		s.writeJson(w, http.StatusNoContent, nil)
	}
}

// participantTarget resolves the conversation and the user named in the body
// of add/remove participant requests.
func (s *ChatApp) participantTarget(r *http.Request) (database.Conversation, database.User, *ApiError) {
	if r.Method != http.MethodPost {
		return database.Conversation{}, database.User{}, NewMethodNotAllowedError()
	}

	userId, ok := UserId(r.Context())
	if !ok {
		return database.Conversation{}, database.User{}, NewUnauthorizedError()
	}

	id, ok := pathId(r)
	if !ok {
		return database.Conversation{}, database.User{}, NewNotFoundError()
	}

	conv, errResp := s.authorizeConversation(r.Context(), id, userId)
	if errResp != nil {
		return database.Conversation{}, database.User{}, errResp
	}

	var req ParticipantRequest
	if err := decodeJson(r, &req); err != nil {
		return database.Conversation{}, database.User{}, NewBadRequestError()
	}

	if req.UserId < 1 {
		return database.Conversation{}, database.User{}, NewValidationError(ValidationErrors{
			"user_id": "user_id is required",
		})
	}

	target, err := s.db.GetAccountById(r.Context(), req.UserId)
	if err != nil {
		return database.Conversation{}, database.User{}, lookupError(err)
	}

	return conv, target, nil
}

func (s *ChatApp) addParticipant(w http.ResponseWriter, r *http.Request) {
	conv, target, errResp := s.participantTarget(r)
	if errResp != nil {
		s.writeError(w, r, errResp)
		return
	}

	added, err := s.db.AddParticipant(r.Context(), conv.Id, target.Id)
	if err != nil {
		if errors.Is(err, database.ErrReferenceNotFound) {
			s.writeError(w, r, NewNotFoundError())
		} else {
			s.writeError(w, r, NewInternalServerError(err))
		}
		return
	}

	msg := fmt.Sprintf("user %s added to conversation", target.Username)
	if !added {
		msg = fmt.Sprintf("user %s is already a participant", target.Username)
	}

	s.writeJson(w, http.StatusOK, types.StatusResponse{Message: msg})
}

func (s *ChatApp) removeParticipant(w http.ResponseWriter, r *http.Request) {
	conv, target, errResp := s.participantTarget(r)
	if errResp != nil {
		s.writeError(w, r, errResp)
		return
	}

	removed, err := s.db.RemoveParticipant(r.Context(), conv.Id, target.Id)
	if err != nil {
		if errors.Is(err, database.ErrLastParticipant) {
			s.writeError(w, r, NewValidationError(ValidationErrors{
				"user_id": "cannot remove the last participant of a conversation",
			}))
		} else {
			s.writeError(w, r, lookupError(err))
		}
		return
	}

	msg := fmt.Sprintf("user %s removed from conversation", target.Username)
	if !removed {
		msg = fmt.Sprintf("user %s is not a participant", target.Username)
	}

	s.writeJson(w, http.StatusOK, types.StatusResponse{Message: msg})
}
