package api

import (
	"errors"
	"net/http"

	"github.com/npezzotti/go-chats/internal/database"
	"github.com/npezzotti/go-chats/internal/stats"
)

type CreateUserRequest struct {
	Username    string `json:"username"`
	Email       string `json:"email"`
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	PhoneNumber string `json:"phone_number"`
	// Password is optional; accounts created without one cannot log in.
	Password string `json:"password"`
}

type UpdateUserRequest struct {
	Username    string `json:"username"`
	Email       string `json:"email"`
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	PhoneNumber string `json:"phone_number"`
	IsOnline    *bool  `json:"is_online"`
}

// writeConflictError turns unique violations into a field level validation
// error.
func writeConflictError(err error) *ApiError {
	var ce *database.ConstraintError
	if errors.As(err, &ce) && errors.Is(err, database.ErrDuplicate) {
		field := ce.Field()
		if field == "" {
			return NewValidationError(ValidationErrors{"non_field_errors": "a user with these details already exists"})
		}
		return NewValidationError(ValidationErrors{field: "a user with this " + field + " already exists"})
	}

	return NewInternalServerError(err)
}

func (s *ChatApp) users(w http.ResponseWriter, r *http.Request) {
	userId, ok := UserId(r.Context())
	if !ok {
		s.writeError(w, r, NewUnauthorizedError())
		return
	}

	switch r.Method {
	case http.MethodGet:
		dbUsers, err := s.db.ListAccounts(r.Context(), database.ListAccountsParams{
			ExcludeId: userId,
			Search:    r.URL.Query().Get("search"),
		})
		if err != nil {
			s.writeError(w, r, NewInternalServerError(err))
			return
		}

		s.writeJson(w, http.StatusOK, toUsers(dbUsers))
	case http.MethodPost:
		var req CreateUserRequest
		if err := decodeJson(r, &req); err != nil {
			s.writeError(w, r, NewBadRequestError())
			return
		}

		errs := validateProfile(profileFields{
			Username:    req.Username,
			Email:       req.Email,
			FirstName:   req.FirstName,
			LastName:    req.LastName,
			PhoneNumber: req.PhoneNumber,
		})
		if req.Password != "" {
			validatePassword(req.Password, errs)
		}
		if errs.HasErrors() {
			s.writeError(w, r, NewValidationError(errs))
			return
		}

		var pwdHash string
		if req.Password != "" {
			var err error
			if pwdHash, err = hashPassword(req.Password); err != nil {
				s.writeError(w, r, NewInternalServerError(err))
				return
			}
		}

		newUser, err := s.db.CreateAccount(r.Context(), database.CreateAccountParams{
			Username:     req.Username,
			EmailAddress: req.Email,
			FirstName:    req.FirstName,
			LastName:     req.LastName,
			PhoneNumber:  req.PhoneNumber,
			PasswordHash: pwdHash,
		})
		if err != nil {
			s.writeError(w, r, writeConflictError(err))
			return
		}

		s.incr(stats.UsersCreated, 1)
		s.writeJson(w, http.StatusCreated, toUser(newUser))
	default:
		s.writeError(w, r, NewMethodNotAllowedError())
	}
}

func (s *ChatApp) user(w http.ResponseWriter, r *http.Request) {
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
	case http.MethodGet:
		user, err := s.db.GetAccountById(r.Context(), id)
		if err != nil {
			s.writeError(w, r, lookupError(err))
			return
		}

		s.writeJson(w, http.StatusOK, toUser(user))
	case http.MethodPut:
		// users may only edit their own profile
		if id != userId {
			s.writeError(w, r, NewForbiddenError())
			return
		}

		var req UpdateUserRequest
		if err := decodeJson(r, &req); err != nil {
			s.writeError(w, r, NewBadRequestError())
			return
		}

		errs := validateProfile(profileFields{
			Username:    req.Username,
			Email:       req.Email,
			FirstName:   req.FirstName,
			LastName:    req.LastName,
			PhoneNumber: req.PhoneNumber,
		})
		if errs.HasErrors() {
			s.writeError(w, r, NewValidationError(errs))
			return
		}

		dbUser, err := s.db.UpdateAccount(r.Context(), database.UpdateAccountParams{
			UserId:       id,
			Username:     req.Username,
			EmailAddress: req.Email,
			FirstName:    req.FirstName,
			LastName:     req.LastName,
			PhoneNumber:  req.PhoneNumber,
			IsOnline:     req.IsOnline,
		})
		if err != nil {
			if errors.Is(err, database.ErrDuplicate) {
				s.writeError(w, r, writeConflictError(err))
			} else {
				s.writeError(w, r, lookupError(err))
			}
			return
		}

		s.writeJson(w, http.StatusOK, toUser(dbUser))
	case http.MethodDelete:
		if id != userId {
			s.writeError(w, r, NewForbiddenError())
			return
		}

		if err := s.db.DeleteAccount(r.Context(), id); err != nil {
			s.writeError(w, r, lookupError(err))
			return
		}

		// the session belonged to the deleted account
		http.SetCookie(w, expiredJwtCookie())
		s.writeJson(w, http.StatusNoContent, nil)
	default:
		s.writeError(w, r, NewMethodNotAllowedError())
	}
}
