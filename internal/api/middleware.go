package api

import (
	"database/sql"
	"errors"
	"fmt"
	"net/http"

	"github.com/teris-io/shortid"
)

const requestIdHeader = "X-Request-Id"

func (s *ChatApp) errorHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				var panicError error
				switch e := err.(type) {
				case error:
					panicError = e
				default:
					panicError = fmt.Errorf("%v", e)
				}
				s.log.Printf("panic: %v", panicError)
				errResp := NewInternalServerError(panicError)
				w.Header().Set("Connection", "close")
				s.writeJson(w, errResp.StatusCode, errResp)
				return
			}
		}()

		next.ServeHTTP(w, r)
	})
}

// requestIdMiddleware tags every request with an id, reusing one supplied by
// an upstream proxy.
func (s *ChatApp) requestIdMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIdHeader)
		if id == "" {
			var err error
			id, err = shortid.Generate()
			if err != nil {
				s.log.Printf("generate request id: %v", err)
			}
		}

		if id != "" {
			w.Header().Set(requestIdHeader, id)
			r = r.WithContext(withRequestId(r.Context(), id))
		}

		next.ServeHTTP(w, r)
	})
}

func (s *ChatApp) authMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tokenCookie, err := r.Cookie(tokenCookieKey)
		if err != nil {
			errResp := NewUnauthorizedError()
			s.writeJson(w, errResp.StatusCode, errResp)
			return
		}

		userId, err := s.extractUserIdFromToken(tokenCookie.Value)
		if err != nil {
			s.log.Printf("failed to extract user id from token: %v", err)
			errResp := NewUnauthorizedError()
			s.writeJson(w, errResp.StatusCode, errResp)
			return
		}

		// tokens outlive deleted accounts
		if _, err := s.db.GetAccountById(r.Context(), userId); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				s.log.Printf("session user %d no longer exists", userId)
				errResp := NewUnauthorizedError()
				s.writeJson(w, errResp.StatusCode, errResp)
			} else {
				s.writeError(w, r, NewInternalServerError(err))
			}
			return
		}

		ctx := WithUserId(r.Context(), userId)
		w.Header().Set("Cache-Control", "no-store, no-cache, must-revalidate, private")

		next(w, r.WithContext(ctx))
	}
}
