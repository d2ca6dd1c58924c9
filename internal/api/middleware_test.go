package api

import (
	"bytes"
	"database/sql"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/npezzotti/go-chats/internal/database"
	"github.com/npezzotti/go-chats/internal/testutil"
	"github.com/npezzotti/go-chats/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorHandler_PanicRecovery(t *testing.T) {
	buf := &bytes.Buffer{}
	app := &ChatApp{
		log: testutil.TestLogger(t),
	}
	app.log.SetOutput(buf)

	panicHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic(errors.New("test panic"))
	})

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	app.errorHandler(panicHandler).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Equal(t, "close", rr.Header().Get("Connection"))
	assert.Contains(t, buf.String(), "panic: test panic")
	assert.NotContains(t, rr.Body.String(), "test panic", "expected panic cause to stay out of the response")
}

func Test_errorHandler_NoPanic(t *testing.T) {
	app := &ChatApp{}

	called := false
	okHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	app.errorHandler(okHandler).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "ok", rr.Body.String())
	assert.True(t, called, "expected handler to be called")
}

func Test_requestIdMiddleware(t *testing.T) {
	app := &ChatApp{log: testutil.TestLogger(t)}

	var seen string
	handler := app.requestIdMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = RequestId(r.Context())
	}))

	t.Run("generates an id", func(t *testing.T) {
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))

		assert.NotEmpty(t, seen)
		assert.Equal(t, seen, rr.Header().Get(requestIdHeader))
	})

	t.Run("reuses an upstream id", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(requestIdHeader, "upstream-id")
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)

		assert.Equal(t, "upstream-id", seen)
		assert.Equal(t, "upstream-id", rr.Header().Get(requestIdHeader))
	})
}

func Test_authMiddleware(t *testing.T) {
	mockRepo := &database.MockChatRepository{}
	mockRepo.On("GetAccountById", 7).Return(database.User{Id: 7}, nil)
	mockRepo.On("GetAccountById", 8).Return(database.User{}, sql.ErrNoRows)
	mockRepo.On("GetAccountById", 9).Return(database.User{}, errors.New("db error"))

	app := newTestApp(t, mockRepo)
	buf := &bytes.Buffer{}
	app.log.SetOutput(buf)

	tokenHandler := func(w http.ResponseWriter, r *http.Request) {
		userId, ok := UserId(r.Context())
		if !ok {
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(strconv.Itoa(userId)))
	}

	t.Run("valid token", func(t *testing.T) {
		token, err := app.createJwtForSession(types.User{Id: 7}, defaultJwtExpiration)
		require.NoError(t, err)

		rr := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(createJwtCookie(token, defaultJwtExpiration))
		app.authMiddleware(tokenHandler).ServeHTTP(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, "7", rr.Body.String())
		assert.Equal(t, "no-store, no-cache, must-revalidate, private", rr.Header().Get("Cache-Control"))
	})

	t.Run("missing token", func(t *testing.T) {
		rr := httptest.NewRecorder()
		app.authMiddleware(tokenHandler).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))

		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})

	t.Run("invalid token", func(t *testing.T) {
		rr := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(&http.Cookie{Name: tokenCookieKey, Value: "invalid-token"})
		app.authMiddleware(tokenHandler).ServeHTTP(rr, req)

		assert.Equal(t, http.StatusUnauthorized, rr.Code)
		assert.Contains(t, buf.String(), "failed to extract user id from token")
	})

	t.Run("expired token", func(t *testing.T) {
		token, err := app.createJwtForSession(types.User{Id: 7}, -time.Minute)
		require.NoError(t, err)

		rr := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(&http.Cookie{Name: tokenCookieKey, Value: token})
		app.authMiddleware(tokenHandler).ServeHTTP(rr, req)

		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})

	t.Run("deleted account", func(t *testing.T) {
		token, err := app.createJwtForSession(types.User{Id: 8}, defaultJwtExpiration)
		require.NoError(t, err)

		rr := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(createJwtCookie(token, defaultJwtExpiration))
		app.authMiddleware(tokenHandler).ServeHTTP(rr, req)

		assertApiError(t, rr, NewUnauthorizedError())
		assert.Contains(t, buf.String(), "session user 8 no longer exists")
	})

	t.Run("account lookup fails", func(t *testing.T) {
		token, err := app.createJwtForSession(types.User{Id: 9}, defaultJwtExpiration)
		require.NoError(t, err)

		rr := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(createJwtCookie(token, defaultJwtExpiration))
		app.authMiddleware(tokenHandler).ServeHTTP(rr, req)

		assert.Equal(t, http.StatusInternalServerError, rr.Code)
	})

	t.Run("token signed with another key", func(t *testing.T) {
		other := &ChatApp{signingKey: []byte("other-key")}
		token, err := other.createJwtForSession(types.User{Id: 7}, defaultJwtExpiration)
		require.NoError(t, err)

		rr := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(&http.Cookie{Name: tokenCookieKey, Value: token})
		app.authMiddleware(tokenHandler).ServeHTTP(rr, req)

		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})
}
