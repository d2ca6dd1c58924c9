package api

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"

	"github.com/gorilla/handlers"
	"github.com/npezzotti/go-chats/internal/config"
	"github.com/npezzotti/go-chats/internal/database"
	"github.com/npezzotti/go-chats/internal/stats"
)

type ChatApp struct {
	log        *log.Logger
	db         database.ChatRepository
	stats      stats.StatsProvider
	srv        *http.Server
	signingKey []byte
}

func NewChatApp(mux *http.ServeMux, logger *log.Logger, db database.ChatRepository, su stats.StatsProvider, cfg *config.Config) *ChatApp {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}

	s := &ChatApp{
		log:        logger,
		db:         db,
		stats:      su,
		signingKey: cfg.SigningKey,
	}

	if su != nil {
		for _, name := range stats.Metrics {
			su.RegisterMetric(name)
		}
	}

	s.routes(mux)

	h := handlers.CORS(
		handlers.MaxAge(3600),
		handlers.AllowedOrigins(cfg.AllowedOrigins),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Origin", "Content-Type", "Accept", requestIdHeader}),
		handlers.AllowCredentials(),
	)(mux)

	h = s.requestIdMiddleware(h)
	h = handlers.CombinedLoggingHandler(logger.Writer(), h)
	h = s.errorHandler(h)

	s.srv = &http.Server{
		Addr:     cfg.ServerAddr,
		Handler:  h,
		ErrorLog: logger,
	}

	return s
}

func (s *ChatApp) routes(mux *http.ServeMux) {
	mux.HandleFunc("/healthz", s.healthCheck)

	mux.HandleFunc("/api/auth/register", s.register)
	mux.HandleFunc("/api/auth/login", s.login)
	mux.Handle("/api/auth/session", s.authMiddleware(s.session))
	mux.Handle("/api/auth/logout", s.authMiddleware(s.logout))

	mux.Handle("/api/users/{$}", s.authMiddleware(s.users))
	mux.Handle("/api/users/{id}/{$}", s.authMiddleware(s.user))

	mux.Handle("/api/conversations/{$}", s.authMiddleware(s.conversations))
	mux.Handle("/api/conversations/{id}/{$}", s.authMiddleware(s.conversation))
	mux.Handle("/api/conversations/{id}/add_participant/{$}", s.authMiddleware(s.addParticipant))
	mux.Handle("/api/conversations/{id}/remove_participant/{$}", s.authMiddleware(s.removeParticipant))

	mux.Handle("/api/messages/{$}", s.authMiddleware(s.messages))
	mux.Handle("/api/messages/mark_conversation_as_read/{$}", s.authMiddleware(s.markConversationAsRead))
	mux.Handle("/api/messages/{id}/{$}", s.authMiddleware(s.message))
	mux.Handle("/api/messages/{id}/mark_as_read/{$}", s.authMiddleware(s.markAsRead))

	mux.HandleFunc("/", s.notFound)
}

// Handler returns the fully wrapped root handler.
func (s *ChatApp) Handler() http.Handler {
	return s.srv.Handler
}

func (s *ChatApp) Start() error {
	s.log.Printf("starting server on %s\n", s.srv.Addr)
	return s.srv.ListenAndServe()
}

func (s *ChatApp) Shutdown(ctx context.Context) error {
	s.log.Println("shutting down HTTP server...")
	if err := s.srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	return nil
}

func (s *ChatApp) incr(name string, delta int) {
	if s.stats == nil || delta == 0 {
		return
	}
	s.stats.Add(name, delta)
}
