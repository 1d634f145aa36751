package api

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/devchat/devchat/internal/chat"
	"github.com/devchat/devchat/internal/config"
	"github.com/devchat/devchat/internal/database"
	"github.com/gorilla/handlers"
)

type App struct {
	log        *log.Logger
	db         database.Repository
	chat       *chat.Service
	mux        *http.Server
	signingKey []byte
}

func NewApp(mux *http.ServeMux, logger *log.Logger, db database.Repository, chatService *chat.Service, cfg *config.Config) *App {
	s := &App{
		log:        logger,
		db:         db,
		chat:       chatService,
		signingKey: cfg.SigningKey,
	}

	mux.HandleFunc("GET /healthz", s.healthCheck)
	mux.HandleFunc("POST /api/auth/login", s.login)
	mux.Handle("GET /api/auth/logout", s.authMiddleware(s.logout))
	mux.Handle("GET /api/auth/session", s.authMiddleware(s.session))
	mux.Handle("GET /api/channels", s.authMiddleware(s.listChannels))
	mux.Handle("POST /api/channels", s.authMiddleware(s.createChannel))
	mux.Handle("GET /api/channels/{channelName}", s.authMiddleware(s.getChannel))
	mux.Handle("PUT /api/channels/{channelName}", s.authMiddleware(s.updateChannel))
	mux.Handle("DELETE /api/channels/{channelName}", s.authMiddleware(s.deleteChannel))
	mux.Handle("POST /api/channels/{channelName}/messages", s.authMiddleware(s.sendMessage))
	mux.Handle("POST /api/channels/{channelName}/members", s.authMiddleware(s.addMember))
	mux.Handle("DELETE /api/channels/{channelName}/members/{username}", s.authMiddleware(s.removeMember))

	h := handlers.CORS(
		handlers.MaxAge(3600),
		handlers.AllowedOrigins(cfg.AllowedOrigins),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Origin", "Content-Type", "Accept"}),
		handlers.AllowCredentials(),
	)(mux)

	h = s.errorHandler(h)

	srv := &http.Server{
		Addr:    cfg.ServerAddr,
		Handler: h,
	}

	s.mux = srv
	return s
}

func (s *App) Start() error {
	s.log.Printf("starting server on %s\n", s.mux.Addr)
	return s.mux.ListenAndServe()
}

func (s *App) Shutdown(ctx context.Context) error {
	s.log.Println("shutting down HTTP server...")
	if err := s.mux.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	return nil
}
