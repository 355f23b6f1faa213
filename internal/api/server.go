package api

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
)

// ServerOptions configures NewServer.
type ServerOptions struct {
	Rooms           RoomDirectory
	CORSOrigins     []string
	RateLimitConfig *RateLimitConfig
}

// Server is the HTTP API server with WebSocket support.
// It combines the HTTP router with WebSocket hub for real-time updates.
type Server struct {
	router      *chi.Mux
	wsHub       *WebSocketHub
	rateLimiter *IPRateLimiter
	httpServer  *http.Server
}

// NewServer creates a new API server.
//
// IMPORTANT: Background workers do NOT start until Start() is called.
// For testing HTTP endpoints without WebSocket support, use NewRouter() directly.
func NewServer(opts ServerOptions) *Server {
	rateLimitCfg := DefaultRateLimitConfig
	if opts.RateLimitConfig != nil {
		rateLimitCfg = *opts.RateLimitConfig
	}

	s := &Server{
		wsHub:       NewWebSocketHub(opts.Rooms, NewOriginChecker(opts.CORSOrigins), rateLimitCfg),
		rateLimiter: NewIPRateLimiter(rateLimitCfg),
	}

	s.router = NewRouter(RouterConfig{
		Rooms:       opts.Rooms,
		RateLimiter: s.rateLimiter,
		CORSOrigins: opts.CORSOrigins,
	})

	// WebSocket routes need the hub instance, so they live outside NewRouter
	s.router.Get("/ws/rooms/{code}", s.wsHub.HandleWebSocket)

	s.httpServer = &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return s
}

// startWorkers starts the background goroutines owned by the server.
func (s *Server) startWorkers() {
	s.rateLimiter.Start()
	s.wsHub.Start()
}

// Start begins the HTTP server AND starts background workers. It blocks
// until the server stops; a clean Shutdown returns nil.
func (s *Server) Start(addr string) error {
	s.startWorkers()

	s.httpServer.Addr = addr
	log.Printf("🌐 API server starting on %s", addr)

	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Router returns the HTTP handler for use with httptest.
func (s *Server) Router() http.Handler {
	return s.router
}

// Shutdown stops accepting requests, closes WebSocket clients and stops
// background workers.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.httpServer.Shutdown(ctx)
	s.wsHub.Stop()
	s.rateLimiter.Stop()
	log.Println("🌐 API server stopped")
	return err
}
