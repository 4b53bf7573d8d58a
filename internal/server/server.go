// Package server exposes the request queue over HTTP.
package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/jfmyers9/requestline/internal/catalog"
	"github.com/jfmyers9/requestline/internal/coordinator"
	"github.com/jfmyers9/requestline/internal/events"
	"github.com/jfmyers9/requestline/internal/store"
)

// Coordinator is the queue state machine
type Coordinator interface {
	Submit(ctx context.Context, req coordinator.Request) (*coordinator.Submission, error)
	Queue(ctx context.Context) ([]store.QueueEntry, error)
	Current(ctx context.Context) (*coordinator.Current, error)
	Skip(ctx context.Context) error
}

// Cooldowns reports per-client cooldowns
type Cooldowns interface {
	Enforced() bool
	CheckCooldown(ctx context.Context, clientID string) (time.Duration, error)
}

// DeadLetters lists dropped requests
type DeadLetters interface {
	DeadLetters(ctx context.Context, limit int) ([]store.DeadLetter, error)
}

// Authenticator runs the Spotify authorization code flow
type Authenticator interface {
	AuthURL(state string) string
	Exchange(ctx context.Context, state string, r *http.Request) error
}

// Subscriber hands out event subscriptions
type Subscriber interface {
	Subscribe() *events.Subscription
}

// Deps are the collaborators the server routes to
type Deps struct {
	Coordinator Coordinator
	Catalog     catalog.Catalog
	Cooldowns   Cooldowns
	DeadLetters DeadLetters
	Auth        Authenticator
	Events      Subscriber

	// AdminToken guards admin endpoints. Empty disables them.
	AdminToken string

	// OnAuthorized runs after a successful OAuth callback
	OnAuthorized func(ctx context.Context) error
}

// Server is the HTTP API
type Server struct {
	deps    Deps
	logger  zerolog.Logger
	handler http.Handler

	statesMu sync.Mutex
	states   map[string]time.Time

	// closing is closed on shutdown to end websocket streams
	closing   chan struct{}
	closeOnce sync.Once
}

// New builds the server and its routes
func New(deps Deps, logger zerolog.Logger) *Server {
	s := &Server{
		deps:    deps,
		logger:  logger.With().Str("component", "server").Logger(),
		states:  make(map[string]time.Time),
		closing: make(chan struct{}),
	}
	s.handler = s.routes()
	return s
}

// Handler returns the root handler with middleware applied
func (s *Server) Handler() http.Handler {
	return s.handler
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/v1/queue", s.handleSubmit)
	mux.HandleFunc("GET /api/v1/queue", s.handleQueue)
	mux.HandleFunc("GET /api/v1/current", s.handleCurrent)
	mux.HandleFunc("GET /api/v1/cooldown", s.handleCooldown)
	mux.HandleFunc("GET /api/v1/search", s.handleSearch)
	mux.HandleFunc("GET /api/v1/events", s.handleEvents)

	mux.Handle("POST /api/v1/admin/skip", s.requireAdmin(http.HandlerFunc(s.handleSkip)))
	mux.Handle("POST /api/v1/admin/volume", s.requireAdmin(http.HandlerFunc(s.handleVolume)))
	mux.Handle("POST /api/v1/admin/shuffle", s.requireAdmin(http.HandlerFunc(s.handleShuffle)))
	mux.Handle("GET /api/v1/admin/dead-letters", s.requireAdmin(http.HandlerFunc(s.handleDeadLetters)))

	mux.Handle("GET /auth", s.requireAdmin(http.HandlerFunc(s.handleAuth)))
	mux.HandleFunc("GET /callback", s.handleCallback)
	mux.HandleFunc("GET /healthz", s.handleHealth)

	return s.requestID(s.accessLog(mux))
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully
func (s *Server) Run(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is cancelled
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", ln.Addr().String()).Msg("listening")
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		s.close()
		return err
	case <-ctx.Done():
	}

	s.close()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	s.logger.Info().Msg("server stopped")
	return nil
}

func (s *Server) close() {
	s.closeOnce.Do(func() { close(s.closing) })
}
