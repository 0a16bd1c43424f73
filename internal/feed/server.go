package feed

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/shahar-caura/lurker/internal/event"
)

// Options configure the feed server.
type Options struct {
	Addr      string
	Version   string
	Retention time.Duration
	MaxEvents int
}

// Server exposes recent capture events over HTTP.
type Server struct {
	opts      Options
	startTime time.Time
	store     *Store
	hub       *Hub
	logger    *slog.Logger
}

// New creates a Server. Nothing is recorded until Run subscribes it.
func New(opts Options, logger *slog.Logger) *Server {
	return &Server{
		opts:      opts,
		startTime: time.Now(),
		store:     NewStore(opts.Retention, opts.MaxEvents),
		hub:       NewHub(logger),
		logger:    logger,
	}
}

// Record stores e and pushes it to stream clients. It is a bus handler.
func (s *Server) Record(e event.Event) {
	rec, err := s.store.Add(e)
	if err != nil {
		s.logger.Warn("feed: dropping event", "err", err)
		return
	}
	s.hub.Broadcast(rec)
}

// Handler returns the validated API mux.
func (s *Server) Handler() (http.Handler, error) {
	doc, err := OpenAPI()
	if err != nil {
		return nil, err
	}

	h := &Handlers{Store: s.store, Version: s.opts.Version, StartTime: s.startTime}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/health", h.GetHealth)
	mux.HandleFunc("GET /api/events", h.ListEvents)
	mux.Handle("GET /api/events/stream", s.hub)

	return ValidateRequests(doc, mux)
}

// Run subscribes to bus, serves until ctx is cancelled, then unsubscribes.
func (s *Server) Run(ctx context.Context, bus *event.Bus) error {
	handler, err := s.Handler()
	if err != nil {
		return err
	}

	ln, err := net.Listen("tcp", s.opts.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.opts.Addr, err)
	}

	id := bus.SubscribeAll(s.Record)
	defer bus.Unsubscribe(id)

	srv := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	s.logger.Info("feed server started", "addr", ln.Addr().String())

	// Graceful shutdown on context cancellation. Request contexts derive
	// from ctx, so open streams end too.
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	if err := srv.Serve(ln); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("serve: %w", err)
	}
	return nil
}
