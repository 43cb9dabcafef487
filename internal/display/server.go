package display

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/roach88/liftoff/internal/broadcast"
	"github.com/roach88/liftoff/internal/engine"
	"github.com/roach88/liftoff/internal/store"
)

// DefaultStreamBuffer is the number of events queued per satellite
// connection before events are dropped for that connection.
const DefaultStreamBuffer = 32

// Outbox replays persisted events to satellites that reconnect.
type Outbox interface {
	EventsSince(ctx context.Context, seq int64, limit int) ([]store.StoredEvent, error)
}

// Server routes satellite and operator requests to a running session.
type Server struct {
	runner       *engine.Runner
	bus          *broadcast.Bus
	outbox       Outbox
	logger       *slog.Logger
	streamBuffer int
	router       *gin.Engine
}

// Option configures a Server.
type Option func(*Server)

// WithOutbox enables GET /events/since/:seq.
func WithOutbox(o Outbox) Option {
	return func(s *Server) { s.outbox = o }
}

// WithLogger sets the request and stream logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// WithStreamBuffer sets the per-connection event buffer.
func WithStreamBuffer(n int) Option {
	return func(s *Server) {
		if n > 0 {
			s.streamBuffer = n
		}
	}
}

// New builds the router. The runner must be running for command and
// state endpoints to answer.
func New(runner *engine.Runner, bus *broadcast.Bus, opts ...Option) *Server {
	s := &Server{
		runner:       runner,
		bus:          bus,
		logger:       slog.Default(),
		streamBuffer: DefaultStreamBuffer,
	}
	for _, opt := range opts {
		opt(s)
	}

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery(), s.requestLogger())

	r.GET("/events", s.stream)
	r.GET("/events/last/:type", s.lastEvents)
	r.GET("/events/since/:seq", s.eventsSince)
	r.GET("/state", s.state)
	r.GET("/queue", s.queue)

	session := r.Group("/session")
	{
		session.POST("/open", s.open)
		session.POST("/start", s.simple((*engine.Session).Start))
		session.POST("/pause", s.simple((*engine.Session).Pause))
		session.POST("/advance", s.simple((*engine.Session).Advance))
		session.POST("/end", s.simple((*engine.Session).End))
		session.POST("/recompute", s.simple((*engine.Session).Recompute))
		session.POST("/lift", s.changeLift)
		session.POST("/judge", s.judge)
	}

	r.POST("/declarations", s.declare)
	r.POST("/protests", s.fileProtest)
	r.POST("/protests/:id/resolve", s.resolveProtest)

	s.router = r
	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully. Open event streams end when their request contexts do.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("display listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("listen on %s: %w", addr, err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	}
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Debug("request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		)
	}
}
