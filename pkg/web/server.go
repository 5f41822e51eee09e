// Package web serves the rep-tracking HTTP API and the live websocket feeds.
package web

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync/atomic"
	"time"

	contribws "github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/websocket/v2"

	"github.com/hiral-chawra/Protofito/pkg/exercise"
	"github.com/hiral-chawra/Protofito/pkg/hub"
	"github.com/hiral-chawra/Protofito/pkg/protocol"
	"github.com/hiral-chawra/Protofito/pkg/session"
	"github.com/hiral-chawra/Protofito/pkg/source"
)

// Config configures the HTTP server.
type Config struct {
	// Port to listen on. Default: "8080"
	Port string `yaml:"port" json:"port"`

	// StaticDir serves a dashboard from disk when set.
	StaticDir string `yaml:"static_dir" json:"static_dir"`

	// CORS enables permissive CORS for local development.
	CORS bool `yaml:"cors" json:"cors"`

	// PingInterval is the keepalive ping period for result streams.
	// Zero keeps the hub default (54s).
	PingInterval time.Duration `yaml:"ping_interval" json:"ping_interval"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Port: "8080",
		CORS: true,
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("port is required")
	}
	if c.PingInterval < 0 {
		return fmt.Errorf("ping_interval must not be negative, got %v", c.PingInterval)
	}
	return nil
}

// Server is the HTTP and websocket front end for one session.
type Server struct {
	app     *fiber.App
	cfg     Config
	logger  *slog.Logger
	started time.Time

	session *session.Session
	catalog *exercise.Catalog

	// ingest receives frames from /ws/frames; nil disables the endpoint.
	ingest *source.Push

	// Hub for per-tick results
	results *hub.Hub

	published      atomic.Uint64
	ingestedFrames atomic.Uint64
	rejectedFrames atomic.Uint64
}

// NewServer creates the server. ingest may be nil when frames come from
// another source.
func NewServer(cfg Config, sess *session.Session, catalog *exercise.Catalog, ingest *source.Push, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "web")

	s := &Server{
		cfg:     cfg,
		logger:  logger,
		started: time.Now(),
		session: sess,
		catalog: catalog,
		ingest:  ingest,
		results: hub.New("results", logger),
	}
	if cfg.PingInterval > 0 {
		s.results.SetKeepalive(hub.Keepalive{
			PingPeriod: cfg.PingInterval,
			PongWait:   cfg.PingInterval * 10 / 9,
		})
	}

	app := fiber.New(fiber.Config{
		AppName:               "Protofito",
		DisableStartupMessage: true,
	})

	app.Use(recover.New())
	if cfg.CORS {
		app.Use(cors.New())
	}

	app.Get("/health", s.handleHealth)
	app.Get("/metrics", metricsHandler(s.newMetrics()))

	// API routes
	api := app.Group("/api")
	api.Get("/status", s.handleStatus)
	api.Post("/session/start", s.handleStartSession)
	api.Get("/movements", s.handleListMovements)
	api.Get("/exercises", s.handleListExercises)
	api.Get("/exercises/:id", s.handleGetExercise)

	// WebSocket upgrade middleware
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})

	app.Get("/ws/results", websocket.New(s.handleResultsWS))
	if ingest != nil {
		app.Get("/ws/frames", contribws.New(s.handleFramesWS))
	}

	if cfg.StaticDir != "" {
		app.Static("/", cfg.StaticDir)
	}

	s.app = app
	return s
}

// App returns the underlying fiber app.
func (s *Server) App() *fiber.App {
	return s.app
}

// Hub returns the result broadcast hub.
func (s *Server) Hub() *hub.Hub {
	return s.results
}

// Start listens on the configured port until ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", ":"+s.cfg.Port)
	if err != nil {
		return fmt.Errorf("listen on :%s: %w", s.cfg.Port, err)
	}
	return s.Serve(ctx, ln)
}

// Serve runs the hub and serves HTTP on ln until ctx is cancelled.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	go s.results.Run(ctx)

	go func() {
		<-ctx.Done()
		if err := s.app.ShutdownWithTimeout(5 * time.Second); err != nil {
			s.logger.Warn("shutdown failed", "error", err)
		}
	}()

	s.logger.Info("listening", "addr", ln.Addr().String())
	if err := s.app.Listener(ln); err != nil && !errors.Is(err, net.ErrClosed) {
		return err
	}
	return nil
}

// Publish broadcasts a result to dashboard clients. It implements session.Sink.
func (s *Server) Publish(res session.Result) error {
	raw, err := protocol.Encode(protocol.TypeResult, res)
	if err != nil {
		return err
	}
	s.results.Broadcast(raw)
	s.published.Add(1)
	return nil
}

// restart begins a new session and tells every dashboard.
func (s *Server) restart() session.Snapshot {
	snap := s.session.Start()
	if raw, err := protocol.Encode(protocol.TypeState, snap); err == nil {
		s.results.Broadcast(raw)
	}
	return snap
}
