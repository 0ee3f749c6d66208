package overlay

import (
	"fmt"
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/websocket/v2"

	"github.com/leviathanlabs/leviathan/pkg/gamestate"
	"github.com/leviathanlabs/leviathan/pkg/hub"
)

// ServerConfig holds the overlay server's wiring.
type ServerConfig struct {
	Host      string
	Port      int
	StaticDir string // directory served at GET /
	Store     *Store
	Events    *gamestate.Log
}

// Server exposes the overlay UI, the current state document, and the
// gamestate ingest endpoint. Ingestion and state reads never block on a
// running voice turn; the only shared critical section is the Store's.
type Server struct {
	app    *fiber.App
	cfg    ServerConfig
	hub    *hub.Hub
	logger *slog.Logger
}

// NewServer creates the overlay server and registers its routes.
func NewServer(cfg ServerConfig) *Server {
	s := &Server{
		cfg:    cfg,
		hub:    hub.New("overlay"),
		logger: slog.Default().With("component", "overlay.server"),
	}

	app := fiber.New(fiber.Config{
		AppName:               "Leviathan Overlay",
		DisableStartupMessage: true,
	})

	// CORS so OBS browser sources and local tooling can read state
	app.Use(cors.New())

	if cfg.StaticDir != "" {
		app.Static("/", cfg.StaticDir)
	}

	app.Get("/state", s.handleState)
	app.Get("/healthz", s.handleHealth)
	app.Post("/gamestate", s.handleIngest)

	// WebSocket upgrade middleware
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/state", websocket.New(s.handleStateWS))

	// Push every state change to connected overlay pages
	if cfg.Store != nil {
		cfg.Store.OnChange(func(st State) {
			s.hub.BroadcastJSON(st)
		})
	}

	s.app = app
	return s
}

// Start binds and serves. Blocks until Shutdown; a bind failure (for
// example the port already in use) is returned immediately.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	go s.hub.Run()
	s.logger.Info("overlay server listening", "addr", addr)
	if err := s.app.Listen(addr); err != nil {
		return fmt.Errorf("overlay: listen on %s: %w", addr, err)
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}

// App returns the underlying fiber app. Exposed for handler tests.
func (s *Server) App() *fiber.App {
	return s.app
}

// ClientCount returns the number of connected websocket clients.
func (s *Server) ClientCount() int {
	return s.hub.ClientCount()
}
