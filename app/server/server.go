package server

import (
	"context"
	"log/slog"
	"time"

	"pamubot/app/config"
	"pamubot/app/service/chat"
	"pamubot/app/service/history"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/samber/do"
)

// Server is the HTTP front end: session management plus the single-shot and
// streaming chat endpoints.
type Server struct {
	cfg   *config.Config
	store history.Store
	graph *chat.Graph

	app *fiber.App
}

func New(di *do.Injector) (*Server, error) {
	return newServer(
		do.MustInvoke[*config.Config](di),
		do.MustInvoke[*history.Service](di),
		do.MustInvoke[*chat.Graph](di),
	), nil
}

func newServer(cfg *config.Config, store history.Store, graph *chat.Graph) *Server {
	s := &Server{
		cfg:   cfg,
		store: store,
		graph: graph,
	}

	s.app = fiber.New(fiber.Config{
		AppName:               "pamubot",
		DisableStartupMessage: true,
		ReadTimeout:           time.Minute,
	})

	s.app.Use(recover.New())
	s.app.Use(cors.New())

	s.app.Get("/health", s.handleHealth)
	s.app.Post("/sessions", s.handleCreateSession)
	s.app.Get("/sessions/:id", s.handleGetSession)
	s.app.Delete("/sessions/:id", s.handleDeleteSession)
	s.app.Post("/chat", s.handleChat)
	s.app.Post("/chat/stream", s.handleChatStream)

	return s
}

func (s *Server) Run(ctx context.Context) error {
	go func() {
		<-ctx.Done()

		if err := s.app.ShutdownWithTimeout(10 * time.Second); err != nil {
			slog.Error("Server shutdown failed", "error", err)
		}
	}()

	slog.Info("HTTP server listening", "addr", s.cfg.Server.Addr)

	return s.app.Listen(s.cfg.Server.Addr)
}

func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}
