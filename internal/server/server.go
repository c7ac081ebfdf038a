package server

import (
	"context"
	"log"
	"time"

	"tricys-client/internal/bootstrap"
	"tricys-client/internal/config"
	"tricys-client/internal/pkg/serverutils"

	"github.com/gofiber/contrib/otelfiber"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
)

type Server struct {
	app       *fiber.App
	cfg       *config.Config
	container *bootstrap.Container
}

func New(cfg *config.Config, container *bootstrap.Container) *Server {
	app := fiber.New(fiber.Config{
		BodyLimit:             4 * 1024 * 1024,
		DisableStartupMessage: cfg.IsProduction(),
	})

	// The renderer is served from a dev server or file:// origin.
	app.Use(cors.New(cors.Config{
		AllowOrigins: cfg.Bridge.AllowedOrigins,
		AllowHeaders: "Origin, Content-Type, Accept",
		AllowMethods: "GET, POST, PUT, DELETE, OPTIONS",
	}))

	// OpenTelemetry tracing middleware (traces all HTTP requests)
	app.Use(otelfiber.Middleware())

	app.Use(serverutils.ErrorHandlerMiddleware())

	app.Get("/metrics", adaptor.HTTPHandler(container.Metrics.Handler()))

	registerRoutes(app, container)

	return &Server{
		app:       app,
		cfg:       cfg,
		container: container,
	}
}

func (s *Server) GetApp() *fiber.App {
	return s.app
}

// Run blocks serving the bridge on the loopback interface until ctx ends.
func (s *Server) Run(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		if err := s.app.ShutdownWithTimeout(5 * time.Second); err != nil {
			log.Printf("[WARN] Bridge shutdown: %v", err)
		}
	}()

	addr := "127.0.0.1:" + s.cfg.Bridge.Port
	log.Printf("✅ Viewer bridge is running on http://%s", addr)
	return s.app.Listen(addr)
}

func registerRoutes(app *fiber.App, c *bootstrap.Container) {
	api := app.Group("/api")
	session := serverutils.SessionMiddleware(c.AuthService)

	c.AuthController.RegisterRoutes(api)
	c.NavigationController.RegisterRoutes(api)
	c.ViewerController.RegisterRoutes(api, session)
	c.AnalysisController.RegisterRoutes(api, session)
	c.AdminController.RegisterRoutes(api, serverutils.AdminMiddleware(c.AuthService))

	c.NotificationHandler.RegisterRoutes(api)
}
