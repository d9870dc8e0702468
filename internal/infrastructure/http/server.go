package http

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	handlers "github.com/tasyapp/billing/internal/adapter/handler/http"
	"github.com/tasyapp/billing/internal/config"
	"github.com/tasyapp/billing/internal/middleware/auth"
	"github.com/tasyapp/billing/pkg/logger"
	"go.uber.org/zap"
)

// Handlers are the HTTP handlers mounted by the server
type Handlers struct {
	Webhook *handlers.WebhookHandler
	Account *handlers.AccountHandler
}

type Server struct {
	config *config.Config
	logger *zap.Logger
	echo   *echo.Echo
}

// NewServer builds the echo instance with all routes registered.
// gatherer backs the /metrics endpoint.
func NewServer(cfg *config.Config, log *zap.Logger, h Handlers, gatherer prometheus.Gatherer) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	logger.WithEchoLogger(e, log)

	e.Use(middleware.RequestID())
	e.Use(logger.NewEchoRequestLogger(log, "/health", "/metrics"))
	e.Use(middleware.Recover())

	s := &Server{
		config: cfg,
		logger: log,
		echo:   e,
	}
	s.setupRoutes(h, gatherer)
	return s
}

// Handler exposes the router, mainly for tests
func (s *Server) Handler() http.Handler {
	return s.echo
}

func (s *Server) Start() error {
	addr := s.config.Server.HTTP.Addr()
	s.logger.Info("Starting HTTP server", zap.String("address", addr))

	if err := s.echo.Start(addr); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

func (s *Server) setupRoutes(h Handlers, gatherer prometheus.Gatherer) {
	s.echo.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "healthy",
			"service": s.config.Service.Name,
		})
	})
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))

	// Stripe endpoints take the raw body; no auth, no body limit rewrites.
	s.echo.POST("/webhook", h.Webhook.HandleWebhook)
	s.echo.POST("/webhooks/stripe/viral", h.Webhook.HandleWebhook)

	jwtConfig := auth.JWTConfig{
		Secret: s.config.Auth.JWTSecret,
		Logger: s.logger,
	}

	v1 := s.echo.Group("/api/v1", auth.JWTMiddleware(jwtConfig))
	v1.GET("/credits", h.Account.GetCredits)
	v1.GET("/credits/history", h.Account.GetCreditHistory)
	v1.GET("/subscriptions/current", h.Account.GetCurrentSubscription)
}
