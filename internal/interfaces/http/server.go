package http

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/zeroxtech/zeno/internal/interfaces/http/handlers"
)

// Server is the HTTP surface: webhook ingestion plus the admin API.
type Server struct {
	server *http.Server
	logger *zap.Logger
}

// Config holds the HTTP server settings.
type Config struct {
	Host string
	Port int
	Mode string // local, production

	// WebhookAPIKey, when set, must match the apikey header on
	// webhook deliveries.
	WebhookAPIKey string
}

func NewServer(
	cfg Config,
	webhook *handlers.WebhookHandler,
	admin *handlers.AdminHandler,
	auth *handlers.AuthHandler,
	logger *zap.Logger,
) *Server {
	if cfg.Mode == "production" {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(ginLogger(logger))

	setupRoutes(router, cfg, webhook, admin, auth)

	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	return &Server{
		server: &http.Server{Addr: addr, Handler: router},
		logger: logger,
	}
}

func (s *Server) Start(ctx context.Context) error {
	s.logger.Info("Starting HTTP server", zap.String("address", s.server.Addr))

	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error("HTTP server error", zap.Error(err))
		}
	}()

	return nil
}

func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("Stopping HTTP server")
	return s.server.Shutdown(ctx)
}

func setupRoutes(
	router *gin.Engine,
	cfg Config,
	webhook *handlers.WebhookHandler,
	admin *handlers.AdminHandler,
	auth *handlers.AuthHandler,
) {
	router.POST("/webhook", webhookAuth(cfg.WebhookAPIKey), webhook.Handle)

	// Liveness only; the detailed health report is admin-authenticated.
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "ok",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
	})

	api := router.Group("/admin/api")
	{
		api.POST("/login", auth.Login)
		api.POST("/logout", auth.Logout)

		protected := api.Group("", auth.Middleware())
		{
			protected.GET("/health", admin.Health)
			protected.GET("/stats", admin.Stats)
			protected.GET("/settings", admin.GetSettings)
			protected.POST("/settings", admin.UpdateSettings)
			protected.GET("/conversations", admin.ListConversations)
			protected.GET("/conversations/:phone", admin.GetConversation)
			protected.GET("/search", admin.Search)
		}
	}
}

// webhookAuth verifies the shared-secret header when one is configured.
func webhookAuth(apiKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if apiKey != "" && c.GetHeader("apikey") != apiKey {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid API key"})
			return
		}
		c.Next()
	}
}

func ginLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		logger.Info("HTTP request",
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.String("query", query),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("ip", c.ClientIP()),
		)
	}
}
