// Package api exposes the HTTP surface: the webhook endpoints, liveness
// probe, and agent-tracker introspection.
package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	echo "github.com/labstack/echo/v5"

	"github.com/oculairmedia/webhook-receiver-letta/pkg/pipeline"
	"github.com/oculairmedia/webhook-receiver-letta/pkg/tracker"
)

// WebhookProcessor runs the enrichment pipeline for one parsed event.
// Satisfied by *pipeline.Pipeline.
type WebhookProcessor interface {
	Process(ctx context.Context, event *pipeline.Event) *pipeline.Response
}

// Server is the HTTP server for the enricher service.
type Server struct {
	echo       *echo.Echo
	httpServer *http.Server
	processor  WebhookProcessor
	tracker    *tracker.Tracker
	logger     *slog.Logger
}

// NewServer creates the server and registers all routes.
func NewServer(processor WebhookProcessor, tr *tracker.Tracker) *Server {
	s := &Server{
		echo:      echo.New(),
		processor: processor,
		tracker:   tr,
		logger:    slog.Default().With("component", "api"),
	}

	s.echo.Use(recoverPanics())
	s.echo.Use(requestID())
	s.echo.Use(securityHeaders())

	s.echo.POST("/webhook", s.webhookHandler)
	s.echo.POST("/webhook/letta", s.webhookHandler)
	s.echo.GET("/health", s.healthHandler)
	s.echo.GET("/agent-tracker/status", s.trackerStatusHandler)
	s.echo.POST("/agent-tracker/reset", s.trackerResetHandler)

	return s
}

// Start begins serving on addr and blocks until the listener fails or
// Shutdown is called.
func (s *Server) Start(addr string) error {
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.echo,
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.logger.Info("HTTP server listening", "addr", addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown drains in-flight requests and stops the listener.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}
