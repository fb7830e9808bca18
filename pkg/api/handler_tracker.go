package api

import (
	"net/http"
	"time"

	echo "github.com/labstack/echo/v5"

	"github.com/oculairmedia/webhook-receiver-letta/pkg/tracker"
)

type trackerStatusResponse struct {
	tracker.Status
	Timestamp string `json:"timestamp"`
}

// trackerStatusHandler handles GET /agent-tracker/status.
func (s *Server) trackerStatusHandler(c *echo.Context) error {
	return c.JSON(http.StatusOK, trackerStatusResponse{
		Status:    s.tracker.Status(),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

// trackerResetHandler handles POST /agent-tracker/reset.
func (s *Server) trackerResetHandler(c *echo.Context) error {
	s.tracker.Reset()
	s.logger.Info("Agent tracker reset")
	return c.JSON(http.StatusOK, map[string]string{
		"status":    "reset",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}
