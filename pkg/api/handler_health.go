package api

import (
	"net/http"

	echo "github.com/labstack/echo/v5"

	"github.com/oculairmedia/webhook-receiver-letta/pkg/version"
)

// healthHandler handles GET /health. Liveness only: external services are
// deliberately not checked so a flaky upstream cannot get this process
// restarted.
func (s *Server) healthHandler(c *echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status":  "ok",
		"version": version.GitCommit,
	})
}
