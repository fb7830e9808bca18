package api

import (
	"errors"
	"io"
	"net/http"

	echo "github.com/labstack/echo/v5"

	"github.com/oculairmedia/webhook-receiver-letta/pkg/pipeline"
)

// maxWebhookBody caps the request body read so oversized payloads cannot
// exhaust memory.
const maxWebhookBody = 1 << 20

// webhookHandler handles POST /webhook and POST /webhook/letta. Any payload
// that parses gets a 200 with per-subsystem outcomes in the body; 400 is
// reserved for malformed events.
func (s *Server) webhookHandler(c *echo.Context) error {
	body, err := io.ReadAll(io.LimitReader(c.Request().Body, maxWebhookBody))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "read request body: "+err.Error())
	}

	event, err := pipeline.ParseEvent(body)
	if err != nil {
		if errors.Is(err, pipeline.ErrMissingPrompt) {
			return echo.NewHTTPError(http.StatusBadRequest, "webhook has no prompt")
		}
		return echo.NewHTTPError(http.StatusBadRequest, "malformed webhook: "+err.Error())
	}

	s.logger.Info("Webhook received",
		"event_type", event.Type,
		"agent_id", event.AgentID())

	resp := s.processor.Process(c.Request().Context(), event)
	return c.JSON(http.StatusOK, resp)
}
