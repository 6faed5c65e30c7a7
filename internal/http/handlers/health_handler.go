package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// HealthResponse reports liveness.
type HealthResponse struct {
	Status    string `json:"status"    example:"OK"`
	Timestamp string `json:"timestamp" example:"2025-01-01T12:00:00.000Z"`
	Service   string `json:"service"   example:"Portfolio Contact API"`
}

// timestampLayout is ISO 8601 in UTC with millisecond precision.
const timestampLayout = "2006-01-02T15:04:05.000Z07:00"

// Health godoc
// @ID          health
// @Summary     Liveness probe
// @Description Always 200 while the process is serving; does not probe the mail provider.
// @Tags        Health
// @Produce     json
// @Success     200  {object}  handlers.HealthResponse
// @Router      /health [get]
func (h *Handlers) Health(c *gin.Context) {
	ok(c, http.StatusOK, HealthResponse{
		Status:    "OK",
		Timestamp: h.now().UTC().Format(timestampLayout),
		Service:   h.serviceName,
	})
}
