package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type HealthHandler struct {
	waitlistConfigured  func() bool
	waitlistCircuitOpen func() bool
}

func NewHealthHandler(waitlistConfigured, waitlistCircuitOpen func() bool) *HealthHandler {
	return &HealthHandler{
		waitlistConfigured:  waitlistConfigured,
		waitlistCircuitOpen: waitlistCircuitOpen,
	}
}

// Healthcheck reports liveness. A missing or failing waitlist endpoint is
// reported but does not fail the check: the rest of the site keeps working
// without it.
func (h *HealthHandler) Healthcheck(c *gin.Context) {
	c.Header("Cache-Control", "no-cache, no-store, max-age=0, must-revalidate")

	c.JSON(http.StatusOK, gin.H{
		"status":                "ok",
		"waitlist_configured":   h.waitlistConfigured(),
		"waitlist_circuit_open": h.waitlistCircuitOpen(),
	})
}
