package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/swcolombo/waitlist-api/internal/services"
)

type EventHandler struct {
	service services.EventServiceInterface
}

func NewEventHandler(service services.EventServiceInterface) *EventHandler {
	return &EventHandler{service: service}
}

func (h *EventHandler) Countdown(c *gin.Context) {
	c.Header("Cache-Control", "no-cache, no-store, max-age=0, must-revalidate")
	c.JSON(http.StatusOK, h.service.Countdown())
}
