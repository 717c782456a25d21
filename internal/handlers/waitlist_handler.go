package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/swcolombo/waitlist-api/internal/models"
	"github.com/swcolombo/waitlist-api/internal/services"
)

type WaitlistHandler struct {
	service services.WaitlistServiceInterface
}

func NewWaitlistHandler(service services.WaitlistServiceInterface) *WaitlistHandler {
	return &WaitlistHandler{service: service}
}

// Join accepts a JSON or form-encoded waitlist submission
func (h *WaitlistHandler) Join(c *gin.Context) {
	var req models.WaitlistRequest
	if err := c.ShouldBind(&req); err != nil {
		respondError(c, http.StatusBadRequest, "Invalid request", err)
		return
	}

	res := h.service.Submit(c.Request.Context(), &req)
	if !res.OK {
		attachError(c, res.Cause)
		c.JSON(statusFor(res.Cause), res)
		return
	}

	c.JSON(http.StatusOK, res)
}

// Fields describes the form the site should render
func (h *WaitlistHandler) Fields(c *gin.Context) {
	fieldSet := h.service.FieldSet()

	fields := []string{"name", "email"}
	var designations []models.Designation
	if fieldSet.HasProfessionalFields() {
		fields = append(fields, "designation", "company", "contact")
		designations = models.Designations
	}

	c.Header("Cache-Control", "public, max-age=300")
	c.JSON(http.StatusOK, gin.H{
		"field_set":           fieldSet,
		"fields":              fields,
		"designations":        designations,
		"default_designation": models.DefaultDesignation,
		"configured":          h.service.Configured(),
	})
}
