package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jonatan-cruz/proyecto-intermodular-dam-25-26--Jonatan-Jose/internal/services"
)

// RestSettingsHandler serves the client-facing validation limits so forms
// can mirror the server-side bounds without hardcoding them.
type RestSettingsHandler struct {
	settingsService services.ISettingsService
}

// NewRestSettingsHandler creates a new RestSettingsHandler.
func NewRestSettingsHandler(settingsService services.ISettingsService) *RestSettingsHandler {
	return &RestSettingsHandler{settingsService: settingsService}
}

// GetPublicSettings handles GET /v1/settings.
func (h *RestSettingsHandler) GetPublicSettings(c *gin.Context) {
	settings, err := h.settingsService.Get(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to retrieve settings"})
		return
	}

	c.JSON(http.StatusOK, settings)
}
