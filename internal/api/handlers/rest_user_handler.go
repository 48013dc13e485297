package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/jonatan-cruz/proyecto-intermodular-dam-25-26--Jonatan-Jose/internal/api/middleware"
	"github.com/jonatan-cruz/proyecto-intermodular-dam-25-26--Jonatan-Jose/internal/services"
	"github.com/jonatan-cruz/proyecto-intermodular-dam-25-26--Jonatan-Jose/internal/utils"
)

// RestUserHandler serves the public profile endpoint and the authenticated
// "who am I" endpoint.
type RestUserHandler struct {
	userService services.IUserService
}

// NewRestUserHandler creates a new RestUserHandler.
func NewRestUserHandler(userService services.IUserService) *RestUserHandler {
	return &RestUserHandler{userService: userService}
}

// GetUserByCode handles GET /v1/users/:code. The profile carries only
// public fields and the derived counters.
func (h *RestUserHandler) GetUserByCode(c *gin.Context) {
	code, err := utils.ParseCode(strings.TrimSpace(c.Param("code")))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user code format"})
		return
	}

	profile, err := h.userService.Profile(c.Request.Context(), code)
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
		} else {
			_ = c.Error(err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to retrieve user"})
		}
		return
	}

	c.JSON(http.StatusOK, profile)
}

// Me handles GET /v1/me behind the auth middleware.
func (h *RestUserHandler) Me(c *gin.Context) {
	codeVal, ok := c.Get(middleware.ContextKeyUserCode)
	code, castOK := codeVal.(utils.Code)
	if !ok || !castOK {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}

	profile, err := h.userService.Profile(c.Request.Context(), code)
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to retrieve profile"})
		return
	}

	c.JSON(http.StatusOK, profile)
}
