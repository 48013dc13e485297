package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jonatan-cruz/proyecto-intermodular-dam-25-26--Jonatan-Jose/internal/services"
)

// RestTaxonomyHandler serves the category and tag reference data.
type RestTaxonomyHandler struct {
	taxonomyService services.ITaxonomyService
}

// NewRestTaxonomyHandler creates a new RestTaxonomyHandler.
func NewRestTaxonomyHandler(taxonomyService services.ITaxonomyService) *RestTaxonomyHandler {
	return &RestTaxonomyHandler{taxonomyService: taxonomyService}
}

// ListCategories handles GET /v1/categories.
func (h *RestTaxonomyHandler) ListCategories(c *gin.Context) {
	categories, err := h.taxonomyService.ListCategories(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list categories"})
		return
	}
	c.JSON(http.StatusOK, categories)
}

// ListTags handles GET /v1/tags.
func (h *RestTaxonomyHandler) ListTags(c *gin.Context) {
	tags, err := h.taxonomyService.ListTags(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list tags"})
		return
	}
	c.JSON(http.StatusOK, tags)
}
