package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/jonatan-cruz/proyecto-intermodular-dam-25-26--Jonatan-Jose/internal/models"
	"github.com/jonatan-cruz/proyecto-intermodular-dam-25-26--Jonatan-Jose/internal/services"
	"github.com/jonatan-cruz/proyecto-intermodular-dam-25-26--Jonatan-Jose/internal/utils"
)

// RestArticleHandler serves the public read-only article endpoints.
type RestArticleHandler struct {
	articleService services.IArticleService
	commentService services.ICommentService
}

// NewRestArticleHandler creates a new RestArticleHandler.
func NewRestArticleHandler(articleService services.IArticleService, commentService services.ICommentService) *RestArticleHandler {
	return &RestArticleHandler{articleService: articleService, commentService: commentService}
}

// SearchArticles handles GET /v1/articles.
func (h *RestArticleHandler) SearchArticles(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if err != nil || limit <= 0 || limit > 200 {
		limit = 50
	}
	offset, err := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if err != nil || offset < 0 {
		offset = 0
	}

	filter := services.ArticleFilter{
		Category:  c.Query("category"),
		Query:     c.Query("q"),
		Condition: models.ArticleCondition(c.Query("condition")),
		Location:  c.Query("location"),
		Limit:     limit,
		Offset:    offset,
	}
	if v := c.Query("price_min"); v != "" {
		if min, err := strconv.ParseFloat(v, 64); err == nil && min >= 0 {
			filter.PriceMin = &min
		}
	}
	if v := c.Query("price_max"); v != "" {
		if max, err := strconv.ParseFloat(v, 64); err == nil && max >= 0 {
			filter.PriceMax = &max
		}
	}

	articles, err := h.articleService.SearchArticles(c.Request.Context(), filter)
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to search articles"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": articles})
}

// GetArticleByCode handles GET /v1/articles/:code.
func (h *RestArticleHandler) GetArticleByCode(c *gin.Context) {
	code, err := utils.ParseCode(strings.TrimSpace(c.Param("code")))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid article code format"})
		return
	}

	article, err := h.articleService.GetArticle(c.Request.Context(), code)
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "article not found"})
		} else {
			_ = c.Error(err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to retrieve article"})
		}
		return
	}

	c.JSON(http.StatusOK, article)
}

// GetArticleComments handles GET /v1/articles/:code/comments listing the
// public comments on an article.
func (h *RestArticleHandler) GetArticleComments(c *gin.Context) {
	code, err := utils.ParseCode(strings.TrimSpace(c.Param("code")))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid article code format"})
		return
	}

	if _, err := h.articleService.FindArticleByCode(c.Request.Context(), code); err != nil {
		if errors.Is(err, services.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "article not found"})
		} else {
			_ = c.Error(err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to retrieve article"})
		}
		return
	}

	comments, err := h.commentService.CommentsForArticle(c.Request.Context(), code)
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch comments"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": comments})
}

// GetUserArticles handles GET /v1/users/:code/articles listing a seller's
// published articles.
func (h *RestArticleHandler) GetUserArticles(c *gin.Context) {
	code, err := utils.ParseCode(strings.TrimSpace(c.Param("code")))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user code format"})
		return
	}

	articles, err := h.articleService.ArticlesByOwner(c.Request.Context(), code)
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch articles"})
		return
	}

	published := make([]models.Article, 0, len(articles))
	for _, a := range articles {
		if a.State == models.ArticlePublished {
			published = append(published, a)
		}
	}
	c.JSON(http.StatusOK, published)
}
