package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/jonatan-cruz/proyecto-intermodular-dam-25-26--Jonatan-Jose/internal/api/handlers"
	"github.com/jonatan-cruz/proyecto-intermodular-dam-25-26--Jonatan-Jose/internal/api/middleware"
	"github.com/jonatan-cruz/proyecto-intermodular-dam-25-26--Jonatan-Jose/internal/captcha"
	"github.com/jonatan-cruz/proyecto-intermodular-dam-25-26--Jonatan-Jose/internal/config"
	"github.com/jonatan-cruz/proyecto-intermodular-dam-25-26--Jonatan-Jose/internal/services"
	"github.com/jonatan-cruz/proyecto-intermodular-dam-25-26--Jonatan-Jose/internal/storage"
	"github.com/jonatan-cruz/proyecto-intermodular-dam-25-26--Jonatan-Jose/internal/tasks"
)

// SetupRouter configures and returns the main Gin engine. Services are
// built here because the handlers are the only consumers; the worker
// process builds its own set in main.
func SetupRouter(cfg *config.Config, db *mongo.Database, rdb *redis.Client, taskClient *tasks.Client) *gin.Engine {
	taxonomyService := services.NewTaxonomyService(db)
	articleService := services.NewArticleService(db, cfg, taxonomyService)
	userService := services.NewUserService(db, rdb, cfg, articleService)
	chatService := services.NewChatService(db, articleService, taskClient)
	commentService := services.NewCommentService(db, articleService, taskClient)
	purchaseService := services.NewPurchaseService(db, articleService, taskClient)
	ratingService := services.NewRatingService(db, userService)
	reportService := services.NewReportService(db, articleService, commentService, userService)
	settingsService := services.NewSettingsService(db, rdb)

	storageService, err := storage.NewS3Storage(cfg)
	if err != nil {
		log.Fatalf("CRITICAL: Failed to initialize S3 storage for API: %v", err)
	}

	captchaVerifier := captcha.NewTurnstileVerifier(cfg)

	r := gin.Default()

	// Order matters: CORS first so preflights never hit the limiter.
	rateLimiter := middleware.NewRateLimiterMiddleware(cfg)
	r.Use(middleware.CORSMiddleware(cfg.CorsOrigins))
	r.Use(middleware.CaptchaMiddleware(cfg, captchaVerifier))
	r.Use(rateLimiter.Limit())

	jsonApiHandler := handlers.NewJsonApiHandler(cfg,
		userService, articleService, chatService, commentService,
		purchaseService, ratingService, reportService, taxonomyService,
		storageService, taskClient)
	restArticleHandler := handlers.NewRestArticleHandler(articleService, commentService)
	restUserHandler := handlers.NewRestUserHandler(userService)
	restSettingsHandler := handlers.NewRestSettingsHandler(settingsService)
	restTaxonomyHandler := handlers.NewRestTaxonomyHandler(taxonomyService)

	v1 := r.Group("/v1")
	{
		// The JSON API carries its own per-method auth.
		v1.POST("/api", jsonApiHandler.HandleRequest)

		// Public read-only REST surface.
		v1.GET("/articles", restArticleHandler.SearchArticles)
		v1.GET("/articles/:code", restArticleHandler.GetArticleByCode)
		v1.GET("/articles/:code/comments", restArticleHandler.GetArticleComments)
		v1.GET("/users/:code", restUserHandler.GetUserByCode)
		v1.GET("/users/:code/articles", restArticleHandler.GetUserArticles)
		v1.GET("/categories", restTaxonomyHandler.ListCategories)
		v1.GET("/tags", restTaxonomyHandler.ListTags)
		v1.GET("/settings", restSettingsHandler.GetPublicSettings)

		v1.GET("/ping", func(c *gin.Context) {
			c.String(http.StatusOK, "pong")
		})

		authRequired := v1.Group("/")
		authRequired.Use(middleware.AuthMiddleware(cfg.JwtSecret, cfg.JwtTTL, cfg.JwtRefreshThreshold, userService))
		{
			authRequired.GET("/me", restUserHandler.Me)
		}
	}

	return r
}

// SetupServiceRouter configures the operational control endpoint. It is
// bound to a separate port that is never exposed publicly. Redis is
// needed for the getTestEmail helper used by end-to-end test runs.
func SetupServiceRouter(cfg *config.Config, rdb *redis.Client, shutdownChan chan<- struct{}) *gin.Engine {
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())

	r.POST("/api", func(c *gin.Context) {
		var req struct {
			Method    string          `json:"method"`
			Arguments json.RawMessage `json:"arguments"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid request format"})
			return
		}

		switch req.Method {
		case "shutdown":
			log.Println("Received shutdown command via Service API")
			c.JSON(http.StatusOK, gin.H{"success": true, "result": "Shutdown initiated"})
			select {
			case shutdownChan <- struct{}{}:
			default:
				log.Println("Shutdown channel already signaled or blocked.")
			}
		case "getTestEmail":
			var args []string // ["template_id", "email"]
			if err := json.Unmarshal(req.Arguments, &args); err != nil || len(args) != 2 {
				c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid arguments: expected JSON array [templateID, email]"})
				return
			}
			redisKey := fmt.Sprintf("mockemail:%s:%s", args[1], args[0])

			// The email lands asynchronously via the bg worker, so poll
			// briefly instead of failing on the first miss.
			var emailJSON string
			found := false
			ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
			defer cancel()
			for i := 0; i < 10; i++ {
				var getErr error
				emailJSON, getErr = rdb.Get(ctx, redisKey).Result()
				if getErr == nil {
					found = true
					rdb.Del(ctx, redisKey)
					break
				}
				if getErr != redis.Nil {
					log.Printf("Service API: Error getting key %s from Redis: %v", redisKey, getErr)
					c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Redis error"})
					return
				}
				time.Sleep(200 * time.Millisecond)
			}

			if !found {
				c.JSON(http.StatusNotFound, gin.H{"success": false, "error": fmt.Sprintf("Test email not found in Redis for key %s", redisKey)})
				return
			}

			var emailData map[string]interface{}
			if err := json.Unmarshal([]byte(emailJSON), &emailData); err != nil {
				log.Printf("Service API: Error unmarshalling email data from key %s: %v", redisKey, err)
				c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to parse stored email data"})
				return
			}

			c.JSON(http.StatusOK, gin.H{"success": true, "data": emailData})

		default:
			c.JSON(http.StatusNotFound, gin.H{"success": false, "error": fmt.Sprintf("Unknown service method: %s", req.Method)})
		}
	})
	return r
}
