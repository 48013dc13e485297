package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jonatan-cruz/proyecto-intermodular-dam-25-26--Jonatan-Jose/internal/auth"
	"github.com/jonatan-cruz/proyecto-intermodular-dam-25-26--Jonatan-Jose/internal/services"
)

const (
	// ContextKeyUserCode holds the authenticated user's code in Gin context.
	ContextKeyUserCode = "userCode"
	// ContextKeyClaims holds the validated token claims.
	ContextKeyClaims = "claims"
	// ContextKeyNewToken holds a rotated token to return in the response envelope.
	ContextKeyNewToken = "newToken"
)

func abortUnauthorized(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"success":    false,
		"error_code": "UNAUTHORIZED",
		"message":    message,
	})
}

// AuthMiddleware validates the Bearer token, checks the account is still
// active, and silently rotates the token when it is close to expiry. The
// rotated token is stashed in the context for the envelope writer.
func AuthMiddleware(jwtSecret string, ttl, refreshThreshold time.Duration, userSvc services.IUserService) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			abortUnauthorized(c, "Authorization header required")
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
			abortUnauthorized(c, "Authorization header format must be Bearer {token}")
			return
		}

		claims, err := auth.ValidateJWT(parts[1], jwtSecret)
		if err != nil {
			abortUnauthorized(c, "Invalid or expired token")
			return
		}

		// Tokens outlive account deactivation, so re-check the user.
		user, err := userSvc.FindByCode(c.Request.Context(), claims.UserCode)
		if err != nil || !user.Active {
			abortUnauthorized(c, "Account no longer active")
			return
		}

		if newToken, rotated := auth.MaybeRefresh(claims, jwtSecret, ttl, refreshThreshold); rotated {
			c.Set(ContextKeyNewToken, newToken)
		}

		c.Set(ContextKeyUserCode, claims.UserCode)
		c.Set(ContextKeyClaims, claims)

		c.Next()
	}
}
