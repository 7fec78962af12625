package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/saxenaaman628/krathong-voting/config"
	"github.com/saxenaaman628/krathong-voting/internal/models"
	"github.com/saxenaaman628/krathong-voting/internal/utils"
)

const userKey = "user"

// JWTAuthMiddleware requires a valid bearer token and stores the caller in
// the context. Admin capability comes from the allow-list, never the token.
func JWTAuthMiddleware(cfg config.Config) gin.HandlerFunc {
	secret := []byte(cfg.JWTSecret)
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Please sign in first", "code": "unauthenticated"})
			return
		}
		claims, err := utils.ParseToken(secret, parts[1])
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token", "code": "unauthenticated"})
			return
		}
		user := models.User{
			ID:          claims.Subject,
			Email:       models.NormalizeEmail(claims.Email),
			DisplayName: claims.DisplayName,
			IsAdmin:     cfg.IsAdmin(claims.Email),
		}
		c.Set(userKey, user)
		c.Set("userID", user.ID)
		c.Next()
	}
}

// AdminOnly must run after JWTAuthMiddleware.
func AdminOnly() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := CurrentUser(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Please sign in first", "code": "unauthenticated"})
			return
		}
		if !user.IsAdmin {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "You do not have permission to use admin features", "code": "forbidden"})
			return
		}
		c.Next()
	}
}

func CurrentUser(c *gin.Context) (models.User, bool) {
	v, ok := c.Get(userKey)
	if !ok {
		return models.User{}, false
	}
	user, ok := v.(models.User)
	return user, ok
}
