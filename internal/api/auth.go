package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/saxenaaman628/krathong-voting/config"
	"github.com/saxenaaman628/krathong-voting/internal/models"
	"github.com/saxenaaman628/krathong-voting/internal/utils"
)

type LoginRequest struct {
	UserID      string `json:"uid" binding:"required"`
	Email       string `json:"email" binding:"required,email"`
	DisplayName string `json:"name"`
}

// LoginHandler mints a token for whatever identity it is given. It stands in
// for the identity provider during development and is only mounted when
// AUTH_DEV_LOGIN is set.
func LoginHandler(cfg config.Config) gin.HandlerFunc {
	secret := []byte(cfg.JWTSecret)
	return func(c *gin.Context) {
		var req LoginRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "code": "invalid_request"})
			return
		}
		email := models.NormalizeEmail(req.Email)
		token, err := utils.GenerateJWTToken(secret, req.UserID, email, req.DisplayName, cfg.TokenTTL)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate token", "code": "internal"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"token": token, "isAdmin": cfg.IsAdmin(email)})
	}
}
