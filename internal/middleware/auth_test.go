package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saxenaaman628/krathong-voting/config"
	"github.com/saxenaaman628/krathong-voting/internal/utils"
)

func newRouter(cfg config.Config) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/me", JWTAuthMiddleware(cfg), func(c *gin.Context) {
		user, _ := CurrentUser(c)
		c.JSON(http.StatusOK, user)
	})
	r.GET("/admin", JWTAuthMiddleware(cfg), AdminOnly(), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	return r
}

func get(r *gin.Engine, path, authHeader string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestJWTAuthMiddleware(t *testing.T) {
	cfg := config.Config{JWTSecret: "secret", AdminEmails: []string{"boss@example.com"}}
	r := newRouter(cfg)

	tok, err := utils.GenerateJWTToken([]byte("secret"), "uid-1", "Alice@Example.com", "Alice", time.Hour)
	require.NoError(t, err)
	w := get(r, "/me", "Bearer "+tok)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"id":"uid-1","email":"alice@example.com","displayName":"Alice","isAdmin":false}`, w.Body.String())

	other, err := utils.GenerateJWTToken([]byte("other"), "uid-1", "alice@example.com", "Alice", time.Hour)
	require.NoError(t, err)

	for name, header := range map[string]string{
		"missing":      "",
		"wrong scheme": "Basic " + tok,
		"empty token":  "Bearer ",
		"bad secret":   "Bearer " + other,
	} {
		t.Run(name, func(t *testing.T) {
			w := get(r, "/me", header)
			assert.Equal(t, http.StatusUnauthorized, w.Code)
			assert.Contains(t, w.Body.String(), `"code":"unauthenticated"`)
		})
	}
}

func TestAdminOnly(t *testing.T) {
	cfg := config.Config{JWTSecret: "secret", AdminEmails: []string{"boss@example.com"}}
	r := newRouter(cfg)

	user, err := utils.GenerateJWTToken([]byte("secret"), "uid-1", "alice@example.com", "Alice", time.Hour)
	require.NoError(t, err)
	w := get(r, "/admin", "Bearer "+user)
	assert.Equal(t, http.StatusForbidden, w.Code)

	admin, err := utils.GenerateJWTToken([]byte("secret"), "uid-2", "BOSS@example.com", "Boss", time.Hour)
	require.NoError(t, err)
	w = get(r, "/admin", "bearer "+admin)
	assert.Equal(t, http.StatusNoContent, w.Code)
}
