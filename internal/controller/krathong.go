package controller

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/saxenaaman628/krathong-voting/internal/middleware"
	"github.com/saxenaaman628/krathong-voting/internal/models"
	redishandler "github.com/saxenaaman628/krathong-voting/internal/redisHandler"
)

func (h *Handler) ListKrathongs(c *gin.Context) {
	entries, err := h.store.ListEntries(c.Request.Context())
	if err != nil {
		h.abortWithStoreError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": entries})
}

func (h *Handler) GetKrathong(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		abortWithError(c, http.StatusBadRequest, "invalid_request", "Please pass id")
		return
	}
	entry, err := h.store.GetEntry(c.Request.Context(), id)
	if err != nil {
		h.abortWithStoreError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": entry})
}

func (h *Handler) RegisterKrathong(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		abortWithError(c, http.StatusUnauthorized, "unauthenticated", "Please sign in first")
		return
	}
	var req models.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	entry, err := h.store.CreateEntry(c.Request.Context(), user, req)
	if err != nil {
		h.abortWithStoreError(c, err)
		return
	}
	h.log.Info().Str("krathong_id", entry.ID).Str("user_id", user.ID).Msg("krathong registered")
	c.JSON(http.StatusCreated, gin.H{"message": "Krathong registered", "data": entry})
}

// Me echoes the identity the token resolved to.
func (h *Handler) Me(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		abortWithError(c, http.StatusUnauthorized, "unauthenticated", "Please sign in first")
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": user})
}

// MyTeam returns the entry the caller is a member of.
func (h *Handler) MyTeam(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		abortWithError(c, http.StatusUnauthorized, "unauthenticated", "Please sign in first")
		return
	}
	entry, err := h.store.FindEntryByMember(c.Request.Context(), user.Email)
	if errors.Is(err, redishandler.ErrEntryNotFound) {
		abortWithError(c, http.StatusNotFound, "not_found", "You are not in a team yet")
		return
	}
	if err != nil {
		h.abortWithStoreError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": entry})
}

func (h *Handler) GetSettings(c *gin.Context) {
	cfg, err := h.store.GetSettings(c.Request.Context())
	if err != nil {
		h.abortWithStoreError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": cfg})
}
