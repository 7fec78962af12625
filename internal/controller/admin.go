package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/saxenaaman628/krathong-voting/internal/metrics"
	"github.com/saxenaaman628/krathong-voting/internal/middleware"
	"github.com/saxenaaman628/krathong-voting/internal/models"
	redishandler "github.com/saxenaaman628/krathong-voting/internal/redisHandler"
)

type adjustPayload struct {
	Delta int64 `json:"delta" binding:"required,adjustment"`
}

type cancelPayload struct {
	KrathongID string `json:"krathongId" binding:"required"`
}

// AdjustScore moves a krathong's score one step up or down, never below zero.
func (h *Handler) AdjustScore(c *gin.Context) {
	var payload adjustPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		abortWithError(c, http.StatusBadRequest, "invalid_request", "delta must be 5 or -5")
		return
	}
	entryID := c.Param("id")

	score, err := h.store.AdjustScore(c.Request.Context(), entryID, payload.Delta)
	if err != nil {
		metrics.AdminActions.WithLabelValues("adjust", "error").Inc()
		h.abortWithStoreError(c, err)
		return
	}
	metrics.AdminActions.WithLabelValues("adjust", "ok").Inc()
	h.audit(c, "adjust").Str("krathong_id", entryID).Int64("delta", payload.Delta).Msg("admin action")
	c.JSON(http.StatusOK, gin.H{"message": "Score updated", "data": gin.H{"id": entryID, "score": score}})
}

// CancelVote takes back a user's vote. The user may vote again afterwards.
func (h *Handler) CancelVote(c *gin.Context) {
	var payload cancelPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		abortWithError(c, http.StatusBadRequest, "invalid_request", "krathongId is required")
		return
	}
	userID := c.Param("user_id")

	outcome, err := h.store.CancelVote(c.Request.Context(), userID, payload.KrathongID)
	if err != nil {
		metrics.AdminActions.WithLabelValues("cancel", "error").Inc()
		h.abortWithStoreError(c, err)
		return
	}
	metrics.AdminActions.WithLabelValues("cancel", outcome.String()).Inc()
	if outcome != redishandler.Cancelled {
		status, message := outcomeStatus(outcome)
		abortWithError(c, status, outcome.String(), message)
		return
	}
	h.audit(c, "cancel").Str("user_id", userID).Str("krathong_id", payload.KrathongID).Msg("admin action")
	c.JSON(http.StatusOK, gin.H{"message": "Vote cancelled", "code": outcome.String()})
}

func (h *Handler) UpdateSettings(c *gin.Context) {
	var patch models.SettingsPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		abortWithError(c, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if patch.RegistrationEnabled == nil && patch.VotingEnabled == nil {
		abortWithError(c, http.StatusBadRequest, "invalid_request", "Nothing to update")
		return
	}
	admin, _ := middleware.CurrentUser(c)

	cfg, err := h.store.UpdateSettings(c.Request.Context(), patch, admin.Email)
	if err != nil {
		metrics.AdminActions.WithLabelValues("settings", "error").Inc()
		h.abortWithStoreError(c, err)
		return
	}
	metrics.AdminActions.WithLabelValues("settings", "ok").Inc()
	h.audit(c, "settings").
		Bool("registration_enabled", cfg.RegistrationEnabled).
		Bool("voting_enabled", cfg.VotingEnabled).
		Msg("admin action")
	c.JSON(http.StatusOK, gin.H{"message": "Settings updated", "data": cfg})
}

func (h *Handler) Stats(c *gin.Context) {
	stats, err := h.store.Stats(c.Request.Context())
	if err != nil {
		h.abortWithStoreError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": stats})
}

// Status always answers 200; a broken backend shows up in systemStatus.
func (h *Handler) Status(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"data": h.store.Status(c.Request.Context())})
}

func (h *Handler) audit(c *gin.Context, action string) *zerolog.Event {
	admin, _ := middleware.CurrentUser(c)
	return h.log.Info().Str("action", action).Str("admin", admin.Email)
}
