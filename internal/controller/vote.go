package controller

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/saxenaaman628/krathong-voting/internal/metrics"
	"github.com/saxenaaman628/krathong-voting/internal/middleware"
	redishandler "github.com/saxenaaman628/krathong-voting/internal/redisHandler"
)

// VoteHandler casts the caller's single vote for the krathong in the path.
// Team members are turned away before the ledger is touched; the ledger
// checks membership again inside its transaction.
func (h *Handler) VoteHandler(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		abortWithError(c, http.StatusUnauthorized, "unauthenticated", "Please sign in first")
		return
	}
	entryID := c.Param("id")
	ctx := c.Request.Context()

	entry, err := h.store.GetEntry(ctx, entryID)
	if errors.Is(err, redishandler.ErrEntryNotFound) {
		h.respondOutcome(c, redishandler.EntryNotFound, entryID)
		return
	}
	if err != nil {
		h.abortWithStoreError(c, err)
		return
	}
	if entry.HasMember(user.Email) {
		h.respondOutcome(c, redishandler.SelfVote, entryID)
		return
	}

	outcome, err := h.store.CastVote(ctx, user, entryID)
	if err != nil {
		metrics.VoteOutcomes.WithLabelValues("error").Inc()
		h.abortWithStoreError(c, err)
		return
	}
	h.respondOutcome(c, outcome, entryID)
}

func (h *Handler) respondOutcome(c *gin.Context, outcome redishandler.Outcome, entryID string) {
	metrics.VoteOutcomes.WithLabelValues(outcome.String()).Inc()
	status, message := outcomeStatus(outcome)
	if outcome != redishandler.Voted {
		abortWithError(c, status, outcome.String(), message)
		return
	}
	c.JSON(status, gin.H{"message": "Vote recorded successfully", "code": outcome.String(), "krathongId": entryID})
}

func (h *Handler) MyVote(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		abortWithError(c, http.StatusUnauthorized, "unauthenticated", "Please sign in first")
		return
	}
	record, err := h.store.CheckVote(c.Request.Context(), user.ID)
	if err != nil {
		h.abortWithStoreError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": record})
}
