package controller

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/saxenaaman628/krathong-voting/internal/blob"
	"github.com/saxenaaman628/krathong-voting/internal/models"
	redishandler "github.com/saxenaaman628/krathong-voting/internal/redisHandler"
)

// Store is the part of the redis store the handlers use.
type Store interface {
	Ping(ctx context.Context) error

	CreateEntry(ctx context.Context, creator models.User, req models.RegisterRequest) (models.Krathong, error)
	GetEntry(ctx context.Context, id string) (models.Krathong, error)
	ListEntries(ctx context.Context) ([]models.Krathong, error)
	FindEntryByMember(ctx context.Context, email string) (models.Krathong, error)

	CheckVote(ctx context.Context, userID string) (models.VoteRecord, error)
	CastVote(ctx context.Context, voter models.User, entryID string) (redishandler.Outcome, error)
	CancelVote(ctx context.Context, userID, entryID string) (redishandler.Outcome, error)
	AdjustScore(ctx context.Context, entryID string, delta int64) (int64, error)

	GetSettings(ctx context.Context) (models.AppConfig, error)
	UpdateSettings(ctx context.Context, patch models.SettingsPatch, updatedBy string) (models.AppConfig, error)
	Stats(ctx context.Context) (models.VotingStats, error)
	Status(ctx context.Context) models.SystemStatus
}

type Handler struct {
	store    Store
	uploader *blob.Uploader
	log      zerolog.Logger
}

func New(store Store, uploader *blob.Uploader, log zerolog.Logger) *Handler {
	return &Handler{store: store, uploader: uploader, log: log}
}

func (h *Handler) Health(c *gin.Context) {
	if err := h.store.Ping(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func abortWithError(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, gin.H{"error": message, "code": code})
}

// abortWithStoreError classifies errors coming out of the store. Anything it
// does not recognize is a transport failure.
func (h *Handler) abortWithStoreError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, redishandler.ErrEntryNotFound):
		abortWithError(c, http.StatusNotFound, "entry_not_found", "Krathong not found")
	case errors.Is(err, redishandler.ErrRegistrationClosed):
		abortWithError(c, http.StatusForbidden, "registration_closed", "Registration is closed")
	case errors.Is(err, redishandler.ErrAlreadyInTeam):
		abortWithError(c, http.StatusConflict, "already_in_team", err.Error())
	case errors.Is(err, redishandler.ErrInvalidEntry):
		abortWithError(c, http.StatusBadRequest, "invalid_request", err.Error())
	case errors.Is(err, redishandler.ErrTooMuchContention):
		abortWithError(c, http.StatusServiceUnavailable, "busy", "The system is busy, please try again")
	default:
		_ = c.Error(err)
		h.log.Error().Err(err).Str("path", c.Request.URL.Path).Msg("store request failed")
		abortWithError(c, http.StatusInternalServerError, "internal", "Something went wrong, please try again")
	}
}

// outcomeStatus maps a ledger outcome onto the HTTP response for it.
func outcomeStatus(o redishandler.Outcome) (int, string) {
	switch o {
	case redishandler.Voted, redishandler.Cancelled:
		return http.StatusOK, "Done"
	case redishandler.AlreadyVoted:
		return http.StatusConflict, "You have already voted"
	case redishandler.SystemDisabled:
		return http.StatusForbidden, "Voting is closed"
	case redishandler.SelfVote:
		return http.StatusForbidden, "You cannot vote for your own team"
	case redishandler.EntryNotFound:
		return http.StatusNotFound, "Krathong not found"
	case redishandler.NotFound:
		return http.StatusNotFound, "No matching vote found"
	}
	return http.StatusInternalServerError, "Unknown outcome"
}
