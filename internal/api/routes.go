package api

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/saxenaaman628/krathong-voting/config"
	"github.com/saxenaaman628/krathong-voting/internal/controller"
	"github.com/saxenaaman628/krathong-voting/internal/middleware"
)

// NewRouter builds the engine with recovery, request logging and every route.
func NewRouter(cfg config.Config, h *controller.Handler, log zerolog.Logger) (*gin.Engine, error) {
	if err := controller.RegisterValidators(); err != nil {
		return nil, err
	}
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestLogger(log))
	RegisterRoutes(r, cfg, h)
	return r, nil
}

func RegisterRoutes(r *gin.Engine, cfg config.Config, h *controller.Handler) {
	r.GET("/health", h.Health)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	if cfg.DevLoginEnabled {
		r.POST("/login", LoginHandler(cfg))
	}
	// uploaded images are served by us only for the local backend
	if cfg.BlobBackend == "local" && strings.HasPrefix(cfg.BlobPublicURL, "/") {
		r.Static(cfg.BlobPublicURL, cfg.BlobLocalDir)
	}

	public := r.Group("/api")
	{
		public.GET("/krathongs", h.ListKrathongs)
		public.GET("/krathongs/:id", h.GetKrathong)
		public.GET("/settings", h.GetSettings)
	}

	auth := r.Group("/api")
	auth.Use(middleware.JWTAuthMiddleware(cfg))
	{
		auth.POST("/uploads", h.UploadImage)
		auth.POST("/krathongs", h.RegisterKrathong)
		auth.POST("/krathongs/:id/vote", h.VoteHandler)
		auth.GET("/me", h.Me)
		auth.GET("/me/team", h.MyTeam)
		auth.GET("/me/vote", h.MyVote)
	}

	admin := r.Group("/api/admin")
	admin.Use(middleware.JWTAuthMiddleware(cfg), middleware.AdminOnly())
	{
		admin.POST("/krathongs/:id/score", h.AdjustScore)
		admin.POST("/votes/:user_id/cancel", h.CancelVote)
		admin.PUT("/settings", h.UpdateSettings)
		admin.GET("/stats", h.Stats)
		admin.GET("/status", h.Status)
	}
}
