package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Wenjie0329/email-pitch-tool/internal/config"
	"github.com/Wenjie0329/email-pitch-tool/internal/dto"
	"github.com/Wenjie0329/email-pitch-tool/internal/repository"
	"github.com/Wenjie0329/email-pitch-tool/internal/service"
)

// Options configures the protection applied to the sync API group
type Options struct {
	CORS      config.CORS
	RateLimit config.RateLimit
}

type Handler struct {
	tracking service.TrackingServicer
	sync     service.SyncServicer
	stats    service.StatsServicer
	limiter  *RateLimiter
	router   *gin.Engine
	log      *zap.Logger
}

func NewHandler(
	tracking service.TrackingServicer,
	syncService service.SyncServicer,
	stats service.StatsServicer,
	opts Options,
	log *zap.Logger,
) *Handler {
	h := &Handler{
		tracking: tracking,
		sync:     syncService,
		stats:    stats,
		router:   gin.New(),
		log:      log,
	}

	if err := h.router.SetTrustedProxies(opts.RateLimit.TrustedProxies); err != nil {
		log.Warn("Invalid trusted proxies, trusting none", zap.Error(err))
		_ = h.router.SetTrustedProxies(nil)
	}

	if opts.RateLimit.Enabled {
		h.limiter = NewRateLimiter(RateLimiterConfig{
			Rate:            opts.RateLimit.RPS,
			Burst:           opts.RateLimit.Burst,
			CleanupInterval: defaultCleanupInterval,
		})
	}

	h.router.Use(gin.Recovery(), RequestID(), RequestLogger(log))
	h.registerRoutes(opts)

	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.router.ServeHTTP(w, r)
}

// Close releases background resources held by the handler
func (h *Handler) Close() {
	if h.limiter != nil {
		h.limiter.Stop()
	}
}

func (h *Handler) registerRoutes(opts Options) {
	h.router.GET("/", h.status)
	h.router.GET("/health", h.healthCheck)
	h.router.GET("/ready", h.readiness)
	h.router.GET("/open", h.trackOpen)
	h.router.GET("/click", h.trackClick)

	api := h.router.Group("/api")
	api.Use(cors.New(corsConfig(opts.CORS)))
	// preflight requests only reach group middleware through a matching route
	api.OPTIONS("/*path", func(c *gin.Context) { c.Status(http.StatusNoContent) })
	if h.limiter != nil {
		api.Use(h.limiter.Middleware(h.log))
	}
	{
		api.GET("/opens", h.listOpens)
		api.GET("/clicks", h.listClicks)
		api.POST("/mark_synced", h.markSynced)
		api.GET("/stats", h.getStats)
	}
}

func corsConfig(cfg config.CORS) cors.Config {
	c := cors.Config{
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders: []string{"Content-Type", requestIDHeader},
	}

	origins := make([]string, 0, len(cfg.AllowOrigins))
	for _, o := range cfg.AllowOrigins {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		c.AllowAllOrigins = true
	} else {
		c.AllowOrigins = origins
	}
	return c
}

// writeError maps a service error onto the error response contract
func (h *Handler) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error:   "validation_error",
			Message: err.Error(),
		})
	case errors.Is(err, repository.ErrStorage):
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{
			Error:   "storage_error",
			Message: err.Error(),
		})
	default:
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{
			Error:   "internal_error",
			Message: err.Error(),
		})
	}
}

// healthCheck handles health check requests
// @Summary Health check
// @Description Check if the process is serving; storage is not touched
// @Tags health
// @Produce json
// @Success 200 {object} map[string]string
// @Router /health [get]
func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
	})
}

// readiness handles GET /ready
// @Summary Readiness check
// @Description Ping the event store
// @Tags health
// @Produce json
// @Success 200 {object} map[string]string
// @Failure 503 {object} dto.ErrorResponse
// @Router /ready [get]
func (h *Handler) readiness(c *gin.Context) {
	if err := h.stats.Ready(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, dto.ErrorResponse{
			Error:   "storage_error",
			Message: err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
	})
}

// status handles GET /
// @Summary Service status
// @Description Backend in use and headline counters
// @Tags stats
// @Produce json
// @Success 200 {object} dto.StatusResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router / [get]
func (h *Handler) status(c *gin.Context) {
	response, err := h.stats.Status(c.Request.Context())
	if err != nil {
		h.log.Error("Failed to build status", zap.Error(err))
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, response)
}

// getStats handles GET /api/stats
// @Summary Store statistics
// @Description Totals, unsynced backlog and opens in the last 24 hours
// @Tags stats
// @Produce json
// @Success 200 {object} dto.StatsResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /api/stats [get]
func (h *Handler) getStats(c *gin.Context) {
	response, err := h.stats.Stats(c.Request.Context())
	if err != nil {
		h.log.Error("Failed to compute stats", zap.Error(err))
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, response)
}
