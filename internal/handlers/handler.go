package handlers

import (
	"context"

	"cpu_throttle/internal/logger"
	"cpu_throttle/internal/metrics"
	"cpu_throttle/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/spf13/afero"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// Commander runs one control-socket command line and returns its text reply.
type Commander interface {
	Execute(ctx context.Context, line string) string
}

// Options configures the HTTP surface.
type Options struct {
	WebRoot  string
	Fs       afero.Fs // static assets; nil means the OS filesystem
	Commands Commander
	Metrics  *metrics.Metrics
}

// Handler wires HTTP layer to services and logging.
type Handler struct {
	services *service.Service
	log      *logger.Logger
	opts     Options
	static   afero.Fs
}

// NewHandler constructs a new HTTP handler with dependencies.
func NewHandler(services *service.Service, log *logger.Logger, opts Options) *Handler {
	if opts.Fs == nil {
		opts.Fs = afero.NewOsFs()
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.New()
	}
	return &Handler{services: services, log: log, opts: opts, static: opts.Fs}
}

// InitRoutes builds and returns the Gin router with all routes registered.
func (h *Handler) InitRoutes() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), h.corsMiddleware, h.countMiddleware)

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	router.GET("/metrics", gin.WrapH(h.opts.Metrics.Handler()))

	// Health endpoint
	router.GET("/health", h.health)

	h.registerAPIRoutes(router)
	h.registerStaticRoutes(router)

	return router
}

func (h *Handler) registerAPIRoutes(r *gin.Engine) {
	api := r.Group("/api")
	{
		api.GET("/status", h.getStatus)
		api.GET("/metrics", h.getMetrics)
		api.GET("/limits", h.getLimits)
		api.GET("/zones", h.getZones)
		api.GET("/events", h.getEvents)
		api.GET("/stream", h.wsConnect)
		api.POST("/command", h.runCommand)
		api.POST("/settings/:name", h.setSetting)

		h.registerDaemonRoutes(api)
		h.registerProfileRoutes(api)
		h.registerSkinRoutes(api)
	}
}

func (h *Handler) registerDaemonRoutes(api *gin.RouterGroup) {
	daemon := api.Group("/daemon")
	{
		daemon.GET("/version", h.getVersion)
		daemon.POST("/shutdown", h.shutdown)
		daemon.POST("/restart", h.restart)
	}
}

func (h *Handler) registerProfileRoutes(api *gin.RouterGroup) {
	profiles := api.Group("/profiles")
	{
		profiles.GET("", h.listProfiles)
		profiles.POST("", h.createProfile)
		profiles.GET("/:name", h.getProfile)
		profiles.POST("/:name", h.saveRawProfile)
		profiles.PUT("/:name", h.updateProfile)
		profiles.DELETE("/:name", h.deleteProfile)
		profiles.POST("/:name/load", h.loadProfile)
	}
}

func (h *Handler) registerSkinRoutes(api *gin.RouterGroup) {
	skins := api.Group("/skins")
	{
		skins.GET("", h.listSkins)
		skins.POST("/upload", h.uploadSkin)
		skins.POST("/default", h.resetSkin)
		skins.POST("/:id/:action", h.skinAction)
	}
}

func (h *Handler) registerStaticRoutes(r *gin.Engine) {
	r.GET("/", h.serveIndex)
	r.GET("/main.js", h.serveAsset("main.js"))
	r.GET("/styles.css", h.serveAsset("styles.css"))
	r.GET("/favicon.ico", h.serveAsset("favicon.ico"))
	r.GET("/skins/:id/*file", h.serveSkinFile)
}
