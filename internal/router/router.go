package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"cloudsync/internal/handler"
	"cloudsync/internal/middleware"
	"cloudsync/internal/service"
)

// Options carries the settings the router needs besides handlers.
type Options struct {
	Logger         *zap.Logger
	AllowedOrigins []string
	// MetricsHandler is mounted at MetricsPath when non-nil.
	MetricsHandler http.Handler
	MetricsPath    string
}

// Setup configures the Gin engine with all routes and middleware.
func Setup(
	authSvc service.AuthService,
	multipartH *handler.MultipartHandler,
	resourceH *handler.ResourceHandler,
	adminH *handler.AdminHandler,
	healthH *handler.HealthHandler,
	opts Options,
) *gin.Engine {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))
	r.Use(middleware.CORS(opts.AllowedOrigins))

	// Health checks
	r.GET("/healthz", healthH.Liveness)
	r.GET("/readyz", healthH.Readiness)
	if opts.MetricsHandler != nil {
		path := opts.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		r.GET(path, gin.WrapH(opts.MetricsHandler))
	}

	// Protected routes - require valid JWT
	v1 := r.Group("/api/v1")
	v1.Use(middleware.AuthMiddleware(authSvc))

	multipart := v1.Group("/multipart")
	multipart.POST("", multipartH.Initiate)
	multipart.PUT("/:upload_id/parts/:part_number", multipartH.UploadPart)
	multipart.POST("/:upload_id/finish", multipartH.Finish)

	resources := v1.Group("/resources")
	resources.GET("/:id/multipart", multipartH.Check)
	resources.DELETE("/:id/multipart", multipartH.Abort)
	resources.GET("/:id/download-url", resourceH.DownloadURL)

	v1.GET("/organizations/:org/packages/:name", resourceH.PackageByOrganization)

	// Admin routes - sysadmin only
	admin := v1.Group("/admin")
	admin.Use(middleware.RequireSysadmin())
	admin.POST("/sync", adminH.Sync)
	admin.POST("/multipart/clean", adminH.CleanMultipart)

	return r
}
