package v1

import (
	"context"
	"net/http"
	"time"

	"github.com/TeamVaidya/prescription/internal/config"
	"github.com/TeamVaidya/prescription/internal/service"
	"github.com/TeamVaidya/prescription/pkg/metrics"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ReadinessCheck reports whether a backing dependency can serve traffic.
type ReadinessCheck func(ctx context.Context) error

type RouterDeps struct {
	Config    *config.Config
	Service   *service.PrescriptionService
	Metrics   *metrics.Collector
	Log       *zap.Logger
	Readiness ReadinessCheck
}

func NewRouter(deps RouterDeps) *gin.Engine {
	if !deps.Config.App.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(
		Recovery(deps.Log),
		RequestID(),
		RequestLogger(deps.Log.Named("http")),
		Metrics(deps.Metrics),
		cors.New(cors.Config{
			AllowOrigins:  deps.Config.CORS.AllowedOrigins,
			AllowMethods:  deps.Config.CORS.AllowedMethods,
			AllowHeaders:  deps.Config.CORS.AllowedHeaders,
			ExposeHeaders: []string{headerRequestID},
			MaxAge:        deps.Config.CORS.MaxAge,
		}),
	)

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/readyz", func(c *gin.Context) {
		if deps.Readiness != nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
			defer cancel()
			if err := deps.Readiness(ctx); err != nil {
				deps.Log.Warn("readiness check failed", zap.Error(err))
				respondError(c, http.StatusServiceUnavailable, "Not ready.", err.Error())
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", gin.WrapH(deps.Metrics.Handler()))

	api := r.Group("/api/prescriptions")
	if deps.Config.RateLimit.Enabled {
		api.Use(RateLimit(deps.Config.RateLimit))
	}
	NewPrescriptionHandler(deps.Service, deps.Log).Register(api)
	NewOpenAPIGenerator(deps.Config.App.Version, "/api/prescriptions").RegisterRoutes(api)

	return r
}
