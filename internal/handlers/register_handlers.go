package handlers

import (
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"github.com/ulule/limiter/v3"

	"github.com/SscSPs/exchange_ledger/cmd/docs"
	portsgw "github.com/SscSPs/exchange_ledger/internal/core/ports/gateways"
	portssvc "github.com/SscSPs/exchange_ledger/internal/core/ports/services"
	"github.com/SscSPs/exchange_ledger/internal/middleware"
	"github.com/SscSPs/exchange_ledger/internal/platform/config"
)

// RouteDeps are the collaborators the routes need besides the services.
type RouteDeps struct {
	// Queue is optional; without it webhooks are applied inline.
	Queue          portsgw.NotificationQueue
	Gatherer       prometheus.Gatherer
	APILimiter     *limiter.Limiter
	WebhookLimiter *limiter.Limiter
}

// RegisterRoutes sets up all application routes, injecting dependencies using interfaces
func RegisterRoutes(
	r *gin.Engine,
	cfg *config.Config,
	services *portssvc.ServiceContainer,
	deps RouteDeps,
) {
	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "OK")
	})
	if deps.Gatherer != nil {
		r.GET("/metrics", gin.WrapH(middleware.MetricsHandler(deps.Gatherer)))
	}

	setupWebhookRoutes(r, services, deps)
	setupAPIV1Routes(r, cfg, services, deps)
	setupSwaggerRoutes(r, cfg)
}

func setupWebhookRoutes(r *gin.Engine, services *portssvc.ServiceContainer, deps RouteDeps) {
	webhooks := r.Group("")
	if deps.WebhookLimiter != nil {
		webhooks.Use(middleware.RateLimit(deps.WebhookLimiter))
	}
	RegisterWebhookRoutes(webhooks, services.Reconciliation, deps.Queue)
}

// setupAPIV1Routes configures the /api/v1 group and delegates to specific entity route registrations
func setupAPIV1Routes(
	r *gin.Engine,
	cfg *config.Config,
	services *portssvc.ServiceContainer,
	deps RouteDeps,
) {
	corsConfig := cors.DefaultConfig()
	if len(cfg.CORSAllowedOrigins) == 0 {
		// cors.New panics on an empty origin list; bearer auth still applies.
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowOrigins = cfg.CORSAllowedOrigins
	}
	corsConfig.AllowHeaders = append(corsConfig.AllowHeaders, "Authorization", middleware.RequestIDHeader)
	corsConfig.ExposeHeaders = []string{middleware.RequestIDHeader, "Retry-After"}

	handlers := []gin.HandlerFunc{cors.New(corsConfig)}
	if deps.APILimiter != nil {
		handlers = append(handlers, middleware.RateLimit(deps.APILimiter))
	}
	handlers = append(handlers, middleware.AuthMiddleware(cfg.JWTSecret, cfg.JWTIssuer))

	v1 := r.Group("/api/v1", handlers...)

	RegisterLedgerRoutes(v1, services.Ledger)
	RegisterRateRoutes(v1, services.Rates)
	RegisterAdminRoutes(v1, services.Ledger, services.Reconciliation)
}

// setupSwaggerRoutes configures the swagger documentation routes
func setupSwaggerRoutes(r *gin.Engine, cfg *config.Config) {
	if cfg.IsProduction {
		//no swagger in prod
		return
	}
	docs.SwaggerInfo.BasePath = "/api/v1"
	swagger := r.Group("/swagger")
	swagger.GET("/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
}
