// Package httpapi wires the HTTP transport (Gin) to the contact service,
// middleware, and route handlers. It centralizes cross-cutting concerns such
// as tracing, correlation IDs, logging/redaction, panic recovery, metrics,
// CORS, security headers, idempotency, and throttling.
//
// Routes:
//   - POST {base}/contact
//   - GET  {base}/health
//   - GET  /metrics
//   - GET  /swagger/*any (when enabled)
//
// Everything else, including a known path with the wrong method, answers
// 404 {"error": "Endpoint not found"}.
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"gorm.io/gorm"

	"github.com/Aman-02003/portfolio-contact/docs"
	"github.com/Aman-02003/portfolio-contact/internal/config"
	"github.com/Aman-02003/portfolio-contact/internal/http/handlers"
	"github.com/Aman-02003/portfolio-contact/internal/http/middleware"
	"github.com/Aman-02003/portfolio-contact/internal/repo"
)

// RegisterRoutes attaches all middleware and endpoints to r.
//
// db may be nil, which disables the idempotency pre-check (the service then
// treats every request as fresh).
//
// Middleware order matters:
//  1. OpenTelemetry: trace everything
//  2. RequestID: generate/propagate correlation id
//  3. RedactingLogger: structured logs with PII scrubbing
//  4. Recovery: capture panics after logger
//  5. Metrics
//  6. CORS and security headers (so 4xx/429 responses stay readable cross-origin)
//  7. Body size limiter
//  8. Idempotency validator (unsafe methods only, before throttle to allow
//     bypass for completed keys)
//  9. Throttle (per IP token bucket)
func RegisterRoutes(r *gin.Engine, db *gorm.DB, svc handlers.ContactService, cfg config.Config) {
	// Unknown method on a known path is a 404 like any unknown endpoint.
	r.HandleMethodNotAllowed = false

	// Forwarding headers only count when the peer is a configured proxy;
	// otherwise ClientIP is the TCP peer and the rate-limit key cannot be forged.
	if err := r.SetTrustedProxies(cfg.TrustedProxies); err != nil {
		log.Error().Err(err).Strs("trusted_proxies", cfg.TrustedProxies).Msg("invalid trusted proxies, trusting none")
		_ = r.SetTrustedProxies(nil)
	}

	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))
	r.Use(middleware.RequestID())
	r.Use(middleware.RedactingLogger(middleware.RedactOptions{
		MaskHeaders: []string{middleware.HeaderIdempotencyKey},
	}))
	r.Use(middleware.Recovery())
	r.Use(middleware.Metrics())

	r.Use(corsMiddleware(cfg.CORS.AllowedOrigins))
	r.Use(middleware.SecurityHeaders(middleware.SecurityOptions{
		EnableHSTS:   cfg.Security.EnableHSTS,
		HSTSMaxAge:   cfg.Security.HSTSMaxAge,
		NoStore:      true,
		EnablePolicy: true,
	}))

	r.Use(middleware.BodyLimit(cfg.MaxBodyBytes))

	var lookup middleware.IdempotencyLookup
	if db != nil {
		lookup = func(ctx context.Context, clientKey, key string, now time.Time) (bool, error) {
			rec, err := repo.GetIdempotency(ctx, db, clientKey, key, now)
			if err == repo.ErrNotFound {
				return false, nil
			}
			return err == nil && rec != nil && !rec.Pending(), err
		}
	}
	r.Use(middleware.IdempotencyValidator(middleware.IdempotencyOptions{MaxLen: 200}, lookup))

	apiBase := cfg.APIBasePath
	healthPath := joinPath(apiBase, "/health")
	th := middleware.NewThrottle(cfg.RateRPS, cfg.RateBurst, healthPath, "/metrics")
	r.Use(th.Handler())

	r.NoRoute(handlers.NotFound)
	r.NoMethod(handlers.NotFound)

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	if cfg.SwaggerEnabled {
		docs.SwaggerInfo.BasePath = apiBase
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	h := handlers.New(svc, cfg.ServiceName)

	api := groupWithPrefix(r, apiBase)
	{
		api.POST("/contact", h.PostContact)
		api.GET("/health", h.Health)
	}
}

// corsMiddleware allows the configured frontend origins. With no origins
// configured every origin is allowed (credentials are never allowed).
func corsMiddleware(origins []string) gin.HandlerFunc {
	cc := cors.Config{
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "X-Request-ID", middleware.HeaderIdempotencyKey},
		ExposeHeaders:    []string{"X-Request-ID", "Retry-After", "Idempotency-Replayed"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}
	if len(origins) == 0 {
		cc.AllowAllOrigins = true
	} else {
		cc.AllowOrigins = origins
	}
	return cors.New(cc)
}

// groupWithPrefix mounts a group at prefix, treating "/" (or empty) as root.
func groupWithPrefix(r *gin.Engine, prefix string) *gin.RouterGroup {
	if prefix == "" || prefix == "/" {
		return r.Group("")
	}
	return r.Group(prefix)
}

func joinPath(base, p string) string {
	if base == "" || base == "/" {
		return p
	}
	return base + p
}
