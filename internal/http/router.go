// Package httpapi wires the HTTP transport (Gin) to the complaint handlers
// and middleware. It centralizes cross-cutting concerns such as tracing,
// correlation IDs, logging/redaction, panic recovery, compression, metrics,
// CORS, security headers, idempotency, rate limiting and admin sessions.
//
// Design goals:
//   - Put observability first (OTel + Prometheus)
//   - Safe-by-default middleware ordering (RequestID → logging → recovery)
//   - Deterministic, minimal router setup; all dependencies injected
//   - Production-ready CORS and security header posture
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	_ "github.com/HussamZG/shakaoy-650/docs"
	"github.com/HussamZG/shakaoy-650/internal/config"
	"github.com/HussamZG/shakaoy-650/internal/http/handlers"
	"github.com/HussamZG/shakaoy-650/internal/http/middleware"
	"github.com/HussamZG/shakaoy-650/internal/services"
)

// Deps are the collaborators RegisterRoutes mounts.
type Deps struct {
	Handlers *handlers.Handlers

	// Guard validates admin sessions for the dashboard routes.
	Guard middleware.SessionChecker

	// Idem answers replay lookups for Idempotency-Key; nil disables them.
	Idem services.IdempotencyStore
}

// Submission and login get their own, tighter buckets.
const (
	strictRPS   = 0.2
	strictBurst = 5
)

var allowHeaders = []string{
	"Origin", "Content-Type", "Accept", "Authorization",
	middleware.HeaderAPIKey, middleware.HeaderIdempotencyKey,
}

var exposeHeaders = []string{"X-Request-ID", "Content-Length", "ETag", "Idempotency-Replayed"}

// RegisterRoutes attaches all middleware and HTTP endpoints to the given Gin
// engine. It configures observability (tracing, metrics), idempotency and rate
// limiting, CORS and security headers, health and metrics endpoints, and then
// mounts the API under cfg.APIBasePath.
//
// Middleware order matters:
//  1. OpenTelemetry: trace everything
//  2. RequestID: generate/propagate correlation id
//  3. Logger: structured access logs (PII scrubbed unless LOG_REDACT=false)
//  4. Recovery: capture panics after logger
//  5. Body size limiter
//  6. Gzip (never on the WebSocket stream)
//  7. Metrics
//  8. Idempotency validator (before rate limiter to allow bypass on replay)
//  9. Rate limiter (per user/IP, bypass on replay)
//  10. CORS and Security headers
func RegisterRoutes(r *gin.Engine, d Deps, cfg config.Config) {
	r.HandleMethodNotAllowed = true

	// 1) Trace all HTTP requests
	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))

	// 2) Correlate requests and logs
	r.Use(middleware.RequestID())

	// 3) Structured logging
	if cfg.LogRedact {
		r.Use(middleware.RedactingLogger(middleware.RedactOptions{
			MaskHeaders: []string{middleware.HeaderAPIKey},
		}))
	} else {
		r.Use(middleware.Logger())
	}

	// 4) Panic recovery to JSON 500 (with request id)
	r.Use(middleware.Recovery())

	// 5) Global body size limit (covers multipart uploads)
	r.Use(limitBody(cfg.MaxBodyBytes))

	// 6) Response compression
	r.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPathsRegexs([]string{`.*/stream$`})))

	// 7) Prometheus metrics and /metrics endpoint
	r.Use(middleware.Metrics())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// 8) Idempotency validation (before rate limiting)
	r.Use(middleware.IdempotencyValidator(
		middleware.IdempotencyOptions{MaxLen: 200},
		idempotencyLookup(d.Idem),
	))

	// 9) Token-bucket rate limiter per user/IP
	rl := middleware.NewRateLimiter(cfg.RateRPS, cfg.RateBurst, middleware.KeyByUserOrIP())
	r.Use(rl.Handler())
	strict := middleware.NewRateLimiter(strictRPS, strictBurst, middleware.KeyByUserOrIP())

	// 10) CORS posture (safe defaults: allow all if none configured)
	if len(cfg.CORS.AllowedOrigins) == 0 {
		// Force ACAO: * even for requests without an Origin header (helps tests and simple health checks).
		r.Use(func(c *gin.Context) {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
			c.Next()
		})
		r.Use(cors.New(cors.Config{
			AllowAllOrigins:  true,
			AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowHeaders:     allowHeaders,
			ExposeHeaders:    exposeHeaders,
			AllowCredentials: false, // must remain false with AllowAllOrigins
			MaxAge:           12 * time.Hour,
		}))
	} else {
		// The admin cookie needs credentials, which requires an explicit allowlist.
		r.Use(cors.New(cors.Config{
			AllowOrigins:     cfg.CORS.AllowedOrigins,
			AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowHeaders:     allowHeaders,
			ExposeHeaders:    exposeHeaders,
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}

	// Security headers (HSTS only when enabled and request is HTTPS)
	api := cfg.APIBasePath
	if api == "/" {
		api = ""
	}
	r.Use(middleware.SecurityHeaders(middleware.SecurityOptions{
		EnableHSTS:      cfg.Security.EnableHSTS,
		HSTSMaxAge:      cfg.Security.HSTSMaxAge,
		EnablePolicy:    true,
		NoStorePrefixes: []string{api + "/admin"},
		SandboxPrefixes: []string{"/attachments/"},
	}))

	// Fallbacks
	r.NoRoute(func(c *gin.Context) {
		handlers.Fail(c, http.StatusNotFound, handlers.ErrCodeNotFound, "المسار غير موجود")
	})
	r.NoMethod(func(c *gin.Context) {
		handlers.Fail(c, http.StatusMethodNotAllowed, handlers.ErrCodeMethodNotAllowed, "الطريقة غير مسموحة")
	})

	// Liveness/health
	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	if cfg.SwaggerEnabled {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	h := d.Handlers
	if h.HasFiles() {
		r.GET("/attachments/*key", h.ServeAttachment)
	}

	g := groupWithPrefix(r, cfg.APIBasePath)
	g.Use(middleware.APIKey(cfg.PublicAPIKey))
	{
		// Public: submit and track
		g.POST("/complaints", strict.Handler(), h.SubmitComplaint)
		g.GET("/complaints/:id", h.GetComplaint)
		g.POST("/complaints/:id/messages", h.PostComplaintMessage)
		g.GET("/complaints/:id/stream", h.StreamComplaint)

		// Admin session
		g.POST("/admin/login", strict.Handler(), h.Login)
		g.POST("/admin/logout", h.Logout)

		// Admin dashboard
		admin := g.Group("/admin", middleware.AdminGuard(d.Guard, cookieOptions(cfg)))
		admin.GET("/session", h.CurrentSession)
		admin.GET("/complaints", h.ListComplaints)
		admin.GET("/complaints/stats", h.ComplaintStats)
		admin.GET("/complaints/:id", h.GetComplaintDetail)
		admin.PUT("/complaints/:id/status", h.UpdateComplaintStatus)
		admin.POST("/complaints/:id/messages", h.PostAdminMessage)
		admin.GET("/complaints/:id/logs", h.ListActionLogs)
		admin.DELETE("/complaints/:id", h.DeleteComplaint)
	}
}

func cookieOptions(cfg config.Config) middleware.CookieOptions {
	return middleware.CookieOptions{Name: cfg.Admin.CookieName, Secure: cfg.Admin.CookieSecure}
}

// HandlerOptions derives the transport settings handlers.New expects.
func HandlerOptions(cfg config.Config, files handlers.FileResolver) handlers.Options {
	return handlers.Options{
		Cookie:         cookieOptions(cfg),
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		Files:          files,
	}
}

// idempotencyLookup adapts the submission key store to the validator.
func idempotencyLookup(store services.IdempotencyStore) middleware.IdempotencyLookup {
	if store == nil {
		return nil
	}
	return func(ctx context.Context, subject, key string, _ time.Time) (bool, error) {
		_, found, err := store.Lookup(ctx, services.IdempotencyScope, subject, key)
		return found, err
	}
}

// limitBody returns a Gin middleware that caps the request body size for all
// endpoints to maxBytes using http.MaxBytesReader. Requests exceeding the cap
// will cause downstream body reads to error.
func limitBody(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if maxBytes > 0 && c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		}
		c.Next()
	}
}

// groupWithPrefix mounts a group at prefix, treating "/" (or empty) as root.
func groupWithPrefix(r *gin.Engine, prefix string) *gin.RouterGroup {
	if prefix == "" || prefix == "/" {
		return r.Group("")
	}
	return r.Group(prefix)
}
