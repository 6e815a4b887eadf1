// Package httpapi wires the HTTP transport (Gin) to application services,
// middleware, and route handlers. It centralizes cross-cutting concerns such
// as tracing, correlation IDs, logging/redaction, panic recovery, metrics,
// CORS, security headers, duplicate-submission protection, and rate limiting.
//
// Design goals:
//   - Put observability first (OTel + Prometheus)
//   - Safe-by-default middleware ordering (RequestID → logging → recovery)
//   - Deterministic, minimal router setup; all dependencies injected
//   - Production-ready CORS and security header posture
package httpapi

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"gorm.io/gorm"

	"github.com/pacunato/go-site-backend/internal/config"
	"github.com/pacunato/go-site-backend/internal/http/handlers"
	"github.com/pacunato/go-site-backend/internal/http/middleware"
	"github.com/pacunato/go-site-backend/internal/relay"
	"github.com/pacunato/go-site-backend/internal/repo"
	"github.com/pacunato/go-site-backend/internal/services"
)

// RegisterRoutes attaches all middleware and HTTP endpoints to the given Gin
// engine. It configures observability (tracing, metrics), duplicate-submission
// protection and rate limiting, CORS and security headers, health and metrics
// endpoints, and then mounts the public API under cfg.APIBasePath with the
// token-guarded admin surface alongside it.
//
// Middleware order matters:
//  1. OpenTelemetry: trace everything
//  2. RequestID: generate/propagate correlation id
//  3. RedactingLogger: structured logs with PII scrubbing (forms carry PII)
//  4. Recovery: capture panics after logger
//  5. Body size limiter
//  6. Gzip compression (article bodies compress well)
//  7. Metrics
//  8. Submission-key validator (before rate limiter to allow bypass on replay)
//  9. Rate limiter (per IP, bypass on replay)
//  10. CORS and Security headers
func RegisterRoutes(r *gin.Engine, db *gorm.DB, cfg config.Config) {
	r.HandleMethodNotAllowed = true

	// 1) Trace all HTTP requests
	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))

	// 2) Correlate requests and logs
	r.Use(middleware.RequestID())

	// 3) Structured logging with redaction
	r.Use(middleware.RedactingLogger(middleware.RedactOptions{
		MaskHeaders: []string{
			"X-Admin-Token",
		},
	}))

	// 4) Panic recovery to JSON 500 (with request id)
	r.Use(middleware.Recovery())

	// 5) Global body size limit (1 MiB)
	r.Use(limitBody(1 << 20))

	// 6) Compress responses; article HTML shrinks considerably
	r.Use(gzip.Gzip(gzip.DefaultCompression))

	// 7) Prometheus metrics and /metrics endpoint
	r.Use(middleware.Metrics())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// 8) Duplicate-submission detection (before rate limiting)
	r.Use(middleware.SubmissionKeyValidator(
		middleware.SubmissionKeyOptions{
			MaxLen: 200,
		},
		func(ctx context.Context, scope, key string, now time.Time) (bool, error) {
			rec, err := repo.GetSubmissionKey(ctx, db, scope, key, now)
			if err != nil || rec == nil {
				return false, nil
			}
			return true, nil
		},
	))

	// 9) Token-bucket rate limiter per IP
	rl := middleware.NewRateLimiter(cfg.RateRPS, cfg.RateBurst, middleware.KeyByUserOrIP())
	r.Use(rl.Handler())

	// 10) CORS posture (safe defaults: allow all if none configured)
	if len(cfg.CORS.AllowedOrigins) == 0 {
		// Force ACAO: * even for requests without an Origin header (helps tests and simple health checks).
		r.Use(func(c *gin.Context) {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
			c.Next()
		})
		r.Use(cors.New(cors.Config{
			AllowAllOrigins:  true,
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Admin-Token", middleware.HeaderIdempotencyKey},
			ExposeHeaders:    []string{"X-Request-ID", "Content-Length"},
			AllowCredentials: false, // must remain false with AllowAllOrigins
			MaxAge:           12 * time.Hour,
		}))
	} else {
		// Echo ACAO with the request Origin when it is in the allowlist (in addition to gin-contrib/cors).
		allowed := make(map[string]struct{}, len(cfg.CORS.AllowedOrigins))
		for _, o := range cfg.CORS.AllowedOrigins {
			allowed[o] = struct{}{}
		}
		r.Use(func(c *gin.Context) {
			if origin := c.GetHeader("Origin"); origin != "" {
				if _, ok := allowed[origin]; ok {
					h := c.Writer.Header()
					h.Set("Access-Control-Allow-Origin", origin)
					h.Add("Vary", "Origin")
				}
			}
			c.Next()
		})
		r.Use(cors.New(cors.Config{
			AllowOrigins:     cfg.CORS.AllowedOrigins,
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Admin-Token", middleware.HeaderIdempotencyKey},
			ExposeHeaders:    []string{"X-Request-ID", "Content-Length"},
			AllowCredentials: false,
			MaxAge:           12 * time.Hour,
		}))
	}

	// Security headers (HSTS only when enabled and request is HTTPS)
	r.Use(middleware.SecurityHeaders(middleware.SecurityOptions{
		EnableHSTS:   cfg.Security.EnableHSTS,
		HSTSMaxAge:   cfg.Security.HSTSMaxAge,
		NoStore:      false,
		EnablePolicy: true,
	}))

	// Fallbacks
	r.NoRoute(func(c *gin.Context) {
		handlers.Fail(c, http.StatusNotFound, handlers.ErrCodeNotFound, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		handlers.Fail(c, http.StatusMethodNotAllowed, handlers.ErrCodeMethodNotAllowed, "method not allowed")
	})

	// Liveness/health
	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	// Dependency injection: services ← db + relay clients
	postSvc := &services.PostService{DB: db}
	viewSvc := &services.ViewService{DB: db}
	leadSvc := &services.LeadService{
		DB:            db,
		AdvisoryRelay: relay.New(cfg.Relay.AdvisoryURL, cfg.Relay.LeadTimeout),
		QuoteRelay:    relay.New(cfg.Relay.QuoteURL, cfg.Relay.LeadTimeout),
	}
	newsSvc := &services.NewsletterService{
		DB:    db,
		Relay: relay.New(cfg.Relay.NewsletterURL, cfg.Relay.SubTimeout),
	}
	h := handlers.New(postSvc, viewSvc, leadSvc, newsSvc)
	h.KeyTTL = cfg.SubmissionKeyTTL

	// Public API
	api := groupWithPrefix(r, cfg.APIBasePath)
	{
		// Blog
		api.GET("/posts", h.ListPosts)
		api.GET("/posts/:slug", h.GetPost)

		// Lead forms
		api.POST("/leads/advisory", h.SubmitAdvisory)
		api.POST("/leads/quote", h.SubmitQuote)

		// Newsletter
		api.POST("/newsletter/subscribe", h.Subscribe)
		api.POST("/newsletter/unsubscribe", h.Unsubscribe)
	}

	// Admin surface; absent token keeps the whole group unmounted.
	if cfg.AdminToken != "" {
		ah := handlers.NewAdmin(db, leadSvc, newsSvc)
		admin := api.Group("/admin", adminAuth(cfg.AdminToken))
		{
			admin.GET("/leads/advisory", ah.ListAdvisoryLeads)
			admin.POST("/leads/advisory/processed", ah.SetAdvisoryProcessed)
			admin.POST("/leads/advisory/:id/resend", ah.ResendAdvisory)

			admin.GET("/leads/quote", ah.ListQuoteLeads)
			admin.POST("/leads/quote/processed", ah.SetQuoteProcessed)
			admin.GET("/leads/quote/export", ah.ExportQuoteLeads)
			admin.POST("/leads/quote/:id/resend", ah.ResendQuote)

			admin.GET("/subscribers", ah.ListSubscribers)
			admin.POST("/subscribers/resend", ah.ResendSubscribers)

			admin.POST("/maintenance/submission-keys/purge", ah.PurgeSubmissionKeys)
		}
	}
}

// adminAuth guards the admin group with a shared bearer token, accepted via
// Authorization: Bearer or the X-Admin-Token header. Comparison is constant
// time.
func adminAuth(token string) gin.HandlerFunc {
	return func(c *gin.Context) {
		got := c.GetHeader("X-Admin-Token")
		if got == "" {
			auth := c.GetHeader("Authorization")
			if strings.HasPrefix(auth, "Bearer ") {
				got = strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
			}
		}
		if got == "" || subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"code":    handlers.ErrCodeUnauthorized,
				"message": "missing or invalid admin token",
			})
			return
		}
		c.Next()
	}
}

// limitBody returns a Gin middleware that caps the request body size for all
// endpoints to maxBytes using http.MaxBytesReader. Requests exceeding the cap
// will cause downstream body reads to error.
func limitBody(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
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
