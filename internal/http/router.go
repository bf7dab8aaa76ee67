// Package httpapi wires the HTTP transport (Gin) to application services,
// middleware, and route handlers. It centralizes cross-cutting concerns such
// as tracing, correlation IDs, logging/redaction, panic recovery, metrics,
// CORS, security headers, authentication, and rate limiting.
//
// Design goals:
//   - Put observability first (OTel + Prometheus)
//   - Safe-by-default middleware ordering (RequestID → logging → recovery)
//   - Deterministic, minimal router setup; all dependencies injected
//   - Production-ready CORS and security header posture
package httpapi

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"gorm.io/gorm"

	_ "github.com/tbourn/go-rag-backend/docs"
	"github.com/tbourn/go-rag-backend/internal/auth"
	"github.com/tbourn/go-rag-backend/internal/config"
	"github.com/tbourn/go-rag-backend/internal/http/handlers"
	"github.com/tbourn/go-rag-backend/internal/http/middleware"
	"github.com/tbourn/go-rag-backend/internal/llm"
	"github.com/tbourn/go-rag-backend/internal/search"
	"github.com/tbourn/go-rag-backend/internal/services"
)

// Deps carries the externally constructed dependencies the router wires
// together. LLM may be nil when no provider key is configured; the chat
// endpoint then fails with provider_unconfigured instead of panicking.
type Deps struct {
	DB           *gorm.DB
	LLM          llm.Client
	AuthProvider *auth.ProviderClient
	Verifier     *auth.Verifier
}

// RegisterRoutes attaches all middleware and HTTP endpoints to the given Gin
// engine. It configures observability (tracing, metrics), rate limiting, CORS
// and security headers, health and metrics endpoints, and then mounts the
// public API under cfg.APIBasePath.
//
// Middleware order matters:
//  1. OpenTelemetry: trace everything
//  2. RequestID: generate/propagate correlation id
//  3. RedactingLogger: structured logs with PII scrubbing
//  4. Recovery: capture panics after logger
//  5. Body size limiter
//  6. Gzip (chat excluded so streamed chunks are not buffered)
//  7. Metrics
//  8. Rate limiter (per user/IP)
//  9. CORS and Security headers
//
// Authentication is applied per route group, not globally: the chat and
// usage endpoints require a verified token, the contact and regulation
// endpoints are public, and the admin group is keyed by X-Service-Key.
func RegisterRoutes(r *gin.Engine, d Deps, cfg config.Config) {
	r.HandleMethodNotAllowed = true

	apiBase := cfg.APIBasePath
	chatPath := joinPath(apiBase, "/chat")

	// 1) Trace all HTTP requests
	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))

	// 2) Correlate requests and logs
	r.Use(middleware.RequestID())

	// 3) Structured logging with redaction
	r.Use(middleware.RedactingLogger(middleware.RedactOptions{}))

	// 4) Panic recovery to JSON 500 (with request id)
	r.Use(middleware.Recovery())

	// 5) Global body size limit (1 MiB)
	r.Use(limitBody(1 << 20))

	// 6) Compress everything except the streamed chat body
	r.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{chatPath})))

	// 7) Prometheus metrics and /metrics endpoint
	r.Use(middleware.Metrics())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// 8) Token-bucket rate limiter per user/IP
	rl := middleware.NewRateLimiter(cfg.RateRPS, cfg.RateBurst, middleware.KeyByUserOrIP())
	r.Use(rl.Handler())

	// 9) CORS posture (safe defaults: allow all if none configured)
	corsAllowHeaders := []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Service-Key"}
	corsExposeHeaders := []string{"X-Request-ID", "Content-Length", "X-Usage-Limit", "X-Usage-Remaining", "X-Context-Degraded"}
	if len(cfg.CORS.AllowedOrigins) == 0 {
		// Force ACAO: * even for requests without an Origin header (helps tests and simple health checks).
		r.Use(func(c *gin.Context) {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
			c.Next()
		})
		r.Use(cors.New(cors.Config{
			AllowAllOrigins:  true,
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     corsAllowHeaders,
			ExposeHeaders:    corsExposeHeaders,
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
			AllowHeaders:     corsAllowHeaders,
			ExposeHeaders:    corsExposeHeaders,
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

	// Swagger UI (opt-in)
	if cfg.SwaggerEnabled {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	// Dependency injection: services ← repo/db/clients
	usageSvc := services.NewUsageService(d.DB, services.NewUsageRepo(), cfg.Quota)
	profileSvc := services.NewProfileService(d.DB)
	chatSvc := &services.ChatService{
		Usage:          usageSvc,
		LLM:            d.LLM,
		Retriever:      &search.PGRetriever{DB: d.DB},
		Threshold:      cfg.Retrieval.Threshold,
		MatchCount:     cfg.Retrieval.MatchCount,
		SiteName:       cfg.SiteName,
		MaxPromptRunes: 8000,
	}
	contactSvc := services.NewContactService(d.DB)
	regSvc := services.NewRegulationService(d.DB)

	hd := handlers.Deps{
		Chat:       chatSvc,
		Usage:      usageSvc,
		Contact:    contactSvc,
		Regulation: regSvc,
		Profile:    profileSvc,
		ServiceKey: cfg.Auth.ServiceKey,
		SiteURL:    cfg.SiteURL,
	}
	// A typed-nil provider must not end up inside the interface.
	if d.AuthProvider != nil {
		hd.Auth = d.AuthProvider
	}
	h := handlers.New(hd)

	contactLimiter := middleware.NewFixedWindowLimiter(cfg.Contact.Window, cfg.Contact.MaxRequests)
	requireUser := auth.Middleware(d.Verifier, auth.MiddlewareConfig{DisableAuth: cfg.Auth.Disabled})

	// Public API
	api := groupWithPrefix(r, apiBase)
	{
		// Authenticated product surface
		authed := api.Group("", requireUser, ensureProfile(profileSvc))
		authed.POST("/chat", h.Chat)
		authed.GET("/usage", h.Usage)

		// Public endpoints
		api.POST("/contact", contactLimiter.Handler(), h.Contact)
		api.GET("/regulations", h.ListRegulations)

		// Credential proxy
		api.POST("/auth/signup", h.SignUp)
		api.POST("/auth/signin", h.SignIn)
		api.POST("/auth/magic-link", h.MagicLink)
		api.POST("/auth/signout", h.SignOut)

		// Service-key surface
		api.PUT("/admin/users/:id/tier", h.UpdateTier)
	}
}

// ensureProfile provisions a free-tier profile for first-time users so the
// usage gate always has a tier to read. Failures are logged, not fatal; the
// gate treats a missing profile as free tier anyway.
func ensureProfile(svc *services.ProfileService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if uid := auth.UserID(c); uid != "" {
			if err := svc.Ensure(c.Request.Context(), uid); err != nil {
				lg := middleware.LoggerFrom(c)
				lg.Warn().Err(err).Msg("profile provisioning failed")
			}
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

// joinPath concatenates a base path and a route without doubling slashes.
func joinPath(base, route string) string {
	if base == "" || base == "/" {
		return route
	}
	return base + route
}
