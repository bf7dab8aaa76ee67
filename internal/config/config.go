// Package config provides application configuration loaded from environment
// variables with defaults and validation. It centralizes server timeouts,
// database and auth settings, LLM provider keys, retrieval tuning, quota
// policy, rate limiting, and observability options.
package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"
)

// CORSConfig defines Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string
}

// SecurityConfig defines security-related settings such as HSTS.
type SecurityConfig struct {
	EnableHSTS bool
	HSTSMaxAge time.Duration
}

// OTELConfig defines OpenTelemetry observability settings.
type OTELConfig struct {
	Enabled     bool    // OTEL_ENABLED
	Endpoint    string  // OTEL_EXPORTER_OTLP_ENDPOINT (e.g. "otel:4317")
	Insecure    bool    // OTEL_EXPORTER_OTLP_INSECURE (true if no TLS)
	ServiceName string  // OTEL_SERVICE_NAME
	SampleRatio float64 // OTEL_TRACES_SAMPLER_ARG in [0..1]
}

// AuthConfig defines settings for token verification and the managed auth
// provider the service delegates sign-in/sign-up flows to.
type AuthConfig struct {
	ProviderURL string // SUPABASE_URL (GoTrue-compatible base URL)
	AnonKey     string // SUPABASE_ANON_KEY (public API key for auth proxying)
	ServiceKey  string // SUPABASE_SERVICE_KEY (admin endpoints)
	JWTSecret   string // SUPABASE_JWT_SECRET (HS256 verification)
	Disabled    bool   // AUTH_DISABLED (local development only)
}

// LLMConfig defines provider keys and model selection for chat completions
// and embeddings. A provider is used when its key is non-empty; resolution
// order is OpenRouter, then DeepSeek, then OpenAI.
type LLMConfig struct {
	OpenRouterKey string // OPENROUTER_API_KEY
	DeepSeekKey   string // DEEPSEEK_API_KEY
	OpenAIKey     string // OPENAI_API_KEY

	ChatModel      string // CHAT_MODEL (empty = provider default)
	EmbeddingModel string // EMBEDDING_MODEL
	EmbeddingDim   int    // EMBEDDING_DIM
}

// RetrievalConfig tunes the vector similarity search backing answers.
type RetrievalConfig struct {
	Threshold  float64 // MATCH_THRESHOLD: minimum similarity in [0,1]
	MatchCount int     // MATCH_COUNT: maximum chunks injected as context
}

// QuotaPolicy names the behavior when the usage write fails.
type QuotaPolicy string

const (
	// QuotaFailClosed denies the request when usage accounting fails.
	QuotaFailClosed QuotaPolicy = "fail_closed"
	// QuotaFailOpen admits the request when usage accounting fails.
	QuotaFailOpen QuotaPolicy = "fail_open"
)

// ContactConfig tunes the fixed-window limiter on the public contact endpoint.
type ContactConfig struct {
	Window      time.Duration // CONTACT_WINDOW
	MaxRequests int           // CONTACT_MAX_REQUESTS per window per IP
}

// Config holds all configuration values for the application.
type Config struct {
	// Server
	Port              string        // just the number
	ReadTimeout       time.Duration // e.g. 15s
	ReadHeaderTimeout time.Duration // e.g. 10s
	WriteTimeout      time.Duration // e.g. 5m (must cover a full answer stream)
	IdleTimeout       time.Duration // e.g. 60s
	MaxHeaderBytes    int           // bytes
	GinMode           string        // debug|release|test

	// Logging / Docs
	LogLevel       string // debug|info|warn|error|fatal|panic
	LogPretty      bool   // pretty console logs in dev
	SwaggerEnabled bool   // enable Swagger UI route
	APIBasePath    string // base path for API routes

	// Site identity, surfaced in auth emails and prompt attribution
	SiteURL  string // NEXT_PUBLIC_SITE_URL
	SiteName string // NEXT_PUBLIC_SITE_NAME

	// Storage
	DatabaseURL string // DATABASE_URL (Postgres DSN)

	// Domain stacks
	Auth      AuthConfig
	LLM       LLMConfig
	Retrieval RetrievalConfig
	Quota     QuotaPolicy // QUOTA_POLICY
	Contact   ContactConfig

	// Rate limiting (global token bucket per user/IP)
	RateRPS   float64 // tokens per second (>= 0)
	RateBurst int     // bucket size (>= 1)

	// Web protection
	CORS     CORSConfig
	Security SecurityConfig

	// Observability
	OTEL OTELConfig
}

// MustLoad loads the configuration and panics if validation fails.
func MustLoad() Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// Load reads configuration from environment variables,
// applies defaults, normalizes values, and validates the result.
func Load() (Config, error) {
	cfg := Config{
		// Server
		Port:              getenv("PORT", "8080"),
		ReadTimeout:       getdur("READ_TIMEOUT", 15*time.Second),
		ReadHeaderTimeout: getdur("READ_HEADER_TIMEOUT", 10*time.Second),
		WriteTimeout:      getdur("WRITE_TIMEOUT", 5*time.Minute),
		IdleTimeout:       getdur("IDLE_TIMEOUT", 60*time.Second),
		MaxHeaderBytes:    getint("MAX_HEADER_BYTES", 1<<20),
		GinMode:           strings.ToLower(getenv("GIN_MODE", "release")),

		// Logging / Docs
		LogLevel:       strings.ToLower(getenv("LOG_LEVEL", "info")),
		LogPretty:      getbool("LOG_PRETTY", false),
		SwaggerEnabled: getbool("SWAGGER_ENABLED", false),
		APIBasePath:    normalizeBasePath(getenv("API_BASE_PATH", "/api")),

		// Site
		SiteURL:  getenv("NEXT_PUBLIC_SITE_URL", "http://localhost:3000"),
		SiteName: getenv("NEXT_PUBLIC_SITE_NAME", "Regulation Q&A"),

		// Storage
		DatabaseURL: getenv("DATABASE_URL", ""),

		// Auth
		Auth: AuthConfig{
			ProviderURL: strings.TrimRight(getenv("SUPABASE_URL", ""), "/"),
			AnonKey:     getenv("SUPABASE_ANON_KEY", ""),
			ServiceKey:  getenv("SUPABASE_SERVICE_KEY", ""),
			JWTSecret:   getenv("SUPABASE_JWT_SECRET", ""),
			Disabled:    getbool("AUTH_DISABLED", false),
		},

		// LLM providers
		LLM: LLMConfig{
			OpenRouterKey:  getenv("OPENROUTER_API_KEY", ""),
			DeepSeekKey:    getenv("DEEPSEEK_API_KEY", ""),
			OpenAIKey:      getenv("OPENAI_API_KEY", ""),
			ChatModel:      getenv("CHAT_MODEL", ""),
			EmbeddingModel: getenv("EMBEDDING_MODEL", "text-embedding-3-small"),
			EmbeddingDim:   getint("EMBEDDING_DIM", 1536),
		},

		// Retrieval
		Retrieval: RetrievalConfig{
			Threshold:  getfloat("MATCH_THRESHOLD", 0.1),
			MatchCount: getint("MATCH_COUNT", 8),
		},

		// Quota accounting failure policy
		Quota: QuotaPolicy(strings.ToLower(getenv("QUOTA_POLICY", string(QuotaFailClosed)))),

		// Contact endpoint limiter
		Contact: ContactConfig{
			Window:      getdur("CONTACT_WINDOW", 60*time.Second),
			MaxRequests: getint("CONTACT_MAX_REQUESTS", 5),
		},

		// Rate limiting
		RateRPS:   getfloat("RATE_RPS", 5.0),
		RateBurst: getint("RATE_BURST", 10),

		// Web protection
		CORS: CORSConfig{
			AllowedOrigins: splitCSV(getenv("CORS_ALLOWED_ORIGINS", "")),
		},
		Security: SecurityConfig{
			EnableHSTS: getbool("ENABLE_HSTS", false),
			HSTSMaxAge: getdur("HSTS_MAX_AGE", 180*24*time.Hour),
		},

		// Observability (OpenTelemetry)
		OTEL: OTELConfig{
			Enabled:     getbool("OTEL_ENABLED", false),
			Endpoint:    getenv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			Insecure:    getbool("OTEL_EXPORTER_OTLP_INSECURE", true),
			ServiceName: getenv("OTEL_SERVICE_NAME", "go-rag-backend"),
			SampleRatio: getfloat("OTEL_TRACES_SAMPLER_ARG", 1.0),
		},
	}

	// --- normalization ---
	if cfg.LogLevel == "warning" {
		cfg.LogLevel = "warn"
	}
	switch cfg.GinMode {
	case "debug", "release", "test":
	default:
		cfg.GinMode = "release"
	}
	if cfg.Quota == "failopen" || cfg.Quota == "open" {
		cfg.Quota = QuotaFailOpen
	}

	// --- validation ---
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error", "fatal", "panic":
	default:
		return cfg, errors.New("LOG_LEVEL must be one of: debug, info, warn, error, fatal, panic")
	}
	if strings.TrimSpace(cfg.Port) == "" {
		return cfg, errors.New("PORT must not be empty")
	}
	if cfg.ReadTimeout <= 0 || cfg.ReadHeaderTimeout <= 0 || cfg.WriteTimeout <= 0 || cfg.IdleTimeout <= 0 {
		return cfg, errors.New("timeouts must be positive durations")
	}
	if cfg.MaxHeaderBytes <= 0 {
		return cfg, errors.New("MAX_HEADER_BYTES must be > 0")
	}
	if cfg.Retrieval.Threshold < 0 || cfg.Retrieval.Threshold > 1 {
		return cfg, errors.New("MATCH_THRESHOLD must be between 0 and 1")
	}
	if cfg.Retrieval.MatchCount < 1 {
		return cfg, errors.New("MATCH_COUNT must be >= 1")
	}
	if cfg.LLM.EmbeddingDim <= 0 {
		return cfg, errors.New("EMBEDDING_DIM must be > 0")
	}
	switch cfg.Quota {
	case QuotaFailOpen, QuotaFailClosed:
	default:
		return cfg, errors.New("QUOTA_POLICY must be fail_open or fail_closed")
	}
	if cfg.Contact.Window <= 0 {
		return cfg, errors.New("CONTACT_WINDOW must be > 0")
	}
	if cfg.Contact.MaxRequests < 1 {
		return cfg, errors.New("CONTACT_MAX_REQUESTS must be >= 1")
	}
	if cfg.RateRPS < 0 {
		return cfg, errors.New("RATE_RPS must be >= 0")
	}
	if cfg.RateBurst < 1 {
		return cfg, errors.New("RATE_BURST must be >= 1")
	}
	if cfg.Security.HSTSMaxAge < 0 {
		return cfg, errors.New("HSTS_MAX_AGE must be >= 0")
	}
	if cfg.OTEL.SampleRatio < 0 || cfg.OTEL.SampleRatio > 1 {
		return cfg, errors.New("OTEL_TRACES_SAMPLER_ARG must be in [0,1]")
	}
	if !cfg.Auth.Disabled && cfg.Auth.JWTSecret == "" {
		return cfg, errors.New("SUPABASE_JWT_SECRET must be set unless AUTH_DISABLED=true")
	}

	return cfg, nil
}

// HasProviderKey reports whether at least one chat-completion provider key is
// configured. The chat endpoint cannot serve requests without one.
func (c Config) HasProviderKey() bool {
	return c.LLM.OpenRouterKey != "" || c.LLM.DeepSeekKey != "" || c.LLM.OpenAIKey != ""
}

// ---- helpers (no external deps) ----

func getenv(k, def string) string {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		return v
	}
	return def
}

func getfloat(k string, def float64) float64 {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getint(k string, def int) int {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getbool(k string, def bool) bool {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "true", "yes", "y", "on":
			return true
		case "0", "false", "no", "n", "off":
			return false
		}
	}
	return def
}

func getdur(k string, def time.Duration) time.Duration {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		t := strings.TrimSpace(p)
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}

// normalizeBasePath ensures leading '/' and strips trailing '/' (except root).
func normalizeBasePath(p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return "/"
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	if len(p) > 1 && strings.HasSuffix(p, "/") {
		p = strings.TrimRight(p, "/")
	}
	return p
}
