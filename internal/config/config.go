// Package config provides application configuration loaded from environment
// variables with defaults and validation. It centralizes server timeouts,
// logging, the relational store, attachment storage, the realtime broker,
// admin sessions, and observability settings.
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

// DBConfig selects and configures the relational store.
type DBConfig struct {
	Driver string // sqlite|postgres
	Path   string // SQLite file path
	DSN    string // Postgres DSN
}

// S3Config configures an S3-compatible attachment bucket.
type S3Config struct {
	Endpoint        string
	Region          string
	Bucket          string
	AccessKeyID     string
	SecretAccessKey string
	PathStyle       bool
	PublicBaseURL   string // optional CDN/public prefix for object URLs
}

// StorageConfig selects where complaint attachments are kept.
type StorageConfig struct {
	Driver   string // local|s3
	Dir      string // local driver root
	Bucket   string // logical bucket name (local subdir / key prefix)
	MaxBytes int64  // attachment size cap
	S3       S3Config
}

// RealtimeConfig selects the change-notification broker.
type RealtimeConfig struct {
	Driver        string // memory|redis
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	ChannelPrefix string
	Buffer        int // per-subscriber channel capacity
}

// AdminConfig configures admin authentication and the allow-list.
type AdminConfig struct {
	JWTSecret            string
	SessionTTL           time.Duration
	CookieName           string
	CookieSecure         bool
	AllowedEmails        []string
	AllowSessionIdentity bool
	BootstrapEmail       string
	BootstrapPassword    string
}

// Config holds all configuration values for the application.
type Config struct {
	// Server
	Port              string        // just the number
	ReadTimeout       time.Duration // e.g. 15s
	ReadHeaderTimeout time.Duration // e.g. 10s
	WriteTimeout      time.Duration // e.g. 20s
	IdleTimeout       time.Duration // e.g. 60s
	MaxHeaderBytes    int           // bytes
	MaxBodyBytes      int64         // request body cap (multipart included)
	GinMode           string        // debug|release|test

	// Logging / Docs
	LogLevel       string // debug|info|warn|error|fatal|panic
	LogPretty      bool   // pretty console logs in dev
	LogFile        string // optional rotated log file
	LogRedact      bool   // scrub PII from access logs
	SwaggerEnabled bool   // enable Swagger UI route
	APIBasePath    string // base path for API routes

	// Backend connection parameters
	PublicBaseURL string // externally visible URL, used for attachment links
	PublicAPIKey  string // when set, required on every API request

	// App
	DB                 DBConfig
	Storage            StorageConfig
	Realtime           RealtimeConfig
	Admin              AdminConfig
	ContactPhoneRegion string // default region for contact phone parsing
	MaxMessageRunes    int

	// Rate limiting
	RateRPS   float64 // tokens per second (>= 0)
	RateBurst int     // bucket size (>= 1)

	// Web protection
	CORS     CORSConfig
	Security SecurityConfig

	// Idempotency
	IdempotencyTTL time.Duration // how long a given Idempotency-Key is valid

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
		Port:              getenv("PORT", "8080"),
		ReadTimeout:       getdur("READ_TIMEOUT", 15*time.Second),
		ReadHeaderTimeout: getdur("READ_HEADER_TIMEOUT", 10*time.Second),
		WriteTimeout:      getdur("WRITE_TIMEOUT", 30*time.Second),
		IdleTimeout:       getdur("IDLE_TIMEOUT", 60*time.Second),
		MaxHeaderBytes:    getint("MAX_HEADER_BYTES", 1<<20),
		MaxBodyBytes:      getint64("MAX_BODY_BYTES", 6<<20),
		GinMode:           strings.ToLower(getenv("GIN_MODE", "release")),

		LogLevel:       strings.ToLower(getenv("LOG_LEVEL", "info")),
		LogPretty:      getbool("LOG_PRETTY", false),
		LogFile:        getenv("LOG_FILE", ""),
		LogRedact:      getbool("LOG_REDACT", true),
		SwaggerEnabled: getbool("SWAGGER_ENABLED", false),
		APIBasePath:    normalizeBasePath(getenv("API_BASE_PATH", "/api/v1")),

		PublicBaseURL: strings.TrimRight(getenv("PUBLIC_BASE_URL", "http://localhost:8080"), "/"),
		PublicAPIKey:  getenv("PUBLIC_API_KEY", ""),

		DB: DBConfig{
			Driver: strings.ToLower(getenv("DB_DRIVER", "sqlite")),
			Path:   getenv("DB_PATH", "complaints.db"),
			DSN:    getenv("DB_DSN", ""),
		},
		Storage: StorageConfig{
			Driver:   strings.ToLower(getenv("STORAGE_DRIVER", "local")),
			Dir:      getenv("STORAGE_DIR", "data/attachments"),
			Bucket:   getenv("STORAGE_BUCKET", "complaint-attachments"),
			MaxBytes: getint64("MAX_ATTACHMENT_BYTES", 5<<20),
			S3: S3Config{
				Endpoint:        getenv("S3_ENDPOINT", ""),
				Region:          getenv("S3_REGION", "us-east-1"),
				Bucket:          getenv("S3_BUCKET", ""),
				AccessKeyID:     getenv("S3_ACCESS_KEY_ID", ""),
				SecretAccessKey: getenv("S3_SECRET_ACCESS_KEY", ""),
				PathStyle:       getbool("S3_PATH_STYLE", true),
				PublicBaseURL:   strings.TrimRight(getenv("S3_PUBLIC_BASE_URL", ""), "/"),
			},
		},
		Realtime: RealtimeConfig{
			Driver:        strings.ToLower(getenv("REALTIME_DRIVER", "memory")),
			RedisAddr:     getenv("REDIS_ADDR", "localhost:6379"),
			RedisPassword: getenv("REDIS_PASSWORD", ""),
			RedisDB:       getint("REDIS_DB", 0),
			ChannelPrefix: getenv("REDIS_CHANNEL_PREFIX", "complaints"),
			Buffer:        getint("REALTIME_BUFFER", 64),
		},
		Admin: AdminConfig{
			JWTSecret:            getenv("JWT_SECRET", ""),
			SessionTTL:           getdur("SESSION_TTL", 12*time.Hour),
			CookieName:           getenv("ADMIN_COOKIE_NAME", "admin_session"),
			CookieSecure:         getbool("ADMIN_COOKIE_SECURE", false),
			AllowedEmails:        splitCSV(strings.ToLower(getenv("ADMIN_ALLOWED_EMAILS", "admin@yourapp.com"))),
			AllowSessionIdentity: getbool("ADMIN_ALLOW_SESSION_IDENTITY", true),
			BootstrapEmail:       strings.ToLower(strings.TrimSpace(getenv("ADMIN_BOOTSTRAP_EMAIL", ""))),
			BootstrapPassword:    getenv("ADMIN_BOOTSTRAP_PASSWORD", ""),
		},
		ContactPhoneRegion: strings.ToUpper(getenv("CONTACT_PHONE_REGION", "SA")),
		MaxMessageRunes:    getint("MAX_MESSAGE_RUNES", 4000),

		RateRPS:   getfloat("RATE_RPS", 5.0),
		RateBurst: getint("RATE_BURST", 10),

		CORS: CORSConfig{
			AllowedOrigins: splitCSV(getenv("CORS_ALLOWED_ORIGINS", "")),
		},
		Security: SecurityConfig{
			EnableHSTS: getbool("ENABLE_HSTS", false),
			HSTSMaxAge: getdur("HSTS_MAX_AGE", 180*24*time.Hour),
		},

		IdempotencyTTL: getdur("IDEMPOTENCY_TTL", 24*time.Hour),

		OTEL: OTELConfig{
			Enabled:     getbool("OTEL_ENABLED", false),
			Endpoint:    getenv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			Insecure:    getbool("OTEL_EXPORTER_OTLP_INSECURE", true),
			ServiceName: getenv("OTEL_SERVICE_NAME", "complaints-api"),
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
	if cfg.DB.Driver == "postgresql" {
		cfg.DB.Driver = "postgres"
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
	switch cfg.DB.Driver {
	case "sqlite":
		if strings.TrimSpace(cfg.DB.Path) == "" {
			return cfg, errors.New("DB_PATH must not be empty")
		}
	case "postgres":
		if strings.TrimSpace(cfg.DB.DSN) == "" {
			return cfg, errors.New("DB_DSN is required when DB_DRIVER=postgres")
		}
	default:
		return cfg, errors.New("DB_DRIVER must be one of: sqlite, postgres")
	}
	switch cfg.Storage.Driver {
	case "local":
		if strings.TrimSpace(cfg.Storage.Dir) == "" {
			return cfg, errors.New("STORAGE_DIR must not be empty")
		}
	case "s3":
		if cfg.Storage.S3.Bucket == "" {
			return cfg, errors.New("S3_BUCKET is required when STORAGE_DRIVER=s3")
		}
	default:
		return cfg, errors.New("STORAGE_DRIVER must be one of: local, s3")
	}
	if cfg.Storage.MaxBytes <= 0 {
		return cfg, errors.New("MAX_ATTACHMENT_BYTES must be > 0")
	}
	if cfg.MaxBodyBytes < cfg.Storage.MaxBytes {
		return cfg, errors.New("MAX_BODY_BYTES must be >= MAX_ATTACHMENT_BYTES")
	}
	switch cfg.Realtime.Driver {
	case "memory", "redis":
	default:
		return cfg, errors.New("REALTIME_DRIVER must be one of: memory, redis")
	}
	if cfg.Realtime.Buffer < 1 {
		return cfg, errors.New("REALTIME_BUFFER must be >= 1")
	}
	if len(cfg.Admin.JWTSecret) < 16 {
		return cfg, errors.New("JWT_SECRET must be at least 16 characters")
	}
	if cfg.Admin.SessionTTL <= 0 {
		return cfg, errors.New("SESSION_TTL must be > 0")
	}
	if (cfg.Admin.BootstrapEmail == "") != (cfg.Admin.BootstrapPassword == "") {
		return cfg, errors.New("ADMIN_BOOTSTRAP_EMAIL and ADMIN_BOOTSTRAP_PASSWORD must be set together")
	}
	if len(cfg.ContactPhoneRegion) != 2 {
		return cfg, errors.New("CONTACT_PHONE_REGION must be a two-letter region code")
	}
	if cfg.MaxMessageRunes <= 0 {
		return cfg, errors.New("MAX_MESSAGE_RUNES must be > 0")
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
	if cfg.IdempotencyTTL <= 0 {
		return cfg, errors.New("IDEMPOTENCY_TTL must be > 0")
	}
	if cfg.OTEL.SampleRatio < 0 || cfg.OTEL.SampleRatio > 1 {
		return cfg, errors.New("OTEL_TRACES_SAMPLER_ARG must be in [0,1]")
	}

	return cfg, nil
}

// ---- helpers ----

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

func getint64(k string, def int64) int64 {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if i, err := strconv.ParseInt(v, 10, 64); err == nil {
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
