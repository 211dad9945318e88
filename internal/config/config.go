package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	BackendFile  = "file"
	BackendRedis = "redis"
)

type Config struct {
	ListenPort      string        // ex: ":3001"
	ShutdownTimeout time.Duration // ex: 5s

	LogLevel  string // "debug" | "info" | "warn" | "error"
	PrettyLog bool   // true => zap dev (color), false => zap prod (JSON)
	LogFile   string // optional, rotated JSON log file

	DataDir      string // directory holding the JSON documents (file backend)
	StoreBackend string // "file" | "redis"

	CatalogFile           string        // optional YAML catalog, empty = built-in catalog
	CatalogReloadInterval time.Duration // interval to re-read CatalogFile (default: 5m)
	JanitorInterval       time.Duration // interval to prune stale overrides and ids (default: 1h)

	AdminPassword  string        // seeds admin.json on first boot, empty = generated
	SessionKey     []byte        // HMAC key for session tokens, empty = random per process
	SessionTTL     time.Duration // session lifetime (default: 2h)
	RequireSession bool          // true => admin mutations need a session token

	ProbeHost        string        // host dialed for port probes (default: 127.0.0.1)
	ProbeBaseURL     string        // optional HTTP fallback base for targets with a path
	ProbeTimeout     time.Duration // per probe timeout (default: 5s)
	ProbeConcurrency int           // parallel probes per cycle (default: 16)
	HealthInterval   time.Duration // full health cycle interval (default: 30s)

	// Redis
	RedisAddr             string        // ex: "localhost:6379"
	RedisUser             string        // optional
	RedisPassword         string        // optional
	RedisPasswordRequired bool          // true => require password, false => allow empty password
	RedisDB               int           // Redis DB number
	RedisDT               time.Duration // Redis dial timeout (ex: 5s)
	RedisRT               time.Duration // Redis read timeout (ex: 3s)
	RedisWT               time.Duration // Redis write timeout (ex: 3s)
	RedisMaxWait          time.Duration // max wait between retries (ex: 10s)
	RedisPingTimeout      time.Duration // timeout for each ping attempt (ex: 5s)
	RedisPoolSize         int           // Redis connection pool size
	RedisConnectTimeout   time.Duration // Total time to retry connecting (ex: 30s)
	RedisRetryInterval    time.Duration // Initial wait between retries (ex: 2s, grows exponentially)
	RedisWarnThreshold    int           // warn after this many attempts

	AllowedHosts   []string // optional, restrict access to specific Host headers
	AllowedCIDRS   []string // optional, restrict /metrics to specific IPs or ranges
	TrustProxy     bool     // true => trust X-Forwarded-For headers
	CORSOrigins    []string // allowed CORS origins (default: *)
	AuthRateBurst  int      // verify attempts allowed in a burst per client IP
	AuthRatePerMin int      // verify attempts refilled per minute per client IP
}

func Load() *Config {
	cfg := &Config{
		// Server settings
		ListenPort:      getenv("PORTAL_LISTEN_PORT", ":3001"),
		ShutdownTimeout: mustDuration("PORTAL_SHUTDOWN_TIMEOUT", 5*time.Second),

		// Logging
		LogLevel:  getenv("PORTAL_LOG_LEVEL", "info"),
		PrettyLog: mustBool("PORTAL_PRETTY_LOG", true),
		LogFile:   getenv("PORTAL_LOG_FILE", ""),

		// Storage
		DataDir:      getenv("PORTAL_DATA_DIR", "./data"),
		StoreBackend: strings.ToLower(getenv("PORTAL_STORE_BACKEND", BackendFile)),

		// Catalog and background jobs
		CatalogFile:           getenv("PORTAL_CATALOG_FILE", ""),
		CatalogReloadInterval: mustDuration("PORTAL_CATALOG_RELOAD_INTERVAL", 5*time.Minute),
		JanitorInterval:       mustDuration("PORTAL_JANITOR_INTERVAL", time.Hour),

		// Auth
		AdminPassword:  getenv("PORTAL_ADMIN_PASSWORD", ""),
		SessionKey:     []byte(getenv("PORTAL_SESSION_KEY", "")),
		SessionTTL:     mustDuration("PORTAL_SESSION_TTL", 2*time.Hour),
		RequireSession: mustBool("PORTAL_REQUIRE_SESSION", false),

		// Reachability
		ProbeHost:        getenv("PORTAL_PROBE_HOST", "127.0.0.1"),
		ProbeBaseURL:     getenv("PORTAL_PROBE_BASE_URL", ""),
		ProbeTimeout:     mustDuration("PORTAL_PROBE_TIMEOUT", 5*time.Second),
		ProbeConcurrency: getenvInt("PORTAL_PROBE_CONCURRENCY", 16),
		HealthInterval:   mustDuration("PORTAL_HEALTH_INTERVAL", 30*time.Second),

		// Redis settings
		RedisAddr:             getenv("PORTAL_REDIS_ADDR", ""),
		RedisUser:             getenv("PORTAL_REDIS_USERNAME", ""),
		RedisPasswordRequired: mustBool("PORTAL_REDIS_PASSWORD_REQUIRED", false),
		RedisPassword:         getenv("PORTAL_REDIS_PASSWORD", ""),
		RedisDB:               getenvInt("PORTAL_REDIS_DB", 0),
		RedisDT:               mustDuration("PORTAL_REDIS_DIAL_TIMEOUT", 5*time.Second),
		RedisRT:               mustDuration("PORTAL_REDIS_READ_TIMEOUT", 3*time.Second),
		RedisWT:               mustDuration("PORTAL_REDIS_WRITE_TIMEOUT", 3*time.Second),
		RedisMaxWait:          mustDuration("PORTAL_REDIS_MAX_WAIT", 10*time.Second),
		RedisPingTimeout:      mustDuration("PORTAL_REDIS_PING_TIMEOUT", 5*time.Second),
		RedisPoolSize:         getenvInt("PORTAL_REDIS_POOL_SIZE", 10),
		RedisConnectTimeout:   mustDuration("PORTAL_REDIS_CONNECT_TIMEOUT", 30*time.Second),
		RedisRetryInterval:    mustDuration("PORTAL_REDIS_RETRY_INTERVAL", 2*time.Second),
		RedisWarnThreshold:    getenvInt("PORTAL_REDIS_WARN_THRESHOLD", 3),

		// Access restrictions
		AllowedHosts:   splitAndTrim(getenv("PORTAL_ALLOWED_HOSTS", "")),
		AllowedCIDRS:   parseAllowedIPs(getenv("PORTAL_ALLOWED_CIDRS", "127.0.0.1/32, ::1/128")),
		TrustProxy:     mustBool("PORTAL_TRUST_PROXY", false),
		CORSOrigins:    splitAndTrim(getenv("PORTAL_CORS_ORIGINS", "*")),
		AuthRateBurst:  getenvInt("PORTAL_AUTH_RATE_BURST", 5),
		AuthRatePerMin: getenvInt("PORTAL_AUTH_RATE_PER_MIN", 10),
	}

	cfg.validate()

	// Log config only in debug mode with redacted sensitive fields
	if cfg.LogLevel == "debug" {
		cfgCopy := *cfg
		cfgCopy.RedisPassword = "***REDACTED***"
		cfgCopy.AdminPassword = "***REDACTED***"
		cfgCopy.SessionKey = nil
		if cfg.RedisUser != "" {
			cfgCopy.RedisUser = "***REDACTED***"
		}
		log.Printf("[DEBUG] cfg: %+v\n", cfgCopy)
	}

	return cfg
}

func (cfg *Config) validate() {
	switch cfg.StoreBackend {
	case BackendFile:
	case BackendRedis:
		cfg.RedisAddr = requireEnv("PORTAL_REDIS_ADDR")
		if cfg.RedisPasswordRequired && cfg.RedisPassword == "" {
			panic("❌ FATAL: PORTAL_REDIS_PASSWORD is required when PORTAL_REDIS_PASSWORD_REQUIRED=true")
		}
	default:
		panic(fmt.Sprintf("❌ FATAL: PORTAL_STORE_BACKEND must be %q or %q, got %q", BackendFile, BackendRedis, cfg.StoreBackend))
	}

	if n := len(cfg.SessionKey); n > 0 && n < 32 {
		panic(fmt.Sprintf("❌ FATAL: PORTAL_SESSION_KEY must be at least 32 bytes, got %d", n))
	}
	if cfg.SessionTTL <= 0 {
		panic("❌ FATAL: PORTAL_SESSION_TTL must be > 0")
	}
	if cfg.ProbeTimeout <= 0 || cfg.HealthInterval <= 0 {
		panic("❌ FATAL: PORTAL_PROBE_TIMEOUT and PORTAL_HEALTH_INTERVAL must be > 0")
	}
	if cfg.ProbeConcurrency <= 0 {
		panic(fmt.Sprintf("❌ FATAL: PORTAL_PROBE_CONCURRENCY must be > 0, got %d", cfg.ProbeConcurrency))
	}
	if cfg.AuthRateBurst <= 0 || cfg.AuthRatePerMin <= 0 {
		panic("❌ FATAL: PORTAL_AUTH_RATE_BURST and PORTAL_AUTH_RATE_PER_MIN must be > 0")
	}
}

// helpers
func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func requireEnv(key string) string {
	v := os.Getenv(key)
	if v == "" {
		panic(fmt.Sprintf("❌ FATAL: Required environment variable %s is not set", key))
	}
	return v
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func mustBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return def
}

func mustDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func parseAllowedIPs(allowed string) []string {
	if allowed == "" {
		return nil
	}
	ips := make([]string, 0, 4)
	for _, ip := range splitAndTrim(allowed) {
		if ip != "" {
			ips = append(ips, ip)
		}
	}
	return ips
}

func splitAndTrim(s string) []string {
	if s == "" {
		return nil
	}
	raw := strings.Split(s, ",")
	parts := make([]string, 0, len(raw))
	for _, part := range raw {
		trimmed := strings.TrimSpace(part)
		// Remove surrounding quotes if present
		trimmed = strings.Trim(trimmed, `"'`)
		if trimmed != "" {
			parts = append(parts, trimmed)
		}
	}
	return parts
}
