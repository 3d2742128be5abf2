package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port     string
	AppEnv   string
	LogLevel string

	// UI origins allowed by CORS; loopback origins are always allowed outside production
	AllowedOrigins []string

	DBUrl      string
	DBMaxConns int

	SupabaseUrl       string
	SupabaseKey       string
	SupabaseJWTSecret string
	OAuthRedirectURL  string
	OAuthStateTTL     time.Duration

	// Device-local cache (onboarding flags, stored refresh token)
	LocalCachePath string

	// Redis/Upstash Configuration
	UpstashRedisURL      string
	UpstashRedisPassword string

	// Optional integrations
	NatsURL           string
	TelemetryEndpoint string
	TelemetryInsecure bool
	ServiceName       string

	// Personalization / AI service
	PersonalizationURL    string
	PersonalizationAPIKey string

	// Context aggregation
	AggregationTimeout     time.Duration
	RecentTransactionLimit int
	InsightsWindowDays     int
	TopCategoriesDays      int

	// Rate Limiting Configuration
	RateLimitWindowSeconds   int
	RateLimitAuthThreshold   int
	RateLimitGlobalThreshold int
}

func LoadConfig() (*Config, error) {
	// .env is optional; real environment wins
	_ = godotenv.Load()

	cfg := &Config{
		Port:     getEnv("PORT", "8787"),
		AppEnv:   getEnv("APP_ENV", "development"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		AllowedOrigins: getEnvList("ALLOWED_ORIGINS", []string{"http://localhost:3000"}),

		DBUrl:      getEnv("DATABASE_URL", ""),
		DBMaxConns: getEnvInt("DB_MAX_CONNS", 10),

		// Trailing slash would produce .co//auth
		SupabaseUrl:       strings.TrimRight(getEnv("SUPABASE_URL", ""), "/"),
		SupabaseKey:       getEnv("SUPABASE_KEY", getEnv("SUPABASE_ANON_KEY", "")),
		SupabaseJWTSecret: getEnv("SUPABASE_JWT_SECRET", ""),
		OAuthRedirectURL:  getEnv("OAUTH_REDIRECT_URL", "http://localhost:8787/v1/auth/callback"),
		OAuthStateTTL:     getEnvDuration("OAUTH_STATE_TTL", 10*time.Minute),

		LocalCachePath: getEnv("LOCAL_CACHE_PATH", "./data/local.db"),

		UpstashRedisURL:      getEnv("UPSTASH_REDIS_URL", ""),
		UpstashRedisPassword: getEnv("UPSTASH_REDIS_PASSWORD", ""),

		NatsURL:           getEnv("NATS_URL", ""),
		TelemetryEndpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
		TelemetryInsecure: getEnvBool("OTEL_INSECURE", false),
		ServiceName:       getEnv("SERVICE_NAME", "card-assistant-backend"),

		PersonalizationURL:    strings.TrimRight(getEnv("PERSONALIZATION_URL", ""), "/"),
		PersonalizationAPIKey: getEnv("PERSONALIZATION_API_KEY", ""),

		AggregationTimeout:     getEnvDuration("AGGREGATION_TIMEOUT", 8*time.Second),
		RecentTransactionLimit: getEnvInt("RECENT_TRANSACTION_LIMIT", 10),
		InsightsWindowDays:     getEnvInt("INSIGHTS_WINDOW_DAYS", 90),
		TopCategoriesDays:      getEnvInt("TOP_CATEGORIES_DAYS", 30),

		RateLimitWindowSeconds:   getEnvInt("RATE_LIMIT_WINDOW_SECONDS", 60),
		RateLimitAuthThreshold:   getEnvInt("RATE_LIMIT_AUTH_THRESHOLD", 10),
		RateLimitGlobalThreshold: getEnvInt("RATE_LIMIT_GLOBAL_THRESHOLD", 300),
	}

	if cfg.DBUrl == "" {
		log.Println("WARNING: DATABASE_URL is missing. Application may fail to connect.")
	}
	if cfg.SupabaseUrl == "" {
		log.Println("WARNING: SUPABASE_URL is missing. Sign-in will be unavailable.")
	}
	if cfg.UpstashRedisURL == "" {
		log.Println("WARNING: UPSTASH_REDIS_URL not configured. OAuth state and rate limiting will use in-memory fallback.")
	}

	return cfg, nil
}

// IsProduction reports whether APP_ENV is production.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.AppEnv, "production")
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

// getEnvList splits a comma-separated variable, dropping empty entries
func getEnvList(key string, fallback []string) []string {
	value, exists := os.LookupEnv(key)
	if !exists {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// getEnvInt returns an integer environment variable or fallback if not set/invalid
func getEnvInt(key string, fallback int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return fallback
}

// getEnvBool returns a boolean environment variable or fallback if not set/invalid
func getEnvBool(key string, fallback bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return fallback
}

// getEnvDuration accepts Go durations ("8s") or plain seconds ("8").
func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value, exists := os.LookupEnv(key)
	if !exists {
		return fallback
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(secs) * time.Second
	}
	return fallback
}
