package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Server captures HTTP server level configuration.
type Server struct {
	Addr string

	// WebhookSecret is the shared secret used to authenticate inbound
	// verification-provider events (HMAC-SHA256 over the raw body).
	WebhookSecret string

	// Provider holds credentials for the verification-provider API used to
	// enrich applicant records with identity data.
	Provider ProviderConfig

	// Screening configures the wallet risk-screening provider and decision policy.
	Screening ScreeningConfig

	// Notify configures the outbound notification channel.
	Notify NotifyConfig

	// Tokens configures the magic-link credential chain.
	Tokens TokenConfig

	// Admin configures the operator surface.
	Admin AdminConfig

	Database DatabaseConfig
	Redis    RedisConfig
	Kafka    KafkaConfig
}

// ProviderConfig holds verification-provider API credentials.
type ProviderConfig struct {
	BaseURL   string
	AppToken  string
	SecretKey string
	Timeout   time.Duration
}

// ScreeningConfig holds risk-screening provider settings and policy knobs.
// The hard-block category list and review levels are configurable because the
// provider's taxonomy evolves; defaults cover the designated-risk categories.
type ScreeningConfig struct {
	BaseURL             string
	APIKey              string
	Timeout             time.Duration
	CacheTTL            time.Duration
	HardBlockCategories []string
	ReviewRiskLevels    []string
}

// NotifyConfig holds outbound notification channel settings.
type NotifyConfig struct {
	WebhookURL  string
	Timeout     time.Duration
	MaxAttempts int
	BaseURL     string // base for magic links embedded in messages
}

// TokenConfig holds credential-chain expiry and reuse settings.
type TokenConfig struct {
	ContractTTL time.Duration
	WalletTTL   time.Duration
	ReuseWindow time.Duration
}

// AdminConfig holds operator authentication settings.
type AdminConfig struct {
	Username      string
	PasswordHash  string // bcrypt hash
	JWTSigningKey string
	SessionTTL    time.Duration
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// RedisConfig holds Redis connection settings for the screening cache.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// KafkaConfig holds audit-trail publishing settings.
type KafkaConfig struct {
	Brokers string
	Topic   string
}

// FromEnv builds a Server config from environment variables so main stays lean.
func FromEnv() Server {
	return Server{
		Addr:          envOr("ONBOARD_ADDR", ":8080"),
		WebhookSecret: os.Getenv("WEBHOOK_SECRET"),
		Provider: ProviderConfig{
			BaseURL:   envOr("PROVIDER_BASE_URL", "https://api.sumsub.com"),
			AppToken:  os.Getenv("PROVIDER_APP_TOKEN"),
			SecretKey: os.Getenv("PROVIDER_SECRET_KEY"),
			Timeout:   envDuration("PROVIDER_TIMEOUT", 10*time.Second),
		},
		Screening: ScreeningConfig{
			BaseURL:             envOr("SCREENING_BASE_URL", "https://api.chainalysis.com/api/risk"),
			APIKey:              os.Getenv("SCREENING_API_KEY"),
			Timeout:             envDuration("SCREENING_TIMEOUT", 15*time.Second),
			CacheTTL:            envDuration("SCREENING_CACHE_TTL", 1*time.Hour),
			HardBlockCategories: envList("SCREENING_HARD_BLOCK_CATEGORIES", defaultHardBlockCategories),
			ReviewRiskLevels:    envList("SCREENING_REVIEW_RISK_LEVELS", defaultReviewRiskLevels),
		},
		Notify: NotifyConfig{
			WebhookURL:  os.Getenv("NOTIFY_WEBHOOK_URL"),
			Timeout:     envDuration("NOTIFY_TIMEOUT", 10*time.Second),
			MaxAttempts: envInt("NOTIFY_MAX_ATTEMPTS", 3),
			BaseURL:     envOr("ONBOARD_BASE_URL", "http://localhost:8080"),
		},
		Tokens: TokenConfig{
			ContractTTL: envDuration("CONTRACT_TOKEN_TTL", 7*24*time.Hour),
			WalletTTL:   envDuration("WALLET_TOKEN_TTL", 30*24*time.Hour),
			ReuseWindow: envDuration("TOKEN_REUSE_WINDOW", 24*time.Hour),
		},
		Admin: AdminConfig{
			Username:      envOr("ADMIN_USERNAME", "admin"),
			PasswordHash:  os.Getenv("ADMIN_PASSWORD_HASH"),
			JWTSigningKey: envOr("ADMIN_JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
			SessionTTL:    envDuration("ADMIN_SESSION_TTL", 1*time.Hour),
		},
		Database: DatabaseConfig{
			URL:             os.Getenv("DATABASE_URL"),
			MaxOpenConns:    envInt("DATABASE_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    envInt("DATABASE_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: envDuration("DATABASE_CONN_MAX_LIFETIME", 5*time.Minute),
		},
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     envInt("REDIS_POOL_SIZE", 10),
			MinIdleConns: envInt("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  envDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  envDuration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: envDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Kafka: KafkaConfig{
			Brokers: os.Getenv("KAFKA_BROKERS"),
			Topic:   envOr("KAFKA_AUDIT_TOPIC", "onboarding.audit.events"),
		},
	}
}

var defaultHardBlockCategories = []string{
	"sanctioned entity",
	"sanctioned jurisdiction",
	"stolen funds",
	"terrorist financing",
	"scam",
	"fraud shop",
}

var defaultReviewRiskLevels = []string{"High", "Severe"}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func envList(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parts := strings.Split(v, ",")
	out := parts[:0]
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
