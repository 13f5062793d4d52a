// Package config reads process configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"kycgate/pkg/domain"
	platformstrings "kycgate/pkg/platform/strings"
)

// Server captures HTTP server level configuration.
type Server struct {
	Addr            string
	DatabaseURL     string
	JWTSigningKey   string
	JWTIssuer       string
	TokenTTL        time.Duration
	BootstrapAdmin  domain.Identity
	// Ledgers names the verification ledgers assets may bind to. The first
	// is the one governance operations act on.
	Ledgers         []string
	RequiredSigs    int
	LogLevel        string
	TxTimeout       time.Duration
	ShutdownTimeout time.Duration
	Redis           RedisConfig
	Audit           AuditConfig
	RateLimit       RateLimitConfig
	Tracing         TracingConfig
}

// RedisConfig configures the shared Redis client. An empty URL disables
// Redis-backed components.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	Stream       string
	// StreamMaxLen trims the audit stream approximately. Zero keeps everything.
	StreamMaxLen int
}

// AuditConfig configures notification delivery.
type AuditConfig struct {
	KafkaBrokers []string
	KafkaTopic   string
	// Buffer > 0 switches the publisher to async mode with that queue size.
	Buffer int
}

// RateLimitConfig bounds requests per caller per minute. Zero disables a class.
type RateLimitConfig struct {
	ReadPerMinute  int
	WritePerMinute int
}

// TracingConfig configures the span provider.
type TracingConfig struct {
	SampleRatio float64
	LogSpans    bool
}

// InMemory reports whether stores should be process-local.
func (s Server) InMemory() bool {
	return s.DatabaseURL == ""
}

const devSigningKey = "dev-secret-key-change-in-production"

// FromEnv builds a Server config from environment variables so main stays lean.
func FromEnv() (Server, error) {
	var errs []error
	cfg := Server{
		Addr:            getenv("KYCGATE_ADDR", ":8080"),
		DatabaseURL:     os.Getenv("DATABASE_URL"),
		JWTSigningKey:   getenv("JWT_SIGNING_KEY", devSigningKey),
		JWTIssuer:       getenv("JWT_ISSUER", "kycgate"),
		TokenTTL:        duration("TOKEN_TTL", time.Hour, &errs),
		Ledgers:         list("LEDGERS"),
		RequiredSigs:    integer("REQUIRED_SIGNATURES", 1, &errs),
		LogLevel:        getenv("LOG_LEVEL", "info"),
		TxTimeout:       duration("TX_TIMEOUT", 5*time.Second, &errs),
		ShutdownTimeout: duration("SHUTDOWN_TIMEOUT", 10*time.Second, &errs),
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     integer("REDIS_POOL_SIZE", 10, &errs),
			MinIdleConns: integer("REDIS_MIN_IDLE_CONNS", 2, &errs),
			DialTimeout:  duration("REDIS_DIAL_TIMEOUT", 5*time.Second, &errs),
			ReadTimeout:  duration("REDIS_READ_TIMEOUT", 3*time.Second, &errs),
			WriteTimeout: duration("REDIS_WRITE_TIMEOUT", 3*time.Second, &errs),
			Stream:       getenv("REDIS_AUDIT_STREAM", "kycgate:audit"),
			StreamMaxLen: integer("REDIS_AUDIT_STREAM_MAXLEN", 100000, &errs),
		},
		Audit: AuditConfig{
			KafkaBrokers: list("KAFKA_BROKERS"),
			KafkaTopic:   getenv("KAFKA_TOPIC", "kycgate.audit"),
			Buffer:       integer("AUDIT_BUFFER", 0, &errs),
		},
		RateLimit: RateLimitConfig{
			ReadPerMinute:  integer("RATE_LIMIT_READ_PER_MINUTE", 300, &errs),
			WritePerMinute: integer("RATE_LIMIT_WRITE_PER_MINUTE", 60, &errs),
		},
		Tracing: TracingConfig{
			SampleRatio: float("TRACE_SAMPLE_RATIO", 1, &errs),
			LogSpans:    boolean("TRACE_LOG_SPANS", false, &errs),
		},
	}

	if raw := os.Getenv("BOOTSTRAP_ADMIN"); raw != "" {
		admin, err := domain.RequireIdentity(raw)
		if err != nil {
			errs = append(errs, fmt.Errorf("BOOTSTRAP_ADMIN: %w", err))
		}
		cfg.BootstrapAdmin = admin
	}
	if len(cfg.Ledgers) == 0 {
		cfg.Ledgers = []string{"primary"}
	}
	if cfg.RequiredSigs < 1 {
		errs = append(errs, errors.New("REQUIRED_SIGNATURES must be at least 1"))
	}
	if cfg.RateLimit.ReadPerMinute < 0 || cfg.RateLimit.WritePerMinute < 0 {
		errs = append(errs, errors.New("rate limits cannot be negative"))
	}
	if cfg.Redis.StreamMaxLen < 0 {
		errs = append(errs, errors.New("REDIS_AUDIT_STREAM_MAXLEN cannot be negative"))
	}
	if cfg.Tracing.SampleRatio < 0 || cfg.Tracing.SampleRatio > 1 {
		errs = append(errs, errors.New("TRACE_SAMPLE_RATIO must be between 0 and 1"))
	}
	if cfg.Audit.Buffer < 0 {
		errs = append(errs, errors.New("AUDIT_BUFFER cannot be negative"))
	}
	if !cfg.InMemory() && cfg.JWTSigningKey == devSigningKey {
		errs = append(errs, errors.New("JWT_SIGNING_KEY must be set when DATABASE_URL is configured"))
	}
	return cfg, errors.Join(errs...)
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func integer(key string, fallback int, errs *[]error) int {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", key, err))
		return fallback
	}
	return n
}

func float(key string, fallback float64, errs *[]error) float64 {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", key, err))
		return fallback
	}
	return f
}

func boolean(key string, fallback bool, errs *[]error) bool {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", key, err))
		return fallback
	}
	return b
}

func duration(key string, fallback time.Duration, errs *[]error) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", key, err))
		return fallback
	}
	return d
}

func list(key string) []string {
	return platformstrings.SplitList(os.Getenv(key))
}
