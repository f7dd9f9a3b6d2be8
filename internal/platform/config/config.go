// Package config builds service configuration from environment variables so
// main stays lean. Every tunable the gate and clarification flow depend on
// lives here rather than deep in the rule code.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config is the full server configuration.
type Config struct {
	Addr        string
	DatabaseURL string
	Redis       RedisConfig
	Gate        GateConfig
	Clarify     ClarifyConfig
	RateLimit   RateLimitConfig
}

// RedisConfig configures the optional Redis session store. An empty URL means
// sessions are kept in memory.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// GateConfig holds the qualification-gate tunables.
type GateConfig struct {
	// MinContextLength is the minimum trimmed project-context length for the
	// sufficient-context criterion.
	MinContextLength int
	// PersonalEmailDomains overrides the built-in personal/disposable domain
	// denylist when non-empty.
	PersonalEmailDomains []string
}

// ClarifyConfig holds the clarification-session tunables.
type ClarifyConfig struct {
	// MaxTurns bounds how many questions a session may ask.
	MaxTurns int
	// SessionTTL is the inactivity window before a session expires.
	SessionTTL time.Duration
	// GeneratorTimeout bounds each call to the question generator.
	GeneratorTimeout time.Duration
	// SweepInterval controls how often the in-memory store reaps expired
	// sessions. Ignored for the Redis store, which expires keys natively.
	SweepInterval time.Duration
}

// RateLimitConfig bounds intake submissions per submitter.
type RateLimitConfig struct {
	PerEmail int
	PerIP    int
	Window   time.Duration
}

// FromEnv builds a Config from environment variables with development
// defaults.
func FromEnv() Config {
	return Config{
		Addr:        envString("LEADGATE_ADDR", ":8080"),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     envInt("REDIS_POOL_SIZE", 10),
			MinIdleConns: envInt("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  envDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  envDuration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: envDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Gate: GateConfig{
			MinContextLength:     envInt("GATE_MIN_CONTEXT_LENGTH", 100),
			PersonalEmailDomains: envList("GATE_PERSONAL_EMAIL_DOMAINS"),
		},
		Clarify: ClarifyConfig{
			MaxTurns:         envInt("CLARIFY_MAX_TURNS", 3),
			SessionTTL:       envDuration("CLARIFY_SESSION_TTL", 30*time.Minute),
			GeneratorTimeout: envDuration("CLARIFY_GENERATOR_TIMEOUT", 10*time.Second),
			SweepInterval:    envDuration("CLARIFY_SWEEP_INTERVAL", time.Minute),
		},
		RateLimit: RateLimitConfig{
			PerEmail: envInt("RATELIMIT_PER_EMAIL", 3),
			PerIP:    envInt("RATELIMIT_PER_IP", 10),
			Window:   envDuration("RATELIMIT_WINDOW", time.Hour),
		},
	}
}

func envString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func envDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}

// envList parses a comma-separated list; empty entries are dropped.
func envList(key string) []string {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
