package middleware

import (
	"time"

	"github.com/userhub-io/userhub/internal/config"
)

// Config holds rate limiter configuration.
//
// Limits are requests per second for two tiers: a global bucket shared by every
// request and one bucket per client address. A zero burst is computed as 2 × rate.
type Config struct {
	GlobalRPS int // Default: 100
	ClientRPS int // Default: 20

	GlobalBurst int
	ClientBurst int

	CleanupInterval time.Duration // Default: 5 minutes
	IdleTimeout     time.Duration // Default: 1 hour
	MaxClients      int           // Default: 10,000

	// TrustProxy makes the first X-Forwarded-For hop the client address.
	TrustProxy bool
}

// LoadConfig loads rate limiter config from USERHUB_* environment variables.
func LoadConfig() *Config {
	return &Config{
		GlobalRPS: config.GetEnvInt(defaultGlobalRPS, "USERHUB_RATE_LIMIT_GLOBAL_RPS"),
		ClientRPS: config.GetEnvInt(defaultClientRPS, "USERHUB_RATE_LIMIT_CLIENT_RPS"),

		GlobalBurst: config.GetEnvInt(0, "USERHUB_RATE_LIMIT_GLOBAL_BURST"),
		ClientBurst: config.GetEnvInt(0, "USERHUB_RATE_LIMIT_CLIENT_BURST"),

		CleanupInterval: config.GetEnvDuration(rateLimiterCleanupInterval, "USERHUB_RATE_LIMIT_CLEANUP_INTERVAL"),
		IdleTimeout:     config.GetEnvDuration(rateLimiterIdleTimeout, "USERHUB_RATE_LIMIT_IDLE_TIMEOUT"),
		MaxClients:      config.GetEnvInt(defaultMaxClients, "USERHUB_RATE_LIMIT_MAX_CLIENTS"),

		TrustProxy: config.GetEnvBool(false, "USERHUB_TRUST_PROXY"),
	}
}
