package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

func envBool(key string, def bool) bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	if v == "" {
		return def
	}
	return v == "1" || v == "true" || v == "yes" || v == "y"
}

// OutboxPublishingEnabled starts the outbox dispatcher in the API process.
//
// Set via env:
// - OUTBOX_PUBLISHING_ENABLED=true (default true)
func OutboxPublishingEnabled() bool {
	return envBool("OUTBOX_PUBLISHING_ENABLED", true)
}

// PubSubPublishingEnabled publishes outbox events to Google Pub/Sub when a topic
// is configured. Otherwise
// the dispatcher logs the events and marks them sent.
//
// Set via env:
// - PUBSUB_TOPIC=ledger-events
func PubSubPublishingEnabled() bool {
	return strings.TrimSpace(os.Getenv("PUBSUB_TOPIC")) != ""
}

// DashboardCacheEnabled caches the dashboard report in Redis.
//
// Set via env:
// - DASHBOARD_CACHE_ENABLED=true (default true)
func DashboardCacheEnabled() bool {
	return envBool("DASHBOARD_CACHE_ENABLED", true)
}

// SkipMigrations disables AutoMigrate on startup.
func SkipMigrations() bool {
	return envBool("SKIP_MIGRATIONS", false)
}

// RateLimitEnabled turns on the Redis backed per-IP limiter.
func RateLimitEnabled() bool {
	return envBool("RATE_LIMIT_ENABLED", false)
}

// DashboardCacheTTLSeconds reads DASHBOARD_CACHE_TTL_SECONDS (default 60).
func DashboardCacheTTLSeconds() int {
	return intFromEnv("DASHBOARD_CACHE_TTL_SECONDS", 60)
}

// OpeningOwnerEquity is the owner equity used when the capital structure row
// is created for the first time. Empty means zero.
func OpeningOwnerEquity() string {
	return strings.TrimSpace(os.Getenv("OPENING_OWNER_EQUITY"))
}

// RateLimitPerMinute reads RATE_LIMIT_PER_MINUTE (default 120).
func RateLimitPerMinute() int64 {
	v := strings.TrimSpace(os.Getenv("RATE_LIMIT_PER_MINUTE"))
	if v == "" {
		return 120
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil || n <= 0 {
		return 120
	}
	return n
}

// OutboxRetrySettings controls how the dispatcher retries failed publishes.
type OutboxRetrySettings struct {
	MaxAttempts int
	BaseBackoff time.Duration
	MaxBackoff  time.Duration
}

// GetOutboxRetrySettings reads OUTBOX_MAX_ATTEMPTS (default 20),
// OUTBOX_BASE_BACKOFF_SECONDS (default 5) and OUTBOX_MAX_BACKOFF_SECONDS
// (default 600).
func GetOutboxRetrySettings() OutboxRetrySettings {
	return OutboxRetrySettings{
		MaxAttempts: intFromEnv("OUTBOX_MAX_ATTEMPTS", 20),
		BaseBackoff: time.Duration(intFromEnv("OUTBOX_BASE_BACKOFF_SECONDS", 5)) * time.Second,
		MaxBackoff:  time.Duration(intFromEnv("OUTBOX_MAX_BACKOFF_SECONDS", 600)) * time.Second,
	}
}
