package config

import "time"

// RateLimitConfig configures the Redis token bucket.  Capacity tokens
// are available up front and RefillTokens are added every
// RefillInterval.  KeyStrategy picks the request attributes that share a
// bucket: any combination of "ip", "user" and "route" joined by "_".
type RateLimitConfig struct {
	Enabled        bool
	Capacity       int
	RefillTokens   int
	RefillInterval time.Duration
	TTL            time.Duration
	KeyStrategy    string
	Prefix         string
	Debug          bool
}

// LoadRateLimitConfig reads RATE_LIMIT_* variables.  prefix lets the
// reservation and login limiters use separate variable sets
// (RESERVE_RATE_LIMIT_*, LOGIN_RATE_LIMIT_*) that fall back to the
// shared RATE_LIMIT_* values.
func LoadRateLimitConfig(prefix string) RateLimitConfig {
	get := func(k string) string { return prefix + k }
	base := RateLimitConfig{
		Enabled:        envBool("RATE_LIMIT_ENABLED", true),
		Capacity:       envInt("RATE_LIMIT_CAPACITY", 20),
		RefillTokens:   envInt("RATE_LIMIT_REFILL_TOKENS", 1),
		RefillInterval: envDur("RATE_LIMIT_REFILL_INTERVAL", 3*time.Second),
		TTL:            envDur("RATE_LIMIT_TTL", 10*time.Minute),
		KeyStrategy:    envStr("RATE_LIMIT_KEY_STRATEGY", "ip_route"),
		Prefix:         envStr("RATE_LIMIT_PREFIX", "rl"),
		Debug:          envBool("RATE_LIMIT_DEBUG", false),
	}
	def := base
	if prefix != "" {
		def.Enabled = envBool(get("RATE_LIMIT_ENABLED"), base.Enabled)
		def.Capacity = envInt(get("RATE_LIMIT_CAPACITY"), base.Capacity)
		def.RefillTokens = envInt(get("RATE_LIMIT_REFILL_TOKENS"), base.RefillTokens)
		def.RefillInterval = envDur(get("RATE_LIMIT_REFILL_INTERVAL"), base.RefillInterval)
		def.KeyStrategy = envStr(get("RATE_LIMIT_KEY_STRATEGY"), base.KeyStrategy)
	}
	if def.Capacity < 1 {
		def.Capacity = 1
	}
	if def.RefillTokens < 1 {
		def.RefillTokens = 1
	}
	if def.RefillInterval <= 0 {
		def.RefillInterval = time.Second
	}
	if minTTL := 5 * def.RefillInterval; def.TTL < minTTL {
		def.TTL = minTTL
	}
	return def
}
