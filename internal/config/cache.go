package config

import "time"

// CacheConfig defines settings for the Redis account cache that sits in
// front of the credential store on the authentication path.  When Enabled
// is false or no Redis client is configured, caching is disabled.  TTL is
// the lifetime of a cached profile and Prefix namespaces the keys.
type CacheConfig struct {
	Enabled bool
	TTL     time.Duration
	Prefix  string
}

// LoadCacheConfig reads environment variables to build a CacheConfig.
// Defaults are used when variables are not set.
func LoadCacheConfig() CacheConfig {
	cfg := CacheConfig{
		Enabled: envBool("ACCOUNT_CACHE_ENABLED", true),
		TTL:     envDur("ACCOUNT_CACHE_TTL", 30*time.Second),
		Prefix:  getenv("ACCOUNT_CACHE_PREFIX", "acct"),
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 30 * time.Second
	}
	return cfg
}
