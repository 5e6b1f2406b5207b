package config

import (
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// CacheConfig defines settings for the redis response cache placed in front of
// immutable asset downloads.  When Enabled is false or no Redis client is
// configured, caching is disabled.  MaxBodyBytes bounds the size of a single
// cached response; larger bodies are served but never stored.
type CacheConfig struct {
	Enabled      bool          `envconfig:"CACHE_ENABLED" default:"true"`
	MethodList   string        `envconfig:"CACHE_METHODS" default:"GET,HEAD"`
	TTL          time.Duration `envconfig:"CACHE_TTL" default:"24h"`
	KeyStrategy  string        `envconfig:"CACHE_KEY_STRATEGY" default:"path"`
	Prefix       string        `envconfig:"CACHE_PREFIX" default:"aupoz:cache"`
	MaxBodyBytes int           `envconfig:"CACHE_MAX_BODY_BYTES" default:"4194304"`

	Methods map[string]bool `ignored:"true"`
}

// LoadCacheConfig reads the CACHE_* variables.  Invalid values fall back to
// the defaults above rather than aborting startup.
func LoadCacheConfig() CacheConfig {
	var cfg CacheConfig
	if err := envconfig.Process("", &cfg); err != nil {
		cfg = CacheConfig{
			Enabled:      true,
			MethodList:   "GET,HEAD",
			TTL:          24 * time.Hour,
			KeyStrategy:  "path",
			Prefix:       "aupoz:cache",
			MaxBodyBytes: 4 << 20,
		}
	}
	cfg.Methods = parseMethods(cfg.MethodList)
	return cfg
}

func parseMethods(s string) map[string]bool {
	m := map[string]bool{}
	for _, p := range strings.Split(s, ",") {
		p = strings.TrimSpace(strings.ToUpper(p))
		if p != "" {
			m[p] = true
		}
	}
	return m
}
