package config

import "time"

// CacheConfig defines settings for the response cache middleware used by
// the dashboard counters. When Enabled is false or no Redis client is
// available the middleware passes requests through untouched.
type CacheConfig struct {
	Enabled      bool          `env:"ENABLED" envDefault:"true"`
	Methods      []string      `env:"METHODS" envDefault:"GET" envSeparator:","`
	TTL          time.Duration `env:"TTL" envDefault:"30s"`
	Prefix       string        `env:"PREFIX" envDefault:"cache"`
	MaxBodyBytes int           `env:"MAX_BODY_BYTES" envDefault:"1048576"`
}
