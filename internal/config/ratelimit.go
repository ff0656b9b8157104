package config

import "time"

// RateLimitConfig configures the fixed-window limiter that guards the login
// and public submission endpoints. Backend selects the counter store:
// "memory" keeps counters in process, "redis" shares them between instances.
type RateLimitConfig struct {
	Enabled       bool          `env:"ENABLED" envDefault:"true"`
	Backend       string        `env:"BACKEND" envDefault:"memory"`
	Prefix        string        `env:"PREFIX" envDefault:"rl"`
	SweepInterval time.Duration `env:"SWEEP_INTERVAL" envDefault:"5m"`
	LoginMax      int           `env:"LOGIN_MAX" envDefault:"5"`
	LoginWindow   time.Duration `env:"LOGIN_WINDOW" envDefault:"15m"`
	SubmitMax     int           `env:"SUBMIT_MAX" envDefault:"10"`
	SubmitWindow  time.Duration `env:"SUBMIT_WINDOW" envDefault:"60m"`
	Debug         bool          `env:"DEBUG" envDefault:"false"`
}

// UsesRedis reports whether counters should live in Redis.
func (c RateLimitConfig) UsesRedis() bool { return c.Backend == "redis" }
