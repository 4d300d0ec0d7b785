package roomsync

import "time"

const (
	DefaultActiveDelay = 1200 * time.Millisecond
	DefaultIdleDelay   = 2 * time.Second
)

// Config controls poll cadence. ActiveDelay follows a poll that brought news, IdleDelay
// follows a quiet poll or a failure.
type Config struct {
	ActiveDelay    time.Duration `yaml:"active_delay"`
	IdleDelay      time.Duration `yaml:"idle_delay"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
}

func DefaultConfig() Config {
	return Config{
		ActiveDelay:    DefaultActiveDelay,
		IdleDelay:      DefaultIdleDelay,
		RequestTimeout: 10 * time.Second,
	}
}

func (c Config) withDefaults() Config {
	if c.ActiveDelay <= 0 {
		c.ActiveDelay = DefaultActiveDelay
	}
	if c.IdleDelay <= 0 {
		c.IdleDelay = DefaultIdleDelay
	}
	return c
}
