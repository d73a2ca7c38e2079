package refresher

import "time"

// Config controls the background reward refresh loop.
type Config struct {
	// Interval between refreshes; zero disables the loop.
	Interval time.Duration
	// Timeout bounds a single refresh.
	Timeout time.Duration
}

func DefaultConfig() Config {
	return Config{
		Interval: 5 * time.Minute,
		Timeout:  30 * time.Second,
	}
}

func (c Config) withDefaults() Config {
	if c.Timeout <= 0 {
		c.Timeout = DefaultConfig().Timeout
	}
	return c
}
