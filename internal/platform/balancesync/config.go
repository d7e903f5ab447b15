package balancesync

import "time"

// Config holds configuration for the balance sync job
type Config struct {
	// Interval is how often every buyer's balance is refreshed
	Interval time.Duration

	// Timeout bounds one buyer's summary fetch
	Timeout time.Duration

	// Enabled determines if the background job runs
	Enabled bool
}

// DefaultConfig returns the default balance sync configuration
func DefaultConfig() *Config {
	return &Config{
		Interval: 30 * time.Minute,
		Timeout:  30 * time.Second,
		Enabled:  true,
	}
}

// Validate fills in defaults for unset values
func (c *Config) Validate() error {
	if c.Interval <= 0 {
		c.Interval = 30 * time.Minute
	}
	if c.Timeout <= 0 {
		c.Timeout = 30 * time.Second
	}
	return nil
}
