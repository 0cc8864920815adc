package listcases

import (
	"fmt"
	"time"

	"docverify/internal/common/config"
)

type Config struct {
	Enabled        bool          `mapstructure:"enabled"`
	MaxJobsActive  int           `mapstructure:"max_jobs_active"`
	Timeout        time.Duration `mapstructure:"timeout"`
	DefaultPerPage int           `mapstructure:"default_per_page"`
}

func DefaultConfig() *Config {
	return &Config{
		Enabled:        true,
		MaxJobsActive:  20,
		Timeout:        10 * time.Second,
		DefaultPerPage: 10,
	}
}

func NewConfig(app *config.Config) *Config {
	c := DefaultConfig()
	if app == nil {
		return c
	}
	wc := config.GetWorkerConfig(app, TaskType)
	c.Enabled = wc.Enabled
	if wc.MaxJobsActive > 0 {
		c.MaxJobsActive = wc.MaxJobsActive
	}
	if wc.Timeout > 0 {
		c.Timeout = config.GetDuration(wc.Timeout)
	}
	return c
}

func (c *Config) Validate() error {
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if c.MaxJobsActive <= 0 {
		return fmt.Errorf("max_jobs_active must be positive")
	}
	if c.DefaultPerPage <= 0 {
		return fmt.Errorf("default_per_page must be positive")
	}
	return nil
}
