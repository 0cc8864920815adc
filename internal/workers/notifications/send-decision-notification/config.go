package senddecisionnotification

import (
	"fmt"
	"time"

	"docverify/internal/common/config"
)

type Config struct {
	Enabled       bool          `mapstructure:"enabled"`
	MaxJobsActive int           `mapstructure:"max_jobs_active"`
	Timeout       time.Duration `mapstructure:"timeout"`
	EmailEnabled  bool          `mapstructure:"email_enabled"`
	FromEmail     string        `mapstructure:"from_email"`
	SMSEnabled    bool          `mapstructure:"sms_enabled"`
	SenderID      string        `mapstructure:"sender_id"`
}

func DefaultConfig() *Config {
	return &Config{
		Enabled:       true,
		MaxJobsActive: 10,
		Timeout:       20 * time.Second,
		FromEmail:     "noreply@civil-registry.gov",
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
	c.EmailEnabled = app.Notifications.Email.Enabled
	if app.Notifications.Email.FromEmail != "" {
		c.FromEmail = app.Notifications.Email.FromEmail
	}
	c.SMSEnabled = app.Notifications.SMS.Enabled
	c.SenderID = app.Notifications.SMS.SenderID
	return c
}

func (c *Config) Validate() error {
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if c.MaxJobsActive <= 0 {
		return fmt.Errorf("max_jobs_active must be positive")
	}
	if c.EmailEnabled && c.FromEmail == "" {
		return fmt.Errorf("from_email is required when email is enabled")
	}
	return nil
}
