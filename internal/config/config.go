/**
 * @description
 * This file handles the configuration management for the subscribe service.
 * It uses the 'viper' library to load configuration from environment variables,
 * providing a centralized and consistent way to manage application settings.
 */
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	FollowUpModeTimer  = "timer"
	FollowUpModeOutbox = "outbox"
)

// Config holds all configuration for the application.
type Config struct {
	ServerPort     string `mapstructure:"SERVER_PORT"`
	DatabaseURL    string `mapstructure:"DATABASE_URL"`
	MigrateOnStart bool   `mapstructure:"MIGRATE_ON_START"`

	SMTPHost        string        `mapstructure:"SMTP_HOST"`
	SMTPPort        int           `mapstructure:"SMTP_PORT"`
	SMTPUseTLS      bool          `mapstructure:"SMTP_USE_TLS"`
	SMTPUsername    string        `mapstructure:"EMAIL"`
	SMTPPassword    string        `mapstructure:"EMAIL_PASS"`
	SenderName      string        `mapstructure:"SENDER_NAME"`
	MailSendTimeout time.Duration `mapstructure:"MAIL_SEND_TIMEOUT"`

	FollowUpDelay         time.Duration `mapstructure:"FOLLOW_UP_DELAY"`
	FollowUpLink          string        `mapstructure:"FOLLOW_UP_LINK"`
	FollowUpMode          string        `mapstructure:"FOLLOW_UP_MODE"`
	FollowUpSweepSchedule string        `mapstructure:"FOLLOW_UP_SWEEP_SCHEDULE"`
	FollowUpBatchSize     int           `mapstructure:"FOLLOW_UP_BATCH_SIZE"`
	FollowUpStaleAfter    time.Duration `mapstructure:"FOLLOW_UP_STALE_AFTER"`

	RabbitMQURL    string `mapstructure:"RABBITMQ_URL"`
	EventsExchange string `mapstructure:"EVENTS_EXCHANGE"`

	CORSAllowedOrigins []string `mapstructure:"CORS_ALLOWED_ORIGINS"`
}

var envKeys = []string{
	"SERVER_PORT",
	"DATABASE_URL",
	"MIGRATE_ON_START",
	"SMTP_HOST",
	"SMTP_PORT",
	"SMTP_USE_TLS",
	"EMAIL",
	"EMAIL_PASS",
	"SENDER_NAME",
	"MAIL_SEND_TIMEOUT",
	"FOLLOW_UP_DELAY",
	"FOLLOW_UP_LINK",
	"FOLLOW_UP_MODE",
	"FOLLOW_UP_SWEEP_SCHEDULE",
	"FOLLOW_UP_BATCH_SIZE",
	"FOLLOW_UP_STALE_AFTER",
	"RABBITMQ_URL",
	"EVENTS_EXCHANGE",
	"CORS_ALLOWED_ORIGINS",
}

// LoadConfig reads configuration from environment variables.
func LoadConfig() (config Config, err error) {
	viper.SetDefault("SERVER_PORT", "3000")
	viper.SetDefault("MIGRATE_ON_START", true)
	viper.SetDefault("SMTP_HOST", "smtp.gmail.com")
	viper.SetDefault("SMTP_PORT", 587)
	viper.SetDefault("SMTP_USE_TLS", false)
	viper.SetDefault("SENDER_NAME", "Your Store")
	viper.SetDefault("MAIL_SEND_TIMEOUT", "15s")
	viper.SetDefault("FOLLOW_UP_DELAY", "60s")
	viper.SetDefault("FOLLOW_UP_LINK", "https:google.com")
	viper.SetDefault("FOLLOW_UP_MODE", FollowUpModeTimer)
	viper.SetDefault("FOLLOW_UP_SWEEP_SCHEDULE", "@every 5s")
	viper.SetDefault("FOLLOW_UP_BATCH_SIZE", 50)
	viper.SetDefault("FOLLOW_UP_STALE_AFTER", "2m")
	viper.SetDefault("EVENTS_EXCHANGE", "subscriber_events")
	viper.SetDefault("CORS_ALLOWED_ORIGINS", "*")
	viper.AutomaticEnv()

	// Bind environment variables explicitly to ensure they appear in Unmarshal
	for _, key := range envKeys {
		_ = viper.BindEnv(key)
	}

	if err = viper.Unmarshal(&config); err != nil {
		return config, err
	}

	// PORT is what most hosting platforms inject; it wins over SERVER_PORT.
	if port := os.Getenv("PORT"); port != "" {
		config.ServerPort = port
	}
	config.CORSAllowedOrigins = splitOrigins(config.CORSAllowedOrigins)

	err = config.Validate()
	return
}

// Validate reports the first missing or invalid setting.
func (c Config) Validate() error {
	switch {
	case strings.TrimSpace(c.DatabaseURL) == "":
		return errors.New("DATABASE_URL is required")
	case strings.TrimSpace(c.SMTPUsername) == "":
		return errors.New("EMAIL is required")
	case c.SMTPPassword == "":
		return errors.New("EMAIL_PASS is required")
	case c.SMTPPort <= 0:
		return fmt.Errorf("SMTP_PORT must be positive, got %d", c.SMTPPort)
	case c.FollowUpDelay <= 0:
		return fmt.Errorf("FOLLOW_UP_DELAY must be positive, got %s", c.FollowUpDelay)
	case c.MailSendTimeout <= 0:
		return fmt.Errorf("MAIL_SEND_TIMEOUT must be positive, got %s", c.MailSendTimeout)
	}

	switch c.FollowUpMode {
	case FollowUpModeTimer:
	case FollowUpModeOutbox:
		if c.FollowUpBatchSize <= 0 {
			return fmt.Errorf("FOLLOW_UP_BATCH_SIZE must be positive, got %d", c.FollowUpBatchSize)
		}
		if strings.TrimSpace(c.FollowUpSweepSchedule) == "" {
			return errors.New("FOLLOW_UP_SWEEP_SCHEDULE is required in outbox mode")
		}
		// A claimed row is reclaimed once it has been processing for this long,
		// so it must outlast a single send.
		if c.FollowUpStaleAfter <= c.MailSendTimeout {
			return fmt.Errorf("FOLLOW_UP_STALE_AFTER (%s) must exceed MAIL_SEND_TIMEOUT (%s) in outbox mode", c.FollowUpStaleAfter, c.MailSendTimeout)
		}
	default:
		return fmt.Errorf("FOLLOW_UP_MODE must be %q or %q, got %q", FollowUpModeTimer, FollowUpModeOutbox, c.FollowUpMode)
	}
	return nil
}

// splitOrigins flattens comma separated entries; viper hands env values over as a single element.
func splitOrigins(raw []string) []string {
	origins := make([]string, 0, len(raw))
	for _, entry := range raw {
		for _, origin := range strings.Split(entry, ",") {
			if origin = strings.TrimSpace(origin); origin != "" {
				origins = append(origins, origin)
			}
		}
	}
	if len(origins) == 0 {
		return []string{"*"}
	}
	return origins
}
