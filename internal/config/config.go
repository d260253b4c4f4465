package config

import (
	"time"

	"github.com/spf13/viper"
)

// DefaultDatabasePath is where the lending database lives when DATABASE_PATH is unset.
const DefaultDatabasePath = "./library.db"

type (
	Config struct {
		HTTP
		Global
		Database
		Lending
		Log
		OverdueSweep
	}

	HTTP struct {
		Port int32
		Host string
	}
	Global struct {
		ShutdownTimeoutInSeconds int
	}
	Database struct {
		Path string
	}
	Lending struct {
		LoanPeriodDays int // Default due date offset when none is given
	}
	Log struct {
		Level  string
		Format string // "text" or "json"
	}
	OverdueSweep struct {
		Enabled  bool
		Schedule string // Cron format: "0 * * * *" = hourly
	}
)

// LoanPeriod returns the default lending duration.
func (c *Config) LoanPeriod() time.Duration {
	return time.Duration(c.Lending.LoanPeriodDays) * 24 * time.Hour
}

func NewConfig() *Config {
	v := viper.New()
	v.AutomaticEnv()
	v.SetDefault("port", 8080)
	v.SetDefault("host", "0.0.0.0")
	v.SetDefault("shutdown_timeout_in_seconds", 5)
	v.SetDefault("database_path", DefaultDatabasePath)
	v.SetDefault("loan_period_days", 14)
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "text")
	v.SetDefault("overdue_sweep_enabled", true)
	v.SetDefault("overdue_sweep_schedule", "0 * * * *") // Hourly at :00

	return &Config{
		HTTP: HTTP{
			Port: v.GetInt32("PORT"),
			Host: v.GetString("HOST"),
		},
		Global: Global{
			ShutdownTimeoutInSeconds: v.GetInt("SHUTDOWN_TIMEOUT_IN_SECONDS"),
		},
		Database: Database{
			Path: v.GetString("DATABASE_PATH"),
		},
		Lending: Lending{
			LoanPeriodDays: v.GetInt("LOAN_PERIOD_DAYS"),
		},
		Log: Log{
			Level:  v.GetString("LOG_LEVEL"),
			Format: v.GetString("LOG_FORMAT"),
		},
		OverdueSweep: OverdueSweep{
			Enabled:  v.GetBool("OVERDUE_SWEEP_ENABLED"),
			Schedule: v.GetString("OVERDUE_SWEEP_SCHEDULE"),
		},
	}
}
