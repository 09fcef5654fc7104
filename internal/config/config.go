package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all configuration for the wavecap server.
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Capture   CaptureConfig
	Scheduler SchedulerConfig
}

type ServerConfig struct {
	Port int
	Env  string
}

type DatabaseConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type RedisConfig struct {
	URL string
}

// CaptureConfig points at the capture agent that owns the actual stream
// recording processes.
type CaptureConfig struct {
	AgentURL string
	Timeout  time.Duration
}

type SchedulerConfig struct {
	// Timezone is the IANA zone schedules' wall-clock windows are
	// evaluated in.
	Timezone string
	// TickInterval is the due-schedule check cadence; PollInterval the
	// ongoing-job status poll cadence. Independent knobs.
	TickInterval time.Duration
	PollInterval time.Duration
	// LostContactGrace is how long a non-terminal job may go without a
	// status report before it is forced to failed.
	LostContactGrace time.Duration
	PostProcessing   bool
	BatchWorkers     int
}

// Load reads configuration from environment variables and returns a validated Config.
// Returns an error with a descriptive message if any required value is missing or invalid.
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port: envInt("WAVECAP_PORT", 8080),
			Env:  envString("WAVECAP_ENV", "development"),
		},
		Database: DatabaseConfig{
			URL:             os.Getenv("DATABASE_URL"),
			MaxOpenConns:    envInt("DATABASE_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    envInt("DATABASE_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: envDuration("DATABASE_CONN_MAX_LIFETIME", 5*time.Minute),
		},
		Redis: RedisConfig{
			URL: os.Getenv("REDIS_URL"),
		},
		Capture: CaptureConfig{
			AgentURL: os.Getenv("CAPTURE_AGENT_URL"),
			Timeout:  envDuration("CAPTURE_AGENT_TIMEOUT", 15*time.Second),
		},
		Scheduler: SchedulerConfig{
			Timezone:         envString("WAVECAP_TIMEZONE", "UTC"),
			TickInterval:     envDuration("WAVECAP_TICK_INTERVAL", 60*time.Second),
			PollInterval:     envDuration("WAVECAP_POLL_INTERVAL", 5*time.Second),
			LostContactGrace: envDuration("WAVECAP_LOST_CONTACT_GRACE", 90*time.Second),
			PostProcessing:   envBool("WAVECAP_POST_PROCESSING", false),
			BatchWorkers:     envInt("WAVECAP_BATCH_WORKERS", 4),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	if c.Redis.URL == "" {
		return fmt.Errorf("REDIS_URL is required")
	}

	if c.Capture.AgentURL == "" {
		return fmt.Errorf("CAPTURE_AGENT_URL is required")
	}

	if _, err := time.LoadLocation(c.Scheduler.Timezone); err != nil {
		return fmt.Errorf("WAVECAP_TIMEZONE must be a valid IANA zone, got %q", c.Scheduler.Timezone)
	}

	if c.Scheduler.TickInterval <= 0 || c.Scheduler.PollInterval <= 0 {
		return fmt.Errorf("scheduler intervals must be positive")
	}
	if c.Scheduler.LostContactGrace <= 0 {
		return fmt.Errorf("WAVECAP_LOST_CONTACT_GRACE must be positive")
	}
	if c.Scheduler.BatchWorkers <= 0 {
		return fmt.Errorf("WAVECAP_BATCH_WORKERS must be positive")
	}

	return nil
}

// Location resolves the configured timezone. Call after Load has validated it.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Scheduler.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func envString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func envBool(key string, defaultVal bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return defaultVal
	}
	return b
}

func envDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}
