// Package container provides dependency injection and lifecycle management
// for the staff evaluation engine following Clean Architecture principles.
package container

import (
	"fmt"
	"time"
)

// Config holds all configuration for the Container.
// It aggregates configurations for all subsystems.
type Config struct {
	// Database configuration
	Database DatabaseConfig

	// Lark messaging configuration
	Lark LarkConfig

	// Server configuration
	Server ServerConfig

	// Deadline sweep configuration
	Sweep SweepConfig

	// Scoring configuration
	Evaluation EvaluationConfig

	// Event dispatcher configuration
	Dispatcher DispatcherConfig
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	// Path to SQLite database file
	Path string

	// MaxOpenConns is the maximum number of open connections
	MaxOpenConns int

	// MaxIdleConns is the maximum number of idle connections
	MaxIdleConns int

	// ConnMaxLifetime is the maximum connection lifetime
	ConnMaxLifetime time.Duration

	// BusyTimeout is how long a writer waits for the database lock
	BusyTimeout time.Duration
}

// LarkConfig holds Lark API settings.
type LarkConfig struct {
	// Enabled routes incident notifications through Lark
	Enabled bool

	// AppID is the Lark application ID
	AppID string

	// AppSecret is the Lark application secret
	AppSecret string

	// ReceiveIDType is how person ids map to Lark receivers
	ReceiveIDType string
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host to bind to
	Host string

	// Port to listen on
	Port int

	// ReadTimeout for HTTP server
	ReadTimeout time.Duration

	// WriteTimeout for HTTP server
	WriteTimeout time.Duration

	// Mode is the gin mode: debug, release or test
	Mode string
}

// SweepConfig holds deadline sweeper settings.
type SweepConfig struct {
	Interval    time.Duration
	RunOnStart  bool
	BatchSize   int
	Concurrency int
}

// EvaluationConfig holds the scoring policy.
type EvaluationConfig struct {
	Scale         float64
	PassThreshold float64
}

// DispatcherConfig holds event dispatcher settings.
type DispatcherConfig struct {
	// AsyncTimeout bounds each asynchronous handler run
	AsyncTimeout time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Path:            "data/evaluation.db",
			MaxOpenConns:    10,
			MaxIdleConns:    5,
			ConnMaxLifetime: 5 * time.Minute,
			BusyTimeout:     5 * time.Second,
		},
		Lark: LarkConfig{
			ReceiveIDType: "user_id",
		},
		Server: ServerConfig{
			Host:         "0.0.0.0",
			Port:         8080,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
			Mode:         "release",
		},
		Sweep: SweepConfig{
			Interval:    time.Minute,
			RunOnStart:  true,
			BatchSize:   200,
			Concurrency: 4,
		},
		Evaluation: EvaluationConfig{
			Scale:         20,
			PassThreshold: 11,
		},
		Dispatcher: DispatcherConfig{
			AsyncTimeout: 30 * time.Second,
		},
	}
}

// Validate checks that required configuration values are present.
func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}

	// Validate Lark configuration
	if c.Lark.Enabled && (c.Lark.AppID == "" || c.Lark.AppSecret == "") {
		return fmt.Errorf("lark.app_id and lark.app_secret are required when lark is enabled")
	}

	if c.Sweep.Interval <= 0 {
		return fmt.Errorf("sweep.interval must be positive")
	}

	if c.Evaluation.Scale <= 0 || c.Evaluation.PassThreshold <= 0 || c.Evaluation.PassThreshold > c.Evaluation.Scale {
		return fmt.Errorf("evaluation.pass_threshold must be in (0, scale]")
	}

	return nil
}
