package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Lark       LarkConfig       `mapstructure:"lark"`
	Sweep      SweepConfig      `mapstructure:"sweep"`
	Evaluation EvaluationConfig `mapstructure:"evaluation"`
	Dispatcher DispatcherConfig `mapstructure:"dispatcher"`
	Logger     LoggerConfig     `mapstructure:"logger"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	Mode         string        `mapstructure:"mode"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Path            string        `mapstructure:"path"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	BusyTimeout     time.Duration `mapstructure:"busy_timeout"`
}

// LarkConfig holds Lark messaging configuration. When disabled, incident
// notifications go to the log instead.
type LarkConfig struct {
	Enabled       bool   `mapstructure:"enabled"`
	AppID         string `mapstructure:"app_id"`
	AppSecret     string `mapstructure:"app_secret"`
	ReceiveIDType string `mapstructure:"receive_id_type"`
}

// SweepConfig holds deadline sweeper configuration
type SweepConfig struct {
	Interval    time.Duration `mapstructure:"interval"`
	RunOnStart  bool          `mapstructure:"run_on_start"`
	BatchSize   int           `mapstructure:"batch_size"`
	Concurrency int           `mapstructure:"concurrency"`
}

// EvaluationConfig holds the scoring scale and pass mark
type EvaluationConfig struct {
	Scale         float64 `mapstructure:"scale"`
	PassThreshold float64 `mapstructure:"pass_threshold"`
}

// DispatcherConfig holds event dispatcher configuration
type DispatcherConfig struct {
	AsyncTimeout time.Duration `mapstructure:"async_timeout"`
}

// LoggerConfig holds logger configuration
type LoggerConfig struct {
	Level      string `mapstructure:"level"`
	OutputPath string `mapstructure:"output_path"`
	Format     string `mapstructure:"format"`
	Service    string `mapstructure:"service"`
}

// Load loads configuration from file and environment variables.
// An empty configPath loads defaults and environment only.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	v.AutomaticEnv()

	// Set defaults
	setDefaults(v)

	// Read config file
	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Override with environment variables
	if err := bindEnvVars(v); err != nil {
		return nil, fmt.Errorf("failed to bind environment: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)
	v.SetDefault("server.mode", "release")

	// Database defaults
	v.SetDefault("database.path", "data/evaluation.db")
	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", 5*time.Minute)
	v.SetDefault("database.busy_timeout", 5*time.Second)

	// Lark defaults
	v.SetDefault("lark.enabled", false)
	v.SetDefault("lark.receive_id_type", "user_id")

	// Sweep defaults
	v.SetDefault("sweep.interval", time.Minute)
	v.SetDefault("sweep.run_on_start", true)
	v.SetDefault("sweep.batch_size", 200)
	v.SetDefault("sweep.concurrency", 4)

	// Evaluation defaults
	v.SetDefault("evaluation.scale", 20.0)
	v.SetDefault("evaluation.pass_threshold", 11.0)

	v.SetDefault("dispatcher.async_timeout", 30*time.Second)

	// Logger defaults
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.output_path", "stdout")
	v.SetDefault("logger.format", "json")
	v.SetDefault("logger.service", "staff-evaluation")
}

// bindEnvVars binds environment variables to configuration
func bindEnvVars(v *viper.Viper) error {
	bindings := map[string]string{
		"lark.app_id":     "LARK_APP_ID",
		"lark.app_secret": "LARK_APP_SECRET",
		"lark.enabled":    "LARK_ENABLED",
		"database.path":   "DATABASE_PATH",
		"server.port":     "SERVER_PORT",
		"logger.level":    "LOG_LEVEL",
	}
	for key, env := range bindings {
		if err := v.BindEnv(key, env); err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
	}
	return nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port)
	}

	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}

	// Lark credentials are only needed when notifications go out through Lark
	if c.Lark.Enabled {
		if c.Lark.AppID == "" {
			return fmt.Errorf("lark.app_id is required when lark is enabled")
		}
		if c.Lark.AppSecret == "" {
			return fmt.Errorf("lark.app_secret is required when lark is enabled")
		}
	}

	if c.Sweep.Interval <= 0 {
		return fmt.Errorf("sweep.interval must be positive")
	}
	if c.Sweep.BatchSize <= 0 {
		return fmt.Errorf("sweep.batch_size must be positive")
	}
	if c.Sweep.Concurrency <= 0 {
		return fmt.Errorf("sweep.concurrency must be positive")
	}

	if c.Evaluation.Scale <= 0 {
		return fmt.Errorf("evaluation.scale must be positive")
	}
	if c.Evaluation.PassThreshold <= 0 || c.Evaluation.PassThreshold > c.Evaluation.Scale {
		return fmt.Errorf("evaluation.pass_threshold must be in (0, %g], got %g",
			c.Evaluation.Scale, c.Evaluation.PassThreshold)
	}

	return nil
}
