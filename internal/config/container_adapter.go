package config

import (
	"github.com/garyjia/staff-evaluation/internal/container"
)

// ToContainerConfig converts the application Config to a container.Config.
// This provides a bridge between the file-based config loaded by viper
// and the container's configuration structure.
func (c *Config) ToContainerConfig() *container.Config {
	return &container.Config{
		Database: container.DatabaseConfig{
			Path:            c.Database.Path,
			MaxOpenConns:    c.Database.MaxOpenConns,
			MaxIdleConns:    c.Database.MaxIdleConns,
			ConnMaxLifetime: c.Database.ConnMaxLifetime,
			BusyTimeout:     c.Database.BusyTimeout,
		},
		Lark: container.LarkConfig{
			Enabled:       c.Lark.Enabled,
			AppID:         c.Lark.AppID,
			AppSecret:     c.Lark.AppSecret,
			ReceiveIDType: c.Lark.ReceiveIDType,
		},
		Server: container.ServerConfig{
			Host:         c.Server.Host,
			Port:         c.Server.Port,
			ReadTimeout:  c.Server.ReadTimeout,
			WriteTimeout: c.Server.WriteTimeout,
			Mode:         c.Server.Mode,
		},
		Sweep: container.SweepConfig{
			Interval:    c.Sweep.Interval,
			RunOnStart:  c.Sweep.RunOnStart,
			BatchSize:   c.Sweep.BatchSize,
			Concurrency: c.Sweep.Concurrency,
		},
		Evaluation: container.EvaluationConfig{
			Scale:         c.Evaluation.Scale,
			PassThreshold: c.Evaluation.PassThreshold,
		},
		Dispatcher: container.DispatcherConfig{
			AsyncTimeout: c.Dispatcher.AsyncTimeout,
		},
	}
}
