package config

import "time"

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server ServerConfig `mapstructure:"server" validate:"required"`
	Pool   PoolConfig   `mapstructure:"pool" validate:"required"`
	Auth   AuthConfig   `mapstructure:"auth" validate:"required"`
}

// ServerConfig contains all server-related configuration settings.
type ServerConfig struct {
	Port     int    `mapstructure:"port" validate:"required,gt=0,lt=65536"`
	LogLevel string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
	// ShutdownTimeout bounds how long in-flight HTTP requests may take to finish
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"gt=0"`
}

// PoolConfig contains the worker pool settings.
type PoolConfig struct {
	// Capacity is the fixed number of workers
	Capacity int `mapstructure:"capacity" validate:"required,gt=0"`
	// TaskTimeout is the per-task deadline; zero disables it
	TaskTimeout time.Duration `mapstructure:"task_timeout" validate:"gte=0"`
	// ShutdownTimeout bounds the graceful drain before pending tasks are failed
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"gt=0"`
}

// AuthConfig contains password hashing settings.
type AuthConfig struct {
	BcryptCost int `mapstructure:"bcrypt_cost" validate:"required,min=4,max=31"`
}
