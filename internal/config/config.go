package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/xuminwlt/j360-idgen/internal/allocator"
	"github.com/xuminwlt/j360-idgen/internal/telemetry"
)

// Config holds all configuration for the identifier pool agent.
type Config struct {
	Server    ServerConfig     `mapstructure:"server"`
	Allocator allocator.Config `mapstructure:"allocator"`
	Pool      PoolConfig       `mapstructure:"pool"`
	Telemetry telemetry.Config `mapstructure:"telemetry"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	Debug        bool          `mapstructure:"debug"`
	Version      string        `mapstructure:"version"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
}

// PoolConfig holds the default tunables applied to every tenant pool.
// Each pool can be retuned at runtime through the config endpoint.
type PoolConfig struct {
	AllocCount         int `mapstructure:"alloc_count"`           // Identifiers fetched per refill
	PoolLowerBound     int `mapstructure:"pool_lower_bound"`      // Refill trigger threshold
	LentPoolUpperBound int `mapstructure:"lent_pool_upper_bound"` // Overflow discard threshold
}

// Load reads configuration from file and environment variables.
func Load() (*Config, error) {
	v := viper.New()

	// Set defaults
	setDefaults(v)

	// Configuration file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("/etc/idpool-agent/")
	v.AddConfigPath("$HOME/.idpool-agent/")

	// Environment variables
	v.SetEnvPrefix("IDGEN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Explicitly bind nested environment variables (Viper doesn't auto-bind nested structs well)
	_ = v.BindEnv("allocator.endpoint", "IDGEN_ALLOCATOR_ENDPOINT")
	_ = v.BindEnv("allocator.timeout", "IDGEN_ALLOCATOR_TIMEOUT")
	_ = v.BindEnv("pool.alloc_count", "IDGEN_POOL_ALLOC_COUNT")
	_ = v.BindEnv("pool.pool_lower_bound", "IDGEN_POOL_POOL_LOWER_BOUND")
	_ = v.BindEnv("pool.lent_pool_upper_bound", "IDGEN_POOL_LENT_POOL_UPPER_BOUND")
	_ = v.BindEnv("telemetry.enabled", "IDGEN_TELEMETRY_ENABLED")
	_ = v.BindEnv("telemetry.endpoint", "IDGEN_TELEMETRY_ENDPOINT")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config: %w", err)
		}
		// Config file not found is acceptable, use defaults + env vars
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8089)
	v.SetDefault("server.debug", false)
	v.SetDefault("server.version", "0.1.0")
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)
	v.SetDefault("server.idle_timeout", 120*time.Second)

	// Allocator defaults
	v.SetDefault("allocator.endpoint", "http://localhost:8080")
	v.SetDefault("allocator.timeout", 10*time.Second)

	// Pool defaults
	v.SetDefault("pool.alloc_count", 20)
	v.SetDefault("pool.pool_lower_bound", 10)
	v.SetDefault("pool.lent_pool_upper_bound", 100000)

	// Telemetry defaults (disabled unless configured)
	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.endpoint", "localhost:4318")
	v.SetDefault("telemetry.sample_rate", 1.0)
	v.SetDefault("telemetry.insecure", true)
}
