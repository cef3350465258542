package config

import (
	"context"
	"time"
)

const (
	DefaultConfigFile = "assetflow.yaml"
	EnvPrefix         = "ASSETFLOW_"
)

// Config holds the runtime settings of an assetflow invocation.
// The task table and its transformer settings are compiled in and cannot be
// changed here.
type Config struct {
	Root    string        `json:"root" koanf:"root" env:"ASSETFLOW_ROOT"`
	Build   BuildConfig   `json:"build" koanf:"build"`
	Watch   WatchConfig   `json:"watch" koanf:"watch"`
	Metrics MetricsConfig `json:"metrics" koanf:"metrics"`
	Log     LogConfig     `json:"log" koanf:"log"`
}

// BuildConfig controls how tasks process their files.
type BuildConfig struct {
	// FailOnError stops an aggregate after the first task with failed files.
	FailOnError bool `json:"fail_on_error" koanf:"fail_on_error" env:"ASSETFLOW_BUILD_FAIL_ON_ERROR"`
	// Workers bounds per-file parallelism inside a single task.
	Workers int `json:"workers" koanf:"workers" env:"ASSETFLOW_BUILD_WORKERS" validate:"min=1,max=256"`
}

// WatchConfig controls the change watcher.
type WatchConfig struct {
	Debounce       time.Duration `json:"debounce" koanf:"debounce" env:"ASSETFLOW_WATCH_DEBOUNCE" validate:"min=0"`
	IncludeSources bool          `json:"include_sources" koanf:"include_sources" env:"ASSETFLOW_WATCH_INCLUDE_SOURCES"`
}

// MetricsConfig controls the Prometheus textfile dump.
type MetricsConfig struct {
	File string `json:"file" koanf:"file" env:"ASSETFLOW_METRICS_FILE"`
}

// LogConfig contains logger settings.
type LogConfig struct {
	Level string `json:"level" koanf:"level" env:"ASSETFLOW_LOG_LEVEL" validate:"oneof=debug info warn error disabled"`
	JSON  bool   `json:"json" koanf:"json" env:"ASSETFLOW_LOG_JSON"`
}

// Service loads and validates configuration.
type Service interface {
	// Load loads configuration from the specified sources with precedence order.
	Load(ctx context.Context, sources ...Source) (*Config, error)
	// Validate checks if the configuration meets all validation requirements.
	Validate(config *Config) error
	// GetSource returns the source type for a specific configuration key.
	GetSource(key string) SourceType
}

// Source defines the interface for configuration sources.
type Source interface {
	// Load reads configuration from the source.
	Load() (map[string]any, error)
	// Type returns the source type identifier.
	Type() SourceType
}

// SourceType identifies the type of configuration source.
type SourceType string

const (
	SourceCLI     SourceType = "cli"
	SourceYAML    SourceType = "yaml"
	SourceEnv     SourceType = "env"
	SourceDefault SourceType = "default"
)

// Metadata contains metadata about configuration sources.
type Metadata struct {
	Sources  map[string]SourceType `json:"sources"`
	LoadedAt time.Time             `json:"loaded_at"`
}

// Default returns a Config with default values.
func Default() *Config {
	return &Config{
		Root: ".",
		Build: BuildConfig{
			FailOnError: true,
			Workers:     4,
		},
		Watch: WatchConfig{
			Debounce:       200 * time.Millisecond,
			IncludeSources: false,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}
