package monitoring

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Config holds configuration for the monitoring service.
type Config struct {
	// File receives the metrics in Prometheus text format after every task run.
	// Empty disables monitoring.
	File string `json:"file" yaml:"file" mapstructure:"file"`
}

// DefaultConfig returns default monitoring configuration
func DefaultConfig() *Config {
	return &Config{}
}

// Enabled reports whether a metrics file is configured.
func (c *Config) Enabled() bool {
	return c.File != ""
}

// Validate validates the monitoring configuration
func (c *Config) Validate() error {
	if !c.Enabled() {
		return nil
	}
	if strings.HasSuffix(c.File, "/") || strings.HasSuffix(c.File, string(filepath.Separator)) {
		return fmt.Errorf("metrics file must be a file, got directory %s", c.File)
	}
	// node-exporter's textfile collector only reads *.prom files
	if filepath.Ext(c.File) != ".prom" {
		return fmt.Errorf("metrics file must have a .prom extension: got %s", c.File)
	}
	return nil
}
