package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"text/tabwriter"

	"github.com/compozy/assetflow/pkg/config"
	"github.com/compozy/assetflow/pkg/logger"
	"github.com/spf13/cobra"
)

type serviceCtxKey struct{}

// setupGlobalConfig loads configuration, builds the logger and stores both in
// the command context.
func setupGlobalConfig(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	flags := make(map[string]any)
	extractCLIFlags(cmd, flags)
	path, err := configPath(cmd)
	if err != nil {
		return err
	}
	service := config.NewService()
	cfg, err := service.Load(ctx, config.NewYAMLProvider(path), config.NewCLIProvider(flags))
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	_, _, logSource, err := logger.GetLoggerConfig(cmd)
	if err != nil {
		return err
	}
	level := logger.LogLevel(cfg.Log.Level)
	if debug, _ := cmd.Flags().GetBool("debug"); debug {
		level = logger.DebugLevel
	}
	log := logger.SetupLogger(level, cfg.Log.JSON, logSource)
	log.Debug("Configuration loaded", "file", path, "root", cfg.Root)

	ctx = logger.ContextWithLogger(ctx, log)
	ctx = config.ContextWithConfig(ctx, cfg)
	ctx = context.WithValue(ctx, serviceCtxKey{}, service)
	cmd.SetContext(ctx)
	return nil
}

// configPath returns --config when set, else the default file below --cwd.
func configPath(cmd *cobra.Command) (string, error) {
	path, err := cmd.Flags().GetString("config")
	if err != nil {
		return "", fmt.Errorf("failed to get config flag: %w", err)
	}
	if path != "" {
		return path, nil
	}
	cwd, err := cmd.Flags().GetString("cwd")
	if err != nil {
		return "", fmt.Errorf("failed to get cwd flag: %w", err)
	}
	return filepath.Join(cwd, config.DefaultConfigFile), nil
}

// ConfigCmd prints the effective configuration.
func ConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show the effective configuration",
		Long: `Show the configuration after merging defaults, the config file,
ASSETFLOW_* environment variables and flags.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			format, err := cmd.Flags().GetString("format")
			if err != nil {
				return fmt.Errorf("failed to get format flag: %w", err)
			}
			showSources, err := cmd.Flags().GetBool("sources")
			if err != nil {
				return fmt.Errorf("failed to get sources flag: %w", err)
			}
			cfg := config.FromContext(cmd.Context())
			service, _ := cmd.Context().Value(serviceCtxKey{}).(config.Service)
			return outputConfig(cmd, cfg, service, format, showSources)
		},
	}
	cmd.Flags().StringP("format", "f", "table", "Output format (json, table)")
	cmd.Flags().Bool("sources", false, "Show where each value came from")
	return cmd
}

func outputConfig(cmd *cobra.Command, cfg *config.Config, service config.Service, format string, showSources bool) error {
	flat := flattenConfig(cfg)
	keys := make([]string, 0, len(flat))
	for k := range flat {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	source := func(key string) string {
		if service == nil {
			return string(config.SourceDefault)
		}
		src := service.GetSource(key)
		if src == config.SourceEnv {
			return fmt.Sprintf("%s (%s)", src, config.GetEnvVarForConfigPath(key))
		}
		return string(src)
	}
	out := cmd.OutOrStdout()
	switch format {
	case "json":
		encoder := json.NewEncoder(out)
		encoder.SetIndent("", "  ")
		if !showSources {
			return encoder.Encode(cfg)
		}
		sources := make(map[string]string, len(keys))
		for _, k := range keys {
			sources[k] = source(k)
		}
		return encoder.Encode(map[string]any{"config": cfg, "sources": sources})
	case "table":
		w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		defer w.Flush()
		if showSources {
			fmt.Fprintln(w, "KEY\tVALUE\tSOURCE")
			fmt.Fprintln(w, "---\t-----\t------")
		} else {
			fmt.Fprintln(w, "KEY\tVALUE")
			fmt.Fprintln(w, "---\t-----")
		}
		for _, k := range keys {
			if showSources {
				fmt.Fprintf(w, "%s\t%s\t%s\n", k, flat[k], source(k))
			} else {
				fmt.Fprintf(w, "%s\t%s\n", k, flat[k])
			}
		}
		return nil
	default:
		return fmt.Errorf("unsupported format: %s", format)
	}
}

// flattenConfig converts nested config to a flat key-value map
func flattenConfig(cfg *config.Config) map[string]string {
	return map[string]string{
		"root":                  cfg.Root,
		"build.fail_on_error":   strconv.FormatBool(cfg.Build.FailOnError),
		"build.workers":         strconv.Itoa(cfg.Build.Workers),
		"watch.debounce":        cfg.Watch.Debounce.String(),
		"watch.include_sources": strconv.FormatBool(cfg.Watch.IncludeSources),
		"metrics.file":          cfg.Metrics.File,
		"log.level":             cfg.Log.Level,
		"log.json":              strconv.FormatBool(cfg.Log.JSON),
	}
}

// resolveRoot returns the absolute project root.
func resolveRoot(cfg *config.Config) (string, error) {
	root, err := filepath.Abs(cfg.Root)
	if err != nil {
		return "", fmt.Errorf("failed to resolve project root: %w", err)
	}
	info, err := os.Stat(root)
	if err != nil {
		return "", fmt.Errorf("project root: %w", err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("project root %s is not a directory", root)
	}
	return root, nil
}
