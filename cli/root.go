package cli

import (
	"github.com/compozy/assetflow/pkg/config"
	"github.com/compozy/assetflow/pkg/version"
	"github.com/spf13/cobra"
)

func RootCmd() *cobra.Command {
	defaults := config.Default()
	root := &cobra.Command{
		Use:   "assetflow [task...]",
		Short: "Build and watch static assets",
		Long: `Minify CSS, JS and HTML, resize and compress images, and watch the
image sources for changes.

Tasks run in the order given. Without arguments the "default" task runs the
five processing tasks and then watches src/img for changes.`,
		Example: `  assetflow
  assetflow minify-css minify-js
  assetflow --cwd site images`,
		Version:           version.Get().String(),
		SilenceUsage:      true,
		PersistentPreRunE: setupGlobalConfig,
		RunE:              runTasks,
	}

	pf := root.PersistentFlags()
	pf.String("cwd", "", "Project root (default is the current directory)")
	pf.String("config", "", "Path to the config file (default is <cwd>/"+config.DefaultConfigFile+")")
	pf.String("log-level", defaults.Log.Level, "Log level (debug, info, warn, error, disabled)")
	pf.Bool("log-json", false, "Output logs in JSON format")
	pf.Bool("log-source", false, "Include source code location in logs")
	pf.Bool("debug", false, "Enable debug logging (overrides log-level)")

	f := root.Flags()
	f.Bool("fail-on-error", defaults.Build.FailOnError, "Exit with an error when any file fails")
	f.Int("workers", defaults.Build.Workers, "Files transformed in parallel within a task")
	f.Duration("debounce", defaults.Watch.Debounce, "Quiet period before a change batch re-runs tasks")
	f.Bool("watch-sources", defaults.Watch.IncludeSources, "Also watch CSS, JS and HTML sources")
	f.String("metrics-file", "", "Write Prometheus metrics to this .prom file after each task")

	root.AddCommand(
		ListCmd(),
		ConfigCmd(),
	)
	return root
}
