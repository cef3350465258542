package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/compozy/assetflow/engine/infra/monitoring"
	"github.com/compozy/assetflow/engine/project"
	"github.com/compozy/assetflow/engine/task"
	"github.com/compozy/assetflow/pkg/config"
	"github.com/compozy/assetflow/pkg/logger"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

// runTasks runs the named tasks, or "default" when none are given.
func runTasks(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	log := logger.FromContext(ctx)
	cfg := config.FromContext(ctx)

	names := args
	if len(names) == 0 {
		names = []string{project.TaskDefault}
	}
	root, err := resolveRoot(cfg)
	if err != nil {
		return err
	}
	fsys := afero.NewBasePathFs(afero.NewOsFs(), root)
	graph, err := project.Graph(project.OptionsFromConfig(cfg, fsys))
	if err != nil {
		return fmt.Errorf("failed to build task graph: %w", err)
	}
	if err := graph.Resolve(names...); err != nil {
		return err
	}

	mon := monitoring.NewMonitoringServiceWithFallback(ctx, &monitoring.Config{File: cfg.Metrics.File})
	defer func() {
		if err := mon.Shutdown(context.WithoutCancel(ctx)); err != nil {
			log.Warn("Failed to shut down monitoring", "error", err)
		}
	}()

	runner := task.NewRunner(fsys,
		task.WithWorkers(cfg.Build.Workers),
		task.WithFailOnError(cfg.Build.FailOnError),
		task.WithRecorder(mon),
		task.WithSourceFactory(task.FSSources(root, cfg.Watch.Debounce)),
	)
	log.Info("Running tasks", "tasks", names, "root", root)
	report, err := runner.Run(ctx, graph, names...)
	if report != nil && len(report.Tasks) > 0 {
		log.Info("Build summary",
			"tasks", len(report.Tasks),
			"processed", report.Processed(),
			"failed", report.Failed(),
		)
	}
	if err != nil {
		if errors.Is(err, context.Canceled) && ctx.Err() != nil {
			log.Info("Interrupted")
			return nil
		}
		return err
	}
	return nil
}
