package task

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/compozy/assetflow/engine/pipeline"
	"github.com/compozy/assetflow/engine/watch"
	"github.com/compozy/assetflow/pkg/logger"
	"github.com/spf13/afero"
)

// Recorder observes finished task runs.
type Recorder interface {
	RecordTask(ctx context.Context, task string, result pipeline.RunResult, elapsed time.Duration)
}

// SourceFactory opens the change stream for a watch binding.
type SourceFactory func(ctx context.Context, binding *WatchBinding) (watch.Source, error)

// FSSources watches bindings on the local filesystem below root.
func FSSources(root string, wait time.Duration) SourceFactory {
	return func(ctx context.Context, b *WatchBinding) (watch.Source, error) {
		return watch.NewFSSource(ctx, root, b.Globs, wait)
	}
}

// Report collects the task runs of one invocation.
type Report struct {
	Tasks []TaskReport
}

// TaskReport is the outcome of one task run.
type TaskReport struct {
	Name    string
	Result  pipeline.RunResult
	Elapsed time.Duration
}

// Processed sums processed files across all tasks.
func (r *Report) Processed() int {
	n := 0
	for _, t := range r.Tasks {
		n += t.Result.Processed
	}
	return n
}

// Failed sums failed files across all tasks.
func (r *Report) Failed() int {
	n := 0
	for _, t := range r.Tasks {
		n += len(t.Result.Failed)
	}
	return n
}

// Runner executes graph entries against a filesystem.
type Runner struct {
	fs          afero.Fs
	workers     int
	failOnError bool
	recorder    Recorder
	sources     SourceFactory
	watchOpts   []watch.Option
}

type Option func(*Runner)

func WithWorkers(n int) Option {
	return func(r *Runner) { r.workers = n }
}

// WithFailOnError makes a task with failed files an error that stops aggregates.
func WithFailOnError(enabled bool) Option {
	return func(r *Runner) { r.failOnError = enabled }
}

func WithRecorder(rec Recorder) Option {
	return func(r *Runner) { r.recorder = rec }
}

func WithSourceFactory(f SourceFactory) Option {
	return func(r *Runner) { r.sources = f }
}

// WithWatchOptions forwards options to every watcher the runner starts.
func WithWatchOptions(opts ...watch.Option) Option {
	return func(r *Runner) { r.watchOpts = append(r.watchOpts, opts...) }
}

func NewRunner(fsys afero.Fs, opts ...Option) *Runner {
	r := &Runner{fs: fsys, failOnError: true}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run executes the named entries in order and returns every task run.
//
// A plain task runs directly. An aggregate runs its steps sequentially in
// declared order. A watch binding blocks until ctx is canceled or its change
// stream closes.
func (r *Runner) Run(ctx context.Context, g *Graph, names ...string) (*Report, error) {
	if err := g.Resolve(names...); err != nil {
		return nil, err
	}
	report := &Report{}
	for _, name := range names {
		if err := r.run(ctx, g, name, report); err != nil {
			return report, err
		}
	}
	return report, nil
}

func (r *Runner) run(ctx context.Context, g *Graph, name string, report *Report) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	e, ok := g.Lookup(name)
	if !ok {
		return &UnknownTaskError{Name: name, Known: g.Names()}
	}
	switch e.Kind {
	case KindTask:
		tr, err := r.RunTask(ctx, e.Task)
		report.Tasks = append(report.Tasks, tr)
		return err
	case KindAggregate:
		logger.FromContext(ctx).Debug("Running aggregate", "name", name, "steps", e.Aggregate.Steps)
		for _, step := range e.Aggregate.Steps {
			if err := r.run(ctx, g, step, report); err != nil {
				return err
			}
		}
		return nil
	case KindWatch:
		return r.watch(ctx, g, e.Watch)
	default:
		return fmt.Errorf("entry %q has unknown kind %d", name, e.Kind)
	}
}

// RunTask runs one task and logs its summary. Every file is tried before a
// failure is reported.
func (r *Runner) RunTask(ctx context.Context, t *Task) (TaskReport, error) {
	log := logger.FromContext(ctx).With("task", t.Name)
	log.Info("Starting task")
	start := time.Now()
	result, err := pipeline.Run(ctx, r.fs, pipeline.Options{Workers: r.workers}, t.Pipelines...)
	elapsed := time.Since(start)
	tr := TaskReport{Name: t.Name, Result: result, Elapsed: elapsed}
	if r.recorder != nil {
		r.recorder.RecordTask(ctx, t.Name, result, elapsed)
	}
	if err != nil {
		log.Error("Task aborted", "error", err)
		return tr, fmt.Errorf("task %q: %w", t.Name, err)
	}
	for _, f := range result.Failed {
		log.Error("File failed", "path", f.Path, "error", f.Err)
	}
	log.Info("Finished task",
		"processed", result.Processed,
		"failed", len(result.Failed),
		"duration", elapsed.Round(time.Millisecond),
	)
	if !result.OK() && r.failOnError {
		return tr, &TaskFailedError{Task: t.Name, Failed: result.Failed}
	}
	return tr, nil
}

func (r *Runner) watch(ctx context.Context, g *Graph, b *WatchBinding) error {
	log := logger.FromContext(ctx).With("watch", b.Name)
	if r.sources == nil {
		return fmt.Errorf("watch %q: no change source configured", b.Name)
	}
	if len(b.Unwatched) > 0 {
		log.Warn("Some task sources are not watched; edits to them need a manual run",
			"unwatched", b.Unwatched)
	}
	source, err := r.sources(ctx, b)
	if err != nil {
		return fmt.Errorf("watch %q: %w", b.Name, err)
	}
	exec := func(ctx context.Context, name string) error {
		e, ok := g.Lookup(name)
		if !ok || e.Kind != KindTask {
			return &UnknownTaskError{Name: name, Known: g.Names()}
		}
		_, err := r.RunTask(ctx, e.Task)
		return err
	}
	w := watch.New(source, b.Tasks, exec, r.watchOpts...)
	if err := w.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("watch %q: %w", b.Name, err)
	}
	log.Info("Watcher stopped", "runs", w.Runs())
	return nil
}
