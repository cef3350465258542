package watch

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/compozy/assetflow/pkg/logger"
)

// Batch is a group of changed paths, relative to the watched root.
type Batch struct {
	Paths []string
}

// Source is a stream of change batches. Closing it ends the stream.
type Source interface {
	Events() <-chan Batch
	Close() error
}

// ExecFunc runs one named task.
type ExecFunc func(ctx context.Context, name string) error

// Watcher re-runs a fixed list of tasks whenever its source reports a change.
//
// Batches are consumed by a single loop, so no two re-runs overlap and the
// bound tasks always run one after another in declared order.
type Watcher struct {
	source       Source
	tasks        []string
	exec         ExecFunc
	state        atomic.Int32
	runs         atomic.Int64
	onTransition func(from, to State)
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithTransitionHook observes every state change.
func WithTransitionHook(fn func(from, to State)) Option {
	return func(w *Watcher) {
		w.onTransition = fn
	}
}

func New(source Source, tasks []string, exec ExecFunc, opts ...Option) *Watcher {
	w := &Watcher{
		source: source,
		tasks:  append([]string(nil), tasks...),
		exec:   exec,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// State returns the current state.
func (w *Watcher) State() State {
	return State(w.state.Load())
}

// Runs returns how many batches have been handled.
func (w *Watcher) Runs() int64 {
	return w.runs.Load()
}

// Run arms the watcher and handles batches until ctx is canceled or the source
// stream closes. Task failures are logged and never stop the loop.
func (w *Watcher) Run(ctx context.Context) error {
	log := logger.FromContext(ctx)
	if err := w.transition(StateIdle, StateArmed); err != nil {
		return err
	}
	defer w.stop(ctx)
	log.Info("Watching for changes", "tasks", w.tasks)
	events := w.source.Events()
	for {
		select {
		case <-ctx.Done():
			return nil
		case batch, ok := <-events:
			if !ok {
				log.Debug("Change stream closed")
				return nil
			}
			if err := w.transition(StateArmed, StateRunning); err != nil {
				return err
			}
			w.handle(ctx, batch)
			if err := w.transition(StateRunning, StateArmed); err != nil {
				return err
			}
		}
	}
}

func (w *Watcher) handle(ctx context.Context, batch Batch) {
	log := logger.FromContext(ctx)
	w.runs.Add(1)
	log.Info("Change detected, re-running tasks", "paths", batch.Paths)
	for _, name := range w.tasks {
		if ctx.Err() != nil {
			return
		}
		if err := w.exec(ctx, name); err != nil {
			log.Error("Watched task failed", "task", name, "error", err)
		}
	}
}

func (w *Watcher) stop(ctx context.Context) {
	prev := w.State()
	w.state.Store(int32(StateStopped))
	if w.onTransition != nil {
		w.onTransition(prev, StateStopped)
	}
	if err := w.source.Close(); err != nil {
		logger.FromContext(ctx).Warn("Failed to close change source", "error", err)
	}
}

// transition moves from the expected state to the next one.
func (w *Watcher) transition(from, to State) error {
	if !isAllowedTransition(from, to) {
		return fmt.Errorf("disallowed watcher transition: %s -> %s", from, to)
	}
	if !w.state.CompareAndSwap(int32(from), int32(to)) {
		return fmt.Errorf("invalid watcher transition: expected %s, got %s", from, w.State())
	}
	if w.onTransition != nil {
		w.onTransition(from, to)
	}
	return nil
}
