package watch

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type chanSource struct {
	ch        chan Batch
	closeOnce sync.Once
	closed    chan struct{}
}

func newChanSource() *chanSource {
	return &chanSource{ch: make(chan Batch), closed: make(chan struct{})}
}

func (c *chanSource) Events() <-chan Batch { return c.ch }

func (c *chanSource) Close() error {
	c.closeOnce.Do(func() { close(c.closed) })
	return nil
}

type recorder struct {
	mu    sync.Mutex
	calls []string
	fail  map[string]bool
}

func (r *recorder) exec(_ context.Context, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, name)
	if r.fail[name] {
		return errors.New("task failed")
	}
	return nil
}

func (r *recorder) snapshot() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.calls...)
}

var boundTasks = []string{"minify-css", "minify-js", "minify-html", "resize", "images"}

func startWatcher(t *testing.T, w *Watcher) (context.CancelFunc, <-chan error) {
	t.Helper()
	ctx, cancel := context.WithCancel(t.Context())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()
	require.Eventually(t, func() bool { return w.State() == StateArmed }, time.Second, 5*time.Millisecond)
	return cancel, done
}

func TestWatcher_Run(t *testing.T) {
	t.Run("Should run every bound task once in order and re-arm", func(t *testing.T) {
		src := newChanSource()
		rec := &recorder{}
		w := New(src, boundTasks, rec.exec)
		cancel, done := startWatcher(t, w)
		defer cancel()

		src.ch <- Batch{Paths: []string{"src/img/cat.png"}}

		require.Eventually(t, func() bool {
			return len(rec.snapshot()) == len(boundTasks) && w.State() == StateArmed
		}, time.Second, 5*time.Millisecond)
		assert.Equal(t, boundTasks, rec.snapshot())
		assert.Equal(t, int64(1), w.Runs())

		cancel()
		require.NoError(t, <-done)
		assert.Equal(t, StateStopped, w.State())
	})

	t.Run("Should stay armed after a failing task", func(t *testing.T) {
		src := newChanSource()
		rec := &recorder{fail: map[string]bool{"minify-js": true}}
		w := New(src, boundTasks, rec.exec)
		cancel, done := startWatcher(t, w)
		defer cancel()

		src.ch <- Batch{Paths: []string{"src/img/a.png"}}
		src.ch <- Batch{Paths: []string{"src/img/b.png"}}

		require.Eventually(t, func() bool {
			return len(rec.snapshot()) == 2*len(boundTasks) && w.State() == StateArmed
		}, time.Second, 5*time.Millisecond)
		assert.Equal(t, append(append([]string{}, boundTasks...), boundTasks...), rec.snapshot())

		cancel()
		require.NoError(t, <-done)
	})

	t.Run("Should stop when the stream closes", func(t *testing.T) {
		src := newChanSource()
		w := New(src, boundTasks, (&recorder{}).exec)
		cancel, done := startWatcher(t, w)
		defer cancel()

		close(src.ch)

		require.NoError(t, <-done)
		assert.Equal(t, StateStopped, w.State())
		select {
		case <-src.closed:
		default:
			t.Fatal("source was not closed")
		}
	})

	t.Run("Should walk through the documented states", func(t *testing.T) {
		src := newChanSource()
		var (
			mu   sync.Mutex
			seen []State
		)
		hook := func(_, to State) {
			mu.Lock()
			seen = append(seen, to)
			mu.Unlock()
		}
		w := New(src, []string{"images"}, (&recorder{}).exec, WithTransitionHook(hook))
		cancel, done := startWatcher(t, w)
		defer cancel()

		src.ch <- Batch{Paths: []string{"src/img/x.jpg"}}
		close(src.ch)
		require.NoError(t, <-done)

		mu.Lock()
		defer mu.Unlock()
		assert.Equal(t, []State{StateArmed, StateRunning, StateArmed, StateStopped}, seen)
	})

	t.Run("Should refuse to run twice", func(t *testing.T) {
		src := newChanSource()
		w := New(src, nil, (&recorder{}).exec)
		cancel, done := startWatcher(t, w)
		defer cancel()
		close(src.ch)
		require.NoError(t, <-done)

		assert.Error(t, w.Run(t.Context()))
	})
}

func TestState_String(t *testing.T) {
	t.Run("Should name every state", func(t *testing.T) {
		assert.Equal(t, "idle", StateIdle.String())
		assert.Equal(t, "armed", StateArmed.String())
		assert.Equal(t, "running", StateRunning.String())
		assert.Equal(t, "stopped", StateStopped.String())
		assert.Equal(t, "state(9)", State(9).String())
	})
}
