package watch

import (
	"context"
	"fmt"
	"io/fs"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/compozy/assetflow/pkg/logger"
	"github.com/fsnotify/fsnotify"
	"github.com/romdo/go-debounce"
)

// FSSource turns fsnotify events under a root into change batches.
//
// Only paths matching one of the globs are reported. Bursts are coalesced with a
// debounce, and at most one batch waits for the consumer: changes arriving while
// a batch is pending are dropped because the pending re-run covers them.
type FSSource struct {
	root    string
	globs   []string
	watcher *fsnotify.Watcher
	events  chan Batch

	mu      sync.Mutex
	pending map[string]struct{}
	closed  bool

	debounced func()
	cancel    func()
	done      chan struct{}
	closeOnce sync.Once
}

// NewFSSource watches the static-prefix directory of every glob below root.
// Globs containing "**" watch the whole subtree.
func NewFSSource(ctx context.Context, root string, globs []string, wait time.Duration) (*FSSource, error) {
	log := logger.FromContext(ctx)
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve watch root: %w", err)
	}
	for _, g := range globs {
		if !doublestar.ValidatePattern(g) {
			return nil, fmt.Errorf("invalid watch glob %q: %w", g, doublestar.ErrBadPattern)
		}
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	s := &FSSource{
		root:    absRoot,
		globs:   globs,
		watcher: fw,
		events:  make(chan Batch, 1),
		pending: make(map[string]struct{}),
		done:    make(chan struct{}),
	}
	if wait > 0 {
		s.debounced, s.cancel = debounce.New(wait, s.flush)
	} else {
		s.debounced, s.cancel = s.flush, func() {}
	}
	dirs := s.watchDirs()
	for _, dir := range dirs {
		if err := fw.Add(dir); err != nil {
			log.Warn("Failed to watch directory", "path", dir, "error", err)
		}
	}
	log.Debug("File watcher initialized", "root", absRoot, "globs", globs, "watched_directories", len(dirs))
	go s.loop(ctx)
	go func() {
		select {
		case <-ctx.Done():
			_ = s.Close()
		case <-s.done:
		}
	}()
	return s, nil
}

// Events returns the batch stream. It is closed by Close.
func (s *FSSource) Events() <-chan Batch {
	return s.events
}

// Close stops watching and closes the stream.
func (s *FSSource) Close() error {
	var closeErr error
	s.closeOnce.Do(func() {
		s.cancel()
		if err := s.watcher.Close(); err != nil {
			closeErr = fmt.Errorf("failed to close watcher: %w", err)
		}
		<-s.done
		s.mu.Lock()
		s.closed = true
		close(s.events)
		s.mu.Unlock()
	})
	return closeErr
}

func (s *FSSource) watchDirs() []string {
	set := make(map[string]struct{})
	for _, g := range s.globs {
		base, _ := doublestar.SplitPattern(g)
		dir := filepath.Join(s.root, filepath.FromSlash(base))
		if !strings.Contains(g, "**") {
			set[dir] = struct{}{}
			continue
		}
		_ = filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
			if err != nil {
				return nil
			}
			if d.IsDir() {
				set[p] = struct{}{}
			}
			return nil
		})
	}
	dirs := make([]string, 0, len(set))
	for d := range set {
		dirs = append(dirs, d)
	}
	slices.Sort(dirs)
	return dirs
}

func (s *FSSource) loop(ctx context.Context) {
	defer close(s.done)
	log := logger.FromContext(ctx)
	for {
		select {
		case event, ok := <-s.watcher.Events:
			if !ok {
				return
			}
			s.handle(ctx, event)
		case err, ok := <-s.watcher.Errors:
			if !ok {
				return
			}
			log.Error("Watcher error", "error", err)
		}
	}
}

func (s *FSSource) handle(ctx context.Context, event fsnotify.Event) {
	if event.Op == fsnotify.Chmod {
		return
	}
	if event.Has(fsnotify.Create) && s.recursive() {
		if err := s.watcher.Add(event.Name); err == nil {
			logger.FromContext(ctx).Debug("Watching new directory", "path", event.Name)
		}
	}
	rel, err := filepath.Rel(s.root, event.Name)
	if err != nil {
		return
	}
	rel = filepath.ToSlash(rel)
	if !s.matches(rel) {
		return
	}
	s.mu.Lock()
	s.pending[rel] = struct{}{}
	s.mu.Unlock()
	s.debounced()
}

func (s *FSSource) recursive() bool {
	for _, g := range s.globs {
		if strings.Contains(g, "**") {
			return true
		}
	}
	return false
}

func (s *FSSource) matches(rel string) bool {
	for _, g := range s.globs {
		if ok, err := doublestar.Match(g, rel); err == nil && ok {
			return true
		}
	}
	return false
}

// flush moves pending paths into the stream without ever blocking.
func (s *FSSource) flush() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || len(s.pending) == 0 {
		return
	}
	paths := make([]string, 0, len(s.pending))
	for p := range s.pending {
		paths = append(paths, p)
	}
	clear(s.pending)
	slices.Sort(paths)
	select {
	case s.events <- Batch{Paths: paths}:
	default:
		// A batch is already waiting; the next run covers these paths too.
	}
}
