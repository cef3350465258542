package pipeline

import (
	"context"
	"fmt"
	"path"
	"path/filepath"
	"slices"
	"strings"

	"github.com/compozy/assetflow/engine/transform"
	"github.com/compozy/assetflow/pkg/logger"
	"github.com/spf13/afero"
	"golang.org/x/sync/errgroup"
)

const defaultWorkers = 4

// Pipeline reads every file matched by Source, runs Chain over it, optionally
// renames it and writes it below Dest.
type Pipeline struct {
	Source SourceSpec
	Chain  transform.Chain
	Dest   string
	Rename transform.RenameRule
}

// Options tunes a run.
type Options struct {
	// Workers bounds how many files are transformed at once.
	Workers int
}

// RunResult summarises one run.
type RunResult struct {
	// Processed counts files written successfully.
	Processed int
	// Failed lists per-file failures sorted by source path.
	Failed []FileError
	// Written lists destination paths in write order.
	Written []string
}

// OK reports whether no file failed.
func (r RunResult) OK() bool { return len(r.Failed) == 0 }

type output struct {
	source string
	dest   string
	data   []byte
}

// Run executes a single pipeline.
func (p *Pipeline) Run(ctx context.Context, fsys afero.Fs, opts Options) (RunResult, error) {
	return Run(ctx, fsys, opts, p)
}

// Run executes pipelines as one unit: sources are resolved afresh, every file is
// transformed independently, and outputs are written once all transforms finish.
//
// Per-file failures are collected in the result. Only an invalid glob or a
// canceled context is returned as an error. Outputs from different sources that
// land on the same destination are all rejected with ErrDestinationCollision.
func Run(ctx context.Context, fsys afero.Fs, opts Options, pipelines ...*Pipeline) (RunResult, error) {
	var result RunResult
	var outputs []output
	for _, p := range pipelines {
		outs, failed, err := p.transformAll(ctx, fsys, opts)
		if err != nil {
			return result, err
		}
		outputs = append(outputs, outs...)
		result.Failed = append(result.Failed, failed...)
	}
	written, failed := write(ctx, fsys, outputs)
	result.Processed = len(written)
	result.Written = written
	result.Failed = append(result.Failed, failed...)
	slices.SortStableFunc(result.Failed, func(a, b FileError) int {
		return strings.Compare(a.Path, b.Path)
	})
	return result, nil
}

func (p *Pipeline) transformAll(ctx context.Context, fsys afero.Fs, opts Options) ([]output, []FileError, error) {
	matches, err := p.Source.Resolve(fsys)
	if err != nil {
		return nil, nil, err
	}
	workers := opts.Workers
	if workers <= 0 {
		workers = defaultWorkers
	}
	outs := make([]*output, len(matches))
	errs := make([]error, len(matches))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, m := range matches {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			outs[i], errs[i] = p.transformOne(gctx, fsys, m)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	var (
		result []output
		failed []FileError
	)
	for i, m := range matches {
		if errs[i] != nil {
			failed = append(failed, FileError{Path: m.Path, Err: errs[i]})
			continue
		}
		result = append(result, *outs[i])
	}
	return result, failed, nil
}

func (p *Pipeline) transformOne(ctx context.Context, fsys afero.Fs, m Match) (*output, error) {
	data, err := afero.ReadFile(fsys, filepath.FromSlash(m.Path))
	if err != nil {
		return nil, &transform.TransformError{Path: m.Path, Transformer: "read", Err: err}
	}
	f := &transform.File{
		Path: filepath.FromSlash(m.Path),
		Base: filepath.FromSlash(m.Base),
		Rel:  filepath.FromSlash(m.Rel),
		Data: data,
	}
	out, err := p.Chain.Apply(ctx, f)
	if err != nil {
		return nil, err
	}
	rel := out.Rel
	if p.Rename != nil {
		rel = p.Rename(rel)
	}
	return &output{
		source: m.Path,
		dest:   filepath.Join(filepath.FromSlash(p.Dest), rel),
		data:   out.Data,
	}, nil
}

// write stores outputs in sorted destination order after rejecting collisions.
func write(ctx context.Context, fsys afero.Fs, outputs []output) ([]string, []FileError) {
	log := logger.FromContext(ctx)
	byDest := make(map[string][]output, len(outputs))
	for _, o := range outputs {
		key := filepath.Clean(o.dest)
		byDest[key] = append(byDest[key], o)
	}
	dests := make([]string, 0, len(byDest))
	for d := range byDest {
		dests = append(dests, d)
	}
	slices.Sort(dests)

	var (
		written []string
		failed  []FileError
	)
	for _, dest := range dests {
		group := byDest[dest]
		if len(group) > 1 {
			sources := make([]string, len(group))
			for i, o := range group {
				sources[i] = o.source
			}
			slices.Sort(sources)
			for _, o := range group {
				failed = append(failed, FileError{Path: o.source, Err: &WriteError{
					Path: o.source,
					Dest: dest,
					Err:  fmt.Errorf("%w: %s", ErrDestinationCollision, strings.Join(sources, ", ")),
				}})
			}
			continue
		}
		o := group[0]
		if err := writeFile(fsys, dest, o.data); err != nil {
			failed = append(failed, FileError{Path: o.source, Err: &WriteError{Path: o.source, Dest: dest, Err: err}})
			continue
		}
		log.Debug("Wrote asset", "source", o.source, "dest", dest, "bytes", len(o.data))
		written = append(written, dest)
	}
	return written, failed
}

func writeFile(fsys afero.Fs, dest string, data []byte) error {
	if dir := filepath.Dir(dest); dir != "." {
		if err := fsys.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory: %w", err)
		}
	}
	return afero.WriteFile(fsys, dest, data, 0o644)
}

// Describe renders the pipeline for listings: "src/*.html -> dist [inline-css, minify-html]".
func (p *Pipeline) Describe() string {
	return fmt.Sprintf("%s -> %s [%s]",
		strings.Join(p.Source.Patterns, ", "), path.Clean(p.Dest), strings.Join(p.Chain.Names(), ", "))
}
