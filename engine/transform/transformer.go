package transform

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// File is one file flowing through a pipeline.
type File struct {
	// Path is the source location relative to the project root.
	Path string
	// Base is the static prefix of the glob that matched Path.
	Base string
	// Rel is the destination sub-path, relative to the pipeline destination.
	Rel  string
	Data []byte
}

// Ext returns the lower-cased extension of Rel, dot included.
func (f *File) Ext() string {
	return strings.ToLower(filepath.Ext(f.Rel))
}

// WithData returns a copy of f carrying data.
func (f *File) WithData(data []byte) *File {
	c := *f
	c.Data = data
	return &c
}

// WithRel returns a copy of f written to rel.
func (f *File) WithRel(rel string) *File {
	c := *f
	c.Rel = rel
	return &c
}

// Transformer rewrites a single file.
//
// Returning a nil file declines the file: it passes through unchanged.
// Transformers must not mutate the input file.
type Transformer interface {
	Name() string
	Transform(ctx context.Context, f *File) (*File, error)
}

type funcTransformer struct {
	name string
	fn   func(ctx context.Context, f *File) (*File, error)
}

// Func adapts a function into a Transformer.
func Func(name string, fn func(ctx context.Context, f *File) (*File, error)) Transformer {
	return &funcTransformer{name: name, fn: fn}
}

func (t *funcTransformer) Name() string { return t.name }

func (t *funcTransformer) Transform(ctx context.Context, f *File) (*File, error) {
	return t.fn(ctx, f)
}

// TransformError reports a transformer failure for one source file.
type TransformError struct {
	Path        string
	Transformer string
	Err         error
}

func (e *TransformError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Path, e.Transformer, e.Err)
}

func (e *TransformError) Unwrap() error { return e.Err }

// Chain applies transformers in order.
type Chain []Transformer

// Apply runs every transformer over f and returns the final file.
// The first failure stops the chain and is returned as a *TransformError.
func (c Chain) Apply(ctx context.Context, f *File) (*File, error) {
	cur := f
	for _, t := range c {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		next, err := t.Transform(ctx, cur)
		if err != nil {
			var te *TransformError
			if errors.As(err, &te) {
				return nil, err
			}
			return nil, &TransformError{Path: f.Path, Transformer: t.Name(), Err: err}
		}
		if next != nil {
			cur = next
		}
	}
	return cur, nil
}

// Names lists the transformer names of the chain.
func (c Chain) Names() []string {
	names := make([]string, len(c))
	for i, t := range c {
		names[i] = t.Name()
	}
	return names
}

// RenameRule maps an output path onto a new output path.
type RenameRule func(rel string) string

// Suffix appends s to the base name, before the extension: a/b.png -> a/b-thumb.png.
func Suffix(s string) RenameRule {
	return func(rel string) string {
		ext := filepath.Ext(rel)
		return strings.TrimSuffix(rel, ext) + s + ext
	}
}
