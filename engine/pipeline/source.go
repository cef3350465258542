package pipeline

import (
	"path"
	"slices"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/spf13/afero"
)

// SourceSpec selects the files a pipeline reads.
//
// Patterns use doublestar syntax and are relative to the project root. When Base
// is empty, each match is placed relative to the static prefix of the pattern
// that matched it; otherwise relative to Base.
type SourceSpec struct {
	Patterns []string
	Base     string
}

// Sources builds a SourceSpec from patterns.
func Sources(patterns ...string) SourceSpec {
	return SourceSpec{Patterns: patterns}
}

// Match is one resolved source file.
type Match struct {
	Path string
	Base string
	Rel  string
}

// Validate checks every pattern without touching the filesystem.
func (s SourceSpec) Validate() error {
	for _, pattern := range s.Patterns {
		if !doublestar.ValidatePattern(pattern) {
			return &GlobResolutionError{Pattern: pattern, Err: doublestar.ErrBadPattern}
		}
	}
	return nil
}

// Resolve expands the patterns against the current state of fsys.
// Zero matches is not an error. A file matched by several patterns is kept once,
// under the first pattern that matched it.
func (s SourceSpec) Resolve(fsys afero.Fs) ([]Match, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	iofs := afero.NewIOFS(fsys)
	seen := make(map[string]bool)
	var matches []Match
	for _, pattern := range s.Patterns {
		base, _ := doublestar.SplitPattern(pattern)
		if s.Base != "" {
			base = path.Clean(s.Base)
		}
		found, err := doublestar.Glob(iofs, pattern, doublestar.WithFilesOnly())
		if err != nil {
			return nil, &GlobResolutionError{Pattern: pattern, Err: err}
		}
		slices.Sort(found)
		for _, p := range found {
			if seen[p] {
				continue
			}
			seen[p] = true
			matches = append(matches, Match{Path: p, Base: base, Rel: relTo(base, p)})
		}
	}
	return matches, nil
}

func relTo(base, p string) string {
	if base == "." || base == "" {
		return p
	}
	if len(p) > len(base) && p[:len(base)] == base && p[len(base)] == '/' {
		return p[len(base)+1:]
	}
	return path.Base(p)
}
