package pipeline

import (
	"errors"
	"fmt"
)

// ErrDestinationCollision marks two sources that would write the same output path.
var ErrDestinationCollision = errors.New("destination collision")

// GlobResolutionError reports an invalid source pattern. It aborts the whole task.
type GlobResolutionError struct {
	Pattern string
	Err     error
}

func (e *GlobResolutionError) Error() string {
	return fmt.Sprintf("invalid glob pattern %q: %v", e.Pattern, e.Err)
}

func (e *GlobResolutionError) Unwrap() error { return e.Err }

// WriteError reports a destination that could not be written.
type WriteError struct {
	Path string
	Dest string
	Err  error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("write %s -> %s: %v", e.Path, e.Dest, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }

// FileError pairs a failed source file with its cause.
type FileError struct {
	Path string
	Err  error
}

func (e FileError) Error() string {
	return e.Err.Error()
}
