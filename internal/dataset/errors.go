package dataset

import (
	"errors"
	"fmt"
)

var (
	// ErrSourceUnavailable marks a source that is missing, unreadable or unparseable.
	ErrSourceUnavailable = errors.New("source unavailable")
	// ErrSchemaMismatch marks a source whose header lacks a required column.
	ErrSchemaMismatch = errors.New("schema mismatch")
)

// LoadError is returned by Load and Read. Kind is one of ErrSourceUnavailable
// or ErrSchemaMismatch, so callers can test it with errors.Is.
type LoadError struct {
	Kind error
	Path string
	Err  error
}

func (e *LoadError) Error() string {
	if e == nil {
		return "load failed"
	}
	if e.Path != "" {
		return fmt.Sprintf("load %s: %v: %v", e.Path, e.Kind, e.Err)
	}
	return fmt.Sprintf("load: %v: %v", e.Kind, e.Err)
}

func (e *LoadError) Unwrap() []error { return []error{e.Kind, e.Err} }

func unavailable(path string, err error) *LoadError {
	return &LoadError{Kind: ErrSourceUnavailable, Path: path, Err: err}
}

func mismatch(err error) *LoadError {
	return &LoadError{Kind: ErrSchemaMismatch, Err: err}
}
