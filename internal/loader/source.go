// Package loader resolves code-unit names to loaded units inside isolated
// loading contexts, fetching remote units from a CodeSource.
package loader

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// ErrUnitNotFound is returned when no environment can provide a unit.
var ErrUnitNotFound = errors.New("unit not found")

// CodeSource retrieves the code of remote units.
type CodeSource interface {
	// Key identifies the source; contexts sharing a source share its key.
	Key() string

	// GetUnit returns the code of name. It returns an error wrapping
	// ErrUnitNotFound when the source does not have the unit.
	GetUnit(ctx context.Context, key, name string) ([]byte, error)
}

// RetrievalError reports a transport failure while fetching a unit.
type RetrievalError struct {
	Unit string
	Err  error
}

func (e *RetrievalError) Error() string {
	return fmt.Sprintf("cannot retrieve unit %s: %v", e.Unit, e.Err)
}

func (e *RetrievalError) Unwrap() error {
	return e.Err
}

// serialSource funnels every fetch of a source through one lock. Contexts
// forked from each other share the same serialSource.
type serialSource struct {
	mu     sync.Mutex
	source CodeSource
}

func serialize(source CodeSource) *serialSource {
	if s, ok := source.(*serialSource); ok {
		return s
	}

	return &serialSource{source: source}
}

func (s *serialSource) Key() string {
	return s.source.Key()
}

func (s *serialSource) GetUnit(ctx context.Context, key, name string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.source.GetUnit(ctx, key, name)
}
