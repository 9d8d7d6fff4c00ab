package loader

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	m "gooze.dev/pkg/testbench/internal/model"
)

// HostEnvironment provides the units shared by every context.
type HostEnvironment interface {
	Lookup(name string) (*m.Unit, bool)
}

var contextIDs atomic.Uint64

// Context is one isolated loading session. A unit is fetched at most once
// per context; Fork starts over with an empty cache on the same source.
type Context struct {
	id      uint64
	source  *serialSource
	policy  Policy
	host    HostEnvironment
	definer Definer

	mu      sync.Mutex
	units   map[string]*m.Unit
	handles map[string]Handle

	latency atomic.Int64
}

// Option configures a Context.
type Option func(*Context)

// WithPolicy replaces DefaultPolicy.
func WithPolicy(p Policy) Option {
	return func(c *Context) { c.policy = p }
}

// WithHost sets the host environment. Without one, host-preferred names
// fall back to the code source.
func WithHost(host HostEnvironment) Option {
	return func(c *Context) { c.host = host }
}

// WithDefiner replaces ManifestDefiner.
func WithDefiner(d Definer) Option {
	return func(c *Context) { c.definer = d }
}

// New creates a context on source.
func New(source CodeSource, opts ...Option) *Context {
	c := &Context{
		id:      contextIDs.Add(1),
		source:  serialize(source),
		policy:  DefaultPolicy(),
		definer: ManifestDefiner{},
		units:   map[string]*m.Unit{},
		handles: map[string]Handle{},
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// ID returns the session id; later contexts have larger ids.
func (c *Context) ID() uint64 { return c.id }

// Key returns the key of the code source.
func (c *Context) Key() string { return c.source.Key() }

// Source returns the shared code source.
func (c *Context) Source() CodeSource { return c.source }

// Fork returns a fresh context on the same source with an empty cache.
func (c *Context) Fork() *Context {
	return &Context{
		id:      contextIDs.Add(1),
		source:  c.source,
		policy:  c.policy,
		host:    c.host,
		definer: c.definer,
		units:   map[string]*m.Unit{},
		handles: map[string]Handle{},
	}
}

// Loaded reports whether name is already in the cache.
func (c *Context) Loaded(name string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, ok := c.units[name]

	return ok
}

// LoadingTime returns the time spent fetching units since the last call.
func (c *Context) LoadingTime() time.Duration {
	return time.Duration(c.latency.Swap(0))
}

// Resolve returns the unit called name.
func (c *Context) Resolve(ctx context.Context, name string) (*m.Unit, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.resolveLocked(ctx, name)
}

func (c *Context) resolveLocked(ctx context.Context, name string) (*m.Unit, error) {
	if unit, ok := c.units[name]; ok {
		return unit, nil
	}

	if c.policy.Origin(name) == m.OriginHost && c.host != nil {
		if unit, ok := c.host.Lookup(name); ok {
			c.units[name] = unit

			return unit, nil
		}
	}

	unit, err := c.fetch(ctx, name)
	if err != nil {
		return nil, err
	}

	c.units[name] = unit

	return unit, nil
}

func (c *Context) fetch(ctx context.Context, name string) (*m.Unit, error) {
	start := time.Now()
	code, err := c.source.GetUnit(ctx, c.source.Key(), name)
	c.latency.Add(int64(time.Since(start)))

	if err != nil {
		if errors.Is(err, ErrUnitNotFound) {
			return nil, fmt.Errorf("cannot find unit %s: %w", name, ErrUnitNotFound)
		}

		retrieval := &RetrievalError{Unit: name, Err: err}
		slog.Warn("Failed to retrieve unit", "unit", name, "source", c.source.Key(), "error", err)

		return nil, retrieval
	}

	if code == nil {
		return nil, fmt.Errorf("cannot find unit %s: %w", name, ErrUnitNotFound)
	}

	unit, err := c.definer.Define(name, code)
	if err != nil {
		return nil, fmt.Errorf("failed to define unit %s: %w", name, err)
	}

	slog.Debug("Loaded unit", "unit", name, "context", c.id, "digest", unit.Digest)

	return unit, nil
}
