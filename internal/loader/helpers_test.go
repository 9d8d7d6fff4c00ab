package loader

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	m "gooze.dev/pkg/testbench/internal/model"
)

type mapSource struct {
	key   string
	units map[string]string
	err   error
	delay time.Duration

	mu      sync.Mutex
	fetches map[string]int

	active    atomic.Int32
	maxActive atomic.Int32
}

func newMapSource(units map[string]string) *mapSource {
	return &mapSource{key: "mem", units: units, fetches: map[string]int{}}
}

func (s *mapSource) Key() string { return s.key }

func (s *mapSource) GetUnit(_ context.Context, _, name string) ([]byte, error) {
	n := s.active.Add(1)
	defer s.active.Add(-1)

	for {
		cur := s.maxActive.Load()
		if n <= cur || s.maxActive.CompareAndSwap(cur, n) {
			break
		}
	}

	if s.delay > 0 {
		time.Sleep(s.delay)
	}

	s.mu.Lock()
	s.fetches[name]++
	s.mu.Unlock()

	if s.err != nil {
		return nil, s.err
	}

	code, ok := s.units[name]
	if !ok {
		return nil, fmt.Errorf("%s: %w", name, ErrUnitNotFound)
	}

	return []byte(code), nil
}

func (s *mapSource) count(name string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.fetches[name]
}

type mapHost map[string]*m.Unit

func (h mapHost) Lookup(name string) (*m.Unit, bool) {
	u, ok := h[name]

	return u, ok
}

const accountManifest = `name: app.Account
fields:
  balance: 0
constructors:
  - init:
      balance: "0"
  - params:
      - {name: initial, type: int}
    init:
      balance: initial
methods:
  - name: deposit
    params:
      - {name: amount, type: int}
    body: balance + amount
    assign: balance
    mutants:
      - balance - amount
      - balance + amount + 1
  - name: deposit
    params:
      - {name: amount, type: float}
    body: balance + amount
    assign: balance
  - name: balance
    body: balance
    mutants:
      - balance + 1
`
