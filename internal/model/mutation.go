package model

import (
	"sync"

	"github.com/bits-and-blooms/bitset"
)

const (
	// SelectNone disables every mutant.
	SelectNone = 0
	// SelectAll activates every mutation point at once so executed points can be tracked.
	SelectAll = -1
)

// MutationControl is the value handed to each execution request to select a
// mutant of Unit. The executor reads Selector and reports the mutation points
// it reached through Touch.
type MutationControl struct {
	Unit     string
	Selector int

	mu      sync.Mutex
	touched *bitset.BitSet
}

// NewMutationControl creates a control for unit with the given selector.
func NewMutationControl(unit string, selector int) *MutationControl {
	return &MutationControl{Unit: unit, Selector: selector}
}

// Active reports whether mutant index of unit must run in place of the original code.
func (c *MutationControl) Active(unit string, index int) bool {
	if c == nil || c.Unit != unit {
		return false
	}

	return c.Selector == index
}

// Tracking reports whether executed mutation points of unit must be recorded.
func (c *MutationControl) Tracking(unit string) bool {
	return c != nil && c.Unit == unit && c.Selector == SelectAll
}

// Touch records that mutation point index was reached.
func (c *MutationControl) Touch(index int) {
	if c == nil || index <= 0 {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.touched == nil {
		c.touched = bitset.New(uint(index) + 1)
	}

	c.touched.Set(uint(index))
}

// Touched returns a copy of the reached mutation points, or nil when the
// executor never reported any tracking data.
func (c *MutationControl) Touched() *bitset.BitSet {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.touched == nil {
		return nil
	}

	return c.touched.Clone()
}

// Reset clears touched points and sets a new selector.
func (c *MutationControl) Reset(selector int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.Selector = selector
	c.touched = nil
}

// Track marks the control as observed by the executor, so an empty touched
// set can be told apart from missing tracking data.
func (c *MutationControl) Track() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.touched == nil {
		c.touched = bitset.New(0)
	}
}
