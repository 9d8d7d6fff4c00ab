package coverage

import (
	"strings"

	"gooze.dev/pkg/testbench/internal/fault"
	"gooze.dev/pkg/testbench/pkg/wire"
)

const (
	// FaultsKey is the key of fault coverage.
	FaultsKey = "fault"
	// FaultsName is the display name of fault coverage.
	FaultsName = "Faults"
)

// Faults is the set of distinct faults revealed so far. Its quality is the
// number of distinct faults.
type Faults struct {
	buckets map[uint64][]fault.Fault
	order   []fault.Fault
}

// NewFaults returns an empty fault set.
func NewFaults() *Faults {
	return &Faults{buckets: map[uint64][]fault.Fault{}}
}

// Add records f and reports whether it was new.
func (c *Faults) Add(f fault.Fault) bool {
	if c.Has(f) {
		return false
	}

	c.buckets[f.Hash()] = append(c.buckets[f.Hash()], f)
	c.order = append(c.order, f)

	return true
}

// Has reports whether an equal fault is recorded.
func (c *Faults) Has(f fault.Fault) bool {
	for _, known := range c.buckets[f.Hash()] {
		if known.Equal(f) {
			return true
		}
	}

	return false
}

// All returns the faults in insertion order.
func (c *Faults) All() []fault.Fault {
	return append([]fault.Fault(nil), c.order...)
}

// Key implements Information.
func (c *Faults) Key() string { return FaultsKey }

// Name implements Information.
func (c *Faults) Name() string { return FaultsName }

// Quality implements Information.
func (c *Faults) Quality() float64 { return float64(len(c.order)) }

// Contains implements Information.
func (c *Faults) Contains(other Information) bool {
	o, ok := other.(*Faults)
	if !ok {
		return false
	}

	for _, f := range o.order {
		if !c.Has(f) {
			return false
		}
	}

	return true
}

// Merge implements Information.
func (c *Faults) Merge(other Information) {
	o, ok := other.(*Faults)
	if !ok || o == c {
		return
	}

	for _, f := range o.order {
		c.Add(f)
	}
}

// CreateEmpty implements Information.
func (c *Faults) CreateEmpty() Information { return NewFaults() }

// Clone implements Information.
func (c *Faults) Clone() Information {
	clone := NewFaults()
	clone.Merge(c)

	return clone
}

func (c *Faults) String() string {
	parts := make([]string, 0, len(c.order))
	for _, f := range c.order {
		parts = append(parts, f.String())
	}

	return strings.Join(parts, "\n")
}

// MarshalBinary writes the fault count followed by each fault.
func (c *Faults) MarshalBinary() ([]byte, error) {
	return marshal(func(w *wire.Writer) {
		w.Int32(int32(len(c.order)))

		for _, f := range c.order {
			fault.Write(w, f)
		}
	})
}

func readFaults(r *wire.Reader) *Faults {
	c := NewFaults()

	n := r.Count()
	for range n {
		f := fault.Read(r)
		if r.Err() != nil {
			break
		}

		c.Add(f)
	}

	return c
}
