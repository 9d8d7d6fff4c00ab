package coverage

import (
	"fmt"
	"sort"
	"strings"

	"github.com/bits-and-blooms/bitset"

	m "gooze.dev/pkg/testbench/internal/model"
	"gooze.dev/pkg/testbench/pkg/wire"
)

const (
	// MutationKey is the key of mutation coverage.
	MutationKey = "mut"
	// MutationName is the display name of mutation coverage.
	MutationName = "mutation score"
)

// MutationSingle is the mutation result of one unit.
type MutationSingle struct {
	maxMutants   int
	notExecuted  *bitset.BitSet
	killed       *bitset.BitSet
	inconclusive *bitset.BitSet
	alive        map[uint]m.Elapsed
	initialized  bool
}

// NewMutationSingle returns an empty result for a unit with maxMutants mutants.
func NewMutationSingle(maxMutants int) *MutationSingle {
	return &MutationSingle{
		maxMutants:   maxMutants,
		notExecuted:  bitset.New(0),
		killed:       bitset.New(0),
		inconclusive: bitset.New(0),
		alive:        map[uint]m.Elapsed{},
		initialized:  true,
	}
}

func emptyMutationSingle() *MutationSingle {
	s := NewMutationSingle(0)
	s.initialized = false

	return s
}

// MutationSingleFromReport classifies the outcomes of an analyzed unit.
func MutationSingleFromReport(report m.UnitReport) *MutationSingle {
	s := NewMutationSingle(report.MaxMutants)

	for _, o := range report.Outcomes {
		if o.Index <= 0 {
			continue
		}

		switch o.Status {
		case m.NotExecuted:
			s.SetNotExecuted(o.Index)
		case m.Alive:
			s.SetAlive(o.Index, o.Elapsed)
		case m.Killed:
			s.SetKilled(o.Index)
		case m.Inconclusive:
			s.SetInconclusive(o.Index)
		}
	}

	return s
}

// SetNotExecuted marks mutant index as never reached.
func (s *MutationSingle) SetNotExecuted(index int) {
	s.clear(index)
	s.notExecuted.Set(uint(index))
}

// SetKilled marks mutant index as killed.
func (s *MutationSingle) SetKilled(index int) {
	s.clear(index)
	s.killed.Set(uint(index))
}

// SetInconclusive marks mutant index as errored or timed out.
func (s *MutationSingle) SetInconclusive(index int) {
	s.clear(index)
	s.inconclusive.Set(uint(index))
}

// SetAlive marks mutant index as survived after elapsed milliseconds.
func (s *MutationSingle) SetAlive(index int, elapsed m.Elapsed) {
	s.clear(index)
	s.alive[uint(index)] = elapsed
}

func (s *MutationSingle) clear(index int) {
	s.initialized = true

	if index > s.maxMutants {
		s.maxMutants = index
	}

	i := uint(index)
	s.notExecuted.Clear(i)
	s.killed.Clear(i)
	s.inconclusive.Clear(i)
	delete(s.alive, i)
}

// MaxMutants returns the number of mutants of the unit.
func (s *MutationSingle) MaxMutants() int { return s.maxMutants }

// Killed returns the number of killed mutants.
func (s *MutationSingle) Killed() int { return int(s.killed.Count()) }

// Alive returns the number of mutants that survived.
func (s *MutationSingle) Alive() int { return len(s.alive) }

// Inconclusive returns the number of errored or timed-out mutants.
func (s *MutationSingle) Inconclusive() int { return int(s.inconclusive.Count()) }

// NotExecuted returns the number of mutants the programs never reached.
func (s *MutationSingle) NotExecuted() int { return int(s.notExecuted.Count()) }

// AliveElapsed returns the elapsed time recorded for an alive mutant.
func (s *MutationSingle) AliveElapsed(index int) (m.Elapsed, bool) {
	e, ok := s.alive[uint(index)]

	return e, ok
}

// IsKilled reports whether mutant index is killed.
func (s *MutationSingle) IsKilled(index int) bool { return index > 0 && s.killed.Test(uint(index)) }

// Quality is killed / (killed + alive). Inconclusive and not-executed
// mutants are left out; an empty denominator scores zero.
func (s *MutationSingle) Quality() float64 {
	killed := s.killed.Count()
	den := killed + uint(len(s.alive))

	if den == 0 {
		return 0
	}

	return float64(killed) / float64(den)
}

// Contains is true when s killed every mutant other killed and scores at
// least as well.
func (s *MutationSingle) Contains(other *MutationSingle) bool {
	if other == nil || !other.initialized {
		return true
	}

	if !s.initialized {
		return false
	}

	return s.killed.IsSuperSet(other.killed) && s.Quality() >= other.Quality()
}

// Merge joins other into s. A kill is never lost; alive keeps the longest
// elapsed time; inconclusive and not-executed give way to any stronger
// classification.
func (s *MutationSingle) Merge(other *MutationSingle) {
	if other == nil || !other.initialized || other == s {
		return
	}

	if !s.initialized {
		s.copyFrom(other)

		return
	}

	s.maxMutants = max(s.maxMutants, other.maxMutants)
	s.killed.InPlaceUnion(other.killed)

	for i, e := range other.alive {
		if cur, ok := s.alive[i]; !ok || e > cur {
			s.alive[i] = e
		}
	}

	for i := range s.alive {
		if s.killed.Test(i) {
			delete(s.alive, i)
		}
	}

	s.inconclusive.InPlaceUnion(other.inconclusive)
	s.inconclusive.InPlaceDifference(s.killed)

	s.notExecuted.InPlaceUnion(other.notExecuted)
	s.notExecuted.InPlaceDifference(s.killed)
	s.notExecuted.InPlaceDifference(s.inconclusive)

	for i := range s.alive {
		s.inconclusive.Clear(i)
		s.notExecuted.Clear(i)
	}
}

func (s *MutationSingle) copyFrom(other *MutationSingle) {
	s.maxMutants = other.maxMutants
	s.notExecuted = other.notExecuted.Clone()
	s.killed = other.killed.Clone()
	s.inconclusive = other.inconclusive.Clone()
	s.alive = make(map[uint]m.Elapsed, len(other.alive))

	for i, e := range other.alive {
		s.alive[i] = e
	}

	s.initialized = true
}

// Clone deep-copies s.
func (s *MutationSingle) Clone() *MutationSingle {
	c := emptyMutationSingle()
	if s.initialized {
		c.copyFrom(s)
	}

	return c
}

func (s *MutationSingle) String() string {
	return fmt.Sprintf("%d killed, %d alive, %d inconclusive, %d not executed of %d",
		s.Killed(), s.Alive(), s.Inconclusive(), s.NotExecuted(), s.maxMutants)
}

func (s *MutationSingle) write(w *wire.Writer) {
	w.Int32(int32(s.maxMutants))
	writeIndexSet(w, s.notExecuted)
	writeIndexSet(w, s.killed)
	writeIndexSet(w, s.inconclusive)

	indices := make([]uint, 0, len(s.alive))
	for i := range s.alive {
		indices = append(indices, i)
	}

	sort.Slice(indices, func(a, b int) bool { return indices[a] < indices[b] })

	w.Int32(int32(len(indices)))

	for _, i := range indices {
		w.Int32(int32(i))
		w.Int64(int64(s.alive[i]))
	}
}

func readMutationSingle(r *wire.Reader) *MutationSingle {
	s := NewMutationSingle(int(r.Int32()))
	s.notExecuted = readIndexSet(r)
	s.killed = readIndexSet(r)
	s.inconclusive = readIndexSet(r)

	n := r.Count()
	for range n {
		i := r.Int32()
		e := r.Int64()

		if r.Err() != nil {
			break
		}

		s.alive[uint(i)] = m.Elapsed(e)
	}

	return s
}

func writeIndexSet(w *wire.Writer, set *bitset.BitSet) {
	w.Int32(int32(set.Count()))

	for i, ok := set.NextSet(0); ok; i, ok = set.NextSet(i + 1) {
		w.Int32(int32(i))
	}
}

func readIndexSet(r *wire.Reader) *bitset.BitSet {
	set := bitset.New(0)

	n := r.Count()
	for range n {
		i := r.Int32()
		if r.Err() != nil {
			break
		}

		if i < 0 {
			r.Fail(fmt.Errorf("negative mutant index %d", i))

			break
		}

		set.Set(uint(i))
	}

	return set
}

// Mutation is the mutation coverage of several units. Its quality is the
// mean of the per-unit kill ratios.
type Mutation struct {
	units map[string]*MutationSingle
}

// NewMutation returns empty mutation coverage.
func NewMutation() *Mutation {
	return &Mutation{units: map[string]*MutationSingle{}}
}

// Put merges single into the result of unit.
func (c *Mutation) Put(unit string, single *MutationSingle) {
	if single == nil {
		return
	}

	if cur, ok := c.units[unit]; ok {
		cur.Merge(single)

		return
	}

	c.units[unit] = single.Clone()
}

// Unit returns the result of unit.
func (c *Mutation) Unit(unit string) (*MutationSingle, bool) {
	s, ok := c.units[unit]

	return s, ok
}

// Units returns the unit names in sorted order.
func (c *Mutation) Units() []string {
	names := make([]string, 0, len(c.units))
	for name := range c.units {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}

// Key implements Information.
func (c *Mutation) Key() string { return MutationKey }

// Name implements Information.
func (c *Mutation) Name() string { return MutationName }

// Quality implements Information.
func (c *Mutation) Quality() float64 {
	if len(c.units) == 0 {
		return 0
	}

	total := 0.0
	for _, s := range c.units {
		total += s.Quality()
	}

	return total / float64(len(c.units))
}

// Contains implements Information. It requires c to hold strictly more units
// than other, to score at least as well, and to contain other's result for
// every unit other holds.
func (c *Mutation) Contains(other Information) bool {
	o, ok := other.(*Mutation)
	if !ok {
		return false
	}

	// TODO: an equal unit count with superset evidence is rejected; decide whether to relax to >=.
	if len(c.units) <= len(o.units) {
		return false
	}

	if c.Quality() < o.Quality() {
		return false
	}

	for name, theirs := range o.units {
		mine, ok := c.units[name]
		if !ok || !mine.Contains(theirs) {
			return false
		}
	}

	return true
}

// Merge implements Information.
func (c *Mutation) Merge(other Information) {
	o, ok := other.(*Mutation)
	if !ok || o == c {
		return
	}

	for name, s := range o.units {
		c.Put(name, s)
	}
}

// CreateEmpty implements Information.
func (c *Mutation) CreateEmpty() Information { return NewMutation() }

// Clone implements Information.
func (c *Mutation) Clone() Information {
	clone := NewMutation()
	clone.Merge(c)

	return clone
}

func (c *Mutation) String() string {
	var b strings.Builder

	for _, name := range c.Units() {
		fmt.Fprintf(&b, "%s: %s\n", name, c.units[name])
	}

	return b.String()
}

// MarshalBinary writes the unit count, then each unit name followed by its
// result.
func (c *Mutation) MarshalBinary() ([]byte, error) {
	return marshal(func(w *wire.Writer) {
		w.Count16(len(c.units))

		for _, name := range c.Units() {
			w.String(name)
			c.units[name].write(w)
		}
	})
}

func readMutation(r *wire.Reader) *Mutation {
	c := NewMutation()

	n := int(r.Int16())
	for range n {
		name := r.String()
		s := readMutationSingle(r)

		if r.Err() != nil {
			break
		}

		c.units[name] = s
	}

	return c
}
