package coverage

import (
	"fmt"
	"strconv"
	"strings"

	"gooze.dev/pkg/testbench/pkg/wire"
)

const (
	// DefExposureKey is the key of DefExposure coverage.
	DefExposureKey = "de"
	// DefExposureName is the display name of DefExposure coverage.
	DefExposureName = "Def-Exposition"
)

// Stack is a calling context: the ids of the active calls, outermost first.
type Stack []int32

func (s Stack) key() string {
	var b strings.Builder
	for i, id := range s {
		if i > 0 {
			b.WriteByte('.')
		}

		b.WriteString(strconv.FormatInt(int64(id), 10))
	}

	return b.String()
}

func (s Stack) String() string {
	return "[" + s.key() + "]"
}

// ContextualID is a definition id together with the context it was made in.
type ContextualID struct {
	ID      int32
	Context Stack
}

func (c ContextualID) key() string {
	return strconv.FormatInt(int64(c.ID), 10) + "@" + c.Context.key()
}

type exposureEntry struct {
	stack  Stack
	values map[string]ContextualID
	order  []string
}

// DefExposure records which definitions were exposed in which calling
// context. Its quality is the total number of (context, definition) pairs.
type DefExposure struct {
	entries map[string]*exposureEntry
	order   []string
	quality int
}

// NewDefExposure returns empty DefExposure coverage.
func NewDefExposure() *DefExposure {
	return &DefExposure{entries: map[string]*exposureEntry{}}
}

// Add records that id was exposed in stack. It returns false when the pair
// was already known.
func (d *DefExposure) Add(stack Stack, id ContextualID) bool {
	k := stack.key()

	entry, ok := d.entries[k]
	if !ok {
		entry = &exposureEntry{stack: append(Stack(nil), stack...), values: map[string]ContextualID{}}
		d.entries[k] = entry
		d.order = append(d.order, k)
	}

	vk := id.key()
	if _, seen := entry.values[vk]; seen {
		return false
	}

	entry.values[vk] = ContextualID{ID: id.ID, Context: append(Stack(nil), id.Context...)}
	entry.order = append(entry.order, vk)
	d.quality++

	return true
}

// Exposed returns the definitions exposed in stack.
func (d *DefExposure) Exposed(stack Stack) []ContextualID {
	entry, ok := d.entries[stack.key()]
	if !ok {
		return nil
	}

	ids := make([]ContextualID, 0, len(entry.order))
	for _, vk := range entry.order {
		ids = append(ids, entry.values[vk])
	}

	return ids
}

// Len returns the number of distinct contexts.
func (d *DefExposure) Len() int {
	return len(d.order)
}

// Key implements Information.
func (d *DefExposure) Key() string { return DefExposureKey }

// Name implements Information.
func (d *DefExposure) Name() string { return DefExposureName }

// Quality implements Information.
func (d *DefExposure) Quality() float64 { return float64(d.quality) }

// Contains implements Information.
func (d *DefExposure) Contains(other Information) bool {
	o, ok := other.(*DefExposure)
	if !ok {
		return false
	}

	if d.quality < o.quality {
		return false
	}

	for k, theirs := range o.entries {
		mine, ok := d.entries[k]
		if !ok {
			return false
		}

		for vk := range theirs.values {
			if _, ok := mine.values[vk]; !ok {
				return false
			}
		}
	}

	return true
}

// Merge implements Information.
func (d *DefExposure) Merge(other Information) {
	o, ok := other.(*DefExposure)
	if !ok || o == d {
		return
	}

	for _, k := range o.order {
		entry := o.entries[k]
		for _, vk := range entry.order {
			d.Add(entry.stack, entry.values[vk])
		}
	}
}

// CreateEmpty implements Information.
func (d *DefExposure) CreateEmpty() Information { return NewDefExposure() }

// Clone implements Information.
func (d *DefExposure) Clone() Information {
	c := NewDefExposure()
	c.Merge(d)

	return c
}

func (d *DefExposure) String() string {
	var b strings.Builder

	for _, k := range d.order {
		entry := d.entries[k]
		fmt.Fprintf(&b, "stack:%s\ndefs:", entry.stack)

		for i, vk := range entry.order {
			if i > 0 {
				b.WriteString(", ")
			}

			v := entry.values[vk]
			fmt.Fprintf(&b, "%d%s", v.ID, v.Context)
		}

		b.WriteString("\n")
	}

	return b.String()
}

// MarshalBinary writes the quality, the entry count, then each context stack
// followed by its exposed definitions.
func (d *DefExposure) MarshalBinary() ([]byte, error) {
	return marshal(func(w *wire.Writer) {
		w.Int32(int32(d.quality))
		w.Int32(int32(len(d.order)))

		for _, k := range d.order {
			entry := d.entries[k]
			writeStack(w, entry.stack)
			w.Int32(int32(len(entry.order)))

			for _, vk := range entry.order {
				v := entry.values[vk]
				w.Int32(v.ID)
				writeStack(w, v.Context)
			}
		}
	})
}

func readDefExposure(r *wire.Reader) *DefExposure {
	d := NewDefExposure()
	quality := r.Int32()

	entries := r.Count()
	for range entries {
		stack := readStack(r)

		values := r.Count()
		for range values {
			id := r.Int32()
			d.Add(stack, ContextualID{ID: id, Context: readStack(r)})
		}

		if r.Err() != nil {
			return d
		}
	}

	if r.Err() == nil && int(quality) != d.quality {
		r.Fail(fmt.Errorf("def-exposure quality %d does not match %d decoded pairs", quality, d.quality))
	}

	return d
}

func writeStack(w *wire.Writer, s Stack) {
	w.Int32(int32(len(s)))

	for _, id := range s {
		w.Int32(id)
	}
}

func readStack(r *wire.Reader) Stack {
	n := r.Count()
	s := Stack{}

	for range n {
		if r.Err() != nil {
			break
		}

		s = append(s, r.Int32())
	}

	return s
}
