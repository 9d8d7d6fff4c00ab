// Package coverage implements the coverage-information lattice: mergeable,
// comparable summaries of testing evidence with a scalar quality.
package coverage

import (
	"bytes"
	"fmt"
	"sort"

	"gooze.dev/pkg/testbench/pkg/wire"
)

// Information is a summary of testing evidence.
//
// Merge is a commutative, idempotent join with CreateEmpty as identity.
// Contains is true when the receiver's evidence is a superset of other's; it
// is used to discard test programs whose coverage is already dominated.
type Information interface {
	Key() string
	Name() string
	Quality() float64
	Contains(other Information) bool
	Merge(other Information)
	CreateEmpty() Information
	Clone() Information
	MarshalBinary() ([]byte, error)
}

// Decode rebuilds the Information stored under key.
func Decode(key string, data []byte) (Information, error) {
	r := wire.NewReader(bytes.NewReader(data))

	var info Information

	switch key {
	case DefExposureKey:
		info = readDefExposure(r)
	case MutationKey:
		info = readMutation(r)
	case FaultsKey:
		info = readFaults(r)
	default:
		return nil, fmt.Errorf("unknown coverage key %q", key)
	}

	if err := r.Err(); err != nil {
		return nil, fmt.Errorf("failed to decode %s coverage: %w", key, err)
	}

	return info, nil
}

func marshal(encode func(w *wire.Writer)) ([]byte, error) {
	var buf bytes.Buffer

	w := wire.NewWriter(&buf)
	encode(w)

	if err := w.Err(); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

// Set holds at most one Information per key.
type Set map[string]Information

// NewSet returns a set holding infos.
func NewSet(infos ...Information) Set {
	s := Set{}
	for _, info := range infos {
		s.Put(info)
	}

	return s
}

// Put merges info into the entry with the same key.
func (s Set) Put(info Information) {
	if info == nil {
		return
	}

	current, ok := s[info.Key()]
	if !ok {
		current = info.CreateEmpty()
		s[info.Key()] = current
	}

	current.Merge(info)
}

// Merge merges every entry of other into s.
func (s Set) Merge(other Set) {
	for _, info := range other {
		s.Put(info)
	}
}

// Contains reports whether every entry of other is contained by the entry of
// s with the same key.
func (s Set) Contains(other Set) bool {
	for key, info := range other {
		mine, ok := s[key]
		if !ok || !mine.Contains(info) {
			return false
		}
	}

	return true
}

// Quality sums the qualities of all entries.
func (s Set) Quality() float64 {
	total := 0.0
	for _, info := range s {
		total += info.Quality()
	}

	return total
}

// Keys returns the keys in sorted order.
func (s Set) Keys() []string {
	keys := make([]string, 0, len(s))
	for key := range s {
		keys = append(keys, key)
	}

	sort.Strings(keys)

	return keys
}

// Clone deep-copies the set.
func (s Set) Clone() Set {
	c := make(Set, len(s))
	for key, info := range s {
		c[key] = info.Clone()
	}

	return c
}

// MarshalBinary encodes the set as an entry count followed by
// (key, payload length, payload) records in key order.
func (s Set) MarshalBinary() ([]byte, error) {
	payloads := make(map[string][]byte, len(s))

	for key, info := range s {
		data, err := info.MarshalBinary()
		if err != nil {
			return nil, fmt.Errorf("failed to encode %s coverage: %w", key, err)
		}

		payloads[key] = data
	}

	return marshal(func(w *wire.Writer) {
		w.Count16(len(s))

		for _, key := range s.Keys() {
			w.String(key)
			w.Bytes(payloads[key])
		}
	})
}

// UnmarshalSet decodes a set produced by Set.MarshalBinary.
func UnmarshalSet(data []byte) (Set, error) {
	r := wire.NewReader(bytes.NewReader(data))

	n := int(r.Int16())
	s := Set{}

	for range n {
		key := r.String()
		payload := r.Bytes()

		if err := r.Err(); err != nil {
			return nil, fmt.Errorf("failed to decode coverage set: %w", err)
		}

		info, err := Decode(key, payload)
		if err != nil {
			return nil, err
		}

		s[key] = info
	}

	if err := r.Err(); err != nil {
		return nil, fmt.Errorf("failed to decode coverage set: %w", err)
	}

	return s, nil
}
