package loader

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	m "gooze.dev/pkg/testbench/internal/model"
)

var (
	// ErrMemberNotFound is returned when a unit has no matching member.
	ErrMemberNotFound = errors.New("member not found")
	// ErrAmbiguousMember is returned when a descriptor matches several members.
	ErrAmbiguousMember = errors.New("ambiguous member")
)

// DescriptorKind is the kind of entity a Descriptor names.
type DescriptorKind int

const (
	// KindUnit names a whole unit.
	KindUnit DescriptorKind = iota
	// KindField names a field of a unit.
	KindField
	// KindMethod names a method of a unit.
	KindMethod
	// KindConstructor names a constructor of a unit.
	KindConstructor
)

func (k DescriptorKind) String() string {
	switch k {
	case KindUnit:
		return "unit"
	case KindField:
		return "field"
	case KindMethod:
		return "method"
	case KindConstructor:
		return "constructor"
	}

	return "unknown"
}

// Descriptor names a unit or one of its members. Params selects among
// overloads by parameter type; nil matches any signature.
type Descriptor struct {
	Kind   DescriptorKind
	Unit   string
	Name   string
	Params []string
}

func (d Descriptor) key() string {
	params := "*"
	if d.Params != nil {
		params = "(" + strings.Join(d.Params, ",") + ")"
	}

	return fmt.Sprintf("%d|%s|%s|%s", d.Kind, d.Unit, d.Name, params)
}

func (d Descriptor) String() string {
	if d.Kind == KindUnit {
		return d.Unit
	}

	return d.Unit + "." + d.Name
}

// Handle is a resolved Descriptor.
type Handle struct {
	Descriptor  Descriptor
	Unit        *m.Unit
	Field       string
	Method      *m.Method
	Constructor *m.Constructor
	// FirstMutant is the index of the method's first mutation point in the
	// unit, counting from 1 in manifest order.
	FirstMutant int
}

type resolver func(unit *m.Unit, d Descriptor) (Handle, error)

var resolvers = map[DescriptorKind]resolver{
	KindUnit:        resolveUnit,
	KindField:       resolveField,
	KindMethod:      resolveMethod,
	KindConstructor: resolveConstructor,
}

// Lookup resolves d, caching the handle in the context.
func (c *Context) Lookup(ctx context.Context, d Descriptor) (Handle, error) {
	resolve, ok := resolvers[d.Kind]
	if !ok {
		return Handle{}, fmt.Errorf("unsupported descriptor kind %d", d.Kind)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	key := d.key()
	if h, ok := c.handles[key]; ok {
		return h, nil
	}

	unit, err := c.resolveLocked(ctx, d.Unit)
	if err != nil {
		return Handle{}, err
	}

	h, err := resolve(unit, d)
	if err != nil {
		return Handle{}, err
	}

	h.Descriptor = d
	h.Unit = unit
	c.handles[key] = h

	return h, nil
}

func manifestOf(unit *m.Unit, d Descriptor) (*m.Manifest, error) {
	if unit.Manifest == nil {
		return nil, fmt.Errorf("%s %s: unit has no members: %w", d.Kind, d, ErrMemberNotFound)
	}

	return unit.Manifest, nil
}

func resolveUnit(_ *m.Unit, _ Descriptor) (Handle, error) {
	return Handle{}, nil
}

func resolveField(unit *m.Unit, d Descriptor) (Handle, error) {
	manifest, err := manifestOf(unit, d)
	if err != nil {
		return Handle{}, err
	}

	if _, ok := manifest.Fields[d.Name]; !ok {
		return Handle{}, fmt.Errorf("field %s: %w", d, ErrMemberNotFound)
	}

	return Handle{Field: d.Name}, nil
}

func resolveMethod(unit *m.Unit, d Descriptor) (Handle, error) {
	manifest, err := manifestOf(unit, d)
	if err != nil {
		return Handle{}, err
	}

	var (
		found  *m.Method
		first  int
		count  int
		offset = 1
	)

	for i := range manifest.Methods {
		method := &manifest.Methods[i]

		if method.Name == d.Name && (d.Params == nil || slices.Equal(m.ParamTypes(method.Params), d.Params)) {
			if found == nil {
				found, first = method, offset
			}

			count++
		}

		offset += len(method.Mutants)
	}

	switch {
	case count == 0:
		return Handle{}, fmt.Errorf("method %s%s: %w", d, signature(d.Params), ErrMemberNotFound)
	case count > 1:
		return Handle{}, fmt.Errorf("method %s matches %d overloads: %w", d, count, ErrAmbiguousMember)
	}

	return Handle{Method: found, FirstMutant: first}, nil
}

func resolveConstructor(unit *m.Unit, d Descriptor) (Handle, error) {
	manifest, err := manifestOf(unit, d)
	if err != nil {
		return Handle{}, err
	}

	if len(manifest.Constructors) == 0 && len(d.Params) == 0 {
		return Handle{Constructor: &m.Constructor{}}, nil
	}

	var matches []*m.Constructor

	for i := range manifest.Constructors {
		ctor := &manifest.Constructors[i]
		if d.Params == nil || slices.Equal(m.ParamTypes(ctor.Params), d.Params) {
			matches = append(matches, ctor)
		}
	}

	switch len(matches) {
	case 0:
		return Handle{}, fmt.Errorf("constructor %s%s: %w", d.Unit, signature(d.Params), ErrMemberNotFound)
	case 1:
		return Handle{Constructor: matches[0]}, nil
	}

	return Handle{}, fmt.Errorf("constructor of %s matches %d overloads: %w", d.Unit, len(matches), ErrAmbiguousMember)
}

func signature(params []string) string {
	if params == nil {
		return ""
	}

	return "(" + strings.Join(params, ", ") + ")"
}
