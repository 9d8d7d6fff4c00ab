package coverage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gooze.dev/pkg/testbench/internal/fault"
	m "gooze.dev/pkg/testbench/internal/model"
)

func newFault(typeName, member string) fault.Fault {
	return fault.New(&m.Failure{
		Type:    typeName,
		Message: "boom",
		Stack:   []m.Frame{{Unit: "app.Account", Member: member, Source: "app.Account.yaml", Line: 3}},
	}, "")
}

func TestFaults_DeduplicatesByIdentity(t *testing.T) {
	c := NewFaults()

	assert.True(t, c.Add(newFault("app.Overdraft", "withdraw")))
	assert.False(t, c.Add(newFault("app.Overdraft", "withdraw")))
	assert.True(t, c.Add(newFault("app.Overdraft", "deposit")))

	assert.InDelta(t, 2.0, c.Quality(), 0)
	assert.Len(t, c.All(), 2)
}

func TestFaults_MergeAndContains(t *testing.T) {
	a := NewFaults()
	a.Add(newFault("app.Overdraft", "withdraw"))

	b := NewFaults()
	b.Add(newFault("app.Overdraft", "withdraw"))
	b.Add(newFault("app.Frozen", "deposit"))

	assert.False(t, a.Contains(b))
	assert.True(t, b.Contains(a))
	assert.True(t, a.Contains(a))

	a.Merge(b)
	a.Merge(b)

	assert.InDelta(t, 2.0, a.Quality(), 0)
	assert.True(t, a.Contains(b))
	assert.True(t, b.Contains(a))
}

func TestFaults_RoundTrip(t *testing.T) {
	c := NewFaults()
	c.Add(newFault("app.Overdraft", "withdraw"))
	c.Add(newFault("app.Frozen", "deposit"))

	data, err := c.MarshalBinary()
	require.NoError(t, err)

	got, err := Decode(FaultsKey, data)
	require.NoError(t, err)

	assert.True(t, got.Contains(c))
	assert.True(t, c.Contains(got))
	assert.Equal(t, c.String(), got.(*Faults).String())
}
