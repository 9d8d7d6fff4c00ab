package fault

import (
	"bytes"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	m "gooze.dev/pkg/testbench/internal/model"
	"gooze.dev/pkg/testbench/pkg/wire"
)

func TestCodec_RoundTrip(t *testing.T) {
	tests := []struct {
		name    string
		failure *m.Failure
	}{
		{"no cause", &m.Failure{Type: "app.A", Message: "msg", Stack: distinctFrames("app.S", 3)}},
		{"cause with message", failureWithStack("boom", distinctFrames("app.S", 2))},
		{"cause without message", &m.Failure{Type: "app.A", Cause: &m.Failure{Type: "app.B"}}},
		{"empty stack", &m.Failure{Type: "app.A"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := New(tt.failure, "")

			data, err := f.MarshalBinary()
			require.NoError(t, err)

			got, err := Unmarshal(data)
			require.NoError(t, err)

			assert.True(t, f.Equal(got))
			assert.Equal(t, f.Message(), got.Message())

			cm, ok := f.CauseMessage()
			gcm, gok := got.CauseMessage()
			assert.Equal(t, ok, gok)
			assert.Equal(t, cm, gcm)
		})
	}
}

func TestCodec_Layout(t *testing.T) {
	f := New(&m.Failure{
		Type:    "E",
		Message: "m",
		Stack:   []m.Frame{{Unit: "U", Member: "f", Source: "s", Line: 7}},
		Cause:   &m.Failure{Type: "C"},
	}, "")

	data, err := f.MarshalBinary()
	require.NoError(t, err)

	want := []byte{
		0, 1, 'E',
		0, 1, 'm',
		0, 1, // stack length
		0, 1, 'U', 0, 1, 'f', 0, 1, 's', 0, 0, 0, 7,
		1,         // cause present
		0, 1, 'C', // cause type
		0, // no cause message
	}
	assert.Equal(t, want, data)
}

func TestCodec_StackLengthBound(t *testing.T) {
	largest := New(&m.Failure{Type: "app.Deep", Stack: distinctFrames("app.S", 32767)}, "")

	data, err := largest.MarshalBinary()
	require.NoError(t, err)

	got, err := Unmarshal(data)
	require.NoError(t, err)
	assert.True(t, largest.Equal(got))

	tooDeep := New(&m.Failure{Type: "app.Deep", Stack: distinctFrames("app.S", 32768)}, "")

	_, err = tooDeep.MarshalBinary()
	require.ErrorIs(t, err, wire.ErrCountOverflow)
}

func TestCodec_TruncatedInput(t *testing.T) {
	f := New(failureWithStack("boom", distinctFrames("app.S", 3)), "")

	data, err := f.MarshalBinary()
	require.NoError(t, err)

	_, err = Unmarshal(data[:len(data)-3])
	require.Error(t, err)
}

func TestCodec_SequentialRecords(t *testing.T) {
	a := New(failureWithStack("a", distinctFrames("app.A", 2)), "")
	b := New(&m.Failure{Type: "app.B"}, "")

	var buf bytes.Buffer

	w := wire.NewWriter(&buf)
	Write(w, a)
	Write(w, b)
	require.NoError(t, w.Err())

	r := wire.NewReader(&buf)
	assert.True(t, a.Equal(Read(r)))
	assert.True(t, b.Equal(Read(r)))
	require.NoError(t, r.Err())
}

func TestCodec_RoundTripProperty(t *testing.T) {
	properties := gopter.NewProperties(gopter.DefaultTestParameters())

	properties.Property("decode(encode(f)) equals f", prop.ForAll(
		func(ids []int, message string, withCause bool) bool {
			failure := &m.Failure{Type: "app.Failure", Message: message, Stack: framesFromInts(ids)}
			if withCause {
				failure.Cause = &m.Failure{Type: "app.Cause", Message: message}
			}

			f := New(failure, "")

			data, err := f.MarshalBinary()
			if err != nil {
				return false
			}

			got, err := Unmarshal(data)

			return err == nil && f.Equal(got) && got.Message() == message
		},
		gen.SliceOf(gen.IntRange(0, 20)),
		gen.AlphaString(),
		gen.Bool(),
	))

	properties.TestingRun(t)
}
