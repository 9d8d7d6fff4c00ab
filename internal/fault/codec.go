package fault

import (
	"bytes"
	"fmt"

	m "gooze.dev/pkg/testbench/internal/model"
	"gooze.dev/pkg/testbench/pkg/wire"
)

// Write encodes f: type, message, stack length and frames, then the cause
// flag, the cause type and the optional cause message. A stack longer than a
// 16-bit count fails w with wire.ErrCountOverflow.
func Write(w *wire.Writer, f Fault) {
	w.String(f.typeName)
	w.String(f.message)
	w.Count16(len(f.stack))

	for _, frame := range f.stack {
		w.String(frame.Unit)
		w.String(frame.Member)
		w.String(frame.Source)
		w.Int32(frame.Line)
	}

	w.Bool(f.hasCause)

	if f.hasCause {
		w.String(f.causeType)
		w.Bool(f.hasCauseMsg)

		if f.hasCauseMsg {
			w.String(f.causeMessage)
		}
	}
}

// Read decodes a fault written by Write.
func Read(r *wire.Reader) Fault {
	typeName := r.String()
	message := r.String()

	n := int(r.Int16())
	if n < 0 {
		r.Fail(fmt.Errorf("fault: negative stack length %d", n))
		n = 0
	}

	stack := make([]m.Frame, 0, n)
	for range n {
		stack = append(stack, m.Frame{
			Unit:   r.String(),
			Member: r.String(),
			Source: r.String(),
			Line:   r.Int32(),
		})
	}

	var (
		causeType, causeMessage string
		hasCauseMsg             bool
	)

	hasCause := r.Bool()
	if hasCause {
		causeType = r.String()

		hasCauseMsg = r.Bool()
		if hasCauseMsg {
			causeMessage = r.String()
		}
	}

	return newDecoded(typeName, message, stack, hasCause, causeType, hasCauseMsg, causeMessage)
}

// MarshalBinary implements encoding.BinaryMarshaler.
func (f Fault) MarshalBinary() ([]byte, error) {
	var buf bytes.Buffer

	w := wire.NewWriter(&buf)
	Write(w, f)

	if err := w.Err(); err != nil {
		return nil, fmt.Errorf("failed to encode fault: %w", err)
	}

	return buf.Bytes(), nil
}

// Unmarshal decodes a fault produced by MarshalBinary.
func Unmarshal(data []byte) (Fault, error) {
	r := wire.NewReader(bytes.NewReader(data))

	f := Read(r)
	if err := r.Err(); err != nil {
		return Fault{}, fmt.Errorf("failed to decode fault: %w", err)
	}

	return f, nil
}
