// Package wire implements the big-endian binary primitives shared by every
// persisted and cross-process format: fixed-width integers, booleans and
// length-prefixed UTF-8 strings.
//
// Writer and Reader keep the first error they hit and turn every later call
// into a no-op, so codecs can write a whole record and check Err once.
package wire

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
)

// MaxStringLen is the largest string a length prefix can describe.
const MaxStringLen = math.MaxUint16

// ErrStringTooLong is returned when a string does not fit its 16-bit prefix.
var ErrStringTooLong = errors.New("wire: string exceeds 65535 bytes")

// ErrCountOverflow is returned when a count does not fit its 16-bit field.
var ErrCountOverflow = errors.New("wire: count exceeds 32767")

// Writer encodes primitives to an io.Writer.
type Writer struct {
	w   io.Writer
	err error
	buf [8]byte
}

// NewWriter returns a Writer on w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// Err returns the first error encountered.
func (w *Writer) Err() error {
	return w.err
}

func (w *Writer) write(p []byte) {
	if w.err != nil {
		return
	}

	_, w.err = w.w.Write(p)
}

// Bool writes a single byte, 1 for true.
func (w *Writer) Bool(v bool) {
	w.buf[0] = 0
	if v {
		w.buf[0] = 1
	}

	w.write(w.buf[:1])
}

// Int16 writes a signed 16-bit integer.
func (w *Writer) Int16(v int16) {
	binary.BigEndian.PutUint16(w.buf[:2], uint16(v))
	w.write(w.buf[:2])
}

// Count16 writes n as a 16-bit count, failing the writer when n does not fit.
func (w *Writer) Count16(n int) {
	if w.err != nil {
		return
	}

	if n < 0 || n > math.MaxInt16 {
		w.err = fmt.Errorf("%w: %d", ErrCountOverflow, n)
		return
	}

	w.Int16(int16(n))
}

// Int32 writes a signed 32-bit integer.
func (w *Writer) Int32(v int32) {
	binary.BigEndian.PutUint32(w.buf[:4], uint32(v))
	w.write(w.buf[:4])
}

// Int64 writes a signed 64-bit integer.
func (w *Writer) Int64(v int64) {
	binary.BigEndian.PutUint64(w.buf[:8], uint64(v))
	w.write(w.buf[:8])
}

// String writes a 16-bit length followed by the bytes of s.
func (w *Writer) String(s string) {
	if w.err != nil {
		return
	}

	if len(s) > MaxStringLen {
		w.err = ErrStringTooLong
		return
	}

	binary.BigEndian.PutUint16(w.buf[:2], uint16(len(s)))
	w.write(w.buf[:2])
	w.write([]byte(s))
}

// Bytes writes p with a 32-bit length prefix.
func (w *Writer) Bytes(p []byte) {
	w.Int32(int32(len(p)))
	w.write(p)
}

// Reader decodes primitives from an io.Reader.
type Reader struct {
	r   io.Reader
	err error
	buf [8]byte
}

// NewReader returns a Reader on r.
func NewReader(r io.Reader) *Reader {
	return &Reader{r: r}
}

// Err returns the first error encountered.
func (r *Reader) Err() error {
	return r.err
}

// Fail records err unless an earlier error is already recorded. Codecs use
// it to report semantic violations found while decoding.
func (r *Reader) Fail(err error) {
	if r.err == nil {
		r.err = err
	}
}

func (r *Reader) read(n int) []byte {
	if r.err != nil {
		return nil
	}

	if _, err := io.ReadFull(r.r, r.buf[:n]); err != nil {
		r.err = fmt.Errorf("wire: read %d bytes: %w", n, err)
		return nil
	}

	return r.buf[:n]
}

// Bool reads a boolean byte.
func (r *Reader) Bool() bool {
	b := r.read(1)
	if b == nil {
		return false
	}

	return b[0] != 0
}

// Int16 reads a signed 16-bit integer.
func (r *Reader) Int16() int16 {
	b := r.read(2)
	if b == nil {
		return 0
	}

	return int16(binary.BigEndian.Uint16(b))
}

// Int32 reads a signed 32-bit integer.
func (r *Reader) Int32() int32 {
	b := r.read(4)
	if b == nil {
		return 0
	}

	return int32(binary.BigEndian.Uint32(b))
}

// Int64 reads a signed 64-bit integer.
func (r *Reader) Int64() int64 {
	b := r.read(8)
	if b == nil {
		return 0
	}

	return int64(binary.BigEndian.Uint64(b))
}

// String reads a length-prefixed string.
func (r *Reader) String() string {
	b := r.read(2)
	if b == nil {
		return ""
	}

	n := int(binary.BigEndian.Uint16(b))
	data := make([]byte, n)

	if _, err := io.ReadFull(r.r, data); err != nil {
		r.err = fmt.Errorf("wire: read string of %d bytes: %w", n, err)
		return ""
	}

	return string(data)
}

// Bytes reads a 32-bit length-prefixed byte slice.
func (r *Reader) Bytes() []byte {
	n := r.Count()
	if r.err != nil {
		return nil
	}

	var buf bytes.Buffer
	if _, err := io.CopyN(&buf, r.r, int64(n)); err != nil {
		r.err = fmt.Errorf("wire: read %d payload bytes: %w", n, err)
		return nil
	}

	return buf.Bytes()
}

// Count reads a non-negative int32 count, failing on negative values.
func (r *Reader) Count() int {
	n := r.Int32()
	if n < 0 {
		r.Fail(fmt.Errorf("wire: negative count %d", n))
		return 0
	}

	return int(n)
}
