// Package bio provides byte-level big-endian I/O for PSD documents.
package bio

import (
	"encoding/binary"
	"errors"
)

// ErrUnexpectedEOF is returned when a read extends past the end of the input.
var ErrUnexpectedEOF = errors.New("unexpected end of file")

// Cursor reads big-endian values sequentially from an immutable byte slice.
// The position only moves forward; callers that parse optional or nested
// regions record the region's end offset and seek to it when done.
type Cursor struct {
	data []byte
	pos  int
}

// NewCursor creates a cursor over data.
func NewCursor(data []byte) *Cursor {
	return &Cursor{data: data}
}

// Pos returns the current byte offset.
func (c *Cursor) Pos() int {
	return c.pos
}

// Remaining returns the number of unread bytes.
func (c *Cursor) Remaining() int {
	return len(c.data) - c.pos
}

// ReadU8 reads one byte.
func (c *Cursor) ReadU8() (uint8, error) {
	if c.pos+1 > len(c.data) {
		return 0, ErrUnexpectedEOF
	}
	v := c.data[c.pos]
	c.pos++
	return v, nil
}

// ReadU16 reads a big-endian uint16.
func (c *Cursor) ReadU16() (uint16, error) {
	if c.pos+2 > len(c.data) {
		return 0, ErrUnexpectedEOF
	}
	v := binary.BigEndian.Uint16(c.data[c.pos:])
	c.pos += 2
	return v, nil
}

// ReadI16 reads a big-endian int16.
func (c *Cursor) ReadI16() (int16, error) {
	v, err := c.ReadU16()
	return int16(v), err
}

// ReadU32 reads a big-endian uint32.
func (c *Cursor) ReadU32() (uint32, error) {
	if c.pos+4 > len(c.data) {
		return 0, ErrUnexpectedEOF
	}
	v := binary.BigEndian.Uint32(c.data[c.pos:])
	c.pos += 4
	return v, nil
}

// ReadI32 reads a big-endian int32.
func (c *Cursor) ReadI32() (int32, error) {
	v, err := c.ReadU32()
	return int32(v), err
}

// ReadU64 reads a big-endian uint64.
func (c *Cursor) ReadU64() (uint64, error) {
	if c.pos+8 > len(c.data) {
		return 0, ErrUnexpectedEOF
	}
	v := binary.BigEndian.Uint64(c.data[c.pos:])
	c.pos += 8
	return v, nil
}

// ReadBytes returns the next n bytes without copying. The returned slice
// aliases the input and must be treated as read-only.
func (c *Cursor) ReadBytes(n int) ([]byte, error) {
	if n < 0 || c.pos+n > len(c.data) {
		return nil, ErrUnexpectedEOF
	}
	v := c.data[c.pos : c.pos+n]
	c.pos += n
	return v, nil
}

// Skip advances the cursor by n bytes.
func (c *Cursor) Skip(n int) error {
	if n < 0 || c.pos+n > len(c.data) {
		return ErrUnexpectedEOF
	}
	c.pos += n
	return nil
}

// SeekTo moves the cursor to an absolute offset, clamped to the input size.
func (c *Cursor) SeekTo(off int) {
	if off < 0 {
		off = 0
	}
	if off > len(c.data) {
		off = len(c.data)
	}
	c.pos = off
}

// Section runs fn over the next n bytes and then seeks to the end of the
// region regardless of how much fn consumed. Unparsed trailing bytes of the
// region are silently discarded; this is what makes unknown sub-records
// safe to skip.
func (c *Cursor) Section(n int, fn func() error) error {
	if n < 0 || c.pos+n > len(c.data) {
		return ErrUnexpectedEOF
	}
	end := c.pos + n
	err := fn()
	c.pos = end
	return err
}

// Writer builds a byte buffer of big-endian values. It is the encoding
// mirror of Cursor.
type Writer struct {
	buf []byte
}

// NewWriter creates an empty writer.
func NewWriter() *Writer {
	return &Writer{}
}

// Bytes returns the accumulated buffer.
func (w *Writer) Bytes() []byte {
	return w.buf
}

// Len returns the number of bytes written so far.
func (w *Writer) Len() int {
	return len(w.buf)
}

// U8 appends one byte.
func (w *Writer) U8(v uint8) {
	w.buf = append(w.buf, v)
}

// U16 appends a big-endian uint16.
func (w *Writer) U16(v uint16) {
	w.buf = binary.BigEndian.AppendUint16(w.buf, v)
}

// I16 appends a big-endian int16.
func (w *Writer) I16(v int16) {
	w.U16(uint16(v))
}

// U32 appends a big-endian uint32.
func (w *Writer) U32(v uint32) {
	w.buf = binary.BigEndian.AppendUint32(w.buf, v)
}

// I32 appends a big-endian int32.
func (w *Writer) I32(v int32) {
	w.U32(uint32(v))
}

// Raw appends b verbatim.
func (w *Writer) Raw(b []byte) {
	w.buf = append(w.buf, b...)
}

// Zero appends n zero bytes.
func (w *Writer) Zero(n int) {
	w.buf = append(w.buf, make([]byte, n)...)
}

// Pad appends zero bytes until the buffer length, measured from base, is a
// multiple of align.
func (w *Writer) Pad(base, align int) {
	for (len(w.buf)-base)%align != 0 {
		w.buf = append(w.buf, 0)
	}
}
