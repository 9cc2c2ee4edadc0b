package bio

import (
	"bytes"
	"errors"
	"testing"
)

func TestCursorReads(t *testing.T) {
	c := NewCursor([]byte{
		0x01,
		0x02, 0x03,
		0xFF, 0xFE,
		0x00, 0x00, 0x00, 0x04,
		0xFF, 0xFF, 0xFF, 0xFF,
		0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x05,
		'a', 'b', 'c',
	})

	if v, err := c.ReadU8(); err != nil || v != 1 {
		t.Fatalf("ReadU8() = %d, %v, want 1", v, err)
	}
	if v, err := c.ReadU16(); err != nil || v != 0x0203 {
		t.Fatalf("ReadU16() = %#x, %v, want 0x0203", v, err)
	}
	if v, err := c.ReadI16(); err != nil || v != -2 {
		t.Fatalf("ReadI16() = %d, %v, want -2", v, err)
	}
	if v, err := c.ReadU32(); err != nil || v != 4 {
		t.Fatalf("ReadU32() = %d, %v, want 4", v, err)
	}
	if v, err := c.ReadI32(); err != nil || v != -1 {
		t.Fatalf("ReadI32() = %d, %v, want -1", v, err)
	}
	if v, err := c.ReadU64(); err != nil || v != 5 {
		t.Fatalf("ReadU64() = %d, %v, want 5", v, err)
	}
	if b, err := c.ReadBytes(3); err != nil || string(b) != "abc" {
		t.Fatalf("ReadBytes(3) = %q, %v, want abc", b, err)
	}
	if c.Remaining() != 0 {
		t.Errorf("Remaining() = %d, want 0", c.Remaining())
	}
}

func TestCursorEOF(t *testing.T) {
	tests := []struct {
		name string
		fn   func(*Cursor) error
	}{
		{"u8", func(c *Cursor) error { _, err := c.ReadU8(); return err }},
		{"u16", func(c *Cursor) error { _, err := c.ReadU16(); return err }},
		{"u32", func(c *Cursor) error { _, err := c.ReadU32(); return err }},
		{"u64", func(c *Cursor) error { _, err := c.ReadU64(); return err }},
		{"bytes", func(c *Cursor) error { _, err := c.ReadBytes(2); return err }},
		{"skip", func(c *Cursor) error { return c.Skip(2) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewCursor([]byte{0x00})
			if err := tt.fn(c); !errors.Is(err, ErrUnexpectedEOF) {
				t.Errorf("error = %v, want ErrUnexpectedEOF", err)
			}
		})
	}
}

func TestCursorSection(t *testing.T) {
	c := NewCursor([]byte{0x01, 0x02, 0x03, 0x04, 0x05})

	// Consume only one byte of a three-byte section; the cursor must land
	// at the section end anyway.
	err := c.Section(3, func() error {
		_, err := c.ReadU8()
		return err
	})
	if err != nil {
		t.Fatalf("Section() error: %v", err)
	}
	if c.Pos() != 3 {
		t.Fatalf("Pos() = %d after section, want 3", c.Pos())
	}

	if err := c.Section(10, func() error { return nil }); !errors.Is(err, ErrUnexpectedEOF) {
		t.Errorf("oversized Section() error = %v, want ErrUnexpectedEOF", err)
	}
}

func TestCursorSeekToClamps(t *testing.T) {
	c := NewCursor([]byte{1, 2, 3})
	c.SeekTo(100)
	if c.Pos() != 3 {
		t.Errorf("Pos() = %d, want 3", c.Pos())
	}
	c.SeekTo(-5)
	if c.Pos() != 0 {
		t.Errorf("Pos() = %d, want 0", c.Pos())
	}
}

func TestWriter(t *testing.T) {
	w := NewWriter()
	w.U8(1)
	w.U16(0x0203)
	w.I16(-2)
	w.U32(4)
	w.I32(-1)
	w.Raw([]byte("ab"))
	w.Zero(2)

	want := []byte{
		0x01,
		0x02, 0x03,
		0xFF, 0xFE,
		0x00, 0x00, 0x00, 0x04,
		0xFF, 0xFF, 0xFF, 0xFF,
		'a', 'b',
		0x00, 0x00,
	}
	if !bytes.Equal(w.Bytes(), want) {
		t.Errorf("Bytes() = % x, want % x", w.Bytes(), want)
	}
}

func TestWriterPad(t *testing.T) {
	w := NewWriter()
	w.Raw([]byte{1, 2, 3})
	w.Pad(0, 4)
	if w.Len() != 4 {
		t.Errorf("Len() = %d after pad, want 4", w.Len())
	}
	w.Pad(0, 4) // already aligned
	if w.Len() != 4 {
		t.Errorf("Len() = %d after second pad, want 4", w.Len())
	}
}
