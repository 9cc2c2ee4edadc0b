package record

import (
	"bytes"
	"testing"

	"github.com/klauspost/compress/zlib"

	"github.com/paintforge/go-psd/internal/bio"
)

func zlibCompress(t *testing.T, data []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zlib.NewWriter(&buf)
	if _, err := zw.Write(data); err != nil {
		t.Fatalf("zlib write: %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("zlib close: %v", err)
	}
	return buf.Bytes()
}

// channelStream prefixes a compression tag onto encoded channel data.
func channelStream(compression uint16, data []byte) []byte {
	w := bio.NewWriter()
	w.U16(compression)
	w.Raw(data)
	return w.Bytes()
}

func decode(t *testing.T, stream []byte, width, height, depth int) []byte {
	t.Helper()
	c := bio.NewCursor(stream)
	out, err := DecodeChannel(c, width, height, int64(len(stream)), depth)
	if err != nil {
		t.Fatalf("DecodeChannel() error: %v", err)
	}
	return out
}

func TestDecodeRawChannel(t *testing.T) {
	plane := []byte{1, 2, 3, 4, 5, 6}
	out := decode(t, channelStream(CompressionRaw, plane), 3, 2, 8)
	if !bytes.Equal(out, plane) {
		t.Errorf("plane = % x, want % x", out, plane)
	}
}

func TestDecodeRawChannelShortData(t *testing.T) {
	out := decode(t, channelStream(CompressionRaw, []byte{9, 8}), 3, 2, 8)
	want := []byte{9, 8, 0, 0, 0, 0}
	if !bytes.Equal(out, want) {
		t.Errorf("plane = % x, want % x", out, want)
	}
}

func TestDecodeRaw16BitTruncation(t *testing.T) {
	// Big-endian 16-bit samples: only the high byte survives.
	raw := []byte{0xAB, 0xCD, 0x01, 0xFF, 0x00, 0x7F}
	out := decode(t, channelStream(CompressionRaw, raw), 3, 1, 16)
	want := []byte{0xAB, 0x01, 0x00}
	if !bytes.Equal(out, want) {
		t.Errorf("plane = % x, want % x", out, want)
	}
}

func TestDecodeRLEChannel(t *testing.T) {
	// Two rows of width 6: a literal run and a repeat run.
	row0 := []byte{0x05, 1, 2, 3, 4, 5, 6} // literal header 5 -> 6 bytes
	row1 := []byte{0xFB, 0xAA}             // repeat header -5 -> 6 copies

	w := bio.NewWriter()
	w.U16(CompressionRLE)
	w.U16(uint16(len(row0)))
	w.U16(uint16(len(row1)))
	w.Raw(row0)
	w.Raw(row1)

	out := decode(t, w.Bytes(), 6, 2, 8)
	want := []byte{1, 2, 3, 4, 5, 6, 0xAA, 0xAA, 0xAA, 0xAA, 0xAA, 0xAA}
	if !bytes.Equal(out, want) {
		t.Errorf("plane = % x, want % x", out, want)
	}
}

func TestDecodeRLEChannelTruncatedRow(t *testing.T) {
	// Row promises 6 literals but supplies 2; the rest of the row zero-pads.
	row := []byte{0x05, 7, 8}
	w := bio.NewWriter()
	w.U16(CompressionRLE)
	w.U16(uint16(len(row)))
	w.Raw(row)

	out := decode(t, w.Bytes(), 6, 1, 8)
	want := []byte{7, 8, 0, 0, 0, 0}
	if !bytes.Equal(out, want) {
		t.Errorf("plane = % x, want % x", out, want)
	}
}

func TestDecodeZipChannel(t *testing.T) {
	plane := []byte{10, 20, 30, 40, 50, 60}
	stream := channelStream(CompressionZip, zlibCompress(t, plane))
	out := decode(t, stream, 3, 2, 8)
	if !bytes.Equal(out, plane) {
		t.Errorf("plane = % x, want % x", out, plane)
	}
}

func TestDecodeZipPredictedChannel(t *testing.T) {
	// Difference-filter each row, compress, decode, expect the original.
	plane := []byte{10, 20, 30, 40, 50, 60, 5, 5, 5, 5, 5, 5}
	width, height := 6, 2

	filtered := make([]byte, len(plane))
	copy(filtered, plane)
	for y := 0; y < height; y++ {
		row := filtered[y*width : (y+1)*width]
		for i := len(row) - 1; i >= 1; i-- {
			row[i] -= row[i-1]
		}
	}

	stream := channelStream(CompressionZipPred, zlibCompress(t, filtered))
	out := decode(t, stream, width, height, 8)
	if !bytes.Equal(out, plane) {
		t.Errorf("plane = % x, want % x", out, plane)
	}
}

func TestDecodeUnknownCompression(t *testing.T) {
	stream := channelStream(99, []byte{1, 2, 3, 4})
	c := bio.NewCursor(stream)
	out, err := DecodeChannel(c, 2, 2, int64(len(stream)), 8)
	if err != nil {
		t.Fatalf("DecodeChannel() error: %v", err)
	}
	if !bytes.Equal(out, make([]byte, 4)) {
		t.Errorf("plane = % x, want all zeros", out)
	}
	// The cursor must land past the channel data regardless.
	if c.Pos() != len(stream) {
		t.Errorf("Pos() = %d, want %d", c.Pos(), len(stream))
	}
}

func TestDecodeChannelZeroLength(t *testing.T) {
	c := bio.NewCursor(nil)
	out, err := DecodeChannel(c, 2, 2, 0, 8)
	if err != nil {
		t.Fatalf("DecodeChannel() error: %v", err)
	}
	if !bytes.Equal(out, make([]byte, 4)) {
		t.Errorf("plane = % x, want all zeros", out)
	}
}

func TestUnpackBits(t *testing.T) {
	tests := []struct {
		name string
		src  []byte
		want []byte
	}{
		{"literal run", []byte{0x02, 1, 2, 3}, []byte{1, 2, 3}},
		{"repeat run", []byte{0xFE, 9}, []byte{9, 9, 9}},
		{"mixed", []byte{0x00, 5, 0xFF, 7}, []byte{5, 7, 7}},
		{"noop header", []byte{0x80, 0x01, 4, 4}, []byte{4, 4, 0}},
		{"truncated literal", []byte{0x04, 1}, []byte{1, 0, 0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dst := make([]byte, len(tt.want))
			unpackBits(dst, tt.src)
			if !bytes.Equal(dst, tt.want) {
				t.Errorf("unpackBits(% x) = % x, want % x", tt.src, dst, tt.want)
			}
		})
	}
}

func TestUndoRowDelta(t *testing.T) {
	for _, n := range []int{1, 2, 64} {
		row := make([]byte, n)
		for i := range row {
			row[i] = byte(i * 3)
		}
		filtered := make([]byte, n)
		copy(filtered, row)
		for i := n - 1; i >= 1; i-- {
			filtered[i] -= filtered[i-1]
		}
		undoRowDelta(filtered)
		if !bytes.Equal(filtered, row) {
			t.Errorf("n=%d: round trip = % x, want % x", n, filtered, row)
		}
	}
}

func TestDecodeCompositeRaw(t *testing.T) {
	w := bio.NewWriter()
	w.U16(CompressionRaw)
	w.Raw([]byte{1, 2, 3, 4}) // plane 0
	w.Raw([]byte{5, 6, 7, 8}) // plane 1

	planes := DecodeComposite(bio.NewCursor(w.Bytes()), 2, 2, 2, 8)
	if len(planes) != 2 {
		t.Fatalf("got %d planes, want 2", len(planes))
	}
	if !bytes.Equal(planes[0], []byte{1, 2, 3, 4}) || !bytes.Equal(planes[1], []byte{5, 6, 7, 8}) {
		t.Errorf("planes = % x, % x", planes[0], planes[1])
	}
}

func TestDecodeCompositeRLE(t *testing.T) {
	// 2x2, two channels. Table holds height*channels entries, channel-major.
	rows := [][]byte{
		{0x01, 1, 2}, // ch 0 row 0
		{0xFF, 3},    // ch 0 row 1: 3 3
		{0x01, 9, 8}, // ch 1 row 0
		{0x01, 7, 6}, // ch 1 row 1
	}
	w := bio.NewWriter()
	w.U16(CompressionRLE)
	for _, r := range rows {
		w.U16(uint16(len(r)))
	}
	for _, r := range rows {
		w.Raw(r)
	}

	planes := DecodeComposite(bio.NewCursor(w.Bytes()), 2, 2, 2, 8)
	if len(planes) != 2 {
		t.Fatalf("got %d planes, want 2", len(planes))
	}
	if !bytes.Equal(planes[0], []byte{1, 2, 3, 3}) {
		t.Errorf("plane 0 = % x, want 01 02 03 03", planes[0])
	}
	if !bytes.Equal(planes[1], []byte{9, 8, 7, 6}) {
		t.Errorf("plane 1 = % x, want 09 08 07 06", planes[1])
	}
}

func TestDecodeCompositeZip(t *testing.T) {
	raw := []byte{1, 2, 3, 4, 5, 6, 7, 8}
	w := bio.NewWriter()
	w.U16(CompressionZip)
	w.Raw(zlibCompress(t, raw))

	planes := DecodeComposite(bio.NewCursor(w.Bytes()), 2, 2, 2, 8)
	if len(planes) != 2 {
		t.Fatalf("got %d planes, want 2", len(planes))
	}
	if !bytes.Equal(planes[0], raw[:4]) || !bytes.Equal(planes[1], raw[4:]) {
		t.Errorf("planes = % x, % x", planes[0], planes[1])
	}
}

func TestDecodeCompositeUnknown(t *testing.T) {
	w := bio.NewWriter()
	w.U16(42)
	w.Raw([]byte{1, 2, 3})
	if planes := DecodeComposite(bio.NewCursor(w.Bytes()), 2, 2, 1, 8); planes != nil {
		t.Errorf("planes = %v, want nil for unknown compression", planes)
	}
}

func TestDecodeCompositeMissing(t *testing.T) {
	if planes := DecodeComposite(bio.NewCursor(nil), 2, 2, 3, 8); planes != nil {
		t.Errorf("planes = %v, want nil for empty section", planes)
	}
}
