package record

import (
	"bytes"
	"io"

	"github.com/klauspost/compress/zlib"

	"github.com/paintforge/go-psd/internal/bio"
)

// Channel compression methods.
const (
	CompressionRaw     = 0
	CompressionRLE     = 1
	CompressionZip     = 2
	CompressionZipPred = 3
)

// DecodeChannel decodes one channel's pixel plane to exactly width*height
// bytes. encodedLen is the stored length including the 2-byte compression
// prefix. For 16-bit depth only the high byte of each sample is kept.
//
// The decoder degrades rather than aborts: an unknown compression tag
// yields a zero-filled plane, and encoded data that undershoots the plane
// is zero-padded. Only a structurally truncated stream is an error.
func DecodeChannel(c *bio.Cursor, width, height int, encodedLen int64, depth int) ([]byte, error) {
	plane := width * height
	if encodedLen < 2 || plane <= 0 {
		if encodedLen > 0 {
			n := int(encodedLen)
			if n > c.Remaining() {
				n = c.Remaining()
			}
			if err := c.Skip(n); err != nil {
				return nil, err
			}
		}
		if plane < 0 {
			plane = 0
		}
		return make([]byte, plane), nil
	}

	out := make([]byte, plane)
	sampleSize := 1
	if depth == 16 {
		sampleSize = 2
	}

	err := c.Section(int(encodedLen), func() error {
		compression, err := c.ReadU16()
		if err != nil {
			return err
		}
		dataLen := int(encodedLen) - 2

		switch compression {
		case CompressionRaw:
			return decodeRawChannel(c, out, dataLen, sampleSize)
		case CompressionRLE:
			return decodeRLEChannel(c, out, width, height, sampleSize)
		case CompressionZip, CompressionZipPred:
			decodeZipChannel(c, out, dataLen, width, height, sampleSize,
				compression == CompressionZipPred)
			return nil
		default:
			// Unknown scheme: leave the plane zero-filled.
			return nil
		}
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// decodeRawChannel copies uncompressed samples, zero-padding a short plane.
func decodeRawChannel(c *bio.Cursor, out []byte, dataLen, sampleSize int) error {
	n := dataLen
	if n > c.Remaining() {
		n = c.Remaining()
	}
	raw, err := c.ReadBytes(n)
	if err != nil {
		return err
	}
	downsample(out, raw, sampleSize)
	return nil
}

// decodeRLEChannel decodes the per-scanline PackBits stream: a 16-bit
// length table with one entry per row, then each row's compressed bytes.
func decodeRLEChannel(c *bio.Cursor, out []byte, width, height, sampleSize int) error {
	lineLens := make([]int, height)
	for i := range lineLens {
		n, err := c.ReadU16()
		if err != nil {
			return err
		}
		lineLens[i] = int(n)
	}

	rowBytes := width * sampleSize
	row := make([]byte, rowBytes)
	for y := 0; y < height; y++ {
		n := lineLens[y]
		if n > c.Remaining() {
			n = c.Remaining()
		}
		compressed, err := c.ReadBytes(n)
		if err != nil {
			return err
		}
		unpackBits(row, compressed)
		downsample(out[y*width:(y+1)*width], row, sampleSize)
	}
	return nil
}

// decodeZipChannel inflates a zlib stream and, for the predicted variant,
// undoes the per-row horizontal delta filter. Inflate failures leave the
// remainder of the plane zero-filled.
func decodeZipChannel(c *bio.Cursor, out []byte, dataLen, width, height, sampleSize int, predicted bool) {
	n := dataLen
	if n > c.Remaining() {
		n = c.Remaining()
	}
	compressed, err := c.ReadBytes(n)
	if err != nil {
		return
	}

	raw := make([]byte, width*height*sampleSize)
	zr, err := zlib.NewReader(bytes.NewReader(compressed))
	if err == nil {
		io.ReadFull(zr, raw)
		zr.Close()
	}

	if predicted {
		rowBytes := width * sampleSize
		for y := 0; y < height; y++ {
			undoRowDelta(raw[y*rowBytes : (y+1)*rowBytes])
		}
	}
	downsample(out, raw, sampleSize)
}

// DecodeComposite decodes the flattened preview's channel planes. Unlike
// layer channels the planes share one compression tag and cover the whole
// canvas. Returns nil when no image data section is present or its
// compression is not understood; the caller renders a blank canvas then.
// Undershooting data zero-pads the affected planes.
func DecodeComposite(c *bio.Cursor, width, height, channels, depth int) [][]byte {
	if channels <= 0 || c.Remaining() < 2 {
		return nil
	}
	compression, err := c.ReadU16()
	if err != nil {
		return nil
	}

	pixels := width * height
	sampleSize := 1
	if depth == 16 {
		sampleSize = 2
	}
	planes := make([][]byte, channels)
	for i := range planes {
		planes[i] = make([]byte, pixels)
	}

	switch compression {
	case CompressionRaw:
		for _, plane := range planes {
			n := pixels * sampleSize
			if n > c.Remaining() {
				n = c.Remaining()
			}
			raw, err := c.ReadBytes(n)
			if err != nil {
				return planes
			}
			downsample(plane, raw, sampleSize)
		}

	case CompressionRLE:
		// One scanline-length table entry per row per channel, all up
		// front, then each channel's rows in order.
		lineLens := make([]int, height*channels)
		for i := range lineLens {
			n, err := c.ReadU16()
			if err != nil {
				return planes
			}
			lineLens[i] = int(n)
		}
		rowBytes := width * sampleSize
		row := make([]byte, rowBytes)
		for ch, plane := range planes {
			for y := 0; y < height; y++ {
				n := lineLens[ch*height+y]
				if n > c.Remaining() {
					n = c.Remaining()
				}
				compressed, err := c.ReadBytes(n)
				if err != nil {
					return planes
				}
				unpackBits(row, compressed)
				downsample(plane[y*width:(y+1)*width], row, sampleSize)
			}
		}

	case CompressionZip, CompressionZipPred:
		compressed, err := c.ReadBytes(c.Remaining())
		if err != nil {
			return planes
		}
		raw := make([]byte, pixels*sampleSize*channels)
		if zr, err := zlib.NewReader(bytes.NewReader(compressed)); err == nil {
			io.ReadFull(zr, raw)
			zr.Close()
		}
		rowBytes := width * sampleSize
		planeBytes := pixels * sampleSize
		for ch, plane := range planes {
			sub := raw[ch*planeBytes : (ch+1)*planeBytes]
			if compression == CompressionZipPred {
				for y := 0; y < height; y++ {
					undoRowDelta(sub[y*rowBytes : (y+1)*rowBytes])
				}
			}
			downsample(plane, sub, sampleSize)
		}

	default:
		return nil
	}
	return planes
}

// unpackBits decodes one PackBits-compressed scanline into dst. A positive
// header n copies n+1 literal bytes; a negative header n repeats one byte
// 1-n times; -128 is a no-op. Truncated input leaves the tail zeroed.
func unpackBits(dst, src []byte) {
	for i := range dst {
		dst[i] = 0
	}
	di, si := 0, 0
	for si < len(src) && di < len(dst) {
		n := int(int8(src[si]))
		si++
		if n >= 0 {
			count := n + 1
			for j := 0; j < count && si < len(src) && di < len(dst); j++ {
				dst[di] = src[si]
				di++
				si++
			}
		} else if n > -128 {
			if si >= len(src) {
				return
			}
			v := src[si]
			si++
			count := 1 - n
			for j := 0; j < count && di < len(dst); j++ {
				dst[di] = v
				di++
			}
		}
	}
}

// undoRowDelta reverses the horizontal difference filter by cumulative sum,
// starting at byte index 1.
func undoRowDelta(row []byte) {
	for i := 1; i < len(row); i++ {
		row[i] += row[i-1]
	}
}

// downsample copies src samples into dst. For 2-byte samples only the high
// byte of each big-endian pair survives; the low byte is truncated, not
// rounded. A short src leaves the tail of dst untouched.
func downsample(dst, src []byte, sampleSize int) {
	if sampleSize == 1 {
		copy(dst, src)
		return
	}
	for i := 0; i*2 < len(src) && i < len(dst); i++ {
		dst[i] = src[i*2]
	}
}
