// Package record parses the binary sections of a PSD document: the file
// header, the layer-and-mask section with its tagged additional-info
// sub-records, and the per-channel pixel data.
package record

import (
	"errors"
	"fmt"

	"github.com/paintforge/go-psd/internal/bio"
)

// Fatal decode errors. Anything else the parser recovers from locally.
var (
	ErrInvalidSignature     = errors.New("invalid signature")
	ErrUnsupportedVersion   = errors.New("unsupported version")
	ErrUnsupportedColorMode = errors.New("unsupported color mode")
	ErrUnsupportedDepth     = errors.New("unsupported bit depth")
	ErrInvalidLayerData     = errors.New("invalid layer data")
)

// ColorMode is the document-level color model code from the header.
type ColorMode uint16

const (
	ModeBitmap       ColorMode = 0
	ModeGrayscale    ColorMode = 1
	ModeIndexed      ColorMode = 2
	ModeRGB          ColorMode = 3
	ModeCMYK         ColorMode = 4
	ModeMultichannel ColorMode = 7
	ModeDuotone      ColorMode = 8
	ModeLab          ColorMode = 9
)

// String returns the name of the color mode.
func (m ColorMode) String() string {
	switch m {
	case ModeBitmap:
		return "Bitmap"
	case ModeGrayscale:
		return "Grayscale"
	case ModeIndexed:
		return "Indexed"
	case ModeRGB:
		return "RGB"
	case ModeCMYK:
		return "CMYK"
	case ModeMultichannel:
		return "Multichannel"
	case ModeDuotone:
		return "Duotone"
	case ModeLab:
		return "Lab"
	default:
		return "Unknown"
	}
}

// validColorMode is the closed table of color mode codes the format defines.
func validColorMode(v uint16) bool {
	switch ColorMode(v) {
	case ModeBitmap, ModeGrayscale, ModeIndexed, ModeRGB,
		ModeCMYK, ModeMultichannel, ModeDuotone, ModeLab:
		return true
	}
	return false
}

// fileSignature is the 4-byte magic every document starts with.
const fileSignature = "8BPS"

// blendSignature introduces blend info and additional-info chunks.
const blendSignature = "8BIM"

// blendSignature64 is the large-document variant accepted for chunks.
const blendSignature64 = "8B64"

// Header is the validated 26-byte file header.
type Header struct {
	Version   uint16 // 1, or 2 for the large-document variant
	Channels  uint16
	Height    uint32
	Width     uint32
	Depth     uint16 // 8 or 16 bits per sample
	ColorMode ColorMode
}

// ParseHeader reads and validates the file header.
func ParseHeader(c *bio.Cursor) (*Header, error) {
	sig, err := c.ReadBytes(4)
	if err != nil {
		return nil, err
	}
	if string(sig) != fileSignature {
		return nil, ErrInvalidSignature
	}

	h := &Header{}
	if h.Version, err = c.ReadU16(); err != nil {
		return nil, err
	}
	if h.Version != 1 && h.Version != 2 {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, h.Version)
	}

	if err := c.Skip(6); err != nil { // reserved
		return nil, err
	}
	if h.Channels, err = c.ReadU16(); err != nil {
		return nil, err
	}
	if h.Height, err = c.ReadU32(); err != nil {
		return nil, err
	}
	if h.Width, err = c.ReadU32(); err != nil {
		return nil, err
	}
	if h.Depth, err = c.ReadU16(); err != nil {
		return nil, err
	}
	mode, err := c.ReadU16()
	if err != nil {
		return nil, err
	}
	if !validColorMode(mode) {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedColorMode, mode)
	}
	h.ColorMode = ColorMode(mode)

	if h.Depth != 8 && h.Depth != 16 {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedDepth, h.Depth)
	}
	return h, nil
}

// ReadSectionLength reads a section length prefix: 4 bytes for version 1,
// 8 bytes for version 2.
func (h *Header) ReadSectionLength(c *bio.Cursor) (int64, error) {
	if h.Version == 2 {
		v, err := c.ReadU64()
		return int64(v), err
	}
	v, err := c.ReadU32()
	return int64(v), err
}
