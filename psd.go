// Package psd implements a decoder and a limited encoder for the PSD
// layered-image container format.
//
// The decoder reads a fully buffered document: a validated header, an
// optional indexed-color palette, an ordered stack of independently
// compressed and positioned layers (pixels, text, vector masks), and the
// flattened composite preview. All pixel content is converted to 8-bit
// straight-alpha RGBA regardless of the stored color model.
//
// Basic usage for decoding:
//
//	data, _ := os.ReadFile("image.psd")
//	doc, err := psd.Decode(data)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// The encoder is intentionally reduced in scope: it emits a minimal valid
// version-1, 8-bit RGB document with raw (uncompressed) channels from a
// caller-supplied flat layer list. Vector masks, editable text, nested
// groups, and non-RGB modes are read but never re-encoded.
package psd

import (
	"bytes"
	"image"
	"io"

	"github.com/paintforge/go-psd/internal/bio"
	"github.com/paintforge/go-psd/internal/record"
)

// Decode errors. Fatal errors abort the decode and produce no document;
// everything else (unknown sub-records, unknown compression schemes,
// undershooting channel data) is recovered locally.
var (
	ErrInvalidSignature     = record.ErrInvalidSignature
	ErrUnsupportedVersion   = record.ErrUnsupportedVersion
	ErrUnsupportedColorMode = record.ErrUnsupportedColorMode
	ErrUnsupportedDepth     = record.ErrUnsupportedDepth
	ErrInvalidLayerData     = record.ErrInvalidLayerData
	ErrUnexpectedEOF        = bio.ErrUnexpectedEOF
)

// ColorMode is the document-level color model.
type ColorMode int

const (
	ColorModeBitmap ColorMode = iota
	ColorModeGrayscale
	ColorModeIndexed
	ColorModeRGB
	ColorModeCMYK
	ColorModeMultichannel
	ColorModeDuotone
	ColorModeLab
)

// String returns the name of the color mode.
func (m ColorMode) String() string {
	switch m {
	case ColorModeBitmap:
		return "Bitmap"
	case ColorModeGrayscale:
		return "Grayscale"
	case ColorModeIndexed:
		return "Indexed"
	case ColorModeRGB:
		return "RGB"
	case ColorModeCMYK:
		return "CMYK"
	case ColorModeMultichannel:
		return "Multichannel"
	case ColorModeDuotone:
		return "Duotone"
	case ColorModeLab:
		return "Lab"
	default:
		return "Unknown"
	}
}

// colorModeFrom maps the header code to the public enum.
func colorModeFrom(m record.ColorMode) ColorMode {
	switch m {
	case record.ModeBitmap:
		return ColorModeBitmap
	case record.ModeGrayscale:
		return ColorModeGrayscale
	case record.ModeIndexed:
		return ColorModeIndexed
	case record.ModeRGB:
		return ColorModeRGB
	case record.ModeCMYK:
		return ColorModeCMYK
	case record.ModeMultichannel:
		return ColorModeMultichannel
	case record.ModeDuotone:
		return ColorModeDuotone
	default:
		return ColorModeLab
	}
}

// LayerType distinguishes pixel layers from the sentinel pseudo-layers
// delimiting groups.
type LayerType int

const (
	LayerNormal LayerType = iota
	LayerFolderOpen
	LayerFolderClosed
	LayerSectionDivider
)

// String returns the name of the layer type.
func (t LayerType) String() string {
	switch t {
	case LayerNormal:
		return "Normal"
	case LayerFolderOpen:
		return "FolderOpen"
	case LayerFolderClosed:
		return "FolderClosed"
	case LayerSectionDivider:
		return "SectionDivider"
	default:
		return "Unknown"
	}
}

// BlendMode is one of the 16 named compositing modes. Unrecognized stored
// keys decode as Normal.
type BlendMode string

const (
	BlendNormal     BlendMode = "Normal"
	BlendMultiply   BlendMode = "Multiply"
	BlendScreen     BlendMode = "Screen"
	BlendOverlay    BlendMode = "Overlay"
	BlendDarken     BlendMode = "Darken"
	BlendLighten    BlendMode = "Lighten"
	BlendColorDodge BlendMode = "ColorDodge"
	BlendColorBurn  BlendMode = "ColorBurn"
	BlendHardLight  BlendMode = "HardLight"
	BlendSoftLight  BlendMode = "SoftLight"
	BlendDifference BlendMode = "Difference"
	BlendExclusion  BlendMode = "Exclusion"
	BlendHue        BlendMode = "Hue"
	BlendSaturation BlendMode = "Saturation"
	BlendColor      BlendMode = "Color"
	BlendLuminosity BlendMode = "Luminosity"
)

// Rect is a bounding box in absolute canvas coordinates.
type Rect struct {
	Top, Left, Bottom, Right int32
}

// Width returns the box width. Inverted bounds collapse to zero.
func (r Rect) Width() int {
	if r.Right < r.Left {
		return 0
	}
	return int(r.Right - r.Left)
}

// Height returns the box height. Inverted bounds collapse to zero.
func (r Rect) Height() int {
	if r.Bottom < r.Top {
		return 0
	}
	return int(r.Bottom - r.Top)
}

// MaskInfo describes a layer's user mask. Its bounds are positioned
// independently of the owning layer's bounds.
type MaskInfo struct {
	Bounds      Rect
	DefaultFill uint8
	Flags       uint8
}

// VectorPoint is one polyline vertex of a vector mask, in canvas pixels.
type VectorPoint struct {
	X, Y float64
}

// Layer is one decoded entry of the layer stack. The list preserves file
// storage order, bottom of the stack first; reordering for display and
// resolving folder sentinels into a tree is the caller's concern.
type Layer struct {
	Name      string
	Bounds    Rect
	Opacity   uint8
	Visible   bool
	Clipping  bool
	BlendMode BlendMode
	Type      LayerType

	// Mask is the user mask sub-record, if present.
	Mask *MaskInfo

	// Text is the raw text of an editable-text layer, best-effort.
	Text string

	// VectorMask holds the anchor vertices of the layer's vector mask,
	// with curve handles flattened away.
	VectorMask []VectorPoint

	// RGBA is the layer's pixel data in straight (non-premultiplied)
	// alpha, Width()*Height()*4 bytes.
	RGBA []byte
}

// Width returns the layer width in pixels.
func (l *Layer) Width() int { return l.Bounds.Width() }

// Height returns the layer height in pixels.
func (l *Layer) Height() int { return l.Bounds.Height() }

// Image returns the layer pixels as an image.NRGBA sharing the layer's
// buffer.
func (l *Layer) Image() *image.NRGBA {
	return &image.NRGBA{
		Pix:    l.RGBA,
		Stride: l.Width() * 4,
		Rect:   image.Rect(0, 0, l.Width(), l.Height()),
	}
}

// Document is a decoded PSD document. It is constructed once per Decode
// call and never mutated by the codec afterward.
type Document struct {
	Width     int
	Height    int
	ColorMode ColorMode

	// Palette holds the 768-byte indexed-color table (three 256-byte
	// planes, R then G then B). Populated only for ColorModeIndexed.
	Palette []byte

	// Layers in file storage order, bottom of the stack first.
	Layers []*Layer

	// CompositeRGBA is the flattened full-canvas preview as straight
	// RGBA, Width*Height*4 bytes. Always produced, even with no layers.
	CompositeRGBA []byte
}

// CompositeImage returns the composite preview as an image.NRGBA sharing
// the document's buffer.
func (d *Document) CompositeImage() *image.NRGBA {
	return &image.NRGBA{
		Pix:    d.CompositeRGBA,
		Stride: d.Width * 4,
		Rect:   image.Rect(0, 0, d.Width, d.Height),
	}
}

// Metadata is the header-level information read by DecodeMetadata.
type Metadata struct {
	Version   int
	Width     int
	Height    int
	Channels  int
	Depth     int
	ColorMode ColorMode
}

// Decode parses a fully buffered PSD document.
func Decode(data []byte) (*Document, error) {
	d := newDecoder(data)
	return d.decode()
}

// DecodeMetadata reads only the file header without decoding any pixels.
func DecodeMetadata(data []byte) (*Metadata, error) {
	h, err := record.ParseHeader(bio.NewCursor(data))
	if err != nil {
		return nil, err
	}
	return &Metadata{
		Version:   int(h.Version),
		Width:     int(h.Width),
		Height:    int(h.Height),
		Channels:  int(h.Channels),
		Depth:     int(h.Depth),
		ColorMode: colorModeFrom(h.ColorMode),
	}, nil
}

// Encode serializes doc as a minimal version-1, 8-bit RGB document with
// uncompressed channels. The caller must supply flat layers (no groups to
// resolve) rasterized to straight RGBA; a layer whose RGBA length does not
// match its bounds is an error.
func Encode(doc *Document) ([]byte, error) {
	e := newEncoder(doc)
	return e.encode()
}

// init registers the format with the image package so image.Decode
// recognizes PSD files by their magic.
func init() {
	image.RegisterFormat("psd", "8BPS",
		func(r io.Reader) (image.Image, error) {
			data, err := io.ReadAll(r)
			if err != nil {
				return nil, err
			}
			doc, err := Decode(data)
			if err != nil {
				return nil, err
			}
			return doc.CompositeImage(), nil
		},
		func(r io.Reader) (image.Config, error) {
			var buf bytes.Buffer
			if _, err := io.CopyN(&buf, r, 26); err != nil {
				return image.Config{}, err
			}
			m, err := DecodeMetadata(buf.Bytes())
			if err != nil {
				return image.Config{}, err
			}
			return image.Config{Width: m.Width, Height: m.Height}, nil
		})
}
