package psd

import (
	"fmt"
	"unicode/utf16"

	"github.com/paintforge/go-psd/internal/bio"
	"github.com/paintforge/go-psd/internal/record"
)

// encoder handles PSD encoding. Its scope is deliberately reduced: it emits
// a minimal valid version-1, 8-bit RGB document with raw channels from an
// already-flattened, already-rasterized layer list. There is no degraded
// mode; a size or shape mismatch in the input is a caller contract
// violation and fails the encode.
type encoder struct {
	doc *Document
	w   *bio.Writer
}

// newEncoder creates a new encoder.
func newEncoder(doc *Document) *encoder {
	return &encoder{doc: doc, w: bio.NewWriter()}
}

// encode serializes the document.
func (e *encoder) encode() ([]byte, error) {
	if err := e.validate(); err != nil {
		return nil, err
	}

	e.writeHeader()
	e.w.U32(0) // empty color mode data
	e.writeResources()
	e.writeLayerSection()
	e.writeComposite()
	return e.w.Bytes(), nil
}

// validate checks the caller contract: flat, rasterized, RGBA-shaped input.
func (e *encoder) validate() error {
	d := e.doc
	if d.Width <= 0 || d.Height <= 0 {
		return fmt.Errorf("invalid canvas %dx%d", d.Width, d.Height)
	}
	if len(d.CompositeRGBA) != d.Width*d.Height*4 {
		return fmt.Errorf("composite rgba length %d, want %d",
			len(d.CompositeRGBA), d.Width*d.Height*4)
	}
	for _, l := range d.Layers {
		if l.Type != LayerNormal {
			continue
		}
		if want := l.Width() * l.Height() * 4; len(l.RGBA) != want {
			return fmt.Errorf("layer %q: rgba length %d, want %d", l.Name, len(l.RGBA), want)
		}
	}
	return nil
}

// writeHeader emits the fixed 26-byte header: version 1, 3 channels,
// 8-bit RGB.
func (e *encoder) writeHeader() {
	e.w.Raw([]byte("8BPS"))
	e.w.U16(1)
	e.w.Zero(6)
	e.w.U16(3)
	e.w.U32(uint32(e.doc.Height))
	e.w.U32(uint32(e.doc.Width))
	e.w.U16(8)
	e.w.U16(3)
}

// writeResources emits a minimal image-resources section holding only a
// 72 dpi resolution entry (resource id 1005).
func (e *encoder) writeResources() {
	res := bio.NewWriter()
	res.Raw([]byte("8BIM"))
	res.U16(1005)
	res.U16(0) // empty name
	res.U32(16)
	res.U16(72) // horizontal dpi, 16.16 fixed
	res.U16(0)
	res.U16(1) // display unit: pixels per inch
	res.U16(1) // width unit: inches
	res.U16(72) // vertical dpi
	res.U16(0)
	res.U16(1)
	res.U16(1)

	e.w.U32(uint32(res.Len()))
	e.w.Raw(res.Bytes())
}

// writeLayerSection emits the layer-and-mask section: one record per layer
// with exactly four raw channels (R, G, B, A), a Unicode-name sub-record,
// and a section-divider sub-record for folder and divider pseudo-layers.
func (e *encoder) writeLayerSection() {
	info := bio.NewWriter()
	info.I16(int16(len(e.doc.Layers)))
	for _, l := range e.doc.Layers {
		e.writeLayerRecord(info, l)
	}

	channelData := bio.NewWriter()
	for _, l := range e.doc.Layers {
		if l.Type != LayerNormal {
			continue
		}
		pixels := l.Width() * l.Height()
		for offset := 0; offset < 4; offset++ {
			channelData.U16(record.CompressionRaw)
			for i := 0; i < pixels; i++ {
				channelData.U8(l.RGBA[i*4+offset])
			}
		}
	}

	e.w.U32(uint32(4 + info.Len() + channelData.Len()))
	e.w.U32(uint32(info.Len() + channelData.Len()))
	e.w.Raw(info.Bytes())
	e.w.Raw(channelData.Bytes())
}

// writeLayerRecord emits one layer table entry.
func (e *encoder) writeLayerRecord(info *bio.Writer, l *Layer) {
	info.I32(l.Bounds.Top)
	info.I32(l.Bounds.Left)
	info.I32(l.Bounds.Bottom)
	info.I32(l.Bounds.Right)

	if l.Type == LayerNormal {
		info.U16(4)
		pixels := l.Width() * l.Height()
		for _, id := range []int16{0, 1, 2, record.ChannelAlpha} {
			info.I16(id)
			info.U32(uint32(pixels + 2)) // plane plus compression prefix
		}
	} else {
		info.U16(0)
	}

	info.Raw([]byte("8BIM"))
	info.Raw([]byte(record.BlendModeKey(string(l.BlendMode))))
	info.U8(l.Opacity)
	if l.Clipping {
		info.U8(1)
	} else {
		info.U8(0)
	}
	if l.Visible {
		info.U8(0)
	} else {
		info.U8(1 << 1)
	}
	info.U8(0) // filler

	extra := bio.NewWriter()
	extra.U32(0) // no mask sub-record
	extra.U32(0) // no blending ranges

	// Pascal-string name, truncated to 255 bytes, padded with its length
	// byte to a 4-byte boundary.
	name := []byte(l.Name)
	if len(name) > 255 {
		name = name[:255]
	}
	nameStart := extra.Len()
	extra.U8(uint8(len(name)))
	extra.Raw(name)
	extra.Pad(nameStart, 4)

	if l.Name != "" {
		writeUnicodeName(extra, l.Name)
	}
	if l.Type != LayerNormal {
		extra.Raw([]byte("8BIM"))
		extra.Raw([]byte("lsct"))
		extra.U32(4)
		switch l.Type {
		case LayerFolderOpen:
			extra.U32(1)
		case LayerFolderClosed:
			extra.U32(2)
		default:
			extra.U32(3)
		}
	}

	info.U32(uint32(extra.Len()))
	info.Raw(extra.Bytes())
}

// writeUnicodeName emits a luni additional-info chunk. The payload length
// excludes the pad bytes that align the next chunk to 4 bytes.
func writeUnicodeName(w *bio.Writer, name string) {
	units := utf16.Encode([]rune(name))
	w.Raw([]byte("8BIM"))
	w.Raw([]byte("luni"))
	w.U32(uint32(4 + len(units)*2))
	payloadStart := w.Len()
	w.U32(uint32(len(units)))
	for _, u := range units {
		w.U16(u)
	}
	w.Pad(payloadStart, 4)
}

// writeComposite emits the flattened preview as three raw planes (R, G, B).
func (e *encoder) writeComposite() {
	e.w.U16(record.CompressionRaw)
	pixels := e.doc.Width * e.doc.Height
	for offset := 0; offset < 3; offset++ {
		for i := 0; i < pixels; i++ {
			e.w.U8(e.doc.CompositeRGBA[i*4+offset])
		}
	}
}
