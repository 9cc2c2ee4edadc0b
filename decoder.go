package psd

import (
	"fmt"

	"github.com/paintforge/go-psd/internal/bio"
	"github.com/paintforge/go-psd/internal/record"
)

// decoder handles PSD decoding over a fully buffered input.
type decoder struct {
	c       *bio.Cursor
	header  *record.Header
	palette []byte
}

// newDecoder creates a new decoder.
func newDecoder(data []byte) *decoder {
	return &decoder{c: bio.NewCursor(data)}
}

// decode decodes the document.
func (d *decoder) decode() (*Document, error) {
	h, err := record.ParseHeader(d.c)
	if err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}
	d.header = h

	if err := d.readColorModeData(); err != nil {
		return nil, fmt.Errorf("reading color mode data: %w", err)
	}
	if err := d.skipImageResources(); err != nil {
		return nil, fmt.Errorf("reading image resources: %w", err)
	}

	layers, err := d.decodeLayers()
	if err != nil {
		return nil, fmt.Errorf("decoding layers: %w", err)
	}

	return &Document{
		Width:         int(h.Width),
		Height:        int(h.Height),
		ColorMode:     colorModeFrom(h.ColorMode),
		Palette:       d.palette,
		Layers:        layers,
		CompositeRGBA: d.decodeComposite(),
	}, nil
}

// readColorModeData captures the palette for indexed color and skips the
// section otherwise.
func (d *decoder) readColorModeData() error {
	n, err := d.c.ReadU32()
	if err != nil {
		return err
	}
	return d.c.Section(int(n), func() error {
		if d.header.ColorMode != record.ModeIndexed || n < paletteSize {
			return nil
		}
		raw, err := d.c.ReadBytes(paletteSize)
		if err != nil {
			return err
		}
		d.palette = append([]byte(nil), raw...)
		return nil
	})
}

// skipImageResources skips the image-resources section wholesale; no
// resource entry is consumed.
func (d *decoder) skipImageResources() error {
	n, err := d.c.ReadU32()
	if err != nil {
		return err
	}
	return d.c.Skip(int(n))
}

// decodeLayers parses the layer table and decodes every layer's channels.
func (d *decoder) decodeLayers() ([]*Layer, error) {
	p := record.NewParser(d.c, d.header)
	recs, err := p.ReadLayerInfo()
	if err != nil {
		return nil, err
	}

	layers := make([]*Layer, 0, len(recs))
	for i, rec := range recs {
		layer, err := d.decodeLayer(rec)
		if err != nil {
			return nil, fmt.Errorf("layer %d channels: %w", i, err)
		}
		layers = append(layers, layer)
	}
	p.EndSection()
	return layers, nil
}

// decodeLayer decodes one layer's channel planes, converts them to straight
// RGBA, and applies the user mask.
func (d *decoder) decodeLayer(rec *record.LayerRecord) (*Layer, error) {
	width, height := rec.Width(), rec.Height()

	layer := &Layer{
		Name:       rec.Name,
		Bounds:     Rect{Top: rec.Top, Left: rec.Left, Bottom: rec.Bottom, Right: rec.Right},
		Opacity:    rec.Opacity,
		Visible:    rec.Visible,
		Clipping:   rec.Clipping,
		BlendMode:  BlendMode(rec.BlendMode),
		Type:       LayerType(rec.Type),
		Text:       rec.Text,
		VectorMask: vectorPoints(rec.VectorMask),
	}
	if rec.Mask != nil {
		layer.Mask = &MaskInfo{
			Bounds: Rect{
				Top:    rec.Mask.Top,
				Left:   rec.Mask.Left,
				Bottom: rec.Mask.Bottom,
				Right:  rec.Mask.Right,
			},
			DefaultFill: rec.Mask.DefaultFill,
			Flags:       rec.Mask.Flags,
		}
	}

	planes := make(map[int16][]byte, len(rec.Channels))
	var maskPlane []byte
	for _, ch := range rec.Channels {
		if ch.ID == record.ChannelUserMask && rec.Mask != nil {
			plane, err := record.DecodeChannel(d.c, rec.Mask.Width(), rec.Mask.Height(), ch.Length, int(d.header.Depth))
			if err != nil {
				return nil, err
			}
			maskPlane = plane
			continue
		}
		plane, err := record.DecodeChannel(d.c, width, height, ch.Length, int(d.header.Depth))
		if err != nil {
			return nil, err
		}
		planes[ch.ID] = plane
	}

	layer.RGBA = d.assembleRGBA(width*height, planes)
	if maskPlane != nil && layer.Mask != nil {
		applyUserMask(layer.RGBA, layer.Bounds, layer.Mask, maskPlane)
	}
	return layer, nil
}

// assembleRGBA fans channel planes out into straight RGBA according to the
// document color mode. Missing color planes read as zero, missing alpha as
// opaque.
func (d *decoder) assembleRGBA(pixels int, planes map[int16][]byte) []byte {
	rgba := make([]byte, pixels*4)
	alpha := planes[record.ChannelAlpha]

	sample := func(p []byte, i int, def uint8) uint8 {
		if i < len(p) {
			return p[i]
		}
		return def
	}

	switch d.header.ColorMode {
	case record.ModeRGB:
		r, g, b := planes[0], planes[1], planes[2]
		for i := 0; i < pixels; i++ {
			rgba[i*4] = sample(r, i, 0)
			rgba[i*4+1] = sample(g, i, 0)
			rgba[i*4+2] = sample(b, i, 0)
			rgba[i*4+3] = sample(alpha, i, 255)
		}

	case record.ModeCMYK:
		c, m, y, k := planes[0], planes[1], planes[2], planes[3]
		for i := 0; i < pixels; i++ {
			r, g, b := cmykToRGB(sample(c, i, 0), sample(m, i, 0), sample(y, i, 0), sample(k, i, 0))
			rgba[i*4] = r
			rgba[i*4+1] = g
			rgba[i*4+2] = b
			rgba[i*4+3] = sample(alpha, i, 255)
		}

	case record.ModeLab:
		l, a, b := planes[0], planes[1], planes[2]
		for i := 0; i < pixels; i++ {
			pr, pg, pb := labToRGB(sample(l, i, 0), sample(a, i, 128), sample(b, i, 128))
			rgba[i*4] = pr
			rgba[i*4+1] = pg
			rgba[i*4+2] = pb
			rgba[i*4+3] = sample(alpha, i, 255)
		}

	case record.ModeIndexed:
		idx := planes[0]
		for i := 0; i < pixels; i++ {
			r, g, b := paletteLookup(d.palette, sample(idx, i, 0))
			rgba[i*4] = r
			rgba[i*4+1] = g
			rgba[i*4+2] = b
			rgba[i*4+3] = sample(alpha, i, 255)
		}

	default:
		// Grayscale, and the single-plane modes rendered as grayscale
		// (Bitmap, Duotone, Multichannel).
		g := planes[0]
		for i := 0; i < pixels; i++ {
			v := sample(g, i, 0)
			rgba[i*4] = v
			rgba[i*4+1] = v
			rgba[i*4+2] = v
			rgba[i*4+3] = sample(alpha, i, 255)
		}
	}
	return rgba
}

// applyUserMask multiplies the layer's alpha by the mask sample at the same
// canvas position. The mask plane has its own bounds, so the lookup remaps
// coordinates rather than reusing the buffer index; canvas positions the
// mask does not cover use its default fill.
func applyUserMask(rgba []byte, bounds Rect, mask *MaskInfo, plane []byte) {
	width, height := bounds.Width(), bounds.Height()
	maskW := mask.Bounds.Width()

	for y := 0; y < height; y++ {
		cy := int(bounds.Top) + y
		for x := 0; x < width; x++ {
			cx := int(bounds.Left) + x

			fill := mask.DefaultFill
			if cx >= int(mask.Bounds.Left) && cx < int(mask.Bounds.Right) &&
				cy >= int(mask.Bounds.Top) && cy < int(mask.Bounds.Bottom) {
				mi := (cy-int(mask.Bounds.Top))*maskW + (cx - int(mask.Bounds.Left))
				if mi < len(plane) {
					fill = plane[mi]
				}
			}

			ai := (y*width+x)*4 + 3
			rgba[ai] = uint8(uint16(rgba[ai]) * uint16(fill) / 255)
		}
	}
}

// decodeComposite decodes the flattened preview with the same compression
// and color machinery as layers, interleaved across the whole canvas. It is
// always produced; missing or malformed image data degrades to an opaque
// white canvas rather than failing the document.
func (d *decoder) decodeComposite() []byte {
	width, height := int(d.header.Width), int(d.header.Height)
	pixels := width * height
	rgba := make([]byte, pixels*4)
	for i := range rgba {
		rgba[i] = 255
	}

	planes := record.DecodeComposite(d.c, width, height, int(d.header.Channels), int(d.header.Depth))
	if planes == nil {
		return rgba
	}

	plane := func(i int) []byte {
		if i < len(planes) {
			return planes[i]
		}
		return nil
	}
	sample := func(p []byte, i int, def uint8) uint8 {
		if i < len(p) {
			return p[i]
		}
		return def
	}

	switch d.header.ColorMode {
	case record.ModeRGB:
		r, g, b, a := plane(0), plane(1), plane(2), plane(3)
		for i := 0; i < pixels; i++ {
			rgba[i*4] = sample(r, i, 0)
			rgba[i*4+1] = sample(g, i, 0)
			rgba[i*4+2] = sample(b, i, 0)
			rgba[i*4+3] = sample(a, i, 255)
		}

	case record.ModeCMYK:
		c, m, y, k, a := plane(0), plane(1), plane(2), plane(3), plane(4)
		for i := 0; i < pixels; i++ {
			pr, pg, pb := cmykToRGB(sample(c, i, 0), sample(m, i, 0), sample(y, i, 0), sample(k, i, 0))
			rgba[i*4] = pr
			rgba[i*4+1] = pg
			rgba[i*4+2] = pb
			rgba[i*4+3] = sample(a, i, 255)
		}

	case record.ModeLab:
		l, la, lb, a := plane(0), plane(1), plane(2), plane(3)
		for i := 0; i < pixels; i++ {
			pr, pg, pb := labToRGB(sample(l, i, 0), sample(la, i, 128), sample(lb, i, 128))
			rgba[i*4] = pr
			rgba[i*4+1] = pg
			rgba[i*4+2] = pb
			rgba[i*4+3] = sample(a, i, 255)
		}

	case record.ModeIndexed:
		idx := plane(0)
		for i := 0; i < pixels; i++ {
			r, g, b := paletteLookup(d.palette, sample(idx, i, 0))
			rgba[i*4] = r
			rgba[i*4+1] = g
			rgba[i*4+2] = b
			rgba[i*4+3] = 255
		}

	default:
		g, a := plane(0), plane(1)
		for i := 0; i < pixels; i++ {
			v := sample(g, i, 0)
			rgba[i*4] = v
			rgba[i*4+1] = v
			rgba[i*4+2] = v
			rgba[i*4+3] = sample(a, i, 255)
		}
	}
	return rgba
}

// vectorPoints converts parsed vertices to the public type.
func vectorPoints(pts []record.VectorPoint) []VectorPoint {
	if pts == nil {
		return nil
	}
	out := make([]VectorPoint, len(pts))
	for i, pt := range pts {
		out[i] = VectorPoint{X: pt.X, Y: pt.Y}
	}
	return out
}
