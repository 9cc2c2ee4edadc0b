package record

import (
	"fmt"

	"github.com/paintforge/go-psd/internal/bio"
)

// LayerType distinguishes real pixel layers from the sentinel pseudo-layers
// the format uses to delimit groups. The sequence stays flat here; callers
// resolve the sentinels into a tree.
type LayerType int

const (
	TypeNormal LayerType = iota
	TypeFolderOpen
	TypeFolderClosed
	TypeSectionDivider
)

// String returns the name of the layer type.
func (t LayerType) String() string {
	switch t {
	case TypeNormal:
		return "Normal"
	case TypeFolderOpen:
		return "FolderOpen"
	case TypeFolderClosed:
		return "FolderClosed"
	case TypeSectionDivider:
		return "SectionDivider"
	default:
		return "Unknown"
	}
}

// Channel IDs with meaning beyond a color plane index.
const (
	ChannelAlpha    = -1
	ChannelUserMask = -2
)

// ChannelInfo is one entry of a layer's channel table. Length covers the
// channel's stored data including its 2-byte compression prefix.
type ChannelInfo struct {
	ID     int16
	Length int64
}

// MaskInfo describes a layer's user mask plane. Its bounds are independent
// of the owning layer's bounds.
type MaskInfo struct {
	Top, Left, Bottom, Right int32
	DefaultFill              uint8
	Flags                    uint8
}

// Width returns the mask plane width.
func (m *MaskInfo) Width() int {
	if m.Right < m.Left {
		return 0
	}
	return int(m.Right - m.Left)
}

// Height returns the mask plane height.
func (m *MaskInfo) Height() int {
	if m.Bottom < m.Top {
		return 0
	}
	return int(m.Bottom - m.Top)
}

// VectorPoint is one polyline vertex of a vector mask, in canvas pixels.
type VectorPoint struct {
	X, Y float64
}

// LayerRecord is one parsed entry of the layer table. Channel pixel data is
// not part of the record; it follows the table and is decoded separately.
type LayerRecord struct {
	Name                     string
	Top, Left, Bottom, Right int32
	Channels                 []ChannelInfo
	BlendMode                string
	Opacity                  uint8
	Clipping                 bool
	Visible                  bool
	Type                     LayerType
	Mask                     *MaskInfo
	Text                     string
	VectorMask               []VectorPoint
}

// Width returns the layer width. Inverted bounds collapse to zero.
func (r *LayerRecord) Width() int {
	if r.Right < r.Left {
		return 0
	}
	return int(r.Right - r.Left)
}

// Height returns the layer height. Inverted bounds collapse to zero.
func (r *LayerRecord) Height() int {
	if r.Bottom < r.Top {
		return 0
	}
	return int(r.Bottom - r.Top)
}

// Parser reads the layer-and-mask section.
type Parser struct {
	c          *bio.Cursor
	h          *Header
	sectionEnd int
}

// NewParser creates a parser positioned at the start of the layer-and-mask
// section.
func NewParser(c *bio.Cursor, h *Header) *Parser {
	return &Parser{c: c, h: h}
}

// ReadLayerInfo parses the layer table and leaves the cursor at the start
// of the channel image data. Callers decode each record's channels in table
// order with DecodeChannel and then call EndSection.
func (p *Parser) ReadLayerInfo() ([]*LayerRecord, error) {
	sectionLen, err := p.h.ReadSectionLength(p.c)
	if err != nil {
		return nil, err
	}
	p.sectionEnd = p.c.Pos() + int(sectionLen)
	if sectionLen == 0 {
		return nil, nil
	}

	infoLen, err := p.h.ReadSectionLength(p.c)
	if err != nil {
		return nil, err
	}
	if infoLen == 0 {
		return nil, nil
	}

	countRaw, err := p.c.ReadI16()
	if err != nil {
		return nil, err
	}
	// A negative count flags the first alpha channel as the merged result;
	// the magnitude is still the record count.
	count := int(countRaw)
	if count < 0 {
		count = -count
	}

	records := make([]*LayerRecord, 0, count)
	for i := 0; i < count; i++ {
		rec, err := p.readLayerRecord()
		if err != nil {
			return nil, fmt.Errorf("layer %d: %w", i, err)
		}
		records = append(records, rec)
	}
	return records, nil
}

// EndSection seeks past the layer-and-mask section, discarding any global
// mask info or trailing data after the channel planes.
func (p *Parser) EndSection() {
	if p.sectionEnd > 0 {
		p.c.SeekTo(p.sectionEnd)
	}
}

// readLayerRecord parses one layer table entry.
func (p *Parser) readLayerRecord() (*LayerRecord, error) {
	rec := &LayerRecord{Type: TypeNormal, BlendMode: "Normal"}

	var err error
	if rec.Top, err = p.c.ReadI32(); err != nil {
		return nil, err
	}
	if rec.Left, err = p.c.ReadI32(); err != nil {
		return nil, err
	}
	if rec.Bottom, err = p.c.ReadI32(); err != nil {
		return nil, err
	}
	if rec.Right, err = p.c.ReadI32(); err != nil {
		return nil, err
	}

	channelCount, err := p.c.ReadU16()
	if err != nil {
		return nil, err
	}
	rec.Channels = make([]ChannelInfo, 0, channelCount)
	for i := 0; i < int(channelCount); i++ {
		id, err := p.c.ReadI16()
		if err != nil {
			return nil, err
		}
		length, err := p.h.ReadSectionLength(p.c)
		if err != nil {
			return nil, err
		}
		rec.Channels = append(rec.Channels, ChannelInfo{ID: id, Length: length})
	}

	sig, err := p.c.ReadBytes(4)
	if err != nil {
		return nil, err
	}
	if string(sig) != blendSignature {
		return nil, fmt.Errorf("%w: bad blend signature %q", ErrInvalidLayerData, sig)
	}
	key, err := p.c.ReadBytes(4)
	if err != nil {
		return nil, err
	}
	rec.BlendMode = BlendModeName(string(key))

	if rec.Opacity, err = p.c.ReadU8(); err != nil {
		return nil, err
	}
	clipping, err := p.c.ReadU8()
	if err != nil {
		return nil, err
	}
	rec.Clipping = clipping != 0
	flags, err := p.c.ReadU8()
	if err != nil {
		return nil, err
	}
	rec.Visible = flags&(1<<1) == 0
	if err := p.c.Skip(1); err != nil { // filler
		return nil, err
	}

	extraLen, err := p.c.ReadU32()
	if err != nil {
		return nil, err
	}
	extraEnd := p.c.Pos() + int(extraLen)
	if err := p.c.Section(int(extraLen), func() error {
		return p.readExtraData(rec, extraEnd)
	}); err != nil {
		return nil, err
	}
	return rec, nil
}

// readExtraData parses the length-prefixed extra-data region: the mask
// sub-record, blending ranges, the Pascal-string name, and the tagged
// additional-info stream. end is the absolute offset of the region's end.
func (p *Parser) readExtraData(rec *LayerRecord, end int) error {
	maskLen, err := p.c.ReadU32()
	if err != nil {
		return err
	}
	if err := p.c.Section(int(maskLen), func() error {
		if maskLen < 18 {
			return nil
		}
		m := &MaskInfo{}
		var err error
		if m.Top, err = p.c.ReadI32(); err != nil {
			return err
		}
		if m.Left, err = p.c.ReadI32(); err != nil {
			return err
		}
		if m.Bottom, err = p.c.ReadI32(); err != nil {
			return err
		}
		if m.Right, err = p.c.ReadI32(); err != nil {
			return err
		}
		if m.DefaultFill, err = p.c.ReadU8(); err != nil {
			return err
		}
		if m.Flags, err = p.c.ReadU8(); err != nil {
			return err
		}
		rec.Mask = m
		return nil
	}); err != nil {
		return err
	}

	rangesLen, err := p.c.ReadU32()
	if err != nil {
		return err
	}
	if err := p.c.Skip(int(rangesLen)); err != nil {
		return err
	}

	nameLen, err := p.c.ReadU8()
	if err != nil {
		return err
	}
	nameBytes, err := p.c.ReadBytes(int(nameLen))
	if err != nil {
		return err
	}
	rec.Name = string(nameBytes)
	// Pascal string is padded so name length byte plus name fill a
	// 4-byte boundary.
	padded := (int(nameLen) + 1 + 3) &^ 3
	if err := p.c.Skip(padded - int(nameLen) - 1); err != nil {
		return err
	}

	return p.readAdditionalInfo(rec, end)
}

// blendModeNames maps the 4-byte blend mode keys to their names. Unmapped
// keys fall back to Normal.
var blendModeNames = map[string]string{
	"norm": "Normal",
	"mul ": "Multiply",
	"scrn": "Screen",
	"over": "Overlay",
	"dark": "Darken",
	"lite": "Lighten",
	"idiv": "ColorDodge",
	"ibrn": "ColorBurn",
	"hLit": "HardLight",
	"sLit": "SoftLight",
	"diff": "Difference",
	"smud": "Exclusion",
	"hue ": "Hue",
	"sat ": "Saturation",
	"colr": "Color",
	"lum ": "Luminosity",
}

// BlendModeName maps a stored 4-byte key to a blend mode name.
func BlendModeName(key string) string {
	if name, ok := blendModeNames[key]; ok {
		return name
	}
	return "Normal"
}

// BlendModeKey maps a blend mode name back to its 4-byte key.
func BlendModeKey(name string) string {
	for key, n := range blendModeNames {
		if n == name {
			return key
		}
	}
	return "norm"
}
