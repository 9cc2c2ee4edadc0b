package record

import (
	"strings"

	"golang.org/x/text/encoding/unicode"
)

// Additional-info tags the parser understands. Everything else is skipped
// by its own length; that skip is the format's forward-compatibility
// mechanism, so it must never stall the layer loop.
const (
	tagUnicodeName    = "luni"
	tagSectionDivider = "lsct"
	tagTypeTool       = "TySh"
	tagVectorMask     = "vmsk"
	tagVectorMaskOld  = "vsms"
)

var utf16BE = unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM)

// readAdditionalInfo walks the tagged additional-info stream until the
// extra-data end offset. Each chunk is signature + 4-byte tag + 4-byte
// length, with the payload padded to a 4-byte boundary.
func (p *Parser) readAdditionalInfo(rec *LayerRecord, end int) error {
	for p.c.Pos()+12 <= end {
		sig, err := p.c.ReadBytes(4)
		if err != nil {
			return err
		}
		if s := string(sig); s != blendSignature && s != blendSignature64 {
			break
		}
		tag, err := p.c.ReadBytes(4)
		if err != nil {
			return err
		}
		length, err := p.c.ReadU32()
		if err != nil {
			return err
		}
		padded := (int(length) + 3) &^ 3
		if p.c.Pos()+padded > end {
			padded = end - p.c.Pos()
		}
		chunkEnd := p.c.Pos() + padded
		if err := p.c.Section(padded, func() error {
			p.readTag(rec, string(tag), chunkEnd)
			return nil
		}); err != nil {
			return err
		}
	}
	return nil
}

// readTag parses one recognized chunk payload. Parsing is best-effort: a
// malformed payload leaves the record as-is and the section seek puts the
// cursor back in sync. end bounds the reads to the chunk itself.
func (p *Parser) readTag(rec *LayerRecord, tag string, end int) {
	switch tag {
	case tagUnicodeName:
		p.readUnicodeName(rec, end)
	case tagSectionDivider:
		p.readSectionDivider(rec)
	case tagTypeTool:
		p.readTypeTool(rec, end)
	case tagVectorMask, tagVectorMaskOld:
		p.readVectorMask(rec, end)
	}
}

// readUnicodeName reads the UTF-16BE name override. This is the only path
// by which non-ASCII or over-255-byte names are recovered.
func (p *Parser) readUnicodeName(rec *LayerRecord, end int) {
	count, err := p.c.ReadU32()
	if err != nil {
		return
	}
	n := int(count) * 2
	if p.c.Pos()+n > end {
		return
	}
	raw, err := p.c.ReadBytes(n)
	if err != nil {
		return
	}
	decoded, err := utf16BE.NewDecoder().Bytes(raw)
	if err != nil {
		return
	}
	if name := strings.Trim(string(decoded), "\x00"); name != "" {
		rec.Name = name
	}
}

// readSectionDivider reads the group sentinel subtype.
func (p *Parser) readSectionDivider(rec *LayerRecord) {
	subtype, err := p.c.ReadU32()
	if err != nil {
		return
	}
	switch subtype {
	case 1:
		rec.Type = TypeFolderOpen
	case 2:
		rec.Type = TypeFolderClosed
	case 3:
		rec.Type = TypeSectionDivider
	default:
		rec.Type = TypeNormal
	}
}

// readTypeTool extracts the raw text of an editable-text layer: a fixed
// 48-byte style header followed by a 16-bit length-prefixed string.
func (p *Parser) readTypeTool(rec *LayerRecord, end int) {
	if err := p.c.Skip(48); err != nil {
		return
	}
	length, err := p.c.ReadU16()
	if err != nil {
		return
	}
	n := int(length)
	if p.c.Pos()+n > end {
		n = end - p.c.Pos()
	}
	raw, err := p.c.ReadBytes(n)
	if err != nil {
		return
	}
	rec.Text = string(raw)
}

// pathRecordSize is the fixed size of one vector path record.
const pathRecordSize = 26

// Path record selectors that carry a knot (anchor plus two control
// handles). The handles are flattened away; only anchors become vertices.
func isKnotRecord(selector uint16) bool {
	switch selector {
	case 1, 2, 4, 5:
		return true
	}
	return false
}

// readVectorMask converts a vector mask's path records into polyline
// vertices. Coordinates are 8.24 fixed-point fractions of the canvas size.
func (p *Parser) readVectorMask(rec *LayerRecord, end int) {
	if err := p.c.Skip(8); err != nil { // version + flags
		return
	}
	for end-p.c.Pos() >= pathRecordSize {
		selector, err := p.c.ReadU16()
		if err != nil {
			return
		}
		body, err := p.c.ReadBytes(pathRecordSize - 2)
		if err != nil {
			return
		}
		if !isKnotRecord(selector) {
			continue
		}
		// Three (vertical, horizontal) pairs; the anchor is the middle one.
		y := fixed824(body[8:12])
		x := fixed824(body[12:16])
		rec.VectorMask = append(rec.VectorMask, VectorPoint{
			X: x * float64(p.h.Width),
			Y: y * float64(p.h.Height),
		})
	}
}

// fixed824 decodes a signed 8.24 fixed-point value.
func fixed824(b []byte) float64 {
	v := int32(uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3]))
	return float64(v) / (1 << 24)
}
