package psd

import (
	"bytes"
	"testing"
)

func FuzzDecode(f *testing.F) {
	if seed, err := Encode(testDocument()); err == nil {
		f.Add(seed)
		f.Add(seed[:20])
	}
	f.Add([]byte("8BPS"))
	f.Add([]byte{})
	f.Add(bytes.Repeat([]byte{0xFF}, 64))

	f.Fuzz(func(t *testing.T, data []byte) {
		m, err := DecodeMetadata(data)
		if err != nil {
			return
		}
		// Keep fuzz iterations away from multi-gigabyte allocations for
		// absurd declared dimensions.
		if m.Width > 1<<12 || m.Height > 1<<12 {
			return
		}

		doc, err := Decode(data)
		if err != nil {
			return
		}
		if want := doc.Width * doc.Height * 4; len(doc.CompositeRGBA) != want {
			t.Fatalf("composite length %d, want %d", len(doc.CompositeRGBA), want)
		}
		for i, l := range doc.Layers {
			if want := l.Width() * l.Height() * 4; len(l.RGBA) != want {
				t.Fatalf("layer %d rgba length %d, want %d", i, len(l.RGBA), want)
			}
		}
	})
}
