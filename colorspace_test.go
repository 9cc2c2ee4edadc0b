package psd

import "testing"

func TestCMYKToRGB(t *testing.T) {
	tests := []struct {
		name       string
		c, m, y, k uint8
		r, g, b    uint8
	}{
		{"white", 0, 0, 0, 0, 255, 255, 255},
		{"black ink", 0, 0, 0, 255, 0, 0, 0},
		{"full cyan", 255, 0, 0, 0, 0, 255, 255},
		{"full magenta", 0, 255, 0, 0, 255, 0, 255},
		{"full yellow", 0, 0, 255, 0, 255, 255, 0},
		{"half black", 0, 0, 0, 128, 127, 127, 127},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, g, b := cmykToRGB(tt.c, tt.m, tt.y, tt.k)
			if r != tt.r || g != tt.g || b != tt.b {
				t.Errorf("cmykToRGB(%d,%d,%d,%d) = (%d,%d,%d), want (%d,%d,%d)",
					tt.c, tt.m, tt.y, tt.k, r, g, b, tt.r, tt.g, tt.b)
			}
		})
	}
}

func within(got, want uint8, tol int) bool {
	d := int(got) - int(want)
	if d < 0 {
		d = -d
	}
	return d <= tol
}

func TestLabToRGB(t *testing.T) {
	// Neutral-axis endpoints: L=255 with centered a/b is white, L=0 black.
	r, g, b := labToRGB(255, 128, 128)
	if !within(r, 255, 2) || !within(g, 255, 2) || !within(b, 255, 2) {
		t.Errorf("labToRGB(255,128,128) = (%d,%d,%d), want ~white", r, g, b)
	}

	r, g, b = labToRGB(0, 128, 128)
	if !within(r, 0, 2) || !within(g, 0, 2) || !within(b, 0, 2) {
		t.Errorf("labToRGB(0,128,128) = (%d,%d,%d), want ~black", r, g, b)
	}

	// Mid-L neutral gray stays neutral.
	r, g, b = labToRGB(128, 128, 128)
	if !within(r, g, 3) || !within(g, b, 3) {
		t.Errorf("labToRGB(128,128,128) = (%d,%d,%d), want neutral", r, g, b)
	}

	// Positive a pushes red above green.
	r, g, _ = labToRGB(128, 200, 128)
	if r <= g {
		t.Errorf("labToRGB(128,200,128) = r %d, g %d, want r > g", r, g)
	}
}

func TestPaletteLookup(t *testing.T) {
	palette := make([]byte, paletteSize)
	palette[5] = 10     // R plane
	palette[256+5] = 20 // G plane
	palette[512+5] = 30 // B plane

	r, g, b := paletteLookup(palette, 5)
	if r != 10 || g != 20 || b != 30 {
		t.Errorf("paletteLookup(5) = (%d,%d,%d), want (10,20,30)", r, g, b)
	}

	r, g, b = paletteLookup(palette[:100], 5)
	if r != 0 || g != 0 || b != 0 {
		t.Errorf("short palette lookup = (%d,%d,%d), want black", r, g, b)
	}
}

func TestClampByte(t *testing.T) {
	tests := []struct {
		in   float64
		want uint8
	}{
		{-10, 0},
		{0, 0},
		{127.4, 127},
		{127.6, 128},
		{255, 255},
		{300, 255},
	}
	for _, tt := range tests {
		if got := clampByte(tt.in); got != tt.want {
			t.Errorf("clampByte(%v) = %d, want %d", tt.in, got, tt.want)
		}
	}
}
