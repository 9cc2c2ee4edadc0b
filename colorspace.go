// Color model conversion for PSD documents.
//
// Layer and composite pixels are stored in the document's native color
// model (RGB, CMYK, Grayscale, Indexed, or Lab) and converted to 8-bit
// sRGB during decoding. The conversions here are pure numeric kernels;
// channel plane decompression and fan-out live in the decoder.

package psd

import "math"

// paletteSize is the indexed-color table size: three 256-byte planes,
// R then G then B.
const paletteSize = 768

// cmykToRGB converts one CMYK pixel to RGB:
// r = 255*(1-c/255)*(1-k/255), and analogously for g/m and b/y.
func cmykToRGB(c, m, y, k uint8) (uint8, uint8, uint8) {
	ci := 255 - int(c)
	mi := 255 - int(m)
	yi := 255 - int(y)
	ki := 255 - int(k)

	r := ci * ki / 255
	g := mi * ki / 255
	b := yi * ki / 255
	return uint8(r), uint8(g), uint8(b)
}

// labToRGB converts one CIE L*a*b* pixel, stored as unsigned bytes, to
// sRGB. L maps onto [0, 100]; a and b map onto [-128, 127]. The conversion
// goes through CIE XYZ with the D65 white point, then the sRGB matrix and
// transfer curve.
func labToRGB(l, a, b uint8) (uint8, uint8, uint8) {
	L := float64(l) / 255.0 * 100.0
	A := float64(a) - 128.0
	B := float64(b) - 128.0

	fy := (L + 16.0) / 116.0
	fx := fy + A/500.0
	fz := fy - B/200.0

	// D65 white point
	const xn, yn, zn = 0.95047, 1.0, 1.08883
	x := xn * labInverseF(fx)
	y := yn * labInverseF(fy)
	z := zn * labInverseF(fz)

	// XYZ to linear sRGB
	rLin := 3.2404542*x - 1.5371385*y - 0.4985314*z
	gLin := -0.9692660*x + 1.8760108*y + 0.0415560*z
	bLin := 0.0556434*x - 0.2040259*y + 1.0572252*z

	return clampByte(srgbGamma(rLin) * 255.0),
		clampByte(srgbGamma(gLin) * 255.0),
		clampByte(srgbGamma(bLin) * 255.0)
}

// labInverseF is the inverse of the Lab f function.
func labInverseF(t float64) float64 {
	const delta = 6.0 / 29.0
	if t > delta {
		return t * t * t
	}
	return 3 * delta * delta * (t - 4.0/29.0)
}

// srgbGamma applies the sRGB piecewise transfer curve.
func srgbGamma(linear float64) float64 {
	if linear <= 0.0031308 {
		return 12.92 * linear
	}
	return 1.055*math.Pow(linear, 1.0/2.4) - 0.055
}

// paletteLookup reads R, G, and B for a palette index from the three
// contiguous 256-byte palette planes. A missing palette reads as black.
func paletteLookup(palette []byte, idx uint8) (uint8, uint8, uint8) {
	if len(palette) < paletteSize {
		return 0, 0, 0
	}
	return palette[idx], palette[256+int(idx)], palette[512+int(idx)]
}

// clampByte clamps and rounds a float64 to [0, 255].
func clampByte(v float64) uint8 {
	if v <= 0 {
		return 0
	}
	if v >= 255 {
		return 255
	}
	return uint8(v + 0.5)
}
