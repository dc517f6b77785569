// Package pixel converts between packed ARGB pixels, normalized float
// vectors laid out for compute shaders, and images on disk.
package pixel

// ARGB is a packed 32-bit pixel: alpha in the high byte, then red, green
// and blue.
type ARGB uint32

// Vec4 is a normalized RGBA color, matching a WGSL vec4<f32>.
type Vec4 [4]float32

// Vec3 is a normalized RGB color, packed as three consecutive f32 values.
type Vec3 [3]float32

// NewARGB packs 8-bit channels.
func NewARGB(a, r, g, b uint8) ARGB {
	return ARGB(uint32(a)<<24 | uint32(r)<<16 | uint32(g)<<8 | uint32(b))
}

// A returns the alpha channel.
func (p ARGB) A() uint8 { return uint8(p >> 24) }

// R returns the red channel.
func (p ARGB) R() uint8 { return uint8(p >> 16) }

// G returns the green channel.
func (p ARGB) G() uint8 { return uint8(p >> 8) }

// B returns the blue channel.
func (p ARGB) B() uint8 { return uint8(p) }

// Vec4 maps each channel [0,255] to [0,1].
func (p ARGB) Vec4() Vec4 {
	return Vec4{
		float32(p.R()) / 255.0,
		float32(p.G()) / 255.0,
		float32(p.B()) / 255.0,
		float32(p.A()) / 255.0,
	}
}

// Vec3 maps the color channels [0,255] to [0,1] and drops alpha.
func (p ARGB) Vec3() Vec3 {
	return Vec3{
		float32(p.R()) / 255.0,
		float32(p.G()) / 255.0,
		float32(p.B()) / 255.0,
	}
}

// ARGB packs v, clamping each component to [0,1].
func (v Vec4) ARGB() ARGB {
	return NewARGB(clampAndRound(v[3]), clampAndRound(v[0]), clampAndRound(v[1]), clampAndRound(v[2]))
}

// ARGB packs v with the given alpha, clamping each component to [0,1].
func (v Vec3) ARGB(alpha uint8) ARGB {
	return NewARGB(alpha, clampAndRound(v[0]), clampAndRound(v[1]), clampAndRound(v[2]))
}

// Vec3 drops the alpha component.
func (v Vec4) Vec3() Vec3 {
	return Vec3{v[0], v[1], v[2]}
}

// clampAndRound clamps a float32 to [0,1] and converts to uint8 with rounding.
func clampAndRound(v float32) uint8 {
	if v <= 0 {
		return 0
	}
	if v >= 1 {
		return 255
	}
	return uint8(v*255.0 + 0.5)
}
