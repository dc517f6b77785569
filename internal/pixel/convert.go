package pixel

import "github.com/gogpu/compute/internal/parallel"

// ToVec4 converts packed pixels to normalized RGBA in parallel.
func ToVec4(src []ARGB) []Vec4 {
	dst := make([]Vec4, len(src))
	parallel.Convert(nil, src, dst, ARGB.Vec4)
	return dst
}

// ToVec3 drops alpha from normalized RGBA colors in parallel.
func ToVec3(src []Vec4) []Vec3 {
	dst := make([]Vec3, len(src))
	parallel.Convert(nil, src, dst, Vec4.Vec3)
	return dst
}

// FromVec4 packs normalized RGBA colors in parallel.
func FromVec4(src []Vec4) []ARGB {
	dst := make([]ARGB, len(src))
	parallel.Convert(nil, src, dst, Vec4.ARGB)
	return dst
}

// FromVec3 packs normalized RGB colors with a constant alpha in parallel.
func FromVec3(src []Vec3, alpha uint8) []ARGB {
	dst := make([]ARGB, len(src))
	parallel.Convert(nil, src, dst, func(v Vec3) ARGB { return v.ARGB(alpha) })
	return dst
}
