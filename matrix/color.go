package matrix

import "image/color"

const (
	// PlaneBits is the intensity resolution of a single color plane.
	PlaneBits = 4
	// Levels is the number of intensity levels per color plane.
	Levels = 1 << PlaneBits
	// MaxPlanes is how many nibble-wide planes fit in a packed cell.
	MaxPlanes = 4
)

const (
	planeOffset0 uint8 = 0x0
	planeOffset1 uint8 = 0x4
	planeOffset2 uint8 = 0x8
	planeOffset3 uint8 = 0xC
)

var planeOffsets = [MaxPlanes]uint8{planeOffset0, planeOffset1, planeOffset2, planeOffset3}

// Color is a packed per-pixel intensity word: one 4-bit intensity
// nibble per color plane, plane 0 in the low nibble.
type Color uint16

func setplane(c uint16, n uint8, off uint8) uint16 {
	var val uint16 = uint16(n&0xF) << off
	var mask uint16 = 0xF << off
	return (c & (^mask)) | val
}

func getplane(c uint16, off uint8) uint8 {
	var mask uint16 = 0xF << off
	return uint8((c & mask) >> off)
}

// Plane returns the intensity nibble of plane i.
func (c Color) Plane(i int) uint8 {
	if i < 0 || i >= MaxPlanes {
		return 0
	}
	return getplane(uint16(c), planeOffsets[i])
}

// WithPlane returns c with plane i set to intensity n (0..15).
func (c Color) WithPlane(i int, n uint8) Color {
	if i < 0 || i >= MaxPlanes {
		return c
	}
	return Color(setplane(uint16(c), n, planeOffsets[i]))
}

// Gray packs a single-plane intensity.
func Gray(n uint8) Color {
	return Color(n & 0xF)
}

// RGB packs three 4-bit intensities into planes 0..2.
func RGB(r, g, b uint8) Color {
	c := Color(0)
	c = c.WithPlane(0, r)
	c = c.WithPlane(1, g)
	c = c.WithPlane(2, b)
	return c
}

// ToNRGBA expands the packed intensities for previewing. With a single
// plane the intensity maps to gray, otherwise planes 0..2 map to R, G
// and B. Each nibble is scaled to the full 8-bit channel range.
func (c Color) ToNRGBA(planes int) color.NRGBA {
	if planes <= 1 {
		v := c.Plane(0) * 17
		return color.NRGBA{R: v, G: v, B: v, A: 255}
	}
	col := color.NRGBA{R: c.Plane(0) * 17, G: c.Plane(1) * 17, A: 255}
	if planes > 2 {
		col.B = c.Plane(2) * 17
	}
	return col
}
