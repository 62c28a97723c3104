// Package mask builds binary pixel-membership masks for feature photometry.
// Masks are pure functions of their geometric parameters: the same inputs
// always produce pixel-identical masks. Membership is a per-pixel
// squared-distance test against the radius, never anti-aliased, so mask
// boundaries are reproducible at pixel granularity.
package mask

import (
	"math"
)

// Mask is a square boolean pixel grid.
type Mask struct {
	Side  int
	bits  []bool
	count int
}

// At reports membership of pixel (x, y). Out-of-bounds pixels are outside.
func (m *Mask) At(x, y int) bool {
	if x < 0 || x >= m.Side || y < 0 || y >= m.Side {
		return false
	}
	return m.bits[y*m.Side+x]
}

// Count returns the number of member pixels.
func (m *Mask) Count() int {
	return m.count
}

// Disk returns a mask whose members lie within radius of (cx, cy),
// in mask-local coordinates.
func Disk(side int, cx, cy, radius float64) *Mask {
	m := &Mask{Side: side, bits: make([]bool, side*side)}
	r2 := radius * radius
	for y := 0; y < side; y++ {
		dy := float64(y) - cy
		for x := 0; x < side; x++ {
			dx := float64(x) - cx
			if dx*dx+dy*dy <= r2 {
				m.bits[y*side+x] = true
				m.count++
			}
		}
	}
	return m
}

// Annulus returns a mask whose members lie between inner (exclusive) and
// outer (inclusive) radius of (cx, cy).
func Annulus(side int, cx, cy, inner, outer float64) *Mask {
	m := &Mask{Side: side, bits: make([]bool, side*side)}
	in2 := inner * inner
	out2 := outer * outer
	for y := 0; y < side; y++ {
		dy := float64(y) - cy
		for x := 0; x < side; x++ {
			dx := float64(x) - cx
			d2 := dx*dx + dy*dy
			if d2 > in2 && d2 <= out2 {
				m.bits[y*side+x] = true
				m.count++
			}
		}
	}
	return m
}

// Subtract returns a copy of m with all members of other removed.
// Both masks must share the same side length and coordinate origin.
func Subtract(m, other *Mask) *Mask {
	out := &Mask{Side: m.Side, bits: make([]bool, len(m.bits))}
	for i, b := range m.bits {
		if b && !other.bits[i] {
			out.bits[i] = true
			out.count++
		}
	}
	return out
}

// ModRadius returns the enlarged working radius used to size local search
// windows: the nominal radius plus half of it, rounded.
func ModRadius(radius int) int {
	return radius + int(math.Round(float64(radius)/2))
}

// ButtonForeground returns the button signal disk for a nominal radius.
// The disk is deliberately tighter than the nominal radius (0.4 x working
// radius) to keep edge contamination out of the signal estimate.
func ButtonForeground(radius int) *Mask {
	mod := ModRadius(radius)
	side := 2*mod + 1
	c := float64(mod)
	return Disk(side, c, c, 0.4*float64(mod))
}

// ButtonBackground returns the local background annulus for a nominal
// button radius, spanning 0.75x to 1.0x the working radius.
func ButtonBackground(radius int) *Mask {
	mod := ModRadius(radius)
	side := 2*mod + 1
	c := float64(mod)
	return Annulus(side, c, c, 0.75*float64(mod), float64(mod))
}

// ChamberForeground returns the full chamber disk for a nominal radius.
func ChamberForeground(radius int) *Mask {
	side := 2*radius + 1
	c := float64(radius)
	return Disk(side, c, c, float64(radius))
}
