// Package imgstack provides the in-memory image model: single-precision
// intensity planes, multi-frame stacks, and the three-channel set a
// quantification run operates on.
package imgstack

import (
	"fmt"
)

// Plane is a single-channel intensity image stored row-major as float32.
// Values carry the sensor's native range (e.g. 0..65535 for 16-bit input);
// no rescaling happens at load time.
type Plane struct {
	Width  int
	Height int
	Pix    []float32
}

// NewPlane allocates a zeroed plane.
func NewPlane(width, height int) *Plane {
	return &Plane{
		Width:  width,
		Height: height,
		Pix:    make([]float32, width*height),
	}
}

// At returns the intensity at (x, y). Out-of-bounds reads return 0, which
// downstream statistics treat as masked-out.
func (p *Plane) At(x, y int) float32 {
	if x < 0 || x >= p.Width || y < 0 || y >= p.Height {
		return 0
	}
	return p.Pix[y*p.Width+x]
}

// Set writes the intensity at (x, y). Out-of-bounds writes are ignored.
func (p *Plane) Set(x, y int, v float32) {
	if x < 0 || x >= p.Width || y < 0 || y >= p.Height {
		return
	}
	p.Pix[y*p.Width+x] = v
}

// Window extracts a square crop of the given side length centered on
// (cx, cy). Pixels falling outside the plane are zero. The returned origin
// is the global coordinate of the crop's (0, 0) pixel.
func (p *Plane) Window(cx, cy, side int) (crop *Plane, originX, originY int) {
	half := side / 2
	originX = cx - half
	originY = cy - half

	crop = NewPlane(side, side)
	for y := 0; y < side; y++ {
		gy := originY + y
		if gy < 0 || gy >= p.Height {
			continue
		}
		for x := 0; x < side; x++ {
			gx := originX + x
			if gx < 0 || gx >= p.Width {
				continue
			}
			crop.Pix[y*side+x] = p.Pix[gy*p.Width+gx]
		}
	}
	return crop, originX, originY
}

// Stack is an ordered sequence of planes sharing identical extent,
// one per acquisition frame.
type Stack struct {
	Frames []*Plane
}

// NumFrames returns the frame count.
func (s *Stack) NumFrames() int {
	return len(s.Frames)
}

// Frame returns the i-th plane.
func (s *Stack) Frame(i int) *Plane {
	return s.Frames[i]
}

// validate checks all frames share the given extent.
func (s *Stack) validate(width, height int) error {
	for i, f := range s.Frames {
		if f.Width != width || f.Height != height {
			return fmt.Errorf("frame %d is %dx%d, expected %dx%d",
				i, f.Width, f.Height, width, height)
		}
	}
	return nil
}

// Set bundles the three acquisition channels of one run: the surface
// (button) channel, the solubilized (chamber/DNA) stack, and the captured
// (bound molecule) stack. All planes must share extent after orientation
// normalization.
type Set struct {
	Surface     *Plane
	Solubilized *Stack
	Captured    *Stack
}

// Validate enforces the shared-extent invariant and non-empty stacks.
func (s *Set) Validate() error {
	if s.Surface == nil {
		return fmt.Errorf("surface channel is required")
	}
	if s.Solubilized == nil || s.Solubilized.NumFrames() == 0 {
		return fmt.Errorf("solubilized channel requires at least one frame")
	}
	if s.Captured == nil || s.Captured.NumFrames() == 0 {
		return fmt.Errorf("captured channel requires at least one frame")
	}
	w, h := s.Surface.Width, s.Surface.Height
	if w <= 0 || h <= 0 {
		return fmt.Errorf("surface channel has empty extent %dx%d", w, h)
	}
	if err := s.Solubilized.validate(w, h); err != nil {
		return fmt.Errorf("solubilized channel: %w", err)
	}
	if err := s.Captured.validate(w, h); err != nil {
		return fmt.Errorf("captured channel: %w", err)
	}
	return nil
}
