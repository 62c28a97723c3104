package imgstack

// Orientation normalization. Acquisition software may store channels with
// differing rotation/mirroring; all channels must be brought to a common
// orientation before lattice inference.

// Rotate returns the plane rotated by 90, 180, or 270 degrees clockwise.
// Any other angle returns an unmodified copy.
func (p *Plane) Rotate(degrees int) *Plane {
	switch degrees {
	case 90:
		out := NewPlane(p.Height, p.Width)
		for y := 0; y < p.Height; y++ {
			for x := 0; x < p.Width; x++ {
				out.Set(p.Height-1-y, x, p.Pix[y*p.Width+x])
			}
		}
		return out
	case 180:
		out := NewPlane(p.Width, p.Height)
		for y := 0; y < p.Height; y++ {
			for x := 0; x < p.Width; x++ {
				out.Set(p.Width-1-x, p.Height-1-y, p.Pix[y*p.Width+x])
			}
		}
		return out
	case 270:
		out := NewPlane(p.Height, p.Width)
		for y := 0; y < p.Height; y++ {
			for x := 0; x < p.Width; x++ {
				out.Set(y, p.Width-1-x, p.Pix[y*p.Width+x])
			}
		}
		return out
	default:
		out := NewPlane(p.Width, p.Height)
		copy(out.Pix, p.Pix)
		return out
	}
}

// FlipHorizontal returns the plane mirrored about its vertical axis.
func (p *Plane) FlipHorizontal() *Plane {
	out := NewPlane(p.Width, p.Height)
	for y := 0; y < p.Height; y++ {
		for x := 0; x < p.Width; x++ {
			out.Pix[y*p.Width+(p.Width-1-x)] = p.Pix[y*p.Width+x]
		}
	}
	return out
}

// Orient applies rotation then optional horizontal flip to every frame.
func (s *Stack) Orient(degrees int, flip bool) *Stack {
	out := &Stack{Frames: make([]*Plane, len(s.Frames))}
	for i, f := range s.Frames {
		r := f.Rotate(degrees)
		if flip {
			r = r.FlipHorizontal()
		}
		out.Frames[i] = r
	}
	return out
}
