package locate

import (
	"math"
	"sort"

	"chip-quant/internal/imgstack"

	"gonum.org/v1/gonum/stat"
)

// normalizeCrop contrast-stretches a local crop into the 8-bit range using
// a window derived from the crop's own statistics: [median - 2σ,
// approxIntensity + 2σ], where approxIntensity is the brightest value in
// the central half of the crop (the region the feature must occupy given
// the lattice prior). Deriving the window per crop adapts detection to
// illumination gradients across a large chip.
func normalizeCrop(crop *imgstack.Plane, maxIntensity float64) *imgstack.Plane {
	values := make([]float64, len(crop.Pix))
	for i, v := range crop.Pix {
		values[i] = float64(v)
	}
	sort.Float64s(values)
	median := stat.Quantile(0.5, stat.Empirical, values, nil)
	sigma := stat.StdDev(values, nil)

	lo := median - 2*sigma
	hi := approxIntensity(crop) + 2*sigma
	if hi > maxIntensity {
		hi = maxIntensity
	}
	if hi <= lo {
		hi = lo + 1
	}

	out := imgstack.NewPlane(crop.Width, crop.Height)
	scale := 255 / (hi - lo)
	for i, v := range crop.Pix {
		s := (float64(v) - lo) * scale
		out.Pix[i] = float32(math.Min(255, math.Max(0, s)))
	}
	return out
}

// approxIntensity returns the maximum intensity over the central
// half-width region of the crop.
func approxIntensity(crop *imgstack.Plane) float64 {
	x0 := crop.Width / 4
	x1 := crop.Width - crop.Width/4
	y0 := crop.Height / 4
	y1 := crop.Height - crop.Height/4

	maxV := float64(0)
	for y := y0; y < y1; y++ {
		for x := x0; x < x1; x++ {
			if v := float64(crop.At(x, y)); v > maxV {
				maxV = v
			}
		}
	}
	return maxV
}
