// Package lattice infers the full row x column grid of expected feature
// centers from four user-sampled corner features. Each corner is sampled as
// three clicks on the feature's circumference; the circumscribed circle
// gives the corner center and a radius estimate. The grid is then filled in
// by linear interpolation along the top and bottom edges and down each
// column, which tolerates mild skew or rotation of the printed array
// relative to the image frame.
package lattice

import (
	"fmt"
	"math"
	"sort"

	"chip-quant/pkg/geometry"
)

// CornerSample holds the circumference clicks for one corner feature.
type CornerSample struct {
	Clicks []geometry.Point2D `json:"clicks"`
}

// Corners holds the four fitted corner centers and the radius estimate for
// one lattice (buttons or chambers).
type Corners struct {
	Centers [4]geometry.Point2D `json:"centers"`
	Radius  float64             `json:"radius"` // Mean of the four circumscribed radii
}

// FitCorners fits a circumscribed circle to each of the four corner
// samples. Every sample needs at least three clicks; collinear clicks fail
// the fit.
func FitCorners(samples [4]CornerSample) (*Corners, error) {
	var c Corners
	var radiusSum float64
	for i, s := range samples {
		if len(s.Clicks) < 3 {
			return nil, fmt.Errorf("corner %d: need at least 3 circumference points, got %d", i+1, len(s.Clicks))
		}
		circle, err := geometry.CircleThrough3(s.Clicks[0], s.Clicks[1], s.Clicks[2])
		if err != nil {
			return nil, fmt.Errorf("corner %d: %w", i+1, err)
		}
		c.Centers[i] = circle.Center
		radiusSum += circle.Radius
	}
	c.Radius = radiusSum / 4
	return &c, nil
}

// Grid is the inferred lattice of expected feature centers, stored
// column-major: index m = col*NumRow + row (0-based), so the row index
// varies fastest. This ordering is shared by every per-well array.
type Grid struct {
	NumRow int
	NumCol int
	Points []geometry.PointInt
}

// At returns the lattice point for (row, col), both 0-based.
func (g *Grid) At(row, col int) geometry.PointInt {
	return g.Points[col*g.NumRow+row]
}

// Generate fills a NumRow x NumCol grid from fitted corners. The four
// centers are split into a top and a bottom pair by vertical sort; the fit
// aborts when no strict top/bottom partition exists.
func Generate(c *Corners, numRow, numCol int) (*Grid, error) {
	if numRow <= 0 || numCol <= 0 {
		return nil, fmt.Errorf("lattice dimensions must be positive, got %dx%d", numRow, numCol)
	}

	centers := make([]geometry.Point2D, 4)
	copy(centers, c.Centers[:])
	sort.Slice(centers, func(i, j int) bool { return centers[i].Y < centers[j].Y })

	if !(centers[1].Y < centers[2].Y) {
		return nil, fmt.Errorf("corner centers are not separable into top and bottom pairs (y values %.1f and %.1f)",
			centers[1].Y, centers[2].Y)
	}

	top := centers[:2]
	bottom := centers[2:]
	sort.Slice(top, func(i, j int) bool { return top[i].X < top[j].X })
	sort.Slice(bottom, func(i, j int) bool { return bottom[i].X < bottom[j].X })

	tl, tr := top[0], top[1]
	bl, br := bottom[0], bottom[1]

	g := &Grid{
		NumRow: numRow,
		NumCol: numCol,
		Points: make([]geometry.PointInt, numRow*numCol),
	}

	for col := 0; col < numCol; col++ {
		s := 0.0
		if numCol > 1 {
			s = float64(col) / float64(numCol-1)
		}
		// Evenly spaced along the top and bottom edges, y interpolated
		// along each edge.
		topPt := geometry.Point2D{X: lerp(tl.X, tr.X, s), Y: lerp(tl.Y, tr.Y, s)}
		botPt := geometry.Point2D{X: lerp(bl.X, br.X, s), Y: lerp(bl.Y, br.Y, s)}

		for row := 0; row < numRow; row++ {
			t := 0.0
			if numRow > 1 {
				t = float64(row) / float64(numRow-1)
			}
			pt := geometry.Point2D{
				X: lerp(topPt.X, botPt.X, t),
				Y: lerp(topPt.Y, botPt.Y, t),
			}
			g.Points[col*numRow+row] = geometry.Round(pt)
		}
	}
	return g, nil
}

// FitAndGenerate is the full GridModel pass: corner fit then interpolation.
func FitAndGenerate(samples [4]CornerSample, numRow, numCol int) (*Grid, float64, error) {
	corners, err := FitCorners(samples)
	if err != nil {
		return nil, 0, err
	}
	grid, err := Generate(corners, numRow, numCol)
	if err != nil {
		return nil, 0, err
	}
	return grid, corners.Radius, nil
}

// RoundRadius converts the fitted radius estimate to the integer pixel
// radius used for masks and search windows.
func RoundRadius(r float64) int {
	return int(math.Round(r))
}

func lerp(a, b, t float64) float64 {
	return a + t*(b-a)
}
