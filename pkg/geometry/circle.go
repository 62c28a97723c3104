package geometry

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// Circle represents a circle by center and radius.
type Circle struct {
	Center Point2D `json:"center"`
	Radius float64 `json:"radius"`
}

// CircleThrough3 computes the unique circle passing through three points.
// The center is the intersection of the perpendicular bisectors of the
// chords p1-p2 and p2-p3, found by solving the 2x2 linear system
//
//	2(x2-x1)cx + 2(y2-y1)cy = (x2²+y2²) - (x1²+y1²)
//	2(x3-x2)cx + 2(y3-y2)cy = (x3²+y3²) - (x2²+y2²)
//
// Collinear points make the system singular and return an error.
func CircleThrough3(p1, p2, p3 Point2D) (Circle, error) {
	a := mat.NewDense(2, 2, []float64{
		2 * (p2.X - p1.X), 2 * (p2.Y - p1.Y),
		2 * (p3.X - p2.X), 2 * (p3.Y - p2.Y),
	})
	b := mat.NewVecDense(2, []float64{
		(p2.X*p2.X + p2.Y*p2.Y) - (p1.X*p1.X + p1.Y*p1.Y),
		(p3.X*p3.X + p3.Y*p3.Y) - (p2.X*p2.X + p2.Y*p2.Y),
	})

	var center mat.VecDense
	if err := center.SolveVec(a, b); err != nil {
		return Circle{}, fmt.Errorf("points are collinear or coincident: %w", err)
	}

	c := Point2D{X: center.AtVec(0), Y: center.AtVec(1)}
	r := c.Distance(p1)
	if math.IsNaN(r) || math.IsInf(r, 0) {
		return Circle{}, fmt.Errorf("degenerate circle through (%v, %v, %v)", p1, p2, p3)
	}
	return Circle{Center: c, Radius: r}, nil
}

// Contains returns true if the point lies inside or on the circle.
func (c Circle) Contains(p Point2D) bool {
	return c.Center.SquaredDistance(p) <= c.Radius*c.Radius
}
