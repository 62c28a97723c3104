package geometry

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func circlePoint(cx, cy, r, angle float64) Point2D {
	return Point2D{X: cx + r*math.Cos(angle), Y: cy + r*math.Sin(angle)}
}

func TestCircleThrough3RecoversKnownCircle(t *testing.T) {
	cases := []struct {
		name       string
		cx, cy, r  float64
		a1, a2, a3 float64
	}{
		{"unit circle", 0, 0, 1, 0, 2, 4},
		{"offset circle", 120.5, 340.25, 9.75, 0.3, 1.9, 5.1},
		{"large radius", -50, 1000, 480, 0.1, 0.2, 0.35},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p1 := circlePoint(tc.cx, tc.cy, tc.r, tc.a1)
			p2 := circlePoint(tc.cx, tc.cy, tc.r, tc.a2)
			p3 := circlePoint(tc.cx, tc.cy, tc.r, tc.a3)

			c, err := CircleThrough3(p1, p2, p3)
			require.NoError(t, err)
			assert.InDelta(t, tc.cx, c.Center.X, 1e-6)
			assert.InDelta(t, tc.cy, c.Center.Y, 1e-6)
			assert.InDelta(t, tc.r, c.Radius, 1e-6)
		})
	}
}

func TestCircleThrough3RejectsCollinear(t *testing.T) {
	_, err := CircleThrough3(Point2D{0, 0}, Point2D{5, 5}, Point2D{10, 10})
	require.Error(t, err)

	// Two coincident points are equally degenerate.
	_, err = CircleThrough3(Point2D{1, 2}, Point2D{1, 2}, Point2D{3, 4})
	require.Error(t, err)
}

func TestRectContainsStrict(t *testing.T) {
	r := NewRect(10, 20, 30, 40)

	assert.True(t, r.ContainsStrict(Point2D{15, 25}))
	assert.False(t, r.ContainsStrict(Point2D{10, 25}), "boundary point is not strictly inside")
	assert.False(t, r.ContainsStrict(Point2D{31, 25}))
	assert.True(t, r.Contains(Point2D{10, 25}))
}

func TestNewRectNormalizesCorners(t *testing.T) {
	r := NewRect(30, 40, 10, 20)
	assert.Equal(t, Rect{X: 10, Y: 20, Width: 20, Height: 20}, r)
}
