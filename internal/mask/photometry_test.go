package mask

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestForWellGeometry(t *testing.T) {
	m := ForWell(10, 20, 0, 0)
	assert.Equal(t, 81, m.Side)

	// Signal disk and chamber-minus-button region never overlap: the
	// subtraction removes the full button disk, which covers the 0.9x disk.
	for y := 0; y < m.Side; y++ {
		for x := 0; x < m.Side; x++ {
			if m.ButtonFG.At(x, y) {
				require.False(t, m.ChamberNoButton.At(x, y), "overlap at (%d,%d)", x, y)
			}
			if m.ChamberNoButton.At(x, y) {
				require.False(t, m.ChamberBG.At(x, y), "annulus overlap at (%d,%d)", x, y)
			}
		}
	}

	c := m.Side / 2
	assert.True(t, m.ButtonFG.At(c, c))
	assert.False(t, m.ChamberNoButton.At(c, c))
	assert.True(t, m.ChamberNoButton.At(c+15, c), "between button and chamber wall")
	assert.True(t, m.ChamberBG.At(c+24, c), "just outside the chamber wall")
	assert.False(t, m.ChamberBG.At(c+27, c), "beyond 1.3x the chamber radius")
}

func TestForWellChamberOffset(t *testing.T) {
	m := ForWell(10, 20, 5, -3)
	c := m.Side / 2

	// The chamber-centered masks track the offset; the button stays centered.
	assert.True(t, m.ButtonFG.At(c, c))
	assert.True(t, m.ChamberNoButton.At(c+5+18, c-3), "chamber edge follows the delta")
	assert.False(t, m.ChamberNoButton.At(c-18, c), "opposite side moves out of the disk")
}

func TestForWellDeterministic(t *testing.T) {
	a := ForWell(8, 16, 2, 2)
	b := ForWell(8, 16, 2, 2)
	require.Equal(t, a.Side, b.Side)
	assert.Equal(t, a.ButtonFG.Count(), b.ButtonFG.Count())
	assert.Equal(t, a.ChamberNoButton.Count(), b.ChamberNoButton.Count())
	assert.Equal(t, a.ChamberBG.Count(), b.ChamberBG.Count())
	for y := 0; y < a.Side; y++ {
		for x := 0; x < a.Side; x++ {
			require.Equal(t, a.ChamberNoButton.At(x, y), b.ChamberNoButton.At(x, y))
		}
	}
}
