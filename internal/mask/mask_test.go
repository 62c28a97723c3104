package mask

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiskIdempotent(t *testing.T) {
	a := Disk(21, 10, 10, 7)
	b := Disk(21, 10, 10, 7)
	require.Equal(t, a.Side, b.Side)
	require.Equal(t, a.Count(), b.Count())
	for y := 0; y < a.Side; y++ {
		for x := 0; x < a.Side; x++ {
			assert.Equal(t, a.At(x, y), b.At(x, y))
		}
	}
}

func TestDiskCountMonotonicInRadius(t *testing.T) {
	prev := 0
	for r := 1; r <= 12; r++ {
		m := Disk(25, 12, 12, float64(r))
		assert.Greater(t, m.Count(), prev, "radius %d", r)
		prev = m.Count()
	}
}

func TestDiskMembershipIsSquaredDistance(t *testing.T) {
	m := Disk(11, 5, 5, 3)
	assert.True(t, m.At(5, 5))
	assert.True(t, m.At(8, 5), "distance exactly equal to radius is a member")
	assert.False(t, m.At(9, 5))
	assert.False(t, m.At(8, 8), "corner at distance ~4.24 is outside")
	assert.False(t, m.At(-1, 5))
}

func TestAnnulusExcludesInnerDisk(t *testing.T) {
	a := Annulus(21, 10, 10, 4, 8)
	assert.False(t, a.At(10, 10))
	assert.False(t, a.At(14, 10), "inner boundary is excluded")
	assert.True(t, a.At(15, 10))
	assert.True(t, a.At(18, 10), "outer boundary is included")
	assert.False(t, a.At(19, 10))

	// Annulus plus inner disk equals the outer disk.
	inner := Disk(21, 10, 10, 4)
	outer := Disk(21, 10, 10, 8)
	assert.Equal(t, outer.Count(), a.Count()+inner.Count())
}

func TestSubtract(t *testing.T) {
	outer := Disk(21, 10, 10, 8)
	inner := Disk(21, 10, 10, 4)
	diff := Subtract(outer, inner)
	assert.Equal(t, outer.Count()-inner.Count(), diff.Count())
	assert.False(t, diff.At(10, 10))
	assert.True(t, diff.At(17, 10))
}

func TestModRadius(t *testing.T) {
	assert.Equal(t, 15, ModRadius(10))
	assert.Equal(t, 11, ModRadius(7), "7 + round(3.5) = 11")
	assert.Equal(t, 3, ModRadius(2))
}

func TestButtonMasksDisjoint(t *testing.T) {
	fg := ButtonForeground(10)
	bg := ButtonBackground(10)
	require.Equal(t, fg.Side, bg.Side)
	for y := 0; y < fg.Side; y++ {
		for x := 0; x < fg.Side; x++ {
			assert.False(t, fg.At(x, y) && bg.At(x, y),
				"foreground and background overlap at (%d,%d)", x, y)
		}
	}
	assert.Positive(t, fg.Count())
	assert.Positive(t, bg.Count())
}

func TestChamberForegroundCoversCenter(t *testing.T) {
	m := ChamberForeground(9)
	assert.Equal(t, 19, m.Side)
	assert.True(t, m.At(9, 9))
	assert.True(t, m.At(0, 9), "edge of the disk on the axis is a member")
	assert.False(t, m.At(0, 0))
}
