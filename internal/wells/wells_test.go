package wells

import (
	"encoding/json"
	"math"
	"testing"

	"chip-quant/pkg/geometry"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTableColumnMajorIndexing(t *testing.T) {
	tbl, err := NewTable(3, 2, 10, 20)
	require.NoError(t, err)
	require.Equal(t, 6, tbl.Len())

	// m=1 is (row 1, col 1); m=3 is (row 3, col 1); m=4 wraps to (row 1, col 2).
	assert.Equal(t, 1, tbl.Wells[0].Row)
	assert.Equal(t, 1, tbl.Wells[0].Col)
	assert.Equal(t, 3, tbl.Wells[2].Row)
	assert.Equal(t, 1, tbl.Wells[2].Col)
	assert.Equal(t, 1, tbl.Wells[3].Row)
	assert.Equal(t, 2, tbl.Wells[3].Col)
	assert.Equal(t, 3, tbl.Wells[5].Row)
	assert.Equal(t, 2, tbl.Wells[5].Col)

	for i, w := range tbl.Wells {
		assert.Equal(t, i+1, w.Index)
		assert.Equal(t, 10, w.Button.Radius)
		assert.Equal(t, 20, w.Chamber.Radius)
	}
}

func TestNewTableRejectsEmptyLattice(t *testing.T) {
	_, err := NewTable(0, 5, 10, 20)
	assert.Error(t, err)
}

func TestNearestButtonTieBreaksOnLowestIndex(t *testing.T) {
	tbl, err := NewTable(2, 2, 10, 20)
	require.NoError(t, err)

	// Wells 0 and 1 are equidistant from the probe point.
	tbl.Wells[0].Button.X, tbl.Wells[0].Button.Y = 0, 0
	tbl.Wells[1].Button.X, tbl.Wells[1].Button.Y = 0, 10
	tbl.Wells[2].Button.X, tbl.Wells[2].Button.Y = 100, 100
	tbl.Wells[3].Button.X, tbl.Wells[3].Button.Y = 200, 200

	got := tbl.NearestButton(geometry.Point2D{X: 0, Y: 5})
	assert.Equal(t, 0, got)

	got = tbl.NearestButton(geometry.Point2D{X: 101, Y: 99})
	assert.Equal(t, 2, got)
}

func TestNearestChamberSkipsRemoved(t *testing.T) {
	tbl, err := NewTable(2, 1, 10, 20)
	require.NoError(t, err)
	tbl.Wells[0].Chamber.X, tbl.Wells[0].Chamber.Y = 0, 0
	tbl.Wells[1].Chamber.X, tbl.Wells[1].Chamber.Y = 50, 0

	tbl.Wells[0].Remove = true
	assert.Equal(t, 1, tbl.NearestChamber(geometry.Point2D{X: 1, Y: 0}))

	tbl.Wells[1].Remove = true
	assert.Equal(t, -1, tbl.NearestChamber(geometry.Point2D{X: 1, Y: 0}))
}

func TestAssignExportIndices(t *testing.T) {
	tbl, err := NewTable(4, 1, 10, 20)
	require.NoError(t, err)
	tbl.Wells[1].Remove = true

	n := tbl.AssignExportIndices()
	assert.Equal(t, 3, n)
	assert.Equal(t, 1, tbl.Wells[0].ExportIndex)
	assert.Equal(t, 0, tbl.Wells[1].ExportIndex)
	assert.Equal(t, 2, tbl.Wells[2].ExportIndex)
	assert.Equal(t, 3, tbl.Wells[3].ExportIndex)

	// Flags never affect export numbering.
	tbl.Wells[2].Flag = true
	assert.Equal(t, 3, tbl.AssignExportIndices())
	assert.Equal(t, 2, tbl.Wells[2].ExportIndex)
}

func TestChannelStatsJSONNullForNaN(t *testing.T) {
	nan := math.NaN()
	s := ChannelStats{Median: nan, Mean: 5, Std: nan, Sum: 10, SatFraction: 0}

	data, err := json.Marshal(s)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"median":null`)
	assert.Contains(t, string(data), `"mean":5`)

	var back ChannelStats
	require.NoError(t, json.Unmarshal(data, &back))
	assert.True(t, math.IsNaN(back.Median))
	assert.True(t, math.IsNaN(back.Std))
	assert.Equal(t, 5.0, back.Mean)
	assert.Equal(t, 0.0, back.SatFraction)
}
