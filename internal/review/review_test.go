package review

import (
	"testing"

	"chip-quant/internal/wells"
	"chip-quant/pkg/geometry"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// gridTable builds a 3x3 table with buttons at (10i, 10j) and chambers
// offset by (0, 5).
func gridTable(t *testing.T) *wells.Table {
	t.Helper()
	tbl, err := wells.NewTable(3, 3, 8, 16)
	require.NoError(t, err)
	for i := range tbl.Wells {
		w := &tbl.Wells[i]
		w.Button.X = w.Col * 10
		w.Button.Y = w.Row * 10
		w.Button.Autofind = true
		w.Chamber.X = w.Col * 10
		w.Chamber.Y = w.Row*10 + 5
		w.Chamber.Autofind = true
	}
	return tbl
}

func TestRepositionSelectsNearestButton(t *testing.T) {
	tbl := gridTable(t)
	p := New(tbl, 1)

	// Click nearest to well (row 2, col 1) at (10, 20).
	_, err := p.Apply(StageButtons, Reposition{
		Near: geometry.Point2D{X: 11, Y: 21},
		To:   geometry.Point2D{X: 13.6, Y: 18.2},
	})
	require.NoError(t, err)

	w := tbl.Wells[1] // column-major: index 1 = row 2, col 1
	assert.Equal(t, 14, w.Button.X, "target coordinate is rounded")
	assert.Equal(t, 18, w.Button.Y)
	assert.False(t, w.Button.Autofind)

	// Other wells untouched.
	assert.True(t, tbl.Wells[0].Button.Autofind)
}

func TestRepositionTieBreaksOnLowestIndex(t *testing.T) {
	tbl := gridTable(t)
	p := New(tbl, 1)

	// Equidistant between wells 0 (10,10) and 1 (10,20).
	_, err := p.Apply(StageButtons, Reposition{
		Near: geometry.Point2D{X: 10, Y: 15},
		To:   geometry.Point2D{X: 99, Y: 99},
	})
	require.NoError(t, err)
	assert.Equal(t, 99, tbl.Wells[0].Button.X)
	assert.Equal(t, 10, tbl.Wells[1].Button.X)
}

func TestFlagRegionStrictlyInside(t *testing.T) {
	tbl := gridTable(t)
	p := New(tbl, 1)

	// Wells (10,10) and (10,20) sit on the rectangle boundary; only (20,20)
	// is strictly inside.
	_, err := p.Apply(StageInclusion, FlagRegion{Region: geometry.NewRect(10, 10, 25, 25)})
	require.NoError(t, err)

	assert.False(t, tbl.Wells[0].Flag, "corner well is not flagged") // (10,10)
	assert.False(t, tbl.Wells[1].Flag, "edge well is not flagged")   // (10,20)
	assert.True(t, tbl.Wells[4].Flag)                                // (20,20)
	assert.False(t, tbl.Wells[8].Flag)                               // (30,30) outside
}

func TestRemoveThenUndoIsNoOp(t *testing.T) {
	tbl := gridTable(t)
	p := New(tbl, 1)

	region := geometry.NewRect(5, 5, 25, 25)
	_, err := p.Apply(StageInclusion, RemoveRegion{Region: region})
	require.NoError(t, err)
	removed := 0
	for i := range tbl.Wells {
		if tbl.Wells[i].Remove {
			removed++
		}
	}
	require.Positive(t, removed)

	_, err = p.Apply(StageInclusion, UndoLastRemoval{})
	require.NoError(t, err)
	for i := range tbl.Wells {
		assert.False(t, tbl.Wells[i].Remove, "well %d", i)
	}
}

func TestFlagAndRemoveAreIndependent(t *testing.T) {
	tbl := gridTable(t)
	p := New(tbl, 1)

	_, err := p.Apply(StageInclusion, FlagRegion{Region: geometry.NewRect(5, 5, 15, 15)})
	require.NoError(t, err)
	require.True(t, tbl.Wells[0].Flag)
	assert.False(t, tbl.Wells[0].Remove, "flagging never implies removal")

	_, err = p.Apply(StageInclusion, RemoveRegion{Region: geometry.NewRect(5, 5, 15, 15)})
	require.NoError(t, err)
	assert.True(t, tbl.Wells[0].Remove)
	assert.True(t, tbl.Wells[0].Flag, "removal leaves the flag alone")
}

func TestFlagRegionSkipsRemovedWells(t *testing.T) {
	tbl := gridTable(t)
	tbl.Wells[0].Remove = true
	p := New(tbl, 1)

	_, err := p.Apply(StageInclusion, FlagRegion{Region: geometry.NewRect(5, 5, 35, 35)})
	require.NoError(t, err)
	assert.False(t, tbl.Wells[0].Flag)
	assert.True(t, tbl.Wells[1].Flag)
}

func TestUndoIsSingleLevelByDefault(t *testing.T) {
	tbl := gridTable(t)
	p := New(tbl, 1)

	_, err := p.Apply(StageInclusion, FlagRegion{Region: geometry.NewRect(5, 5, 15, 15)}) // flags well 0
	require.NoError(t, err)
	_, err = p.Apply(StageInclusion, FlagRegion{Region: geometry.NewRect(5, 15, 15, 25)}) // flags well 1
	require.NoError(t, err)

	_, err = p.Apply(StageInclusion, UndoLastFlag{})
	require.NoError(t, err)
	assert.True(t, tbl.Wells[0].Flag, "only the most recent batch reverts")
	assert.False(t, tbl.Wells[1].Flag)

	// Second undo has no batch left at depth 1.
	_, err = p.Apply(StageInclusion, UndoLastFlag{})
	require.NoError(t, err)
	assert.True(t, tbl.Wells[0].Flag)
}

func TestDeeperHistoryWhenConfigured(t *testing.T) {
	tbl := gridTable(t)
	p := New(tbl, 2)

	_, err := p.Apply(StageInclusion, FlagRegion{Region: geometry.NewRect(5, 5, 15, 15)})
	require.NoError(t, err)
	_, err = p.Apply(StageInclusion, FlagRegion{Region: geometry.NewRect(5, 15, 15, 25)})
	require.NoError(t, err)

	_, err = p.Apply(StageInclusion, UndoLastFlag{})
	require.NoError(t, err)
	_, err = p.Apply(StageInclusion, UndoLastFlag{})
	require.NoError(t, err)
	assert.False(t, tbl.Wells[0].Flag)
	assert.False(t, tbl.Wells[1].Flag)
}

func TestStageCRepositionSkipsRemoved(t *testing.T) {
	tbl := gridTable(t)
	tbl.Wells[0].Remove = true
	p := New(tbl, 1)

	// Nearest chamber to (10, 15) would be well 0 at (10, 15); with it
	// removed, well 1 at (10, 25) takes the edit.
	_, err := p.Apply(StageChambers, Reposition{
		Near: geometry.Point2D{X: 10, Y: 15},
		To:   geometry.Point2D{X: 50, Y: 50},
	})
	require.NoError(t, err)
	assert.Equal(t, 10, tbl.Wells[0].Chamber.X)
	assert.Equal(t, 50, tbl.Wells[1].Chamber.X)
	assert.False(t, tbl.Wells[1].Chamber.Autofind)
}

func TestStageValidation(t *testing.T) {
	tbl := gridTable(t)
	p := New(tbl, 1)

	_, err := p.Apply(StageButtons, FlagRegion{Region: geometry.NewRect(0, 0, 5, 5)})
	assert.Error(t, err)
	_, err = p.Apply(StageInclusion, Reposition{})
	assert.Error(t, err)
	_, err = p.Apply(StageChambers, UndoLastRemoval{})
	assert.Error(t, err)
}

func TestRunFullTranscript(t *testing.T) {
	tbl := gridTable(t)
	p := New(tbl, 1)

	script := NewScript(
		Reposition{Near: geometry.Point2D{X: 10, Y: 10}, To: geometry.Point2D{X: 12, Y: 12}},
		Continue{}, // end stage A
		RemoveRegion{Region: geometry.NewRect(5, 5, 15, 15)},
		Continue{}, // end stage B
		Continue{}, // end stage C
	)
	require.NoError(t, p.Run(script))
	assert.Equal(t, 12, tbl.Wells[0].Button.X)
	assert.True(t, tbl.Wells[0].Remove)
}

func TestRunAbortPropagates(t *testing.T) {
	tbl := gridTable(t)
	p := New(tbl, 1)

	script := NewScript(
		Reposition{Near: geometry.Point2D{X: 10, Y: 10}, To: geometry.Point2D{X: 12, Y: 12}},
		Abort{},
	)
	err := p.Run(script)
	require.ErrorIs(t, err, ErrAborted)
	// Partial edits stay: no rollback on abort.
	assert.Equal(t, 12, tbl.Wells[0].Button.X)
}

func TestRunExhaustedTranscriptAborts(t *testing.T) {
	tbl := gridTable(t)
	p := New(tbl, 1)
	err := p.Run(NewScript(Continue{})) // only stage A ends cleanly
	assert.ErrorIs(t, err, ErrAborted)
}

func TestParseTranscript(t *testing.T) {
	data := []byte(`[
		{"op": "reposition", "near": {"x": 1, "y": 2}, "to": {"x": 3, "y": 4}},
		{"op": "continue"},
		{"op": "flag_region", "rect": {"x": 0, "y": 0, "width": 10, "height": 10}},
		{"op": "undo_flag"},
		{"op": "continue"},
		{"op": "continue"}
	]`)
	script, err := ParseTranscript(data)
	require.NoError(t, err)

	tbl := gridTable(t)
	require.NoError(t, New(tbl, 1).Run(script))
	assert.Equal(t, 3, tbl.Wells[0].Button.X)

	_, err = ParseTranscript([]byte(`[{"op": "bogus"}]`))
	assert.Error(t, err)
	_, err = ParseTranscript([]byte(`[{"op": "reposition"}]`))
	assert.Error(t, err)
}

func TestPartition(t *testing.T) {
	tbl := gridTable(t)
	tbl.Wells[0].Remove = true
	tbl.Wells[1].Flag = true
	tbl.Wells[2].Chamber.Autofind = false

	auto, manual, flagged := Partition(tbl)
	assert.NotContains(t, auto, 0, "removed wells are excluded entirely")
	assert.Contains(t, flagged, 1)
	assert.Contains(t, manual, 2)
	assert.Len(t, auto, 6)
}

// Edits arrive on the pipeline goroutine while a renderer walks the table;
// the table lock keeps the two sides apart. Meaningful under -race.
func TestConcurrentEditsAndLockedReads(t *testing.T) {
	tbl := gridTable(t)
	p := New(tbl, 1)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for k := 0; k < 500; k++ {
			cmd := Reposition{
				Near: geometry.Point2D{X: 11, Y: 21},
				To:   geometry.Point2D{X: float64(10 + k%5), Y: 20},
			}
			if _, err := p.Apply(StageButtons, cmd); err != nil {
				t.Errorf("reposition: %v", err)
				return
			}
			if _, err := p.Apply(StageInclusion, FlagRegion{
				Region: geometry.NewRect(5, 5, 35, 35),
			}); err != nil {
				t.Errorf("flag region: %v", err)
				return
			}
			if _, err := p.Apply(StageInclusion, UndoLastFlag{}); err != nil {
				t.Errorf("undo flag: %v", err)
				return
			}
		}
	}()

	for k := 0; k < 500; k++ {
		tbl.RLock()
		for i := range tbl.Wells {
			w := &tbl.Wells[i]
			_ = w.Button.X
			_ = w.Button.Autofind
			_ = w.Flag
			_ = w.Remove
		}
		_, _, _ = Partition(tbl)
		tbl.RUnlock()
	}
	<-done

	assert.False(t, tbl.Wells[1].Button.Autofind, "repositioned well stays manual")
}
