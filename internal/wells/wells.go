// Package wells holds the mutable per-well record set: feature coordinates,
// review flags, and extracted photometry. One record exists per lattice
// site; records are allocated once, populated by localization, mutated only
// during review, and read-only during extraction.
package wells

import (
	"fmt"
	"sync"

	"chip-quant/pkg/geometry"
)

// Feature is a located circular feature (button or chamber).
type Feature struct {
	X      int  `json:"x"`
	Y      int  `json:"y"`
	Radius int  `json:"radius"`
	// Autofind is true when the primary circle-detection pass located the
	// feature, false when the fallback search or a manual edit placed it.
	Autofind bool `json:"autofind"`
}

// Center returns the feature center as a float point.
func (f Feature) Center() geometry.Point2D {
	return geometry.Point2D{X: float64(f.X), Y: float64(f.Y)}
}

// ChannelStats holds the photometric statistics of one mask on one frame.
// A well with no positive pixels under the mask carries NaN statistics;
// that is a per-well quality condition, not an error.
type ChannelStats struct {
	Median      float64 `json:"median"`
	Mean        float64 `json:"mean"`
	Std         float64 `json:"std"`
	Sum         float64 `json:"sum"`
	SatFraction float64 `json:"sat_fraction"`
}

// Photometry holds all extracted statistics for one well. Surface is a
// single frame; captured and solubilized are vectors over acquisition
// frames. Background sums are area-normalized to the matching foreground
// mask before being stored.
type Photometry struct {
	SurfaceFG     ChannelStats   `json:"surface_fg"`
	SurfaceBG     ChannelStats   `json:"surface_bg"`
	CapturedFG    []ChannelStats `json:"captured_fg"`
	CapturedBG    []ChannelStats `json:"captured_bg"`
	SolubilizedFG []ChannelStats `json:"solubilized_fg"`
	SolubilizedBG []ChannelStats `json:"solubilized_bg"`
}

// Well is the record for one lattice site.
type Well struct {
	Index int `json:"index"` // 1-based lattice index, column-major
	Row   int `json:"row"`   // 1-based row within column
	Col   int `json:"col"`   // 1-based column

	Button  Feature `json:"button"`
	Chamber Feature `json:"chamber"`

	Remove bool `json:"remove"` // Excluded from export
	Flag   bool `json:"flag"`   // Marked suspect but retained

	// ExportIndex is the contiguous 1..N row number over non-removed wells,
	// 0 for removed wells. Assigned by extraction.
	ExportIndex int `json:"export_index"`

	Photometry Photometry `json:"photometry"`
}

// Table is the full per-well record set for one device.
//
// During review the protocol mutates records from the pipeline goroutine
// while the UI reads them to draw overlays; both sides synchronize through
// the table's lock. Outside review the table is single-owner and the lock
// is unused.
type Table struct {
	mu sync.RWMutex

	NumRow int
	NumCol int
	Wells  []Well
}

// Lock takes the write lock. Held by the review protocol across each
// command's record mutations.
func (t *Table) Lock() { t.mu.Lock() }

// Unlock releases the write lock.
func (t *Table) Unlock() { t.mu.Unlock() }

// RLock takes the read lock. Held by renderers while walking the records.
func (t *Table) RLock() { t.mu.RLock() }

// RUnlock releases the read lock.
func (t *Table) RUnlock() { t.mu.RUnlock() }

// NewTable allocates one record per lattice site in column-major order
// (row index varies fastest) with nominal radii filled in.
func NewTable(numRow, numCol, buttonRadius, chamberRadius int) (*Table, error) {
	if numRow <= 0 || numCol <= 0 {
		return nil, fmt.Errorf("lattice dimensions must be positive, got %dx%d", numRow, numCol)
	}
	t := &Table{
		NumRow: numRow,
		NumCol: numCol,
		Wells:  make([]Well, numRow*numCol),
	}
	for i := range t.Wells {
		m := i + 1
		col := (m + numRow - 1) / numRow // ceil(m/numRow)
		row := m - numRow*(col-1)
		t.Wells[i] = Well{
			Index:   m,
			Row:     row,
			Col:     col,
			Button:  Feature{Radius: buttonRadius},
			Chamber: Feature{Radius: chamberRadius},
		}
	}
	return t, nil
}

// Len returns the number of lattice sites.
func (t *Table) Len() int {
	return len(t.Wells)
}

// NearestButton returns the index (0-based) of the well whose button center
// is nearest to p by squared distance. Ties resolve to the lowest index.
func (t *Table) NearestButton(p geometry.Point2D) int {
	return t.nearest(p, func(w *Well) geometry.Point2D { return w.Button.Center() }, false)
}

// NearestChamber returns the index (0-based) of the non-removed well whose
// chamber center is nearest to p by squared distance. Ties resolve to the
// lowest index. Returns -1 if every well is removed.
func (t *Table) NearestChamber(p geometry.Point2D) int {
	return t.nearest(p, func(w *Well) geometry.Point2D { return w.Chamber.Center() }, true)
}

func (t *Table) nearest(p geometry.Point2D, center func(*Well) geometry.Point2D, skipRemoved bool) int {
	best := -1
	var bestDist float64
	for i := range t.Wells {
		if skipRemoved && t.Wells[i].Remove {
			continue
		}
		d := p.SquaredDistance(center(&t.Wells[i]))
		if best < 0 || d < bestDist {
			best = i
			bestDist = d
		}
	}
	return best
}

// AssignExportIndices numbers non-removed wells contiguously from 1 in
// lattice order and zeroes removed wells. Returns the exported count.
func (t *Table) AssignExportIndices() int {
	next := 0
	for i := range t.Wells {
		if t.Wells[i].Remove {
			t.Wells[i].ExportIndex = 0
			continue
		}
		next++
		t.Wells[i].ExportIndex = next
	}
	return next
}
