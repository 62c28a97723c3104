// Package extract computes per-well photometry from the three acquisition
// channels. Each well is measured through its own mask set in a shared local
// window around the button; wells are independent and run on a bounded
// worker pool. Empty masks yield NaN statistics rather than errors — data
// quality is a per-well condition judged downstream, never a reason to
// abort the batch.
package extract

import (
	"context"
	"fmt"
	"math"
	"runtime"
	"sort"
	"sync"

	"chip-quant/internal/imgstack"
	"chip-quant/internal/mask"
	"chip-quant/internal/wells"

	"gonum.org/v1/gonum/stat"
)

// Params configures an extraction run.
type Params struct {
	MaxIntensity float64 // Saturating sensor value
	Workers      int     // Parallel workers; <=0 means NumCPU
}

func (p Params) workers() int {
	if p.Workers > 0 {
		return p.Workers
	}
	return runtime.NumCPU()
}

// Validate checks run preconditions.
func (p Params) Validate() error {
	if p.MaxIntensity <= 0 {
		return fmt.Errorf("max intensity must be positive, got %g", p.MaxIntensity)
	}
	return nil
}

// Run extracts photometry for every non-removed well in the table, assigning
// export indices first. Removed wells keep export index 0 and empty
// photometry. Cancellation is checked between wells and leaves
// already-extracted wells intact.
func Run(ctx context.Context, set *imgstack.Set, table *wells.Table, p Params) error {
	if err := p.Validate(); err != nil {
		return err
	}
	if err := set.Validate(); err != nil {
		return err
	}

	exported := table.AssignExportIndices()

	var wg sync.WaitGroup
	sem := make(chan struct{}, p.workers())
	for i := range table.Wells {
		if err := ctx.Err(); err != nil {
			wg.Wait()
			return err
		}
		if table.Wells[i].Remove {
			continue
		}
		wg.Add(1)
		sem <- struct{}{}
		go func(w *wells.Well) {
			defer wg.Done()
			defer func() { <-sem }()
			w.Photometry = extractWell(set, w, p.MaxIntensity)
		}(&table.Wells[i])
	}
	wg.Wait()
	if err := ctx.Err(); err != nil {
		return err
	}

	fmt.Printf("Extraction: %d/%d wells measured\n", exported, table.Len())
	return nil
}

// extractWell measures one well on all channels and frames. The button pair
// (surface, captured) uses the tight button disk against the chamber-minus-
// button background; the chamber pair (solubilized) uses the chamber-minus-
// button region against the outer annulus.
func extractWell(set *imgstack.Set, w *wells.Well, maxIntensity float64) wells.Photometry {
	dx := w.Chamber.X - w.Button.X
	dy := w.Chamber.Y - w.Button.Y
	m := mask.ForWell(w.Button.Radius, w.Chamber.Radius, dx, dy)

	// Window origin in global coordinates: the button is the window center.
	ox := w.Button.X - m.Side/2
	oy := w.Button.Y - m.Side/2

	buttonRatio := areaRatio(m.ButtonFG, m.ChamberNoButton)
	chamberRatio := areaRatio(m.ChamberNoButton, m.ChamberBG)

	var ph wells.Photometry
	ph.SurfaceFG = measure(set.Surface, ox, oy, m.ButtonFG, maxIntensity, 1)
	ph.SurfaceBG = measure(set.Surface, ox, oy, m.ChamberNoButton, maxIntensity, buttonRatio)

	for _, frame := range set.Captured.Frames {
		ph.CapturedFG = append(ph.CapturedFG, measure(frame, ox, oy, m.ButtonFG, maxIntensity, 1))
		ph.CapturedBG = append(ph.CapturedBG, measure(frame, ox, oy, m.ChamberNoButton, maxIntensity, buttonRatio))
	}
	for _, frame := range set.Solubilized.Frames {
		ph.SolubilizedFG = append(ph.SolubilizedFG, measure(frame, ox, oy, m.ChamberNoButton, maxIntensity, 1))
		ph.SolubilizedBG = append(ph.SolubilizedBG, measure(frame, ox, oy, m.ChamberBG, maxIntensity, chamberRatio))
	}
	return ph
}

// areaRatio returns the foreground-to-background mask-area ratio used to
// normalize background sums.
func areaRatio(fg, bg *mask.Mask) float64 {
	if bg.Count() == 0 {
		return math.NaN()
	}
	return float64(fg.Count()) / float64(bg.Count())
}

// measure gathers the strictly-positive plane values under a mask anchored
// at the window origin and computes their statistics. sumScale normalizes
// background sums to the matching foreground mask area; pass 1 for
// foreground measurements.
func measure(plane *imgstack.Plane, ox, oy int, m *mask.Mask, maxIntensity, sumScale float64) wells.ChannelStats {
	vals := make([]float64, 0, m.Count())
	for y := 0; y < m.Side; y++ {
		for x := 0; x < m.Side; x++ {
			if !m.At(x, y) {
				continue
			}
			// Zero is masked-out, not a sample.
			if v := plane.At(ox+x, oy+y); v > 0 {
				vals = append(vals, float64(v))
			}
		}
	}
	return channelStats(vals, maxIntensity, sumScale)
}

// channelStats computes the per-mask statistics over positive samples. An
// empty sample set yields NaN throughout.
func channelStats(vals []float64, maxIntensity, sumScale float64) wells.ChannelStats {
	if len(vals) == 0 {
		nan := math.NaN()
		return wells.ChannelStats{Median: nan, Mean: nan, Std: nan, Sum: nan, SatFraction: nan}
	}

	sort.Float64s(vals)
	var sum float64
	saturated := 0
	for _, v := range vals {
		sum += v
		if v == maxIntensity {
			saturated++
		}
	}

	std := 0.0
	if len(vals) > 1 {
		std = stat.StdDev(vals, nil)
	}
	return wells.ChannelStats{
		Median:      median(vals),
		Mean:        stat.Mean(vals, nil),
		Std:         std,
		Sum:         sum * sumScale,
		SatFraction: float64(saturated) / float64(len(vals)),
	}
}

// median of a sorted non-empty slice; even lengths average the middle pair.
func median(sorted []float64) float64 {
	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}
