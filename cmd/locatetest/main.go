// Command locatetest renders a synthetic device image, runs lattice
// inference, localization, and extraction end to end, and reports detection
// rates and timing. Useful for tuning detector thresholds without real data.
package main

import (
	"context"
	"flag"
	"fmt"
	"math"
	"math/rand"
	"os"
	"time"

	"chip-quant/internal/chip"
	"chip-quant/internal/extract"
	"chip-quant/internal/imgstack"
	"chip-quant/internal/lattice"
	"chip-quant/internal/locate"
	"chip-quant/internal/wells"
	"chip-quant/pkg/geometry"
)

func main() {
	chipName := flag.String("chip", "mitomi-640", "registered chip spec to simulate")
	spacing := flag.Int("spacing", 0, "lattice pitch in pixels (0 = 3x chamber radius)")
	jitter := flag.Float64("jitter", 2.0, "random feature offset from the lattice site, pixels")
	signal := flag.Float64("signal", 20000, "feature intensity above background")
	noise := flag.Float64("noise", 500, "uniform background noise amplitude")
	seed := flag.Int64("seed", 1, "random seed")
	workers := flag.Int("workers", 0, "parallel workers (0 = all CPUs)")
	flag.Parse()

	spec, err := chip.GetSpec(*chipName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}

	pitch := *spacing
	if pitch <= 0 {
		pitch = 3 * spec.ChamberRadius
	}
	margin := 2 * spec.ChamberRadius

	fmt.Printf("Simulating %s: %dx%d wells, pitch %d px, jitter %.1f px\n",
		spec.SpecName, spec.NumRow, spec.NumCol, pitch, *jitter)

	rng := rand.New(rand.NewSource(*seed))
	width := margin*2 + (spec.NumCol-1)*pitch
	height := margin*2 + (spec.NumRow-1)*pitch

	// True feature positions: lattice sites plus jitter.
	truth := make([]geometry.PointInt, spec.NumWells())
	for col := 0; col < spec.NumCol; col++ {
		for row := 0; row < spec.NumRow; row++ {
			truth[col*spec.NumRow+row] = geometry.PointInt{
				X: margin + col*pitch + int(rng.NormFloat64()**jitter),
				Y: margin + row*pitch + int(rng.NormFloat64()**jitter),
			}
		}
	}

	surface := renderPlane(width, height, truth, spec.ButtonRadius, *signal, *noise, rng)
	solubilized := renderPlane(width, height, truth, spec.ChamberRadius, *signal, *noise, rng)
	set := &imgstack.Set{
		Surface:     surface,
		Solubilized: &imgstack.Stack{Frames: []*imgstack.Plane{solubilized}},
		Captured:    &imgstack.Stack{Frames: []*imgstack.Plane{surface}},
	}

	// Corner samples: clicks on the circumference of the four true corner
	// features, as a user would supply them.
	corners := [4]lattice.CornerSample{
		sampleCorner(truth[0], spec.ButtonRadius),
		sampleCorner(truth[(spec.NumCol-1)*spec.NumRow], spec.ButtonRadius),
		sampleCorner(truth[spec.NumRow-1], spec.ButtonRadius),
		sampleCorner(truth[spec.NumWells()-1], spec.ButtonRadius),
	}

	grid, radius, err := lattice.FitAndGenerate(corners, spec.NumRow, spec.NumCol)
	if err != nil {
		fmt.Fprintf(os.Stderr, "lattice inference failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Lattice inferred, fitted radius %.1f px\n", radius)

	table, err := wells.NewTable(spec.NumRow, spec.NumCol, spec.ButtonRadius, spec.ChamberRadius)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}

	params := locate.Params{
		ButtonRadius:  spec.ButtonRadius,
		ChamberRadius: spec.ChamberRadius,
		MaxIntensity:  spec.MaxIntensity,
		Workers:       *workers,
	}

	start := time.Now()
	if err := locate.Buttons(context.Background(), surface, grid, table, params); err != nil {
		fmt.Fprintf(os.Stderr, "button localization failed: %v\n", err)
		os.Exit(1)
	}
	if err := locate.Chambers(context.Background(), solubilized, grid, table, params); err != nil {
		fmt.Fprintf(os.Stderr, "chamber localization failed: %v\n", err)
		os.Exit(1)
	}
	locateTime := time.Since(start)

	start = time.Now()
	if err := extract.Run(context.Background(), set, table, extract.Params{
		MaxIntensity: spec.MaxIntensity,
		Workers:      *workers,
	}); err != nil {
		fmt.Fprintf(os.Stderr, "extraction failed: %v\n", err)
		os.Exit(1)
	}
	extractTime := time.Since(start)

	report(table, truth, locateTime, extractTime)
}

// renderPlane paints uniform disks at the true positions over uniform noise.
func renderPlane(width, height int, centers []geometry.PointInt, radius int, signal, noise float64, rng *rand.Rand) *imgstack.Plane {
	p := imgstack.NewPlane(width, height)
	for i := range p.Pix {
		p.Pix[i] = float32(rng.Float64() * noise)
	}
	for _, c := range centers {
		for y := c.Y - radius; y <= c.Y+radius; y++ {
			for x := c.X - radius; x <= c.X+radius; x++ {
				dx, dy := x-c.X, y-c.Y
				if dx*dx+dy*dy <= radius*radius {
					p.Set(x, y, float32(signal+rng.Float64()*noise))
				}
			}
		}
	}
	return p
}

// sampleCorner produces three circumference clicks for a feature, like a
// user tracing its outline.
func sampleCorner(c geometry.PointInt, radius int) lattice.CornerSample {
	s := lattice.CornerSample{}
	for _, a := range []float64{0.4, 2.5, 4.6} {
		s.Clicks = append(s.Clicks, geometry.Point2D{
			X: float64(c.X) + float64(radius)*math.Cos(a),
			Y: float64(c.Y) + float64(radius)*math.Sin(a),
		})
	}
	return s
}

func report(table *wells.Table, truth []geometry.PointInt, locateTime, extractTime time.Duration) {
	autoButtons, autoChambers := 0, 0
	var buttonErr, chamberErr float64
	for i := range table.Wells {
		w := &table.Wells[i]
		if w.Button.Autofind {
			autoButtons++
		}
		if w.Chamber.Autofind {
			autoChambers++
		}
		buttonErr += w.Button.Center().Distance(truth[i].ToFloat())
		chamberErr += w.Chamber.Center().Distance(truth[i].ToFloat())
	}
	n := float64(table.Len())

	fmt.Printf("\nResults over %d wells:\n", table.Len())
	fmt.Printf("  buttons autodetected:  %d (%.1f%%), mean position error %.2f px\n",
		autoButtons, 100*float64(autoButtons)/n, buttonErr/n)
	fmt.Printf("  chambers autodetected: %d (%.1f%%), mean position error %.2f px\n",
		autoChambers, 100*float64(autoChambers)/n, chamberErr/n)
	fmt.Printf("  localization: %v, extraction: %v\n", locateTime, extractTime)

	sat := 0
	for i := range table.Wells {
		if table.Wells[i].Photometry.SurfaceFG.SatFraction > 0 {
			sat++
		}
	}
	fmt.Printf("  wells with saturated surface pixels: %d\n", sat)
}
