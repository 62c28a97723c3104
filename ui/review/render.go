package reviewui

import (
	"image"
	"image/color"
	"math"

	"chip-quant/internal/imgstack"
	"chip-quant/internal/review"
)

var (
	colorAuto    = color.RGBA{R: 0, G: 220, B: 60, A: 255}
	colorManual  = color.RGBA{R: 255, G: 220, B: 0, A: 255}
	colorFlagged = color.RGBA{R: 255, G: 60, B: 60, A: 255}
	colorRemoved = color.RGBA{R: 110, G: 110, B: 110, A: 255}
	colorSelect  = color.RGBA{R: 80, G: 160, B: 255, A: 255}
)

// render composes the raster: the active channel as grayscale under the
// feature overlays for the current stage, plus the in-progress selection
// rectangle.
func (w *Window) render(width, height int) image.Image {
	w.mu.Lock()
	stage := w.stage
	zoom := w.zoom
	selecting := w.selecting
	selStart, selEnd := w.selStart, w.selEnd
	w.mu.Unlock()

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	plane := w.backdrop(stage)
	scale := 255.0 / w.maxIntensity

	for y := 0; y < height; y++ {
		iy := int(float64(y) / zoom)
		for x := 0; x < width; x++ {
			ix := int(float64(x) / zoom)
			g := uint8(math.Min(float64(plane.At(ix, iy))*scale, 255))
			img.SetRGBA(x, y, color.RGBA{R: g, G: g, B: g, A: 255})
		}
	}

	// The protocol mutates the table from the pipeline goroutine while the
	// draw side runs here.
	w.table.RLock()
	w.drawFeatures(img, stage, zoom)
	w.table.RUnlock()

	if selecting {
		drawRect(img,
			int(math.Min(selStart.X, selEnd.X)*zoom), int(math.Min(selStart.Y, selEnd.Y)*zoom),
			int(math.Max(selStart.X, selEnd.X)*zoom), int(math.Max(selStart.Y, selEnd.Y)*zoom),
			colorSelect)
	}
	return img
}

// backdrop picks the channel for a stage: buttons and inclusion review look
// at the surface channel, chamber review at the first solubilized frame.
func (w *Window) backdrop(stage review.Stage) *imgstack.Plane {
	if stage == review.StageChambers {
		return w.set.Solubilized.Frame(0)
	}
	return w.set.Surface
}

// drawFeatures overlays the per-well circles. Button stages color by the
// button Autofind flag; chamber review renders the three disjoint partitions
// (autodetected / manually placed / flagged).
func (w *Window) drawFeatures(img *image.RGBA, stage review.Stage, zoom float64) {
	if stage == review.StageChambers {
		auto, manual, flagged := review.Partition(w.table)
		for _, i := range auto {
			w.drawChamber(img, i, zoom, colorAuto)
		}
		for _, i := range manual {
			w.drawChamber(img, i, zoom, colorManual)
		}
		for _, i := range flagged {
			w.drawChamber(img, i, zoom, colorFlagged)
		}
		return
	}

	for i := range w.table.Wells {
		well := &w.table.Wells[i]
		c := colorAuto
		switch {
		case well.Remove:
			c = colorRemoved
		case well.Flag:
			c = colorFlagged
		case !well.Button.Autofind:
			c = colorManual
		}
		drawCircle(img,
			float64(well.Button.X)*zoom, float64(well.Button.Y)*zoom,
			float64(well.Button.Radius)*zoom, c)
	}
}

func (w *Window) drawChamber(img *image.RGBA, i int, zoom float64, c color.RGBA) {
	well := &w.table.Wells[i]
	drawCircle(img,
		float64(well.Chamber.X)*zoom, float64(well.Chamber.Y)*zoom,
		float64(well.Chamber.Radius)*zoom, c)
}

// drawCircle traces a one-pixel outline.
func drawCircle(img *image.RGBA, cx, cy, r float64, c color.RGBA) {
	if r < 1 {
		r = 1
	}
	steps := int(2 * math.Pi * r * 2)
	if steps < 16 {
		steps = 16
	}
	for i := 0; i < steps; i++ {
		a := 2 * math.Pi * float64(i) / float64(steps)
		setPixel(img, int(cx+r*math.Cos(a)), int(cy+r*math.Sin(a)), c)
	}
}

// drawRect traces an axis-aligned outline between two corners.
func drawRect(img *image.RGBA, x1, y1, x2, y2 int, c color.RGBA) {
	for x := x1; x <= x2; x++ {
		setPixel(img, x, y1, c)
		setPixel(img, x, y2, c)
	}
	for y := y1; y <= y2; y++ {
		setPixel(img, x1, y, c)
		setPixel(img, x2, y, c)
	}
}

func setPixel(img *image.RGBA, x, y int, c color.RGBA) {
	if !image.Pt(x, y).In(img.Rect) {
		return
	}
	img.SetRGBA(x, y, c)
}
