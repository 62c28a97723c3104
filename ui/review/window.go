// Package reviewui provides the interactive correction window. It renders
// the active channel with feature overlays and translates clicks, rubber-band
// selections, and toolbar actions into review commands. The window is a
// review.CommandSource: the pipeline blocks on Next while the user works.
package reviewui

import (
	"fmt"
	"sync"

	"chip-quant/internal/imgstack"
	"chip-quant/internal/review"
	"chip-quant/internal/wells"
	"chip-quant/pkg/geometry"

	"fyne.io/fyne/v2"
	fynecanvas "fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"
)

const (
	minZoom  = 0.25
	maxZoom  = 8.0
	zoomStep = 1.25
)

// selectAction is what a finished rubber-band drag means.
type selectAction int

const (
	actionFlag selectAction = iota
	actionRemove
)

// Window is the interactive review surface.
type Window struct {
	win   fyne.Window
	set   *imgstack.Set
	table *wells.Table

	maxIntensity float64

	raster     *fynecanvas.Raster
	content    *reviewContent
	scroll     *container.Scroll
	stageLabel *widget.Label
	hintLabel  *widget.Label

	mu    sync.Mutex
	stage review.Stage
	zoom  float64

	// Two-click reposition: first click picks the feature, second places it.
	pendingNear *geometry.Point2D

	// Rubber-band state
	action    selectAction
	selecting bool
	selStart  geometry.Point2D
	selEnd    geometry.Point2D

	commands  chan review.Command
	closeOnce sync.Once
	closed    chan struct{}
}

// New builds the review window over the loaded channels and well table.
func New(app fyne.App, set *imgstack.Set, table *wells.Table, maxIntensity float64) *Window {
	w := &Window{
		win:          app.NewWindow("Chip Review"),
		set:          set,
		table:        table,
		maxIntensity: maxIntensity,
		zoom:         1.0,
		commands:     make(chan review.Command),
		closed:       make(chan struct{}),
	}

	w.raster = fynecanvas.NewRaster(w.render)
	w.content = newReviewContent(w)
	w.scroll = container.NewScroll(w.content)
	w.stageLabel = widget.NewLabel(review.StageButtons.String())
	w.hintLabel = widget.NewLabel("")

	toolbar := container.NewHBox(
		widget.NewButton("Continue", func() { w.send(review.Continue{}) }),
		widget.NewButton("Flag mode", func() { w.setAction(actionFlag) }),
		widget.NewButton("Remove mode", func() { w.setAction(actionRemove) }),
		widget.NewButton("Undo flag", func() { w.send(review.UndoLastFlag{}) }),
		widget.NewButton("Undo removal", func() { w.send(review.UndoLastRemoval{}) }),
		widget.NewButton("Zoom +", func() { w.setZoom(w.zoom * zoomStep) }),
		widget.NewButton("Zoom -", func() { w.setZoom(w.zoom / zoomStep) }),
		widget.NewButton("Abort", func() { w.send(review.Abort{}) }),
	)

	w.win.SetContent(container.NewBorder(
		container.NewVBox(container.NewHBox(w.stageLabel, w.hintLabel), toolbar),
		nil, nil, nil,
		w.scroll,
	))
	w.win.Resize(fyne.NewSize(1100, 800))
	w.win.SetCloseIntercept(func() {
		w.closeOnce.Do(func() { close(w.closed) })
		w.win.Close()
	})
	w.win.Canvas().SetOnTypedKey(func(ev *fyne.KeyEvent) {
		switch ev.Name {
		case fyne.KeySpace, fyne.KeyReturn:
			w.send(review.Continue{})
		case fyne.KeyU:
			w.send(review.UndoLastFlag{})
		case fyne.KeyR:
			w.send(review.UndoLastRemoval{})
		case fyne.KeyEscape:
			w.send(review.Abort{})
		}
	})
	return w
}

// Show displays the window.
func (w *Window) Show() {
	w.win.Show()
}

// Close dismisses the window after review finishes.
func (w *Window) Close() {
	w.closeOnce.Do(func() { close(w.closed) })
	w.win.Close()
}

// Next implements review.CommandSource. Called from the pipeline goroutine;
// blocks until the user issues a command. Closing the window aborts.
func (w *Window) Next(stage review.Stage) (review.Command, error) {
	w.setStage(stage)
	// Next follows every applied command, so this redraw makes the previous
	// edit visible before the user issues the next one.
	w.raster.Refresh()
	select {
	case cmd := <-w.commands:
		return cmd, nil
	case <-w.closed:
		return review.Abort{}, nil
	}
}

func (w *Window) setStage(stage review.Stage) {
	w.mu.Lock()
	w.stage = stage
	w.pendingNear = nil
	w.mu.Unlock()

	w.stageLabel.SetText(stage.String())
	switch stage {
	case review.StageButtons:
		w.hintLabel.SetText("click a button marker, then click its correct position")
	case review.StageInclusion:
		w.hintLabel.SetText("drag to flag or remove wells; pick the mode first")
	case review.StageChambers:
		w.hintLabel.SetText("click a chamber marker, then click its correct position")
	}
}

// send hands a command to the blocked pipeline goroutine. Dropped when the
// pipeline is not waiting (review already finished).
func (w *Window) send(cmd review.Command) {
	select {
	case w.commands <- cmd:
	case <-w.closed:
	}
}

func (w *Window) setAction(a selectAction) {
	w.mu.Lock()
	w.action = a
	w.mu.Unlock()
	if a == actionFlag {
		w.hintLabel.SetText("drag to flag wells")
	} else {
		w.hintLabel.SetText("drag to remove wells")
	}
}

func (w *Window) setZoom(z float64) {
	if z < minZoom {
		z = minZoom
	}
	if z > maxZoom {
		z = maxZoom
	}
	w.mu.Lock()
	w.zoom = z
	w.mu.Unlock()
	w.content.Refresh()
	w.raster.Refresh()
}

// tapped handles a click at image coordinates.
func (w *Window) tapped(p geometry.Point2D) {
	w.mu.Lock()
	stage := w.stage
	near := w.pendingNear
	w.mu.Unlock()

	if stage == review.StageInclusion {
		return
	}
	if near == nil {
		w.mu.Lock()
		w.pendingNear = &p
		w.mu.Unlock()
		w.hintLabel.SetText(fmt.Sprintf("selected near (%.0f, %.0f); click the correct position", p.X, p.Y))
		return
	}
	w.mu.Lock()
	w.pendingNear = nil
	w.mu.Unlock()
	w.send(review.Reposition{Near: *near, To: p})
}

// dragFinished handles a completed rubber-band selection in image
// coordinates.
func (w *Window) dragFinished(r geometry.Rect) {
	w.mu.Lock()
	stage := w.stage
	action := w.action
	w.mu.Unlock()

	if stage != review.StageInclusion {
		return
	}
	if action == actionRemove {
		w.send(review.RemoveRegion{Region: r})
	} else {
		w.send(review.FlagRegion{Region: r})
	}
}

// reviewContent wraps the raster to receive taps and drags, in the manner of
// a draggable canvas widget.
type reviewContent struct {
	widget.BaseWidget
	w *Window
}

func newReviewContent(w *Window) *reviewContent {
	c := &reviewContent{w: w}
	c.ExtendBaseWidget(c)
	return c
}

func (c *reviewContent) CreateRenderer() fyne.WidgetRenderer {
	return widget.NewSimpleRenderer(c.w.raster)
}

func (c *reviewContent) MinSize() fyne.Size {
	c.w.mu.Lock()
	zoom := c.w.zoom
	c.w.mu.Unlock()
	return fyne.NewSize(
		float32(float64(c.w.set.Surface.Width)*zoom),
		float32(float64(c.w.set.Surface.Height)*zoom),
	)
}

func (c *reviewContent) toImage(pos fyne.Position) geometry.Point2D {
	c.w.mu.Lock()
	zoom := c.w.zoom
	c.w.mu.Unlock()
	return geometry.Point2D{X: float64(pos.X) / zoom, Y: float64(pos.Y) / zoom}
}

func (c *reviewContent) Tapped(ev *fyne.PointEvent) {
	c.w.tapped(c.toImage(ev.Position))
}

func (c *reviewContent) Dragged(ev *fyne.DragEvent) {
	p := c.toImage(ev.Position)
	c.w.mu.Lock()
	if !c.w.selecting {
		c.w.selecting = true
		c.w.selStart = p
	}
	c.w.selEnd = p
	c.w.mu.Unlock()
	c.w.raster.Refresh()
}

func (c *reviewContent) DragEnd() {
	c.w.mu.Lock()
	if !c.w.selecting {
		c.w.mu.Unlock()
		return
	}
	c.w.selecting = false
	start, end := c.w.selStart, c.w.selEnd
	c.w.mu.Unlock()

	c.w.dragFinished(geometry.NewRect(start.X, start.Y, end.X, end.Y))
	c.w.raster.Refresh()
}
