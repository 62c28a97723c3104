// Package review implements the interactive correction protocol over the
// well table. Review runs as three strictly sequential stages — button
// position review, inclusion/flag review, chamber position review — each a
// finite-state loop over commands delivered by an external collaborator
// (the fyne window, or a recorded transcript). The protocol itself is pure
// state transition; it knows nothing about rendering or input capture.
package review

import (
	"errors"
	"fmt"

	"chip-quant/internal/wells"
	"chip-quant/pkg/geometry"
)

// ErrAborted signals user cancellation. It is an expected termination path,
// not a failure: the caller stops the run and writes no output. The table
// keeps whatever partial edits were applied — there is no rollback.
var ErrAborted = errors.New("review aborted")

// Stage identifies one of the three review stages.
type Stage int

const (
	StageButtons   Stage = iota // Button position review
	StageInclusion              // Flag / remove review
	StageChambers               // Chamber position review
)

func (s Stage) String() string {
	switch s {
	case StageButtons:
		return "button review"
	case StageInclusion:
		return "inclusion review"
	case StageChambers:
		return "chamber review"
	default:
		return "unknown stage"
	}
}

// Command is one review operation. The concrete types below form a tagged
// union consumed by the per-stage transition functions.
type Command interface {
	isCommand()
}

// Continue ends the current stage and advances to the next.
type Continue struct{}

// Abort terminates review; the caller receives ErrAborted.
type Abort struct{}

// Reposition moves the feature of the well nearest to Near (by squared
// distance, lowest index on ties) to To, clearing its Autofind flag.
// Stage A targets buttons, stage C targets chambers.
type Reposition struct {
	Near geometry.Point2D
	To   geometry.Point2D
}

// FlagRegion flags every non-removed well whose button center lies strictly
// inside the rectangle.
type FlagRegion struct {
	Region geometry.Rect
}

// RemoveRegion removes every well whose button center lies strictly inside
// the rectangle. Removal and flagging are independent.
type RemoveRegion struct {
	Region geometry.Rect
}

// UndoLastFlag reverses the most recent flag batch.
type UndoLastFlag struct{}

// UndoLastRemoval reverses the most recent removal batch.
type UndoLastRemoval struct{}

func (Continue) isCommand()        {}
func (Abort) isCommand()           {}
func (Reposition) isCommand()      {}
func (FlagRegion) isCommand()      {}
func (RemoveRegion) isCommand()    {}
func (UndoLastFlag) isCommand()    {}
func (UndoLastRemoval) isCommand() {}

// CommandSource delivers commands for a given stage. Sources block until
// input is available; returning an error (including source exhaustion or a
// closed window) aborts review.
type CommandSource interface {
	Next(stage Stage) (Command, error)
}

// Protocol drives the three review stages over one well table.
type Protocol struct {
	store *wells.Table

	// Batch histories for single-level (by default) undo. Each entry is
	// the set of well indices whose state the batch changed.
	flagHistory   [][]int
	removeHistory [][]int
	historyDepth  int
}

// New creates a protocol over the table. historyDepth is the number of
// undoable batches remembered per operation kind; values below 1 fall back
// to the default single-level undo.
func New(store *wells.Table, historyDepth int) *Protocol {
	if historyDepth < 1 {
		historyDepth = 1
	}
	return &Protocol{store: store, historyDepth: historyDepth}
}

// Run executes all three stages in order. It returns nil when every stage
// ended with Continue, ErrAborted on user abort, and the source's error if
// command delivery fails.
func (p *Protocol) Run(src CommandSource) error {
	for _, stage := range []Stage{StageButtons, StageInclusion, StageChambers} {
		if err := p.RunStage(stage, src); err != nil {
			return err
		}
	}
	return nil
}

// RunStage loops one stage until Continue or an abort condition.
func (p *Protocol) RunStage(stage Stage, src CommandSource) error {
	for {
		cmd, err := src.Next(stage)
		if err != nil {
			return fmt.Errorf("%s: %w", stage, err)
		}
		done, err := p.Apply(stage, cmd)
		if err != nil {
			return err
		}
		if done {
			return nil
		}
	}
}

// Apply performs a single command in the context of a stage. It returns
// done=true when the stage should end. Commands invalid for the stage are
// rejected with an error; Abort yields ErrAborted.
func (p *Protocol) Apply(stage Stage, cmd Command) (done bool, err error) {
	switch c := cmd.(type) {
	case Continue:
		return true, nil
	case Abort:
		return false, fmt.Errorf("%s: %w", stage, ErrAborted)
	case Reposition:
		switch stage {
		case StageButtons:
			p.repositionButton(c)
		case StageChambers:
			p.repositionChamber(c)
		default:
			return false, fmt.Errorf("%s: reposition is not valid here", stage)
		}
		return false, nil
	case FlagRegion:
		if stage != StageInclusion {
			return false, fmt.Errorf("%s: flag region is not valid here", stage)
		}
		p.flagRegion(c.Region)
		return false, nil
	case RemoveRegion:
		if stage != StageInclusion {
			return false, fmt.Errorf("%s: remove region is not valid here", stage)
		}
		p.removeRegion(c.Region)
		return false, nil
	case UndoLastFlag:
		if stage != StageInclusion {
			return false, fmt.Errorf("%s: undo flag is not valid here", stage)
		}
		p.undoFlag()
		return false, nil
	case UndoLastRemoval:
		if stage != StageInclusion {
			return false, fmt.Errorf("%s: undo removal is not valid here", stage)
		}
		p.undoRemoval()
		return false, nil
	default:
		return false, fmt.Errorf("%s: unknown command %T", stage, cmd)
	}
}

func (p *Protocol) repositionButton(c Reposition) {
	p.store.Lock()
	defer p.store.Unlock()
	idx := p.store.NearestButton(c.Near)
	if idx < 0 {
		return
	}
	to := geometry.Round(c.To)
	w := &p.store.Wells[idx]
	w.Button.X = to.X
	w.Button.Y = to.Y
	w.Button.Autofind = false
}

func (p *Protocol) repositionChamber(c Reposition) {
	p.store.Lock()
	defer p.store.Unlock()
	idx := p.store.NearestChamber(c.Near)
	if idx < 0 {
		return
	}
	to := geometry.Round(c.To)
	w := &p.store.Wells[idx]
	w.Chamber.X = to.X
	w.Chamber.Y = to.Y
	w.Chamber.Autofind = false
}

// flagRegion flags non-removed wells strictly inside the region. Only wells
// whose flag actually changed enter the undo batch, so undo restores the
// exact prior state.
func (p *Protocol) flagRegion(r geometry.Rect) {
	p.store.Lock()
	defer p.store.Unlock()
	var batch []int
	for i := range p.store.Wells {
		w := &p.store.Wells[i]
		if w.Remove || w.Flag {
			continue
		}
		if r.ContainsStrict(w.Button.Center()) {
			w.Flag = true
			batch = append(batch, i)
		}
	}
	p.flagHistory = pushBatch(p.flagHistory, batch, p.historyDepth)
}

func (p *Protocol) removeRegion(r geometry.Rect) {
	p.store.Lock()
	defer p.store.Unlock()
	var batch []int
	for i := range p.store.Wells {
		w := &p.store.Wells[i]
		if w.Remove {
			continue
		}
		if r.ContainsStrict(w.Button.Center()) {
			w.Remove = true
			batch = append(batch, i)
		}
	}
	p.removeHistory = pushBatch(p.removeHistory, batch, p.historyDepth)
}

func (p *Protocol) undoFlag() {
	p.store.Lock()
	defer p.store.Unlock()
	var batch []int
	p.flagHistory, batch = popBatch(p.flagHistory)
	for _, i := range batch {
		p.store.Wells[i].Flag = false
	}
}

func (p *Protocol) undoRemoval() {
	p.store.Lock()
	defer p.store.Unlock()
	var batch []int
	p.removeHistory, batch = popBatch(p.removeHistory)
	for _, i := range batch {
		p.store.Wells[i].Remove = false
	}
}

// pushBatch appends a batch, dropping the oldest entries beyond depth.
// Empty batches are still recorded: undoing after an empty selection is a
// no-op rather than reaching back to an older batch.
func pushBatch(history [][]int, batch []int, depth int) [][]int {
	history = append(history, batch)
	if len(history) > depth {
		history = history[len(history)-depth:]
	}
	return history
}

func popBatch(history [][]int) ([][]int, []int) {
	if len(history) == 0 {
		return history, nil
	}
	return history[:len(history)-1], history[len(history)-1]
}

// Partition splits non-removed wells into the three disjoint display sets
// used by the chamber review stage: autodetected, manually placed, and
// flagged. Flagged wins over the placement split. Callers rendering while
// review is live must hold the table's read lock.
func Partition(store *wells.Table) (auto, manual, flagged []int) {
	for i := range store.Wells {
		w := &store.Wells[i]
		if w.Remove {
			continue
		}
		switch {
		case w.Flag:
			flagged = append(flagged, i)
		case w.Chamber.Autofind:
			auto = append(auto, i)
		default:
			manual = append(manual, i)
		}
	}
	return auto, manual, flagged
}
