package pipeline

import (
	"context"
	"fmt"
	"log"

	"chip-quant/internal/chip"
	"chip-quant/internal/export"
	"chip-quant/internal/extract"
	"chip-quant/internal/imgstack"
	"chip-quant/internal/lattice"
	"chip-quant/internal/locate"
	"chip-quant/internal/review"
	"chip-quant/internal/wells"
)

// Result carries the finished state of one run.
type Result struct {
	Spec        chip.Spec
	Set         *imgstack.Set
	ButtonGrid  *lattice.Grid
	ChamberGrid *lattice.Grid
	Table       *wells.Table
}

// Run executes the full quantification pipeline. src drives the correction
// protocol; a nil src skips review entirely (fully automated run).
// review.ErrAborted propagates untouched so callers can distinguish user
// cancellation from failure.
func Run(ctx context.Context, cfg *Config, src review.CommandSource) (*Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	spec, err := chip.GetSpec(cfg.Chip)
	if err != nil {
		return nil, err
	}

	set, err := LoadChannels(cfg)
	if err != nil {
		return nil, err
	}

	res, err := Localize(ctx, *spec, cfg, set)
	if err != nil {
		return nil, err
	}

	if err := Finish(ctx, cfg, res, src); err != nil {
		return nil, err
	}
	return res, nil
}

// Finish runs the correction protocol, extraction, and export over an
// already-localized result. src may be nil to skip review.
func Finish(ctx context.Context, cfg *Config, res *Result, src review.CommandSource) error {
	if src != nil {
		if err := review.New(res.Table, cfg.UndoDepth).Run(src); err != nil {
			return err
		}
	}

	if err := extract.Run(ctx, res.Set, res.Table, extract.Params{
		MaxIntensity: res.Spec.MaxIntensity,
		Workers:      cfg.Workers,
	}); err != nil {
		return err
	}

	return writeOutputs(cfg, res.Table)
}

// Localize runs lattice inference and both localization passes, producing
// the populated well table ready for review.
func Localize(ctx context.Context, spec chip.Spec, cfg *Config, set *imgstack.Set) (*Result, error) {
	buttonGrid, buttonR, err := lattice.FitAndGenerate(cfg.ButtonCorners, spec.NumRow, spec.NumCol)
	if err != nil {
		return nil, fmt.Errorf("button lattice: %w", err)
	}
	chamberGrid, chamberR, err := lattice.FitAndGenerate(cfg.ChamberCorners, spec.NumRow, spec.NumCol)
	if err != nil {
		return nil, fmt.Errorf("chamber lattice: %w", err)
	}

	rb := lattice.RoundRadius(buttonR)
	rc := lattice.RoundRadius(chamberR)
	log.Printf("lattice %dx%d inferred, button radius %d, chamber radius %d",
		spec.NumRow, spec.NumCol, rb, rc)

	table, err := wells.NewTable(spec.NumRow, spec.NumCol, rb, rc)
	if err != nil {
		return nil, err
	}

	params := locate.Params{
		ButtonRadius:  rb,
		ChamberRadius: rc,
		MaxIntensity:  spec.MaxIntensity,
		Workers:       cfg.Workers,
		Detector:      cfg.Detector,
	}
	if err := locate.Buttons(ctx, set.Surface, buttonGrid, table, params); err != nil {
		return nil, err
	}
	// Chamber localization runs on the first solubilized frame.
	if err := locate.Chambers(ctx, set.Solubilized.Frame(0), chamberGrid, table, params); err != nil {
		return nil, err
	}

	return &Result{
		Spec:        spec,
		Set:         set,
		ButtonGrid:  buttonGrid,
		ChamberGrid: chamberGrid,
		Table:       table,
	}, nil
}

// LoadChannels reads and orients the three channels, enforcing the shared
// extent invariant.
func LoadChannels(cfg *Config) (*imgstack.Set, error) {
	surface, err := imgstack.LoadPlane(cfg.resolve(cfg.SurfacePath))
	if err != nil {
		return nil, fmt.Errorf("surface channel: %w", err)
	}
	solubilized, err := imgstack.LoadStack(cfg.resolveAll(cfg.SolubilizedPaths))
	if err != nil {
		return nil, fmt.Errorf("solubilized channel: %w", err)
	}
	captured, err := imgstack.LoadStack(cfg.resolveAll(cfg.CapturedPaths))
	if err != nil {
		return nil, fmt.Errorf("captured channel: %w", err)
	}

	o := cfg.Orientation
	if o.Rotate != 0 || o.Flip {
		surface = surface.Rotate(o.Rotate)
		if o.Flip {
			surface = surface.FlipHorizontal()
		}
		solubilized = solubilized.Orient(o.Rotate, o.Flip)
		captured = captured.Orient(o.Rotate, o.Flip)
	}

	set := &imgstack.Set{Surface: surface, Solubilized: solubilized, Captured: captured}
	if err := set.Validate(); err != nil {
		return nil, err
	}
	log.Printf("loaded channels: %dx%d, %d solubilized frames, %d captured frames",
		set.Surface.Width, set.Surface.Height,
		set.Solubilized.NumFrames(), set.Captured.NumFrames())
	return set, nil
}

// writeOutputs writes whichever exports the run file names.
func writeOutputs(cfg *Config, table *wells.Table) error {
	if cfg.CSVPath != "" {
		if err := export.WriteCSVFile(cfg.resolve(cfg.CSVPath), table); err != nil {
			return err
		}
		log.Printf("wrote %s", cfg.CSVPath)
	}
	if cfg.JSONPath != "" {
		if err := export.WriteJSONFile(cfg.resolve(cfg.JSONPath), table); err != nil {
			return err
		}
		log.Printf("wrote %s", cfg.JSONPath)
	}
	return nil
}
