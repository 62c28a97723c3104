// Package pipeline ties the quantification stages together: load and orient
// the three channels, infer both lattices from the sampled corners, localize
// features, run the correction protocol, extract photometry, and write the
// exports. Configuration errors abort before any image is touched.
package pipeline

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"chip-quant/internal/chip"
	"chip-quant/internal/lattice"
	"chip-quant/internal/locate"
)

// Orientation is the per-run channel normalization applied at load time.
type Orientation struct {
	Rotate int  `json:"rotate"` // Clockwise degrees: 0, 90, 180, 270
	Flip   bool `json:"flip"`   // Horizontal mirror after rotation
}

// Config is the run file (.chipquant). Image paths are relative to the run
// file's directory; baseDir is set at load time and left empty for
// programmatic configs with absolute paths.
type Config struct {
	Version int       `json:"version"`
	Name    string    `json:"name"`
	Created time.Time `json:"created,omitempty"`

	Chip string `json:"chip"` // Registered device spec name

	SurfacePath      string   `json:"surface_image"`
	SolubilizedPaths []string `json:"solubilized_images"`
	CapturedPaths    []string `json:"captured_images"`

	Orientation Orientation `json:"orientation"`

	ButtonCorners  [4]lattice.CornerSample `json:"button_corners"`
	ChamberCorners [4]lattice.CornerSample `json:"chamber_corners"`

	// TranscriptPath names a recorded review transcript for headless runs.
	// Empty means review is driven interactively (or skipped by the caller).
	TranscriptPath string `json:"transcript,omitempty"`

	CSVPath  string `json:"csv_output,omitempty"`
	JSONPath string `json:"json_output,omitempty"`

	Workers   int `json:"workers,omitempty"`    // <=0 means NumCPU
	UndoDepth int `json:"undo_depth,omitempty"` // <1 means single-level

	// Detector overrides the primary circle-detection pass. Nil selects the
	// production Hough detector. Not serialized.
	Detector locate.CircleDetector `json:"-"`

	baseDir string
}

// LoadConfig reads and validates a run file. Relative image paths resolve
// against the run file's directory.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read run file: %w", err)
	}
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("malformed run file %s: %w", filepath.Base(path), err)
	}
	cfg.baseDir = filepath.Dir(path)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Save writes the run file. Paths are stored as given.
func (c *Config) Save(path string) error {
	if c.Created.IsZero() {
		c.Created = time.Now()
	}
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal run file: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

// Validate checks every precondition that can be judged without touching an
// image file.
func (c *Config) Validate() error {
	if c.Chip == "" {
		return fmt.Errorf("run file names no chip spec")
	}
	if _, err := chip.GetSpec(c.Chip); err != nil {
		return err
	}
	if c.SurfacePath == "" {
		return fmt.Errorf("surface image path is required")
	}
	if len(c.SolubilizedPaths) == 0 {
		return fmt.Errorf("at least one solubilized image is required")
	}
	if len(c.CapturedPaths) == 0 {
		return fmt.Errorf("at least one captured image is required")
	}
	switch c.Orientation.Rotate {
	case 0, 90, 180, 270:
	default:
		return fmt.Errorf("rotation must be 0, 90, 180 or 270 degrees, got %d", c.Orientation.Rotate)
	}
	for i, s := range c.ButtonCorners {
		if len(s.Clicks) < 3 {
			return fmt.Errorf("button corner %d: need at least 3 circumference points, got %d", i+1, len(s.Clicks))
		}
	}
	for i, s := range c.ChamberCorners {
		if len(s.Clicks) < 3 {
			return fmt.Errorf("chamber corner %d: need at least 3 circumference points, got %d", i+1, len(s.Clicks))
		}
	}
	return nil
}

// resolve turns a run-file-relative path into an absolute one.
func (c *Config) resolve(path string) string {
	if c.baseDir == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(c.baseDir, path)
}

func (c *Config) resolveAll(paths []string) []string {
	out := make([]string, len(paths))
	for i, p := range paths {
		out[i] = c.resolve(p)
	}
	return out
}
