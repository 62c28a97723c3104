// Package chip provides microfluidic device specification definitions and management.
package chip

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
)

// Spec defines the printed geometry of a microfluidic device: how many
// lattice sites it carries and the nominal pixel radii of the features at
// each site. Radii are nominal for the imaging setup the spec was written
// for; per-well overrides happen during interactive review.
type Spec struct {
	SpecName      string `json:"name"`
	NumRow        int    `json:"num_row"`        // Lattice rows (fast index)
	NumCol        int    `json:"num_col"`        // Lattice columns (slow index)
	ButtonRadius  int    `json:"button_radius"`  // Nominal button radius in pixels
	ChamberRadius int    `json:"chamber_radius"` // Nominal chamber radius in pixels

	// MaxIntensity is the saturating sensor value. Pixels at exactly this
	// value are counted toward the saturation fraction.
	MaxIntensity float64 `json:"max_intensity"`

	Description string `json:"description,omitempty"`
}

// Name returns the spec name.
func (s *Spec) Name() string {
	return s.SpecName
}

// NumWells returns the total number of lattice sites.
func (s *Spec) NumWells() int {
	return s.NumRow * s.NumCol
}

// Validate checks the spec for structural errors.
func (s *Spec) Validate() error {
	if s.SpecName == "" {
		return fmt.Errorf("chip spec name is required")
	}
	if s.NumRow <= 0 || s.NumCol <= 0 {
		return fmt.Errorf("lattice dimensions must be positive, got %dx%d", s.NumRow, s.NumCol)
	}
	if s.ButtonRadius <= 0 {
		return fmt.Errorf("button radius must be positive, got %d", s.ButtonRadius)
	}
	if s.ChamberRadius <= 0 {
		return fmt.Errorf("chamber radius must be positive, got %d", s.ChamberRadius)
	}
	if s.ChamberRadius < s.ButtonRadius {
		return fmt.Errorf("chamber radius (%d) must not be smaller than button radius (%d)",
			s.ChamberRadius, s.ButtonRadius)
	}
	if s.MaxIntensity <= 0 {
		return fmt.Errorf("max intensity must be positive, got %g", s.MaxIntensity)
	}
	return nil
}

// SaveToFile saves the spec to a JSON file.
func (s *Spec) SaveToFile(path string) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// LoadFromFile loads a spec from a JSON file.
func LoadFromFile(path string) (*Spec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var spec Spec
	if err := json.Unmarshal(data, &spec); err != nil {
		return nil, err
	}

	if err := spec.Validate(); err != nil {
		return nil, fmt.Errorf("invalid chip spec: %w", err)
	}

	return &spec, nil
}

// Registry of known chip specs
var registry = make(map[string]*Spec)

// Register adds a chip spec to the registry.
func Register(spec *Spec) {
	registry[spec.Name()] = spec
}

// GetSpec returns a chip spec by name.
func GetSpec(name string) (*Spec, error) {
	if spec, ok := registry[name]; ok {
		return spec, nil
	}
	return nil, fmt.Errorf("unknown chip spec %q (registered: %v)", name, ListSpecs())
}

// ListSpecs returns all registered chip spec names, sorted.
func ListSpecs() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func init() {
	Register(MITOMI640Spec())
	Register(MITOMI1568Spec())
	Register(MITOMI4160Spec())
}
