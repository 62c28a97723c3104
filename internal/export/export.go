// Package export serializes the finalized well table. CSV carries one row
// per exported (non-removed) well with frame-expanded statistic columns;
// JSON carries the full table including removed wells for archival.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"time"

	"chip-quant/internal/wells"
)

// statNames is the per-mask statistic column group, expanded once per
// channel and frame.
var statNames = []string{"median", "mean", "std", "sum", "sat_fraction"}

// WriteCSV writes the exported wells in export-index order. The column
// layout is fixed by the table's frame counts: surface columns are scalar,
// captured/solubilized columns repeat per frame.
func WriteCSV(w io.Writer, table *wells.Table) error {
	nCap, nSol := frameCounts(table)

	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader(nCap, nSol)); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for i := range table.Wells {
		well := &table.Wells[i]
		if well.Remove {
			continue
		}
		if err := cw.Write(csvRow(well, nCap, nSol)); err != nil {
			return fmt.Errorf("failed to write well %d: %w", well.Index, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteCSVFile writes the CSV export to a file path.
func WriteCSVFile(path string, table *wells.Table) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()
	if err := WriteCSV(f, table); err != nil {
		return err
	}
	return f.Close()
}

// Archive is the JSON export envelope.
type Archive struct {
	Version int          `json:"version"`
	Written time.Time    `json:"written"`
	NumRow  int          `json:"num_row"`
	NumCol  int          `json:"num_col"`
	Wells   []wells.Well `json:"wells"`
}

// WriteJSONFile writes the full table, removed wells included, as an
// indented JSON archive.
func WriteJSONFile(path string, table *wells.Table) error {
	arch := Archive{
		Version: 1,
		Written: time.Now(),
		NumRow:  table.NumRow,
		NumCol:  table.NumCol,
		Wells:   table.Wells,
	}
	data, err := json.MarshalIndent(arch, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal well table: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

// frameCounts returns the captured/solubilized frame counts of the first
// measured well; zero when nothing was measured.
func frameCounts(table *wells.Table) (nCap, nSol int) {
	for i := range table.Wells {
		if table.Wells[i].Remove {
			continue
		}
		ph := &table.Wells[i].Photometry
		return len(ph.CapturedFG), len(ph.SolubilizedFG)
	}
	return 0, 0
}

func csvHeader(nCap, nSol int) []string {
	h := []string{
		"export_index", "index", "row", "col",
		"button_x", "button_y", "button_radius", "button_autofind",
		"chamber_x", "chamber_y", "chamber_radius", "chamber_autofind",
		"flag", "remove",
	}
	h = appendStatHeaders(h, "surface_fg", 0)
	h = appendStatHeaders(h, "surface_bg", 0)
	for f := 1; f <= nCap; f++ {
		h = appendStatHeaders(h, "captured_fg", f)
		h = appendStatHeaders(h, "captured_bg", f)
	}
	for f := 1; f <= nSol; f++ {
		h = appendStatHeaders(h, "solubilized_fg", f)
		h = appendStatHeaders(h, "solubilized_bg", f)
	}
	return h
}

func appendStatHeaders(h []string, prefix string, frame int) []string {
	for _, s := range statNames {
		if frame > 0 {
			h = append(h, fmt.Sprintf("%s_%d_%s", prefix, frame, s))
		} else {
			h = append(h, fmt.Sprintf("%s_%s", prefix, s))
		}
	}
	return h
}

func csvRow(w *wells.Well, nCap, nSol int) []string {
	row := []string{
		strconv.Itoa(w.ExportIndex), strconv.Itoa(w.Index),
		strconv.Itoa(w.Row), strconv.Itoa(w.Col),
		strconv.Itoa(w.Button.X), strconv.Itoa(w.Button.Y),
		strconv.Itoa(w.Button.Radius), strconv.FormatBool(w.Button.Autofind),
		strconv.Itoa(w.Chamber.X), strconv.Itoa(w.Chamber.Y),
		strconv.Itoa(w.Chamber.Radius), strconv.FormatBool(w.Chamber.Autofind),
		// remove is part of the fixed schema even though removed wells never
		// reach the CSV writer; the JSON archive carries the true values.
		strconv.FormatBool(w.Flag), strconv.FormatBool(w.Remove),
	}
	row = appendStats(row, w.Photometry.SurfaceFG)
	row = appendStats(row, w.Photometry.SurfaceBG)
	for f := 0; f < nCap; f++ {
		row = appendStats(row, frameStats(w.Photometry.CapturedFG, f))
		row = appendStats(row, frameStats(w.Photometry.CapturedBG, f))
	}
	for f := 0; f < nSol; f++ {
		row = appendStats(row, frameStats(w.Photometry.SolubilizedFG, f))
		row = appendStats(row, frameStats(w.Photometry.SolubilizedBG, f))
	}
	return row
}

// frameStats pads with NaN stats when a well has fewer frames than the
// table-wide column layout.
func frameStats(v []wells.ChannelStats, f int) wells.ChannelStats {
	if f < len(v) {
		return v[f]
	}
	nan := math.NaN()
	return wells.ChannelStats{Median: nan, Mean: nan, Std: nan, Sum: nan, SatFraction: nan}
}

func appendStats(row []string, s wells.ChannelStats) []string {
	for _, v := range []float64{s.Median, s.Mean, s.Std, s.Sum, s.SatFraction} {
		row = append(row, formatValue(v))
	}
	return row
}

// formatValue renders NaN as an empty cell so downstream tooling reads
// undefined statistics as missing data rather than a parse error.
func formatValue(v float64) string {
	if math.IsNaN(v) {
		return ""
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}
