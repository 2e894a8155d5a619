package csvfile

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/couchcryptid/climate-explorer/internal/domain"
)

// Export file names written by ExportDir.
const (
	EnrichedFile = "enriched.csv"
	DeltasFile   = "deltas.csv"
)

var (
	enrichedHeader = []string{
		"country", "date", "year", "month", "average_temperature",
		"average_temperature_uncertainty", "continent", "code", "lon", "lat",
	}
	deltaHeader = []string{
		"country", "continent", "code", "lon", "lat", "base_year", "late_year",
		"base_temperature", "late_temperature", "change",
	}
)

// WriteEnriched serializes the enriched observation table. A missing
// uncertainty is written as an empty field.
func WriteEnriched(w io.Writer, rows []domain.EnrichedObservation) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(enrichedHeader); err != nil {
		return fmt.Errorf("csv: write header: %w", err)
	}
	for _, r := range rows {
		uncertainty := ""
		if r.HasUncertainty {
			uncertainty = formatFloat(r.Uncertainty)
		}
		if err := cw.Write([]string{
			r.Country,
			r.Date.Format(time.DateOnly),
			strconv.Itoa(r.Year),
			strconv.Itoa(r.Month),
			formatFloat(r.Temperature),
			uncertainty,
			r.Continent,
			r.Code,
			formatFloat(r.Lon),
			formatFloat(r.Lat),
		}); err != nil {
			return fmt.Errorf("csv: write row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteDeltas serializes the warming delta table.
func WriteDeltas(w io.Writer, deltas []domain.WarmingDelta) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(deltaHeader); err != nil {
		return fmt.Errorf("csv: write header: %w", err)
	}
	for _, d := range deltas {
		if err := cw.Write([]string{
			d.Country,
			d.Continent,
			d.Code,
			formatFloat(d.Lon),
			formatFloat(d.Lat),
			strconv.Itoa(d.BaseYear),
			strconv.Itoa(d.LateYear),
			formatFloat(d.BaseTemperature),
			formatFloat(d.LateTemperature),
			formatFloat(d.Change),
		}); err != nil {
			return fmt.Errorf("csv: write row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// ExportDir writes both tables of ds into dir, creating it if needed and
// truncating previous exports.
func ExportDir(dir string, ds *domain.Dataset) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("csv: create output dir: %w", err)
	}
	if err := writeFile(filepath.Join(dir, EnrichedFile), func(w io.Writer) error {
		return WriteEnriched(w, ds.Enriched)
	}); err != nil {
		return err
	}
	return writeFile(filepath.Join(dir, DeltasFile), func(w io.Writer) error {
		return WriteDeltas(w, ds.Deltas)
	})
}

func writeFile(path string, fn func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("csv: create file %q: %w", path, err)
	}
	if err := fn(f); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
