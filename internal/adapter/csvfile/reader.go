package csvfile

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/couchcryptid/climate-explorer/internal/domain"
)

// Paths locates the input tables. Aliases is optional.
type Paths struct {
	Temperatures string
	Continents   string
	Countries    string
	Aliases      string
}

// SchemaError reports a table whose header lacks required columns.
type SchemaError struct {
	Path     string
	Missing  []string
	Expected []string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("csv schema: %s: missing columns %s (expected %s)",
		e.Path, strings.Join(e.Missing, ", "), strings.Join(e.Expected, ", "))
}

// column is a required header, matched case-insensitively against any of its names.
type column struct {
	name    string
	aliases []string
}

var (
	temperatureColumns = []column{
		{name: "dt", aliases: []string{"date"}},
		{name: "AverageTemperature"},
		{name: "AverageTemperatureUncertainty"},
		{name: "Country"},
	}
	continentColumns = []column{
		{name: "Country"},
		{name: "Continent"},
	}
	countryColumns = []column{
		{name: "country"},
		{name: "code"},
		{name: "lon", aliases: []string{"longitude"}},
		{name: "lat", aliases: []string{"latitude"}},
	}
)

// Load reads the three tables and the optional alias file. Any unreadable file,
// missing column or malformed value is returned as an error naming the path.
func Load(paths Paths, logger *slog.Logger) (domain.Sources, error) {
	var src domain.Sources

	observations, skipped, err := ReadTemperatures(paths.Temperatures)
	if err != nil {
		return src, err
	}
	continents, err := ReadContinents(paths.Continents)
	if err != nil {
		return src, err
	}
	countries, err := ReadCountries(paths.Countries)
	if err != nil {
		return src, err
	}

	src.Observations = observations
	src.SkippedReadings = skipped
	src.Continents = continents
	src.Countries = countries

	if paths.Aliases != "" {
		aliases, err := LoadAliases(paths.Aliases)
		if err != nil {
			return src, err
		}
		src.Aliases = aliases
	}

	logger.Info("sources loaded",
		"observations", len(observations),
		"skipped_readings", skipped,
		"continents", len(continents),
		"countries", len(countries),
		"aliases", len(src.Aliases),
	)
	return src, nil
}

// ReadTemperatures reads the monthly temperature table. Rows with a blank
// temperature are skipped and counted.
func ReadTemperatures(path string) ([]domain.Observation, int, error) {
	var (
		out     []domain.Observation
		skipped int
	)
	err := readTable(path, temperatureColumns, func(line int, field func(int) string) error {
		rawTemp := field(1)
		if rawTemp == "" {
			skipped++
			return nil
		}
		date, err := parseDate(field(0))
		if err != nil {
			return fieldError(path, line, "dt", err)
		}
		temp, err := strconv.ParseFloat(rawTemp, 64)
		if err != nil {
			return fieldError(path, line, "AverageTemperature", err)
		}
		o := domain.Observation{Country: field(3), Date: date, Temperature: temp}
		if raw := field(2); raw != "" {
			u, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				return fieldError(path, line, "AverageTemperatureUncertainty", err)
			}
			o.Uncertainty = u
			o.HasUncertainty = true
		}
		out = append(out, o)
		return nil
	})
	if err != nil {
		return nil, 0, err
	}
	return out, skipped, nil
}

// ReadContinents reads the country to continent lookup table.
func ReadContinents(path string) ([]domain.ContinentEntry, error) {
	var out []domain.ContinentEntry
	err := readTable(path, continentColumns, func(_ int, field func(int) string) error {
		out = append(out, domain.ContinentEntry{Country: field(0), Continent: field(1)})
		return nil
	})
	return out, err
}

// ReadCountries reads the per-country metadata table.
func ReadCountries(path string) ([]domain.CountryMetadata, error) {
	var out []domain.CountryMetadata
	err := readTable(path, countryColumns, func(line int, field func(int) string) error {
		lon, err := strconv.ParseFloat(field(2), 64)
		if err != nil {
			return fieldError(path, line, "lon", err)
		}
		lat, err := strconv.ParseFloat(field(3), 64)
		if err != nil {
			return fieldError(path, line, "lat", err)
		}
		out = append(out, domain.CountryMetadata{Country: field(0), Code: field(1), Lon: lon, Lat: lat})
		return nil
	})
	return out, err
}

// readTable opens path, resolves the required columns from the header and
// calls fn for every data row. field(i) returns the trimmed value of the i-th
// required column.
func readTable(path string, cols []column, fn func(line int, field func(int) string) error) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.ReuseRecord = true

	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return &SchemaError{Path: path, Missing: columnNames(cols), Expected: columnNames(cols)}
	}
	if err != nil {
		return fmt.Errorf("read %s header: %w", path, err)
	}

	idx, err := resolveColumns(path, header, cols)
	if err != nil {
		return err
	}

	var rec []string
	field := func(i int) string { return strings.TrimSpace(rec[idx[i]]) }

	for {
		rec, err = r.Read()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}
		line, _ := r.FieldPos(0)
		if err := fn(line, field); err != nil {
			return err
		}
	}
}

func resolveColumns(path string, header []string, cols []column) ([]int, error) {
	positions := make(map[string]int, len(header))
	for i, h := range header {
		h = strings.TrimPrefix(h, "\ufeff")
		key := strings.ToLower(strings.TrimSpace(h))
		if _, seen := positions[key]; !seen {
			positions[key] = i
		}
	}

	idx := make([]int, len(cols))
	var missing []string
	for i, c := range cols {
		pos, ok := lookupColumn(positions, c)
		if !ok {
			missing = append(missing, c.name)
			continue
		}
		idx[i] = pos
	}
	if len(missing) > 0 {
		return nil, &SchemaError{Path: path, Missing: missing, Expected: columnNames(cols)}
	}
	return idx, nil
}

func lookupColumn(positions map[string]int, c column) (int, bool) {
	for _, name := range append([]string{c.name}, c.aliases...) {
		if pos, ok := positions[strings.ToLower(name)]; ok {
			return pos, true
		}
	}
	return 0, false
}

func columnNames(cols []column) []string {
	names := make([]string, len(cols))
	for i, c := range cols {
		names[i] = c.name
	}
	return names
}

func parseDate(s string) (time.Time, error) {
	for _, layout := range []string{time.DateOnly, time.RFC3339, time.DateTime} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", s)
}

func fieldError(path string, line int, col string, err error) error {
	return fmt.Errorf("read %s: line %d: column %s: %w", path, line, col, err)
}
