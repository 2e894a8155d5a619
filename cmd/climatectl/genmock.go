package main

import (
	"encoding/csv"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"slices"
	"strconv"

	"github.com/spf13/cobra"
)

// mockCountry drives the generated temperature curve of one country.
type mockCountry struct {
	name      string
	continent string
	code      string
	lon, lat  float64
	mean      float64 // annual mean in the first generated year
	amplitude float64 // half the seasonal swing; negative south of the equator
	trend     float64 // warming per decade
}

var mockCountries = []mockCountry{
	{name: "Australia", continent: "Oceania", code: "AUS", lon: 133.78, lat: -25.27, mean: 21.5, amplitude: -5.5, trend: 0.12},
	{name: "Canada", continent: "North America", code: "CAN", lon: -106.35, lat: 56.13, mean: -5.2, amplitude: 17.5, trend: 0.35},
	{name: "Japan", continent: "Asia", code: "JPN", lon: 138.25, lat: 36.2, mean: 11.1, amplitude: 10.2, trend: 0.2},
	{name: "Kenya", continent: "Africa", code: "KEN", lon: 37.91, lat: -0.02, mean: 24.1, amplitude: -1.2, trend: 0.15},
	{name: "Norway", continent: "Europe", code: "NOR", lon: 8.47, lat: 60.47, mean: 1.4, amplitude: 8.9, trend: 0.3},
	{name: "Peru", continent: "South America", code: "PER", lon: -75.02, lat: -9.19, mean: 19.6, amplitude: -1.4, trend: 0.1},
}

// mockUnmatched appears only in the temperature table, so the generated set
// always exercises the unmatched-country report.
const mockUnmatched = "Atlantis"

func newGenmockCmd(opts *options) *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "genmock",
		Short: "Write a small deterministic set of input tables",
		Long: `Generates temperatures.csv, continents.csv and countries.csv for a handful
of countries. Readings cover 1950 and both reference years, so the set
yields one warming delta per matched country.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if out == "" {
				return errors.New("genmock: --out is required")
			}
			if err := os.MkdirAll(out, 0o755); err != nil {
				return fmt.Errorf("genmock: create output dir: %w", err)
			}
			years := []int{1950, opts.years.Base, opts.years.Late}

			files := []struct {
				name string
				rows [][]string
			}{
				{"temperatures.csv", mockTemperatures(years)},
				{"continents.csv", mockContinents()},
				{"countries.csv", mockMetadata()},
			}
			for _, f := range files {
				path := filepath.Join(out, f.name)
				if err := writeCSV(path, f.rows); err != nil {
					return err
				}
				printf(cmd, "wrote %s (%d rows)\n", path, len(f.rows)-1)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&out, "out", "", "output directory")
	return cmd
}

func mockTemperatures(years []int) [][]string {
	years = slices.Compact(slices.Sorted(slices.Values(years)))
	all := slices.Concat(mockCountries, []mockCountry{{name: mockUnmatched, mean: 15, amplitude: 3}})

	rows := [][]string{{"dt", "AverageTemperature", "AverageTemperatureUncertainty", "Country"}}
	for _, c := range all {
		for _, year := range years {
			for month := 1; month <= 12; month++ {
				season := math.Cos(2 * math.Pi * float64(month-7) / 12)
				temp := c.mean + c.amplitude*season + c.trend*float64(year-1950)/10
				uncertainty := math.Max(0.1, 0.6-0.008*float64(year-1950))
				rows = append(rows, []string{
					fmt.Sprintf("%04d-%02d-01", year, month),
					strconv.FormatFloat(round3(temp), 'f', 3, 64),
					strconv.FormatFloat(round3(uncertainty), 'f', 3, 64),
					c.name,
				})
			}
		}
	}
	return rows
}

func mockContinents() [][]string {
	rows := [][]string{{"Country", "Continent"}}
	for _, c := range mockCountries {
		rows = append(rows, []string{c.name, c.continent})
	}
	return rows
}

func mockMetadata() [][]string {
	rows := [][]string{{"country", "code", "lon", "lat"}}
	for _, c := range mockCountries {
		rows = append(rows, []string{
			c.name,
			c.code,
			strconv.FormatFloat(c.lon, 'f', -1, 64),
			strconv.FormatFloat(c.lat, 'f', -1, 64),
		})
	}
	return rows
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}

func writeCSV(path string, rows [][]string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("genmock: create %q: %w", path, err)
	}
	w := csv.NewWriter(f)
	if err := w.WriteAll(rows); err != nil {
		_ = f.Close()
		return fmt.Errorf("genmock: write %q: %w", path, err)
	}
	return f.Close()
}
