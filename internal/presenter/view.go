package presenter

import (
	"cmp"
	"fmt"
	"math"
	"slices"
	"strconv"

	"github.com/couchcryptid/climate-explorer/internal/domain"
)

// DefaultYear is the year shown before the slider is touched.
const DefaultYear = 1950

// Point is one country's aggregate for the selected year.
type Point struct {
	Country     string  `json:"country"`
	Continent   string  `json:"continent"`
	Year        int     `json:"year"`
	Temperature float64 `json:"temperature"`
	Uncertainty float64 `json:"uncertainty"`

	// UncertaintyFilled is true when no reading of the year carried an
	// uncertainty and Uncertainty was zero-filled for display.
	UncertaintyFilled bool `json:"uncertainty_filled,omitempty"`

	Lon      float64 `json:"lon"`
	Lat      float64 `json:"lat"`
	Readings int     `json:"readings"`
}

// Legend pairs a continent with its plot colour.
type Legend struct {
	Continent string `json:"continent"`
	Color     string `json:"color"`
}

// Range is a closed numeric interval on one axis.
type Range struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// View is everything needed to draw one year: the chart data and the label.
type View struct {
	Year   int    `json:"year"`
	Label  string `json:"label"`
	Notice string `json:"notice,omitempty"`

	Points     []Point        `json:"points"`
	Continents []Legend       `json:"continents"`
	Histogram  []HistogramBin `json:"histogram"`
	Violins    []Violin       `json:"violins"`

	X Range `json:"x"`
	Y Range `json:"y"`
}

// Empty reports whether the view has nothing to plot.
func (v View) Empty() bool { return len(v.Points) == 0 }

// YearRangeError marks a selection outside the observed years. It is a
// recoverable input condition, surfaced as the view notice.
type YearRangeError struct {
	Year int
	Min  int
	Max  int
}

func (e *YearRangeError) Error() string {
	if e.Min == 0 && e.Max == 0 {
		return fmt.Sprintf("year %d: no observations loaded", e.Year)
	}
	return fmt.Sprintf("year %d is outside the observed range %d-%d", e.Year, e.Min, e.Max)
}

// CheckYear returns a *YearRangeError when year lies outside the dataset's
// observed range.
func CheckYear(year int, ds *domain.Dataset) error {
	if ds.HasYear(year) {
		return nil
	}
	return &YearRangeError{Year: year, Min: ds.MinYear, Max: ds.MaxYear}
}

// Present filters the enriched table to year and averages each country's
// readings into one point. Missing uncertainty is filled with zero and flagged.
func Present(year int, ds *domain.Dataset) View {
	v := View{
		Year:       year,
		Label:      strconv.Itoa(year),
		Points:     []Point{},
		Continents: []Legend{},
		Histogram:  []HistogramBin{},
		Violins:    []Violin{},
	}

	if err := CheckYear(year, ds); err != nil {
		v.Notice = err.Error()
		return v
	}

	v.Points = aggregatePoints(year, ds.Enriched)
	if len(v.Points) == 0 {
		v.Notice = fmt.Sprintf("no observations recorded for %d", year)
		return v
	}

	continents := continentsOf(v.Points)
	for i, c := range continents {
		v.Continents = append(v.Continents, Legend{Continent: c, Color: colorHex(i)})
	}

	xs := make([]float64, len(v.Points))
	for i, p := range v.Points {
		xs[i] = p.Temperature
	}
	v.Histogram = histogram(v.Points, continents)
	v.Violins = violins(v.Points, continents)
	v.X = padRange(minMax(xs))
	v.Y = padRange(yExtent(v.Points, v.Violins))
	return v
}

// aggregatePoints groups the year's rows by (country, continent) and averages
// their numeric fields.
func aggregatePoints(year int, rows []domain.EnrichedObservation) []Point {
	type acc struct {
		point          Point
		uncertaintySum float64
		uncertaintyN   int
	}
	type key struct{ country, continent string }

	groups := make(map[key]*acc)
	for _, r := range rows {
		if r.Year != year {
			continue
		}
		k := key{country: r.Country, continent: r.Continent}
		a, ok := groups[k]
		if !ok {
			a = &acc{point: Point{Country: r.Country, Continent: r.Continent, Year: year}}
			groups[k] = a
		}
		a.point.Temperature += r.Temperature
		a.point.Lon += r.Lon
		a.point.Lat += r.Lat
		a.point.Readings++
		if r.HasUncertainty {
			a.uncertaintySum += r.Uncertainty
			a.uncertaintyN++
		}
	}

	points := make([]Point, 0, len(groups))
	for _, a := range groups {
		p := a.point
		n := float64(p.Readings)
		p.Temperature /= n
		p.Lon /= n
		p.Lat /= n
		if a.uncertaintyN > 0 {
			p.Uncertainty = a.uncertaintySum / float64(a.uncertaintyN)
		} else {
			p.UncertaintyFilled = true
		}
		points = append(points, p)
	}
	slices.SortFunc(points, func(a, b Point) int {
		if c := cmp.Compare(a.Country, b.Country); c != 0 {
			return c
		}
		return cmp.Compare(a.Continent, b.Continent)
	})
	return points
}

func continentsOf(points []Point) []string {
	var out []string
	for _, p := range points {
		out = append(out, p.Continent)
	}
	slices.Sort(out)
	return slices.Compact(out)
}

func yExtent(points []Point, vs []Violin) (float64, float64) {
	ys := make([]float64, 0, len(points))
	for _, p := range points {
		ys = append(ys, p.Uncertainty)
	}
	lo, hi := minMax(ys)
	for _, v := range vs {
		if len(v.Density) == 0 {
			continue
		}
		lo = math.Min(lo, v.Density[0].Value)
		hi = math.Max(hi, v.Density[len(v.Density)-1].Value)
	}
	return lo, hi
}

func minMax(vs []float64) (float64, float64) {
	if len(vs) == 0 {
		return 0, 0
	}
	lo, hi := vs[0], vs[0]
	for _, v := range vs[1:] {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	return lo, hi
}

// padRange widens [lo, hi] by 5% on each side, or by 1 when it is a single value.
func padRange(lo, hi float64) Range {
	span := hi - lo
	if span == 0 {
		return Range{Min: lo - 1, Max: hi + 1}
	}
	return Range{Min: lo - span*0.05, Max: hi + span*0.05}
}

// Slider describes the year selector: observed bounds, unit step and
// decade-aligned marks.
type Slider struct {
	Min   int   `json:"min"`
	Max   int   `json:"max"`
	Step  int   `json:"step"`
	Value int   `json:"value"`
	Marks []int `json:"marks"`
}

// NewSlider builds the selector for ds with value as its initial position.
func NewSlider(ds *domain.Dataset, value int) Slider {
	s := Slider{Min: ds.MinYear, Max: ds.MaxYear, Step: 1, Value: value, Marks: []int{}}
	seen := map[int]bool{}
	for _, r := range ds.Enriched {
		if r.Year%10 == 0 && !seen[r.Year] {
			seen[r.Year] = true
			s.Marks = append(s.Marks, r.Year)
		}
	}
	slices.Sort(s.Marks)
	return s
}
