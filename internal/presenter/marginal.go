package presenter

import (
	"math"
	"slices"
)

const (
	maxBins       = 30
	densitySteps  = 40
	minBandwidth  = 0.05
	silvermanCoef = 1.06
)

// HistogramBin counts points per continent with Lower <= temperature < Upper
// (the last bin is closed on both ends).
type HistogramBin struct {
	Lower  float64        `json:"lower"`
	Upper  float64        `json:"upper"`
	Counts map[string]int `json:"counts"`
}

// Total is the bin height summed over continents.
func (b HistogramBin) Total() int {
	n := 0
	for _, c := range b.Counts {
		n += c
	}
	return n
}

// DensityPoint is one sample of a kernel density estimate.
type DensityPoint struct {
	Value   float64 `json:"value"`
	Density float64 `json:"density"`
}

// Violin is the uncertainty distribution of one continent.
type Violin struct {
	Continent string         `json:"continent"`
	Median    float64        `json:"median"`
	Density   []DensityPoint `json:"density"`
}

// histogram bins point temperatures with Sturges' rule on shared edges.
func histogram(points []Point, continents []string) []HistogramBin {
	xs := make([]float64, len(points))
	for i, p := range points {
		xs[i] = p.Temperature
	}
	lo, hi := minMax(xs)
	if lo == hi {
		lo, hi = lo-0.5, hi+0.5
	}

	n := int(math.Ceil(math.Log2(float64(len(points))))) + 1
	n = max(1, min(n, maxBins))
	width := (hi - lo) / float64(n)

	bins := make([]HistogramBin, n)
	for i := range bins {
		counts := make(map[string]int, len(continents))
		for _, c := range continents {
			counts[c] = 0
		}
		bins[i] = HistogramBin{
			Lower:  lo + float64(i)*width,
			Upper:  lo + float64(i+1)*width,
			Counts: counts,
		}
	}
	bins[n-1].Upper = hi

	for _, p := range points {
		i := int((p.Temperature - lo) / width)
		i = max(0, min(i, n-1))
		bins[i].Counts[p.Continent]++
	}
	return bins
}

// violins estimates a Gaussian KDE of uncertainty per continent using
// Silverman's bandwidth, sampled from min-2h to max+2h.
func violins(points []Point, continents []string) []Violin {
	out := make([]Violin, 0, len(continents))
	for _, c := range continents {
		var ys []float64
		for _, p := range points {
			if p.Continent == c {
				ys = append(ys, p.Uncertainty)
			}
		}
		out = append(out, Violin{
			Continent: c,
			Median:    median(ys),
			Density:   kde(ys),
		})
	}
	return out
}

func kde(values []float64) []DensityPoint {
	if len(values) == 0 {
		return nil
	}
	h := bandwidth(values)
	lo, hi := minMax(values)
	lo, hi = lo-2*h, hi+2*h
	step := (hi - lo) / float64(densitySteps-1)

	out := make([]DensityPoint, densitySteps)
	norm := 1 / (float64(len(values)) * h * math.Sqrt(2*math.Pi))
	for i := range out {
		x := lo + float64(i)*step
		sum := 0.0
		for _, v := range values {
			u := (x - v) / h
			sum += math.Exp(-0.5 * u * u)
		}
		out[i] = DensityPoint{Value: x, Density: sum * norm}
	}
	return out
}

func bandwidth(values []float64) float64 {
	n := float64(len(values))
	mean := 0.0
	for _, v := range values {
		mean += v
	}
	mean /= n
	variance := 0.0
	for _, v := range values {
		variance += (v - mean) * (v - mean)
	}
	if n > 1 {
		variance /= n - 1
	}
	h := silvermanCoef * math.Sqrt(variance) * math.Pow(n, -0.2)
	return math.Max(h, minBandwidth)
}

func median(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := append([]float64(nil), values...)
	slices.Sort(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid]
	}
	return (sorted[mid-1] + sorted[mid]) / 2
}
