package presenter

import (
	"bytes"
	"fmt"
	"html"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

// Figure geometry in pixels. The histogram sits above the scatter and shares
// its x range; the violins sit to the right and share its y range.
const (
	FigureWidth  = 960
	FigureHeight = 640

	mainWidth       = 760
	histogramHeight = 150
	violinWidth     = FigureWidth - mainWidth
	mainHeight      = FigureHeight - histogramHeight

	// Above this many points the country labels would cover the scatter.
	maxPointLabels = 40
)

// palette follows the default qualitative colour order of the notebook plots.
var palette = []string{
	"636efa", "ef553b", "00cc96", "ab63fa", "ffa15a",
	"19d3f3", "ff6692", "b6e880", "ff97ff", "fecb52",
}

func colorHex(i int) string { return "#" + palette[i%len(palette)] }

func color(i int) drawing.Color { return drawing.ColorFromHex(palette[i%len(palette)]) }

// pointStyle renders dots only, no connecting line.
func pointStyle(col drawing.Color) chart.Style {
	return chart.Style{
		StrokeWidth: chart.Disabled,
		DotWidth:    5,
		DotColor:    col,
	}
}

// RenderSVG draws v as a single SVG document. An empty view renders a
// placeholder carrying the notice instead of a chart.
func RenderSVG(v View) ([]byte, error) {
	if v.Empty() {
		return placeholder(v), nil
	}

	scatter, err := renderScatter(v)
	if err != nil {
		return nil, fmt.Errorf("render scatter: %w", err)
	}
	hist, err := renderHistogram(v)
	if err != nil {
		return nil, fmt.Errorf("render histogram: %w", err)
	}
	violin, err := renderViolins(v)
	if err != nil {
		return nil, fmt.Errorf("render violins: %w", err)
	}

	var buf bytes.Buffer
	fmt.Fprintf(&buf, `<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">`,
		FigureWidth, FigureHeight, FigureWidth, FigureHeight)
	buf.WriteString(nest(hist, 0, 0))
	buf.WriteString(nest(scatter, 0, histogramHeight))
	buf.WriteString(nest(violin, mainWidth, histogramHeight))
	buf.WriteString("</svg>")
	return buf.Bytes(), nil
}

func renderScatter(v View) ([]byte, error) {
	series := make([]chart.Series, 0, len(v.Continents))
	for i, l := range v.Continents {
		s := chart.ContinuousSeries{Name: l.Continent, Style: pointStyle(color(i))}
		for _, p := range v.Points {
			if p.Continent != l.Continent {
				continue
			}
			s.XValues = append(s.XValues, p.Temperature)
			s.YValues = append(s.YValues, p.Uncertainty)
		}
		series = append(series, s)
	}
	if len(v.Points) <= maxPointLabels {
		series = append(series, countryLabels(v.Points))
	}

	c := chart.Chart{
		Width:      mainWidth,
		Height:     mainHeight,
		Background: chart.Style{Padding: chart.Box{Top: 10, Left: 16, Right: 12, Bottom: 16}},
		XAxis: chart.XAxis{
			Name:           "Average temperature (°C)",
			Range:          &chart.ContinuousRange{Min: v.X.Min, Max: v.X.Max},
			ValueFormatter: oneDecimal,
		},
		YAxis: chart.YAxis{
			Name:           "Average temperature uncertainty (°C)",
			Range:          &chart.ContinuousRange{Min: v.Y.Min, Max: v.Y.Max},
			ValueFormatter: oneDecimal,
		},
		Series: series,
	}
	return renderChart(c)
}

// countryLabels tags each point with its country name.
func countryLabels(points []Point) chart.AnnotationSeries {
	ann := chart.AnnotationSeries{
		Style: chart.Style{
			FontSize:    7,
			FontColor:   drawing.ColorFromHex("444444"),
			FillColor:   drawing.ColorWhite.WithAlpha(160),
			StrokeColor: drawing.ColorFromHex("cccccc"),
			StrokeWidth: 0.5,
		},
	}
	for _, p := range points {
		ann.Annotations = append(ann.Annotations, chart.Value2{
			XValue: p.Temperature,
			YValue: p.Uncertainty,
			Label:  p.Country,
		})
	}
	return ann
}

// renderHistogram draws each continent's bin counts as a filled step outline.
func renderHistogram(v View) ([]byte, error) {
	top := 1
	for _, b := range v.Histogram {
		for _, n := range b.Counts {
			top = max(top, n)
		}
	}

	series := make([]chart.Series, 0, len(v.Continents))
	for i, l := range v.Continents {
		s := chart.ContinuousSeries{
			Name: l.Continent,
			Style: chart.Style{
				StrokeWidth: 1.5,
				StrokeColor: color(i),
				FillColor:   color(i).WithAlpha(64),
			},
		}
		for j, b := range v.Histogram {
			n := float64(b.Counts[l.Continent])
			if j == 0 {
				s.XValues = append(s.XValues, b.Lower)
				s.YValues = append(s.YValues, 0)
			}
			s.XValues = append(s.XValues, b.Lower, b.Upper)
			s.YValues = append(s.YValues, n, n)
		}
		last := v.Histogram[len(v.Histogram)-1]
		s.XValues = append(s.XValues, last.Upper)
		s.YValues = append(s.YValues, 0)
		series = append(series, s)
	}

	c := chart.Chart{
		Width:      mainWidth,
		Height:     histogramHeight,
		Background: chart.Style{Padding: chart.Box{Top: 10, Left: 16, Right: 12, Bottom: 4}},
		XAxis: chart.XAxis{
			Range:          &chart.ContinuousRange{Min: v.X.Min, Max: v.X.Max},
			ValueFormatter: oneDecimal,
		},
		YAxis: chart.YAxis{
			Name:  "count",
			Range: &chart.ContinuousRange{Min: 0, Max: float64(top) * 1.1},
			ValueFormatter: func(val interface{}) string {
				if f, ok := val.(float64); ok {
					return strconv.Itoa(int(f))
				}
				return ""
			},
		},
		Series: series,
	}
	return renderChart(c)
}

// renderViolins draws one mirrored density outline per continent, centred on
// its index along x.
func renderViolins(v View) ([]byte, error) {
	series := make([]chart.Series, 0, len(v.Violins))
	ticks := make([]chart.Tick, 0, len(v.Violins))

	for i, vi := range v.Violins {
		peak := 0.0
		for _, d := range vi.Density {
			peak = max(peak, d.Density)
		}
		if peak == 0 {
			continue
		}
		scale := 0.45 / peak
		center := float64(i)

		s := chart.ContinuousSeries{
			Name: vi.Continent,
			Style: chart.Style{
				StrokeWidth: 1.5,
				StrokeColor: color(i),
			},
		}
		for _, d := range vi.Density {
			s.XValues = append(s.XValues, center+d.Density*scale)
			s.YValues = append(s.YValues, d.Value)
		}
		for j := len(vi.Density) - 1; j >= 0; j-- {
			d := vi.Density[j]
			s.XValues = append(s.XValues, center-d.Density*scale)
			s.YValues = append(s.YValues, d.Value)
		}
		series = append(series, s)
		ticks = append(ticks, chart.Tick{Value: center, Label: abbreviate(vi.Continent)})
	}

	// Blank ticks at the range ends keep the axis valid with a single violin.
	right := float64(len(v.Violins)) - 0.5
	ticks = append([]chart.Tick{{Value: -0.5}}, append(ticks, chart.Tick{Value: right})...)

	c := chart.Chart{
		Width:      violinWidth,
		Height:     mainHeight,
		Background: chart.Style{Padding: chart.Box{Top: 10, Left: 4, Right: 12, Bottom: 16}},
		XAxis: chart.XAxis{
			Range: &chart.ContinuousRange{Min: -0.5, Max: right},
			Ticks: ticks,
		},
		YAxis: chart.YAxis{
			Range:          &chart.ContinuousRange{Min: v.Y.Min, Max: v.Y.Max},
			ValueFormatter: oneDecimal,
		},
		Series: series,
	}
	return renderChart(c)
}

func renderChart(c chart.Chart) ([]byte, error) {
	var buf bytes.Buffer
	if err := c.Render(chart.SVG, &buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// nest positions a standalone chart SVG inside the figure.
func nest(svg []byte, x, y int) string {
	return strings.Replace(string(svg), "<svg ", fmt.Sprintf(`<svg x="%d" y="%d" `, x, y), 1)
}

func placeholder(v View) []byte {
	msg := v.Notice
	if msg == "" {
		msg = "no data for " + v.Label
	}
	return []byte(fmt.Sprintf(
		`<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">`+
			`<rect width="100%%" height="100%%" fill="#ffffff"/>`+
			`<text x="50%%" y="50%%" text-anchor="middle" font-family="sans-serif" font-size="18" fill="#666666">%s</text>`+
			`</svg>`,
		FigureWidth, FigureHeight, FigureWidth, FigureHeight, html.EscapeString(msg)))
}

func oneDecimal(v interface{}) string {
	if f, ok := v.(float64); ok {
		return strconv.FormatFloat(f, 'f', 1, 64)
	}
	return ""
}

// abbreviate shortens a continent name for the violin axis: "North America" -> "NA".
func abbreviate(name string) string {
	words := strings.Fields(name)
	if len(words) == 1 {
		return words[0]
	}
	var b strings.Builder
	for _, w := range words {
		r, _ := utf8.DecodeRuneInString(w)
		b.WriteRune(unicode.ToUpper(r))
	}
	return b.String()
}
