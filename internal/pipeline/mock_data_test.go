package pipeline_test

import (
	"context"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/couchcryptid/climate-explorer/internal/adapter/csvfile"
	"github.com/couchcryptid/climate-explorer/internal/domain"
	"github.com/couchcryptid/climate-explorer/internal/pipeline"
	"github.com/couchcryptid/climate-explorer/internal/presenter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func samplePaths() csvfile.Paths {
	dir := filepath.Join("..", "..", "data", "sample")
	return csvfile.Paths{
		Temperatures: filepath.Join(dir, "temperatures.csv"),
		Continents:   filepath.Join(dir, "continents.csv"),
		Countries:    filepath.Join(dir, "countries.csv"),
		Aliases:      filepath.Join(dir, "aliases.yaml"),
	}
}

func TestPipeline_WithSampleData(t *testing.T) {
	src := csvfile.NewSource(samplePaths(), slog.Default())
	p := pipeline.New(src, domain.DefaultReferenceYears, nil, slog.Default(), newTestMetrics(), 1)

	ds, err := p.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 889, ds.Report.Observations)
	assert.Equal(t, 2, ds.Report.SkippedReadings)
	assert.Equal(t, []string{"Antarctica"}, ds.Report.UnmatchedContinent)
	assert.Equal(t, 117, ds.Report.DroppedNoContinent)
	assert.Positive(t, ds.Report.AliasedRows)
	assert.Equal(t, 1950, ds.MinYear)
	assert.Equal(t, 2013, ds.MaxYear)

	want := map[string]float64{
		"Australia": -0.079194444,
		"Canada":    3.933972222,
		"Kenya":     0.723388889,
		"Myanmar":   1.461027778,
		"Norway":    2.469916667,
	}
	require.Len(t, ds.Deltas, len(want))
	for _, d := range ds.Deltas {
		w, ok := want[d.Country]
		require.True(t, ok, "unexpected delta for %s", d.Country)
		assert.InDelta(t, w, d.Change, 1e-6, d.Country)
	}

	// Chile lacks 1963 and Sweden lacks 2013.
	for _, d := range ds.Deltas {
		assert.NotContains(t, []string{"Chile", "Sweden"}, d.Country)
	}

	v := presenter.Present(1950, ds)
	assert.Equal(t, "1950", v.Label)
	assert.Len(t, v.Points, 6, "Kenya starts in 1960 and Antarctica is unmatched")

	slider := presenter.NewSlider(ds, presenter.DefaultYear)
	assert.Equal(t, []int{1950, 1960, 1970, 1980, 1990, 2000, 2010}, slider.Marks)
}
