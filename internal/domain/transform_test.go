package domain

import (
	"bytes"
	"log/slog"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testEurope = "Europe"
	testAsia   = "Asia"
)

func obs(t *testing.T, country, date string, temp float64) Observation {
	t.Helper()
	d, err := time.Parse(time.DateOnly, date)
	require.NoError(t, err)
	return Observation{Country: country, Date: d, Temperature: temp, Uncertainty: 0.3, HasUncertainty: true}
}

// scenarioSources covers three countries: A has both reference years, B only
// the base year, C only the late year.
func scenarioSources(t *testing.T) Sources {
	t.Helper()
	return Sources{
		Observations: []Observation{
			obs(t, "A", "1963-01-01", 9.0),
			obs(t, "A", "1963-07-01", 11.0),
			obs(t, "A", "2013-01-01", 11.0),
			obs(t, "A", "2013-07-01", 12.0),
			obs(t, "B", "1963-03-01", 12.0),
			obs(t, "C", "2013-05-01", 9.0),
			obs(t, "A", "1990-02-01", 10.2),
		},
		Continents: []ContinentEntry{
			{Country: "A", Continent: testEurope},
			{Country: "B", Continent: testEurope},
			{Country: "C", Continent: testAsia},
		},
		Countries: []CountryMetadata{
			{Country: "A", Code: "AAA", Lon: 1, Lat: 2},
			{Country: "B", Code: "BBB", Lon: 3, Lat: 4},
			{Country: "C", Code: "CCC", Lon: 5, Lat: 6},
		},
	}
}

func TestBuild_Scenario(t *testing.T) {
	ds, err := Build(scenarioSources(t), DefaultReferenceYears)
	require.NoError(t, err)

	require.Len(t, ds.Deltas, 1)
	d := ds.Deltas[0]
	assert.Equal(t, "A", d.Country)
	assert.InDelta(t, 1.5, d.Change, 1e-9)
	assert.InDelta(t, 10.0, d.BaseTemperature, 1e-9)
	assert.InDelta(t, 11.5, d.LateTemperature, 1e-9)
	assert.Equal(t, 1963, d.BaseYear)
	assert.Equal(t, 2013, d.LateYear)
	assert.Equal(t, testEurope, d.Continent)
	assert.Equal(t, "AAA", d.Code)
	assert.InDelta(t, 1.0, d.Lon, 1e-9)
	assert.InDelta(t, 2.0, d.Lat, 1e-9)

	assert.Equal(t, 1963, ds.MinYear)
	assert.Equal(t, 2013, ds.MaxYear)
	assert.Equal(t, 3, ds.Countries())
	assert.True(t, ds.Report.Clean())
}

func TestBuild_DeltaEqualsAggregateDifference(t *testing.T) {
	src := scenarioSources(t)
	ds, err := Build(src, DefaultReferenceYears)
	require.NoError(t, err)

	aggs := AnnualAggregates(ds.Enriched)
	byKey := map[string]map[int]float64{}
	for _, a := range aggs {
		if byKey[a.Country] == nil {
			byKey[a.Country] = map[int]float64{}
		}
		byKey[a.Country][a.Year] = a.Temperature
	}

	for _, d := range ds.Deltas {
		base, okBase := byKey[d.Country][1963]
		late, okLate := byKey[d.Country][2013]
		require.True(t, okBase && okLate, d.Country)
		assert.InDelta(t, late-base, d.Change, 1e-9, d.Country)
	}

	withDelta := map[string]bool{}
	for _, d := range ds.Deltas {
		withDelta[d.Country] = true
	}
	for country, years := range byKey {
		_, okBase := years[1963]
		_, okLate := years[2013]
		assert.Equal(t, okBase && okLate, withDelta[country], country)
	}
}

func TestBuild_ConfigurableYears(t *testing.T) {
	ds, err := Build(scenarioSources(t), ReferenceYears{Base: 1990, Late: 2013})
	require.NoError(t, err)

	require.Len(t, ds.Deltas, 1)
	assert.Equal(t, "A", ds.Deltas[0].Country)
	assert.InDelta(t, 11.5-10.2, ds.Deltas[0].Change, 1e-9)
}

func TestBuild_InvalidYears(t *testing.T) {
	_, err := Build(Sources{}, ReferenceYears{Base: 2013, Late: 1963})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "base year 2013")

	_, err = Build(Sources{}, ReferenceYears{Base: 2000, Late: 2000})
	require.Error(t, err)
}

func TestBuild_Empty(t *testing.T) {
	ds, err := Build(Sources{}, DefaultReferenceYears)
	require.NoError(t, err)
	assert.Empty(t, ds.Enriched)
	assert.Empty(t, ds.Deltas)
	assert.Zero(t, ds.MinYear)
	assert.Zero(t, ds.MaxYear)
	assert.False(t, ds.HasYear(0))
}

func TestBuild_Idempotent(t *testing.T) {
	SetClock(clockwork.NewFakeClockAt(time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)))
	defer SetClock(nil)

	first, err := Build(scenarioSources(t), DefaultReferenceYears)
	require.NoError(t, err)
	second, err := Build(scenarioSources(t), DefaultReferenceYears)
	require.NoError(t, err)

	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("rebuild mismatch (-first +second):\n%s", diff)
	}
	assert.Equal(t, time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC), first.BuiltAt)
}

func TestEnrich_DropsAndReportsUnmatched(t *testing.T) {
	src := scenarioSources(t)
	src.Observations = append(src.Observations,
		obs(t, "Atlantis", "1963-01-01", 20),
		obs(t, "Atlantis", "1963-02-01", 21),
		obs(t, "Lemuria", "1963-01-01", 22),
	)
	src.Continents = append(src.Continents, ContinentEntry{Country: "Lemuria", Continent: testAsia})
	src.SkippedReadings = 4

	rows, report := Enrich(src)

	assert.Len(t, rows, 7)
	assert.Equal(t, 10, report.Observations)
	assert.Equal(t, 7, report.Enriched)
	assert.Equal(t, []string{"Atlantis"}, report.UnmatchedContinent)
	assert.Equal(t, 2, report.DroppedNoContinent)
	assert.Equal(t, []string{"Lemuria"}, report.UnmatchedMetadata)
	assert.Equal(t, 1, report.DroppedNoMetadata)
	assert.Equal(t, 4, report.SkippedReadings)
	assert.False(t, report.Clean())
}

func TestEnrich_DerivesCalendarFieldsAndSorts(t *testing.T) {
	rows, _ := Enrich(scenarioSources(t))

	require.NotEmpty(t, rows)
	first := rows[0]
	assert.Equal(t, "A", first.Country)
	assert.Equal(t, 1963, first.Year)
	assert.Equal(t, 1, first.Month)
	assert.Equal(t, testEurope, first.Continent)
	assert.Equal(t, "AAA", first.Code)

	for i := 1; i < len(rows); i++ {
		prev, cur := rows[i-1], rows[i]
		ordered := prev.Country < cur.Country ||
			(prev.Country == cur.Country && !cur.Date.Before(prev.Date))
		assert.True(t, ordered, "row %d out of order", i)
	}
}

func TestEnrich_Aliases(t *testing.T) {
	src := scenarioSources(t)
	src.Observations = append(src.Observations, obs(t, " Old A ", "1963-04-01", 10.0))
	src.Aliases = map[string]string{"Old A": "A"}

	rows, report := Enrich(src)

	assert.Equal(t, 1, report.AliasedRows)
	assert.True(t, report.Clean())
	assert.Len(t, rows, 8)
	for _, r := range rows {
		assert.NotEqual(t, "Old A", r.Country)
	}
}

func TestEnrich_DuplicateMetadataFirstWins(t *testing.T) {
	src := scenarioSources(t)
	src.Countries = append(src.Countries, CountryMetadata{Country: "A", Code: "ZZZ"})
	src.Continents = append(src.Continents, ContinentEntry{Country: "A", Continent: testAsia})

	rows, report := Enrich(src)

	assert.Equal(t, []string{"A"}, report.DuplicateCountries)
	assert.Equal(t, []string{"A"}, report.DuplicateContinents)
	for _, r := range rows {
		if r.Country == "A" {
			assert.Equal(t, "AAA", r.Code)
			assert.Equal(t, testEurope, r.Continent)
		}
	}
}

func TestAnnualAggregates(t *testing.T) {
	rows, _ := Enrich(scenarioSources(t))

	tests := []struct {
		name  string
		years []int
		want  []AnnualAggregate
	}{
		{
			name:  "reference years only",
			years: []int{1963, 2013},
			want: []AnnualAggregate{
				{Country: "A", Year: 1963, Temperature: 10.0, Readings: 2},
				{Country: "A", Year: 2013, Temperature: 11.5, Readings: 2},
				{Country: "B", Year: 1963, Temperature: 12.0, Readings: 1},
				{Country: "C", Year: 2013, Temperature: 9.0, Readings: 1},
			},
		},
		{
			name:  "single year",
			years: []int{1990},
			want:  []AnnualAggregate{{Country: "A", Year: 1990, Temperature: 10.2, Readings: 1}},
		},
		{
			name:  "no matching year",
			years: []int{1800},
			want:  []AnnualAggregate{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := AnnualAggregates(rows, tt.years...)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestWarmingDeltas_SkipsSingleYearCountries(t *testing.T) {
	aggs := []AnnualAggregate{
		{Country: "B", Year: 1963, Temperature: 12},
		{Country: "C", Year: 2013, Temperature: 9},
	}
	assert.Empty(t, WarmingDeltas(aggs, DefaultReferenceYears, nil))
}

func TestNormalizeCountry(t *testing.T) {
	aliases := map[string]string{"Burma": " Myanmar "}
	assert.Equal(t, "Myanmar", NormalizeCountry("Burma", aliases))
	assert.Equal(t, "Myanmar", NormalizeCountry("  Burma", aliases))
	assert.Equal(t, "France", NormalizeCountry("France ", aliases))
	assert.Equal(t, "France", NormalizeCountry("France", nil))
}

func TestJoinReport_Log(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	JoinReport{
		Observations:       3,
		UnmatchedContinent: []string{"Atlantis"},
		DroppedNoContinent: 2,
		SkippedReadings:    1,
	}.Log(logger)

	out := buf.String()
	assert.Contains(t, out, "countries without continent dropped")
	assert.Contains(t, out, "Atlantis")
	assert.Contains(t, out, "temperature rows without a reading skipped")
	assert.NotContains(t, out, "countries without metadata dropped")
}
