package domain

import (
	"cmp"
	"slices"
	"strings"
)

// NormalizeCountry trims the name and resolves it through aliases.
func NormalizeCountry(name string, aliases map[string]string) string {
	name = strings.TrimSpace(name)
	if canonical, ok := aliases[name]; ok {
		return strings.TrimSpace(canonical)
	}
	return name
}

// Enrich inner-joins observations to the continent table and then to the
// country metadata table, deriving year and month from each observation date.
// Rows without a match in either table are dropped and accounted for in the
// returned report. The result is sorted by country then date.
func Enrich(src Sources) ([]EnrichedObservation, JoinReport) {
	report := JoinReport{
		Observations:    len(src.Observations),
		SkippedReadings: src.SkippedReadings,
	}

	continents := make(map[string]string, len(src.Continents))
	for _, c := range src.Continents {
		key := strings.TrimSpace(c.Country)
		if _, dup := continents[key]; dup {
			report.DuplicateContinents = append(report.DuplicateContinents, key)
			continue
		}
		continents[key] = strings.TrimSpace(c.Continent)
	}

	meta := make(map[string]CountryMetadata, len(src.Countries))
	for _, m := range src.Countries {
		key := strings.TrimSpace(m.Country)
		if _, dup := meta[key]; dup {
			report.DuplicateCountries = append(report.DuplicateCountries, key)
			continue
		}
		m.Country = key
		meta[key] = m
	}

	noContinent := map[string]struct{}{}
	noMetadata := map[string]struct{}{}
	out := make([]EnrichedObservation, 0, len(src.Observations))

	for _, obs := range src.Observations {
		key := NormalizeCountry(obs.Country, src.Aliases)
		if key != strings.TrimSpace(obs.Country) {
			report.AliasedRows++
		}

		continent, ok := continents[key]
		if !ok {
			noContinent[key] = struct{}{}
			report.DroppedNoContinent++
			continue
		}
		m, ok := meta[key]
		if !ok {
			noMetadata[key] = struct{}{}
			report.DroppedNoMetadata++
			continue
		}

		obs.Country = key
		out = append(out, EnrichedObservation{
			Observation: obs,
			Continent:   continent,
			Code:        m.Code,
			Lon:         m.Lon,
			Lat:         m.Lat,
			Year:        obs.Date.Year(),
			Month:       int(obs.Date.Month()),
		})
	}

	slices.SortStableFunc(out, func(a, b EnrichedObservation) int {
		if c := cmp.Compare(a.Country, b.Country); c != 0 {
			return c
		}
		return a.Date.Compare(b.Date)
	})

	report.UnmatchedContinent = sortedKeys(noContinent)
	report.UnmatchedMetadata = sortedKeys(noMetadata)
	report.DuplicateContinents = slices.Compact(slices.Sorted(slices.Values(report.DuplicateContinents)))
	report.DuplicateCountries = slices.Compact(slices.Sorted(slices.Values(report.DuplicateCountries)))
	report.Enriched = len(out)
	return out, report
}

// AnnualAggregates groups rows by (country, year) and averages their
// temperature. When years is non-empty only those years are kept. The result
// is sorted by country then year.
func AnnualAggregates(rows []EnrichedObservation, years ...int) []AnnualAggregate {
	type key struct {
		country string
		year    int
	}
	sums := make(map[key]*AnnualAggregate)
	var order []key

	for _, r := range rows {
		if len(years) > 0 && !slices.Contains(years, r.Year) {
			continue
		}
		k := key{country: r.Country, year: r.Year}
		agg, ok := sums[k]
		if !ok {
			agg = &AnnualAggregate{Country: r.Country, Year: r.Year}
			sums[k] = agg
			order = append(order, k)
		}
		agg.Temperature += r.Temperature
		agg.Readings++
	}

	out := make([]AnnualAggregate, 0, len(order))
	for _, k := range order {
		agg := *sums[k]
		agg.Temperature /= float64(agg.Readings)
		out = append(out, agg)
	}
	slices.SortFunc(out, func(a, b AnnualAggregate) int {
		if c := cmp.Compare(a.Country, b.Country); c != 0 {
			return c
		}
		return cmp.Compare(a.Year, b.Year)
	})
	return out
}

// WarmingDeltas computes the late-minus-base change per country from the
// aggregates of the two reference years. Within a country the aggregates are
// differenced in year order; the base row has no predecessor and yields
// nothing, and a country present in only one year yields nothing at all.
// Metadata is attached from the enriched rows.
func WarmingDeltas(aggregates []AnnualAggregate, years ReferenceYears, rows []EnrichedObservation) []WarmingDelta {
	meta := countrySlice(rows)

	out := []WarmingDelta{}
	for i := 1; i < len(aggregates); i++ {
		prev, cur := aggregates[i-1], aggregates[i]
		if prev.Country != cur.Country {
			continue
		}
		if prev.Year != years.Base || cur.Year != years.Late {
			continue
		}
		m, ok := meta[cur.Country]
		if !ok {
			continue
		}
		out = append(out, WarmingDelta{
			Country:         cur.Country,
			Continent:       m.Continent,
			Code:            m.Code,
			Lon:             m.Lon,
			Lat:             m.Lat,
			BaseYear:        prev.Year,
			LateYear:        cur.Year,
			BaseTemperature: prev.Temperature,
			LateTemperature: cur.Temperature,
			Change:          cur.Temperature - prev.Temperature,
		})
	}
	return out
}

// countrySlice is the deduplicated (country, continent, code, lon, lat) view of
// the enriched rows.
func countrySlice(rows []EnrichedObservation) map[string]EnrichedObservation {
	out := make(map[string]EnrichedObservation)
	for _, r := range rows {
		if _, ok := out[r.Country]; !ok {
			out[r.Country] = r
		}
	}
	return out
}

func sortedKeys(m map[string]struct{}) []string {
	if len(m) == 0 {
		return nil
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
