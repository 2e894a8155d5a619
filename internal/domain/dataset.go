package domain

import (
	"fmt"
	"time"
)

// Dataset is the immutable result of Build, shared read-only by every
// presenter call for the lifetime of the process.
type Dataset struct {
	Enriched []EnrichedObservation
	Deltas   []WarmingDelta
	Report   JoinReport
	Years    ReferenceYears

	// MinYear and MaxYear bound the years present in Enriched. Both are zero
	// when Enriched is empty.
	MinYear int
	MaxYear int

	BuiltAt time.Time
}

// Build joins the sources and derives the warming deltas for the given
// reference years. It fails only when the reference years are unusable; join
// mismatches are reported, not returned as errors.
func Build(src Sources, years ReferenceYears) (*Dataset, error) {
	if years.Base >= years.Late {
		return nil, fmt.Errorf("build dataset: base year %d must precede late year %d", years.Base, years.Late)
	}

	enriched, report := Enrich(src)
	aggregates := AnnualAggregates(enriched, years.Base, years.Late)
	deltas := WarmingDeltas(aggregates, years, enriched)

	ds := &Dataset{
		Enriched: enriched,
		Deltas:   deltas,
		Report:   report,
		Years:    years,
		BuiltAt:  clock.Now().UTC(),
	}
	for i, r := range enriched {
		if i == 0 || r.Year < ds.MinYear {
			ds.MinYear = r.Year
		}
		if i == 0 || r.Year > ds.MaxYear {
			ds.MaxYear = r.Year
		}
	}
	return ds, nil
}

// HasYear reports whether year lies within the observed range.
func (d *Dataset) HasYear(year int) bool {
	return len(d.Enriched) > 0 && year >= d.MinYear && year <= d.MaxYear
}

// Countries returns the number of distinct countries in the enriched table.
func (d *Dataset) Countries() int {
	return len(countrySlice(d.Enriched))
}
