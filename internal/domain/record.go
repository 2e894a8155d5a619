package domain

import "time"

// Observation is one country/month temperature reading in degrees Celsius.
type Observation struct {
	Country     string
	Date        time.Time
	Temperature float64

	// Uncertainty is the 95% confidence interval half-width. HasUncertainty is
	// false when the source left the column blank.
	Uncertainty    float64
	HasUncertainty bool
}

// ContinentEntry maps a country name to its continent.
type ContinentEntry struct {
	Country   string
	Continent string
}

// CountryMetadata is the static per-country reference row.
type CountryMetadata struct {
	Country string
	Code    string
	Lon     float64
	Lat     float64
}

// EnrichedObservation is an Observation after both joins, with the calendar
// fields derived from its date.
type EnrichedObservation struct {
	Observation
	Continent string
	Code      string
	Lon       float64
	Lat       float64
	Year      int
	Month     int
}

// AnnualAggregate is the mean temperature of a country across one calendar year.
type AnnualAggregate struct {
	Country     string
	Year        int
	Temperature float64
	Readings    int
}

// WarmingDelta is the change in annual mean temperature of one country between
// the base and late reference years.
type WarmingDelta struct {
	Country         string  `json:"country"`
	Continent       string  `json:"continent"`
	Code            string  `json:"code"`
	Lon             float64 `json:"lon"`
	Lat             float64 `json:"lat"`
	BaseYear        int     `json:"base_year"`
	LateYear        int     `json:"late_year"`
	BaseTemperature float64 `json:"base_temperature"`
	LateTemperature float64 `json:"late_temperature"`
	Change          float64 `json:"change"`
}

// ReferenceYears selects the two years compared by the warming delta.
type ReferenceYears struct {
	Base int
	Late int
}

// DefaultReferenceYears are the years the climate notebooks have always compared.
var DefaultReferenceYears = ReferenceYears{Base: 1963, Late: 2013}

// Sources is the raw input of Build, as read from the three tables.
type Sources struct {
	Observations []Observation
	Continents   []ContinentEntry
	Countries    []CountryMetadata

	// Aliases maps an observed country spelling to the name used by the
	// continent and metadata tables.
	Aliases map[string]string

	// SkippedReadings counts temperature rows dropped by the loader because the
	// temperature column was blank.
	SkippedReadings int
}
