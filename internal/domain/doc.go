// Package domain models country-level land temperature records and the
// warming dataset derived from them.
//
// # Data Sources
//
// Three CSV tables feed the builder:
//
//	temperatures: dt, AverageTemperature, AverageTemperatureUncertainty, Country
//	continents:   Country, Continent
//	countries:    country, code, lon, lat
//
// The temperature table is the Berkeley Earth "by country" export: one row per
// country per month, dt formatted as YYYY-MM-DD (always the first of the month).
// Early centuries are sparse and many rows carry a blank temperature; those rows
// are not readings and never reach this package (see [Sources.SkippedReadings]).
// A blank uncertainty is kept as missing, which is different from a measured 0.
//
// # Join Keys
//
// Country name is the only join key across all three tables. Spellings differ
// between sources ("Congo (Democratic Republic Of The)" vs "DR Congo"), so names
// are trimmed and passed through an optional alias table before matching.
// Observations whose country has no continent or no metadata row are dropped and
// counted in [JoinReport]; nothing is dropped silently.
//
// # Warming Delta
//
// For two reference years (base < late) the builder averages each country's
// monthly readings per year and subtracts:
//
//	delta(C) = mean(C, late) - mean(C, base)
//
// A country missing either year gets no delta row. That is expected for the
// historical record, not an error.
//
// # Determinism
//
// Every table is sorted (country, then date or year) so that building twice
// from the same inputs produces identical output, byte for byte once
// serialized.
package domain
