package domain

import "log/slog"

// JoinReport accounts for every observation that did not make it into the
// enriched table.
type JoinReport struct {
	Observations int `json:"observations"`
	Enriched     int `json:"enriched"`

	SkippedReadings int `json:"skipped_readings"`
	AliasedRows     int `json:"aliased_rows"`

	UnmatchedContinent []string `json:"unmatched_continent,omitempty"`
	DroppedNoContinent int      `json:"dropped_no_continent"`
	UnmatchedMetadata  []string `json:"unmatched_metadata,omitempty"`
	DroppedNoMetadata  int      `json:"dropped_no_metadata"`

	DuplicateContinents []string `json:"duplicate_continents,omitempty"`
	DuplicateCountries  []string `json:"duplicate_countries,omitempty"`
}

// Clean reports whether every observation found both a continent and metadata.
func (r JoinReport) Clean() bool {
	return len(r.UnmatchedContinent) == 0 && len(r.UnmatchedMetadata) == 0
}

// Log writes the report as data-quality warnings, one line per problem kind.
func (r JoinReport) Log(logger *slog.Logger) {
	if n := len(r.UnmatchedContinent); n > 0 {
		logger.Warn("countries without continent dropped",
			"countries", n,
			"rows", r.DroppedNoContinent,
			"names", r.UnmatchedContinent,
		)
	}
	if n := len(r.UnmatchedMetadata); n > 0 {
		logger.Warn("countries without metadata dropped",
			"countries", n,
			"rows", r.DroppedNoMetadata,
			"names", r.UnmatchedMetadata,
		)
	}
	if len(r.DuplicateContinents) > 0 {
		logger.Warn("duplicate continent rows ignored", "names", r.DuplicateContinents)
	}
	if len(r.DuplicateCountries) > 0 {
		logger.Warn("duplicate country metadata rows ignored", "names", r.DuplicateCountries)
	}
	if r.SkippedReadings > 0 {
		logger.Warn("temperature rows without a reading skipped", "rows", r.SkippedReadings)
	}
	logger.Info("join complete",
		"observations", r.Observations,
		"enriched", r.Enriched,
		"aliased_rows", r.AliasedRows,
	)
}
