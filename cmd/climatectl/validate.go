package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newValidateCmd(opts *options) *cobra.Command {
	var (
		strict bool
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Load and join the tables, then print the join report",
		Long: `Reads the three input tables, joins them and prints which countries
could not be matched. With --strict, any unmatched country is an error.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ds, err := opts.build()
			if err != nil {
				return err
			}
			r := ds.Report

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				if err := enc.Encode(r); err != nil {
					return fmt.Errorf("encode report: %w", err)
				}
			} else {
				printf(cmd, "observations:        %d\n", r.Observations)
				printf(cmd, "enriched:            %d\n", r.Enriched)
				printf(cmd, "skipped readings:    %d\n", r.SkippedReadings)
				printf(cmd, "aliased rows:        %d\n", r.AliasedRows)
				printf(cmd, "no continent:        %d rows [%s]\n", r.DroppedNoContinent, strings.Join(r.UnmatchedContinent, ", "))
				printf(cmd, "no metadata:         %d rows [%s]\n", r.DroppedNoMetadata, strings.Join(r.UnmatchedMetadata, ", "))
				printf(cmd, "years:               %d-%d\n", ds.MinYear, ds.MaxYear)
				printf(cmd, "warming deltas:      %d (%d-%d)\n", len(ds.Deltas), ds.Years.Base, ds.Years.Late)
			}

			if strict && !r.Clean() {
				return errors.New("validate: unmatched countries present")
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&strict, "strict", false, "fail when any country is unmatched")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the report as JSON")
	return cmd
}
