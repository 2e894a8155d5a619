package main

import (
	"errors"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/couchcryptid/climate-explorer/internal/adapter/csvfile"
)

func newExportCmd(opts *options) *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the enriched and warming delta tables as CSV",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if out == "" {
				return errors.New("export: --out is required")
			}
			ds, err := opts.build()
			if err != nil {
				return err
			}
			if err := csvfile.ExportDir(out, ds); err != nil {
				return err
			}
			printf(cmd, "wrote %s (%d rows)\n", filepath.Join(out, csvfile.EnrichedFile), len(ds.Enriched))
			printf(cmd, "wrote %s (%d rows)\n", filepath.Join(out, csvfile.DeltasFile), len(ds.Deltas))
			return nil
		},
	}
	cmd.Flags().StringVar(&out, "out", "", "output directory")
	return cmd
}

func newDeltasCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "deltas",
		Short: "Print the warming delta table as CSV",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ds, err := opts.build()
			if err != nil {
				return err
			}
			return csvfile.WriteDeltas(cmd.OutOrStdout(), ds.Deltas)
		},
	}
}
