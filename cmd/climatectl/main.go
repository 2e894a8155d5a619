// Command climatectl works with the temperature tables offline: it validates
// the joins, exports the derived tables and generates fixture data.
//
// Usage:
//
//	climatectl validate --strict
//	climatectl export --out build/
//	climatectl deltas > deltas.csv
//	climatectl genmock --out testdata/
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/couchcryptid/climate-explorer/internal/adapter/csvfile"
	"github.com/couchcryptid/climate-explorer/internal/config"
	"github.com/couchcryptid/climate-explorer/internal/domain"
	"github.com/couchcryptid/climate-explorer/internal/observability"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if err := newRootCmd(cfg).Execute(); err != nil {
		os.Exit(1)
	}
}

// options holds the flags shared by every subcommand.
type options struct {
	paths    csvfile.Paths
	years    domain.ReferenceYears
	logLevel string
	logger   *slog.Logger
}

// newRootCmd wires the subcommands. Flag defaults come from cfg so the CLI
// reads the same environment as the server.
func newRootCmd(cfg *config.Config) *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:          "climatectl",
		Short:        "Inspect and export the country temperature dataset",
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			opts.logger = observability.NewLoggerTo(cmd.ErrOrStderr(), opts.logLevel, "text")
		},
	}

	f := root.PersistentFlags()
	f.StringVar(&opts.paths.Temperatures, "temperatures", cfg.TemperaturesPath, "temperature observations CSV")
	f.StringVar(&opts.paths.Continents, "continents", cfg.ContinentsPath, "country to continent CSV")
	f.StringVar(&opts.paths.Countries, "countries", cfg.CountriesPath, "country metadata CSV")
	f.StringVar(&opts.paths.Aliases, "aliases", cfg.CountryAliasesPath, "optional country alias YAML")
	f.IntVar(&opts.years.Base, "base-year", cfg.BaseYear, "base reference year of the warming delta")
	f.IntVar(&opts.years.Late, "late-year", cfg.LateYear, "late reference year of the warming delta")
	f.StringVar(&opts.logLevel, "log-level", cfg.LogLevel, "debug, info, warn or error")

	root.AddCommand(
		newValidateCmd(opts),
		newExportCmd(opts),
		newDeltasCmd(opts),
		newGenmockCmd(opts),
	)
	return root
}

// build loads the tables and derives the dataset.
func (o *options) build() (*domain.Dataset, error) {
	src, err := csvfile.Load(o.paths, o.logger)
	if err != nil {
		return nil, err
	}
	ds, err := domain.Build(src, o.years)
	if err != nil {
		return nil, err
	}
	ds.Report.Log(o.logger)
	return ds, nil
}

func printf(cmd *cobra.Command, format string, args ...any) {
	fmt.Fprintf(cmd.OutOrStdout(), format, args...)
}
