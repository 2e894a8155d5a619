package csvfile

import (
	"context"
	"log/slog"

	"github.com/couchcryptid/climate-explorer/internal/domain"
)

// Source reads the input tables from disk. It implements pipeline.Extractor.
type Source struct {
	paths  Paths
	logger *slog.Logger
}

// NewSource creates a Source for paths.
func NewSource(paths Paths, logger *slog.Logger) *Source {
	return &Source{paths: paths, logger: logger}
}

// Extract loads all tables. The files are small enough to read in one pass, so
// ctx is only checked before starting.
func (s *Source) Extract(ctx context.Context) (domain.Sources, error) {
	if err := ctx.Err(); err != nil {
		return domain.Sources{}, err
	}
	return Load(s.paths, s.logger)
}
