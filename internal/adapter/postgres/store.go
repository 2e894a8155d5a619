// Package postgres stores the warming delta table in PostgreSQL.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/lib/pq"

	"github.com/couchcryptid/climate-explorer/internal/domain"
)

// DefaultTable is the table deltas are written to.
const DefaultTable = "warming_deltas"

// batchSize bounds the rows per INSERT statement.
const batchSize = 100

var columns = []string{
	"country", "continent", "code", "lon", "lat",
	"base_year", "late_year", "base_temperature", "late_temperature", "change", "built_at",
}

// DeltaStore upserts warming deltas keyed on (country, base_year, late_year).
// It implements pipeline.Loader.
type DeltaStore struct {
	db       *sql.DB
	table    string
	logger   *slog.Logger
	migrated bool
}

// NewDeltaStore opens a connection pool for dsn. No connection is made until
// the first load, so an unreachable database does not block startup.
func NewDeltaStore(dsn string, logger *slog.Logger) (*DeltaStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	return &DeltaStore{db: db, table: DefaultTable, logger: logger}, nil
}

// Name identifies the sink in logs and metrics.
func (s *DeltaStore) Name() string { return "postgres" }

// LoadDeltas creates the table if needed and upserts every delta of ds inside
// one transaction.
func (s *DeltaStore) LoadDeltas(ctx context.Context, ds *domain.Dataset) error {
	if !s.migrated {
		if err := s.migrate(ctx); err != nil {
			return err
		}
		s.migrated = true
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return describe("begin transaction", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	for start := 0; start < len(ds.Deltas); start += batchSize {
		batch := ds.Deltas[start:min(start+batchSize, len(ds.Deltas))]
		query, args := upsertStatement(s.table, batch, ds)
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return describe("upsert warming deltas", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return describe("commit warming deltas", err)
	}
	s.logger.Debug("warming deltas stored", "table", s.table, "rows", len(ds.Deltas))
	return nil
}

func (s *DeltaStore) Close() error {
	return s.db.Close()
}

func (s *DeltaStore) migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, createTableStatement(s.table)); err != nil {
		return describe("create table "+s.table, err)
	}
	return nil
}

func createTableStatement(table string) string {
	return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	country          TEXT             NOT NULL,
	continent        TEXT             NOT NULL,
	code             TEXT             NOT NULL,
	lon              DOUBLE PRECISION NOT NULL,
	lat              DOUBLE PRECISION NOT NULL,
	base_year        INTEGER          NOT NULL,
	late_year        INTEGER          NOT NULL,
	base_temperature DOUBLE PRECISION NOT NULL,
	late_temperature DOUBLE PRECISION NOT NULL,
	change           DOUBLE PRECISION NOT NULL,
	built_at         TIMESTAMPTZ      NOT NULL,
	PRIMARY KEY (country, base_year, late_year)
)`, pq.QuoteIdentifier(table))
}

// upsertStatement builds one multi-row INSERT ... ON CONFLICT for batch.
func upsertStatement(table string, batch []domain.WarmingDelta, ds *domain.Dataset) (string, []any) {
	values := make([]string, 0, len(batch))
	args := make([]any, 0, len(batch)*len(columns))
	for i, d := range batch {
		placeholders := make([]string, len(columns))
		for j := range columns {
			placeholders[j] = fmt.Sprintf("$%d", i*len(columns)+j+1)
		}
		values = append(values, "("+strings.Join(placeholders, ",")+")")
		args = append(args,
			d.Country, d.Continent, d.Code, d.Lon, d.Lat,
			d.BaseYear, d.LateYear, d.BaseTemperature, d.LateTemperature, d.Change, ds.BuiltAt,
		)
	}

	updates := make([]string, 0, len(columns))
	for _, c := range columns {
		switch c {
		case "country", "base_year", "late_year":
			continue
		}
		updates = append(updates, c+" = EXCLUDED."+c)
	}

	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES %s ON CONFLICT (country, base_year, late_year) DO UPDATE SET %s",
		pq.QuoteIdentifier(table),
		strings.Join(columns, ", "),
		strings.Join(values, ", "),
		strings.Join(updates, ", "),
	)
	return query, args
}

// describe wraps err, naming the Postgres error code when the server sent one.
func describe(op string, err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return fmt.Errorf("%s: postgres %s (%s): %w", op, pqErr.Code, pqErr.Code.Name(), err)
	}
	return fmt.Errorf("%s: %w", op, err)
}
