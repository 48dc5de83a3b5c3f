package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/FilipeTheAnalyst/global-footprint-network-use-case/internal/db"
	"github.com/FilipeTheAnalyst/global-footprint-network-use-case/internal/model"
)

// PostgresSink implements Sink against a Postgres warehouse using pgxpool.
type PostgresSink struct {
	pool db.Pool
}

// NewPostgres creates a PostgresSink with a connection pool.
func NewPostgres(ctx context.Context, connString string) (*PostgresSink, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}
	pgxCfg.MaxConns = 10
	pgxCfg.MinConns = 2
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresSink{pool: pool}, nil
}

const postgresMigration = `
CREATE SCHEMA IF NOT EXISTS gfn;

CREATE TABLE IF NOT EXISTS gfn.countries (
	country_code   INTEGER PRIMARY KEY,
	country_name   TEXT NOT NULL,
	short_name     TEXT,
	iso_alpha2     TEXT,
	score          TEXT,
	extracted_at   TIMESTAMPTZ,
	transformed_at TIMESTAMPTZ,
	loaded_at      TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS gfn.record_types (
	record_type TEXT PRIMARY KEY,
	description TEXT
);

CREATE TABLE IF NOT EXISTS gfn.footprint_data (
	country_code        INTEGER NOT NULL,
	country_name        TEXT NOT NULL,
	iso_alpha2          TEXT,
	year                INTEGER NOT NULL,
	record_type         TEXT NOT NULL,
	crop_land           DOUBLE PRECISION,
	grazing_land        DOUBLE PRECISION,
	forest_land         DOUBLE PRECISION,
	fishing_ground      DOUBLE PRECISION,
	builtup_land        DOUBLE PRECISION,
	carbon              DOUBLE PRECISION,
	value               DOUBLE PRECISION,
	carbon_pct_of_total DOUBLE PRECISION,
	score               TEXT,
	extracted_at        TIMESTAMPTZ,
	transformed_at      TIMESTAMPTZ,
	loaded_at           TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (country_code, year, record_type)
);

CREATE TABLE IF NOT EXISTS gfn.etl_state (
	dataset             TEXT PRIMARY KEY,
	last_year_processed INTEGER NOT NULL,
	updated_at          TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS gfn.sync_log (
	id           TEXT PRIMARY KEY,
	dataset      TEXT NOT NULL,
	status       TEXT NOT NULL,
	started_at   TIMESTAMPTZ NOT NULL,
	completed_at TIMESTAMPTZ,
	rows_loaded  BIGINT NOT NULL DEFAULT 0,
	error        TEXT
);

CREATE INDEX IF NOT EXISTS idx_gfn_footprint_year ON gfn.footprint_data(year);
CREATE INDEX IF NOT EXISTS idx_gfn_footprint_record_type ON gfn.footprint_data(record_type);
CREATE INDEX IF NOT EXISTS idx_gfn_sync_log_dataset ON gfn.sync_log(dataset, started_at);
`

func (s *PostgresSink) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresSink) Close() error {
	s.pool.Close()
	return nil
}

var factColumns = []string{
	"country_code", "country_name", "iso_alpha2", "year", "record_type",
	"crop_land", "grazing_land", "forest_land", "fishing_ground", "builtup_land",
	"carbon", "value", "carbon_pct_of_total", "score", "extracted_at", "transformed_at",
}

func (s *PostgresSink) UpsertFacts(ctx context.Context, facts []model.FootprintRecord) (int64, error) {
	rows := make([][]any, 0, len(facts))
	for _, f := range facts {
		rows = append(rows, []any{
			f.CountryCode, f.CountryName, pgNullStr(f.IsoAlpha2), f.Year, f.RecordType,
			f.CropLand, f.GrazingLand, f.ForestLand, f.FishingGround, f.BuiltupLand,
			f.Carbon, f.Value, f.CarbonPctOfTotal, pgNullStr(f.Score), f.ExtractedAt, f.TransformedAt,
		})
	}

	n, err := db.BulkUpsert(ctx, s.pool, db.UpsertConfig{
		Table:        "gfn.footprint_data",
		Columns:      factColumns,
		ConflictKeys: []string{"country_code", "year", "record_type"},
	}, rows)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: upsert facts")
	}
	return n, nil
}

func (s *PostgresSink) ReplaceCountries(ctx context.Context, countries []model.Country) (int64, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: begin")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if _, err := tx.Exec(ctx, `DELETE FROM gfn.countries`); err != nil {
		return 0, eris.Wrap(err, "postgres: clear countries")
	}

	rows := make([][]any, 0, len(countries))
	for _, c := range countries {
		rows = append(rows, []any{
			c.CountryCode, c.CountryName, pgNullStr(c.ShortName), pgNullStr(c.IsoAlpha2), pgNullStr(c.Score),
			c.ExtractedAt, c.TransformedAt,
		})
	}
	n, err := tx.CopyFrom(ctx, pgx.Identifier{"gfn", "countries"},
		[]string{"country_code", "country_name", "short_name", "iso_alpha2", "score", "extracted_at", "transformed_at"},
		pgx.CopyFromRows(rows),
	)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: copy countries")
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, eris.Wrap(err, "postgres: commit countries")
	}
	return n, nil
}

func (s *PostgresSink) ReplaceRecordTypes(ctx context.Context, types []model.RecordType) (int64, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: begin")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if _, err := tx.Exec(ctx, `DELETE FROM gfn.record_types`); err != nil {
		return 0, eris.Wrap(err, "postgres: clear record_types")
	}
	for _, t := range types {
		if _, err := tx.Exec(ctx,
			`INSERT INTO gfn.record_types (record_type, description) VALUES ($1, $2)`,
			t.Code, t.Description,
		); err != nil {
			return 0, eris.Wrapf(err, "postgres: insert record type %s", t.Code)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, eris.Wrap(err, "postgres: commit record_types")
	}
	return int64(len(types)), nil
}

func (s *PostgresSink) Watermark(ctx context.Context, dataset string) (*int, error) {
	var year int
	err := s.pool.QueryRow(ctx,
		`SELECT last_year_processed FROM gfn.etl_state WHERE dataset = $1`, dataset,
	).Scan(&year)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: watermark for %s", dataset)
	}
	return &year, nil
}

func (s *PostgresSink) SetWatermark(ctx context.Context, dataset string, year int) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO gfn.etl_state (dataset, last_year_processed, updated_at) VALUES ($1, $2, $3)
		 ON CONFLICT (dataset) DO UPDATE SET
			last_year_processed = EXCLUDED.last_year_processed,
			updated_at = EXCLUDED.updated_at`,
		dataset, year, time.Now().UTC(),
	)
	return eris.Wrapf(err, "postgres: set watermark for %s", dataset)
}

func (s *PostgresSink) StartSync(ctx context.Context, dataset string) (string, error) {
	id := uuid.New().String()
	_, err := s.pool.Exec(ctx,
		`INSERT INTO gfn.sync_log (id, dataset, status, started_at) VALUES ($1, $2, 'running', $3)`,
		id, dataset, time.Now().UTC(),
	)
	if err != nil {
		return "", eris.Wrapf(err, "postgres: start sync for %s", dataset)
	}
	return id, nil
}

func (s *PostgresSink) CompleteSync(ctx context.Context, syncID string, rowsLoaded int64) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE gfn.sync_log SET status = 'complete', completed_at = $1, rows_loaded = $2 WHERE id = $3`,
		time.Now().UTC(), rowsLoaded, syncID,
	)
	return eris.Wrapf(err, "postgres: complete sync %s", syncID)
}

func (s *PostgresSink) FailSync(ctx context.Context, syncID string, errMsg string) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE gfn.sync_log SET status = 'failed', completed_at = $1, error = $2 WHERE id = $3`,
		time.Now().UTC(), errMsg, syncID,
	)
	return eris.Wrapf(err, "postgres: fail sync %s", syncID)
}

func (s *PostgresSink) ListSyncs(ctx context.Context, dataset string, limit int) ([]SyncEntry, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.pool.Query(ctx,
		`SELECT id, dataset, status, started_at, completed_at, rows_loaded, COALESCE(error, '')
		 FROM gfn.sync_log WHERE dataset = $1 ORDER BY started_at DESC LIMIT $2`,
		dataset, limit,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: list syncs for %s", dataset)
	}
	defer rows.Close()

	var entries []SyncEntry
	for rows.Next() {
		var e SyncEntry
		var started time.Time
		var completed *time.Time
		if err := rows.Scan(&e.ID, &e.Dataset, &e.Status, &started, &completed, &e.RowsLoaded, &e.Error); err != nil {
			return nil, eris.Wrap(err, "postgres: scan sync row")
		}
		e.StartedAt = started.Format(time.RFC3339)
		if completed != nil {
			s := completed.Format(time.RFC3339)
			e.CompletedAt = &s
		}
		entries = append(entries, e)
	}
	return entries, eris.Wrap(rows.Err(), "postgres: iterate syncs")
}

// pgNullStr maps the empty string to SQL NULL.
func pgNullStr(s string) any {
	if s == "" {
		return nil
	}
	return s
}
