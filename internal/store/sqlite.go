package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/FilipeTheAnalyst/global-footprint-network-use-case/internal/model"
)

// SQLiteSink implements Sink using modernc.org/sqlite, the embedded
// analytical destination for local runs.
type SQLiteSink struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteSink, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteSink{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS countries (
	country_code   INTEGER PRIMARY KEY,
	country_name   TEXT NOT NULL,
	short_name     TEXT,
	iso_alpha2     TEXT,
	score          TEXT,
	extracted_at   DATETIME,
	transformed_at DATETIME,
	loaded_at      DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS record_types (
	record_type TEXT PRIMARY KEY,
	description TEXT
);

CREATE TABLE IF NOT EXISTS footprint_data (
	country_code        INTEGER NOT NULL,
	country_name        TEXT NOT NULL,
	iso_alpha2          TEXT,
	year                INTEGER NOT NULL,
	record_type         TEXT NOT NULL,
	crop_land           REAL,
	grazing_land        REAL,
	forest_land         REAL,
	fishing_ground      REAL,
	builtup_land        REAL,
	carbon              REAL,
	value               REAL,
	carbon_pct_of_total REAL,
	score               TEXT,
	extracted_at        DATETIME,
	transformed_at      DATETIME,
	loaded_at           DATETIME NOT NULL DEFAULT (datetime('now')),
	PRIMARY KEY (country_code, year, record_type)
);

CREATE TABLE IF NOT EXISTS etl_state (
	dataset             TEXT PRIMARY KEY,
	last_year_processed INTEGER NOT NULL,
	updated_at          DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS sync_log (
	id           TEXT PRIMARY KEY,
	dataset      TEXT NOT NULL,
	status       TEXT NOT NULL,
	started_at   DATETIME NOT NULL,
	completed_at DATETIME,
	rows_loaded  INTEGER NOT NULL DEFAULT 0,
	error        TEXT
);

CREATE INDEX IF NOT EXISTS idx_footprint_year ON footprint_data(year);
CREATE INDEX IF NOT EXISTS idx_footprint_record_type ON footprint_data(record_type);
CREATE INDEX IF NOT EXISTS idx_sync_log_dataset ON sync_log(dataset, started_at);

CREATE VIEW IF NOT EXISTS ecological_footprint AS
	SELECT * FROM footprint_data
	WHERE record_type LIKE 'EFC%' AND record_type NOT LIKE '%PerCap';

CREATE VIEW IF NOT EXISTS biocapacity AS
	SELECT * FROM footprint_data
	WHERE record_type LIKE 'BiocapTot%' OR record_type LIKE 'BioCap%';

CREATE VIEW IF NOT EXISTS per_capita_metrics AS
	SELECT * FROM footprint_data
	WHERE record_type LIKE '%PerCap';

CREATE VIEW IF NOT EXISTS ecological_deficit AS
	SELECT * FROM footprint_data
	WHERE record_type LIKE 'EFCdef%';
`

func (s *SQLiteSink) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteSink) Close() error {
	return s.db.Close()
}

func (s *SQLiteSink) ReplaceCountries(ctx context.Context, countries []model.Country) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: begin")
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, `DELETE FROM countries`); err != nil {
		return 0, eris.Wrap(err, "sqlite: clear countries")
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO countries (country_code, country_name, short_name, iso_alpha2, score, extracted_at, transformed_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: prepare countries insert")
	}
	defer stmt.Close() //nolint:errcheck

	for _, c := range countries {
		if _, err := stmt.ExecContext(ctx,
			c.CountryCode, c.CountryName, nullStr(c.ShortName), nullStr(c.IsoAlpha2), nullStr(c.Score),
			c.ExtractedAt, c.TransformedAt,
		); err != nil {
			return 0, eris.Wrapf(err, "sqlite: insert country %d", c.CountryCode)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, eris.Wrap(err, "sqlite: commit countries")
	}
	return int64(len(countries)), nil
}

func (s *SQLiteSink) ReplaceRecordTypes(ctx context.Context, types []model.RecordType) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: begin")
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, `DELETE FROM record_types`); err != nil {
		return 0, eris.Wrap(err, "sqlite: clear record_types")
	}
	for _, t := range types {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO record_types (record_type, description) VALUES (?, ?)`,
			t.Code, t.Description,
		); err != nil {
			return 0, eris.Wrapf(err, "sqlite: insert record type %s", t.Code)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, eris.Wrap(err, "sqlite: commit record_types")
	}
	return int64(len(types)), nil
}

func (s *SQLiteSink) UpsertFacts(ctx context.Context, facts []model.FootprintRecord) (int64, error) {
	if len(facts) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: begin")
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO footprint_data (
			country_code, country_name, iso_alpha2, year, record_type,
			crop_land, grazing_land, forest_land, fishing_ground, builtup_land,
			carbon, value, carbon_pct_of_total, score, extracted_at, transformed_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (country_code, year, record_type) DO UPDATE SET
			country_name = excluded.country_name,
			iso_alpha2 = excluded.iso_alpha2,
			crop_land = excluded.crop_land,
			grazing_land = excluded.grazing_land,
			forest_land = excluded.forest_land,
			fishing_ground = excluded.fishing_ground,
			builtup_land = excluded.builtup_land,
			carbon = excluded.carbon,
			value = excluded.value,
			carbon_pct_of_total = excluded.carbon_pct_of_total,
			score = excluded.score,
			extracted_at = excluded.extracted_at,
			transformed_at = excluded.transformed_at,
			loaded_at = datetime('now')
		WHERE excluded.transformed_at >= footprint_data.transformed_at`)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: prepare facts upsert")
	}
	defer stmt.Close() //nolint:errcheck

	for _, f := range facts {
		if _, err := stmt.ExecContext(ctx,
			f.CountryCode, f.CountryName, nullStr(f.IsoAlpha2), f.Year, f.RecordType,
			f.CropLand, f.GrazingLand, f.ForestLand, f.FishingGround, f.BuiltupLand,
			f.Carbon, f.Value, f.CarbonPctOfTotal, nullStr(f.Score), f.ExtractedAt, f.TransformedAt,
		); err != nil {
			return 0, eris.Wrapf(err, "sqlite: upsert fact %s", f.Key())
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, eris.Wrap(err, "sqlite: commit facts")
	}
	return int64(len(facts)), nil
}

func (s *SQLiteSink) Watermark(ctx context.Context, dataset string) (*int, error) {
	var year int
	err := s.db.QueryRowContext(ctx,
		`SELECT last_year_processed FROM etl_state WHERE dataset = ?`, dataset,
	).Scan(&year)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: watermark for %s", dataset)
	}
	return &year, nil
}

func (s *SQLiteSink) SetWatermark(ctx context.Context, dataset string, year int) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO etl_state (dataset, last_year_processed, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT (dataset) DO UPDATE SET
			last_year_processed = excluded.last_year_processed,
			updated_at = excluded.updated_at`,
		dataset, year, time.Now().UTC(),
	)
	return eris.Wrapf(err, "sqlite: set watermark for %s", dataset)
}

func (s *SQLiteSink) StartSync(ctx context.Context, dataset string) (string, error) {
	id := uuid.New().String()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sync_log (id, dataset, status, started_at) VALUES (?, ?, 'running', ?)`,
		id, dataset, time.Now().UTC(),
	)
	if err != nil {
		return "", eris.Wrapf(err, "sqlite: start sync for %s", dataset)
	}
	return id, nil
}

func (s *SQLiteSink) CompleteSync(ctx context.Context, syncID string, rowsLoaded int64) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE sync_log SET status = 'complete', completed_at = ?, rows_loaded = ? WHERE id = ?`,
		time.Now().UTC(), rowsLoaded, syncID,
	)
	return eris.Wrapf(err, "sqlite: complete sync %s", syncID)
}

func (s *SQLiteSink) FailSync(ctx context.Context, syncID string, errMsg string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE sync_log SET status = 'failed', completed_at = ?, error = ? WHERE id = ?`,
		time.Now().UTC(), errMsg, syncID,
	)
	return eris.Wrapf(err, "sqlite: fail sync %s", syncID)
}

func (s *SQLiteSink) ListSyncs(ctx context.Context, dataset string, limit int) ([]SyncEntry, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, dataset, status, started_at, completed_at, rows_loaded, COALESCE(error, '')
		 FROM sync_log WHERE dataset = ? ORDER BY started_at DESC LIMIT ?`,
		dataset, limit,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: list syncs for %s", dataset)
	}
	defer rows.Close() //nolint:errcheck

	var entries []SyncEntry
	for rows.Next() {
		var e SyncEntry
		var completed sql.NullString
		if err := rows.Scan(&e.ID, &e.Dataset, &e.Status, &e.StartedAt, &completed, &e.RowsLoaded, &e.Error); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan sync row")
		}
		if completed.Valid {
			e.CompletedAt = &completed.String
		}
		entries = append(entries, e)
	}
	return entries, eris.Wrap(rows.Err(), "sqlite: iterate syncs")
}

// nullStr maps the empty string to SQL NULL.
func nullStr(s string) any {
	if s == "" {
		return nil
	}
	return s
}
