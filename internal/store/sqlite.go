package store

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/market-radar/internal/db"
	"github.com/sells-group/market-radar/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

var (
	sqliteSignalUpsert  = mustUpsertSQL(db.SQLite, signalUpsert, "id")
	sqliteCompanyUpsert = mustUpsertSQL(db.SQLite, companyUpsert, "")
)

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := conn.Exec(pragma); err != nil {
			conn.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: conn}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS companies (
	id            INTEGER PRIMARY KEY,
	name          TEXT NOT NULL,
	segment       TEXT NOT NULL DEFAULT '',
	region        TEXT NOT NULL DEFAULT '',
	website       TEXT NOT NULL DEFAULT '',
	source        TEXT NOT NULL DEFAULT '',
	priority_tier TEXT NOT NULL DEFAULT '',
	created_at    DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at    DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS signals (
	id                   INTEGER PRIMARY KEY AUTOINCREMENT,
	company_id           INTEGER NOT NULL REFERENCES companies(id),
	signal_type          TEXT NOT NULL,
	signal_strength      INTEGER NOT NULL,
	event_date           DATETIME,
	summary              TEXT NOT NULL,
	evidence_url         TEXT NOT NULL,
	source_name          TEXT NOT NULL DEFAULT '',
	source_published_at  DATETIME,
	search_provider      TEXT NOT NULL DEFAULT '',
	search_latency_ms    INTEGER NOT NULL DEFAULT 0,
	search_fallback_used BOOLEAN NOT NULL DEFAULT 0,
	fetched_at           DATETIME NOT NULL,
	UNIQUE (company_id, evidence_url)
);

CREATE INDEX IF NOT EXISTS idx_signals_company ON signals(company_id);
CREATE INDEX IF NOT EXISTS idx_signals_fetched_at ON signals(fetched_at);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return eris.Wrap(s.db.PingContext(ctx), "sqlite: ping")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// --- Companies ---

func (s *SQLiteStore) UpsertCompanies(ctx context.Context, companies []model.Company) (int64, error) {
	if len(companies) == 0 {
		return 0, nil
	}
	if err := validateCompanies(companies); err != nil {
		return 0, err
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: begin tx")
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx, sqliteCompanyUpsert)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: prepare company upsert")
	}
	defer stmt.Close()

	now := time.Now().UTC()
	var n int64
	for _, c := range companies {
		res, err := stmt.ExecContext(ctx, c.ID, c.Name, string(c.Segment), c.Region, c.Website, c.Source, c.PriorityTier, now)
		if err != nil {
			return 0, eris.Wrapf(err, "sqlite: upsert company %d", c.ID)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return 0, eris.Wrap(err, "sqlite: rows affected")
		}
		n += affected
	}
	if err := tx.Commit(); err != nil {
		return 0, eris.Wrap(err, "sqlite: commit companies")
	}
	return n, nil
}

func (s *SQLiteStore) GetCompanies(ctx context.Context, ids []int64) ([]model.Company, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	placeholders := make([]string, len(ids))
	args := make([]any, len(ids))
	for i, id := range ids {
		placeholders[i] = "?"
		args[i] = id
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+companyColumns+` FROM companies WHERE id IN (`+strings.Join(placeholders, ", ")+`) ORDER BY id`,
		args...,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: get companies")
	}
	return collectCompanies(rows)
}

func (s *SQLiteStore) GetCompany(ctx context.Context, id int64) (*model.Company, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+companyColumns+` FROM companies WHERE id = ?`, id)
	c, err := scanCompany(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "sqlite: company %d", id)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get company %d", id)
	}
	return c, nil
}

func (s *SQLiteStore) ListCompanies(ctx context.Context) ([]model.Company, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+companyColumns+` FROM companies ORDER BY id`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list companies")
	}
	return collectCompanies(rows)
}

// --- Signals ---

func (s *SQLiteStore) UpsertSignal(ctx context.Context, sig *model.Signal) (int64, error) {
	if err := validateSignal(sig); err != nil {
		return 0, err
	}
	var id int64
	if err := s.db.QueryRowContext(ctx, sqliteSignalUpsert, signalArgs(sig)...).Scan(&id); err != nil {
		return 0, eris.Wrapf(err, "sqlite: upsert signal %s", sig.EvidenceURL)
	}
	sig.ID = id
	return id, nil
}

func (s *SQLiteStore) ListSignals(ctx context.Context, filter SignalFilter) ([]model.Signal, error) {
	query := `SELECT ` + signalColumns + ` FROM signals`
	var args []any
	if filter.CompanyID > 0 {
		query += ` WHERE company_id = ?`
		args = append(args, filter.CompanyID)
	}
	order, err := orderClause(filter.OrderBy)
	if err != nil {
		return nil, err
	}
	query += order
	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list signals")
	}
	defer rows.Close()

	var out []model.Signal
	for rows.Next() {
		sig, err := scanSQLiteSignal(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *sig)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list signals iterate")
}

func (s *SQLiteStore) DeleteSignal(ctx context.Context, id int64) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM signals WHERE id = ?`, id)
	if err != nil {
		return false, eris.Wrapf(err, "sqlite: delete signal %d", id)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, eris.Wrap(err, "sqlite: rows affected")
	}
	return n > 0, nil
}

func (s *SQLiteStore) CountSignalsByType(ctx context.Context) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT signal_type, COUNT(*) FROM signals GROUP BY signal_type`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: count signals")
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var typ string
		var n int
		if err := rows.Scan(&typ, &n); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan signal count")
		}
		counts[typ] = n
	}
	return counts, eris.Wrap(rows.Err(), "sqlite: count signals iterate")
}

// helpers

func collectCompanies(rows *sql.Rows) ([]model.Company, error) {
	defer rows.Close()
	var out []model.Company
	for rows.Next() {
		c, err := scanCompany(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan company")
		}
		out = append(out, *c)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: companies iterate")
}

func scanCompany(row scannable) (*model.Company, error) {
	var c model.Company
	var segment string
	if err := row.Scan(&c.ID, &c.Name, &segment, &c.Region, &c.Website, &c.Source, &c.PriorityTier, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	c.Segment = model.Segment(segment)
	return &c, nil
}

func scanSQLiteSignal(row scannable) (*model.Signal, error) {
	var sig model.Signal
	var typ string
	var eventDate, published sql.NullTime
	err := row.Scan(&sig.ID, &sig.CompanyID, &typ, &sig.Strength, &eventDate, &sig.Summary, &sig.EvidenceURL,
		&sig.SourceName, &published, &sig.SearchProvider, &sig.SearchLatencyMs, &sig.SearchFallbackUsed, &sig.FetchedAt)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan signal")
	}
	sig.Type = model.SignalType(typ)
	if eventDate.Valid {
		t := eventDate.Time.UTC()
		sig.EventDate = &t
	}
	if published.Valid {
		t := published.Time.UTC()
		sig.SourcePublishedAt = &t
	}
	sig.FetchedAt = sig.FetchedAt.UTC()
	return &sig, nil
}
