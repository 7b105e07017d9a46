package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/market-radar/internal/db"
	"github.com/sells-group/market-radar/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

var pgSignalUpsert = mustUpsertSQL(db.Postgres, signalUpsert, "id")

// preparedStatements lists queries to prepare on each new connection for
// faster execution of the most frequently used store operations.
var preparedStatements = map[string]string{
	"upsert_signal": pgSignalUpsert,
	"get_company":   `SELECT ` + companyColumns + ` FROM companies WHERE id = $1`,
	"get_companies": `SELECT ` + companyColumns + ` FROM companies WHERE id = ANY($1) ORDER BY id`,
	"delete_signal": `DELETE FROM signals WHERE id = $1`,
	"count_by_type": `SELECT signal_type, COUNT(*) FROM signals GROUP BY signal_type`,
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pgxCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		for name, sql := range preparedStatements {
			if _, err := conn.Prepare(ctx, name, sql); err != nil {
				return eris.Wrapf(err, "postgres: prepare %s", name)
			}
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS companies (
	id            BIGINT PRIMARY KEY,
	name          TEXT NOT NULL,
	segment       TEXT NOT NULL DEFAULT '',
	region        TEXT NOT NULL DEFAULT '',
	website       TEXT NOT NULL DEFAULT '',
	source        TEXT NOT NULL DEFAULT '',
	priority_tier TEXT NOT NULL DEFAULT '',
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS signals (
	id                   BIGSERIAL PRIMARY KEY,
	company_id           BIGINT NOT NULL REFERENCES companies(id),
	signal_type          TEXT NOT NULL,
	signal_strength      INTEGER NOT NULL CHECK (signal_strength BETWEEN 0 AND 100),
	event_date           DATE,
	summary              TEXT NOT NULL,
	evidence_url         TEXT NOT NULL,
	source_name          TEXT NOT NULL DEFAULT '',
	source_published_at  TIMESTAMPTZ,
	search_provider      TEXT NOT NULL DEFAULT '',
	search_latency_ms    INTEGER NOT NULL DEFAULT 0,
	search_fallback_used BOOLEAN NOT NULL DEFAULT false,
	fetched_at           TIMESTAMPTZ NOT NULL,
	UNIQUE (company_id, evidence_url)
);

CREATE INDEX IF NOT EXISTS idx_signals_company ON signals(company_id);
CREATE INDEX IF NOT EXISTS idx_signals_fetched_at ON signals(fetched_at DESC);
`

func (s *PostgresStore) Ping(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "SELECT 1")
	return eris.Wrap(err, "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

// --- Companies ---

func (s *PostgresStore) UpsertCompanies(ctx context.Context, companies []model.Company) (int64, error) {
	if len(companies) == 0 {
		return 0, nil
	}
	if err := validateCompanies(companies); err != nil {
		return 0, err
	}
	now := time.Now().UTC()
	rows := make([][]any, len(companies))
	for i, c := range companies {
		rows[i] = []any{c.ID, c.Name, string(c.Segment), c.Region, c.Website, c.Source, c.PriorityTier, now}
	}
	n, err := db.BulkUpsert(ctx, s.pool, companyUpsert, rows)
	return n, eris.Wrap(err, "postgres: upsert companies")
}

func (s *PostgresStore) GetCompanies(ctx context.Context, ids []int64) ([]model.Company, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := s.pool.Query(ctx, preparedStatements["get_companies"], ids)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: get companies")
	}
	return collectPgCompanies(rows)
}

func (s *PostgresStore) GetCompany(ctx context.Context, id int64) (*model.Company, error) {
	c, err := scanCompany(s.pool.QueryRow(ctx, preparedStatements["get_company"], id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "postgres: company %d", id)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get company %d", id)
	}
	return c, nil
}

func (s *PostgresStore) ListCompanies(ctx context.Context) ([]model.Company, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+companyColumns+` FROM companies ORDER BY id`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list companies")
	}
	return collectPgCompanies(rows)
}

// --- Signals ---

func (s *PostgresStore) UpsertSignal(ctx context.Context, sig *model.Signal) (int64, error) {
	if err := validateSignal(sig); err != nil {
		return 0, err
	}
	var id int64
	if err := s.pool.QueryRow(ctx, pgSignalUpsert, signalArgs(sig)...).Scan(&id); err != nil {
		return 0, eris.Wrapf(err, "postgres: upsert signal %s", sig.EvidenceURL)
	}
	sig.ID = id
	return id, nil
}

func (s *PostgresStore) ListSignals(ctx context.Context, filter SignalFilter) ([]model.Signal, error) {
	query := `SELECT ` + signalColumns + ` FROM signals`
	args := []any{}
	argIdx := 1

	if filter.CompanyID > 0 {
		query += fmt.Sprintf(` WHERE company_id = $%d`, argIdx)
		args = append(args, filter.CompanyID)
		argIdx++
	}
	order, err := orderClause(filter.OrderBy)
	if err != nil {
		return nil, err
	}
	query += order
	if filter.Limit > 0 {
		query += fmt.Sprintf(` LIMIT $%d`, argIdx)
		args = append(args, filter.Limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list signals")
	}
	defer rows.Close()

	var out []model.Signal
	for rows.Next() {
		var sig model.Signal
		var typ string
		if err := rows.Scan(&sig.ID, &sig.CompanyID, &typ, &sig.Strength, &sig.EventDate, &sig.Summary, &sig.EvidenceURL,
			&sig.SourceName, &sig.SourcePublishedAt, &sig.SearchProvider, &sig.SearchLatencyMs,
			&sig.SearchFallbackUsed, &sig.FetchedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan signal")
		}
		sig.Type = model.SignalType(typ)
		out = append(out, sig)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list signals iterate")
}

func (s *PostgresStore) DeleteSignal(ctx context.Context, id int64) (bool, error) {
	tag, err := s.pool.Exec(ctx, preparedStatements["delete_signal"], id)
	if err != nil {
		return false, eris.Wrapf(err, "postgres: delete signal %d", id)
	}
	return tag.RowsAffected() > 0, nil
}

func (s *PostgresStore) CountSignalsByType(ctx context.Context) (map[string]int, error) {
	rows, err := s.pool.Query(ctx, preparedStatements["count_by_type"])
	if err != nil {
		return nil, eris.Wrap(err, "postgres: count signals")
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var typ string
		var n int
		if err := rows.Scan(&typ, &n); err != nil {
			return nil, eris.Wrap(err, "postgres: scan signal count")
		}
		counts[typ] = n
	}
	return counts, eris.Wrap(rows.Err(), "postgres: count signals iterate")
}

func collectPgCompanies(rows pgx.Rows) ([]model.Company, error) {
	defer rows.Close()
	var out []model.Company
	for rows.Next() {
		c, err := scanCompany(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan company")
		}
		out = append(out, *c)
	}
	return out, eris.Wrap(rows.Err(), "postgres: companies iterate")
}
