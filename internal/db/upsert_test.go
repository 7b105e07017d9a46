package db

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var signalUpsert = UpsertConfig{
	Table:        "signals",
	Columns:      []string{"company_id", "evidence_url", "signal_type", "summary"},
	ConflictKeys: []string{"company_id", "evidence_url"},
}

func TestBulkUpsert_EmptyRows(t *testing.T) {
	n, err := BulkUpsert(context.Background(), nil, UpsertConfig{
		Table:        "companies",
		Columns:      []string{"id", "name"},
		ConflictKeys: []string{"id"},
	}, nil)
	assert.NoError(t, err)
	assert.Equal(t, int64(0), n)
}

func TestBulkUpsert_NoColumns(t *testing.T) {
	_, err := BulkUpsert(context.Background(), nil, UpsertConfig{
		Table:        "companies",
		ConflictKeys: []string{"id"},
	}, [][]any{{1, "a"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no columns specified")
}

func TestBulkUpsert_NoConflictKeys(t *testing.T) {
	_, err := BulkUpsert(context.Background(), nil, UpsertConfig{
		Table:   "companies",
		Columns: []string{"id", "name"},
	}, [][]any{{1, "a"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no conflict keys specified")
}

func TestBulkUpsert_Success(t *testing.T) {
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer mock.Close()

	cols := []string{"id", "name"}
	mock.ExpectBegin()
	mock.ExpectExec(`CREATE TEMP TABLE "_stage_companies"`).
		WillReturnResult(pgxmock.NewResult("CREATE TABLE", 0))
	mock.ExpectCopyFrom(pgx.Identifier{"_stage_companies"}, cols).WillReturnResult(2)
	mock.ExpectExec(`INSERT INTO "companies" .* ON CONFLICT \("id"\) DO UPDATE SET "name" = excluded."name"`).
		WillReturnResult(pgxmock.NewResult("INSERT", 2))
	mock.ExpectCommit()
	mock.ExpectRollback()

	n, err := BulkUpsert(context.Background(), mock, UpsertConfig{
		Table:        "companies",
		Columns:      cols,
		ConflictKeys: []string{"id"},
	}, [][]any{{int64(1), "a"}, {int64(2), "b"}})
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}

func TestBulkUpsert_SharesConflictClause(t *testing.T) {
	tests := []struct {
		name  string
		cfg   UpsertConfig
		merge string
	}{
		{
			name:  "update non-key columns",
			cfg:   signalUpsert,
			merge: `ON CONFLICT ("company_id", "evidence_url") DO UPDATE SET "signal_type" = excluded."signal_type", "summary" = excluded."summary"`,
		},
		{
			name: "explicit empty update list",
			cfg: UpsertConfig{
				Table:        "signals",
				Columns:      signalUpsert.Columns,
				ConflictKeys: signalUpsert.ConflictKeys,
				UpdateCols:   []string{},
			},
			merge: `ON CONFLICT ("company_id", "evidence_url") DO NOTHING`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherEqual))
			require.NoError(t, err)
			defer mock.Close()

			cols := `"company_id", "evidence_url", "signal_type", "summary"`
			mock.ExpectBegin()
			mock.ExpectExec(`CREATE TEMP TABLE "_stage_signals" (LIKE "signals" INCLUDING DEFAULTS) ON COMMIT DROP`).
				WillReturnResult(pgxmock.NewResult("CREATE TABLE", 0))
			mock.ExpectCopyFrom(pgx.Identifier{"_stage_signals"}, tt.cfg.Columns).WillReturnResult(1)
			mock.ExpectExec(`INSERT INTO "signals" (` + cols + `) SELECT ` + cols + ` FROM "_stage_signals" ` + tt.merge).
				WillReturnResult(pgxmock.NewResult("INSERT", 1))
			mock.ExpectCommit()
			mock.ExpectRollback()

			n, err := BulkUpsert(context.Background(), mock, tt.cfg, [][]any{{int64(1), "https://news.example.com/a", "CAPEX", "s"}})
			require.NoError(t, err)
			assert.Equal(t, int64(1), n)
			assert.NoError(t, mock.ExpectationsWereMet())

			single, err := UpsertSQL(Postgres, tt.cfg, "")
			require.NoError(t, err)
			assert.True(t, strings.HasSuffix(single, tt.merge))
		})
	}
}

func TestBulkUpsert_CopyError(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectBegin()
	mock.ExpectExec(`CREATE TEMP TABLE`).WillReturnResult(pgxmock.NewResult("CREATE TABLE", 0))
	mock.ExpectCopyFrom(pgx.Identifier{"_stage_signals"}, signalUpsert.Columns).WillReturnError(errors.New("conn reset"))
	mock.ExpectRollback()

	_, err = BulkUpsert(context.Background(), mock, signalUpsert, [][]any{{int64(1), "u", "CAPEX", "s"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "copy 1 rows into stage for signals")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertSQL_Postgres(t *testing.T) {
	got, err := UpsertSQL(Postgres, signalUpsert, "id")
	require.NoError(t, err)
	assert.Equal(t,
		`INSERT INTO "signals" ("company_id", "evidence_url", "signal_type", "summary") VALUES ($1, $2, $3, $4) `+
			`ON CONFLICT ("company_id", "evidence_url") DO UPDATE SET "signal_type" = excluded."signal_type", "summary" = excluded."summary" `+
			`RETURNING "id"`,
		got)
}

func TestUpsertSQL_SQLite(t *testing.T) {
	got, err := UpsertSQL(SQLite, signalUpsert, "")
	require.NoError(t, err)
	assert.Contains(t, got, "VALUES (?, ?, ?, ?)")
	assert.NotContains(t, got, "RETURNING")
}

func TestUpsertSQL_OnlyConflictColumns(t *testing.T) {
	got, err := UpsertSQL(SQLite, UpsertConfig{
		Table:        "tags",
		Columns:      []string{"name"},
		ConflictKeys: []string{"name"},
	}, "")
	require.NoError(t, err)
	assert.Contains(t, got, "DO NOTHING")
}

func TestUpsertSQL_Invalid(t *testing.T) {
	_, err := UpsertSQL(Postgres, UpsertConfig{Table: "signals"}, "id")
	assert.Error(t, err)
}

func TestSanitizeTable(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"simple", `"simple"`},
		{"radar.signals", `"radar"."signals"`},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := sanitizeTable(tt.input)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestQuoteAndJoin(t *testing.T) {
	result := quoteAndJoin([]string{"id", "name", "value"})
	assert.Equal(t, `"id", "name", "value"`, result)
}
