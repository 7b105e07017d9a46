package main

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/market-radar/internal/model"
	"github.com/sells-group/market-radar/internal/store"
)

func TestParseIDs(t *testing.T) {
	ids, err := parseIDs(" 3, 1,,2 ")
	require.NoError(t, err)
	assert.Equal(t, []int64{3, 1, 2}, ids)

	ids, err = parseIDs("")
	require.NoError(t, err)
	assert.Empty(t, ids)

	_, err = parseIDs("1,abc")
	assert.Error(t, err)
	_, err = parseIDs("0")
	assert.Error(t, err)
}

func TestParseOrderBy(t *testing.T) {
	keys, err := parseOrderBy("strength, event_date:asc ,fetched_at:DESC")
	require.NoError(t, err)
	assert.Equal(t, []store.SortKey{
		{Field: "strength", Desc: true},
		{Field: "event_date", Desc: false},
		{Field: "fetched_at", Desc: true},
	}, keys)

	keys, err = parseOrderBy("")
	require.NoError(t, err)
	assert.Empty(t, keys)

	_, err = parseOrderBy("strength:sideways")
	assert.Error(t, err)
}

func TestPreview(t *testing.T) {
	assert.Equal(t, "short", preview("short", 10))
	assert.Equal(t, "玉晶光…", preview("玉晶光電擴產", 3))
}

func TestImportCompanies(t *testing.T) {
	ctx := context.Background()
	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "radar.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.Migrate(ctx))

	csv := "id,company_name,segment,region,priority_tier\n" +
		"1, 玉晶光 (GSEO) ,packaging_test,Taiwan,A\n" +
		"2,Test Optical Co,DISPLAY,,\n"
	n, err := importCompanies(ctx, st, strings.NewReader(csv))
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	c, err := st.GetCompany(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "玉晶光 (GSEO)", c.Name)
	assert.Equal(t, model.SegmentPackagingTest, c.Segment)
	assert.Equal(t, "csv", c.Source)

	n, err = importCompanies(ctx, st, strings.NewReader("id,company_name\n"))
	require.NoError(t, err)
	assert.Zero(t, n)

	_, err = importCompanies(ctx, st, strings.NewReader("id,company_name\nnope,Broken\n"))
	assert.Error(t, err)
}

func TestSelectCompanyIDs(t *testing.T) {
	ctx := context.Background()
	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "radar.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.Migrate(ctx))

	ids, err := selectCompanyIDs(ctx, st, "", true)
	require.NoError(t, err)
	assert.Empty(t, ids)

	_, err = importCompanies(ctx, st, strings.NewReader("id,company_name\n7,GSEO\n3,TDK\n"))
	require.NoError(t, err)

	tests := []struct {
		name    string
		raw     string
		all     bool
		want    []int64
		wantErr string
	}{
		{name: "all", all: true, want: []int64{3, 7}},
		{name: "all ignores ids", raw: "99", all: true, want: []int64{3, 7}},
		{name: "explicit ids", raw: "7, 42", want: []int64{7, 42}},
		{name: "neither flag", wantErr: "no companies selected"},
		{name: "bad id", raw: "x", wantErr: "invalid company id"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := selectCompanyIDs(ctx, st, tt.raw, tt.all)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPrintScanResult_Empty(t *testing.T) {
	var buf bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&buf)

	require.NoError(t, printScanResult(cmd, &model.ScanResult{JobID: "job-0", Rejections: map[string]int{}}))
	assert.Equal(t, "job job-0: 0 companies, 0 signals stored, est. $0.0000\n", buf.String())
}

func TestPrintScanResult(t *testing.T) {
	var buf bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&buf)

	res := &model.ScanResult{
		JobID:                   "job-1",
		CompaniesProcessed:      2,
		RecordsCreatedOrUpdated: 3,
		Rejections:              map[string]int{"stale": 2, "not_relevant": 1},
		EstimatedCostUSD:        0.032,
		StartedAt:               time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC),
	}
	require.NoError(t, printScanResult(cmd, res))

	out := buf.String()
	assert.Contains(t, out, "job job-1: 2 companies, 3 signals stored, est. $0.0320")
	assert.Less(t, strings.Index(out, "not_relevant"), strings.Index(out, "stale"))
}

func TestPrintSignals(t *testing.T) {
	var buf bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&buf)

	published := time.Date(2026, 10, 13, 0, 0, 0, 0, time.UTC)
	require.NoError(t, printSignals(cmd, []model.Signal{
		{ID: 7, CompanyID: 1, Type: model.SignalCapex, Strength: 90, SourcePublishedAt: &published,
			SourceName: "news.example.com", Summary: "Test Optical Co will invest in a new AR waveguide line"},
	}))
	out := buf.String()
	assert.Contains(t, out, "CAPEX")
	assert.Contains(t, out, "2026-10-13")
	assert.Contains(t, out, "news.example.com")
}
