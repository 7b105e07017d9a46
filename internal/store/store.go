// Package store persists companies and market signals. SQLite serves local
// runs; Postgres serves shared deployments. Both keep at most one signal per
// (company, evidence URL) and update it in place on rescan.
package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/market-radar/internal/db"
	"github.com/sells-group/market-radar/internal/model"
)

// ErrNotFound is returned when a looked-up row does not exist.
var ErrNotFound = eris.New("store: not found")

// SortKey orders a signal listing by one column.
type SortKey struct {
	Field string `json:"field"`
	Desc  bool   `json:"desc"`
}

// SignalFilter specifies criteria for listing signals. A zero CompanyID lists
// every company; a zero Limit returns all rows. Without OrderBy, rows come
// back newest fetched first.
type SignalFilter struct {
	CompanyID int64     `json:"company_id,omitempty"`
	OrderBy   []SortKey `json:"order_by,omitempty"`
	Limit     int       `json:"limit,omitempty"`
}

// Store defines the persistence interface for the signal radar.
type Store interface {
	// Companies
	UpsertCompanies(ctx context.Context, companies []model.Company) (int64, error)
	GetCompanies(ctx context.Context, ids []int64) ([]model.Company, error)
	GetCompany(ctx context.Context, id int64) (*model.Company, error)
	ListCompanies(ctx context.Context) ([]model.Company, error)

	// Signals
	UpsertSignal(ctx context.Context, sig *model.Signal) (int64, error)
	ListSignals(ctx context.Context, filter SignalFilter) ([]model.Signal, error)
	DeleteSignal(ctx context.Context, id int64) (bool, error)
	CountSignalsByType(ctx context.Context) (map[string]int, error)

	// Lifecycle
	Ping(ctx context.Context) error
	Migrate(ctx context.Context) error
	Close() error
}

const signalColumns = `id, company_id, signal_type, signal_strength, event_date, summary, evidence_url,
	source_name, source_published_at, search_provider, search_latency_ms, search_fallback_used, fetched_at`

const companyColumns = `id, name, segment, region, website, source, priority_tier, created_at, updated_at`

var signalUpsert = db.UpsertConfig{
	Table: "signals",
	Columns: []string{
		"company_id", "evidence_url", "signal_type", "signal_strength", "event_date", "summary",
		"source_name", "source_published_at", "search_provider", "search_latency_ms",
		"search_fallback_used", "fetched_at",
	},
	ConflictKeys: []string{"company_id", "evidence_url"},
}

var companyUpsert = db.UpsertConfig{
	Table:        "companies",
	Columns:      []string{"id", "name", "segment", "region", "website", "source", "priority_tier", "updated_at"},
	ConflictKeys: []string{"id"},
}

// sortable maps public sort fields to columns. Anything else is rejected.
var sortable = map[string]string{
	"id":                  "id",
	"signal_strength":     "signal_strength",
	"strength":            "signal_strength",
	"event_date":          "event_date",
	"source_published_at": "source_published_at",
	"fetched_at":          "fetched_at",
}

func orderClause(keys []SortKey) (string, error) {
	if len(keys) == 0 {
		return " ORDER BY fetched_at DESC, id DESC", nil
	}
	parts := make([]string, 0, len(keys)+1)
	for _, k := range keys {
		col, ok := sortable[strings.ToLower(k.Field)]
		if !ok {
			return "", eris.Errorf("store: unsupported sort field %q", k.Field)
		}
		dir := "ASC"
		if k.Desc {
			dir = "DESC"
		}
		parts = append(parts, fmt.Sprintf("%s %s", col, dir))
	}
	parts = append(parts, "id DESC")
	return " ORDER BY " + strings.Join(parts, ", "), nil
}

func signalArgs(sig *model.Signal) []any {
	return []any{
		sig.CompanyID, sig.EvidenceURL, string(sig.Type), sig.Strength, sig.EventDate, sig.Summary,
		sig.SourceName, sig.SourcePublishedAt, sig.SearchProvider, sig.SearchLatencyMs,
		sig.SearchFallbackUsed, sig.FetchedAt,
	}
}

func validateSignal(sig *model.Signal) error {
	switch {
	case sig == nil:
		return eris.New("store: nil signal")
	case sig.CompanyID <= 0:
		return eris.New("store: signal company_id must be > 0")
	case sig.EvidenceURL == "":
		return eris.New("store: signal evidence_url is required")
	case !sig.Type.Valid():
		return eris.Errorf("store: invalid signal type %q", sig.Type)
	}
	return nil
}

func validateCompanies(companies []model.Company) error {
	for _, c := range companies {
		if c.ID <= 0 {
			return eris.Errorf("store: company %q has no id", c.Name)
		}
		if strings.TrimSpace(c.Name) == "" {
			return eris.Errorf("store: company %d has no name", c.ID)
		}
	}
	return nil
}

func mustUpsertSQL(d db.Dialect, cfg db.UpsertConfig, returning string) string {
	q, err := db.UpsertSQL(d, cfg, returning)
	if err != nil {
		panic(err)
	}
	return q
}

type scannable interface {
	Scan(dest ...any) error
}
