package model

import (
	"time"
)

// SignalType is the business-signal category assigned by the classifier.
type SignalType string

const (
	SignalCapex       SignalType = "CAPEX"
	SignalNPI         SignalType = "NPI"
	SignalHiring      SignalType = "HIRING"
	SignalSupplyChain SignalType = "SUPPLY_CHAIN"
	SignalExpansion   SignalType = "EXPANSION"
)

// Valid reports whether t is one of the known categories.
func (t SignalType) Valid() bool {
	switch t {
	case SignalCapex, SignalNPI, SignalHiring, SignalSupplyChain, SignalExpansion:
		return true
	default:
		return false
	}
}

// MaxSummaryLen is the stored summary limit in runes.
const MaxSummaryLen = 1200

// Signal is a persisted, company-attributed business event. At most one
// Signal exists per (CompanyID, EvidenceURL).
type Signal struct {
	ID                 int64      `json:"id"`
	CompanyID          int64      `json:"company_id"`
	Type               SignalType `json:"signal_type"`
	Strength           int        `json:"signal_strength"`
	EventDate          *time.Time `json:"event_date,omitempty"`
	Summary            string     `json:"summary"`
	EvidenceURL        string     `json:"evidence_url"`
	SourceName         string     `json:"source_name,omitempty"`
	SourcePublishedAt  *time.Time `json:"source_published_at,omitempty"`
	SearchProvider     string     `json:"search_provider,omitempty"`
	SearchLatencyMs    int        `json:"search_latency_ms"`
	SearchFallbackUsed bool       `json:"search_fallback_used"`
	FetchedAt          time.Time  `json:"fetched_at"`
}

// ScanRequest asks the radar to scan a set of companies.
type ScanRequest struct {
	CompanyIDs           []int64 `json:"company_ids" validate:"required,min=1,dive,gt=0"`
	LookbackDays         int     `json:"lookback_days" validate:"gte=1,lte=365"`
	MaxResultsPerCompany int     `json:"max_results_per_company" validate:"gte=1,lte=20"`
}

// ScanResult summarizes one scan invocation.
type ScanResult struct {
	JobID                   string         `json:"job_id"`
	CompaniesProcessed      int            `json:"companies_processed"`
	RecordsCreatedOrUpdated int            `json:"records_created_or_updated"`
	Rejections              map[string]int `json:"rejections,omitempty"`
	EstimatedCostUSD        float64        `json:"estimated_cost_usd"`
	StartedAt               time.Time      `json:"started_at"`
	FinishedAt              time.Time      `json:"finished_at"`
}
