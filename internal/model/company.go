package model

import (
	"time"
)

// Segment is the industry segment a company is filed under. It selects the
// keyword set used when planning searches.
type Segment string

const (
	SegmentWaferFab            Segment = "WAFER_FAB"
	SegmentInspectionMetrology Segment = "INSPECTION_METROLOGY"
	SegmentPackagingTest       Segment = "PACKAGING_TEST"
	SegmentFactoryAutomation   Segment = "FACTORY_AUTOMATION"
	SegmentDisplay             Segment = "DISPLAY"
	SegmentSemicon             Segment = "SEMICON"
)

// Company is an account owned by the surrounding CRM. The radar only reads it.
type Company struct {
	ID           int64     `json:"id" csv:"id"`
	Name         string    `json:"name" csv:"company_name"`                     // e.g. "玉晶光 (GSEO)"
	Segment      Segment   `json:"segment" csv:"segment"`
	Region       string    `json:"region,omitempty" csv:"region,omitempty"`
	Website      string    `json:"website,omitempty" csv:"website,omitempty"`
	Source       string    `json:"source,omitempty" csv:"source,omitempty"`
	PriorityTier string    `json:"priority_tier,omitempty" csv:"priority_tier,omitempty"`
	CreatedAt    time.Time `json:"created_at" csv:"-"`
	UpdatedAt    time.Time `json:"updated_at" csv:"-"`
}
