package models

import "github.com/google/uuid"

type ImplementationStatus string

const (
	ImplNotImplemented ImplementationStatus = "not_implemented"
	ImplPlanned        ImplementationStatus = "planned"
	ImplInProgress     ImplementationStatus = "in_progress"
	ImplImplemented    ImplementationStatus = "implemented"
)

func (s ImplementationStatus) Valid() bool {
	switch s {
	case ImplNotImplemented, ImplPlanned, ImplInProgress, ImplImplemented:
		return true
	}
	return false
}

// UnifiedControl is a control implemented once and mapped onto many frameworks.
type UnifiedControl struct {
	Base
	Identifier           string               `gorm:"size:64;uniqueIndex;not null" json:"identifier"`
	Title                string               `gorm:"size:255;not null" json:"title"`
	Description          string               `gorm:"type:text" json:"description"`
	Domain               string               `gorm:"size:255" json:"domain"`
	ImplementationStatus ImplementationStatus `gorm:"type:varchar(30);not null;default:'not_implemented'" json:"implementation_status"`
	OwnerID              *uuid.UUID           `gorm:"type:uuid" json:"owner_id,omitempty"`
}

type CoverageLevel string

const (
	CoverageFull          CoverageLevel = "full"
	CoveragePartial       CoverageLevel = "partial"
	CoverageNotApplicable CoverageLevel = "not_applicable"
)

func (c CoverageLevel) Valid() bool {
	switch c {
	case CoverageFull, CoveragePartial, CoverageNotApplicable:
		return true
	}
	return false
}

// FrameworkControlMapping links a requirement to a control with a per-mapping coverage.
type FrameworkControlMapping struct {
	Base
	FrameworkRequirementID uuid.UUID     `gorm:"type:uuid;not null;uniqueIndex:idx_mapping_pair" json:"framework_requirement_id"`
	UnifiedControlID       uuid.UUID     `gorm:"type:uuid;not null;uniqueIndex:idx_mapping_pair" json:"unified_control_id"`
	CoverageLevel          CoverageLevel `gorm:"type:varchar(20);not null" json:"coverage_level"`
	Notes                  string        `gorm:"type:text" json:"notes"`

	FrameworkRequirement *FrameworkRequirement `json:"framework_requirement,omitempty"`
	UnifiedControl       *UnifiedControl       `json:"unified_control,omitempty"`
}
