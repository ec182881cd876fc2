package models

import (
	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type FrameworkStatus string

const (
	FrameworkActive     FrameworkStatus = "active"
	FrameworkDraft      FrameworkStatus = "draft"
	FrameworkDeprecated FrameworkStatus = "deprecated"
)

// Framework is a compliance framework (ISO 27001, NIST CSF ...). Structure holds the nested
// import document; FrameworkRequirement rows are what scoring reads.
type Framework struct {
	Base
	Name        string          `gorm:"size:255;not null" json:"name"`
	Code        string          `gorm:"size:64;not null;uniqueIndex:idx_framework_code_version" json:"code"`
	Version     string          `gorm:"size:32;not null;uniqueIndex:idx_framework_code_version" json:"version"`
	Status      FrameworkStatus `gorm:"type:varchar(20);not null;default:'draft'" json:"status"`
	Description string          `gorm:"type:text" json:"description"`
	Structure   datatypes.JSON  `gorm:"type:jsonb" json:"structure,omitempty"`

	Requirements []FrameworkRequirement `json:"requirements,omitempty"`
}

type FrameworkRequirement struct {
	Base
	FrameworkID           uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_requirement_identifier" json:"framework_id"`
	RequirementIdentifier string    `gorm:"size:64;not null;uniqueIndex:idx_requirement_identifier" json:"requirement_identifier"`
	Title                 string    `gorm:"size:500" json:"title"`
	Description           string    `gorm:"type:text" json:"description"`
	Domain                string    `gorm:"size:255;index" json:"domain"`
	Category              string    `gorm:"size:255" json:"category"`
	Subcategory           string    `gorm:"size:255" json:"subcategory"`
	DisplayOrder          int       `gorm:"default:0" json:"display_order"`
}

// ====== import document ======

type FrameworkStructure struct {
	Domains []StructureDomain `json:"domains" yaml:"domains"`
}

type StructureDomain struct {
	Name       string              `json:"name" yaml:"name"`
	Categories []StructureCategory `json:"categories" yaml:"categories"`
}

type StructureCategory struct {
	Name         string                 `json:"name" yaml:"name"`
	Subcategory  string                 `json:"subcategory,omitempty" yaml:"subcategory,omitempty"`
	Requirements []StructureRequirement `json:"requirements" yaml:"requirements"`
}

type StructureRequirement struct {
	Identifier  string `json:"identifier" yaml:"identifier"`
	Title       string `json:"title" yaml:"title"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
}
