package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

type AssessmentStatus string

const (
	AssessmentNotStarted  AssessmentStatus = "not_started"
	AssessmentInProgress  AssessmentStatus = "in_progress"
	AssessmentUnderReview AssessmentStatus = "under_review"
	AssessmentCompleted   AssessmentStatus = "completed"
	AssessmentCancelled   AssessmentStatus = "cancelled"
)

func (s AssessmentStatus) Valid() bool {
	switch s {
	case AssessmentNotStarted, AssessmentInProgress, AssessmentUnderReview,
		AssessmentCompleted, AssessmentCancelled:
		return true
	}
	return false
}

type Assessment struct {
	Base
	Name        string           `gorm:"size:255;not null" json:"name"`
	Description string           `gorm:"type:text" json:"description"`
	Status      AssessmentStatus `gorm:"type:varchar(30);not null;default:'not_started'" json:"status"`

	SelectedFrameworkIDs pq.StringArray `gorm:"type:text[]" json:"selected_framework_ids"`
	SelectedControlIDs   pq.StringArray `gorm:"type:text[]" json:"selected_control_ids"`

	LeadAssessorID *uuid.UUID `gorm:"type:uuid" json:"lead_assessor_id,omitempty"`
	StartDate      *time.Time `json:"start_date,omitempty"`
	EndDate        *time.Time `json:"end_date,omitempty"`
	CompletedAt    *time.Time `json:"completed_at,omitempty"`

	ControlsAssessed int     `gorm:"default:0" json:"controls_assessed"`
	OverallScore     float64 `gorm:"default:0" json:"overall_score"`

	CreatedByID *uuid.UUID `gorm:"type:uuid" json:"created_by_id,omitempty"`
}

// CoversFramework reports whether the framework id is in the assessment scope.
func (a Assessment) CoversFramework(id uuid.UUID) bool {
	want := id.String()
	for _, fid := range a.SelectedFrameworkIDs {
		if fid == want {
			return true
		}
	}
	return false
}

type ResultValue string

const (
	ResultCompliant          ResultValue = "compliant"
	ResultNonCompliant       ResultValue = "non_compliant"
	ResultPartiallyCompliant ResultValue = "partially_compliant"
	ResultNotApplicable      ResultValue = "not_applicable"
	ResultNotTested          ResultValue = "not_tested"
)

func (r ResultValue) Valid() bool {
	switch r {
	case ResultCompliant, ResultNonCompliant, ResultPartiallyCompliant,
		ResultNotApplicable, ResultNotTested:
		return true
	}
	return false
}

// Score is the fixed result-to-percentage mapping used for overall_score.
func (r ResultValue) Score() float64 {
	switch r {
	case ResultCompliant, ResultNotApplicable:
		return 100
	case ResultPartiallyCompliant:
		return 50
	default:
		return 0
	}
}

type AssessmentResult struct {
	Base
	AssessmentID        uuid.UUID   `gorm:"type:uuid;not null;index" json:"assessment_id"`
	UnifiedControlID    uuid.UUID   `gorm:"type:uuid;not null;index" json:"unified_control_id"`
	AssessorID          *uuid.UUID  `gorm:"type:uuid" json:"assessor_id,omitempty"`
	Result              ResultValue `gorm:"type:varchar(30);not null" json:"result"`
	EffectivenessRating *int        `json:"effectiveness_rating,omitempty"`
	Findings            string      `gorm:"type:text" json:"findings"`
	Recommendations     string      `gorm:"type:text" json:"recommendations"`
	AssessedAt          time.Time   `json:"assessed_at"`
}
