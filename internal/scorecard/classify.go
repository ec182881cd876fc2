package scorecard

import (
	"grc-backoffice/internal/models"

	"github.com/google/uuid"
)

type ComplianceStatus string

const (
	StatusMet           ComplianceStatus = "met"
	StatusNotMet        ComplianceStatus = "not_met"
	StatusPartiallyMet  ComplianceStatus = "partially_met"
	StatusNotApplicable ComplianceStatus = "not_applicable"
)

// Mapping is one requirement-to-control link as the classifier sees it.
// ControlStatus is empty when the mapped control no longer exists.
type Mapping struct {
	ControlID     uuid.UUID
	Coverage      models.CoverageLevel
	ControlStatus models.ImplementationStatus
}

// Classify assigns a compliance status to a requirement from its mappings.
//
// A requirement is met only when the number of distinct implemented controls equals the
// number of full-coverage mappings exactly; more implemented controls than full mappings
// (for example one full and one partial mapping, both implemented) is partially met.
func Classify(mappings []Mapping) ComplianceStatus {
	if len(mappings) == 0 {
		return StatusNotMet
	}

	var full, partial, notApplicable int
	statuses := make(map[uuid.UUID]models.ImplementationStatus, len(mappings))
	for _, m := range mappings {
		switch m.Coverage {
		case models.CoverageFull:
			full++
		case models.CoveragePartial:
			partial++
		case models.CoverageNotApplicable:
			notApplicable++
		}
		if m.ControlStatus != "" {
			statuses[m.ControlID] = m.ControlStatus
		}
	}

	if notApplicable == len(mappings) {
		return StatusNotApplicable
	}

	var implemented, inProgress int
	for _, s := range statuses {
		switch s {
		case models.ImplImplemented:
			implemented++
		case models.ImplInProgress:
			inProgress++
		}
	}

	switch {
	case full > 0 && implemented == full:
		return StatusMet
	case implemented > 0 || inProgress > 0 || partial > 0:
		return StatusPartiallyMet
	default:
		return StatusNotMet
	}
}
