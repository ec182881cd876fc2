package scorecard

import (
	"math"
	"time"

	"grc-backoffice/internal/models"

	"github.com/google/uuid"
)

const otherDomain = "Other"

type DomainBreakdown struct {
	Domain               string `json:"domain"`
	TotalRequirements    int    `json:"totalRequirements"`
	Met                  int    `json:"met"`
	NotMet               int    `json:"notMet"`
	PartiallyMet         int    `json:"partiallyMet"`
	NotApplicable        int    `json:"notApplicable"`
	CompliancePercentage int    `json:"compliancePercentage"`
}

type ImplementationTally struct {
	Implemented    int `json:"implemented"`
	InProgress     int `json:"inProgress"`
	Planned        int `json:"planned"`
	NotImplemented int `json:"notImplemented"`
}

type AssessmentTally struct {
	Completed    int `json:"completed"`
	InProgress   int `json:"inProgress"`
	AverageScore int `json:"averageScore"`
}

// Gaps carries the not-met count. Requirements have no severity yet, so the
// per-severity buckets stay zero.
type Gaps struct {
	Total    int `json:"total"`
	Critical int `json:"critical"`
	High     int `json:"high"`
	Medium   int `json:"medium"`
	Low      int `json:"low"`
}

type FrameworkScorecard struct {
	FrameworkID                 uuid.UUID           `json:"frameworkId"`
	FrameworkName               string              `json:"frameworkName"`
	FrameworkCode               string              `json:"frameworkCode"`
	OverallCompliance           int                 `json:"overallCompliance"`
	TotalRequirements           int                 `json:"totalRequirements"`
	MetRequirements             int                 `json:"metRequirements"`
	NotMetRequirements          int                 `json:"notMetRequirements"`
	PartiallyMetRequirements    int                 `json:"partiallyMetRequirements"`
	NotApplicableRequirements   int                 `json:"notApplicableRequirements"`
	BreakdownByDomain           []DomainBreakdown   `json:"breakdownByDomain"`
	ControlImplementationStatus ImplementationTally `json:"controlImplementationStatus"`
	AssessmentResults           AssessmentTally     `json:"assessmentResults"`
	Gaps                        Gaps                `json:"gaps"`
	Trend                       *Trend              `json:"trend,omitempty"`
}

type Summary struct {
	TotalFrameworks   int `json:"totalFrameworks"`
	TotalRequirements int `json:"totalRequirements"`
	TotalMet          int `json:"totalMet"`
	TotalNotMet       int `json:"totalNotMet"`
	AverageCompliance int `json:"averageCompliance"`
}

type Response struct {
	GeneratedAt       time.Time            `json:"generatedAt"`
	Frameworks        []FrameworkScorecard `json:"frameworks"`
	OverallCompliance float64              `json:"overallCompliance"`
	Summary           Summary              `json:"summary"`
}

// FrameworkInput is everything loaded for one framework before scoring.
// Mappings must belong to Requirements; Controls are the distinct mapped controls.
type FrameworkInput struct {
	Framework    models.Framework
	Requirements []models.FrameworkRequirement
	Mappings     []models.FrameworkControlMapping
	Controls     []models.UnifiedControl
	Assessments  []models.Assessment
	Results      []models.AssessmentResult
}

// MappedControlIDs returns the distinct control ids referenced by the mappings, in first-seen order.
func MappedControlIDs(mappings []models.FrameworkControlMapping) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(mappings))
	ids := make([]uuid.UUID, 0, len(mappings))
	for _, m := range mappings {
		if m.UnifiedControlID == uuid.Nil {
			continue
		}
		if _, ok := seen[m.UnifiedControlID]; ok {
			continue
		}
		seen[m.UnifiedControlID] = struct{}{}
		ids = append(ids, m.UnifiedControlID)
	}
	return ids
}

// BuildFramework scores one framework. It returns nil for a framework without requirements.
func BuildFramework(in FrameworkInput, now time.Time) *FrameworkScorecard {
	if len(in.Requirements) == 0 {
		return nil
	}

	controls := make(map[uuid.UUID]models.UnifiedControl, len(in.Controls))
	for _, c := range in.Controls {
		controls[c.ID] = c
	}

	byRequirement := make(map[uuid.UUID][]Mapping)
	for _, m := range in.Mappings {
		status := models.ImplementationStatus("")
		if c, ok := controls[m.UnifiedControlID]; ok {
			status = c.ImplementationStatus
		} else if m.UnifiedControl != nil {
			status = m.UnifiedControl.ImplementationStatus
		}
		byRequirement[m.FrameworkRequirementID] = append(byRequirement[m.FrameworkRequirementID], Mapping{
			ControlID:     m.UnifiedControlID,
			Coverage:      m.CoverageLevel,
			ControlStatus: status,
		})
	}

	sc := &FrameworkScorecard{
		FrameworkID:       in.Framework.ID,
		FrameworkName:     in.Framework.Name,
		FrameworkCode:     in.Framework.Code,
		TotalRequirements: len(in.Requirements),
	}

	domainIndex := make(map[string]int)
	for _, req := range in.Requirements {
		status := Classify(byRequirement[req.ID])

		domain := req.Domain
		if domain == "" {
			domain = otherDomain
		}
		idx, ok := domainIndex[domain]
		if !ok {
			idx = len(sc.BreakdownByDomain)
			domainIndex[domain] = idx
			sc.BreakdownByDomain = append(sc.BreakdownByDomain, DomainBreakdown{Domain: domain})
		}
		d := &sc.BreakdownByDomain[idx]
		d.TotalRequirements++

		switch status {
		case StatusMet:
			d.Met++
			sc.MetRequirements++
		case StatusNotMet:
			d.NotMet++
			sc.NotMetRequirements++
		case StatusPartiallyMet:
			d.PartiallyMet++
			sc.PartiallyMetRequirements++
		case StatusNotApplicable:
			d.NotApplicable++
			sc.NotApplicableRequirements++
		}
	}

	for i := range sc.BreakdownByDomain {
		d := &sc.BreakdownByDomain[i]
		d.CompliancePercentage = percent(d.Met+d.NotApplicable, d.TotalRequirements)
	}

	sc.OverallCompliance = percent(sc.MetRequirements+sc.NotApplicableRequirements, sc.TotalRequirements)
	sc.Gaps = Gaps{Total: sc.NotMetRequirements}

	controlIDs := MappedControlIDs(in.Mappings)
	sc.ControlImplementationStatus = tallyControls(controlIDs, controls)
	sc.AssessmentResults = tallyAssessments(in.Framework.ID, controlIDs, in.Assessments, in.Results)
	sc.Trend = CalculateTrend(controlIDs, in.Controls, sc.OverallCompliance, now)

	return sc
}

func tallyControls(ids []uuid.UUID, controls map[uuid.UUID]models.UnifiedControl) ImplementationTally {
	var t ImplementationTally
	for _, id := range ids {
		c, ok := controls[id]
		if !ok {
			continue
		}
		switch c.ImplementationStatus {
		case models.ImplImplemented:
			t.Implemented++
		case models.ImplInProgress:
			t.InProgress++
		case models.ImplPlanned:
			t.Planned++
		case models.ImplNotImplemented:
			t.NotImplemented++
		}
	}
	return t
}

// tallyAssessments counts the framework's assessments and averages effectiveness ratings of
// results that belong to a completed assessment and to one of the framework's controls.
func tallyAssessments(frameworkID uuid.UUID, controlIDs []uuid.UUID, assessments []models.Assessment, results []models.AssessmentResult) AssessmentTally {
	var t AssessmentTally

	completed := make(map[uuid.UUID]struct{})
	for _, a := range assessments {
		if !a.CoversFramework(frameworkID) {
			continue
		}
		switch a.Status {
		case models.AssessmentCompleted:
			t.Completed++
			completed[a.ID] = struct{}{}
		case models.AssessmentInProgress:
			t.InProgress++
		}
	}

	relevant := make(map[uuid.UUID]struct{}, len(controlIDs))
	for _, id := range controlIDs {
		relevant[id] = struct{}{}
	}

	var sum, n int
	for _, r := range results {
		if _, ok := completed[r.AssessmentID]; !ok {
			continue
		}
		if _, ok := relevant[r.UnifiedControlID]; !ok {
			continue
		}
		if r.EffectivenessRating != nil {
			sum += *r.EffectivenessRating
		}
		n++
	}
	if n > 0 {
		t.AverageScore = roundHalfUp(float64(sum) / float64(n))
	}
	return t
}

// Summarize rolls framework scorecards up into the response. averageCompliance is the
// unweighted mean across frameworks.
func Summarize(frameworks []FrameworkScorecard, now time.Time) Response {
	if frameworks == nil {
		frameworks = []FrameworkScorecard{}
	}

	resp := Response{
		GeneratedAt: now,
		Frameworks:  frameworks,
	}

	var complianceSum int
	for _, fw := range frameworks {
		resp.Summary.TotalRequirements += fw.TotalRequirements
		resp.Summary.TotalMet += fw.MetRequirements
		resp.Summary.TotalNotMet += fw.NotMetRequirements
		complianceSum += fw.OverallCompliance
	}
	resp.Summary.TotalFrameworks = len(frameworks)

	if len(frameworks) > 0 {
		resp.OverallCompliance = float64(complianceSum) / float64(len(frameworks))
	}
	resp.Summary.AverageCompliance = roundHalfUp(resp.OverallCompliance)

	return resp
}

func percent(num, den int) int {
	if den == 0 {
		return 0
	}
	return roundHalfUp(float64(num) / float64(den) * 100)
}

// roundHalfUp rounds .5 towards positive infinity.
func roundHalfUp(v float64) int {
	return int(math.Floor(v + 0.5))
}
