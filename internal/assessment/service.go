package assessment

import (
	"context"
	"fmt"
	"time"

	"grc-backoffice/internal/apperr"
	"grc-backoffice/internal/models"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/sirupsen/logrus"
)

type Notifier interface {
	SendAssessorAssigned(ctx context.Context, userID uuid.UUID, assessmentName string, assessmentID uuid.UUID) error
}

// Trigger starts the workflows attached to an entity event.
type Trigger interface {
	CheckAndTrigger(ctx context.Context, entityType models.EntityType, entityID string, trigger models.WorkflowTrigger, snapshot map[string]any) ([]models.WorkflowExecution, error)
}

type Service struct {
	store    Store
	notifier Notifier
	trigger  Trigger
	log      logrus.FieldLogger
	now      func() time.Time
}

func NewService(store Store, notifier Notifier, trigger Trigger, log logrus.FieldLogger) *Service {
	return &Service{
		store:    store,
		notifier: notifier,
		trigger:  trigger,
		log:      log,
		now:      time.Now,
	}
}

type CreateInput struct {
	Name                 string      `json:"name" binding:"required"`
	Description          string      `json:"description"`
	SelectedFrameworkIDs []uuid.UUID `json:"selected_framework_ids"`
	SelectedControlIDs   []uuid.UUID `json:"selected_control_ids"`
	LeadAssessorID       *uuid.UUID  `json:"lead_assessor_id"`
	StartDate            *time.Time  `json:"start_date"`
	EndDate              *time.Time  `json:"end_date"`
}

func (s *Service) Create(ctx context.Context, in CreateInput, createdBy *uuid.UUID) (*models.Assessment, error) {
	if in.Name == "" {
		return nil, apperr.BadRequest("assessment name is required")
	}
	if in.StartDate != nil && in.EndDate != nil && in.EndDate.Before(*in.StartDate) {
		return nil, apperr.BadRequest("end date is before start date")
	}

	a := &models.Assessment{
		Name:                 in.Name,
		Description:          in.Description,
		Status:               models.AssessmentNotStarted,
		SelectedFrameworkIDs: idStrings(in.SelectedFrameworkIDs),
		SelectedControlIDs:   idStrings(in.SelectedControlIDs),
		LeadAssessorID:       in.LeadAssessorID,
		StartDate:            in.StartDate,
		EndDate:              in.EndDate,
		CreatedByID:          createdBy,
	}
	if err := s.store.Create(ctx, a); err != nil {
		return nil, fmt.Errorf("creating assessment: %w", err)
	}

	if a.LeadAssessorID != nil {
		if err := s.notifier.SendAssessorAssigned(ctx, *a.LeadAssessorID, a.Name, a.ID); err != nil {
			s.log.WithError(err).WithField("assessment_id", a.ID).Warn("lead assessor notification failed")
		}
	}
	s.fire(ctx, a, models.TriggerOnCreate)

	return a, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*models.Assessment, error) {
	return s.store.Get(ctx, id)
}

type Page struct {
	Items []models.Assessment `json:"items"`
	Total int64               `json:"total"`
	Page  int                 `json:"page"`
	Limit int                 `json:"limit"`
}

func (s *Service) List(ctx context.Context, f Filter) (*Page, error) {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit < 1 || f.Limit > 100 {
		f.Limit = 20
	}
	if f.Status != "" && !f.Status.Valid() {
		return nil, apperr.BadRequest("unknown assessment status %q", f.Status)
	}

	items, total, err := s.store.List(ctx, f)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []models.Assessment{}
	}
	return &Page{Items: items, Total: total, Page: f.Page, Limit: f.Limit}, nil
}

// UpdateStatus moves the assessment through its lifecycle. Workflows listening on
// on_status_change are fired after the save.
func (s *Service) UpdateStatus(ctx context.Context, id uuid.UUID, role models.UserRole, next models.AssessmentStatus) (*models.Assessment, error) {
	if !next.Valid() {
		return nil, apperr.BadRequest("unknown assessment status %q", next)
	}

	a, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canChangeStatus(role, a.Status, next) {
		return nil, apperr.Forbidden("role %s cannot move assessment from %s to %s", role, a.Status, next)
	}

	now := s.now()
	a.Status = next
	switch next {
	case models.AssessmentInProgress:
		if a.StartDate == nil {
			a.StartDate = &now
		}
	case models.AssessmentCompleted:
		a.CompletedAt = &now
	}

	if err := s.store.SaveStatus(ctx, a); err != nil {
		return nil, fmt.Errorf("saving assessment: %w", err)
	}
	s.fire(ctx, a, models.TriggerOnStatusChange)

	return a, nil
}

type ResultInput struct {
	UnifiedControlID    uuid.UUID          `json:"unified_control_id" binding:"required"`
	Result              models.ResultValue `json:"result" binding:"required"`
	EffectivenessRating *int               `json:"effectiveness_rating"`
	Findings            string             `json:"findings"`
	Recommendations     string             `json:"recommendations"`
}

// AddResult stores a result and recomputes the assessment summary from all of its results.
// Concurrent calls for the same assessment are not serialized: the last summary written wins.
func (s *Service) AddResult(ctx context.Context, assessmentID uuid.UUID, in ResultInput, assessorID *uuid.UUID) (*models.AssessmentResult, error) {
	if !in.Result.Valid() {
		return nil, apperr.BadRequest("unknown result %q", in.Result)
	}
	if in.EffectivenessRating != nil && (*in.EffectivenessRating < 1 || *in.EffectivenessRating > 5) {
		return nil, apperr.BadRequest("effectiveness rating must be between 1 and 5")
	}

	a, err := s.store.Get(ctx, assessmentID)
	if err != nil {
		return nil, err
	}

	r := &models.AssessmentResult{
		AssessmentID:        a.ID,
		UnifiedControlID:    in.UnifiedControlID,
		AssessorID:          assessorID,
		Result:              in.Result,
		EffectivenessRating: in.EffectivenessRating,
		Findings:            in.Findings,
		Recommendations:     in.Recommendations,
		AssessedAt:          s.now(),
	}
	if err := s.store.CreateResult(ctx, r); err != nil {
		return nil, fmt.Errorf("creating result: %w", err)
	}

	results, err := s.store.Results(ctx, a.ID)
	if err != nil {
		return nil, fmt.Errorf("reloading results: %w", err)
	}
	sum := Summarize(results)
	a.ControlsAssessed = sum.ControlsAssessed
	a.OverallScore = sum.OverallScore
	if err := s.store.SaveSummary(ctx, a); err != nil {
		return nil, fmt.Errorf("saving assessment summary: %w", err)
	}

	return r, nil
}

func (s *Service) Results(ctx context.Context, assessmentID uuid.UUID) ([]models.AssessmentResult, error) {
	if _, err := s.store.Get(ctx, assessmentID); err != nil {
		return nil, err
	}
	return s.store.Results(ctx, assessmentID)
}

func (s *Service) fire(ctx context.Context, a *models.Assessment, trigger models.WorkflowTrigger) {
	if s.trigger == nil {
		return
	}
	log := s.log.WithFields(logrus.Fields{"assessment_id": a.ID, "trigger": trigger})

	snap := map[string]any{
		"id":                a.ID.String(),
		"name":              a.Name,
		"status":            string(a.Status),
		"controls_assessed": a.ControlsAssessed,
		"overall_score":     a.OverallScore,
	}
	if _, err := s.trigger.CheckAndTrigger(ctx, models.EntityAssessment, a.ID.String(), trigger, snap); err != nil {
		log.WithError(err).Warn("workflow trigger failed")
	}
}

func idStrings(ids []uuid.UUID) pq.StringArray {
	out := make(pq.StringArray, 0, len(ids))
	for _, id := range ids {
		out = append(out, id.String())
	}
	return out
}
