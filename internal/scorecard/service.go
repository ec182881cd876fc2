package scorecard

import (
	"context"
	"fmt"
	"time"

	"grc-backoffice/internal/models"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Store is the read side the scorecard needs.
type Store interface {
	Frameworks(ctx context.Context, ids []uuid.UUID) ([]models.Framework, error)
	Requirements(ctx context.Context, frameworkID uuid.UUID) ([]models.FrameworkRequirement, error)
	Mappings(ctx context.Context, frameworkID uuid.UUID) ([]models.FrameworkControlMapping, error)
	Controls(ctx context.Context, ids []uuid.UUID) ([]models.UnifiedControl, error)
	Assessments(ctx context.Context, statuses []models.AssessmentStatus) ([]models.Assessment, error)
	Results(ctx context.Context, assessmentIDs []uuid.UUID) ([]models.AssessmentResult, error)
}

type Service struct {
	store Store
	log   logrus.FieldLogger
	now   func() time.Time
}

type Option func(*Service)

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(store Store, log logrus.FieldLogger, opts ...Option) *Service {
	s := &Service{store: store, log: log, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Generate builds the scorecard for the given frameworks, or for all frameworks when ids is empty.
// Frameworks without requirements are left out.
func (s *Service) Generate(ctx context.Context, frameworkIDs []uuid.UUID) (*Response, error) {
	now := s.now()

	frameworks, err := s.store.Frameworks(ctx, frameworkIDs)
	if err != nil {
		return nil, fmt.Errorf("loading frameworks: %w", err)
	}

	var assessments []models.Assessment
	if len(frameworks) > 0 {
		assessments, err = s.store.Assessments(ctx, []models.AssessmentStatus{
			models.AssessmentCompleted,
			models.AssessmentInProgress,
		})
		if err != nil {
			return nil, fmt.Errorf("loading assessments: %w", err)
		}
	}

	scorecards := make([]FrameworkScorecard, 0, len(frameworks))
	for _, fw := range frameworks {
		sc, err := s.framework(ctx, fw, assessments, now)
		if err != nil {
			return nil, fmt.Errorf("scoring framework %s: %w", fw.Code, err)
		}
		if sc == nil {
			s.log.WithField("framework_id", fw.ID).Debug("framework has no requirements, skipped")
			continue
		}
		scorecards = append(scorecards, *sc)
	}

	resp := Summarize(scorecards, now)
	return &resp, nil
}

func (s *Service) framework(ctx context.Context, fw models.Framework, assessments []models.Assessment, now time.Time) (*FrameworkScorecard, error) {
	reqs, err := s.store.Requirements(ctx, fw.ID)
	if err != nil {
		return nil, err
	}
	if len(reqs) == 0 {
		return nil, nil
	}

	mappings, err := s.store.Mappings(ctx, fw.ID)
	if err != nil {
		return nil, err
	}

	var controls []models.UnifiedControl
	controlIDs := MappedControlIDs(mappings)
	if len(controlIDs) > 0 {
		controls, err = s.store.Controls(ctx, controlIDs)
		if err != nil {
			return nil, err
		}
	}

	var scoped []models.Assessment
	var completed []uuid.UUID
	for _, a := range assessments {
		if !a.CoversFramework(fw.ID) {
			continue
		}
		scoped = append(scoped, a)
		if a.Status == models.AssessmentCompleted {
			completed = append(completed, a.ID)
		}
	}

	var results []models.AssessmentResult
	if len(completed) > 0 {
		results, err = s.store.Results(ctx, completed)
		if err != nil {
			return nil, err
		}
	}

	return BuildFramework(FrameworkInput{
		Framework:    fw,
		Requirements: reqs,
		Mappings:     mappings,
		Controls:     controls,
		Assessments:  scoped,
		Results:      results,
	}, now), nil
}
