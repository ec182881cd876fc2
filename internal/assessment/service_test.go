package assessment

import (
	"context"
	"errors"
	"testing"
	"time"

	"grc-backoffice/internal/apperr"
	"grc-backoffice/internal/logger"
	"grc-backoffice/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	assessments map[uuid.UUID]*models.Assessment
	results     []models.AssessmentResult
	saves       int
}

func newFakeStore() *fakeStore {
	return &fakeStore{assessments: map[uuid.UUID]*models.Assessment{}}
}

func (f *fakeStore) Create(_ context.Context, a *models.Assessment) error {
	a.ID = uuid.New()
	cp := *a
	f.assessments[a.ID] = &cp
	return nil
}

func (f *fakeStore) Get(_ context.Context, id uuid.UUID) (*models.Assessment, error) {
	a, ok := f.assessments[id]
	if !ok {
		return nil, apperr.NotFound("Assessment with ID %s not found", id)
	}
	cp := *a
	return &cp, nil
}

func (f *fakeStore) List(_ context.Context, filter Filter) ([]models.Assessment, int64, error) {
	var out []models.Assessment
	for _, a := range f.assessments {
		if filter.Status != "" && a.Status != filter.Status {
			continue
		}
		out = append(out, *a)
	}
	return out, int64(len(out)), nil
}

func (f *fakeStore) SaveStatus(_ context.Context, a *models.Assessment) error {
	cur := f.assessments[a.ID]
	cur.Status = a.Status
	cur.StartDate = a.StartDate
	cur.CompletedAt = a.CompletedAt
	return nil
}

func (f *fakeStore) SaveSummary(_ context.Context, a *models.Assessment) error {
	f.saves++
	cur := f.assessments[a.ID]
	cur.ControlsAssessed = a.ControlsAssessed
	cur.OverallScore = a.OverallScore
	return nil
}

func (f *fakeStore) CreateResult(_ context.Context, r *models.AssessmentResult) error {
	r.ID = uuid.New()
	f.results = append(f.results, *r)
	return nil
}

func (f *fakeStore) Results(_ context.Context, assessmentID uuid.UUID) ([]models.AssessmentResult, error) {
	var out []models.AssessmentResult
	for _, r := range f.results {
		if r.AssessmentID == assessmentID {
			out = append(out, r)
		}
	}
	return out, nil
}

type fakeNotifier struct {
	assigned []uuid.UUID
	err      error
}

func (n *fakeNotifier) SendAssessorAssigned(_ context.Context, userID uuid.UUID, _ string, _ uuid.UUID) error {
	n.assigned = append(n.assigned, userID)
	return n.err
}

type fired struct {
	trigger models.WorkflowTrigger
	status  any
}

type fakeTrigger struct {
	calls []fired
	err   error
}

func (f *fakeTrigger) CheckAndTrigger(_ context.Context, et models.EntityType, _ string, tr models.WorkflowTrigger, snap map[string]any) ([]models.WorkflowExecution, error) {
	if et != models.EntityAssessment {
		return nil, errors.New("unexpected entity type")
	}
	f.calls = append(f.calls, fired{trigger: tr, status: snap["status"]})
	return nil, f.err
}

func newTestService() (*Service, *fakeStore, *fakeNotifier, *fakeTrigger) {
	store := newFakeStore()
	n := &fakeNotifier{}
	tr := &fakeTrigger{}
	svc := NewService(store, n, tr, logger.Discard())
	svc.now = func() time.Time { return time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC) }
	return svc, store, n, tr
}

func TestService_Create(t *testing.T) {
	svc, store, n, tr := newTestService()
	lead := uuid.New()
	fw := uuid.New()

	a, err := svc.Create(context.Background(), CreateInput{
		Name:                 "Q1 ISO review",
		SelectedFrameworkIDs: []uuid.UUID{fw},
		LeadAssessorID:       &lead,
	}, nil)
	require.NoError(t, err)

	assert.Equal(t, models.AssessmentNotStarted, a.Status)
	assert.True(t, a.CoversFramework(fw))
	assert.Contains(t, store.assessments, a.ID)
	assert.Equal(t, []uuid.UUID{lead}, n.assigned)
	require.Len(t, tr.calls, 1)
	assert.Equal(t, models.TriggerOnCreate, tr.calls[0].trigger)
}

func TestService_CreateSideEffectsAreBestEffort(t *testing.T) {
	svc, store, n, tr := newTestService()
	n.err = errors.New("smtp down")
	tr.err = errors.New("workflow broke")
	lead := uuid.New()

	a, err := svc.Create(context.Background(), CreateInput{Name: "x", LeadAssessorID: &lead}, nil)
	require.NoError(t, err)
	assert.Contains(t, store.assessments, a.ID)
}

func TestService_CreateValidation(t *testing.T) {
	svc, _, _, _ := newTestService()

	_, err := svc.Create(context.Background(), CreateInput{}, nil)
	assert.ErrorIs(t, err, apperr.ErrBadRequest)

	start := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, -1)
	_, err = svc.Create(context.Background(), CreateInput{Name: "x", StartDate: &start, EndDate: &end}, nil)
	assert.ErrorIs(t, err, apperr.ErrBadRequest)
}

func TestService_AddResultRecomputesSummary(t *testing.T) {
	svc, store, _, _ := newTestService()
	ctx := context.Background()

	a, err := svc.Create(ctx, CreateInput{Name: "review"}, nil)
	require.NoError(t, err)

	_, err = svc.AddResult(ctx, a.ID, ResultInput{UnifiedControlID: uuid.New(), Result: models.ResultCompliant}, nil)
	require.NoError(t, err)
	_, err = svc.AddResult(ctx, a.ID, ResultInput{UnifiedControlID: uuid.New(), Result: models.ResultNonCompliant}, nil)
	require.NoError(t, err)

	saved := store.assessments[a.ID]
	assert.Equal(t, 2, saved.ControlsAssessed)
	assert.Equal(t, 50.0, saved.OverallScore)
	assert.Equal(t, 2, store.saves)
}

func TestService_AddResultValidation(t *testing.T) {
	svc, _, _, _ := newTestService()
	ctx := context.Background()

	a, err := svc.Create(ctx, CreateInput{Name: "review"}, nil)
	require.NoError(t, err)

	_, err = svc.AddResult(ctx, a.ID, ResultInput{Result: "great"}, nil)
	assert.ErrorIs(t, err, apperr.ErrBadRequest)

	rating := 7
	_, err = svc.AddResult(ctx, a.ID, ResultInput{Result: models.ResultCompliant, EffectivenessRating: &rating}, nil)
	assert.ErrorIs(t, err, apperr.ErrBadRequest)

	_, err = svc.AddResult(ctx, uuid.New(), ResultInput{Result: models.ResultCompliant}, nil)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestService_UpdateStatus(t *testing.T) {
	svc, store, _, tr := newTestService()
	ctx := context.Background()

	a, err := svc.Create(ctx, CreateInput{Name: "review"}, nil)
	require.NoError(t, err)

	got, err := svc.UpdateStatus(ctx, a.ID, models.RoleComplianceManager, models.AssessmentInProgress)
	require.NoError(t, err)
	assert.Equal(t, models.AssessmentInProgress, got.Status)
	require.NotNil(t, got.StartDate)

	_, err = svc.UpdateStatus(ctx, a.ID, models.RoleAuditor, models.AssessmentUnderReview)
	require.NoError(t, err)
	got, err = svc.UpdateStatus(ctx, a.ID, models.RoleComplianceManager, models.AssessmentCompleted)
	require.NoError(t, err)
	require.NotNil(t, got.CompletedAt)
	assert.Equal(t, models.AssessmentCompleted, store.assessments[a.ID].Status)

	require.Len(t, tr.calls, 4)
	assert.Equal(t, models.TriggerOnStatusChange, tr.calls[3].trigger)
	assert.Equal(t, "completed", tr.calls[3].status)
}

func TestService_UpdateStatusGuards(t *testing.T) {
	svc, _, _, _ := newTestService()
	ctx := context.Background()

	a, err := svc.Create(ctx, CreateInput{Name: "review"}, nil)
	require.NoError(t, err)

	_, err = svc.UpdateStatus(ctx, a.ID, models.RoleViewer, models.AssessmentInProgress)
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	_, err = svc.UpdateStatus(ctx, a.ID, models.RoleAdmin, "paused")
	assert.ErrorIs(t, err, apperr.ErrBadRequest)

	_, err = svc.UpdateStatus(ctx, uuid.New(), models.RoleAdmin, models.AssessmentInProgress)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestService_ListDefaults(t *testing.T) {
	svc, _, _, _ := newTestService()

	page, err := svc.List(context.Background(), Filter{})
	require.NoError(t, err)
	assert.Equal(t, 1, page.Page)
	assert.Equal(t, 20, page.Limit)
	assert.NotNil(t, page.Items)

	_, err = svc.List(context.Background(), Filter{Status: "weird"})
	assert.ErrorIs(t, err, apperr.ErrBadRequest)
}
