package workflow

import (
	"context"
	"encoding/json"
	"sort"
	"testing"

	"grc-backoffice/internal/apperr"
	"grc-backoffice/internal/logger"
	"grc-backoffice/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

type memStore struct {
	workflows  map[uuid.UUID]*models.Workflow
	executions map[uuid.UUID]*models.WorkflowExecution
	approvals  map[uuid.UUID]*models.WorkflowApproval
	users      map[uuid.UUID]models.User
	tasks      []models.Task
	statuses   map[string]string
	seq        int
}

func newMemStore() *memStore {
	return &memStore{
		workflows:  map[uuid.UUID]*models.Workflow{},
		executions: map[uuid.UUID]*models.WorkflowExecution{},
		approvals:  map[uuid.UUID]*models.WorkflowApproval{},
		users:      map[uuid.UUID]models.User{},
		statuses:   map[string]string{},
	}
}

func (m *memStore) ListWorkflows(context.Context) ([]models.Workflow, error) {
	var out []models.Workflow
	for _, w := range m.workflows {
		out = append(out, *w)
	}
	return out, nil
}

func (m *memStore) GetWorkflow(_ context.Context, id uuid.UUID) (*models.Workflow, error) {
	w, ok := m.workflows[id]
	if !ok {
		return nil, apperr.NotFound("Workflow with ID %s not found", id)
	}
	cp := *w
	return &cp, nil
}

func (m *memStore) CreateWorkflow(_ context.Context, w *models.Workflow) error {
	if w.ID == uuid.Nil {
		w.ID = uuid.New()
	}
	cp := *w
	m.workflows[w.ID] = &cp
	return nil
}

func (m *memStore) SaveWorkflow(_ context.Context, w *models.Workflow) error {
	cp := *w
	m.workflows[w.ID] = &cp
	return nil
}

func (m *memStore) DeleteWorkflow(_ context.Context, id uuid.UUID) error {
	if _, ok := m.workflows[id]; !ok {
		return apperr.NotFound("Workflow with ID %s not found", id)
	}
	delete(m.workflows, id)
	return nil
}

func (m *memStore) ActiveWorkflows(_ context.Context, et models.EntityType, tr models.WorkflowTrigger) ([]models.Workflow, error) {
	var out []models.Workflow
	for _, w := range m.workflows {
		if w.EntityType == et && w.Trigger == tr && w.Status == models.WorkflowActive {
			out = append(out, *w)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *memStore) ActiveWorkflowsByID(_ context.Context, ids []uuid.UUID) ([]models.Workflow, error) {
	var out []models.Workflow
	for _, id := range ids {
		if w, ok := m.workflows[id]; ok && w.Status == models.WorkflowActive {
			out = append(out, *w)
		}
	}
	return out, nil
}

func (m *memStore) CreateExecution(_ context.Context, e *models.WorkflowExecution) error {
	e.ID = uuid.New()
	m.seq++
	e.CreatedAt = e.CreatedAt.AddDate(0, 0, m.seq)
	cp := *e
	m.executions[e.ID] = &cp
	return nil
}

func (m *memStore) SaveExecution(_ context.Context, e *models.WorkflowExecution) error {
	cp := *e
	cp.Workflow, cp.Approvals = nil, nil
	m.executions[e.ID] = &cp
	return nil
}

func (m *memStore) GetExecution(_ context.Context, id uuid.UUID) (*models.WorkflowExecution, error) {
	e, ok := m.executions[id]
	if !ok {
		return nil, apperr.NotFound("Execution with ID %s not found", id)
	}
	cp := *e
	if w, ok := m.workflows[e.WorkflowID]; ok {
		wc := *w
		cp.Workflow = &wc
	}
	cp.Approvals, _ = m.ExecutionApprovals(context.Background(), id)
	return &cp, nil
}

func (m *memStore) ListExecutions(_ context.Context, filter ExecutionFilter) ([]models.WorkflowExecution, error) {
	var out []models.WorkflowExecution
	for _, e := range m.executions {
		if filter.Status != "" && e.Status != filter.Status {
			continue
		}
		out = append(out, *e)
	}
	return out, nil
}

func (m *memStore) LatestExecution(_ context.Context, et models.EntityType, entityID string) (*models.WorkflowExecution, error) {
	var latest *models.WorkflowExecution
	for _, e := range m.executions {
		if e.EntityType != et || e.EntityID != entityID {
			continue
		}
		if latest == nil || e.CreatedAt.After(latest.CreatedAt) {
			latest = e
		}
	}
	if latest == nil {
		return nil, apperr.NotFound("no execution")
	}
	cp := *latest
	return &cp, nil
}

func (m *memStore) CreateApproval(_ context.Context, a *models.WorkflowApproval) error {
	a.ID = uuid.New()
	cp := *a
	m.approvals[a.ID] = &cp
	return nil
}

func (m *memStore) SaveApproval(_ context.Context, a *models.WorkflowApproval) error {
	cp := *a
	cp.Approver = nil
	m.approvals[a.ID] = &cp
	return nil
}

func (m *memStore) GetApproval(_ context.Context, id uuid.UUID) (*models.WorkflowApproval, error) {
	a, ok := m.approvals[id]
	if !ok {
		return nil, apperr.NotFound("Approval with ID %s not found", id)
	}
	cp := *a
	if u, ok := m.users[a.ApproverID]; ok {
		cp.Approver = &u
	}
	return &cp, nil
}

func (m *memStore) ExecutionApprovals(_ context.Context, executionID uuid.UUID) ([]models.WorkflowApproval, error) {
	var out []models.WorkflowApproval
	for _, a := range m.approvals {
		if a.WorkflowExecutionID == executionID {
			out = append(out, *a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StepOrder < out[j].StepOrder })
	return out, nil
}

func (m *memStore) PendingApprovals(_ context.Context, approverID uuid.UUID) ([]models.WorkflowApproval, error) {
	var out []models.WorkflowApproval
	for _, a := range m.approvals {
		if a.ApproverID == approverID && a.Status == models.ApprovalPending {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (m *memStore) SetEntityStatus(_ context.Context, et models.EntityType, entityID, status string) error {
	m.statuses[string(et)+"/"+entityID] = status
	return nil
}

func (m *memStore) CreateTask(_ context.Context, t *models.Task) error {
	t.ID = uuid.New()
	m.tasks = append(m.tasks, *t)
	return nil
}

type sent struct {
	kind   string
	userID uuid.UUID
	detail string
}

type recordingNotifier struct {
	sent []sent
}

func (r *recordingNotifier) Create(_ context.Context, n *models.Notification) error {
	r.sent = append(r.sent, sent{"general", n.UserID, n.Message})
	return nil
}

func (r *recordingNotifier) SendApprovalRequest(_ context.Context, approverID uuid.UUID, name string, _ models.EntityType, _ string, _ uuid.UUID) error {
	r.sent = append(r.sent, sent{"approval_request", approverID, name})
	return nil
}

func (r *recordingNotifier) SendWorkflowApproved(_ context.Context, userID uuid.UUID, name string, _ models.EntityType, _, approver string) error {
	r.sent = append(r.sent, sent{"approved", userID, approver})
	return nil
}

func (r *recordingNotifier) SendWorkflowRejected(_ context.Context, userID uuid.UUID, name string, _ models.EntityType, _, approver, reason string) error {
	r.sent = append(r.sent, sent{"rejected", userID, reason})
	return nil
}

func (r *recordingNotifier) SendTaskAssigned(_ context.Context, userID uuid.UUID, title string, _ uuid.UUID) error {
	r.sent = append(r.sent, sent{"task", userID, title})
	return nil
}

func (r *recordingNotifier) kinds() []string {
	var out []string
	for _, s := range r.sent {
		out = append(out, s.kind)
	}
	return out
}

type fixture struct {
	store    *memStore
	rules    *fakeRuleStore
	notifier *recordingNotifier
	svc      *Service
}

func newFixture(rules ...models.WorkflowTriggerRule) *fixture {
	f := &fixture{
		store:    newMemStore(),
		rules:    newFakeRuleStore(rules...),
		notifier: &recordingNotifier{},
	}
	f.svc = NewService(f.store, NewRuleService(f.rules, logger.Discard()), f.notifier, logger.Discard())
	return f
}

func (f *fixture) addWorkflow(t *testing.T, w models.Workflow, actions models.WorkflowActions) models.Workflow {
	t.Helper()
	raw, err := json.Marshal(actions)
	require.NoError(t, err)
	w.Actions = datatypes.JSON(raw)
	if w.Status == "" {
		w.Status = models.WorkflowActive
	}
	if w.EntityType == "" {
		w.EntityType = models.EntityPolicy
	}
	if w.Trigger == "" {
		w.Trigger = models.TriggerOnStatusChange
	}
	require.NoError(t, f.store.CreateWorkflow(context.Background(), &w))
	return w
}

func TestExecute_StatusChangeAndNotify(t *testing.T) {
	f := newFixture()
	watcher, assignee := uuid.New(), uuid.New()
	w := f.addWorkflow(t, models.Workflow{Name: "Publish", Type: models.WorkflowStatusChangeType}, models.WorkflowActions{
		ChangeStatus: "published",
		Notify:       []string{watcher.String(), "not-a-uuid"},
		AssignTo:     assignee.String(),
		CreateTask:   &models.TaskAction{Title: "Communicate policy", DueDate: "2026-05-01"},
	})

	exec, err := f.svc.Execute(context.Background(), w.ID, models.EntityPolicy, "pol-1", map[string]any{"status": "approved"})
	require.NoError(t, err)

	assert.Equal(t, models.ExecutionCompleted, exec.Status)
	assert.NotNil(t, exec.CompletedAt)
	require.NotNil(t, exec.AssignedToID)
	assert.Equal(t, assignee, *exec.AssignedToID)
	assert.JSONEq(t, `{"status":"approved"}`, string(exec.InputData))

	assert.Equal(t, "published", f.store.statuses["policy/pol-1"])
	require.Len(t, f.store.tasks, 1)
	assert.Equal(t, "medium", f.store.tasks[0].Priority)
	assert.Equal(t, &assignee, f.store.tasks[0].AssignedToID)
	assert.Equal(t, []string{"general", "task"}, f.notifier.kinds())

	stored := f.store.executions[exec.ID]
	assert.Equal(t, models.ExecutionCompleted, stored.Status)
}

func TestExecute_InactiveWorkflow(t *testing.T) {
	f := newFixture()
	w := f.addWorkflow(t, models.Workflow{Name: "Off", Status: models.WorkflowInactive}, models.WorkflowActions{})

	_, err := f.svc.Execute(context.Background(), w.ID, models.EntityPolicy, "pol-1", nil)
	assert.ErrorIs(t, err, apperr.ErrBadRequest)
	assert.Empty(t, f.store.executions)
}

func TestExecute_UnknownWorkflow(t *testing.T) {
	f := newFixture()
	_, err := f.svc.Execute(context.Background(), uuid.New(), models.EntityPolicy, "pol-1", nil)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestExecute_FailedActionMarksExecution(t *testing.T) {
	f := newFixture()
	w := f.addWorkflow(t, models.Workflow{Name: "Broken"}, models.WorkflowActions{AssignTo: "nobody"})

	exec, err := f.svc.Execute(context.Background(), w.ID, models.EntityPolicy, "pol-1", nil)
	require.Error(t, err)
	require.NotNil(t, exec)
	assert.Equal(t, models.ExecutionFailed, exec.Status)
	assert.Contains(t, exec.ErrorMessage, "nobody")
	assert.Equal(t, models.ExecutionFailed, f.store.executions[exec.ID].Status)
}

func startApproval(t *testing.T, f *fixture, approvers ...uuid.UUID) (models.Workflow, *models.WorkflowExecution, uuid.UUID) {
	t.Helper()
	creator := uuid.New()
	var ids []string
	for _, a := range approvers {
		ids = append(ids, a.String())
	}
	w := f.addWorkflow(t, models.Workflow{Name: "Policy approval", Type: models.WorkflowApprovalType, CreatedByID: &creator},
		models.WorkflowActions{Approvers: ids, ChangeStatus: "approved"})

	exec, err := f.svc.Execute(context.Background(), w.ID, models.EntityPolicy, "pol-9", nil)
	require.NoError(t, err)
	return w, exec, creator
}

func approvalFor(t *testing.T, f *fixture, approver uuid.UUID) models.WorkflowApproval {
	t.Helper()
	pending, err := f.svc.PendingApprovals(context.Background(), approver)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	return pending[0]
}

func TestApprovalWorkflow_AllApproved(t *testing.T) {
	f := newFixture()
	alice, bob := uuid.New(), uuid.New()
	f.store.users[alice] = models.User{Username: "alice", FirstName: "Alice", LastName: "Moreau"}

	_, exec, creator := startApproval(t, f, alice, bob)
	assert.Equal(t, models.ExecutionInProgress, exec.Status)
	assert.Nil(t, exec.CompletedAt)
	assert.Equal(t, []string{"approval_request", "approval_request"}, f.notifier.kinds())

	steps, _ := f.store.ExecutionApprovals(context.Background(), exec.ID)
	require.Len(t, steps, 2)
	assert.Equal(t, 1, steps[0].StepOrder)
	assert.Equal(t, 2, steps[1].StepOrder)

	ctx := context.Background()
	require.NoError(t, f.svc.Approve(ctx, approvalFor(t, f, bob).ID, bob, Decision{Status: models.ApprovalApproved}))
	assert.Equal(t, models.ExecutionInProgress, f.store.executions[exec.ID].Status)

	require.NoError(t, f.svc.Approve(ctx, approvalFor(t, f, alice).ID, alice, Decision{
		Status:    models.ApprovalApproved,
		Comments:  "looks good",
		Signature: &Signature{Data: "base64sig", Method: "drawn", Metadata: map[string]any{"ip": "10.0.0.1"}},
	}))

	done := f.store.executions[exec.ID]
	assert.Equal(t, models.ExecutionCompleted, done.Status)
	assert.NotNil(t, done.CompletedAt)
	assert.Equal(t, "approved", f.store.statuses["policy/pol-9"])

	last := f.notifier.sent[len(f.notifier.sent)-1]
	assert.Equal(t, sent{"approved", creator, "Alice Moreau"}, last)

	steps, _ = f.store.ExecutionApprovals(ctx, exec.ID)
	assert.Len(t, steps, 2, "approval steps are not reopened")
	for _, s := range steps {
		if s.ApproverID == alice {
			assert.Equal(t, "base64sig", s.SignatureData)
			assert.NotNil(t, s.SignatureTimestamp)
			assert.JSONEq(t, `{"ip":"10.0.0.1"}`, string(s.SignatureMetadata))
		}
	}
}

func TestApprovalWorkflow_Rejected(t *testing.T) {
	f := newFixture()
	alice, bob := uuid.New(), uuid.New()
	_, exec, creator := startApproval(t, f, alice, bob)
	f.store.statuses = map[string]string{}

	require.NoError(t, f.svc.Approve(context.Background(), approvalFor(t, f, alice).ID, alice, Decision{
		Status:   models.ApprovalRejected,
		Comments: "missing scope section",
	}))

	failed := f.store.executions[exec.ID]
	assert.Equal(t, models.ExecutionFailed, failed.Status)
	assert.Empty(t, f.store.statuses)
	assert.Equal(t, sent{"rejected", creator, "missing scope section"}, f.notifier.sent[len(f.notifier.sent)-1])
}

func TestApprove_Guards(t *testing.T) {
	f := newFixture()
	alice := uuid.New()
	startApproval(t, f, alice)
	ctx := context.Background()
	step := approvalFor(t, f, alice)

	err := f.svc.Approve(ctx, step.ID, uuid.New(), Decision{Status: models.ApprovalApproved})
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	err = f.svc.Approve(ctx, step.ID, alice, Decision{Status: models.ApprovalPending})
	assert.ErrorIs(t, err, apperr.ErrBadRequest)

	err = f.svc.Approve(ctx, uuid.New(), alice, Decision{Status: models.ApprovalApproved})
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	require.NoError(t, f.svc.Approve(ctx, step.ID, alice, Decision{Status: models.ApprovalApproved}))
	err = f.svc.Approve(ctx, step.ID, alice, Decision{Status: models.ApprovalRejected})
	assert.ErrorIs(t, err, apperr.ErrBadRequest)
}

func TestCheckAndTrigger(t *testing.T) {
	explicit := models.Workflow{Name: "a-explicit"}
	legacyMiss := models.Workflow{Name: "b-legacy", Conditions: datatypes.JSON(`{"policy_type":"hr"}`)}
	ruleOnly := models.Workflow{Name: "c-rule", Trigger: models.TriggerOnUpdate}
	inactive := models.Workflow{Name: "d-inactive", Status: models.WorkflowDraft}

	f := newFixture()
	explicit = f.addWorkflow(t, explicit, models.WorkflowActions{})
	legacyMiss = f.addWorkflow(t, legacyMiss, models.WorkflowActions{})
	ruleOnly = f.addWorkflow(t, ruleOnly, models.WorkflowActions{})
	inactive = f.addWorkflow(t, inactive, models.WorkflowActions{})

	for _, wf := range []uuid.UUID{ruleOnly.ID, explicit.ID, inactive.ID} {
		r := rule(wf, 1, `[{"field":"status","operator":"eq","value":"under_review"}]`)
		require.NoError(t, f.rules.CreateRule(context.Background(), &r))
	}

	snapshot := map[string]any{"status": "under_review", "policy_type": "security"}
	execs, err := f.svc.CheckAndTrigger(context.Background(), models.EntityPolicy, "pol-3", models.TriggerOnStatusChange, snapshot)
	require.NoError(t, err)

	var ran []uuid.UUID
	for _, e := range execs {
		ran = append(ran, e.WorkflowID)
		assert.Equal(t, "pol-3", e.EntityID)
	}
	assert.Equal(t, []uuid.UUID{explicit.ID, ruleOnly.ID}, ran)
}

func TestCheckAndTrigger_NothingMatches(t *testing.T) {
	f := newFixture()
	execs, err := f.svc.CheckAndTrigger(context.Background(), models.EntityAssessment, "a-1", models.TriggerOnCreate, nil)
	require.NoError(t, err)
	assert.Empty(t, execs)
}

func TestWorkflowCRUD(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	name := "Escalate overdue"
	typ := models.WorkflowEscalationType
	trig := models.TriggerOnDeadlinePassed
	et := models.EntityAssessment
	actions := models.WorkflowActions{Notify: []string{uuid.NewString()}}

	w, err := f.svc.Create(ctx, WorkflowInput{Name: &name, Type: &typ, Trigger: &trig, EntityType: &et, Actions: &actions}, nil)
	require.NoError(t, err)
	assert.Equal(t, models.WorkflowDraft, w.Status)

	parsed, err := w.ParsedActions()
	require.NoError(t, err)
	assert.Equal(t, actions.Notify, parsed.Notify)

	active := models.WorkflowActive
	updated, err := f.svc.Update(ctx, w.ID, WorkflowInput{Status: &active})
	require.NoError(t, err)
	assert.Equal(t, models.WorkflowActive, updated.Status)
	assert.Equal(t, name, updated.Name)

	bogus := models.WorkflowTrigger("on_full_moon")
	_, err = f.svc.Update(ctx, w.ID, WorkflowInput{Trigger: &bogus})
	assert.ErrorIs(t, err, apperr.ErrBadRequest)

	_, err = f.svc.Create(ctx, WorkflowInput{Type: &typ}, nil)
	assert.ErrorIs(t, err, apperr.ErrBadRequest)

	require.NoError(t, f.svc.Delete(ctx, w.ID))
	_, err = f.svc.Get(ctx, w.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}
