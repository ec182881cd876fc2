package workflow

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"grc-backoffice/internal/apperr"
	"grc-backoffice/internal/models"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"
)

var errBadActions = errors.New("workflow actions are not valid JSON")

// Notifier is the slice of the notification service workflows use. Calls are best-effort.
type Notifier interface {
	Create(ctx context.Context, n *models.Notification) error
	SendApprovalRequest(ctx context.Context, approverID uuid.UUID, workflowName string, entityType models.EntityType, entityID string, executionID uuid.UUID) error
	SendWorkflowApproved(ctx context.Context, userID uuid.UUID, workflowName string, entityType models.EntityType, entityID, approverName string) error
	SendWorkflowRejected(ctx context.Context, userID uuid.UUID, workflowName string, entityType models.EntityType, entityID, approverName, reason string) error
	SendTaskAssigned(ctx context.Context, userID uuid.UUID, taskTitle string, taskID uuid.UUID) error
}

type Service struct {
	store    Store
	rules    *RuleService
	notifier Notifier
	log      logrus.FieldLogger
	now      func() time.Time
}

func NewService(store Store, rules *RuleService, notifier Notifier, log logrus.FieldLogger) *Service {
	return &Service{
		store:    store,
		rules:    rules,
		notifier: notifier,
		log:      log,
		now:      time.Now,
	}
}

// WorkflowInput is the create/update payload. Nil fields are left untouched on update.
type WorkflowInput struct {
	Name               *string                 `json:"name"`
	Description        *string                 `json:"description"`
	Type               *models.WorkflowType    `json:"type"`
	Status             *models.WorkflowStatus  `json:"status"`
	Trigger            *models.WorkflowTrigger `json:"trigger"`
	EntityType         *models.EntityType      `json:"entity_type"`
	Conditions         *map[string]any         `json:"conditions"`
	Actions            *models.WorkflowActions `json:"actions"`
	DaysBeforeDeadline *int                    `json:"days_before_deadline"`
}

// ====== Workflows ======

func (s *Service) List(ctx context.Context) ([]models.Workflow, error) {
	return s.store.ListWorkflows(ctx)
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*models.Workflow, error) {
	return s.store.GetWorkflow(ctx, id)
}

func (s *Service) Create(ctx context.Context, in WorkflowInput, createdBy *uuid.UUID) (*models.Workflow, error) {
	if in.Name == nil || *in.Name == "" {
		return nil, apperr.BadRequest("name is required")
	}
	if in.Type == nil || in.Trigger == nil || in.EntityType == nil {
		return nil, apperr.BadRequest("type, trigger and entity_type are required")
	}

	w := &models.Workflow{Status: models.WorkflowDraft, CreatedByID: createdBy}
	if err := applyWorkflowInput(w, in); err != nil {
		return nil, err
	}
	if err := s.store.CreateWorkflow(ctx, w); err != nil {
		return nil, err
	}
	return w, nil
}

func (s *Service) Update(ctx context.Context, id uuid.UUID, in WorkflowInput) (*models.Workflow, error) {
	w, err := s.store.GetWorkflow(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := applyWorkflowInput(w, in); err != nil {
		return nil, err
	}
	if err := s.store.SaveWorkflow(ctx, w); err != nil {
		return nil, err
	}
	return w, nil
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	return s.store.DeleteWorkflow(ctx, id)
}

func applyWorkflowInput(w *models.Workflow, in WorkflowInput) error {
	if in.Name != nil {
		w.Name = *in.Name
	}
	if in.Description != nil {
		w.Description = *in.Description
	}
	if in.Type != nil {
		if !in.Type.Valid() {
			return apperr.BadRequest("unknown workflow type %q", *in.Type)
		}
		w.Type = *in.Type
	}
	if in.Status != nil {
		if !in.Status.Valid() {
			return apperr.BadRequest("unknown workflow status %q", *in.Status)
		}
		w.Status = *in.Status
	}
	if in.Trigger != nil {
		if !in.Trigger.Valid() {
			return apperr.BadRequest("unknown trigger %q", *in.Trigger)
		}
		w.Trigger = *in.Trigger
	}
	if in.EntityType != nil {
		if !in.EntityType.Valid() {
			return apperr.BadRequest("unknown entity type %q", *in.EntityType)
		}
		w.EntityType = *in.EntityType
	}
	if in.Conditions != nil {
		raw, err := json.Marshal(*in.Conditions)
		if err != nil {
			return apperr.BadRequest("conditions: %v", err)
		}
		w.Conditions = datatypes.JSON(raw)
	}
	if in.Actions != nil {
		raw, err := json.Marshal(*in.Actions)
		if err != nil {
			return apperr.BadRequest("actions: %v", err)
		}
		w.Actions = datatypes.JSON(raw)
	}
	if in.DaysBeforeDeadline != nil {
		w.DaysBeforeDeadline = in.DaysBeforeDeadline
	}
	return nil
}

// ====== Execution ======

// Execute runs a workflow against one entity and records the execution. Approval workflows
// stay in progress until every approver has answered.
func (s *Service) Execute(ctx context.Context, workflowID uuid.UUID, entityType models.EntityType, entityID string, input map[string]any) (*models.WorkflowExecution, error) {
	w, err := s.store.GetWorkflow(ctx, workflowID)
	if err != nil {
		return nil, err
	}
	if w.Status != models.WorkflowActive {
		return nil, apperr.BadRequest("Workflow is not active")
	}

	started := s.now()
	exec := &models.WorkflowExecution{
		WorkflowID: w.ID,
		EntityType: entityType,
		EntityID:   entityID,
		Status:     models.ExecutionInProgress,
		StartedAt:  &started,
	}
	if input != nil {
		raw, err := json.Marshal(input)
		if err != nil {
			return nil, apperr.BadRequest("input data: %v", err)
		}
		exec.InputData = datatypes.JSON(raw)
	}
	if err := s.store.CreateExecution(ctx, exec); err != nil {
		return nil, fmt.Errorf("creating execution: %w", err)
	}

	pending, runErr := s.runActions(ctx, w, exec, true)

	finished := s.now()
	switch {
	case runErr != nil:
		exec.Status = models.ExecutionFailed
		exec.ErrorMessage = runErr.Error()
		exec.CompletedAt = &finished
	case pending == 0:
		exec.Status = models.ExecutionCompleted
		exec.CompletedAt = &finished
	}
	if err := s.store.SaveExecution(ctx, exec); err != nil {
		return nil, fmt.Errorf("saving execution: %w", err)
	}

	s.log.WithFields(logrus.Fields{
		"workflow_id":  w.ID,
		"execution_id": exec.ID,
		"entity_type":  entityType,
		"entity_id":    entityID,
		"status":       exec.Status,
	}).Info("workflow executed")

	if runErr != nil {
		return exec, runErr
	}
	return exec, nil
}

// CheckAndTrigger executes every active workflow bound to (entityType, trigger) directly or
// through a matching trigger rule. Each workflow runs at most once; a failing workflow is
// logged and does not stop the others.
func (s *Service) CheckAndTrigger(ctx context.Context, entityType models.EntityType, entityID string, trigger models.WorkflowTrigger, snapshot map[string]any) ([]models.WorkflowExecution, error) {
	if snapshot == nil {
		snapshot = map[string]any{}
	}

	workflows, err := s.store.ActiveWorkflows(ctx, entityType, trigger)
	if err != nil {
		return nil, fmt.Errorf("loading workflows: %w", err)
	}

	matched, err := s.rules.MatchWorkflows(ctx, entityType, trigger, snapshot)
	if err != nil {
		return nil, fmt.Errorf("matching trigger rules: %w", err)
	}
	if len(matched) > 0 {
		byRule, err := s.store.ActiveWorkflowsByID(ctx, matched)
		if err != nil {
			return nil, fmt.Errorf("loading matched workflows: %w", err)
		}
		index := make(map[uuid.UUID]models.Workflow, len(byRule))
		for _, w := range byRule {
			index[w.ID] = w
		}
		for _, id := range matched {
			if w, ok := index[id]; ok {
				workflows = append(workflows, w)
			}
		}
	}

	var executions []models.WorkflowExecution
	seen := make(map[uuid.UUID]struct{}, len(workflows))
	for _, w := range workflows {
		if _, dup := seen[w.ID]; dup {
			continue
		}
		seen[w.ID] = struct{}{}

		log := s.log.WithFields(logrus.Fields{"workflow_id": w.ID, "entity_type": entityType, "entity_id": entityID})

		legacy, err := w.LegacyConditions()
		if err != nil {
			log.WithError(err).Warn("workflow has malformed conditions, skipped")
			continue
		}
		if !legacyMatch(legacy, snapshot) {
			continue
		}

		exec, err := s.Execute(ctx, w.ID, entityType, entityID, snapshot)
		if err != nil {
			log.WithError(err).Error("triggered workflow failed")
		}
		if exec != nil {
			executions = append(executions, *exec)
		}
	}
	return executions, nil
}

// legacyMatch applies the older field->value equality conditions stored on the workflow itself.
func legacyMatch(conditions, snapshot map[string]any) bool {
	for field, want := range conditions {
		got, ok := snapshot[field]
		if !ok || !strictEqual(got, want) {
			return false
		}
	}
	return true
}

// ====== History ======

func (s *Service) Executions(ctx context.Context, filter ExecutionFilter) ([]models.WorkflowExecution, error) {
	return s.store.ListExecutions(ctx, filter)
}

func (s *Service) Execution(ctx context.Context, id uuid.UUID) (*models.WorkflowExecution, error) {
	return s.store.GetExecution(ctx, id)
}

func (s *Service) PendingApprovals(ctx context.Context, userID uuid.UUID) ([]models.WorkflowApproval, error) {
	return s.store.PendingApprovals(ctx, userID)
}

// ====== Approvals ======

type Signature struct {
	Data     string         `json:"signatureData"`
	Method   string         `json:"signatureMethod"`
	Metadata map[string]any `json:"signatureMetadata"`
}

type Decision struct {
	Status    models.ApprovalStatus `json:"status"`
	Comments  string                `json:"comments"`
	Signature *Signature            `json:"signature"`
}

// Approve records an approver's answer. A rejection fails the execution; the last approval
// runs the workflow's remaining actions. The workflow creator is told either way.
func (s *Service) Approve(ctx context.Context, approvalID, userID uuid.UUID, d Decision) error {
	if d.Status != models.ApprovalApproved && d.Status != models.ApprovalRejected {
		return apperr.BadRequest("status must be approved or rejected")
	}

	approval, err := s.store.GetApproval(ctx, approvalID)
	if err != nil {
		return err
	}
	if approval.ApproverID != userID {
		return apperr.Forbidden("You are not authorized to approve this step")
	}
	if approval.Status != models.ApprovalPending {
		return apperr.BadRequest("This approval has already been processed")
	}

	now := s.now()
	approval.Status = d.Status
	approval.Comments = d.Comments
	approval.RespondedAt = &now
	if d.Signature != nil {
		approval.SignatureData = d.Signature.Data
		approval.SignatureMethod = d.Signature.Method
		if d.Signature.Metadata != nil {
			raw, err := json.Marshal(d.Signature.Metadata)
			if err != nil {
				return apperr.BadRequest("signature metadata: %v", err)
			}
			approval.SignatureMetadata = datatypes.JSON(raw)
		}
		approval.SignatureTimestamp = &now
	}
	if err := s.store.SaveApproval(ctx, approval); err != nil {
		return fmt.Errorf("saving approval: %w", err)
	}

	exec, err := s.store.GetExecution(ctx, approval.WorkflowExecutionID)
	if err != nil || exec.Workflow == nil {
		s.log.WithError(err).WithField("approval_id", approvalID).Error("approval has no loadable execution")
		return nil
	}
	w := exec.Workflow

	approverName := "Unknown"
	if approval.Approver != nil {
		approverName = approval.Approver.DisplayName()
	}

	all, err := s.store.ExecutionApprovals(ctx, exec.ID)
	if err != nil {
		return fmt.Errorf("loading approvals: %w", err)
	}
	allApproved, anyRejected := true, false
	for _, a := range all {
		if a.Status != models.ApprovalApproved {
			allApproved = false
		}
		if a.Status == models.ApprovalRejected {
			anyRejected = true
		}
	}

	switch {
	case anyRejected:
		exec.Status = models.ExecutionFailed
		exec.CompletedAt = &now
		if err := s.store.SaveExecution(ctx, exec); err != nil {
			return fmt.Errorf("saving execution: %w", err)
		}
		s.notifyRejected(ctx, w, exec, approverName, d.Comments)

	case allApproved:
		if _, runErr := s.runActions(ctx, w, exec, false); runErr != nil {
			exec.Status = models.ExecutionFailed
			exec.ErrorMessage = runErr.Error()
			exec.CompletedAt = &now
			if err := s.store.SaveExecution(ctx, exec); err != nil {
				return fmt.Errorf("saving execution: %w", err)
			}
			s.log.WithError(runErr).WithField("execution_id", exec.ID).Error("workflow actions failed after approval")
			s.notifyRejected(ctx, w, exec, approverName, "Workflow actions failed: "+runErr.Error())
			return nil
		}
		exec.Status = models.ExecutionCompleted
		exec.CompletedAt = &now
		if err := s.store.SaveExecution(ctx, exec); err != nil {
			return fmt.Errorf("saving execution: %w", err)
		}
		if w.CreatedByID != nil {
			if err := s.notifier.SendWorkflowApproved(ctx, *w.CreatedByID, w.Name, exec.EntityType, exec.EntityID, approverName); err != nil {
				s.log.WithError(err).Error("failed to send approval notification")
			}
		}
	}
	return nil
}

func (s *Service) notifyRejected(ctx context.Context, w *models.Workflow, exec *models.WorkflowExecution, approverName, reason string) {
	if w.CreatedByID == nil {
		return
	}
	if err := s.notifier.SendWorkflowRejected(ctx, *w.CreatedByID, w.Name, exec.EntityType, exec.EntityID, approverName, reason); err != nil {
		s.log.WithError(err).Error("failed to send rejection notification")
	}
}
