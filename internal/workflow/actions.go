package workflow

import (
	"context"
	"fmt"
	"strings"
	"time"

	"grc-backoffice/internal/apperr"
	"grc-backoffice/internal/models"

	"github.com/google/uuid"
)

// runActions applies a workflow's configured actions to the execution's entity and returns the
// number of approval steps it opened. Approval steps are only opened on the first run; the run
// that follows the last approval skips them.
func (s *Service) runActions(ctx context.Context, w *models.Workflow, exec *models.WorkflowExecution, withApprovals bool) (int, error) {
	actions, err := w.ParsedActions()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", errBadActions, err)
	}

	var opened int
	if withApprovals && w.Type == models.WorkflowApprovalType && len(actions.Approvers) > 0 {
		opened, err = s.openApprovals(ctx, w, exec, actions.Approvers)
		if err != nil {
			return opened, err
		}
	}

	if actions.ChangeStatus != "" {
		if err := s.store.SetEntityStatus(ctx, exec.EntityType, exec.EntityID, actions.ChangeStatus); err != nil {
			return opened, fmt.Errorf("changing %s status: %w", exec.EntityType, err)
		}
	}

	if actions.AssignTo != "" {
		if err := s.assign(ctx, exec, actions.AssignTo); err != nil {
			return opened, err
		}
	}

	if len(actions.Notify) > 0 {
		s.notifyUsers(ctx, w, exec, actions.Notify)
	}

	if actions.CreateTask != nil {
		if err := s.createTask(ctx, exec, *actions.CreateTask, actions.AssignTo); err != nil {
			return opened, err
		}
	}

	return opened, nil
}

func (s *Service) openApprovals(ctx context.Context, w *models.Workflow, exec *models.WorkflowExecution, approvers []string) (int, error) {
	ids := make([]uuid.UUID, 0, len(approvers))
	for _, raw := range approvers {
		id, err := uuid.Parse(raw)
		if err != nil {
			return 0, apperr.BadRequest("approver %q is not a valid user id", raw)
		}
		ids = append(ids, id)
	}

	for i, approverID := range ids {
		step := &models.WorkflowApproval{
			WorkflowExecutionID: exec.ID,
			ApproverID:          approverID,
			Status:              models.ApprovalPending,
			StepOrder:           i + 1,
		}
		if err := s.store.CreateApproval(ctx, step); err != nil {
			return i, fmt.Errorf("creating approval step %d: %w", i+1, err)
		}
		if err := s.notifier.SendApprovalRequest(ctx, approverID, w.Name, exec.EntityType, exec.EntityID, exec.ID); err != nil {
			s.log.WithError(err).WithField("approver_id", approverID).Error("failed to send approval request")
		}
	}
	return len(ids), nil
}

// assign sets the assignee on the entity's most recent execution.
func (s *Service) assign(ctx context.Context, exec *models.WorkflowExecution, assignTo string) error {
	userID, err := uuid.Parse(assignTo)
	if err != nil {
		return apperr.BadRequest("assignTo %q is not a valid user id", assignTo)
	}

	latest, err := s.store.LatestExecution(ctx, exec.EntityType, exec.EntityID)
	if err != nil {
		return fmt.Errorf("loading latest execution: %w", err)
	}
	if latest.ID == exec.ID {
		exec.AssignedToID = &userID
		return nil
	}
	latest.AssignedToID = &userID
	return s.store.SaveExecution(ctx, latest)
}

func (s *Service) notifyUsers(ctx context.Context, w *models.Workflow, exec *models.WorkflowExecution, users []string) {
	for _, raw := range users {
		userID, err := uuid.Parse(raw)
		if err != nil {
			s.log.WithField("user", raw).Warn("notify target is not a valid user id, skipped")
			continue
		}
		n := &models.Notification{
			UserID:     userID,
			Type:       models.NotificationGeneral,
			Priority:   models.PriorityMedium,
			Title:      "Workflow Notification",
			Message:    fmt.Sprintf("Workflow %q has been triggered", w.Name),
			EntityType: string(exec.EntityType),
			EntityID:   exec.EntityID,
			ActionURL:  fmt.Sprintf("/dashboard/%ss/%s", exec.EntityType, exec.EntityID),
		}
		if err := s.notifier.Create(ctx, n); err != nil {
			s.log.WithError(err).WithField("user_id", userID).Error("failed to send workflow notification")
		}
	}
}

func (s *Service) createTask(ctx context.Context, exec *models.WorkflowExecution, cfg models.TaskAction, fallbackAssignee string) error {
	if strings.TrimSpace(cfg.Title) == "" {
		return apperr.BadRequest("createTask requires a title")
	}

	task := &models.Task{
		Title:             cfg.Title,
		Description:       cfg.Description,
		Priority:          cfg.Priority,
		Status:            models.TaskTodo,
		RelatedEntityType: string(exec.EntityType),
		RelatedEntityID:   exec.EntityID,
	}
	if task.Priority == "" {
		task.Priority = "medium"
	}
	if cfg.DueDate != "" {
		due, err := parseDueDate(cfg.DueDate)
		if err != nil {
			return apperr.BadRequest("createTask dueDate %q: %v", cfg.DueDate, err)
		}
		task.DueDate = &due
	}

	assignee := cfg.AssigneeID
	if assignee == "" {
		assignee = fallbackAssignee
	}
	if assignee != "" {
		id, err := uuid.Parse(assignee)
		if err != nil {
			return apperr.BadRequest("task assignee %q is not a valid user id", assignee)
		}
		task.AssignedToID = &id
	}

	if err := s.store.CreateTask(ctx, task); err != nil {
		return fmt.Errorf("creating task: %w", err)
	}

	if task.AssignedToID != nil {
		if err := s.notifier.SendTaskAssigned(ctx, *task.AssignedToID, task.Title, task.ID); err != nil {
			s.log.WithError(err).WithField("task_id", task.ID).Error("failed to send task notification")
		}
	}
	return nil
}

func parseDueDate(v string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", v)
}
