package workflow

import (
	"context"

	"grc-backoffice/internal/apperr"
	"grc-backoffice/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ExecutionFilter struct {
	WorkflowID *uuid.UUID
	EntityType models.EntityType
	Status     models.ExecutionStatus
	Limit      int
}

// Store persists workflows, their executions and approval steps, and applies the entity side
// effects workflow actions ask for.
type Store interface {
	ListWorkflows(ctx context.Context) ([]models.Workflow, error)
	GetWorkflow(ctx context.Context, id uuid.UUID) (*models.Workflow, error)
	CreateWorkflow(ctx context.Context, w *models.Workflow) error
	SaveWorkflow(ctx context.Context, w *models.Workflow) error
	DeleteWorkflow(ctx context.Context, id uuid.UUID) error
	ActiveWorkflows(ctx context.Context, entityType models.EntityType, trigger models.WorkflowTrigger) ([]models.Workflow, error)
	ActiveWorkflowsByID(ctx context.Context, ids []uuid.UUID) ([]models.Workflow, error)

	CreateExecution(ctx context.Context, e *models.WorkflowExecution) error
	SaveExecution(ctx context.Context, e *models.WorkflowExecution) error
	GetExecution(ctx context.Context, id uuid.UUID) (*models.WorkflowExecution, error)
	ListExecutions(ctx context.Context, filter ExecutionFilter) ([]models.WorkflowExecution, error)
	LatestExecution(ctx context.Context, entityType models.EntityType, entityID string) (*models.WorkflowExecution, error)

	CreateApproval(ctx context.Context, a *models.WorkflowApproval) error
	SaveApproval(ctx context.Context, a *models.WorkflowApproval) error
	GetApproval(ctx context.Context, id uuid.UUID) (*models.WorkflowApproval, error)
	ExecutionApprovals(ctx context.Context, executionID uuid.UUID) ([]models.WorkflowApproval, error)
	PendingApprovals(ctx context.Context, approverID uuid.UUID) ([]models.WorkflowApproval, error)

	SetEntityStatus(ctx context.Context, entityType models.EntityType, entityID, status string) error
	CreateTask(ctx context.Context, t *models.Task) error
}

const defaultExecutionLimit = 50

type gormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

func (s *gormStore) ListWorkflows(ctx context.Context) ([]models.Workflow, error) {
	var out []models.Workflow
	err := s.db.WithContext(ctx).Order("created_at desc").Find(&out).Error
	return out, err
}

func (s *gormStore) GetWorkflow(ctx context.Context, id uuid.UUID) (*models.Workflow, error) {
	var w models.Workflow
	if err := s.db.WithContext(ctx).First(&w, "id = ?", id).Error; err != nil {
		return nil, apperr.FromDB(err, "Workflow", id)
	}
	return &w, nil
}

func (s *gormStore) CreateWorkflow(ctx context.Context, w *models.Workflow) error {
	return s.db.WithContext(ctx).Create(w).Error
}

func (s *gormStore) SaveWorkflow(ctx context.Context, w *models.Workflow) error {
	return s.db.WithContext(ctx).Save(w).Error
}

func (s *gormStore) DeleteWorkflow(ctx context.Context, id uuid.UUID) error {
	res := s.db.WithContext(ctx).Delete(&models.Workflow{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apperr.NotFound("Workflow with ID %s not found", id)
	}
	return nil
}

func (s *gormStore) ActiveWorkflows(ctx context.Context, entityType models.EntityType, trigger models.WorkflowTrigger) ([]models.Workflow, error) {
	var out []models.Workflow
	err := s.db.WithContext(ctx).
		Where(`entity_type = ? AND "trigger" = ? AND status = ?`, entityType, trigger, models.WorkflowActive).
		Find(&out).Error
	return out, err
}

func (s *gormStore) ActiveWorkflowsByID(ctx context.Context, ids []uuid.UUID) ([]models.Workflow, error) {
	var out []models.Workflow
	err := s.db.WithContext(ctx).
		Where("id IN ? AND status = ?", ids, models.WorkflowActive).
		Find(&out).Error
	return out, err
}

func (s *gormStore) CreateExecution(ctx context.Context, e *models.WorkflowExecution) error {
	return s.db.WithContext(ctx).Omit("Workflow", "Approvals").Create(e).Error
}

func (s *gormStore) SaveExecution(ctx context.Context, e *models.WorkflowExecution) error {
	return s.db.WithContext(ctx).Omit("Workflow", "Approvals").Save(e).Error
}

func (s *gormStore) GetExecution(ctx context.Context, id uuid.UUID) (*models.WorkflowExecution, error) {
	var e models.WorkflowExecution
	err := s.db.WithContext(ctx).
		Preload("Workflow").
		Preload("Approvals", func(db *gorm.DB) *gorm.DB { return db.Order("step_order asc") }).
		Preload("Approvals.Approver").
		First(&e, "id = ?", id).Error
	if err != nil {
		return nil, apperr.FromDB(err, "Execution", id)
	}
	return &e, nil
}

func (s *gormStore) ListExecutions(ctx context.Context, filter ExecutionFilter) ([]models.WorkflowExecution, error) {
	q := s.db.WithContext(ctx).Preload("Workflow").Order("created_at desc")
	if filter.WorkflowID != nil {
		q = q.Where("workflow_id = ?", *filter.WorkflowID)
	}
	if filter.EntityType != "" {
		q = q.Where("entity_type = ?", filter.EntityType)
	}
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	limit := filter.Limit
	if limit <= 0 {
		limit = defaultExecutionLimit
	}
	var out []models.WorkflowExecution
	err := q.Limit(limit).Find(&out).Error
	return out, err
}

func (s *gormStore) LatestExecution(ctx context.Context, entityType models.EntityType, entityID string) (*models.WorkflowExecution, error) {
	var e models.WorkflowExecution
	err := s.db.WithContext(ctx).
		Where("entity_type = ? AND entity_id = ?", entityType, entityID).
		Order("created_at desc").
		First(&e).Error
	if err != nil {
		return nil, apperr.FromDB(err, "Execution for entity", entityID)
	}
	return &e, nil
}

func (s *gormStore) CreateApproval(ctx context.Context, a *models.WorkflowApproval) error {
	return s.db.WithContext(ctx).Omit("WorkflowExecution", "Approver").Create(a).Error
}

func (s *gormStore) SaveApproval(ctx context.Context, a *models.WorkflowApproval) error {
	return s.db.WithContext(ctx).Omit("WorkflowExecution", "Approver").Save(a).Error
}

func (s *gormStore) GetApproval(ctx context.Context, id uuid.UUID) (*models.WorkflowApproval, error) {
	var a models.WorkflowApproval
	if err := s.db.WithContext(ctx).Preload("Approver").First(&a, "id = ?", id).Error; err != nil {
		return nil, apperr.FromDB(err, "Approval", id)
	}
	return &a, nil
}

func (s *gormStore) ExecutionApprovals(ctx context.Context, executionID uuid.UUID) ([]models.WorkflowApproval, error) {
	var out []models.WorkflowApproval
	err := s.db.WithContext(ctx).
		Where("workflow_execution_id = ?", executionID).
		Order("step_order asc").
		Find(&out).Error
	return out, err
}

func (s *gormStore) PendingApprovals(ctx context.Context, approverID uuid.UUID) ([]models.WorkflowApproval, error) {
	var out []models.WorkflowApproval
	err := s.db.WithContext(ctx).
		Preload("WorkflowExecution.Workflow").
		Where("approver_id = ? AND status = ?", approverID, models.ApprovalPending).
		Order("created_at desc").
		Find(&out).Error
	return out, err
}

func (s *gormStore) SetEntityStatus(ctx context.Context, entityType models.EntityType, entityID, status string) error {
	var (
		model  any
		column = "status"
	)
	switch entityType {
	case models.EntityPolicy:
		model = &models.Policy{}
	case models.EntityAssessment:
		model = &models.Assessment{}
	case models.EntityControl:
		model = &models.UnifiedControl{}
		column = "implementation_status"
	default:
		return nil
	}
	return s.db.WithContext(ctx).Model(model).Where("id = ?", entityID).Update(column, status).Error
}

func (s *gormStore) CreateTask(ctx context.Context, t *models.Task) error {
	return s.db.WithContext(ctx).Create(t).Error
}
