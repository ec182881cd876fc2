package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type WorkflowType string

const (
	WorkflowApprovalType     WorkflowType = "approval"
	WorkflowNotificationType WorkflowType = "notification"
	WorkflowEscalationType   WorkflowType = "escalation"
	WorkflowStatusChangeType WorkflowType = "status_change"
)

func (t WorkflowType) Valid() bool {
	switch t {
	case WorkflowApprovalType, WorkflowNotificationType, WorkflowEscalationType, WorkflowStatusChangeType:
		return true
	}
	return false
}

type WorkflowStatus string

const (
	WorkflowActive   WorkflowStatus = "active"
	WorkflowInactive WorkflowStatus = "inactive"
	WorkflowDraft    WorkflowStatus = "draft"
)

func (s WorkflowStatus) Valid() bool {
	switch s {
	case WorkflowActive, WorkflowInactive, WorkflowDraft:
		return true
	}
	return false
}

type WorkflowTrigger string

const (
	TriggerOnCreate              WorkflowTrigger = "on_create"
	TriggerOnUpdate              WorkflowTrigger = "on_update"
	TriggerOnStatusChange        WorkflowTrigger = "on_status_change"
	TriggerOnDeadlineApproaching WorkflowTrigger = "on_deadline_approaching"
	TriggerOnDeadlinePassed      WorkflowTrigger = "on_deadline_passed"
)

func (t WorkflowTrigger) Valid() bool {
	switch t {
	case TriggerOnCreate, TriggerOnUpdate, TriggerOnStatusChange, TriggerOnDeadlineApproaching, TriggerOnDeadlinePassed:
		return true
	}
	return false
}

type EntityType string

const (
	EntityPolicy                EntityType = "policy"
	EntityRisk                  EntityType = "risk"
	EntityComplianceRequirement EntityType = "compliance_requirement"
	EntityAssessment            EntityType = "assessment"
	EntityControl               EntityType = "control"
)

func (e EntityType) Valid() bool {
	switch e {
	case EntityPolicy, EntityRisk, EntityComplianceRequirement, EntityAssessment, EntityControl:
		return true
	}
	return false
}

type Workflow struct {
	Base
	Name               string          `gorm:"size:255;not null" json:"name"`
	Description        string          `gorm:"type:text" json:"description"`
	Type               WorkflowType    `gorm:"type:varchar(30);not null" json:"type"`
	Status             WorkflowStatus  `gorm:"type:varchar(20);not null;default:'draft'" json:"status"`
	Trigger            WorkflowTrigger `gorm:"type:varchar(40);not null" json:"trigger"`
	EntityType         EntityType      `gorm:"type:varchar(40);not null" json:"entity_type"`
	Conditions         datatypes.JSON  `gorm:"type:jsonb" json:"conditions,omitempty"`
	Actions            datatypes.JSON  `gorm:"type:jsonb" json:"actions"`
	DaysBeforeDeadline *int            `json:"days_before_deadline,omitempty"`
	CreatedByID        *uuid.UUID      `gorm:"type:uuid" json:"created_by_id,omitempty"`
}

// WorkflowActions is the decoded form of Workflow.Actions.
type WorkflowActions struct {
	Approvers    []string    `json:"approvers,omitempty"`
	Notify       []string    `json:"notify,omitempty"`
	AssignTo     string      `json:"assignTo,omitempty"`
	ChangeStatus string      `json:"changeStatus,omitempty"`
	CreateTask   *TaskAction `json:"createTask,omitempty"`
}

type TaskAction struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Priority    string `json:"priority,omitempty"`
	DueDate     string `json:"dueDate,omitempty"`
	AssigneeID  string `json:"assigneeId,omitempty"`
}

func (w Workflow) ParsedActions() (WorkflowActions, error) {
	var a WorkflowActions
	if len(w.Actions) == 0 || string(w.Actions) == "null" {
		return a, nil
	}
	err := json.Unmarshal(w.Actions, &a)
	return a, err
}

// LegacyConditions decodes the field->expected value object kept for older workflows.
func (w Workflow) LegacyConditions() (map[string]any, error) {
	if len(w.Conditions) == 0 || string(w.Conditions) == "null" {
		return nil, nil
	}
	var out map[string]any
	err := json.Unmarshal(w.Conditions, &out)
	return out, err
}

type ExecutionStatus string

const (
	ExecutionPending    ExecutionStatus = "pending"
	ExecutionInProgress ExecutionStatus = "in_progress"
	ExecutionCompleted  ExecutionStatus = "completed"
	ExecutionFailed     ExecutionStatus = "failed"
	ExecutionCancelled  ExecutionStatus = "cancelled"
)

type WorkflowExecution struct {
	Base
	WorkflowID   uuid.UUID       `gorm:"type:uuid;not null;index" json:"workflow_id"`
	Workflow     *Workflow       `json:"workflow,omitempty"`
	EntityType   EntityType      `gorm:"type:varchar(40);not null;index:idx_execution_entity" json:"entity_type"`
	EntityID     string          `gorm:"size:64;not null;index:idx_execution_entity" json:"entity_id"`
	Status       ExecutionStatus `gorm:"type:varchar(20);not null" json:"status"`
	InputData    datatypes.JSON  `gorm:"type:jsonb" json:"input_data,omitempty"`
	ErrorMessage string          `gorm:"type:text" json:"error_message,omitempty"`
	AssignedToID *uuid.UUID      `gorm:"type:uuid" json:"assigned_to_id,omitempty"`
	StartedAt    *time.Time      `json:"started_at,omitempty"`
	CompletedAt  *time.Time      `json:"completed_at,omitempty"`

	Approvals []WorkflowApproval `json:"approvals,omitempty"`
}

type ApprovalStatus string

const (
	ApprovalPending   ApprovalStatus = "pending"
	ApprovalApproved  ApprovalStatus = "approved"
	ApprovalRejected  ApprovalStatus = "rejected"
	ApprovalCancelled ApprovalStatus = "cancelled"
)

type WorkflowApproval struct {
	Base
	WorkflowExecutionID uuid.UUID          `gorm:"type:uuid;not null;index" json:"workflow_execution_id"`
	WorkflowExecution   *WorkflowExecution `json:"workflow_execution,omitempty"`
	ApproverID          uuid.UUID          `gorm:"type:uuid;not null;index" json:"approver_id"`
	Approver            *User              `json:"approver,omitempty"`
	Status              ApprovalStatus     `gorm:"type:varchar(20);not null" json:"status"`
	StepOrder           int                `json:"step_order"`
	Comments            string             `gorm:"type:text" json:"comments,omitempty"`
	RespondedAt         *time.Time         `json:"responded_at,omitempty"`

	SignatureData      string         `gorm:"type:text" json:"signature_data,omitempty"`
	SignatureMethod    string         `gorm:"size:30" json:"signature_method,omitempty"`
	SignatureMetadata  datatypes.JSON `gorm:"type:jsonb" json:"signature_metadata,omitempty"`
	SignatureTimestamp *time.Time     `json:"signature_timestamp,omitempty"`
}

// Condition is one field/operator/value test of a trigger rule.
type Condition struct {
	Field    string `json:"field"`
	Operator string `json:"operator"`
	Value    any    `json:"value"`
}

type WorkflowTriggerRule struct {
	Base
	WorkflowID  uuid.UUID       `gorm:"type:uuid;not null;index" json:"workflow_id"`
	Name        string          `gorm:"size:255" json:"name"`
	Description string          `gorm:"type:text" json:"description,omitempty"`
	EntityType  EntityType      `gorm:"type:varchar(40);not null;index:idx_rule_scope" json:"entity_type"`
	Trigger     WorkflowTrigger `gorm:"type:varchar(40);not null;index:idx_rule_scope" json:"trigger"`
	Conditions  datatypes.JSON  `gorm:"type:jsonb" json:"conditions"`
	Priority    int             `gorm:"default:0" json:"priority"`
	IsActive    bool            `json:"is_active"`
	DeletedAt   gorm.DeletedAt  `gorm:"index" json:"-"`
}

// ParsedConditions decodes the stored condition list. A null or empty column is an empty list.
func (r WorkflowTriggerRule) ParsedConditions() ([]Condition, error) {
	if len(r.Conditions) == 0 || string(r.Conditions) == "null" {
		return nil, nil
	}
	var out []Condition
	if err := json.Unmarshal(r.Conditions, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (r WorkflowTriggerRule) Lifecycle() Lifecycle {
	return lifecycleOf(r.DeletedAt)
}
