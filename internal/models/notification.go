package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type NotificationType string

const (
	NotificationGeneral                  NotificationType = "general"
	NotificationWorkflowApprovalRequired NotificationType = "workflow_approval_required"
	NotificationWorkflowApproved         NotificationType = "workflow_approved"
	NotificationWorkflowRejected         NotificationType = "workflow_rejected"
	NotificationTaskAssigned             NotificationType = "task_assigned"
	NotificationAssessmentAssigned       NotificationType = "assessment_assigned"
)

type NotificationPriority string

const (
	PriorityLow    NotificationPriority = "low"
	PriorityMedium NotificationPriority = "medium"
	PriorityHigh   NotificationPriority = "high"
	PriorityUrgent NotificationPriority = "urgent"
)

type Notification struct {
	ID        uuid.UUID            `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt time.Time            `gorm:"index" json:"created_at"`
	UserID    uuid.UUID            `gorm:"type:uuid;not null;index" json:"user_id"`
	Type      NotificationType     `gorm:"type:varchar(40);not null" json:"type"`
	Priority  NotificationPriority `gorm:"type:varchar(20);not null" json:"priority"`
	Title     string               `gorm:"size:255;not null" json:"title"`
	Message   string               `gorm:"type:text" json:"message"`

	EntityType string         `gorm:"size:50" json:"entity_type,omitempty"`
	EntityID   string         `gorm:"size:64" json:"entity_id,omitempty"`
	ActionURL  string         `gorm:"size:500" json:"action_url,omitempty"`
	Metadata   datatypes.JSON `gorm:"type:jsonb" json:"metadata,omitempty"`

	IsRead bool       `gorm:"default:false;index" json:"is_read"`
	ReadAt *time.Time `json:"read_at,omitempty"`
}

func (n *Notification) BeforeCreate(tx *gorm.DB) error {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	if n.Priority == "" {
		n.Priority = PriorityMedium
	}
	return nil
}
