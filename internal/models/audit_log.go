package models

import (
	"time"

	"github.com/google/uuid"
)

type AuditLog struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`

	UserID uuid.UUID `gorm:"type:uuid" json:"user_id"`
	User   User      `json:"user,omitempty"`

	Entity   string `gorm:"size:50;not null;index" json:"entity"` // "framework", "assessment", "workflow" ...
	EntityID string `gorm:"size:64;index" json:"entity_id"`
	Action   string `gorm:"size:50;not null" json:"action"` // "create", "status_change" ...
	Details  string `gorm:"type:text" json:"details"`
}
