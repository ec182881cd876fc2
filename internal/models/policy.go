package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type PolicyStatus string

const (
	PolicyDraft       PolicyStatus = "draft"
	PolicyUnderReview PolicyStatus = "under_review"
	PolicyApproved    PolicyStatus = "approved"
	PolicyPublished   PolicyStatus = "published"
	PolicyArchived    PolicyStatus = "archived"
)

func (s PolicyStatus) Valid() bool {
	switch s {
	case PolicyDraft, PolicyUnderReview, PolicyApproved, PolicyPublished, PolicyArchived:
		return true
	}
	return false
}

type Policy struct {
	Base
	Title         string         `gorm:"size:255;not null" json:"title"`
	PolicyType    string         `gorm:"size:100" json:"policy_type"`
	Status        PolicyStatus   `gorm:"type:varchar(30);not null;default:'draft'" json:"status"`
	Version       string         `gorm:"size:32" json:"version"`
	Content       string         `gorm:"type:text" json:"content"`
	OwnerID       *uuid.UUID     `gorm:"type:uuid" json:"owner_id,omitempty"`
	EffectiveDate *time.Time     `json:"effective_date,omitempty"`
	ReviewDate    *time.Time     `json:"review_date,omitempty"`
	DeletedAt     gorm.DeletedAt `gorm:"index" json:"-"`
}

func (p Policy) Lifecycle() Lifecycle {
	return lifecycleOf(p.DeletedAt)
}

type TaskStatus string

const (
	TaskTodo       TaskStatus = "todo"
	TaskInProgress TaskStatus = "in_progress"
	TaskDone       TaskStatus = "done"
)

// Task is created by workflow createTask actions.
type Task struct {
	Base
	Title             string     `gorm:"size:255;not null" json:"title"`
	Description       string     `gorm:"type:text" json:"description"`
	Priority          string     `gorm:"size:20;default:'medium'" json:"priority"`
	Status            TaskStatus `gorm:"type:varchar(20);not null;default:'todo'" json:"status"`
	DueDate           *time.Time `json:"due_date,omitempty"`
	RelatedEntityType string     `gorm:"size:50" json:"related_entity_type"`
	RelatedEntityID   string     `gorm:"size:64" json:"related_entity_id"`
	AssignedToID      *uuid.UUID `gorm:"type:uuid" json:"assigned_to_id,omitempty"`
}
