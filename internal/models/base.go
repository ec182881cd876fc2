package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Base is embedded by every uuid-keyed table.
type Base struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (b *Base) BeforeCreate(tx *gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}

type LifecycleState string

const (
	LifecycleActive  LifecycleState = "active"
	LifecycleDeleted LifecycleState = "deleted"
)

// Lifecycle is the domain view of a soft-deletable row.
type Lifecycle struct {
	State     LifecycleState
	DeletedAt *time.Time
}

func (l Lifecycle) IsDeleted() bool {
	return l.State == LifecycleDeleted
}

func lifecycleOf(d gorm.DeletedAt) Lifecycle {
	if !d.Valid {
		return Lifecycle{State: LifecycleActive}
	}
	at := d.Time
	return Lifecycle{State: LifecycleDeleted, DeletedAt: &at}
}
