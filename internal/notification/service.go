// Package notification stores in-app notifications and pushes them to connected users.
package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"grc-backoffice/internal/apperr"
	"grc-backoffice/internal/models"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	defaultListLimit   = 50
	defaultCleanupDays = 30
)

type Publisher interface {
	Publish(userID uuid.UUID, ev Event)
}

type Query struct {
	IsRead *bool
	Type   models.NotificationType
	Limit  int
}

type Service struct {
	db  *gorm.DB
	pub Publisher
	log logrus.FieldLogger
	now func() time.Time
}

func NewService(db *gorm.DB, pub Publisher, log logrus.FieldLogger) *Service {
	return &Service{db: db, pub: pub, log: log, now: time.Now}
}

func (s *Service) Create(ctx context.Context, n *models.Notification) error {
	if n.Priority == "" {
		n.Priority = models.PriorityMedium
	}
	if err := s.db.WithContext(ctx).Create(n).Error; err != nil {
		return fmt.Errorf("creating notification: %w", err)
	}
	s.push(n)
	return nil
}

// CreateBulk sends the same notification to every user in one insert.
func (s *Service) CreateBulk(ctx context.Context, userIDs []uuid.UUID, tmpl models.Notification) error {
	if len(userIDs) == 0 {
		return nil
	}
	if tmpl.Priority == "" {
		tmpl.Priority = models.PriorityMedium
	}
	batch := make([]models.Notification, 0, len(userIDs))
	for _, id := range userIDs {
		n := tmpl
		n.ID = uuid.Nil
		n.UserID = id
		batch = append(batch, n)
	}
	if err := s.db.WithContext(ctx).Create(&batch).Error; err != nil {
		return fmt.Errorf("creating notifications: %w", err)
	}
	for i := range batch {
		s.push(&batch[i])
	}
	return nil
}

func (s *Service) push(n *models.Notification) {
	if s.pub == nil {
		return
	}
	s.pub.Publish(n.UserID, Event{Type: "notification", Notification: n})
}

func (s *Service) ListForUser(ctx context.Context, userID uuid.UUID, q Query) ([]models.Notification, error) {
	tx := s.db.WithContext(ctx).Where("user_id = ?", userID).Order("created_at desc")
	if q.IsRead != nil {
		tx = tx.Where("is_read = ?", *q.IsRead)
	}
	if q.Type != "" {
		tx = tx.Where("type = ?", q.Type)
	}
	limit := q.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	var out []models.Notification
	err := tx.Limit(limit).Find(&out).Error
	return out, err
}

func (s *Service) UnreadCount(ctx context.Context, userID uuid.UUID) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&models.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Count(&n).Error
	return n, err
}

func (s *Service) MarkRead(ctx context.Context, id, userID uuid.UUID) error {
	res := s.db.WithContext(ctx).Model(&models.Notification{}).
		Where("id = ? AND user_id = ?", id, userID).
		Updates(map[string]any{"is_read": true, "read_at": s.now()})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apperr.NotFound("Notification not found")
	}
	return nil
}

func (s *Service) MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error) {
	res := s.db.WithContext(ctx).Model(&models.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Updates(map[string]any{"is_read": true, "read_at": s.now()})
	return res.RowsAffected, res.Error
}

func (s *Service) Delete(ctx context.Context, id, userID uuid.UUID) error {
	res := s.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).Delete(&models.Notification{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apperr.NotFound("Notification not found")
	}
	return nil
}

// Cleanup removes read notifications older than the given number of days.
func (s *Service) Cleanup(ctx context.Context, days int) (int64, error) {
	if days <= 0 {
		days = defaultCleanupDays
	}
	cutoff := s.now().AddDate(0, 0, -days)
	res := s.db.WithContext(ctx).
		Where("is_read = ? AND created_at < ?", true, cutoff).
		Delete(&models.Notification{})
	if res.Error == nil && res.RowsAffected > 0 {
		s.log.WithField("deleted", res.RowsAffected).Info("old notifications cleaned up")
	}
	return res.RowsAffected, res.Error
}

// ====== Helpers ======

func (s *Service) SendApprovalRequest(ctx context.Context, approverID uuid.UUID, workflowName string, entityType models.EntityType, entityID string, executionID uuid.UUID) error {
	meta, _ := json.Marshal(map[string]string{
		"executionId":  executionID.String(),
		"workflowName": workflowName,
	})
	return s.Create(ctx, &models.Notification{
		UserID:     approverID,
		Type:       models.NotificationWorkflowApprovalRequired,
		Priority:   models.PriorityHigh,
		Title:      "Approval Required",
		Message:    fmt.Sprintf("You have a pending approval for workflow %q", workflowName),
		EntityType: string(entityType),
		EntityID:   entityID,
		ActionURL:  "/dashboard/workflows/approvals",
		Metadata:   datatypes.JSON(meta),
	})
}

func (s *Service) SendWorkflowApproved(ctx context.Context, userID uuid.UUID, workflowName string, entityType models.EntityType, entityID, approverName string) error {
	return s.Create(ctx, &models.Notification{
		UserID:     userID,
		Type:       models.NotificationWorkflowApproved,
		Priority:   models.PriorityMedium,
		Title:      "Workflow Approved",
		Message:    fmt.Sprintf("Your %q workflow has been approved by %s", workflowName, approverName),
		EntityType: string(entityType),
		EntityID:   entityID,
		ActionURL:  fmt.Sprintf("/%ss/%s", entityType, entityID),
	})
}

func (s *Service) SendWorkflowRejected(ctx context.Context, userID uuid.UUID, workflowName string, entityType models.EntityType, entityID, approverName, reason string) error {
	msg := fmt.Sprintf("Your %q workflow has been rejected by %s", workflowName, approverName)
	if reason != "" {
		msg += ": " + reason
	}
	return s.Create(ctx, &models.Notification{
		UserID:     userID,
		Type:       models.NotificationWorkflowRejected,
		Priority:   models.PriorityHigh,
		Title:      "Workflow Rejected",
		Message:    msg,
		EntityType: string(entityType),
		EntityID:   entityID,
		ActionURL:  fmt.Sprintf("/%ss/%s", entityType, entityID),
	})
}

func (s *Service) SendTaskAssigned(ctx context.Context, userID uuid.UUID, taskTitle string, taskID uuid.UUID) error {
	return s.Create(ctx, &models.Notification{
		UserID:     userID,
		Type:       models.NotificationTaskAssigned,
		Priority:   models.PriorityMedium,
		Title:      "Task Assigned",
		Message:    fmt.Sprintf("You have been assigned a new task: %q", taskTitle),
		EntityType: "task",
		EntityID:   taskID.String(),
		ActionURL:  "/dashboard/tasks/" + taskID.String(),
	})
}

func (s *Service) SendAssessorAssigned(ctx context.Context, userID uuid.UUID, assessmentName string, assessmentID uuid.UUID) error {
	return s.Create(ctx, &models.Notification{
		UserID:     userID,
		Type:       models.NotificationAssessmentAssigned,
		Priority:   models.PriorityMedium,
		Title:      "Assessment Assigned",
		Message:    fmt.Sprintf("You have been assigned as lead assessor for %q", assessmentName),
		EntityType: string(models.EntityAssessment),
		EntityID:   assessmentID.String(),
		ActionURL:  "/dashboard/assessments/" + assessmentID.String(),
	})
}
