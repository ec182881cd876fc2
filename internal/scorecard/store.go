package scorecard

import (
	"context"

	"grc-backoffice/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type gormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

func (s *gormStore) Frameworks(ctx context.Context, ids []uuid.UUID) ([]models.Framework, error) {
	q := s.db.WithContext(ctx).Order("name asc")
	if len(ids) > 0 {
		q = q.Where("id IN ?", ids)
	}
	var out []models.Framework
	err := q.Find(&out).Error
	return out, err
}

func (s *gormStore) Requirements(ctx context.Context, frameworkID uuid.UUID) ([]models.FrameworkRequirement, error) {
	var out []models.FrameworkRequirement
	err := s.db.WithContext(ctx).
		Where("framework_id = ?", frameworkID).
		Order("display_order asc").
		Find(&out).Error
	return out, err
}

func (s *gormStore) Mappings(ctx context.Context, frameworkID uuid.UUID) ([]models.FrameworkControlMapping, error) {
	var out []models.FrameworkControlMapping
	err := s.db.WithContext(ctx).
		Joins("JOIN framework_requirements ON framework_requirements.id = framework_control_mappings.framework_requirement_id").
		Where("framework_requirements.framework_id = ?", frameworkID).
		Preload("UnifiedControl").
		Find(&out).Error
	return out, err
}

func (s *gormStore) Controls(ctx context.Context, ids []uuid.UUID) ([]models.UnifiedControl, error) {
	var out []models.UnifiedControl
	err := s.db.WithContext(ctx).Where("id IN ?", ids).Find(&out).Error
	return out, err
}

func (s *gormStore) Assessments(ctx context.Context, statuses []models.AssessmentStatus) ([]models.Assessment, error) {
	var out []models.Assessment
	err := s.db.WithContext(ctx).Where("status IN ?", statuses).Find(&out).Error
	return out, err
}

func (s *gormStore) Results(ctx context.Context, assessmentIDs []uuid.UUID) ([]models.AssessmentResult, error) {
	var out []models.AssessmentResult
	err := s.db.WithContext(ctx).Where("assessment_id IN ?", assessmentIDs).Find(&out).Error
	return out, err
}
