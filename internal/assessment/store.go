package assessment

import (
	"context"

	"grc-backoffice/internal/apperr"
	"grc-backoffice/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Filter struct {
	Status models.AssessmentStatus
	Search string
	Page   int
	Limit  int
}

type Store interface {
	Create(ctx context.Context, a *models.Assessment) error
	Get(ctx context.Context, id uuid.UUID) (*models.Assessment, error)
	List(ctx context.Context, f Filter) ([]models.Assessment, int64, error)
	SaveStatus(ctx context.Context, a *models.Assessment) error
	SaveSummary(ctx context.Context, a *models.Assessment) error
	CreateResult(ctx context.Context, r *models.AssessmentResult) error
	Results(ctx context.Context, assessmentID uuid.UUID) ([]models.AssessmentResult, error)
}

type gormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

func (s *gormStore) Create(ctx context.Context, a *models.Assessment) error {
	return s.db.WithContext(ctx).Create(a).Error
}

func (s *gormStore) Get(ctx context.Context, id uuid.UUID) (*models.Assessment, error) {
	var a models.Assessment
	if err := s.db.WithContext(ctx).First(&a, "id = ?", id).Error; err != nil {
		return nil, apperr.FromDB(err, "Assessment", id)
	}
	return &a, nil
}

func (s *gormStore) List(ctx context.Context, f Filter) ([]models.Assessment, int64, error) {
	q := s.db.WithContext(ctx).Model(&models.Assessment{})
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.Search != "" {
		q = q.Where("name ILIKE ?", "%"+f.Search+"%")
	}

	var total int64
	if err := q.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var out []models.Assessment
	err := q.Session(&gorm.Session{}).
		Order("created_at desc").
		Offset((f.Page - 1) * f.Limit).
		Limit(f.Limit).
		Find(&out).Error
	return out, total, err
}

// SaveStatus writes only the lifecycle columns; SaveSummary only the summary columns.
func (s *gormStore) SaveStatus(ctx context.Context, a *models.Assessment) error {
	return s.db.WithContext(ctx).Model(a).Updates(map[string]any{
		"status":       a.Status,
		"start_date":   a.StartDate,
		"completed_at": a.CompletedAt,
	}).Error
}

func (s *gormStore) SaveSummary(ctx context.Context, a *models.Assessment) error {
	return s.db.WithContext(ctx).Model(a).Updates(map[string]any{
		"controls_assessed": a.ControlsAssessed,
		"overall_score":     a.OverallScore,
	}).Error
}

func (s *gormStore) CreateResult(ctx context.Context, r *models.AssessmentResult) error {
	return s.db.WithContext(ctx).Create(r).Error
}

func (s *gormStore) Results(ctx context.Context, assessmentID uuid.UUID) ([]models.AssessmentResult, error) {
	var out []models.AssessmentResult
	err := s.db.WithContext(ctx).
		Where("assessment_id = ?", assessmentID).
		Order("assessed_at desc").
		Find(&out).Error
	return out, err
}
