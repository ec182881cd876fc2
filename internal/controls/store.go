package controls

import (
	"context"

	"grc-backoffice/internal/apperr"
	"grc-backoffice/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Filter struct {
	Status models.ImplementationStatus
	Domain string
	Search string
}

type Store interface {
	List(ctx context.Context, f Filter) ([]models.UnifiedControl, error)
	Get(ctx context.Context, id uuid.UUID) (*models.UnifiedControl, error)
	IdentifierTaken(ctx context.Context, identifier string, except uuid.UUID) (bool, error)
	Create(ctx context.Context, c *models.UnifiedControl) error
	Save(ctx context.Context, c *models.UnifiedControl) error
	Delete(ctx context.Context, id uuid.UUID) error

	RequirementExists(ctx context.Context, id uuid.UUID) (bool, error)
	FindMapping(ctx context.Context, requirementID, controlID uuid.UUID) (*models.FrameworkControlMapping, error)
	CreateMapping(ctx context.Context, m *models.FrameworkControlMapping) error
	DeleteMapping(ctx context.Context, id uuid.UUID) error
	ControlMappings(ctx context.Context, controlID uuid.UUID) ([]models.FrameworkControlMapping, error)
	RequirementMappings(ctx context.Context, requirementID uuid.UUID) ([]models.FrameworkControlMapping, error)
}

type gormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

func (s *gormStore) List(ctx context.Context, f Filter) ([]models.UnifiedControl, error) {
	q := s.db.WithContext(ctx).Order("identifier asc")
	if f.Status != "" {
		q = q.Where("implementation_status = ?", f.Status)
	}
	if f.Domain != "" {
		q = q.Where("domain = ?", f.Domain)
	}
	if f.Search != "" {
		like := "%" + f.Search + "%"
		q = q.Where("identifier ILIKE ? OR title ILIKE ?", like, like)
	}
	var out []models.UnifiedControl
	err := q.Find(&out).Error
	return out, err
}

func (s *gormStore) Get(ctx context.Context, id uuid.UUID) (*models.UnifiedControl, error) {
	var c models.UnifiedControl
	if err := s.db.WithContext(ctx).First(&c, "id = ?", id).Error; err != nil {
		return nil, apperr.FromDB(err, "Control", id)
	}
	return &c, nil
}

func (s *gormStore) IdentifierTaken(ctx context.Context, identifier string, except uuid.UUID) (bool, error) {
	var n int64
	err := s.db.WithContext(ctx).
		Model(&models.UnifiedControl{}).
		Where("identifier = ? AND id <> ?", identifier, except).
		Count(&n).Error
	return n > 0, err
}

func (s *gormStore) Create(ctx context.Context, c *models.UnifiedControl) error {
	return s.db.WithContext(ctx).Create(c).Error
}

func (s *gormStore) Save(ctx context.Context, c *models.UnifiedControl) error {
	return s.db.WithContext(ctx).Save(c).Error
}

// Delete removes the control together with its mappings.
func (s *gormStore) Delete(ctx context.Context, id uuid.UUID) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("unified_control_id = ?", id).Delete(&models.FrameworkControlMapping{}).Error; err != nil {
			return err
		}
		res := tx.Delete(&models.UnifiedControl{}, "id = ?", id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return apperr.NotFound("Control with ID %s not found", id)
		}
		return nil
	})
}

func (s *gormStore) RequirementExists(ctx context.Context, id uuid.UUID) (bool, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&models.FrameworkRequirement{}).Where("id = ?", id).Count(&n).Error
	return n > 0, err
}

// FindMapping returns nil, nil when the pair is not mapped.
func (s *gormStore) FindMapping(ctx context.Context, requirementID, controlID uuid.UUID) (*models.FrameworkControlMapping, error) {
	var out []models.FrameworkControlMapping
	err := s.db.WithContext(ctx).
		Where("framework_requirement_id = ? AND unified_control_id = ?", requirementID, controlID).
		Limit(1).
		Find(&out).Error
	if err != nil || len(out) == 0 {
		return nil, err
	}
	return &out[0], nil
}

func (s *gormStore) CreateMapping(ctx context.Context, m *models.FrameworkControlMapping) error {
	return s.db.WithContext(ctx).Omit("FrameworkRequirement", "UnifiedControl").Create(m).Error
}

func (s *gormStore) DeleteMapping(ctx context.Context, id uuid.UUID) error {
	res := s.db.WithContext(ctx).Delete(&models.FrameworkControlMapping{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apperr.NotFound("Mapping with ID %s not found", id)
	}
	return nil
}

func (s *gormStore) ControlMappings(ctx context.Context, controlID uuid.UUID) ([]models.FrameworkControlMapping, error) {
	var out []models.FrameworkControlMapping
	err := s.db.WithContext(ctx).
		Where("unified_control_id = ?", controlID).
		Preload("FrameworkRequirement").
		Find(&out).Error
	return out, err
}

func (s *gormStore) RequirementMappings(ctx context.Context, requirementID uuid.UUID) ([]models.FrameworkControlMapping, error) {
	var out []models.FrameworkControlMapping
	err := s.db.WithContext(ctx).
		Where("framework_requirement_id = ?", requirementID).
		Preload("UnifiedControl").
		Find(&out).Error
	return out, err
}
