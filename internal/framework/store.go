package framework

import (
	"context"
	"errors"

	"grc-backoffice/internal/apperr"
	"grc-backoffice/internal/models"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Store interface {
	List(ctx context.Context, status models.FrameworkStatus) ([]models.Framework, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Framework, error)
	FindByCodeVersion(ctx context.Context, code, version string) (*models.Framework, error)
	Create(ctx context.Context, fw *models.Framework) error
	Save(ctx context.Context, fw *models.Framework) error
	Delete(ctx context.Context, id uuid.UUID) error
	Requirements(ctx context.Context, frameworkID uuid.UUID) ([]models.FrameworkRequirement, error)
	// ReplaceStructure stores the document and upserts its requirements in one transaction.
	ReplaceStructure(ctx context.Context, frameworkID uuid.UUID, structure datatypes.JSON, reqs []models.FrameworkRequirement) error
}

type gormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

func (s *gormStore) List(ctx context.Context, status models.FrameworkStatus) ([]models.Framework, error) {
	q := s.db.WithContext(ctx).Order("name asc")
	if status != "" {
		q = q.Where("status = ?", status)
	}
	var out []models.Framework
	err := q.Find(&out).Error
	return out, err
}

func (s *gormStore) Get(ctx context.Context, id uuid.UUID) (*models.Framework, error) {
	var fw models.Framework
	if err := s.db.WithContext(ctx).First(&fw, "id = ?", id).Error; err != nil {
		return nil, apperr.FromDB(err, "Framework", id)
	}
	return &fw, nil
}

// FindByCodeVersion returns nil, nil when no framework has that code and version.
func (s *gormStore) FindByCodeVersion(ctx context.Context, code, version string) (*models.Framework, error) {
	var fw models.Framework
	err := s.db.WithContext(ctx).Where("code = ? AND version = ?", code, version).First(&fw).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &fw, nil
}

func (s *gormStore) Create(ctx context.Context, fw *models.Framework) error {
	return s.db.WithContext(ctx).Create(fw).Error
}

func (s *gormStore) Save(ctx context.Context, fw *models.Framework) error {
	return s.db.WithContext(ctx).Omit(clause.Associations).Save(fw).Error
}

func (s *gormStore) Delete(ctx context.Context, id uuid.UUID) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("framework_id = ?", id).Delete(&models.FrameworkRequirement{}).Error; err != nil {
			return err
		}
		res := tx.Delete(&models.Framework{}, "id = ?", id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return apperr.NotFound("Framework with ID %s not found", id)
		}
		return nil
	})
}

func (s *gormStore) Requirements(ctx context.Context, frameworkID uuid.UUID) ([]models.FrameworkRequirement, error) {
	var out []models.FrameworkRequirement
	err := s.db.WithContext(ctx).
		Where("framework_id = ?", frameworkID).
		Order("display_order asc").
		Find(&out).Error
	return out, err
}

func (s *gormStore) ReplaceStructure(ctx context.Context, frameworkID uuid.UUID, structure datatypes.JSON, reqs []models.FrameworkRequirement) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Model(&models.Framework{}).
			Where("id = ?", frameworkID).
			Update("structure", structure).Error
		if err != nil {
			return err
		}
		if len(reqs) == 0 {
			return nil
		}
		return tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "framework_id"}, {Name: "requirement_identifier"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"title", "description", "domain", "category", "subcategory", "display_order", "updated_at",
			}),
		}).Create(&reqs).Error
	})
}
