package framework

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"grc-backoffice/internal/apperr"
	"grc-backoffice/internal/models"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"
)

type Service struct {
	store Store
	log   logrus.FieldLogger
}

func NewService(store Store, log logrus.FieldLogger) *Service {
	return &Service{store: store, log: log}
}

type Input struct {
	Name        *string                 `json:"name"`
	Code        *string                 `json:"code"`
	Version     *string                 `json:"version"`
	Status      *models.FrameworkStatus `json:"status"`
	Description *string                 `json:"description"`
}

func (s *Service) List(ctx context.Context, status models.FrameworkStatus) ([]models.Framework, error) {
	return s.store.List(ctx, status)
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*models.Framework, error) {
	return s.store.Get(ctx, id)
}

func (s *Service) Create(ctx context.Context, in Input) (*models.Framework, error) {
	fw := &models.Framework{Status: models.FrameworkDraft}
	if err := applyInput(fw, in); err != nil {
		return nil, err
	}
	if fw.Name == "" || fw.Code == "" || fw.Version == "" {
		return nil, apperr.BadRequest("name, code and version are required")
	}
	if err := s.ensureUnique(ctx, fw); err != nil {
		return nil, err
	}

	if err := s.store.Create(ctx, fw); err != nil {
		return nil, fmt.Errorf("creating framework: %w", err)
	}
	return fw, nil
}

func (s *Service) Update(ctx context.Context, id uuid.UUID, in Input) (*models.Framework, error) {
	fw, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	code, version := fw.Code, fw.Version
	if err := applyInput(fw, in); err != nil {
		return nil, err
	}
	if fw.Code != code || fw.Version != version {
		if err := s.ensureUnique(ctx, fw); err != nil {
			return nil, err
		}
	}

	if err := s.store.Save(ctx, fw); err != nil {
		return nil, fmt.Errorf("saving framework: %w", err)
	}
	return fw, nil
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	return s.store.Delete(ctx, id)
}

func (s *Service) Requirements(ctx context.Context, frameworkID uuid.UUID) ([]models.FrameworkRequirement, error) {
	if _, err := s.store.Get(ctx, frameworkID); err != nil {
		return nil, err
	}
	return s.store.Requirements(ctx, frameworkID)
}

// ImportStructure replaces the framework's nested document and upserts its requirement rows
// by identifier. Rows not present in the document are left untouched.
func (s *Service) ImportStructure(ctx context.Context, frameworkID uuid.UUID, data []byte, format Format) ([]models.FrameworkRequirement, error) {
	if _, err := s.store.Get(ctx, frameworkID); err != nil {
		return nil, err
	}

	st, err := ParseStructure(data, format)
	if err != nil {
		return nil, err
	}
	reqs, err := Flatten(frameworkID, st)
	if err != nil {
		return nil, err
	}

	doc, err := json.Marshal(st)
	if err != nil {
		return nil, fmt.Errorf("encoding structure: %w", err)
	}
	if err := s.store.ReplaceStructure(ctx, frameworkID, datatypes.JSON(doc), reqs); err != nil {
		return nil, fmt.Errorf("importing structure: %w", err)
	}

	s.log.WithFields(logrus.Fields{
		"framework_id": frameworkID,
		"requirements": len(reqs),
	}).Info("framework structure imported")

	return reqs, nil
}

func (s *Service) ensureUnique(ctx context.Context, fw *models.Framework) error {
	existing, err := s.store.FindByCodeVersion(ctx, fw.Code, fw.Version)
	if err != nil {
		return err
	}
	if existing != nil && existing.ID != fw.ID {
		return apperr.BadRequest("framework %s version %s already exists", fw.Code, fw.Version)
	}
	return nil
}

func applyInput(fw *models.Framework, in Input) error {
	if in.Name != nil {
		fw.Name = strings.TrimSpace(*in.Name)
	}
	if in.Code != nil {
		fw.Code = strings.TrimSpace(*in.Code)
	}
	if in.Version != nil {
		fw.Version = strings.TrimSpace(*in.Version)
	}
	if in.Description != nil {
		fw.Description = *in.Description
	}
	if in.Status != nil {
		switch *in.Status {
		case models.FrameworkActive, models.FrameworkDraft, models.FrameworkDeprecated:
			fw.Status = *in.Status
		default:
			return apperr.BadRequest("unknown framework status %q", *in.Status)
		}
	}
	return nil
}
