package controls

import (
	"context"
	"fmt"
	"strings"

	"grc-backoffice/internal/apperr"
	"grc-backoffice/internal/models"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Trigger starts the workflows attached to an entity event.
type Trigger interface {
	CheckAndTrigger(ctx context.Context, entityType models.EntityType, entityID string, trigger models.WorkflowTrigger, snapshot map[string]any) ([]models.WorkflowExecution, error)
}

type Service struct {
	store   Store
	trigger Trigger
	log     logrus.FieldLogger
}

func NewService(store Store, trigger Trigger, log logrus.FieldLogger) *Service {
	return &Service{store: store, trigger: trigger, log: log}
}

type Input struct {
	Identifier  *string    `json:"identifier"`
	Title       *string    `json:"title"`
	Description *string    `json:"description"`
	Domain      *string    `json:"domain"`
	OwnerID     *uuid.UUID `json:"owner_id"`
}

func (s *Service) List(ctx context.Context, f Filter) ([]models.UnifiedControl, error) {
	if f.Status != "" && !f.Status.Valid() {
		return nil, apperr.BadRequest("unknown implementation status %q", f.Status)
	}
	return s.store.List(ctx, f)
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*models.UnifiedControl, error) {
	return s.store.Get(ctx, id)
}

func (s *Service) Create(ctx context.Context, in Input) (*models.UnifiedControl, error) {
	c := &models.UnifiedControl{ImplementationStatus: models.ImplNotImplemented}
	applyInput(c, in)
	if c.Identifier == "" || c.Title == "" {
		return nil, apperr.BadRequest("identifier and title are required")
	}
	if err := s.ensureUnique(ctx, c); err != nil {
		return nil, err
	}

	if err := s.store.Create(ctx, c); err != nil {
		return nil, fmt.Errorf("creating control: %w", err)
	}
	return c, nil
}

func (s *Service) Update(ctx context.Context, id uuid.UUID, in Input) (*models.UnifiedControl, error) {
	c, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	identifier := c.Identifier
	applyInput(c, in)
	if c.Identifier == "" || c.Title == "" {
		return nil, apperr.BadRequest("identifier and title are required")
	}
	if c.Identifier != identifier {
		if err := s.ensureUnique(ctx, c); err != nil {
			return nil, err
		}
	}

	if err := s.store.Save(ctx, c); err != nil {
		return nil, fmt.Errorf("saving control: %w", err)
	}
	return c, nil
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	return s.store.Delete(ctx, id)
}

// SetStatus changes the implementation status and fires on_status_change workflows.
func (s *Service) SetStatus(ctx context.Context, id uuid.UUID, status models.ImplementationStatus) (*models.UnifiedControl, error) {
	if !status.Valid() {
		return nil, apperr.BadRequest("unknown implementation status %q", status)
	}
	c, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if c.ImplementationStatus == status {
		return c, nil
	}

	c.ImplementationStatus = status
	if err := s.store.Save(ctx, c); err != nil {
		return nil, fmt.Errorf("saving control: %w", err)
	}

	if s.trigger != nil {
		snap := map[string]any{
			"id":                    c.ID.String(),
			"identifier":            c.Identifier,
			"domain":                c.Domain,
			"implementation_status": string(c.ImplementationStatus),
		}
		if _, err := s.trigger.CheckAndTrigger(ctx, models.EntityControl, c.ID.String(), models.TriggerOnStatusChange, snap); err != nil {
			s.log.WithError(err).WithField("control_id", c.ID).Warn("workflow trigger failed")
		}
	}
	return c, nil
}

type MappingInput struct {
	FrameworkRequirementID uuid.UUID            `json:"framework_requirement_id" binding:"required"`
	UnifiedControlID       uuid.UUID            `json:"unified_control_id" binding:"required"`
	CoverageLevel          models.CoverageLevel `json:"coverage_level"`
	Notes                  string               `json:"notes"`
}

func (s *Service) CreateMapping(ctx context.Context, in MappingInput) (*models.FrameworkControlMapping, error) {
	if in.CoverageLevel == "" {
		in.CoverageLevel = models.CoverageFull
	}
	if !in.CoverageLevel.Valid() {
		return nil, apperr.BadRequest("unknown coverage level %q", in.CoverageLevel)
	}

	ok, err := s.store.RequirementExists(ctx, in.FrameworkRequirementID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperr.NotFound("Requirement with ID %s not found", in.FrameworkRequirementID)
	}
	if _, err := s.store.Get(ctx, in.UnifiedControlID); err != nil {
		return nil, err
	}

	existing, err := s.store.FindMapping(ctx, in.FrameworkRequirementID, in.UnifiedControlID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, apperr.BadRequest("control is already mapped to this requirement")
	}

	m := &models.FrameworkControlMapping{
		FrameworkRequirementID: in.FrameworkRequirementID,
		UnifiedControlID:       in.UnifiedControlID,
		CoverageLevel:          in.CoverageLevel,
		Notes:                  in.Notes,
	}
	if err := s.store.CreateMapping(ctx, m); err != nil {
		return nil, fmt.Errorf("creating mapping: %w", err)
	}
	return m, nil
}

func (s *Service) DeleteMapping(ctx context.Context, id uuid.UUID) error {
	return s.store.DeleteMapping(ctx, id)
}

func (s *Service) ControlMappings(ctx context.Context, controlID uuid.UUID) ([]models.FrameworkControlMapping, error) {
	if _, err := s.store.Get(ctx, controlID); err != nil {
		return nil, err
	}
	return s.store.ControlMappings(ctx, controlID)
}

func (s *Service) RequirementMappings(ctx context.Context, requirementID uuid.UUID) ([]models.FrameworkControlMapping, error) {
	ok, err := s.store.RequirementExists(ctx, requirementID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperr.NotFound("Requirement with ID %s not found", requirementID)
	}
	return s.store.RequirementMappings(ctx, requirementID)
}

func (s *Service) ensureUnique(ctx context.Context, c *models.UnifiedControl) error {
	taken, err := s.store.IdentifierTaken(ctx, c.Identifier, c.ID)
	if err != nil {
		return err
	}
	if taken {
		return apperr.BadRequest("control %s already exists", c.Identifier)
	}
	return nil
}

func applyInput(c *models.UnifiedControl, in Input) {
	if in.Identifier != nil {
		c.Identifier = strings.TrimSpace(*in.Identifier)
	}
	if in.Title != nil {
		c.Title = strings.TrimSpace(*in.Title)
	}
	if in.Description != nil {
		c.Description = *in.Description
	}
	if in.Domain != nil {
		c.Domain = strings.TrimSpace(*in.Domain)
	}
	if in.OwnerID != nil {
		c.OwnerID = in.OwnerID
	}
}
