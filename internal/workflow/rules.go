package workflow

import (
	"context"
	"encoding/json"
	"sort"

	"grc-backoffice/internal/apperr"
	"grc-backoffice/internal/models"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type RuleFilter struct {
	WorkflowID *uuid.UUID
	EntityType models.EntityType
}

type RuleStore interface {
	ActiveRules(ctx context.Context, entityType models.EntityType, trigger models.WorkflowTrigger) ([]models.WorkflowTriggerRule, error)
	ListRules(ctx context.Context, filter RuleFilter) ([]models.WorkflowTriggerRule, error)
	GetRule(ctx context.Context, id uuid.UUID) (*models.WorkflowTriggerRule, error)
	CreateRule(ctx context.Context, rule *models.WorkflowTriggerRule) error
	SaveRule(ctx context.Context, rule *models.WorkflowTriggerRule) error
	DeleteRule(ctx context.Context, id uuid.UUID) error
}

type gormRuleStore struct {
	db *gorm.DB
}

func NewGormRuleStore(db *gorm.DB) RuleStore {
	return &gormRuleStore{db: db}
}

func (s *gormRuleStore) ActiveRules(ctx context.Context, entityType models.EntityType, trigger models.WorkflowTrigger) ([]models.WorkflowTriggerRule, error) {
	var rules []models.WorkflowTriggerRule
	err := s.db.WithContext(ctx).
		Where(`entity_type = ? AND "trigger" = ? AND is_active = ?`, entityType, trigger, true).
		Order("priority desc").
		Order("created_at asc").
		Find(&rules).Error
	return rules, err
}

func (s *gormRuleStore) ListRules(ctx context.Context, filter RuleFilter) ([]models.WorkflowTriggerRule, error) {
	q := s.db.WithContext(ctx).Order("priority desc")
	if filter.WorkflowID != nil {
		q = q.Where("workflow_id = ?", *filter.WorkflowID)
	}
	if filter.EntityType != "" {
		q = q.Where("entity_type = ?", filter.EntityType)
	}
	var rules []models.WorkflowTriggerRule
	err := q.Find(&rules).Error
	return rules, err
}

func (s *gormRuleStore) GetRule(ctx context.Context, id uuid.UUID) (*models.WorkflowTriggerRule, error) {
	var rule models.WorkflowTriggerRule
	if err := s.db.WithContext(ctx).First(&rule, "id = ?", id).Error; err != nil {
		return nil, apperr.FromDB(err, "Trigger rule", id)
	}
	return &rule, nil
}

func (s *gormRuleStore) CreateRule(ctx context.Context, rule *models.WorkflowTriggerRule) error {
	return s.db.WithContext(ctx).Create(rule).Error
}

func (s *gormRuleStore) SaveRule(ctx context.Context, rule *models.WorkflowTriggerRule) error {
	return s.db.WithContext(ctx).Save(rule).Error
}

func (s *gormRuleStore) DeleteRule(ctx context.Context, id uuid.UUID) error {
	res := s.db.WithContext(ctx).Delete(&models.WorkflowTriggerRule{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apperr.NotFound("Trigger rule with ID %s not found", id)
	}
	return nil
}

// RuleInput carries create and patch payloads. Nil fields are left untouched on patch.
type RuleInput struct {
	WorkflowID  *uuid.UUID              `json:"workflow_id"`
	Name        *string                 `json:"name"`
	Description *string                 `json:"description"`
	EntityType  *models.EntityType      `json:"entity_type"`
	Trigger     *models.WorkflowTrigger `json:"trigger"`
	Conditions  *[]models.Condition     `json:"conditions"`
	Priority    *int                    `json:"priority"`
	IsActive    *bool                   `json:"is_active"`
}

type RuleService struct {
	rules RuleStore
	log   logrus.FieldLogger
}

func NewRuleService(rules RuleStore, log logrus.FieldLogger) *RuleService {
	return &RuleService{rules: rules, log: log}
}

// MatchWorkflows returns the workflow ids whose active rules for (entityType, trigger) hold
// for the snapshot, highest priority first. Rules with undecodable conditions do not match.
func (s *RuleService) MatchWorkflows(ctx context.Context, entityType models.EntityType, trigger models.WorkflowTrigger, snapshot map[string]any) ([]uuid.UUID, error) {
	rules, err := s.rules.ActiveRules(ctx, entityType, trigger)
	if err != nil {
		return nil, err
	}
	return matchRules(rules, snapshot, s.log), nil
}

func matchRules(rules []models.WorkflowTriggerRule, snapshot map[string]any, log logrus.FieldLogger) []uuid.UUID {
	sort.SliceStable(rules, func(i, j int) bool {
		return rules[i].Priority > rules[j].Priority
	})

	var ids []uuid.UUID
	for _, rule := range rules {
		if !rule.IsActive || rule.Lifecycle().IsDeleted() {
			continue
		}
		conditions, err := rule.ParsedConditions()
		if err != nil {
			log.WithError(err).WithField("rule_id", rule.ID).Warn("trigger rule has malformed conditions, skipped")
			continue
		}
		if Evaluate(conditions, snapshot) {
			ids = append(ids, rule.WorkflowID)
		}
	}
	return ids
}

func (s *RuleService) List(ctx context.Context, filter RuleFilter) ([]models.WorkflowTriggerRule, error) {
	return s.rules.ListRules(ctx, filter)
}

func (s *RuleService) Get(ctx context.Context, id uuid.UUID) (*models.WorkflowTriggerRule, error) {
	return s.rules.GetRule(ctx, id)
}

func (s *RuleService) Create(ctx context.Context, in RuleInput) (*models.WorkflowTriggerRule, error) {
	if in.WorkflowID == nil || *in.WorkflowID == uuid.Nil {
		return nil, apperr.BadRequest("workflow_id is required")
	}
	if in.EntityType == nil || *in.EntityType == "" || in.Trigger == nil || *in.Trigger == "" {
		return nil, apperr.BadRequest("entity_type and trigger are required")
	}

	rule := &models.WorkflowTriggerRule{IsActive: true}
	if err := applyRuleInput(rule, in); err != nil {
		return nil, err
	}
	if err := s.rules.CreateRule(ctx, rule); err != nil {
		return nil, err
	}
	return rule, nil
}

func (s *RuleService) Update(ctx context.Context, id uuid.UUID, in RuleInput) (*models.WorkflowTriggerRule, error) {
	rule, err := s.rules.GetRule(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := applyRuleInput(rule, in); err != nil {
		return nil, err
	}
	if err := s.rules.SaveRule(ctx, rule); err != nil {
		return nil, err
	}
	return rule, nil
}

func (s *RuleService) Delete(ctx context.Context, id uuid.UUID) error {
	return s.rules.DeleteRule(ctx, id)
}

func applyRuleInput(rule *models.WorkflowTriggerRule, in RuleInput) error {
	if in.WorkflowID != nil {
		rule.WorkflowID = *in.WorkflowID
	}
	if in.Name != nil {
		rule.Name = *in.Name
	}
	if in.Description != nil {
		rule.Description = *in.Description
	}
	if in.EntityType != nil {
		rule.EntityType = *in.EntityType
	}
	if in.Trigger != nil {
		rule.Trigger = *in.Trigger
	}
	if in.Priority != nil {
		rule.Priority = *in.Priority
	}
	if in.IsActive != nil {
		rule.IsActive = *in.IsActive
	}
	if in.Conditions != nil {
		for i, c := range *in.Conditions {
			if c.Field == "" {
				return apperr.BadRequest("condition %d: field is required", i)
			}
			if !validOperator(c.Operator) {
				return apperr.BadRequest("condition %d: unknown operator %q", i, c.Operator)
			}
		}
		raw, err := json.Marshal(*in.Conditions)
		if err != nil {
			return apperr.BadRequest("conditions: %v", err)
		}
		rule.Conditions = datatypes.JSON(raw)
	}
	return nil
}
