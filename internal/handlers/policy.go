package handlers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"grc-backoffice/internal/apperr"
	"grc-backoffice/internal/models"
	"grc-backoffice/internal/workflow"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type policyInput struct {
	Title         *string    `json:"title"`
	PolicyType    *string    `json:"policy_type"`
	Version       *string    `json:"version"`
	Content       *string    `json:"content"`
	OwnerID       *uuid.UUID `json:"owner_id"`
	EffectiveDate *time.Time `json:"effective_date"`
	ReviewDate    *time.Time `json:"review_date"`
}

func (in policyInput) apply(p *models.Policy) {
	if in.Title != nil {
		p.Title = strings.TrimSpace(*in.Title)
	}
	if in.PolicyType != nil {
		p.PolicyType = *in.PolicyType
	}
	if in.Version != nil {
		p.Version = *in.Version
	}
	if in.Content != nil {
		p.Content = *in.Content
	}
	if in.OwnerID != nil {
		p.OwnerID = in.OwnerID
	}
	if in.EffectiveDate != nil {
		p.EffectiveDate = in.EffectiveDate
	}
	if in.ReviewDate != nil {
		p.ReviewDate = in.ReviewDate
	}
}

func (a *API) ListPolicies(c *gin.Context) {
	q := a.DB.WithContext(c.Request.Context()).Order("created_at desc")
	if status := c.Query("status"); status != "" {
		q = q.Where("status = ?", status)
	}
	if search := c.Query("search"); search != "" {
		q = q.Where("title ILIKE ?", "%"+search+"%")
	}

	policies := []models.Policy{}
	if err := q.Find(&policies).Error; err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, policies)
}

func (a *API) loadPolicy(c *gin.Context) (*models.Policy, bool) {
	id, ok := a.idParam(c, "id")
	if !ok {
		return nil, false
	}
	var p models.Policy
	if err := a.DB.WithContext(c.Request.Context()).First(&p, "id = ?", id).Error; err != nil {
		a.fail(c, apperr.FromDB(err, "Policy", id))
		return nil, false
	}
	return &p, true
}

func (a *API) GetPolicy(c *gin.Context) {
	p, ok := a.loadPolicy(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, p)
}

func (a *API) CreatePolicy(c *gin.Context) {
	var in policyInput
	if err := c.ShouldBindJSON(&in); err != nil {
		a.badRequest(c, "invalid policy payload")
		return
	}
	p := models.Policy{Status: models.PolicyDraft, Version: "1.0"}
	in.apply(&p)
	if p.Title == "" {
		a.badRequest(c, "title is required")
		return
	}

	if err := a.DB.WithContext(c.Request.Context()).Create(&p).Error; err != nil {
		a.fail(c, err)
		return
	}
	a.audit(c, "policy", p.ID, "create", p.Title)
	a.firePolicy(c.Request.Context(), &p, models.TriggerOnCreate)

	c.JSON(http.StatusCreated, p)
}

func (a *API) UpdatePolicy(c *gin.Context) {
	p, ok := a.loadPolicy(c)
	if !ok {
		return
	}
	var in policyInput
	if err := c.ShouldBindJSON(&in); err != nil {
		a.badRequest(c, "invalid policy payload")
		return
	}
	in.apply(p)
	if p.Title == "" {
		a.badRequest(c, "title is required")
		return
	}

	if err := a.DB.WithContext(c.Request.Context()).Save(p).Error; err != nil {
		a.fail(c, err)
		return
	}
	a.audit(c, "policy", p.ID, "update", p.Title)
	a.firePolicy(c.Request.Context(), p, models.TriggerOnUpdate)

	c.JSON(http.StatusOK, p)
}

func (a *API) UpdatePolicyStatus(c *gin.Context) {
	p, ok := a.loadPolicy(c)
	if !ok {
		return
	}
	var body statusBody
	if err := c.ShouldBindJSON(&body); err != nil {
		a.badRequest(c, "status is required")
		return
	}
	next := models.PolicyStatus(body.Status)
	if !next.Valid() {
		a.badRequest(c, "unknown policy status "+body.Status)
		return
	}
	if next == p.Status {
		c.JSON(http.StatusOK, p)
		return
	}

	p.Status = next
	if err := a.DB.WithContext(c.Request.Context()).Model(p).Update("status", next).Error; err != nil {
		a.fail(c, err)
		return
	}
	a.audit(c, "policy", p.ID, "status", body.Status)
	a.firePolicy(c.Request.Context(), p, models.TriggerOnStatusChange)

	c.JSON(http.StatusOK, p)
}

// DeletePolicy soft-deletes the policy.
func (a *API) DeletePolicy(c *gin.Context) {
	p, ok := a.loadPolicy(c)
	if !ok {
		return
	}
	if err := a.DB.WithContext(c.Request.Context()).Delete(p).Error; err != nil {
		a.fail(c, err)
		return
	}
	a.audit(c, "policy", p.ID, "delete", p.Title)
	c.Status(http.StatusNoContent)
}

// firePolicy runs matching workflows. Failures never fail the request.
func (a *API) firePolicy(ctx context.Context, p *models.Policy, trigger models.WorkflowTrigger) {
	snap, err := workflow.Snapshot(p)
	if err != nil {
		a.Log.WithError(err).Warn("policy snapshot failed")
		return
	}
	if _, err := a.Workflows.CheckAndTrigger(ctx, models.EntityPolicy, p.ID.String(), trigger, snap); err != nil {
		a.Log.WithError(err).WithField("policy_id", p.ID).Warn("workflow trigger failed")
	}
}
