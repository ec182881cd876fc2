package handlers

import (
	"net/http"

	"grc-backoffice/internal/assessment"
	"grc-backoffice/internal/middleware"
	"grc-backoffice/internal/models"

	"github.com/gin-gonic/gin"
)

func (a *API) ListAssessments(c *gin.Context) {
	page, err := a.Assessments.List(c.Request.Context(), assessment.Filter{
		Status: models.AssessmentStatus(c.Query("status")),
		Search: c.Query("search"),
		Page:   queryInt(c, "page", 1),
		Limit:  queryInt(c, "limit", 20),
	})
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (a *API) GetAssessment(c *gin.Context) {
	id, ok := a.idParam(c, "id")
	if !ok {
		return
	}
	res, err := a.Assessments.Get(c.Request.Context(), id)
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (a *API) CreateAssessment(c *gin.Context) {
	var in assessment.CreateInput
	if err := c.ShouldBindJSON(&in); err != nil {
		a.badRequest(c, "invalid assessment payload")
		return
	}
	res, err := a.Assessments.Create(c.Request.Context(), in, a.callerIDPtr(c))
	if err != nil {
		a.fail(c, err)
		return
	}
	a.audit(c, "assessment", res.ID, "create", res.Name)
	c.JSON(http.StatusCreated, res)
}

func (a *API) UpdateAssessmentStatus(c *gin.Context) {
	id, ok := a.idParam(c, "id")
	if !ok {
		return
	}
	var body statusBody
	if err := c.ShouldBindJSON(&body); err != nil {
		a.badRequest(c, "status is required")
		return
	}

	role, _ := middleware.CurrentRole(c)
	res, err := a.Assessments.UpdateStatus(c.Request.Context(), id, role, models.AssessmentStatus(body.Status))
	if err != nil {
		a.fail(c, err)
		return
	}
	a.audit(c, "assessment", res.ID, "status", body.Status)
	c.JSON(http.StatusOK, res)
}

func (a *API) ListAssessmentResults(c *gin.Context) {
	id, ok := a.idParam(c, "id")
	if !ok {
		return
	}
	results, err := a.Assessments.Results(c.Request.Context(), id)
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, results)
}

func (a *API) AddAssessmentResult(c *gin.Context) {
	id, ok := a.idParam(c, "id")
	if !ok {
		return
	}
	var in assessment.ResultInput
	if err := c.ShouldBindJSON(&in); err != nil {
		a.badRequest(c, "unified_control_id and result are required")
		return
	}
	res, err := a.Assessments.AddResult(c.Request.Context(), id, in, a.callerIDPtr(c))
	if err != nil {
		a.fail(c, err)
		return
	}
	a.audit(c, "assessment", id, "result", string(res.Result))
	c.JSON(http.StatusCreated, res)
}
