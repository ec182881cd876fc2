package handlers

import (
	"net/http"

	"grc-backoffice/internal/controls"
	"grc-backoffice/internal/models"

	"github.com/gin-gonic/gin"
)

func (a *API) ListControls(c *gin.Context) {
	list, err := a.Controls.List(c.Request.Context(), controls.Filter{
		Status: models.ImplementationStatus(c.Query("status")),
		Domain: c.Query("domain"),
		Search: c.Query("search"),
	})
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (a *API) GetControl(c *gin.Context) {
	id, ok := a.idParam(c, "id")
	if !ok {
		return
	}
	ctl, err := a.Controls.Get(c.Request.Context(), id)
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, ctl)
}

func (a *API) CreateControl(c *gin.Context) {
	var in controls.Input
	if err := c.ShouldBindJSON(&in); err != nil {
		a.badRequest(c, "invalid control payload")
		return
	}
	ctl, err := a.Controls.Create(c.Request.Context(), in)
	if err != nil {
		a.fail(c, err)
		return
	}
	a.audit(c, "control", ctl.ID, "create", ctl.Identifier)
	c.JSON(http.StatusCreated, ctl)
}

func (a *API) UpdateControl(c *gin.Context) {
	id, ok := a.idParam(c, "id")
	if !ok {
		return
	}
	var in controls.Input
	if err := c.ShouldBindJSON(&in); err != nil {
		a.badRequest(c, "invalid control payload")
		return
	}
	ctl, err := a.Controls.Update(c.Request.Context(), id, in)
	if err != nil {
		a.fail(c, err)
		return
	}
	a.audit(c, "control", ctl.ID, "update", ctl.Identifier)
	c.JSON(http.StatusOK, ctl)
}

func (a *API) DeleteControl(c *gin.Context) {
	id, ok := a.idParam(c, "id")
	if !ok {
		return
	}
	if err := a.Controls.Delete(c.Request.Context(), id); err != nil {
		a.fail(c, err)
		return
	}
	a.audit(c, "control", id, "delete", "")
	c.Status(http.StatusNoContent)
}

type statusBody struct {
	Status string `json:"status" binding:"required"`
}

func (a *API) SetControlStatus(c *gin.Context) {
	id, ok := a.idParam(c, "id")
	if !ok {
		return
	}
	var body statusBody
	if err := c.ShouldBindJSON(&body); err != nil {
		a.badRequest(c, "status is required")
		return
	}
	ctl, err := a.Controls.SetStatus(c.Request.Context(), id, models.ImplementationStatus(body.Status))
	if err != nil {
		a.fail(c, err)
		return
	}
	a.audit(c, "control", ctl.ID, "status", body.Status)
	c.JSON(http.StatusOK, ctl)
}

func (a *API) ControlMappings(c *gin.Context) {
	id, ok := a.idParam(c, "id")
	if !ok {
		return
	}
	list, err := a.Controls.ControlMappings(c.Request.Context(), id)
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (a *API) RequirementMappings(c *gin.Context) {
	id, ok := a.idParam(c, "id")
	if !ok {
		return
	}
	list, err := a.Controls.RequirementMappings(c.Request.Context(), id)
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (a *API) CreateMapping(c *gin.Context) {
	var in controls.MappingInput
	if err := c.ShouldBindJSON(&in); err != nil {
		a.badRequest(c, "framework_requirement_id and unified_control_id are required")
		return
	}
	m, err := a.Controls.CreateMapping(c.Request.Context(), in)
	if err != nil {
		a.fail(c, err)
		return
	}
	a.audit(c, "mapping", m.ID, "create", string(m.CoverageLevel))
	c.JSON(http.StatusCreated, m)
}

func (a *API) DeleteMapping(c *gin.Context) {
	id, ok := a.idParam(c, "id")
	if !ok {
		return
	}
	if err := a.Controls.DeleteMapping(c.Request.Context(), id); err != nil {
		a.fail(c, err)
		return
	}
	a.audit(c, "mapping", id, "delete", "")
	c.Status(http.StatusNoContent)
}
