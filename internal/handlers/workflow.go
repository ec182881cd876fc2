package handlers

import (
	"net/http"

	"grc-backoffice/internal/models"
	"grc-backoffice/internal/workflow"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// ====== Workflows ======

func (a *API) ListWorkflows(c *gin.Context) {
	list, err := a.Workflows.List(c.Request.Context())
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (a *API) GetWorkflow(c *gin.Context) {
	id, ok := a.idParam(c, "id")
	if !ok {
		return
	}
	w, err := a.Workflows.Get(c.Request.Context(), id)
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, w)
}

func (a *API) CreateWorkflow(c *gin.Context) {
	var in workflow.WorkflowInput
	if err := c.ShouldBindJSON(&in); err != nil {
		a.badRequest(c, "invalid workflow payload")
		return
	}
	w, err := a.Workflows.Create(c.Request.Context(), in, a.callerIDPtr(c))
	if err != nil {
		a.fail(c, err)
		return
	}
	a.audit(c, "workflow", w.ID, "create", w.Name)
	c.JSON(http.StatusCreated, w)
}

func (a *API) UpdateWorkflow(c *gin.Context) {
	id, ok := a.idParam(c, "id")
	if !ok {
		return
	}
	var in workflow.WorkflowInput
	if err := c.ShouldBindJSON(&in); err != nil {
		a.badRequest(c, "invalid workflow payload")
		return
	}
	w, err := a.Workflows.Update(c.Request.Context(), id, in)
	if err != nil {
		a.fail(c, err)
		return
	}
	a.audit(c, "workflow", w.ID, "update", w.Name)
	c.JSON(http.StatusOK, w)
}

func (a *API) DeleteWorkflow(c *gin.Context) {
	id, ok := a.idParam(c, "id")
	if !ok {
		return
	}
	if err := a.Workflows.Delete(c.Request.Context(), id); err != nil {
		a.fail(c, err)
		return
	}
	a.audit(c, "workflow", id, "delete", "")
	c.Status(http.StatusNoContent)
}

type executeBody struct {
	EntityType models.EntityType `json:"entityType" binding:"required"`
	EntityID   string            `json:"entityId" binding:"required"`
	InputData  map[string]any    `json:"inputData"`
}

// ExecuteWorkflow runs a workflow by hand. A failed run still returns the execution record.
func (a *API) ExecuteWorkflow(c *gin.Context) {
	id, ok := a.idParam(c, "id")
	if !ok {
		return
	}
	var body executeBody
	if err := c.ShouldBindJSON(&body); err != nil {
		a.badRequest(c, "entityType and entityId are required")
		return
	}
	if !body.EntityType.Valid() {
		a.badRequest(c, "unknown entity type "+string(body.EntityType))
		return
	}

	exec, err := a.Workflows.Execute(c.Request.Context(), id, body.EntityType, body.EntityID, body.InputData)
	if exec == nil {
		a.fail(c, err)
		return
	}
	a.audit(c, "workflow", id, "execute", string(body.EntityType)+" "+body.EntityID)
	if err != nil {
		a.Log.WithError(err).WithField("execution_id", exec.ID).Warn("workflow execution failed")
	}
	c.JSON(http.StatusCreated, exec)
}

type triggerBody struct {
	EntityType models.EntityType      `json:"entityType" binding:"required"`
	Trigger    models.WorkflowTrigger `json:"trigger" binding:"required"`
	Data       map[string]any         `json:"data"`
}

// MatchTrigger is a dry run: it reports which workflows the rules would start.
func (a *API) MatchTrigger(c *gin.Context) {
	var body triggerBody
	if err := c.ShouldBindJSON(&body); err != nil {
		a.badRequest(c, "entityType and trigger are required")
		return
	}
	if !body.EntityType.Valid() || !body.Trigger.Valid() {
		a.badRequest(c, "unknown entity type or trigger")
		return
	}

	ids, err := a.Rules.MatchWorkflows(c.Request.Context(), body.EntityType, body.Trigger, body.Data)
	if err != nil {
		a.fail(c, err)
		return
	}
	if ids == nil {
		ids = []uuid.UUID{}
	}
	c.JSON(http.StatusOK, gin.H{"workflowIds": ids})
}

// ====== Trigger rules ======

func (a *API) ListRules(c *gin.Context) {
	var filter workflow.RuleFilter
	if raw := c.Query("workflowId"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			a.badRequest(c, "invalid workflowId")
			return
		}
		filter.WorkflowID = &id
	}
	filter.EntityType = models.EntityType(c.Query("entityType"))

	rules, err := a.Rules.List(c.Request.Context(), filter)
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, rules)
}

func (a *API) GetRule(c *gin.Context) {
	id, ok := a.idParam(c, "id")
	if !ok {
		return
	}
	rule, err := a.Rules.Get(c.Request.Context(), id)
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, rule)
}

func (a *API) CreateRule(c *gin.Context) {
	var in workflow.RuleInput
	if err := c.ShouldBindJSON(&in); err != nil {
		a.badRequest(c, "invalid rule payload")
		return
	}
	rule, err := a.Rules.Create(c.Request.Context(), in)
	if err != nil {
		a.fail(c, err)
		return
	}
	a.audit(c, "workflow_rule", rule.ID, "create", rule.Name)
	c.JSON(http.StatusCreated, rule)
}

func (a *API) UpdateRule(c *gin.Context) {
	id, ok := a.idParam(c, "id")
	if !ok {
		return
	}
	var in workflow.RuleInput
	if err := c.ShouldBindJSON(&in); err != nil {
		a.badRequest(c, "invalid rule payload")
		return
	}
	rule, err := a.Rules.Update(c.Request.Context(), id, in)
	if err != nil {
		a.fail(c, err)
		return
	}
	a.audit(c, "workflow_rule", rule.ID, "update", rule.Name)
	c.JSON(http.StatusOK, rule)
}

func (a *API) DeleteRule(c *gin.Context) {
	id, ok := a.idParam(c, "id")
	if !ok {
		return
	}
	if err := a.Rules.Delete(c.Request.Context(), id); err != nil {
		a.fail(c, err)
		return
	}
	a.audit(c, "workflow_rule", id, "delete", "")
	c.Status(http.StatusNoContent)
}

// ====== Executions & approvals ======

func (a *API) ListExecutions(c *gin.Context) {
	filter := workflow.ExecutionFilter{
		EntityType: models.EntityType(c.Query("entityType")),
		Status:     models.ExecutionStatus(c.Query("status")),
		Limit:      queryInt(c, "limit", 0),
	}
	if raw := c.Query("workflowId"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			a.badRequest(c, "invalid workflowId")
			return
		}
		filter.WorkflowID = &id
	}

	list, err := a.Workflows.Executions(c.Request.Context(), filter)
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (a *API) GetExecution(c *gin.Context) {
	id, ok := a.idParam(c, "id")
	if !ok {
		return
	}
	exec, err := a.Workflows.Execution(c.Request.Context(), id)
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, exec)
}

func (a *API) MyApprovals(c *gin.Context) {
	list, err := a.Workflows.PendingApprovals(c.Request.Context(), a.callerID(c))
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (a *API) DecideApproval(c *gin.Context) {
	id, ok := a.idParam(c, "id")
	if !ok {
		return
	}
	var d workflow.Decision
	if err := c.ShouldBindJSON(&d); err != nil {
		a.badRequest(c, "invalid approval payload")
		return
	}
	if err := a.Workflows.Approve(c.Request.Context(), id, a.callerID(c), d); err != nil {
		a.fail(c, err)
		return
	}
	a.audit(c, "workflow_approval", id, string(d.Status), d.Comments)
	c.JSON(http.StatusOK, gin.H{"status": d.Status})
}
