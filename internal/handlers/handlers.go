package handlers

import (
	"net/http"
	"strconv"

	"grc-backoffice/internal/apperr"
	"grc-backoffice/internal/assessment"
	"grc-backoffice/internal/auth"
	"grc-backoffice/internal/controls"
	"grc-backoffice/internal/database"
	"grc-backoffice/internal/framework"
	"grc-backoffice/internal/middleware"
	"grc-backoffice/internal/notification"
	"grc-backoffice/internal/scorecard"
	"grc-backoffice/internal/workflow"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// API holds the services the HTTP handlers call into.
type API struct {
	DB            *gorm.DB
	Tokens        *auth.Tokens
	Audit         *database.Auditor
	Scorecard     *scorecard.Service
	Frameworks    *framework.Service
	Controls      *controls.Service
	Assessments   *assessment.Service
	Workflows     *workflow.Service
	Rules         *workflow.RuleService
	Notifications *notification.Service
	Hub           *notification.Hub
	Log           logrus.FieldLogger
}

// fail writes the error as {"error": ...}. Unexpected errors are logged and hidden.
func (a *API) fail(c *gin.Context, err error) {
	status := apperr.HTTPStatus(err)
	if status == http.StatusInternalServerError {
		a.Log.WithError(err).WithFields(logrus.Fields{
			"method": c.Request.Method,
			"path":   c.FullPath(),
		}).Error("request failed")
		c.JSON(status, gin.H{"error": "internal server error"})
		return
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func (a *API) badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": msg})
}

// idParam parses a uuid path parameter, answering 400 when it is malformed.
func (a *API) idParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		a.badRequest(c, "invalid "+name)
		return uuid.Nil, false
	}
	return id, true
}

func (a *API) callerID(c *gin.Context) uuid.UUID {
	id, _ := middleware.CurrentUserID(c)
	return id
}

func (a *API) callerIDPtr(c *gin.Context) *uuid.UUID {
	id, ok := middleware.CurrentUserID(c)
	if !ok {
		return nil
	}
	return &id
}

func (a *API) audit(c *gin.Context, entity string, entityID uuid.UUID, action, details string) {
	a.Audit.Record(a.callerID(c), entity, entityID.String(), action, details)
}

func queryInt(c *gin.Context, name string, def int) int {
	raw := c.Query(name)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return n
}
