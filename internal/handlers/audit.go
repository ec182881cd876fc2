package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (a *API) ListAuditLogs(c *gin.Context) {
	logs, err := a.Audit.List(c.Query("entity"), c.Query("entityId"), queryInt(c, "limit", 200))
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, logs)
}
