package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// GetScorecard serves GET /governance/scorecard?frameworkIds=a,b,c.
func (a *API) GetScorecard(c *gin.Context) {
	var ids []uuid.UUID
	if raw := strings.TrimSpace(c.Query("frameworkIds")); raw != "" {
		for _, part := range strings.Split(raw, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			id, err := uuid.Parse(part)
			if err != nil {
				a.badRequest(c, "invalid framework id "+part)
				return
			}
			ids = append(ids, id)
		}
	}

	resp, err := a.Scorecard.Generate(c.Request.Context(), ids)
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
