package handlers

import (
	"io"
	"net/http"

	"grc-backoffice/internal/framework"
	"grc-backoffice/internal/models"

	"github.com/gin-gonic/gin"
)

const maxImportSize = 5 << 20

func (a *API) ListFrameworks(c *gin.Context) {
	list, err := a.Frameworks.List(c.Request.Context(), models.FrameworkStatus(c.Query("status")))
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (a *API) GetFramework(c *gin.Context) {
	id, ok := a.idParam(c, "id")
	if !ok {
		return
	}
	fw, err := a.Frameworks.Get(c.Request.Context(), id)
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, fw)
}

func (a *API) CreateFramework(c *gin.Context) {
	var in framework.Input
	if err := c.ShouldBindJSON(&in); err != nil {
		a.badRequest(c, "invalid framework payload")
		return
	}
	fw, err := a.Frameworks.Create(c.Request.Context(), in)
	if err != nil {
		a.fail(c, err)
		return
	}
	a.audit(c, "framework", fw.ID, "create", fw.Code+" "+fw.Version)
	c.JSON(http.StatusCreated, fw)
}

func (a *API) UpdateFramework(c *gin.Context) {
	id, ok := a.idParam(c, "id")
	if !ok {
		return
	}
	var in framework.Input
	if err := c.ShouldBindJSON(&in); err != nil {
		a.badRequest(c, "invalid framework payload")
		return
	}
	fw, err := a.Frameworks.Update(c.Request.Context(), id, in)
	if err != nil {
		a.fail(c, err)
		return
	}
	a.audit(c, "framework", fw.ID, "update", fw.Code+" "+fw.Version)
	c.JSON(http.StatusOK, fw)
}

func (a *API) DeleteFramework(c *gin.Context) {
	id, ok := a.idParam(c, "id")
	if !ok {
		return
	}
	if err := a.Frameworks.Delete(c.Request.Context(), id); err != nil {
		a.fail(c, err)
		return
	}
	a.audit(c, "framework", id, "delete", "")
	c.Status(http.StatusNoContent)
}

func (a *API) ListRequirements(c *gin.Context) {
	id, ok := a.idParam(c, "id")
	if !ok {
		return
	}
	reqs, err := a.Frameworks.Requirements(c.Request.Context(), id)
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, reqs)
}

// ImportStructure takes the raw document as the request body. The format comes from
// ?format=, falling back to the Content-Type.
func (a *API) ImportStructure(c *gin.Context) {
	id, ok := a.idParam(c, "id")
	if !ok {
		return
	}

	data, err := io.ReadAll(io.LimitReader(c.Request.Body, maxImportSize))
	if err != nil {
		a.badRequest(c, "could not read body")
		return
	}

	format := framework.Format(c.Query("format"))
	if format == "" {
		format = framework.FormatFromName(c.ContentType())
	}

	reqs, err := a.Frameworks.ImportStructure(c.Request.Context(), id, data, format)
	if err != nil {
		a.fail(c, err)
		return
	}
	a.audit(c, "framework", id, "import", "structure imported")
	c.JSON(http.StatusOK, gin.H{"imported": len(reqs), "requirements": reqs})
}
