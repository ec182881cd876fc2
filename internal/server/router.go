package server

import (
	"net/http"

	"grc-backoffice/internal/config"
	"grc-backoffice/internal/handlers"
	"grc-backoffice/internal/middleware"
	"grc-backoffice/internal/models"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
)

func NewRouter(cfg *config.Config, api *handlers.API) *gin.Engine {
	gin.SetMode(cfg.GinMode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger(api.Log))

	store := cookie.NewStore([]byte(cfg.SessionSecret))
	store.Options(sessions.Options{Path: "/", HttpOnly: true, MaxAge: 86400})
	r.Use(sessions.Sessions("grc_session", store))

	var (
		writers   = middleware.RequireRole(models.RoleAdmin, models.RoleComplianceManager)
		assessors = middleware.RequireRole(models.RoleAdmin, models.RoleComplianceManager, models.RoleAuditor)
		admins    = middleware.RequireRole(models.RoleAdmin)
	)

	// ====== AUTH ======
	r.POST("/auth/login", api.Login)
	r.POST("/auth/logout", api.Logout)
	r.POST("/auth/token", api.IssueToken)

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	auth := r.Group("/")
	auth.Use(middleware.RequireAuth(api.Tokens))

	auth.GET("/auth/me", middleware.InjectUser(api.DB), api.Me)

	// ====== SCORECARD ======
	auth.GET("/governance/scorecard", api.GetScorecard)

	// ====== FRAMEWORKS ======
	auth.GET("/frameworks", api.ListFrameworks)
	auth.POST("/frameworks", writers, api.CreateFramework)
	auth.GET("/frameworks/:id", api.GetFramework)
	auth.PUT("/frameworks/:id", writers, api.UpdateFramework)
	auth.DELETE("/frameworks/:id", admins, api.DeleteFramework)
	auth.GET("/frameworks/:id/requirements", api.ListRequirements)
	auth.POST("/frameworks/:id/import", writers, api.ImportStructure)

	// ====== CONTROLS & MAPPINGS ======
	auth.GET("/controls", api.ListControls)
	auth.POST("/controls", writers, api.CreateControl)
	auth.GET("/controls/:id", api.GetControl)
	auth.PUT("/controls/:id", writers, api.UpdateControl)
	auth.DELETE("/controls/:id", admins, api.DeleteControl)
	auth.PATCH("/controls/:id/status", writers, api.SetControlStatus)
	auth.GET("/controls/:id/mappings", api.ControlMappings)
	auth.GET("/requirements/:id/mappings", api.RequirementMappings)
	auth.POST("/mappings", writers, api.CreateMapping)
	auth.DELETE("/mappings/:id", writers, api.DeleteMapping)

	// ====== ASSESSMENTS ======
	auth.GET("/assessments", api.ListAssessments)
	auth.POST("/assessments", writers, api.CreateAssessment)
	auth.GET("/assessments/:id", api.GetAssessment)
	auth.PATCH("/assessments/:id/status", assessors, api.UpdateAssessmentStatus)
	auth.GET("/assessments/:id/results", api.ListAssessmentResults)
	auth.POST("/assessments/:id/results", assessors, api.AddAssessmentResult)

	// ====== POLICIES ======
	auth.GET("/policies", api.ListPolicies)
	auth.POST("/policies", writers, api.CreatePolicy)
	auth.GET("/policies/:id", api.GetPolicy)
	auth.PUT("/policies/:id", writers, api.UpdatePolicy)
	auth.PATCH("/policies/:id/status", writers, api.UpdatePolicyStatus)
	auth.DELETE("/policies/:id", admins, api.DeletePolicy)

	// ====== WORKFLOWS ======
	auth.POST("/workflows/trigger", writers, api.MatchTrigger)
	auth.GET("/workflows/rules", api.ListRules)
	auth.POST("/workflows/rules", writers, api.CreateRule)
	auth.GET("/workflows/rules/:id", api.GetRule)
	auth.PATCH("/workflows/rules/:id", writers, api.UpdateRule)
	auth.DELETE("/workflows/rules/:id", writers, api.DeleteRule)
	auth.GET("/workflows/executions", api.ListExecutions)
	auth.GET("/workflows/executions/:id", api.GetExecution)
	auth.GET("/workflows/my-approvals", api.MyApprovals)
	auth.PATCH("/workflows/approvals/:id", api.DecideApproval)

	auth.GET("/workflows", api.ListWorkflows)
	auth.POST("/workflows", writers, api.CreateWorkflow)
	auth.GET("/workflows/:id", api.GetWorkflow)
	auth.PUT("/workflows/:id", writers, api.UpdateWorkflow)
	auth.DELETE("/workflows/:id", admins, api.DeleteWorkflow)
	auth.POST("/workflows/:id/execute", writers, api.ExecuteWorkflow)

	// ====== NOTIFICATIONS ======
	auth.GET("/notifications", api.ListNotifications)
	auth.GET("/notifications/unread-count", api.UnreadCount)
	auth.GET("/notifications/ws", api.NotificationSocket)
	auth.POST("/notifications/read-all", api.MarkAllNotificationsRead)
	auth.PATCH("/notifications/:id/read", api.MarkNotificationRead)
	auth.DELETE("/notifications/:id", api.DeleteNotification)

	// ====== AUDIT ======
	auth.GET("/audit", middleware.RequireRole(models.RoleAdmin, models.RoleAuditor), api.ListAuditLogs)

	return r
}
