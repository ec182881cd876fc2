package main

import (
	"grc-backoffice/internal/assessment"
	"grc-backoffice/internal/auth"
	"grc-backoffice/internal/config"
	"grc-backoffice/internal/controls"
	"grc-backoffice/internal/database"
	"grc-backoffice/internal/framework"
	"grc-backoffice/internal/handlers"
	"grc-backoffice/internal/logger"
	"grc-backoffice/internal/notification"
	"grc-backoffice/internal/scorecard"
	"grc-backoffice/internal/workflow"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

type app struct {
	cfg *config.Config
	log *logrus.Logger
	db  *gorm.DB
}

func bootstrap() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	log := logger.New(cfg.LogLevel)

	db, err := database.Open(cfg.DBDSN, log)
	if err != nil {
		return nil, err
	}
	return &app{cfg: cfg, log: log, db: db}, nil
}

// api wires every service on top of the shared database handle.
func (a *app) api(hub *notification.Hub) *handlers.API {
	notifications := notification.NewService(a.db, hub, a.log.WithField("component", "notification"))

	rules := workflow.NewRuleService(workflow.NewGormRuleStore(a.db), a.log.WithField("component", "rules"))
	workflows := workflow.NewService(workflow.NewGormStore(a.db), rules, notifications, a.log.WithField("component", "workflow"))

	return &handlers.API{
		DB:            a.db,
		Tokens:        auth.NewTokens(a.cfg.JWTSecret, a.cfg.JWTTTL),
		Audit:         database.NewAuditor(a.db, a.log),
		Scorecard:     scorecard.NewService(scorecard.NewGormStore(a.db), a.log.WithField("component", "scorecard")),
		Frameworks:    framework.NewService(framework.NewGormStore(a.db), a.log.WithField("component", "framework")),
		Controls:      controls.NewService(controls.NewGormStore(a.db), workflows, a.log.WithField("component", "controls")),
		Assessments:   assessment.NewService(assessment.NewGormStore(a.db), notifications, workflows, a.log.WithField("component", "assessment")),
		Workflows:     workflows,
		Rules:         rules,
		Notifications: notifications,
		Hub:           hub,
		Log:           a.log,
	}
}
