package database

import (
	"fmt"
	"time"

	"grc-backoffice/internal/models"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const (
	maxAttempts  = 10
	retryBackoff = 2 * time.Second
)

// Open connects to postgres, retrying while the database container comes up.
func Open(dsn string, log logrus.FieldLogger) (*gorm.DB, error) {
	cfg := &gorm.Config{
		Logger: gormlogger.New(log, gormlogger.Config{
			SlowThreshold:             500 * time.Millisecond,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
		}),
	}

	var (
		db  *gorm.DB
		err error
	)
	for i := 1; i <= maxAttempts; i++ {
		log.Infof("trying to connect to DB (attempt %d/%d)...", i, maxAttempts)

		db, err = gorm.Open(postgres.Open(dsn), cfg)
		if err == nil {
			log.Info("connected to DB successfully")
			return db, nil
		}

		log.WithError(err).Warn("failed to connect to DB")
		time.Sleep(retryBackoff)
	}

	return nil, fmt.Errorf("connecting to db after %d attempts: %w", maxAttempts, err)
}

func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&models.User{},
		&models.AuditLog{},
		&models.Framework{},
		&models.FrameworkRequirement{},
		&models.UnifiedControl{},
		&models.FrameworkControlMapping{},
		&models.Assessment{},
		&models.AssessmentResult{},
		&models.Policy{},
		&models.Task{},
		&models.Workflow{},
		&models.WorkflowExecution{},
		&models.WorkflowApproval{},
		&models.WorkflowTriggerRule{},
		&models.Notification{},
	)
	if err != nil {
		return fmt.Errorf("migrating: %w", err)
	}
	return nil
}

// SeedAdmin creates the first admin account when none exists.
func SeedAdmin(db *gorm.DB, username, password string, log logrus.FieldLogger) error {
	var count int64
	if err := db.Model(&models.User{}).
		Where("role = ?", models.RoleAdmin).
		Count(&count).Error; err != nil {
		return fmt.Errorf("checking admin user: %w", err)
	}
	if count > 0 {
		return nil
	}

	generated := false
	if password == "" {
		password = "Admin123!"
		generated = true
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hashing default admin password: %w", err)
	}

	admin := models.User{
		Username:     username,
		PasswordHash: string(hash),
		Role:         models.RoleAdmin,
	}
	if err := db.Create(&admin).Error; err != nil {
		return fmt.Errorf("creating default admin: %w", err)
	}

	entry := log.WithField("username", username)
	if generated {
		entry.Warn("created default admin user with the built-in password, change it")
	} else {
		entry.Info("created default admin user")
	}
	return nil
}
