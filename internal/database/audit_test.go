package database

import (
	"errors"
	"testing"
	"time"

	"grc-backoffice/internal/logger"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{})
	require.NoError(t, err)
	return db, mock
}

func TestAuditor_Record(t *testing.T) {
	db, mock := newMockDB(t)
	a := NewAuditor(db, logger.Discard())

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO "audit_logs"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
	mock.ExpectCommit()

	a.Record(uuid.New(), "framework", uuid.NewString(), "create", "created ISO 27001")

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAuditor_RecordSwallowsErrors(t *testing.T) {
	db, mock := newMockDB(t)
	a := NewAuditor(db, logger.Discard())

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO "audit_logs"`).WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	assert.NotPanics(t, func() {
		a.Record(uuid.New(), "policy", "p-1", "update", "")
	})
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAuditor_List(t *testing.T) {
	db, mock := newMockDB(t)
	a := NewAuditor(db, logger.Discard())

	userID := uuid.New()
	rows := sqlmock.NewRows([]string{"id", "created_at", "user_id", "entity", "entity_id", "action", "details"}).
		AddRow(2, time.Now(), userID.String(), "policy", "p-1", "status_change", "published")

	mock.ExpectQuery(`SELECT \* FROM "audit_logs" WHERE entity = \$1 ORDER BY created_at desc`).
		WillReturnRows(rows)
	mock.ExpectQuery(`SELECT \* FROM "users" WHERE "users"."id" = \$1`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "username", "role"}).AddRow(userID.String(), "ada", "admin"))

	logs, err := a.List("policy", "", 0)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, "status_change", logs[0].Action)
	assert.Equal(t, "ada", logs[0].User.Username)
	assert.NoError(t, mock.ExpectationsWereMet())
}
