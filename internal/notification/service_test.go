package notification

import (
	"context"
	"errors"
	"testing"

	"grc-backoffice/internal/apperr"
	"grc-backoffice/internal/logger"
	"grc-backoffice/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

type capturePublisher struct {
	events map[uuid.UUID][]Event
}

func (c *capturePublisher) Publish(userID uuid.UUID, ev Event) {
	if c.events == nil {
		c.events = map[uuid.UUID][]Event{}
	}
	c.events[userID] = append(c.events[userID], ev)
}

func newMockService(t *testing.T) (*Service, sqlmock.Sqlmock, *capturePublisher) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{})
	require.NoError(t, err)

	pub := &capturePublisher{}
	return NewService(db, pub, logger.Discard()), mock, pub
}

func TestService_CreatePublishes(t *testing.T) {
	svc, mock, pub := newMockService(t)
	user := uuid.New()

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO "notifications"`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	n := &models.Notification{UserID: user, Type: models.NotificationGeneral, Title: "Hello"}
	require.NoError(t, svc.Create(context.Background(), n))

	assert.NotEqual(t, uuid.Nil, n.ID)
	assert.Equal(t, models.PriorityMedium, n.Priority)
	require.Len(t, pub.events[user], 1)
	assert.Equal(t, "notification", pub.events[user][0].Type)
	assert.Equal(t, "Hello", pub.events[user][0].Notification.Title)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestService_CreateFailureDoesNotPublish(t *testing.T) {
	svc, mock, pub := newMockService(t)

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO "notifications"`).WillReturnError(errors.New("db down"))
	mock.ExpectRollback()

	err := svc.Create(context.Background(), &models.Notification{UserID: uuid.New(), Title: "x"})
	assert.Error(t, err)
	assert.Empty(t, pub.events)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestService_CreateBulk(t *testing.T) {
	svc, mock, pub := newMockService(t)
	a, b := uuid.New(), uuid.New()

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO "notifications" .* VALUES \(.*\),\(.*\)`).WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()

	err := svc.CreateBulk(context.Background(), []uuid.UUID{a, b}, models.Notification{
		Type:  models.NotificationGeneral,
		Title: "Policy Published",
	})
	require.NoError(t, err)
	assert.Len(t, pub.events[a], 1)
	assert.Len(t, pub.events[b], 1)
	assert.NotEqual(t, pub.events[a][0].Notification.ID, pub.events[b][0].Notification.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestService_UnreadCount(t *testing.T) {
	svc, mock, _ := newMockService(t)
	user := uuid.New()

	mock.ExpectQuery(`SELECT count\(\*\) FROM "notifications" WHERE user_id = \$1 AND is_read = \$2`).
		WithArgs(user, false).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(4))

	n, err := svc.UnreadCount(context.Background(), user)
	require.NoError(t, err)
	assert.EqualValues(t, 4, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestService_MarkRead(t *testing.T) {
	svc, mock, _ := newMockService(t)
	id, user := uuid.New(), uuid.New()

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE "notifications" SET "is_read"=\$1,"read_at"=\$2 WHERE id = \$3 AND user_id = \$4`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, svc.MarkRead(context.Background(), id, user))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestService_MarkReadOtherUsersNotification(t *testing.T) {
	svc, mock, _ := newMockService(t)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE "notifications"`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	err := svc.MarkRead(context.Background(), uuid.New(), uuid.New())
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestService_Delete(t *testing.T) {
	svc, mock, _ := newMockService(t)
	id, user := uuid.New(), uuid.New()

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM "notifications" WHERE id = \$1 AND user_id = \$2`).
		WithArgs(id, user).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	err := svc.Delete(context.Background(), id, user)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestService_Cleanup(t *testing.T) {
	svc, mock, _ := newMockService(t)

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM "notifications" WHERE is_read = \$1 AND created_at < \$2`).
		WillReturnResult(sqlmock.NewResult(0, 12))
	mock.ExpectCommit()

	n, err := svc.Cleanup(context.Background(), 0)
	require.NoError(t, err)
	assert.EqualValues(t, 12, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestService_SendWorkflowRejected(t *testing.T) {
	svc, mock, pub := newMockService(t)
	user := uuid.New()

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO "notifications"`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, svc.SendWorkflowRejected(context.Background(), user, "Policy approval", models.EntityPolicy, "p-1", "Alice", "missing scope"))

	n := pub.events[user][0].Notification
	assert.Equal(t, models.NotificationWorkflowRejected, n.Type)
	assert.Equal(t, models.PriorityHigh, n.Priority)
	assert.Equal(t, `Your "Policy approval" workflow has been rejected by Alice: missing scope`, n.Message)
	assert.Equal(t, "/policys/p-1", n.ActionURL)
	assert.NoError(t, mock.ExpectationsWereMet())
}
