package handlers

import (
	"net/http"
	"strconv"

	"grc-backoffice/internal/models"
	"grc-backoffice/internal/notification"

	"github.com/gin-gonic/gin"
)

func (a *API) ListNotifications(c *gin.Context) {
	q := notification.Query{
		Type:  models.NotificationType(c.Query("type")),
		Limit: queryInt(c, "limit", 0),
	}
	if raw := c.Query("isRead"); raw != "" {
		read, err := strconv.ParseBool(raw)
		if err != nil {
			a.badRequest(c, "isRead must be true or false")
			return
		}
		q.IsRead = &read
	}

	list, err := a.Notifications.ListForUser(c.Request.Context(), a.callerID(c), q)
	if err != nil {
		a.fail(c, err)
		return
	}
	if list == nil {
		list = []models.Notification{}
	}
	c.JSON(http.StatusOK, list)
}

func (a *API) UnreadCount(c *gin.Context) {
	n, err := a.Notifications.UnreadCount(c.Request.Context(), a.callerID(c))
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": n})
}

func (a *API) MarkNotificationRead(c *gin.Context) {
	id, ok := a.idParam(c, "id")
	if !ok {
		return
	}
	if err := a.Notifications.MarkRead(c.Request.Context(), id, a.callerID(c)); err != nil {
		a.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (a *API) MarkAllNotificationsRead(c *gin.Context) {
	n, err := a.Notifications.MarkAllRead(c.Request.Context(), a.callerID(c))
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"updated": n})
}

func (a *API) DeleteNotification(c *gin.Context) {
	id, ok := a.idParam(c, "id")
	if !ok {
		return
	}
	if err := a.Notifications.Delete(c.Request.Context(), id, a.callerID(c)); err != nil {
		a.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// NotificationSocket upgrades to a websocket carrying the caller's live notifications.
func (a *API) NotificationSocket(c *gin.Context) {
	if err := a.Hub.Serve(c.Writer, c.Request, a.callerID(c)); err != nil {
		// the upgrader has already written the error response, or the hub is shutting down
		a.Log.WithError(err).Debug("websocket upgrade failed")
	}
}
