package http

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"factorydash.xyz/alert-engine/pkg/alerting"
	apperrors "factorydash.xyz/alert-engine/pkg/errors"
	"factorydash.xyz/alert-engine/pkg/export"
	"factorydash.xyz/alert-engine/pkg/models"
)

const defaultRetryWait = 5 * time.Second

func bindFilter(c *gin.Context) (models.NotificationFilter, bool) {
	var filter models.NotificationFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		writeError(c, apperrors.NewValidation("invalid query").WithInternal(err))
		return filter, false
	}
	return filter, true
}

func (rs *RestfulServer) ListNotifications(c *gin.Context) {
	recipientID := c.Param("recipient_id")

	filter, ok := bindFilter(c)
	if !ok {
		return
	}

	items, err := rs.Engine.Inbox.ListNotifications(c.Request.Context(), recipientID, filter)
	if err != nil {
		writeError(c, err)
		return
	}

	unread, err := rs.Engine.Inbox.CountUnread(c.Request.Context(), recipientID)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"items": items, "unread": unread})
}

func (rs *RestfulServer) CountUnread(c *gin.Context) {
	unread, err := rs.Engine.Inbox.CountUnread(c.Request.Context(), c.Param("recipient_id"))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"unread": unread})
}

func (rs *RestfulServer) ExportNotifications(c *gin.Context) {
	recipientID := c.Param("recipient_id")

	filter, ok := bindFilter(c)
	if !ok {
		return
	}

	items, err := rs.Engine.Inbox.ListNotifications(c.Request.Context(), recipientID, filter)
	if err != nil {
		writeError(c, err)
		return
	}

	data, err := export.NotificationsXLSX(items)
	if err != nil {
		writeError(c, err)
		return
	}

	filename := fmt.Sprintf("notifications-%s-%s.xlsx", recipientID, time.Now().UTC().Format("20060102"))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, export.ContentType, data)
}

func (rs *RestfulServer) MarkAllRead(c *gin.Context) {
	updated, err := rs.Engine.Inbox.MarkAllRead(c.Request.Context(), c.Param("recipient_id"))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"updated": updated})
}

func (rs *RestfulServer) GetNotification(c *gin.Context) {
	n, err := rs.Engine.Inbox.GetNotification(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, n)
}

type transitionFunc func(ctx context.Context, id string) (*models.Notification, error)

func (rs *RestfulServer) transition(c *gin.Context, fn transitionFunc) {
	n, err := fn(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, n)
}

func (rs *RestfulServer) MarkRead(c *gin.Context) {
	rs.transition(c, rs.Engine.Inbox.MarkRead)
}

func (rs *RestfulServer) Acknowledge(c *gin.Context) {
	rs.transition(c, rs.Engine.Inbox.Acknowledge)
}

func (rs *RestfulServer) Resolve(c *gin.Context) {
	rs.transition(c, rs.Engine.Inbox.Resolve)
}

func (rs *RestfulServer) Archive(c *gin.Context) {
	rs.transition(c, rs.Engine.Inbox.Archive)
}

type StarRequest struct {
	Starred *bool `json:"starred"`
}

func (rs *RestfulServer) Star(c *gin.Context) {
	var req StarRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badBody(c, err)
		return
	}
	if req.Starred == nil {
		writeError(c, apperrors.NewValidation("starred is required", "starred"))
		return
	}

	n, err := rs.Engine.Inbox.Star(c.Request.Context(), c.Param("id"), *req.Starred)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, n)
}

func (rs *RestfulServer) GetPreferences(c *gin.Context) {
	prefs, err := rs.Engine.Preference.GetPreferences(c.Request.Context(), c.Param("recipient_id"))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, prefs)
}

func (rs *RestfulServer) UpdatePreferences(c *gin.Context) {
	var patch models.PreferencesPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		badBody(c, err)
		return
	}

	prefs, err := rs.Engine.Preference.UpdatePreferences(c.Request.Context(), c.Param("recipient_id"), patch)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, prefs)
}

func (rs *RestfulServer) GetReceipts(c *gin.Context) {
	receipts, err := rs.Engine.Delivery.Receipts(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"items": receipts})
}

// RetryDelivery answers 200 with the outcome when the attempt finishes within
// RetryWait, 202 with the pending handle otherwise.
func (rs *RestfulServer) RetryDelivery(c *gin.Context) {
	handle, err := rs.Engine.Delivery.Retry(c.Request.Context(), c.Param("id"), c.Param("channel_id"))
	if err != nil {
		writeError(c, err)
		return
	}

	wait := rs.RetryWait
	if wait <= 0 {
		wait = defaultRetryWait
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), wait)
	defer cancel()

	result, err := handle.Wait(ctx)
	if err != nil {
		c.JSON(http.StatusAccepted, handle)
		return
	}

	c.JSON(http.StatusOK, retryResponse(result))
}

func retryResponse(result alerting.DeliveryResult) gin.H {
	return gin.H{"result": result, "ok": result.OK()}
}

func (rs *RestfulServer) ServeWebsocket(c *gin.Context) {
	rs.Hub.Serve(c.Param("recipient_id"), c.Writer, c.Request)
}
