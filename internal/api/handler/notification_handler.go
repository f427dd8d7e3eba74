package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/settleup/settleup-api/internal/core/ports"
	"github.com/settleup/settleup-api/pkg/logger"
)

const heartbeatInterval = 25 * time.Second

// NotificationHandler serves the notification inbox and its real-time stream.
type NotificationHandler struct {
	service   ports.NotificationService
	stream    ports.NotificationStream
	heartbeat time.Duration
}

// NewNotificationHandler builds the handler. stream may be nil, in which case
// the stream endpoint answers 503.
func NewNotificationHandler(service ports.NotificationService, stream ports.NotificationStream) *NotificationHandler {
	return &NotificationHandler{service: service, stream: stream, heartbeat: heartbeatInterval}
}

// List returns the caller's notifications, newest first.
//
// @Summary      List notifications
// @Tags         notifications
// @Produce      json
// @Security     BearerAuth
// @Param        limit       query     int   false  "Max items (default 50, max 100)"
// @Param        unreadOnly  query     bool  false  "Only unread"
// @Success      200         {object}  notificationListResponse
// @Router       /notifications [get]
func (h *NotificationHandler) List(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}

	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	unreadOnly := c.QueryParam("unreadOnly") == "true" || c.QueryParam("unread_only") == "true"

	items, err := h.service.List(c.Request().Context(), userID, limit, unreadOnly)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, notificationListResponse{Success: true, Notifications: items})
}

// MarkRead flags a single notification as read.
//
// @Summary      Mark notification read
// @Tags         notifications
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Notification id"
// @Success      200  {object}  notificationResponse
// @Failure      404  {object}  errorResponse
// @Router       /notifications/{id}/read [put]
func (h *NotificationHandler) MarkRead(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}

	n, err := h.service.MarkRead(c.Request().Context(), c.Param("id"), userID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, notificationResponse{Success: true, Message: "Notification marked as read", Notification: n})
}

// MarkAllRead flags every unread notification of the caller as read.
//
// @Summary      Mark all notifications read
// @Tags         notifications
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  messageResponse
// @Router       /notifications/read-all [put]
func (h *NotificationHandler) MarkAllRead(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}

	if _, err := h.service.MarkAllRead(c.Request().Context(), userID); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, messageResponse{Success: true, Message: "All notifications marked as read"})
}

// UnreadCount returns how many notifications the caller has not read.
//
// @Summary      Unread count
// @Tags         notifications
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  countResponse
// @Router       /notifications/unread-count [get]
func (h *NotificationHandler) UnreadCount(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}

	count, err := h.service.UnreadCount(c.Request().Context(), userID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, countResponse{Success: true, Count: count})
}

// Delete removes one of the caller's notifications.
//
// @Summary      Delete notification
// @Tags         notifications
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Notification id"
// @Success      200  {object}  messageResponse
// @Failure      404  {object}  errorResponse
// @Router       /notifications/{id} [delete]
func (h *NotificationHandler) Delete(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}

	if err := h.service.Delete(c.Request().Context(), c.Param("id"), userID); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, messageResponse{Success: true, Message: "Notification deleted successfully"})
}

// Stream pushes the caller's notifications as server-sent events until the
// client disconnects. Browsers cannot set headers on EventSource, so the
// token may also be passed as ?access_token=.
//
// @Summary      Real-time notification stream
// @Tags         notifications
// @Produce      text/event-stream
// @Security     BearerAuth
// @Param        access_token  query  string  false  "Bearer token for EventSource clients"
// @Success      200
// @Failure      503  {object}  errorResponse
// @Router       /notifications/stream [get]
func (h *NotificationHandler) Stream(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}
	if h.stream == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "real-time notifications are not available")
	}

	ctx := c.Request().Context()
	ch, release, err := h.stream.Subscribe(ctx, userID)
	if err != nil {
		return err
	}
	defer release()

	log := logger.FromEcho(c)
	w := c.Response()
	w.Header().Set(echo.HeaderContentType, "text/event-stream")
	w.Header().Set(echo.HeaderCacheControl, "no-cache")
	w.Header().Set(echo.HeaderConnection, "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	_, _ = fmt.Fprint(w, ": connected\n\n")
	w.Flush()

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
				return nil
			}
			w.Flush()
		case n, ok := <-ch:
			if !ok {
				return nil
			}
			data, err := json.Marshal(n)
			if err != nil {
				log.Warn().Err(err).Str("notification_id", n.ID).Msg("skipping unencodable notification")
				continue
			}
			if _, err := fmt.Fprintf(w, "id: %s\nevent: notification\ndata: %s\n\n", n.ID, data); err != nil {
				return nil
			}
			w.Flush()
		}
	}
}
