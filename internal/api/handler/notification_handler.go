package handler

import (
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/cuongbtq/hr-records-be/internal/api/dto"
	"github.com/cuongbtq/hr-records-be/internal/api/storage"
	"github.com/cuongbtq/hr-records-be/internal/notify"
)

const defaultNotificationLimit = 20

// NotificationHandler handles notification HTTP requests, including the
// live SSE stream
type NotificationHandler struct {
	logger   *slog.Logger
	storage  *storage.Storage
	registry *notify.Registry
}

// NewNotificationHandler creates a new NotificationHandler instance
func NewNotificationHandler(deps *Dependencies) *NotificationHandler {
	return &NotificationHandler{
		logger:   deps.Logger,
		storage:  deps.Storage,
		registry: deps.Registry,
	}
}

// ListNotifications handles GET /api/notifications
func (h *NotificationHandler) ListNotifications(c *gin.Context) {
	page, err := positiveIntQuery(c, "page", defaultPage)
	if err != nil {
		respondValidationError(c, []string{"Page must be a positive integer"}, "Validation failed")
		return
	}

	limit, err := positiveIntQuery(c, "limit", defaultNotificationLimit)
	if err != nil {
		respondValidationError(c, []string{"Limit must be a positive integer"}, "Validation failed")
		return
	}

	filter := storage.NotificationFilter{
		Page:       page,
		Limit:      limit,
		UnreadOnly: c.Query("unreadOnly") == "true",
	}

	notifications, total, unread, err := h.storage.ListNotifications(c.Request.Context(), filter)
	if err != nil {
		h.logger.Error("Failed to list notifications", slog.String("error", err.Error()))
		respondError(c, http.StatusInternalServerError, "Failed to fetch notifications")
		return
	}

	respondSuccess(c, dto.NotificationListResponse{
		Notifications: notifications,
		Pagination: dto.NotificationPagination{
			Page:       page,
			Limit:      limit,
			Total:      total,
			TotalPages: totalPages(total, limit),
		},
		UnreadCount: unread,
	})
}

// MarkAllRead handles PATCH /api/notifications/read-all
func (h *NotificationHandler) MarkAllRead(c *gin.Context) {
	if err := h.storage.MarkAllNotificationsRead(c.Request.Context()); err != nil {
		h.logger.Error("Failed to mark notifications read", slog.String("error", err.Error()))
		respondError(c, http.StatusInternalServerError, "Failed to mark all notifications as read")
		return
	}

	respondSuccess(c, gin.H{"message": "All notifications marked as read"})
}

// Subscribe handles GET /api/notifications/subscribe. It holds the request
// open as an SSE stream and forwards the caller's live events until the
// client disconnects.
func (h *NotificationHandler) Subscribe(c *gin.Context) {
	userID := c.GetString("userID")

	conn := h.registry.Subscribe(userID)
	defer h.registry.Unsubscribe(conn)

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")

	h.logger.Info("SSE connection established",
		slog.String("user_id", userID),
		slog.String("conn_id", conn.ID),
	)

	c.SSEvent("connected", gin.H{"connectionId": conn.ID})
	c.Writer.Flush()

	heartbeat := time.NewTicker(30 * time.Second)
	defer heartbeat.Stop()

	c.Stream(func(w io.Writer) bool {
		select {
		case <-c.Request.Context().Done():
			return false
		case <-heartbeat.C:
			c.SSEvent("heartbeat", gin.H{"timestamp": time.Now().UTC().Format(time.RFC3339)})
			return true
		case event, ok := <-conn.C:
			if !ok {
				return false
			}
			c.SSEvent("notification", event)
			return true
		}
	})

	h.logger.Info("SSE connection closed",
		slog.String("user_id", userID),
		slog.String("conn_id", conn.ID),
	)
}

// ConnectionStatus handles GET /api/notifications/status
func (h *NotificationHandler) ConnectionStatus(c *gin.Context) {
	userID := c.GetString("userID")

	respondSuccess(c, dto.ConnectionStatusResponse{
		UserID:                 userID,
		ActiveConnections:      h.registry.Count(userID),
		TotalActiveConnections: h.registry.Total(),
		Timestamp:              time.Now().UTC().Format(time.RFC3339),
	})
}
