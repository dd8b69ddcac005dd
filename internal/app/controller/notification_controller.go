package controller

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/ikkim/staycert-backend/internal/app/service"
	"github.com/ikkim/staycert-backend/internal/middleware"
	ws "github.com/ikkim/staycert-backend/internal/websocket"
)

type NotificationController struct {
	service  service.NotificationService
	hub      *ws.Hub
	upgrader websocket.Upgrader
}

// NewNotificationController accepts websocket upgrades only from allowedOrigins.
func NewNotificationController(service service.NotificationService, hub *ws.Hub, allowedOrigins []string) *NotificationController {
	origins := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		origins[o] = true
	}

	return &NotificationController{
		service: service,
		hub:     hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || origins[origin]
			},
		},
	}
}

// GetNotifications
// GET /api/v1/notifications?page=&page_size=&unread_only=
func (ctrl *NotificationController) GetNotifications(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	unreadOnly := c.Query("unread_only") == "true"

	result, err := ctrl.service.List(actor.UserID, unreadOnly, page, pageSize)
	if err != nil {
		respondError(c, "Failed to list notifications", err, map[string]interface{}{
			"user_id": actor.UserID,
		})
		return
	}

	c.JSON(http.StatusOK, result)
}

// MarkAsRead
// PUT /api/v1/notifications/:id/read
func (ctrl *NotificationController) MarkAsRead(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	if err := ctrl.service.MarkRead(id, actor.UserID); err != nil {
		respondError(c, "Failed to mark notification as read", err, map[string]interface{}{
			"notification_id": id,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
	})
}

// MarkAllAsRead
// PUT /api/v1/notifications/read-all
func (ctrl *NotificationController) MarkAllAsRead(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	if err := ctrl.service.MarkAllRead(actor.UserID); err != nil {
		respondError(c, "Failed to mark notifications as read", err, map[string]interface{}{
			"user_id": actor.UserID,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
	})
}

// WebSocket upgrades the request and registers a live session with the hub.
// The token arrives as a query parameter and is never logged.
// GET /api/v1/notifications/ws
func (ctrl *NotificationController) WebSocket(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	actor, ok := currentActor(c)
	if !ok {
		return
	}

	conn, err := ctrl.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error("Failed to upgrade to WebSocket", err)
		return
	}

	client := ws.NewClient(ctrl.hub, &ws.Conn{Conn: conn}, actor.UserID)
	ctrl.hub.Register(client)

	go client.WritePump()
	go client.ReadPump()

	log.Info("WebSocket connection established", map[string]interface{}{
		"user_id": actor.UserID,
	})
}
