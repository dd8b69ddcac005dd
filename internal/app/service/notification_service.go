package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/ikkim/staycert-backend/internal/app/model"
	"github.com/ikkim/staycert-backend/internal/app/repository"
	apperrors "github.com/ikkim/staycert-backend/internal/errors"
	"github.com/ikkim/staycert-backend/pkg/logger"
	"github.com/ikkim/staycert-backend/pkg/redis"
)

const publishTimeout = 2 * time.Second

var ErrNotificationNotFound = apperrors.NotFound(apperrors.ResourceNotFound, "notification not found")

// NotificationService is the in-app notification collaborator and its read side.
type NotificationService interface {
	Notifier
	List(userID uint, unreadOnly bool, page, pageSize int) (*NotificationPage, error)
	MarkRead(notificationID, userID uint) error
	MarkAllRead(userID uint) error
}

type NotificationPage struct {
	Notifications []model.Notification `json:"notifications"`
	Total         int64                `json:"total"`
	UnreadCount   int64                `json:"unread_count"`
	Page          int                  `json:"page"`
	PageSize      int                  `json:"page_size"`
}

type notificationService struct {
	repo repository.NotificationRepository
	live LivePusher
}

// NewNotificationService wires persistence plus best-effort fan-out through redis and
// the websocket hub. live may be nil.
func NewNotificationService(repo repository.NotificationRepository, live LivePusher) NotificationService {
	return &notificationService{
		repo: repo,
		live: live,
	}
}

// Notify persists the notification and fans it out. Failures are logged, never returned.
func (s *notificationService) Notify(userID uint, event model.NotificationType, payload NotificationPayload) {
	notification := &model.Notification{
		UserID:                 userID,
		Type:                   event,
		Title:                  payload.Title,
		Content:                payload.Content,
		Link:                   payload.Link,
		RelatedApplicationID:   payload.RelatedApplicationID,
		RelatedCertificationID: payload.RelatedCertificationID,
	}

	if err := s.repo.Create(notification); err != nil {
		logger.Error("Failed to persist notification", err, map[string]interface{}{
			"user_id": userID,
			"type":    event,
		})
		return
	}

	message := map[string]interface{}{
		"type":         "new_notification",
		"notification": notification,
	}
	if unread, err := s.repo.CountUnread(userID); err == nil {
		message["unread_count"] = unread
	}

	data, err := json.Marshal(message)
	if err != nil {
		logger.Error("Failed to marshal notification", err, map[string]interface{}{
			"notification_id": notification.ID,
		})
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()
	if _, err := redis.PublishNotification(ctx, userID, data); err != nil {
		logger.Error("Failed to publish notification", err, map[string]interface{}{
			"notification_id": notification.ID,
			"user_id":         userID,
		})
	}

	if s.live != nil {
		if err := s.live.SendToUser(userID, message); err != nil {
			logger.Error("Failed to push notification to live sessions", err, map[string]interface{}{
				"notification_id": notification.ID,
				"user_id":         userID,
			})
		}
	}

	logger.Debug("Notification delivered", map[string]interface{}{
		"notification_id": notification.ID,
		"user_id":         userID,
		"type":            event,
	})
}

func (s *notificationService) List(userID uint, unreadOnly bool, page, pageSize int) (*NotificationPage, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}
	if pageSize > 100 {
		pageSize = 100
	}

	notifications, total, err := s.repo.FindByUserID(userID, unreadOnly, pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, err
	}
	unread, err := s.repo.CountUnread(userID)
	if err != nil {
		return nil, err
	}

	return &NotificationPage{
		Notifications: notifications,
		Total:         total,
		UnreadCount:   unread,
		Page:          page,
		PageSize:      pageSize,
	}, nil
}

func (s *notificationService) MarkRead(notificationID, userID uint) error {
	updated, err := s.repo.MarkAsRead(notificationID, userID)
	if err != nil {
		return err
	}
	if !updated {
		return ErrNotificationNotFound
	}
	return nil
}

func (s *notificationService) MarkAllRead(userID uint) error {
	return s.repo.MarkAllAsRead(userID)
}

// notifyAll sends the same payload to each user id, skipping zero ids.
func notifyAll(n Notifier, userIDs []uint, event model.NotificationType, payload NotificationPayload) {
	if n == nil {
		return
	}
	for _, id := range userIDs {
		if id == 0 {
			continue
		}
		n.Notify(id, event, payload)
	}
}
