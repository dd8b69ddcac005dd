package repository

import (
	"github.com/ikkim/staycert-backend/internal/app/model"
	"github.com/ikkim/staycert-backend/pkg/logger"
	"gorm.io/gorm"
)

type NotificationRepository interface {
	Create(notification *model.Notification) error
	FindByUserID(userID uint, unreadOnly bool, limit, offset int) ([]model.Notification, int64, error)
	CountUnread(userID uint) (int64, error)
	MarkAsRead(id, userID uint) (bool, error)
	MarkAllAsRead(userID uint) error
}

type notificationRepository struct {
	db *gorm.DB
}

func NewNotificationRepository(db *gorm.DB) NotificationRepository {
	return &notificationRepository{db: db}
}

func (r *notificationRepository) Create(notification *model.Notification) error {
	logger.Debug("Creating notification in database", map[string]interface{}{
		"user_id": notification.UserID,
		"type":    notification.Type,
	})

	if err := r.db.Create(notification).Error; err != nil {
		logger.Error("Failed to create notification in database", err, map[string]interface{}{
			"user_id": notification.UserID,
			"type":    notification.Type,
		})
		return err
	}

	logger.Debug("Notification created in database", map[string]interface{}{
		"notification_id": notification.ID,
		"user_id":         notification.UserID,
	})
	return nil
}

func (r *notificationRepository) FindByUserID(userID uint, unreadOnly bool, limit, offset int) ([]model.Notification, int64, error) {
	logger.Debug("Finding notifications by user ID in database", map[string]interface{}{
		"user_id":     userID,
		"unread_only": unreadOnly,
		"limit":       limit,
		"offset":      offset,
	})

	query := r.db.Model(&model.Notification{}).Where("user_id = ?", userID)
	if unreadOnly {
		query = query.Where("is_read = ?", false)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		logger.Error("Failed to count notifications in database", err, map[string]interface{}{
			"user_id": userID,
		})
		return nil, 0, err
	}

	query = query.Order("created_at DESC").Order("id DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}

	var notifications []model.Notification
	if err := query.Find(&notifications).Error; err != nil {
		logger.Error("Failed to find notifications by user ID in database", err, map[string]interface{}{
			"user_id": userID,
		})
		return nil, 0, err
	}

	logger.Debug("Notifications found by user ID in database", map[string]interface{}{
		"user_id": userID,
		"count":   len(notifications),
		"total":   total,
	})
	return notifications, total, nil
}

func (r *notificationRepository) CountUnread(userID uint) (int64, error) {
	var count int64
	if err := r.db.Model(&model.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Count(&count).Error; err != nil {
		logger.Error("Failed to count unread notifications in database", err, map[string]interface{}{
			"user_id": userID,
		})
		return 0, err
	}
	return count, nil
}

// MarkAsRead reports false when the notification does not belong to userID.
func (r *notificationRepository) MarkAsRead(id, userID uint) (bool, error) {
	logger.Debug("Marking notification as read in database", map[string]interface{}{
		"notification_id": id,
		"user_id":         userID,
	})

	result := r.db.Model(&model.Notification{}).
		Where("id = ? AND user_id = ?", id, userID).
		Update("is_read", true)
	if result.Error != nil {
		logger.Error("Failed to mark notification as read in database", result.Error, map[string]interface{}{
			"notification_id": id,
		})
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *notificationRepository) MarkAllAsRead(userID uint) error {
	if err := r.db.Model(&model.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Update("is_read", true).Error; err != nil {
		logger.Error("Failed to mark all notifications as read in database", err, map[string]interface{}{
			"user_id": userID,
		})
		return err
	}
	return nil
}
