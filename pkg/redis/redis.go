package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/ikkim/staycert-backend/config"
	"github.com/ikkim/staycert-backend/pkg/logger"
	"github.com/redis/go-redis/v9"
)

var client *redis.Client

// Init initializes Redis connection
func Init(cfg *config.RedisConfig) error {
	logger.Info("Initializing Redis connection", map[string]interface{}{
		"host": cfg.Host,
		"port": cfg.Port,
		"db":   cfg.DB,
	})

	c := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := c.Ping(ctx).Err(); err != nil {
		logger.Error("Failed to connect to Redis", err, map[string]interface{}{
			"host": cfg.Host,
			"port": cfg.Port,
		})
		return fmt.Errorf("failed to connect to Redis: %w", err)
	}

	client = c
	logger.Info("Redis connection established successfully")
	return nil
}

// SetClient replaces the package client; used by tests.
func SetClient(c *redis.Client) {
	client = c
}

func GetClient() *redis.Client {
	return client
}

// Enabled reports whether Init succeeded.
func Enabled() bool {
	return client != nil
}

func Close() error {
	if client != nil {
		logger.Info("Closing Redis connection")
		err := client.Close()
		client = nil
		return err
	}
	return nil
}

// NotificationChannel is the pub/sub channel carrying a user's notifications.
func NotificationChannel(userID uint) string {
	return fmt.Sprintf("notifications:%d", userID)
}

// PublishNotification publishes payload on the user's notification channel.
// It returns the number of subscribers that received it.
func PublishNotification(ctx context.Context, userID uint, payload []byte) (int64, error) {
	if client == nil {
		return 0, nil
	}

	receivers, err := client.Publish(ctx, NotificationChannel(userID), payload).Result()
	if err != nil {
		logger.Error("Failed to publish notification", err, map[string]interface{}{
			"user_id": userID,
		})
		return 0, err
	}

	logger.Debug("Notification published", map[string]interface{}{
		"user_id":   userID,
		"receivers": receivers,
	})
	return receivers, nil
}

// SubscribeNotifications subscribes to the notification channel of userID.
func SubscribeNotifications(ctx context.Context, userID uint) *redis.PubSub {
	return client.Subscribe(ctx, NotificationChannel(userID))
}

// BlacklistToken marks an access token revoked by the identity provider.
func BlacklistToken(ctx context.Context, token string, expiry time.Duration) error {
	key := fmt.Sprintf("blacklist:%s", token)
	if err := client.Set(ctx, key, "revoked", expiry).Err(); err != nil {
		logger.Error("Failed to blacklist token", err)
		return err
	}
	return nil
}

// IsTokenBlacklisted checks if a token is in the blacklist
func IsTokenBlacklisted(ctx context.Context, token string) (bool, error) {
	if client == nil {
		return false, nil
	}

	key := fmt.Sprintf("blacklist:%s", token)
	val, err := client.Get(ctx, key).Result()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		logger.Error("Failed to check token blacklist", err)
		return false, err
	}
	return val == "revoked", nil
}
