package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"collab-service/internal/database"
)

type RedisService struct {
	client *database.RedisClient
}

func NewRedisService(client *database.RedisClient) *RedisService {
	return &RedisService{client: client}
}

// =============================================================================
// User Presence
// =============================================================================

func (r *RedisService) SetUserOnline(ctx context.Context, userID string) error {
	pipe := r.client.GetClient().Pipeline()

	pipe.SAdd(ctx, "online_users", userID)
	pipe.HSet(ctx, fmt.Sprintf("user:%s:status", userID), map[string]interface{}{
		"status":     "online",
		"last_seen":  time.Now().Unix(),
		"updated_at": time.Now().Unix(),
	})
	pipe.Expire(ctx, fmt.Sprintf("user:%s:status", userID), 5*time.Minute)

	if _, err := pipe.Exec(ctx); err != nil {
		slog.Error("Failed to set user online", "userID", userID, "error", err)
		return err
	}
	return nil
}

func (r *RedisService) SetUserOffline(ctx context.Context, userID string) error {
	pipe := r.client.GetClient().Pipeline()

	pipe.SRem(ctx, "online_users", userID)
	pipe.HSet(ctx, fmt.Sprintf("user:%s:status", userID), map[string]interface{}{
		"status":     "offline",
		"last_seen":  time.Now().Unix(),
		"updated_at": time.Now().Unix(),
	})
	pipe.Expire(ctx, fmt.Sprintf("user:%s:status", userID), 24*time.Hour)

	if _, err := pipe.Exec(ctx); err != nil {
		slog.Error("Failed to set user offline", "userID", userID, "error", err)
		return err
	}
	return nil
}

func (r *RedisService) IsUserOnline(ctx context.Context, userID string) (bool, error) {
	return r.client.GetClient().SIsMember(ctx, "online_users", userID).Result()
}

func (r *RedisService) GetOnlineUsers(ctx context.Context) ([]string, error) {
	return r.client.GetClient().SMembers(ctx, "online_users").Result()
}

// Connected implements the relay's presence hook for a user's first session
func (r *RedisService) Connected(ctx context.Context, userID string) {
	if err := r.SetUserOnline(ctx, userID); err != nil {
		slog.Warn("presence.online.failed", "userID", userID, "error", err)
	}
}

// Disconnected implements the relay's presence hook for a user's last session
func (r *RedisService) Disconnected(ctx context.Context, userID string) {
	if err := r.SetUserOffline(ctx, userID); err != nil {
		slog.Warn("presence.offline.failed", "userID", userID, "error", err)
	}
}

// =============================================================================
// Rate Limiting
// =============================================================================

// CheckRateLimit increments a windowed counter and reports whether the caller
// is still under the limit
func (r *RedisService) CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	client := r.client.GetClient()

	count, err := client.Incr(ctx, key).Result()
	if err != nil {
		return false, err
	}
	if count == 1 {
		if err := client.Expire(ctx, key, window).Err(); err != nil {
			return false, err
		}
	}
	return count <= int64(limit), nil
}
