package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/ikkim/sneakers-backend/config"
	"github.com/ikkim/sneakers-backend/pkg/logger"
	"github.com/redis/go-redis/v9"
)

var client *redis.Client

// Init initializes Redis connection
func Init(cfg *config.RedisConfig) error {
	logger.Info("Initializing Redis connection", map[string]interface{}{
		"addr": cfg.Addr(),
		"db":   cfg.DB,
	})

	client = redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		logger.Error("Failed to connect to Redis", err, map[string]interface{}{
			"addr": cfg.Addr(),
		})
		return fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logger.Info("Redis connection established successfully")
	return nil
}

// GetClient returns the Redis client instance
func GetClient() *redis.Client {
	return client
}

// Close closes the Redis connection
func Close() error {
	if client != nil {
		logger.Info("Closing Redis connection")
		return client.Close()
	}
	return nil
}

// SessionStore keeps anonymous session tokens as expiring keys. Every
// successful lookup slides the expiry forward.
type SessionStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewSessionStore(client *redis.Client, ttl time.Duration) *SessionStore {
	return &SessionStore{client: client, ttl: ttl}
}

func sessionKey(token string) string {
	return fmt.Sprintf("session:%s", token)
}

func (s *SessionStore) Create(ctx context.Context, token string) error {
	if err := s.client.Set(ctx, sessionKey(token), time.Now().UTC().Format(time.RFC3339), s.ttl).Err(); err != nil {
		logger.Error("Failed to register session", err)
		return err
	}
	logger.Debug("Session registered", map[string]interface{}{
		"ttl": s.ttl.String(),
	})
	return nil
}

func (s *SessionStore) Exists(ctx context.Context, token string) (bool, error) {
	ok, err := s.client.Expire(ctx, sessionKey(token), s.ttl).Result()
	if err != nil {
		logger.Error("Failed to check session", err)
		return false, err
	}
	return ok, nil
}

func (s *SessionStore) Delete(ctx context.Context, token string) error {
	if err := s.client.Del(ctx, sessionKey(token)).Err(); err != nil {
		logger.Error("Failed to delete session", err)
		return err
	}
	logger.Debug("Session retired")
	return nil
}
