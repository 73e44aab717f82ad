package store

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"

	"motor-controller/config"
	"motor-controller/logging"
)

const (
	latestKey  = "motor:status:latest"
	historyKey = "motor:status:history"

	latestTTL     = 30 * time.Second
	historyLength = 100
)

// StatusStore caches published status frames in Redis: the latest frame
// under a TTL'd key and a capped history list. It is an observer of the
// status path; errors here never affect publication.
type StatusStore struct {
	client *redis.Client
	logger *logrus.Entry
}

// NewStatusStore connects to Redis and verifies the connection.
func NewStatusStore(cfg *config.Config, logger *logging.Logger) (*StatusStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", cfg.RedisHost, cfg.RedisPort),
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	s := &StatusStore{
		client: client,
		logger: logger.WithComponent("store"),
	}
	s.logger.Infof("Connected to Redis at %s:%s", cfg.RedisHost, cfg.RedisPort)
	return s, nil
}

// SaveSnapshot stores the frame as the latest status and appends it to the
// history list, trimming the list to its cap.
func (s *StatusStore) SaveSnapshot(ctx context.Context, payload []byte) error {
	pipe := s.client.Pipeline()
	pipe.Set(ctx, latestKey, payload, latestTTL)
	pipe.LPush(ctx, historyKey, payload)
	pipe.LTrim(ctx, historyKey, 0, historyLength-1)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save status snapshot: %w", err)
	}
	return nil
}

// LatestSnapshot returns the most recently cached frame, or nil when none
// is cached.
func (s *StatusStore) LatestSnapshot(ctx context.Context) ([]byte, error) {
	payload, err := s.client.Get(ctx, latestKey).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read latest snapshot: %w", err)
	}
	return payload, nil
}

// Close releases the Redis connection.
func (s *StatusStore) Close() error {
	return s.client.Close()
}
