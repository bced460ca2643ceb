package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"classtrack/models"
)

const snapshotKey = "classtrack:snapshot" // String: JSON encoded models.Snapshot

// RedisService stores the application snapshot in Redis
type RedisService struct {
	Client *redis.Client
	Logger *zap.Logger
	TTL    time.Duration
}

// NewRedisService creates a new RedisService instance
func NewRedisService(client *redis.Client, logger *zap.Logger) *RedisService {
	return &RedisService{
		Client: client,
		Logger: logger,
		TTL:    models.MaxSnapshotAge,
	}
}

// SaveSnapshot writes the whole snapshot under a single key.
func (s *RedisService) SaveSnapshot(ctx context.Context, snap models.Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}
	if err := s.Client.Set(ctx, snapshotKey, data, s.TTL).Err(); err != nil {
		return fmt.Errorf("failed to save snapshot to Redis: %w", err)
	}
	s.Logger.Debug("Saved snapshot",
		zap.Int("subjects", len(snap.Subjects)),
		zap.Int("exams", len(snap.Exams)),
		zap.Int("bytes", len(data)))
	return nil
}

// LoadSnapshot returns the stored snapshot, or nil when none exists.
func (s *RedisService) LoadSnapshot(ctx context.Context) (*models.Snapshot, error) {
	data, err := s.Client.Get(ctx, snapshotKey).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load snapshot from Redis: %w", err)
	}

	var snap models.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot: %w", err)
	}
	return &snap, nil
}

// Ping checks the Redis connection.
func (s *RedisService) Ping(ctx context.Context) error {
	return s.Client.Ping(ctx).Err()
}

// Options configures the Redis connection
type Options struct {
	Addr     string
	Password string
	DB       int
}

// InitializeRedisClient creates and tests a Redis client connection
func InitializeRedisClient(ctx context.Context, opts Options, logger *zap.Logger) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})

	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("could not connect to Redis at %s: %w", opts.Addr, err)
	}

	logger.Info("Connected to Redis", zap.String("addr", opts.Addr), zap.Int("db", opts.DB))
	return rdb, nil
}
