package recorder

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	goredis "github.com/go-redis/redis/v8"

	"SignalDesk/internal/model"
)

// redisClient is the part of the go-redis client the recorder uses.
type redisClient interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *goredis.StatusCmd
	Get(ctx context.Context, key string) *goredis.StringCmd
	Publish(ctx context.Context, channel string, message interface{}) *goredis.IntCmd
	Close() error
}

// LatestKey is the Redis key holding the latest run of a group.
func LatestKey(groupID string) string {
	return "signaldesk:group:" + groupID + ":latest"
}

// RedisRecorder caches the latest run of each group and publishes every run.
type RedisRecorder struct {
	client  redisClient
	channel string
	ttl     time.Duration
}

// NewRedisRecorder connects to Redis and verifies the connection.
func NewRedisRecorder(addr, password string, db int, channel string, ttl time.Duration) (*RedisRecorder, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", addr, err)
	}
	log.Printf("[INFO] redis recorder connected to %s", addr)
	return &RedisRecorder{client: client, channel: channel, ttl: ttl}, nil
}

func (r *RedisRecorder) RecordGroup(ctx context.Context, res *model.GroupAnalysisResult) error {
	data, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("encode run: %w", err)
	}
	if err := r.client.Set(ctx, LatestKey(res.GroupID), data, r.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	if r.channel != "" {
		if err := r.client.Publish(ctx, r.channel, data).Err(); err != nil {
			return fmt.Errorf("redis publish: %w", err)
		}
	}
	return nil
}

func (r *RedisRecorder) LatestRun(ctx context.Context, groupID string) (*model.GroupAnalysisResult, error) {
	data, err := r.client.Get(ctx, LatestKey(groupID)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, fmt.Errorf("group %s: %w", groupID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("redis get: %w", err)
	}
	res := &model.GroupAnalysisResult{}
	if err := json.Unmarshal(data, res); err != nil {
		return nil, fmt.Errorf("decode run: %w", err)
	}
	return res, nil
}

func (r *RedisRecorder) Close() error {
	return r.client.Close()
}
