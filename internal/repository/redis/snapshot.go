package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Xausdorf/signup-bot/internal/domain"
	"github.com/Xausdorf/signup-bot/internal/repository/record"
)

const snapshotKey = "signup:snapshot"

// SnapshotRepository keeps the msgpack-encoded snapshot under a single key.
type SnapshotRepository struct {
	client *redis.Client
}

func NewSnapshotRepository(ctx context.Context, url string) (*SnapshotRepository, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("error parsing redis URL: %w", err)
	}

	c := redis.NewClient(opts)

	if err := c.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("error connecting to redis: %w", err)
	}

	return &SnapshotRepository{client: c}, nil
}

func (r *SnapshotRepository) Save(ctx context.Context, signups []*domain.Signup) error {
	data, err := record.Marshal(signups, time.Now())
	if err != nil {
		return fmt.Errorf("could not encode snapshot: %w", err)
	}
	if err = r.client.Set(ctx, snapshotKey, data, 0).Err(); err != nil {
		return fmt.Errorf("could not write snapshot to redis: %w", err)
	}
	return nil
}

func (r *SnapshotRepository) Load(ctx context.Context) ([]*domain.Signup, error) {
	data, err := r.client.Get(ctx, snapshotKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("could not read snapshot from redis: %w", err)
	}
	return record.Unmarshal(data)
}

func (r *SnapshotRepository) Close() error {
	return r.client.Close()
}
