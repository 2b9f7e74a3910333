package cache

import (
	"context"
	"encoding/json"
	"time"

	"roomly/pkg/model"

	"github.com/redis/go-redis/v9"
)

const statusKey = "rooms:status"

// StatusCache keeps the floor-plan read model warm in Redis so polling
// clients do not hammer the registry. A miss returns (nil, nil).
type StatusCache interface {
	SetAll(ctx context.Context, statuses []model.RoomStatus) error
	GetAll(ctx context.Context) ([]model.RoomStatus, error)
	Invalidate(ctx context.Context) error
}

type statusCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewStatusCache(client *redis.Client, ttl time.Duration) StatusCache {
	return &statusCache{
		client: client,
		ttl:    ttl,
	}
}

func (c *statusCache) SetAll(ctx context.Context, statuses []model.RoomStatus) error {
	data, err := json.Marshal(statuses)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, statusKey, data, c.ttl).Err()
}

func (c *statusCache) GetAll(ctx context.Context) ([]model.RoomStatus, error) {
	data, err := c.client.Get(ctx, statusKey).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var statuses []model.RoomStatus
	if err := json.Unmarshal([]byte(data), &statuses); err != nil {
		return nil, err
	}
	return statuses, nil
}

func (c *statusCache) Invalidate(ctx context.Context) error {
	return c.client.Del(ctx, statusKey).Err()
}
