package redisclient

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"erp-service/internal/models"

	"github.com/go-redis/redis/v8"
)

// Client caches per-variant availability summaries. The cache is a read
// model only: Postgres stays authoritative and a miss falls back to it.
type Client struct {
	rdb *redis.Client
}

// NewClient creates a new Redis client
func NewClient(addr, password string, db int) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &Client{rdb: rdb}, nil
}

// GetClient returns the underlying Redis client
func (c *Client) GetClient() *redis.Client {
	return c.rdb
}

// Close closes the Redis connection
func (c *Client) Close() error {
	return c.rdb.Close()
}

func availabilityKey(variantID int64) string {
	return fmt.Sprintf("availability:%d", variantID)
}

// SetAvailability stores a variant's availability summary.
func (c *Client) SetAvailability(ctx context.Context, avail *models.VariantAvailability, ttl time.Duration) error {
	data, err := json.Marshal(avail)
	if err != nil {
		return fmt.Errorf("failed to marshal availability: %w", err)
	}
	return c.rdb.Set(ctx, availabilityKey(avail.VariantID), data, ttl).Err()
}

// GetAvailability retrieves a cached availability summary. Returns nil on a
// cache miss.
func (c *Client) GetAvailability(ctx context.Context, variantID int64) (*models.VariantAvailability, error) {
	data, err := c.rdb.Get(ctx, availabilityKey(variantID)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var avail models.VariantAvailability
	if err := json.Unmarshal(data, &avail); err != nil {
		return nil, fmt.Errorf("failed to unmarshal availability: %w", err)
	}
	return &avail, nil
}

// InvalidateAvailability drops a variant's cached summary.
func (c *Client) InvalidateAvailability(ctx context.Context, variantID int64) error {
	return c.rdb.Del(ctx, availabilityKey(variantID)).Err()
}
