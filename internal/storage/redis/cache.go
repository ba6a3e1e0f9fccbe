// Package redis wraps go-redis for the small amount of auxiliary caching
// the API process needs: deduplicating rapid double-clicks on triggerNow.
// The Keycloak signing key is cached in memory by pkg/keycloak, not here.
// Adapted from the teacher's
// internal/storage/redis/cache.go (SetJSON/GetJSON over *redis.Client).
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

type Client struct {
	*redis.Client
}

func NewClient(redisURL string) *Client {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		opt = &redis.Options{Addr: redisURL}
	}
	return &Client{redis.NewClient(opt)}
}

func (c *Client) SetJSON(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return c.Set(ctx, key, data, expiration).Err()
}

func (c *Client) GetJSON(ctx context.Context, key string, dest interface{}) error {
	data, err := c.Get(ctx, key).Result()
	if err != nil {
		return err
	}
	return json.Unmarshal([]byte(data), dest)
}

// MarkTriggered records that a manual trigger was just accepted for an
// entry, so a rapid duplicate request against the API within the dedup
// window can be rejected before a second run record is even opened.
func (c *Client) MarkTriggered(ctx context.Context, entryID string, window time.Duration) (accepted bool, err error) {
	key := fmt.Sprintf("trigger:dedup:%s", entryID)
	ok, err := c.SetNX(ctx, key, "1", window).Result()
	return ok, err
}
