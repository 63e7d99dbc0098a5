package redisclient

import (
	"context"
	_ "embed"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

//go:embed scripts/hold_container.lua
var holdContainerScript string

//go:embed scripts/release_container.lua
var releaseContainerScript string

// defaultHoldTTL caps a hold whose owner never releases it, e.g. a
// client that crashed between claiming the hold and the database write.
const defaultHoldTTL = 30 * time.Second

// Client wraps redis with the container-hold scripts and the account
// state cache. The database stays authoritative; redis only
// short-circuits the obvious loser of a booking race and keeps login
// checks off the users table.
type Client struct {
	rdb           *redis.Client
	holdScript    *redis.Script
	releaseScript *redis.Script
	holdTTL       time.Duration
}

// NewClient creates a new Redis client with Lua scripts loaded.
// holdTTL <= 0 falls back to the default.
func NewClient(addr, password string, db int, holdTTL time.Duration) (*Client, error) {
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

	if holdTTL <= 0 {
		holdTTL = defaultHoldTTL
	}
	return &Client{
		rdb:           rdb,
		holdScript:    redis.NewScript(holdContainerScript),
		releaseScript: redis.NewScript(releaseContainerScript),
		holdTTL:       holdTTL,
	}, nil
}

// GetClient returns the underlying Redis client.
func (c *Client) GetClient() *redis.Client {
	return c.rdb
}

// Close closes the Redis connection.
func (c *Client) Close() error {
	return c.rdb.Close()
}

func containerKey(containerID int64) string {
	return fmt.Sprintf("container:%d", containerID)
}

// HoldContainer atomically claims a container for a booking attempt.
// Returns false when another attempt already holds it. The hold
// carries an expiry so a crashed client cannot pin the container; once
// it lapses the database row lock is back in charge.
func (c *Client) HoldContainer(ctx context.Context, containerID, holderID int64) (bool, error) {
	result, err := c.holdScript.Run(ctx, c.rdb, []string{containerKey(containerID)}, holderID, c.holdTTL.Milliseconds()).Result()
	if err != nil {
		return false, fmt.Errorf("hold container script failed: %w", err)
	}

	claimed, ok := result.(int64)
	if !ok {
		return false, fmt.Errorf("unexpected script result type")
	}
	return claimed == 1, nil
}

// ReleaseContainer returns a container hold (cancellation or failed
// booking write).
func (c *Client) ReleaseContainer(ctx context.Context, containerID int64) error {
	_, err := c.releaseScript.Run(ctx, c.rdb, []string{containerKey(containerID)}).Result()
	if err != nil {
		return fmt.Errorf("release container script failed: %w", err)
	}
	return nil
}

// InitContainer seeds the hold state for a new or re-listed container.
func (c *Client) InitContainer(ctx context.Context, containerID int64) error {
	return c.rdb.HSet(ctx, containerKey(containerID), "state", "available").Err()
}

func accountKey(userID int64) string {
	return fmt.Sprintf("account:%d", userID)
}

// CacheAccountActive stores the derived activation flag consulted by
// the login path.
func (c *Client) CacheAccountActive(ctx context.Context, userID int64, active bool, ttl time.Duration) error {
	return c.rdb.Set(ctx, accountKey(userID), active, ttl).Err()
}

// InvalidateAccount drops the cached activation state. Called after an
// onboarding decision commits so the next login read observes the new
// combined state.
func (c *Client) InvalidateAccount(ctx context.Context, userID int64) error {
	return c.rdb.Del(ctx, accountKey(userID)).Err()
}

// GetAccountActive returns the cached activation flag; found is false
// on a cache miss.
func (c *Client) GetAccountActive(ctx context.Context, userID int64) (active, found bool, err error) {
	val, err := c.rdb.Get(ctx, accountKey(userID)).Result()
	if err == redis.Nil {
		return false, false, nil
	}
	if err != nil {
		return false, false, err
	}
	return val == "1" || val == "true", true, nil
}
