package redisclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"bookstore-service/internal/models"

	"github.com/go-redis/redis/v8"
)

// Client wraps Redis, used as a cache and coordination layer only;
// the database stays the source of truth for every balance and stock
// figure.
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

// CacheToken stores the active session token for a user with TTL
func (c *Client) CacheToken(ctx context.Context, userID, token string, ttl time.Duration) error {
	return c.rdb.Set(ctx, fmt.Sprintf("token:%s", userID), token, ttl).Err()
}

// GetCachedToken returns the cached session token, "" when absent
func (c *Client) GetCachedToken(ctx context.Context, userID string) (string, error) {
	token, err := c.rdb.Get(ctx, fmt.Sprintf("token:%s", userID)).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return token, nil
}

// DropToken evicts the cached session token on logout or unregister
func (c *Client) DropToken(ctx context.Context, userID string) error {
	return c.rdb.Del(ctx, fmt.Sprintf("token:%s", userID)).Err()
}

// CacheBook stores catalog display metadata for query enrichment
func (c *Client) CacheBook(ctx context.Context, book *models.Book, ttl time.Duration) error {
	payload, err := json.Marshal(book)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, fmt.Sprintf("book:%s", book.BookID), payload, ttl).Err()
}

// GetCachedBook returns cached catalog metadata, nil on miss
func (c *Client) GetCachedBook(ctx context.Context, bookID string) (*models.Book, error) {
	payload, err := c.rdb.Get(ctx, fmt.Sprintf("book:%s", bookID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var book models.Book
	if err := json.Unmarshal(payload, &book); err != nil {
		return nil, err
	}
	return &book, nil
}

// DropBook evicts cached catalog metadata
func (c *Client) DropBook(ctx context.Context, bookID string) error {
	return c.rdb.Del(ctx, fmt.Sprintf("book:%s", bookID)).Err()
}

// AcquireLock acquires a distributed lock; used by the timeout reaper
// so only one process sweeps stale orders at a time
func (c *Client) AcquireLock(ctx context.Context, lockKey string, ttl time.Duration) (bool, error) {
	return c.rdb.SetNX(ctx, fmt.Sprintf("lock:%s", lockKey), "1", ttl).Result()
}

// ReleaseLock releases a distributed lock
func (c *Client) ReleaseLock(ctx context.Context, lockKey string) error {
	return c.rdb.Del(ctx, fmt.Sprintf("lock:%s", lockKey)).Err()
}
