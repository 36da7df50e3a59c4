// Package redis checkpoints the decision crawl so that an interrupted run
// resumes where it stopped instead of replaying the whole export.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/eun-legal/backend/pkg/config"
	"github.com/eun-legal/backend/pkg/logger"
)

// Cursor is the resumable position of an export crawl.
type Cursor struct {
	DateEnd string `json:"dateEnd"`
	Batch   int    `json:"batch"`
}

type Client struct {
	rdb *redis.Client
}

func NewClient(ctx context.Context, cfg config.RedisConfig) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	logger.Info("Redis client initialized",
		zap.String("host", cfg.Host),
		zap.Int("db", cfg.DB),
	)

	return &Client{rdb: rdb}, nil
}

func (c *Client) Close() error {
	return c.rdb.Close()
}

func (c *Client) SaveCursor(ctx context.Context, jurisdiction string, cur Cursor) error {
	data, err := json.Marshal(cur)
	if err != nil {
		return fmt.Errorf("failed to marshal cursor: %w", err)
	}
	if err := c.rdb.Set(ctx, cursorKey(jurisdiction), data, 0).Err(); err != nil {
		return fmt.Errorf("failed to save cursor: %w", err)
	}
	return nil
}

// LoadCursor returns the saved cursor, or (nil, nil) when none exists.
func (c *Client) LoadCursor(ctx context.Context, jurisdiction string) (*Cursor, error) {
	data, err := c.rdb.Get(ctx, cursorKey(jurisdiction)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load cursor: %w", err)
	}

	var cur Cursor
	if err := json.Unmarshal(data, &cur); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cursor: %w", err)
	}
	return &cur, nil
}

func (c *Client) ClearCursor(ctx context.Context, jurisdiction string) error {
	if err := c.rdb.Del(ctx, cursorKey(jurisdiction)).Err(); err != nil {
		return fmt.Errorf("failed to clear cursor: %w", err)
	}
	return nil
}

func cursorKey(jurisdiction string) string {
	return "judilibre:cursor:" + jurisdiction
}
