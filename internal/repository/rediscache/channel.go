// Package rediscache layers best-effort Redis caching over the Postgres
// repositories. Postgres stays the source of truth; a Redis outage degrades
// to uncached reads, never to errors.
package rediscache

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/strandhq/strand/internal/models"
	"github.com/strandhq/strand/internal/repository"
)

// ChannelCache wraps a ChannelRepository and caches the InWorkspace scope
// check, which runs before every message create and list. Only positive
// answers are cached: a channel never moves between workspaces, so "yes" is
// safe to remember, while "no" can flip to "yes" the moment the channel is
// created.
type ChannelCache struct {
	inner  repository.ChannelRepository
	rdb    *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

func NewChannelCache(inner repository.ChannelRepository, rdb *redis.Client, logger *zap.Logger) *ChannelCache {
	return &ChannelCache{
		inner:  inner,
		rdb:    rdb,
		ttl:    5 * time.Minute,
		logger: logger,
	}
}

func (c *ChannelCache) Create(ctx context.Context, workspaceID uuid.UUID, name string) (*models.Channel, error) {
	return c.inner.Create(ctx, workspaceID, name)
}

func (c *ChannelCache) ListByWorkspace(ctx context.Context, workspaceID uuid.UUID) ([]models.Channel, error) {
	return c.inner.ListByWorkspace(ctx, workspaceID)
}

func (c *ChannelCache) InWorkspace(ctx context.Context, workspaceID uuid.UUID, channelID uuid.UUID) (bool, error) {
	key := scopeKey(workspaceID, channelID)

	hit, err := c.rdb.Get(ctx, key).Result()
	if err == nil && hit == "1" {
		return true, nil
	}
	if err != nil && err != redis.Nil {
		// Cache trouble is not the caller's problem.
		c.logger.Warn("scope cache read failed", zap.Error(err))
	}

	ok, err := c.inner.InWorkspace(ctx, workspaceID, channelID)
	if err != nil {
		return false, err
	}

	if ok {
		if err := c.rdb.Set(ctx, key, "1", c.ttl).Err(); err != nil {
			c.logger.Warn("scope cache write failed", zap.Error(err))
		}
	}
	return ok, nil
}

func scopeKey(workspaceID, channelID uuid.UUID) string {
	return "scope:" + workspaceID.String() + ":" + channelID.String()
}
