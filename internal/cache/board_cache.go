package cache

import (
	"context"
	"encoding/json"
	"errors"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/d60-Lab/threadboard/internal/model"
	"github.com/d60-Lab/threadboard/pkg/logger"
)

const (
	boardKey = "threadboard:board:top"
	// genKey 每次失效自增；回源结果只有在代数未变时才允许写回
	genKey = "threadboard:board:gen"
)

// BoardCache caches the top-of-board listing as a single JSON blob.
// A nil *BoardCache is valid and never hits.
type BoardCache struct {
	client *redis.Client
	ttl    time.Duration

	hits   atomic.Int64
	misses atomic.Int64
	stale  atomic.Int64
}

func NewBoardCache(client *redis.Client, ttl time.Duration) *BoardCache {
	if client == nil {
		return nil
	}
	if ttl <= 0 {
		ttl = 15 * time.Second
	}
	return &BoardCache{client: client, ttl: ttl}
}

// Get returns the cached listing; ok is false on miss or decode failure.
func (c *BoardCache) Get(ctx context.Context) ([]*model.Post, bool) {
	if c == nil {
		return nil, false
	}
	data, err := c.client.Get(ctx, boardKey).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			logger.Warn("board cache get failed", zap.Error(err))
		}
		c.misses.Add(1)
		return nil, false
	}
	var posts []*model.Post
	if err := json.Unmarshal(data, &posts); err != nil {
		c.misses.Add(1)
		return nil, false
	}
	c.hits.Add(1)
	return posts, true
}

// Generation 读取当前失效代数，须在回源查询之前调用。
// 返回 -1 表示读取失败，此时 Set 不会写入。
func (c *BoardCache) Generation(ctx context.Context) int64 {
	if c == nil {
		return -1
	}
	gen, err := c.client.Get(ctx, genKey).Int64()
	switch {
	case errors.Is(err, redis.Nil):
		return 0
	case err != nil:
		logger.Warn("board cache generation read failed", zap.Error(err))
		return -1
	}
	return gen
}

// Set 仅当代数仍为 gen 时写入；期间发生过失效则丢弃这次回源结果
func (c *BoardCache) Set(ctx context.Context, gen int64, posts []*model.Post) {
	if c == nil || gen < 0 {
		return
	}
	payload, err := json.Marshal(posts)
	if err != nil {
		return
	}
	err = c.client.Watch(ctx, func(tx *redis.Tx) error {
		cur, err := tx.Get(ctx, genKey).Int64()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if cur != gen {
			c.stale.Add(1)
			return nil
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, boardKey, payload, c.ttl)
			return nil
		})
		return err
	}, genKey)
	switch {
	case errors.Is(err, redis.TxFailedErr):
		// WATCH 期间被失效
		c.stale.Add(1)
	case err != nil:
		logger.Warn("board cache set failed", zap.Error(err))
	}
}

// Invalidate drops the listing after any write and bumps the generation
// so that in-flight reads cannot write back what they loaded before it.
func (c *BoardCache) Invalidate(ctx context.Context) {
	if c == nil {
		return
	}
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, genKey)
		pipe.Del(ctx, boardKey)
		return nil
	})
	if err != nil {
		logger.Warn("board cache invalidate failed", zap.Error(err))
	}
}

// StaleDrops 因代数变化而放弃写回的次数
func (c *BoardCache) StaleDrops() int64 {
	if c == nil {
		return 0
	}
	return c.stale.Load()
}

// Counters reports hit/miss totals since start.
func (c *BoardCache) Counters() (hits, misses int64) {
	if c == nil {
		return 0, 0
	}
	return c.hits.Load(), c.misses.Load()
}
