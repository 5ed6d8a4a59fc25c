package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/meinhoongagan/medicnote/config"
	"github.com/meinhoongagan/medicnote/logger"
	"github.com/meinhoongagan/medicnote/realtime"
	"github.com/redis/go-redis/v9"
)

// NewClient connects to addr and pings it once.
func NewClient(ctx context.Context, addr string) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   0,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if _, err := client.Ping(ctx).Result(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect to redis at %s: %w", addr, err)
	}
	logger.Log.Info().Str("addr", addr).Msg("connected to redis")
	return client, nil
}

// NewFeed returns the Redis changefeed when REDIS_ADDR is set and the
// in-process feed otherwise. The in-process feed only reaches
// subscribers of the same server instance. The returned close func
// releases the feed and its connection.
func NewFeed(ctx context.Context, cfg *config.Config) (realtime.Feed, func(), error) {
	if cfg.RedisAddr == "" {
		logger.Log.Info().Msg("REDIS_ADDR not set, using in-process changefeed")
		feed := realtime.NewMemoryFeed()
		return feed, func() { _ = feed.Close() }, nil
	}
	client, err := NewClient(ctx, cfg.RedisAddr)
	if err != nil {
		return nil, nil, err
	}
	feed := realtime.NewRedisFeed(client)
	return feed, func() {
		if err := feed.Close(); err != nil {
			logger.Log.Warn().Err(err).Msg("close changefeed")
		}
		_ = client.Close()
	}, nil
}
