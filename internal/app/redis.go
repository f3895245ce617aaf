package app

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/guttosm/campus-access/config"
)

const (
	redisPingAttempts = 3
	redisPingBackoff  = 500 * time.Millisecond
)

// InitializeRedis connects to Redis when a URL is configured. Redis only carries the
// job lock and the application event channel, so an unreachable server is logged and
// the service runs without it.
func InitializeRedis(ctx context.Context, cfg config.RedisConfig) redis.UniversalClient {
	if cfg.URL == "" {
		return nil
	}

	client, err := connectRedis(ctx, cfg.URL)
	if err != nil {
		log.Error().Err(err).Msg("Failed to connect to Redis - continuing without it")
		return nil
	}
	log.Info().Str("addr", client.Options().Addr).Msg("Connected to Redis")
	return client
}

func connectRedis(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)

	backoff := redisPingBackoff
	for attempt := 1; ; attempt++ {
		err = client.Ping(ctx).Err()
		if err == nil {
			return client, nil
		}
		if attempt == redisPingAttempts {
			break
		}
		log.Warn().Err(err).Int("attempt", attempt).Msg("Redis ping failed, retrying")
		select {
		case <-ctx.Done():
			_ = client.Close()
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
	}
	_ = client.Close()
	return nil, fmt.Errorf("ping redis: %w", err)
}
