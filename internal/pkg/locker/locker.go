package locker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/airenas/go-app/pkg/goapp"
	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"
)

// ErrNotObtained is returned when lock is held by someone else after all retries
var ErrNotObtained = errors.New("lock not obtained")

// Locker serializes work on a key across processes using redis
type Locker struct {
	client *redislock.Client
	ttl    time.Duration
	retry  redislock.RetryStrategy
}

// New creates redis based locker
func New(rdb redislock.RedisClient, ttl time.Duration) (*Locker, error) {
	if rdb == nil {
		return nil, fmt.Errorf("no redis client")
	}
	if ttl <= 0 {
		ttl = time.Second * 10
	}
	goapp.Log.Info().Str("ttl", ttl.String()).Msg("cfg: lock")
	return &Locker{client: redislock.New(rdb), ttl: ttl,
		retry: redislock.LimitRetry(redislock.LinearBackoff(100*time.Millisecond), 30)}, nil
}

// NewFromURL connects to redis by url, e.g. redis://localhost:6379/0
func NewFromURL(ctx context.Context, url string, ttl time.Duration) (*Locker, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("can't parse redis url: %w", err)
	}
	rdb := redis.NewClient(opt)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("can't connect redis: %w", err)
	}
	return New(rdb, ttl)
}

// Lock obtains a lock for key, returned func releases it
func (l *Locker) Lock(ctx context.Context, key string) (func(), error) {
	lock, err := l.client.Obtain(ctx, key, l.ttl, &redislock.Options{RetryStrategy: l.retry})
	if err != nil {
		if errors.Is(err, redislock.ErrNotObtained) {
			return nil, ErrNotObtained
		}
		return nil, fmt.Errorf("can't obtain lock: %w", err)
	}
	return func() {
		if err := lock.Release(context.WithoutCancel(ctx)); err != nil && !errors.Is(err, redislock.ErrLockNotHeld) {
			goapp.Log.Warn().Err(err).Str("key", key).Msg("can't release lock")
		}
	}, nil
}

// ReportKey is a lock key for ward and period
func ReportKey(wardID int64, period string) string {
	return fmt.Sprintf("wardrep:report:%d:%s", wardID, period)
}
