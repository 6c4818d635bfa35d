package locks

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/flexinvest/platform/internal/domain"
)

// RedisLocker is a Locker backed by Redis, shared by every process pointing
// at the same Redis instance.
//
// A held lock is a lease of TTL that is refreshed every TTL/3 until released,
// so a critical section may outlive the TTL. If the process dies the lease
// expires after at most TTL.
type RedisLocker struct {
	client  *redislock.Client
	ttl     time.Duration
	refresh time.Duration
	wait    time.Duration
	retry   time.Duration
	log     zerolog.Logger
}

// RedisLockerConfig configures a RedisLocker
type RedisLockerConfig struct {
	TTL   time.Duration // lease length between refreshes
	Wait  time.Duration // upper bound Lock waits when ctx has no deadline
	Retry time.Duration // polling interval while waiting
}

// lease is the part of *redislock.Lock a held lock needs
type lease interface {
	Refresh(ctx context.Context, ttl time.Duration, opt *redislock.Options) error
	Release(ctx context.Context) error
}

// NewRedisLocker creates a RedisLocker on top of an existing go-redis client
func NewRedisLocker(rdb redis.UniversalClient, cfg RedisLockerConfig, log zerolog.Logger) *RedisLocker {
	if cfg.TTL <= 0 {
		cfg.TTL = 30 * time.Second
	}
	if cfg.Wait <= 0 {
		cfg.Wait = cfg.TTL
	}
	if cfg.Retry <= 0 {
		cfg.Retry = 50 * time.Millisecond
	}

	return &RedisLocker{
		client:  redislock.New(rdb),
		ttl:     cfg.TTL,
		refresh: cfg.TTL / 3,
		wait:    cfg.Wait,
		retry:   cfg.Retry,
		log:     log.With().Str("component", "redis_locker").Logger(),
	}
}

// NewRedisClient parses a redis:// URL and verifies connectivity
func NewRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse REDIS_URL: %w", err)
	}

	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}
	return rdb, nil
}

// Lock implements Locker
func (r *RedisLocker) Lock(ctx context.Context, key string) (Unlock, error) {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.wait)
		defer cancel()
	}

	return r.obtain(ctx, key, &redislock.Options{
		RetryStrategy: redislock.LinearBackoff(r.retry),
	})
}

// TryLock implements Locker
func (r *RedisLocker) TryLock(ctx context.Context, key string) (Unlock, error) {
	return r.obtain(ctx, key, nil)
}

func (r *RedisLocker) obtain(ctx context.Context, key string, opts *redislock.Options) (Unlock, error) {
	lock, err := r.client.Obtain(ctx, key, r.ttl, opts)
	if errors.Is(err, redislock.ErrNotObtained) {
		return nil, domain.ErrLockNotObtained
	}
	if err != nil {
		return nil, fmt.Errorf("failed to obtain lock %s: %w", key, err)
	}
	return r.hold(key, lock), nil
}

// hold keeps l alive until the returned Unlock is called
func (r *RedisLocker) hold(key string, l lease) Unlock {
	stop := make(chan struct{})
	done := make(chan struct{})
	go r.keepAlive(key, l, stop, done)

	var once sync.Once
	return func() {
		once.Do(func() {
			close(stop)
			<-done

			// Release on a fresh context so a cancelled request still frees the key
			releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := l.Release(releaseCtx); err != nil && !errors.Is(err, redislock.ErrLockNotHeld) {
				r.log.Warn().Err(err).Str("key", key).Msg("Failed to release lock")
			}
		})
	}
}

func (r *RedisLocker) keepAlive(key string, l lease, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(r.refresh)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), r.refresh)
			err := l.Refresh(ctx, r.ttl, nil)
			cancel()

			if errors.Is(err, redislock.ErrNotObtained) {
				r.log.Error().Str("key", key).Msg("Lock lease lost before release")
				return
			}
			if err != nil {
				// Transient; the lease is still valid until ttl runs out
				r.log.Warn().Err(err).Str("key", key).Msg("Failed to refresh lock lease")
			}
		}
	}
}
