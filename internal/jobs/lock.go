package jobs

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/Ebbinghaus-Team/Ebbinghaus-BE-sub000/internal/logger"
)

// Locker hands out expiring named locks. release is nil when ok is false.
type Locker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (release func(), ok bool, err error)
}

// LocalLocker is an in-process Locker for single-replica deployments.
type LocalLocker struct {
	mu    sync.Mutex
	held  map[string]time.Time
	nowFn func() time.Time
}

func NewLocalLocker() *LocalLocker {
	return &LocalLocker{held: make(map[string]time.Time), nowFn: time.Now}
}

func (l *LocalLocker) TryLock(_ context.Context, key string, ttl time.Duration) (func(), bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.nowFn()
	if exp, ok := l.held[key]; ok && now.Before(exp) {
		return nil, false, nil
	}
	exp := now.Add(ttl)
	l.held[key] = exp
	return func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		// Only drop our own hold; an expired lock may have been retaken.
		if l.held[key].Equal(exp) {
			delete(l.held, key)
		}
	}, true, nil
}

// RedisConfig configures the shared lock.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// releaseScript deletes the key only while it still holds our token.
var releaseScript = goredis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)

// RedisLocker shares locks between replicas through Redis.
type RedisLocker struct {
	rdb *goredis.Client
	log *logger.Logger
}

// NewRedisLocker connects and pings Redis.
func NewRedisLocker(ctx context.Context, cfg RedisConfig, log *logger.Logger) (*RedisLocker, error) {
	if log == nil {
		log = logger.NewNop()
	}
	rdb := goredis.NewClient(&goredis.Options{
		Addr:        cfg.Addr,
		Password:    cfg.Password,
		DB:          cfg.DB,
		DialTimeout: 5 * time.Second,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &RedisLocker{rdb: rdb, log: log.With("component", "redis-locker")}, nil
}

func (r *RedisLocker) TryLock(ctx context.Context, key string, ttl time.Duration) (func(), bool, error) {
	token := uuid.NewString()
	ok, err := r.rdb.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return nil, false, fmt.Errorf("acquire lock %s: %w", key, err)
	}
	if !ok {
		return nil, false, nil
	}
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := releaseScript.Run(ctx, r.rdb, []string{key}, token).Err(); err != nil {
			r.log.Warn("release lock failed", "key", key, "error", err)
		}
	}, true, nil
}

func (r *RedisLocker) Close() error {
	return r.rdb.Close()
}
