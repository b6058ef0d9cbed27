package embedding

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrDailyQuota means the shared daily request budget is spent.
var ErrDailyQuota = errors.New("daily embedding quota exceeded")

// quotaScript increments the minute and day counters atomically and reports
// which limit, if any, the call would cross.
var quotaScript = redis.NewScript(`
	local rpm = redis.call('INCR', KEYS[1])
	local rpd = redis.call('INCR', KEYS[2])
	if rpm == 1 then redis.call('EXPIRE', KEYS[1], 70) end
	if rpd == 1 then redis.call('EXPIRE', KEYS[2], 86400) end

	if rpd > tonumber(ARGV[2]) then
		return {-2, rpd}
	end
	if rpm > tonumber(ARGV[1]) then
		return {-1, rpm}
	end
	return {0, rpm}
`)

// RedisQuota is a request budget shared by every process using the same
// Redis, so parallel ingestions stay under one provider quota together.
type RedisQuota struct {
	client *redis.Client
	prefix string
	rpm    int64
	rpd    int64
	now    func() time.Time
	logger *slog.Logger
}

// NewRedisQuota connects to addr. rpd <= 0 disables the daily limit.
func NewRedisQuota(ctx context.Context, addr, prefix string, rpm, rpd int64) (*RedisQuota, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", addr, err)
	}
	return newRedisQuota(client, prefix, rpm, rpd), nil
}

func newRedisQuota(client *redis.Client, prefix string, rpm, rpd int64) *RedisQuota {
	if rpd <= 0 {
		rpd = 1<<62 - 1
	}
	return &RedisQuota{
		client: client,
		prefix: prefix,
		rpm:    rpm,
		rpd:    rpd,
		now:    time.Now,
		logger: slog.Default().With("component", "quota"),
	}
}

func (q *RedisQuota) keys(now time.Time) []string {
	return []string{
		fmt.Sprintf("%s:rpm:%s", q.prefix, now.UTC().Format("2006-01-02T15:04")),
		fmt.Sprintf("%s:rpd:%s", q.prefix, now.UTC().Format("2006-01-02")),
	}
}

// take claims one request. It returns how long to wait before retrying when
// the minute budget is spent, or ErrDailyQuota.
func (q *RedisQuota) take(ctx context.Context) (time.Duration, error) {
	now := q.now()
	res, err := quotaScript.Run(ctx, q.client, q.keys(now), q.rpm, q.rpd).Int64Slice()
	if err != nil {
		return 0, fmt.Errorf("quota check failed: %w", err)
	}

	switch res[0] {
	case -2:
		return 0, fmt.Errorf("%w: %d/%d requests", ErrDailyQuota, res[1], q.rpd)
	case -1:
		wait := time.Duration(60-now.Second()) * time.Second
		if wait <= 0 {
			wait = time.Second
		}
		return wait, nil
	}
	return 0, nil
}

// Wait blocks until the shared minute budget admits one more request.
func (q *RedisQuota) Wait(ctx context.Context) error {
	for {
		wait, err := q.take(ctx)
		if err != nil {
			return err
		}
		if wait == 0 {
			return nil
		}

		q.logger.Warn("embedding quota reached, throttling", "wait", wait)
		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Usage returns the current minute and day counters.
func (q *RedisQuota) Usage(ctx context.Context) (rpm, rpd int64, err error) {
	keys := q.keys(q.now())
	pipe := q.client.Pipeline()
	rpmCmd := pipe.Get(ctx, keys[0])
	rpdCmd := pipe.Get(ctx, keys[1])
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return 0, 0, fmt.Errorf("quota usage: %w", err)
	}
	rpm, _ = rpmCmd.Int64()
	rpd, _ = rpdCmd.Int64()
	return rpm, rpd, nil
}

func (q *RedisQuota) Close() error {
	return q.client.Close()
}
