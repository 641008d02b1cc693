package repository

import (
	"context"
	"fmt"
	"time"
)

// CounterRepository keeps the real-time click counters:
// "clicks:<code>", "clicks:total" and "clicks:<code>:<YYYY-MM-DD>".
// They are best-effort and carry no consistency guarantee against the
// durable click log; exact counts always come from the log.
type CounterRepository interface {
	IncrementClicks(ctx context.Context, code string, day time.Time) error
	Snapshot(ctx context.Context, code string, day time.Time) (total int64, today int64, err error)
	Reset(ctx context.Context, code string) error
}

type counterRepository struct {
	redis *RedisDB
}

func NewCounterRepository(redis *RedisDB) CounterRepository {
	return &counterRepository{redis: redis}
}

func (r *counterRepository) IncrementClicks(ctx context.Context, code string, day time.Time) error {
	pipe := r.redis.Client.Pipeline()
	pipe.Incr(ctx, "clicks:"+code)
	pipe.Incr(ctx, "clicks:total")
	pipe.Incr(ctx, "clicks:"+code+":"+day.UTC().Format("2006-01-02"))

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to increment click counters: %w", err)
	}
	return nil
}

func (r *counterRepository) Snapshot(ctx context.Context, code string, day time.Time) (int64, int64, error) {
	total, err := r.redis.Client.Get(ctx, "clicks:"+code).Int64()
	if err != nil {
		total = 0 // absent counter reads as zero
	}

	today, err := r.redis.Client.Get(ctx, "clicks:"+code+":"+day.UTC().Format("2006-01-02")).Int64()
	if err != nil {
		today = 0
	}

	return total, today, nil
}

// Reset drops the per-code counters after an operator purge. The daily keys
// for past days are left behind; only the current day is cleared.
func (r *counterRepository) Reset(ctx context.Context, code string) error {
	today := time.Now().UTC().Format("2006-01-02")
	return r.redis.Client.Del(ctx, "clicks:"+code, "clicks:"+code+":"+today).Err()
}
