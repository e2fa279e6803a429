package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// ErrQuotaExhausted is returned when today's call quota is used up.
var ErrQuotaExhausted = errors.New("daily call quota exhausted")

// counterGrace keeps a day's counter around after the day ended.
const counterGrace = time.Hour

// Prometheus metrics for quota tracking.
var (
	catalogQuotaUsed = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "catalog_quota_used",
		Help: "Catalog calls counted against today's quota",
	})

	catalogQuotaBlocksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "catalog_quota_blocks_total",
		Help: "Total number of requests refused because the daily quota was exhausted",
	})

	catalogQuotaWarningsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "catalog_quota_warnings_total",
		Help: "Total number of requests made with less than 10% of the daily quota left",
	})
)

// Tracker counts catalog calls per UTC day and gates requests.
type Tracker struct {
	redis  *redis.Client
	limit  int
	logger zerolog.Logger
	now    func() time.Time
}

// NewTracker creates a new quota tracker. A limit <= 0 disables gating but
// calls are still counted.
func NewTracker(redisClient *redis.Client, limit int, logger zerolog.Logger) *Tracker {
	if redisClient == nil {
		panic("redis client cannot be nil")
	}
	return &Tracker{
		redis:  redisClient,
		limit:  limit,
		logger: logger,
		now:    time.Now,
	}
}

// GetState retrieves today's quota state from Redis.
// Returns a zero usage state if nothing was counted yet today.
func (t *Tracker) GetState(ctx context.Context) (*QuotaState, error) {
	now := t.now()
	day := DayOf(now)

	used, err := t.redis.Get(ctx, RedisKeyQuotaPrefix+day).Int()
	if err != nil && err != redis.Nil {
		return nil, fmt.Errorf("get quota counter: %w", err)
	}

	return &QuotaState{
		Day:     day,
		Used:    used,
		Limit:   t.limit,
		ResetAt: NextReset(now),
	}, nil
}

// Acquire counts one call against today's quota.
// Returns ErrQuotaExhausted, without counting, if the quota is used up.
func (t *Tracker) Acquire(ctx context.Context) error {
	now := t.now()
	day := DayOf(now)
	key := RedisKeyQuotaPrefix + day
	resetAt := NextReset(now)

	pipe := t.redis.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.ExpireAt(ctx, key, resetAt.Add(counterGrace))
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("count quota call: %w", err)
	}

	state := &QuotaState{
		Day:     day,
		Used:    int(incr.Val()),
		Limit:   t.limit,
		ResetAt: resetAt,
	}

	if t.limit > 0 && state.Used > t.limit {
		// Refused calls are not made, give the slot back.
		if err := t.redis.Decr(ctx, key).Err(); err != nil {
			t.logger.Warn().Err(err).Msg("Failed to release refused quota slot")
		}
		catalogQuotaBlocksTotal.Inc()
		t.logger.Error().
			Int("limit", t.limit).
			Dur("wait_duration", state.TimeUntilReset()).
			Msg("Catalog daily quota exhausted - blocking request")
		return fmt.Errorf("%w: %d calls used, resets at %s", ErrQuotaExhausted, t.limit, resetAt.Format(time.RFC3339))
	}

	catalogQuotaUsed.Set(float64(state.Used))

	if state.NeedsWarning() {
		catalogQuotaWarningsTotal.Inc()
		t.logger.Warn().
			Int("used", state.Used).
			Int("remaining", state.Remaining()).
			Msg("Catalog daily quota running low")
	}

	return nil
}
