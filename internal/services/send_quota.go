package services

import (
	"context"
	"fmt"
	"time"

	"github.com/wondertwin-ai/app-otp/internal/logging"
	"github.com/wondertwin-ai/app-otp/internal/observability"
	"github.com/wondertwin-ai/app-otp/internal/redisclient"
	"go.uber.org/zap"
)

// SendQuota limits how many SMS messages a single phone may receive per day.
type SendQuota interface {
	// Allow reports whether another message may be sent to the phone today
	// and consumes one slot when it may.
	Allow(ctx context.Context, phoneNumber string) bool
}

// RedisSendQuota implements SendQuota with a per-phone daily counter in Redis.
type RedisSendQuota struct {
	redis      *redisclient.Client
	dailyLimit int
	logger     *logging.SafeLogger
}

// NewRedisSendQuota creates a daily send quota backed by Redis
func NewRedisSendQuota(redis *redisclient.Client, dailyLimit int, logger *logging.SafeLogger) *RedisSendQuota {
	return &RedisSendQuota{
		redis:      redis,
		dailyLimit: dailyLimit,
		logger:     logger,
	}
}

func (q *RedisSendQuota) Allow(ctx context.Context, phoneNumber string) bool {
	key := fmt.Sprintf("otp:send_quota:%s:%s", phoneNumber, time.Now().UTC().Format("2006-01-02"))

	count, err := q.redis.Incr(ctx, key).Result()
	if err != nil {
		// Quota is advisory; fail open so a Redis outage does not block
		// verification entirely.
		q.logger.Warn("send quota check failed, allowing send",
			zap.String("phone", observability.MaskPhone(phoneNumber)),
			zap.Error(err))
		return true
	}

	if count == 1 {
		if err := q.redis.Expire(ctx, key, 24*time.Hour).Err(); err != nil {
			q.logger.Warn("failed to set quota key expiry",
				zap.String("phone", observability.MaskPhone(phoneNumber)),
				zap.Error(err))
		}
	}

	if count > int64(q.dailyLimit) {
		q.logger.Warn("daily send quota exceeded",
			zap.String("phone", observability.MaskPhone(phoneNumber)),
			zap.Int64("count", count),
			zap.Int("daily_limit", q.dailyLimit))
		return false
	}
	return true
}
