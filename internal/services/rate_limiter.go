package services

import (
	"context"
	"sync"
	"time"

	"github.com/wondertwin-ai/app-otp/internal/logging"
	"go.uber.org/zap"
)

// RateLimiter implements a token bucket rate limiter
type RateLimiter struct {
	tokens     int
	maxTokens  int
	refillRate time.Duration
	lastRefill time.Time
	mutex      sync.Mutex
	logger     *logging.SafeLogger
}

// NewRateLimiter creates a new token bucket rate limiter
func NewRateLimiter(maxTokens int, refillRate time.Duration, logger *logging.SafeLogger) *RateLimiter {
	return &RateLimiter{
		tokens:     maxTokens,
		maxTokens:  maxTokens,
		refillRate: refillRate,
		lastRefill: time.Now(),
		logger:     logger,
	}
}

// NewSMSRateLimiter creates a rate limiter sized for the configured number of
// SMS sends per minute across all phones.
func NewSMSRateLimiter(maxSendsPerMinute int, logger *logging.SafeLogger) *RateLimiter {
	refillRate := time.Minute / time.Duration(maxSendsPerMinute)
	return NewRateLimiter(maxSendsPerMinute, refillRate, logger)
}

// Allow checks if a request should be allowed based on rate limiting
func (rl *RateLimiter) Allow(ctx context.Context, operation string) bool {
	rl.mutex.Lock()
	defer rl.mutex.Unlock()

	// Refill tokens based on time elapsed
	now := time.Now()
	elapsed := now.Sub(rl.lastRefill)

	tokensToAdd := int(elapsed / rl.refillRate)
	if tokensToAdd > 0 {
		rl.tokens += tokensToAdd
		if rl.tokens > rl.maxTokens {
			rl.tokens = rl.maxTokens
		}
		rl.lastRefill = now

		rl.logger.Debug("rate limiter tokens refilled",
			zap.String("operation", operation),
			zap.Int("tokens_added", tokensToAdd),
			zap.Int("current_tokens", rl.tokens),
			zap.Int("max_tokens", rl.maxTokens))
	}

	if rl.tokens > 0 {
		rl.tokens--
		rl.logger.Debug("rate limiter allowed request",
			zap.String("operation", operation),
			zap.Int("remaining_tokens", rl.tokens))
		return true
	}

	rl.logger.Warn("rate limiter rejected request",
		zap.String("operation", operation),
		zap.Int("tokens", rl.tokens),
		zap.Int("max_tokens", rl.maxTokens))
	return false
}

// GetStatus returns the current status of the rate limiter
func (rl *RateLimiter) GetStatus() (int, int) {
	rl.mutex.Lock()
	defer rl.mutex.Unlock()
	return rl.tokens, rl.maxTokens
}
