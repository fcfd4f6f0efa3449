package matcher

import (
	"context"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// adaptiveLimiter paces calls to the completion service. Successes raise
// the rate by 20% up to 2x the initial rate; rate-limit failures halve it
// down to a quarter of the initial rate.
type adaptiveLimiter struct {
	mu          sync.Mutex
	limiter     *rate.Limiter
	maxRate     rate.Limit
	minRate     rate.Limit
	currentRate rate.Limit
}

// newAdaptiveLimiter allows perMinute calls per minute with a burst of 1.
func newAdaptiveLimiter(perMinute int) *adaptiveLimiter {
	initial := rate.Limit(float64(perMinute) / 60.0)
	return &adaptiveLimiter{
		limiter:     rate.NewLimiter(initial, 1),
		maxRate:     initial * 2,
		minRate:     initial / 4,
		currentRate: initial,
	}
}

func (a *adaptiveLimiter) Wait(ctx context.Context) error {
	return a.limiter.Wait(ctx)
}

func (a *adaptiveLimiter) Rate() rate.Limit {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.currentRate
}

func (a *adaptiveLimiter) OnSuccess() {
	a.mu.Lock()
	defer a.mu.Unlock()
	newRate := a.currentRate * 1.2
	if newRate > a.maxRate {
		newRate = a.maxRate
	}
	a.currentRate = newRate
	a.limiter.SetLimit(newRate)
}

func (a *adaptiveLimiter) OnRateLimit() {
	a.mu.Lock()
	defer a.mu.Unlock()
	newRate := a.currentRate * 0.5
	if newRate < a.minRate {
		newRate = a.minRate
	}
	a.currentRate = newRate
	a.limiter.SetLimit(newRate)
	zap.L().Warn("ai escalation rate reduced after rate limit",
		zap.Float64("new_rate_per_sec", float64(newRate)),
	)
}
