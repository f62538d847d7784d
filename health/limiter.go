package health

import (
	"context"
	"fmt"

	"github.com/fsn-capital/gocommon/resilience"
)

// LimiterState is the view of a rate limiter a LimiterChecker needs.
// *resilience.RateLimiter implements it.
type LimiterState interface {
	MaxCalls() int
	Calls() int
	Waiting() int
	Finalized() bool
}

var _ LimiterState = (*resilience.RateLimiter)(nil)

// LimiterChecker reports the health of a rate limiter: healthy while it
// admits calls, degraded while callers queue for the next window, and
// unhealthy once it has been finalized.
type LimiterChecker struct {
	name    string
	limiter LimiterState
}

// NewLimiterChecker creates a checker for limiter.
func NewLimiterChecker(name string, limiter LimiterState) *LimiterChecker {
	return &LimiterChecker{name: name, limiter: limiter}
}

// Name returns the name of this checker.
func (c *LimiterChecker) Name() string {
	return c.name
}

// Check inspects the limiter's current window.
func (c *LimiterChecker) Check(ctx context.Context) Result {
	calls, maxCalls, waiting := c.limiter.Calls(), c.limiter.MaxCalls(), c.limiter.Waiting()
	details := map[string]any{
		"calls":     calls,
		"max_calls": maxCalls,
		"waiting":   waiting,
	}

	switch {
	case c.limiter.Finalized():
		return Unhealthy("rate limiter finalized", resilience.ErrLimiterFinalized).WithDetails(details)
	case waiting > 0:
		return Degraded(fmt.Sprintf("%d callers waiting for the next window", waiting)).WithDetails(details)
	default:
		return Healthy(fmt.Sprintf("%d/%d calls in current window", calls, maxCalls)).WithDetails(details)
	}
}
