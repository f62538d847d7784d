package resilience

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// WakePolicy selects which waiting callers a window reset wakes.
type WakePolicy int

const (
	// WakeBounded wakes at most MaxCalls waiters per reset and admits them as
	// part of the reset, so a woken caller proceeds without contending again.
	WakeBounded WakePolicy = iota

	// WakeBroadcast wakes every waiter on each reset. Woken callers re-check
	// capacity and those that lose go back to waiting.
	WakeBroadcast
)

// String returns the string representation of the policy.
func (p WakePolicy) String() string {
	switch p {
	case WakeBounded:
		return "bounded"
	case WakeBroadcast:
		return "broadcast"
	default:
		return "unknown"
	}
}

// ParseWakePolicy parses "bounded" (or empty) and "broadcast".
func ParseWakePolicy(s string) (WakePolicy, error) {
	switch s {
	case "bounded", "":
		return WakeBounded, nil
	case "broadcast":
		return WakeBroadcast, nil
	default:
		return WakeBounded, fmt.Errorf("resilience: unknown wake policy %q", s)
	}
}

// RateLimiterConfig configures the rate limiter.
type RateLimiterConfig struct {
	// MaxCalls is the number of operations admitted per window.
	// Values below 1 are clamped to 1.
	MaxCalls int

	// Period is the window length.
	// Default: 1 second
	Period time.Duration

	// Wake selects the wake policy applied on each window reset.
	// Default: WakeBounded
	Wake WakePolicy

	// AllowOvershoot reproduces the unsynchronized capacity check: callers
	// test the counter without the lock and wait at most one reset, so
	// concurrent callers can push a window past MaxCalls.
	// Default: false
	AllowOvershoot bool

	// Clock drives the resetter. Default: SystemClock()
	Clock Clock

	// Logger receives debug events. Default: disabled
	Logger *zerolog.Logger

	// OnAdmit is called after each admission with the time spent waiting.
	OnAdmit func(wait time.Duration)

	// OnReset is called after each window reset with the number of calls
	// admitted in the closing window and the number of waiters woken.
	OnReset func(admitted, woken int)
}

// RateLimiter admits at most MaxCalls operations per fixed-length window.
//
// A background resetter zeroes the counter every Period and wakes blocked
// callers. Finalize must be called to stop it; UseRateLimiter does so on
// every exit path.
//
// Waiters are woken in queue order, but callers arriving right after a reset
// can take free slots ahead of them, so fairness is best-effort only.
type RateLimiter struct {
	config RateLimiterConfig
	log    zerolog.Logger

	mu        sync.Mutex
	calls     atomic.Int64 // written only with mu held
	waiters   []*waiter
	finalized bool

	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

type waiter struct {
	ready    chan struct{}
	admitted bool // set by the resetter when it hands this waiter a slot
}

// NewRateLimiter creates a rate limiter and starts its resetter.
func NewRateLimiter(config RateLimiterConfig) *RateLimiter {
	// Apply defaults
	if config.MaxCalls < 1 {
		config.MaxCalls = 1
	}
	if config.Period <= 0 {
		config.Period = time.Second
	}
	if config.Clock == nil {
		config.Clock = SystemClock()
	}

	log := zerolog.Nop()
	if config.Logger != nil {
		log = config.Logger.With().Str("component", "ratelimiter").Logger()
	}

	ctx, cancel := context.WithCancel(context.Background())
	rl := &RateLimiter{
		config: config,
		log:    log,
		cancel: cancel,
		done:   make(chan struct{}),
	}
	go rl.resetLoop(ctx)

	return rl
}

// UseRateLimiter creates a limiter, passes it to fn and finalizes it when fn
// returns or panics.
func UseRateLimiter(config RateLimiterConfig, fn func(*RateLimiter) error) (err error) {
	rl := NewRateLimiter(config)
	defer func() {
		rl.Finalize()
		if err != nil {
			rl.log.Error().Err(err).Msg("rate limited scope failed")
		}
	}()

	return fn(rl)
}

// Limit blocks until the caller is admitted in the current window.
func (rl *RateLimiter) Limit() error {
	return rl.Wait(context.Background())
}

// Wait blocks until the caller is admitted, ctx is done or the limiter is
// finalized.
func (rl *RateLimiter) Wait(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	start := rl.config.Clock.Now()

	var err error
	if rl.config.AllowOvershoot {
		err = rl.waitOvershoot(ctx)
	} else {
		err = rl.waitStrict(ctx)
	}

	if err == nil && rl.config.OnAdmit != nil {
		rl.config.OnAdmit(rl.config.Clock.Now().Sub(start))
	}
	return err
}

func (rl *RateLimiter) waitStrict(ctx context.Context) error {
	rl.mu.Lock()
	for {
		if rl.finalized {
			rl.mu.Unlock()
			return ErrLimiterFinalized
		}
		if rl.calls.Load() < int64(rl.config.MaxCalls) {
			rl.admitLocked()
			rl.mu.Unlock()
			return nil
		}

		w := rl.enqueueLocked()
		rl.mu.Unlock()

		select {
		case <-w.ready:
		case <-ctx.Done():
			rl.abandon(w)
			return ctx.Err()
		}

		rl.mu.Lock()
		if w.admitted {
			rl.mu.Unlock()
			return nil
		}
	}
}

// waitOvershoot checks capacity without the lock and waits for at most one
// reset before counting the call.
func (rl *RateLimiter) waitOvershoot(ctx context.Context) error {
	if rl.calls.Load() >= int64(rl.config.MaxCalls) {
		rl.mu.Lock()
		if rl.finalized {
			rl.mu.Unlock()
			return ErrLimiterFinalized
		}
		w := rl.enqueueLocked()
		rl.mu.Unlock()

		select {
		case <-w.ready:
		case <-ctx.Done():
			rl.abandon(w)
			return ctx.Err()
		}
	}

	rl.mu.Lock()
	defer rl.mu.Unlock()

	if rl.finalized {
		return ErrLimiterFinalized
	}
	rl.admitLocked()
	return nil
}

// Execute runs op once the caller is admitted.
func (rl *RateLimiter) Execute(ctx context.Context, op func(context.Context) error) error {
	if err := rl.Wait(ctx); err != nil {
		return err
	}
	return op(ctx)
}

// Finalize stops the resetter, waits for it to exit and releases any waiting
// callers with ErrLimiterFinalized. Calls after the first are no-ops.
func (rl *RateLimiter) Finalize() {
	rl.once.Do(func() {
		rl.log.Debug().Msg("finalizing ratelimiter")

		rl.mu.Lock()
		rl.finalized = true
		rl.wakeLocked(-1, false)
		rl.mu.Unlock()

		rl.cancel()
		<-rl.done
	})
}

// MaxCalls returns the number of admissions per window.
func (rl *RateLimiter) MaxCalls() int {
	return rl.config.MaxCalls
}

// Period returns the window length.
func (rl *RateLimiter) Period() time.Duration {
	return rl.config.Period
}

// Calls returns the number of admissions in the current window.
func (rl *RateLimiter) Calls() int {
	return int(rl.calls.Load())
}

// Waiting returns the number of callers blocked for the next window.
func (rl *RateLimiter) Waiting() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.waiters)
}

// Finalized reports whether Finalize has been called.
func (rl *RateLimiter) Finalized() bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return rl.finalized
}

// Config returns the effective configuration.
func (rl *RateLimiter) Config() RateLimiterConfig {
	return rl.config
}

func (rl *RateLimiter) resetLoop(ctx context.Context) {
	defer close(rl.done)

	for {
		if err := rl.config.Clock.Sleep(ctx, rl.config.Period); err != nil {
			return
		}
		rl.reset()
	}
}

// reset zeroes the counter and wakes waiters in one critical section, so no
// waiter can observe the new window without being eligible for it.
func (rl *RateLimiter) reset() {
	rl.mu.Lock()
	admitted := int(rl.calls.Swap(0))
	rl.log.Debug().Int("admitted", admitted).Msg("resetting number of calls")

	var woken int
	switch {
	case rl.config.Wake == WakeBroadcast:
		woken = rl.wakeLocked(-1, false)
	case rl.config.AllowOvershoot:
		woken = rl.wakeLocked(rl.config.MaxCalls, false)
	default:
		woken = rl.wakeLocked(rl.config.MaxCalls, true)
	}
	rl.mu.Unlock()

	if woken > 0 {
		rl.log.Debug().Int("woken", woken).Msg("notify waiting callers")
	}
	if rl.config.OnReset != nil {
		rl.config.OnReset(admitted, woken)
	}
}

func (rl *RateLimiter) admitLocked() {
	n := rl.calls.Add(1)
	rl.log.Debug().
		Int64("num_calls", n).
		Int("max_calls", rl.config.MaxCalls).
		Msg("increase call counter")
}

func (rl *RateLimiter) enqueueLocked() *waiter {
	w := &waiter{ready: make(chan struct{})}
	rl.waiters = append(rl.waiters, w)
	return w
}

// wakeLocked releases up to n waiters from the head of the queue (all when n
// is negative). With admit set each released waiter is counted against the
// current window before it wakes.
func (rl *RateLimiter) wakeLocked(n int, admit bool) int {
	if n < 0 || n > len(rl.waiters) {
		n = len(rl.waiters)
	}
	for _, w := range rl.waiters[:n] {
		if admit {
			w.admitted = true
			rl.calls.Add(1)
		}
		close(w.ready)
	}
	clear(rl.waiters[:n])
	rl.waiters = rl.waiters[n:]
	return n
}

// abandon withdraws a waiter whose context ended. A slot already handed to it
// is passed on to the next waiter.
func (rl *RateLimiter) abandon(w *waiter) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if w.admitted {
		rl.calls.Add(-1)
		if !rl.finalized {
			rl.wakeLocked(1, true)
		}
		return
	}
	for i, x := range rl.waiters {
		if x == w {
			rl.waiters = append(rl.waiters[:i], rl.waiters[i+1:]...)
			return
		}
	}
}
