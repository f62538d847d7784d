package resilience

import (
	"fmt"
	"math"
	"math/rand/v2"
	"time"
)

// Schedule maps a retry number to the wait before the next attempt.
// n is zero-based: Delay(0) is the wait after the first failed attempt.
type Schedule interface {
	Delay(n int) time.Duration
}

// ScheduleFunc adapts a function to a Schedule.
type ScheduleFunc func(n int) time.Duration

// Delay implements Schedule.
func (f ScheduleFunc) Delay(n int) time.Duration {
	return f(n)
}

// Wait generator names accepted by ScheduleByName.
const (
	WaitExpo     = "expo"
	WaitConstant = "constant"
	WaitFibo     = "fibo"
	WaitLinear   = "linear"
)

// Exponential returns base * multiplier^n.
func Exponential(base time.Duration, multiplier float64) Schedule {
	return ScheduleFunc(func(n int) time.Duration {
		if n < 0 {
			n = 0
		}
		return scale(base, math.Pow(multiplier, float64(n)))
	})
}

// Constant always waits d.
func Constant(d time.Duration) Schedule {
	return ScheduleFunc(func(int) time.Duration {
		return d
	})
}

// Linear returns base * (n+1).
func Linear(base time.Duration) Schedule {
	return ScheduleFunc(func(n int) time.Duration {
		if n < 0 {
			n = 0
		}
		return scale(base, float64(n+1))
	})
}

// Fibonacci returns base * fib(n+1): base, base, 2*base, 3*base, 5*base, ...
func Fibonacci(base time.Duration) Schedule {
	return ScheduleFunc(func(n int) time.Duration {
		a, b := 1.0, 1.0
		for i := 0; i < n; i++ {
			a, b = b, a+b
			if math.IsInf(b, 1) {
				break
			}
		}
		return scale(base, a)
	})
}

// WithCap limits every delay of s to max. A non-positive max leaves s uncapped.
func WithCap(max time.Duration, s Schedule) Schedule {
	if max <= 0 {
		return s
	}
	return ScheduleFunc(func(n int) time.Duration {
		if d := s.Delay(n); d < max {
			return d
		}
		return max
	})
}

// ScheduleByName builds one of the named wait generators. For "constant" the
// interval is base; multiplier only applies to "expo".
func ScheduleByName(name string, base time.Duration, multiplier float64) (Schedule, error) {
	switch name {
	case WaitExpo, "":
		return Exponential(base, multiplier), nil
	case WaitConstant:
		return Constant(base), nil
	case WaitFibo:
		return Fibonacci(base), nil
	case WaitLinear:
		return Linear(base), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownWaitGen, name)
	}
}

// scale multiplies d by f, saturating at the largest representable duration.
func scale(d time.Duration, f float64) time.Duration {
	v := float64(d) * f
	if v >= math.MaxInt64 || math.IsInf(v, 1) || math.IsNaN(v) {
		return time.Duration(math.MaxInt64)
	}
	if v < 0 {
		return 0
	}
	return time.Duration(v)
}

// Jitter perturbs a scheduled wait.
type Jitter func(d time.Duration) time.Duration

// FullJitter picks a uniformly random wait in [0, d].
func FullJitter(d time.Duration) time.Duration {
	if d <= 0 {
		return 0
	}
	// #nosec G404 -- jitter is non-cryptographic timing variance.
	return time.Duration(rand.Int64N(int64(d) + 1))
}

// RandomJitter adds up to one second to d.
func RandomJitter(d time.Duration) time.Duration {
	// #nosec G404 -- jitter is non-cryptographic timing variance.
	return d + time.Duration(rand.Int64N(int64(time.Second)))
}

// JitterByName resolves "full", "random" and "none" (or empty).
func JitterByName(name string) (Jitter, error) {
	switch name {
	case "full", "full_jitter":
		return FullJitter, nil
	case "random", "random_jitter":
		return RandomJitter, nil
	case "none", "":
		return nil, nil
	default:
		return nil, fmt.Errorf("resilience: unknown jitter %q", name)
	}
}
