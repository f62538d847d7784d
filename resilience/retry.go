package resilience

import (
	"context"
	"fmt"
	"reflect"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Kind selects what triggers a retry.
type Kind string

const (
	// KindOnException retries when the operation returns an error accepted by RetryOn.
	KindOnException Kind = "on_exception"

	// KindOnPredicate retries while Predicate holds for the attempt's Outcome.
	KindOnPredicate Kind = "on_predicate"
)

// DefaultTarget names operations wrapped without an explicit target.
const DefaultTarget = "retriable_api_request"

// Outcome is the result of a single attempt: a value, a failure, or both.
type Outcome struct {
	Value any
	Err   error
}

// BackoffDetails describes a retry decision for observers.
type BackoffDetails struct {
	// Target identifies the wrapped operation.
	Target string

	// CallID identifies one invocation of the wrapped operation across its attempts.
	CallID string

	// Tries is the number of attempts made so far.
	Tries int

	// Wait is the delay before the next attempt. Zero for give-up and success events.
	Wait time.Duration

	// Elapsed is the time since the first attempt started.
	Elapsed time.Duration

	// Outcome is the result of the latest attempt.
	Outcome Outcome
}

// Handler observes retry events. It must not block for long and cannot
// influence the retry decision.
type Handler func(ctx context.Context, details BackoffDetails)

// RetrierConfig configures a SimpleRetrier.
type RetrierConfig struct {
	// Kind selects the trigger.
	// Default: KindOnException
	Kind Kind

	// WaitGen names the wait generator: "expo", "constant", "fibo" or "linear".
	// Ignored when Schedule is set.
	// Default: "expo"
	WaitGen string

	// Schedule overrides WaitGen with a custom schedule.
	Schedule Schedule

	// Base is the first wait of the schedule (the interval for "constant").
	// Default: 1 second
	Base time.Duration

	// Factor is the growth factor of the "expo" schedule.
	// Default: 2.0
	Factor float64

	// MaxValue caps each scheduled wait before jitter. Zero means uncapped.
	MaxValue time.Duration

	// Jitter perturbs each wait. Nil disables jitter.
	Jitter Jitter

	// MaxTries bounds the total number of attempts. Zero means unbounded.
	MaxTries int

	// MaxTime bounds the time spent retrying. Zero means unbounded.
	MaxTime time.Duration

	// RetryOn decides which errors are retried under KindOnException.
	// Default: every non-nil error.
	RetryOn func(err error) bool

	// Predicate decides whether an attempt is retried under KindOnPredicate.
	// Default: retry while the attempt failed or returned a nil value.
	Predicate func(o Outcome) bool

	// OnBackoff is called before each wait.
	OnBackoff Handler

	// OnGiveup is called when a retryable attempt exhausts the budget.
	OnGiveup Handler

	// OnSuccess is called when an attempt succeeds.
	OnSuccess Handler

	// Clock drives sleeps and elapsed time. Default: SystemClock()
	Clock Clock

	// Logger receives debug events. Default: disabled
	Logger *zerolog.Logger
}

// DefaultRetrierConfig returns the policy used for remote clients: retry any
// error up to eight attempts with full-jitter exponential backoff.
func DefaultRetrierConfig() RetrierConfig {
	return RetrierConfig{
		Kind:     KindOnException,
		WaitGen:  WaitExpo,
		Base:     time.Second,
		Factor:   2.0,
		MaxTries: 8,
		Jitter:   FullJitter,
	}
}

// SimpleRetrier retries an operation on a backoff schedule. It holds no
// per-invocation state and is safe for concurrent use.
type SimpleRetrier struct {
	config   RetrierConfig
	schedule Schedule
	log      zerolog.Logger
}

// NewSimpleRetrier validates config and builds a retrier. It fails with
// ErrUnknownKind or ErrUnknownWaitGen before any operation is wrapped.
func NewSimpleRetrier(config RetrierConfig) (*SimpleRetrier, error) {
	// Apply defaults
	if config.Kind == "" {
		config.Kind = KindOnException
	}
	if config.Base <= 0 {
		config.Base = time.Second
	}
	if config.Factor <= 0 {
		config.Factor = 2.0
	}
	if config.Clock == nil {
		config.Clock = SystemClock()
	}

	switch config.Kind {
	case KindOnException:
		if config.RetryOn == nil {
			config.RetryOn = func(err error) bool { return err != nil }
		}
	case KindOnPredicate:
		if config.Predicate == nil {
			config.Predicate = func(o Outcome) bool { return o.Err != nil || isNil(o.Value) }
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, config.Kind)
	}

	schedule := config.Schedule
	if schedule == nil {
		s, err := ScheduleByName(config.WaitGen, config.Base, config.Factor)
		if err != nil {
			return nil, err
		}
		schedule = s
	}

	log := zerolog.Nop()
	if config.Logger != nil {
		log = config.Logger.With().Str("component", "retrier").Logger()
	}

	return &SimpleRetrier{
		config:   config,
		schedule: WithCap(config.MaxValue, schedule),
		log:      log,
	}, nil
}

// Func is a retryable operation producing a T.
type Func[T any] func(ctx context.Context) (T, error)

// Wrap returns an operation with the same contract as op that retries per r.
// target identifies the operation in BackoffDetails; empty means DefaultTarget.
func Wrap[T any](r *SimpleRetrier, target string, op Func[T]) Func[T] {
	if target == "" {
		target = DefaultTarget
	}
	return func(ctx context.Context) (T, error) {
		v, err := r.run(ctx, target, func(ctx context.Context) (any, error) {
			return op(ctx)
		})
		t, _ := v.(T)
		return t, err
	}
}

// Execute runs op with retry logic.
func (r *SimpleRetrier) Execute(ctx context.Context, op func(context.Context) error) error {
	return r.Do(ctx, DefaultTarget, op)
}

// Do runs op with retry logic under the given target name.
func (r *SimpleRetrier) Do(ctx context.Context, target string, op func(context.Context) error) error {
	_, err := Wrap[struct{}](r, target, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, op(ctx)
	})(ctx)
	return err
}

// Config returns the effective configuration.
func (r *SimpleRetrier) Config() RetrierConfig {
	return r.config
}

// Delay returns the scheduled wait after the n-th retry (zero-based) before jitter.
func (r *SimpleRetrier) Delay(n int) time.Duration {
	return r.schedule.Delay(n)
}

func (r *SimpleRetrier) run(ctx context.Context, target string, op func(context.Context) (any, error)) (any, error) {
	clock := r.config.Clock
	start := clock.Now()
	details := BackoffDetails{
		Target: target,
		CallID: uuid.NewString(),
	}

	for tries := 1; ; tries++ {
		v, err := op(ctx)
		if inner, stopped := unwrapStop(err); stopped {
			return v, inner
		}
		details.Tries = tries
		details.Elapsed = clock.Now().Sub(start)
		details.Outcome = Outcome{Value: v, Err: err}
		details.Wait = 0

		if !r.retryable(details.Outcome) {
			if err == nil && r.config.OnSuccess != nil {
				r.config.OnSuccess(ctx, details)
			}
			return v, err
		}

		if r.exhausted(tries, details.Elapsed) {
			r.log.Debug().
				Str("target", target).
				Int("tries", tries).
				Err(err).
				Msg("giving up")
			if r.config.OnGiveup != nil {
				r.config.OnGiveup(ctx, details)
			}
			return v, err
		}

		details.Wait = r.nextWait(tries-1, details.Elapsed)
		if r.config.OnBackoff != nil {
			r.config.OnBackoff(ctx, details)
		}

		if err := clock.Sleep(ctx, details.Wait); err != nil {
			return nil, err
		}
	}
}

func (r *SimpleRetrier) retryable(o Outcome) bool {
	if r.config.Kind == KindOnPredicate {
		return r.config.Predicate(o)
	}
	return o.Err != nil && r.config.RetryOn(o.Err)
}

func (r *SimpleRetrier) exhausted(tries int, elapsed time.Duration) bool {
	if r.config.MaxTries > 0 && tries >= r.config.MaxTries {
		return true
	}
	return r.config.MaxTime > 0 && elapsed >= r.config.MaxTime
}

// nextWait jitters the scheduled delay and clips it to the remaining time budget.
func (r *SimpleRetrier) nextWait(n int, elapsed time.Duration) time.Duration {
	wait := r.schedule.Delay(n)
	if r.config.Jitter != nil {
		wait = r.config.Jitter(wait)
	}
	if r.config.MaxTime > 0 {
		if remaining := r.config.MaxTime - elapsed; wait > remaining {
			wait = remaining
		}
	}
	if wait < 0 {
		wait = 0
	}
	return wait
}

// ValuePredicate adapts a typed predicate for KindOnPredicate. Attempts whose
// value is not a T are passed to pred as the zero T.
func ValuePredicate[T any](pred func(v T, err error) bool) func(Outcome) bool {
	return func(o Outcome) bool {
		v, _ := o.Value.(T)
		return pred(v, o.Err)
	}
}

// isNil reports whether v is nil or a typed nil of a nillable kind.
func isNil(v any) bool {
	if v == nil {
		return true
	}
	switch rv := reflect.ValueOf(v); rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface, reflect.Func, reflect.Chan:
		return rv.IsNil()
	}
	return false
}
