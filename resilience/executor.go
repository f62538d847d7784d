package resilience

import "context"

// Executor composes a rate limiter and a retrier for one logical client.
//
// The limiter is consulted before each call, or before each attempt when
// WithLimitEachAttempt is set. Close finalizes the limiter.
type Executor struct {
	rateLimiter      *RateLimiter
	retrier          *SimpleRetrier
	limitEachAttempt bool
}

// ExecutorOption configures an Executor.
type ExecutorOption func(*Executor)

// NewExecutor creates a new resilience executor.
func NewExecutor(opts ...ExecutorOption) *Executor {
	e := &Executor{}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// WithRateLimiter adds rate limiting to the executor. The executor takes
// ownership and finalizes the limiter on Close.
func WithRateLimiter(rl *RateLimiter) ExecutorOption {
	return func(e *Executor) {
		e.rateLimiter = rl
	}
}

// WithRetrier adds the default retry policy to the executor.
func WithRetrier(r *SimpleRetrier) ExecutorOption {
	return func(e *Executor) {
		e.retrier = r
	}
}

// WithLimitEachAttempt makes every retry attempt wait for admission, not
// just the first.
func WithLimitEachAttempt() ExecutorOption {
	return func(e *Executor) {
		e.limitEachAttempt = true
	}
}

// RateLimiter returns the executor's limiter, or nil.
func (e *Executor) RateLimiter() *RateLimiter {
	return e.rateLimiter
}

// Retrier returns the executor's default retrier, or nil.
func (e *Executor) Retrier() *SimpleRetrier {
	return e.retrier
}

// Execute runs the operation through the configured limiter and retrier.
func (e *Executor) Execute(ctx context.Context, op func(context.Context) error) error {
	return e.ExecuteWith(ctx, e.retrier, op)
}

// ExecuteWith runs the operation with retrier r instead of the default one.
// A nil r runs the operation without retry, which is what a
// ConditionalRetrier whose condition fails asks for.
func (e *Executor) ExecuteWith(ctx context.Context, r *SimpleRetrier, op func(context.Context) error) error {
	_, err := CallWith(ctx, e, r, DefaultTarget, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, op(ctx)
	})
	return err
}

// Close finalizes the rate limiter, if any.
func (e *Executor) Close() error {
	if e.rateLimiter != nil {
		e.rateLimiter.Finalize()
	}
	return nil
}

// Call runs op through e with its default retrier.
func Call[T any](ctx context.Context, e *Executor, target string, op Func[T]) (T, error) {
	return CallWith(ctx, e, e.retrier, target, op)
}

// CallWith runs op through e's limiter with retrier r (nil for no retry).
//
// The execution order is:
// 1. Rate Limiter (if configured) - once, or per attempt with WithLimitEachAttempt
// 2. Retry (if r is non-nil) - retries on failure
func CallWith[T any](ctx context.Context, e *Executor, r *SimpleRetrier, target string, op Func[T]) (T, error) {
	// Build the execution chain from inside out
	execute := op

	if e.rateLimiter != nil && e.limitEachAttempt {
		inner := execute
		execute = func(ctx context.Context) (T, error) {
			if err := e.rateLimiter.Wait(ctx); err != nil {
				var zero T
				return zero, Stop(err)
			}
			return inner(ctx)
		}
	}

	if r != nil {
		execute = Wrap(r, target, execute)
	}

	if e.rateLimiter != nil && !e.limitEachAttempt {
		if err := e.rateLimiter.Wait(ctx); err != nil {
			var zero T
			return zero, err
		}
	}

	v, err := execute(ctx)
	if inner, stopped := unwrapStop(err); stopped {
		err = inner
	}
	return v, err
}
