// Package resilience protects outbound calls to a remote service from
// overload and transient failure.
//
// It knows nothing about the operations it wraps; callers decide what is
// retryable and where admission is checked.
//
// # Patterns
//
//   - Rate Limiter: admits at most MaxCalls operations per fixed window and
//     blocks callers that would exceed it until the window resets. Each
//     limiter owns one resetter goroutine until Finalize.
//
//   - Retry: SimpleRetrier retries an operation on an exponential, constant,
//     Fibonacci or linear schedule with optional jitter, bounded by attempts
//     and elapsed time. The trigger is either an error filter
//     (KindOnException) or a predicate over the attempt's Outcome
//     (KindOnPredicate).
//
//   - Conditional Retry: ConditionalRetrier applies a retrier only to calls
//     whose arguments satisfy a condition, e.g. idempotent requests.
//
//   - Executor: one limiter and one retrier per logical client.
//
// # Usage
//
//	rl := resilience.NewRateLimiter(resilience.RateLimiterConfig{
//	    MaxCalls: 15,
//	    Period:   15 * time.Minute,
//	})
//
//	retrier, err := resilience.NewSimpleRetrier(resilience.DefaultRetrierConfig())
//	if err != nil {
//	    return err
//	}
//
//	executor := resilience.NewExecutor(
//	    resilience.WithRateLimiter(rl),
//	    resilience.WithRetrier(retrier),
//	)
//	defer executor.Close()
//
//	err = executor.Execute(ctx, func(ctx context.Context) error {
//	    return callExternalService(ctx)
//	})
package resilience
