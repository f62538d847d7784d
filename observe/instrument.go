package observe

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/fsn-capital/gocommon/resilience"
)

// BackoffLogger returns a retry handler that logs each backoff at debug level.
func BackoffLogger(logger Logger) resilience.Handler {
	return func(ctx context.Context, d resilience.BackoffDetails) {
		fields := []Field{
			{Key: "target", Value: d.Target},
			{Key: "call_id", Value: d.CallID},
			{Key: "tries", Value: d.Tries},
			{Key: "wait", Value: d.Wait},
		}
		if d.Outcome.Err != nil {
			fields = append(fields, Field{Key: "error", Value: d.Outcome.Err})
		}
		logger.Debug(ctx, "backing off", fields...)
	}
}

// RetryInstrumentation records retry decisions as metrics, span events and
// debug logs.
type RetryInstrumentation struct {
	logger   Logger
	backoffs metric.Int64Counter
	giveups  metric.Int64Counter
	waitHist metric.Float64Histogram
	tries    metric.Int64Histogram
	logBack  resilience.Handler
}

// NewRetryInstrumentation creates the retry instruments on meter.
func NewRetryInstrumentation(meter metric.Meter, logger Logger) (*RetryInstrumentation, error) {
	backoffs, err := meter.Int64Counter(
		"resilience.retry.backoffs",
		metric.WithDescription("Number of backoffs before a retry attempt"),
		metric.WithUnit("{backoff}"),
	)
	if err != nil {
		return nil, err
	}

	giveups, err := meter.Int64Counter(
		"resilience.retry.giveups",
		metric.WithDescription("Number of calls that exhausted their retry budget"),
		metric.WithUnit("{call}"),
	)
	if err != nil {
		return nil, err
	}

	waitHist, err := meter.Float64Histogram(
		"resilience.retry.wait_ms",
		metric.WithDescription("Backoff wait before a retry attempt in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	tries, err := meter.Int64Histogram(
		"resilience.retry.tries",
		metric.WithDescription("Attempts made per call"),
		metric.WithUnit("{attempt}"),
	)
	if err != nil {
		return nil, err
	}

	if logger == nil {
		logger = &noopLogger{}
	}

	return &RetryInstrumentation{
		logger:   logger,
		backoffs: backoffs,
		giveups:  giveups,
		waitHist: waitHist,
		tries:    tries,
		logBack:  BackoffLogger(logger),
	}, nil
}

// RetryInstrumentationFromObserver creates a RetryInstrumentation from an Observer.
func RetryInstrumentationFromObserver(obs Observer) (*RetryInstrumentation, error) {
	if obs == nil {
		return nil, ErrNilObserver
	}
	return NewRetryInstrumentation(obs.Meter(), obs.Logger())
}

// OnBackoff records a backoff.
func (i *RetryInstrumentation) OnBackoff(ctx context.Context, d resilience.BackoffDetails) {
	opt := metric.WithAttributes(attribute.String("retry.target", d.Target))
	i.backoffs.Add(ctx, 1, opt)
	i.waitHist.Record(ctx, float64(d.Wait.Milliseconds()), opt)

	attrs := []attribute.KeyValue{
		attribute.String("retry.call_id", d.CallID),
		attribute.Int("retry.tries", d.Tries),
		attribute.Int64("retry.wait_ms", d.Wait.Milliseconds()),
	}
	if d.Outcome.Err != nil {
		attrs = append(attrs, attribute.String("retry.error", d.Outcome.Err.Error()))
	}
	trace.SpanFromContext(ctx).AddEvent("backoff", trace.WithAttributes(attrs...))

	i.logBack(ctx, d)
}

// OnGiveup records a call that exhausted its budget.
func (i *RetryInstrumentation) OnGiveup(ctx context.Context, d resilience.BackoffDetails) {
	opt := metric.WithAttributes(attribute.String("retry.target", d.Target))
	i.giveups.Add(ctx, 1, opt)
	i.tries.Record(ctx, int64(d.Tries), opt)

	i.logger.Warn(ctx, "giving up",
		Field{Key: "target", Value: d.Target},
		Field{Key: "call_id", Value: d.CallID},
		Field{Key: "tries", Value: d.Tries},
		Field{Key: "elapsed", Value: d.Elapsed},
		Field{Key: "error", Value: d.Outcome.Err},
	)
}

// OnSuccess records a successful call.
func (i *RetryInstrumentation) OnSuccess(ctx context.Context, d resilience.BackoffDetails) {
	i.tries.Record(ctx, int64(d.Tries), metric.WithAttributes(attribute.String("retry.target", d.Target)))
}

// Apply installs the hooks on cfg, keeping any hooks already set.
func (i *RetryInstrumentation) Apply(cfg *resilience.RetrierConfig) {
	cfg.OnBackoff = chainHandlers(cfg.OnBackoff, i.OnBackoff)
	cfg.OnGiveup = chainHandlers(cfg.OnGiveup, i.OnGiveup)
	cfg.OnSuccess = chainHandlers(cfg.OnSuccess, i.OnSuccess)
}

func chainHandlers(first, second resilience.Handler) resilience.Handler {
	if first == nil {
		return second
	}
	return func(ctx context.Context, d resilience.BackoffDetails) {
		first(ctx, d)
		second(ctx, d)
	}
}

// LimiterInstrumentation records rate limiter admissions and window resets.
type LimiterInstrumentation struct {
	opt      metric.MeasurementOption
	admitted metric.Int64Counter
	waitHist metric.Float64Histogram
	resets   metric.Int64Counter
	window   metric.Int64Histogram
}

// NewLimiterInstrumentation creates the limiter instruments on meter. name
// identifies the limiter in metric attributes.
func NewLimiterInstrumentation(meter metric.Meter, name string) (*LimiterInstrumentation, error) {
	admitted, err := meter.Int64Counter(
		"resilience.limiter.admitted",
		metric.WithDescription("Number of calls admitted by the rate limiter"),
		metric.WithUnit("{call}"),
	)
	if err != nil {
		return nil, err
	}

	waitHist, err := meter.Float64Histogram(
		"resilience.limiter.wait_ms",
		metric.WithDescription("Time spent waiting for admission in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	resets, err := meter.Int64Counter(
		"resilience.limiter.resets",
		metric.WithDescription("Number of window resets"),
		metric.WithUnit("{reset}"),
	)
	if err != nil {
		return nil, err
	}

	window, err := meter.Int64Histogram(
		"resilience.limiter.window_calls",
		metric.WithDescription("Calls admitted per closed window"),
		metric.WithUnit("{call}"),
	)
	if err != nil {
		return nil, err
	}

	return &LimiterInstrumentation{
		opt:      metric.WithAttributes(attribute.String("limiter.name", name)),
		admitted: admitted,
		waitHist: waitHist,
		resets:   resets,
		window:   window,
	}, nil
}

// OnAdmit records an admission and the time spent waiting for it.
func (i *LimiterInstrumentation) OnAdmit(wait time.Duration) {
	ctx := context.Background()
	i.admitted.Add(ctx, 1, i.opt)
	i.waitHist.Record(ctx, float64(wait.Milliseconds()), i.opt)
}

// OnReset records a window reset.
func (i *LimiterInstrumentation) OnReset(admitted, woken int) {
	ctx := context.Background()
	i.resets.Add(ctx, 1, i.opt)
	i.window.Record(ctx, int64(admitted), i.opt)
}

// Apply installs the hooks on cfg, keeping any hooks already set.
func (i *LimiterInstrumentation) Apply(cfg *resilience.RateLimiterConfig) {
	if prev := cfg.OnAdmit; prev != nil {
		cfg.OnAdmit = func(wait time.Duration) {
			prev(wait)
			i.OnAdmit(wait)
		}
	} else {
		cfg.OnAdmit = i.OnAdmit
	}

	if prev := cfg.OnReset; prev != nil {
		cfg.OnReset = func(admitted, woken int) {
			prev(admitted, woken)
			i.OnReset(admitted, woken)
		}
	} else {
		cfg.OnReset = i.OnReset
	}
}
