package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/fsn-capital/gocommon/config"
	"github.com/fsn-capital/gocommon/health"
	"github.com/fsn-capital/gocommon/observe"
	"github.com/fsn-capital/gocommon/resilience"
)

var runFlags struct {
	workers          int
	duration         time.Duration
	failureRate      float64
	latency          time.Duration
	limitEachAttempt bool
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Drive a simulated flaky API through the limiter and retrier",
	Long: `Start N workers that call a simulated remote API for the given duration.
Every call waits for rate limiter admission and is retried on failure
according to the configuration. While running, /metrics, /healthz, /readyz
and /health are served on metrics.listen.

When the run ends the admissions of every closed window are printed.

Examples:
  callguard run --workers 8 --duration 2m --failure-rate 0.3
  GOCOMMON_RATE_LIMIT_PERIOD=10s callguard run --limit-each-attempt`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		summary, err := runLoad(ctx, cfg, loadOptions{
			Workers:          runFlags.workers,
			Duration:         runFlags.duration,
			FailureRate:      runFlags.failureRate,
			Latency:          runFlags.latency,
			LimitEachAttempt: runFlags.limitEachAttempt,
			LogWriter:        cmd.ErrOrStderr(),
		})
		if err != nil {
			return err
		}
		summary.print(cmd.OutOrStdout())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().IntVarP(&runFlags.workers, "workers", "w", 4, "number of concurrent callers")
	runCmd.Flags().DurationVarP(&runFlags.duration, "duration", "d", 30*time.Second, "how long to run")
	runCmd.Flags().Float64Var(&runFlags.failureRate, "failure-rate", 0.2, "probability that a simulated call fails")
	runCmd.Flags().DurationVar(&runFlags.latency, "latency", 20*time.Millisecond, "latency of a simulated call")
	runCmd.Flags().BoolVar(&runFlags.limitEachAttempt, "limit-each-attempt", false, "wait for admission before every retry attempt")
}

type loadOptions struct {
	Workers          int
	Duration         time.Duration
	FailureRate      float64
	Latency          time.Duration
	LimitEachAttempt bool
	LogWriter        io.Writer
}

// errTransient is the failure returned by the simulated API.
var errTransient = errors.New("simulated upstream error")

type windowStat struct {
	Admitted int
	Woken    int
}

// windowLog records every window reset of a limiter.
type windowLog struct {
	mu      sync.Mutex
	windows []windowStat
}

func (l *windowLog) record(admitted, woken int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.windows = append(l.windows, windowStat{Admitted: admitted, Woken: woken})
}

func (l *windowLog) snapshot() []windowStat {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]windowStat(nil), l.windows...)
}

type loadSummary struct {
	Succeeded int64
	Failed    int64
	Windows   []windowStat
}

func (s loadSummary) print(w io.Writer) {
	if len(s.Windows) > 0 {
		fmt.Fprintln(w, "windows:")
		for i, win := range s.Windows {
			fmt.Fprintf(w, "  #%-3d admitted=%d woken=%d\n", i+1, win.Admitted, win.Woken)
		}
	}
	fmt.Fprintf(w, "calls: %d succeeded, %d failed\n", s.Succeeded, s.Failed)
}

// client is the executor of one simulated remote API and the hooks it reports to.
type client struct {
	exec    *resilience.Executor
	limiter *resilience.RateLimiter
	windows *windowLog
}

func newClient(cfg *config.Config, obs observe.Observer, limitEachAttempt bool) (*client, error) {
	log := observe.Zerolog(obs.Logger())
	c := &client{windows: &windowLog{}}
	var opts []resilience.ExecutorOption

	if cfg.RateLimit.Enabled {
		rlCfg, err := cfg.RateLimit.Options()
		if err != nil {
			return nil, err
		}
		inst, err := observe.NewLimiterInstrumentation(obs.Meter(), cfg.Service)
		if err != nil {
			return nil, err
		}
		inst.Apply(&rlCfg)
		onReset := rlCfg.OnReset
		rlCfg.OnReset = func(admitted, woken int) {
			if onReset != nil {
				onReset(admitted, woken)
			}
			c.windows.record(admitted, woken)
		}
		rlCfg.Logger = log

		c.limiter = resilience.NewRateLimiter(rlCfg)
		opts = append(opts, resilience.WithRateLimiter(c.limiter))
		if limitEachAttempt {
			opts = append(opts, resilience.WithLimitEachAttempt())
		}
	}

	if cfg.Retry.Enabled {
		rc, err := cfg.Retry.Options()
		if err != nil {
			return nil, err
		}
		inst, err := observe.RetryInstrumentationFromObserver(obs)
		if err != nil {
			return nil, err
		}
		inst.Apply(&rc)
		rc.Logger = log

		retrier, err := resilience.NewSimpleRetrier(rc)
		if err != nil {
			if c.limiter != nil {
				c.limiter.Finalize()
			}
			return nil, err
		}
		opts = append(opts, resilience.WithRetrier(retrier))
	}

	c.exec = resilience.NewExecutor(opts...)
	return c, nil
}

// newMux serves the observer's metrics and the health of the client's limiter.
func newMux(obs observe.Observer, c *client) *http.ServeMux {
	agg := health.NewAggregator()
	if c.limiter != nil {
		agg.Register("rate_limiter", health.NewLimiterChecker("rate_limiter", c.limiter))
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", obs.MetricsHandler())
	health.RegisterHandlers(mux, agg)
	return mux
}

// simulatedCall sleeps for latency and fails with probability failureRate.
func simulatedCall(failureRate float64, latency time.Duration) func(context.Context) error {
	return func(ctx context.Context) error {
		timer := time.NewTimer(latency)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
			return ctx.Err()
		}
		// #nosec G404 -- simulated failures need no cryptographic randomness.
		if rand.Float64() < failureRate {
			return errTransient
		}
		return nil
	}
}

func runLoad(ctx context.Context, cfg *config.Config, opts loadOptions) (loadSummary, error) {
	if opts.Workers < 1 {
		return loadSummary{}, fmt.Errorf("workers must be at least 1, got %d", opts.Workers)
	}
	if opts.LogWriter == nil {
		opts.LogWriter = io.Discard
	}

	obs, err := observe.NewObserver(ctx, cfg.Observe(opts.LogWriter))
	if err != nil {
		return loadSummary{}, err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = obs.Shutdown(shutdownCtx)
	}()
	logger := obs.Logger()

	c, err := newClient(cfg, obs, opts.LimitEachAttempt)
	if err != nil {
		return loadSummary{}, err
	}
	defer c.exec.Close()

	if cfg.Metrics.Listen != "" {
		ln, err := net.Listen("tcp", cfg.Metrics.Listen)
		if err != nil {
			return loadSummary{}, fmt.Errorf("listen %s: %w", cfg.Metrics.Listen, err)
		}
		srv := &http.Server{Handler: newMux(obs, c), ReadHeaderTimeout: 5 * time.Second}
		go func() { _ = srv.Serve(ln) }()
		defer func() { _ = srv.Shutdown(context.Background()) }()
		logger.Info(ctx, "serving metrics and health", observe.Field{Key: "listen", Value: ln.Addr().String()})
	}

	mw, err := observe.MiddlewareFromObserver(obs)
	if err != nil {
		return loadSummary{}, err
	}
	meta := observe.OperationMeta{Client: cfg.Service, Name: "simulated_request"}
	call := mw.Wrap(meta, simulatedCall(opts.FailureRate, opts.Latency))

	logger.Info(ctx, "load run started",
		observe.Field{Key: "workers", Value: opts.Workers},
		observe.Field{Key: "duration", Value: opts.Duration},
		observe.Field{Key: "failure_rate", Value: opts.FailureRate},
	)

	runCtx, cancel := context.WithTimeout(ctx, opts.Duration)
	defer cancel()

	var succeeded, failed atomic.Int64
	g, gctx := errgroup.WithContext(runCtx)
	for range opts.Workers {
		g.Go(func() error {
			for gctx.Err() == nil {
				_, err := resilience.Call(gctx, c.exec, meta.OperationID(), func(ctx context.Context) (struct{}, error) {
					return struct{}{}, call(ctx)
				})
				switch {
				case gctx.Err() != nil:
					return nil
				case errors.Is(err, resilience.ErrLimiterFinalized):
					return err
				case err != nil:
					failed.Add(1)
				default:
					succeeded.Add(1)
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return loadSummary{}, err
	}

	summary := loadSummary{
		Succeeded: succeeded.Load(),
		Failed:    failed.Load(),
		Windows:   c.windows.snapshot(),
	}
	logger.Info(ctx, "load run finished",
		observe.Field{Key: "succeeded", Value: summary.Succeeded},
		observe.Field{Key: "failed", Value: summary.Failed},
		observe.Field{Key: "windows", Value: len(summary.Windows)},
	)
	return summary, nil
}
