package resilience_test

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fsn-capital/gocommon/resilience"
)

func ExampleNewSimpleRetrier() {
	retrier, err := resilience.NewSimpleRetrier(resilience.RetrierConfig{
		WaitGen:  resilience.WaitConstant,
		Base:     time.Millisecond,
		MaxTries: 3,
		OnBackoff: func(ctx context.Context, d resilience.BackoffDetails) {
			fmt.Printf("backing off after try %d\n", d.Tries)
		},
	})
	if err != nil {
		fmt.Println(err)
		return
	}

	attempts := 0
	err = retrier.Execute(context.Background(), func(ctx context.Context) error {
		attempts++
		if attempts < 3 {
			return errors.New("service unavailable")
		}
		return nil
	})

	fmt.Println("attempts:", attempts, "error:", err)
	// Output:
	// backing off after try 1
	// backing off after try 2
	// attempts: 3 error: <nil>
}

func ExampleNewSimpleRetrier_unknownKind() {
	_, err := resilience.NewSimpleRetrier(resilience.RetrierConfig{Kind: "on_timeout"})

	fmt.Println(errors.Is(err, resilience.ErrUnknownKind))
	// Output:
	// true
}

func ExampleWrap() {
	retrier, _ := resilience.NewSimpleRetrier(resilience.RetrierConfig{
		Kind:     resilience.KindOnPredicate,
		WaitGen:  resilience.WaitConstant,
		Base:     time.Millisecond,
		MaxTries: 5,
		Predicate: resilience.ValuePredicate(func(status string, err error) bool {
			return err != nil || status != "done"
		}),
	})

	statuses := []string{"queued", "running", "done"}
	poll := resilience.Wrap(retrier, "job_status", func(ctx context.Context) (string, error) {
		s := statuses[0]
		statuses = statuses[1:]
		return s, nil
	})

	status, _ := poll(context.Background())
	fmt.Println(status)
	// Output:
	// done
}

func ExampleUseRateLimiter() {
	err := resilience.UseRateLimiter(resilience.RateLimiterConfig{
		MaxCalls: 2,
		Period:   time.Minute,
	}, func(rl *resilience.RateLimiter) error {
		for i := 0; i < 2; i++ {
			if err := rl.Limit(); err != nil {
				return err
			}
		}
		fmt.Println("calls in window:", rl.Calls())
		return nil
	})

	fmt.Println("error:", err)
	// Output:
	// calls in window: 2
	// error: <nil>
}

func ExampleRateLimiter_Finalize() {
	rl := resilience.NewRateLimiter(resilience.RateLimiterConfig{
		MaxCalls: 1,
		Period:   time.Hour,
	})

	_ = rl.Limit()
	rl.Finalize()

	fmt.Println(rl.Limit())
	// Output:
	// resilience: rate limiter finalized
}

func ExampleConditionalRetrier_PolicyIfConditionsMet() {
	type upload struct {
		Object     string
		Generation *int64
	}

	c, _ := resilience.NewConditionalRetrier(
		resilience.Require(
			func(u upload) *int64 { return u.Generation },
			func(g *int64) bool { return g != nil },
		),
		resilience.DefaultRetrierConfig(),
	)

	gen := int64(3)
	fmt.Println(c.PolicyIfConditionsMet(upload{Object: "a"}) != nil)
	fmt.Println(c.PolicyIfConditionsMet(upload{Object: "a", Generation: &gen}) != nil)
	// Output:
	// false
	// true
}

func ExampleNewExecutor() {
	rl := resilience.NewRateLimiter(resilience.RateLimiterConfig{
		MaxCalls: 15,
		Period:   15 * time.Minute,
	})
	retrier, _ := resilience.NewSimpleRetrier(resilience.RetrierConfig{
		Base:     time.Millisecond,
		MaxTries: 3,
	})

	executor := resilience.NewExecutor(
		resilience.WithRateLimiter(rl),
		resilience.WithRetrier(retrier),
	)
	defer executor.Close()

	attempts := 0
	err := executor.Execute(context.Background(), func(ctx context.Context) error {
		attempts++
		if attempts == 1 {
			return errors.New("connection reset")
		}
		return nil
	})

	fmt.Println("attempts:", attempts, "error:", err, "admitted:", rl.Calls())
	// Output:
	// attempts: 2 error: <nil> admitted: 1
}
