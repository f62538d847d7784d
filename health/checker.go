package health

import (
	"context"
	"time"
)

// Status is the health of a component. Larger values are worse, so the
// overall status of a set of results is their maximum.
type Status int

const (
	// StatusHealthy means the component serves calls normally.
	StatusHealthy Status = iota
	// StatusDegraded means calls are served late, e.g. queued for the next window.
	StatusDegraded
	// StatusUnhealthy means calls are not served.
	StatusUnhealthy
)

func (s Status) String() string {
	switch s {
	case StatusHealthy:
		return "healthy"
	case StatusDegraded:
		return "degraded"
	case StatusUnhealthy:
		return "unhealthy"
	default:
		return "unknown"
	}
}

// Result is the outcome of one check.
type Result struct {
	Status    Status
	Message   string
	Details   map[string]any
	Duration  time.Duration
	Timestamp time.Time
	Error     error
}

func newResult(status Status, message string, err error) Result {
	return Result{Status: status, Message: message, Error: err, Timestamp: time.Now()}
}

// Healthy creates a healthy result.
func Healthy(message string) Result {
	return newResult(StatusHealthy, message, nil)
}

// Degraded creates a degraded result.
func Degraded(message string) Result {
	return newResult(StatusDegraded, message, nil)
}

// Unhealthy creates an unhealthy result carrying err.
func Unhealthy(message string, err error) Result {
	return newResult(StatusUnhealthy, message, err)
}

// WithDetails returns r with details attached.
func (r Result) WithDetails(details map[string]any) Result {
	r.Details = details
	return r
}

// WithDuration returns r with its duration set.
func (r Result) WithDuration(d time.Duration) Result {
	r.Duration = d
	return r
}

// Checker reports the health of one component.
type Checker interface {
	Name() string
	Check(ctx context.Context) Result
}

// CheckerFunc adapts a function to a Checker.
type CheckerFunc struct {
	name string
	fn   func(context.Context) Result
}

// NewCheckerFunc creates a Checker named name that runs fn.
func NewCheckerFunc(name string, fn func(context.Context) Result) *CheckerFunc {
	return &CheckerFunc{name: name, fn: fn}
}

func (f *CheckerFunc) Name() string { return f.name }

func (f *CheckerFunc) Check(ctx context.Context) Result { return f.fn(ctx) }
