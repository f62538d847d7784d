package resilience

import "errors"

// Configuration errors.
var (
	// ErrUnknownKind is returned when a retrier is built with an unrecognized trigger kind.
	ErrUnknownKind = errors.New("resilience: unknown retry kind")

	// ErrUnknownWaitGen is returned when a retrier is built with an unrecognized wait generator.
	ErrUnknownWaitGen = errors.New("resilience: unknown wait generator")
)

// Runtime errors.
var (
	// ErrLimiterFinalized is returned when a rate limiter is used after Finalize,
	// or when Finalize releases a caller that was waiting for admission.
	ErrLimiterFinalized = errors.New("resilience: rate limiter finalized")
)
