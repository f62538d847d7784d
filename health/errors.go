package health

import "errors"

var (
	// ErrCheckTimeout indicates a health check did not finish before its deadline.
	ErrCheckTimeout = errors.New("health: check timeout")

	// ErrCheckerNotFound indicates no checker is registered under the requested name.
	ErrCheckerNotFound = errors.New("health: checker not found")
)
