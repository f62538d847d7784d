package resilience

import "errors"

// Stop marks err as terminal. A retrier returns the unwrapped error at once,
// regardless of its trigger or remaining budget.
func Stop(err error) error {
	if err == nil {
		return nil
	}
	return &stopError{err: err}
}

type stopError struct {
	err error
}

func (e *stopError) Error() string {
	return e.err.Error()
}

func (e *stopError) Unwrap() error {
	return e.err
}

// unwrapStop returns the error inside a Stop marker and whether one was found.
func unwrapStop(err error) (error, bool) {
	var stopped *stopError
	if errors.As(err, &stopped) {
		return stopped.err, true
	}
	return err, false
}
