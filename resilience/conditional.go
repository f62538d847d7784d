package resilience

import "context"

// ConditionalRetrier is a SimpleRetrier that only applies to calls whose
// arguments satisfy a condition. A is the call's argument type.
//
// The typical condition is an idempotency guard, e.g. retry an upload only
// when it carries a generation precondition.
type ConditionalRetrier[A any] struct {
	*SimpleRetrier
	condition func(A) bool
}

// NewConditionalRetrier builds a retrier gated by condition.
func NewConditionalRetrier[A any](condition func(A) bool, config RetrierConfig) (*ConditionalRetrier[A], error) {
	r, err := NewSimpleRetrier(config)
	if err != nil {
		return nil, err
	}
	if condition == nil {
		condition = func(A) bool { return true }
	}
	return &ConditionalRetrier[A]{SimpleRetrier: r, condition: condition}, nil
}

// Require builds a condition from a selector over the call's arguments and a
// predicate over the selected part.
func Require[A, K any](selector func(A) K, predicate func(K) bool) func(A) bool {
	return func(args A) bool {
		return predicate(selector(args))
	}
}

// PolicyIfConditionsMet returns the retrier when the condition holds for args
// and nil otherwise, in which case the call should run without retry.
func (c *ConditionalRetrier[A]) PolicyIfConditionsMet(args A) *SimpleRetrier {
	if c.condition(args) {
		return c.SimpleRetrier
	}
	return nil
}

// Invoke calls op with args, retrying only when c's condition holds for args.
func Invoke[A, T any](ctx context.Context, c *ConditionalRetrier[A], target string, args A, op func(context.Context, A) (T, error)) (T, error) {
	call := func(ctx context.Context) (T, error) {
		return op(ctx, args)
	}
	if r := c.PolicyIfConditionsMet(args); r != nil {
		return Wrap[T](r, target, call)(ctx)
	}
	return call(ctx)
}
