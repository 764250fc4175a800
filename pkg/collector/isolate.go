package collector

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
)

// ErrPanic is wrapped by faults recovered from a panicking item.
var ErrPanic = errors.New("panic while processing item")

// Outcome is the captured result of processing one item: a value or a fault.
type Outcome[O any] struct {
	Index int
	Value O
	Err   error
}

// OK reports whether the item produced a value.
func (o Outcome[O]) OK() bool {
	return o.Err == nil
}

// Isolate applies fn to every item in order and captures each result as an
// Outcome. A failing or panicking item does not affect the others. Isolate
// stops early only when ctx is done, returning the outcomes so far and the
// context error; the item interrupted by cancellation is not reported.
func Isolate[I, O any](ctx context.Context, items []I, fn func(context.Context, I) (O, error)) ([]Outcome[O], error) {
	outcomes := make([]Outcome[O], 0, len(items))

	for i, item := range items {
		if err := ctx.Err(); err != nil {
			return outcomes, err
		}

		value, err := protect(ctx, item, fn)
		if err != nil && ctx.Err() != nil {
			return outcomes, ctx.Err()
		}

		outcomes = append(outcomes, Outcome[O]{Index: i, Value: value, Err: err})
	}

	return outcomes, nil
}

func protect[I, O any](ctx context.Context, item I, fn func(context.Context, I) (O, error)) (value O, err error) {
	defer func() {
		if r := recover(); r != nil {
			var zero O
			value = zero
			err = fmt.Errorf("%w: %v\n%s", ErrPanic, r, debug.Stack())
		}
	}()

	return fn(ctx, item)
}
