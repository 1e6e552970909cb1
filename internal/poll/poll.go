// Package poll implements a bounded retry loop shared by transaction
// confirmation and fight-state watching.
package poll

import (
	"context"
	"errors"
	"time"
)

// ErrBudgetExhausted is returned by Run when every attempt was consumed
// without the step function reaching a terminal result.
var ErrBudgetExhausted = errors.New("poll: attempt budget exhausted")

type stepKind int

const (
	stepContinue stepKind = iota
	stepTerminal
	stepFail
)

// Step is the outcome of one polling attempt.
type Step[T any] struct {
	kind  stepKind
	value T
	err   error
}

// Continue signals that the condition is not met yet and another attempt
// should run after the interval.
func Continue[T any]() Step[T] { return Step[T]{kind: stepContinue} }

// Terminal stops the loop successfully with a result.
func Terminal[T any](v T) Step[T] { return Step[T]{kind: stepTerminal, value: v} }

// Fail stops the loop with an error.
func Fail[T any](err error) Step[T] { return Step[T]{kind: stepFail, err: err} }

// Run calls fn up to attempts times, sleeping interval between attempts.
// It returns fn's terminal value, fn's failure error, ctx.Err() if the
// context ends first, or ErrBudgetExhausted when attempts run out.
func Run[T any](ctx context.Context, attempts int, interval time.Duration, fn func(ctx context.Context) Step[T]) (T, error) {
	var zero T
	if attempts <= 0 {
		return zero, ErrBudgetExhausted
	}

	timer := time.NewTimer(interval)
	defer timer.Stop()
	if !timer.Stop() {
		<-timer.C
	}

	for i := 0; i < attempts; i++ {
		if err := ctx.Err(); err != nil {
			return zero, err
		}

		step := fn(ctx)
		switch step.kind {
		case stepTerminal:
			return step.value, nil
		case stepFail:
			return zero, step.err
		}

		if i == attempts-1 {
			break
		}
		timer.Reset(interval)
		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case <-timer.C:
		}
	}
	return zero, ErrBudgetExhausted
}
