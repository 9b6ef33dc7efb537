// SPDX-FileCopyrightText: © 2025 DSLab - Fondazione Bruno Kessler
//
// SPDX-License-Identifier: Apache-2.0

package task

import (
	"context"
	"errors"
	"fmt"

	"github.com/scc-digitalhub/filedrop-sdk/sdk/apierrors"
)

type chainConfig[In any] struct {
	input    *In
	validate func(In) error
	tolerate bool
}

type ChainOption[In any] func(*chainConfig[In])

// WithInput injects the input, for tasks at the root of a chain.
func WithInput[In any](in In) ChainOption[In] {
	return func(c *chainConfig[In]) {
		c.input = &in
	}
}

// WithValidator rejects inputs for which fn returns an error.
func WithValidator[In any](fn func(In) error) ChainOption[In] {
	return func(c *chainConfig[In]) {
		c.validate = fn
	}
}

// TolerateFailures runs the task even if predecessors failed.
func TolerateFailures[In any]() ChainOption[In] {
	return func(c *chainConfig[In]) {
		c.tolerate = true
	}
}

// Chain builds a task whose input is the success value of its last predecessor
// of type In, unless an input was injected with WithInput.
func Chain[In, Out any](name string, fn func(ctx context.Context, in In) (Out, error), opts ...ChainOption[In]) *Task[Out] {
	cfg := chainConfig[In]{}
	for _, o := range opts {
		o(&cfg)
	}

	t := &Task[Out]{name: name, tolerate: cfg.tolerate, done: make(chan struct{})}
	t.fn = func(ctx context.Context) (Out, error) {
		var zero Out

		var (
			in In
			ok bool
		)
		if cfg.input != nil {
			in, ok = *cfg.input, true
		} else {
			in, ok = lastValue[In](t.Dependencies())
		}
		if !ok {
			return zero, apierrors.Invalid("%s: no input from predecessors", name)
		}

		if cfg.validate != nil {
			if err := cfg.validate(in); err != nil {
				if !errors.Is(err, apierrors.ErrInvalidInput) {
					err = fmt.Errorf("%w: %s: %v", apierrors.ErrInvalidInput, name, err)
				}
				return zero, err
			}
		}
		return fn(ctx, in)
	}
	return t
}

func lastValue[In any](deps []Node) (In, bool) {
	for i := len(deps) - 1; i >= 0; i-- {
		v, ok := deps[i].(interface{ value() (In, bool) })
		if !ok {
			continue
		}
		if in, ok := v.value(); ok {
			return in, true
		}
	}
	var zero In
	return zero, false
}

// Join waits for all deps and collects their values in order. It fails with
// the first observed predecessor failure.
func Join[T any](name string, deps ...*Task[T]) *Task[[]T] {
	nodes := make([]Node, 0, len(deps))
	for _, d := range deps {
		nodes = append(nodes, d)
	}
	return New(name, func(ctx context.Context) ([]T, error) {
		out := make([]T, 0, len(deps))
		for _, d := range deps {
			v, ok := d.value()
			if !ok {
				return nil, fmt.Errorf("%s: %s did not produce a value", name, d.Name())
			}
			out = append(out, v)
		}
		return out, nil
	}).After(nodes...)
}
