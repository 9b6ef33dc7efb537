// SPDX-FileCopyrightText: © 2025 DSLab - Fondazione Bruno Kessler
//
// SPDX-License-Identifier: Apache-2.0

// Package task implements single-result asynchronous tasks, the chaining of
// tasks into a dependency graph and a bounded scheduler that runs the graph.
package task

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/scc-digitalhub/filedrop-sdk/sdk/apierrors"
)

// Node is the untyped view of a task used by the scheduler and by dependents.
type Node interface {
	Name() string
	Dependencies() []Node
	Done() <-chan struct{}
	// Err is the terminal error, nil while running or on success.
	Err() error
	Cancel()

	whenDone(fn func())
	start(ctx context.Context)
	failFromDeps() bool
	finishedAt() uint64
}

type status int32

const (
	statusPending status = iota
	statusRunning
	statusFinished
)

// global finishing order, used to pick the first observed failure
var finishCounter atomic.Uint64

// Task is a unit of work producing exactly one Result.
type Task[T any] struct {
	name     string
	fn       func(ctx context.Context) (T, error)
	deps     []Node
	tolerate bool

	mu       sync.Mutex
	status   status
	result   Result[T]
	seq      uint64
	onResult func(Result[T])
	hooks    []func()
	done     chan struct{}
}

func New[T any](name string, fn func(ctx context.Context) (T, error)) *Task[T] {
	return &Task[T]{name: name, fn: fn, done: make(chan struct{})}
}

// After declares predecessors. It must be called before the task is submitted.
func (t *Task[T]) After(deps ...Node) *Task[T] {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, d := range deps {
		if d != nil {
			t.deps = append(t.deps, d)
		}
	}
	return t
}

// OnResult registers the completion callback. If the task already finished the
// callback runs immediately on the caller's goroutine.
func (t *Task[T]) OnResult(fn func(Result[T])) *Task[T] {
	t.mu.Lock()
	if t.status == statusFinished {
		res := t.result
		t.mu.Unlock()
		fn(res)
		return t
	}
	t.onResult = fn
	t.mu.Unlock()
	return t
}

// Start runs the task on its own goroutine, ignoring predecessors' progress.
func (t *Task[T]) Start(ctx context.Context) {
	go t.start(ctx)
}

// Wait blocks until the task finishes or ctx is done.
func (t *Task[T]) Wait(ctx context.Context) (T, error) {
	select {
	case <-t.done:
		t.mu.Lock()
		defer t.mu.Unlock()
		return t.result.Get()
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Result returns the terminal result, ok is false while the task is unresolved.
func (t *Task[T]) Result() (Result[T], bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.result, t.status == statusFinished
}

// Cancel resolves the task with ErrCancelled unless it already finished. A
// running body is not interrupted, its eventual result is discarded.
func (t *Task[T]) Cancel() {
	t.finish(Failure[T](apierrors.ErrCancelled))
}

func (t *Task[T]) Name() string {
	return t.name
}

func (t *Task[T]) Dependencies() []Node {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]Node(nil), t.deps...)
}

func (t *Task[T]) Done() <-chan struct{} {
	return t.done
}

func (t *Task[T]) Err() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.status != statusFinished {
		return nil
	}
	return t.result.Err
}

func (t *Task[T]) start(ctx context.Context) {
	t.mu.Lock()
	if t.status != statusPending {
		t.mu.Unlock()
		return
	}
	t.status = statusRunning
	t.mu.Unlock()

	if t.failFromDeps() {
		return
	}

	v, err := t.fn(ctx)
	if err != nil {
		t.finish(Failure[T](err))
		return
	}
	t.finish(Success(v))
}

// failFromDeps resolves the task with the first predecessor failure.
func (t *Task[T]) failFromDeps() bool {
	if t.tolerate {
		return false
	}
	if err := FirstError(t.Dependencies()...); err != nil {
		t.finish(Failure[T](err))
		return true
	}
	return false
}

func (t *Task[T]) finish(res Result[T]) bool {
	t.mu.Lock()
	if t.status == statusFinished {
		t.mu.Unlock()
		return false
	}
	t.status = statusFinished
	t.result = res
	t.seq = finishCounter.Add(1)
	cb := t.onResult
	hooks := t.hooks
	t.onResult, t.hooks = nil, nil
	close(t.done)
	t.mu.Unlock()

	if cb != nil {
		cb(res)
	}
	for _, h := range hooks {
		h()
	}
	return true
}

func (t *Task[T]) whenDone(fn func()) {
	t.mu.Lock()
	if t.status == statusFinished {
		t.mu.Unlock()
		fn()
		return
	}
	t.hooks = append(t.hooks, fn)
	t.mu.Unlock()
}

func (t *Task[T]) finishedAt() uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.seq
}

// value is the success value used as chained input.
func (t *Task[T]) value() (T, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.status != statusFinished || t.result.Err != nil {
		var zero T
		return zero, false
	}
	return t.result.Value, true
}

// FirstError returns the error of the earliest finished failed node.
func FirstError(nodes ...Node) error {
	var (
		first error
		best  uint64
	)
	for _, n := range nodes {
		err := n.Err()
		if err == nil {
			continue
		}
		if seq := n.finishedAt(); first == nil || seq < best {
			first, best = err, seq
		}
	}
	return first
}
