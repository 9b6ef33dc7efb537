// SPDX-FileCopyrightText: © 2025 DSLab - Fondazione Bruno Kessler
//
// SPDX-License-Identifier: Apache-2.0

package task

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/bitrise-io/go-utils/v2/log"
)

// Scheduler dispatches submitted tasks once all their predecessors finished,
// running at most `workers` bodies at a time.
type Scheduler struct {
	ctx    context.Context
	sem    chan struct{}
	logger log.Logger
	stop   func() bool

	mu    sync.Mutex
	nodes map[Node]struct{}
	wg    sync.WaitGroup
}

// NewScheduler creates a scheduler bound to ctx. workers <= 0 means unbounded.
// Cancelling ctx resolves every unfinished task with ErrCancelled.
func NewScheduler(ctx context.Context, workers int, logger log.Logger) *Scheduler {
	if logger == nil {
		logger = log.NewLogger()
	}
	s := &Scheduler{
		ctx:    ctx,
		logger: logger,
		nodes:  make(map[Node]struct{}),
	}
	if workers > 0 {
		s.sem = make(chan struct{}, workers)
	}
	s.stop = context.AfterFunc(ctx, s.cancelAll)
	return s
}

// Submit adds nodes and any not yet known predecessors to the graph. It may be
// called from a task's OnResult callback.
func (s *Scheduler) Submit(nodes ...Node) {
	for _, n := range nodes {
		s.submit(n)
	}
}

func (s *Scheduler) submit(n Node) {
	s.mu.Lock()
	if _, ok := s.nodes[n]; ok {
		s.mu.Unlock()
		return
	}
	s.nodes[n] = struct{}{}
	s.mu.Unlock()

	s.wg.Add(1)
	n.whenDone(s.wg.Done)

	deps := n.Dependencies()
	for _, d := range deps {
		s.submit(d)
	}
	if len(deps) == 0 {
		s.dispatch(n)
		return
	}

	var pending atomic.Int32
	pending.Store(int32(len(deps)))
	for _, d := range deps {
		d.whenDone(func() {
			if pending.Add(-1) == 0 {
				s.dispatch(n)
			}
		})
	}
}

func (s *Scheduler) dispatch(n Node) {
	if n.failFromDeps() {
		return
	}
	go func() {
		if s.sem != nil {
			select {
			case s.sem <- struct{}{}:
				defer func() { <-s.sem }()
			case <-s.ctx.Done():
				n.Cancel()
				return
			}
		}
		if s.ctx.Err() != nil {
			n.Cancel()
			return
		}
		s.logger.Debugf("task %s started", n.Name())
		// in-flight calls run to completion, cancellation only resolves the task
		n.start(context.WithoutCancel(s.ctx))
	}()
}

func (s *Scheduler) cancelAll() {
	s.mu.Lock()
	nodes := make([]Node, 0, len(s.nodes))
	for n := range s.nodes {
		nodes = append(nodes, n)
	}
	s.mu.Unlock()

	for _, n := range nodes {
		n.Cancel()
	}
}

// Wait blocks until every submitted task has a result.
func (s *Scheduler) Wait() {
	s.wg.Wait()
}

// Close detaches the scheduler from its context.
func (s *Scheduler) Close() {
	s.stop()
}
