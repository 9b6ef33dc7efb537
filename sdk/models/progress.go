// SPDX-FileCopyrightText: © 2025 DSLab - Fondazione Bruno Kessler
//
// SPDX-License-Identifier: Apache-2.0

package models

import (
	"sync"
	"sync/atomic"
)

// Progress aggregates bytes sent across concurrent chunk uploads.
type Progress struct {
	total     int64
	completed atomic.Int64

	subMu sync.Mutex
	subs  atomic.Pointer[[]*subscriber]
}

type subscriber struct {
	fn func(completed, total int64)
}

func NewProgress(total int64) *Progress {
	if total < 0 {
		total = 0
	}
	return &Progress{total: total}
}

func (p *Progress) Total() int64 {
	return p.total
}

func (p *Progress) Completed() int64 {
	return p.completed.Load()
}

// Fraction is completed/total, 1 when there is nothing to send.
func (p *Progress) Fraction() float64 {
	if p.total == 0 {
		return 1
	}
	return float64(p.completed.Load()) / float64(p.total)
}

// Add records n more bytes sent, clamped to the total. It returns the new
// completed count.
func (p *Progress) Add(n int64) int64 {
	if n <= 0 {
		return p.completed.Load()
	}
	for {
		cur := p.completed.Load()
		next := cur + n
		if next > p.total {
			next = p.total
		}
		if next == cur {
			return cur
		}
		if p.completed.CompareAndSwap(cur, next) {
			p.notify(next)
			return next
		}
	}
}

func (p *Progress) notify(completed int64) {
	subs := p.subs.Load()
	if subs == nil {
		return
	}
	for _, s := range *subs {
		s.fn(completed, p.total)
	}
}

// Subscribe calls fn on every change until the returned func is called.
func (p *Progress) Subscribe(fn func(completed, total int64)) (unsubscribe func()) {
	s := &subscriber{fn: fn}

	p.subMu.Lock()
	var next []*subscriber
	if cur := p.subs.Load(); cur != nil {
		next = append(next, *cur...)
	}
	next = append(next, s)
	p.subs.Store(&next)
	p.subMu.Unlock()

	return func() {
		p.subMu.Lock()
		defer p.subMu.Unlock()
		cur := p.subs.Load()
		if cur == nil {
			return
		}
		var kept []*subscriber
		for _, x := range *cur {
			if x != s {
				kept = append(kept, x)
			}
		}
		p.subs.Store(&kept)
	}
}
