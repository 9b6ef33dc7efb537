// SPDX-FileCopyrightText: © 2025 DSLab - Fondazione Bruno Kessler
//
// SPDX-License-Identifier: Apache-2.0

package utils

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/docker/go-units"

	"github.com/scc-digitalhub/filedrop-sdk/sdk/models"
)

/* ------------ tiny UI helper for single-line progress ------------ */

// ProgressPrinter renders a models.Progress on one terminal line.
type ProgressPrinter struct {
	out      io.Writer
	interval time.Duration
	now      func() time.Time

	mu       sync.Mutex
	lastTick time.Time
	stop     func()
}

func NewProgressPrinter(out io.Writer) *ProgressPrinter {
	return &ProgressPrinter{out: out, interval: 100 * time.Millisecond, now: time.Now}
}

// Attach starts rendering p. A previous progress is detached.
func (pp *ProgressPrinter) Attach(p *models.Progress) {
	pp.mu.Lock()
	if pp.stop != nil {
		pp.stop()
	}
	pp.mu.Unlock()

	stop := p.Subscribe(func(done, total int64) {
		pp.render(done, total, done == total)
	})

	pp.mu.Lock()
	pp.stop = stop
	pp.mu.Unlock()
	pp.render(p.Completed(), p.Total(), true)
}

// Done detaches and terminates the line.
func (pp *ProgressPrinter) Done() {
	pp.mu.Lock()
	defer pp.mu.Unlock()
	if pp.stop != nil {
		pp.stop()
		pp.stop = nil
		fmt.Fprintln(pp.out)
	}
}

func (pp *ProgressPrinter) render(done, total int64, force bool) {
	pp.mu.Lock()
	defer pp.mu.Unlock()

	// throttling: update ~10 times each second to avoid "spamming"
	now := pp.now()
	if !force && now.Sub(pp.lastTick) < pp.interval {
		return
	}
	pp.lastTick = now

	pct := 100.0
	if total > 0 {
		pct = float64(done) / float64(total) * 100
	}
	fmt.Fprintf(pp.out, "\rProgress: %6.2f%% (%s / %s)   ",
		pct, units.BytesSize(float64(done)), units.BytesSize(float64(total)))
}
