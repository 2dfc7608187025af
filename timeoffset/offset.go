// Copyright (c) 2026 Uber Technologies, Inc.
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in
// all copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
// THE SOFTWARE.

// Package timeoffset estimates the difference between the local clock and a
// peer's clock from TimeOffset exchanges.
//
// An exchange builds a series of Unix nanosecond timestamps that the two
// sides append to in turn, starting and ending locally:
//
//	[l0, r0, l1, r1, ..., ln]
//
// Each remote stamp r(i) lies between l(i) and l(i+1), so assuming symmetric
// delays the peer was r(i) - (l(i)+l(i+1))/2 ahead of us, with a round trip
// of l(i+1) - l(i).
package timeoffset

import (
	"sync"
	"time"

	"github.com/saces/r-osgi-sub000/internal/clock"
	"go.uber.org/zap"
)

// State describes how usable the current estimate is.
type State int

const (
	// Missing means there is no estimate yet.
	Missing State = iota
	// Valid estimates are fresh.
	Valid
	// Stale estimates are usable but should be refined.
	Stale
	// Expired estimates must be replaced by a full exchange.
	Expired
)

func (s State) String() string {
	switch s {
	case Missing:
		return "missing"
	case Valid:
		return "valid"
	case Stale:
		return "stale"
	case Expired:
		return "expired"
	}
	return "unknown"
}

// Sample is one round trip of an exchange.
type Sample struct {
	Offset time.Duration
	RTT    time.Duration
}

// Samples extracts the round trips of a series. Trailing stamps that do not
// complete a round trip are ignored.
func Samples(series []int64) []Sample {
	var samples []Sample
	for i := 0; i+2 < len(series); i += 2 {
		l0, r, l1 := series[i], series[i+1], series[i+2]
		samples = append(samples, Sample{
			Offset: time.Duration(r - (l0+l1)/2),
			RTT:    time.Duration(l1 - l0),
		})
	}
	return samples
}

// Estimate averages the offsets of the samples whose round trip took at most
// twice the fastest one. Slow round trips say little about the offset.
func Estimate(samples []Sample) (time.Duration, bool) {
	if len(samples) == 0 {
		return 0, false
	}

	minRTT := samples[0].RTT
	for _, s := range samples[1:] {
		if s.RTT < minRTT {
			minRTT = s.RTT
		}
	}

	var sum time.Duration
	var n int
	for _, s := range samples {
		if s.RTT <= 2*minRTT {
			sum += s.Offset
			n++
		}
	}
	return sum / time.Duration(n), true
}

// Estimator keeps the samples of recent exchanges with one peer.
type Estimator struct {
	clock         clock.Clock
	logger        *zap.Logger
	window        int
	rounds        int
	refreshRounds int
	refresh       time.Duration
	expiry        time.Duration

	mu      sync.Mutex
	samples []Sample
	offset  time.Duration
	updated time.Time
	valid   bool
}

// New builds an Estimator.
func New(opts ...Option) *Estimator {
	o := defaultOptions
	for _, opt := range opts {
		opt(&o)
	}
	return &Estimator{
		clock:         o.clock,
		logger:        o.logger,
		window:        o.window,
		rounds:        o.rounds,
		refreshRounds: o.refreshRounds,
		refresh:       o.refresh,
		expiry:        o.expiry,
	}
}

// State reports how usable the estimate is now.
func (e *Estimator) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state()
}

func (e *Estimator) state() State {
	if !e.valid {
		return Missing
	}
	age := e.clock.Now().Sub(e.updated)
	switch {
	case age > e.expiry:
		return Expired
	case age > e.refresh:
		return Stale
	default:
		return Valid
	}
}

// Plan returns how many round trips the next exchange needs and whether it
// replaces the samples (Reset) or adds to them (Refine). Zero rounds means
// the estimate is fresh.
func (e *Estimator) Plan() (rounds int, full bool) {
	switch e.State() {
	case Missing, Expired:
		return e.rounds, true
	case Stale:
		return e.refreshRounds, false
	}
	return 0, false
}

// Reset replaces all samples with those of series.
func (e *Estimator) Reset(series []int64) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.samples = nil
	return e.add(series)
}

// Refine adds the samples of series, dropping the oldest beyond the window.
func (e *Estimator) Refine(series []int64) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.add(series)
}

func (e *Estimator) add(series []int64) bool {
	e.samples = append(e.samples, Samples(series)...)
	if n := len(e.samples); n > e.window {
		e.samples = append([]Sample(nil), e.samples[n-e.window:]...)
	}

	offset, ok := Estimate(e.samples)
	if !ok {
		e.logger.Debug("time offset exchange produced no samples", zap.Int("stamps", len(series)))
		return false
	}
	e.offset = offset
	e.updated = e.clock.Now()
	e.valid = true
	e.logger.Debug("updated time offset",
		zap.Duration("offset", offset),
		zap.Int("samples", len(e.samples)))
	return true
}

// Offset returns how far the peer's clock is ahead of ours, and the state of
// that estimate.
func (e *Estimator) Offset() (time.Duration, State) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.offset, e.state()
}

// ToLocal translates a peer timestamp into local time. Without an estimate
// the timestamp is returned unchanged.
func (e *Estimator) ToLocal(t time.Time) time.Time {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.valid {
		return t
	}
	return t.Add(-e.offset)
}
