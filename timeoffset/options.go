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

package timeoffset

import (
	"time"

	"github.com/saces/r-osgi-sub000/internal/clock"
	"go.uber.org/zap"
)

// Defaults for Estimator options.
const (
	DefaultRounds        = 4
	DefaultRefreshRounds = 2
	DefaultWindow        = 16
	DefaultRefresh       = 5 * time.Minute
	DefaultExpiry        = 30 * time.Minute
)

var defaultOptions = options{
	clock:         clock.NewReal(),
	logger:        zap.NewNop(),
	window:        DefaultWindow,
	rounds:        DefaultRounds,
	refreshRounds: DefaultRefreshRounds,
	refresh:       DefaultRefresh,
	expiry:        DefaultExpiry,
}

type options struct {
	clock         clock.Clock
	logger        *zap.Logger
	window        int
	rounds        int
	refreshRounds int
	refresh       time.Duration
	expiry        time.Duration
}

// Option customizes an Estimator.
type Option func(*options)

// Clock sets the clock estimates are aged against.
func Clock(c clock.Clock) Option {
	return func(o *options) {
		if c != nil {
			o.clock = c
		}
	}
}

// Logger sets the logger.
func Logger(l *zap.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// Window bounds the samples kept across refinements.
func Window(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.window = n
		}
	}
}

// Rounds sets the round trips of a full exchange and of a refinement.
func Rounds(full, refine int) Option {
	return func(o *options) {
		if full > 0 {
			o.rounds = full
		}
		if refine > 0 {
			o.refreshRounds = refine
		}
	}
}

// Ages sets when an estimate turns stale and when it expires.
func Ages(refresh, expiry time.Duration) Option {
	return func(o *options) {
		if refresh > 0 {
			o.refresh = refresh
		}
		if expiry > 0 {
			o.expiry = expiry
		}
	}
}
