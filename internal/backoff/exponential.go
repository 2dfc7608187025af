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

// Package backoff implements the jittered exponential backoff used between
// transport reconnect attempts.
package backoff

import (
	"errors"
	"math/rand"
	"sync"
	"time"

	backoffapi "github.com/saces/r-osgi-sub000/api/backoff"
	"go.uber.org/multierr"
)

// ExponentialOption customizes an Exponential strategy.
type ExponentialOption func(*exponentialOptions)

type exponentialOptions struct {
	first, max time.Duration
	newRand    func() *rand.Rand
}

func (e exponentialOptions) validate() (err error) {
	if e.first <= 0 {
		err = multierr.Append(err, errors.New("invalid first duration for exponential backoff, need greater than zero"))
	}
	if e.max < 0 {
		err = multierr.Append(err, errors.New("invalid max for exponential backoff, need greater than or equal to zero"))
	}
	if e.max > 0 && e.max < e.first {
		err = multierr.Append(err, errors.New("exponential max value must be greater than first value"))
	}
	return err
}

var defaultExponentialOpts = exponentialOptions{
	first: 10 * time.Millisecond,
	max:   time.Minute,
	newRand: func() *rand.Rand {
		return rand.New(rand.NewSource(time.Now().UnixNano()))
	},
}

// DefaultExponential is the reconnect backoff used when none is configured.
var DefaultExponential = &Exponential{opts: defaultExponentialOpts}

// FirstBackoff sets the upper bound of the first attempt's jittered delay.
func FirstBackoff(t time.Duration) ExponentialOption {
	return func(options *exponentialOptions) {
		options.first = t
	}
}

// MaxBackoff sets the absolute maximum delay ever returned.
func MaxBackoff(t time.Duration) ExponentialOption {
	return func(options *exponentialOptions) {
		options.max = t
	}
}

func randGenerator(newRand func() *rand.Rand) ExponentialOption {
	return func(options *exponentialOptions) {
		options.newRand = newRand
	}
}

// Exponential is a "full jitter" exponential backoff strategy. Each attempt
// doubles the range of possible delays, capped at max.
type Exponential struct {
	opts exponentialOptions
}

var _ backoffapi.Strategy = (*Exponential)(nil)

// NewExponential returns a new exponential backoff strategy.
func NewExponential(opts ...ExponentialOption) (*Exponential, error) {
	options := defaultExponentialOpts
	for _, opt := range opts {
		opt(&options)
	}
	if err := options.validate(); err != nil {
		return nil, err
	}
	return &Exponential{opts: options}, nil
}

// Backoff returns a backoff instance with its own random source.
func (e *Exponential) Backoff() backoffapi.Backoff {
	return &exponentialBackoff{
		first: e.opts.first.Nanoseconds(),
		max:   e.opts.max.Nanoseconds(),
		rand:  e.opts.newRand(),
	}
}

type exponentialBackoff struct {
	first, max int64

	mu   sync.Mutex
	rand *rand.Rand
}

// Duration returns how long to wait before the given attempt.
func (e *exponentialBackoff) Duration(attempts uint) time.Duration {
	spread := e.first << attempts
	if spread <= 0 || (e.max > 0 && spread > e.max) {
		// Shifted past the cap or overflowed.
		spread = e.max
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	return time.Duration(e.rand.Int63n(spread + 1))
}
