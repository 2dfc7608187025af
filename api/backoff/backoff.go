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

// Package backoff defines how a transport spaces out reconnect attempts.
//
// A Strategy is shared by every channel of a transport; each reconnect loop
// asks it for a fresh Backoff so that per-loop state such as a random source
// is never shared between goroutines.
package backoff

import "time"

// Strategy hands out Backoff instances.
type Strategy interface {
	Backoff() Backoff
}

// Backoff returns the delay before the next attempt, given how many
// attempts already failed. The first call passes zero.
type Backoff interface {
	Duration(attempts uint) time.Duration
}

// Func adapts a function to Backoff.
type Func func(attempts uint) time.Duration

// Duration implements Backoff.
func (f Func) Duration(attempts uint) time.Duration { return f(attempts) }

// Fixed is a Strategy that waits the same delay before every attempt. A
// zero Fixed retries immediately.
type Fixed time.Duration

// Backoff implements Strategy.
func (d Fixed) Backoff() Backoff {
	return Func(func(uint) time.Duration { return time.Duration(d) })
}
