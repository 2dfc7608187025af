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

package rosgiconfig

import (
	"time"

	backoffapi "github.com/saces/r-osgi-sub000/api/backoff"
	"github.com/saces/r-osgi-sub000/internal/backoff"
)

// Backoff configures how transports space out reconnect attempts. Only
// exponential backoff with full jitter is supported.
//
// 	exponential:
// 	  first: 100ms
// 	  max: 30s
type Backoff struct {
	Exponential ExponentialBackoff `config:"exponential"`
}

// Strategy builds the configured backoff strategy.
func (c Backoff) Strategy() (backoffapi.Strategy, error) {
	return c.Exponential.Strategy()
}

// ExponentialBackoff doubles the range of the jittered delay after every
// failed attempt, starting at First and never exceeding Max. Zero values
// keep the defaults.
type ExponentialBackoff struct {
	First time.Duration `config:"first"`
	Max   time.Duration `config:"max"`
}

// Strategy builds an exponential backoff strategy.
func (c ExponentialBackoff) Strategy() (backoffapi.Strategy, error) {
	var opts []backoff.ExponentialOption
	if c.First > 0 {
		opts = append(opts, backoff.FirstBackoff(c.First))
	}
	if c.Max > 0 {
		opts = append(opts, backoff.MaxBackoff(c.Max))
	}
	return backoff.NewExponential(opts...)
}
