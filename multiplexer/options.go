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

package multiplexer

import (
	"math/rand"

	"github.com/uber-go/tally"
	"go.uber.org/zap"
)

type options struct {
	logger *zap.Logger
	scope  tally.Scope
	source rand.Source
}

var defaultOptions = options{
	logger: zap.NewNop(),
	scope:  tally.NoopScope,
}

// Option customizes a Multiplexer.
type Option interface {
	apply(*options)
}

type optionFunc func(*options)

func (f optionFunc) apply(o *options) { f(o) }

// Logger sets the logger of the multiplexer.
func Logger(logger *zap.Logger) Option {
	return optionFunc(func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	})
}

// Scope sets the metrics scope of the multiplexer.
func Scope(scope tally.Scope) Option {
	return optionFunc(func(o *options) {
		if scope != nil {
			o.scope = scope
		}
	})
}

// Seed seeds the random choices of LoadBalanceAny.
func Seed(seed int64) Option {
	return optionFunc(func(o *options) {
		o.source = rand.NewSource(seed)
	})
}

// Source sets where the random choices of LoadBalanceAny come from.
func Source(source rand.Source) Option {
	return optionFunc(func(o *options) {
		o.source = source
	})
}
