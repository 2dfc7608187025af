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

package endpoint

import (
	"time"

	"github.com/saces/r-osgi-sub000/api/capability"
	"github.com/saces/r-osgi-sub000/internal/clock"
	"github.com/saces/r-osgi-sub000/timeoffset"
	"github.com/uber-go/tally"
	"go.uber.org/zap"
)

// DefaultTimeout bounds how long a request waits for its reply.
const DefaultTimeout = 2 * time.Minute

// Owner is told when an endpoint is disposed.
type Owner interface {
	EndpointDisposed(*Endpoint)
}

type options struct {
	logger     *zap.Logger
	scope      tally.Scope
	clock      clock.Clock
	timeout    time.Duration
	provider   capability.Provider
	bundles    capability.BundleProvider
	dispatcher capability.EventDispatcher
	listener   capability.Listener
	owner      Owner
	offsetOpts []timeoffset.Option
}

var defaultOptions = options{
	logger:  zap.NewNop(),
	scope:   tally.NoopScope,
	clock:   clock.NewReal(),
	timeout: DefaultTimeout,
}

// Option customizes an Endpoint.
type Option interface {
	apply(*options)
}

type optionFunc func(*options)

func (f optionFunc) apply(o *options) { f(o) }

// Logger sets the logger of the endpoint.
func Logger(logger *zap.Logger) Option {
	return optionFunc(func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	})
}

// Scope sets the metrics scope of the endpoint.
func Scope(scope tally.Scope) Option {
	return optionFunc(func(o *options) {
		if scope != nil {
			o.scope = scope
		}
	})
}

// Clock sets the clock used for request timeouts and time offsets.
func Clock(c clock.Clock) Option {
	return optionFunc(func(o *options) {
		if c != nil {
			o.clock = c
		}
	})
}

// Timeout sets how long requests wait for a reply. Defaults to
// DefaultTimeout.
func Timeout(d time.Duration) Option {
	return optionFunc(func(o *options) {
		if d > 0 {
			o.timeout = d
		}
	})
}

// Provider sets where local capabilities and topics come from. Without one
// the endpoint offers nothing.
func Provider(p capability.Provider) Option {
	return optionFunc(func(o *options) {
		o.provider = p
	})
}

// Bundles sets who answers bundle and dependency requests. Without one the
// endpoint answers with no bundles.
func Bundles(b capability.BundleProvider) Option {
	return optionFunc(func(o *options) {
		o.bundles = b
	})
}

// Dispatcher sets where remote events are delivered. Without one remote
// events are dropped.
func Dispatcher(d capability.EventDispatcher) Option {
	return optionFunc(func(o *options) {
		o.dispatcher = d
	})
}

// Listener sets who is told about changes to remote capabilities.
func Listener(l capability.Listener) Option {
	return optionFunc(func(o *options) {
		o.listener = l
	})
}

// WithOwner sets who is told when the endpoint is disposed.
func WithOwner(owner Owner) Option {
	return optionFunc(func(o *options) {
		o.owner = owner
	})
}

// OffsetPolicy sets the round trips of full and refining time offset
// exchanges and the ages at which an offset turns stale and expires.
// Non-positive values keep the defaults.
func OffsetPolicy(rounds, refreshRounds int, refresh, expiry time.Duration) Option {
	return optionFunc(func(o *options) {
		o.offsetOpts = append(o.offsetOpts,
			timeoffset.Rounds(rounds, refreshRounds),
			timeoffset.Ages(refresh, expiry))
	})
}
