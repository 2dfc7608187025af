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

package rosgi

import (
	"github.com/saces/r-osgi-sub000/api/capability"
	"github.com/saces/r-osgi-sub000/api/channel"
	"github.com/saces/r-osgi-sub000/endpoint"
	"github.com/saces/r-osgi-sub000/internal/clock"
	"github.com/saces/r-osgi-sub000/multiplexer"
	"github.com/uber-go/tally"
	"go.uber.org/zap"
)

type redundancy struct {
	uri        string
	policy     multiplexer.Policy
	alternates []string
}

type options struct {
	logger       *zap.Logger
	scope        tally.Scope
	clock        clock.Clock
	dialers      []channel.Dialer
	inbounds     []Inbound
	endpointOpts []endpoint.Option
	muxOpts      []multiplexer.Option
	listener     capability.Listener
	dispatcher   capability.EventDispatcher
	bundles      capability.BundleProvider
	connect      []string
	redundancy   []redundancy
}

var defaultOptions = options{
	logger: zap.NewNop(),
	scope:  tally.NoopScope,
	clock:  clock.NewReal(),
}

// Option customizes a Runtime.
type Option interface {
	apply(*options)
}

type optionFunc func(*options)

func (f optionFunc) apply(o *options) { f(o) }

// Logger sets the logger of the runtime and its endpoints. Defaults to a
// no-op logger.
func Logger(logger *zap.Logger) Option {
	return optionFunc(func(o *options) {
		o.logger = logger
	})
}

// Scope sets the metrics scope of the runtime and its endpoints.
func Scope(scope tally.Scope) Option {
	return optionFunc(func(o *options) {
		o.scope = scope
	})
}

// Clock sets the clock endpoints time calls with.
func Clock(c clock.Clock) Option {
	return optionFunc(func(o *options) {
		o.clock = c
	})
}

// Dialers adds dialers for connecting to addresses of their schemes. A
// later dialer replaces an earlier one for the same scheme.
func Dialers(dialers ...channel.Dialer) Option {
	return optionFunc(func(o *options) {
		o.dialers = append(o.dialers, dialers...)
	})
}

// Inbounds adds inbounds started and stopped with the runtime. Inbounds
// hand accepted channels to Runtime.Accept.
func Inbounds(inbounds ...Inbound) Option {
	return optionFunc(func(o *options) {
		o.inbounds = append(o.inbounds, inbounds...)
	})
}

// EndpointOptions adds options applied to every endpoint.
func EndpointOptions(opts ...endpoint.Option) Option {
	return optionFunc(func(o *options) {
		o.endpointOpts = append(o.endpointOpts, opts...)
	})
}

// MultiplexerOptions adds options applied to every multiplexer.
func MultiplexerOptions(opts ...multiplexer.Option) Option {
	return optionFunc(func(o *options) {
		o.muxOpts = append(o.muxOpts, opts...)
	})
}

// Listener sets who is told about the capabilities peers offer.
func Listener(l capability.Listener) Option {
	return optionFunc(func(o *options) {
		o.listener = l
	})
}

// Dispatcher sets where events received from peers are delivered.
func Dispatcher(d capability.EventDispatcher) Option {
	return optionFunc(func(o *options) {
		o.dispatcher = d
	})
}

// Bundles sets what answers bundle and dependency requests from peers.
func Bundles(b capability.BundleProvider) Option {
	return optionFunc(func(o *options) {
		o.bundles = b
	})
}

// Connect makes Start connect to the given addresses.
func Connect(addresses ...string) Option {
	return optionFunc(func(o *options) {
		o.connect = append(o.connect, addresses...)
	})
}

// Redundancy makes Start set up the capability at uri with the given policy
// and alternates, all given as capability URIs.
func Redundancy(uri string, policy multiplexer.Policy, alternates ...string) Option {
	return optionFunc(func(o *options) {
		o.redundancy = append(o.redundancy, redundancy{uri: uri, policy: policy, alternates: alternates})
	})
}
