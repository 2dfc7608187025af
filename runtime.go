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
	"context"
	"sort"
	"sync"

	"github.com/saces/r-osgi-sub000/api/capability"
	"github.com/saces/r-osgi-sub000/api/channel"
	"github.com/saces/r-osgi-sub000/endpoint"
	"github.com/saces/r-osgi-sub000/internal/clock"
	"github.com/saces/r-osgi-sub000/internal/lifecycle"
	"github.com/saces/r-osgi-sub000/multiplexer"
	"github.com/saces/r-osgi-sub000/rosgierrors"
	"github.com/uber-go/tally"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Inbound accepts connections and hands them to Runtime.Accept. Stop must
// be safe to call on an inbound that was never started.
type Inbound interface {
	Start() error
	Stop() error
}

// Runtime owns the endpoints to all peers of this process and the
// capabilities it offers them.
type Runtime struct {
	logger     *zap.Logger
	scope      tally.Scope
	clock      clock.Clock
	dialers    map[string]channel.Dialer
	inbounds   []Inbound
	listener   capability.Listener
	dispatcher capability.EventDispatcher
	bundles    capability.BundleProvider

	endpointOpts []endpoint.Option
	muxOpts      []multiplexer.Option
	connect      []string
	redundancy   []redundancy

	once *lifecycle.Once

	// mu is never held while calling into an endpoint.
	mu        sync.Mutex
	closed    bool
	endpoints map[string]*endpoint.Endpoint
	muxes     map[*endpoint.Endpoint]*multiplexer.Multiplexer
	// dials holds connects still dialing or exchanging leases, by address.
	dials map[string]*dial

	localMu sync.RWMutex
	local   map[string]*capability.Registration
	topics  map[string]struct{}
}

var (
	_ capability.Provider = (*Runtime)(nil)
	_ endpoint.Owner      = (*Runtime)(nil)
)

// New builds a Runtime. Nothing is connected until Start.
func New(opts ...Option) *Runtime {
	o := defaultOptions
	for _, opt := range opts {
		opt.apply(&o)
	}

	dialers := make(map[string]channel.Dialer, len(o.dialers))
	for _, d := range o.dialers {
		dialers[d.Scheme()] = d
	}

	return &Runtime{
		logger:       o.logger,
		scope:        o.scope,
		clock:        o.clock,
		dialers:      dialers,
		inbounds:     o.inbounds,
		listener:     o.listener,
		dispatcher:   o.dispatcher,
		bundles:      o.bundles,
		endpointOpts: o.endpointOpts,
		muxOpts:      o.muxOpts,
		connect:      o.connect,
		redundancy:   o.redundancy,
		once:         lifecycle.NewOnce(),
		endpoints:    make(map[string]*endpoint.Endpoint),
		muxes:        make(map[*endpoint.Endpoint]*multiplexer.Multiplexer),
		dials:        make(map[string]*dial),
		local:        make(map[string]*capability.Registration),
		topics:       make(map[string]struct{}),
	}
}

// Start starts the inbounds, connects to the configured peers and sets up
// the configured redundancy. If any of it fails, everything is stopped
// again.
func (r *Runtime) Start() error {
	return r.once.Start(func() error {
		if err := r.start(); err != nil {
			return multierr.Append(err, r.stop())
		}
		r.logger.Info("started remoting runtime", zap.Int("peers", len(r.Endpoints())))
		return nil
	})
}

func (r *Runtime) start() error {
	for _, in := range r.inbounds {
		if err := in.Start(); err != nil {
			return err
		}
	}

	ctx := context.Background()
	var g errgroup.Group
	for _, addr := range r.connect {
		addr := addr
		g.Go(func() error {
			_, err := r.Connect(ctx, addr)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	for _, rd := range r.redundancy {
		if err := r.SetRedundancy(ctx, rd.uri, rd.policy, rd.alternates...); err != nil {
			return err
		}
	}
	return nil
}

// Stop stops the inbounds and disposes every endpoint.
func (r *Runtime) Stop() error {
	return r.once.Stop(r.stop)
}

func (r *Runtime) stop() error {
	var err error
	for _, in := range r.inbounds {
		err = multierr.Append(err, in.Stop())
	}

	r.mu.Lock()
	r.closed = true
	endpoints := make([]*endpoint.Endpoint, 0, len(r.endpoints))
	for _, e := range r.endpoints {
		endpoints = append(endpoints, e)
	}
	r.endpoints = make(map[string]*endpoint.Endpoint)
	r.muxes = make(map[*endpoint.Endpoint]*multiplexer.Multiplexer)
	r.mu.Unlock()

	for _, e := range endpoints {
		err = multierr.Append(err, e.Dispose())
	}
	r.logger.Info("stopped remoting runtime", zap.Error(err))
	return err
}

// IsRunning returns whether the runtime is started.
func (r *Runtime) IsRunning() bool {
	return r.once.IsRunning()
}

func (r *Runtime) newEndpoint(ch channel.Channel) *endpoint.Endpoint {
	opts := []endpoint.Option{
		endpoint.Logger(r.logger),
		endpoint.Scope(r.scope),
		endpoint.Clock(r.clock),
		endpoint.Provider(r),
		endpoint.WithOwner(r),
	}
	if r.listener != nil {
		opts = append(opts, endpoint.Listener(r.listener))
	}
	if r.dispatcher != nil {
		opts = append(opts, endpoint.Dispatcher(r.dispatcher))
	}
	if r.bundles != nil {
		opts = append(opts, endpoint.Bundles(r.bundles))
	}
	return endpoint.New(ch, append(opts, r.endpointOpts...)...)
}

// dial is a Connect in progress. Concurrent connects to the same address
// wait for it.
type dial struct {
	done chan struct{}
	e    *endpoint.Endpoint
	err  error
}

// Connect returns the endpoint to the peer at address, dialing it and
// exchanging leases if there is none yet. The endpoint is returned once the
// lease of the peer arrived, also to callers connecting concurrently.
func (r *Runtime) Connect(ctx context.Context, address string) (*endpoint.Endpoint, error) {
	r.mu.Lock()
	if d, ok := r.dials[address]; ok {
		r.mu.Unlock()
		select {
		case <-d.done:
			return d.e, d.err
		case <-ctx.Done():
			if ctx.Err() == context.DeadlineExceeded {
				return nil, rosgierrors.TimeoutErrorf("deadline passed waiting for connection to %q", address)
			}
			return nil, rosgierrors.CancelledErrorf("cancelled waiting for connection to %q", address)
		}
	}
	if e, ok := r.endpoints[address]; ok {
		r.mu.Unlock()
		return e, nil
	}
	d := &dial{done: make(chan struct{})}
	r.dials[address] = d
	r.mu.Unlock()

	d.e, d.err = r.dial(ctx, address)

	r.mu.Lock()
	delete(r.dials, address)
	r.mu.Unlock()
	close(d.done)
	return d.e, d.err
}

func (r *Runtime) dial(ctx context.Context, address string) (*endpoint.Endpoint, error) {
	scheme, _, err := channel.SplitAddress(address)
	if err != nil {
		return nil, err
	}
	dialer, ok := r.dialers[scheme]
	if !ok {
		return nil, rosgierrors.InvalidArgumentErrorf("cannot connect to %q: no dialer for scheme %q", address, scheme)
	}

	ch, err := dialer.Dial(ctx, address)
	if err != nil {
		return nil, err
	}
	e := r.newEndpoint(ch)

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		_ = e.Dispose()
		return nil, rosgierrors.IllegalStateErrorf("cannot connect to %q: runtime is stopped", address)
	}
	if existing, ok := r.endpoints[e.RemoteAddress()]; ok {
		r.mu.Unlock()
		_ = e.Dispose()
		return existing, nil
	}
	// Registered before the lease exchange so that local changes made
	// meanwhile reach the peer.
	r.endpoints[e.RemoteAddress()] = e
	r.mu.Unlock()

	refs, err := e.SendLease(ctx)
	if err != nil {
		_ = e.Dispose()
		return nil, err
	}
	r.logger.Info("connected to peer",
		zap.String("remote", e.RemoteAddress()),
		zap.Int("capabilities", len(refs)))
	return e, nil
}

// Accept binds an endpoint to a channel a peer opened. The peer sends its
// lease first. An endpoint already registered for the same address is
// replaced and disposed.
func (r *Runtime) Accept(ch channel.Channel) {
	e := r.newEndpoint(ch)
	addr := e.RemoteAddress()

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		r.logger.Info("rejecting connection: runtime is stopped", zap.String("remote", addr))
		_ = e.Dispose()
		return
	}
	old := r.endpoints[addr]
	r.endpoints[addr] = e
	r.mu.Unlock()

	if old != nil {
		_ = old.Dispose()
	}
	r.logger.Info("accepted peer", zap.String("remote", addr))
}

// EndpointDisposed forgets a disposed endpoint. Endpoints call it when they
// are disposed.
func (r *Runtime) EndpointDisposed(e *endpoint.Endpoint) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.endpoints[e.RemoteAddress()] == e {
		delete(r.endpoints, e.RemoteAddress())
	}
	delete(r.muxes, e)
}

// Endpoint returns the endpoint to the peer at address. Endpoints still
// exchanging leases after Connect are not returned.
func (r *Runtime) Endpoint(address string) (*endpoint.Endpoint, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, connecting := r.dials[address]; connecting {
		return nil, false
	}
	e, ok := r.endpoints[address]
	return e, ok
}

// Endpoints returns the endpoints to all peers ordered by address.
func (r *Runtime) Endpoints() []*endpoint.Endpoint {
	r.mu.Lock()
	endpoints := make([]*endpoint.Endpoint, 0, len(r.endpoints))
	for _, e := range r.endpoints {
		endpoints = append(endpoints, e)
	}
	r.mu.Unlock()

	sort.Slice(endpoints, func(i, j int) bool {
		return endpoints[i].RemoteAddress() < endpoints[j].RemoteAddress()
	})
	return endpoints
}
