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

// Package endpoint implements one side of a remoting connection: it
// correlates requests with replies, answers the requests of its peer and
// keeps track of the capabilities and topic interest the peer announced.
//
// An Endpoint sits on top of a channel.Channel and is the channel's
// Receiver. Requests carry a transaction id; the reply to a request carries
// the same id. Messages whose id matches no outstanding request of the
// expected reply kind are requests of the peer.
package endpoint

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/saces/r-osgi-sub000/api/capability"
	"github.com/saces/r-osgi-sub000/api/channel"
	"github.com/saces/r-osgi-sub000/internal/clock"
	"github.com/saces/r-osgi-sub000/internal/lifecycle"
	"github.com/saces/r-osgi-sub000/internal/sampledlogger"
	"github.com/saces/r-osgi-sub000/rosgierrors"
	"github.com/saces/r-osgi-sub000/stream"
	"github.com/saces/r-osgi-sub000/timeoffset"
	"github.com/saces/r-osgi-sub000/wire"
	"go.uber.org/atomic"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// How often drops of unexpected messages are logged.
const _dropLogInterval = 10 * time.Second

// Reply kinds expected for each request kind.
var _replyKinds = map[wire.FuncID]wire.FuncID{
	wire.FuncLease:               wire.FuncLease,
	wire.FuncFetchService:        wire.FuncDeliverService,
	wire.FuncInvokeMethod:        wire.FuncMethodResult,
	wire.FuncTimeOffset:          wire.FuncTimeOffset,
	wire.FuncStreamRequest:       wire.FuncStreamResult,
	wire.FuncRequestBundle:       wire.FuncDeliverBundles,
	wire.FuncRequestDependencies: wire.FuncDeliverBundles,
}

// pendingCall is a request waiting for its reply.
type pendingCall struct {
	expect wire.FuncID
	reply  chan wire.Message
}

// Endpoint is the local side of a connection to one peer.
type Endpoint struct {
	ch         channel.Channel
	logger     *zap.Logger
	drops      *sampledlogger.SampledLogger
	clock      clock.Clock
	timeout    time.Duration
	provider   capability.Provider
	bundles    capability.BundleProvider
	dispatcher capability.EventDispatcher
	listener   capability.Listener
	owner      Owner
	metrics    *metrics
	offset     *timeoffset.Estimator
	streams    *stream.Table
	once       *lifecycle.Once

	// ctx is cancelled on dispose. Inbound calls run under it.
	ctx    context.Context
	cancel context.CancelFunc

	sendMu     sync.Mutex
	offsetMu   sync.Mutex
	refreshing atomic.Bool

	mu      sync.Mutex
	nextXID uint16
	pending map[uint16]*pendingCall
	remote  map[string]*RemoteReference
	topics  map[string]struct{}
}

var (
	_ channel.Receiver = (*Endpoint)(nil)
	_ stream.Requester = (*Endpoint)(nil)
)

// New builds an Endpoint on ch and installs it as the receiver of ch.
func New(ch channel.Channel, opts ...Option) *Endpoint {
	o := defaultOptions
	for _, opt := range opts {
		opt.apply(&o)
	}

	logger := o.logger.With(zap.String("remote", ch.RemoteAddress()))
	ctx, cancel := context.WithCancel(context.Background())
	e := &Endpoint{
		ch:         ch,
		logger:     logger,
		drops:      sampledlogger.New(_dropLogInterval, logger, o.clock),
		clock:      o.clock,
		timeout:    o.timeout,
		provider:   o.provider,
		bundles:    o.bundles,
		dispatcher: o.dispatcher,
		listener:   o.listener,
		owner:      o.owner,
		metrics:    newMetrics(o.scope.SubScope("endpoint")),
		offset: timeoffset.New(append([]timeoffset.Option{
			timeoffset.Clock(o.clock),
			timeoffset.Logger(logger),
		}, o.offsetOpts...)...),
		streams: stream.NewTable(),
		once:    lifecycle.NewOnce(),
		ctx:     ctx,
		cancel:  cancel,
		pending: make(map[uint16]*pendingCall),
		remote:  make(map[string]*RemoteReference),
		topics:  make(map[string]struct{}),
	}
	_ = e.once.Start(nil)
	ch.SetReceiver(e)
	return e
}

// RemoteAddress returns the address of the peer.
func (e *Endpoint) RemoteAddress() string { return e.ch.RemoteAddress() }

// LocalAddress returns the local address of the connection.
func (e *Endpoint) LocalAddress() string { return e.ch.LocalAddress() }

// Done is closed once the endpoint starts disposing.
func (e *Endpoint) Done() <-chan struct{} { return e.once.Stopping() }

// Disposed reports whether the endpoint has been disposed.
func (e *Endpoint) Disposed() bool {
	select {
	case <-e.Done():
		return true
	default:
		return false
	}
}

// PendingCount returns the number of requests waiting for a reply.
func (e *Endpoint) PendingCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.pending)
}

// allocXID returns an unused, non-zero transaction id. e.mu must be held.
func (e *Endpoint) allocXID() (uint16, error) {
	for i := 0; i < math.MaxUint16; i++ {
		e.nextXID++
		if e.nextXID == 0 {
			continue
		}
		if _, busy := e.pending[e.nextXID]; !busy {
			return e.nextXID, nil
		}
	}
	return 0, rosgierrors.IllegalStateErrorf("all transaction ids are in use")
}

// request sends msg and waits for the reply of the matching kind.
func (e *Endpoint) request(ctx context.Context, msg wire.Message) (wire.Message, error) {
	if e.Disposed() {
		return nil, rosgierrors.DisconnectedErrorf("endpoint for %v is disposed", e.RemoteAddress())
	}

	// The timer exists before the request is visible to the peer.
	timer := e.clock.Timer(e.timeout)
	defer timer.Stop()

	call := &pendingCall{expect: _replyKinds[msg.FuncID()], reply: make(chan wire.Message, 1)}
	e.mu.Lock()
	xid, err := e.allocXID()
	if err != nil {
		e.mu.Unlock()
		return nil, err
	}
	msg.SetXID(xid)
	e.pending[xid] = call
	e.mu.Unlock()

	// A retransmitted TimeOffset moves to a new transaction id.
	defer e.forget(msg, call)

	if err := e.send(msg); err != nil {
		return nil, err
	}

	select {
	case reply := <-call.reply:
		return reply, nil
	case <-timer.C():
		e.metrics.timeouts.Inc(1)
		return nil, rosgierrors.TimeoutErrorf("no reply to %v (xid %d) from %v within %v",
			msg.FuncID(), msg.XID(), e.RemoteAddress(), e.timeout)
	case <-e.Done():
		return nil, rosgierrors.DisconnectedErrorf("endpoint for %v was disposed waiting for %v",
			e.RemoteAddress(), msg.FuncID())
	case <-ctx.Done():
		if ctx.Err() == context.DeadlineExceeded {
			e.metrics.timeouts.Inc(1)
			return nil, rosgierrors.TimeoutErrorf("deadline passed waiting for reply to %v from %v",
				msg.FuncID(), e.RemoteAddress())
		}
		return nil, rosgierrors.CancelledErrorf("cancelled waiting for reply to %v from %v",
			msg.FuncID(), e.RemoteAddress())
	}
}

func (e *Endpoint) forget(msg wire.Message, call *pendingCall) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.pending[msg.XID()] == call {
		delete(e.pending, msg.XID())
	}
}

// notify sends a message that expects no reply under a fresh transaction id.
func (e *Endpoint) notify(msg wire.Message) error {
	if e.Disposed() {
		return rosgierrors.DisconnectedErrorf("endpoint for %v is disposed", e.RemoteAddress())
	}
	e.mu.Lock()
	xid, err := e.allocXID()
	e.mu.Unlock()
	if err != nil {
		return err
	}
	msg.SetXID(xid)
	return e.send(msg)
}

// send writes msg to the channel. A failed write is retried once after
// reconnecting; if that fails too the endpoint is disposed.
func (e *Endpoint) send(msg wire.Message) error {
	fatal, err := e.sendOrRetry(msg)
	if fatal {
		_ = e.Dispose()
	}
	return err
}

func (e *Endpoint) sendOrRetry(msg wire.Message) (fatal bool, err error) {
	e.sendMu.Lock()
	defer e.sendMu.Unlock()

	err = e.ch.Send(msg)
	if err == nil {
		return false, nil
	}
	if rosgierrors.IsSerialization(err) {
		return false, err
	}

	e.logger.Warn("send failed, reconnecting",
		zap.Stringer("func", msg.FuncID()),
		zap.Uint16("xid", msg.XID()),
		zap.Error(err))
	e.metrics.reconnects.Inc(1)
	if rerr := e.ch.Reconnect(); rerr != nil {
		e.logger.Warn("reconnect failed", zap.Error(rerr))
		return true, rosgierrors.DisconnectedErrorf("cannot send %v to %v: %v",
			msg.FuncID(), e.RemoteAddress(), multierr.Append(err, rerr))
	}

	if m, ok := msg.(*wire.TimeOffset); ok {
		e.restamp(m)
	}
	if err := e.ch.Send(msg); err != nil {
		return true, rosgierrors.DisconnectedErrorf("cannot send %v to %v after reconnecting: %v",
			msg.FuncID(), e.RemoteAddress(), err)
	}
	return false, nil
}

// restamp moves a TimeOffset to a new transaction id, carrying over its
// waiter, and refreshes its newest timestamp.
func (e *Endpoint) restamp(m *wire.TimeOffset) {
	e.mu.Lock()
	defer e.mu.Unlock()
	call, waiting := e.pending[m.XID()]
	xid, err := e.allocXID()
	if err != nil {
		return
	}
	if waiting {
		delete(e.pending, m.XID())
		e.pending[xid] = call
	}
	m.Restamp(xid, e.clock.Now().UnixNano())
}

// Dispose tears the endpoint down: waiters fail with a Disconnected error,
// the channel and all exported streams are closed, and every remote
// capability is reported as unregistering. Later calls return the result
// of the first.
func (e *Endpoint) Dispose() error {
	return e.once.Stop(func() error {
		e.cancel()
		err := e.ch.Close()
		err = multierr.Append(err, e.streams.CloseAll())

		e.mu.Lock()
		refs := make([]*RemoteReference, 0, len(e.remote))
		for _, ref := range e.remote {
			refs = append(refs, ref)
		}
		e.remote = make(map[string]*RemoteReference)
		e.topics = make(map[string]struct{})
		e.pending = make(map[uint16]*pendingCall)
		e.mu.Unlock()

		for _, ref := range refs {
			e.changed(capability.Unregistering, ref)
		}
		e.metrics.disconnects.Inc(1)
		e.logger.Info("endpoint disposed", zap.Int("capabilities", len(refs)))
		if e.owner != nil {
			e.owner.EndpointDisposed(e)
		}
		return err
	})
}

func (e *Endpoint) changed(t capability.ChangeType, ref *RemoteReference) {
	if e.listener != nil {
		e.listener.CapabilityChanged(capability.ChangeEvent{Type: t, Capability: ref})
	}
}
