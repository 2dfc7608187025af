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
	"context"

	"github.com/saces/r-osgi-sub000/rosgierrors"
	"github.com/saces/r-osgi-sub000/stream"
	"github.com/saces/r-osgi-sub000/wire"
	"go.uber.org/zap"
)

// ReceivedMessage implements channel.Receiver. A nil message means the
// channel broke and disposes the endpoint.
func (e *Endpoint) ReceivedMessage(msg wire.Message) {
	if msg == nil {
		e.logger.Info("channel broke")
		_ = e.Dispose()
		return
	}
	if e.Disposed() {
		return
	}

	if e.wake(msg) {
		return
	}

	switch m := msg.(type) {
	case *wire.Lease:
		e.handleLease(m)
	case *wire.LeaseUpdate:
		e.handleLeaseUpdate(m)
	case *wire.FetchService:
		e.handleFetchService(m)
	case *wire.InvokeMethod:
		go e.handleInvoke(m)
	case *wire.RemoteEvent:
		e.handleEvent(m)
	case *wire.TimeOffset:
		m.Timestamps = append(m.Timestamps, e.clock.Now().UnixNano())
		e.reply(m)
	case *wire.StreamRequest:
		go func() { e.reply(e.streams.Serve(m)) }()
	case *wire.RequestBundle:
		go e.handleBundles(m, func(ctx context.Context) ([]wire.Bundle, error) {
			return e.bundles.Bundle(ctx, m.ServiceID)
		})
	case *wire.RequestDependencies:
		go e.handleBundles(m, func(ctx context.Context) ([]wire.Bundle, error) {
			return e.bundles.Dependencies(ctx, m.Packages)
		})
	default:
		e.metrics.droppedReplies.Inc(1)
		e.drops.Warn("dropping reply to unknown transaction",
			zap.Stringer("func", msg.FuncID()),
			zap.Uint16("xid", msg.XID()))
	}
}

// wake hands msg to the request waiting for it, if any.
func (e *Endpoint) wake(msg wire.Message) bool {
	e.mu.Lock()
	call, ok := e.pending[msg.XID()]
	if !ok || call.expect != msg.FuncID() {
		e.mu.Unlock()
		return false
	}
	delete(e.pending, msg.XID())
	e.mu.Unlock()

	call.reply <- msg
	return true
}

// reply sends an answer to a request of the peer.
func (e *Endpoint) reply(msg wire.Message) {
	if err := e.send(msg); err != nil {
		e.logger.Warn("failed to reply",
			zap.Stringer("func", msg.FuncID()),
			zap.Uint16("xid", msg.XID()),
			zap.Error(err))
	}
}

func (e *Endpoint) handleFetchService(m *wire.FetchService) {
	res := &wire.DeliverService{Header: wire.NewHeader(m.XID()), ServiceID: m.ServiceID}
	if reg, ok := e.resolve(m.ServiceID); ok {
		res.Interfaces = reg.Interfaces
		res.SmartProxy = reg.SmartProxy
		res.Imports = reg.Imports
		res.Exports = reg.Exports
		res.Injections = reg.Injections
	} else {
		e.logger.Info("peer fetched unknown capability", zap.String("capability", m.ServiceID))
	}
	e.reply(res)
}

func (e *Endpoint) handleInvoke(m *wire.InvokeMethod) {
	e.metrics.inboundCalls.Inc(1)
	res := e.invokeLocal(m)

	err := e.send(res)
	if rosgierrors.IsSerialization(err) && res.Err == nil {
		// The result cannot travel; the caller gets the reason instead.
		e.releaseResult(res)
		res.Result, res.Err = nil, err
		err = e.send(res)
	}
	if err != nil {
		e.releaseResult(res)
		e.logger.Warn("failed to reply",
			zap.Stringer("func", res.FuncID()),
			zap.Uint16("xid", res.XID()),
			zap.Error(err))
	}
}

func (e *Endpoint) invokeLocal(m *wire.InvokeMethod) *wire.MethodResult {
	res := &wire.MethodResult{Header: wire.NewHeader(m.XID())}
	reg, ok := e.resolve(m.ServiceID)
	if !ok {
		res.Err = rosgierrors.UnknownCapabilityErrorf("no capability %q", m.ServiceID)
		return res
	}

	args := make([]interface{}, len(m.Args))
	for i, arg := range m.Args {
		args[i] = stream.Import(arg, e)
	}
	result, err := reg.Handler.Invoke(e.ctx, m.Signature, args)
	if err != nil {
		e.logger.Debug("inbound call failed",
			zap.String("capability", m.ServiceID),
			zap.String("signature", m.Signature),
			zap.Error(err))
		res.Err = err
		return res
	}
	if res.Result, err = e.streams.Export(result); err != nil {
		res.Result, res.Err = nil, err
	}
	return res
}

// releaseResult closes a stream exported for a result that never reached
// the peer.
func (e *Endpoint) releaseResult(res *wire.MethodResult) {
	if h, ok := res.Result.(stream.Handle); ok {
		_ = e.streams.Close(h.ID)
	}
}

func (e *Endpoint) handleBundles(m wire.Message, fetch func(context.Context) ([]wire.Bundle, error)) {
	res := &wire.DeliverBundles{Header: wire.NewHeader(m.XID())}
	if e.bundles != nil {
		ctx, cancel := context.WithTimeout(e.ctx, e.timeout)
		bundles, err := fetch(ctx)
		cancel()
		if err != nil {
			e.logger.Warn("failed to collect bundles",
				zap.Stringer("func", m.FuncID()),
				zap.Error(err))
		}
		res.Bundles = bundles
	}
	e.reply(res)
}
