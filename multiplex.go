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

	"github.com/saces/r-osgi-sub000/api/capability"
	"github.com/saces/r-osgi-sub000/endpoint"
	"github.com/saces/r-osgi-sub000/multiplexer"
	"github.com/saces/r-osgi-sub000/rosgierrors"
	"go.uber.org/zap"
)

// Multiplexer returns the multiplexer routing calls whose primary target is
// reached through e.
func (r *Runtime) Multiplexer(e *endpoint.Endpoint) *multiplexer.Multiplexer {
	addr, disposed := e.RemoteAddress(), e.Disposed()

	r.mu.Lock()
	defer r.mu.Unlock()

	m, ok := r.muxes[e]
	if !ok {
		opts := append([]multiplexer.Option{
			multiplexer.Logger(r.logger.With(zap.String("remote", addr))),
			multiplexer.Scope(r.scope),
		}, r.muxOpts...)
		m = multiplexer.New(e, opts...)
		if !r.closed && !disposed {
			r.muxes[e] = m
		}
	}
	return m
}

// Invoke calls an operation of the capability at uri, connecting to its
// peer if needed.
func (r *Runtime) Invoke(ctx context.Context, uri, signature string, args ...interface{}) (interface{}, error) {
	address, id, err := capability.SplitURI(uri)
	if err != nil {
		return nil, err
	}
	e, err := r.Connect(ctx, address)
	if err != nil {
		return nil, err
	}
	return r.Multiplexer(e).Invoke(ctx, id, signature, args)
}

// SetRedundancy sets the policy of the capability at uri and adds the
// capabilities at the alternate URIs as its redundant endpoints.
func (r *Runtime) SetRedundancy(ctx context.Context, uri string, policy multiplexer.Policy, alternates ...string) error {
	address, id, err := capability.SplitURI(uri)
	if err != nil {
		return err
	}
	primary, err := r.Connect(ctx, address)
	if err != nil {
		return err
	}
	m := r.Multiplexer(primary)
	if err := m.SetPolicy(id, policy); err != nil {
		return err
	}

	for _, alt := range alternates {
		altAddress, altID, err := capability.SplitURI(alt)
		if err != nil {
			return err
		}
		e, err := r.Connect(ctx, altAddress)
		if err != nil {
			return err
		}
		if err := m.AddRedundantEndpoint(id, multiplexer.Target{Endpoint: e, CapabilityID: altID}); err != nil {
			return err
		}
	}
	return nil
}

// RemoveRedundancy removes the capability at alternate from the redundant
// endpoints of the capability at uri.
func (r *Runtime) RemoveRedundancy(uri, alternate string) error {
	address, id, err := capability.SplitURI(uri)
	if err != nil {
		return err
	}
	altAddress, altID, err := capability.SplitURI(alternate)
	if err != nil {
		return err
	}

	primary, ok := r.Endpoint(address)
	if !ok {
		return rosgierrors.IllegalStateErrorf("not connected to %q", address)
	}
	e, ok := r.Endpoint(altAddress)
	if !ok {
		return rosgierrors.IllegalStateErrorf("not connected to %q", altAddress)
	}
	return r.Multiplexer(primary).RemoveRedundantEndpoint(id, multiplexer.Target{Endpoint: e, CapabilityID: altID})
}
