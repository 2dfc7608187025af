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
	"sync"

	"github.com/saces/r-osgi-sub000/api/capability"
)

// RemoteReference is a capability offered by the peer of an endpoint.
type RemoteReference struct {
	id       string
	uri      string
	endpoint *Endpoint

	mu         sync.RWMutex
	interfaces []string
	properties map[string]interface{}
}

var _ capability.RemoteCapability = (*RemoteReference)(nil)

func newRemoteReference(e *Endpoint, id string, interfaces []string, props map[string]interface{}) *RemoteReference {
	return &RemoteReference{
		id:         id,
		uri:        capability.JoinURI(e.RemoteAddress(), id),
		endpoint:   e,
		interfaces: interfaces,
		properties: props,
	}
}

// ID returns the capability id the peer assigned.
func (r *RemoteReference) ID() string { return r.id }

// URI returns "<remote address>#<id>".
func (r *RemoteReference) URI() string { return r.uri }

// Endpoint returns the endpoint the capability is reached through.
func (r *RemoteReference) Endpoint() *Endpoint { return r.endpoint }

// Interfaces returns the interface names the capability is offered under.
func (r *RemoteReference) Interfaces() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.interfaces...)
}

// Properties returns a copy of the capability properties.
func (r *RemoteReference) Properties() map[string]interface{} {
	r.mu.RLock()
	defer r.mu.RUnlock()
	props := make(map[string]interface{}, len(r.properties))
	for k, v := range r.properties {
		props[k] = v
	}
	return props
}

func (r *RemoteReference) update(interfaces []string, props map[string]interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if interfaces != nil {
		r.interfaces = interfaces
	}
	r.properties = props
}

// Invoke calls an operation on the capability.
func (r *RemoteReference) Invoke(ctx context.Context, signature string, args ...interface{}) (interface{}, error) {
	return r.endpoint.Invoke(ctx, r.id, signature, args)
}
