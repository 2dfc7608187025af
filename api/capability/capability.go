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

// Package capability holds the interfaces through which the remoting core
// meets the component framework around it: the capabilities this process
// offers, the listener told about capabilities the peer offers, and the
// dispatcher events are delivered to.
package capability

import (
	"context"

	"github.com/saces/r-osgi-sub000/wire"
)

// Handler performs operations on a local capability.
type Handler interface {
	// Invoke runs the operation named by signature. Errors are returned to
	// the remote caller.
	Invoke(ctx context.Context, signature string, args []interface{}) (interface{}, error)
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, signature string, args []interface{}) (interface{}, error)

// Invoke calls f.
func (f HandlerFunc) Invoke(ctx context.Context, signature string, args []interface{}) (interface{}, error) {
	return f(ctx, signature, args)
}

// Registration is a capability offered to peers.
type Registration struct {
	ID         string
	Interfaces []string
	Properties map[string]interface{}
	Handler    Handler

	// Describe what FetchService returns for the capability.
	SmartProxy string
	Imports    []string
	Exports    []string
	Injections map[string][]byte
}

// Provider exposes the local capabilities and topic interest.
type Provider interface {
	LocalCapabilities() []*Registration
	LocalTopics() []string
	ResolveLocalCapability(id string) (*Registration, bool)
}

// BundleProvider answers bundle and dependency requests from peers.
type BundleProvider interface {
	Bundle(ctx context.Context, serviceID string) ([]wire.Bundle, error)
	Dependencies(ctx context.Context, packages []string) ([]wire.Bundle, error)
}

// Event is a remote event as delivered locally.
type Event struct {
	Topic      string
	Properties map[string]interface{}

	// Source is the address of the peer that sent the event.
	Source string
}

// EventDispatcher delivers remote events to local subscribers.
type EventDispatcher interface {
	DispatchEvent(Event)
}

// RemoteCapability is a capability a peer offers.
type RemoteCapability interface {
	ID() string
	URI() string
	Interfaces() []string
	Properties() map[string]interface{}
	Invoke(ctx context.Context, signature string, args ...interface{}) (interface{}, error)
}

// ChangeType says what happened to a remote capability.
type ChangeType int

// Changes a Listener is told about.
const (
	Registered ChangeType = iota + 1
	Modified
	Unregistering
)

func (c ChangeType) String() string {
	switch c {
	case Registered:
		return "registered"
	case Modified:
		return "modified"
	case Unregistering:
		return "unregistering"
	}
	return "unknown"
}

// ChangeEvent reports a change to a remote capability.
type ChangeEvent struct {
	Type       ChangeType
	Capability RemoteCapability
}

// Listener is told about capabilities and topic interest of peers.
type Listener interface {
	CapabilityChanged(ChangeEvent)

	// TopicsChanged reports the complete topic interest of the peer at
	// remote after a change.
	TopicsChanged(remote string, topics []string)
}
