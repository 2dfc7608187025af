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

// Package multiplexer spreads the calls to a capability over redundant
// endpoints.
//
// Every capability has a primary target and, once redundant endpoints are
// added for it, an ordered list of alternates and a Policy. A call that
// fails at the connection level (see rosgierrors.IsConnectionLevel) drops
// the failing target and moves on to the next one, unless the policy is
// None. When every target failed, the mapping of the capability is
// forgotten and the first error is returned.
package multiplexer

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/saces/r-osgi-sub000/rosgierrors"
	"github.com/uber-go/tally"
	"go.uber.org/zap"
)

// Invoker carries calls to capabilities. *endpoint.Endpoint is an Invoker.
type Invoker interface {
	Invoke(ctx context.Context, capabilityID, signature string, args []interface{}) (interface{}, error)
}

// Target is a capability reached through an endpoint. The same capability
// may carry a different id on every peer. Targets are compared with ==, so
// Endpoint must hold a comparable value such as a pointer.
type Target struct {
	Endpoint     Invoker
	CapabilityID string
}

func (t Target) String() string {
	if a, ok := t.Endpoint.(interface{ RemoteAddress() string }); ok {
		return a.RemoteAddress() + "#" + t.CapabilityID
	}
	return fmt.Sprintf("%T#%s", t.Endpoint, t.CapabilityID)
}

type mapping struct {
	policy     Policy
	primary    Target
	alternates []Target
	ring       *targetRing
}

func (mp *mapping) targets() []Target {
	return append([]Target{mp.primary}, mp.alternates...)
}

func (mp *mapping) indexOf(t Target) int {
	for i, alt := range mp.alternates {
		if alt == t {
			return i
		}
	}
	return -1
}

func (mp *mapping) removeAlternate(i int) {
	_ = mp.ring.Remove(mp.alternates[i])
	mp.alternates = append(mp.alternates[:i:i], mp.alternates[i+1:]...)
}

type metrics struct {
	calls     tally.Counter
	failovers tally.Counter
	exhausted tally.Counter
}

// Multiplexer routes calls to capabilities according to their policies.
type Multiplexer struct {
	primary Invoker
	logger  *zap.Logger
	metrics metrics

	mu       sync.Mutex
	random   *rand.Rand
	mappings map[string]*mapping
}

// New builds a Multiplexer whose capabilities are reached through primary
// until redundant endpoints are added for them.
func New(primary Invoker, opts ...Option) *Multiplexer {
	o := defaultOptions
	for _, opt := range opts {
		opt.apply(&o)
	}
	if o.source == nil {
		o.source = rand.NewSource(time.Now().UnixNano())
	}

	scope := o.scope.SubScope("multiplexer")
	return &Multiplexer{
		primary: primary,
		logger:  o.logger,
		metrics: metrics{
			calls:     scope.Counter("calls"),
			failovers: scope.Counter("failovers"),
			exhausted: scope.Counter("exhausted"),
		},
		random:   rand.New(o.source),
		mappings: make(map[string]*mapping),
	}
}

// mappingFor returns the mapping of capabilityID, creating it if needed.
// m.mu must be held.
func (m *Multiplexer) mappingFor(capabilityID string) *mapping {
	mp, ok := m.mappings[capabilityID]
	if !ok {
		primary := Target{Endpoint: m.primary, CapabilityID: capabilityID}
		mp = &mapping{primary: primary, ring: newTargetRing(primary)}
		m.mappings[capabilityID] = mp
	}
	return mp
}

// AddRedundantEndpoint adds t as the last alternate for capabilityID.
func (m *Multiplexer) AddRedundantEndpoint(capabilityID string, t Target) error {
	if t.Endpoint == nil {
		return rosgierrors.InvalidArgumentErrorf("target for %q has no endpoint", capabilityID)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	mp := m.mappingFor(capabilityID)
	if mp.primary == t || mp.indexOf(t) >= 0 {
		return rosgierrors.InvalidArgumentErrorf("%v already serves %q", t, capabilityID)
	}
	if err := mp.ring.Add(t); err != nil {
		return err
	}
	mp.alternates = append(mp.alternates, t)
	return nil
}

// RemoveRedundantEndpoint removes the alternate t of capabilityID.
func (m *Multiplexer) RemoveRedundantEndpoint(capabilityID string, t Target) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	mp, ok := m.mappings[capabilityID]
	if !ok {
		return rosgierrors.InvalidArgumentErrorf("%q has no redundant endpoints", capabilityID)
	}
	i := mp.indexOf(t)
	if i < 0 {
		return rosgierrors.InvalidArgumentErrorf("%v is not an alternate for %q", t, capabilityID)
	}
	mp.removeAlternate(i)
	return nil
}

// SetPolicy sets the policy of capabilityID.
func (m *Multiplexer) SetPolicy(capabilityID string, p Policy) error {
	if !p.valid() {
		return rosgierrors.InvalidArgumentErrorf("unknown policy %v", p)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.mappingFor(capabilityID).policy = p
	return nil
}

// Policy returns the policy of capabilityID. Capabilities without a
// mapping use None.
func (m *Multiplexer) Policy(capabilityID string) Policy {
	m.mu.Lock()
	defer m.mu.Unlock()
	if mp, ok := m.mappings[capabilityID]; ok {
		return mp.policy
	}
	return None
}

// Targets returns the targets of capabilityID, primary first.
func (m *Multiplexer) Targets(capabilityID string) []Target {
	m.mu.Lock()
	defer m.mu.Unlock()
	if mp, ok := m.mappings[capabilityID]; ok {
		return mp.targets()
	}
	return []Target{{Endpoint: m.primary, CapabilityID: capabilityID}}
}

// choose picks the target for a call.
func (m *Multiplexer) choose(capabilityID string) (Target, Policy) {
	m.mu.Lock()
	defer m.mu.Unlock()
	mp, ok := m.mappings[capabilityID]
	if !ok {
		return Target{Endpoint: m.primary, CapabilityID: capabilityID}, None
	}

	switch mp.policy {
	case LoadBalanceAny:
		targets := mp.targets()
		return targets[m.random.Intn(len(targets))], mp.policy
	case LoadBalanceOne:
		if t, ok := mp.ring.Choose(); ok {
			return t, mp.policy
		}
	}
	return mp.primary, mp.policy
}

// Invoke calls signature on the capability through the target its policy
// picks.
func (m *Multiplexer) Invoke(ctx context.Context, capabilityID, signature string, args []interface{}) (interface{}, error) {
	m.metrics.calls.Inc(1)

	t, policy := m.choose(capabilityID)
	res, err := t.Endpoint.Invoke(ctx, t.CapabilityID, signature, args)
	if err == nil || policy == None || !rosgierrors.IsConnectionLevel(err) {
		return res, err
	}
	return m.failover(ctx, capabilityID, t, err, signature, args)
}

func (m *Multiplexer) failover(ctx context.Context, capabilityID string, failed Target, firstErr error, signature string, args []interface{}) (interface{}, error) {
	for {
		next, ok := m.drop(capabilityID, failed)
		if !ok {
			m.metrics.exhausted.Inc(1)
			m.logger.Warn("no endpoint left for capability",
				zap.String("capability", capabilityID),
				zap.Error(firstErr))
			return nil, firstErr
		}

		m.metrics.failovers.Inc(1)
		m.logger.Info("failing over",
			zap.String("capability", capabilityID),
			zap.Stringer("from", failed),
			zap.Stringer("to", next))
		res, err := next.Endpoint.Invoke(ctx, next.CapabilityID, signature, args)
		if err == nil || !rosgierrors.IsConnectionLevel(err) {
			return res, err
		}
		failed = next
	}
}

// drop removes a failed target from the mapping of capabilityID and returns
// the target to try next. A failed primary is replaced by the first
// alternate; without one the mapping is forgotten.
func (m *Multiplexer) drop(capabilityID string, failed Target) (Target, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	mp, ok := m.mappings[capabilityID]
	if !ok {
		return Target{}, false
	}

	if mp.primary == failed {
		if len(mp.alternates) == 0 {
			delete(m.mappings, capabilityID)
			return Target{}, false
		}
		_ = mp.ring.Remove(failed)
		mp.primary, mp.alternates = mp.alternates[0], mp.alternates[1:]
		return mp.primary, true
	}

	// The failed target was picked by a balancing policy, or another call
	// already dropped it.
	if i := mp.indexOf(failed); i >= 0 {
		mp.removeAlternate(i)
	}
	return mp.primary, true
}
