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
	"sort"
	"strings"

	"github.com/saces/r-osgi-sub000/api/capability"
	"github.com/saces/r-osgi-sub000/rosgierrors"
	"github.com/saces/r-osgi-sub000/wire"
	"go.uber.org/zap"
)

func (e *Endpoint) resolve(id string) (*capability.Registration, bool) {
	if e.provider == nil {
		return nil, false
	}
	reg, ok := e.provider.ResolveLocalCapability(id)
	return reg, ok && reg != nil
}

// localLease describes the local capabilities and topics.
func (e *Endpoint) localLease() *wire.Lease {
	lease := &wire.Lease{}
	if e.provider == nil {
		return lease
	}
	for _, reg := range e.provider.LocalCapabilities() {
		lease.Capabilities = append(lease.Capabilities, wire.LeasedCapability{
			ID:         reg.ID,
			Interfaces: reg.Interfaces,
			Properties: reg.Properties,
		})
	}
	lease.Topics = e.provider.LocalTopics()
	return lease
}

// SendLease offers the local capabilities and topics to the peer and
// records what the peer offers in return.
func (e *Endpoint) SendLease(ctx context.Context) ([]*RemoteReference, error) {
	reply, err := e.request(ctx, e.localLease())
	if err != nil {
		return nil, err
	}
	return e.applyLease(reply.(*wire.Lease)), nil
}

func (e *Endpoint) handleLease(m *wire.Lease) {
	e.applyLease(m)
	lease := e.localLease()
	lease.SetXID(m.XID())
	e.reply(lease)
}

// applyLease records the capabilities and topics of a peer lease and
// returns references to every leased capability.
func (e *Endpoint) applyLease(m *wire.Lease) []*RemoteReference {
	refs := make([]*RemoteReference, 0, len(m.Capabilities))
	var added, modified []*RemoteReference

	e.mu.Lock()
	for _, c := range m.Capabilities {
		ref, ok := e.remote[c.ID]
		if ok {
			ref.update(c.Interfaces, c.Properties)
			modified = append(modified, ref)
		} else {
			ref = newRemoteReference(e, c.ID, c.Interfaces, c.Properties)
			e.remote[c.ID] = ref
			added = append(added, ref)
		}
		refs = append(refs, ref)
	}
	e.topics = make(map[string]struct{}, len(m.Topics))
	for _, t := range m.Topics {
		e.topics[t] = struct{}{}
	}
	topics := e.topicList()
	e.mu.Unlock()

	e.logger.Info("received lease",
		zap.Int("capabilities", len(refs)),
		zap.Strings("topics", topics))
	for _, ref := range added {
		e.changed(capability.Registered, ref)
	}
	for _, ref := range modified {
		e.changed(capability.Modified, ref)
	}
	if e.listener != nil {
		e.listener.TopicsChanged(e.RemoteAddress(), topics)
	}
	return refs
}

// SendLeaseUpdate tells the peer about a change to the local lease.
func (e *Endpoint) SendLeaseUpdate(m *wire.LeaseUpdate) error {
	return e.notify(m)
}

func (e *Endpoint) handleLeaseUpdate(m *wire.LeaseUpdate) {
	switch m.Type {
	case wire.UpdateTopics:
		e.mu.Lock()
		for _, t := range m.TopicsAdded {
			e.topics[t] = struct{}{}
		}
		for _, t := range m.TopicsRemoved {
			delete(e.topics, t)
		}
		topics := e.topicList()
		e.mu.Unlock()
		if e.listener != nil {
			e.listener.TopicsChanged(e.RemoteAddress(), topics)
		}

	case wire.UpdateAdded, wire.UpdateModified:
		e.mu.Lock()
		ref, ok := e.remote[m.ServiceID]
		if ok {
			ref.update(m.Interfaces, m.Properties)
		} else {
			ref = newRemoteReference(e, m.ServiceID, m.Interfaces, m.Properties)
			e.remote[m.ServiceID] = ref
		}
		e.mu.Unlock()
		if ok {
			e.changed(capability.Modified, ref)
		} else {
			e.changed(capability.Registered, ref)
		}

	case wire.UpdateRemoved:
		e.mu.Lock()
		ref, ok := e.remote[m.ServiceID]
		delete(e.remote, m.ServiceID)
		e.mu.Unlock()
		if ok {
			e.changed(capability.Unregistering, ref)
		}

	default:
		e.logger.Warn("dropping lease update of unknown type", zap.Stringer("type", m.Type))
	}
}

// RemoteReferences returns the capabilities the peer offers, ordered by id.
func (e *Endpoint) RemoteReferences() []*RemoteReference {
	e.mu.Lock()
	refs := make([]*RemoteReference, 0, len(e.remote))
	for _, ref := range e.remote {
		refs = append(refs, ref)
	}
	e.mu.Unlock()
	sort.Slice(refs, func(i, j int) bool { return refs[i].id < refs[j].id })
	return refs
}

// RemoteReference returns the peer capability with the given id.
func (e *Endpoint) RemoteReference(id string) (*RemoteReference, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	ref, ok := e.remote[id]
	return ref, ok
}

// RemoteTopics returns the topics the peer is interested in, sorted.
func (e *Endpoint) RemoteTopics() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.topicList()
}

func (e *Endpoint) topicList() []string {
	topics := make([]string, 0, len(e.topics))
	for t := range e.topics {
		topics = append(topics, t)
	}
	sort.Strings(topics)
	return topics
}

// HasTopicInterest reports whether the peer wants events on topic. A
// remote topic ending in "*" matches every topic starting with what
// precedes the star.
func (e *Endpoint) HasTopicInterest(topic string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	for pattern := range e.topics {
		if matchTopic(pattern, topic) {
			return true
		}
	}
	return false
}

func matchTopic(pattern, topic string) bool {
	if strings.HasSuffix(pattern, "*") {
		return strings.HasPrefix(topic, strings.TrimSuffix(pattern, "*"))
	}
	return pattern == topic
}

// FetchService asks the peer for the full description of a capability.
func (e *Endpoint) FetchService(ctx context.Context, id string) (*wire.DeliverService, error) {
	reply, err := e.request(ctx, &wire.FetchService{ServiceID: id})
	if err != nil {
		return nil, err
	}
	res := reply.(*wire.DeliverService)
	if len(res.Interfaces) == 0 {
		return nil, rosgierrors.UnknownCapabilityErrorf("peer %v has no capability %q", e.RemoteAddress(), id)
	}
	return res, nil
}

// RequestBundle asks the peer for the bundles that make up a capability.
func (e *Endpoint) RequestBundle(ctx context.Context, id string) ([]wire.Bundle, error) {
	reply, err := e.request(ctx, &wire.RequestBundle{ServiceID: id})
	if err != nil {
		return nil, err
	}
	return reply.(*wire.DeliverBundles).Bundles, nil
}

// RequestDependencies asks the peer for the bundles that provide packages.
func (e *Endpoint) RequestDependencies(ctx context.Context, packages []string) ([]wire.Bundle, error) {
	reply, err := e.request(ctx, &wire.RequestDependencies{Packages: packages})
	if err != nil {
		return nil, err
	}
	return reply.(*wire.DeliverBundles).Bundles, nil
}
