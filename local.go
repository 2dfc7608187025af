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
	"sort"

	"github.com/saces/r-osgi-sub000/api/capability"
	"github.com/saces/r-osgi-sub000/endpoint"
	"github.com/saces/r-osgi-sub000/rosgierrors"
	"github.com/saces/r-osgi-sub000/wire"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// LocalCapabilities returns the capabilities this process offers, ordered
// by id.
func (r *Runtime) LocalCapabilities() []*capability.Registration {
	r.localMu.RLock()
	regs := make([]*capability.Registration, 0, len(r.local))
	for _, reg := range r.local {
		regs = append(regs, reg)
	}
	r.localMu.RUnlock()

	sort.Slice(regs, func(i, j int) bool { return regs[i].ID < regs[j].ID })
	return regs
}

// LocalTopics returns the topics this process wants events for, sorted.
func (r *Runtime) LocalTopics() []string {
	r.localMu.RLock()
	defer r.localMu.RUnlock()
	return r.topicList()
}

// topicList returns the sorted topics. r.localMu must be held.
func (r *Runtime) topicList() []string {
	topics := make([]string, 0, len(r.topics))
	for t := range r.topics {
		topics = append(topics, t)
	}
	sort.Strings(topics)
	return topics
}

// ResolveLocalCapability returns the capability this process offers under
// id.
func (r *Runtime) ResolveLocalCapability(id string) (*capability.Registration, bool) {
	r.localMu.RLock()
	defer r.localMu.RUnlock()
	reg, ok := r.local[id]
	return reg, ok
}

// Register offers a capability to peers and announces it to every connected
// peer. The capability stays registered even if some peers could not be
// told; their errors are returned.
func (r *Runtime) Register(reg capability.Registration) error {
	if reg.ID == "" {
		return rosgierrors.InvalidArgumentErrorf("capability has no id")
	}
	if reg.Handler == nil {
		return rosgierrors.InvalidArgumentErrorf("capability %q has no handler", reg.ID)
	}
	reg.Interfaces = append([]string(nil), reg.Interfaces...)
	reg.Properties = copyProperties(reg.Properties)

	r.localMu.Lock()
	if _, ok := r.local[reg.ID]; ok {
		r.localMu.Unlock()
		return rosgierrors.InvalidArgumentErrorf("capability %q is already registered", reg.ID)
	}
	r.local[reg.ID] = &reg
	r.localMu.Unlock()

	r.logger.Info("registered capability", zap.String("capability", reg.ID), zap.Strings("interfaces", reg.Interfaces))
	return r.broadcast(func() *wire.LeaseUpdate {
		return &wire.LeaseUpdate{
			ServiceID:  reg.ID,
			Type:       wire.UpdateAdded,
			Interfaces: reg.Interfaces,
			Properties: reg.Properties,
		}
	})
}

// Modify replaces the properties of a registered capability and announces
// them to every connected peer.
func (r *Runtime) Modify(id string, props map[string]interface{}) error {
	r.localMu.Lock()
	old, ok := r.local[id]
	if !ok {
		r.localMu.Unlock()
		return rosgierrors.UnknownCapabilityErrorf("capability %q is not registered", id)
	}
	// Registrations handed out are never changed in place.
	reg := *old
	reg.Properties = copyProperties(props)
	r.local[id] = &reg
	r.localMu.Unlock()

	r.logger.Debug("modified capability", zap.String("capability", id))
	return r.broadcast(func() *wire.LeaseUpdate {
		return &wire.LeaseUpdate{
			ServiceID:  id,
			Type:       wire.UpdateModified,
			Interfaces: reg.Interfaces,
			Properties: reg.Properties,
		}
	})
}

// Unregister withdraws a capability and tells every connected peer.
func (r *Runtime) Unregister(id string) error {
	r.localMu.Lock()
	_, ok := r.local[id]
	delete(r.local, id)
	r.localMu.Unlock()

	if !ok {
		return rosgierrors.UnknownCapabilityErrorf("capability %q is not registered", id)
	}
	r.logger.Info("unregistered capability", zap.String("capability", id))
	return r.broadcast(func() *wire.LeaseUpdate {
		return &wire.LeaseUpdate{ServiceID: id, Type: wire.UpdateRemoved}
	})
}

// AddTopics adds to the topics this process wants events for. Topics ending
// in "*" match every topic with that prefix. Peers are told about the
// topics that were not there yet.
func (r *Runtime) AddTopics(topics ...string) error {
	r.localMu.Lock()
	var added []string
	for _, t := range topics {
		if _, ok := r.topics[t]; !ok {
			r.topics[t] = struct{}{}
			added = append(added, t)
		}
	}
	r.localMu.Unlock()

	if len(added) == 0 {
		return nil
	}
	return r.broadcast(func() *wire.LeaseUpdate {
		return &wire.LeaseUpdate{Type: wire.UpdateTopics, TopicsAdded: added}
	})
}

// RemoveTopics removes topics added with AddTopics.
func (r *Runtime) RemoveTopics(topics ...string) error {
	r.localMu.Lock()
	var removed []string
	for _, t := range topics {
		if _, ok := r.topics[t]; ok {
			delete(r.topics, t)
			removed = append(removed, t)
		}
	}
	r.localMu.Unlock()

	if len(removed) == 0 {
		return nil
	}
	return r.broadcast(func() *wire.LeaseUpdate {
		return &wire.LeaseUpdate{Type: wire.UpdateTopics, TopicsRemoved: removed}
	})
}

// broadcast sends a lease update to every peer. Each peer gets its own
// message since sending assigns a transaction id.
func (r *Runtime) broadcast(build func() *wire.LeaseUpdate) error {
	var errs error
	for _, e := range r.Endpoints() {
		if err := e.SendLeaseUpdate(build()); err != nil {
			r.logger.Warn("failed to send lease update",
				zap.String("remote", e.RemoteAddress()), zap.Error(err))
			errs = multierr.Append(errs, err)
		}
	}
	return errs
}

// PublishEvent forwards an event to every peer interested in its topic and
// returns how many peers it was sent to.
func (r *Runtime) PublishEvent(topic string, props map[string]interface{}) (int, error) {
	var (
		sent int
		errs error
	)
	for _, e := range r.Endpoints() {
		ok, err := e.SendEvent(topic, props)
		if err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		if ok {
			sent++
		}
	}
	return sent, errs
}

// RemoteCapabilities returns the capabilities offered by all connected
// peers.
func (r *Runtime) RemoteCapabilities() []*endpoint.RemoteReference {
	var refs []*endpoint.RemoteReference
	for _, e := range r.Endpoints() {
		refs = append(refs, e.RemoteReferences()...)
	}
	return refs
}

func copyProperties(props map[string]interface{}) map[string]interface{} {
	if props == nil {
		return nil
	}
	out := make(map[string]interface{}, len(props))
	for k, v := range props {
		out[k] = v
	}
	return out
}
