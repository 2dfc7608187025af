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

package wire

import (
	"fmt"
	"sort"

	"github.com/saces/r-osgi-sub000/rosgierrors"
)

func (m *Lease) encode(e *encoder) error {
	ids := make([]string, len(m.Capabilities))
	for i, c := range m.Capabilities {
		ids[i] = c.ID
	}
	e.w.Strings(ids)
	for _, c := range m.Capabilities {
		e.w.Strings(c.Interfaces)
		if err := e.smart(c.Properties); err != nil {
			return err
		}
	}
	e.w.Strings(m.Topics)
	return nil
}

func (m *Lease) decode(d *decoder) error {
	ids := d.r.Strings()
	if len(ids) > 0 {
		m.Capabilities = make([]LeasedCapability, len(ids))
	}
	for i, id := range ids {
		m.Capabilities[i].ID = id
		m.Capabilities[i].Interfaces = d.r.Strings()
		props, err := asProperties(d.smart())
		if err != nil {
			return err
		}
		m.Capabilities[i].Properties = props
	}
	m.Topics = d.r.Strings()
	return nil
}

func (m *RequestBundle) encode(e *encoder) error {
	e.w.String(m.ServiceID)
	return nil
}

func (m *RequestBundle) decode(d *decoder) error {
	m.ServiceID = d.r.String()
	return nil
}

func (m *DeliverBundles) encode(e *encoder) error {
	e.w.Count16(len(m.Bundles))
	for _, b := range m.Bundles {
		e.w.String(b.Name)
		e.w.Block(b.Data)
	}
	return nil
}

func (m *DeliverBundles) decode(d *decoder) error {
	n := int(d.r.Uint16())
	for i := 0; i < n && d.r.Err() == nil; i++ {
		m.Bundles = append(m.Bundles, Bundle{Name: d.r.String(), Data: d.r.Block()})
	}
	return nil
}

func (m *FetchService) encode(e *encoder) error {
	e.w.String(m.ServiceID)
	return nil
}

func (m *FetchService) decode(d *decoder) error {
	m.ServiceID = d.r.String()
	return nil
}

func (m *DeliverService) encode(e *encoder) error {
	e.w.String(m.ServiceID)
	e.w.Strings(m.Interfaces)
	e.w.String(m.SmartProxy)
	e.w.Strings(m.Imports)
	e.w.Strings(m.Exports)

	names := make([]string, 0, len(m.Injections))
	for name := range m.Injections {
		names = append(names, name)
	}
	sort.Strings(names)
	e.w.Count16(len(names))
	for _, name := range names {
		e.w.String(name)
		e.w.Block(m.Injections[name])
	}
	return nil
}

func (m *DeliverService) decode(d *decoder) error {
	m.ServiceID = d.r.String()
	m.Interfaces = d.r.Strings()
	m.SmartProxy = d.r.String()
	m.Imports = d.r.Strings()
	m.Exports = d.r.Strings()

	n := int(d.r.Uint16())
	if n > 0 && d.r.Err() == nil {
		m.Injections = make(map[string][]byte, n)
	}
	for i := 0; i < n && d.r.Err() == nil; i++ {
		name := d.r.String()
		m.Injections[name] = d.r.Block()
	}
	return nil
}

func (m *InvokeMethod) encode(e *encoder) error {
	e.w.String(m.ServiceID)
	e.w.String(m.Signature)
	return e.smart(m.Args)
}

func (m *InvokeMethod) decode(d *decoder) error {
	m.ServiceID = d.r.String()
	m.Signature = d.r.String()
	switch v := d.smart().(type) {
	case nil:
	case []interface{}:
		m.Args = v
	default:
		return rosgierrors.ProtocolErrorf("invoke arguments must be []interface{}, got %T", v)
	}
	return nil
}

func (m *MethodResult) encode(e *encoder) error {
	if m.Err == nil {
		e.w.Uint8(0)
		return e.smart(m.Result)
	}

	e.w.Uint8(1)
	err := e.smart(m.Err)
	if rosgierrors.IsSerialization(err) {
		err = e.smart(rosgierrors.NewRemoteError(m.Err))
	}
	return err
}

func (m *MethodResult) decode(d *decoder) error {
	failed := d.r.Uint8() != 0
	v := d.smart()
	if !failed {
		m.Result = v
		return nil
	}
	m.Err = asError(v)
	return nil
}

func (m *RemoteEvent) encode(e *encoder) error {
	e.w.String(m.Topic)
	return e.smart(m.Properties)
}

func (m *RemoteEvent) decode(d *decoder) error {
	m.Topic = d.r.String()
	props, err := asProperties(d.smart())
	m.Properties = props
	return err
}

func (m *TimeOffset) encode(e *encoder) error {
	e.w.Count16(len(m.Timestamps))
	for _, ts := range m.Timestamps {
		e.w.Int64(ts)
	}
	return nil
}

func (m *TimeOffset) decode(d *decoder) error {
	n := int(d.r.Uint16())
	if n > 0 {
		m.Timestamps = make([]int64, 0, n)
	}
	for i := 0; i < n && d.r.Err() == nil; i++ {
		m.Timestamps = append(m.Timestamps, d.r.Int64())
	}
	return nil
}

func (m *LeaseUpdate) encode(e *encoder) error {
	e.w.String(m.ServiceID)
	e.w.Uint8(uint8(m.Type))

	var first, second interface{}
	switch m.Type {
	case UpdateTopics:
		first, second = m.TopicsAdded, m.TopicsRemoved
	case UpdateAdded, UpdateModified:
		first, second = m.Interfaces, m.Properties
	case UpdateRemoved:
	default:
		return rosgierrors.InvalidArgumentErrorf("unknown lease update type %v", m.Type)
	}
	if err := e.smart(first); err != nil {
		return err
	}
	return e.smart(second)
}

func (m *LeaseUpdate) decode(d *decoder) error {
	m.ServiceID = d.r.String()
	m.Type = UpdateType(d.r.Uint8())
	first, second := d.smart(), d.smart()
	if d.r.Err() != nil {
		return nil
	}

	var err error
	switch m.Type {
	case UpdateTopics:
		if m.TopicsAdded, err = asStrings(first); err != nil {
			return err
		}
		m.TopicsRemoved, err = asStrings(second)
	case UpdateAdded, UpdateModified:
		if m.Interfaces, err = asStrings(first); err != nil {
			return err
		}
		m.Properties, err = asProperties(second)
	case UpdateRemoved:
	default:
		err = rosgierrors.ProtocolErrorf("unknown lease update type %v", m.Type)
	}
	return err
}

func (m *StreamRequest) encode(e *encoder) error {
	e.w.Uint16(m.StreamID)
	e.w.Uint8(uint8(m.Op))
	switch m.Op {
	case StreamRead, StreamClose:
	case StreamReadArray:
		e.w.Uint32(m.Length)
	case StreamWrite:
		e.w.Uint8(m.Byte)
	case StreamWriteArray:
		e.w.Block(m.Data)
	default:
		return rosgierrors.InvalidArgumentErrorf("unknown stream operation %v", m.Op)
	}
	return nil
}

func (m *StreamRequest) decode(d *decoder) error {
	m.StreamID = d.r.Uint16()
	m.Op = StreamOp(d.r.Uint8())
	switch m.Op {
	case StreamRead, StreamClose:
	case StreamReadArray:
		m.Length = d.r.Uint32()
	case StreamWrite:
		m.Byte = d.r.Uint8()
	case StreamWriteArray:
		m.Data = d.r.Block()
	default:
		return rosgierrors.ProtocolErrorf("unknown stream operation %v", m.Op)
	}
	return nil
}

func (m *StreamResult) encode(e *encoder) error {
	e.w.Int16(m.Result)
	if m.Result != ResultException {
		e.w.Block(m.Data)
		return nil
	}
	err := e.smart(m.Err)
	if rosgierrors.IsSerialization(err) {
		err = e.smart(rosgierrors.NewRemoteError(m.Err))
	}
	return err
}

func (m *StreamResult) decode(d *decoder) error {
	m.Result = d.r.Int16()
	if m.Result != ResultException {
		m.Data = d.r.Block()
		return nil
	}
	m.Err = asError(d.smart())
	return nil
}

func (m *RequestDependencies) encode(e *encoder) error {
	e.w.Strings(m.Packages)
	return nil
}

func (m *RequestDependencies) decode(d *decoder) error {
	m.Packages = d.r.Strings()
	return nil
}

func asStrings(v interface{}) ([]string, error) {
	switch v := v.(type) {
	case nil:
		return nil, nil
	case []string:
		return v, nil
	}
	return nil, rosgierrors.ProtocolErrorf("expected []string, got %T", v)
}

func asProperties(v interface{}) (map[string]interface{}, error) {
	switch v := v.(type) {
	case nil:
		return nil, nil
	case map[string]interface{}:
		return v, nil
	}
	return nil, rosgierrors.ProtocolErrorf("expected map[string]interface{}, got %T", v)
}

// asError turns a decoded error payload back into an error. Payloads that
// are not errors are kept as their string form.
func asError(v interface{}) error {
	switch v := v.(type) {
	case error:
		return v
	case nil:
		return &rosgierrors.RemoteError{TypeName: "<nil>", Message: "remote failure without an error value"}
	default:
		return &rosgierrors.RemoteError{TypeName: fmt.Sprintf("%T", v), Message: fmt.Sprint(v)}
	}
}
