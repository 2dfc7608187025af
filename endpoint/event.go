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
	"time"

	"github.com/saces/r-osgi-sub000/api/capability"
	"github.com/saces/r-osgi-sub000/timeoffset"
	"github.com/saces/r-osgi-sub000/wire"
	"go.uber.org/zap"
)

// TimestampProperty is the event property holding the time the event was
// raised. It is translated into local time on arrival: a time.Time as is,
// an int64 as Unix milliseconds. Without a clock offset estimate, events
// carrying a timestamp wait for the clocks to be synchronized first and may
// be dispatched out of order.
const TimestampProperty = "timestamp"

// SendEvent forwards an event to the peer if the peer is interested in its
// topic, and reports whether it was sent.
func (e *Endpoint) SendEvent(topic string, props map[string]interface{}) (bool, error) {
	if !e.HasTopicInterest(topic) {
		return false, nil
	}
	if err := e.notify(&wire.RemoteEvent{Topic: topic, Properties: props}); err != nil {
		return false, err
	}
	return true, nil
}

func (e *Endpoint) handleEvent(m *wire.RemoteEvent) {
	if e.dispatcher == nil {
		e.metrics.droppedEvents.Inc(1)
		e.drops.Warn("dropping remote event: no dispatcher", zap.String("topic", m.Topic))
		return
	}
	if !hasTimestamp(m.Properties) {
		e.dispatchEvent(m)
		return
	}

	switch e.offset.State() {
	case timeoffset.Missing, timeoffset.Expired:
		// The exchange needs this goroutine to receive its replies.
		go func() {
			e.syncOffset()
			if !e.Disposed() {
				e.dispatchEvent(m)
			}
		}()
		return
	case timeoffset.Stale:
		if e.refreshing.CAS(false, true) {
			go func() {
				defer e.refreshing.Store(false)
				e.syncOffset()
			}()
		}
	}
	e.dispatchEvent(m)
}

func hasTimestamp(props map[string]interface{}) bool {
	switch props[TimestampProperty].(type) {
	case time.Time, int64:
		return true
	}
	return false
}

// syncOffset brings the clock offset estimate up to date.
func (e *Endpoint) syncOffset() {
	ctx, cancel := context.WithTimeout(e.ctx, e.timeout)
	defer cancel()
	if _, err := e.Offset(ctx); err != nil {
		e.logger.Warn("failed to synchronize clocks", zap.Error(err))
	}
}

func (e *Endpoint) dispatchEvent(m *wire.RemoteEvent) {
	props := make(map[string]interface{}, len(m.Properties))
	for k, v := range m.Properties {
		props[k] = v
	}
	switch ts := props[TimestampProperty].(type) {
	case time.Time:
		props[TimestampProperty] = e.offset.ToLocal(ts)
	case int64:
		local := e.offset.ToLocal(time.Unix(0, ts*int64(time.Millisecond)))
		props[TimestampProperty] = local.UnixNano() / int64(time.Millisecond)
	}

	e.dispatcher.DispatchEvent(capability.Event{
		Topic:      m.Topic,
		Properties: props,
		Source:     e.RemoteAddress(),
	})
}
