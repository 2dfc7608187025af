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

	"github.com/saces/r-osgi-sub000/rosgierrors"
	"github.com/saces/r-osgi-sub000/stream"
	"github.com/saces/r-osgi-sub000/timeoffset"
	"github.com/saces/r-osgi-sub000/wire"
	"go.uber.org/zap"
)

// Invoke calls an operation of a peer capability and returns its result.
// Streams among args are exported to the peer until it closes them or the
// endpoint is disposed; streams in the result come back as stream proxies. Errors raised
// by the remote operation are returned as they were received.
func (e *Endpoint) Invoke(ctx context.Context, capabilityID, signature string, args []interface{}) (interface{}, error) {
	e.metrics.calls.Inc(1)

	var exported []stream.Handle
	wireArgs := make([]interface{}, len(args))
	for i, arg := range args {
		v, err := e.streams.Export(arg)
		if err != nil {
			e.closeStreams(exported)
			return nil, err
		}
		if h, ok := v.(stream.Handle); ok {
			exported = append(exported, h)
		}
		wireArgs[i] = v
	}

	reply, err := e.request(ctx, &wire.InvokeMethod{
		ServiceID: capabilityID,
		Signature: signature,
		Args:      wireArgs,
	})
	if err != nil {
		e.closeStreams(exported)
		return nil, err
	}

	res := reply.(*wire.MethodResult)
	if res.Err != nil {
		e.metrics.remoteErrors.Inc(1)
		return nil, res.Err
	}
	return stream.Import(res.Result, e), nil
}

func (e *Endpoint) closeStreams(handles []stream.Handle) {
	for _, h := range handles {
		if err := e.streams.Close(h.ID); err != nil {
			e.logger.Debug("failed to close stream", zap.Uint16("stream", h.ID), zap.Error(err))
		}
	}
}

// StreamRequest implements stream.Requester.
func (e *Endpoint) StreamRequest(ctx context.Context, req *wire.StreamRequest) (*wire.StreamResult, error) {
	reply, err := e.request(ctx, req)
	if err != nil {
		return nil, err
	}
	return reply.(*wire.StreamResult), nil
}

// Offset returns how far the clock of the peer is ahead of the local clock,
// exchanging timestamps with the peer when the estimate is missing or old.
func (e *Endpoint) Offset(ctx context.Context) (time.Duration, error) {
	e.offsetMu.Lock()
	defer e.offsetMu.Unlock()

	if rounds, full := e.offset.Plan(); rounds > 0 {
		series, err := e.exchangeTimestamps(ctx, rounds)
		if err == nil {
			if full {
				e.offset.Reset(series)
			} else {
				e.offset.Refine(series)
			}
		} else if e.offset.State() != timeoffset.Stale {
			return 0, err
		} else {
			e.logger.Warn("failed to refresh time offset", zap.Error(err))
		}
	}

	offset, state := e.offset.Offset()
	if state == timeoffset.Missing || state == timeoffset.Expired {
		return 0, rosgierrors.InternalErrorf("no usable time offset for %v", e.RemoteAddress())
	}
	return offset, nil
}

// exchangeTimestamps bounces a TimeOffset message off the peer rounds
// times. Each side appends its clock reading; the result ends with a local
// reading.
func (e *Endpoint) exchangeTimestamps(ctx context.Context, rounds int) ([]int64, error) {
	var series []int64
	for i := 0; i < rounds; i++ {
		msg := &wire.TimeOffset{Timestamps: append(series, e.clock.Now().UnixNano())}
		reply, err := e.request(ctx, msg)
		if err != nil {
			return nil, err
		}
		series = append([]int64(nil), reply.(*wire.TimeOffset).Timestamps...)
	}
	return append(series, e.clock.Now().UnixNano()), nil
}
