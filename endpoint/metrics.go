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

import "github.com/uber-go/tally"

type metrics struct {
	calls          tally.Counter
	timeouts       tally.Counter
	disconnects    tally.Counter
	remoteErrors   tally.Counter
	inboundCalls   tally.Counter
	droppedEvents  tally.Counter
	droppedReplies tally.Counter
	reconnects     tally.Counter
}

func newMetrics(scope tally.Scope) *metrics {
	return &metrics{
		calls:          scope.Counter("calls"),
		timeouts:       scope.Counter("timeouts"),
		disconnects:    scope.Counter("disconnects"),
		remoteErrors:   scope.Counter("remote_errors"),
		inboundCalls:   scope.Counter("inbound_calls"),
		droppedEvents:  scope.Counter("dropped_events"),
		droppedReplies: scope.Counter("dropped_replies"),
		reconnects:     scope.Counter("reconnects"),
	}
}
