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

// Package channel is the contract between the remoting core and the
// transports that carry its frames.
//
// A transport owns the connection and its receive loop. The core binds one
// endpoint to each Channel as its Receiver and sends through the Channel;
// it never reads from the connection itself.
package channel

//go:generate mockgen -destination=channeltest/channel.go -package=channeltest github.com/saces/r-osgi-sub000/api/channel Channel,Dialer,Receiver

import (
	"context"

	"github.com/saces/r-osgi-sub000/wire"
)

// Receiver consumes the messages a Channel reads.
type Receiver interface {
	// ReceivedMessage is called from the channel's receive loop, one message
	// at a time and in arrival order. A nil message reports that the
	// connection broke; no further messages follow it.
	ReceivedMessage(msg wire.Message)
}

// Channel is one connection to a peer.
type Channel interface {
	// Send writes one message. Concurrent calls must not interleave their
	// frames; callers serialize sends so implementations need not.
	Send(msg wire.Message) error

	// SetReceiver binds the receiver of inbound messages. Messages are not
	// delivered before a receiver is set.
	SetReceiver(r Receiver)

	// Reconnect tries to restore a broken connection to the same peer.
	Reconnect() error

	// Close tears the connection down. The receiver is not told about a
	// close it asked for.
	Close() error

	LocalAddress() string
	RemoteAddress() string
}

// Dialer opens channels for addresses of one scheme, such as "tcp".
type Dialer interface {
	Scheme() string
	Dial(ctx context.Context, address string) (Channel, error)
}
