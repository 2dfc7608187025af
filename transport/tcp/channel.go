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

package tcp

import (
	"bufio"
	"context"
	"io"
	"net"
	"sync"
	"time"

	"github.com/saces/r-osgi-sub000/api/channel"
	"github.com/saces/r-osgi-sub000/rosgierrors"
	"github.com/saces/r-osgi-sub000/wire"
	"go.uber.org/zap"
)

// Channel is a channel.Channel over one TCP connection.
type Channel struct {
	opts   options
	logger *zap.Logger

	// hostport is dialed again by Reconnect. It is empty for accepted
	// connections, which cannot be restored from this side.
	hostport string
	remote   string

	reconnectMu sync.Mutex

	mu       sync.Mutex
	conn     net.Conn
	local    string
	receiver channel.Receiver
	closed   bool
	closedCh chan struct{}
}

var _ channel.Channel = (*Channel)(nil)

func newChannel(conn net.Conn, hostport, remote string, opts options) *Channel {
	return &Channel{
		opts:     opts,
		logger:   opts.logger.With(zap.String("remote", remote)),
		hostport: hostport,
		remote:   remote,
		conn:     conn,
		local:    Scheme + "://" + conn.LocalAddr().String(),
		closedCh: make(chan struct{}),
	}
}

// LocalAddress implements channel.Channel.
func (c *Channel) LocalAddress() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.local
}

// RemoteAddress implements channel.Channel.
func (c *Channel) RemoteAddress() string { return c.remote }

// SetReceiver binds r and starts reading from the connection.
func (c *Channel) SetReceiver(r channel.Receiver) {
	c.mu.Lock()
	defer c.mu.Unlock()

	start := c.receiver == nil
	c.receiver = r
	if start && !c.closed {
		go c.readLoop(c.conn)
	}
}

// Send writes msg as one frame. A message that cannot be encoded fails
// before anything is written.
func (c *Channel) Send(msg wire.Message) error {
	c.mu.Lock()
	conn, closed := c.conn, c.closed
	c.mu.Unlock()

	if closed {
		return rosgierrors.DisconnectedErrorf("channel to %s is closed", c.remote)
	}
	if c.opts.writeTimeout > 0 {
		if err := conn.SetWriteDeadline(time.Now().Add(c.opts.writeTimeout)); err != nil {
			return rosgierrors.DisconnectedErrorf("failed to write to %s: %v", c.remote, err)
		}
	}
	if err := wire.Encode(conn, msg, c.opts.registry); err != nil {
		if rosgierrors.IsStatus(err) {
			return err
		}
		return rosgierrors.DisconnectedErrorf("failed to write to %s: %v", c.remote, err)
	}
	return nil
}

// Reconnect dials the peer again and replaces the connection, waiting out
// the reconnect backoff between failed attempts.
func (c *Channel) Reconnect() error {
	if c.hostport == "" {
		return rosgierrors.DisconnectedErrorf("cannot reconnect to %s: connection was accepted", c.remote)
	}

	c.reconnectMu.Lock()
	defer c.reconnectMu.Unlock()

	bo := c.opts.backoff.Backoff()
	var err error
	for attempt := 0; attempt < c.opts.reconnectAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-c.opts.clock.After(bo.Duration(uint(attempt - 1))):
			case <-c.closedCh:
			}
		}
		if c.isClosed() {
			return rosgierrors.DisconnectedErrorf("channel to %s is closed", c.remote)
		}

		var conn net.Conn
		conn, err = dial(context.Background(), c.hostport, c.opts)
		if err == nil {
			return c.replace(conn)
		}
		c.logger.Info("reconnect attempt failed", zap.Int("attempt", attempt+1), zap.Error(err))
	}
	return rosgierrors.DisconnectedErrorf("failed to reconnect to %s after %d attempts: %v",
		c.remote, c.opts.reconnectAttempts, err)
}

func (c *Channel) replace(conn net.Conn) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		_ = conn.Close()
		return rosgierrors.DisconnectedErrorf("channel to %s is closed", c.remote)
	}
	old := c.conn
	c.conn = conn
	c.local = Scheme + "://" + conn.LocalAddr().String()
	if c.receiver != nil {
		go c.readLoop(conn)
	}
	c.mu.Unlock()

	c.logger.Info("reconnected")
	return old.Close()
}

func (c *Channel) isClosed() bool {
	select {
	case <-c.closedCh:
		return true
	default:
		return false
	}
}

// Close closes the connection. The receiver is not notified.
func (c *Channel) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	close(c.closedCh)
	conn := c.conn
	c.mu.Unlock()

	return conn.Close()
}

func (c *Channel) readLoop(conn net.Conn) {
	dec := wire.NewDecoder(bufio.NewReader(conn), c.opts.registry)
	for {
		msg, err := dec.Decode()
		if err != nil {
			c.readFailed(conn, err)
			return
		}

		c.mu.Lock()
		r := c.receiver
		c.mu.Unlock()
		r.ReceivedMessage(msg)
	}
}

// readFailed reports a broken connection unless it was closed on purpose
// or already replaced by Reconnect.
func (c *Channel) readFailed(conn net.Conn, err error) {
	c.mu.Lock()
	current := !c.closed && c.conn == conn
	r := c.receiver
	c.mu.Unlock()

	if !current {
		return
	}
	if err == io.EOF {
		c.logger.Info("connection closed by peer")
	} else {
		c.logger.Warn("failed to read frame", zap.Error(err))
	}
	_ = conn.Close()
	r.ReceivedMessage(nil)
}

func dial(ctx context.Context, hostport string, opts options) (net.Conn, error) {
	d := net.Dialer{Timeout: opts.dialTimeout, KeepAlive: opts.keepAlive}
	return d.DialContext(ctx, "tcp", hostport)
}
