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
	"net"
	"sync"

	"github.com/saces/r-osgi-sub000/api/channel"
	"github.com/saces/r-osgi-sub000/internal/lifecycle"
	"github.com/saces/r-osgi-sub000/rosgierrors"
	"go.uber.org/zap"
)

// Inbound accepts connections on one address and hands each one to a
// callback as a Channel.
type Inbound struct {
	hostport string
	accept   func(channel.Channel)
	opts     options
	once     *lifecycle.Once

	mu       sync.Mutex
	listener net.Listener
	done     chan struct{}
}

// NewInbound builds an Inbound listening on address once started. accept
// is called from the accept loop and must not block.
func NewInbound(address string, accept func(channel.Channel), opts ...Option) (*Inbound, error) {
	scheme, hostport, err := channel.SplitAddress(address)
	if err != nil {
		return nil, err
	}
	if scheme != Scheme {
		return nil, rosgierrors.InvalidArgumentErrorf("cannot listen on %q: scheme is not %q", address, Scheme)
	}
	if accept == nil {
		return nil, rosgierrors.InvalidArgumentErrorf("no accept function for inbound %q", address)
	}
	return &Inbound{
		hostport: hostport,
		accept:   accept,
		opts:     newOptions(opts),
		once:     lifecycle.NewOnce(),
		done:     make(chan struct{}),
	}, nil
}

// Start starts listening.
func (i *Inbound) Start() error {
	return i.once.Start(i.start)
}

func (i *Inbound) start() error {
	l, err := net.Listen("tcp", i.hostport)
	if err != nil {
		return err
	}

	i.mu.Lock()
	i.listener = l
	i.mu.Unlock()

	go i.serve(l)
	i.opts.logger.Info("started TCP inbound", zap.String("address", i.Address()))
	return nil
}

// Stop stops accepting connections. Channels already handed out stay open.
func (i *Inbound) Stop() error {
	return i.once.Stop(func() error {
		i.mu.Lock()
		l := i.listener
		i.mu.Unlock()

		err := l.Close()
		<-i.done
		return err
	})
}

// IsRunning returns whether the inbound is accepting connections.
func (i *Inbound) IsRunning() bool {
	return i.once.IsRunning()
}

// Address returns the address peers connect to. Before Start it is the
// configured address; afterwards it carries the port actually bound.
func (i *Inbound) Address() string {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.listener != nil {
		return Scheme + "://" + i.listener.Addr().String()
	}
	return Scheme + "://" + i.hostport
}

func (i *Inbound) serve(l net.Listener) {
	defer close(i.done)
	for {
		conn, err := l.Accept()
		if err != nil {
			select {
			case <-i.once.Stopping():
			default:
				i.opts.logger.Error("TCP inbound stopped accepting connections", zap.Error(err))
			}
			return
		}

		remote := Scheme + "://" + conn.RemoteAddr().String()
		i.opts.logger.Debug("accepted connection", zap.String("remote", remote))
		i.accept(newChannel(conn, "", remote, i.opts))
	}
}
