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

package channeltest

import (
	"bytes"
	"errors"
	"sync"

	"github.com/saces/r-osgi-sub000/api/channel"
	"github.com/saces/r-osgi-sub000/rosgierrors"
	"github.com/saces/r-osgi-sub000/serialize"
	"github.com/saces/r-osgi-sub000/wire"
	"go.uber.org/atomic"
)

// ErrInjected is returned by sends that a test asked to fail.
var ErrInjected = errors.New("injected send failure")

// PipeOption customizes NewPipe.
type PipeOption func(*pipeOptions)

type pipeOptions struct {
	reg *serialize.Registry
}

// Registry sets the registry both ends encode and decode smart values with.
func Registry(reg *serialize.Registry) PipeOption {
	return func(o *pipeOptions) {
		o.reg = reg
	}
}

// NewPipe returns the two ends of an in-memory connection. Every message is
// encoded on send and decoded on delivery, one frame per packet, so a frame
// that fails to decode is dropped without affecting the ones after it.
func NewPipe(addrA, addrB string, opts ...PipeOption) (*Pipe, *Pipe) {
	o := pipeOptions{reg: serialize.Default}
	for _, opt := range opts {
		opt(&o)
	}

	a := newPipe(addrA, addrB, o.reg)
	b := newPipe(addrB, addrA, o.reg)
	a.peer, b.peer = b, a
	return a, b
}

// Pipe is one end of an in-memory connection.
type Pipe struct {
	local, remote string
	reg           *serialize.Registry
	peer          *Pipe

	mu       sync.Mutex
	receiver channel.Receiver
	queue    [][]byte
	started  bool

	notify    chan struct{}
	closed    chan struct{}
	broken    chan struct{}
	done      chan struct{}
	closeOnce sync.Once
	breakOnce sync.Once

	failSends      atomic.Int32
	failReconnects atomic.Int32
	sends          atomic.Int32
	reconnects     atomic.Int32
	dropped        atomic.Int32
}

var _ channel.Channel = (*Pipe)(nil)

func newPipe(local, remote string, reg *serialize.Registry) *Pipe {
	return &Pipe{
		local:  local,
		remote: remote,
		reg:    reg,
		notify: make(chan struct{}, 1),
		closed: make(chan struct{}),
		broken: make(chan struct{}),
		done:   make(chan struct{}),
	}
}

// Send encodes msg and queues it for the peer.
func (p *Pipe) Send(msg wire.Message) error {
	if p.failSends.Load() > 0 && p.failSends.Dec() >= 0 {
		return ErrInjected
	}
	if p.isDown() {
		return rosgierrors.DisconnectedErrorf("pipe %s -> %s is closed", p.local, p.remote)
	}

	var buf bytes.Buffer
	if err := wire.Encode(&buf, msg, p.reg); err != nil {
		return err
	}
	p.sends.Inc()
	p.peer.enqueue(buf.Bytes())
	return nil
}

// SendRaw queues a raw frame for the peer.
func (p *Pipe) SendRaw(frame []byte) {
	p.peer.enqueue(append([]byte(nil), frame...))
}

// SetReceiver binds r and starts delivering messages to it.
func (p *Pipe) SetReceiver(r channel.Receiver) {
	p.mu.Lock()
	p.receiver = r
	start := !p.started
	p.started = true
	p.mu.Unlock()

	if start {
		go p.deliver()
	}
}

// Reconnect succeeds unless the pipe is closed or a test injected
// reconnect failures.
func (p *Pipe) Reconnect() error {
	p.reconnects.Inc()
	if p.failReconnects.Load() > 0 && p.failReconnects.Dec() >= 0 {
		return ErrInjected
	}
	if p.isDown() {
		return rosgierrors.DisconnectedErrorf("pipe %s -> %s is closed", p.local, p.remote)
	}
	return nil
}

// Close shuts this end down and reports a broken connection to the peer.
func (p *Pipe) Close() error {
	p.closeOnce.Do(func() {
		close(p.closed)
		p.peer.breakLink()
	})
	return nil
}

// Break simulates the connection failing underneath both ends. Each
// receiver sees a nil message.
func (p *Pipe) Break() {
	p.breakLink()
	p.peer.breakLink()
}

// LocalAddress implements channel.Channel.
func (p *Pipe) LocalAddress() string { return p.local }

// RemoteAddress implements channel.Channel.
func (p *Pipe) RemoteAddress() string { return p.remote }

// FailSends makes the next n sends fail with ErrInjected.
func (p *Pipe) FailSends(n int) { p.failSends.Store(int32(n)) }

// FailReconnects makes the next n reconnects fail with ErrInjected.
func (p *Pipe) FailReconnects(n int) { p.failReconnects.Store(int32(n)) }

// Sends counts messages that made it onto the pipe.
func (p *Pipe) Sends() int { return int(p.sends.Load()) }

// Reconnects counts calls to Reconnect.
func (p *Pipe) Reconnects() int { return int(p.reconnects.Load()) }

// Dropped counts inbound frames that could not be decoded.
func (p *Pipe) Dropped() int { return int(p.dropped.Load()) }

// Done is closed once this end stopped delivering messages.
func (p *Pipe) Done() <-chan struct{} { return p.done }

func (p *Pipe) isDown() bool {
	select {
	case <-p.closed:
		return true
	case <-p.broken:
		return true
	default:
		return false
	}
}

func (p *Pipe) breakLink() {
	p.breakOnce.Do(func() { close(p.broken) })
}

func (p *Pipe) enqueue(frame []byte) {
	p.mu.Lock()
	p.queue = append(p.queue, frame)
	p.mu.Unlock()

	select {
	case p.notify <- struct{}{}:
	default:
	}
}

func (p *Pipe) deliver() {
	defer close(p.done)
	for {
		p.mu.Lock()
		frames := p.queue
		p.queue = nil
		r := p.receiver
		p.mu.Unlock()

		for _, frame := range frames {
			select {
			case <-p.closed:
				return
			default:
			}
			msg, err := wire.NewDecoder(bytes.NewReader(frame), p.reg).Decode()
			if err != nil {
				p.dropped.Inc()
				continue
			}
			r.ReceivedMessage(msg)
		}
		if len(frames) > 0 {
			continue
		}

		select {
		case <-p.notify:
		case <-p.closed:
			return
		case <-p.broken:
			p.mu.Lock()
			pending := len(p.queue)
			p.mu.Unlock()
			if pending > 0 {
				continue
			}
			r.ReceivedMessage(nil)
			return
		}
	}
}
