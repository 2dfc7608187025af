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

package stream

import (
	"context"
	"io"

	"github.com/saces/r-osgi-sub000/rosgierrors"
	"github.com/saces/r-osgi-sub000/wire"
	"go.uber.org/atomic"
)

// Requester carries stream requests to the peer that owns the stream.
type Requester interface {
	StreamRequest(ctx context.Context, req *wire.StreamRequest) (*wire.StreamResult, error)
}

// Proxy is the local face of a stream owned by a peer.
type Proxy struct {
	handle Handle
	req    Requester
	closed atomic.Bool
}

var (
	_ io.ReadWriteCloser = (*Proxy)(nil)
	_ io.ByteReader      = (*Proxy)(nil)
	_ io.ByteWriter      = (*Proxy)(nil)
)

// NewProxy returns a Proxy for h that sends its requests through r.
func NewProxy(h Handle, r Requester) *Proxy {
	return &Proxy{handle: h, req: r}
}

// Import turns a handle received from a peer into a Proxy. Other values
// pass through.
func Import(v interface{}, r Requester) interface{} {
	if h, ok := v.(Handle); ok {
		return NewProxy(h, r)
	}
	return v
}

// Handle returns the handle of the remote stream.
func (p *Proxy) Handle() Handle { return p.handle }

func (p *Proxy) do(req *wire.StreamRequest) (*wire.StreamResult, error) {
	if p.closed.Load() {
		return nil, rosgierrors.IllegalStateErrorf("stream %d is closed", p.handle.ID)
	}
	req.StreamID = p.handle.ID
	res, err := p.req.StreamRequest(context.Background(), req)
	if err != nil {
		return nil, err
	}
	if res.Result == wire.ResultException {
		return nil, res.Err
	}
	return res, nil
}

// Read implements io.Reader.
func (p *Proxy) Read(b []byte) (int, error) {
	if len(b) == 0 {
		return 0, nil
	}
	n := len(b)
	if n > MaxChunk {
		n = MaxChunk
	}
	res, err := p.do(&wire.StreamRequest{Op: wire.StreamReadArray, Length: uint32(n)})
	if err != nil {
		return 0, err
	}
	if res.Result == wire.ResultEOF {
		return 0, io.EOF
	}
	return copy(b, res.Data), nil
}

// ReadByte implements io.ByteReader.
func (p *Proxy) ReadByte() (byte, error) {
	res, err := p.do(&wire.StreamRequest{Op: wire.StreamRead})
	if err != nil {
		return 0, err
	}
	switch {
	case res.Result == wire.ResultEOF:
		return 0, io.EOF
	case res.Result < 0 || res.Result > 255:
		return 0, rosgierrors.ProtocolErrorf("unexpected stream result %d for a read", res.Result)
	}
	return byte(res.Result), nil
}

// Write implements io.Writer.
func (p *Proxy) Write(b []byte) (int, error) {
	written := 0
	for written < len(b) {
		end := written + MaxChunk
		if end > len(b) {
			end = len(b)
		}
		if _, err := p.do(&wire.StreamRequest{Op: wire.StreamWriteArray, Data: b[written:end]}); err != nil {
			return written, err
		}
		written = end
	}
	return written, nil
}

// WriteByte implements io.ByteWriter.
func (p *Proxy) WriteByte(b byte) error {
	_, err := p.do(&wire.StreamRequest{Op: wire.StreamWrite, Byte: b})
	return err
}

// Close closes the remote stream. Closing twice is a no-op.
func (p *Proxy) Close() error {
	if p.closed.Load() {
		return nil
	}
	_, err := p.do(&wire.StreamRequest{Op: wire.StreamClose})
	p.closed.Store(true)
	return err
}
