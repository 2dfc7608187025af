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
	"io"
	"math"
	"sync"

	"github.com/saces/r-osgi-sub000/rosgierrors"
	"github.com/saces/r-osgi-sub000/wire"
	"go.uber.org/multierr"
)

// MaxChunk bounds the bytes moved by one request.
const MaxChunk = 64 << 10

// Table holds the local streams peers hold handles to. Stream ids wrap
// around 16 bits and skip ids that are still open.
type Table struct {
	mu      sync.Mutex
	next    uint16
	streams map[uint16]interface{}
	closed  bool
}

// NewTable returns an empty Table.
func NewTable() *Table {
	return &Table{streams: make(map[uint16]interface{})}
}

// Register keeps s and returns its handle.
func (t *Table) Register(s interface{}) (Handle, error) {
	kind, ok := KindOf(s)
	if !ok {
		return Handle{}, rosgierrors.InvalidArgumentErrorf("%T is not a stream", s)
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return Handle{}, rosgierrors.IllegalStateErrorf("stream table is closed")
	}
	if len(t.streams) > math.MaxUint16 {
		return Handle{}, rosgierrors.IllegalStateErrorf("all stream ids are in use")
	}
	for {
		id := t.next
		t.next++
		if _, busy := t.streams[id]; !busy {
			t.streams[id] = s
			return Handle{ID: id, Kind: kind}, nil
		}
	}
}

// Export replaces a stream by its handle. Other values pass through.
func (t *Table) Export(v interface{}) (interface{}, error) {
	if _, ok := KindOf(v); !ok {
		return v, nil
	}
	return t.Register(v)
}

// Len returns the number of open streams.
func (t *Table) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.streams)
}

func (t *Table) get(id uint16) (interface{}, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	s, ok := t.streams[id]
	return s, ok
}

// Close closes one stream and forgets it.
func (t *Table) Close(id uint16) error {
	t.mu.Lock()
	s, ok := t.streams[id]
	delete(t.streams, id)
	t.mu.Unlock()

	if !ok {
		return rosgierrors.IllegalStateErrorf("stream %d is not open", id)
	}
	return closeStream(s)
}

// CloseAll closes every stream. Later registrations fail.
func (t *Table) CloseAll() error {
	t.mu.Lock()
	streams := t.streams
	t.streams = make(map[uint16]interface{})
	t.closed = true
	t.mu.Unlock()

	var err error
	for _, s := range streams {
		err = multierr.Append(err, closeStream(s))
	}
	return err
}

func closeStream(s interface{}) error {
	if c, ok := s.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// Serve runs req against the local stream and builds the reply. Failures,
// including an unknown stream id, are reported in the reply.
func (t *Table) Serve(req *wire.StreamRequest) *wire.StreamResult {
	res := &wire.StreamResult{Header: wire.NewHeader(req.XID())}

	if req.Op == wire.StreamClose {
		if err := t.Close(req.StreamID); err != nil {
			return exception(res, err)
		}
		res.Result = wire.ResultWriteOK
		return res
	}

	s, ok := t.get(req.StreamID)
	if !ok {
		return exception(res, rosgierrors.IllegalStateErrorf("stream %d is not open", req.StreamID))
	}

	switch req.Op {
	case wire.StreamRead:
		r, ok := s.(io.Reader)
		if !ok {
			return exception(res, rosgierrors.IllegalStateErrorf("stream %d is not readable", req.StreamID))
		}
		b, err := readByte(r)
		switch {
		case err == io.EOF:
			res.Result = wire.ResultEOF
		case err != nil:
			return exception(res, err)
		default:
			res.Result = int16(b)
		}

	case wire.StreamReadArray:
		r, ok := s.(io.Reader)
		if !ok {
			return exception(res, rosgierrors.IllegalStateErrorf("stream %d is not readable", req.StreamID))
		}
		n := int(req.Length)
		if n > MaxChunk {
			n = MaxChunk
		}
		buf := make([]byte, n)
		read, err := r.Read(buf)
		switch {
		case read > 0:
			res.Data = buf[:read]
		case err == io.EOF:
			res.Result = wire.ResultEOF
		case err != nil:
			return exception(res, err)
		default:
			res.Data = buf[:0]
		}

	case wire.StreamWrite, wire.StreamWriteArray:
		w, ok := s.(io.Writer)
		if !ok {
			return exception(res, rosgierrors.IllegalStateErrorf("stream %d is not writable", req.StreamID))
		}
		var err error
		if req.Op == wire.StreamWrite {
			err = writeByte(w, req.Byte)
		} else {
			_, err = w.Write(req.Data)
		}
		if err != nil {
			return exception(res, err)
		}
		res.Result = wire.ResultWriteOK

	default:
		return exception(res, rosgierrors.InvalidArgumentErrorf("unknown stream operation %v", req.Op))
	}
	return res
}

func exception(res *wire.StreamResult, err error) *wire.StreamResult {
	res.Result = wire.ResultException
	res.Data = nil
	res.Err = err
	return res
}

func readByte(r io.Reader) (byte, error) {
	if br, ok := r.(io.ByteReader); ok {
		return br.ReadByte()
	}
	var b [1]byte
	for {
		n, err := r.Read(b[:])
		if n == 1 {
			return b[0], nil
		}
		if err != nil {
			return 0, err
		}
	}
}

func writeByte(w io.Writer, b byte) error {
	if bw, ok := w.(io.ByteWriter); ok {
		return bw.WriteByte(b)
	}
	_, err := w.Write([]byte{b})
	return err
}
