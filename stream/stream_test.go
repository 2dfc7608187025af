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
	"bytes"
	"context"
	"errors"
	"io"
	"math"
	"strings"
	"testing"

	"github.com/saces/r-osgi-sub000/rosgierrors"
	"github.com/saces/r-osgi-sub000/serialize"
	"github.com/saces/r-osgi-sub000/wire"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// loopback serves requests directly from a table.
type loopback struct {
	table *Table
	err   error
}

func (l *loopback) StreamRequest(_ context.Context, req *wire.StreamRequest) (*wire.StreamResult, error) {
	if l.err != nil {
		return nil, l.err
	}
	return l.table.Serve(req), nil
}

type closeRecorder struct {
	bytes.Buffer
	closed int
	err    error
}

func (c *closeRecorder) Close() error {
	c.closed++
	return c.err
}

func TestKindOf(t *testing.T) {
	tests := []struct {
		give interface{}
		want Kind
		ok   bool
	}{
		{give: strings.NewReader("x"), want: Input, ok: true},
		{give: &strings.Builder{}, want: Output, ok: true},
		{give: &bytes.Buffer{}, want: Duplex, ok: true},
		{give: "not a stream"},
		{give: nil},
		{give: Handle{ID: 1, Kind: Input}},
	}
	for _, tt := range tests {
		got, ok := KindOf(tt.give)
		assert.Equal(t, tt.ok, ok, "%T", tt.give)
		assert.Equal(t, tt.want, got, "%T", tt.give)
	}
}

func TestHandleTravelsAsOpaque(t *testing.T) {
	var buf bytes.Buffer
	give := []interface{}{Handle{ID: 513, Kind: Duplex}}
	require.NoError(t, serialize.Write(&buf, give))
	got, err := serialize.Read(&buf)
	require.NoError(t, err)
	assert.Equal(t, give, got)

	var h Handle
	assert.Error(t, h.UnmarshalSmart([]byte{1}))
}

func TestTableAllocation(t *testing.T) {
	table := NewTable()
	h0, err := table.Register(&bytes.Buffer{})
	require.NoError(t, err)
	h1, err := table.Register(&bytes.Buffer{})
	require.NoError(t, err)
	assert.Equal(t, uint16(0), h0.ID)
	assert.Equal(t, uint16(1), h1.ID)

	table.next = math.MaxUint16
	h2, err := table.Register(strings.NewReader(""))
	require.NoError(t, err)
	assert.Equal(t, uint16(math.MaxUint16), h2.ID)
	assert.Equal(t, Input, h2.Kind)

	h3, err := table.Register(&bytes.Buffer{})
	require.NoError(t, err)
	assert.Equal(t, uint16(2), h3.ID, "wraps past the ids still open")
	assert.Equal(t, 4, table.Len())

	_, err = table.Register(42)
	assert.True(t, rosgierrors.IsInvalidArgument(err))
}

func TestTableServe(t *testing.T) {
	table := NewTable()
	src, err := table.Register(strings.NewReader("ab"))
	require.NoError(t, err)
	dst := &closeRecorder{}
	sink, err := table.Register(dst)
	require.NoError(t, err)

	res := table.Serve(&wire.StreamRequest{StreamID: src.ID, Op: wire.StreamRead})
	assert.Equal(t, int16('a'), res.Result)

	res = table.Serve(&wire.StreamRequest{StreamID: src.ID, Op: wire.StreamReadArray, Length: 10})
	assert.Equal(t, []byte("b"), res.Data)

	res = table.Serve(&wire.StreamRequest{StreamID: src.ID, Op: wire.StreamReadArray, Length: 10})
	assert.Equal(t, wire.ResultEOF, res.Result)
	res = table.Serve(&wire.StreamRequest{StreamID: src.ID, Op: wire.StreamRead})
	assert.Equal(t, wire.ResultEOF, res.Result)

	res = table.Serve(&wire.StreamRequest{StreamID: sink.ID, Op: wire.StreamWrite, Byte: 'x'})
	assert.Equal(t, wire.ResultWriteOK, res.Result)
	res = table.Serve(&wire.StreamRequest{StreamID: sink.ID, Op: wire.StreamWriteArray, Data: []byte("yz")})
	assert.Equal(t, wire.ResultWriteOK, res.Result)
	assert.Equal(t, "xyz", dst.String())

	res = table.Serve(&wire.StreamRequest{StreamID: src.ID, Op: wire.StreamWrite, Byte: 'x'})
	assert.Equal(t, wire.ResultException, res.Result)
	assert.True(t, rosgierrors.IsIllegalState(res.Err))

	res = table.Serve(&wire.StreamRequest{StreamID: sink.ID, Op: wire.StreamClose})
	assert.Equal(t, wire.ResultWriteOK, res.Result)
	assert.Equal(t, 1, dst.closed)

	res = table.Serve(&wire.StreamRequest{StreamID: sink.ID, Op: wire.StreamRead})
	assert.Equal(t, wire.ResultException, res.Result)
	assert.True(t, rosgierrors.IsIllegalState(res.Err))
}

func TestTableServeKeepsXID(t *testing.T) {
	table := NewTable()
	req := &wire.StreamRequest{StreamID: 9, Op: wire.StreamRead}
	req.SetXID(77)
	res := table.Serve(req)
	assert.Equal(t, uint16(77), res.XID())
	assert.Equal(t, wire.ResultException, res.Result)
}

func TestTableCloseAll(t *testing.T) {
	table := NewTable()
	a := &closeRecorder{}
	b := &closeRecorder{err: errors.New("close failed")}
	_, err := table.Register(a)
	require.NoError(t, err)
	_, err = table.Register(b)
	require.NoError(t, err)

	assert.EqualError(t, table.CloseAll(), "close failed")
	assert.Equal(t, 1, a.closed)
	assert.Equal(t, 1, b.closed)
	assert.Equal(t, 0, table.Len())

	_, err = table.Register(&closeRecorder{})
	assert.True(t, rosgierrors.IsIllegalState(err))
}

func TestExport(t *testing.T) {
	table := NewTable()
	got, err := table.Export("plain")
	require.NoError(t, err)
	assert.Equal(t, "plain", got)

	got, err = table.Export(&bytes.Buffer{})
	require.NoError(t, err)
	assert.Equal(t, Handle{ID: 0, Kind: Duplex}, got)
}

func TestProxyRoundTrip(t *testing.T) {
	table := NewTable()
	var shared bytes.Buffer
	h, err := table.Register(&shared)
	require.NoError(t, err)

	p := Import(h, &loopback{table: table}).(*Proxy)
	assert.Equal(t, h, p.Handle())

	payload := bytes.Repeat([]byte("0123456789"), MaxChunk/5)
	n, err := p.Write(payload)
	require.NoError(t, err)
	assert.Equal(t, len(payload), n)
	require.NoError(t, p.WriteByte('!'))

	got, err := io.ReadAll(p)
	require.NoError(t, err)
	assert.Equal(t, append(payload, '!'), got)

	_, err = p.ReadByte()
	assert.Equal(t, io.EOF, err)

	require.NoError(t, p.Close())
	require.NoError(t, p.Close())
	assert.Equal(t, 0, table.Len())

	_, err = p.Read(make([]byte, 1))
	assert.True(t, rosgierrors.IsIllegalState(err))
}

func TestProxyReadByte(t *testing.T) {
	table := NewTable()
	h, err := table.Register(bytes.NewReader([]byte{0xff, 0}))
	require.NoError(t, err)
	p := NewProxy(h, &loopback{table: table})

	b, err := p.ReadByte()
	require.NoError(t, err)
	assert.Equal(t, byte(0xff), b)
	b, err = p.ReadByte()
	require.NoError(t, err)
	assert.Equal(t, byte(0), b)
}

func TestProxyErrors(t *testing.T) {
	disconnected := rosgierrors.DisconnectedErrorf("gone")
	p := NewProxy(Handle{ID: 1, Kind: Duplex}, &loopback{err: disconnected})

	_, err := p.Read(make([]byte, 4))
	assert.Equal(t, disconnected, err)
	_, err = p.Write([]byte("x"))
	assert.Equal(t, disconnected, err)

	n, err := p.Read(nil)
	assert.NoError(t, err)
	assert.Equal(t, 0, n)

	remote := NewProxy(Handle{ID: 5}, &loopback{table: NewTable()})
	_, err = remote.Read(make([]byte, 1))
	assert.True(t, rosgierrors.IsIllegalState(err))
}

func TestImportPassesValuesThrough(t *testing.T) {
	assert.Equal(t, 3, Import(3, nil))
}
