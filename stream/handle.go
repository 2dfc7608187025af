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

// Package stream lets byte streams cross the wire by reference.
//
// A local io.Reader or io.Writer passed as an argument or returned as a
// result is kept in the endpoint's Table and replaced by a Handle. The peer
// turns the Handle into a Proxy whose reads and writes are StreamRequest
// round trips back to the owner of the stream.
package stream

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/saces/r-osgi-sub000/serialize"
)

func init() {
	serialize.RegisterBuiltin("rosgi.StreamHandle", Handle{})
}

// Kind says which directions a stream supports.
type Kind uint8

// Stream kinds.
const (
	Input  Kind = 1
	Output Kind = 2
	Duplex Kind = Input | Output
)

func (k Kind) String() string {
	switch k {
	case Input:
		return "input"
	case Output:
		return "output"
	case Duplex:
		return "duplex"
	}
	return fmt.Sprintf("Kind(%d)", uint8(k))
}

// Handle refers to a stream held by the peer that sent it.
type Handle struct {
	ID   uint16
	Kind Kind
}

// MarshalSmart implements serialize.Encodable.
func (h Handle) MarshalSmart() ([]byte, error) {
	b := make([]byte, 3)
	binary.BigEndian.PutUint16(b, h.ID)
	b[2] = byte(h.Kind)
	return b, nil
}

// UnmarshalSmart implements serialize.Decodable.
func (h *Handle) UnmarshalSmart(b []byte) error {
	if len(b) != 3 {
		return fmt.Errorf("stream handle needs 3 bytes, got %d", len(b))
	}
	h.ID = binary.BigEndian.Uint16(b)
	h.Kind = Kind(b[2])
	return nil
}

// KindOf reports the directions v supports as a stream. Values that are
// neither readers nor writers, and values that encode themselves, are not
// streams.
func KindOf(v interface{}) (Kind, bool) {
	if v == nil {
		return 0, false
	}
	if _, ok := v.(serialize.Encodable); ok {
		return 0, false
	}
	var k Kind
	if _, ok := v.(io.Reader); ok {
		k |= Input
	}
	if _, ok := v.(io.Writer); ok {
		k |= Output
	}
	return k, k != 0
}
