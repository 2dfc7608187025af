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

package wire

import (
	"bufio"
	"io"

	"github.com/saces/r-osgi-sub000/internal/bufferpool"
	"github.com/saces/r-osgi-sub000/internal/wireio"
	"github.com/saces/r-osgi-sub000/rosgierrors"
	"github.com/saces/r-osgi-sub000/serialize"
)

// Encode writes m to w as a single frame using reg for smart values. The
// frame is built in memory and handed to w in one Write, so nothing reaches
// w when encoding fails. Encode does not modify m.
func Encode(w io.Writer, m Message, reg *serialize.Registry) error {
	if reg == nil {
		reg = serialize.Default
	}

	buf := bufferpool.Get()
	defer buf.Release()

	e := &encoder{w: wireio.NewWriter(buf), raw: buf, reg: reg}
	e.w.Uint8(Version)
	e.w.Uint8(uint8(m.FuncID()))
	e.w.Uint16(m.XID())
	if err := m.encode(e); err != nil {
		return err
	}
	if err := e.w.Err(); err != nil {
		return rosgierrors.Wrap(rosgierrors.CodeSerialization, err)
	}

	_, err := buf.WriteTo(w)
	return err
}

// Decoder reads frames from a byte stream.
type Decoder struct {
	br  *bufio.Reader
	reg *serialize.Registry
}

// NewDecoder builds a Decoder reading from r. A nil reg uses
// serialize.Default.
func NewDecoder(r io.Reader, reg *serialize.Registry) *Decoder {
	if reg == nil {
		reg = serialize.Default
	}
	br, ok := r.(*bufio.Reader)
	if !ok {
		br = bufio.NewReader(r)
	}
	return &Decoder{br: br, reg: reg}
}

// Decode reads the next frame.
//
// It returns io.EOF when the stream ends cleanly between frames and a
// CodeProtocol status for a function id it does not know. Any error leaves
// the stream at an unknown position.
func (d *Decoder) Decode() (Message, error) {
	if _, err := d.br.Peek(1); err != nil {
		return nil, err
	}

	dec := &decoder{r: wireio.NewReader(d.br), raw: d.br, reg: d.reg}
	_ = dec.r.Uint8() // version
	f := FuncID(dec.r.Uint8())
	xid := dec.r.Uint16()
	if err := dec.r.Err(); err != nil {
		return nil, err
	}

	m := newMessage(f)
	if m == nil {
		return nil, rosgierrors.ProtocolErrorf("unsupported function id %d", uint8(f))
	}
	m.SetXID(xid)
	if err := m.decode(dec); err != nil {
		return nil, err
	}
	if err := dec.r.Err(); err != nil {
		return nil, err
	}
	return m, nil
}

type encoder struct {
	w   *wireio.Writer
	raw io.Writer
	reg *serialize.Registry
}

func (e *encoder) smart(v interface{}) error {
	if e.w.Err() != nil {
		return nil
	}
	return e.reg.Write(e.raw, v)
}

type decoder struct {
	r   *wireio.Reader
	raw io.Reader
	reg *serialize.Registry
}

// smart reads a smart value. Failures are recorded on the reader.
func (d *decoder) smart() interface{} {
	if d.r.Err() != nil {
		return nil
	}
	v, err := d.reg.Read(d.raw)
	if err != nil {
		d.r.Fail(err)
		return nil
	}
	return v
}
