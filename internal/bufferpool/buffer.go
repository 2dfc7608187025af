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

package bufferpool

import (
	"bytes"
	"io"
)

// Buffer is a pooled bytes.Buffer that panics when used after release.
type Buffer struct {
	pool     *Pool
	released bool
	buf      *bytes.Buffer
}

func newBuffer(pool *Pool) *Buffer {
	return &Buffer{pool: pool, buf: &bytes.Buffer{}}
}

func (b *Buffer) check() {
	if b.released || b.buf == nil {
		panic("use-after-free of pooled buffer")
	}
}

// Write is the same as bytes.Buffer.Write.
func (b *Buffer) Write(p []byte) (int, error) {
	b.check()
	return b.buf.Write(p)
}

// WriteByte is the same as bytes.Buffer.WriteByte.
func (b *Buffer) WriteByte(c byte) error {
	b.check()
	return b.buf.WriteByte(c)
}

// WriteTo is the same as bytes.Buffer.WriteTo.
func (b *Buffer) WriteTo(w io.Writer) (int64, error) {
	b.check()
	return b.buf.WriteTo(w)
}

// Bytes returns the buffered bytes. They are only valid until Release.
func (b *Buffer) Bytes() []byte {
	b.check()
	return b.buf.Bytes()
}

// Len is the same as bytes.Buffer.Len.
func (b *Buffer) Len() int {
	b.check()
	return b.buf.Len()
}

// Release returns the buffer to the pool it came from.
func (b *Buffer) Release() {
	b.check()
	if b.pool.detectUseAfterFree {
		overwrite(b.buf.Bytes())
		b.released = true
		b.buf = nil
		return
	}
	b.buf.Reset()
	b.released = true
	b.pool.pool.Put(b)
}

func overwrite(bs []byte) {
	for i := range bs {
		bs[i] = byte(i)
	}
}
