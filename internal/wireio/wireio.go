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

// Package wireio reads and writes the big-endian primitives that frames are
// built from. Both Reader and Writer keep the first error they hit and turn
// every later call into a no-op, so callers check Err once per frame.
package wireio

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
)

// MaxBlockLen bounds byte blocks accepted from the wire.
const MaxBlockLen = 64 << 20

// Writer writes primitives to an io.Writer.
type Writer struct {
	w       io.Writer
	err     error
	scratch [8]byte
}

// NewWriter wraps w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// Err returns the first error encountered.
func (w *Writer) Err() error { return w.err }

// Fail records err unless an error is already recorded.
func (w *Writer) Fail(err error) {
	if w.err == nil {
		w.err = err
	}
}

func (w *Writer) write(b []byte) {
	if w.err != nil {
		return
	}
	_, w.err = w.w.Write(b)
}

// Uint8 writes one byte.
func (w *Writer) Uint8(v uint8) {
	w.scratch[0] = v
	w.write(w.scratch[:1])
}

// Bool writes 1 for true and 0 for false.
func (w *Writer) Bool(v bool) {
	if v {
		w.Uint8(1)
	} else {
		w.Uint8(0)
	}
}

// Uint16 writes two bytes.
func (w *Writer) Uint16(v uint16) {
	binary.BigEndian.PutUint16(w.scratch[:2], v)
	w.write(w.scratch[:2])
}

// Int16 writes a two byte signed integer.
func (w *Writer) Int16(v int16) { w.Uint16(uint16(v)) }

// Uint32 writes four bytes.
func (w *Writer) Uint32(v uint32) {
	binary.BigEndian.PutUint32(w.scratch[:4], v)
	w.write(w.scratch[:4])
}

// Int64 writes an eight byte signed integer.
func (w *Writer) Int64(v int64) {
	binary.BigEndian.PutUint64(w.scratch[:8], uint64(v))
	w.write(w.scratch[:8])
}

// Count16 writes a two byte element count.
func (w *Writer) Count16(n int) {
	if n > math.MaxUint16 {
		w.Fail(fmt.Errorf("count %d does not fit in 16 bits", n))
		return
	}
	w.Uint16(uint16(n))
}

// String writes [len:2][utf8].
func (w *Writer) String(s string) {
	if len(s) > math.MaxUint16 {
		w.Fail(fmt.Errorf("string of %d bytes does not fit in 16 bits", len(s)))
		return
	}
	w.Uint16(uint16(len(s)))
	w.write([]byte(s))
}

// Strings writes [count:2][string]*.
func (w *Writer) Strings(ss []string) {
	w.Count16(len(ss))
	for _, s := range ss {
		w.String(s)
	}
}

// Block writes [len:4][bytes].
func (w *Writer) Block(b []byte) {
	if int64(len(b)) > math.MaxUint32 {
		w.Fail(fmt.Errorf("block of %d bytes does not fit in 32 bits", len(b)))
		return
	}
	w.Uint32(uint32(len(b)))
	w.write(b)
}

// Raw writes b without a length prefix.
func (w *Writer) Raw(b []byte) { w.write(b) }

// LongString writes [len:4][utf8].
func (w *Writer) LongString(s string) {
	w.Block([]byte(s))
}

// Reader reads primitives from an io.Reader.
type Reader struct {
	r       io.Reader
	err     error
	scratch [8]byte
}

// NewReader wraps r.
func NewReader(r io.Reader) *Reader {
	return &Reader{r: r}
}

// Err returns the first error encountered. A stream that ends inside a value
// reports io.ErrUnexpectedEOF.
func (r *Reader) Err() error { return r.err }

// Fail records err unless an error is already recorded.
func (r *Reader) Fail(err error) {
	if r.err == nil {
		r.err = err
	}
}

func (r *Reader) read(b []byte) bool {
	if r.err != nil {
		return false
	}
	if _, err := io.ReadFull(r.r, b); err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		r.err = err
		return false
	}
	return true
}

// Uint8 reads one byte.
func (r *Reader) Uint8() uint8 {
	if !r.read(r.scratch[:1]) {
		return 0
	}
	return r.scratch[0]
}

// Bool reads a byte and reports whether it is non-zero.
func (r *Reader) Bool() bool { return r.Uint8() != 0 }

// Uint16 reads two bytes.
func (r *Reader) Uint16() uint16 {
	if !r.read(r.scratch[:2]) {
		return 0
	}
	return binary.BigEndian.Uint16(r.scratch[:2])
}

// Int16 reads a two byte signed integer.
func (r *Reader) Int16() int16 { return int16(r.Uint16()) }

// Uint32 reads four bytes.
func (r *Reader) Uint32() uint32 {
	if !r.read(r.scratch[:4]) {
		return 0
	}
	return binary.BigEndian.Uint32(r.scratch[:4])
}

// Int64 reads an eight byte signed integer.
func (r *Reader) Int64() int64 {
	if !r.read(r.scratch[:8]) {
		return 0
	}
	return int64(binary.BigEndian.Uint64(r.scratch[:8]))
}

// String reads [len:2][utf8].
func (r *Reader) String() string {
	n := r.Uint16()
	if n == 0 {
		return ""
	}
	b := make([]byte, n)
	if !r.read(b) {
		return ""
	}
	return string(b)
}

// Strings reads [count:2][string]*. A zero count yields nil.
func (r *Reader) Strings() []string {
	n := int(r.Uint16())
	if n == 0 || r.err != nil {
		return nil
	}
	ss := make([]string, 0, n)
	for i := 0; i < n; i++ {
		ss = append(ss, r.String())
	}
	if r.err != nil {
		return nil
	}
	return ss
}

// Block reads [len:4][bytes]. Blocks above MaxBlockLen are rejected before
// anything is allocated. An empty block yields an empty, non-nil slice.
func (r *Reader) Block() []byte {
	n := r.Uint32()
	if r.err != nil {
		return nil
	}
	if n > MaxBlockLen {
		r.Fail(fmt.Errorf("block of %d bytes exceeds limit of %d", n, MaxBlockLen))
		return nil
	}
	b := make([]byte, n)
	if !r.read(b) {
		return nil
	}
	return b
}

// Raw reads exactly n bytes.
func (r *Reader) Raw(n int) []byte {
	b := make([]byte, n)
	if !r.read(b) {
		return nil
	}
	return b
}

// LongString reads [len:4][utf8].
func (r *Reader) LongString() string {
	return string(r.Block())
}
