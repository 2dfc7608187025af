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

// Package bufferpool keeps a pool of byte buffers so that messages can be
// encoded in full before a single write hits the channel.
package bufferpool

import (
	"flag"
	"sync"
)

var _pool = NewPool()

// Option configures a buffer pool.
type Option func(*Pool)

// Pool is a pool of Buffers.
type Pool struct {
	detectUseAfterFree bool
	pool               sync.Pool
}

func init() {
	// Unit tests run with -test.v registered; turn on use-after-free
	// detection there.
	if flag.Lookup("test.v") != nil {
		_pool = NewPool(DetectUseAfterFreeForTests())
	}
}

// NewPool returns a pool that we can allocate buffers from.
func NewPool(opts ...Option) *Pool {
	pool := &Pool{}
	for _, opt := range opts {
		opt(pool)
	}
	return pool
}

// DetectUseAfterFreeForTests makes released buffers panic on any further
// use.
func DetectUseAfterFreeForTests() Option {
	return func(p *Pool) {
		p.detectUseAfterFree = true
	}
}

// Get returns an empty buffer from the pool.
func (p *Pool) Get() *Buffer {
	buf, ok := p.pool.Get().(*Buffer)
	if !ok {
		return newBuffer(p)
	}
	buf.released = false
	return buf
}

// Get returns an empty buffer from the default pool.
func Get() *Buffer {
	return _pool.Get()
}

// Put returns a buffer to its pool.
func Put(buf *Buffer) {
	buf.Release()
}
