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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBufferWriteTo(t *testing.T) {
	buf := Get()
	defer Put(buf)

	_, err := buf.Write([]byte("hello "))
	require.NoError(t, err)
	require.NoError(t, buf.WriteByte('!'))
	assert.Equal(t, 7, buf.Len())

	var sink bytes.Buffer
	_, err = buf.WriteTo(&sink)
	require.NoError(t, err)
	assert.Equal(t, "hello !", sink.String())
}

func TestUseAfterFreePanics(t *testing.T) {
	pool := NewPool(DetectUseAfterFreeForTests())
	buf := pool.Get()
	buf.Release()

	assert.Panics(t, func() { buf.Write([]byte("x")) })
	assert.Panics(t, func() { buf.Release() })
}

func TestReuseAfterRelease(t *testing.T) {
	pool := NewPool()
	buf := pool.Get()
	buf.Write([]byte("stale"))
	buf.Release()

	again := pool.Get()
	defer again.Release()
	assert.Equal(t, 0, again.Len())
}
