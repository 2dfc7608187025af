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

package lifecycle

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/saces/r-osgi-sub000/rosgierrors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/atomic"
)

func TestStartStop(t *testing.T) {
	o := NewOnce()
	assert.Equal(t, Idle, o.State())

	var starts, stops atomic.Int32
	require.NoError(t, o.Start(func() error { starts.Inc(); return nil }))
	require.NoError(t, o.Start(func() error { starts.Inc(); return nil }))
	assert.True(t, o.IsRunning())

	require.NoError(t, o.Stop(func() error { stops.Inc(); return nil }))
	require.NoError(t, o.Stop(func() error { stops.Inc(); return nil }))
	assert.Equal(t, Stopped, o.State())

	assert.Equal(t, int32(1), starts.Load())
	assert.Equal(t, int32(1), stops.Load())

	select {
	case <-o.Stopped():
	default:
		t.Fatal("stopped channel must be closed")
	}
}

func TestStopBeforeStart(t *testing.T) {
	o := NewOnce()
	require.NoError(t, o.Stop(func() error { t.Fatal("stop must not run"); return nil }))
	assert.Equal(t, Stopped, o.State())

	require.NoError(t, o.Start(func() error { t.Fatal("start must not run"); return nil }))
	assert.Equal(t, Stopped, o.State())
}

func TestStartError(t *testing.T) {
	o := NewOnce()
	giveErr := errors.New("listen failed")

	assert.Equal(t, giveErr, o.Start(func() error { return giveErr }))
	assert.Equal(t, Errored, o.State())
	assert.Equal(t, giveErr, o.Start(nil))
	assert.Equal(t, giveErr, o.Stop(nil))
}

func TestStopError(t *testing.T) {
	o := NewOnce()
	require.NoError(t, o.Start(nil))

	giveErr := errors.New("close failed")
	assert.Equal(t, giveErr, o.Stop(func() error { return giveErr }))
	assert.Equal(t, Errored, o.State())
	assert.Equal(t, giveErr, o.Stop(nil))
}

func TestConcurrentStop(t *testing.T) {
	o := NewOnce()
	require.NoError(t, o.Start(nil))

	var (
		stops atomic.Int32
		wg    sync.WaitGroup
	)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, o.Stop(func() error {
				stops.Inc()
				return nil
			}))
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), stops.Load())
	assert.Equal(t, Stopped, o.State())
}

func TestWaitUntilRunning(t *testing.T) {
	t.Run("already running", func(t *testing.T) {
		o := NewOnce()
		require.NoError(t, o.Start(nil))
		assert.NoError(t, o.WaitUntilRunning(context.Background()))
	})

	t.Run("started later", func(t *testing.T) {
		o := NewOnce()
		done := make(chan error)
		go func() { done <- o.WaitUntilRunning(context.Background()) }()
		require.NoError(t, o.Start(nil))
		assert.NoError(t, <-done)
	})

	t.Run("stopped", func(t *testing.T) {
		o := NewOnce()
		require.NoError(t, o.Stop(nil))
		assert.True(t, rosgierrors.IsIllegalState(o.WaitUntilRunning(context.Background())))
	})

	t.Run("deadline", func(t *testing.T) {
		o := NewOnce()
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
		defer cancel()
		assert.True(t, rosgierrors.IsTimeout(o.WaitUntilRunning(ctx)))
	})

	t.Run("cancelled", func(t *testing.T) {
		o := NewOnce()
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		assert.True(t, rosgierrors.IsCancelled(o.WaitUntilRunning(ctx)))
	})
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "running", Running.String())
	assert.Equal(t, "unknown", State(42).String())
}
