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

// Package lifecycle tracks the start and stop of long-lived remoting objects
// such as endpoints and runtimes.
package lifecycle

import (
	"context"
	"sync"

	"github.com/saces/r-osgi-sub000/rosgierrors"
	"go.uber.org/atomic"
)

// State is a position in the lifecycle of an object.
type State int32

const (
	// Idle objects have been constructed but not started.
	Idle State = iota

	// Starting objects are running their start function.
	Starting

	// Running objects have started and serve requests.
	Running

	// Stopping objects are running their stop function.
	Stopping

	// Stopped objects are done. They never leave this state.
	Stopped

	// Errored objects failed to start or stop.
	Errored
)

var _stateNames = map[State]string{
	Idle:     "idle",
	Starting: "starting",
	Running:  "running",
	Stopping: "stopping",
	Stopped:  "stopped",
	Errored:  "errored",
}

func (s State) String() string {
	if name, ok := _stateNames[s]; ok {
		return name
	}
	return "unknown"
}

// Once runs a start function and a stop function at most once each, and
// only moves forward through the states.
//
// Stop before Start skips straight to Stopped without running either
// function. Concurrent callers of Start or Stop block until the first caller
// is done and observe its error.
type Once struct {
	startCh    chan struct{}
	stoppingCh chan struct{}
	stopCh     chan struct{}

	// errMu guards err. Only the goroutine that won the state transition
	// writes it.
	errMu sync.Mutex
	err   error

	state atomic.Int32
}

// NewOnce returns an idle Once.
func NewOnce() *Once {
	return &Once{
		startCh:    make(chan struct{}),
		stoppingCh: make(chan struct{}),
		stopCh:     make(chan struct{}),
	}
}

// Start runs f if the object is idle. Later calls return the error of the
// first one.
func (o *Once) Start(f func() error) error {
	if !o.state.CAS(int32(Idle), int32(Starting)) {
		<-o.startCh
		return o.loadError()
	}

	var err error
	if f != nil {
		err = f()
	}

	if err != nil {
		o.setError(err)
		o.state.Store(int32(Errored))
		close(o.stoppingCh)
		close(o.stopCh)
	} else {
		o.state.Store(int32(Running))
	}
	close(o.startCh)
	return err
}

// Stop runs f if the object is running. Later calls block until the first
// one has finished and return its error.
func (o *Once) Stop(f func() error) error {
	if o.state.CAS(int32(Idle), int32(Stopped)) {
		close(o.startCh)
		close(o.stoppingCh)
		close(o.stopCh)
		return nil
	}

	<-o.startCh

	if !o.state.CAS(int32(Running), int32(Stopping)) {
		<-o.stopCh
		return o.loadError()
	}
	close(o.stoppingCh)

	var err error
	if f != nil {
		err = f()
	}

	if err != nil {
		o.setError(err)
		o.state.Store(int32(Errored))
	} else {
		o.state.Store(int32(Stopped))
	}
	close(o.stopCh)
	return err
}

// WaitUntilRunning blocks until the object is running. It fails if the object
// is already past Running or if ctx ends first.
func (o *Once) WaitUntilRunning(ctx context.Context) error {
	if s := o.State(); s == Running {
		return nil
	} else if s > Running {
		return rosgierrors.IllegalStateErrorf("cannot wait for start: object is %v", s)
	}

	select {
	case <-o.startCh:
		if s := o.State(); s != Running {
			return rosgierrors.IllegalStateErrorf("object did not start: it is %v", s)
		}
		return nil
	case <-ctx.Done():
		if ctx.Err() == context.DeadlineExceeded {
			return rosgierrors.TimeoutErrorf("timed out waiting for start")
		}
		return rosgierrors.CancelledErrorf("cancelled waiting for start")
	}
}

// Started is closed once the object has left Starting.
func (o *Once) Started() <-chan struct{} { return o.startCh }

// Stopping is closed once Stop has begun.
func (o *Once) Stopping() <-chan struct{} { return o.stoppingCh }

// Stopped is closed once the object is Stopped or Errored.
func (o *Once) Stopped() <-chan struct{} { return o.stopCh }

// State returns the current state. The object may have moved on by the time
// the caller looks at it.
func (o *Once) State() State { return State(o.state.Load()) }

// IsRunning reports whether the object is Running.
func (o *Once) IsRunning() bool { return o.State() == Running }

func (o *Once) setError(err error) {
	o.errMu.Lock()
	o.err = err
	o.errMu.Unlock()
}

func (o *Once) loadError() error {
	o.errMu.Lock()
	defer o.errMu.Unlock()
	return o.err
}
