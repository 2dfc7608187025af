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

package clock

import (
	"runtime"
	"sort"
	"sync"
	"time"
)

// FakeClock only moves when told to. Timers created on it fire when Add or
// Set carries the clock past their deadline.
type FakeClock struct {
	sync.Mutex

	now time.Time
	// timers are ordered by deadline, earliest first. Timers with the same
	// deadline fire in the order they were scheduled.
	timers []*FakeTimer
}

var _ Clock = (*FakeClock)(nil)

// NewFake returns a fake clock starting at the Unix epoch.
func NewFake() *FakeClock {
	return &FakeClock{now: time.Unix(0, 0)}
}

// Add moves the fake clock forward by d, firing every timer that expires on
// the way.
func (fc *FakeClock) Add(d time.Duration) {
	fc.Lock()
	end := fc.now.Add(d)
	fc.flush(end)
	if fc.now.Before(end) {
		fc.now = end
	}
	fc.Unlock()
	nap()
}

// Set advances the fake clock to end. Moving backwards is ignored.
func (fc *FakeClock) Set(end time.Time) {
	fc.Lock()
	fc.flush(end)
	if fc.now.Before(end) {
		fc.now = end
	}
	fc.Unlock()
	nap()
}

// flush must be called with the lock held.
func (fc *FakeClock) flush(end time.Time) {
	for len(fc.timers) > 0 && !fc.timers[0].time.After(end) {
		t := fc.timers[0]
		fc.unschedule(t)
		if fc.now.Before(t.time) {
			fc.now = t.time
		}
		fc.Unlock()
		t.tick()
		fc.Lock()
	}
}

// Pending reports how many timers are waiting to fire. Tests use it to wait
// until a goroutine under test has armed its timer before advancing time.
func (fc *FakeClock) Pending() int {
	fc.Lock()
	defer fc.Unlock()
	return len(fc.timers)
}

// FakeTimer returns a timer firing d after the current fake time.
func (fc *FakeClock) FakeTimer(d time.Duration) *FakeTimer {
	fc.Lock()
	defer fc.Unlock()

	t := &FakeTimer{
		c:     make(chan time.Time, 1),
		clock: fc,
		time:  fc.now.Add(d),
	}
	fc.schedule(t)
	fc.flush(fc.now)
	return t
}

// schedule inserts t after every timer due no later than it. fc must be
// locked.
func (fc *FakeClock) schedule(t *FakeTimer) {
	i := sort.Search(len(fc.timers), func(i int) bool {
		return fc.timers[i].time.After(t.time)
	})
	fc.timers = append(fc.timers, nil)
	copy(fc.timers[i+1:], fc.timers[i:])
	fc.timers[i] = t
	t.scheduled = true
}

// unschedule removes t. fc must be locked.
func (fc *FakeClock) unschedule(t *FakeTimer) {
	for i, other := range fc.timers {
		if other == t {
			fc.timers = append(fc.timers[:i], fc.timers[i+1:]...)
			break
		}
	}
	t.scheduled = false
}

// Timer implements Clock.
func (fc *FakeClock) Timer(d time.Duration) Timer {
	return fc.FakeTimer(d)
}

// After implements Clock.
func (fc *FakeClock) After(d time.Duration) <-chan time.Time {
	return fc.Timer(d).C()
}

// AfterFunc implements Clock.
func (fc *FakeClock) AfterFunc(d time.Duration, f func()) Timer {
	t := fc.FakeTimer(d)
	go func() {
		<-t.c
		f()
	}()
	nap()
	return t
}

// Now returns the fake time.
func (fc *FakeClock) Now() time.Time {
	fc.Lock()
	defer fc.Unlock()
	return fc.now
}

// Sleep blocks until another goroutine moves the clock past d.
func (fc *FakeClock) Sleep(d time.Duration) {
	<-fc.After(d)
}

// FakeTimer is a single scheduled event on a FakeClock.
type FakeTimer struct {
	c         chan time.Time
	time      time.Time
	clock     *FakeClock
	scheduled bool
}

// C returns the channel the timer fires on.
func (t *FakeTimer) C() <-chan time.Time {
	return t.c
}

func (t *FakeTimer) tick() {
	select {
	case t.c <- t.time:
	default:
	}
	nap()
}

// Reset reschedules the timer d after the current fake time.
func (t *FakeTimer) Reset(d time.Duration) bool {
	t.clock.Lock()
	defer t.clock.Unlock()

	t.time = t.clock.now.Add(d)
	select {
	case <-t.c:
	default:
	}

	active := t.scheduled
	if active {
		t.clock.unschedule(t)
	}
	t.clock.schedule(t)
	return active
}

// Stop unschedules the timer. It reports false if the timer already fired or
// was stopped.
func (t *FakeTimer) Stop() bool {
	t.clock.Lock()
	defer t.clock.Unlock()

	if !t.scheduled {
		return false
	}
	select {
	case <-t.c:
	default:
	}
	t.clock.unschedule(t)
	return true
}

func nap() {
	runtime.Gosched()
}
