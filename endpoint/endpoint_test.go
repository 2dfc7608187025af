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

package endpoint

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/ioutil"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/saces/r-osgi-sub000/api/capability"
	"github.com/saces/r-osgi-sub000/api/channel/channeltest"
	"github.com/saces/r-osgi-sub000/internal/clock"
	"github.com/saces/r-osgi-sub000/internal/testtime"
	"github.com/saces/r-osgi-sub000/rosgierrors"
	"github.com/saces/r-osgi-sub000/stream"
	"github.com/saces/r-osgi-sub000/timeoffset"
	"github.com/saces/r-osgi-sub000/wire"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uber-go/tally"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"golang.org/x/sync/errgroup"
)

type provider struct {
	mu     sync.Mutex
	regs   []*capability.Registration
	topics []string
}

func (p *provider) LocalCapabilities() []*capability.Registration {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]*capability.Registration(nil), p.regs...)
}

func (p *provider) LocalTopics() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.topics...)
}

func (p *provider) ResolveLocalCapability(id string) (*capability.Registration, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, reg := range p.regs {
		if reg.ID == id {
			return reg, true
		}
	}
	return nil, false
}

type listener struct {
	changes chan capability.ChangeEvent
	topics  chan []string
}

func newListener() *listener {
	return &listener{
		changes: make(chan capability.ChangeEvent, 32),
		topics:  make(chan []string, 32),
	}
}

func (l *listener) CapabilityChanged(ev capability.ChangeEvent) { l.changes <- ev }

func (l *listener) TopicsChanged(remote string, topics []string) { l.topics <- topics }

func (l *listener) nextChange(t *testing.T) capability.ChangeEvent {
	select {
	case ev := <-l.changes:
		return ev
	case <-time.After(testtime.Second):
		t.Fatal("timed out waiting for a capability change")
		return capability.ChangeEvent{}
	}
}

func (l *listener) nextTopics(t *testing.T) []string {
	select {
	case topics := <-l.topics:
		return topics
	case <-time.After(testtime.Second):
		t.Fatal("timed out waiting for a topic change")
		return nil
	}
}

type dispatcher chan capability.Event

func (d dispatcher) DispatchEvent(ev capability.Event) { d <- ev }

type bundles struct{}

func (bundles) Bundle(ctx context.Context, id string) ([]wire.Bundle, error) {
	return []wire.Bundle{{Name: "bundle-" + id, Data: []byte("jar")}}, nil
}

func (bundles) Dependencies(ctx context.Context, packages []string) ([]wire.Bundle, error) {
	var out []wire.Bundle
	for _, p := range packages {
		out = append(out, wire.Bundle{Name: p, Data: []byte(p)})
	}
	return out, nil
}

func received(t *testing.T, ch <-chan wire.Message) wire.Message {
	select {
	case m := <-ch:
		return m
	case <-time.After(testtime.Second):
		t.Fatal("timed out waiting for a message")
		return nil
	}
}

func newMockChannel(ctrl *gomock.Controller) (*channeltest.MockChannel, chan wire.Message) {
	sent := make(chan wire.Message, 16)
	ch := channeltest.NewMockChannel(ctrl)
	ch.EXPECT().RemoteAddress().Return("peer:1").AnyTimes()
	ch.EXPECT().SetReceiver(gomock.Any())
	ch.EXPECT().Close().Return(nil).AnyTimes()
	ch.EXPECT().Send(gomock.Any()).DoAndReturn(func(m wire.Message) error {
		sent <- m
		return nil
	}).AnyTimes()
	return ch, sent
}

func newPair(aOpts, bOpts []Option) (a, b *Endpoint, pa, pb *channeltest.Pipe) {
	pa, pb = channeltest.NewPipe("a:1", "b:1")
	a = New(pa, aOpts...)
	b = New(pb, bOpts...)
	return a, b, pa, pb
}

func echoProvider() *provider {
	handler := capability.HandlerFunc(func(ctx context.Context, sig string, args []interface{}) (interface{}, error) {
		switch sig {
		case "echo(T)":
			return args[0], nil
		case "invalid()":
			return nil, rosgierrors.InvalidArgumentErrorf("bad input")
		case "boom()":
			return nil, errors.New("boom")
		case "open()":
			return strings.NewReader("payload"), nil
		case "drain(Stream)":
			b, err := ioutil.ReadAll(args[0].(io.Reader))
			return string(b), err
		}
		return nil, fmt.Errorf("unexpected signature %q", sig)
	})
	return &provider{
		regs: []*capability.Registration{
			{ID: "1", Interfaces: []string{"Echo"}, Handler: handler, SmartProxy: "EchoProxy"},
			{ID: "2", Interfaces: []string{"Other"}, Properties: map[string]interface{}{"rank": int64(3)}, Handler: handler},
		},
		topics: []string{"events/*"},
	}
}

func TestInvoke(t *testing.T) {
	a, b, _, _ := newPair([]Option{Provider(echoProvider())}, nil)
	defer a.Dispose()
	defer b.Dispose()

	ctx, cancel := context.WithTimeout(context.Background(), testtime.Second)
	defer cancel()

	t.Run("result", func(t *testing.T) {
		res, err := b.Invoke(ctx, "1", "echo(T)", []interface{}{"hello"})
		require.NoError(t, err)
		assert.Equal(t, "hello", res)
	})

	t.Run("status error", func(t *testing.T) {
		_, err := b.Invoke(ctx, "1", "invalid()", nil)
		require.Error(t, err)
		assert.True(t, rosgierrors.IsInvalidArgument(err), "got %v", err)
		assert.Contains(t, err.Error(), "bad input")
	})

	t.Run("plain error", func(t *testing.T) {
		_, err := b.Invoke(ctx, "1", "boom()", nil)
		require.Error(t, err)
		assert.True(t, rosgierrors.IsRemote(err), "got %v", err)
		assert.Contains(t, err.Error(), "boom")
	})

	t.Run("unknown capability", func(t *testing.T) {
		_, err := b.Invoke(ctx, "nope", "echo(T)", []interface{}{"x"})
		assert.True(t, rosgierrors.IsUnknownCapability(err), "got %v", err)
	})

	assert.Equal(t, 0, b.PendingCount())
}

func TestRepliesMatchRequestsInAnyOrder(t *testing.T) {
	mockCtrl := gomock.NewController(t)
	defer mockCtrl.Finish()

	ch, sent := newMockChannel(mockCtrl)
	e := New(ch)
	defer e.Dispose()

	const n = 3
	results := make([]interface{}, n)
	var g errgroup.Group
	for i := 0; i < n; i++ {
		i := i
		g.Go(func() error {
			res, err := e.Invoke(context.Background(), "1", "echo(T)", []interface{}{int64(i)})
			results[i] = res
			return err
		})
	}

	var requests []*wire.InvokeMethod
	for i := 0; i < n; i++ {
		requests = append(requests, received(t, sent).(*wire.InvokeMethod))
	}
	assert.Equal(t, n, e.PendingCount())

	for i := n - 1; i >= 0; i-- {
		req := requests[i]
		e.ReceivedMessage(&wire.MethodResult{Header: wire.NewHeader(req.XID()), Result: req.Args[0]})
	}

	require.NoError(t, g.Wait())
	for i := 0; i < n; i++ {
		assert.Equal(t, int64(i), results[i])
	}
	assert.Equal(t, 0, e.PendingCount())
}

func TestReplyOfWrongKindIsARequest(t *testing.T) {
	mockCtrl := gomock.NewController(t)
	defer mockCtrl.Finish()

	ch, sent := newMockChannel(mockCtrl)
	e := New(ch)
	defer e.Dispose()

	done := make(chan error, 1)
	go func() {
		_, err := e.FetchService(context.Background(), "1")
		done <- err
	}()
	req := received(t, sent)

	// A peer request that happens to reuse the xid is answered, not
	// mistaken for the reply.
	e.ReceivedMessage(&wire.TimeOffset{Header: wire.NewHeader(req.XID()), Timestamps: []int64{1}})
	echo := received(t, sent).(*wire.TimeOffset)
	assert.Equal(t, req.XID(), echo.XID())
	assert.Len(t, echo.Timestamps, 2)
	assert.Equal(t, 1, e.PendingCount())

	e.ReceivedMessage(&wire.DeliverService{Header: wire.NewHeader(req.XID()), ServiceID: "1", Interfaces: []string{"Echo"}})
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(testtime.Second):
		t.Fatal("FetchService did not return")
	}
}

func TestTimeout(t *testing.T) {
	mockCtrl := gomock.NewController(t)
	defer mockCtrl.Finish()

	ch, sent := newMockChannel(mockCtrl)
	clk := clock.NewFake()
	scope := tally.NewTestScope("", nil)
	e := New(ch, Clock(clk), Scope(scope), Timeout(time.Minute))
	defer e.Dispose()

	done := make(chan error, 1)
	go func() {
		_, err := e.Invoke(context.Background(), "1", "echo(T)", []interface{}{"x"})
		done <- err
	}()
	received(t, sent)
	assert.Equal(t, 1, e.PendingCount())

	clk.Add(time.Minute)
	select {
	case err := <-done:
		assert.True(t, rosgierrors.IsTimeout(err), "got %v", err)
	case <-time.After(testtime.Second):
		t.Fatal("Invoke did not time out")
	}
	assert.Equal(t, 0, e.PendingCount())

	counters := scope.Snapshot().Counters()
	require.Contains(t, counters, "endpoint.timeouts+")
	assert.Equal(t, int64(1), counters["endpoint.timeouts+"].Value())
	assert.Equal(t, int64(1), counters["endpoint.calls+"].Value())
}

func TestContextEndsWait(t *testing.T) {
	mockCtrl := gomock.NewController(t)
	defer mockCtrl.Finish()

	ch, _ := newMockChannel(mockCtrl)
	e := New(ch)
	defer e.Dispose()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := e.Invoke(ctx, "1", "echo(T)", nil)
	assert.True(t, rosgierrors.IsCancelled(err), "got %v", err)

	ctx, cancel = context.WithTimeout(context.Background(), time.Millisecond)
	defer cancel()
	_, err = e.Invoke(ctx, "1", "echo(T)", nil)
	assert.True(t, rosgierrors.IsTimeout(err), "got %v", err)
	assert.Equal(t, 0, e.PendingCount())
}

func TestDisposeWakesWaiters(t *testing.T) {
	mockCtrl := gomock.NewController(t)
	defer mockCtrl.Finish()

	ch, sent := newMockChannel(mockCtrl)
	e := New(ch)

	const n = 5
	var g errgroup.Group
	for i := 0; i < n; i++ {
		g.Go(func() error {
			_, err := e.Invoke(context.Background(), "1", "echo(T)", nil)
			if !rosgierrors.IsDisconnected(err) {
				return fmt.Errorf("want disconnected error, got %v", err)
			}
			return nil
		})
	}
	for i := 0; i < n; i++ {
		received(t, sent)
	}

	require.NoError(t, e.Dispose())
	require.NoError(t, g.Wait())
	assert.True(t, e.Disposed())
	assert.Equal(t, 0, e.PendingCount())

	_, err := e.Invoke(context.Background(), "1", "echo(T)", nil)
	assert.True(t, rosgierrors.IsDisconnected(err), "got %v", err)
	assert.NoError(t, e.Dispose(), "dispose must be idempotent")
}

type owner chan *Endpoint

func (o owner) EndpointDisposed(e *Endpoint) { o <- e }

func TestBrokenChannelDisposes(t *testing.T) {
	gone := make(owner, 2)
	a, b, pa, _ := newPair([]Option{WithOwner(gone)}, []Option{WithOwner(gone)})

	pa.Break()
	for i := 0; i < 2; i++ {
		select {
		case <-gone:
		case <-time.After(testtime.Second):
			t.Fatal("endpoint was not disposed")
		}
	}
	assert.True(t, a.Disposed())
	assert.True(t, b.Disposed())
}

func TestLeaseFromPeer(t *testing.T) {
	mockCtrl := gomock.NewController(t)
	defer mockCtrl.Finish()

	ch, sent := newMockChannel(mockCtrl)
	l := newListener()
	e := New(ch, Listener(l), Provider(&provider{topics: []string{"mine"}}))
	defer e.Dispose()

	e.ReceivedMessage(&wire.Lease{
		Header: wire.NewHeader(7),
		Capabilities: []wire.LeasedCapability{
			{ID: "1", Interfaces: []string{"A"}},
			{ID: "2", Interfaces: []string{"B"}, Properties: map[string]interface{}{"k": "v"}},
		},
		Topics: []string{"t1"},
	})

	reply := received(t, sent).(*wire.Lease)
	assert.Equal(t, uint16(7), reply.XID())
	assert.Equal(t, []string{"mine"}, reply.Topics)
	assert.Empty(t, reply.Capabilities)

	refs := e.RemoteReferences()
	require.Len(t, refs, 2)
	assert.Equal(t, "peer:1#1", refs[0].URI())
	assert.Equal(t, []string{"B"}, refs[1].Interfaces())
	assert.Equal(t, map[string]interface{}{"k": "v"}, refs[1].Properties())
	assert.Equal(t, []string{"t1"}, e.RemoteTopics())

	assert.Equal(t, capability.Registered, l.nextChange(t).Type)
	assert.Equal(t, capability.Registered, l.nextChange(t).Type)
	assert.Equal(t, []string{"t1"}, l.nextTopics(t))
}

func TestLeaseAndUpdates(t *testing.T) {
	l := newListener()
	a, b, _, _ := newPair(
		[]Option{Provider(echoProvider())},
		[]Option{Listener(l), Provider(&provider{topics: []string{"t0"}})},
	)
	defer a.Dispose()
	defer b.Dispose()

	refs, err := b.SendLease(context.Background())
	require.NoError(t, err)
	require.Len(t, refs, 2)
	assert.Equal(t, "1", refs[0].ID())
	assert.Equal(t, "a:1#2", refs[1].URI())
	assert.Equal(t, []string{"events/*"}, b.RemoteTopics())
	assert.Equal(t, []string{"t0"}, a.RemoteTopics(), "lease goes both ways")
	assert.True(t, a.HasTopicInterest("t0"))
	assert.True(t, b.HasTopicInterest("events/x/y"))
	assert.False(t, b.HasTopicInterest("event"))

	l.nextChange(t)
	l.nextChange(t)
	l.nextTopics(t)

	require.NoError(t, a.SendLeaseUpdate(&wire.LeaseUpdate{ServiceID: "3", Type: wire.UpdateAdded, Interfaces: []string{"New"}}))
	ev := l.nextChange(t)
	assert.Equal(t, capability.Registered, ev.Type)
	ref3, ok := b.RemoteReference("3")
	require.True(t, ok)
	assert.Equal(t, ref3, ev.Capability)

	require.NoError(t, a.SendLeaseUpdate(&wire.LeaseUpdate{
		ServiceID:  "3",
		Type:       wire.UpdateModified,
		Properties: map[string]interface{}{"v": int64(2)},
	}))
	assert.Equal(t, capability.Modified, l.nextChange(t).Type)
	assert.Equal(t, map[string]interface{}{"v": int64(2)}, ref3.Properties(), "modified in place")
	assert.Equal(t, []string{"New"}, ref3.Interfaces())

	require.NoError(t, a.SendLeaseUpdate(&wire.LeaseUpdate{ServiceID: "3", Type: wire.UpdateRemoved}))
	require.NoError(t, a.SendLeaseUpdate(&wire.LeaseUpdate{ServiceID: "3", Type: wire.UpdateRemoved}))
	ev = l.nextChange(t)
	assert.Equal(t, capability.Unregistering, ev.Type)
	assert.Equal(t, "3", ev.Capability.ID())

	require.NoError(t, a.SendLeaseUpdate(&wire.LeaseUpdate{
		Type:          wire.UpdateTopics,
		TopicsAdded:   []string{"t2"},
		TopicsRemoved: []string{"events/*"},
	}))
	assert.Equal(t, []string{"t2"}, l.nextTopics(t))
	assert.Len(t, l.changes, 0, "second removal must not notify")

	require.NoError(t, b.Dispose())
	for i := 0; i < 2; i++ {
		assert.Equal(t, capability.Unregistering, l.nextChange(t).Type)
	}
	assert.Len(t, l.changes, 0)
	assert.Empty(t, b.RemoteReferences())
}

func TestFetchServiceAndBundles(t *testing.T) {
	a, b, _, _ := newPair([]Option{Provider(echoProvider()), Bundles(bundles{})}, nil)
	defer a.Dispose()
	defer b.Dispose()
	ctx := context.Background()

	svc, err := b.FetchService(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, []string{"Echo"}, svc.Interfaces)
	assert.Equal(t, "EchoProxy", svc.SmartProxy)

	_, err = b.FetchService(ctx, "9")
	assert.True(t, rosgierrors.IsUnknownCapability(err), "got %v", err)

	got, err := b.RequestBundle(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, []wire.Bundle{{Name: "bundle-1", Data: []byte("jar")}}, got)

	got, err = b.RequestDependencies(ctx, []string{"p.q"})
	require.NoError(t, err)
	assert.Equal(t, []wire.Bundle{{Name: "p.q", Data: []byte("p.q")}}, got)

	// Without a bundle provider the answer is empty.
	got, err = a.RequestBundle(ctx, "1")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestSendRetriesOnceAfterReconnect(t *testing.T) {
	a, b, _, pb := newPair([]Option{Provider(echoProvider())}, nil)
	defer a.Dispose()
	defer b.Dispose()

	pb.FailSends(1)
	res, err := b.Invoke(context.Background(), "1", "echo(T)", []interface{}{"again"})
	require.NoError(t, err)
	assert.Equal(t, "again", res)
	assert.Equal(t, 1, pb.Reconnects())
	assert.False(t, b.Disposed())

	pb.FailSends(2)
	_, err = b.Invoke(context.Background(), "1", "echo(T)", []interface{}{"lost"})
	assert.True(t, rosgierrors.IsDisconnected(err), "got %v", err)
	assert.Equal(t, 2, pb.Reconnects())
	assert.True(t, b.Disposed())

	select {
	case <-a.Done():
	case <-time.After(testtime.Second):
		t.Fatal("peer was not disposed")
	}
}

func TestFailedReconnectDisposes(t *testing.T) {
	a, b, _, pb := newPair(nil, nil)
	defer a.Dispose()

	pb.FailSends(1)
	pb.FailReconnects(1)
	_, err := b.SendLease(context.Background())
	assert.True(t, rosgierrors.IsDisconnected(err), "got %v", err)
	assert.True(t, b.Disposed())
}

func TestStreams(t *testing.T) {
	a, b, _, _ := newPair([]Option{Provider(echoProvider())}, nil)
	defer a.Dispose()
	defer b.Dispose()
	ctx := context.Background()

	t.Run("result stream", func(t *testing.T) {
		res, err := b.Invoke(ctx, "1", "open()", nil)
		require.NoError(t, err)
		proxy, ok := res.(*stream.Proxy)
		require.True(t, ok, "got %T", res)

		data, err := ioutil.ReadAll(proxy)
		require.NoError(t, err)
		assert.Equal(t, "payload", string(data))
		require.NoError(t, proxy.Close())
	})

	t.Run("argument stream", func(t *testing.T) {
		res, err := b.Invoke(ctx, "1", "drain(Stream)", []interface{}{strings.NewReader("from b")})
		require.NoError(t, err)
		assert.Equal(t, "from b", res)
	})
}

func TestDisposeUnblocksStreamReader(t *testing.T) {
	pr, pw := io.Pipe()
	defer pw.Close()

	prov := &provider{regs: []*capability.Registration{{
		ID: "1",
		Handler: capability.HandlerFunc(func(context.Context, string, []interface{}) (interface{}, error) {
			return pr, nil
		}),
	}}}
	a, b, _, _ := newPair([]Option{Provider(prov)}, nil)
	defer b.Dispose()

	res, err := b.Invoke(context.Background(), "1", "open()", nil)
	require.NoError(t, err)

	readErr := make(chan error, 1)
	go func() {
		_, err := res.(io.Reader).Read(make([]byte, 8))
		readErr <- err
	}()

	require.NoError(t, a.Dispose())
	select {
	case err := <-readErr:
		assert.Error(t, err)
	case <-time.After(testtime.Second):
		t.Fatal("read did not return after dispose")
	}
}

func TestBlockedStreamReadDoesNotStallPeer(t *testing.T) {
	pr, pw := io.Pipe()
	defer pw.Close()

	prov := &provider{regs: []*capability.Registration{{
		ID: "1",
		Handler: capability.HandlerFunc(func(_ context.Context, sig string, _ []interface{}) (interface{}, error) {
			if sig == "open()" {
				return pr, nil
			}
			return "pong", nil
		}),
	}}}
	a, b, _, _ := newPair([]Option{Provider(prov)}, nil)
	defer a.Dispose()
	defer b.Dispose()

	res, err := b.Invoke(context.Background(), "1", "open()", nil)
	require.NoError(t, err)

	read := make(chan byte, 1)
	go func() {
		c, err := res.(io.ByteReader).ReadByte()
		if err == nil {
			read <- c
		}
		close(read)
	}()

	deadline := time.Now().Add(testtime.Second)
	for b.PendingCount() == 0 {
		require.True(t, time.Now().Before(deadline), "stream read was never sent")
		time.Sleep(time.Millisecond)
	}

	ctx, cancel := context.WithTimeout(context.Background(), testtime.Second)
	defer cancel()
	got, err := b.Invoke(ctx, "1", "ping()", nil)
	require.NoError(t, err)
	assert.Equal(t, "pong", got)

	_, err = pw.Write([]byte("x"))
	require.NoError(t, err)
	select {
	case c := <-read:
		assert.Equal(t, byte('x'), c)
	case <-time.After(testtime.Second):
		t.Fatal("stream read did not complete")
	}
}

func TestUnencodableResultReachesCaller(t *testing.T) {
	prov := &provider{regs: []*capability.Registration{{
		ID: "1",
		Handler: capability.HandlerFunc(func(_ context.Context, sig string, _ []interface{}) (interface{}, error) {
			if sig == "chan()" {
				return make(chan int), nil
			}
			return "ok", nil
		}),
	}}}
	a, b, _, _ := newPair([]Option{Provider(prov)}, nil)
	defer a.Dispose()
	defer b.Dispose()

	ctx, cancel := context.WithTimeout(context.Background(), testtime.Second)
	defer cancel()

	_, err := b.Invoke(ctx, "1", "chan()", nil)
	require.Error(t, err)
	assert.True(t, rosgierrors.IsSerialization(err), "got %v", err)

	res, err := b.Invoke(ctx, "1", "ok()", nil)
	require.NoError(t, err)
	assert.Equal(t, "ok", res)
	assert.False(t, a.Disposed())
}

func TestEventTimestampSynchronizesClocks(t *testing.T) {
	clkA, clkB := clock.NewFake(), clock.NewFake()
	clkB.Add(5 * time.Second)

	events := make(dispatcher, 2)
	a, b, _, _ := newPair(
		[]Option{Clock(clkA), Dispatcher(events), Provider(&provider{topics: []string{"events/*"}})},
		[]Option{Clock(clkB)},
	)
	defer a.Dispose()
	defer b.Dispose()

	_, err := a.SendLease(context.Background())
	require.NoError(t, err)
	assert.Equal(t, timeoffset.Missing, a.offset.State())

	sent, err := b.SendEvent("events/x", map[string]interface{}{TimestampProperty: time.Unix(10, 0)})
	require.NoError(t, err)
	require.True(t, sent)

	select {
	case ev := <-events:
		ts, ok := ev.Properties[TimestampProperty].(time.Time)
		require.True(t, ok)
		assert.True(t, time.Unix(5, 0).Equal(ts), "got %v", ts)
	case <-time.After(testtime.Second):
		t.Fatal("event was not dispatched")
	}
	assert.Equal(t, timeoffset.Valid, a.offset.State())
}

func TestOffsetAndEvents(t *testing.T) {
	clkA, clkB := clock.NewFake(), clock.NewFake()
	clkB.Add(5 * time.Second)

	events := make(dispatcher, 4)
	a, b, _, _ := newPair(
		[]Option{Clock(clkA), Dispatcher(events), Provider(&provider{topics: []string{"events/*"}})},
		[]Option{Clock(clkB)},
	)
	defer a.Dispose()
	defer b.Dispose()
	ctx := context.Background()

	offset, err := a.Offset(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5*time.Second, offset)

	_, err = a.SendLease(ctx)
	require.NoError(t, err)

	sent, err := b.SendEvent("other", nil)
	require.NoError(t, err)
	assert.False(t, sent, "peer has no interest in the topic")

	sent, err = b.SendEvent("events/x", map[string]interface{}{
		TimestampProperty: time.Unix(10, 0),
		"k":               "v",
	})
	require.NoError(t, err)
	assert.True(t, sent)

	sent, err = b.SendEvent("events/y", map[string]interface{}{TimestampProperty: int64(10000)})
	require.NoError(t, err)
	assert.True(t, sent)

	select {
	case ev := <-events:
		assert.Equal(t, "events/x", ev.Topic)
		assert.Equal(t, "b:1", ev.Source)
		assert.Equal(t, "v", ev.Properties["k"])
		ts, ok := ev.Properties[TimestampProperty].(time.Time)
		require.True(t, ok)
		assert.True(t, time.Unix(5, 0).Equal(ts), "got %v", ts)
	case <-time.After(testtime.Second):
		t.Fatal("event was not dispatched")
	}

	select {
	case ev := <-events:
		assert.Equal(t, int64(5000), ev.Properties[TimestampProperty])
	case <-time.After(testtime.Second):
		t.Fatal("event was not dispatched")
	}
}

func TestEventWithoutDispatcherIsDropped(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	scope := tally.NewTestScope("", nil)
	a, b, _, _ := newPair(
		[]Option{Logger(zap.New(core)), Scope(scope), Provider(&provider{
			regs:   []*capability.Registration{{ID: "1", Interfaces: []string{"A"}}},
			topics: []string{"*"},
		})},
		nil,
	)
	defer a.Dispose()
	defer b.Dispose()
	ctx := context.Background()

	_, err := b.SendLease(ctx)
	require.NoError(t, err)

	sent, err := b.SendEvent("anything", nil)
	require.NoError(t, err)
	assert.True(t, sent)

	// Messages are handled in order, so the event is gone once this returns.
	_, err = b.FetchService(ctx, "1")
	require.NoError(t, err)

	assert.Equal(t, 1, logs.FilterMessage("dropping remote event: no dispatcher").Len())
	assert.Equal(t, int64(1), scope.Snapshot().Counters()["endpoint.dropped_events+"].Value())
}

func TestUnsolicitedReplyIsDropped(t *testing.T) {
	mockCtrl := gomock.NewController(t)
	defer mockCtrl.Finish()

	ch, _ := newMockChannel(mockCtrl)
	core, logs := observer.New(zap.WarnLevel)
	e := New(ch, Logger(zap.New(core)))
	defer e.Dispose()

	e.ReceivedMessage(&wire.MethodResult{Header: wire.NewHeader(99), Result: "late"})
	e.ReceivedMessage(&wire.MethodResult{Header: wire.NewHeader(100), Result: "late"})
	entries := logs.FilterMessage("dropping reply to unknown transaction").All()
	require.Len(t, entries, 1, "drops are sampled")
	assert.Equal(t, "peer:1", entries[0].ContextMap()["remote"])
}
