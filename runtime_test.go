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

package rosgi

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/saces/r-osgi-sub000/api/capability"
	"github.com/saces/r-osgi-sub000/api/channel"
	"github.com/saces/r-osgi-sub000/api/channel/channeltest"
	"github.com/saces/r-osgi-sub000/internal/testtime"
	"github.com/saces/r-osgi-sub000/multiplexer"
	"github.com/saces/r-osgi-sub000/rosgierrors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uber-go/tally"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

var echo = capability.HandlerFunc(func(ctx context.Context, signature string, args []interface{}) (interface{}, error) {
	return args[0], nil
})

// network connects runtimes over in-memory pipes. Dialing an address
// hands the other end of a new pipe to the runtime serving it.
type network struct {
	mu      sync.Mutex
	servers map[string]*Runtime
	pipes   map[string]*channeltest.Pipe
}

func newNetwork() *network {
	return &network{
		servers: make(map[string]*Runtime),
		pipes:   make(map[string]*channeltest.Pipe),
	}
}

func (n *network) serve(addr string, rt *Runtime) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.servers[addr] = rt
}

// pipe returns the client end of the last pipe dialed to addr.
func (n *network) pipe(addr string) *channeltest.Pipe {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.pipes[addr]
}

func (n *network) dialer(ctrl *gomock.Controller, from string) *channeltest.MockDialer {
	d := channeltest.NewMockDialer(ctrl)
	d.EXPECT().Scheme().Return("mem").AnyTimes()
	d.EXPECT().Dial(gomock.Any(), gomock.Any()).DoAndReturn(
		func(ctx context.Context, addr string) (channel.Channel, error) {
			n.mu.Lock()
			srv, ok := n.servers[addr]
			n.mu.Unlock()
			if !ok {
				return nil, rosgierrors.DisconnectedErrorf("connection to %s refused", addr)
			}

			client, server := channeltest.NewPipe(from, addr)
			n.mu.Lock()
			n.pipes[addr] = client
			n.mu.Unlock()
			srv.Accept(server)
			return client, nil
		}).AnyTimes()
	return d
}

type listener struct {
	changes chan capability.ChangeEvent
	topics  chan []string
}

func newListener() *listener {
	return &listener{
		changes: make(chan capability.ChangeEvent, 64),
		topics:  make(chan []string, 64),
	}
}

func (l *listener) CapabilityChanged(ev capability.ChangeEvent) { l.changes <- ev }

func (l *listener) TopicsChanged(remote string, topics []string) { l.topics <- topics }

// waitChange skips changes until one of the given type for id arrives.
func (l *listener) waitChange(t *testing.T, typ capability.ChangeType, id string) capability.ChangeEvent {
	timeout := time.After(testtime.Second)
	for {
		select {
		case ev := <-l.changes:
			if ev.Type == typ && ev.Capability.ID() == id {
				return ev
			}
		case <-timeout:
			t.Fatalf("timed out waiting for %v of %q", typ, id)
		}
	}
}

func (l *listener) waitTopics(t *testing.T, want []string) {
	timeout := time.After(testtime.Second)
	for {
		select {
		case topics := <-l.topics:
			if assert.ObjectsAreEqual(want, topics) {
				return
			}
		case <-timeout:
			t.Fatalf("timed out waiting for topics %v", want)
		}
	}
}

type dispatcher chan capability.Event

func (d dispatcher) DispatchEvent(ev capability.Event) { d <- ev }

func waitFor(t *testing.T, desc string, cond func() bool) {
	deadline := time.Now().Add(testtime.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting until %s", desc)
		}
		time.Sleep(testtime.Millisecond)
	}
}

func newServer(t *testing.T, net *network, addr string, opts ...Option) *Runtime {
	rt := New(opts...)
	require.NoError(t, rt.Start())
	t.Cleanup(func() { assert.NoError(t, rt.Stop()) })
	net.serve(addr, rt)
	return rt
}

func TestConnectAndInvoke(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	net := newNetwork()
	server := newServer(t, net, "mem://server")
	require.NoError(t, server.Register(capability.Registration{
		ID:         "1",
		Interfaces: []string{"Echo"},
		Properties: map[string]interface{}{"name": "echo"},
		Handler:    echo,
	}))

	client := New(
		Dialers(net.dialer(ctrl, "mem://client")),
		Connect("mem://server"),
	)
	require.NoError(t, client.Start())
	defer func() { assert.NoError(t, client.Stop()) }()
	assert.True(t, client.IsRunning())

	e, ok := client.Endpoint("mem://server")
	require.True(t, ok)
	ref, ok := e.RemoteReference("1")
	require.True(t, ok)
	assert.Equal(t, []string{"Echo"}, ref.Interfaces())
	assert.Equal(t, "mem://server#1", ref.URI())
	require.Len(t, client.RemoteCapabilities(), 1)

	again, err := client.Connect(context.Background(), "mem://server")
	require.NoError(t, err)
	assert.True(t, e == again, "connecting twice must reuse the endpoint")

	res, err := client.Invoke(context.Background(), "mem://server#1", "echo(T)", "hello")
	require.NoError(t, err)
	assert.Equal(t, "hello", res)

	_, err = client.Invoke(context.Background(), "mem://server#2", "echo(T)", "hello")
	assert.True(t, rosgierrors.IsUnknownCapability(err), "got %v", err)

	_, err = client.Invoke(context.Background(), "mem://server", "echo(T)")
	assert.True(t, rosgierrors.IsInvalidArgument(err), "got %v", err)

	require.Len(t, server.Endpoints(), 1)
	assert.Equal(t, "mem://client", server.Endpoints()[0].RemoteAddress())
}

func TestConnectFailures(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	net := newNetwork()
	newServer(t, net, "mem://server")
	client := New(Dialers(net.dialer(ctrl, "mem://client")))

	tests := []struct {
		desc  string
		give  string
		check func(error) bool
	}{
		{desc: "not an address", give: "server", check: rosgierrors.IsInvalidArgument},
		{desc: "no dialer", give: "tcp://server:1", check: rosgierrors.IsInvalidArgument},
		{desc: "refused", give: "mem://nobody", check: rosgierrors.IsDisconnected},
	}
	for _, tt := range tests {
		t.Run(tt.desc, func(t *testing.T) {
			_, err := client.Connect(context.Background(), tt.give)
			require.Error(t, err)
			assert.True(t, tt.check(err), "got %v", err)
		})
	}

	require.NoError(t, client.Start())
	require.NoError(t, client.Stop())
	_, err := client.Connect(context.Background(), "mem://server")
	assert.True(t, rosgierrors.IsIllegalState(err), "got %v", err)
}

func TestConcurrentConnectWaitsForLease(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	net := newNetwork()
	server := newServer(t, net, "mem://server")
	require.NoError(t, server.Register(capability.Registration{ID: "1", Interfaces: []string{"Echo"}, Handler: echo}))

	// The server only starts reading once release is closed, so the first
	// connect sits in the lease exchange until then.
	release := make(chan struct{})
	dialed := make(chan struct{})
	d := channeltest.NewMockDialer(ctrl)
	d.EXPECT().Scheme().Return("mem").AnyTimes()
	d.EXPECT().Dial(gomock.Any(), "mem://server").DoAndReturn(
		func(ctx context.Context, addr string) (channel.Channel, error) {
			client, srv := channeltest.NewPipe("mem://client", addr)
			go func() {
				<-release
				server.Accept(srv)
			}()
			close(dialed)
			return client, nil
		}).Times(1)

	client := New(Dialers(d))
	require.NoError(t, client.Start())
	defer func() { assert.NoError(t, client.Stop()) }()

	ctx, cancel := context.WithTimeout(context.Background(), testtime.Second)
	defer cancel()

	first := make(chan error, 1)
	go func() {
		_, err := client.Connect(ctx, "mem://server")
		first <- err
	}()
	<-dialed

	_, ok := client.Endpoint("mem://server")
	assert.False(t, ok, "endpoint is visible before the lease arrived")

	second := make(chan error, 1)
	go func() {
		e, err := client.Connect(ctx, "mem://server")
		if err == nil {
			if _, ok := e.RemoteReference("1"); !ok {
				err = errors.New("second connect returned before the lease arrived")
			}
		}
		second <- err
	}()

	close(release)
	require.NoError(t, <-first)
	require.NoError(t, <-second)

	e, ok := client.Endpoint("mem://server")
	require.True(t, ok)
	_, ok = e.RemoteReference("1")
	assert.True(t, ok)
}

func TestStartFailsWhenPeerIsUnreachable(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	net := newNetwork()
	newServer(t, net, "mem://server")
	client := New(
		Dialers(net.dialer(ctrl, "mem://client")),
		Connect("mem://server", "mem://nobody"),
	)
	err := client.Start()
	require.Error(t, err)
	assert.True(t, rosgierrors.IsDisconnected(err), "got %v", err)
	assert.Empty(t, client.Endpoints(), "endpoints of a failed start must be disposed")
}

func TestLocalChangesReachPeers(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	net := newNetwork()
	events := make(dispatcher, 8)
	server := newServer(t, net, "mem://server", Dispatcher(events))

	l := newListener()
	client := New(
		Dialers(net.dialer(ctrl, "mem://client")),
		Listener(l),
	)
	require.NoError(t, client.Start())
	defer func() { assert.NoError(t, client.Stop()) }()
	_, err := client.Connect(context.Background(), "mem://server")
	require.NoError(t, err)

	require.NoError(t, server.Register(capability.Registration{
		ID:         "7",
		Interfaces: []string{"Clock"},
		Handler:    echo,
	}))
	ev := l.waitChange(t, capability.Registered, "7")
	assert.Equal(t, []string{"Clock"}, ev.Capability.Interfaces())

	require.NoError(t, server.Modify("7", map[string]interface{}{"zone": "utc"}))
	ev = l.waitChange(t, capability.Modified, "7")
	assert.Equal(t, map[string]interface{}{"zone": "utc"}, ev.Capability.Properties())
	assert.Equal(t, []string{"Clock"}, ev.Capability.Interfaces())

	require.NoError(t, server.Unregister("7"))
	l.waitChange(t, capability.Unregistering, "7")

	require.NoError(t, server.AddTopics("alerts/*", "alerts/*"))
	l.waitTopics(t, []string{"alerts/*"})
	assert.Equal(t, []string{"alerts/*"}, server.LocalTopics())

	sent, err := client.PublishEvent("alerts/fire", map[string]interface{}{"level": "high"})
	require.NoError(t, err)
	assert.Equal(t, 1, sent)
	select {
	case ev := <-events:
		assert.Equal(t, "alerts/fire", ev.Topic)
		assert.Equal(t, "high", ev.Properties["level"])
		assert.Equal(t, "mem://client", ev.Source)
	case <-time.After(testtime.Second):
		t.Fatal("event did not arrive")
	}

	sent, err = client.PublishEvent("weather", nil)
	require.NoError(t, err)
	assert.Equal(t, 0, sent)

	require.NoError(t, server.RemoveTopics("alerts/*", "unknown"))
	l.waitTopics(t, []string{})
}

func TestRegistrationErrors(t *testing.T) {
	rt := New()

	err := rt.Register(capability.Registration{Handler: echo})
	assert.True(t, rosgierrors.IsInvalidArgument(err))

	err = rt.Register(capability.Registration{ID: "1"})
	assert.True(t, rosgierrors.IsInvalidArgument(err))

	props := map[string]interface{}{"a": 1}
	require.NoError(t, rt.Register(capability.Registration{ID: "1", Handler: echo, Properties: props}))
	props["a"] = 2
	reg, ok := rt.ResolveLocalCapability("1")
	require.True(t, ok)
	assert.Equal(t, 1, reg.Properties["a"], "registration must not alias the caller's map")

	err = rt.Register(capability.Registration{ID: "1", Handler: echo})
	assert.True(t, rosgierrors.IsInvalidArgument(err))

	require.NoError(t, rt.Modify("1", map[string]interface{}{"a": 3}))
	assert.Equal(t, 1, reg.Properties["a"], "modify must not change handed out registrations")

	assert.True(t, rosgierrors.IsUnknownCapability(rt.Modify("2", nil)))
	assert.True(t, rosgierrors.IsUnknownCapability(rt.Unregister("2")))

	require.NoError(t, rt.Register(capability.Registration{ID: "0", Handler: echo}))
	regs := rt.LocalCapabilities()
	require.Len(t, regs, 2)
	assert.Equal(t, "0", regs[0].ID)
	assert.Equal(t, "1", regs[1].ID)
}

func TestBrokenConnectionIsForgotten(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	net := newNetwork()
	server := newServer(t, net, "mem://server")
	client := New(Dialers(net.dialer(ctrl, "mem://client")), Connect("mem://server"))
	require.NoError(t, client.Start())
	defer func() { assert.NoError(t, client.Stop()) }()

	net.pipe("mem://server").Break()
	waitFor(t, "client forgets the server", func() bool { return len(client.Endpoints()) == 0 })
	waitFor(t, "server forgets the client", func() bool { return len(server.Endpoints()) == 0 })

	e, err := client.Connect(context.Background(), "mem://server")
	require.NoError(t, err)
	assert.False(t, e.Disposed())
}

func TestAcceptReplacesEndpoint(t *testing.T) {
	rt := New()
	require.NoError(t, rt.Start())

	a1, b1 := channeltest.NewPipe("mem://rt", "mem://peer")
	rt.Accept(a1)
	first, ok := rt.Endpoint("mem://peer")
	require.True(t, ok)

	a2, b2 := channeltest.NewPipe("mem://rt", "mem://peer")
	rt.Accept(a2)
	second, ok := rt.Endpoint("mem://peer")
	require.True(t, ok)

	assert.True(t, first != second)
	assert.True(t, first.Disposed())
	assert.False(t, second.Disposed())

	require.NoError(t, rt.Stop())
	assert.True(t, second.Disposed())
	assert.Empty(t, rt.Endpoints())

	a3, b3 := channeltest.NewPipe("mem://rt", "mem://peer")
	rt.Accept(a3)
	assert.Empty(t, rt.Endpoints(), "a stopped runtime must not accept")

	for _, p := range []*channeltest.Pipe{b1, b2, b3} {
		require.NoError(t, p.Close())
	}
}

func TestRedundancyFailsOver(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	net := newNetwork()
	newServer(t, net, "mem://s1")
	s2 := newServer(t, net, "mem://s2")
	require.NoError(t, s2.Register(capability.Registration{ID: "1", Handler: echo}))

	scope := tally.NewTestScope("", nil)
	client := New(
		Scope(scope),
		Dialers(net.dialer(ctrl, "mem://client")),
		Redundancy("mem://s1#9", multiplexer.Failover, "mem://s2#1"),
	)
	require.NoError(t, client.Start())
	defer func() { assert.NoError(t, client.Stop()) }()

	s1, ok := client.Endpoint("mem://s1")
	require.True(t, ok)
	assert.Equal(t, multiplexer.Failover, client.Multiplexer(s1).Policy("9"))

	res, err := client.Invoke(context.Background(), "mem://s1#9", "echo(T)", "x")
	require.NoError(t, err)
	assert.Equal(t, "x", res)

	counters := scope.Snapshot().Counters()
	require.Contains(t, counters, "multiplexer.failovers+")
	assert.Equal(t, int64(1), counters["multiplexer.failovers+"].Value())
}

func TestRemoveRedundancy(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	net := newNetwork()
	newServer(t, net, "mem://s1")
	newServer(t, net, "mem://s2")

	client := New(Dialers(net.dialer(ctrl, "mem://client")))
	require.NoError(t, client.Start())
	defer func() { assert.NoError(t, client.Stop()) }()

	ctx := context.Background()
	require.NoError(t, client.SetRedundancy(ctx, "mem://s1#1", multiplexer.LoadBalanceOne, "mem://s2#1"))
	s1, _ := client.Endpoint("mem://s1")
	assert.Len(t, client.Multiplexer(s1).Targets("1"), 2)

	err := client.SetRedundancy(ctx, "mem://s1#1", multiplexer.LoadBalanceOne, "mem://s2#1")
	assert.True(t, rosgierrors.IsInvalidArgument(err), "got %v", err)

	require.NoError(t, client.RemoveRedundancy("mem://s1#1", "mem://s2#1"))
	assert.Len(t, client.Multiplexer(s1).Targets("1"), 1)

	assert.True(t, rosgierrors.IsIllegalState(client.RemoveRedundancy("mem://s3#1", "mem://s2#1")))
	assert.True(t, rosgierrors.IsInvalidArgument(client.RemoveRedundancy("mem://s1", "mem://s2#1")))
}

type fakeInbound struct {
	startErr error
	started  bool
	stopped  bool
}

func (i *fakeInbound) Start() error {
	i.started = true
	return i.startErr
}

func (i *fakeInbound) Stop() error {
	i.stopped = true
	return nil
}

func TestInbounds(t *testing.T) {
	ok := &fakeInbound{}
	rt := New(Inbounds(ok))
	require.NoError(t, rt.Start())
	assert.True(t, ok.started)
	require.NoError(t, rt.Stop())
	assert.True(t, ok.stopped)

	first, broken, never := &fakeInbound{}, &fakeInbound{startErr: errors.New("great sadness")}, &fakeInbound{}
	rt = New(Inbounds(first, broken, never))
	err := rt.Start()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "great sadness")
	assert.True(t, first.stopped, "started inbounds must be stopped again")
	assert.False(t, never.started)
	assert.False(t, rt.IsRunning())
}
