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

package rosgiconfig

import (
	"sort"

	rosgi "github.com/saces/r-osgi-sub000"
	"github.com/saces/r-osgi-sub000/api/channel"
	"github.com/saces/r-osgi-sub000/multiplexer"
	"github.com/saces/r-osgi-sub000/rosgierrors"
	"github.com/saces/r-osgi-sub000/transport/tcp"
	"go.uber.org/zap"
)

// Build builds a Runtime from the settings. It dials and listens on
// tcp:// addresses. A nil logger is built from the logging settings. opts
// are applied after the settings and may override them.
func (c *Config) Build(logger *zap.Logger, opts ...rosgi.Option) (*rosgi.Runtime, error) {
	if logger == nil {
		var err error
		if logger, err = c.Logging.Build(); err != nil {
			return nil, err
		}
	}

	for name := range c.Transports {
		if name != tcp.Scheme {
			return nil, rosgierrors.InvalidArgumentErrorf("unknown transport %q", name)
		}
	}
	tcpOpts, err := tcp.OptionsFromConfig(c.Transports[tcp.Scheme])
	if err != nil {
		return nil, rosgierrors.InvalidArgumentErrorf("invalid %q transport settings: %v", tcp.Scheme, err)
	}
	strategy, err := c.Reconnect.Strategy()
	if err != nil {
		return nil, rosgierrors.InvalidArgumentErrorf("invalid reconnect backoff: %v", err)
	}
	tcpOpts = append(tcpOpts, tcp.Logger(logger), tcp.ReconnectBackoff(strategy))

	// Inbounds only hand out channels once the runtime starts them.
	var rt *rosgi.Runtime
	accept := func(ch channel.Channel) { rt.Accept(ch) }

	var inbounds []rosgi.Inbound
	for _, addr := range c.Listen {
		in, err := tcp.NewInbound(addr, accept, tcpOpts...)
		if err != nil {
			return nil, err
		}
		inbounds = append(inbounds, in)
	}

	base := []rosgi.Option{
		rosgi.Logger(logger),
		rosgi.Dialers(tcp.NewDialer(tcpOpts...)),
		rosgi.Inbounds(inbounds...),
		rosgi.EndpointOptions(c.EndpointOptions()...),
		rosgi.Connect(c.Connect...),
	}
	for _, uri := range c.capabilityURIs() {
		capCfg := c.Capabilities[uri]
		base = append(base, rosgi.Redundancy(uri, multiplexer.Policy(capCfg.Policy), capCfg.Alternates...))
	}

	rt = rosgi.New(append(base, opts...)...)
	return rt, nil
}

func (c *Config) capabilityURIs() []string {
	uris := make([]string, 0, len(c.Capabilities))
	for uri := range c.Capabilities {
		uris = append(uris, uri)
	}
	sort.Strings(uris)
	return uris
}
